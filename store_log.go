package tabletmeta

import (
	"github.com/aalhour/tabletmeta/delvec"
	"github.com/aalhour/tabletmeta/internal/keys"
	"github.com/aalhour/tabletmeta/internal/logging"
	"github.com/aalhour/tabletmeta/metapb"
)

// SegmentDelVector pairs a segment with the delete vector produced for it by
// an apply.
type SegmentDelVector struct {
	SegmentID uint32
	DelVector *delvec.DelVector
}

// ApplyRowsetCommit records the apply of version. In one batch it appends an
// apply log and writes each delete vector at version's major number.
func (s *Store) ApplyRowsetCommit(tabletID int64, logID uint64, version *metapb.EditVersion, delvecs []SegmentDelVector) error {
	if version == nil {
		return ErrInvalidArgument.New("apply of tablet %d without version", tabletID)
	}
	b := s.NewBatch()
	b.PutMetaLog(tabletID, logID, metapb.NewApplyLog(version))
	for _, sd := range delvecs {
		if sd.DelVector == nil {
			return ErrInvalidArgument.New("apply of tablet %d: nil delete vector for segment %d", tabletID, sd.SegmentID)
		}
		b.PutDelVectorAt(tabletID, sd.SegmentID, version.Major, sd.DelVector)
	}
	if err := s.Write(b); err != nil {
		return err
	}
	s.recordTick(TickerApplyCommits, 1)
	s.recordTick(TickerMetaLogsWritten, 1)
	return nil
}

// TraverseMetaLogs calls fn with each meta log entry of the tablet in log id
// order until fn returns false. Keys that do not decode are logged and
// skipped; an undecodable entry aborts with ErrCorruption.
func (s *Store) TraverseMetaLogs(tabletID int64, fn func(logID uint64, log *metapb.TabletMetaLog) bool) error {
	var decodeErr error
	err := s.scan(keys.LogTabletPrefix(tabletID), func(key, value []byte) bool {
		_, logID, ok := keys.DecodeLog(key)
		if !ok {
			s.recordTick(TickerCorruptEntries, 1)
			s.log.Warnf(logging.NSRowset+"corrupted key of meta log %q", key)
			return true
		}
		log := new(metapb.TabletMetaLog)
		if err := log.Unmarshal(value); err != nil {
			decodeErr = s.corruption(logging.NSRowset, "corrupted value of meta log %d: %v", logID, err)
			return false
		}
		return fn(logID, log)
	})
	if err != nil {
		return err
	}
	return decodeErr
}
