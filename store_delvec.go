package tabletmeta

import (
	"github.com/aalhour/tabletmeta/delvec"
	"github.com/aalhour/tabletmeta/internal/keys"
	"github.com/aalhour/tabletmeta/internal/logging"
)

// NoDelVector is the latest version reported by GetDelVector when a segment
// has no delete vector at all.
const NoDelVector int64 = -1

// SegmentVersion names one stored delete vector.
type SegmentVersion struct {
	SegmentID uint32
	Version   int64
}

// SetDelVector writes dv for a segment at dv.Version().
func (s *Store) SetDelVector(tabletID int64, segmentID uint32, dv *delvec.DelVector) error {
	value, err := dv.Save(s.codec)
	if err != nil {
		return ErrInvalidArgument.Wrap(err)
	}
	if err := s.kv.Put(s.cf, keys.EncodeDelVector(tabletID, segmentID, dv.Version()), value); err != nil {
		return ErrIO.Wrap(err)
	}
	s.recordTick(TickerDelVectorWrites, 1)
	s.recordTick(TickerDelVectorBytesWritten, uint64(len(value)))
	return nil
}

// GetDelVector returns the delete vector of a segment with the largest
// stored version not above version, together with the newest version stored
// for the segment (NoDelVector if none).
//
// It fails with ErrNotFound when every stored version is newer than version.
func (s *Store) GetDelVector(tabletID int64, segmentID uint32, version int64) (*delvec.DelVector, int64, error) {
	latest := NoDelVector
	var (
		dv      *delvec.DelVector
		loadErr error
	)
	err := s.scan(keys.DelVectorSegmentPrefix(tabletID, segmentID), func(key, value []byte) bool {
		v, ok := keys.DecodeDelVectorVersion(key)
		if !ok {
			loadErr = s.corruption(logging.NSDelVec, "corrupted key of delete vector %q", key)
			return false
		}
		if latest == NoDelVector {
			latest = v
		}
		if v > version {
			return true
		}
		dv, loadErr = delvec.Load(v, value)
		if loadErr != nil {
			loadErr = s.corruption(logging.NSDelVec, "load delete vector %d.%d@%d: %v", tabletID, segmentID, v, loadErr)
		}
		return false
	})
	if err != nil {
		return nil, latest, err
	}
	if loadErr != nil {
		return nil, latest, loadErr
	}
	if dv == nil {
		s.recordTick(TickerDelVectorMisses, 1)
		return nil, latest, ErrNotFound.New("delete vector %d.%d version %d (latest %d)", tabletID, segmentID, version, latest)
	}
	s.recordTick(TickerDelVectorReads, 1)
	return dv, latest, nil
}

// ListDelVector returns, for each segment of the tablet, the newest delete
// vector version below maxVersion, ordered by segment id.
func (s *Store) ListDelVector(tabletID int64, maxVersion int64) ([]SegmentVersion, error) {
	var (
		out     []SegmentVersion
		keyErr  error
		current uint32
		found   bool
		first   = true
	)
	err := s.scan(keys.DelVectorTabletPrefix(tabletID), func(key, _ []byte) bool {
		_, segmentID, version, ok := keys.DecodeDelVector(key)
		if !ok {
			keyErr = s.corruption(logging.NSDelVec, "corrupted key of delete vector %q", key)
			return false
		}
		if first || segmentID != current {
			first, current, found = false, segmentID, false
		}
		if !found && version < maxVersion {
			out = append(out, SegmentVersion{SegmentID: segmentID, Version: version})
			found = true
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if keyErr != nil {
		return nil, keyErr
	}
	return out, nil
}

// DeleteDelVectorRange deletes the delete vector versions of a segment in
// [startVersion, endVersion). An empty range is a no-op and a reversed range
// fails with ErrInvalidArgument.
func (s *Store) DeleteDelVectorRange(tabletID int64, segmentID uint32, startVersion, endVersion int64) error {
	if startVersion == endVersion {
		return nil
	}
	if startVersion > endVersion {
		return ErrInvalidArgument.New("delete vector range start %d > end %d", startVersion, endVersion)
	}
	b := s.NewBatch()
	b.DeleteDelVectorVersions(tabletID, segmentID, startVersion, endVersion)
	return s.Write(b)
}
