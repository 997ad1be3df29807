package tabletmeta

import (
	"github.com/aalhour/tabletmeta/internal/keys"
	"github.com/aalhour/tabletmeta/internal/logging"
	"github.com/aalhour/tabletmeta/metapb"
)

// RowsetCommit moves a rowset into the tablet's durable state. In one batch
// it appends a rowset commit log carrying edit, writes rowset under its
// rowset_seg_id, deletes rowsetMetaKey when it is not empty and deletes the
// pending rowset at edit's major version.
func (s *Store) RowsetCommit(tabletID int64, logID uint64, edit *metapb.EditVersionMeta, rowset *metapb.RowsetMeta, rowsetMetaKey []byte) error {
	if edit == nil || rowset == nil {
		return ErrInvalidArgument.New("rowset commit of tablet %d without edit or rowset", tabletID)
	}
	b := s.NewBatch()
	b.PutMetaLog(tabletID, logID, metapb.NewCommitLog(edit))
	b.PutRowsetMeta(tabletID, rowset)
	if len(rowsetMetaKey) > 0 {
		b.Delete(rowsetMetaKey)
	}
	b.DeletePendingRowset(tabletID, edit.Major())
	if err := s.Write(b); err != nil {
		return err
	}
	s.recordTick(TickerRowsetCommits, 1)
	s.recordTick(TickerMetaLogsWritten, 1)
	return nil
}

// RowsetDelete deletes a committed rowset together with every delete vector
// version of its segments [rowsetID, rowsetID+segments).
func (s *Store) RowsetDelete(tabletID int64, rowsetID, segments uint32) error {
	b := s.NewBatch()
	b.DeleteRowsetMeta(tabletID, rowsetID)
	b.DeleteSegmentDelVectors(tabletID, rowsetID, segments)
	if err := s.Write(b); err != nil {
		return err
	}
	s.recordTick(TickerRowsetDeletes, 1)
	return nil
}

// RowsetIterate calls fn with each committed rowset of the tablet in
// rowset id order until fn returns false. An undecodable rowset aborts the
// iteration with ErrCorruption.
func (s *Store) RowsetIterate(tabletID int64, fn func(rowset *metapb.RowsetMeta) bool) error {
	var decodeErr error
	err := s.scan(keys.RowsetTabletPrefix(tabletID), func(key, value []byte) bool {
		rowset := new(metapb.RowsetMeta)
		if err := rowset.Unmarshal(value); err != nil {
			decodeErr = s.corruption(logging.NSRowset, "bad rowset meta pb %q: %v", key, err)
			return false
		}
		return fn(rowset)
	})
	if err != nil {
		return err
	}
	return decodeErr
}

// PendingRowsetCommit records a rowset that is waiting to be applied at
// version, deleting rowsetMetaKey in the same batch when it is not empty.
func (s *Store) PendingRowsetCommit(tabletID, version int64, rowset *metapb.RowsetMeta, rowsetMetaKey []byte) error {
	if rowset == nil {
		return ErrInvalidArgument.New("pending rowset commit of tablet %d without rowset", tabletID)
	}
	b := s.NewBatch()
	if len(rowsetMetaKey) > 0 {
		b.Delete(rowsetMetaKey)
	}
	b.PutPendingRowset(tabletID, version, rowset)
	if err := s.Write(b); err != nil {
		return err
	}
	s.recordTick(TickerPendingRowsetCommits, 1)
	return nil
}

// PendingRowsetIterate calls fn with each pending rowset of the tablet in
// version order until fn returns false. An undecodable key or value aborts
// the iteration with ErrCorruption.
func (s *Store) PendingRowsetIterate(tabletID int64, fn func(version int64, rowset *metapb.RowsetMeta) bool) error {
	var decodeErr error
	err := s.scan(keys.PendingTabletPrefix(tabletID), func(key, value []byte) bool {
		_, version, ok := keys.DecodePending(key)
		if !ok {
			decodeErr = s.corruption(logging.NSRowset, "corrupted key of pending rowset %q", key)
			return false
		}
		rowset := new(metapb.RowsetMeta)
		if err := rowset.Unmarshal(value); err != nil {
			decodeErr = s.corruption(logging.NSRowset, "bad pending rowset pb at version %d: %v", version, err)
			return false
		}
		return fn(version, rowset)
	})
	if err != nil {
		return err
	}
	return decodeErr
}

// DeletePendingRowset deletes the pending rowset at version, if any.
func (s *Store) DeletePendingRowset(tabletID, version int64) error {
	if err := s.kv.Delete(s.cf, keys.EncodePending(tabletID, version)); err != nil {
		return ErrIO.Wrap(err)
	}
	return nil
}

// corruption logs and counts a corrupt entry and returns it as an
// ErrCorruption error.
func (s *Store) corruption(ns, format string, args ...any) error {
	s.recordTick(TickerCorruptEntries, 1)
	err := ErrCorruption.New(format, args...)
	s.log.Errorf(ns+"%v", err)
	return err
}
