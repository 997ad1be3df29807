package tabletmeta

// write_batch.go implements the Batch used to build atomic multi-key updates.

import (
	"math"

	"github.com/aalhour/tabletmeta/delvec"
	"github.com/aalhour/tabletmeta/internal/keys"
	"github.com/aalhour/tabletmeta/internal/logging"
	"github.com/aalhour/tabletmeta/kv"
	"github.com/aalhour/tabletmeta/metapb"
)

// Batch collects metadata mutations that Store.Write applies atomically.
// Records apply in the order they were added.
//
// Example:
//
//	b := store.NewBatch()
//	b.PutTabletMeta(meta)
//	b.ClearPendingRowset(meta.TabletID)
//	err := store.Write(b)
//
// A Batch is not safe for concurrent use.
type Batch struct {
	owner   *Store
	wb      *kv.WriteBatch
	err     error
	written bool
}

// NewBatch returns an empty batch bound to s.
func (s *Store) NewBatch() *Batch {
	return &Batch{owner: s, wb: kv.NewWriteBatch()}
}

// Count returns the number of records in the batch.
func (b *Batch) Count() int { return b.wb.Count() }

// Size returns the encoded size of the batch in bytes.
func (b *Batch) Size() int { return b.wb.Size() }

// Err returns the first error recorded while building the batch.
func (b *Batch) Err() error { return b.err }

func (b *Batch) put(key, value []byte) { b.wb.Put(b.owner.cf, key, value) }

func (b *Batch) deleteRange(start, end []byte) { b.wb.DeleteRange(b.owner.cf, start, end) }

// PutTabletMeta writes meta under the header key of its own tablet id and
// schema hash.
func (b *Batch) PutTabletMeta(meta *metapb.TabletMeta) {
	b.PutTabletMetaAs(meta.TabletID, meta.SchemaHash, meta)
}

// PutTabletMetaAs writes meta under the header key of tabletID and schemaHash.
func (b *Batch) PutTabletMetaAs(tabletID int64, schemaHash int32, meta *metapb.TabletMeta) {
	b.put(keys.EncodeHeader(tabletID, schemaHash), meta.Marshal())
}

// RemoveTabletMeta deletes one tablet header.
func (b *Batch) RemoveTabletMeta(tabletID int64, schemaHash int32) {
	b.Delete(keys.EncodeHeader(tabletID, schemaHash))
}

// PutRowsetMeta writes rowset under its rowset_seg_id.
func (b *Batch) PutRowsetMeta(tabletID int64, rowset *metapb.RowsetMeta) {
	b.put(keys.EncodeRowset(tabletID, rowset.RowsetSegID), rowset.Marshal())
}

// DeleteRowsetMeta deletes one committed rowset.
func (b *Batch) DeleteRowsetMeta(tabletID int64, rowsetID uint32) {
	b.Delete(keys.EncodeRowset(tabletID, rowsetID))
}

// PutPendingRowset writes a pending rowset at version.
func (b *Batch) PutPendingRowset(tabletID, version int64, rowset *metapb.RowsetMeta) {
	b.put(keys.EncodePending(tabletID, version), rowset.Marshal())
}

// DeletePendingRowset deletes the pending rowset at version, if any.
func (b *Batch) DeletePendingRowset(tabletID, version int64) {
	b.Delete(keys.EncodePending(tabletID, version))
}

// PutMetaLog appends a meta log entry.
func (b *Batch) PutMetaLog(tabletID int64, logID uint64, log *metapb.TabletMetaLog) {
	b.put(keys.EncodeLog(tabletID, logID), log.Marshal())
}

// TruncateMetaLogs deletes the meta log entries with ids below nextLogID.
func (b *Batch) TruncateMetaLogs(tabletID int64, nextLogID uint64) {
	if nextLogID == 0 {
		return
	}
	b.deleteRange(keys.EncodeLog(tabletID, 0), keys.EncodeLog(tabletID, nextLogID))
}

// PutDelVector writes dv for a segment at dv.Version(). An encoding failure
// is recorded and returned by Store.Write.
func (b *Batch) PutDelVector(tabletID int64, segmentID uint32, dv *delvec.DelVector) {
	b.PutDelVectorAt(tabletID, segmentID, dv.Version(), dv)
}

// PutDelVectorAt writes dv for a segment under version, which may differ
// from dv.Version().
func (b *Batch) PutDelVectorAt(tabletID int64, segmentID uint32, version int64, dv *delvec.DelVector) {
	if b.err != nil {
		return
	}
	value, err := dv.Save(b.owner.codec)
	if err != nil {
		b.err = ErrInvalidArgument.Wrap(err)
		return
	}
	b.put(keys.EncodeDelVector(tabletID, segmentID, version), value)
	b.owner.recordTick(TickerDelVectorWrites, 1)
	b.owner.recordTick(TickerDelVectorBytesWritten, uint64(len(value)))
}

// putRawDelVector writes an already encoded delete vector.
func (b *Batch) putRawDelVector(tabletID int64, segmentID uint32, version int64, value []byte) {
	b.put(keys.EncodeDelVector(tabletID, segmentID, version), value)
}

// DeleteSegmentDelVectors deletes every version of the delete vectors of
// segments [firstSegment, firstSegment+segments).
func (b *Batch) DeleteSegmentDelVectors(tabletID int64, firstSegment, segments uint32) {
	if segments == 0 {
		return
	}
	lower := keys.DelVectorSegmentPrefix(tabletID, firstSegment)
	var upper []byte
	if uint64(firstSegment)+uint64(segments) > math.MaxUint32 {
		upper = kv.PrefixEnd(keys.DelVectorTabletPrefix(tabletID))
	} else {
		upper = keys.DelVectorSegmentPrefix(tabletID, firstSegment+segments)
	}
	b.deleteRange(lower, upper)
}

// DeleteDelVectorVersions deletes the delete vector versions in
// [startVersion, endVersion) of one segment. Versions are stored in reverse
// order, so the key range is (encode(end-1), encode(start-1)].
func (b *Batch) DeleteDelVectorVersions(tabletID int64, segmentID uint32, startVersion, endVersion int64) {
	if startVersion >= endVersion {
		return
	}
	lower := keys.EncodeDelVector(tabletID, segmentID, endVersion-1)
	var upper []byte
	if startVersion == math.MinInt64 {
		upper = kv.PrefixEnd(keys.DelVectorSegmentPrefix(tabletID, segmentID))
	} else {
		upper = keys.EncodeDelVector(tabletID, segmentID, startVersion-1)
	}
	b.deleteRange(lower, upper)
}

// Delete deletes a raw key, such as a transaction staging key.
func (b *Batch) Delete(key []byte) {
	b.wb.Delete(b.owner.cf, key)
}

// ClearRowset deletes every committed rowset of the tablet.
func (b *Batch) ClearRowset(tabletID int64) {
	b.clearPrefix(keys.RowsetTabletPrefix(tabletID))
}

// ClearLog deletes every meta log entry of the tablet.
func (b *Batch) ClearLog(tabletID int64) {
	b.clearPrefix(keys.LogTabletPrefix(tabletID))
}

// ClearDelVector deletes every delete vector of the tablet.
func (b *Batch) ClearDelVector(tabletID int64) {
	b.clearPrefix(keys.DelVectorTabletPrefix(tabletID))
}

// ClearPendingRowset deletes every pending rowset of the tablet.
func (b *Batch) ClearPendingRowset(tabletID int64) {
	b.clearPrefix(keys.PendingTabletPrefix(tabletID))
}

// ClearTablet clears the meta log, delete vectors, rowsets and pending
// rowsets of the tablet. The header is left alone.
func (b *Batch) ClearTablet(tabletID int64) {
	b.ClearLog(tabletID)
	b.ClearDelVector(tabletID)
	b.ClearRowset(tabletID)
	b.ClearPendingRowset(tabletID)
}

func (b *Batch) clearPrefix(prefix []byte) {
	b.deleteRange(prefix, kv.PrefixEnd(prefix))
}

// Write applies b atomically. A batch is written at most once; an empty
// batch is a no-op.
func (s *Store) Write(b *Batch) error {
	switch {
	case b.owner != s:
		return ErrInvalidArgument.New("batch belongs to another store")
	case b.err != nil:
		return b.err
	case b.written:
		return ErrInvalidArgument.New("batch already written")
	}
	if b.wb.Count() == 0 {
		b.written = true
		return nil
	}
	if err := s.kv.Write(b.wb); err != nil {
		s.log.Errorf(logging.NSKV+"batch of %d records failed: %v", b.wb.Count(), err)
		return ErrIO.Wrap(err)
	}
	b.written = true
	s.recordTick(TickerBatchWrites, 1)
	s.recordTick(TickerBatchBytes, uint64(b.wb.Size()))
	s.measure(HistogramBatchRecords, uint64(b.wb.Count()))
	s.measure(HistogramBatchBytes, uint64(b.wb.Size()))
	return nil
}
