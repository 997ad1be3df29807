package tabletmeta

import (
	"testing"

	"github.com/aalhour/tabletmeta/delvec"
	"github.com/aalhour/tabletmeta/internal/keys"
	"github.com/aalhour/tabletmeta/metapb"
)

func TestBatchWriteOnce(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	b.PutTabletMeta(dupMeta(1, 1))
	b.PutPendingRowset(1, 4, rowsetMeta(1, 4))
	if b.Count() != 2 {
		t.Errorf("Count = %d, want 2", b.Count())
	}
	if b.Size() == 0 {
		t.Error("Size = 0 for a non-empty batch")
	}
	if err := s.Write(b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(b); !IsInvalidArgument(err) {
		t.Errorf("second Write = %v, want invalid argument", err)
	}

	stats := s.Statistics()
	if got := stats.GetTickerCount(TickerBatchWrites); got != 1 {
		t.Errorf("TickerBatchWrites = %d, want 1", got)
	}
	if got := stats.GetHistogramData(HistogramBatchRecords); got.Count != 1 || got.Max != 2 {
		t.Errorf("batch records histogram = %+v", got)
	}
}

func TestBatchEmptyIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write(s.NewBatch()); err != nil {
		t.Fatalf("Write(empty): %v", err)
	}
	if got := s.Statistics().GetTickerCount(TickerBatchWrites); got != 0 {
		t.Errorf("TickerBatchWrites = %d, want 0", got)
	}
}

func TestBatchForeignStore(t *testing.T) {
	a, b := newTestStore(t), newTestStore(t)
	batch := a.NewBatch()
	batch.PutTabletMeta(dupMeta(1, 1))
	if err := b.Write(batch); !IsInvalidArgument(err) {
		t.Errorf("Write of another store's batch = %v, want invalid argument", err)
	}
	if err := a.Write(batch); err != nil {
		t.Errorf("Write to the owning store = %v", err)
	}
}

func TestBatchStickyEncodeError(t *testing.T) {
	s := newTestStore(t)
	s.codec = delvec.Codec{Compression: CompressionType(3), Checksum: ChecksumTypeCRC32C}

	b := s.NewBatch()
	b.PutTabletMeta(dupMeta(1, 1))
	b.PutDelVector(1, 0, delvec.New(2, 1))
	b.PutDelVector(1, 1, delvec.New(2, 1))
	if b.Err() == nil {
		t.Fatal("Err() = nil after a failed encode")
	}
	if err := s.Write(b); !IsInvalidArgument(err) {
		t.Errorf("Write = %v, want invalid argument", err)
	}
	if hasKey(t, s, keys.EncodeHeader(1, 1)) {
		t.Error("batch with an encode error was applied")
	}
}

func TestBatchClearTablet(t *testing.T) {
	s := newTestStore(t)
	populatePrimary(t, s, 5)
	populatePrimary(t, s, 6)

	b := s.NewBatch()
	b.ClearTablet(5)
	if err := s.Write(b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.GetTabletMeta(5, 1); err != nil {
		t.Errorf("ClearTablet removed the header: %v", err)
	}
	for _, prefix := range [][]byte{
		keys.LogTabletPrefix(5), keys.RowsetTabletPrefix(5),
		keys.PendingTabletPrefix(5), keys.DelVectorTabletPrefix(5),
	} {
		if n := countKeys(t, s, prefix); n != 0 {
			t.Errorf("%d keys left under %q", n, prefix)
		}
	}
	if n := countKeys(t, s, keys.DelVectorTabletPrefix(6)); n != 3 {
		t.Errorf("tablet 6 delete vectors = %d, want 3", n)
	}
}

func TestBatchRecordsApplyInOrder(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	b.ClearRowset(1)
	b.PutRowsetMeta(1, rowsetMeta(1, 3))
	b.PutMetaLog(1, 1, metapb.NewApplyLog(&metapb.EditVersion{Major: 1}))
	b.ClearLog(1)
	if err := s.Write(b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !hasKey(t, s, keys.EncodeRowset(1, 3)) {
		t.Error("put after clear was lost")
	}
	if hasKey(t, s, keys.EncodeLog(1, 1)) {
		t.Error("clear after put did not apply")
	}
}

func TestBatchTruncateMetaLogs(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	for id := uint64(0); id < 4; id++ {
		b.PutMetaLog(2, id, &metapb.TabletMetaLog{})
	}
	b.TruncateMetaLogs(2, 0)
	if err := s.Write(b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n := countKeys(t, s, keys.LogTabletPrefix(2)); n != 4 {
		t.Errorf("TruncateMetaLogs(0) left %d logs, want 4", n)
	}

	b = s.NewBatch()
	b.TruncateMetaLogs(2, 2)
	if err := s.Write(b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if hasKey(t, s, keys.EncodeLog(2, 1)) || !hasKey(t, s, keys.EncodeLog(2, 2)) {
		t.Error("TruncateMetaLogs(2) did not cut at log 2")
	}
}
