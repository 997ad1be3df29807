package tabletmeta

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aalhour/tabletmeta/internal/keys"
	"github.com/aalhour/tabletmeta/internal/logging"
	"github.com/aalhour/tabletmeta/metapb"
)

// Stats summarizes the content of a store. Counts are entries, Bytes are
// value sizes.
type Stats struct {
	TabletCount       uint64
	TabletBytes       uint64
	UpdateTabletCount uint64
	UpdateTabletBytes uint64
	LegacyRowsetCount uint64
	LegacyRowsetBytes uint64
	LogCount          uint64
	LogBytes          uint64
	DelVectorCount    uint64
	DelVectorBytes    uint64
	RowsetCount       uint64
	RowsetBytes       uint64
	PendingCount      uint64
	PendingBytes      uint64
	TotalCount        uint64
	TotalBytes        uint64
	// ErrorCount counts entries that could not be decoded or attributed to
	// a tablet.
	ErrorCount uint64
	// Tablets is only filled by GetStats(true).
	Tablets map[int64]*TabletStats
}

// TabletStats is the per-tablet detail of GetStats.
type TabletStats struct {
	TabletID       int64
	TableID        int64
	MetaBytes      uint64
	LogCount       uint64
	LogBytes       uint64
	DelVectorCount uint64
	DelVectorBytes uint64
	RowsetCount    uint64
	RowsetBytes    uint64
	PendingCount   uint64
	PendingBytes   uint64
}

type familyCount struct {
	count, bytes, errors uint64
}

// familyScan describes how one key family is accounted.
type familyScan struct {
	family keys.Family
	prefix string
	// decode extracts the tablet id; nil families are only counted.
	decode func(key []byte) (int64, bool)
	// orphanIsError counts entries of unknown tablets as errors in detail
	// mode; otherwise they are only logged.
	orphanIsError bool
	add           func(ts *TabletStats, size uint64)
}

var statsFamilies = []familyScan{
	{
		family: keys.FamilyLog,
		prefix: keys.LogPrefix,
		decode: func(key []byte) (int64, bool) {
			id, _, ok := keys.DecodeLog(key)
			return id, ok
		},
		add: func(ts *TabletStats, size uint64) { ts.LogCount++; ts.LogBytes += size },
	},
	{
		family: keys.FamilyDelVector,
		prefix: keys.DelVectorPrefix,
		decode: func(key []byte) (int64, bool) {
			id, _, _, ok := keys.DecodeDelVector(key)
			return id, ok
		},
		orphanIsError: true,
		add:           func(ts *TabletStats, size uint64) { ts.DelVectorCount++; ts.DelVectorBytes += size },
	},
	{
		family: keys.FamilyRowset,
		prefix: keys.RowsetPrefix,
		decode: func(key []byte) (int64, bool) {
			id, _, ok := keys.DecodeRowset(key)
			return id, ok
		},
		orphanIsError: true,
		add:           func(ts *TabletStats, size uint64) { ts.RowsetCount++; ts.RowsetBytes += size },
	},
	{
		family: keys.FamilyPending,
		prefix: keys.PendingPrefix,
		decode: func(key []byte) (int64, bool) {
			id, _, ok := keys.DecodePending(key)
			return id, ok
		},
		orphanIsError: true,
		add:           func(ts *TabletStats, size uint64) { ts.PendingCount++; ts.PendingBytes += size },
	},
	{
		family: keys.FamilyLegacyRowset,
		prefix: keys.LegacyRowsetPrefix,
	},
}

// GetStats scans every key family and returns entry counts and sizes.
// Undecodable entries are counted in ErrorCount and skipped. With detail set
// the per-tablet breakdown is filled in as well.
//
// The header scan runs first; the other families are scanned concurrently.
func (s *Store) GetStats(detail bool) (*Stats, error) {
	start := time.Now()
	defer func() { s.measure(HistogramStatsScanMicros, uint64(time.Since(start).Microseconds())) }()

	stats := &Stats{}
	if detail {
		stats.Tablets = make(map[int64]*TabletStats)
	}
	if err := s.statHeaders(stats); err != nil {
		return nil, err
	}

	counts := make([]familyCount, len(statsFamilies))
	var g errgroup.Group
	for i := range statsFamilies {
		g.Go(func() error {
			fc, err := s.statFamily(&statsFamilies[i], stats.Tablets)
			counts[i] = fc
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, fc := range counts {
		switch statsFamilies[i].family {
		case keys.FamilyLog:
			stats.LogCount, stats.LogBytes = fc.count, fc.bytes
		case keys.FamilyDelVector:
			stats.DelVectorCount, stats.DelVectorBytes = fc.count, fc.bytes
		case keys.FamilyRowset:
			stats.RowsetCount, stats.RowsetBytes = fc.count, fc.bytes
		case keys.FamilyPending:
			stats.PendingCount, stats.PendingBytes = fc.count, fc.bytes
		case keys.FamilyLegacyRowset:
			stats.LegacyRowsetCount, stats.LegacyRowsetBytes = fc.count, fc.bytes
		}
		stats.TotalCount += fc.count
		stats.TotalBytes += fc.bytes
		stats.ErrorCount += fc.errors
	}
	if stats.ErrorCount > 0 {
		s.recordTick(TickerCorruptEntries, stats.ErrorCount)
	}
	return stats, nil
}

func (s *Store) statHeaders(stats *Stats) error {
	return s.scan([]byte(keys.HeaderPrefix), func(key, value []byte) bool {
		tabletID, schemaHash, ok := keys.DecodeHeader(key)
		if !ok {
			s.log.Warnf(logging.NSStats+"invalid tablet meta key %q", key)
			stats.ErrorCount++
			return true
		}
		meta := new(metapb.TabletMeta)
		if err := meta.Unmarshal(value); err != nil {
			s.log.Warnf(logging.NSStats+"bad tablet meta pb %d.%d: %v", tabletID, schemaHash, err)
			stats.ErrorCount++
			return true
		}
		size := uint64(len(value))
		stats.TabletCount++
		stats.TabletBytes += size
		stats.TotalCount++
		stats.TotalBytes += size
		if meta.IsPrimaryKeys() {
			stats.UpdateTabletCount++
			stats.UpdateTabletBytes += size
		}
		if stats.Tablets == nil {
			return true
		}
		if _, dup := stats.Tablets[tabletID]; dup {
			s.log.Warnf(logging.NSStats+"tablet %d has more than one header", tabletID)
			stats.ErrorCount++
			return true
		}
		stats.Tablets[tabletID] = &TabletStats{TabletID: tabletID, TableID: meta.TableID, MetaBytes: size}
		return true
	})
}

// statFamily scans one family. tablets is read only here; each family
// updates its own TabletStats fields.
func (s *Store) statFamily(f *familyScan, tablets map[int64]*TabletStats) (familyCount, error) {
	var fc familyCount
	err := s.scan([]byte(f.prefix), func(key, value []byte) bool {
		var tabletID int64
		if f.decode != nil {
			id, ok := f.decode(key)
			if !ok {
				s.log.Warnf(logging.NSStats+"invalid %s key %q", f.family, key)
				fc.errors++
				return true
			}
			tabletID = id
		}
		size := uint64(len(value))
		fc.count++
		fc.bytes += size
		if tablets == nil || f.add == nil {
			return true
		}
		ts, ok := tablets[tabletID]
		if !ok {
			s.log.Warnf(logging.NSStats+"%s entry of unknown tablet %d", f.family, tabletID)
			if f.orphanIsError {
				fc.errors++
			}
			return true
		}
		f.add(ts, size)
		return true
	})
	return fc, err
}
