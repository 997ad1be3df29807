package tabletmeta

// statistics.go implements the Statistics interface for collecting store metrics.

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// TickerType represents different types of counters.
type TickerType int

const (
	// TickerMetaSaved is the count of tablet headers written.
	TickerMetaSaved TickerType = iota
	// TickerMetaRemoved is the count of tablet headers deleted.
	TickerMetaRemoved
	// TickerMetaRead is the count of tablet header lookups.
	TickerMetaRead
	// TickerRowsetCommits is the count of rowset commits.
	TickerRowsetCommits
	// TickerRowsetDeletes is the count of rowset deletions.
	TickerRowsetDeletes
	// TickerPendingRowsetCommits is the count of pending rowset commits.
	TickerPendingRowsetCommits
	// TickerApplyCommits is the count of apply commits.
	TickerApplyCommits
	// TickerMetaLogsWritten is the count of meta log entries written.
	TickerMetaLogsWritten
	// TickerDelVectorWrites is the count of delete vectors written.
	TickerDelVectorWrites
	// TickerDelVectorBytesWritten is the total encoded size of delete vectors written.
	TickerDelVectorBytesWritten
	// TickerDelVectorReads is the count of delete vector lookups.
	TickerDelVectorReads
	// TickerDelVectorMisses is the count of delete vector lookups that found no version.
	TickerDelVectorMisses
	// TickerJSONExports is the count of JSON documents produced.
	TickerJSONExports
	// TickerJSONImports is the count of JSON documents loaded.
	TickerJSONImports
	// TickerCorruptEntries is the count of undecodable keys or values seen.
	TickerCorruptEntries
	// TickerBatchWrites is the count of batches written to the backend.
	TickerBatchWrites
	// TickerBatchBytes is the total encoded size of written batches.
	TickerBatchBytes

	// TickerEnumMax is the maximum ticker type for sizing arrays.
	TickerEnumMax
)

var tickerNames = [TickerEnumMax]string{
	"tabletmeta.meta.saved",
	"tabletmeta.meta.removed",
	"tabletmeta.meta.read",
	"tabletmeta.rowset.commits",
	"tabletmeta.rowset.deletes",
	"tabletmeta.pending.rowset.commits",
	"tabletmeta.apply.commits",
	"tabletmeta.meta.logs.written",
	"tabletmeta.delvec.writes",
	"tabletmeta.delvec.bytes.written",
	"tabletmeta.delvec.reads",
	"tabletmeta.delvec.misses",
	"tabletmeta.json.exports",
	"tabletmeta.json.imports",
	"tabletmeta.corrupt.entries",
	"tabletmeta.batch.writes",
	"tabletmeta.batch.bytes",
}

// String returns the name of the ticker type.
func (t TickerType) String() string {
	if t >= 0 && t < TickerEnumMax {
		return tickerNames[t]
	}
	return "unknown"
}

// HistogramType represents different types of histograms.
type HistogramType int

const (
	// HistogramBatchRecords is the number of records per written batch.
	HistogramBatchRecords HistogramType = iota
	// HistogramBatchBytes is the encoded size of written batches.
	HistogramBatchBytes
	// HistogramStatsScanMicros is the duration of GetStats scans.
	HistogramStatsScanMicros

	// HistogramEnumMax is the maximum histogram type for sizing arrays.
	HistogramEnumMax
)

var histogramNames = [HistogramEnumMax]string{
	"tabletmeta.batch.records",
	"tabletmeta.batch.bytes",
	"tabletmeta.stats.scan.micros",
}

// String returns the name of the histogram type.
func (h HistogramType) String() string {
	if h >= 0 && h < HistogramEnumMax {
		return histogramNames[h]
	}
	return "unknown"
}

// HistogramData contains histogram statistics.
type HistogramData struct {
	Average float64
	Max     float64
	Min     float64
	Count   uint64
	Sum     uint64
}

// Statistics collects and reports store metrics.
type Statistics interface {
	// GetTickerCount returns the current value of a ticker.
	GetTickerCount(tickerType TickerType) uint64

	// RecordTick increments a ticker by count.
	RecordTick(tickerType TickerType, count uint64)

	// GetHistogramData returns histogram statistics.
	GetHistogramData(histogramType HistogramType) HistogramData

	// MeasureTime records a value to a histogram.
	MeasureTime(histogramType HistogramType, value uint64)

	// Reset clears all statistics.
	Reset()

	// String returns a formatted string of all statistics.
	String() string
}

type statisticsImpl struct {
	tickers    [TickerEnumMax]atomic.Uint64
	histograms [HistogramEnumMax]atomic.Pointer[histogramImpl]
}

type histogramImpl struct {
	min   atomic.Uint64
	max   atomic.Uint64
	sum   atomic.Uint64
	count atomic.Uint64
}

func newHistogram() *histogramImpl {
	h := &histogramImpl{}
	h.min.Store(^uint64(0))
	return h
}

// NewStatistics creates a new Statistics instance.
func NewStatistics() Statistics {
	s := &statisticsImpl{}
	for i := range s.histograms {
		s.histograms[i].Store(newHistogram())
	}
	return s
}

func (s *statisticsImpl) GetTickerCount(tickerType TickerType) uint64 {
	if tickerType < 0 || tickerType >= TickerEnumMax {
		return 0
	}
	return s.tickers[tickerType].Load()
}

func (s *statisticsImpl) RecordTick(tickerType TickerType, count uint64) {
	if tickerType < 0 || tickerType >= TickerEnumMax {
		return
	}
	s.tickers[tickerType].Add(count)
}

func (s *statisticsImpl) GetHistogramData(histogramType HistogramType) HistogramData {
	if histogramType < 0 || histogramType >= HistogramEnumMax {
		return HistogramData{}
	}
	h := s.histograms[histogramType].Load()
	count := h.count.Load()
	if count == 0 {
		return HistogramData{}
	}
	sum := h.sum.Load()
	return HistogramData{
		Count:   count,
		Sum:     sum,
		Min:     float64(h.min.Load()),
		Max:     float64(h.max.Load()),
		Average: float64(sum) / float64(count),
	}
}

func (s *statisticsImpl) MeasureTime(histogramType HistogramType, value uint64) {
	if histogramType < 0 || histogramType >= HistogramEnumMax {
		return
	}
	h := s.histograms[histogramType].Load()
	h.count.Add(1)
	h.sum.Add(value)
	for {
		old := h.min.Load()
		if value >= old || h.min.CompareAndSwap(old, value) {
			break
		}
	}
	for {
		old := h.max.Load()
		if value <= old || h.max.CompareAndSwap(old, value) {
			break
		}
	}
}

func (s *statisticsImpl) Reset() {
	for i := range s.tickers {
		s.tickers[i].Store(0)
	}
	for i := range s.histograms {
		s.histograms[i].Store(newHistogram())
	}
}

func (s *statisticsImpl) String() string {
	var b strings.Builder
	b.WriteString("TICKERS:\n")
	for i := range TickerEnumMax {
		if count := s.GetTickerCount(i); count > 0 {
			fmt.Fprintf(&b, "  %s : %d\n", i, count)
		}
	}
	b.WriteString("\nHISTOGRAMS:\n")
	for i := range HistogramEnumMax {
		data := s.GetHistogramData(i)
		if data.Count == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s :\n", i)
		fmt.Fprintf(&b, "    Count: %d\n", data.Count)
		fmt.Fprintf(&b, "    Avg: %.2f\n", data.Average)
		fmt.Fprintf(&b, "    Min: %.0f\n", data.Min)
		fmt.Fprintf(&b, "    Max: %.0f\n", data.Max)
	}
	return b.String()
}
