package kv

import (
	"github.com/aalhour/tabletmeta/internal/batch"
)

// WriteBatch collects mutations that a Store applies atomically. Records are
// applied in the order they were added. A WriteBatch is not safe for
// concurrent use.
type WriteBatch struct {
	wb *batch.WriteBatch
}

// NewWriteBatch returns an empty batch.
func NewWriteBatch() *WriteBatch {
	return &WriteBatch{wb: batch.New()}
}

// Put records a put of key to value. The batch copies both slices.
func (b *WriteBatch) Put(cf ColumnFamily, key, value []byte) {
	b.wb.PutCF(uint32(cf), key, value)
}

// Delete records a deletion of key.
func (b *WriteBatch) Delete(cf ColumnFamily, key []byte) {
	b.wb.DeleteCF(uint32(cf), key)
}

// DeleteRange records a deletion of every key in [start, end). An empty end
// extends the range to the last key of cf.
func (b *WriteBatch) DeleteRange(cf ColumnFamily, start, end []byte) {
	b.wb.DeleteRangeCF(uint32(cf), start, end)
}

// Count returns the number of records in the batch.
func (b *WriteBatch) Count() int {
	return int(b.wb.Count())
}

// Size returns the encoded size of the batch in bytes.
func (b *WriteBatch) Size() int {
	return b.wb.Size()
}

// Reset empties the batch for reuse.
func (b *WriteBatch) Reset() {
	b.wb.Clear()
}

// Handler receives the records of a batch. Slices alias the batch buffer and
// must be copied if retained.
type Handler interface {
	Put(cf ColumnFamily, key, value []byte) error
	Delete(cf ColumnFamily, key []byte) error
	DeleteRange(cf ColumnFamily, start, end []byte) error
}

// Iterate replays the batch records into h in order.
func (b *WriteBatch) Iterate(h Handler) error {
	return b.wb.Iterate(handlerAdapter{h})
}

// Validate checks that the batch decodes.
func (b *WriteBatch) Validate() error {
	return b.wb.Validate()
}

type handlerAdapter struct {
	h Handler
}

func (a handlerAdapter) Put(cf uint32, key, value []byte) error {
	return a.h.Put(ColumnFamily(cf), key, value)
}

func (a handlerAdapter) Delete(cf uint32, key []byte) error {
	return a.h.Delete(ColumnFamily(cf), key)
}

func (a handlerAdapter) DeleteRange(cf uint32, start, end []byte) error {
	return a.h.DeleteRange(ColumnFamily(cf), start, end)
}
