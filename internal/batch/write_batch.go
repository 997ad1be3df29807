// Package batch implements the binary record format used to buffer the
// mutations of one atomic key-value write.
//
// Format:
//
//	Header (4 bytes):
//	  - count of records (little-endian uint32)
//	Records (repeated):
//	  - 1 byte: tag (record type)
//	  - varint32 column family id
//	  - length-prefixed key (start key for range deletions)
//	  - for Put and DeleteRange: length-prefixed value (end key for range deletions)
//
// Records are replayed in the order they were appended, so a DeleteRange
// followed by a Put of a key inside the range leaves the key present.
package batch

import (
	"encoding/binary"
	"errors"

	"github.com/aalhour/tabletmeta/internal/encoding"
)

// HeaderSize is the size in bytes of the batch header.
const HeaderSize = 4

// Record types.
const (
	TypeDeletion      byte = 0x00
	TypeValue         byte = 0x01
	TypeRangeDeletion byte = 0x0F
)

var (
	// ErrCorrupted indicates a malformed batch.
	ErrCorrupted = errors.New("batch: corrupted write batch")

	// ErrTooSmall indicates the batch is smaller than the header.
	ErrTooSmall = errors.New("batch: too small")
)

// WriteBatch is a collection of writes to be applied atomically.
type WriteBatch struct {
	data []byte
}

// New creates a new empty WriteBatch.
func New() *WriteBatch {
	return &WriteBatch{data: make([]byte, HeaderSize)}
}

// NewFromData creates a WriteBatch over existing data without copying it.
func NewFromData(data []byte) (*WriteBatch, error) {
	if len(data) < HeaderSize {
		return nil, ErrTooSmall
	}
	return &WriteBatch{data: data}, nil
}

// Clear resets the batch to empty state.
func (wb *WriteBatch) Clear() {
	wb.data = wb.data[:HeaderSize]
	binary.LittleEndian.PutUint32(wb.data, 0)
}

// Data returns the raw batch data.
func (wb *WriteBatch) Data() []byte {
	return wb.data
}

// Size returns the size of the batch data in bytes.
func (wb *WriteBatch) Size() int {
	return len(wb.data)
}

// Count returns the number of records in the batch.
func (wb *WriteBatch) Count() uint32 {
	return binary.LittleEndian.Uint32(wb.data[:HeaderSize])
}

func (wb *WriteBatch) setCount(count uint32) {
	binary.LittleEndian.PutUint32(wb.data[:HeaderSize], count)
}

// PutCF adds a Put record to the batch.
func (wb *WriteBatch) PutCF(cfID uint32, key, value []byte) {
	wb.appendRecord(TypeValue, cfID, key, value, true)
}

// DeleteCF adds a Delete record to the batch.
func (wb *WriteBatch) DeleteCF(cfID uint32, key []byte) {
	wb.appendRecord(TypeDeletion, cfID, key, nil, false)
}

// DeleteRangeCF adds a record deleting every key in [startKey, endKey).
func (wb *WriteBatch) DeleteRangeCF(cfID uint32, startKey, endKey []byte) {
	wb.appendRecord(TypeRangeDeletion, cfID, startKey, endKey, true)
}

// Append appends the records of src to wb.
func (wb *WriteBatch) Append(src *WriteBatch) {
	if src.Count() == 0 {
		return
	}
	wb.data = append(wb.data, src.data[HeaderSize:]...)
	wb.setCount(wb.Count() + src.Count())
}

// HasDeleteRange reports whether the batch contains a DeleteRange record.
func (wb *WriteBatch) HasDeleteRange() bool {
	found := false
	_ = wb.Iterate(handlerFuncs{
		deleteRange: func(uint32, []byte, []byte) error {
			found = true
			return errStop
		},
	})
	return found
}

func (wb *WriteBatch) appendRecord(tag byte, cfID uint32, key, value []byte, hasValue bool) {
	wb.data = append(wb.data, tag)
	wb.data = encoding.AppendVarint32(wb.data, cfID)
	wb.data = encoding.AppendLengthPrefixedSlice(wb.data, key)
	if hasValue {
		wb.data = encoding.AppendLengthPrefixedSlice(wb.data, value)
	}
	wb.setCount(wb.Count() + 1)
}

// Handler is called for each record in the batch during iteration.
// Slices passed to the handler alias the batch buffer.
type Handler interface {
	Put(cfID uint32, key, value []byte) error
	Delete(cfID uint32, key []byte) error
	DeleteRange(cfID uint32, startKey, endKey []byte) error
}

// Iterate calls handler for each record in the batch, in order. The first
// handler error stops iteration and is returned. Iterate also verifies that
// the number of decoded records matches the header count.
func (wb *WriteBatch) Iterate(handler Handler) error {
	if len(wb.data) < HeaderSize {
		return ErrTooSmall
	}

	data := wb.data[HeaderSize:]
	var found uint32

	for len(data) > 0 {
		tag := data[0]
		data = data[1:]

		cfID, rest, err := decodeVarint32(data)
		if err != nil {
			return err
		}
		data = rest

		var key, value []byte
		key, data, err = decodeLengthPrefixed(data)
		if err != nil {
			return err
		}

		switch tag {
		case TypeValue:
			value, data, err = decodeLengthPrefixed(data)
			if err != nil {
				return err
			}
			err = handler.Put(cfID, key, value)

		case TypeDeletion:
			err = handler.Delete(cfID, key)

		case TypeRangeDeletion:
			value, data, err = decodeLengthPrefixed(data)
			if err != nil {
				return err
			}
			err = handler.DeleteRange(cfID, key, value)

		default:
			return ErrCorrupted
		}
		if errors.Is(err, errStop) {
			return nil
		}
		if err != nil {
			return err
		}
		found++
	}

	if found != wb.Count() {
		return ErrCorrupted
	}
	return nil
}

// Validate decodes every record without side effects.
func (wb *WriteBatch) Validate() error {
	return wb.Iterate(handlerFuncs{})
}

var errStop = errors.New("batch: stop iteration")

// handlerFuncs is a Handler assembled from optional functions.
type handlerFuncs struct {
	put         func(cfID uint32, key, value []byte) error
	del         func(cfID uint32, key []byte) error
	deleteRange func(cfID uint32, startKey, endKey []byte) error
}

func (h handlerFuncs) Put(cfID uint32, key, value []byte) error {
	if h.put == nil {
		return nil
	}
	return h.put(cfID, key, value)
}

func (h handlerFuncs) Delete(cfID uint32, key []byte) error {
	if h.del == nil {
		return nil
	}
	return h.del(cfID, key)
}

func (h handlerFuncs) DeleteRange(cfID uint32, startKey, endKey []byte) error {
	if h.deleteRange == nil {
		return nil
	}
	return h.deleteRange(cfID, startKey, endKey)
}

func decodeVarint32(data []byte) (uint32, []byte, error) {
	v, n, err := encoding.DecodeVarint32(data)
	if err != nil {
		return 0, nil, ErrCorrupted
	}
	return v, data[n:], nil
}

func decodeLengthPrefixed(data []byte) ([]byte, []byte, error) {
	if len(data) == 0 {
		return nil, nil, ErrCorrupted
	}
	length, n, err := encoding.DecodeVarint32(data)
	if err != nil {
		return nil, nil, ErrCorrupted
	}
	data = data[n:]
	if uint64(len(data)) < uint64(length) {
		return nil, nil, ErrCorrupted
	}
	return data[:length], data[length:], nil
}
