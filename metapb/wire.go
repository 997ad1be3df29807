package metapb

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrWireType is returned when a known field arrives with the wrong wire type.
var ErrWireType = errors.New("metapb: unexpected wire type")

// encoder appends protobuf fields. Zero scalars are omitted.
type encoder struct {
	b []byte
}

func (e *encoder) uvarint(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	e.always(num, v)
}

// always encodes v even when it is zero, for fields with presence.
func (e *encoder) always(num protowire.Number, v uint64) {
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, v)
}

func (e *encoder) int64(num protowire.Number, v int64) { e.uvarint(num, uint64(v)) }

// int32 sign-extends like protobuf int32 fields.
func (e *encoder) int32(num protowire.Number, v int32) { e.uvarint(num, uint64(int64(v))) }

func (e *encoder) bool(num protowire.Number, v bool) {
	if v {
		e.uvarint(num, protowire.EncodeBool(v))
	}
}

func (e *encoder) string(num protowire.Number, v string) {
	if v == "" {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, v)
}

// message encodes an embedded message, including an empty one.
func (e *encoder) message(num protowire.Number, m []byte) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, m)
}

// packedUint32s encodes a packed repeated uint32 field.
func (e *encoder) packedUint32s(num protowire.Number, vs []uint32) {
	if len(vs) == 0 {
		return
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, packed)
}

// reader walks the fields of one message. Errors are sticky: after the
// first failure next returns false and err holds the cause.
type reader struct {
	b   []byte
	num protowire.Number
	typ protowire.Type
	err error
}

func (r *reader) next() bool {
	if r.err != nil || len(r.b) == 0 {
		return false
	}
	num, typ, n := protowire.ConsumeTag(r.b)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return false
	}
	r.b = r.b[n:]
	r.num, r.typ = num, typ
	return true
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("metapb: field %d: %w", r.num, err)
	}
	r.b = nil
}

func (r *reader) uvarint() uint64 {
	if r.typ != protowire.VarintType {
		r.fail(ErrWireType)
		return 0
	}
	v, n := protowire.ConsumeVarint(r.b)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return 0
	}
	r.b = r.b[n:]
	return v
}

func (r *reader) int64() int64   { return int64(r.uvarint()) }
func (r *reader) int32() int32   { return int32(r.uvarint()) }
func (r *reader) uint32() uint32 { return uint32(r.uvarint()) }
func (r *reader) bool() bool     { return r.uvarint() != 0 }

func (r *reader) bytes() []byte {
	if r.typ != protowire.BytesType {
		r.fail(ErrWireType)
		return nil
	}
	v, n := protowire.ConsumeBytes(r.b)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return nil
	}
	r.b = r.b[n:]
	return v
}

func (r *reader) string() string { return string(r.bytes()) }

// uint32s reads one occurrence of a repeated uint32 field, packed or not.
func (r *reader) uint32s(dst []uint32) []uint32 {
	if r.typ == protowire.VarintType {
		return append(dst, r.uint32())
	}
	packed := r.bytes()
	for len(packed) > 0 {
		v, n := protowire.ConsumeVarint(packed)
		if n < 0 {
			r.fail(protowire.ParseError(n))
			return dst
		}
		dst = append(dst, uint32(v))
		packed = packed[n:]
	}
	return dst
}

// submessage decodes an embedded message with unmarshal.
func (r *reader) submessage(unmarshal func([]byte) error) {
	b := r.bytes()
	if r.err != nil {
		return
	}
	if err := unmarshal(b); err != nil {
		r.fail(err)
	}
}

// skip discards an unknown field.
func (r *reader) skip() {
	n := protowire.ConsumeFieldValue(r.num, r.typ, r.b)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return
	}
	r.b = r.b[n:]
}
