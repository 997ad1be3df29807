package batch

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aalhour/tabletmeta/internal/encoding"
)

type record struct {
	op    string
	cf    uint32
	key   string
	value string
}

type recorder struct {
	records []record
}

func (r *recorder) Put(cf uint32, key, value []byte) error {
	r.records = append(r.records, record{"put", cf, string(key), string(value)})
	return nil
}

func (r *recorder) Delete(cf uint32, key []byte) error {
	r.records = append(r.records, record{"delete", cf, string(key), ""})
	return nil
}

func (r *recorder) DeleteRange(cf uint32, start, end []byte) error {
	r.records = append(r.records, record{"delete_range", cf, string(start), string(end)})
	return nil
}

func TestEmptyBatch(t *testing.T) {
	wb := New()
	if wb.Count() != 0 {
		t.Errorf("Count() = %d, want 0", wb.Count())
	}
	if wb.Size() != HeaderSize {
		t.Errorf("Size() = %d, want %d", wb.Size(), HeaderSize)
	}
	var r recorder
	if err := wb.Iterate(&r); err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if len(r.records) != 0 {
		t.Errorf("got %d records, want 0", len(r.records))
	}
}

func TestIteratePreservesOrder(t *testing.T) {
	wb := New()
	wb.DeleteRangeCF(2, []byte("dlv_a"), []byte("dlv_z"))
	wb.PutCF(2, []byte("dlv_m"), []byte("v1"))
	wb.DeleteCF(0, []byte("tpr_1"))
	wb.PutCF(7, []byte(""), []byte(""))

	if wb.Count() != 4 {
		t.Fatalf("Count() = %d, want 4", wb.Count())
	}

	var r recorder
	if err := wb.Iterate(&r); err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	want := []record{
		{"delete_range", 2, "dlv_a", "dlv_z"},
		{"put", 2, "dlv_m", "v1"},
		{"delete", 0, "tpr_1", ""},
		{"put", 7, "", ""},
	}
	if len(r.records) != len(want) {
		t.Fatalf("got %d records, want %d", len(r.records), len(want))
	}
	for i := range want {
		if r.records[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, r.records[i], want[i])
		}
	}
}

func TestGoldenRecordLayout(t *testing.T) {
	wb := New()
	wb.PutCF(1, []byte("k"), []byte("vv"))

	want := []byte{
		0x01, 0x00, 0x00, 0x00, // count
		TypeValue,
		0x01,      // cf
		0x01, 'k', // key
		0x02, 'v', 'v', // value
	}
	if !bytes.Equal(wb.Data(), want) {
		t.Errorf("Data() = %x, want %x", wb.Data(), want)
	}
}

func TestClearAndAppend(t *testing.T) {
	a := New()
	a.PutCF(0, []byte("a"), []byte("1"))
	b := New()
	b.DeleteCF(0, []byte("b"))
	b.DeleteRangeCF(0, []byte("c"), []byte("d"))

	a.Append(b)
	if a.Count() != 3 {
		t.Errorf("Count() after Append = %d, want 3", a.Count())
	}
	if !a.HasDeleteRange() {
		t.Error("HasDeleteRange() = false after appending a range deletion")
	}

	a.Clear()
	if a.Count() != 0 || a.Size() != HeaderSize {
		t.Errorf("after Clear: Count=%d Size=%d", a.Count(), a.Size())
	}
	if a.HasDeleteRange() {
		t.Error("HasDeleteRange() = true on cleared batch")
	}
}

func TestHandlerErrorStopsIteration(t *testing.T) {
	wb := New()
	wb.PutCF(0, []byte("a"), nil)
	wb.PutCF(0, []byte("b"), nil)

	boom := errors.New("boom")
	calls := 0
	err := wb.Iterate(handlerFuncs{put: func(uint32, []byte, []byte) error {
		calls++
		return boom
	}})
	if !errors.Is(err, boom) {
		t.Errorf("Iterate error = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestCorruption(t *testing.T) {
	good := New()
	good.PutCF(3, []byte("key"), []byte("value"))
	data := good.Data()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{0x01}, ErrTooSmall},
		{"unknown tag", append(encoding.AppendFixed64(nil, 1)[:4], 0x42, 0x00, 0x00), ErrCorrupted},
		{"truncated value", data[:len(data)-2], ErrCorrupted},
		{"missing key", append(append([]byte(nil), data[:HeaderSize]...), TypeDeletion, 0x00), ErrCorrupted},
		{"count mismatch", append([]byte{0x05, 0, 0, 0}, data[HeaderSize:]...), ErrCorrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			wb, err := NewFromData(tt.data)
			if err == nil {
				err = wb.Validate()
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func FuzzIterate(f *testing.F) {
	seed := New()
	seed.PutCF(0, []byte("trs_"), []byte("meta"))
	seed.DeleteRangeCF(1, []byte("a"), []byte("b"))
	f.Add(seed.Data())
	f.Add([]byte{0, 0, 0, 0})
	f.Add([]byte{1, 0, 0, 0, 0x0F, 0x80})

	f.Fuzz(func(t *testing.T, data []byte) {
		wb, err := NewFromData(data)
		if err != nil {
			return
		}
		var r recorder
		if err := wb.Iterate(&r); err != nil {
			return
		}
		// A batch that decodes must re-encode to the same records.
		re := New()
		for _, rec := range r.records {
			switch rec.op {
			case "put":
				re.PutCF(rec.cf, []byte(rec.key), []byte(rec.value))
			case "delete":
				re.DeleteCF(rec.cf, []byte(rec.key))
			case "delete_range":
				re.DeleteRangeCF(rec.cf, []byte(rec.key), []byte(rec.value))
			default:
				t.Fatalf("unexpected op %q", rec.op)
			}
		}
		// Varints may be non-canonical in the input, so compare decoded records.
		var again recorder
		if err := re.Iterate(&again); err != nil {
			t.Fatalf("re-encoded batch does not decode: %v", err)
		}
		if len(again.records) != len(r.records) {
			t.Fatalf("re-encoded %d records, want %d", len(again.records), len(r.records))
		}
		for i := range r.records {
			if again.records[i] != r.records[i] {
				t.Errorf("record %d = %+v, want %+v", i, again.records[i], r.records[i])
			}
		}
	})
}
