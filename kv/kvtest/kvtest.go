// Package kvtest is the conformance suite every kv.Store backend runs.
package kvtest

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/aalhour/tabletmeta/kv"
)

// Column families used by the suite. Each test owns one so tests do not see
// each other's keys.
const (
	cfCRUD kv.ColumnFamily = 10 + iota
	cfIterate
	cfIsolationA
	cfIsolationB
	cfBatch
	cfRangeDelete
	cfParallel
	cfPrefix
)

// RunTests runs the common kv.Store tests against store.
func RunTests(t *testing.T, store kv.Store) {
	t.Run("CRUD", func(t *testing.T) { testCRUD(t, store) })
	t.Run("Iterate", func(t *testing.T) { testIterate(t, store) })
	t.Run("ColumnFamilyIsolation", func(t *testing.T) { testIsolation(t, store) })
	t.Run("Batch", func(t *testing.T) { testBatch(t, store) })
	t.Run("RangeDelete", func(t *testing.T) { testRangeDelete(t, store) })
	t.Run("Prefix", func(t *testing.T) { testPrefix(t, store) })
	t.Run("Parallel", func(t *testing.T) { testParallel(t, store) })
}

// Pair is a key-value pair read back from a store.
type Pair struct {
	Key, Value string
}

// Collect returns every pair of cf in [lower, upper).
func Collect(t testing.TB, store kv.Store, cf kv.ColumnFamily, lower, upper []byte) []Pair {
	t.Helper()
	var pairs []Pair
	err := kv.IterateRange(store, cf, lower, upper, func(key, value []byte) bool {
		pairs = append(pairs, Pair{string(key), string(value)})
		return true
	})
	if err != nil {
		t.Fatalf("iterate [%q, %q): %v", lower, upper, err)
	}
	return pairs
}

func mustPut(t *testing.T, store kv.Store, cf kv.ColumnFamily, key, value string) {
	t.Helper()
	if err := store.Put(cf, []byte(key), []byte(value)); err != nil {
		t.Fatalf("Put(%q): %v", key, err)
	}
}

func testCRUD(t *testing.T, store kv.Store) {
	key := []byte("tabletmeta_1_2")

	if _, err := store.Get(cfCRUD, key); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want %v", err, kv.ErrNotFound)
	}

	mustPut(t, store, cfCRUD, string(key), "v1")
	got, err := store.Get(cfCRUD, key)
	if err != nil || string(got) != "v1" {
		t.Fatalf("Get = (%q, %v), want (v1, nil)", got, err)
	}

	// The returned value must be a copy.
	got[0] = 'X'
	again, _ := store.Get(cfCRUD, key)
	if string(again) != "v1" {
		t.Errorf("store value changed through Get result: %q", again)
	}

	mustPut(t, store, cfCRUD, string(key), "v2")
	if got, _ := store.Get(cfCRUD, key); string(got) != "v2" {
		t.Errorf("Get after overwrite = %q, want v2", got)
	}

	mustPut(t, store, cfCRUD, "empty", "")
	if got, err := store.Get(cfCRUD, []byte("empty")); err != nil || len(got) != 0 {
		t.Errorf("Get(empty value) = (%q, %v), want (\"\", nil)", got, err)
	}

	if err := store.Delete(cfCRUD, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(cfCRUD, key); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Get after Delete error = %v, want %v", err, kv.ErrNotFound)
	}
	if err := store.Delete(cfCRUD, []byte("never-written")); err != nil {
		t.Errorf("Delete(missing) = %v, want nil", err)
	}
}

func testIterate(t *testing.T, store kv.Store) {
	for _, k := range []string{"d", "a", "c", "b", "b\x00", "e"} {
		mustPut(t, store, cfIterate, k, "v"+k)
	}

	tests := []struct {
		name         string
		lower, upper []byte
		want         []string
	}{
		{"all", nil, nil, []string{"a", "b", "b\x00", "c", "d", "e"}},
		{"bounded", []byte("b"), []byte("d"), []string{"b", "b\x00", "c"}},
		{"lower only", []byte("c"), nil, []string{"c", "d", "e"}},
		{"upper only", nil, []byte("b\x00"), []string{"a", "b"}},
		{"empty range", []byte("c"), []byte("c"), nil},
		{"between keys", []byte("bb"), []byte("bz"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var keys []string
			for _, p := range Collect(t, store, cfIterate, tt.lower, tt.upper) {
				if p.Value != "v"+p.Key {
					t.Errorf("value of %q = %q", p.Key, p.Value)
				}
				keys = append(keys, p.Key)
			}
			if diff := cmp.Diff(tt.want, keys); diff != "" {
				t.Errorf("keys mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("early stop", func(t *testing.T) {
		var seen []string
		err := kv.IterateRange(store, cfIterate, nil, nil, func(key, _ []byte) bool {
			seen = append(seen, string(key))
			return len(seen) < 2
		})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"a", "b"}, seen); diff != "" {
			t.Errorf("seen mismatch (-want +got):\n%s", diff)
		}
	})
}

func testIsolation(t *testing.T, store kv.Store) {
	mustPut(t, store, cfIsolationA, "k", "a")
	mustPut(t, store, cfIsolationB, "k", "b")

	if got, _ := store.Get(cfIsolationA, []byte("k")); string(got) != "a" {
		t.Errorf("cf A value = %q, want a", got)
	}
	if got, _ := store.Get(cfIsolationB, []byte("k")); string(got) != "b" {
		t.Errorf("cf B value = %q, want b", got)
	}

	if diff := cmp.Diff([]Pair{{"k", "a"}}, Collect(t, store, cfIsolationA, nil, nil)); diff != "" {
		t.Errorf("cf A scan (-want +got):\n%s", diff)
	}

	b := kv.NewWriteBatch()
	b.DeleteRange(cfIsolationA, nil, []byte("z"))
	if err := store.Write(b); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(cfIsolationA, []byte("k")); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("cf A key survived range delete: %v", err)
	}
	if got, _ := store.Get(cfIsolationB, []byte("k")); string(got) != "b" {
		t.Errorf("range delete in cf A touched cf B: %q", got)
	}
}

func testBatch(t *testing.T, store kv.Store) {
	mustPut(t, store, cfBatch, "pending", "p")

	b := kv.NewWriteBatch()
	b.Put(cfBatch, []byte("log"), []byte("l"))
	b.Put(cfBatch, []byte("rowset"), []byte("r"))
	b.Delete(cfBatch, []byte("pending"))
	b.Put(cfBatch, []byte("rowset"), []byte("r2"))
	if b.Count() != 4 {
		t.Errorf("Count() = %d, want 4", b.Count())
	}
	if err := store.Write(b); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := []Pair{{"log", "l"}, {"rowset", "r2"}}
	if diff := cmp.Diff(want, Collect(t, store, cfBatch, nil, nil)); diff != "" {
		t.Errorf("after batch (-want +got):\n%s", diff)
	}

	if err := store.Write(kv.NewWriteBatch()); err != nil {
		t.Errorf("Write(empty batch) = %v", err)
	}
}

func testRangeDelete(t *testing.T, store kv.Store) {
	for i := 0; i < 10; i++ {
		mustPut(t, store, cfRangeDelete, fmt.Sprintf("k%d", i), "old")
	}

	// Records apply in order: the put after the range deletion survives,
	// the put before it does not.
	b := kv.NewWriteBatch()
	b.Put(cfRangeDelete, []byte("k3x"), []byte("dropped"))
	b.DeleteRange(cfRangeDelete, []byte("k2"), []byte("k7"))
	b.Put(cfRangeDelete, []byte("k4"), []byte("new"))
	b.DeleteRange(cfRangeDelete, []byte("k9"), []byte("k9"))
	if err := store.Write(b); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := []Pair{
		{"k0", "old"}, {"k1", "old"},
		{"k4", "new"},
		{"k7", "old"}, {"k8", "old"}, {"k9", "old"},
	}
	if diff := cmp.Diff(want, Collect(t, store, cfRangeDelete, nil, nil)); diff != "" {
		t.Errorf("after range delete (-want +got):\n%s", diff)
	}
}

func testPrefix(t *testing.T, store kv.Store) {
	for _, k := range []string{"tlg_\x01", "tlg_\x02", "tlh", "tlf", "tlg_\xff\xff"} {
		mustPut(t, store, cfPrefix, k, "")
	}
	var keys []string
	err := kv.Iterate(store, cfPrefix, []byte("tlg_"), func(key, _ []byte) bool {
		keys = append(keys, string(key))
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"tlg_\x01", "tlg_\x02", "tlg_\xff\xff"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("prefix scan (-want +got):\n%s", diff)
	}
}

func testParallel(t *testing.T, store kv.Store) {
	const writers, perWriter = 4, 50

	var g errgroup.Group
	for w := 0; w < writers; w++ {
		g.Go(func() error {
			for i := 0; i < perWriter; i++ {
				b := kv.NewWriteBatch()
				key := []byte(fmt.Sprintf("w%d-%03d", w, i))
				b.Put(cfParallel, key, key)
				if err := store.Write(b); err != nil {
					return err
				}
				got, err := store.Get(cfParallel, key)
				if err != nil {
					return err
				}
				if !bytes.Equal(got, key) {
					return fmt.Errorf("Get(%q) = %q", key, got)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if n := len(Collect(t, store, cfParallel, nil, nil)); n != writers*perWriter {
		t.Errorf("found %d keys, want %d", n, writers*perWriter)
	}
}
