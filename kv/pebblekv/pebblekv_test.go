package pebblekv

import (
	"testing"

	"github.com/cockroachdb/pebble/vfs"

	"github.com/aalhour/tabletmeta/internal/logging"
	"github.com/aalhour/tabletmeta/kv/kvtest"
)

func TestSuite(t *testing.T) {
	store, err := Open("db", Options{CreateIfMissing: true, FS: vfs.NewMem(), Logger: logging.Discard})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = store.Close() }()
	kvtest.RunTests(t, store)
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir, Options{CreateIfMissing: true, Sync: true, Logger: logging.Discard})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Put(3, []byte("tabletmeta_1_1"), []byte("header")); err != nil {
		t.Fatal(err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if store.Metrics() == "" {
		t.Error("Metrics() is empty")
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = Open(dir, Options{Logger: logging.Discard})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = store.Close() }()
	got, err := store.Get(3, []byte("tabletmeta_1_1"))
	if err != nil || string(got) != "header" {
		t.Errorf("Get after reopen = (%q, %v), want (header, nil)", got, err)
	}
}

func TestOpenMissingFails(t *testing.T) {
	if _, err := Open(t.TempDir()+"/absent", Options{Logger: logging.Discard}); err == nil {
		t.Error("Open without CreateIfMissing should fail on an empty dir")
	}
}
