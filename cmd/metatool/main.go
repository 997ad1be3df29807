// Package main provides the metatool CLI for inspecting and repairing a
// tablet metadata store.
//
// Usage:
//
//	metatool -root=<dir> -operation=<op> [options]
//
// Operations:
//
//	get_meta      Print a tablet as JSON (-tablet_id, optional -schema_hash)
//	load_meta     Import a JSON document (-json_meta_path)
//	delete_meta   Delete a tablet (-tablet_id, optional -schema_hash)
//	show_meta     Print store statistics (-detail for per-tablet rows)
//	list_delvec   List the newest delete vector per segment (-tablet_id, -max_version)
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aalhour/tabletmeta"
	"github.com/aalhour/tabletmeta/internal/vfs"
)

var errUsage = errors.New("usage error")

type config struct {
	root         string
	backend      string
	operation    string
	tabletID     int64
	schemaHash   string
	jsonMetaPath string
	detail       bool
	maxVersion   int64
	verbose      bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("metatool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cfg config
	fs.StringVar(&cfg.root, "root", "", "Store directory (required)")
	fs.StringVar(&cfg.backend, "backend", "", "Backend: pebble, leveldb or bolt (default: recorded in OPTIONS)")
	fs.StringVar(&cfg.operation, "operation", "", "Operation: get_meta, load_meta, delete_meta, show_meta, list_delvec")
	fs.Int64Var(&cfg.tabletID, "tablet_id", 0, "Tablet id")
	fs.StringVar(&cfg.schemaHash, "schema_hash", "", "Schema hash (default: every schema hash of the tablet)")
	fs.StringVar(&cfg.jsonMetaPath, "json_meta_path", "", "JSON document for load_meta")
	fs.BoolVar(&cfg.detail, "detail", false, "Per-tablet statistics for show_meta")
	fs.Int64Var(&cfg.maxVersion, "max_version", math.MaxInt64, "Version ceiling for list_delvec")
	fs.BoolVar(&cfg.verbose, "v", false, "Verbose logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "metatool - tablet metadata store tool")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Usage: metatool -root=<dir> -operation=<op> [options]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := execute(&cfg, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		return 1
	}
	return 0
}

func execute(cfg *config, stdout, stderr io.Writer) error {
	if cfg.root == "" {
		return fmt.Errorf("%w: -root is required", errUsage)
	}
	log := newLogger(cfg.verbose, stderr)
	defer func() { _ = log.Sync() }()

	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	switch cfg.operation {
	case "get_meta":
		return getMeta(store, cfg, stdout)
	case "load_meta":
		if cfg.jsonMetaPath == "" {
			return fmt.Errorf("%w: load_meta needs -json_meta_path", errUsage)
		}
		if err := store.LoadJSONMetaFile(cfg.jsonMetaPath); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "loaded %s\n", cfg.jsonMetaPath)
		return nil
	case "delete_meta":
		return deleteMeta(store, cfg, stdout)
	case "show_meta":
		return showMeta(store, cfg.detail, stdout)
	case "list_delvec":
		return listDelVector(store, cfg, stdout)
	case "":
		return fmt.Errorf("%w: -operation is required", errUsage)
	default:
		return fmt.Errorf("%w: unknown operation %q", errUsage, cfg.operation)
	}
}

func newLogger(verbose bool, w io.Writer) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
}

// openStore opens the store with the options recorded in its OPTIONS file.
// An explicit -backend must match the recorded one.
func openStore(cfg *config, log *zap.Logger) (*tabletmeta.Store, error) {
	opts := tabletmeta.DefaultOptions()
	opts.CreateIfMissing = false
	opts.Logger = tabletmeta.NewZapLogger(log)
	if cfg.verbose {
		opts.KVLogger = log.Named("kv")
	}

	recorded, err := tabletmeta.ReadOptionsFile(vfs.Default(), cfg.root)
	switch {
	case err == nil:
		recorded.Apply(opts)
	case cfg.backend == "":
		return nil, fmt.Errorf("read %s options (pass -backend to open without one): %w", cfg.root, err)
	}
	if cfg.backend != "" {
		backend, err := tabletmeta.ParseBackend(cfg.backend)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		opts.Backend = backend
	}
	return tabletmeta.Open(cfg.root, opts)
}

func parseSchemaHash(s string) (int32, bool, error) {
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("%w: bad -schema_hash %q", errUsage, s)
	}
	return int32(v), true, nil
}

func getMeta(store *tabletmeta.Store, cfg *config, w io.Writer) error {
	hash, ok, err := parseSchemaHash(cfg.schemaHash)
	if err != nil {
		return err
	}
	var out string
	if ok {
		out, err = store.GetJSONMeta(cfg.tabletID, hash)
	} else {
		out, err = store.GetJSONMetaByID(cfg.tabletID)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)
	return nil
}

func deleteMeta(store *tabletmeta.Store, cfg *config, w io.Writer) error {
	hash, ok, err := parseSchemaHash(cfg.schemaHash)
	if err != nil {
		return err
	}
	if ok {
		err = store.Remove(cfg.tabletID, hash)
	} else {
		err = store.RemoveTablet(cfg.tabletID)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "deleted tablet %d\n", cfg.tabletID)
	return nil
}

func showMeta(store *tabletmeta.Store, detail bool, w io.Writer) error {
	stats, err := store.GetStats(detail)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "type\tcount\tbytes")
	for _, row := range []struct {
		name         string
		count, bytes uint64
	}{
		{"tablet", stats.TabletCount, stats.TabletBytes},
		{"primary key tablet", stats.UpdateTabletCount, stats.UpdateTabletBytes},
		{"legacy rowset", stats.LegacyRowsetCount, stats.LegacyRowsetBytes},
		{"meta log", stats.LogCount, stats.LogBytes},
		{"delete vector", stats.DelVectorCount, stats.DelVectorBytes},
		{"rowset", stats.RowsetCount, stats.RowsetBytes},
		{"pending rowset", stats.PendingCount, stats.PendingBytes},
		{"total", stats.TotalCount, stats.TotalBytes},
	} {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", row.name, row.count, row.bytes)
	}
	fmt.Fprintf(tw, "error\t%d\t\n", stats.ErrorCount)
	if err := tw.Flush(); err != nil {
		return err
	}
	if !detail {
		return nil
	}

	ids := make([]int64, 0, len(stats.Tablets))
	for id := range stats.Tablets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "tablet\ttable\tmeta bytes\tlogs\tdelvecs\trowsets\tpending")
	for _, id := range ids {
		ts := stats.Tablets[id]
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d/%d\t%d/%d\t%d/%d\t%d/%d\n",
			ts.TabletID, ts.TableID, ts.MetaBytes,
			ts.LogCount, ts.LogBytes, ts.DelVectorCount, ts.DelVectorBytes,
			ts.RowsetCount, ts.RowsetBytes, ts.PendingCount, ts.PendingBytes)
	}
	return tw.Flush()
}

func listDelVector(store *tabletmeta.Store, cfg *config, w io.Writer) error {
	versions, err := store.ListDelVector(cfg.tabletID, cfg.maxVersion)
	if err != nil {
		return err
	}
	for _, sv := range versions {
		fmt.Fprintf(w, "segment %d version %d\n", sv.SegmentID, sv.Version)
	}
	return nil
}
