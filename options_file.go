package tabletmeta

// options_file.go implements OPTIONS file persistence.
//
// Open records the options a store was created with in its directory so
// that tools can reopen it with the same backend and column family. The
// file is plain text with sections and key=value pairs:
//
//	[Version]
//	  tabletmeta_version=1.0.0
//	  options_file_version=1
//
//	[StoreOptions]
//	  backend=pebble
//	  column_family=0
//	  ...

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aalhour/tabletmeta/internal/checksum"
	"github.com/aalhour/tabletmeta/internal/compression"
	"github.com/aalhour/tabletmeta/internal/vfs"
	"github.com/aalhour/tabletmeta/kv"
)

const (
	// Version is the version recorded in OPTIONS files.
	Version = "1.0.0"

	// OptionsFileVersion is the current options file format version.
	OptionsFileVersion = 1

	// OptionsFileName is the name of the options file in a store directory.
	OptionsFileName = "OPTIONS"

	// LockFileName is the name of the lock file in a store directory.
	LockFileName = "LOCK"
)

// WriteOptionsFile atomically writes opts to dir/OPTIONS.
func WriteOptionsFile(fs vfs.FS, dir string, opts *Options) error {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	fmt.Fprintln(w, "[Version]")
	fmt.Fprintf(w, "  tabletmeta_version=%s\n", Version)
	fmt.Fprintf(w, "  options_file_version=%d\n", OptionsFileVersion)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[StoreOptions]")
	fmt.Fprintf(w, "  backend=%s\n", opts.Backend)
	fmt.Fprintf(w, "  column_family=%d\n", opts.ColumnFamily)
	fmt.Fprintf(w, "  delvec_compression=%s\n", opts.DelVectorCompression)
	fmt.Fprintf(w, "  delvec_checksum=%s\n", opts.DelVectorChecksum)
	fmt.Fprintf(w, "  sync=%t\n", opts.Sync)

	if err := w.Flush(); err != nil {
		return err
	}
	return vfs.WriteFileAtomic(fs, filepath.Join(dir, OptionsFileName), buf.Bytes())
}

// ParsedOptions represents options parsed from an OPTIONS file.
type ParsedOptions struct {
	TabletMetaVersion    string
	OptionsFileVersion   int
	Backend              Backend
	ColumnFamily         kv.ColumnFamily
	DelVectorCompression CompressionType
	DelVectorChecksum    ChecksumType
	Sync                 bool
}

// Apply copies the recorded settings onto opts.
func (p *ParsedOptions) Apply(opts *Options) {
	opts.Backend = p.Backend
	opts.ColumnFamily = p.ColumnFamily
	opts.DelVectorCompression = p.DelVectorCompression
	opts.DelVectorChecksum = p.DelVectorChecksum
	opts.Sync = p.Sync
}

// ReadOptionsFile reads and parses dir/OPTIONS.
func ReadOptionsFile(fs vfs.FS, dir string) (*ParsedOptions, error) {
	f, err := fs.Open(filepath.Join(dir, OptionsFileName))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseOptionsFile(f)
}

// ParseOptionsFile parses options from a reader. Unknown sections and keys
// are ignored; a malformed value of a known key is an error.
func ParseOptionsFile(r io.Reader) (*ParsedOptions, error) {
	defaults := DefaultOptions()
	opts := &ParsedOptions{
		Backend:              defaults.Backend,
		ColumnFamily:         defaults.ColumnFamily,
		DelVectorCompression: defaults.DelVectorCompression,
		DelVectorChecksum:    defaults.DelVectorChecksum,
		Sync:                 defaults.Sync,
	}

	scanner := bufio.NewScanner(r)
	section := ""
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line[1 : len(line)-1]
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		var err error
		switch section {
		case "Version":
			switch key {
			case "tabletmeta_version":
				opts.TabletMetaVersion = value
			case "options_file_version":
				opts.OptionsFileVersion, err = strconv.Atoi(value)
			}
		case "StoreOptions":
			switch key {
			case "backend":
				opts.Backend, err = ParseBackend(value)
			case "column_family":
				var cf uint64
				cf, err = strconv.ParseUint(value, 10, 32)
				opts.ColumnFamily = kv.ColumnFamily(cf)
			case "delvec_compression":
				opts.DelVectorCompression, err = compression.ParseType(value)
			case "delvec_checksum":
				opts.DelVectorChecksum, err = checksum.ParseType(value)
			case "sync":
				opts.Sync, err = strconv.ParseBool(value)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("options line %d: %s: %w", lineNo, key, err)
		}
	}
	return opts, scanner.Err()
}
