package tabletmeta

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/aalhour/tabletmeta/delvec"
	"github.com/aalhour/tabletmeta/internal/keys"
	"github.com/aalhour/tabletmeta/internal/logging"
	"github.com/aalhour/tabletmeta/internal/vfs"
	"github.com/aalhour/tabletmeta/metapb"
)

// PrimaryMetaDocument is the JSON export of a primary key tablet: its header
// plus everything stored under its per-tablet prefixes.
type PrimaryMetaDocument struct {
	TabletMeta     *metapb.TabletMeta   `json:"tablet_meta"`
	AppliedRsMetas []*metapb.RowsetMeta `json:"applied_rs_metas,omitempty"`
	PendingRsMetas []PendingRowsetEntry `json:"pending_rs_metas,omitempty"`
	TabletMetaLogs []MetaLogEntry       `json:"tablet_meta_logs,omitempty"`
	DelVectors     []DelVectorEntry     `json:"del_vectors,omitempty"`
}

// PendingRowsetEntry is a pending rowset and the version it waits for.
type PendingRowsetEntry struct {
	Version int64              `json:"version"`
	RsMeta  *metapb.RowsetMeta `json:"rs_meta"`
}

// MetaLogEntry is one meta log entry and its id.
type MetaLogEntry struct {
	LogID         uint64                `json:"logid"`
	TabletMetaLog *metapb.TabletMetaLog `json:"tablet_meta_log"`
}

// DelVectorEntry is a stored delete vector. Base64Val is the standard base64
// encoding of the stored value.
type DelVectorEntry struct {
	Version   int64  `json:"version"`
	SegmentID uint32 `json:"segment_id"`
	Base64Val string `json:"base64_val"`
}

// GetJSONMeta exports a tablet as indented JSON. Primary key tablets export
// a PrimaryMetaDocument, other tablets the bare header.
func (s *Store) GetJSONMeta(tabletID int64, schemaHash int32) (string, error) {
	meta, err := s.GetTabletMeta(tabletID, schemaHash)
	if err != nil {
		return "", err
	}
	return s.exportJSON(tabletID, meta)
}

// GetJSONMetaByID exports the first header stored for tabletID, whatever its
// schema hash.
func (s *Store) GetJSONMetaByID(tabletID int64) (string, error) {
	var (
		found      bool
		schemaHash int32
		value      []byte
		keyErr     error
	)
	err := s.scan(keys.HeaderTabletPrefix(tabletID), func(key, v []byte) bool {
		id, hash, ok := keys.DecodeHeader(key)
		if !ok || id != tabletID {
			keyErr = s.corruption(logging.NSJSON, "invalid tablet meta key %q", key)
			return false
		}
		found, schemaHash, value = true, hash, bytes.Clone(v)
		return false
	})
	switch {
	case err != nil:
		return "", err
	case keyErr != nil:
		return "", keyErr
	case !found:
		return "", ErrNotFound.New("tablet meta of tablet %d", tabletID)
	}
	meta, err := s.decodeHeader(tabletID, schemaHash, value)
	if err != nil {
		return "", err
	}
	return s.exportJSON(tabletID, meta)
}

func (s *Store) exportJSON(tabletID int64, meta *metapb.TabletMeta) (string, error) {
	var doc any = meta
	if meta.IsPrimaryKeys() {
		primary, err := s.primaryMetaDocument(tabletID, meta)
		if err != nil {
			return "", err
		}
		doc = primary
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", ErrInternal.Wrap(err)
	}
	s.recordTick(TickerJSONExports, 1)
	return string(out), nil
}

func (s *Store) primaryMetaDocument(tabletID int64, meta *metapb.TabletMeta) (*PrimaryMetaDocument, error) {
	doc := &PrimaryMetaDocument{TabletMeta: meta}
	if err := s.RowsetIterate(tabletID, func(rowset *metapb.RowsetMeta) bool {
		doc.AppliedRsMetas = append(doc.AppliedRsMetas, rowset)
		return true
	}); err != nil {
		return nil, err
	}
	if err := s.PendingRowsetIterate(tabletID, func(version int64, rowset *metapb.RowsetMeta) bool {
		doc.PendingRsMetas = append(doc.PendingRsMetas, PendingRowsetEntry{Version: version, RsMeta: rowset})
		return true
	}); err != nil {
		return nil, err
	}
	if err := s.TraverseMetaLogs(tabletID, func(logID uint64, log *metapb.TabletMetaLog) bool {
		doc.TabletMetaLogs = append(doc.TabletMetaLogs, MetaLogEntry{LogID: logID, TabletMetaLog: log})
		return true
	}); err != nil {
		return nil, err
	}

	var keyErr error
	err := s.scan(keys.DelVectorTabletPrefix(tabletID), func(key, value []byte) bool {
		_, segmentID, version, ok := keys.DecodeDelVector(key)
		if !ok {
			keyErr = s.corruption(logging.NSJSON, "corrupted key of delete vector %q", key)
			return false
		}
		doc.DelVectors = append(doc.DelVectors, DelVectorEntry{
			Version:   version,
			SegmentID: segmentID,
			Base64Val: base64.StdEncoding.EncodeToString(value),
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	if keyErr != nil {
		return nil, keyErr
	}
	return doc, nil
}

// LoadJSONMetaFile imports the JSON document stored at path.
func (s *Store) LoadJSONMetaFile(path string) error {
	data, err := vfs.ReadFile(s.fs, path)
	if err != nil {
		return ErrIO.New("read %s: %v", path, err)
	}
	return s.LoadJSONMeta(data)
}

// LoadJSONMeta imports a JSON document produced by GetJSONMeta.
//
// A document without a "tablet_meta" member is a bare header and is saved
// under its own tablet id and schema hash. A PrimaryMetaDocument replaces the
// tablet: the header is written, the meta logs, delete vectors, rowsets and
// pending rowsets are cleared and the document's arrays are written back, all
// in one batch.
func (s *Store) LoadJSONMeta(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return ErrInternal.New("invalid json string: %v", err)
	}
	raw, primary := members["tablet_meta"]
	if !primary {
		return s.loadBareMeta(data)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrInternal.New("invalid json string: tablet_meta is not an object")
	}

	var doc PrimaryMetaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return ErrInternal.New("invalid json string: %v", err)
	}
	meta := doc.TabletMeta
	if !meta.IsPrimaryKeys() && meta.HasUpdates() {
		return ErrInvalidArgument.New("non primary key with updates")
	}
	tabletID := meta.TabletID

	b := s.NewBatch()
	b.PutTabletMeta(meta)
	b.ClearTablet(tabletID)
	for _, rowset := range doc.AppliedRsMetas {
		if rowset == nil {
			return ErrInvalidArgument.New("null applied rowset in tablet %d", tabletID)
		}
		b.PutRowsetMeta(tabletID, rowset)
	}
	for _, pending := range doc.PendingRsMetas {
		if pending.RsMeta == nil {
			return ErrInvalidArgument.New("null pending rowset at version %d in tablet %d", pending.Version, tabletID)
		}
		b.PutPendingRowset(tabletID, pending.Version, pending.RsMeta)
	}
	for _, entry := range doc.TabletMetaLogs {
		if entry.TabletMetaLog == nil {
			return ErrInvalidArgument.New("null meta log %d in tablet %d", entry.LogID, tabletID)
		}
		b.PutMetaLog(tabletID, entry.LogID, entry.TabletMetaLog)
	}
	for _, entry := range doc.DelVectors {
		value, err := base64.StdEncoding.DecodeString(entry.Base64Val)
		if err != nil {
			return ErrInternal.New("delete vector %d@%d: invalid base64: %v", entry.SegmentID, entry.Version, err)
		}
		if _, err := delvec.Load(entry.Version, value); err != nil {
			return ErrCorruption.New("delete vector %d@%d: %v", entry.SegmentID, entry.Version, err)
		}
		b.putRawDelVector(tabletID, entry.SegmentID, entry.Version, value)
	}
	if err := s.Write(b); err != nil {
		return err
	}
	s.recordTick(TickerJSONImports, 1)
	s.log.Infof(logging.NSJSON+"loaded primary key tablet %d.%d: %d rowsets, %d pending, %d logs, %d delete vectors",
		tabletID, meta.SchemaHash, len(doc.AppliedRsMetas), len(doc.PendingRsMetas), len(doc.TabletMetaLogs), len(doc.DelVectors))
	return nil
}

func (s *Store) loadBareMeta(data []byte) error {
	meta := new(metapb.TabletMeta)
	if err := json.Unmarshal(data, meta); err != nil {
		return ErrInternal.New("invalid json string: %v", err)
	}
	if !meta.IsPrimaryKeys() && meta.HasUpdates() {
		return ErrInvalidArgument.New("non primary key with updates")
	}
	b := s.NewBatch()
	b.PutTabletMeta(meta)
	if err := s.Write(b); err != nil {
		return err
	}
	s.recordTick(TickerJSONImports, 1)
	s.log.Infof(logging.NSJSON+"loaded tablet meta %d.%d", meta.TabletID, meta.SchemaHash)
	return nil
}
