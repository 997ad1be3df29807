package tabletmeta

import (
	"github.com/aalhour/tabletmeta/internal/keys"
	"github.com/aalhour/tabletmeta/internal/logging"
	"github.com/aalhour/tabletmeta/metapb"
)

// TabletMetaSource is an in-memory tablet that can produce its persisted
// header.
type TabletMetaSource interface {
	ToMetaPB() *metapb.TabletMeta
}

// Save writes the tablet header. A primary key meta that carries a meta log
// watermark also drops the logs below it in the same batch.
//
// Save fails with ErrInvalidArgument when a non primary key meta carries
// updates; nothing is written in that case.
func (s *Store) Save(tabletID int64, schemaHash int32, meta *metapb.TabletMeta) error {
	if meta == nil {
		return ErrInvalidArgument.New("nil tablet meta")
	}
	if !meta.IsPrimaryKeys() && meta.HasUpdates() {
		return ErrInvalidArgument.New("non primary key with updates")
	}
	b := s.NewBatch()
	b.PutTabletMetaAs(tabletID, schemaHash, meta)
	if meta.Updates.HasNextLogID() {
		b.TruncateMetaLogs(tabletID, meta.Updates.GetNextLogID())
	}
	if err := s.Write(b); err != nil {
		return err
	}
	s.recordTick(TickerMetaSaved, 1)
	return nil
}

// SaveTablet saves the header produced by src. Primary key tablets are
// persisted through the JSON import path and are rejected with
// ErrNotSupported.
func (s *Store) SaveTablet(tabletID int64, schemaHash int32, src TabletMetaSource) error {
	meta := src.ToMetaPB()
	if meta.IsPrimaryKeys() {
		return ErrNotSupported.New("save primary key tablet %d.%d", tabletID, schemaHash)
	}
	return s.Save(tabletID, schemaHash, meta)
}

// GetTabletMeta reads and decodes a tablet header.
func (s *Store) GetTabletMeta(tabletID int64, schemaHash int32) (*metapb.TabletMeta, error) {
	value, err := s.get(keys.EncodeHeader(tabletID, schemaHash))
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrNotFound.New("tablet meta %d.%d", tabletID, schemaHash)
		}
		return nil, err
	}
	meta, err := s.decodeHeader(tabletID, schemaHash, value)
	if err != nil {
		return nil, err
	}
	s.recordTick(TickerMetaRead, 1)
	return meta, nil
}

func (s *Store) decodeHeader(tabletID int64, schemaHash int32, value []byte) (*metapb.TabletMeta, error) {
	meta := new(metapb.TabletMeta)
	if err := meta.Unmarshal(value); err != nil {
		s.recordTick(TickerCorruptEntries, 1)
		s.log.Errorf(logging.NSMeta+"bad tablet meta pb %d.%d: %v", tabletID, schemaHash, err)
		return nil, ErrCorruption.New("bad tablet meta pb %d.%d: %v", tabletID, schemaHash, err)
	}
	return meta, nil
}

// TraverseHeaders calls fn with every tablet header in key order until fn
// returns false. Keys that do not decode are logged and skipped.
func (s *Store) TraverseHeaders(fn func(tabletID int64, schemaHash int32, value []byte) bool) error {
	return s.scan([]byte(keys.HeaderPrefix), func(key, value []byte) bool {
		tabletID, schemaHash, ok := keys.DecodeHeader(key)
		if !ok {
			s.log.Warnf(logging.NSMeta+"invalid tablet meta key %q", key)
			return true
		}
		return fn(tabletID, schemaHash, value)
	})
}

// Remove deletes one tablet header. When the stored header belongs to a
// primary key tablet the meta logs, delete vectors, rowsets and pending
// rowsets of the tablet go in the same batch. Removing a missing header is
// not an error.
func (s *Store) Remove(tabletID int64, schemaHash int32) error {
	b := s.NewBatch()
	b.RemoveTabletMeta(tabletID, schemaHash)

	value, err := s.get(keys.EncodeHeader(tabletID, schemaHash))
	switch {
	case err == nil:
		if meta := new(metapb.TabletMeta); meta.Unmarshal(value) != nil {
			s.log.Warnf(logging.NSMeta+"removing undecodable tablet meta %d.%d", tabletID, schemaHash)
		} else if meta.IsPrimaryKeys() {
			b.ClearTablet(tabletID)
		}
	case !IsNotFound(err):
		return err
	}

	if err := s.Write(b); err != nil {
		return err
	}
	s.recordTick(TickerMetaRemoved, 1)
	return nil
}

// RemoveTablet deletes every header of tabletID whatever its schema hash.
// If any of them belongs to a primary key tablet the per-tablet ranges are
// cleared in the same batch.
func (s *Store) RemoveTablet(tabletID int64) error {
	b := s.NewBatch()
	primary := false
	removed := 0
	err := s.scan(keys.HeaderTabletPrefix(tabletID), func(key, value []byte) bool {
		id, schemaHash, ok := keys.DecodeHeader(key)
		if !ok || id != tabletID {
			s.log.Warnf(logging.NSMeta+"invalid tablet meta key %q", key)
			return true
		}
		b.Delete(key)
		removed++
		meta := new(metapb.TabletMeta)
		if err := meta.Unmarshal(value); err != nil {
			s.log.Warnf(logging.NSMeta+"removing undecodable tablet meta %d.%d: %v", id, schemaHash, err)
			return true
		}
		if meta.IsPrimaryKeys() {
			primary = true
		}
		return true
	})
	if err != nil {
		return err
	}
	if primary {
		b.ClearTablet(tabletID)
	}
	if err := s.Write(b); err != nil {
		return err
	}
	s.recordTick(TickerMetaRemoved, uint64(removed))
	s.log.Debugf(logging.NSMeta+"removed %d headers of tablet %d (primary=%v)", removed, tabletID, primary)
	return nil
}
