package metapb

// TabletMeta is the header record of a tablet. Updates is only present on
// primary key tablets.
type TabletMeta struct {
	TableID               int64          `json:"table_id,omitempty"`
	PartitionID           int64          `json:"partition_id,omitempty"`
	TabletID              int64          `json:"tablet_id,omitempty"`
	SchemaHash            int32          `json:"schema_hash,omitempty"`
	ShardID               int32          `json:"shard_id,omitempty"`
	CreationTime          int64          `json:"creation_time,omitempty"`
	TabletState           TabletState    `json:"tablet_state,omitempty"`
	Schema                *TabletSchema  `json:"schema,omitempty"`
	RsMetas               []*RowsetMeta  `json:"rs_metas,omitempty"`
	Updates               *TabletUpdates `json:"updates,omitempty"`
	EnablePersistentIndex bool           `json:"enable_persistent_index,omitempty"`
}

// HasUpdates reports whether the updates substructure is present.
func (m *TabletMeta) HasUpdates() bool {
	return m != nil && m.Updates != nil
}

// KeysType returns the key model from the schema. A meta without a schema
// is treated as duplicate keys.
func (m *TabletMeta) KeysType() KeysType {
	if m == nil || m.Schema == nil {
		return DupKeys
	}
	return m.Schema.KeysType
}

// IsPrimaryKeys reports whether the tablet uses the primary key model.
func (m *TabletMeta) IsPrimaryKeys() bool {
	return m.KeysType() == PrimaryKeys
}

func (m *TabletMeta) Marshal() []byte {
	var e encoder
	e.int64(1, m.TableID)
	e.int64(2, m.PartitionID)
	e.int64(3, m.TabletID)
	e.int32(4, m.SchemaHash)
	e.int32(5, m.ShardID)
	e.int64(6, m.CreationTime)
	e.int32(7, int32(m.TabletState))
	if m.Schema != nil {
		e.message(8, m.Schema.Marshal())
	}
	for _, rs := range m.RsMetas {
		e.message(9, rs.Marshal())
	}
	if m.Updates != nil {
		e.message(10, m.Updates.Marshal())
	}
	e.bool(11, m.EnablePersistentIndex)
	return e.b
}

func (m *TabletMeta) Unmarshal(b []byte) error {
	*m = TabletMeta{}
	r := reader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			m.TableID = r.int64()
		case 2:
			m.PartitionID = r.int64()
		case 3:
			m.TabletID = r.int64()
		case 4:
			m.SchemaHash = r.int32()
		case 5:
			m.ShardID = r.int32()
		case 6:
			m.CreationTime = r.int64()
		case 7:
			m.TabletState = TabletState(r.int32())
		case 8:
			m.Schema = new(TabletSchema)
			r.submessage(m.Schema.Unmarshal)
		case 9:
			rs := new(RowsetMeta)
			r.submessage(rs.Unmarshal)
			m.RsMetas = append(m.RsMetas, rs)
		case 10:
			m.Updates = new(TabletUpdates)
			r.submessage(m.Updates.Unmarshal)
		case 11:
			m.EnablePersistentIndex = r.bool()
		default:
			r.skip()
		}
	}
	return r.err
}
