package metapb

// RowsetMeta describes one rowset of a tablet.
type RowsetMeta struct {
	RowsetID         int64       `json:"rowset_id,omitempty"`
	PartitionID      int64       `json:"partition_id,omitempty"`
	TabletID         int64       `json:"tablet_id,omitempty"`
	TxnID            int64       `json:"txn_id,omitempty"`
	TabletSchemaHash int32       `json:"tablet_schema_hash,omitempty"`
	RowsetState      RowsetState `json:"rowset_state,omitempty"`
	StartVersion     int64       `json:"start_version,omitempty"`
	EndVersion       int64       `json:"end_version,omitempty"`
	NumRows          int64       `json:"num_rows,omitempty"`
	TotalDiskSize    int64       `json:"total_disk_size,omitempty"`
	DataDiskSize     int64       `json:"data_disk_size,omitempty"`
	IndexDiskSize    int64       `json:"index_disk_size,omitempty"`
	Empty            bool        `json:"empty,omitempty"`
	CreationTime     int64       `json:"creation_time,omitempty"`
	NumSegments      int64       `json:"num_segments,omitempty"`
	RowsetIDV2       string      `json:"rowset_id_v2,omitempty"`
	RowsetSegID      uint32      `json:"rowset_seg_id,omitempty"`
	NumDeleteFiles   uint32      `json:"num_delete_files,omitempty"`
	TotalRowSize     int64       `json:"total_row_size,omitempty"`
}

func (m *RowsetMeta) Marshal() []byte {
	var e encoder
	e.int64(1, m.RowsetID)
	e.int64(2, m.PartitionID)
	e.int64(3, m.TabletID)
	e.int64(4, m.TxnID)
	e.int32(5, m.TabletSchemaHash)
	e.int32(6, int32(m.RowsetState))
	e.int64(7, m.StartVersion)
	e.int64(8, m.EndVersion)
	e.int64(9, m.NumRows)
	e.int64(10, m.TotalDiskSize)
	e.int64(11, m.DataDiskSize)
	e.int64(12, m.IndexDiskSize)
	e.bool(13, m.Empty)
	e.int64(14, m.CreationTime)
	e.int64(15, m.NumSegments)
	e.string(16, m.RowsetIDV2)
	e.uvarint(17, uint64(m.RowsetSegID))
	e.uvarint(18, uint64(m.NumDeleteFiles))
	e.int64(19, m.TotalRowSize)
	return e.b
}

func (m *RowsetMeta) Unmarshal(b []byte) error {
	*m = RowsetMeta{}
	r := reader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			m.RowsetID = r.int64()
		case 2:
			m.PartitionID = r.int64()
		case 3:
			m.TabletID = r.int64()
		case 4:
			m.TxnID = r.int64()
		case 5:
			m.TabletSchemaHash = r.int32()
		case 6:
			m.RowsetState = RowsetState(r.int32())
		case 7:
			m.StartVersion = r.int64()
		case 8:
			m.EndVersion = r.int64()
		case 9:
			m.NumRows = r.int64()
		case 10:
			m.TotalDiskSize = r.int64()
		case 11:
			m.DataDiskSize = r.int64()
		case 12:
			m.IndexDiskSize = r.int64()
		case 13:
			m.Empty = r.bool()
		case 14:
			m.CreationTime = r.int64()
		case 15:
			m.NumSegments = r.int64()
		case 16:
			m.RowsetIDV2 = r.string()
		case 17:
			m.RowsetSegID = r.uint32()
		case 18:
			m.NumDeleteFiles = r.uint32()
		case 19:
			m.TotalRowSize = r.int64()
		default:
			r.skip()
		}
	}
	return r.err
}
