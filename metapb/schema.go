package metapb

// Column describes one column of a tablet schema.
type Column struct {
	UniqueID    int32  `json:"unique_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Type        string `json:"type,omitempty"`
	IsKey       bool   `json:"is_key,omitempty"`
	Aggregation string `json:"aggregation,omitempty"`
	IsNullable  bool   `json:"is_nullable,omitempty"`
	Length      int32  `json:"length,omitempty"`
	Precision   int32  `json:"precision,omitempty"`
	Frac        int32  `json:"frac,omitempty"`
}

func (c *Column) Marshal() []byte {
	var e encoder
	e.int32(1, c.UniqueID)
	e.string(2, c.Name)
	e.string(3, c.Type)
	e.bool(4, c.IsKey)
	e.string(5, c.Aggregation)
	e.bool(6, c.IsNullable)
	e.int32(7, c.Length)
	e.int32(8, c.Precision)
	e.int32(9, c.Frac)
	return e.b
}

func (c *Column) Unmarshal(b []byte) error {
	*c = Column{}
	r := reader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			c.UniqueID = r.int32()
		case 2:
			c.Name = r.string()
		case 3:
			c.Type = r.string()
		case 4:
			c.IsKey = r.bool()
		case 5:
			c.Aggregation = r.string()
		case 6:
			c.IsNullable = r.bool()
		case 7:
			c.Length = r.int32()
		case 8:
			c.Precision = r.int32()
		case 9:
			c.Frac = r.int32()
		default:
			r.skip()
		}
	}
	return r.err
}

// TabletSchema is the column layout and key model of a tablet.
type TabletSchema struct {
	KeysType           KeysType  `json:"keys_type,omitempty"`
	Columns            []*Column `json:"column,omitempty"`
	NumShortKeyColumns int32     `json:"num_short_key_columns,omitempty"`
	NumRowsPerRowBlock int32     `json:"num_rows_per_row_block,omitempty"`
	NextColumnUniqueID int32     `json:"next_column_unique_id,omitempty"`
	SchemaVersion      int32     `json:"schema_version,omitempty"`
}

func (s *TabletSchema) Marshal() []byte {
	var e encoder
	e.int32(1, int32(s.KeysType))
	for _, c := range s.Columns {
		e.message(2, c.Marshal())
	}
	e.int32(3, s.NumShortKeyColumns)
	e.int32(4, s.NumRowsPerRowBlock)
	e.int32(5, s.NextColumnUniqueID)
	e.int32(6, s.SchemaVersion)
	return e.b
}

func (s *TabletSchema) Unmarshal(b []byte) error {
	*s = TabletSchema{}
	r := reader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			s.KeysType = KeysType(r.int32())
		case 2:
			c := new(Column)
			r.submessage(c.Unmarshal)
			s.Columns = append(s.Columns, c)
		case 3:
			s.NumShortKeyColumns = r.int32()
		case 4:
			s.NumRowsPerRowBlock = r.int32()
		case 5:
			s.NextColumnUniqueID = r.int32()
		case 6:
			s.SchemaVersion = r.int32()
		default:
			r.skip()
		}
	}
	return r.err
}
