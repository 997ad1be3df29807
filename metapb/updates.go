package metapb

import "fmt"

// EditVersion orders the edits of a primary key tablet.
type EditVersion struct {
	Major int64 `json:"major,omitempty"`
	Minor int64 `json:"minor,omitempty"`
}

func (v *EditVersion) String() string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

func (v *EditVersion) Marshal() []byte {
	var e encoder
	e.int64(1, v.Major)
	e.int64(2, v.Minor)
	return e.b
}

func (v *EditVersion) Unmarshal(b []byte) error {
	*v = EditVersion{}
	r := reader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			v.Major = r.int64()
		case 2:
			v.Minor = r.int64()
		default:
			r.skip()
		}
	}
	return r.err
}

// EditVersionMeta lists the rowsets visible at one edit version.
type EditVersionMeta struct {
	Version      *EditVersion `json:"version,omitempty"`
	CreationTime int64        `json:"creation_time,omitempty"`
	Rowsets      []uint32     `json:"rowsets,omitempty"`
	Deltas       []uint32     `json:"deltas,omitempty"`
}

// Major returns the major component of the version, or 0 if unset.
func (m *EditVersionMeta) Major() int64 {
	if m == nil || m.Version == nil {
		return 0
	}
	return m.Version.Major
}

func (m *EditVersionMeta) Marshal() []byte {
	var e encoder
	if m.Version != nil {
		e.message(1, m.Version.Marshal())
	}
	e.int64(2, m.CreationTime)
	e.packedUint32s(3, m.Rowsets)
	e.packedUint32s(4, m.Deltas)
	return e.b
}

func (m *EditVersionMeta) Unmarshal(b []byte) error {
	*m = EditVersionMeta{}
	r := reader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			m.Version = new(EditVersion)
			r.submessage(m.Version.Unmarshal)
		case 2:
			m.CreationTime = r.int64()
		case 3:
			m.Rowsets = r.uint32s(m.Rowsets)
		case 4:
			m.Deltas = r.uint32s(m.Deltas)
		default:
			r.skip()
		}
	}
	return r.err
}

// TabletUpdates is the version chain of a primary key tablet.
// NextLogID is the meta log watermark: logs below it are already reflected
// in the saved meta.
type TabletUpdates struct {
	Versions     []*EditVersionMeta `json:"versions,omitempty"`
	ApplyVersion *EditVersion       `json:"apply_version,omitempty"`
	NextRowsetID uint32             `json:"next_rowset_id,omitempty"`
	NextLogID    *uint64            `json:"next_log_id,omitempty"`
}

// HasNextLogID reports whether the watermark is set.
func (u *TabletUpdates) HasNextLogID() bool {
	return u != nil && u.NextLogID != nil
}

// GetNextLogID returns the watermark, or 0 if unset.
func (u *TabletUpdates) GetNextLogID() uint64 {
	if !u.HasNextLogID() {
		return 0
	}
	return *u.NextLogID
}

func (u *TabletUpdates) Marshal() []byte {
	var e encoder
	for _, v := range u.Versions {
		e.message(1, v.Marshal())
	}
	if u.ApplyVersion != nil {
		e.message(2, u.ApplyVersion.Marshal())
	}
	e.uvarint(3, uint64(u.NextRowsetID))
	if u.NextLogID != nil {
		e.always(4, *u.NextLogID)
	}
	return e.b
}

func (u *TabletUpdates) Unmarshal(b []byte) error {
	*u = TabletUpdates{}
	r := reader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			v := new(EditVersionMeta)
			r.submessage(v.Unmarshal)
			u.Versions = append(u.Versions, v)
		case 2:
			u.ApplyVersion = new(EditVersion)
			r.submessage(u.ApplyVersion.Unmarshal)
		case 3:
			u.NextRowsetID = r.uint32()
		case 4:
			id := r.uvarint()
			u.NextLogID = &id
		default:
			r.skip()
		}
	}
	return r.err
}
