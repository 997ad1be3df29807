package metapb

// TabletMetaOp is one structural mutation of a primary key tablet.
// Commit is set for rowset and compaction commits, Apply for applies.
type TabletMetaOp struct {
	Type   OpType           `json:"type,omitempty"`
	Commit *EditVersionMeta `json:"commit,omitempty"`
	Apply  *EditVersion     `json:"apply,omitempty"`
}

func (op *TabletMetaOp) Marshal() []byte {
	var e encoder
	e.int32(1, int32(op.Type))
	if op.Commit != nil {
		e.message(2, op.Commit.Marshal())
	}
	if op.Apply != nil {
		e.message(3, op.Apply.Marshal())
	}
	return e.b
}

func (op *TabletMetaOp) Unmarshal(b []byte) error {
	*op = TabletMetaOp{}
	r := reader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			op.Type = OpType(r.int32())
		case 2:
			op.Commit = new(EditVersionMeta)
			r.submessage(op.Commit.Unmarshal)
		case 3:
			op.Apply = new(EditVersion)
			r.submessage(op.Apply.Unmarshal)
		default:
			r.skip()
		}
	}
	return r.err
}

// TabletMetaLog is one meta log entry.
type TabletMetaLog struct {
	Ops []*TabletMetaOp `json:"ops,omitempty"`
}

// NewCommitLog returns a log recording a rowset commit of edit.
func NewCommitLog(edit *EditVersionMeta) *TabletMetaLog {
	return &TabletMetaLog{Ops: []*TabletMetaOp{{Type: OpRowsetCommit, Commit: edit}}}
}

// NewApplyLog returns a log recording the apply of version.
func NewApplyLog(version *EditVersion) *TabletMetaLog {
	return &TabletMetaLog{Ops: []*TabletMetaOp{{Type: OpApply, Apply: version}}}
}

func (l *TabletMetaLog) Marshal() []byte {
	var e encoder
	for _, op := range l.Ops {
		e.message(1, op.Marshal())
	}
	return e.b
}

func (l *TabletMetaLog) Unmarshal(b []byte) error {
	*l = TabletMetaLog{}
	r := reader{b: b}
	for r.next() {
		switch r.num {
		case 1:
			op := new(TabletMetaOp)
			r.submessage(op.Unmarshal)
			l.Ops = append(l.Ops, op)
		default:
			r.skip()
		}
	}
	return r.err
}
