package metapb

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// KeysType is the key model of a table.
type KeysType int32

const (
	DupKeys     KeysType = 0
	UniqueKeys  KeysType = 1
	AggKeys     KeysType = 2
	PrimaryKeys KeysType = 3
)

var keysTypeNames = map[int32]string{
	0: "DUP_KEYS",
	1: "UNIQUE_KEYS",
	2: "AGG_KEYS",
	3: "PRIMARY_KEYS",
}

func (k KeysType) String() string { return enumName(keysTypeNames, int32(k)) }

func (k KeysType) MarshalJSON() ([]byte, error) { return marshalEnum(keysTypeNames, int32(k)) }

func (k *KeysType) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(keysTypeNames, "KeysType", b, (*int32)(k))
}

// TabletState is the lifecycle state of a tablet.
type TabletState int32

const (
	TabletNotReady   TabletState = 0
	TabletRunning    TabletState = 1
	TabletTombstoned TabletState = 2
	TabletStopped    TabletState = 3
	TabletShutdown   TabletState = 4
)

var tabletStateNames = map[int32]string{
	0: "PB_NOTREADY",
	1: "PB_RUNNING",
	2: "PB_TOMBSTONED",
	3: "PB_STOPPED",
	4: "PB_SHUTDOWN",
}

func (s TabletState) String() string { return enumName(tabletStateNames, int32(s)) }

func (s TabletState) MarshalJSON() ([]byte, error) { return marshalEnum(tabletStateNames, int32(s)) }

func (s *TabletState) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(tabletStateNames, "TabletState", b, (*int32)(s))
}

// RowsetState is the visibility state of a rowset.
type RowsetState int32

const (
	RowsetPreparing RowsetState = 0
	RowsetCommitted RowsetState = 1
	RowsetVisible   RowsetState = 2
)

var rowsetStateNames = map[int32]string{
	0: "PREPARING",
	1: "COMMITTED",
	2: "VISIBLE",
}

func (s RowsetState) String() string { return enumName(rowsetStateNames, int32(s)) }

func (s RowsetState) MarshalJSON() ([]byte, error) { return marshalEnum(rowsetStateNames, int32(s)) }

func (s *RowsetState) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(rowsetStateNames, "RowsetState", b, (*int32)(s))
}

// OpType is the kind of structural mutation a meta log op records.
type OpType int32

const (
	OpNone             OpType = 0
	OpRowsetCommit     OpType = 1
	OpCompactionCommit OpType = 2
	OpApply            OpType = 3
)

var opTypeNames = map[int32]string{
	0: "OP_NONE",
	1: "OP_ROWSET_COMMIT",
	2: "OP_COMPACTION_COMMIT",
	3: "OP_APPLY",
}

func (t OpType) String() string { return enumName(opTypeNames, int32(t)) }

func (t OpType) MarshalJSON() ([]byte, error) { return marshalEnum(opTypeNames, int32(t)) }

func (t *OpType) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(opTypeNames, "OpType", b, (*int32)(t))
}

func enumName(names map[int32]string, v int32) string {
	if name, ok := names[v]; ok {
		return name
	}
	return strconv.Itoa(int(v))
}

// marshalEnum writes known values by name and unknown ones as numbers.
func marshalEnum(names map[int32]string, v int32) ([]byte, error) {
	if name, ok := names[v]; ok {
		return json.Marshal(name)
	}
	return json.Marshal(v)
}

// unmarshalEnum accepts either the value name or its number.
func unmarshalEnum(names map[int32]string, kind string, b []byte, dst *int32) error {
	if len(b) > 0 && b[0] == '"' {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return err
		}
		for v, n := range names {
			if n == name {
				*dst = v
				return nil
			}
		}
		return fmt.Errorf("metapb: unknown %s value %q", kind, name)
	}
	var v int32
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("metapb: invalid %s value %s", kind, b)
	}
	*dst = v
	return nil
}
