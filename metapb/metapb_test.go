package metapb

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protowire"
)

func u64(v uint64) *uint64 { return &v }

func samplePrimaryMeta() *TabletMeta {
	return &TabletMeta{
		TableID:      10001,
		PartitionID:  10002,
		TabletID:     10003,
		SchemaHash:   -1540124523,
		ShardID:      7,
		CreationTime: 1700000000,
		TabletState:  TabletRunning,
		Schema: &TabletSchema{
			KeysType: PrimaryKeys,
			Columns: []*Column{
				{UniqueID: 0, Name: "k1", Type: "BIGINT", IsKey: true, Length: 8},
				{UniqueID: 1, Name: "v1", Type: "DECIMAL", Aggregation: "REPLACE", IsNullable: true, Precision: 27, Frac: 9},
			},
			NumShortKeyColumns: 1,
			NumRowsPerRowBlock: 1024,
			NextColumnUniqueID: 2,
		},
		Updates: &TabletUpdates{
			Versions: []*EditVersionMeta{
				{Version: &EditVersion{Major: 1}, CreationTime: 1700000000},
				{Version: &EditVersion{Major: 2, Minor: 1}, Rowsets: []uint32{0, 3}, Deltas: []uint32{3}},
			},
			ApplyVersion: &EditVersion{Major: 2},
			NextRowsetID: 4,
			NextLogID:    u64(0),
		},
		EnablePersistentIndex: true,
	}
}

func sampleRowset() *RowsetMeta {
	return &RowsetMeta{
		RowsetID:         -1,
		TabletID:         10003,
		TxnID:            55,
		TabletSchemaHash: 123,
		RowsetState:      RowsetVisible,
		StartVersion:     2,
		EndVersion:       2,
		NumRows:          1000,
		TotalDiskSize:    4096,
		DataDiskSize:     4000,
		NumSegments:      3,
		RowsetIDV2:       "02000000000000034f4a8f3dbd5b5e1d2f2c8e8d1b3f5fa2",
		RowsetSegID:      9,
		NumDeleteFiles:   1,
	}
}

func TestTabletMetaRoundTrip(t *testing.T) {
	want := samplePrimaryMeta()
	var got TabletMeta
	if err := got.Unmarshal(want.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(want, &got); diff != "" {
		t.Errorf("TabletMeta mismatch (-want +got):\n%s", diff)
	}
}

func TestNextLogIDPresence(t *testing.T) {
	m := &TabletMeta{Schema: &TabletSchema{KeysType: PrimaryKeys}, Updates: &TabletUpdates{NextLogID: u64(0)}}
	var got TabletMeta
	if err := got.Unmarshal(m.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Updates.HasNextLogID() {
		t.Fatal("a zero next_log_id should survive encoding")
	}

	m.Updates.NextLogID = nil
	if err := got.Unmarshal(m.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.HasUpdates() {
		t.Error("empty updates should still be present")
	}
	if got.Updates.HasNextLogID() {
		t.Error("unset next_log_id decoded as present")
	}
}

func TestKeysType(t *testing.T) {
	tests := []struct {
		name string
		meta *TabletMeta
		want KeysType
	}{
		{"nil", nil, DupKeys},
		{"no schema", &TabletMeta{}, DupKeys},
		{"unique", &TabletMeta{Schema: &TabletSchema{KeysType: UniqueKeys}}, UniqueKeys},
		{"primary", &TabletMeta{Schema: &TabletSchema{KeysType: PrimaryKeys}}, PrimaryKeys},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.KeysType(); got != tt.want {
				t.Errorf("KeysType() = %v, want %v", got, tt.want)
			}
			if got := tt.meta.IsPrimaryKeys(); got != (tt.want == PrimaryKeys) {
				t.Errorf("IsPrimaryKeys() = %v", got)
			}
		})
	}
}

func TestRowsetMetaRoundTrip(t *testing.T) {
	want := sampleRowset()
	b := want.Marshal()
	var got RowsetMeta
	if err := got.Unmarshal(b); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(want, &got); diff != "" {
		t.Errorf("RowsetMeta mismatch (-want +got):\n%s", diff)
	}
}

func TestMetaLogRoundTrip(t *testing.T) {
	logs := []*TabletMetaLog{
		NewCommitLog(&EditVersionMeta{Version: &EditVersion{Major: 5}, Rowsets: []uint32{9}, Deltas: []uint32{9}}),
		NewApplyLog(&EditVersion{Major: 5}),
		{},
	}
	for _, want := range logs {
		var got TabletMetaLog
		if err := got.Unmarshal(want.Marshal()); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if diff := cmp.Diff(want, &got); diff != "" {
			t.Errorf("TabletMetaLog mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestUnknownFieldsSkipped(t *testing.T) {
	b := sampleRowset().Marshal()
	b = protowire.AppendTag(b, 100, protowire.BytesType)
	b = protowire.AppendString(b, "from a newer writer")
	b = protowire.AppendTag(b, 101, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 42)
	b = protowire.AppendTag(b, 102, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	var got RowsetMeta
	if err := got.Unmarshal(b); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(sampleRowset(), &got); diff != "" {
		t.Errorf("RowsetMeta mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpackedRepeatedAccepted(t *testing.T) {
	var b []byte
	for _, v := range []uint64{4, 5, 6} {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, v)
	}
	var got EditVersionMeta
	if err := got.Unmarshal(b); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff([]uint32{4, 5, 6}, got.Rowsets); diff != "" {
		t.Errorf("Rowsets mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	wrongType := protowire.AppendTag(nil, 1, protowire.BytesType)
	wrongType = protowire.AppendString(wrongType, "x")

	truncated := sampleRowset().Marshal()
	truncated = truncated[:len(truncated)-1]

	badNested := protowire.AppendTag(nil, 8, protowire.BytesType)
	badNested = protowire.AppendBytes(badNested, []byte{0x08})

	tests := []struct {
		name string
		data []byte
	}{
		{"wrong wire type", wrongType},
		{"truncated", truncated},
		{"bad nested message", badNested},
		{"garbage", []byte{0xff, 0xff, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m TabletMeta
			if err := m.Unmarshal(tt.data); err == nil {
				t.Error("Unmarshal succeeded, want error")
			}
		})
	}

	var m TabletMeta
	if err := m.Unmarshal(wrongType); !errors.Is(err, ErrWireType) {
		t.Errorf("Unmarshal error = %v, want %v", err, ErrWireType)
	}
}

func TestUnmarshalResets(t *testing.T) {
	m := samplePrimaryMeta()
	if err := m.Unmarshal(nil); err != nil {
		t.Fatalf("Unmarshal(nil): %v", err)
	}
	if diff := cmp.Diff(&TabletMeta{}, m); diff != "" {
		t.Errorf("Unmarshal(nil) left fields behind (-want +got):\n%s", diff)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	want := samplePrimaryMeta()
	want.RsMetas = []*RowsetMeta{sampleRowset()}
	b, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, field := range []string{`"keys_type":"PRIMARY_KEYS"`, `"tablet_state":"PB_RUNNING"`, `"next_log_id":0`, `"rowset_state":"VISIBLE"`} {
		if !strings.Contains(string(b), field) {
			t.Errorf("JSON %s does not contain %s", b, field)
		}
	}
	var got TabletMeta
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(want, &got); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumJSON(t *testing.T) {
	tests := []struct {
		in   string
		want OpType
	}{
		{`"OP_APPLY"`, OpApply},
		{`"OP_ROWSET_COMMIT"`, OpRowsetCommit},
		{`2`, OpCompactionCommit},
		{`17`, OpType(17)},
	}
	for _, tt := range tests {
		var got OpType
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, got, tt.want)
		}
	}

	var op OpType
	if err := json.Unmarshal([]byte(`"OP_MERGE"`), &op); err == nil {
		t.Error("unknown enum name should fail")
	}
	if err := json.Unmarshal([]byte(`true`), &op); err == nil {
		t.Error("boolean enum value should fail")
	}

	b, err := json.Marshal(OpType(17))
	if err != nil || string(b) != "17" {
		t.Errorf("Marshal(OpType(17)) = (%s, %v), want 17", b, err)
	}
	if s := KeysType(9).String(); s != "9" {
		t.Errorf("KeysType(9).String() = %q, want 9", s)
	}
}

func FuzzTabletMetaUnmarshal(f *testing.F) {
	f.Add(samplePrimaryMeta().Marshal())
	f.Add(sampleRowset().Marshal())
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, data []byte) {
		var m TabletMeta
		if err := m.Unmarshal(data); err != nil {
			return
		}
		var again TabletMeta
		if err := again.Unmarshal(m.Marshal()); err != nil {
			t.Fatalf("re-decode of re-encoded meta failed: %v", err)
		}
		if diff := cmp.Diff(&m, &again); diff != "" {
			t.Fatalf("re-encode changed the meta (-first +second):\n%s", diff)
		}
	})
}
