package event

import (
	"testing"

	"github.com/WangTingMan/packages-modules-StatsD/atom"
)

func buildRecord(t *testing.T, build func(b *atom.Buffer)) *atom.Record {
	t.Helper()
	b := atom.Obtain()
	defer b.Release()
	b.WriteAtomID(1001)
	b.OverwriteTimestamp(42)
	build(b)
	if err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	rec, err := atom.ReadBuffer(b.Bytes())
	if err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	return rec
}

func TestFromRecordScalarFields(t *testing.T) {
	rec := buildRecord(t, func(b *atom.Buffer) {
		b.WriteInt32(7)
		b.WriteInt64(99)
		b.WriteString("hello")
		b.WriteBool(true)
	})

	ev := FromRecord(rec)
	if ev.AtomID() != 1001 {
		t.Fatalf("atom id = %d, want 1001", ev.AtomID())
	}
	if ev.TimestampNs != 42 {
		t.Fatalf("timestamp = %d, want 42", ev.TimestampNs)
	}
	if len(ev.Fields) != 4 {
		t.Fatalf("fields = %d, want 4", len(ev.Fields))
	}

	if got, ok := ev.Fields[0].AsInt64(); !ok || got != 7 {
		t.Fatalf("field 0 = %v,%v want 7,true", got, ok)
	}
	if got, ok := ev.Fields[1].AsInt64(); !ok || got != 99 {
		t.Fatalf("field 1 = %v,%v want 99,true", got, ok)
	}
	if ev.Fields[2].StringVal != "hello" {
		t.Fatalf("field 2 = %q, want hello", ev.Fields[2].StringVal)
	}
	if !ev.Fields[3].BoolVal {
		t.Fatalf("field 3 = false, want true")
	}
}

func TestFromRecordAttributionChainFlattened(t *testing.T) {
	rec := buildRecord(t, func(b *atom.Buffer) {
		b.WriteAttributionChain([]uint32{10, 20}, []string{"a", "b"})
		b.WriteInt32(5)
	})

	ev := FromRecord(rec)
	// Two nodes * (uid, tag) = 4 fields, plus the trailing int32.
	if len(ev.Fields) != 5 {
		t.Fatalf("fields = %d, want 5", len(ev.Fields))
	}
	if ev.Fields[0].Kind != KindAttributionUID || ev.Fields[0].Int32Val != 10 {
		t.Fatalf("field 0 = %+v", ev.Fields[0])
	}
	if ev.Fields[1].Kind != KindAttributionTag || ev.Fields[1].StringVal != "a" {
		t.Fatalf("field 1 = %+v", ev.Fields[1])
	}
	if ev.Fields[2].Kind != KindAttributionUID || ev.Fields[2].Int32Val != 20 {
		t.Fatalf("field 2 = %+v", ev.Fields[2])
	}
	if ev.Fields[3].Kind != KindAttributionTag || ev.Fields[3].StringVal != "b" {
		t.Fatalf("field 3 = %+v", ev.Fields[3])
	}
	last := ev.Fields[4]
	if got, ok := last.AsInt64(); !ok || got != 5 {
		t.Fatalf("last field = %v,%v want 5,true", got, ok)
	}
}

func TestFromRecordArrayFlattenedPerElement(t *testing.T) {
	rec := buildRecord(t, func(b *atom.Buffer) {
		b.WriteInt32Array([]int32{1, 2, 3})
	})
	ev := FromRecord(rec)
	if len(ev.Fields) != 3 {
		t.Fatalf("fields = %d, want 3", len(ev.Fields))
	}
	for i, want := range []int32{1, 2, 3} {
		if ev.Fields[i].Int32Val != want {
			t.Fatalf("field %d = %d, want %d", i, ev.Fields[i].Int32Val, want)
		}
		if ev.Fields[i].Path.Pos[0] != 0 || ev.Fields[i].Path.Pos[1] != int32(i) {
			t.Fatalf("field %d path = %+v", i, ev.Fields[i].Path)
		}
	}
}

func TestFromRecordOversizedArrayOmitted(t *testing.T) {
	oversized := make([]int32, 200)
	rec := buildRecord(t, func(b *atom.Buffer) {
		b.WriteInt32Array(oversized)
		b.WriteInt32(1)
	})
	ev := FromRecord(rec)
	// The oversized array never made it onto the wire at all (ErrorListTooLong),
	// so only the trailing int32 survives.
	if len(ev.Fields) != 1 {
		t.Fatalf("fields = %d, want 1", len(ev.Fields))
	}
}

func TestSetAtomIDOnlyOnce(t *testing.T) {
	ev := New(0, 0)
	ev.SetAtomID(5)
	ev.SetAtomID(6)
	if ev.AtomID() != 5 {
		t.Fatalf("atom id = %d, want 5 (first set wins)", ev.AtomID())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	ev := New(1, 2)
	ev.SetAtomID(9)
	ev.AddField(FieldValue{Kind: KindInt64, Int64Val: 1})

	clone := ev.Clone()
	clone.Fields[0].Int64Val = 99

	if ev.Fields[0].Int64Val != 1 {
		t.Fatalf("original mutated via clone: %d", ev.Fields[0].Int64Val)
	}
}
