package vm

import "testing"

func TestTableHashCollisions(t *testing.T) {
	table := NewTable()
	a := &ObjString{Chars: "a", Hash: 42}
	b := &ObjString{Chars: "b", Hash: 42}

	if !table.Set(a) || !table.Set(b) {
		t.Fatal("expected both colliding strings to be added")
	}
	if table.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", table.Len())
	}
	if table.FindString("a", 42) != a {
		t.Error("lookup of \"a\" returned the wrong entry")
	}
	if table.FindString("b", 42) != b {
		t.Error("lookup of \"b\" returned the wrong entry")
	}
	if table.FindString("c", 42) != nil {
		t.Error("lookup of absent content should return nil")
	}
	if table.FindString("a", 7) != nil {
		t.Error("lookup with a different hash should return nil")
	}
}

func TestTableSetDuplicate(t *testing.T) {
	table := NewTable()
	first := &ObjString{Chars: "x", Hash: hashString("x")}
	table.Set(first)

	if table.Set(&ObjString{Chars: "x", Hash: hashString("x")}) {
		t.Error("duplicate content should not be added")
	}
	if table.FindString("x", hashString("x")) != first {
		t.Error("duplicate replaced the original entry")
	}
	if table.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", table.Len())
	}
}

func TestTableDelete(t *testing.T) {
	table := NewTable()
	a := &ObjString{Chars: "a", Hash: 1}
	b := &ObjString{Chars: "b", Hash: 1}
	table.Set(a)
	table.Set(b)

	if table.Delete(&ObjString{Chars: "a", Hash: 1}) {
		t.Error("delete is by identity, not content")
	}
	if !table.Delete(a) {
		t.Fatal("expected delete to succeed")
	}
	if table.Delete(a) {
		t.Error("second delete should report absence")
	}
	if table.FindString("a", 1) != nil {
		t.Error("deleted entry still found")
	}
	if table.FindString("b", 1) != b {
		t.Error("bucket neighbour lost by delete")
	}
	if table.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", table.Len())
	}
}
