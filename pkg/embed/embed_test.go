package loxvm_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/funvibe/loxvm/internal/vm"
	loxvm "github.com/funvibe/loxvm/pkg/embed"
)

func TestEval(t *testing.T) {
	tests := []struct {
		code string
		want interface{}
	}{
		{"1 + 2 * 3", 7.0},
		{"(1 + 2) * 3", 9.0},
		{"1 < 2", true},
		{"nil", nil},
		{`"lox" + "vm"`, "loxvm"},
	}

	in := loxvm.New()
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := in.Eval(tt.code)
			if err != nil {
				t.Fatalf("Eval failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	in := loxvm.New()

	_, err := in.Eval("1 +")
	var compileErrs vm.CompileErrors
	if !errors.As(err, &compileErrs) {
		t.Errorf("expected CompileErrors, got %v", err)
	}

	_, err = in.Eval(`"a" - 1`)
	var rtErr *vm.RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %v", err)
	}
	if rtErr.Message != "Operands must be numbers." {
		t.Errorf("unexpected message %q", rtErr.Message)
	}
}

func TestEvalContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Long enough to reach a cancellation check.
	code := strings.Repeat("!", 1500) + "true"
	if _, err := loxvm.New().EvalContext(ctx, code); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEvalSharesHeap(t *testing.T) {
	in := loxvm.New()
	if _, err := in.Eval(`"abc"`); err != nil {
		t.Fatal(err)
	}
	before := in.Heap().Strings().Len()
	if _, err := in.Eval(`"abc" == "abc"`); err != nil {
		t.Fatal(err)
	}
	if after := in.Heap().Strings().Len(); after != before {
		t.Errorf("literal was interned twice: %d -> %d strings", before, after)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sum.lox")
	if err := os.WriteFile(path, []byte("// sum\n40 + 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := loxvm.New().LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != 42.0 {
		t.Errorf("expected 42, got %v", got)
	}

	if _, err := loxvm.New().LoadFile(filepath.Join(t.TempDir(), "missing.lox")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMarshallerToValue(t *testing.T) {
	in := loxvm.New()
	m := loxvm.NewMarshaller()
	name := "ptr"

	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, "nil"},
		{3, "3"},
		{uint8(4), "4"},
		{2.5, "2.5"},
		{float32(0.5), "0.5"},
		{true, "true"},
		{"text", "text"},
		{&name, "ptr"},
		{vm.BoolVal(false), "false"},
	}
	for _, tt := range tests {
		v, err := m.ToValue(in.Heap(), tt.in)
		if err != nil {
			t.Errorf("ToValue(%v): %v", tt.in, err)
			continue
		}
		if v.String() != tt.want {
			t.Errorf("ToValue(%v) = %s, want %s", tt.in, v, tt.want)
		}
	}

	s, _ := in.Value("text")
	if s.AsString() != in.Heap().CopyString("text") {
		t.Error("converted string is not interned in the heap")
	}

	if _, err := m.ToValue(in.Heap(), []int{1}); err == nil {
		t.Error("expected error for slice")
	}
}

func TestMarshallerFromValueTarget(t *testing.T) {
	m := loxvm.NewMarshaller()
	got, err := m.FromValue(vm.NumberVal(7.9), reflect.TypeOf(0))
	if err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Errorf("expected int 7, got %v (%T)", got, got)
	}
}

func TestValueSurvivesCollection(t *testing.T) {
	in := loxvm.New()
	held, err := in.Value("held")
	if err != nil {
		t.Fatal(err)
	}
	loose := in.Heap().CopyString("loose")

	// Concatenating past the collection threshold triggers a collection.
	big := strings.Repeat("x", 600*1024)
	if _, err := in.Eval(`"` + big + `" + "y"`); err != nil {
		t.Fatal(err)
	}
	if in.Heap().Strings().FindString(loose.Chars, loose.Hash) != nil {
		t.Fatal("expected a collection to free the unreferenced string")
	}

	again, err := in.Value("held")
	if err != nil {
		t.Fatal(err)
	}
	if again.AsString() != held.AsString() {
		t.Error("held value was collected: a new instance was interned")
	}
	if !held.Equals(again) {
		t.Error("held value no longer equals the interned string")
	}

	// Two Value calls pinned it twice.
	in.Release(held)
	in.Release(again)
	in.Heap().Collect()
	if in.Heap().Strings().FindString("held", held.AsString().Hash) != nil {
		t.Error("released value was not collected")
	}
}
