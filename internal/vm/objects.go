package vm

import (
	"hash/fnv"
)

// ObjType tags each heap object kind.
type ObjType uint8

const (
	ObjTypeString ObjType = iota
)

func (t ObjType) String() string {
	switch t {
	case ObjTypeString:
		return "string"
	default:
		return "object"
	}
}

// Obj is a heap-allocated object. The set of implementations is closed:
// header is unexported, so only this package can add kinds, and consumers
// switch exhaustively on the concrete type.
type Obj interface {
	Type() ObjType
	Inspect() string
	header() *objHeader
}

// objHeader threads an object onto its heap's allocation list.
type objHeader struct {
	next   Obj
	marked bool
}

func (h *objHeader) header() *objHeader { return h }

// ObjString is an immutable, interned string.
type ObjString struct {
	objHeader
	Chars string
	Hash  uint32
}

func (s *ObjString) Type() ObjType   { return ObjTypeString }
func (s *ObjString) Inspect() string { return s.Chars }
func (s *ObjString) Len() int        { return len(s.Chars) }

// hashString computes the 32-bit FNV-1a hash of chars.
func hashString(chars string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(chars))
	return h.Sum32()
}

// objSize approximates the bytes an object accounts for in the heap budget.
func objSize(o Obj) int {
	switch o := o.(type) {
	case *ObjString:
		return 32 + len(o.Chars) + 1
	default:
		return 32
	}
}
