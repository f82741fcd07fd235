package vm

import (
	"strings"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// Initial collection threshold in bytes, and the factor the threshold grows by
// after each collection.
const (
	InitialNextGC  = 1024 * 1024
	HeapGrowFactor = 2
)

// Heap owns every object allocated during one session: the allocation list
// (newest first) and the string intern table. The compiler and the VM of a
// session share one Heap; separate Heaps are fully independent.
//
// A Heap is confined to a single goroutine.
type Heap struct {
	ID uuid.UUID

	objects Obj // head of the allocation list
	count   int
	strings *Table

	// pinned objects are roots of every collection, counted per Pin call
	pinned map[Obj]int

	bytesAllocated int
	nextGC         int

	log commonlog.Logger
}

func NewHeap() *Heap {
	return &Heap{
		ID:      uuid.New(),
		strings: NewTable(),
		pinned:  make(map[Obj]int),
		nextGC:  InitialNextGC,
		log:     commonlog.GetLogger("loxvm.vm"),
	}
}

// CopyString interns chars, copying them if a new object has to be made so
// that the object never pins the caller's buffer (typically the source text).
func (h *Heap) CopyString(chars string) *ObjString {
	hash := hashString(chars)
	if interned := h.strings.FindString(chars, hash); interned != nil {
		return interned
	}
	return h.allocateString(strings.Clone(chars), hash)
}

// TakeString interns chars, taking ownership of a string the caller has just
// built. If equal content is already interned the fresh string is dropped and
// the canonical instance returned.
func (h *Heap) TakeString(chars string) *ObjString {
	hash := hashString(chars)
	if interned := h.strings.FindString(chars, hash); interned != nil {
		return interned
	}
	return h.allocateString(chars, hash)
}

func (h *Heap) allocateString(chars string, hash uint32) *ObjString {
	s := &ObjString{Chars: chars, Hash: hash}
	h.strings.Set(s)
	h.track(s)
	return s
}

// track pushes o onto the head of the allocation list.
func (h *Heap) track(o Obj) {
	o.header().next = h.objects
	h.objects = o
	h.count++
	h.bytesAllocated += objSize(o)
}

// Strings returns the intern table.
func (h *Heap) Strings() *Table {
	return h.strings
}

// Len returns the number of live objects on the allocation list.
func (h *Heap) Len() int {
	return h.count
}

// BytesAllocated returns the approximate size of all live objects.
func (h *Heap) BytesAllocated() int {
	return h.bytesAllocated
}

// Each walks the allocation list from newest to oldest until fn returns false.
func (h *Heap) Each(fn func(Obj) bool) {
	for o := h.objects; o != nil; o = o.header().next {
		if !fn(o) {
			return
		}
	}
}

// Pin keeps v's object alive across collections until a matching Unpin.
// Values held outside the VM (by an embedding host) must be pinned.
func (h *Heap) Pin(v Value) {
	if v.IsObj() && v.Obj != nil {
		h.pinned[v.Obj]++
	}
}

// Unpin releases one Pin of v.
func (h *Heap) Unpin(v Value) {
	if !v.IsObj() || v.Obj == nil {
		return
	}
	if n := h.pinned[v.Obj]; n > 1 {
		h.pinned[v.Obj] = n - 1
	} else {
		delete(h.pinned, v.Obj)
	}
}

// ShouldCollect reports whether allocation has passed the collection threshold.
func (h *Heap) ShouldCollect() bool {
	return h.bytesAllocated > h.nextGC
}

// Collect runs a mark-and-sweep pass: every object reachable from roots or
// pinned survives, everything else is removed from the intern table and unlinked
// from the allocation list. It returns the number of objects freed.
func (h *Heap) Collect(roots ...Value) int {
	before := h.count

	for _, root := range roots {
		h.markValue(root)
	}
	for o := range h.pinned {
		h.markObject(o)
	}

	// The intern table holds its strings weakly.
	h.strings.removeWhite()
	freed := h.sweep()

	h.nextGC = h.bytesAllocated * HeapGrowFactor
	if h.nextGC < InitialNextGC {
		h.nextGC = InitialNextGC
	}

	h.log.Debugf("heap %s: collected %d of %d objects, %d bytes live", h.ID, freed, before, h.bytesAllocated)
	return freed
}

func (h *Heap) markValue(v Value) {
	if v.IsObj() && v.Obj != nil {
		h.markObject(v.Obj)
	}
}

func (h *Heap) markObject(o Obj) {
	hdr := o.header()
	if hdr.marked {
		return
	}
	hdr.marked = true
	switch o.(type) {
	case *ObjString:
		// Strings hold no references.
	}
}

func (h *Heap) sweep() int {
	freed := 0
	var prev Obj
	o := h.objects
	for o != nil {
		hdr := o.header()
		if hdr.marked {
			hdr.marked = false
			prev = o
			o = hdr.next
			continue
		}

		unreached := o
		o = hdr.next
		if prev == nil {
			h.objects = o
		} else {
			prev.header().next = o
		}
		hdr.next = nil
		h.count--
		h.bytesAllocated -= objSize(unreached)
		freed++
	}
	return freed
}
