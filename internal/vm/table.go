package vm

// Table is the string intern table: at most one ObjString per distinct
// content. Entries are bucketed by hash and each bucket is probed by
// content, so two strings with colliding hashes stay distinct.
//
// A Table is not safe for concurrent use; it belongs to one Heap.
type Table struct {
	buckets map[uint32][]*ObjString
	count   int
}

func NewTable() *Table {
	return &Table{buckets: make(map[uint32][]*ObjString)}
}

// FindString returns the interned string with the given content and hash, or nil.
func (t *Table) FindString(chars string, hash uint32) *ObjString {
	for _, s := range t.buckets[hash] {
		if len(s.Chars) == len(chars) && s.Chars == chars {
			return s
		}
	}
	return nil
}

// Set adds s to the table. It returns false if an entry with the same
// content is already present, in which case the table is unchanged.
func (t *Table) Set(s *ObjString) bool {
	if t.FindString(s.Chars, s.Hash) != nil {
		return false
	}
	t.buckets[s.Hash] = append(t.buckets[s.Hash], s)
	t.count++
	return true
}

// Delete removes s (by identity) and reports whether it was present.
func (t *Table) Delete(s *ObjString) bool {
	bucket := t.buckets[s.Hash]
	for i, entry := range bucket {
		if entry != s {
			continue
		}
		bucket = append(bucket[:i], bucket[i+1:]...)
		if len(bucket) == 0 {
			delete(t.buckets, s.Hash)
		} else {
			t.buckets[s.Hash] = bucket
		}
		t.count--
		return true
	}
	return false
}

// Len returns the number of interned strings.
func (t *Table) Len() int {
	return t.count
}

// removeWhite drops every entry whose object was not marked by the collector.
func (t *Table) removeWhite() {
	for hash, bucket := range t.buckets {
		kept := bucket[:0]
		for _, s := range bucket {
			if s.marked {
				kept = append(kept, s)
			}
		}
		t.count -= len(bucket) - len(kept)
		if len(kept) == 0 {
			delete(t.buckets, hash)
		} else {
			t.buckets[hash] = kept
		}
	}
}
