package swiss

import (
	"iter"

	"github.com/hupe1980/swissalloc/internal/simd"
)

// Iterator is a cursor over the entries of a Table in slot order.
// It does not see a consistent snapshot if the table is modified while
// iterating.
type Iterator[K comparable, V any] struct {
	t    *Table[K, V]
	next int // next group to load
	base int // group the mask belongs to
	mask simd.Mask
}

// Iter returns a new cursor positioned before the first slot.
func (t *Table[K, V]) Iter() *Iterator[K, V] {
	t.checkLive("swiss.Iter")
	return &Iterator[K, V]{t: t}
}

// Next returns references to the next present key and value. ok is false
// once every slot has been visited.
func (it *Iterator[K, V]) Next() (key *K, value *V, ok bool) {
	for !it.mask.Any() {
		if it.next >= it.t.capacity {
			return nil, nil, false
		}
		it.base = it.next
		it.mask = simd.PresentMask(it.t.ctrl[it.next : it.next+GroupWidth])
		it.next += GroupWidth
	}

	e := &it.t.entries[it.base+it.mask.Lowest()]
	it.mask = it.mask.ClearLowest()
	return &e.key, &e.value, true
}

// All returns a restartable sequence of references to every entry.
//
//	for k, v := range t.All() {
//	    fmt.Println(*k, *v)
//	}
func (t *Table[K, V]) All() iter.Seq2[*K, *V] {
	return func(yield func(*K, *V) bool) {
		it := t.Iter()
		for k, v, ok := it.Next(); ok; k, v, ok = it.Next() {
			if !yield(k, v) {
				return
			}
		}
	}
}
