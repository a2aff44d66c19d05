// Package heap implements the persistent store of a single analysis path.
// Heap and Env are immutable: every update returns a new structure sharing
// untouched nodes with the old one, so forking a path costs nothing.
package heap

import (
	"encoding/binary"
	"fmt"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/emirpasic/gods/sets/linkedhashset"
	iradix "github.com/hashicorp/go-immutable-radix"

	"slava0135/shapecheck/value"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNotFound = Error("address not found")
	ErrUnbound  = Error("name is not bound")
)

// key encodes an address so that byte order matches numeric order, negative
// addresses first.
func key(a value.Address) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(a)^(1<<63))
	return b[:]
}

func address(k []byte) value.Address {
	return value.Address(binary.BigEndian.Uint64(k) ^ (1 << 63))
}

type Heap struct {
	tree         *iradix.Tree
	next         value.Address
	nextInternal value.Address
}

// New returns an empty heap whose first user allocation is
// value.ModuleAddress.
func New() Heap {
	return Heap{tree: iradix.New(), next: value.ModuleAddress, nextInternal: -1}
}

func (h Heap) Alloc(v value.Value) (value.Address, Heap) {
	a := h.next
	h.next++
	return a, h.Set(a, v)
}

// AllocInternal allocates at a negative address.
func (h Heap) AllocInternal(v value.Value) (value.Address, Heap) {
	a := h.nextInternal
	h.nextInternal--
	return a, h.Set(a, v)
}

func (h Heap) Get(a value.Address) (value.Value, error) {
	if h.tree == nil {
		return nil, ErrNotFound
	}
	v, ok := h.tree.Get(key(a))
	if !ok {
		return nil, ErrNotFound
	}
	return v.(value.Value), nil
}

// MustGet is Get for addresses the interpreter itself produced. A missing
// address there is an engine bug.
func (h Heap) MustGet(a value.Address) value.Value {
	v, err := h.Get(a)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", a, err))
	}
	return v
}

func (h Heap) Set(a value.Address, v value.Value) Heap {
	if a == value.NoAddress {
		panic("write to the null address")
	}
	if h.tree == nil {
		h = New()
	}
	h.tree, _, _ = h.tree.Insert(key(a), v)
	if a >= h.next {
		h.next = a + 1
	}
	if a <= h.nextInternal {
		h.nextInternal = a - 1
	}
	return h
}

func (h Heap) Len() int {
	if h.tree == nil {
		return 0
	}
	return h.tree.Len()
}

// Walk visits entries in address order until fn returns false.
func (h Heap) Walk(fn func(value.Address, value.Value) bool) {
	if h.tree == nil {
		return
	}
	h.tree.Root().Walk(func(k []byte, v interface{}) bool {
		return !fn(address(k), v.(value.Value))
	})
}

// Filter returns a heap holding only the entries pred accepts. Allocation
// counters are kept, so the result never hands out an address of the input.
func (h Heap) Filter(pred func(value.Address, value.Value) bool) Heap {
	out := h
	out.tree = iradix.New()
	txn := out.tree.Txn()
	h.Walk(func(a value.Address, v value.Value) bool {
		if pred(a, v) {
			txn.Insert(key(a), v)
		}
		return true
	})
	out.tree = txn.Commit()
	return out
}

// Visible drops internal addresses.
func (h Heap) Visible() Heap {
	return h.Filter(func(a value.Address, _ value.Value) bool {
		return !a.Internal()
	})
}

// Reachable lists addresses reachable from root in breadth-first order.
// Dangling references are skipped.
func (h Heap) Reachable(root value.Address) []value.Address {
	seen := linkedhashset.New()
	queue := linkedlistqueue.New()
	queue.Enqueue(root)
	for !queue.Empty() {
		next, _ := queue.Dequeue()
		a := next.(value.Address)
		if seen.Contains(a) {
			continue
		}
		v, err := h.Get(a)
		if err != nil {
			continue
		}
		seen.Add(a)
		for _, ref := range value.Refs(v) {
			queue.Enqueue(ref)
		}
	}
	out := make([]value.Address, 0, seen.Size())
	for _, a := range seen.Values() {
		out = append(out, a.(value.Address))
	}
	return out
}
