package subtypes

import (
	"github.com/emirpasic/gods/stacks/arraystack"
)

// Element is a node of the builtin type lattice. uppers are direct
// superclasses; castTo is the type a value is implicitly promoted to.
type Element struct {
	name   string
	uppers []*Element
	castTo *Element
}

var (
	Any = &Element{name: "object"}

	Number = &Element{name: "number"}
	Bool   = &Element{name: "bool"}
	Int    = &Element{name: "int"}
	Float  = &Element{name: "float"}

	Str      = &Element{name: "str"}
	None     = &Element{name: "NoneType"}
	Size     = &Element{name: "Size"}
	Object   = &Element{name: "instance"}
	Callable = &Element{name: "callable"}
	Function = &Element{name: "function"}
	Type     = &Element{name: "type"}

	All = []*Element{Any, Number, Bool, Int, Float, Str, None, Size, Object, Callable, Function, Type}
)

func init() {
	Number.uppers = []*Element{Any}
	Int.uppers = []*Element{Number}
	Float.uppers = []*Element{Number}
	Bool.uppers = []*Element{Int}

	Str.uppers = []*Element{Any}
	None.uppers = []*Element{Any}
	Size.uppers = []*Element{Any}
	Object.uppers = []*Element{Any}
	Callable.uppers = []*Element{Any}
	Function.uppers = []*Element{Callable}
	Type.uppers = []*Element{Callable}

	Int.castTo = Float
}

func (e *Element) String() string {
	return e.name
}

// Lookup finds a builtin type by name.
func Lookup(name string) (*Element, bool) {
	for _, e := range All {
		if e.name == name {
			return e, true
		}
	}
	return nil, false
}

func (e *Element) IsSubclassOf(other *Element) bool {
	if e == other {
		return true
	}
	stack := arraystack.New()
	for _, u := range e.uppers {
		stack.Push(u)
	}
	for !stack.Empty() {
		v, _ := stack.Pop()
		next := v.(*Element)
		if next == other {
			return true
		}
		for _, u := range next.uppers {
			stack.Push(u)
		}
	}
	return false
}

// IsSubtypeOf is IsSubclassOf extended with implicit promotion, so an int is
// accepted where a float is expected.
func (e *Element) IsSubtypeOf(other *Element) bool {
	if e.IsSubclassOf(other) {
		return true
	}
	stack := arraystack.New()
	stack.Push(e)
	for !stack.Empty() {
		v, _ := stack.Pop()
		next := v.(*Element)
		if next.castTo != nil && next.castTo.IsSubtypeOf(other) {
			return true
		}
		for _, u := range next.uppers {
			stack.Push(u)
		}
	}
	return false
}

// Join returns the narrowest element both a and b are subtypes of.
func Join(a, b *Element) *Element {
	if a.IsSubtypeOf(b) {
		return b
	}
	if b.IsSubtypeOf(a) {
		return a
	}
	var queue []*Element
	queue = append(queue, a.uppers...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if b.IsSubtypeOf(next) {
			return next
		}
		queue = append(queue, next.uppers...)
	}
	return Any
}
