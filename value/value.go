// Package value holds the runtime values the interpreter stores on the heap.
// Values never point to each other directly; they refer to other values by
// Address.
package value

import (
	"fmt"
	"strings"

	"slava0135/shapecheck/ir"
	"slava0135/shapecheck/subtypes"
	"slava0135/shapecheck/symexp"
)

// Address indexes the heap. Non-negative addresses are user-visible values,
// negative addresses are internal bookkeeping that reports filter out.
type Address int64

const (
	// NoAddress is never allocated.
	NoAddress Address = 0
	// ModuleAddress is allocated first in every run and holds the entry
	// module object. Reports walk the heap from here.
	ModuleAddress Address = 1
)

func (a Address) Internal() bool {
	return a < 0
}

func (a Address) String() string {
	return fmt.Sprintf("@%d", int64(a))
}

type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
	KindNone
	KindSize
	KindObject
	KindFunction
	KindType
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "str"
	case KindNone:
		return "None"
	case KindSize:
		return "Size"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	case KindType:
		return "type"
	case KindError:
		return "error"
	default:
		panic(fmt.Sprintf("unknown value kind %d", int(k)))
	}
}

// Type maps a kind onto the builtin type lattice.
func (k Kind) Type() *subtypes.Element {
	switch k {
	case KindInt:
		return subtypes.Int
	case KindFloat:
		return subtypes.Float
	case KindBool:
		return subtypes.Bool
	case KindString:
		return subtypes.Str
	case KindNone:
		return subtypes.None
	case KindSize:
		return subtypes.Size
	case KindObject:
		return subtypes.Object
	case KindFunction:
		return subtypes.Function
	case KindType:
		return subtypes.Type
	case KindError:
		return subtypes.Any
	default:
		panic(fmt.Sprintf("unknown value kind %d", int(k)))
	}
}

type Value interface {
	Kind() Kind
	Pos() *ir.Source
	String() string
}

// IsInstance reports whether the kind of v is t or one of its subclasses.
// Implicit promotion does not count: an int is not an instance of float.
func IsInstance(v Value, t *subtypes.Element) bool {
	return v.Kind().Type().IsSubclassOf(t)
}

type Int struct {
	Num symexp.Num
	Src *ir.Source
}

type Float struct {
	Num symexp.Num
	Src *ir.Source
}

type Bool struct {
	Exp symexp.Bool
	Src *ir.Source
}

type String struct {
	Exp symexp.Str
	Src *ir.Source
}

type None struct {
	Src *ir.Source
}

// Size is a tensor shape.
type Size struct {
	Shape symexp.Shape
	Src   *ir.Source
}

type attr struct {
	name string
	addr Address
}

// Object is an ordered attribute table. It is copied on write so that a
// value read from one heap can be updated and stored without touching
// other heaps that hold the same Object.
type Object struct {
	attrs []attr
	Class Address
	Src   *ir.Source
}

// Scope resolves names captured by a function closure.
type Scope interface {
	Resolve(name string) (Address, bool)
}

type Function struct {
	Name    string
	Params  []string
	Body    ir.Stmt
	Closure Scope
	Src     *ir.Source
}

// Type is a user class. Bases are addresses of other Types.
type Type struct {
	Name  string
	Bases []Address
	Src   *ir.Source
}

type Level int

const (
	LevelWarning Level = iota
	LevelError
	LevelLog
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelLog:
		return "log"
	default:
		panic(fmt.Sprintf("unknown level %d", int(l)))
	}
}

// Error is a diagnostic. It is stored in a path's log and never allocated.
type Error struct {
	Level  Level
	Reason string
	Src    *ir.Source
}

func NewInt(v int64, src *ir.Source) Int {
	return Int{Num: symexp.Int(v), Src: src}
}

func NewFloat(v float64, src *ir.Source) Float {
	return Float{Num: symexp.Float(v), Src: src}
}

func NewBool(v bool, src *ir.Source) Bool {
	return Bool{Exp: symexp.BoolOf(v), Src: src}
}

func NewString(v string, src *ir.Source) String {
	return String{Exp: symexp.Text(v), Src: src}
}

func NewObject(class Address, src *ir.Source) Object {
	return Object{Class: class, Src: src}
}

func (Int) Kind() Kind      { return KindInt }
func (Float) Kind() Kind    { return KindFloat }
func (Bool) Kind() Kind     { return KindBool }
func (String) Kind() Kind   { return KindString }
func (None) Kind() Kind     { return KindNone }
func (Size) Kind() Kind     { return KindSize }
func (Object) Kind() Kind   { return KindObject }
func (Function) Kind() Kind { return KindFunction }
func (Type) Kind() Kind     { return KindType }
func (Error) Kind() Kind    { return KindError }

func (v Int) Pos() *ir.Source      { return v.Src }
func (v Float) Pos() *ir.Source    { return v.Src }
func (v Bool) Pos() *ir.Source     { return v.Src }
func (v String) Pos() *ir.Source   { return v.Src }
func (v None) Pos() *ir.Source     { return v.Src }
func (v Size) Pos() *ir.Source     { return v.Src }
func (v Object) Pos() *ir.Source   { return v.Src }
func (v Function) Pos() *ir.Source { return v.Src }
func (v Type) Pos() *ir.Source     { return v.Src }
func (v Error) Pos() *ir.Source    { return v.Src }

func (v Int) String() string    { return v.Num.String() }
func (v Float) String() string  { return v.Num.String() }
func (v Bool) String() string   { return v.Exp.String() }
func (v String) String() string { return v.Exp.String() }
func (v None) String() string   { return "None" }
func (v Size) String() string   { return fmt.Sprintf("Size(%s)", v.Shape) }

func (v Object) String() string {
	var parts []string
	for _, a := range v.attrs {
		parts = append(parts, fmt.Sprintf("%s: %s", a.name, a.addr))
	}
	if v.Class != NoAddress {
		return fmt.Sprintf("<object %s {%s}>", v.Class, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}

func (v Function) String() string {
	return fmt.Sprintf("<function %s(%s)>", v.Name, strings.Join(v.Params, ", "))
}

func (v Type) String() string {
	return fmt.Sprintf("<class %s>", v.Name)
}

func (v Error) String() string {
	return fmt.Sprintf("%s: %s", v.Level, v.Reason)
}

func (v Object) Attr(name string) (Address, bool) {
	for _, a := range v.attrs {
		if a.name == name {
			return a.addr, true
		}
	}
	return NoAddress, false
}

// SetAttr returns a copy of v with name bound to addr. A new attribute is
// appended; an existing one keeps its position.
func (v Object) SetAttr(name string, addr Address) Object {
	attrs := make([]attr, len(v.attrs), len(v.attrs)+1)
	copy(attrs, v.attrs)
	for i := range attrs {
		if attrs[i].name == name {
			attrs[i].addr = addr
			v.attrs = attrs
			return v
		}
	}
	v.attrs = append(attrs, attr{name: name, addr: addr})
	return v
}

// Attrs returns attribute names in insertion order.
func (v Object) Attrs() []string {
	names := make([]string, 0, len(v.attrs))
	for _, a := range v.attrs {
		names = append(names, a.name)
	}
	return names
}

// Refs lists every address v refers to, in a stable order.
func Refs(v Value) []Address {
	switch v := v.(type) {
	case Object:
		var refs []Address
		if v.Class != NoAddress {
			refs = append(refs, v.Class)
		}
		for _, a := range v.attrs {
			refs = append(refs, a.addr)
		}
		return refs
	case Type:
		return v.Bases
	case Int, Float, Bool, String, None, Size, Function, Error:
		return nil
	default:
		panic(fmt.Sprintf("unknown value %T", v))
	}
}

// Numeric returns the symbolic number held by an int, float or constant bool.
func Numeric(v Value) (symexp.Num, bool) {
	switch v := v.(type) {
	case Int:
		return v.Num, true
	case Float:
		return v.Num, true
	case Bool:
		if b, ok := symexp.Truth(v.Exp); ok {
			if b {
				return symexp.Int(1), true
			}
			return symexp.Int(0), true
		}
	}
	return nil, false
}
