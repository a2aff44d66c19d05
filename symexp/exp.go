package symexp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Sort int

const (
	SortNum Sort = iota
	SortBool
	SortShape
	SortString
)

func (s Sort) String() string {
	switch s {
	case SortNum:
		return "num"
	case SortBool:
		return "bool"
	case SortShape:
		return "shape"
	case SortString:
		return "string"
	default:
		panic(fmt.Sprintf("unknown sort %d", int(s)))
	}
}

// NumType separates integer from floating point numbers. Operations mixing
// both produce floats.
type NumType int

const (
	IntType NumType = iota
	FloatType
)

func (t NumType) String() string {
	if t == FloatType {
		return "float"
	}
	return "int"
}

// Exp is a persistent symbolic expression. Expressions are never mutated
// after construction.
type Exp interface {
	fmt.Stringer
	Sort() Sort
	exp()
}

type Num interface {
	Exp
	Type() NumType
	num()
}

type Bool interface {
	Exp
	boolean()
}

type Shape interface {
	Exp
	shape()
}

type Str interface {
	Exp
	str()
}

type NumOp int

const (
	OpAdd NumOp = iota
	OpSub
	OpMul
	OpTrueDiv
	OpFloorDiv
	OpMod
)

var numOpNames = map[NumOp]string{
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpTrueDiv:  "/",
	OpFloorDiv: "//",
	OpMod:      "%",
}

func (op NumOp) String() string {
	if s, ok := numOpNames[op]; ok {
		return s
	}
	panic(fmt.Sprintf("unknown numeric operator %d", int(op)))
}

type NumUnaryOp int

const (
	OpNeg NumUnaryOp = iota
	OpFloor
	OpCeil
	OpAbs
)

func (op NumUnaryOp) String() string {
	switch op {
	case OpNeg:
		return "neg"
	case OpFloor:
		return "floor"
	case OpCeil:
		return "ceil"
	case OpAbs:
		return "abs"
	default:
		panic(fmt.Sprintf("unknown unary operator %d", int(op)))
	}
}

type CompareOp int

const (
	OpLt CompareOp = iota
	OpLte
	OpEq
	OpNeq
)

func (op CompareOp) String() string {
	switch op {
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	default:
		panic(fmt.Sprintf("unknown comparison %d", int(op)))
	}
}

type NumConst struct {
	Value float64
	T     NumType
}

type NumSymbol struct {
	Name string
	T    NumType
}

type NumBop struct {
	Op    NumOp
	Left  Num
	Right Num
	T     NumType
}

type NumUop struct {
	Op NumUnaryOp
	X  Num
	T  NumType
}

// NumRank is the length (number of dimensions) of a shape.
type NumRank struct {
	Shape Shape
}

// NumDim is a single dimension of a shape.
type NumDim struct {
	Shape Shape
	Index Num
}

// NumNumel is the product of every dimension of a shape.
type NumNumel struct {
	Shape Shape
}

type ShapeConst struct {
	Dims []Num
}

type ShapeSymbol struct {
	Name string
	Rank Num
}

// ShapeSlice is Base[Start:End]. A nil End slices to the end of Base.
type ShapeSlice struct {
	Base  Shape
	Start Num
	End   Num
}

type ShapeConcat struct {
	Left  Shape
	Right Shape
}

// ShapeSet is Base with the dimension at Axis replaced by Dim.
type ShapeSet struct {
	Base Shape
	Axis Num
	Dim  Num
}

type BoolConst struct {
	Value bool
}

type BoolSymbol struct {
	Name string
}

// Compare relates two expressions of the same sort. Ordering is only defined
// for numbers.
type Compare struct {
	Op    CompareOp
	Left  Exp
	Right Exp
}

type BoolNot struct {
	X Bool
}

type BoolAnd struct {
	Left  Bool
	Right Bool
}

type BoolOr struct {
	Left  Bool
	Right Bool
}

type StrConst struct {
	Value string
}

type StrSymbol struct {
	Name string
}

func (NumConst) exp()    {}
func (NumSymbol) exp()   {}
func (NumBop) exp()      {}
func (NumUop) exp()      {}
func (NumRank) exp()     {}
func (NumDim) exp()      {}
func (NumNumel) exp()    {}
func (ShapeConst) exp()  {}
func (ShapeSymbol) exp() {}
func (ShapeSlice) exp()  {}
func (ShapeConcat) exp() {}
func (ShapeSet) exp()    {}
func (BoolConst) exp()   {}
func (BoolSymbol) exp()  {}
func (Compare) exp()     {}
func (BoolNot) exp()     {}
func (BoolAnd) exp()     {}
func (BoolOr) exp()      {}
func (StrConst) exp()    {}
func (StrSymbol) exp()   {}

func (NumConst) num()  {}
func (NumSymbol) num() {}
func (NumBop) num()    {}
func (NumUop) num()    {}
func (NumRank) num()   {}
func (NumDim) num()    {}
func (NumNumel) num()  {}

func (ShapeConst) shape()  {}
func (ShapeSymbol) shape() {}
func (ShapeSlice) shape()  {}
func (ShapeConcat) shape() {}
func (ShapeSet) shape()    {}

func (BoolConst) boolean()  {}
func (BoolSymbol) boolean() {}
func (Compare) boolean()    {}
func (BoolNot) boolean()    {}
func (BoolAnd) boolean()    {}
func (BoolOr) boolean()     {}

func (StrConst) str()  {}
func (StrSymbol) str() {}

func (NumConst) Sort() Sort    { return SortNum }
func (NumSymbol) Sort() Sort   { return SortNum }
func (NumBop) Sort() Sort      { return SortNum }
func (NumUop) Sort() Sort      { return SortNum }
func (NumRank) Sort() Sort     { return SortNum }
func (NumDim) Sort() Sort      { return SortNum }
func (NumNumel) Sort() Sort    { return SortNum }
func (ShapeConst) Sort() Sort  { return SortShape }
func (ShapeSymbol) Sort() Sort { return SortShape }
func (ShapeSlice) Sort() Sort  { return SortShape }
func (ShapeConcat) Sort() Sort { return SortShape }
func (ShapeSet) Sort() Sort    { return SortShape }
func (BoolConst) Sort() Sort   { return SortBool }
func (BoolSymbol) Sort() Sort  { return SortBool }
func (Compare) Sort() Sort     { return SortBool }
func (BoolNot) Sort() Sort     { return SortBool }
func (BoolAnd) Sort() Sort     { return SortBool }
func (BoolOr) Sort() Sort      { return SortBool }
func (StrConst) Sort() Sort    { return SortString }
func (StrSymbol) Sort() Sort   { return SortString }

func (n NumConst) Type() NumType  { return n.T }
func (n NumSymbol) Type() NumType { return n.T }
func (n NumBop) Type() NumType    { return n.T }
func (n NumUop) Type() NumType    { return n.T }
func (NumRank) Type() NumType     { return IntType }
func (NumDim) Type() NumType      { return IntType }
func (NumNumel) Type() NumType    { return IntType }

func formatNum(v float64, t NumType) string {
	if t == IntType {
		return strconv.FormatInt(int64(v), 10)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func (n NumConst) String() string {
	return formatNum(n.Value, n.T)
}

func (n NumSymbol) String() string {
	return n.Name
}

func (n NumBop) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Left, n.Op, n.Right)
}

func (n NumUop) String() string {
	if n.Op == OpNeg {
		return fmt.Sprintf("-%s", n.X)
	}
	return fmt.Sprintf("%s(%s)", n.Op, n.X)
}

func (n NumRank) String() string {
	return fmt.Sprintf("rank(%s)", n.Shape)
}

func (n NumDim) String() string {
	return fmt.Sprintf("%s[%s]", n.Shape, n.Index)
}

func (n NumNumel) String() string {
	return fmt.Sprintf("numel(%s)", n.Shape)
}

func (s ShapeConst) String() string {
	var dims []string
	for _, d := range s.Dims {
		dims = append(dims, d.String())
	}
	return "[" + strings.Join(dims, ", ") + "]"
}

func (s ShapeSymbol) String() string {
	return s.Name
}

func (s ShapeSlice) String() string {
	if s.End == nil {
		return fmt.Sprintf("%s[%s:]", s.Base, s.Start)
	}
	return fmt.Sprintf("%s[%s:%s]", s.Base, s.Start, s.End)
}

func (s ShapeConcat) String() string {
	return fmt.Sprintf("(%s ++ %s)", s.Left, s.Right)
}

func (s ShapeSet) String() string {
	return fmt.Sprintf("%s{%s=%s}", s.Base, s.Axis, s.Dim)
}

func (b BoolConst) String() string {
	return strconv.FormatBool(b.Value)
}

func (b BoolSymbol) String() string {
	return b.Name
}

func (b Compare) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

func (b BoolNot) String() string {
	return fmt.Sprintf("!%s", b.X)
}

func (b BoolAnd) String() string {
	return fmt.Sprintf("(%s && %s)", b.Left, b.Right)
}

func (b BoolOr) String() string {
	return fmt.Sprintf("(%s || %s)", b.Left, b.Right)
}

func (s StrConst) String() string {
	return strconv.Quote(s.Value)
}

func (s StrSymbol) String() string {
	return s.Name
}

// Equal reports whether two expressions are structurally identical. Symbol
// names are unique per analysis run, so the rendered form is a faithful key.
func Equal(a, b Exp) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Sort() == b.Sort() && a.String() == b.String()
}
