package symexp

import (
	"fmt"
	"math"
)

func Int(v int64) Num {
	return NumConst{Value: float64(v), T: IntType}
}

func Float(v float64) Num {
	return NumConst{Value: v, T: FloatType}
}

func IntSymbol(name string) Num {
	return NumSymbol{Name: name, T: IntType}
}

func FloatSymbol(name string) Num {
	return NumSymbol{Name: name, T: FloatType}
}

func True() Bool {
	return BoolConst{Value: true}
}

func False() Bool {
	return BoolConst{Value: false}
}

func BoolOf(v bool) Bool {
	return BoolConst{Value: v}
}

func Text(v string) Str {
	return StrConst{Value: v}
}

func TextSymbol(name string) Str {
	return StrSymbol{Name: name}
}

func BoolSym(name string) Bool {
	return BoolSymbol{Name: name}
}

// ConstValue returns the value of n if it is a literal.
func ConstValue(n Num) (float64, bool) {
	if c, ok := n.(NumConst); ok {
		return c.Value, true
	}
	return 0, false
}

// ConstInt returns the value of n if it is an integral literal.
func ConstInt(n Num) (int64, bool) {
	c, ok := n.(NumConst)
	if !ok || c.Value != math.Trunc(c.Value) || math.IsInf(c.Value, 0) {
		return 0, false
	}
	return int64(c.Value), true
}

func Add(a, b Num) Num      { return bop(OpAdd, a, b) }
func Sub(a, b Num) Num      { return bop(OpSub, a, b) }
func Mul(a, b Num) Num      { return bop(OpMul, a, b) }
func TrueDiv(a, b Num) Num  { return bop(OpTrueDiv, a, b) }
func FloorDiv(a, b Num) Num { return bop(OpFloorDiv, a, b) }
func Mod(a, b Num) Num      { return bop(OpMod, a, b) }

func Neg(a Num) Num   { return uop(OpNeg, a) }
func Floor(a Num) Num { return uop(OpFloor, a) }
func Ceil(a Num) Num  { return uop(OpCeil, a) }
func Abs(a Num) Num   { return uop(OpAbs, a) }

func isConstValue(n Num, v float64) bool {
	c, ok := n.(NumConst)
	return ok && c.Value == v
}

func binaryType(op NumOp, a, b Num) NumType {
	if op == OpTrueDiv || a.Type() == FloatType || b.Type() == FloatType {
		return FloatType
	}
	return IntType
}

func foldNum(op NumOp, a, b NumConst, t NumType) (Num, bool) {
	x, y := a.Value, b.Value
	var v float64
	switch op {
	case OpAdd:
		v = x + y
	case OpSub:
		v = x - y
	case OpMul:
		v = x * y
	case OpTrueDiv:
		if y == 0 {
			return nil, false
		}
		v = x / y
	case OpFloorDiv:
		if y == 0 {
			return nil, false
		}
		v = math.Floor(x / y)
	case OpMod:
		if y == 0 {
			return nil, false
		}
		// sign follows the divisor
		v = x - y*math.Floor(x/y)
	default:
		panic(fmt.Sprintf("unknown numeric operator %d", int(op)))
	}
	return NumConst{Value: v, T: t}, true
}

func bop(op NumOp, a, b Num) Num {
	t := binaryType(op, a, b)
	ca, aConst := a.(NumConst)
	cb, bConst := b.(NumConst)
	if aConst && bConst {
		if c, ok := foldNum(op, ca, cb, t); ok {
			return c
		}
	}

	switch op {
	case OpAdd:
		if isConstValue(b, 0) && a.Type() == t {
			return a
		}
		if isConstValue(a, 0) && b.Type() == t {
			return b
		}
		if aConst && !bConst {
			return bop(OpAdd, b, a)
		}
		if inner, ok := a.(NumBop); ok && inner.Op == OpAdd && bConst {
			if ic, ok := inner.Right.(NumConst); ok {
				sum, _ := foldNum(OpAdd, ic, cb, binaryType(OpAdd, ic, cb))
				return bop(OpAdd, inner.Left, sum)
			}
		}
	case OpSub:
		if isConstValue(b, 0) && a.Type() == t {
			return a
		}
	case OpMul:
		if isConstValue(b, 1) && a.Type() == t {
			return a
		}
		if isConstValue(a, 1) && b.Type() == t {
			return b
		}
		if t == IntType && (isConstValue(a, 0) || isConstValue(b, 0)) {
			return Int(0)
		}
		if aConst && !bConst {
			return bop(OpMul, b, a)
		}
		if inner, ok := a.(NumBop); ok && inner.Op == OpMul && bConst {
			if ic, ok := inner.Right.(NumConst); ok {
				prod, _ := foldNum(OpMul, ic, cb, binaryType(OpMul, ic, cb))
				return bop(OpMul, inner.Left, prod)
			}
		}
	case OpTrueDiv:
		if isConstValue(b, 1) && a.Type() == FloatType {
			return a
		}
	case OpFloorDiv:
		if isConstValue(b, 1) && t == IntType {
			return a
		}
	}
	return NumBop{Op: op, Left: a, Right: b, T: t}
}

func uop(op NumUnaryOp, a Num) Num {
	t := a.Type()
	if op == OpFloor || op == OpCeil {
		t = IntType
	}
	if c, ok := a.(NumConst); ok {
		switch op {
		case OpNeg:
			return NumConst{Value: -c.Value, T: t}
		case OpFloor:
			return NumConst{Value: math.Floor(c.Value), T: t}
		case OpCeil:
			return NumConst{Value: math.Ceil(c.Value), T: t}
		case OpAbs:
			return NumConst{Value: math.Abs(c.Value), T: t}
		}
	}
	switch op {
	case OpNeg:
		if inner, ok := a.(NumUop); ok && inner.Op == OpNeg {
			return inner.X
		}
	case OpFloor, OpCeil:
		if a.Type() == IntType {
			return a
		}
	case OpAbs:
		if inner, ok := a.(NumUop); ok && inner.Op == OpAbs {
			return inner
		}
	}
	return NumUop{Op: op, X: a, T: t}
}

func isLiteral(e Exp) bool {
	switch e := e.(type) {
	case NumConst, StrConst, BoolConst:
		return true
	case ShapeConst:
		for _, d := range e.Dims {
			if _, ok := d.(NumConst); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func checkComparable(op CompareOp, a, b Exp) {
	if a.Sort() != b.Sort() {
		panic(fmt.Sprintf("cannot compare %s with %s", a.Sort(), b.Sort()))
	}
	if (op == OpLt || op == OpLte) && a.Sort() != SortNum {
		panic(fmt.Sprintf("ordering is not defined for %s", a.Sort()))
	}
	if a.Sort() == SortBool {
		panic("comparison of booleans is not supported")
	}
}

func sameResult(op CompareOp) Bool {
	return BoolOf(op == OpEq || op == OpLte)
}

// compare builds a comparison. Without fold only two identical literals are
// reduced to a constant, every other comparison stays symbolic so it can be
// recorded as a constraint.
func compare(op CompareOp, a, b Exp, fold bool) Bool {
	checkComparable(op, a, b)
	if isLiteral(a) && isLiteral(b) && Equal(a, b) {
		return sameResult(op)
	}
	if !fold {
		return Compare{Op: op, Left: a, Right: b}
	}
	if Equal(a, b) {
		return sameResult(op)
	}
	switch a := a.(type) {
	case NumConst:
		if b, ok := b.(NumConst); ok {
			switch op {
			case OpLt:
				return BoolOf(a.Value < b.Value)
			case OpLte:
				return BoolOf(a.Value <= b.Value)
			case OpEq:
				return BoolOf(a.Value == b.Value)
			case OpNeq:
				return BoolOf(a.Value != b.Value)
			}
		}
	case StrConst:
		if b, ok := b.(StrConst); ok {
			return BoolOf((a.Value == b.Value) == (op == OpEq))
		}
	case ShapeConst:
		if b, ok := b.(ShapeConst); ok {
			if eq, known := shapeConstEq(a, b); known {
				return BoolOf(eq == (op == OpEq))
			}
		}
	}
	return Compare{Op: op, Left: a, Right: b}
}

func shapeConstEq(a, b ShapeConst) (eq bool, known bool) {
	if len(a.Dims) != len(b.Dims) {
		return false, true
	}
	known = true
	for i := range a.Dims {
		if Equal(a.Dims[i], b.Dims[i]) {
			continue
		}
		x, xok := a.Dims[i].(NumConst)
		y, yok := b.Dims[i].(NumConst)
		if xok && yok {
			if x.Value != y.Value {
				return false, true
			}
			continue
		}
		known = false
	}
	return true, known
}

func Lt(a, b Exp) Bool  { return compare(OpLt, a, b, false) }
func Lte(a, b Exp) Bool { return compare(OpLte, a, b, false) }
func Eq(a, b Exp) Bool  { return compare(OpEq, a, b, false) }
func Neq(a, b Exp) Bool { return compare(OpNeq, a, b, false) }
func Gt(a, b Exp) Bool  { return compare(OpLt, b, a, false) }
func Gte(a, b Exp) Bool { return compare(OpLte, b, a, false) }

func negate(b Bool, fold bool) Bool {
	switch b := b.(type) {
	case BoolConst:
		return BoolOf(!b.Value)
	case BoolNot:
		return b.X
	case Compare:
		switch b.Op {
		case OpLt:
			return compare(OpLte, b.Right, b.Left, fold)
		case OpLte:
			return compare(OpLt, b.Right, b.Left, fold)
		case OpEq:
			return compare(OpNeq, b.Left, b.Right, fold)
		case OpNeq:
			return compare(OpEq, b.Left, b.Right, fold)
		}
	}
	return BoolNot{X: b}
}

func Not(b Bool) Bool {
	return negate(b, false)
}

func And(a, b Bool) Bool {
	if c, ok := a.(BoolConst); ok {
		if !c.Value {
			return a
		}
		return b
	}
	if c, ok := b.(BoolConst); ok {
		if !c.Value {
			return b
		}
		return a
	}
	if Equal(a, b) {
		return a
	}
	return BoolAnd{Left: a, Right: b}
}

func Or(a, b Bool) Bool {
	if c, ok := a.(BoolConst); ok {
		if c.Value {
			return a
		}
		return b
	}
	if c, ok := b.(BoolConst); ok {
		if c.Value {
			return b
		}
		return a
	}
	if Equal(a, b) {
		return a
	}
	return BoolOr{Left: a, Right: b}
}
