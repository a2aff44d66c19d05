package symexp

import "fmt"

// Simplify rewrites e bottom-up into its normal form. Unlike the public
// comparison builders it folds every comparison whose operands are known.
// Simplify(Simplify(e)) is structurally equal to Simplify(e).
func Simplify(e Exp) Exp {
	switch e := e.(type) {
	case Num:
		return SimplifyNum(e)
	case Bool:
		return SimplifyBool(e)
	case Shape:
		return SimplifyShape(e)
	case Str:
		return e
	default:
		panic(fmt.Sprintf("unknown expression %T", e))
	}
}

func SimplifyNum(n Num) Num {
	switch n := n.(type) {
	case NumConst, NumSymbol:
		return n
	case NumBop:
		return bop(n.Op, SimplifyNum(n.Left), SimplifyNum(n.Right))
	case NumUop:
		return uop(n.Op, SimplifyNum(n.X))
	case NumRank:
		return Rank(SimplifyShape(n.Shape))
	case NumDim:
		return dimOrNode(SimplifyShape(n.Shape), SimplifyNum(n.Index))
	case NumNumel:
		return Numel(SimplifyShape(n.Shape))
	default:
		panic(fmt.Sprintf("unknown numeric expression %T", n))
	}
}

func SimplifyShape(s Shape) Shape {
	switch s := s.(type) {
	case ShapeConst:
		dims := make([]Num, 0, len(s.Dims))
		for _, d := range s.Dims {
			dims = append(dims, SimplifyNum(d))
		}
		return ShapeConst{Dims: dims}
	case ShapeSymbol:
		if s.Rank == nil {
			return s
		}
		return ShapeSymbol{Name: s.Name, Rank: SimplifyNum(s.Rank)}
	case ShapeSlice:
		var end Num
		if s.End != nil {
			end = SimplifyNum(s.End)
		}
		return Slice(SimplifyShape(s.Base), SimplifyNum(s.Start), end)
	case ShapeConcat:
		return Concat(SimplifyShape(s.Left), SimplifyShape(s.Right))
	case ShapeSet:
		return setDimOrNode(SimplifyShape(s.Base), SimplifyNum(s.Axis), SimplifyNum(s.Dim))
	default:
		panic(fmt.Sprintf("unknown shape expression %T", s))
	}
}

func SimplifyBool(b Bool) Bool {
	switch b := b.(type) {
	case BoolConst, BoolSymbol:
		return b
	case Compare:
		return compare(b.Op, Simplify(b.Left), Simplify(b.Right), true)
	case BoolNot:
		return negate(SimplifyBool(b.X), true)
	case BoolAnd:
		return And(SimplifyBool(b.Left), SimplifyBool(b.Right))
	case BoolOr:
		return Or(SimplifyBool(b.Left), SimplifyBool(b.Right))
	default:
		panic(fmt.Sprintf("unknown boolean expression %T", b))
	}
}

// Truth reports the value of b if it simplifies to a constant.
func Truth(b Bool) (value bool, known bool) {
	if c, ok := SimplifyBool(b).(BoolConst); ok {
		return c.Value, true
	}
	return false, false
}
