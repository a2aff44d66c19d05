package symexp

import "fmt"

// Substitute replaces every free symbol of e named in with by its binding
// and simplifies the result. Bindings must have the sort of the symbol they
// replace.
func Substitute(e Exp, with map[string]Exp) Exp {
	return Simplify(subst(e, with))
}

func subst(e Exp, with map[string]Exp) Exp {
	switch e := e.(type) {
	case Num:
		return substNum(e, with)
	case Shape:
		return substShape(e, with)
	case Bool:
		return substBool(e, with)
	case Str:
		if s, ok := e.(StrSymbol); ok {
			if r, ok := with[s.Name].(Str); ok {
				return r
			}
		}
		return e
	default:
		panic(fmt.Sprintf("unknown expression %T", e))
	}
}

func substNum(n Num, with map[string]Exp) Num {
	switch n := n.(type) {
	case NumConst:
		return n
	case NumSymbol:
		if r, ok := with[n.Name].(Num); ok {
			return r
		}
		return n
	case NumBop:
		return NumBop{Op: n.Op, Left: substNum(n.Left, with), Right: substNum(n.Right, with), T: n.T}
	case NumUop:
		return NumUop{Op: n.Op, X: substNum(n.X, with), T: n.T}
	case NumRank:
		return NumRank{Shape: substShape(n.Shape, with)}
	case NumDim:
		return NumDim{Shape: substShape(n.Shape, with), Index: substNum(n.Index, with)}
	case NumNumel:
		return NumNumel{Shape: substShape(n.Shape, with)}
	default:
		panic(fmt.Sprintf("unknown numeric expression %T", n))
	}
}

func substShape(s Shape, with map[string]Exp) Shape {
	switch s := s.(type) {
	case ShapeConst:
		dims := make([]Num, 0, len(s.Dims))
		for _, d := range s.Dims {
			dims = append(dims, substNum(d, with))
		}
		return ShapeConst{Dims: dims}
	case ShapeSymbol:
		if r, ok := with[s.Name].(Shape); ok {
			return r
		}
		if s.Rank == nil {
			return s
		}
		return ShapeSymbol{Name: s.Name, Rank: substNum(s.Rank, with)}
	case ShapeSlice:
		var end Num
		if s.End != nil {
			end = substNum(s.End, with)
		}
		return ShapeSlice{Base: substShape(s.Base, with), Start: substNum(s.Start, with), End: end}
	case ShapeConcat:
		return ShapeConcat{Left: substShape(s.Left, with), Right: substShape(s.Right, with)}
	case ShapeSet:
		return ShapeSet{Base: substShape(s.Base, with), Axis: substNum(s.Axis, with), Dim: substNum(s.Dim, with)}
	default:
		panic(fmt.Sprintf("unknown shape expression %T", s))
	}
}

func substBool(b Bool, with map[string]Exp) Bool {
	switch b := b.(type) {
	case BoolConst:
		return b
	case BoolSymbol:
		if r, ok := with[b.Name].(Bool); ok {
			return r
		}
		return b
	case Compare:
		return Compare{Op: b.Op, Left: subst(b.Left, with), Right: subst(b.Right, with)}
	case BoolNot:
		return BoolNot{X: substBool(b.X, with)}
	case BoolAnd:
		return BoolAnd{Left: substBool(b.Left, with), Right: substBool(b.Right, with)}
	case BoolOr:
		return BoolOr{Left: substBool(b.Left, with), Right: substBool(b.Right, with)}
	default:
		panic(fmt.Sprintf("unknown boolean expression %T", b))
	}
}
