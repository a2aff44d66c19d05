package symexp

import "fmt"

// Record renders e as nested operator/operand arrays, the solver-neutral form
// used when exporting constraint sets. Every record starts with its operator
// name; operands are either records or plain JSON scalars.
func Record(e Exp) []any {
	switch e := e.(type) {
	case NumConst:
		return []any{"const", e.T.String(), e.Value}
	case NumSymbol:
		return []any{"sym", e.T.String(), e.Name}
	case NumBop:
		return []any{e.Op.String(), Record(e.Left), Record(e.Right)}
	case NumUop:
		return []any{e.Op.String(), Record(e.X)}
	case NumRank:
		return []any{"rank", Record(e.Shape)}
	case NumDim:
		return []any{"dim", Record(e.Shape), Record(e.Index)}
	case NumNumel:
		return []any{"numel", Record(e.Shape)}
	case ShapeConst:
		r := []any{"shape"}
		for _, d := range e.Dims {
			r = append(r, Record(d))
		}
		return r
	case ShapeSymbol:
		var rank any
		if e.Rank != nil {
			rank = Record(e.Rank)
		}
		return []any{"shapesym", e.Name, rank}
	case ShapeSlice:
		var end any
		if e.End != nil {
			end = Record(e.End)
		}
		return []any{"slice", Record(e.Base), Record(e.Start), end}
	case ShapeConcat:
		return []any{"concat", Record(e.Left), Record(e.Right)}
	case ShapeSet:
		return []any{"setdim", Record(e.Base), Record(e.Axis), Record(e.Dim)}
	case BoolConst:
		return []any{"bool", e.Value}
	case BoolSymbol:
		return []any{"boolsym", e.Name}
	case Compare:
		return []any{e.Op.String(), Record(e.Left), Record(e.Right)}
	case BoolNot:
		return []any{"not", Record(e.X)}
	case BoolAnd:
		return []any{"and", Record(e.Left), Record(e.Right)}
	case BoolOr:
		return []any{"or", Record(e.Left), Record(e.Right)}
	case StrConst:
		return []any{"str", e.Value}
	case StrSymbol:
		return []any{"strsym", e.Name}
	default:
		panic(fmt.Sprintf("unknown expression %T", e))
	}
}

// Walk calls fn on e and on every sub-expression of e, parents first.
func Walk(e Exp, fn func(Exp)) {
	if e == nil {
		return
	}
	fn(e)
	switch e := e.(type) {
	case NumConst, NumSymbol, BoolConst, BoolSymbol, StrConst, StrSymbol:
	case NumBop:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case NumUop:
		Walk(e.X, fn)
	case NumRank:
		Walk(e.Shape, fn)
	case NumDim:
		Walk(e.Shape, fn)
		Walk(e.Index, fn)
	case NumNumel:
		Walk(e.Shape, fn)
	case ShapeConst:
		for _, d := range e.Dims {
			Walk(d, fn)
		}
	case ShapeSymbol:
		if e.Rank != nil {
			Walk(e.Rank, fn)
		}
	case ShapeSlice:
		Walk(e.Base, fn)
		Walk(e.Start, fn)
		if e.End != nil {
			Walk(e.End, fn)
		}
	case ShapeConcat:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case ShapeSet:
		Walk(e.Base, fn)
		Walk(e.Axis, fn)
		Walk(e.Dim, fn)
	case Compare:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case BoolNot:
		Walk(e.X, fn)
	case BoolAnd:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case BoolOr:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	default:
		panic(fmt.Sprintf("unknown expression %T", e))
	}
}

// ScanSymbols collects the free symbols of e keyed by name.
func ScanSymbols(e Exp, syms map[string]Exp) {
	Walk(e, func(x Exp) {
		switch x := x.(type) {
		case NumSymbol:
			syms[x.Name] = x
		case ShapeSymbol:
			syms[x.Name] = x
		case BoolSymbol:
			syms[x.Name] = x
		case StrSymbol:
			syms[x.Name] = x
		}
	})
}
