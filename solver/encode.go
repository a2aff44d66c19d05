package solver

import (
	"fmt"
	"math/big"

	"github.com/aclements/go-z3/z3"

	"slava0135/shapecheck/symexp"
)

// errUnsupported marks an expression the encoder has no sound translation
// for. Constraints containing one are left out of the query.
type errUnsupported struct {
	exp symexp.Exp
}

func (e errUnsupported) Error() string {
	return fmt.Sprintf("can't encode %s", e.exp)
}

// num is an encoded number: exactly one of i and r is set.
type num struct {
	i     z3.Int
	r     z3.Real
	isInt bool
}

func (n num) real() z3.Real {
	if n.isInt {
		return n.i.ToReal()
	}
	return n.r
}

// shape is an encoded shape: a rank and a dimension function.
type shape struct {
	rank z3.Int
	dim  func(i z3.Int) z3.Int
	// dims is set when the rank is a known constant.
	dims []z3.Int
}

type EncodingContext struct {
	*z3.Context

	strings map[string]int64
}

func NewEncodingContext(ctx *z3.Context) *EncodingContext {
	return &EncodingContext{
		Context: ctx,
		strings: make(map[string]int64),
	}
}

func (ctx *EncodingContext) int(v int64) z3.Int {
	return ctx.FromInt(v, ctx.IntSort()).(z3.Int)
}

func (ctx *EncodingContext) realConst(v float64) z3.Real {
	r := new(big.Rat).SetFloat64(v)
	if r == nil {
		panic(errUnsupported{symexp.Float(v)})
	}
	n := ctx.FromBigInt(r.Num(), ctx.RealSort()).(z3.Real)
	if r.IsInt() {
		return n
	}
	return n.Div(ctx.FromBigInt(r.Denom(), ctx.RealSort()).(z3.Real))
}

// EncodeBool translates a predicate. Expressions without a translation are
// reported as an errUnsupported error.
func (ctx *EncodingContext) EncodeBool(b symexp.Bool) (enc z3.Bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			if u, ok := r.(errUnsupported); ok {
				err = u
				return
			}
			panic(r)
		}
	}()
	return ctx.boolean(b), nil
}

func (ctx *EncodingContext) boolean(b symexp.Bool) z3.Bool {
	switch b := b.(type) {
	case symexp.BoolConst:
		return ctx.FromBool(b.Value)
	case symexp.BoolSymbol:
		return ctx.BoolConst(b.Name)
	case symexp.BoolNot:
		return ctx.boolean(b.X).Not()
	case symexp.BoolAnd:
		return ctx.boolean(b.Left).And(ctx.boolean(b.Right))
	case symexp.BoolOr:
		return ctx.boolean(b.Left).Or(ctx.boolean(b.Right))
	case symexp.Compare:
		return ctx.compare(b)
	default:
		panic(fmt.Sprintf("unknown boolean expression %T", b))
	}
}

func (ctx *EncodingContext) compare(c symexp.Compare) z3.Bool {
	switch c.Left.Sort() {
	case symexp.SortNum:
		l, r := ctx.num(c.Left.(symexp.Num)), ctx.num(c.Right.(symexp.Num))
		if l.isInt && r.isInt {
			switch c.Op {
			case symexp.OpLt:
				return l.i.LT(r.i)
			case symexp.OpLte:
				return l.i.LE(r.i)
			case symexp.OpEq:
				return l.i.Eq(r.i)
			case symexp.OpNeq:
				return l.i.NE(r.i)
			}
		}
		lr, rr := l.real(), r.real()
		switch c.Op {
		case symexp.OpLt:
			return lr.LT(rr)
		case symexp.OpLte:
			return lr.LE(rr)
		case symexp.OpEq:
			return lr.Eq(rr)
		case symexp.OpNeq:
			return lr.NE(rr)
		}
	case symexp.SortString:
		l, r := ctx.str(c.Left.(symexp.Str)), ctx.str(c.Right.(symexp.Str))
		if c.Op == symexp.OpEq {
			return l.Eq(r)
		}
		return l.NE(r)
	case symexp.SortShape:
		eq := ctx.shapeEq(c, ctx.shape(c.Left.(symexp.Shape)), ctx.shape(c.Right.(symexp.Shape)))
		if c.Op == symexp.OpEq {
			return eq
		}
		return eq.Not()
	}
	panic(errUnsupported{c})
}

// shapeEq needs both ranks to be constants; element-wise equality of
// symbolic-rank shapes would need quantifiers.
func (ctx *EncodingContext) shapeEq(c symexp.Compare, l, r shape) z3.Bool {
	if l.dims == nil || r.dims == nil {
		panic(errUnsupported{c})
	}
	if len(l.dims) != len(r.dims) {
		return ctx.FromBool(false)
	}
	eq := ctx.FromBool(true)
	for i := range l.dims {
		eq = eq.And(l.dims[i].Eq(r.dims[i]))
	}
	return eq
}

// str maps strings to integers: distinct constants get distinct values.
func (ctx *EncodingContext) str(s symexp.Str) z3.Int {
	switch s := s.(type) {
	case symexp.StrConst:
		id, ok := ctx.strings[s.Value]
		if !ok {
			id = int64(len(ctx.strings))
			ctx.strings[s.Value] = id
		}
		return ctx.int(id)
	case symexp.StrSymbol:
		return ctx.IntConst("str:" + s.Name)
	default:
		panic(fmt.Sprintf("unknown string expression %T", s))
	}
}

func (ctx *EncodingContext) num(n symexp.Num) num {
	switch n := n.(type) {
	case symexp.NumConst:
		if n.T == symexp.IntType {
			return num{i: ctx.int(int64(n.Value)), isInt: true}
		}
		return num{r: ctx.realConst(n.Value)}
	case symexp.NumSymbol:
		if n.T == symexp.IntType {
			return num{i: ctx.IntConst(n.Name), isInt: true}
		}
		return num{r: ctx.Const(n.Name, ctx.RealSort()).(z3.Real)}
	case symexp.NumBop:
		return ctx.bop(n)
	case symexp.NumUop:
		return ctx.uop(n)
	case symexp.NumRank:
		return num{i: ctx.shape(n.Shape).rank, isInt: true}
	case symexp.NumDim:
		s := ctx.shape(n.Shape)
		idx := ctx.num(n.Index)
		if !idx.isInt {
			panic(errUnsupported{n})
		}
		i := idx.i.LT(ctx.int(0)).IfThenElse(idx.i.Add(s.rank), idx.i).(z3.Int)
		return num{i: s.dim(i), isInt: true}
	case symexp.NumNumel:
		s := ctx.shape(n.Shape)
		if s.dims == nil {
			return num{i: ctx.IntConst("numel:" + n.Shape.String()), isInt: true}
		}
		p := ctx.int(1)
		for _, d := range s.dims {
			p = p.Mul(d)
		}
		return num{i: p, isInt: true}
	default:
		panic(fmt.Sprintf("unknown numeric expression %T", n))
	}
}

func (ctx *EncodingContext) bop(n symexp.NumBop) num {
	l, r := ctx.num(n.Left), ctx.num(n.Right)
	if l.isInt && r.isInt && n.Op != symexp.OpTrueDiv {
		switch n.Op {
		case symexp.OpAdd:
			return num{i: l.i.Add(r.i), isInt: true}
		case symexp.OpSub:
			return num{i: l.i.Sub(r.i), isInt: true}
		case symexp.OpMul:
			return num{i: l.i.Mul(r.i), isInt: true}
		case symexp.OpFloorDiv:
			return num{i: l.i.Div(r.i), isInt: true}
		case symexp.OpMod:
			return num{i: l.i.Mod(r.i), isInt: true}
		}
	}
	lr, rr := l.real(), r.real()
	switch n.Op {
	case symexp.OpAdd:
		return num{r: lr.Add(rr)}
	case symexp.OpSub:
		return num{r: lr.Sub(rr)}
	case symexp.OpMul:
		return num{r: lr.Mul(rr)}
	case symexp.OpTrueDiv:
		return num{r: lr.Div(rr)}
	case symexp.OpFloorDiv:
		return num{r: lr.Div(rr).ToInt().ToReal()}
	}
	panic(errUnsupported{n})
}

func (ctx *EncodingContext) uop(n symexp.NumUop) num {
	x := ctx.num(n.X)
	switch n.Op {
	case symexp.OpNeg:
		if x.isInt {
			return num{i: x.i.Neg(), isInt: true}
		}
		return num{r: x.r.Neg()}
	case symexp.OpFloor:
		if x.isInt {
			return x
		}
		return num{i: x.r.ToInt(), isInt: true}
	case symexp.OpCeil:
		if x.isInt {
			return x
		}
		return num{i: x.r.Neg().ToInt().Neg(), isInt: true}
	case symexp.OpAbs:
		if x.isInt {
			return num{i: x.i.GE(ctx.int(0)).IfThenElse(x.i, x.i.Neg()).(z3.Int), isInt: true}
		}
		return num{r: x.r.GE(ctx.realConst(0)).IfThenElse(x.r, x.r.Neg()).(z3.Real)}
	}
	panic(errUnsupported{n})
}

func (ctx *EncodingContext) constShape(dims []z3.Int) shape {
	return shape{
		rank: ctx.int(int64(len(dims))),
		dims: dims,
		dim: func(i z3.Int) z3.Int {
			if len(dims) == 0 {
				return ctx.IntConst("dim:empty")
			}
			out := dims[len(dims)-1]
			for k := len(dims) - 2; k >= 0; k-- {
				out = i.Eq(ctx.int(int64(k))).IfThenElse(dims[k], out).(z3.Int)
			}
			return out
		},
	}
}

// shape encodes s. When the rank of s reduces to a constant the dimensions
// are also listed, which is what equality needs.
func (ctx *EncodingContext) shape(s symexp.Shape) shape {
	out := ctx.shapeOf(s)
	if r, ok := symexp.ConstInt(symexp.Rank(s)); ok && r >= 0 && out.dims == nil {
		out.dims = make([]z3.Int, r)
		for k := range out.dims {
			out.dims[k] = out.dim(ctx.int(int64(k)))
		}
	}
	return out
}

func (ctx *EncodingContext) shapeOf(s symexp.Shape) shape {
	switch s := s.(type) {
	case symexp.ShapeConst:
		dims := make([]z3.Int, 0, len(s.Dims))
		for _, d := range s.Dims {
			dims = append(dims, ctx.num(d).asInt(d))
		}
		return ctx.constShape(dims)
	case symexp.ShapeSymbol:
		var rank z3.Int
		if s.Rank != nil {
			rank = ctx.num(s.Rank).asInt(s.Rank)
		} else {
			rank = ctx.IntConst("rank:" + s.Name)
		}
		decl := ctx.FuncDecl("dim:"+s.Name, []z3.Sort{ctx.IntSort()}, ctx.IntSort())
		return shape{rank: rank, dim: func(i z3.Int) z3.Int {
			return decl.Apply(i).(z3.Int)
		}}
	case symexp.ShapeConcat:
		l, r := ctx.shape(s.Left), ctx.shape(s.Right)
		return shape{rank: l.rank.Add(r.rank), dim: func(i z3.Int) z3.Int {
			return i.LT(l.rank).IfThenElse(l.dim(i), r.dim(i.Sub(l.rank))).(z3.Int)
		}}
	case symexp.ShapeSlice:
		base := ctx.shape(s.Base)
		start := ctx.num(s.Start).asInt(s.Start)
		end := base.rank
		if s.End != nil {
			end = ctx.num(s.End).asInt(s.End)
		}
		return shape{rank: end.Sub(start), dim: func(i z3.Int) z3.Int {
			return base.dim(i.Add(start))
		}}
	case symexp.ShapeSet:
		base := ctx.shape(s.Base)
		axis := ctx.num(s.Axis).asInt(s.Axis)
		d := ctx.num(s.Dim).asInt(s.Dim)
		return shape{rank: base.rank, dim: func(i z3.Int) z3.Int {
			return i.Eq(axis).IfThenElse(d, base.dim(i)).(z3.Int)
		}}
	default:
		panic(fmt.Sprintf("unknown shape expression %T", s))
	}
}

func (n num) asInt(e symexp.Exp) z3.Int {
	if !n.isInt {
		panic(errUnsupported{e})
	}
	return n.i
}
