package symexec

import (
	"context"
	"errors"
	"fmt"

	"slava0135/shapecheck/ir"
	"slava0135/shapecheck/symexp"
	"slava0135/shapecheck/value"
)

// eval evaluates e on c. Every active successor holds the address of the
// value in its result.
func (rt *Runtime) eval(ctx context.Context, c Context, e ir.Expr) []Context {
	if !c.active() {
		return []Context{c}
	}
	switch e := e.(type) {
	case *ir.Const:
		return []Context{c.Return(constant(e))}
	case *ir.Name:
		a, ok := c.resolve(e.ID)
		if !ok {
			return []Context{c.Fail(fmt.Sprintf("name '%s' is not defined", e.ID), e.Src)}
		}
		return []Context{c.SetResult(a)}
	case *ir.Attr:
		return mapActive(rt.eval(ctx, c, e.X), func(c Context) []Context {
			return []Context{getAttr(c, c.Get(c.result), e.Name, e.Src)}
		})
	case *ir.Call:
		return rt.evalCall(ctx, c, e)
	case *ir.LibCall:
		return rt.evalArgs(ctx, c, e.Args, func(c Context, args []value.Address) []Context {
			if rt.Library == nil {
				return []Context{c.Fail(fmt.Sprintf("unknown library function LibCall.%s.%s", e.Module, e.Name), e.Src)}
			}
			fn, ok := rt.Library.Lookup(e.Module, e.Name)
			if !ok {
				return []Context{c.Fail(fmt.Sprintf("unknown library function LibCall.%s.%s", e.Module, e.Name), e.Src)}
			}
			return fn(ctx, c, args, e.Src)
		})
	case *ir.BinOp:
		return rt.evalArgs(ctx, c, []ir.Expr{e.Left, e.Right}, func(c Context, args []value.Address) []Context {
			return []Context{binary(ctx, c, e.Op, c.Get(args[0]), c.Get(args[1]), e.Src)}
		})
	case *ir.Compare:
		return rt.evalArgs(ctx, c, []ir.Expr{e.Left, e.Right}, func(c Context, args []value.Address) []Context {
			return []Context{compareValues(c, e.Op, args[0], args[1], e.Src)}
		})
	case *ir.BoolOp:
		return rt.evalBoolOp(ctx, c, e)
	case *ir.Not:
		return mapActive(rt.eval(ctx, c, e.X), func(c Context) []Context {
			return []Context{c.Return(value.Bool{Exp: symexp.Not(truth(c.Get(c.result))), Src: e.Src})}
		})
	case *ir.Neg:
		return mapActive(rt.eval(ctx, c, e.X), func(c Context) []Context {
			v := c.Get(c.result)
			n, ok := value.Numeric(v)
			if !ok {
				return []Context{c.Fail(fmt.Sprintf("bad operand type for unary -: '%s'", v.Kind()), e.Src)}
			}
			return []Context{c.Return(numValue(symexp.Neg(n), e.Src))}
		})
	case *ir.Len:
		return mapActive(rt.eval(ctx, c, e.X), func(c Context) []Context {
			return []Context{length(ctx, c, c.Get(c.result), e.Src)}
		})
	case *ir.ShapeLit:
		return rt.evalArgs(ctx, c, e.Dims, func(c Context, args []value.Address) []Context {
			return []Context{shapeLit(ctx, c, args, e.Src)}
		})
	case *ir.Index:
		return rt.evalArgs(ctx, c, []ir.Expr{e.X, e.Index}, func(c Context, args []value.Address) []Context {
			return []Context{index(c, c.Get(args[0]), c.Get(args[1]), e.Src)}
		})
	case *ir.Symbol:
		return rt.evalSymbol(ctx, c, e)
	case *ir.NewObject:
		if e.Class == "" {
			return []Context{c.Return(value.NewObject(value.NoAddress, e.Src))}
		}
		a, ok := c.resolve(e.Class)
		if !ok {
			return []Context{c.Fail(fmt.Sprintf("name '%s' is not defined", e.Class), e.Src)}
		}
		if _, ok := c.Get(a).(value.Type); !ok {
			return []Context{c.Fail(fmt.Sprintf("'%s' is not a class", e.Class), e.Src)}
		}
		return []Context{c.Return(value.NewObject(a, e.Src))}
	default:
		panic(fmt.Sprintf("unknown expression %T", e))
	}
}

// evalArgs evaluates es left to right on every path and hands the addresses
// of the results to k.
func (rt *Runtime) evalArgs(ctx context.Context, c Context, es []ir.Expr, k func(Context, []value.Address) []Context) []Context {
	if len(es) == 0 {
		return k(c, nil)
	}
	return mapActive(rt.eval(ctx, c, es[0]), func(c Context) []Context {
		head := c.result
		return rt.evalArgs(ctx, c, es[1:], func(c Context, rest []value.Address) []Context {
			return k(c, append([]value.Address{head}, rest...))
		})
	})
}

func constant(e *ir.Const) value.Value {
	switch e.Kind {
	case ir.ConstInt:
		return value.NewInt(e.Int, e.Src)
	case ir.ConstFloat:
		return value.NewFloat(e.Float, e.Src)
	case ir.ConstBool:
		return value.NewBool(e.Bool, e.Src)
	case ir.ConstString:
		return value.NewString(e.Str, e.Src)
	case ir.ConstNone:
		return value.None{Src: e.Src}
	default:
		panic(fmt.Sprintf("unknown constant kind %d", int(e.Kind)))
	}
}

func numValue(n symexp.Num, src *ir.Source) value.Value {
	if n.Type() == symexp.FloatType {
		return value.Float{Num: n, Src: src}
	}
	return value.Int{Num: n, Src: src}
}

func getAttr(c Context, v value.Value, name string, src *ir.Source) Context {
	switch v := v.(type) {
	case value.Object:
		if a, ok := v.Attr(name); ok {
			return c.SetResult(a)
		}
	case value.Size:
		if name == "rank" {
			return c.Return(value.Int{Num: symexp.Rank(v.Shape), Src: src})
		}
	}
	return c.Fail(fmt.Sprintf("'%s' object has no attribute '%s'", v.Kind(), name), src)
}

func (rt *Runtime) evalCall(ctx context.Context, c Context, e *ir.Call) []Context {
	return rt.evalArgs(ctx, c, append([]ir.Expr{e.Func}, e.Args...), func(c Context, args []value.Address) []Context {
		switch fn := c.Get(args[0]).(type) {
		case value.Function:
			return rt.call(ctx, c, fn, args[1:], e.Src)
		case value.Type:
			if len(args) > 1 {
				return []Context{c.Fail(fmt.Sprintf("%s() takes no arguments", fn.Name), e.Src)}
			}
			return []Context{c.Return(value.NewObject(args[0], e.Src))}
		default:
			return []Context{c.Fail(fmt.Sprintf("'%s' object is not callable", fn.Kind()), e.Src)}
		}
	})
}

// evalBoolOp short-circuits on a left operand of known truth. With an
// unknown left operand two booleans are combined symbolically; any other
// operands fork the path.
func (rt *Runtime) evalBoolOp(ctx context.Context, c Context, e *ir.BoolOp) []Context {
	isAnd := e.Op == "and"
	return mapActive(rt.eval(ctx, c, e.Left), func(c Context) []Context {
		left := c.result
		lv := c.Get(left)
		cond := truth(lv)
		if t, known := symexp.Truth(cond); known {
			if t != isAnd {
				return []Context{c}
			}
			return rt.eval(ctx, c, e.Right)
		}
		return mapActive(rt.eval(ctx, c, e.Right), func(c Context) []Context {
			if r, ok := c.Get(c.result).(value.Bool); ok {
				if l, ok := lv.(value.Bool); ok {
					exp := symexp.Or(l.Exp, r.Exp)
					if isAnd {
						exp = symexp.And(l.Exp, r.Exp)
					}
					return []Context{c.Return(value.Bool{Exp: exp, Src: e.Src})}
				}
			}
			right := c.result
			taken, other := symexp.Not(cond), cond
			if isAnd {
				taken, other = cond, symexp.Not(cond)
			}
			// taken selects the right operand.
			return []Context{
				c.Assume(ctx, taken, e.Src).SetResult(right),
				c.Assume(ctx, other, e.Src).SetResult(left),
			}
		})
	})
}

func length(ctx context.Context, c Context, v value.Value, src *ir.Source) Context {
	switch v := v.(type) {
	case value.Size:
		return c.Return(value.Int{Num: symexp.Rank(v.Shape), Src: src})
	case value.String:
		if s, ok := v.Exp.(symexp.StrConst); ok {
			return c.Return(value.NewInt(int64(len(s.Value)), src))
		}
		name, c := c.FreshName("len")
		n := symexp.IntSymbol(name)
		return c.Guarantee(ctx, symexp.Lte(symexp.Int(0), n), "length is non-negative", src).
			Return(value.Int{Num: n, Src: src})
	default:
		return c.Fail(fmt.Sprintf("object of type '%s' has no len()", v.Kind()), src)
	}
}

// shapeLit builds a Size. Symbolic dimensions are guaranteed to be
// non-negative.
func shapeLit(ctx context.Context, c Context, args []value.Address, src *ir.Source) Context {
	dims := make([]symexp.Num, 0, len(args))
	for _, a := range args {
		v := c.Get(a)
		n, ok := value.Numeric(v)
		if !ok || n.Type() != symexp.IntType {
			return c.Fail(fmt.Sprintf("shape dimension must be an int, got '%s'", v.Kind()), src)
		}
		if _, known := symexp.ConstInt(n); !known {
			c = c.Guarantee(ctx, symexp.Lte(symexp.Int(0), n), "dimension is non-negative", src)
		}
		dims = append(dims, n)
	}
	return c.Return(value.Size{Shape: symexp.ShapeOf(dims...), Src: src})
}

func index(c Context, x, i value.Value, src *ir.Source) Context {
	s, ok := x.(value.Size)
	if !ok {
		return c.Fail(fmt.Sprintf("'%s' object is not subscriptable", x.Kind()), src)
	}
	n, ok := value.Numeric(i)
	if !ok || n.Type() != symexp.IntType {
		return c.Fail(fmt.Sprintf("shape indices must be integers, not '%s'", i.Kind()), src)
	}
	d, err := symexp.Dim(s.Shape, n)
	if errors.Is(err, symexp.ErrIndexOutOfRange) {
		return c.Fail(err.Error(), src)
	}
	if err != nil {
		panic(err)
	}
	return c.Return(value.Int{Num: d, Src: src})
}

func (rt *Runtime) evalSymbol(ctx context.Context, c Context, e *ir.Symbol) []Context {
	name, c := c.FreshName(e.Name)
	switch e.Kind {
	case ir.SymbolInt:
		return []Context{c.Return(value.Int{Num: symexp.IntSymbol(name), Src: e.Src})}
	case ir.SymbolFloat:
		return []Context{c.Return(value.Float{Num: symexp.FloatSymbol(name), Src: e.Src})}
	case ir.SymbolShape:
		if e.Rank == nil {
			return []Context{c.Return(value.Size{Shape: symexp.NewShapeSymbol(name, nil), Src: e.Src})}
		}
		return mapActive(rt.eval(ctx, c, e.Rank), func(c Context) []Context {
			v := c.Get(c.result)
			rank, ok := value.Numeric(v)
			if !ok || rank.Type() != symexp.IntType {
				return []Context{c.Fail(fmt.Sprintf("rank must be an int, got '%s'", v.Kind()), e.Src)}
			}
			if r, known := symexp.ConstInt(rank); known && r < 0 {
				return []Context{c.Fail(fmt.Sprintf("negative rank %d", r), e.Src)}
			}
			if _, known := symexp.ConstInt(rank); !known {
				c = c.Guarantee(ctx, symexp.Lte(symexp.Int(0), rank), "rank is non-negative", e.Src)
			}
			return []Context{c.Return(value.Size{Shape: symexp.NewShapeSymbol(name, rank), Src: e.Src})}
		})
	default:
		panic(fmt.Sprintf("unknown symbol kind %d", int(e.Kind)))
	}
}
