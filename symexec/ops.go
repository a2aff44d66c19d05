package symexec

import (
	"context"
	"fmt"

	"slava0135/shapecheck/ir"
	"slava0135/shapecheck/subtypes"
	"slava0135/shapecheck/symexp"
	"slava0135/shapecheck/value"
)

func unsupported(op string, l, r value.Value) string {
	return fmt.Sprintf("unsupported operand type(s) for %s: '%s' and '%s'", op, l.Kind(), r.Kind())
}

// numericType is the type of an arithmetic result. Bools count as ints.
func numericType(l, r value.Value) *subtypes.Element {
	if subtypes.Join(l.Kind().Type(), r.Kind().Type()) == subtypes.Float {
		return subtypes.Float
	}
	return subtypes.Int
}

func binary(ctx context.Context, c Context, op string, l, r value.Value, src *ir.Source) Context {
	if ls, ok := l.(value.Size); ok {
		if rs, ok := r.(value.Size); ok && (op == "++" || op == "+") {
			return c.Return(value.Size{Shape: symexp.Concat(ls.Shape, rs.Shape), Src: src})
		}
		return c.Fail(unsupported(op, l, r), src)
	}
	if ls, ok := l.(value.String); ok {
		if rs, ok := r.(value.String); ok && op == "+" {
			return concatStrings(c, ls, rs, src)
		}
		return c.Fail(unsupported(op, l, r), src)
	}

	a, aok := value.Numeric(l)
	b, bok := value.Numeric(r)
	if !aok || !bok {
		return c.Fail(unsupported(op, l, r), src)
	}
	isInt := numericType(l, r) == subtypes.Int
	if !isInt {
		a, b = toFloat(a), toFloat(b)
	}

	var n symexp.Num
	switch op {
	case "+":
		n = symexp.Add(a, b)
	case "-":
		n = symexp.Sub(a, b)
	case "*":
		n = symexp.Mul(a, b)
	case "/", "//", "%":
		if d, known := symexp.ConstValue(b); known && d == 0 {
			return c.Fail("division by zero", src)
		}
		if _, known := symexp.ConstValue(b); !known {
			c = c.Require(ctx, symexp.Neq(b, zeroOf(b)), "division by zero", src)
			if !c.Running() {
				return c
			}
		}
		switch op {
		case "/":
			n = symexp.TrueDiv(toFloat(a), toFloat(b))
		case "//":
			n = symexp.FloorDiv(a, b)
		default:
			n = symexp.Mod(a, b)
		}
	default:
		return c.Fail(unsupported(op, l, r), src)
	}
	return c.Return(numValue(n, src))
}

func zeroOf(n symexp.Num) symexp.Num {
	if n.Type() == symexp.FloatType {
		return symexp.Float(0)
	}
	return symexp.Int(0)
}

// toFloat promotes an int expression. Constants are converted in place.
func toFloat(n symexp.Num) symexp.Num {
	if n.Type() == symexp.FloatType {
		return n
	}
	if v, ok := symexp.ConstValue(n); ok {
		return symexp.Float(v)
	}
	return symexp.Mul(symexp.Float(1), n)
}

func concatStrings(c Context, l, r value.String, src *ir.Source) Context {
	a, aok := l.Exp.(symexp.StrConst)
	b, bok := r.Exp.(symexp.StrConst)
	if aok && bok {
		return c.Return(value.NewString(a.Value+b.Value, src))
	}
	name, c := c.FreshName("str")
	return c.Return(value.String{Exp: symexp.TextSymbol(name), Src: src})
}

// compareValues builds the comparison of two values. Ordering needs numbers;
// equality also relates strings, shapes and None. Objects, functions and
// types are equal only to themselves. Values of unrelated kinds are never
// equal.
func compareValues(c Context, op string, la, ra value.Address, src *ir.Source) Context {
	ordered := op == "<" || op == "<=" || op == ">" || op == ">="
	l, r := c.Get(la), c.Get(ra)

	var a, b symexp.Exp
	if x, ok := value.Numeric(l); ok {
		if y, ok := value.Numeric(r); ok {
			a, b = x, y
		}
	}
	if a == nil && !ordered {
		switch x := l.(type) {
		case value.String:
			if y, ok := r.(value.String); ok {
				a, b = x.Exp, y.Exp
			}
		case value.Size:
			if y, ok := r.(value.Size); ok {
				a, b = x.Shape, y.Shape
			}
		case value.Bool:
			if y, ok := r.(value.Bool); ok {
				eq := symexp.Or(symexp.And(x.Exp, y.Exp), symexp.And(symexp.Not(x.Exp), symexp.Not(y.Exp)))
				if op == "!=" {
					eq = symexp.Not(eq)
				}
				return c.Return(value.Bool{Exp: eq, Src: src})
			}
		}
	}
	if a == nil {
		if ordered {
			return c.Fail(fmt.Sprintf("'%s' not supported between instances of '%s' and '%s'", op, l.Kind(), r.Kind()), src)
		}
		var same bool
		switch l.(type) {
		case value.None:
			_, same = r.(value.None)
		case value.Object, value.Function, value.Type:
			same = la == ra
		}
		if op == "!=" {
			same = !same
		}
		return c.Return(value.NewBool(same, src))
	}

	var exp symexp.Bool
	switch op {
	case "<":
		exp = c.GenLt(a, b)
	case "<=":
		exp = c.GenLte(a, b)
	case ">":
		exp = c.GenLt(b, a)
	case ">=":
		exp = c.GenLte(b, a)
	case "==":
		exp = c.GenEq(a, b)
	case "!=":
		exp = c.GenNeq(a, b)
	default:
		panic(fmt.Sprintf("unknown comparison %q", op))
	}
	return c.Return(value.Bool{Exp: exp, Src: src})
}
