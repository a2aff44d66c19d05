package constraints

import (
	"context"
	"math"

	"slava0135/shapecheck/symexp"
)

func init() {
	Register("fold", func() Solver { return &Fold{} })
}

// Fold is a solver that needs no external process. It propagates equalities
// between symbols and constants, intersects constant bounds per symbol and
// looks for a predicate next to its own negation. Anything it can't decide
// is Unknown.
type Fold struct {
	init *Init
}

func (f *Fold) Init(init *Init) error {
	f.init = init
	return nil
}

func (f *Fold) logf(format string, v ...interface{}) {
	if f.init != nil && f.init.Debug && f.init.Logf != nil {
		f.init.Logf(format, v...)
	}
}

func conjuncts(b symexp.Bool, out []symexp.Bool) []symexp.Bool {
	if and, ok := b.(symexp.BoolAnd); ok {
		out = conjuncts(and.Left, out)
		return conjuncts(and.Right, out)
	}
	return append(out, b)
}

// binding recognizes sym == const in either order.
func binding(b symexp.Bool) (string, symexp.Exp, bool) {
	cmp, ok := b.(symexp.Compare)
	if !ok || cmp.Op != symexp.OpEq {
		return "", nil, false
	}
	for _, pair := range [][2]symexp.Exp{{cmp.Left, cmp.Right}, {cmp.Right, cmp.Left}} {
		switch sym := pair[0].(type) {
		case symexp.NumSymbol:
			if _, ok := pair[1].(symexp.NumConst); ok {
				return sym.Name, pair[1], true
			}
		case symexp.ShapeSymbol:
			if _, ok := symexp.FetchSize(pair[1].(symexp.Shape)); ok {
				return sym.Name, pair[1], true
			}
		case symexp.StrSymbol:
			if _, ok := pair[1].(symexp.StrConst); ok {
				return sym.Name, pair[1], true
			}
		}
	}
	return "", nil, false
}

func (f *Fold) Check(ctx context.Context, items []Constraint) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Unknown, err
	}
	var preds []symexp.Bool
	for _, c := range items {
		preds = conjuncts(symexp.SimplifyBool(c.Exp), preds)
	}

	bindings := make(map[string]symexp.Exp)
	for changed := true; changed; {
		changed = false
		for i, p := range preds {
			if len(bindings) > 0 {
				p = symexp.Substitute(p, bindings).(symexp.Bool)
				preds[i] = p
			}
			if v, ok := p.(symexp.BoolConst); ok && !v.Value {
				f.logf("fold: predicate %d is false", i)
				return Unsat, nil
			}
			if name, e, ok := binding(p); ok {
				if _, bound := bindings[name]; !bound {
					bindings[name] = e
					changed = true
				}
			}
		}
	}

	all := true
	for _, p := range preds {
		if v, ok := p.(symexp.BoolConst); !ok || !v.Value {
			all = false
			break
		}
	}
	if all {
		return Sat, nil
	}

	for i, p := range preds {
		neg := symexp.SimplifyBool(symexp.Not(p))
		for _, q := range preds[i+1:] {
			if symexp.Equal(neg, q) {
				f.logf("fold: %s contradicts %s", p, q)
				return Unsat, nil
			}
		}
	}

	bounds := make(map[string]*interval)
	for _, p := range preds {
		name, iv, ok := boundOf(p)
		if !ok {
			continue
		}
		if cur, exists := bounds[name]; exists {
			cur.intersect(iv)
		} else {
			bounds[name] = &iv
		}
		if bounds[name].empty() {
			f.logf("fold: no value of %s satisfies every bound", name)
			return Unsat, nil
		}
	}
	return Unknown, nil
}

type interval struct {
	lo, hi         float64
	loOpen, hiOpen bool
}

func unbounded() interval {
	return interval{lo: math.Inf(-1), hi: math.Inf(1)}
}

func (iv *interval) intersect(o interval) {
	if o.lo > iv.lo || (o.lo == iv.lo && o.loOpen) {
		iv.lo, iv.loOpen = o.lo, o.loOpen
	}
	if o.hi < iv.hi || (o.hi == iv.hi && o.hiOpen) {
		iv.hi, iv.hiOpen = o.hi, o.hiOpen
	}
}

func (iv *interval) empty() bool {
	if iv.lo > iv.hi {
		return true
	}
	return iv.lo == iv.hi && (iv.loOpen || iv.hiOpen)
}

// boundOf turns sym < c, sym <= c, c < sym and c <= sym into an interval.
// Integer symbols get closed bounds.
func boundOf(b symexp.Bool) (string, interval, bool) {
	cmp, ok := b.(symexp.Compare)
	if !ok || (cmp.Op != symexp.OpLt && cmp.Op != symexp.OpLte) {
		return "", interval{}, false
	}
	iv := unbounded()
	open := cmp.Op == symexp.OpLt
	if sym, ok := cmp.Left.(symexp.NumSymbol); ok {
		c, ok := cmp.Right.(symexp.NumConst)
		if !ok {
			return "", interval{}, false
		}
		iv.hi, iv.hiOpen = c.Value, open
		if sym.T == symexp.IntType && open {
			iv.hi, iv.hiOpen = math.Ceil(c.Value)-1, false
		} else if sym.T == symexp.IntType {
			iv.hi = math.Floor(c.Value)
		}
		return sym.Name, iv, true
	}
	if sym, ok := cmp.Right.(symexp.NumSymbol); ok {
		c, ok := cmp.Left.(symexp.NumConst)
		if !ok {
			return "", interval{}, false
		}
		iv.lo, iv.loOpen = c.Value, open
		if sym.T == symexp.IntType && open {
			iv.lo, iv.loOpen = math.Floor(c.Value)+1, false
		} else if sym.T == symexp.IntType {
			iv.lo = math.Ceil(c.Value)
		}
		return sym.Name, iv, true
	}
	return "", interval{}, false
}
