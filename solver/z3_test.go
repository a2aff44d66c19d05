package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slava0135/shapecheck/constraints"
	"slava0135/shapecheck/symexp"
)

func newZ3(t *testing.T) constraints.Solver {
	t.Helper()
	s, err := constraints.Lookup("z3")
	require.NoError(t, err)
	require.NoError(t, s.Init(&constraints.Init{Debug: true, Logf: t.Logf}))
	return s
}

func check(t *testing.T, s constraints.Solver, set constraints.Set) constraints.Verdict {
	t.Helper()
	v, err := s.Check(context.Background(), set.Items())
	require.NoError(t, err)
	return v
}

func TestZ3_Numbers(t *testing.T) {
	x, y := symexp.IntSymbol("x"), symexp.IntSymbol("y")
	s := newZ3(t)

	set := constraints.Set{}.Require(symexp.Lt(x, y), "", nil)
	assert.Equal(t, constraints.Sat, check(t, s, set))

	set = set.Require(symexp.Lt(y, symexp.Add(x, symexp.Int(1))), "", nil)
	assert.Equal(t, constraints.Unsat, check(t, s, set))

	f := symexp.FloatSymbol("f")
	set = constraints.Set{}.
		Require(symexp.Lt(f, symexp.Float(0.5)), "", nil).
		Require(symexp.Lt(symexp.Float(0.25), f), "", nil)
	assert.Equal(t, constraints.Sat, check(t, s, set))

	set = set.Require(symexp.Eq(symexp.Floor(f), symexp.Int(1)), "", nil)
	assert.Equal(t, constraints.Unsat, check(t, s, set))
}

func TestZ3_Shapes(t *testing.T) {
	s := newZ3(t)
	sym := symexp.NewShapeSymbol("S", symexp.Int(2))
	n := symexp.IntSymbol("n")

	set := constraints.Set{}.
		Require(symexp.Eq(sym, symexp.ShapeOf(symexp.Int(3), n)), "", nil).
		Require(symexp.Eq(symexp.NumDim{Shape: sym, Index: symexp.Int(-1)}, symexp.Int(7)), "", nil)
	assert.Equal(t, constraints.Sat, check(t, s, set))

	set = set.Require(symexp.Lt(n, symexp.Int(5)), "", nil)
	assert.Equal(t, constraints.Unsat, check(t, s, set))

	cat := symexp.Concat(symexp.ShapeOfInts(1), symexp.NewShapeSymbol("T", nil))
	set = constraints.Set{}.
		Require(symexp.Eq(symexp.Rank(cat), symexp.Int(3)), "", nil).
		Require(symexp.Lt(symexp.Rank(symexp.NewShapeSymbol("T", nil)), symexp.Int(2)), "", nil)
	assert.Equal(t, constraints.Unsat, check(t, s, set))
}

func TestZ3_Strings(t *testing.T) {
	s := newZ3(t)
	name := symexp.TextSymbol("name")
	set := constraints.Set{}.
		Require(symexp.Eq(name, symexp.Text("a")), "", nil).
		Require(symexp.Eq(name, symexp.Text("b")), "", nil)
	assert.Equal(t, constraints.Unsat, check(t, s, set))
}

func TestZ3_UnsupportedIsUnknown(t *testing.T) {
	s := newZ3(t)
	a := symexp.NewShapeSymbol("A", nil)
	b := symexp.NewShapeSymbol("B", nil)
	set := constraints.Set{}.Require(symexp.Eq(a, b), "", nil)
	assert.Equal(t, constraints.Unknown, check(t, s, set))

	set = set.Require(symexp.BoolOf(false), "", nil)
	assert.Equal(t, constraints.Unsat, check(t, s, set))
}

// Forked paths share a prefix; checking one must not leak into the other.
func TestZ3_Incremental(t *testing.T) {
	s := newZ3(t)
	x := symexp.IntSymbol("x")
	base := constraints.Set{}.Require(symexp.Lt(symexp.Int(0), x), "", nil)
	left := base.Assume(symexp.Lt(x, symexp.Int(1)), "", nil)
	right := base.Assume(symexp.Lt(x, symexp.Int(3)), "", nil)

	assert.Equal(t, constraints.Unsat, check(t, s, left))
	assert.Equal(t, constraints.Sat, check(t, s, right))
	assert.Equal(t, constraints.Unsat, check(t, s, left))
	assert.Equal(t, constraints.Sat, check(t, s, base))
}

func TestZ3_DeferredCulprit(t *testing.T) {
	c := constraints.NewChecker(newZ3(t), false)
	x := symexp.IntSymbol("x")
	set := constraints.Set{}.
		Require(symexp.Lt(x, symexp.Int(10)), "a", nil).
		Require(symexp.Lt(symexp.Int(20), symexp.Mul(x, symexp.Int(2))), "b", nil).
		Require(symexp.Lt(symexp.Int(0), x), "c", nil)
	v, culprit, err := c.OnComplete(context.Background(), set)
	require.NoError(t, err)
	assert.Equal(t, constraints.Unsat, v)
	assert.Equal(t, "b", culprit.Message)
}
