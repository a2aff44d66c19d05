package symexp

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_ConstantFolding(t *testing.T) {
	assert.Equal(t, Int(7), Add(Int(3), Int(4)))
	assert.Equal(t, Float(1.5), Add(Int(1), Float(0.5)))
	assert.Equal(t, Int(-2), FloorDiv(Int(-3), Int(2)))
	assert.Equal(t, Int(1), Mod(Int(-3), Int(2)))
}

func TestAdd_Identities(t *testing.T) {
	x := IntSymbol("x")
	assert.Equal(t, x, Add(x, Int(0)))
	assert.Equal(t, x, Add(Int(0), x))
	assert.Equal(t, x, Mul(x, Int(1)))
	assert.Equal(t, Int(0), Mul(Int(0), x))
	assert.Equal(t, x, Sub(x, Int(0)))
	assert.Equal(t, x, Neg(Neg(x)))
}

func TestAdd_MixedTypeKeepsFloat(t *testing.T) {
	x := IntSymbol("x")
	sum := Add(x, Float(0))
	assert.Equal(t, FloatType, sum.Type())
}

func TestAdd_Reassociation(t *testing.T) {
	x := IntSymbol("x")
	got := Add(Add(Int(2), x), Int(3))
	assert.Equal(t, "(x + 5)", got.String())
	assert.Equal(t, x, Add(Add(x, Int(2)), Int(-2)))
}

func TestDivisionByZeroStaysSymbolic(t *testing.T) {
	got := TrueDiv(Int(1), Int(0))
	_, ok := got.(NumBop)
	assert.True(t, ok, "got %v", got)
}

func TestCompare_StaysSymbolic(t *testing.T) {
	lt := Lt(Int(3), Int(5))
	_, ok := lt.(Compare)
	require.True(t, ok, "Lt(3, 5) should not fold, got %v", lt)

	v, known := Truth(lt)
	require.True(t, known)
	assert.True(t, v)
}

func TestCompare_IdenticalConstants(t *testing.T) {
	assert.Equal(t, True(), Eq(Int(5), Int(5)))
	assert.Equal(t, False(), Neq(Int(5), Int(5)))
	assert.Equal(t, False(), Lt(Int(5), Int(5)))
	assert.Equal(t, True(), Lte(Int(5), Int(5)))
	assert.Equal(t, True(), Eq(Text("a"), Text("a")))
}

func TestCompare_SymbolicOperandsNeverFold(t *testing.T) {
	x := IntSymbol("x")
	_, ok := Eq(x, x).(Compare)
	assert.True(t, ok)
	assert.Equal(t, True(), SimplifyBool(Eq(x, x)))
}

func TestCompare_SortMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { Lt(Text("a"), Text("b")) })
	assert.Panics(t, func() { Eq(Int(1), Text("b")) })
}

func TestNot_FlipsComparison(t *testing.T) {
	x, y := IntSymbol("x"), IntSymbol("y")
	assert.Equal(t, "(y <= x)", Not(Lt(x, y)).String())
	assert.Equal(t, "(x != y)", Not(Eq(x, y)).String())
	assert.Equal(t, False(), Not(True()))
}

func TestShape_Rank(t *testing.T) {
	n := IntSymbol("n")
	s := ShapeOf(Int(2), n, Int(4))
	assert.Equal(t, Int(3), Rank(s))

	sym := NewShapeSymbol("S", IntSymbol("r"))
	assert.Equal(t, "(r + 3)", Rank(Concat(sym, s)).String())
	assert.Equal(t, Int(2), Rank(Slice(s, Int(1), nil)))
}

func TestShape_DimOutOfRange(t *testing.T) {
	s := ShapeOfInts(2, 3)
	_, err := Dim(s, Int(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))

	_, err = Dim(s, Int(-3))
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestShape_DimNegativeIndex(t *testing.T) {
	s := ShapeOfInts(2, 3)
	d, err := Dim(s, Int(-1))
	require.NoError(t, err)
	assert.Equal(t, Int(3), d)
}

func TestShape_DimUnknownRank(t *testing.T) {
	sym := NewShapeSymbol("S", IntSymbol("r"))
	d, err := Dim(sym, Int(-1))
	require.NoError(t, err)
	assert.Equal(t, "S[-1]", d.String())
}

func TestShape_DimThroughConcat(t *testing.T) {
	sym := NewShapeSymbol("S", IntSymbol("r"))
	s := Concat(ShapeOfInts(7), sym)
	d, err := Dim(s, Int(0))
	require.NoError(t, err)
	assert.Equal(t, Int(7), d)
}

func TestShape_DimNegativeThroughUnknownRank(t *testing.T) {
	sym := NewShapeSymbol("S", IntSymbol("r"))

	cat := Concat(ShapeOfInts(7, 8), sym)
	d, err := Dim(cat, Int(-1))
	require.NoError(t, err)
	assert.Equal(t, NumDim{Shape: cat, Index: Int(-1)}, d)

	sl := Slice(sym, Int(1), nil)
	d, err = Dim(sl, Int(-1))
	require.NoError(t, err)
	assert.Equal(t, NumDim{Shape: sl, Index: Int(-1)}, d)

	set, err := SetDim(sym, Int(2), Int(7))
	require.NoError(t, err)
	d, err = Dim(set, Int(-1))
	require.NoError(t, err)
	assert.Equal(t, NumDim{Shape: set, Index: Int(-1)}, d)
}

func TestShape_FetchSize(t *testing.T) {
	dims, ok := FetchSize(Concat(ShapeOfInts(1, 2), ShapeOfInts(3)))
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, dims)

	_, ok = FetchSize(ShapeOf(Int(1), IntSymbol("n")))
	assert.False(t, ok)
}

func TestShape_AbsIndexByLen(t *testing.T) {
	got, ok := AbsIndexByLen(Int(4), Int(-1))
	require.True(t, ok)
	assert.Equal(t, Int(3), got)

	got, ok = AbsIndexByLen(IntSymbol("n"), Int(-1))
	require.True(t, ok)
	assert.Equal(t, "(n + -1)", got.String())

	_, ok = AbsIndexByLen(Int(4), IntSymbol("i"))
	assert.False(t, ok)
}

func TestShape_SetDim(t *testing.T) {
	s, err := SetDim(ShapeOfInts(1, 2, 3), Int(-1), IntSymbol("k"))
	require.NoError(t, err)
	assert.Equal(t, "[1, 2, k]", s.String())

	_, err = SetDim(ShapeOfInts(1), Int(4), Int(0))
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestShape_Numel(t *testing.T) {
	assert.Equal(t, Int(24), Numel(ShapeOfInts(2, 3, 4)))
	assert.Equal(t, "(n * 6)", Numel(ShapeOf(Int(2), IntSymbol("n"), Int(3))).String())
}

func TestShape_ConstEquality(t *testing.T) {
	assert.Equal(t, False(), SimplifyBool(Eq(ShapeOfInts(1, 2), ShapeOfInts(1, 2, 3))))
	assert.Equal(t, True(), Eq(ShapeOfInts(1, 2), ShapeOfInts(1, 2)))
	n := IntSymbol("n")
	_, ok := SimplifyBool(Eq(ShapeOf(n), ShapeOfInts(1))).(Compare)
	assert.True(t, ok)
}

func TestRecord(t *testing.T) {
	got := Record(Lt(IntSymbol("x"), Int(5)))
	want := []any{"<", []any{"sym", "int", "x"}, []any{"const", "int", float64(5)}}
	assert.Equal(t, want, got)
}

func TestScanSymbols(t *testing.T) {
	syms := make(map[string]Exp)
	e := Eq(Rank(NewShapeSymbol("S", IntSymbol("r"))), Add(IntSymbol("x"), Int(1)))
	ScanSymbols(e, syms)
	assert.Len(t, syms, 2)
	assert.Contains(t, syms, "r")
	assert.Contains(t, syms, "x")
}

type generator struct {
	rnd *rand.Rand
}

func (g *generator) num(depth int) Num {
	if depth <= 0 {
		switch g.rnd.Intn(3) {
		case 0:
			return Int(int64(g.rnd.Intn(7) - 3))
		case 1:
			return Float(float64(g.rnd.Intn(5)) / 2)
		default:
			return IntSymbol(fmt.Sprintf("x%d", g.rnd.Intn(3)))
		}
	}
	switch g.rnd.Intn(8) {
	case 0:
		return NumBop{Op: NumOp(g.rnd.Intn(6)), Left: g.num(depth - 1), Right: g.num(depth - 1), T: IntType}
	case 1:
		return NumUop{Op: NumUnaryOp(g.rnd.Intn(4)), X: g.num(depth - 1), T: IntType}
	case 2:
		return NumRank{Shape: g.shape(depth - 1)}
	case 3:
		return NumDim{Shape: g.shape(depth - 1), Index: g.num(depth - 1)}
	case 4:
		return NumNumel{Shape: g.shape(depth - 1)}
	default:
		return Add(g.num(depth-1), g.num(depth-1))
	}
}

func (g *generator) shape(depth int) Shape {
	if depth <= 0 {
		if g.rnd.Intn(2) == 0 {
			return NewShapeSymbol(fmt.Sprintf("S%d", g.rnd.Intn(2)), IntSymbol("r"))
		}
		return ShapeOfInts(int64(g.rnd.Intn(4)), int64(g.rnd.Intn(4)))
	}
	switch g.rnd.Intn(4) {
	case 0:
		return ShapeConst{Dims: []Num{g.num(depth - 1), g.num(depth - 1)}}
	case 1:
		return ShapeConcat{Left: g.shape(depth - 1), Right: g.shape(depth - 1)}
	case 2:
		return ShapeSlice{Base: g.shape(depth - 1), Start: Int(int64(g.rnd.Intn(3))), End: nil}
	default:
		return ShapeSet{Base: g.shape(depth - 1), Axis: Int(int64(g.rnd.Intn(2))), Dim: g.num(depth - 1)}
	}
}

func (g *generator) boolean(depth int) Bool {
	if depth <= 0 {
		return Compare{Op: CompareOp(g.rnd.Intn(4)), Left: g.num(1), Right: g.num(1)}
	}
	switch g.rnd.Intn(4) {
	case 0:
		return BoolNot{X: g.boolean(depth - 1)}
	case 1:
		return BoolAnd{Left: g.boolean(depth - 1), Right: g.boolean(depth - 1)}
	case 2:
		return BoolOr{Left: g.boolean(depth - 1), Right: g.boolean(depth - 1)}
	default:
		return Compare{Op: OpEq, Left: g.shape(depth - 1), Right: g.shape(depth - 1)}
	}
}

func TestSimplify_Idempotent(t *testing.T) {
	g := &generator{rnd: rand.New(rand.NewSource(1))}
	for i := 0; i < 2000; i++ {
		var e Exp
		switch i % 3 {
		case 0:
			e = g.num(4)
		case 1:
			e = g.shape(3)
		default:
			e = g.boolean(3)
		}
		once := Simplify(e)
		twice := Simplify(once)
		if !Equal(once, twice) {
			t.Fatalf("simplify is not idempotent for %v\n once: %v\ntwice: %v", e, once, twice)
		}
	}
}

func TestSimplify_StructurallyEqualInputs(t *testing.T) {
	x := IntSymbol("x")
	a := NumBop{Op: OpAdd, Left: Int(1), Right: NumBop{Op: OpAdd, Left: x, Right: Int(2)}, T: IntType}
	b := NumBop{Op: OpAdd, Left: Int(1), Right: NumBop{Op: OpAdd, Left: x, Right: Int(2)}, T: IntType}
	assert.True(t, Equal(Simplify(a), Simplify(b)))
	assert.Equal(t, "(x + 3)", Simplify(a).String())
}

func TestSubstitute(t *testing.T) {
	x, n := IntSymbol("x"), IntSymbol("n")
	s := NewShapeSymbol("S", nil)
	e := And(Lt(Add(x, Int(1)), n), Eq(Rank(s), Int(2)))

	got := Substitute(e, map[string]Exp{"x": Int(2), "S": ShapeOfInts(4, 5)})
	assert.Equal(t, "(3 < n)", got.String())

	got = Substitute(got, map[string]Exp{"n": Int(1)})
	assert.Equal(t, False(), got)
}
