package libcall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"slava0135/shapecheck/config"
	"slava0135/shapecheck/constraints"
	"slava0135/shapecheck/ir"
	"slava0135/shapecheck/symexec"
	"slava0135/shapecheck/symexp"
	"slava0135/shapecheck/value"
)

func newRuntime(t *testing.T, immediate bool) *symexec.Runtime {
	t.Helper()
	opts := config.Default()
	opts.ImmediateCheck = immediate
	rt, err := symexec.NewRuntime(opts, Library{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return rt
}

// call runs a registered function on freshly allocated arguments.
func call(t *testing.T, c symexec.Context, name string, args ...value.Value) []symexec.Context {
	t.Helper()
	fn, ok := registered[name]
	require.True(t, ok, name)
	addrs := make([]value.Address, len(args))
	for i, v := range args {
		addrs[i], c = c.Alloc(v)
	}
	return fn(context.Background(), c, addrs, nil)
}

func only(t *testing.T, cs []symexec.Context) symexec.Context {
	t.Helper()
	require.Len(t, cs, 1)
	return cs[0]
}

func returnsTrue(t *testing.T, c symexec.Context) {
	t.Helper()
	assert.Equal(t, value.NewBool(true, nil), c.Get(c.Result()))
}

func TestRegistry(t *testing.T) {
	names := Names()
	for _, n := range []string{
		"builtins.isinstance",
		"builtins.print",
		"guard.require_eq",
		"guard.require_lt",
		"guard.require_lte",
		"guard.require_neq",
	} {
		assert.Contains(t, names, n)
	}
	assert.IsNonDecreasing(t, names)

	_, ok := Library{}.Lookup("guard", "require_lt")
	assert.True(t, ok)
	_, ok = Library{}.Lookup("guard", "require_gt")
	assert.False(t, ok)

	assert.Panics(t, func() { ModuleRegister("guard", "require_lt", nil) })
}

func TestGuard_AddsRequirement(t *testing.T) {
	c := newRuntime(t, false).NewContext("main")
	before := c.Constraints().Len()

	next := only(t, call(t, c, "guard.require_lt",
		value.NewInt(3, nil), value.NewInt(5, nil), value.NewString("ok", nil)))
	assert.True(t, next.Running())
	assert.Equal(t, before+1, next.Constraints().Len())
	last, _ := next.Constraints().Last()
	assert.Equal(t, constraints.KindRequire, last.Kind)
	assert.Equal(t, "ok", last.Message)
	returnsTrue(t, next)
}

func TestGuard_NonNumericOperand(t *testing.T) {
	c := newRuntime(t, false).NewContext("main")
	before := c.Constraints().Len()

	next := only(t, call(t, c, "guard.require_lt",
		value.NewString("three", nil), value.NewInt(5, nil), value.NewString("ok", nil)))
	assert.True(t, next.Running())
	assert.Equal(t, before, next.Constraints().Len())
	require.Len(t, next.Logs(), 1)
	assert.Equal(t, value.LevelWarning, next.Logs()[0].Level)
	assert.Equal(t, "from 'LibCall.guard.require_lt': operand is not a numeric", next.Logs()[0].Reason)
	returnsTrue(t, next)
}

func TestGuard_ConflictFailsImmediately(t *testing.T) {
	c := newRuntime(t, true).NewContext("main")
	five := value.NewInt(5, nil)

	c = only(t, call(t, c, "guard.require_eq", five, five, value.NewString("eq", nil)))
	require.True(t, c.Running())
	c = only(t, call(t, c, "guard.require_neq", five, five, value.NewString("neq", nil)))

	assert.Equal(t, symexec.Failed, c.Outcome())
	reason, _ := c.Failure()
	assert.Equal(t, "neq", reason)
}

func TestGuard_WrongArity(t *testing.T) {
	c := newRuntime(t, false).NewContext("main")
	next := only(t, call(t, c, "guard.require_lte", value.NewInt(1, nil), value.NewInt(2, nil)))
	assert.True(t, next.Running())
	require.Len(t, next.Logs(), 1)
	assert.Equal(t, "from 'LibCall.guard.require_lte': got insufficient number of argument: 2", next.Logs()[0].Reason)
	returnsTrue(t, next)
}

func TestGuard_MessageMustBeConstant(t *testing.T) {
	c := newRuntime(t, false).NewContext("main")
	msg := value.String{Exp: symexp.TextSymbol("m")}
	next := only(t, call(t, c, "guard.require_eq", value.NewInt(1, nil), value.NewInt(1, nil), msg))
	require.Len(t, next.Logs(), 1)
	assert.Equal(t, "from 'LibCall.guard.require_eq: message is not a constant string", next.Logs()[0].Reason)
}

func TestGuard_MixedSorts(t *testing.T) {
	c := newRuntime(t, true).NewContext("main")
	text := value.NewString("a", nil)
	one := value.NewInt(1, nil)

	next := only(t, call(t, c, "guard.require_neq", one, text, value.NewString("differ", nil)))
	assert.True(t, next.Running())
	next = only(t, call(t, next, "guard.require_eq", one, text, value.NewString("same", nil)))
	reason, _ := next.Failure()
	assert.Equal(t, "same", reason)
}

func TestIsInstance(t *testing.T) {
	c := newRuntime(t, false).NewContext("main")
	base, c := c.Alloc(value.Type{Name: "Module"})
	derived, c := c.Alloc(value.Type{Name: "Linear", Bases: []value.Address{base}})
	other, c := c.Alloc(value.Type{Name: "Other"})
	obj, c := c.Alloc(value.NewObject(derived, nil))

	check := func(cls value.Address) value.Value {
		fn := registered["builtins.isinstance"]
		next := only(t, fn(context.Background(), c, []value.Address{obj, cls}, nil))
		return next.Get(next.Result())
	}
	assert.Equal(t, value.NewBool(true, nil), check(derived))
	assert.Equal(t, value.NewBool(true, nil), check(base))
	assert.Equal(t, value.NewBool(false, nil), check(other))

	next := only(t, call(t, c, "builtins.isinstance", value.NewInt(1, nil), value.NewString("number", nil)))
	assert.Equal(t, value.NewBool(true, nil), next.Get(next.Result()))
	next = only(t, call(t, c, "builtins.isinstance", value.NewFloat(1, nil), value.NewString("int", nil)))
	assert.Equal(t, value.NewBool(false, nil), next.Get(next.Result()))
	next = only(t, call(t, c, "builtins.isinstance", value.NewInt(1, nil), value.NewString("float", nil)))
	assert.Equal(t, value.NewBool(false, nil), next.Get(next.Result()))

	next = only(t, call(t, c, "builtins.isinstance", value.NewInt(1, nil), value.NewInt(2, nil)))
	require.Len(t, next.Logs(), 1)
	assert.Equal(t, value.KindBool, next.Get(next.Result()).Kind())
}

func TestPrint(t *testing.T) {
	c := newRuntime(t, false).NewContext("main")
	next := only(t, call(t, c, "builtins.print", value.NewString("rank", nil), value.NewInt(3, nil)))
	require.Len(t, next.Logs(), 1)
	assert.Equal(t, value.LevelLog, next.Logs()[0].Level)
	assert.Equal(t, "rank 3", next.Logs()[0].Reason)
	assert.Equal(t, value.KindNone, next.Get(next.Result()).Kind())
}

func run(t *testing.T, immediate bool, src string) *symexec.Result {
	t.Helper()
	prog, err := ir.DecodeBytes([]byte(src), "guard.yaml")
	require.NoError(t, err)
	res, err := newRuntime(t, immediate).Run(context.Background(), "guard", prog)
	require.NoError(t, err)
	return res
}

func TestRun_GuardedFunction(t *testing.T) {
	const src = `
- def: flatten
  params: [x, start]
  body:
    - expr: {call: LibCall.guard.require_lt, args: [start, {len: x}, {str: start dimension out of range}]}
    - return: start
- assign: ok
  value: {call: flatten, args: [[2, 3], 1]}
- assign: bad
  value: {call: flatten, args: [[2, 3], 2]}
`
	for _, immediate := range []bool{false, true} {
		res := run(t, immediate, src)
		assert.Empty(t, res.Set.List(), "immediate=%v", immediate)
		require.Len(t, res.Set.Failed(), 1, "immediate=%v", immediate)
		reason, _ := res.Set.Failed()[0].Failure()
		assert.Equal(t, "start dimension out of range", reason, "immediate=%v", immediate)
		assert.True(t, res.Passes(false))
	}
}

func TestRun_SymbolicGuard(t *testing.T) {
	res := run(t, false, `
- assign: n
  value: {symbol: n}
- if: {op: "<", left: n, right: 2}
  then:
    - expr: {call: LibCall.guard.require_lt, args: [5, n, {str: n > 5}]}
`)
	require.Len(t, res.Set.List(), 1)
	require.Len(t, res.Set.Failed(), 1)
	reason, _ := res.Set.Failed()[0].Failure()
	assert.Equal(t, "n > 5", reason)
}
