package symexec

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slava0135/shapecheck/symexp"
	"slava0135/shapecheck/value"
)

func paths(cs []Context) []string {
	var names []string
	for _, c := range cs {
		names = append(names, c.RelPath())
	}
	return names
}

func named(names ...string) []Context {
	var cs []Context
	for _, n := range names {
		cs = append(cs, Context{}.SetRelPath(n))
	}
	return cs
}

func TestContextSet_Partitions(t *testing.T) {
	cs := named("run", "ok", "bad", "gone")
	cs[1] = cs[1].Succeed()
	cs[2] = cs[2].Fail("boom", nil)
	cs[3] = cs[3].prune(nil)

	set := NewContextSet(cs...)
	assert.Equal(t, []string{"run"}, paths(set.Running()))
	assert.Equal(t, []string{"ok"}, paths(set.List()))
	assert.Equal(t, []string{"bad"}, paths(set.Failed()))
	assert.Equal(t, 1, set.Pruned())
	assert.Equal(t, 3, set.Len())
	assert.False(t, set.Done())
}

// Forking one running path into k successors changes the total by k-1.
// Infeasible successors move from Len to Pruned.
func TestContextSet_BranchConservation(t *testing.T) {
	for k := 0; k <= 8; k++ {
		t.Run(fmt.Sprint(k), func(t *testing.T) {
			set := NewContextSet(named("a", "b")...)
			before := set.Len()

			next, err := set.FlatMap(context.Background(), func(_ context.Context, c Context) ([]Context, error) {
				if c.RelPath() != "a" {
					return []Context{c}, nil
				}
				var out []Context
				for i := 0; i < k; i++ {
					s := c.SetRelPath(fmt.Sprintf("a%d", i))
					switch i % 4 {
					case 1:
						s = s.Succeed()
					case 2:
						s = s.Fail("no", nil)
					case 3:
						s = s.prune(nil)
					}
					out = append(out, s)
				}
				return out, nil
			})
			require.NoError(t, err)
			assert.Equal(t, before-1+k, next.Len()+next.Pruned())
			assert.Equal(t, k/4, next.Pruned())
		})
	}
}

func TestContextSet_FlatMapN_KeepsInputOrder(t *testing.T) {
	var names []string
	for i := 0; i < 32; i++ {
		names = append(names, fmt.Sprint(i))
	}
	set := NewContextSet(named(names...)...)
	fork := func(_ context.Context, c Context) ([]Context, error) {
		return []Context{c.SetRelPath(c.RelPath() + "l"), c.SetRelPath(c.RelPath() + "r")}, nil
	}

	sequential, err := set.FlatMap(context.Background(), fork)
	require.NoError(t, err)
	parallel, err := set.FlatMapN(context.Background(), 8, fork)
	require.NoError(t, err)
	assert.Equal(t, paths(sequential.Running()), paths(parallel.Running()))
	assert.Equal(t, []string{"0l", "0r", "1l"}, paths(parallel.Running())[:3])
}

func TestContextSet_FlatMapN_Error(t *testing.T) {
	set := NewContextSet(named("a", "b", "c")...)
	_, err := set.FlatMapN(context.Background(), 2, func(_ context.Context, c Context) ([]Context, error) {
		if c.RelPath() == "b" {
			return nil, fmt.Errorf("broken")
		}
		return []Context{c}, nil
	})
	assert.EqualError(t, err, "broken")
}

func TestContextSet_MapFilterSplit(t *testing.T) {
	set := NewContextSet(named("a", "b", "c")...)
	set = set.Map(func(c Context) Context {
		if c.RelPath() == "b" {
			return c.Succeed()
		}
		return c
	})
	assert.Equal(t, []string{"a", "c"}, paths(set.Running()))
	assert.Equal(t, []string{"b"}, paths(set.List()))

	filtered := set.Filter(func(c Context) bool { return c.RelPath() == "c" })
	assert.Equal(t, []string{"c"}, paths(filtered.Running()))
	assert.Equal(t, []string{"b"}, paths(filtered.List()))

	yes, no := set.Split(func(c Context) bool { return c.RelPath() == "a" })
	assert.Equal(t, []string{"a"}, paths(yes.Running()))
	assert.Equal(t, []string{"c"}, paths(no.Running()))
	assert.Equal(t, []string{"a", "c"}, paths(yes.Join(no).Running()))
	assert.Equal(t, []string{"b"}, paths(yes.Join(no).List()))
}

func TestContextSet_Abort(t *testing.T) {
	cs := named("a", "b", "c")
	cs[0] = cs[0].Succeed()
	set := NewContextSet(cs...).Abort("analysis aborted: test")

	assert.True(t, set.Done())
	assert.Equal(t, []string{"a"}, paths(set.List()))
	require.Len(t, set.Failed(), 2)
	reason, _ := set.Failed()[1].Failure()
	assert.Equal(t, "analysis aborted: test", reason)
}

// Appending to a set derived from a shared parent never shows up in the
// parent or in a sibling.
func TestContextSet_NoSharedAppend(t *testing.T) {
	base := NewContextSet(named("a", "b")...)
	left := base.Join(NewContextSet(named("l")...))
	right := base.Join(NewContextSet(named("r")...))
	assert.Equal(t, []string{"a", "b"}, paths(base.Running()))
	assert.Equal(t, []string{"a", "b", "l"}, paths(left.Running()))
	assert.Equal(t, []string{"a", "b", "r"}, paths(right.Running()))
}

func TestContext_ConstraintsAppendOnly(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()
	n := symexp.IntSymbol("n")

	steps := []func(Context) Context{
		func(c Context) Context { return c.Require(ctx, c.GenLt(n, symexp.Int(5)), "n < 5", nil) },
		func(c Context) Context { return c.Warn("careful", nil) },
		func(c Context) Context { return c.Guarantee(ctx, c.GenLte(symexp.Int(0), n), "", nil) },
		func(c Context) Context { return c.Assume(ctx, c.GenNeq(n, symexp.Int(3)), nil) },
		func(c Context) Context { return c.Return(value.NewInt(1, nil)) },
		func(c Context) Context { return c.Fail("stop", nil) },
		func(c Context) Context { return c.Require(ctx, c.GenEq(n, symexp.Int(1)), "after failure", nil) },
	}
	c := rt.NewContext("main")
	prev := c.Constraints().Len()
	for i, step := range steps {
		c = step(c)
		assert.GreaterOrEqual(t, c.Constraints().Len(), prev, "step %d", i)
		prev = c.Constraints().Len()
	}
	assert.Equal(t, 3, prev)
}

func TestContext_HeapBranchIsolation(t *testing.T) {
	rt := newRuntime(t, nil)
	c := rt.NewContext("main")
	a, c := c.Alloc(value.NewInt(1, nil))

	left := c.SetHeap(c.Heap().Set(a, value.NewInt(2, nil)))
	right := c.SetHeap(c.Heap().Set(a, value.NewInt(3, nil)))

	assert.Equal(t, value.NewInt(1, nil), c.Get(a))
	assert.Equal(t, value.NewInt(2, nil), left.Get(a))
	assert.Equal(t, value.NewInt(3, nil), right.Get(a))
}

func TestContext_Fail(t *testing.T) {
	c := Context{}.PushCall("f", nil).Fail("first", nil)
	c = c.Fail("second", nil)
	reason, _ := c.Failure()
	assert.Equal(t, "first", reason)
	assert.Equal(t, Failed, c.Outcome())
	assert.True(t, c.HasError())
	assert.Len(t, c.CallStack(), 1)
	assert.Equal(t, c, c.Succeed())
}

func TestContext_FreshName(t *testing.T) {
	c := Context{}
	var got []string
	for i := 0; i < 3; i++ {
		var name string
		name, c = c.FreshName("n")
		got = append(got, name)
	}
	other, _ := Context{}.FreshName("n")
	assert.Equal(t, []string{"n", "n_1", "n_2"}, got)
	assert.Equal(t, "n", other)
}

func TestContext_FreshNameAvoidsTakenNames(t *testing.T) {
	c := Context{}
	seen := make(map[string]bool)
	for _, base := range []string{"n_1", "n", "n", "n", "n_2", "n_1"} {
		var name string
		name, c = c.FreshName(base)
		assert.False(t, seen[name], "%s handed out twice", name)
		seen[name] = true
	}
	assert.Len(t, seen, 6)
}

func TestNewContext(t *testing.T) {
	c := newRuntime(t, nil).NewContext("main")
	mod, ok := c.Get(value.ModuleAddress).(value.Object)
	require.True(t, ok)

	a, ok := mod.Attr("__name__")
	require.True(t, ok)
	assert.Equal(t, value.NewString("__main__", nil), c.Get(a))
	bound, err := c.Env().Lookup("__name__")
	require.NoError(t, err)
	assert.Equal(t, a, bound)
	assert.Equal(t, "main", c.RelPath())
}
