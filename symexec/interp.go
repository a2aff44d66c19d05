package symexec

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"slava0135/shapecheck/heap"
	"slava0135/shapecheck/ir"
	"slava0135/shapecheck/symexp"
	"slava0135/shapecheck/value"
)

const maxCallDepth = 1000

// active paths execute statements. A path with a pending control jump skips
// them until a loop or call consumes the jump.
func (c Context) active() bool {
	return c.outcome == Running && c.control == ControlNone
}

func (rt *Runtime) limitPaths(cs []Context) []Context {
	n := 0
	for _, c := range cs {
		if c.Running() {
			n++
		}
	}
	if rt.Options.MaxPaths <= 0 || n <= rt.Options.MaxPaths {
		return cs
	}
	out := make([]Context, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Fail(pathLimitReason(rt.Options.MaxPaths), nil))
	}
	return out
}

// execStmt interprets s on c and returns its successors. Inactive successors
// are carried through unchanged by the enclosing sequence.
func (rt *Runtime) execStmt(ctx context.Context, c Context, s ir.Stmt) []Context {
	if !c.active() {
		return []Context{c}
	}
	if seq, ok := s.(*ir.Seq); ok {
		return rt.execSeq(ctx, c, seq)
	}
	if err := ctx.Err(); err != nil {
		return []Context{c.Fail(fmt.Sprintf("analysis aborted: %v", err), s.Pos())}
	}
	c = c.Step(s.Pos())
	if !c.Running() {
		return []Context{c}
	}

	switch s := s.(type) {
	case *ir.Pass:
		return []Context{c}
	case *ir.Assign:
		return rt.execAssign(ctx, c, s)
	case *ir.ExprStmt:
		return rt.eval(ctx, c, s.X)
	case *ir.If:
		return rt.execIf(ctx, c, s)
	case *ir.While:
		return rt.execWhile(ctx, c, s)
	case *ir.Break:
		return []Context{c.SetControl(ControlBreak)}
	case *ir.Continue:
		return []Context{c.SetControl(ControlContinue)}
	case *ir.Return:
		if s.Value == nil {
			return []Context{c.Return(value.None{Src: s.Src}).SetControl(ControlReturn)}
		}
		return mapActive(rt.eval(ctx, c, s.Value), func(c Context) []Context {
			return []Context{c.SetControl(ControlReturn)}
		})
	case *ir.FunDef:
		fn := value.Function{Name: s.Name, Params: s.Params, Body: s.Body, Closure: c.env, Src: s.Src}
		a, c := c.Alloc(fn)
		return []Context{c.bind(s.Name, a)}
	case *ir.ClassDef:
		return []Context{rt.execClassDef(c, s)}
	default:
		panic(fmt.Sprintf("unknown statement %T", s))
	}
}

func (rt *Runtime) execSeq(ctx context.Context, c Context, s *ir.Seq) []Context {
	cur := []Context{c}
	for _, st := range s.Stmts {
		var next []Context
		for _, c := range cur {
			next = append(next, rt.execStmt(ctx, c, st)...)
		}
		cur = rt.limitPaths(next)
	}
	return cur
}

// mapActive applies f to the active contexts of cs and keeps the others.
func mapActive(cs []Context, f func(Context) []Context) []Context {
	var out []Context
	for _, c := range cs {
		if !c.active() {
			out = append(out, c)
			continue
		}
		out = append(out, f(c)...)
	}
	return out
}

// bind assigns a name in the current scope. Assignments outside of any call
// also become attributes of the module object.
func (c Context) bind(name string, a value.Address) Context {
	c.env = c.env.Bind(name, a)
	if len(c.stack) == 0 {
		c = c.setModuleAttr(name, a)
	}
	return c
}

func (rt *Runtime) execAssign(ctx context.Context, c Context, s *ir.Assign) []Context {
	return mapActive(rt.eval(ctx, c, s.Value), func(c Context) []Context {
		val := c.result
		switch t := s.Target.(type) {
		case *ir.Name:
			return []Context{c.bind(t.ID, val)}
		case *ir.Attr:
			return mapActive(rt.eval(ctx, c, t.X), func(c Context) []Context {
				objAddr := c.result
				obj, ok := c.Get(objAddr).(value.Object)
				if !ok {
					return []Context{c.Fail(fmt.Sprintf("can't set attribute '%s' of '%s' object", t.Name, c.Get(objAddr).Kind()), t.Src)}
				}
				c.heap = c.heap.Set(objAddr, obj.SetAttr(t.Name, val))
				return []Context{c}
			})
		default:
			panic(fmt.Sprintf("cannot assign to %T", s.Target))
		}
	})
}

// truth is the condition under which v is truthy.
func truth(v value.Value) symexp.Bool {
	switch v := v.(type) {
	case value.Bool:
		return v.Exp
	case value.Int:
		return symexp.Neq(v.Num, symexp.Int(0))
	case value.Float:
		return symexp.Neq(v.Num, symexp.Float(0))
	case value.String:
		return symexp.Neq(v.Exp, symexp.Text(""))
	case value.None:
		return symexp.False()
	case value.Size:
		return symexp.Neq(symexp.Rank(v.Shape), symexp.Int(0))
	case value.Object, value.Function, value.Type:
		return symexp.True()
	case value.Error:
		panic("error value used as a condition")
	default:
		panic(fmt.Sprintf("unknown value %T", v))
	}
}

// branch forks c on the truthiness of its result. A constant condition does
// not fork; otherwise each side assumes its condition and may come back
// infeasible.
func (rt *Runtime) branch(ctx context.Context, c Context, src *ir.Source) (yes, no []Context) {
	cond := truth(c.Get(c.result))
	if t, known := symexp.Truth(cond); known {
		if t {
			return []Context{c}, nil
		}
		return nil, []Context{c}
	}
	rt.Logger.Debug("fork",
		zap.String("path", c.relPath),
		zap.Stringer("condition", cond),
		zap.Stringer("source", src))
	return []Context{c.Assume(ctx, cond, src)}, []Context{c.Assume(ctx, symexp.Not(cond), src)}
}

func (rt *Runtime) execIf(ctx context.Context, c Context, s *ir.If) []Context {
	return mapActive(rt.eval(ctx, c, s.Cond), func(c Context) []Context {
		yes, no := rt.branch(ctx, c, s.Cond.Pos())
		var out []Context
		for _, c := range yes {
			out = append(out, rt.execBranch(ctx, c, s.Then)...)
		}
		for _, c := range no {
			out = append(out, rt.execBranch(ctx, c, s.Else)...)
		}
		return out
	})
}

func (rt *Runtime) execBranch(ctx context.Context, c Context, s ir.Stmt) []Context {
	if s == nil || !c.active() {
		return []Context{c}
	}
	return rt.execStmt(ctx, c, s)
}

// execWhile unrolls the loop. Only iterations whose condition forks count
// against LoopUnroll; a path that would fork once more gets a warning and
// continues after the loop. Concrete iterations are bounded by MaxSteps.
func (rt *Runtime) execWhile(ctx context.Context, c Context, s *ir.While) []Context {
	var out []Context
	cur, forks := []Context{c}, []int{0}
	for len(cur) > 0 {
		var next []Context
		var nextForks []int
		for k, c := range cur {
			for _, c := range rt.eval(ctx, c, s.Cond) {
				if !c.active() {
					out = append(out, c)
					continue
				}
				n := forks[k]
				if _, known := symexp.Truth(truth(c.Get(c.result))); !known {
					if n >= rt.Options.LoopUnroll {
						out = append(out, c.Warn(fmt.Sprintf("loop unrolled %d times, remaining iterations are not analyzed", n), s.Src))
						continue
					}
					n++
				}
				yes, no := rt.branch(ctx, c, s.Cond.Pos())
				out = append(out, no...)
				for _, r := range mapActive(yes, func(c Context) []Context { return rt.execStmt(ctx, c, s.Body) }) {
					switch {
					case !r.Running():
						out = append(out, r)
					case r.control == ControlBreak:
						out = append(out, r.SetControl(ControlNone))
					case r.control == ControlReturn:
						out = append(out, r)
					case r.control == ControlContinue:
						next = append(next, r.SetControl(ControlNone))
						nextForks = append(nextForks, n)
					default:
						next = append(next, r)
						nextForks = append(nextForks, n)
					}
				}
			}
		}
		// limitPaths keeps the length and order of its input
		cur, forks = rt.limitPaths(next), nextForks
	}
	return out
}

func (rt *Runtime) execClassDef(c Context, s *ir.ClassDef) Context {
	var bases []value.Address
	for _, b := range s.Bases {
		a, ok := c.resolve(b)
		if !ok {
			return c.Fail(fmt.Sprintf("name '%s' is not defined", b), s.Src)
		}
		if _, ok := c.Get(a).(value.Type); !ok {
			return c.Fail(fmt.Sprintf("base '%s' is not a class", b), s.Src)
		}
		bases = append(bases, a)
	}
	a, c := c.Alloc(value.Type{Name: s.Name, Bases: bases, Src: s.Src})
	return c.bind(s.Name, a)
}

// resolve looks a name up in the lexical scopes and then among the module
// attributes, which hold every top-level definition made so far.
func (c Context) resolve(name string) (value.Address, bool) {
	if a, ok := c.env.Resolve(name); ok {
		return a, true
	}
	mod, ok := c.Get(value.ModuleAddress).(value.Object)
	if !ok {
		return value.NoAddress, false
	}
	return mod.Attr(name)
}

// call runs a user function with its parameters bound in a new scope of the
// closure. The caller's scope is restored on every path that returns.
func (rt *Runtime) call(ctx context.Context, c Context, fn value.Function, args []value.Address, src *ir.Source) []Context {
	if len(args) != len(fn.Params) {
		return []Context{c.Fail(fmt.Sprintf("%s() takes %d positional arguments but %d were given", fn.Name, len(fn.Params), len(args)), src)}
	}
	if len(c.stack) >= maxCallDepth {
		return []Context{c.Fail("maximum recursion depth exceeded", src)}
	}
	closure, ok := fn.Closure.(heap.Env)
	if !ok {
		panic(fmt.Sprintf("closure of %s is %T", fn.Name, fn.Closure))
	}
	callerEnv := c.env
	env := closure.Push()
	for i, p := range fn.Params {
		env = env.Bind(p, args[i])
	}
	c = c.SetEnv(env).PushCall(fn.Name, src)

	var out []Context
	for _, r := range rt.execStmt(ctx, c, fn.Body) {
		if !r.Running() {
			out = append(out, r)
			continue
		}
		switch r.control {
		case ControlReturn:
		case ControlNone:
			r = r.Return(value.None{Src: src})
		default:
			r = r.Fail(fmt.Sprintf("'%s' outside loop", r.control), src)
			out = append(out, r)
			continue
		}
		out = append(out, r.SetControl(ControlNone).SetEnv(callerEnv).PopCall())
	}
	return out
}
