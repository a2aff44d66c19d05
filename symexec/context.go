package symexec

import (
	"context"
	"fmt"
	"strings"

	iradix "github.com/hashicorp/go-immutable-radix"
	"go.uber.org/zap"

	"slava0135/shapecheck/constraints"
	"slava0135/shapecheck/heap"
	"slava0135/shapecheck/ir"
	"slava0135/shapecheck/symexp"
	"slava0135/shapecheck/value"
)

// Control is a pending non-local jump. A Context with a control set skips
// statements until the enclosing loop or call consumes it.
type Control int

const (
	ControlNone Control = iota
	ControlBreak
	ControlContinue
	ControlReturn
)

func (c Control) String() string {
	switch c {
	case ControlNone:
		return "none"
	case ControlBreak:
		return "break"
	case ControlContinue:
		return "continue"
	case ControlReturn:
		return "return"
	default:
		panic(fmt.Sprintf("unknown control %d", int(c)))
	}
}

type Outcome int

const (
	Running Outcome = iota
	Succeeded
	Failed
	// Infeasible paths assumed a branch condition that can't hold.
	Infeasible
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Infeasible:
		return "infeasible"
	default:
		panic(fmt.Sprintf("unknown outcome %d", int(o)))
	}
}

// Frame is one entry of the call stack.
type Frame struct {
	Name string
	Src  *ir.Source
}

func (f Frame) String() string {
	return fmt.Sprintf("%s (%s)", f.Name, f.Src)
}

// Context is the state of one path. Every method returns an updated copy and
// leaves the receiver unchanged, so a Context can be forked by plain
// assignment.
type Context struct {
	rt *Runtime

	result  value.Address
	heap    heap.Heap
	env     heap.Env
	set     constraints.Set
	logs    []value.Error
	stack   []Frame
	relPath string
	control Control

	outcome Outcome
	reason  string
	failSrc *ir.Source

	steps int
	names *iradix.Tree
}

func (c Context) Runtime() *Runtime                { return c.rt }
func (c Context) Result() value.Address            { return c.result }
func (c Context) Heap() heap.Heap                  { return c.heap }
func (c Context) Env() heap.Env                    { return c.env }
func (c Context) Constraints() constraints.Set     { return c.set }
func (c Context) Logs() []value.Error              { return c.logs }
func (c Context) CallStack() []Frame               { return c.stack }
func (c Context) RelPath() string                  { return c.relPath }
func (c Context) Control() Control                 { return c.control }
func (c Context) Outcome() Outcome                 { return c.outcome }
func (c Context) Steps() int                       { return c.steps }
func (c Context) Running() bool                    { return c.outcome == Running }
func (c Context) Failure() (string, *ir.Source)    { return c.reason, c.failSrc }
func (c Context) SetHeap(h heap.Heap) Context      { c.heap = h; return c }
func (c Context) SetEnv(e heap.Env) Context        { c.env = e; return c }
func (c Context) SetRelPath(p string) Context      { c.relPath = p; return c }
func (c Context) SetResult(a value.Address) Context { c.result = a; return c }
func (c Context) SetControl(k Control) Context     { c.control = k; return c }

func (c Context) logger() *zap.Logger {
	if c.rt == nil || c.rt.Logger == nil {
		return zap.NewNop()
	}
	return c.rt.Logger
}

// appendCopy never writes into a backing array another Context may share.
func appendCopy[T any](s []T, v T) []T {
	return append(s[:len(s):len(s)], v)
}

func (c Context) addLog(level value.Level, msg string, src *ir.Source) Context {
	c.logs = appendCopy(c.logs, value.Error{Level: level, Reason: msg, Src: src})
	return c
}

// Warn records a diagnostic. The path continues as if the checked condition
// held.
func (c Context) Warn(msg string, src *ir.Source) Context {
	return c.addLog(value.LevelWarning, msg, src)
}

func (c Context) Log(msg string, src *ir.Source) Context {
	return c.addLog(value.LevelLog, msg, src)
}

// Fail stops the path. The Context keeps its heap and call stack for the
// report.
func (c Context) Fail(reason string, src *ir.Source) Context {
	if c.outcome != Running {
		return c
	}
	c = c.addLog(value.LevelError, reason, src)
	c.outcome = Failed
	c.reason = reason
	c.failSrc = src
	c.logger().Debug("path failed", zap.String("reason", reason), zap.Stringer("source", src))
	return c
}

// Succeed marks a finished path.
func (c Context) Succeed() Context {
	if c.outcome == Running {
		c.outcome = Succeeded
	}
	return c
}

func (c Context) prune(src *ir.Source) Context {
	c.outcome = Infeasible
	c.logger().Debug("path pruned", zap.Stringer("source", src))
	return c
}

func (c Context) check(ctx context.Context, con constraints.Constraint) (constraints.Verdict, Context) {
	if c.rt == nil || c.rt.Checker == nil {
		return constraints.Unknown, c
	}
	v, err := c.rt.Checker.OnAdd(ctx, c.set, con)
	if err != nil {
		return constraints.Unknown, c.Log(fmt.Sprintf("constraint check skipped: %v", err), con.Src)
	}
	return v, c
}

// Require adds a hard constraint. If the checker refutes it the path fails
// with msg.
func (c Context) Require(ctx context.Context, pred symexp.Bool, msg string, src *ir.Source) Context {
	if c.outcome != Running {
		return c
	}
	c.set = c.set.Require(pred, msg, src)
	last, _ := c.set.Last()
	v, c := c.check(ctx, last)
	if v == constraints.Unsat {
		return c.Fail(violation(last), src)
	}
	return c
}

// Guarantee adds a fact derived by the engine.
func (c Context) Guarantee(ctx context.Context, pred symexp.Bool, msg string, src *ir.Source) Context {
	if c.outcome != Running {
		return c
	}
	c.set = c.set.Guarantee(pred, msg, src)
	last, _ := c.set.Last()
	v, c := c.check(ctx, last)
	if v == constraints.Unsat {
		return c.prune(src)
	}
	return c
}

// Assume adds a branch condition. A refuted assumption makes the path
// Infeasible.
func (c Context) Assume(ctx context.Context, pred symexp.Bool, src *ir.Source) Context {
	if c.outcome != Running {
		return c
	}
	c.set = c.set.Assume(pred, "", src)
	last, _ := c.set.Last()
	v, c := c.check(ctx, last)
	if v == constraints.Unsat {
		return c.prune(src)
	}
	return c
}

func (c Context) GenLt(a, b symexp.Exp) symexp.Bool  { return symexp.Lt(a, b) }
func (c Context) GenLte(a, b symexp.Exp) symexp.Bool { return symexp.Lte(a, b) }
func (c Context) GenEq(a, b symexp.Exp) symexp.Bool  { return symexp.Eq(a, b) }
func (c Context) GenNeq(a, b symexp.Exp) symexp.Bool { return symexp.Neq(a, b) }

func (c Context) Alloc(v value.Value) (value.Address, Context) {
	a, h := c.heap.Alloc(v)
	c.heap = h
	return a, c
}

func (c Context) Get(a value.Address) value.Value {
	return c.heap.MustGet(a)
}

// Return allocates v and makes it the result of the Context.
func (c Context) Return(v value.Value) Context {
	a, c := c.Alloc(v)
	c.result = a
	return c
}

func (c Context) PushCall(name string, src *ir.Source) Context {
	c.stack = appendCopy(c.stack, Frame{Name: name, Src: src})
	return c
}

func (c Context) PopCall() Context {
	if len(c.stack) == 0 {
		panic("pop of an empty call stack")
	}
	c.stack = c.stack[:len(c.stack)-1]
	return c
}

// FreshName returns base the first time it is asked for on this path and
// base_1, base_2, ... afterwards. Every name it hands out is recorded, so a
// generated name never repeats one handed out for another base.
func (c Context) FreshName(base string) (string, Context) {
	if c.names == nil {
		c.names = iradix.New()
	}
	for {
		n := 0
		if v, ok := c.names.Get([]byte(base)); ok {
			n = v.(int)
		}
		c.names, _, _ = c.names.Insert([]byte(base), n+1)
		if n == 0 {
			return base, c
		}
		name := fmt.Sprintf("%s_%d", base, n)
		if _, taken := c.names.Get([]byte(name)); taken {
			continue
		}
		c.names, _, _ = c.names.Insert([]byte(name), 1)
		return name, c
	}
}

// Step counts one executed statement against the path budget.
func (c Context) Step(src *ir.Source) Context {
	c.steps++
	if c.rt != nil && c.rt.Options.MaxSteps > 0 && c.steps > c.rt.Options.MaxSteps {
		return c.Fail(fmt.Sprintf("step budget exhausted after %d statements", c.rt.Options.MaxSteps), src)
	}
	return c
}

func (c Context) LogsString() string {
	var lines []string
	for _, l := range c.logs {
		lines = append(lines, fmt.Sprintf("%s (%s)", l, l.Src))
	}
	return strings.Join(lines, "\n")
}

func (c Context) CallStackString() string {
	var lines []string
	for i := len(c.stack) - 1; i >= 0; i-- {
		lines = append(lines, "  at "+c.stack[i].String())
	}
	return strings.Join(lines, "\n")
}

// HasError reports whether any error was logged on this path.
func (c Context) HasError() bool {
	for _, l := range c.logs {
		if l.Level == value.LevelError {
			return true
		}
	}
	return false
}
