package symexec

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"slava0135/shapecheck/config"
	"slava0135/shapecheck/constraints"
	"slava0135/shapecheck/heap"
	"slava0135/shapecheck/ir"
	"slava0135/shapecheck/value"
)

// LibFunc implements LibCall.<module>.<name>. It receives the addresses of
// its evaluated arguments and returns the successors of c, each with its
// result set.
type LibFunc func(ctx context.Context, c Context, args []value.Address, src *ir.Source) []Context

// Library resolves builtin library functions.
type Library interface {
	Lookup(module, name string) (LibFunc, bool)
}

// Runtime is the immutable part of an analysis shared by every path.
type Runtime struct {
	Options config.Options
	Checker constraints.Checker
	Library Library
	Logger  *zap.Logger
}

// NewRuntime looks up and initializes the configured solver.
func NewRuntime(opts config.Options, lib Library, logger *zap.Logger) (*Runtime, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s, err := constraints.Lookup(opts.Solver)
	if err != nil {
		return nil, err
	}
	init := &constraints.Init{
		Debug: opts.LogLevel == config.LogFull,
		Logf:  logger.Sugar().Debugf,
	}
	if err := s.Init(init); err != nil {
		return nil, errors.Wrapf(err, "can't init solver %s", opts.Solver)
	}
	return &Runtime{
		Options: opts,
		Checker: constraints.NewChecker(s, opts.ImmediateCheck),
		Library: lib,
		Logger:  logger,
	}, nil
}

// NewContext returns the entry state of a run. The module object is always
// the first allocation, so it lives at value.ModuleAddress.
func (rt *Runtime) NewContext(entry string) Context {
	c := Context{rt: rt, heap: heap.New(), env: heap.NewEnv(), relPath: entry}
	mod, c := c.Alloc(value.NewObject(value.NoAddress, nil))
	if mod != value.ModuleAddress {
		panic(fmt.Sprintf("module allocated at %s", mod))
	}
	name, c := c.Alloc(value.NewString("__main__", nil))
	c.env = c.env.Bind("__name__", name)
	return c.setModuleAttr("__name__", name)
}

func (c Context) setModuleAttr(name string, a value.Address) Context {
	mod := c.Get(value.ModuleAddress).(value.Object)
	c.heap = c.heap.Set(value.ModuleAddress, mod.SetAttr(name, a))
	return c
}

// Result is the outcome of a run.
type Result struct {
	Entry string
	Set   ContextSet
}

// Passes reports whether the run met an expectation. A run expected to
// succeed must have no failed path and no logged error; a run expected to
// fail must have no succeeded path.
func (r *Result) Passes(expectSuccess bool) bool {
	if !expectSuccess {
		return len(r.Set.List()) == 0
	}
	if len(r.Set.Failed()) > 0 {
		return false
	}
	for _, c := range r.Set.List() {
		if c.HasError() {
			return false
		}
	}
	return true
}

// Run interprets prog from a fresh entry state and checks every path that
// finished. The returned error is only set for engine faults; analysis
// problems are failed paths.
func (rt *Runtime) Run(ctx context.Context, entry string, prog ir.Stmt) (*Result, error) {
	if rt.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.Options.Timeout)
		defer cancel()
	}
	rt.Logger.Debug("run started", zap.String("path", entry))

	set, err := rt.Exec(ctx, NewContextSet(rt.NewContext(entry)), prog)
	if err != nil {
		return nil, err
	}
	set, err = set.FlatMapN(ctx, rt.Options.Workers, rt.finish)
	if err != nil {
		return nil, err
	}

	rt.Logger.Debug("run finished",
		zap.String("path", entry),
		zap.Int("succeeded", len(set.List())),
		zap.Int("failed", len(set.Failed())),
		zap.Int("pruned", set.Pruned()))
	return &Result{Entry: entry, Set: set}, nil
}

// Exec interprets s against every running path of set. The statements of a
// top-level sequence are stepped one at a time so that budgets are enforced
// between them.
func (rt *Runtime) Exec(ctx context.Context, set ContextSet, s ir.Stmt) (ContextSet, error) {
	stmts := []ir.Stmt{s}
	if seq, ok := s.(*ir.Seq); ok {
		stmts = seq.Stmts
	}
	for _, st := range stmts {
		if set.Done() {
			break
		}
		if err := ctx.Err(); err != nil {
			rt.Logger.Debug("analysis aborted", zap.Error(err))
			return set.Abort(fmt.Sprintf("analysis aborted: %v", err)), nil
		}
		var err error
		set, err = set.FlatMapN(ctx, rt.Options.Workers, rt.stepper(st))
		if err != nil {
			return set, err
		}
		if n := len(set.Running()); rt.Options.MaxPaths > 0 && n > rt.Options.MaxPaths {
			rt.Logger.Debug("analysis aborted", zap.Int("paths", n))
			return set.Abort(pathLimitReason(rt.Options.MaxPaths)), nil
		}
	}
	return set, nil
}

func pathLimitReason(limit int) string {
	return fmt.Sprintf("analysis aborted: more than %d paths", limit)
}

// stepper runs s on one path. Invariant violations panic deep inside the
// interpreter; they are turned into an error here so that they also surface
// from worker goroutines.
func (rt *Runtime) stepper(s ir.Stmt) func(context.Context, Context) ([]Context, error) {
	return func(ctx context.Context, c Context) (out []Context, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("internal error at %s: %v", s.Pos(), r)
			}
		}()
		return rt.execStmt(ctx, c, s), nil
	}
}

// finish classifies a path that reached the end of the entry statement.
func (rt *Runtime) finish(ctx context.Context, c Context) ([]Context, error) {
	switch c.control {
	case ControlBreak, ControlContinue:
		return []Context{c.Fail(fmt.Sprintf("'%s' outside loop", c.control), nil)}, nil
	}
	if rt.Checker == nil {
		return []Context{c.Succeed()}, nil
	}
	v, culprit, err := rt.Checker.OnComplete(ctx, c.set)
	if err != nil {
		return []Context{c.Log(fmt.Sprintf("constraint check skipped: %v", err), nil).Succeed()}, nil
	}
	if v != constraints.Unsat {
		return []Context{c.Succeed()}, nil
	}
	if culprit.Kind == constraints.KindRequire {
		return []Context{c.Fail(violation(culprit), culprit.Src)}, nil
	}
	return []Context{c.prune(culprit.Src)}, nil
}

func violation(con constraints.Constraint) string {
	if con.Message != "" {
		return con.Message
	}
	return fmt.Sprintf("constraint violated: %s", con.Exp)
}
