package constraints

import (
	"context"
)

// Checker decides when a path's constraints are handed to the solver. The
// engine calls OnAdd after every appended constraint and OnComplete once when
// the path finishes, without knowing which strategy is in use.
type Checker interface {
	// OnAdd reports whether set is still feasible after c was appended.
	OnAdd(ctx context.Context, set Set, c Constraint) (Verdict, error)

	// OnComplete checks a finished path. When it returns Unsat, culprit is
	// the first constraint that made the set infeasible.
	OnComplete(ctx context.Context, set Set) (v Verdict, culprit Constraint, err error)
}

// Immediate asks the solver at every constraint, so a path fails at the
// statement that broke it.
type Immediate struct {
	Solver Solver
}

func (c *Immediate) OnAdd(ctx context.Context, set Set, _ Constraint) (Verdict, error) {
	return c.Solver.Check(ctx, set.Items())
}

// OnComplete has nothing left to do: every prefix was already checked.
func (c *Immediate) OnComplete(ctx context.Context, set Set) (Verdict, Constraint, error) {
	if err := ctx.Err(); err != nil {
		return Unknown, Constraint{}, err
	}
	return Sat, Constraint{}, nil
}

// Deferred checks a path only when it finishes.
type Deferred struct {
	Solver Solver
}

func (c *Deferred) OnAdd(ctx context.Context, _ Set, _ Constraint) (Verdict, error) {
	return Unknown, ctx.Err()
}

func (c *Deferred) OnComplete(ctx context.Context, set Set) (Verdict, Constraint, error) {
	items := set.Items()
	v, err := c.Solver.Check(ctx, items)
	if err != nil || v != Unsat {
		return v, Constraint{}, err
	}
	culprit, err := FirstConflict(ctx, c.Solver, items)
	if err != nil {
		return Unknown, Constraint{}, err
	}
	return Unsat, culprit, nil
}

// FirstConflict finds the shortest infeasible prefix of items and returns its
// last constraint. items itself must be infeasible.
func FirstConflict(ctx context.Context, s Solver, items []Constraint) (Constraint, error) {
	lo, hi := 1, len(items)
	for lo < hi {
		mid := (lo + hi) / 2
		v, err := s.Check(ctx, items[:mid])
		if err != nil {
			return Constraint{}, err
		}
		if v == Unsat {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return items[hi-1], nil
}

// NewChecker wraps s in the immediate or deferred strategy.
func NewChecker(s Solver, immediate bool) Checker {
	if immediate {
		return &Immediate{Solver: s}
	}
	return &Deferred{Solver: s}
}
