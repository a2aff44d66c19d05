package symexec

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ContextSet partitions paths by outcome. Order inside every partition is
// the order in which paths were forked. Infeasible paths are not kept, only
// counted by Pruned, so forking one running path into k successors grows
// Len()+Pruned() by k-1.
type ContextSet struct {
	running   []Context
	succeeded []Context
	failed    []Context
	pruned    int
}

func NewContextSet(cs ...Context) ContextSet {
	var s ContextSet
	return s.add(cs...)
}

// add distributes cs into the partitions matching their outcomes.
// Infeasible paths are counted and dropped.
func (s ContextSet) add(cs ...Context) ContextSet {
	s.running = s.running[:len(s.running):len(s.running)]
	s.succeeded = s.succeeded[:len(s.succeeded):len(s.succeeded)]
	s.failed = s.failed[:len(s.failed):len(s.failed)]
	for _, c := range cs {
		switch c.outcome {
		case Running:
			s.running = append(s.running, c)
		case Succeeded:
			s.succeeded = append(s.succeeded, c)
		case Failed:
			s.failed = append(s.failed, c)
		case Infeasible:
			s.pruned++
		}
	}
	return s
}

func (s ContextSet) Running() []Context { return s.running }

// List returns the succeeded paths.
func (s ContextSet) List() []Context { return s.succeeded }

func (s ContextSet) Failed() []Context { return s.failed }

// Pruned counts paths dropped as infeasible.
func (s ContextSet) Pruned() int { return s.pruned }

// Len counts the paths across every partition.
func (s ContextSet) Len() int {
	return len(s.running) + len(s.succeeded) + len(s.failed)
}

func (s ContextSet) Done() bool {
	return len(s.running) == 0
}

// Map applies f to every running path.
func (s ContextSet) Map(f func(Context) Context) ContextSet {
	next := make([]Context, 0, len(s.running))
	for _, c := range s.running {
		next = append(next, f(c))
	}
	out := ContextSet{succeeded: s.succeeded, failed: s.failed, pruned: s.pruned}
	return out.add(next...)
}

// FlatMap replaces every running path by the successors f returns for it.
func (s ContextSet) FlatMap(ctx context.Context, f func(context.Context, Context) ([]Context, error)) (ContextSet, error) {
	return s.FlatMapN(ctx, 1, f)
}

// FlatMapN is FlatMap running f on up to workers paths at once. Successors
// are merged in the order of their inputs, whatever order they finish in.
func (s ContextSet) FlatMapN(ctx context.Context, workers int, f func(context.Context, Context) ([]Context, error)) (ContextSet, error) {
	results := make([][]Context, len(s.running))
	if workers <= 1 || len(s.running) <= 1 {
		for i, c := range s.running {
			next, err := f(ctx, c)
			if err != nil {
				return s, err
			}
			results[i] = next
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, c := range s.running {
			i, c := i, c
			g.Go(func() error {
				next, err := f(gctx, c)
				results[i] = next
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return s, err
		}
	}

	var all []Context
	for _, next := range results {
		all = append(all, next...)
	}
	out := ContextSet{succeeded: s.succeeded, failed: s.failed, pruned: s.pruned}
	return out.add(all...), nil
}

// Join appends the partitions of o to those of s.
func (s ContextSet) Join(o ContextSet) ContextSet {
	out := ContextSet{
		running:   append(s.running[:len(s.running):len(s.running)], o.running...),
		succeeded: append(s.succeeded[:len(s.succeeded):len(s.succeeded)], o.succeeded...),
		failed:    append(s.failed[:len(s.failed):len(s.failed)], o.failed...),
		pruned:    s.pruned + o.pruned,
	}
	return out
}

// Filter keeps the running paths pred accepts and drops the rest.
func (s ContextSet) Filter(pred func(Context) bool) ContextSet {
	out := ContextSet{succeeded: s.succeeded, failed: s.failed, pruned: s.pruned}
	for _, c := range s.running {
		if pred(c) {
			out.running = append(out.running, c)
		}
	}
	return out
}

// Split separates running paths pred accepts from the others. Finished
// partitions stay with the first result.
func (s ContextSet) Split(pred func(Context) bool) (yes, no ContextSet) {
	yes = ContextSet{succeeded: s.succeeded, failed: s.failed, pruned: s.pruned}
	for _, c := range s.running {
		if pred(c) {
			yes.running = append(yes.running, c)
		} else {
			no.running = append(no.running, c)
		}
	}
	return yes, no
}

// Abort moves every running path to failed with reason, keeping what
// already finished.
func (s ContextSet) Abort(reason string) ContextSet {
	var failed []Context
	for _, c := range s.running {
		failed = append(failed, c.Fail(reason, nil))
	}
	out := ContextSet{succeeded: s.succeeded, failed: s.failed, pruned: s.pruned}
	return out.add(failed...)
}
