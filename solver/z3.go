// Package solver checks constraint sets with Z3. Importing it registers the
// "z3" solver with the constraints package.
package solver

import (
	"context"
	"sync"

	"github.com/aclements/go-z3/z3"

	"slava0135/shapecheck/constraints"
)

func init() {
	constraints.Register("z3", func() constraints.Solver { return &Z3{} })
}

// frame is one pushed solver scope holding a single constraint.
type frame struct {
	key     string
	skipped bool
}

// Z3 keeps one solver alive between calls. Consecutive queries on one path
// share a prefix, so only the constraints past the common prefix are
// popped and pushed again.
type Z3 struct {
	init *constraints.Init

	mu     sync.Mutex
	ctx    *EncodingContext
	solver *z3.Solver
	stack  []frame
}

func (s *Z3) Init(init *constraints.Init) error {
	s.init = init
	z := z3.NewContext(nil)
	s.ctx = NewEncodingContext(z)
	s.solver = z3.NewSolver(z)
	return nil
}

func (s *Z3) logf(format string, v ...interface{}) {
	if s.init != nil && s.init.Debug && s.init.Logf != nil {
		s.init.Logf(format, v...)
	}
}

func key(c constraints.Constraint) string {
	return c.Kind.String() + " " + c.Exp.String()
}

func (s *Z3) Check(ctx context.Context, items []constraints.Constraint) (constraints.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return constraints.Unknown, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.solver == nil {
		if err := s.Init(s.init); err != nil {
			return constraints.Unknown, err
		}
	}

	common := 0
	for common < len(s.stack) && common < len(items) && s.stack[common].key == key(items[common]) {
		common++
	}
	for len(s.stack) > common {
		s.solver.Pop()
		s.stack = s.stack[:len(s.stack)-1]
	}
	for _, c := range items[common:] {
		s.solver.Push()
		f := frame{key: key(c)}
		enc, err := s.ctx.EncodeBool(c.Exp)
		if err != nil {
			s.logf("z3: skipping %s: %v", c, err)
			f.skipped = true
		} else {
			s.solver.Assert(enc)
		}
		s.stack = append(s.stack, f)
	}

	sat, err := s.solver.Check()
	if err != nil {
		s.logf("z3: %v", err)
		return constraints.Unknown, nil
	}
	if !sat {
		return constraints.Unsat, nil
	}
	for _, f := range s.stack {
		if f.skipped {
			return constraints.Unknown, nil
		}
	}
	return constraints.Sat, ctx.Err()
}
