package constraints

import (
	"context"
	"fmt"
	"sort"
)

const ErrUnknownSolver = Error("no solver registered under that name")

type Error string

func (e Error) Error() string { return string(e) }

type Verdict int

const (
	Unknown Verdict = iota
	Sat
	Unsat
)

func (v Verdict) String() string {
	switch v {
	case Unknown:
		return "unknown"
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		panic(fmt.Sprintf("unknown verdict %d", int(v)))
	}
}

// Init is passed to every solver before first use.
type Init struct {
	Debug bool
	Logf  func(format string, v ...interface{})
}

// Solver decides whether a sequence of constraints can hold at once.
type Solver interface {
	Init(*Init) error

	// Check must return as soon as possible once ctx is done.
	Check(ctx context.Context, items []Constraint) (Verdict, error)
}

// registeredSolvers holds every solver the binary was built with. Use
// Register to add to it.
var registeredSolvers = make(map[string]func() Solver)

// Register makes a solver available under name. It is meant to be called
// from init.
func Register(name string, solver func() Solver) {
	if _, exists := registeredSolvers[name]; exists {
		panic(fmt.Sprintf("a solver named %s is already registered", name))
	}
	registeredSolvers[name] = solver
}

// Lookup returns a fresh instance of the named solver.
func Lookup(name string) (Solver, error) {
	solver, exists := registeredSolvers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSolver, name)
	}
	return solver(), nil
}

// Names lists the registered solvers.
func Names() []string {
	names := make([]string, 0, len(registeredSolvers))
	for name := range registeredSolvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
