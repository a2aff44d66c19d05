// Package constraints accumulates the predicates a path relies on and decides,
// through a pluggable Solver, whether they can hold together.
package constraints

import (
	"fmt"
	"strings"

	"slava0135/shapecheck/ir"
	"slava0135/shapecheck/symexp"
)

type Kind int

const (
	// KindRequire must hold; a refuted requirement fails the path.
	KindRequire Kind = iota
	// KindGuarantee is a fact derived by the engine, such as a dimension
	// being non-negative.
	KindGuarantee
	// KindAssume is a branch condition. A refuted assumption means the
	// branch is unreachable.
	KindAssume
)

func (k Kind) String() string {
	switch k {
	case KindRequire:
		return "require"
	case KindGuarantee:
		return "guarantee"
	case KindAssume:
		return "assume"
	default:
		panic(fmt.Sprintf("unknown constraint kind %d", int(k)))
	}
}

type Constraint struct {
	Kind    Kind
	Exp     symexp.Bool
	Message string
	Src     *ir.Source
}

func (c Constraint) String() string {
	s := fmt.Sprintf("%s %s", c.Kind, c.Exp)
	if c.Message != "" {
		s += fmt.Sprintf(" (%s)", c.Message)
	}
	if c.Src != nil {
		s += " at " + c.Src.String()
	}
	return s
}

type node struct {
	c    Constraint
	prev *node
}

// Set is an append-only sequence of constraints. Appending returns a new Set
// and leaves the receiver untouched, so forked paths share their common
// prefix.
type Set struct {
	last *node
	n    int
}

func (s Set) Add(c Constraint) Set {
	return Set{last: &node{c: c, prev: s.last}, n: s.n + 1}
}

func (s Set) Require(exp symexp.Bool, msg string, src *ir.Source) Set {
	return s.Add(Constraint{Kind: KindRequire, Exp: exp, Message: msg, Src: src})
}

func (s Set) Guarantee(exp symexp.Bool, msg string, src *ir.Source) Set {
	return s.Add(Constraint{Kind: KindGuarantee, Exp: exp, Message: msg, Src: src})
}

func (s Set) Assume(exp symexp.Bool, msg string, src *ir.Source) Set {
	return s.Add(Constraint{Kind: KindAssume, Exp: exp, Message: msg, Src: src})
}

func (s Set) Len() int {
	return s.n
}

func (s Set) Last() (Constraint, bool) {
	if s.last == nil {
		return Constraint{}, false
	}
	return s.last.c, true
}

// Items returns the constraints in the order they were added.
func (s Set) Items() []Constraint {
	items := make([]Constraint, s.n)
	i := s.n - 1
	for n := s.last; n != nil; n = n.prev {
		items[i] = n.c
		i--
	}
	return items
}

// Count returns the number of constraints of kind k.
func (s Set) Count(k Kind) int {
	count := 0
	for n := s.last; n != nil; n = n.prev {
		if n.c.Kind == k {
			count++
		}
	}
	return count
}

func (s Set) String() string {
	var lines []string
	for i, c := range s.Items() {
		lines = append(lines, fmt.Sprintf("%3d: %s", i, c))
	}
	return strings.Join(lines, "\n")
}
