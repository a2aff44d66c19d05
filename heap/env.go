package heap

import (
	iradix "github.com/hashicorp/go-immutable-radix"

	"slava0135/shapecheck/value"
)

// Env maps names to addresses for one lexical scope and falls back to its
// parent on lookup.
type Env struct {
	tree   *iradix.Tree
	parent *Env
}

func NewEnv() Env {
	return Env{tree: iradix.New()}
}

func (e Env) Bind(name string, a value.Address) Env {
	if e.tree == nil {
		e.tree = iradix.New()
	}
	e.tree, _, _ = e.tree.Insert([]byte(name), a)
	return e
}

func (e Env) Resolve(name string) (value.Address, bool) {
	for s := &e; s != nil; s = s.parent {
		if s.tree == nil {
			continue
		}
		if a, ok := s.tree.Get([]byte(name)); ok {
			return a.(value.Address), true
		}
	}
	return value.NoAddress, false
}

func (e Env) Lookup(name string) (value.Address, error) {
	a, ok := e.Resolve(name)
	if !ok {
		return value.NoAddress, ErrUnbound
	}
	return a, nil
}

// Push opens a child scope. Bindings in it shadow e until Pop.
func (e Env) Push() Env {
	parent := e
	return Env{tree: iradix.New(), parent: &parent}
}

func (e Env) Pop() Env {
	if e.parent == nil {
		panic("pop of the outermost scope")
	}
	return *e.parent
}

// Names lists the bindings of the innermost scope in byte order.
func (e Env) Names() []string {
	var names []string
	if e.tree == nil {
		return names
	}
	e.tree.Root().Walk(func(k []byte, _ interface{}) bool {
		names = append(names, string(k))
		return false
	})
	return names
}
