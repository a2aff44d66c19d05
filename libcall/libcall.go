// Package libcall holds the builtin library reachable from analyzed programs
// as LibCall.<module>.<name>. Modules register their functions at init time.
package libcall

import (
	"fmt"
	"sort"

	"slava0135/shapecheck/symexec"
	"slava0135/shapecheck/symexp"
	"slava0135/shapecheck/value"
)

// ModuleSep separates a module from a function name.
const ModuleSep = "."

var registered = make(map[string]symexec.LibFunc)

// Register adds a library function. Registering a name twice panics.
func Register(name string, fn symexec.LibFunc) {
	if _, exists := registered[name]; exists {
		panic(fmt.Sprintf("a library function named %s is already registered", name))
	}
	registered[name] = fn
}

// ModuleRegister is Register for a function inside a module.
func ModuleRegister(module, name string, fn symexec.LibFunc) {
	Register(module+ModuleSep+name, fn)
}

// Names lists every registered function in sorted order.
func Names() []string {
	names := make([]string, 0, len(registered))
	for n := range registered {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Library serves the registered functions to the interpreter.
type Library struct{}

func (Library) Lookup(module, name string) (symexec.LibFunc, bool) {
	fn, ok := registered[module+ModuleSep+name]
	return fn, ok
}

func qualified(module, name string) string {
	return "LibCall." + module + ModuleSep + name
}

func constString(v value.Value) (string, bool) {
	s, ok := v.(value.String)
	if !ok {
		return "", false
	}
	c, ok := s.Exp.(symexp.StrConst)
	return c.Value, ok
}
