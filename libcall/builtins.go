package libcall

import (
	"context"
	"fmt"
	"strings"

	"github.com/emirpasic/gods/sets/hashset"
	"github.com/emirpasic/gods/stacks/arraystack"

	"slava0135/shapecheck/ir"
	"slava0135/shapecheck/subtypes"
	"slava0135/shapecheck/symexec"
	"slava0135/shapecheck/symexp"
	"slava0135/shapecheck/value"
)

func init() {
	ModuleRegister("builtins", "isinstance", isinstance)
	ModuleRegister("builtins", "print", printArgs)
}

// isinstance(v, cls) accepts a user class or the name of a builtin type.
// A class argument of any other kind gives an unknown result.
func isinstance(ctx context.Context, c symexec.Context, args []value.Address, src *ir.Source) []symexec.Context {
	fn := qualified("builtins", "isinstance")
	if len(args) != 2 {
		return []symexec.Context{c.Fail(fmt.Sprintf("%s() takes 2 arguments but %d were given", fn, len(args)), src)}
	}
	v := c.Get(args[0])
	switch cls := c.Get(args[1]).(type) {
	case value.Type:
		obj, ok := v.(value.Object)
		ok = ok && inherits(c, obj.Class, args[1])
		return []symexec.Context{c.Return(value.NewBool(ok, src))}
	case value.String:
		name, _ := constString(cls)
		if t, ok := subtypes.Lookup(name); ok {
			return []symexec.Context{c.Return(value.NewBool(value.IsInstance(v, t), src))}
		}
	}
	c = c.Warn(fmt.Sprintf("from '%s': second argument is not a class", fn), src)
	sym, c := c.FreshName("isinstance")
	return []symexec.Context{c.Return(value.Bool{Exp: symexp.BoolSym(sym), Src: src})}
}

// inherits walks the base classes of class looking for target.
func inherits(c symexec.Context, class, target value.Address) bool {
	if class == value.NoAddress {
		return false
	}
	seen := hashset.New()
	stack := arraystack.New()
	stack.Push(class)
	for !stack.Empty() {
		top, _ := stack.Pop()
		a := top.(value.Address)
		if a == target {
			return true
		}
		if seen.Contains(a) {
			continue
		}
		seen.Add(a)
		t, ok := c.Get(a).(value.Type)
		if !ok {
			continue
		}
		for _, b := range t.Bases {
			stack.Push(b)
		}
	}
	return false
}

// printArgs records its arguments in the path log.
func printArgs(ctx context.Context, c symexec.Context, args []value.Address, src *ir.Source) []symexec.Context {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		v := c.Get(a)
		if s, ok := constString(v); ok {
			parts = append(parts, s)
			continue
		}
		parts = append(parts, v.String())
	}
	c = c.Log(strings.Join(parts, " "), src)
	return []symexec.Context{c.Return(value.None{Src: src})}
}
