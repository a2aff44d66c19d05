package libcall

import (
	"context"
	"fmt"

	"slava0135/shapecheck/ir"
	"slava0135/shapecheck/symexec"
	"slava0135/shapecheck/symexp"
	"slava0135/shapecheck/value"
)

// The guard module turns assertions into constraints:
//
//	assert LibCall.guard.require_lt(a, b, "a < b")
//
// Each function takes two operands and a constant message, adds
// require(a op b, message) and returns True. Operands that can't be checked
// only produce a warning.
func init() {
	ModuleRegister("guard", "require_lt", guard("require_lt", false, symexec.Context.GenLt))
	ModuleRegister("guard", "require_lte", guard("require_lte", false, symexec.Context.GenLte))
	ModuleRegister("guard", "require_eq", guard("require_eq", true, symexec.Context.GenEq))
	ModuleRegister("guard", "require_neq", guard("require_neq", true, symexec.Context.GenNeq))
}

type comparison func(c symexec.Context, a, b symexp.Exp) symexp.Bool

// operand returns the expression of a numeric value, or of a string when
// text is accepted.
func operand(v value.Value, text bool) (symexp.Exp, bool) {
	switch v := v.(type) {
	case value.Int:
		return v.Num, true
	case value.Float:
		return v.Num, true
	case value.String:
		return v.Exp, text
	}
	return nil, false
}

func guard(name string, text bool, gen comparison) symexec.LibFunc {
	fn := qualified("guard", name)
	kinds := "numeric"
	if text {
		kinds = "numeric or string"
	}
	return func(ctx context.Context, c symexec.Context, args []value.Address, src *ir.Source) []symexec.Context {
		done := func(c symexec.Context) []symexec.Context {
			return []symexec.Context{c.Return(value.NewBool(true, src))}
		}
		if len(args) != 3 {
			return done(c.Warn(fmt.Sprintf("from '%s': got insufficient number of argument: %d", fn, len(args)), src))
		}

		a, aok := operand(c.Get(args[0]), text)
		b, bok := operand(c.Get(args[1]), text)
		if !aok || !bok {
			return done(c.Warn(fmt.Sprintf("from '%s': operand is not a %s", fn, kinds), src))
		}
		msg, ok := constString(c.Get(args[2]))
		if !ok {
			return done(c.Warn(fmt.Sprintf("from '%s: message is not a constant string", fn), src))
		}

		var pred symexp.Bool
		if a.Sort() != b.Sort() {
			// a number never equals a string
			pred = symexp.BoolOf(name == "require_neq")
		} else {
			pred = gen(c, a, b)
		}
		return done(c.Require(ctx, pred, msg, src))
	}
}
