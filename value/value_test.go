package value

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"slava0135/shapecheck/subtypes"
	"slava0135/shapecheck/symexp"
)

func TestObject_SetAttrCopies(t *testing.T) {
	a := NewObject(NoAddress, nil).SetAttr("x", 2)
	b := a.SetAttr("x", 3).SetAttr("y", 4)

	addr, ok := a.Attr("x")
	assert.True(t, ok)
	assert.Equal(t, Address(2), addr)
	_, ok = a.Attr("y")
	assert.False(t, ok)

	addr, _ = b.Attr("x")
	assert.Equal(t, Address(3), addr)
	assert.Equal(t, []string{"x", "y"}, b.Attrs())
}

func TestObject_SetAttrKeepsOrder(t *testing.T) {
	o := NewObject(NoAddress, nil).SetAttr("b", 1).SetAttr("a", 2).SetAttr("b", 3)
	assert.Equal(t, []string{"b", "a"}, o.Attrs())
	assert.Equal(t, "{b: @3, a: @2}", o.String())
}

func TestIsInstance(t *testing.T) {
	assert.True(t, IsInstance(NewInt(1, nil), subtypes.Number))
	assert.False(t, IsInstance(NewInt(1, nil), subtypes.Float))
	assert.True(t, IsInstance(NewFloat(1.5, nil), subtypes.Float))
	assert.True(t, IsInstance(NewBool(true, nil), subtypes.Number))
	assert.False(t, IsInstance(NewString("a", nil), subtypes.Number))
	assert.True(t, IsInstance(Function{Name: "f"}, subtypes.Callable))
}

func TestAddress(t *testing.T) {
	assert.True(t, Address(-3).Internal())
	assert.False(t, ModuleAddress.Internal())
	assert.Equal(t, "@1", ModuleAddress.String())
}

func TestRefs(t *testing.T) {
	o := NewObject(7, nil).SetAttr("x", 2).SetAttr("y", 5)
	assert.Equal(t, []Address{7, 2, 5}, Refs(o))
	assert.Nil(t, Refs(NewInt(1, nil)))
	assert.Equal(t, []Address{4}, Refs(Type{Name: "T", Bases: []Address{4}}))
}

func TestNumeric(t *testing.T) {
	n, ok := Numeric(NewBool(true, nil))
	assert.True(t, ok)
	assert.Equal(t, symexp.Int(1), n)

	_, ok = Numeric(Bool{Exp: symexp.BoolSym("b")})
	assert.False(t, ok)

	_, ok = Numeric(None{})
	assert.False(t, ok)
}
