package subtypes

import (
	"testing"
)

func TestIsSubclassOf(t *testing.T) {
	tests := []struct {
		a, b *Element
		want bool
	}{
		{Int, Int, true},
		{Int, Float, false},
		{Float, Int, false},
		{Int, Number, true},
		{Bool, Number, true},
		{Bool, Any, true},
		{Int, Size, false},
		{Function, Callable, true},
		{Callable, Function, false},
	}
	for _, tt := range tests {
		if got := tt.a.IsSubclassOf(tt.b); got != tt.want {
			t.Errorf("[%s] isSubclassOf [%s] got %v; want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestIsSubtypeOf(t *testing.T) {
	tests := []struct {
		a, b *Element
		want bool
	}{
		{Int, Float, true},
		{Bool, Float, true},
		{Float, Int, false},
		{Str, Number, false},
		{None, Any, true},
	}
	for _, tt := range tests {
		if got := tt.a.IsSubtypeOf(tt.b); got != tt.want {
			t.Errorf("[%s] <: [%s] got %v; want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		a, b, want *Element
	}{
		{Int, Int, Int},
		{Int, Float, Float},
		{Float, Bool, Float},
		{Bool, Int, Int},
		{Str, Int, Any},
		{Function, Type, Callable},
	}
	for _, tt := range tests {
		if got := Join(tt.a, tt.b); got != tt.want {
			t.Errorf("join(%s, %s) got %v; want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLookup(t *testing.T) {
	if got, ok := Lookup("Size"); !ok || got != Size {
		t.Errorf("lookup(Size) got %v; want %v", got, Size)
	}
	if _, ok := Lookup("tensor"); ok {
		t.Errorf("lookup(tensor) should fail")
	}
}
