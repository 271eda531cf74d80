package context

import (
	"testing"

	"nilan/value"
)

func TestInstallAndLookupFunction(t *testing.T) {
	c := New()
	err := c.Install(Module{
		Name: "math",
		Functions: []FunctionEntry{
			{Hash: 1, Name: "abs", Arity: 1, Func: func(args []value.Value) (value.Value, error) {
				return args[0], nil
			}},
		},
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	fn, ok := c.Function(1)
	if !ok || fn.Name != "abs" {
		t.Fatalf("Function(1) = %+v, %v", fn, ok)
	}
}

func TestInstallIdenticalRedefinitionIsNoop(t *testing.T) {
	c := New()
	entry := FunctionEntry{Hash: 5, Name: "f", Arity: 0, Func: func([]value.Value) (value.Value, error) { return value.Unit, nil }}
	if err := c.Install(Module{Functions: []FunctionEntry{entry}}); err != nil {
		t.Fatalf("first Install: %v", err)
	}
	if err := c.Install(Module{Functions: []FunctionEntry{entry}}); err != nil {
		t.Fatalf("identical redefinition should not error: %v", err)
	}
}

func TestInstallCollisionIsLinkError(t *testing.T) {
	c := New()
	c.Install(Module{Functions: []FunctionEntry{
		{Hash: 9, Name: "f", Func: func([]value.Value) (value.Value, error) { return value.Unit, nil }},
	}})
	err := c.Install(Module{Functions: []FunctionEntry{
		{Hash: 9, Name: "g", Func: func([]value.Value) (value.Value, error) { return value.Unit, nil }},
	}})
	if _, ok := err.(LinkError); !ok {
		t.Fatalf("expected LinkError, got %v", err)
	}
}

func TestBuildIDStableWithinContext(t *testing.T) {
	c := New()
	if c.BuildID() != c.BuildID() {
		t.Fatal("BuildID should be stable across calls on the same Context")
	}
	other := New()
	if c.BuildID() == other.BuildID() {
		t.Fatal("distinct Contexts should get distinct build ids (astronomically unlikely collision)")
	}
}
