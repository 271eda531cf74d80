// Package context implements the native function/type registry a VM
// consults alongside a Unit: the bridge between compiled script code and
// host-provided functionality, addressed by the same 64-bit item hash the
// compiler bakes into Call/CallInstance/Type instructions.
package context

import (
	"fmt"

	"github.com/google/uuid"

	"nilan/value"
)

// NativeFunc is a host function installed into a Context. It receives the
// already-evaluated argument values and either returns a result or an
// error, mirroring the native call ABI's "pushes a return value or
// returns a future" contract (a future is simply a value.Value of
// KindFuture returned like any other result).
type NativeFunc func(args []value.Value) (value.Value, error)

// FunctionEntry is one installed native function.
type FunctionEntry struct {
	Hash  uint64
	Name  string
	Arity int
	Func  NativeFunc
}

// TypeEntry is one installed native type, addressable by type-test (`is`)
// and instance-call resolution.
type TypeEntry struct {
	Hash uint64
	Name string
}

// Module is a named bundle of functions and types, installed as a unit.
type Module struct {
	Name      string
	Functions []FunctionEntry
	Types     []TypeEntry
}

// LinkError mirrors the CompileError kind of the same name: installing two
// modules that disagree about the same hash is programmer error, not a
// recoverable runtime condition.
type LinkError struct{ Message string }

func (e LinkError) Error() string { return fmt.Sprintf("💥 CompileError::LinkError: %s", e.Message) }

// Context is the registry a VM is built with. It is immutable once
// installation is complete: Install is meant to run during host setup,
// never while a VM is executing against it.
type Context struct {
	functions map[uint64]FunctionEntry
	types     map[uint64]TypeEntry
	buildID   uuid.UUID
}

// New returns an empty Context, stamped with a fresh random build id that
// distinguishes it from every other Context. Nothing outside this package's
// tests reads the id.
func New() *Context {
	return &Context{
		functions: map[uint64]FunctionEntry{},
		types:     map[uint64]TypeEntry{},
		buildID:   uuid.New(),
	}
}

// BuildID reports this Context's instance id, fixed when New created it.
func (c *Context) BuildID() uuid.UUID { return c.buildID }

// Install registers every function and type in m, failing with LinkError
// on the first hash collision against an already-installed, differently
// named entry.
func (c *Context) Install(m Module) error {
	for _, fn := range m.Functions {
		if existing, ok := c.functions[fn.Hash]; ok && existing.Name != fn.Name {
			return LinkError{Message: fmt.Sprintf("function hash collision: %q and %q", existing.Name, fn.Name)}
		}
		c.functions[fn.Hash] = fn
	}
	for _, t := range m.Types {
		if existing, ok := c.types[t.Hash]; ok && existing.Name != t.Name {
			return LinkError{Message: fmt.Sprintf("type hash collision: %q and %q", existing.Name, t.Name)}
		}
		c.types[t.Hash] = t
	}
	return nil
}

// Function looks up a native function by item hash.
func (c *Context) Function(hash uint64) (FunctionEntry, bool) {
	fn, ok := c.functions[hash]
	return fn, ok
}

// Type looks up a native type by hash.
func (c *Context) Type(hash uint64) (TypeEntry, bool) {
	t, ok := c.types[hash]
	return t, ok
}

// IterFunctions enumerates every installed function, for introspection and
// diagnostics.
func (c *Context) IterFunctions() []FunctionEntry {
	out := make([]FunctionEntry, 0, len(c.functions))
	for _, fn := range c.functions {
		out = append(out, fn)
	}
	return out
}

// IterTypes enumerates every installed type.
func (c *Context) IterTypes() []TypeEntry {
	out := make([]TypeEntry, 0, len(c.types))
	for _, t := range c.types {
		out = append(out, t)
	}
	return out
}
