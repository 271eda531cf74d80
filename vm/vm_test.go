package vm

import (
	"testing"

	"nilan/context"
	"nilan/unit"
	"nilan/value"
)

// buildUnit emits instructions into a fresh Unit via the supplied closure
// and returns it, so each test only describes the bytecode it cares about.
func buildUnit(t *testing.T, fn func(u *unit.Unit)) *unit.Unit {
	t.Helper()
	u := unit.New(false)
	fn(u)
	return u
}

func TestRunSimpleArithmetic(t *testing.T) {
	u := buildUnit(t, func(u *unit.Unit) {
		one := u.AddConstant(value.Int(1))
		two := u.AddConstant(value.Int(2))
		u.Emit(unit.OpPush, uint64(one))
		u.Emit(unit.OpPush, uint64(two))
		u.Emit(unit.OpAdd)
		u.Emit(unit.OpReturn)
	})
	got, err := New(nil, u, Options{}).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.AsInt() != 3 {
		t.Fatalf("got %v, want 3", got)
	}
}

func TestRunDivideByZero(t *testing.T) {
	u := buildUnit(t, func(u *unit.Unit) {
		one := u.AddConstant(value.Int(1))
		zero := u.AddConstant(value.Int(0))
		u.Emit(unit.OpPush, uint64(one))
		u.Emit(unit.OpPush, uint64(zero))
		u.Emit(unit.OpDiv)
		u.Emit(unit.OpReturn)
	})
	_, err := New(nil, u, Options{}).Run()
	vmErr, ok := err.(VmError)
	if !ok {
		t.Fatalf("expected VmError, got %v", err)
	}
	if vmErr.Kind != KindDivideByZero {
		t.Fatalf("got kind %s, want DivideByZero", vmErr.Kind)
	}
}

func TestRunLocalsCopyAndReplace(t *testing.T) {
	// fn(a) { a = a + 1; a }, called with 41, should return 42.
	u := buildUnit(t, func(u *unit.Unit) {
		one := u.AddConstant(value.Int(1))
		u.Emit(unit.OpCopy, 0)
		u.Emit(unit.OpPush, uint64(one))
		u.Emit(unit.OpAdd)
		u.Emit(unit.OpReplace, 0)
		u.Emit(unit.OpPop)
		u.Emit(unit.OpCopy, 0)
		u.Emit(unit.OpReturn)
		hash := unit.ItemHash("demo.fn")
		u.DefineFunction(hash, unit.FunctionDesc{EntryIP: 0, Arity: 1, Kind: unit.FunctionFree})
	})
	got, err := New(nil, u, Options{}).Call("demo.fn", []value.Value{value.Int(41)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.AsInt() != 42 {
		t.Fatalf("got %v, want 42", got)
	}
}

func TestCallResolvesUnitBeforeContext(t *testing.T) {
	hash := unit.ItemHash("demo.fn")
	u := buildUnit(t, func(u *unit.Unit) {
		// Run starts at ip 0, so jump over the function body to the caller.
		skip, _ := u.Emit(unit.OpJump, 0)
		entry := u.Len()
		forty := u.AddConstant(value.Int(40))
		u.Emit(unit.OpPush, uint64(forty))
		u.Emit(unit.OpReturn)
		u.DefineFunction(hash, unit.FunctionDesc{EntryIP: entry, Arity: 0, Kind: unit.FunctionFree})
		u.PatchJump(skip, u.Len())

		callerTwo := u.AddConstant(value.Int(2))
		u.Emit(unit.OpCall, hash, 0)
		u.Emit(unit.OpPush, uint64(callerTwo))
		u.Emit(unit.OpAdd)
		u.Emit(unit.OpReturn)
	})

	ctx := context.New()
	ctx.Install(context.Module{
		Name: "demo",
		Functions: []context.FunctionEntry{
			{Hash: hash, Name: "fn", Arity: 0, Func: func([]value.Value) (value.Value, error) {
				return value.Int(999), nil
			}},
		},
	})

	got, err := New(ctx, u, Options{}).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.AsInt() != 42 {
		t.Fatalf("got %v, want 42 (Unit function should shadow Context)", got)
	}
}

func TestCallInstanceCombinesReceiverTypeHash(t *testing.T) {
	methodHash := unit.ItemHash("double")
	ctx := context.New()
	effectiveHash := unit.HashCombine(value.Int(0).TypeHash(), methodHash)
	ctx.Install(context.Module{
		Name: "int",
		Functions: []context.FunctionEntry{
			{Hash: effectiveHash, Name: "double", Arity: 1, Func: func(args []value.Value) (value.Value, error) {
				return value.Int(args[0].AsInt() * 2), nil
			}},
		},
	})

	u := buildUnit(t, func(u *unit.Unit) {
		twentyOne := u.AddConstant(value.Int(21))
		u.Emit(unit.OpPush, uint64(twentyOne))
		u.Emit(unit.OpCallInstance, methodHash, 1)
		u.Emit(unit.OpReturn)
	})

	got, err := New(ctx, u, Options{}).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.AsInt() != 42 {
		t.Fatalf("got %v, want 42", got)
	}
}

func TestIndexGetVec(t *testing.T) {
	u := buildUnit(t, func(u *unit.Unit) {
		one := u.AddConstant(value.Int(1))
		u.Emit(unit.OpPush, uint64(one))
		a, b, c := u.AddConstant(value.Int(10)), u.AddConstant(value.Int(20)), u.AddConstant(value.Int(30))
		u.Emit(unit.OpPush, uint64(a))
		u.Emit(unit.OpPush, uint64(b))
		u.Emit(unit.OpPush, uint64(c))
		u.Emit(unit.OpVec, 3)
		u.Emit(unit.OpIndexGet)
		u.Emit(unit.OpReturn)
	})
	got, err := New(nil, u, Options{}).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.AsInt() != 20 {
		t.Fatalf("got %v, want 20", got)
	}
}

func TestSelectReturnsFirstResolvedFuture(t *testing.T) {
	slow := value.NewFuture()
	fast := value.NewFuture()
	fast.Resolve(value.Int(7))

	idx, result, err := raceSelect([]*value.Future{slow, fast}, 0)
	if err != nil {
		t.Fatalf("raceSelect: %v", err)
	}
	if idx != 1 || result.AsInt() != 7 {
		t.Fatalf("got idx=%d result=%v, want idx=1 result=7", idx, result)
	}
}
