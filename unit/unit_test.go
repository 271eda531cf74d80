package unit

import (
	"testing"

	"nilan/span"
	"nilan/value"
)

func TestEncodeDecodeVarint(t *testing.T) {
	code, err := Encode(OpPush, 42)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	op, operands, width, err := Decode(code, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if op != OpPush || len(operands) != 1 || operands[0] != 42 {
		t.Fatalf("got op=%s operands=%v", op, operands)
	}
	if width != len(code) {
		t.Fatalf("width = %d, want %d", width, len(code))
	}
}

func TestEncodeDecodeJumpTarget(t *testing.T) {
	code, err := Encode(OpJump, 1000)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(code) != 1+jumpTargetWidth {
		t.Fatalf("len(code) = %d, want %d", len(code), 1+jumpTargetWidth)
	}
	op, operands, _, err := Decode(code, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if op != OpJump || operands[0] != 1000 {
		t.Fatalf("got op=%s operands=%v", op, operands)
	}
}

func TestPatchJumpTarget(t *testing.T) {
	code, _ := Encode(OpJumpIfNot, 0)
	if err := PatchJumpTarget(code, 0, 77); err != nil {
		t.Fatalf("PatchJumpTarget: %v", err)
	}
	_, operands, _, err := Decode(code, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if operands[0] != 77 {
		t.Fatalf("operands[0] = %d, want 77", operands[0])
	}
}

func TestPatchJumpTargetRejectsNonJump(t *testing.T) {
	code, _ := Encode(OpAdd)
	if err := PatchJumpTarget(code, 0, 1); err == nil {
		t.Fatalf("expected error patching a non-jump opcode")
	}
}

func TestEncodeWrongOperandCount(t *testing.T) {
	if _, err := Encode(OpPush); err == nil {
		t.Fatalf("expected error for missing operand")
	}
	if _, err := Encode(OpAdd, 1); err == nil {
		t.Fatalf("expected error for unexpected operand")
	}
}

func TestUnitEmitReturnsIP(t *testing.T) {
	u := New(false)
	ip1, _ := u.Emit(OpUnit)
	ip2, _ := u.Emit(OpPush, 5)
	if ip1 != 0 {
		t.Fatalf("ip1 = %d, want 0", ip1)
	}
	if ip2 != 1 {
		t.Fatalf("ip2 = %d, want 1", ip2)
	}
	if u.Len() != len(u.Instructions) {
		t.Fatalf("Len() out of sync with Instructions")
	}
}

func TestUnitPatchJump(t *testing.T) {
	u := New(false)
	pos, _ := u.Emit(OpJump, 0)
	u.Emit(OpUnit)
	target := u.Len()
	if err := u.PatchJump(pos, target); err != nil {
		t.Fatalf("PatchJump: %v", err)
	}
	_, operands, _, _ := Decode(u.Instructions, pos)
	if int(operands[0]) != target {
		t.Fatalf("patched target = %d, want %d", operands[0], target)
	}
}

func TestInternStringDedup(t *testing.T) {
	u := New(false)
	a := u.InternString("hello")
	b := u.InternString("world")
	c := u.InternString("hello")
	if a != c {
		t.Fatalf("InternString not deduped: %d != %d", a, c)
	}
	if a == b {
		t.Fatalf("distinct strings got the same slot")
	}
	if len(u.StaticStrings) != 2 {
		t.Fatalf("StaticStrings = %v, want 2 entries", u.StaticStrings)
	}
}

func TestInternObjectKeysDedup(t *testing.T) {
	u := New(false)
	a := u.InternObjectKeys([]string{"x", "y"})
	b := u.InternObjectKeys([]string{"x", "y"})
	c := u.InternObjectKeys([]string{"y", "x"})
	if a != b {
		t.Fatalf("identical key sets not deduped")
	}
	if a == c {
		t.Fatalf("differently-ordered key sets should not share a slot")
	}
}

func TestDefineFunctionCollision(t *testing.T) {
	u := New(false)
	hash := ItemHash("demo.fn")
	if err := u.DefineFunction(hash, FunctionDesc{EntryIP: 0, Arity: 1, Kind: FunctionFree}); err != nil {
		t.Fatalf("first DefineFunction: %v", err)
	}
	if err := u.DefineFunction(hash, FunctionDesc{EntryIP: 0, Arity: 1, Kind: FunctionFree}); err != nil {
		t.Fatalf("identical redefinition should not error: %v", err)
	}
	if err := u.DefineFunction(hash, FunctionDesc{EntryIP: 10, Arity: 2, Kind: FunctionFree}); err == nil {
		t.Fatalf("expected LinkError on conflicting redefinition")
	}
}

func TestItemHashStable(t *testing.T) {
	if ItemHash("std.iter.map") != ItemHash("std.iter.map") {
		t.Fatalf("ItemHash is not deterministic")
	}
	if ItemHash("a") == ItemHash("b") {
		t.Fatalf("distinct paths collided (extremely unlikely, check ItemHash)")
	}
}

func buildSampleUnit() *Unit {
	u := New(true)
	u.Emit(OpPush, 0)
	ip, _ := u.Emit(OpJumpIfNot, 0)
	u.Emit(OpUnit)
	u.PatchJump(ip, u.Len())
	u.RecordDebug(0, 1, span.New(0, 1), "push const")

	u.AddConstant(value.Bool(true))
	u.AddConstant(value.Int(42))
	u.AddConstant(value.Float(3.5))
	u.AddConstant(value.Char('z'))
	u.AddConstant(value.Byte(9))
	u.AddConstant(value.TypeHandle(ItemHash("demo.Type")))
	u.AddConstant(value.Unit)

	u.InternString("hello")
	u.InternString("world")
	u.InternObjectKeys([]string{"a", "b"})

	hash := ItemHash("demo.fn")
	u.DefineFunction(hash, FunctionDesc{EntryIP: 0, Arity: 2, Kind: FunctionClosure})
	u.Types[ItemHash("demo.Type")] = TypeDesc{Name: "Type"}
	u.DebugInfo.Signatures[hash] = "fn demo(a, b)"
	return u
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	u := buildSampleUnit()
	data, err := Serialize(u)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if string(got.Instructions) != string(u.Instructions) {
		t.Fatalf("Instructions mismatch")
	}
	if len(got.Constants) != len(u.Constants) {
		t.Fatalf("Constants length mismatch: %d != %d", len(got.Constants), len(u.Constants))
	}
	for i := range u.Constants {
		if !value.Equal(got.Constants[i], u.Constants[i]) {
			t.Fatalf("constant %d mismatch: %v != %v", i, got.Constants[i], u.Constants[i])
		}
	}
	if len(got.StaticStrings) != len(u.StaticStrings) {
		t.Fatalf("StaticStrings mismatch")
	}
	if len(got.StaticObjectKeys) != len(u.StaticObjectKeys) {
		t.Fatalf("StaticObjectKeys mismatch")
	}
	if len(got.Functions) != len(u.Functions) {
		t.Fatalf("Functions mismatch")
	}
	if len(got.Types) != len(u.Types) {
		t.Fatalf("Types mismatch")
	}
	if got.DebugInfo == nil || len(got.DebugInfo.Instructions) != len(u.DebugInfo.Instructions) {
		t.Fatalf("DebugInfo.Instructions mismatch")
	}
	if got.DebugInfo.Signatures[ItemHash("demo.fn")] != "fn demo(a, b)" {
		t.Fatalf("DebugInfo.Signatures not round-tripped")
	}
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	if _, err := Deserialize([]byte("nope")); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}

func TestDeserializeRejectsBadVersion(t *testing.T) {
	data, _ := Serialize(New(false))
	data[4] = 0xFF
	if _, err := Deserialize(data); err == nil {
		t.Fatalf("expected error for unsupported version")
	}
}
