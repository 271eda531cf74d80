package vm

import (
	"nilan/unit"
	"nilan/value"
)

// binaryNumeric applies an arithmetic/bitwise opcode to two already-popped
// operands. There is no implicit numeric coercion: Int and Float only
// combine with their own kind, everything else is a BadOperandType error.
func (vm *VM) binaryNumeric(op unit.Opcode, a, b value.Value, ip int) (value.Value, error) {
	switch op {
	case unit.OpAdd, unit.OpSub, unit.OpMul, unit.OpDiv, unit.OpRem:
		return vm.arith(op, a, b, ip)
	case unit.OpBitAnd, unit.OpBitOr, unit.OpBitXor, unit.OpShl, unit.OpShr:
		return vm.bitwise(op, a, b, ip)
	case unit.OpAnd:
		return value.Bool(a.Truthy() && b.Truthy()), nil
	case unit.OpOr:
		return value.Bool(a.Truthy() || b.Truthy()), nil
	}
	return value.Value{}, vmErrorf(KindBadOperandType, ip, "unsupported binary opcode")
}

func (vm *VM) arith(op unit.Opcode, a, b value.Value, ip int) (value.Value, error) {
	if a.Kind != b.Kind || (a.Kind != value.KindInteger && a.Kind != value.KindFloat) {
		return value.Value{}, vmErrorf(KindBadOperandType, ip, "cannot apply arithmetic to %s and %s", a.Kind, b.Kind)
	}
	if a.Kind == value.KindInteger {
		x, y := a.AsInt(), b.AsInt()
		switch op {
		case unit.OpAdd:
			return value.Int(x + y), nil
		case unit.OpSub:
			return value.Int(x - y), nil
		case unit.OpMul:
			return value.Int(x * y), nil
		case unit.OpDiv:
			if y == 0 {
				return value.Value{}, vmErrorf(KindDivideByZero, ip, "integer division by zero")
			}
			return value.Int(x / y), nil
		case unit.OpRem:
			if y == 0 {
				return value.Value{}, vmErrorf(KindDivideByZero, ip, "integer remainder by zero")
			}
			return value.Int(x % y), nil
		}
	}
	x, y := a.AsFloat(), b.AsFloat()
	switch op {
	case unit.OpAdd:
		return value.Float(x + y), nil
	case unit.OpSub:
		return value.Float(x - y), nil
	case unit.OpMul:
		return value.Float(x * y), nil
	case unit.OpDiv:
		if y == 0 {
			return value.Value{}, vmErrorf(KindDivideByZero, ip, "float division by zero")
		}
		return value.Float(x / y), nil
	case unit.OpRem:
		if y == 0 {
			return value.Value{}, vmErrorf(KindDivideByZero, ip, "float remainder by zero")
		}
		return value.Float(float64(int64(x) % int64(y))), nil
	}
	return value.Value{}, vmErrorf(KindBadOperandType, ip, "unreachable arithmetic opcode")
}

func (vm *VM) bitwise(op unit.Opcode, a, b value.Value, ip int) (value.Value, error) {
	if a.Kind != value.KindInteger || b.Kind != value.KindInteger {
		return value.Value{}, vmErrorf(KindBadOperandType, ip, "bitwise ops require integers, got %s and %s", a.Kind, b.Kind)
	}
	x, y := a.AsInt(), b.AsInt()
	switch op {
	case unit.OpBitAnd:
		return value.Int(x & y), nil
	case unit.OpBitOr:
		return value.Int(x | y), nil
	case unit.OpBitXor:
		return value.Int(x ^ y), nil
	case unit.OpShl:
		return value.Int(x << uint(y)), nil
	case unit.OpShr:
		return value.Int(x >> uint(y)), nil
	}
	return value.Value{}, vmErrorf(KindBadOperandType, ip, "unreachable bitwise opcode")
}

// compareOrdered implements Lt/Gt/Lte/Gte over Int, Float, Byte, Char, and
// String, the kinds that have a total order in the core grammar.
func compareOrdered(op unit.Opcode, a, b value.Value, ip int) (value.Value, error) {
	if a.Kind != b.Kind {
		return value.Value{}, vmErrorf(KindBadOperandType, ip, "cannot compare %s and %s", a.Kind, b.Kind)
	}
	var cmp int
	switch a.Kind {
	case value.KindInteger, value.KindByte:
		cmp = compareInt64(a.AsInt(), b.AsInt())
	case value.KindFloat:
		cmp = compareFloat64(a.AsFloat(), b.AsFloat())
	case value.KindChar:
		cmp = compareInt64(int64(a.AsChar()), int64(b.AsChar()))
	case value.KindString:
		as, _, _ := a.Borrow()
		bs, _, _ := b.Borrow()
		cmp = compareString(as.(string), bs.(string))
	default:
		return value.Value{}, vmErrorf(KindBadOperandType, ip, "%s has no total order", a.Kind)
	}
	switch op {
	case unit.OpLt:
		return value.Bool(cmp < 0), nil
	case unit.OpGt:
		return value.Bool(cmp > 0), nil
	case unit.OpLte:
		return value.Bool(cmp <= 0), nil
	case unit.OpGte:
		return value.Bool(cmp >= 0), nil
	}
	return value.Value{}, vmErrorf(KindBadOperandType, ip, "unreachable comparison opcode")
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
