package unit

import (
	"encoding/binary"
	"fmt"
)

const jumpTargetWidth = 4 // bytes; fixed so a forward jump can be backpatched in place

// Encode assembles one instruction: a single opcode byte followed by its
// operands, each encoded per OperandShape(op) (varint, except jump targets
// which are fixed-width to stay patchable).
func Encode(op Opcode, operands ...uint64) ([]byte, error) {
	shape := OperandShape(op)
	if len(operands) != len(shape) {
		return nil, fmt.Errorf("🤖 DeveloperError: opcode %s takes %d operands, got %d", op, len(shape), len(operands))
	}
	buf := make([]byte, 0, 1+len(operands)*2)
	buf = append(buf, byte(op))
	for i, kind := range shape {
		switch kind {
		case OperandVarint:
			var tmp [binary.MaxVarintLen64]byte
			n := binary.PutUvarint(tmp[:], operands[i])
			buf = append(buf, tmp[:n]...)
		case OperandJumpTarget:
			if operands[i] > 0xFFFFFFFF {
				return nil, fmt.Errorf("🤖 DeveloperError: jump target %d exceeds 32 bits", operands[i])
			}
			var tmp [jumpTargetWidth]byte
			binary.LittleEndian.PutUint32(tmp[:], uint32(operands[i]))
			buf = append(buf, tmp[:]...)
		}
	}
	return buf, nil
}

// Decode reads one instruction starting at code[ip], returning its opcode,
// operands, and total encoded width in bytes.
func Decode(code []byte, ip int) (Opcode, []uint64, int, error) {
	if ip >= len(code) {
		return 0, nil, 0, fmt.Errorf("💥 VmError::BadSlot: instruction pointer %d out of range", ip)
	}
	op := Opcode(code[ip])
	shape := OperandShape(op)
	pos := ip + 1
	operands := make([]uint64, 0, len(shape))
	for _, kind := range shape {
		switch kind {
		case OperandVarint:
			v, n := binary.Uvarint(code[pos:])
			if n <= 0 {
				return 0, nil, 0, fmt.Errorf("💥 VmError::BadSlot: malformed varint operand at byte %d", pos)
			}
			operands = append(operands, v)
			pos += n
		case OperandJumpTarget:
			if pos+jumpTargetWidth > len(code) {
				return 0, nil, 0, fmt.Errorf("💥 VmError::BadSlot: truncated jump target at byte %d", pos)
			}
			operands = append(operands, uint64(binary.LittleEndian.Uint32(code[pos:pos+jumpTargetWidth])))
			pos += jumpTargetWidth
		}
	}
	return op, operands, pos - ip, nil
}

// PatchJumpTarget overwrites the fixed-width jump-target operand of the
// jump instruction starting at pos with target. pos must point at a Jump,
// JumpIf, or JumpIfNot opcode byte.
func PatchJumpTarget(code []byte, pos int, target uint64) error {
	if pos >= len(code) {
		return fmt.Errorf("🤖 DeveloperError: patch position %d out of range", pos)
	}
	op := Opcode(code[pos])
	switch op {
	case OpJump, OpJumpIf, OpJumpIfNot:
	default:
		return fmt.Errorf("🤖 DeveloperError: cannot patch non-jump opcode %s", op)
	}
	if target > 0xFFFFFFFF {
		return fmt.Errorf("🤖 DeveloperError: jump target %d exceeds 32 bits", target)
	}
	operandPos := pos + 1
	binary.LittleEndian.PutUint32(code[operandPos:operandPos+jumpTargetWidth], uint32(target))
	return nil
}
