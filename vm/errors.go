package vm

import "fmt"

// VmErrorKind classifies a runtime failure. Recoverable per the design:
// the VM that raised one is still reusable for the next call.
type VmErrorKind string

const (
	KindAccessError    VmErrorKind = "AccessError"
	KindBadOperandType VmErrorKind = "BadOperandType"
	KindDivideByZero   VmErrorKind = "DivideByZero"
	KindStackUnderflow VmErrorKind = "StackUnderflow"
	KindBadSlot        VmErrorKind = "BadSlot"
	KindMissingFunction VmErrorKind = "MissingFunction"
	KindHalt           VmErrorKind = "Halt"
)

// VmError is the sole runtime error type the VM raises. It always carries
// the instruction pointer it failed at.
type VmError struct {
	Kind    VmErrorKind
	IP      int
	Message string
}

func (e VmError) Error() string {
	return fmt.Sprintf("💥 VmError::%s at ip %d: %s", e.Kind, e.IP, e.Message)
}

func vmErrorf(kind VmErrorKind, ip int, format string, args ...any) VmError {
	return VmError{Kind: kind, IP: ip, Message: fmt.Sprintf(format, args...)}
}
