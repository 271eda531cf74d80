// Package vm implements the stack-based virtual machine: it drives a
// unit.Unit's instructions against an operand stack and a call-frame
// stack, resolving named calls through a Unit's own function table first
// and a context.Context's native registry second (the reverse order for
// CallInstance, whose hash must first be combined with the receiver's
// runtime type).
package vm

import (
	"fmt"
	"log"
	"os"

	"nilan/context"
	"nilan/unit"
	"nilan/value"
)

// Options mirrors the VM-side knobs a caller can set.
type Options struct {
	Debug             bool // log every dispatched instruction to stderr
	MemoizeInstanceFn bool // cache per-callsite CallInstance resolution
}

// VM is constructed from a Context and a Unit, then driven to completion
// by Run or Call. It is reusable across calls: a runtime error aborts the
// current execution but leaves stack and frames ready to be reset by the
// next call.
type VM struct {
	Context *context.Context
	Unit    *unit.Unit
	Options Options

	stack  Stack
	frames []frame
	ip     int

	instanceCache map[int]uint64
	logger        *log.Logger
}

// New constructs a VM over ctx and u. ctx may be nil for scripts that call
// no native functions.
func New(ctx *context.Context, u *unit.Unit, opts Options) *VM {
	if ctx == nil {
		ctx = context.New()
	}
	return &VM{
		Context:       ctx,
		Unit:          u,
		Options:       opts,
		instanceCache: map[int]uint64{},
		logger:        log.New(os.Stderr, "nilan: ", log.Ltime),
	}
}

// Run executes the Unit's instructions starting at ip 0 to completion:
// the mode the REPL and a bare (no `fn main`) script use.
func (vm *VM) Run() (value.Value, error) {
	vm.reset(0)
	return vm.asyncComplete()
}

// Call invokes a named, already-compiled function by its dotted item
// path, the mode `nilan run` uses once a Unit defines `fn main`.
func (vm *VM) Call(item string, args []value.Value) (value.Value, error) {
	hash := unit.ItemHash(item)
	desc, ok := vm.Unit.Function(hash)
	if !ok {
		return value.Value{}, vmErrorf(KindMissingFunction, 0, "no function %q in unit", item)
	}
	if len(args) != desc.Arity {
		return value.Value{}, vmErrorf(KindBadOperandType, desc.EntryIP, "%q expects %d args, got %d", item, desc.Arity, len(args))
	}
	vm.reset(desc.EntryIP)
	for _, a := range args {
		vm.stack.Push(a)
	}
	return vm.asyncComplete()
}

// reset clears the stack and frame stack and seats a single root frame
// whose return is "halt the execution", starting at entryIP.
func (vm *VM) reset(entryIP int) {
	vm.stack = vm.stack[:0]
	vm.frames = []frame{{base: 0, returnIP: -1}}
	vm.ip = entryIP
}

// asyncStep executes exactly one instruction. It returns a non-nil value
// once the outermost frame has returned (the execution is complete);
// otherwise both returns are nil and the caller should step again. Await
// and Select are the only suspension points; both block this call until
// their future(s) resolve, while every other instruction is synchronous.
func (vm *VM) asyncStep() (*value.Value, error) {
	ip := vm.ip
	op, operands, width, err := unit.Decode(vm.Unit.Instructions, ip)
	if err != nil {
		return nil, vmErrorf(KindBadSlot, ip, "%s", err)
	}
	vm.ip += width

	if vm.Options.Debug {
		vm.logger.Printf("ip=%-5d %-14s %v", ip, op, operands)
	}

	return vm.dispatch(op, operands, ip)
}

// asyncComplete drives asyncStep to completion, returning the entry
// frame's final value or the first error raised.
func (vm *VM) asyncComplete() (value.Value, error) {
	for {
		final, err := vm.asyncStep()
		if err != nil {
			return value.Value{}, err
		}
		if final != nil {
			return *final, nil
		}
	}
}

func (vm *VM) currentFrame() *frame { return &vm.frames[len(vm.frames)-1] }

func (vm *VM) pop(ip int) (value.Value, error) {
	v, ok := vm.stack.Pop()
	if !ok {
		return value.Value{}, vmErrorf(KindStackUnderflow, ip, "operand stack exhausted")
	}
	return v, nil
}

func (vm *VM) popN(n int, ip int) ([]value.Value, error) {
	if vm.stack.Len() < n {
		return nil, vmErrorf(KindStackUnderflow, ip, "need %d operands, have %d", n, vm.stack.Len())
	}
	start := vm.stack.Len() - n
	out := make([]value.Value, n)
	copy(out, vm.stack[start:])
	vm.stack.Truncate(start)
	return out, nil
}

var compoundBase = map[unit.Opcode]unit.Opcode{
	unit.OpAddAssign:    unit.OpAdd,
	unit.OpSubAssign:    unit.OpSub,
	unit.OpMulAssign:    unit.OpMul,
	unit.OpDivAssign:    unit.OpDiv,
	unit.OpRemAssign:    unit.OpRem,
	unit.OpBitAndAssign: unit.OpBitAnd,
	unit.OpBitOrAssign:  unit.OpBitOr,
	unit.OpBitXorAssign: unit.OpBitXor,
	unit.OpShlAssign:    unit.OpShl,
	unit.OpShrAssign:    unit.OpShr,
}

// dispatch executes one decoded instruction against the VM's state. It
// returns a non-nil *value.Value only when a Return/ReturnUnit just
// popped the outermost (root) frame.
func (vm *VM) dispatch(op unit.Opcode, operands []uint64, ip int) (*value.Value, error) {
	switch op {
	case unit.OpPush:
		idx := int(operands[0])
		if idx < 0 || idx >= len(vm.Unit.Constants) {
			return nil, vmErrorf(KindBadSlot, ip, "constant index %d out of range", idx)
		}
		vm.stack.Push(vm.Unit.Constants[idx])

	case unit.OpPop:
		if _, err := vm.pop(ip); err != nil {
			return nil, err
		}

	case unit.OpUnit:
		vm.stack.Push(value.Unit)

	case unit.OpCopy:
		slot := vm.currentFrame().base + int(operands[0])
		v, ok := vm.stack.Get(slot)
		if !ok {
			return nil, vmErrorf(KindBadSlot, ip, "local slot %d out of range", operands[0])
		}
		vm.stack.Push(v)

	case unit.OpReplace:
		slot := vm.currentFrame().base + int(operands[0])
		v, ok := vm.stack.Peek()
		if !ok {
			return nil, vmErrorf(KindStackUnderflow, ip, "replace needs a value on top of the stack")
		}
		if !vm.stack.Set(slot, v) {
			return nil, vmErrorf(KindBadSlot, ip, "local slot %d out of range", operands[0])
		}

	case unit.OpAdd, unit.OpSub, unit.OpMul, unit.OpDiv, unit.OpRem,
		unit.OpBitAnd, unit.OpBitOr, unit.OpBitXor, unit.OpShl, unit.OpShr,
		unit.OpAnd, unit.OpOr:
		b, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		a, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		result, err := vm.binaryNumeric(op, a, b, ip)
		if err != nil {
			return nil, err
		}
		vm.stack.Push(result)

	case unit.OpNeg:
		a, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		switch a.Kind {
		case value.KindInteger:
			vm.stack.Push(value.Int(-a.AsInt()))
		case value.KindFloat:
			vm.stack.Push(value.Float(-a.AsFloat()))
		default:
			return nil, vmErrorf(KindBadOperandType, ip, "cannot negate %s", a.Kind)
		}

	case unit.OpNot:
		a, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		vm.stack.Push(value.Bool(!a.Truthy()))

	case unit.OpAddAssign, unit.OpSubAssign, unit.OpMulAssign, unit.OpDivAssign, unit.OpRemAssign,
		unit.OpBitAndAssign, unit.OpBitOrAssign, unit.OpBitXorAssign, unit.OpShlAssign, unit.OpShrAssign:
		slot := vm.currentFrame().base + int(operands[0])
		rhs, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		cur, ok := vm.stack.Get(slot)
		if !ok {
			return nil, vmErrorf(KindBadSlot, ip, "local slot %d out of range", operands[0])
		}
		result, err := vm.binaryNumeric(compoundBase[op], cur, rhs, ip)
		if err != nil {
			return nil, err
		}
		vm.stack.Set(slot, result)
		vm.stack.Push(result)

	case unit.OpEq, unit.OpNeq:
		b, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		a, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		eq := value.Equal(a, b)
		if op == unit.OpNeq {
			eq = !eq
		}
		vm.stack.Push(value.Bool(eq))

	case unit.OpLt, unit.OpGt, unit.OpLte, unit.OpGte:
		b, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		a, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		result, err := compareOrdered(op, a, b, ip)
		if err != nil {
			return nil, err
		}
		vm.stack.Push(result)

	case unit.OpIs, unit.OpIsNot:
		typeHandle, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		v, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		if typeHandle.Kind != value.KindType {
			return nil, vmErrorf(KindBadOperandType, ip, "right side of 'is' must be a type, got %s", typeHandle.Kind)
		}
		match := v.TypeHash() == typeHandle.AsTypeHash()
		if op == unit.OpIsNot {
			match = !match
		}
		vm.stack.Push(value.Bool(match))

	case unit.OpVec, unit.OpTuple:
		elems, err := vm.popN(int(operands[0]), ip)
		if err != nil {
			return nil, err
		}
		if op == unit.OpVec {
			vm.stack.Push(value.Vec(elems))
		} else {
			vm.stack.Push(value.Tuple(elems))
		}

	case unit.OpObject:
		keys := vm.Unit.StaticObjectKeys[operands[0]]
		values, err := vm.popN(len(keys), ip)
		if err != nil {
			return nil, err
		}
		fields := make(map[string]value.Value, len(keys))
		for i, k := range keys {
			fields[k] = values[i]
		}
		vm.stack.Push(value.Object(fields))

	case unit.OpString:
		vm.stack.Push(value.String(vm.Unit.StaticStrings[operands[0]]))

	case unit.OpByteString:
		vm.stack.Push(value.ByteString([]byte(vm.Unit.StaticStrings[operands[0]])))

	case unit.OpIndexGet:
		target, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		index, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		result, err := vm.indexGet(target, index, ip)
		if err != nil {
			return nil, err
		}
		vm.stack.Push(result)

	case unit.OpIndexSet:
		val, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		target, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		index, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		if err := vm.indexSet(target, index, val, ip); err != nil {
			return nil, err
		}
		vm.stack.Push(val)

	case unit.OpTupleIndexGet:
		target, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		result, err := vm.tupleIndexGet(target, int(operands[0]), ip)
		if err != nil {
			return nil, err
		}
		vm.stack.Push(result)

	case unit.OpTupleIndexSet:
		val, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		target, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		if err := vm.tupleIndexSet(target, int(operands[0]), val, ip); err != nil {
			return nil, err
		}
		vm.stack.Push(val)

	case unit.OpJump:
		vm.ip = int(operands[0])

	case unit.OpJumpIf:
		cond, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		if cond.Truthy() {
			vm.ip = int(operands[0])
		}

	case unit.OpJumpIfNot:
		cond, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		if !cond.Truthy() {
			vm.ip = int(operands[0])
		}

	case unit.OpReturn:
		val, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		return vm.doReturn(val, ip)

	case unit.OpReturnUnit:
		return vm.doReturn(value.Unit, ip)

	case unit.OpCall:
		return nil, vm.doCall(operands[0], int(operands[1]), ip)

	case unit.OpCallInstance:
		return nil, vm.doCallInstance(operands[0], int(operands[1]), ip)

	case unit.OpCallFn:
		return nil, vm.doCallFn(int(operands[0]), ip)

	case unit.OpLoadFn:
		vm.stack.Push(value.FunctionRef(operands[0], nil))

	case unit.OpAwait:
		v, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		fut, err := futureOf(v, ip)
		if err != nil {
			return nil, err
		}
		result, err := await(fut, ip)
		if err != nil {
			return nil, err
		}
		vm.stack.Push(result)

	case unit.OpSelect:
		futVals, err := vm.popN(int(operands[0]), ip)
		if err != nil {
			return nil, err
		}
		futures := make([]*value.Future, len(futVals))
		for i, fv := range futVals {
			fut, err := futureOf(fv, ip)
			if err != nil {
				return nil, err
			}
			futures[i] = fut
		}
		idx, result, err := raceSelect(futures, ip)
		if err != nil {
			return nil, err
		}
		vm.stack.Push(value.Int(int64(idx)))
		vm.stack.Push(result)

	case unit.OpType:
		vm.stack.Push(value.TypeHandle(operands[0]))

	case unit.OpPrint:
		v, err := vm.pop(ip)
		if err != nil {
			return nil, err
		}
		fmt.Println(v.String())

	default:
		return nil, vmErrorf(KindBadOperandType, ip, "unknown opcode %s", op)
	}

	return nil, nil
}

// doReturn pops the current frame, discarding anything left above its
// base, and either halts (the root frame) or resumes the caller.
func (vm *VM) doReturn(val value.Value, ip int) (*value.Value, error) {
	f := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]

	if len(vm.frames) == 0 {
		return &val, nil
	}

	vm.stack.Truncate(f.base)
	vm.stack.Push(val)
	vm.ip = f.returnIP
	return nil, nil
}
