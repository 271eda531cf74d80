package vm

import (
	"nilan/unit"
	"nilan/value"
)

// doCall implements Call{hash, args}: the Unit's own function table is
// consulted first, then the Context's native registry, per the dynamic
// dispatch rule in the design notes ("the VM first consults the Unit's
// function table, then the Context's").
func (vm *VM) doCall(hash uint64, argc int, ip int) error {
	if desc, ok := vm.Unit.Function(hash); ok {
		return vm.enterCompiled(desc, argc, ip)
	}
	if fn, ok := vm.Context.Function(hash); ok {
		return vm.invokeNative(fn.Func, argc, ip)
	}
	return vmErrorf(KindMissingFunction, ip, "no function registered for hash %d", hash)
}

// doCallInstance implements CallInstance{hash, args}: hash is the bare
// method-name hash; the effective hash is hash_combine(receiver's runtime
// type hash, hash). Lookup order is reversed from plain Call (Context,
// then Unit) per the VM's instance-resolution rule. With
// MemoizeInstanceFn, the combined hash is cached per callsite after its
// first successful resolution.
func (vm *VM) doCallInstance(methodHash uint64, argc int, ip int) error {
	if argc == 0 {
		return vmErrorf(KindBadOperandType, ip, "instance call needs a receiver argument")
	}
	receiverIdx := vm.stack.Len() - argc
	receiver, ok := vm.stack.Get(receiverIdx)
	if !ok {
		return vmErrorf(KindStackUnderflow, ip, "instance call needs %d operands", argc)
	}

	effectiveHash, cached := vm.instanceCache[ip]
	if !cached {
		effectiveHash = unit.HashCombine(receiver.TypeHash(), methodHash)
	}
	remember := func() {
		if !cached && vm.Options.MemoizeInstanceFn {
			vm.instanceCache[ip] = effectiveHash
		}
	}

	if fn, ok := vm.Context.Function(effectiveHash); ok {
		remember()
		return vm.invokeNative(fn.Func, argc, ip)
	}
	if desc, ok := vm.Unit.Function(effectiveHash); ok {
		remember()
		return vm.enterCompiled(desc, argc, ip)
	}
	return vmErrorf(KindMissingFunction, ip, "no method registered for hash %d", effectiveHash)
}

// doCallFn implements CallFn{args}: the callee is a first-class Function
// value sitting just below its argc explicit arguments.
func (vm *VM) doCallFn(argc int, ip int) error {
	explicitArgs, err := vm.popN(argc, ip)
	if err != nil {
		return err
	}
	callee, err := vm.pop(ip)
	if err != nil {
		return err
	}
	if callee.Kind != value.KindFunction {
		return vmErrorf(KindBadOperandType, ip, "cannot call a %s", callee.Kind)
	}
	iface, guard, err := callee.Borrow()
	if err != nil {
		return vmErrorf(KindAccessError, ip, "%s", err)
	}
	fn := iface.(value.Function)
	guard.Release()

	allArgs := make([]value.Value, 0, len(fn.Captured)+len(explicitArgs))
	allArgs = append(allArgs, fn.Captured...)
	allArgs = append(allArgs, explicitArgs...)

	if desc, ok := vm.Unit.Function(fn.Hash); ok {
		for _, a := range allArgs {
			vm.stack.Push(a)
		}
		vm.frames = append(vm.frames, frame{base: vm.stack.Len() - len(allArgs), returnIP: vm.ip})
		vm.ip = desc.EntryIP
		return nil
	}
	if native, ok := vm.Context.Function(fn.Hash); ok {
		result, err := native.Func(allArgs)
		if err != nil {
			return vmErrorf(KindBadOperandType, ip, "native call failed: %s", err)
		}
		vm.stack.Push(result)
		return nil
	}
	return vmErrorf(KindMissingFunction, ip, "no function registered for hash %d", fn.Hash)
}

// enterCompiled pushes a new call frame over the argc values already on
// top of the stack and jumps into the function's entry point.
func (vm *VM) enterCompiled(desc unit.FunctionDesc, argc int, ip int) error {
	if argc != desc.Arity {
		return vmErrorf(KindBadOperandType, ip, "function expects %d args, got %d", desc.Arity, argc)
	}
	vm.frames = append(vm.frames, frame{base: vm.stack.Len() - argc, returnIP: vm.ip})
	vm.ip = desc.EntryIP
	return nil
}

// invokeNative pops argc arguments (in original left-to-right order) and
// runs them through a native function synchronously, pushing its result.
func (vm *VM) invokeNative(fn func([]value.Value) (value.Value, error), argc int, ip int) error {
	args, err := vm.popN(argc, ip)
	if err != nil {
		return err
	}
	result, err := fn(args)
	if err != nil {
		return vmErrorf(KindBadOperandType, ip, "native call failed: %s", err)
	}
	vm.stack.Push(result)
	return nil
}
