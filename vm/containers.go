package vm

import "nilan/value"

// indexGet implements IndexGet for every container kind that supports it:
// Vec/Tuple by integer index, Object by string key.
func (vm *VM) indexGet(target, index value.Value, ip int) (value.Value, error) {
	switch target.Kind {
	case value.KindVec, value.KindTuple:
		iface, guard, err := target.Borrow()
		if err != nil {
			return value.Value{}, vmErrorf(KindAccessError, ip, "%s", err)
		}
		defer guard.Release()
		elems := iface.([]value.Value)
		if index.Kind != value.KindInteger {
			return value.Value{}, vmErrorf(KindBadOperandType, ip, "index must be an integer, got %s", index.Kind)
		}
		i := index.AsInt()
		if i < 0 || i >= int64(len(elems)) {
			return value.Value{}, vmErrorf(KindBadSlot, ip, "index %d out of range (len %d)", i, len(elems))
		}
		return elems[i], nil

	case value.KindObject:
		iface, guard, err := target.Borrow()
		if err != nil {
			return value.Value{}, vmErrorf(KindAccessError, ip, "%s", err)
		}
		defer guard.Release()
		fields := iface.(map[string]value.Value)
		if index.Kind != value.KindString {
			return value.Value{}, vmErrorf(KindBadOperandType, ip, "object key must be a string, got %s", index.Kind)
		}
		keyIface, keyGuard, err := index.Borrow()
		if err != nil {
			return value.Value{}, vmErrorf(KindAccessError, ip, "%s", err)
		}
		key := keyIface.(string)
		keyGuard.Release()
		v, ok := fields[key]
		if !ok {
			return value.Value{}, vmErrorf(KindBadSlot, ip, "object has no field %q", key)
		}
		return v, nil

	default:
		return value.Value{}, vmErrorf(KindBadOperandType, ip, "cannot index into %s", target.Kind)
	}
}

// indexSet implements IndexSet, mutating target's interior in place
// through an exclusive borrow.
func (vm *VM) indexSet(target, index, val value.Value, ip int) error {
	switch target.Kind {
	case value.KindVec:
		guard, err := target.Cell.BorrowMut()
		if err != nil {
			return vmErrorf(KindAccessError, ip, "%s", err)
		}
		defer guard.Release()
		elems := guard.Get().([]value.Value)
		if index.Kind != value.KindInteger {
			return vmErrorf(KindBadOperandType, ip, "index must be an integer, got %s", index.Kind)
		}
		i := index.AsInt()
		if i < 0 || i >= int64(len(elems)) {
			return vmErrorf(KindBadSlot, ip, "index %d out of range (len %d)", i, len(elems))
		}
		elems[i] = val
		return nil

	case value.KindObject:
		guard, err := target.Cell.BorrowMut()
		if err != nil {
			return vmErrorf(KindAccessError, ip, "%s", err)
		}
		defer guard.Release()
		fields := guard.Get().(map[string]value.Value)
		if index.Kind != value.KindString {
			return vmErrorf(KindBadOperandType, ip, "object key must be a string, got %s", index.Kind)
		}
		keyIface, keyGuard, err := index.Borrow()
		if err != nil {
			return vmErrorf(KindAccessError, ip, "%s", err)
		}
		key := keyIface.(string)
		keyGuard.Release()
		fields[key] = val
		return nil

	default:
		return vmErrorf(KindBadOperandType, ip, "cannot assign into %s", target.Kind)
	}
}

// tupleIndexGet implements TupleIndexGet{index}: a compile-time-known,
// bounds-checked positional read, valid on Vec or Tuple.
func (vm *VM) tupleIndexGet(target value.Value, index int, ip int) (value.Value, error) {
	if target.Kind != value.KindTuple && target.Kind != value.KindVec {
		return value.Value{}, vmErrorf(KindBadOperandType, ip, "cannot tuple-index into %s", target.Kind)
	}
	iface, guard, err := target.Borrow()
	if err != nil {
		return value.Value{}, vmErrorf(KindAccessError, ip, "%s", err)
	}
	defer guard.Release()
	elems := iface.([]value.Value)
	if index < 0 || index >= len(elems) {
		return value.Value{}, vmErrorf(KindBadSlot, ip, "tuple index %d out of range (len %d)", index, len(elems))
	}
	return elems[index], nil
}

// tupleIndexSet implements TupleIndexSet{index}.
func (vm *VM) tupleIndexSet(target value.Value, index int, val value.Value, ip int) error {
	if target.Kind != value.KindTuple && target.Kind != value.KindVec {
		return vmErrorf(KindBadOperandType, ip, "cannot tuple-index into %s", target.Kind)
	}
	guard, err := target.Cell.BorrowMut()
	if err != nil {
		return vmErrorf(KindAccessError, ip, "%s", err)
	}
	defer guard.Release()
	elems := guard.Get().([]value.Value)
	if index < 0 || index >= len(elems) {
		return vmErrorf(KindBadSlot, ip, "tuple index %d out of range (len %d)", index, len(elems))
	}
	elems[index] = val
	return nil
}
