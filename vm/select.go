package vm

import "nilan/value"

// futureOf extracts the *value.Future backing v, releasing the borrow
// guard immediately: the caller is about to block on the future's Ready
// channel, and holding a Shared guard across a blocking wait would let one
// suspended task starve every other task's access to the same cell.
func futureOf(v value.Value, ip int) (*value.Future, error) {
	if v.Kind != value.KindFuture {
		return nil, vmErrorf(KindBadOperandType, ip, "expected a future, got %s", v.Kind)
	}
	iface, guard, err := v.Borrow()
	if err != nil {
		return nil, vmErrorf(KindAccessError, ip, "%s", err)
	}
	fut := iface.(*value.Future)
	guard.Release()
	return fut, nil
}

// await blocks until fut resolves and returns its value, or the VmError
// wrapping its rejection.
func await(fut *value.Future, ip int) (value.Value, error) {
	<-fut.Ready()
	result, err := fut.Result()
	if err != nil {
		return value.Value{}, vmErrorf(KindBadOperandType, ip, "awaited future rejected: %s", err)
	}
	return result, nil
}

// raceSelect blocks until the first of futures resolves, returning its
// index (in the branch order futures was given) and resolved value.
// Losing branches are left to resolve or not on their own; Select does not
// wait for them.
func raceSelect(futures []*value.Future, ip int) (int, value.Value, error) {
	type arrival struct {
		index int
		value value.Value
		err   error
	}
	winners := make(chan arrival, len(futures))
	for i, fut := range futures {
		go func(i int, fut *value.Future) {
			<-fut.Ready()
			v, err := fut.Result()
			winners <- arrival{index: i, value: v, err: err}
		}(i, fut)
	}
	first := <-winners
	if first.err != nil {
		return 0, value.Value{}, vmErrorf(KindBadOperandType, ip, "select branch %d rejected: %s", first.index, first.err)
	}
	return first.index, first.value, nil
}
