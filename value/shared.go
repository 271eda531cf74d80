// Package value implements the runtime value representation: a small
// tagged variant of scalars plus a Shared cell for everything with
// interior mutability, grounded on the tri-state borrow-checked access
// model the runtime relies on instead of a garbage collector.
package value

import (
	"fmt"
	"sync"
)

// AccessState is the tri-state guard on a Shared cell's interior.
type AccessState int

const (
	AccessFree AccessState = iota
	AccessShared
	AccessExclusive
)

func (a AccessState) String() string {
	switch a {
	case AccessFree:
		return "free"
	case AccessShared:
		return "shared"
	case AccessExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// AccessError is returned whenever a borrow cannot be granted under the
// current access state, or when the cell has already been taken.
type AccessError struct {
	Kind string // "Shared", "Exclusive", or "Taken"
}

func (e AccessError) Error() string {
	return fmt.Sprintf("💥 AccessError::%s: cannot acquire access", e.Kind)
}

// Shared is a reference-counted heap box with a runtime-checked access
// guard instead of a garbage collector: at most one exclusive writer, or
// any number of concurrent readers, never both, with a terminal "taken"
// bit once the interior has been moved out.
type Shared struct {
	mu       sync.Mutex
	state    AccessState
	readers  int
	taken    bool
	strong   int
	interior any
}

// NewShared boxes interior in a fresh Shared cell with one strong reference.
func NewShared(interior any) *Shared {
	return &Shared{state: AccessFree, strong: 1, interior: interior}
}

// RefGuard is a live shared-read borrow. Release must be called exactly
// once, in reverse acquisition order relative to other guards on the same
// cell held by the same task.
type RefGuard struct{ cell *Shared }

// Value returns the guarded interior. Valid only until Release.
func (g *RefGuard) Value() any { return g.cell.interior }

// Release ends the shared borrow.
func (g *RefGuard) Release() {
	g.cell.mu.Lock()
	defer g.cell.mu.Unlock()
	g.cell.readers--
	if g.cell.readers <= 0 {
		g.cell.readers = 0
		g.cell.state = AccessFree
	}
}

// MutGuard is a live exclusive-write borrow.
type MutGuard struct{ cell *Shared }

// Get returns the guarded interior. Valid only until Release.
func (g *MutGuard) Get() any { return g.cell.interior }

// Set replaces the guarded interior. Valid only until Release.
func (g *MutGuard) Set(v any) { g.cell.interior = v }

// Release ends the exclusive borrow.
func (g *MutGuard) Release() {
	g.cell.mu.Lock()
	defer g.cell.mu.Unlock()
	g.cell.state = AccessFree
}

// BorrowRef acquires a shared-read guard. Succeeds iff the cell is free or
// already shared and not taken.
func (s *Shared) BorrowRef() (*RefGuard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken {
		return nil, AccessError{Kind: "Taken"}
	}
	if s.state == AccessExclusive {
		return nil, AccessError{Kind: "Exclusive"}
	}
	s.state = AccessShared
	s.readers++
	return &RefGuard{cell: s}, nil
}

// BorrowMut acquires an exclusive-write guard. Succeeds iff the cell is
// free and not taken.
func (s *Shared) BorrowMut() (*MutGuard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken {
		return nil, AccessError{Kind: "Taken"}
	}
	if s.state != AccessFree {
		return nil, AccessError{Kind: "Shared"}
	}
	s.state = AccessExclusive
	return &MutGuard{cell: s}, nil
}

// Take moves the interior out, marking the cell permanently inaccessible.
// Succeeds only when the cell is free and not already taken.
func (s *Shared) Take() (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken {
		return nil, AccessError{Kind: "Taken"}
	}
	if s.state != AccessFree {
		return nil, AccessError{Kind: "Exclusive"}
	}
	s.taken = true
	v := s.interior
	s.interior = nil
	return v, nil
}

// IsReadable is a snapshot; it makes no promise across calls.
func (s *Shared) IsReadable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.taken && s.state != AccessExclusive
}

// IsWritable is a snapshot; it makes no promise across calls.
func (s *Shared) IsWritable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.taken && s.state == AccessFree
}

// Retain increments the strong reference count, mirroring a Value clone.
func (s *Shared) Retain() {
	s.mu.Lock()
	s.strong++
	s.mu.Unlock()
}

// Drop decrements the strong reference count. With no collector, dropping
// the last reference to an untaken cell simply leaves the interior for
// Go's own GC; a taken cell's interior has already been moved out.
func (s *Shared) Drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.strong > 0 {
		s.strong--
	}
}

// StrongCount reports the current strong reference count, mainly for tests.
func (s *Shared) StrongCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strong
}
