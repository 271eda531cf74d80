package value

import "testing"

func TestEqualScalars(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"ints equal", Int(3), Int(3), true},
		{"ints differ", Int(3), Int(4), false},
		{"bool vs int kind mismatch", Bool(true), Int(1), false},
		{"unit equal", Unit, Unit, true},
		{"float equal", Float(1.5), Float(1.5), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Equal(c.a, c.b); got != c.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestEqualContainers(t *testing.T) {
	v1 := Vec([]Value{Int(1), Int(2)})
	v2 := Vec([]Value{Int(1), Int(2)})
	v3 := Vec([]Value{Int(1), Int(3)})
	if !Equal(v1, v2) {
		t.Error("expected equal vecs to compare equal")
	}
	if Equal(v1, v3) {
		t.Error("expected different vecs to compare unequal")
	}

	o1 := Object(map[string]Value{"a": Int(1)})
	o2 := Object(map[string]Value{"a": Int(1)})
	if !Equal(o1, o2) {
		t.Error("expected equal objects to compare equal")
	}
}

func TestTruthy(t *testing.T) {
	if Bool(false).Truthy() {
		t.Error("false should not be truthy")
	}
	if !Bool(true).Truthy() {
		t.Error("true should be truthy")
	}
	if Unit.Truthy() {
		t.Error("unit should not be truthy")
	}
	if !Int(0).Truthy() {
		t.Error("non-bool scalars are always truthy in this grammar")
	}
}

func TestSharedBorrowRefThenMutFails(t *testing.T) {
	s := NewShared("hello")
	ref, err := s.BorrowRef()
	if err != nil {
		t.Fatalf("BorrowRef: %v", err)
	}
	if _, err := s.BorrowMut(); err == nil {
		t.Fatal("expected BorrowMut to fail while a shared ref is live")
	}
	ref.Release()
	mg, err := s.BorrowMut()
	if err != nil {
		t.Fatalf("BorrowMut after release: %v", err)
	}
	mg.Release()
}

func TestSharedTakeThenAnyAccessFails(t *testing.T) {
	s := NewShared(42)
	if _, err := s.Take(); err != nil {
		t.Fatalf("Take: %v", err)
	}
	if _, err := s.BorrowRef(); err == nil {
		t.Fatal("expected BorrowRef after Take to fail")
	}
	if _, err := s.BorrowMut(); err == nil {
		t.Fatal("expected BorrowMut after Take to fail")
	}
	if _, err := s.Take(); err == nil {
		t.Fatal("expected second Take to fail")
	}
}

func TestFutureResolveOnce(t *testing.T) {
	f := NewFuture()
	f.Resolve(Int(1))
	f.Resolve(Int(2)) // ignored, already resolved
	<-f.Ready()
	v, err := f.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.AsInt() != 1 {
		t.Errorf("Result() = %v, want 1", v.AsInt())
	}
}
