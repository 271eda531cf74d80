package value

import (
	"fmt"
	"sort"
)

// Kind tags the variant a Value currently holds.
type Kind int

const (
	KindUnit Kind = iota
	KindBool
	KindChar
	KindByte
	KindInteger
	KindFloat
	KindByteString
	KindString
	KindVec
	KindTuple
	KindObject
	KindFunction
	KindFuture
	KindStream
	KindOpaque
	KindType
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindByte:
		return "byte"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindByteString:
		return "byte-string"
	case KindString:
		return "string"
	case KindVec:
		return "vec"
	case KindTuple:
		return "tuple"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	case KindFuture:
		return "future"
	case KindStream:
		return "stream"
	case KindOpaque:
		return "opaque"
	case KindType:
		return "type"
	default:
		return "unknown"
	}
}

// Function is the interior of a KindFunction Value: the item hash it
// refers to, plus any values captured at closure-creation time.
type Function struct {
	Hash     uint64
	Captured []Value
}

// Value is the tagged runtime variant. Scalars are stored inline; every
// other kind boxes its interior in a Shared cell so the VM can borrow-check
// access to it instead of relying on a collector.
type Value struct {
	Kind  Kind
	i64   int64
	f64   float64
	ch    rune
	Cell  *Shared
}

// Unit is the single value of KindUnit.
var Unit = Value{Kind: KindUnit}

func Bool(b bool) Value {
	var i int64
	if b {
		i = 1
	}
	return Value{Kind: KindBool, i64: i}
}

func Char(c rune) Value  { return Value{Kind: KindChar, ch: c} }
func Byte(b byte) Value  { return Value{Kind: KindByte, i64: int64(b)} }
func Int(i int64) Value  { return Value{Kind: KindInteger, i64: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, f64: f} }

func ByteString(b []byte) Value { return Value{Kind: KindByteString, Cell: NewShared(b)} }
func String(s string) Value     { return Value{Kind: KindString, Cell: NewShared(s)} }
func Vec(elems []Value) Value   { return Value{Kind: KindVec, Cell: NewShared(elems)} }
func Tuple(elems []Value) Value { return Value{Kind: KindTuple, Cell: NewShared(elems)} }
func Object(fields map[string]Value) Value {
	return Value{Kind: KindObject, Cell: NewShared(fields)}
}
func FunctionRef(hash uint64, captured []Value) Value {
	return Value{Kind: KindFunction, Cell: NewShared(Function{Hash: hash, Captured: captured})}
}
func FutureRef(f *Future) Value { return Value{Kind: KindFuture, Cell: NewShared(f)} }
func StreamRef(s *Stream) Value { return Value{Kind: KindStream, Cell: NewShared(s)} }
func Opaque(native any) Value   { return Value{Kind: KindOpaque, Cell: NewShared(native)} }
func TypeHandle(hash uint64) Value { return Value{Kind: KindType, i64: int64(hash)} }

func (v Value) AsBool() bool       { return v.i64 != 0 }
func (v Value) AsChar() rune       { return v.ch }
func (v Value) AsByte() byte       { return byte(v.i64) }
func (v Value) AsInt() int64       { return v.i64 }
func (v Value) AsFloat() float64   { return v.f64 }
func (v Value) AsTypeHash() uint64 { return uint64(v.i64) }

// Borrow acquires a shared-read guard on the Value's cell and returns the
// interior directly; intended for read-only VM operations. Only valid for
// non-scalar kinds.
func (v Value) Borrow() (any, *RefGuard, error) {
	guard, err := v.Cell.BorrowRef()
	if err != nil {
		return nil, nil, err
	}
	return guard.Value(), guard, nil
}

// TypeHash returns the type hash used by `is`/`is not` and instance-call
// resolution: a stable per-Kind hash, distinct for byte-strings vs strings
// vs every other variant.
func (v Value) TypeHash() uint64 {
	return typeHashes[v.Kind]
}

// Truthy reports whether v is considered true in a logical ("&&"/"||")
// context. Only bool is truthy-typed in the core grammar; unit is falsy and
// every other kind is always truthy, mirroring a language with no implicit
// numeric coercion.
func (v Value) Truthy() bool {
	if v.Kind == KindBool {
		return v.i64 != 0
	}
	return v.Kind != KindUnit
}

func (v Value) String() string {
	switch v.Kind {
	case KindUnit:
		return "()"
	case KindBool:
		return fmt.Sprintf("%t", v.AsBool())
	case KindChar:
		return fmt.Sprintf("%q", v.ch)
	case KindByte:
		return fmt.Sprintf("%d", v.i64)
	case KindInteger:
		return fmt.Sprintf("%d", v.i64)
	case KindFloat:
		return fmt.Sprintf("%g", v.f64)
	case KindByteString:
		b, _, _ := v.Borrow()
		return fmt.Sprintf("%v", b)
	case KindString:
		s, _, _ := v.Borrow()
		return fmt.Sprintf("%v", s)
	case KindVec:
		elems, _, _ := v.Borrow()
		return fmt.Sprintf("%v", elems)
	case KindTuple:
		elems, _, _ := v.Borrow()
		return fmt.Sprintf("%v", elems)
	case KindObject:
		fields, _, _ := v.Borrow()
		return fmt.Sprintf("%v", fields)
	case KindFunction:
		return "fn"
	case KindFuture:
		return "future"
	case KindStream:
		return "stream"
	case KindOpaque:
		return "opaque"
	case KindType:
		return fmt.Sprintf("type#%d", v.i64)
	default:
		return "?"
	}
}

// Equal implements Eq/Neq: deep structural equality for containers,
// identity (same Shared cell) for opaque natives. There is no hook for
// registering a native equality function.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindUnit:
		return true
	case KindBool, KindByte, KindInteger:
		return a.i64 == b.i64
	case KindChar:
		return a.ch == b.ch
	case KindFloat:
		return a.f64 == b.f64
	case KindType:
		return a.i64 == b.i64
	case KindByteString:
		ab, _, _ := a.Borrow()
		bb, _, _ := b.Borrow()
		abs, aok := ab.([]byte)
		bbs, bok := bb.([]byte)
		if !aok || !bok || len(abs) != len(bbs) {
			return false
		}
		for i := range abs {
			if abs[i] != bbs[i] {
				return false
			}
		}
		return true
	case KindString:
		as, _, _ := a.Borrow()
		bs, _, _ := b.Borrow()
		return as.(string) == bs.(string)
	case KindVec, KindTuple:
		ae, _, _ := a.Borrow()
		be, _, _ := b.Borrow()
		aElems := ae.([]Value)
		bElems := be.([]Value)
		if len(aElems) != len(bElems) {
			return false
		}
		for i := range aElems {
			if !Equal(aElems[i], bElems[i]) {
				return false
			}
		}
		return true
	case KindObject:
		af, _, _ := a.Borrow()
		bf, _, _ := b.Borrow()
		aFields := af.(map[string]Value)
		bFields := bf.(map[string]Value)
		if len(aFields) != len(bFields) {
			return false
		}
		keys := make([]string, 0, len(aFields))
		for k := range aFields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			bv, ok := bFields[k]
			if !ok || !Equal(aFields[k], bv) {
				return false
			}
		}
		return true
	case KindFunction:
		return a.Cell == b.Cell
	default:
		// Opaque, future, stream: identity equality unless a native
		// equality function has been registered for the type (left to
		// the Context, not the core value model).
		return a.Cell == b.Cell
	}
}

var typeHashes = map[Kind]uint64{
	KindUnit:       hashSeed(0),
	KindBool:       hashSeed(1),
	KindChar:       hashSeed(2),
	KindByte:       hashSeed(3),
	KindInteger:    hashSeed(4),
	KindFloat:      hashSeed(5),
	KindByteString: hashSeed(6),
	KindString:     hashSeed(7),
	KindVec:        hashSeed(8),
	KindTuple:      hashSeed(9),
	KindObject:     hashSeed(10),
	KindFunction:   hashSeed(11),
	KindFuture:     hashSeed(12),
	KindStream:     hashSeed(13),
	KindOpaque:     hashSeed(14),
	KindType:       hashSeed(15),
}

// hashSeed derives a stable pseudo-hash for the built-in kinds without
// pulling in the Item-hashing machinery the unit package owns; these never
// collide with item hashes produced there because they're confined to
// their own lookup table (typeHashes), never inserted into a Unit's or
// Context's function/type tables.
func hashSeed(n uint64) uint64 {
	h := uint64(14695981039346656037)
	h ^= n
	h *= 1099511628211
	return h
}
