// Package unit implements the immutable compiled artifact a source file
// lowers to: an instruction stream plus the static tables (strings, object
// keys, functions, types, optional debug info) the VM and Context address
// by 64-bit item hash.
package unit

import "hash/fnv"

// ItemHash is the 64-bit content hash of a canonical dotted Item path
// (e.g. "std.iter.map"), the universal key functions and types are looked
// up by across both compiled and native code. No third-party hashing
// library appears anywhere in the retrieval pack's Go implementations, so
// the standard library's FNV-1a is used directly.
func ItemHash(path string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return h.Sum64()
}

// HashCombine derives the effective method hash for an instance call from
// a receiver's type hash and a method-name hash, per the VM's
// CallInstance resolution.
func HashCombine(typeHash, nameHash uint64) uint64 {
	h := typeHash
	h ^= nameHash + 0x9e3779b97f4a7c15 + (h << 6) + (h >> 2)
	return h
}
