package unit

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"nilan/span"
	"nilan/value"
)

var magic = [4]byte{'N', 'I', 'L', 'N'}

const formatVersion byte = 1

// Serialize encodes u in the stable on-disk format: a 4-byte magic, a
// single version byte, then fixed-order sections (instructions, constants,
// static_strings, static_object_keys, functions, types, debug_info).
func Serialize(u *Unit) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(formatVersion)

	writeBytes(&buf, u.Instructions)

	writeUvarint(&buf, uint64(len(u.Constants)))
	for _, c := range u.Constants {
		if err := writeConstant(&buf, c); err != nil {
			return nil, err
		}
	}

	writeUvarint(&buf, uint64(len(u.StaticStrings)))
	for _, s := range u.StaticStrings {
		writeString(&buf, s)
	}

	writeUvarint(&buf, uint64(len(u.StaticObjectKeys)))
	for _, keys := range u.StaticObjectKeys {
		writeUvarint(&buf, uint64(len(keys)))
		for _, k := range keys {
			writeString(&buf, k)
		}
	}

	writeUvarint(&buf, uint64(len(u.Functions)))
	for hash, fn := range u.Functions {
		writeUvarint(&buf, hash)
		writeUvarint(&buf, uint64(fn.EntryIP))
		writeUvarint(&buf, uint64(fn.Arity))
		buf.WriteByte(byte(fn.Kind))
	}

	writeUvarint(&buf, uint64(len(u.Types)))
	for hash, t := range u.Types {
		writeUvarint(&buf, hash)
		writeString(&buf, t.Name)
	}

	if u.DebugInfo == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		writeUvarint(&buf, uint64(len(u.DebugInfo.Instructions)))
		for ip, d := range u.DebugInfo.Instructions {
			writeUvarint(&buf, uint64(ip))
			writeUvarint(&buf, uint64(d.SourceID))
			writeUvarint(&buf, uint64(d.Span.Start))
			writeUvarint(&buf, uint64(d.Span.End))
			writeString(&buf, d.Label)
			writeString(&buf, d.Comment)
		}
		writeUvarint(&buf, uint64(len(u.DebugInfo.Signatures)))
		for hash, sig := range u.DebugInfo.Signatures {
			writeUvarint(&buf, hash)
			writeString(&buf, sig)
		}
	}

	return buf.Bytes(), nil
}

// Deserialize decodes a Unit from its on-disk encoding. An unknown version
// byte is rejected, per the format invariant.
func Deserialize(data []byte) (*Unit, error) {
	r := bytes.NewReader(data)
	var gotMagic [4]byte
	if _, err := r.Read(gotMagic[:]); err != nil || gotMagic != magic {
		return nil, fmt.Errorf("💥 VmError::BadSlot: not a nilan bytecode file")
	}
	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("💥 VmError::BadSlot: unsupported bytecode version %d", version)
	}

	u := New(false)

	instrLen, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	u.Instructions = make([]byte, instrLen)
	if _, err := r.Read(u.Instructions); err != nil {
		return nil, err
	}

	constCount, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < constCount; i++ {
		c, err := readConstant(r)
		if err != nil {
			return nil, err
		}
		u.Constants = append(u.Constants, c)
	}

	strCount, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < strCount; i++ {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		u.InternString(s)
	}

	keysCount, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < keysCount; i++ {
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		keys := make([]string, n)
		for j := range keys {
			keys[j], err = readString(r)
			if err != nil {
				return nil, err
			}
		}
		u.InternObjectKeys(keys)
	}

	fnCount, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < fnCount; i++ {
		hash, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		entryIP, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		arity, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		u.Functions[hash] = FunctionDesc{EntryIP: int(entryIP), Arity: int(arity), Kind: FunctionKind(kindByte)}
	}

	typeCount, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < typeCount; i++ {
		hash, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		u.Types[hash] = TypeDesc{Name: name}
	}

	hasDebug, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if hasDebug == 1 {
		u.DebugInfo = &DebugInfo{Instructions: map[int]InstructionDebug{}, Signatures: map[uint64]string{}}
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		for i := uint64(0); i < n; i++ {
			ip, err := readUvarint(r)
			if err != nil {
				return nil, err
			}
			sourceID, err := readUvarint(r)
			if err != nil {
				return nil, err
			}
			start, err := readUvarint(r)
			if err != nil {
				return nil, err
			}
			end, err := readUvarint(r)
			if err != nil {
				return nil, err
			}
			label, err := readString(r)
			if err != nil {
				return nil, err
			}
			comment, err := readString(r)
			if err != nil {
				return nil, err
			}
			u.DebugInfo.Instructions[int(ip)] = InstructionDebug{
				SourceID: int(sourceID), Span: span.New(int(start), int(end)), Label: label, Comment: comment,
			}
		}
		sigCount, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		for i := uint64(0); i < sigCount; i++ {
			hash, err := readUvarint(r)
			if err != nil {
				return nil, err
			}
			sig, err := readString(r)
			if err != nil {
				return nil, err
			}
			u.DebugInfo.Signatures[hash] = sig
		}
	}

	return u, nil
}

// constant kind tags, distinct from value.Kind so the on-disk format
// doesn't break if value.Kind's iota ordering ever shifts.
const (
	ctagUnit byte = iota
	ctagBool
	ctagChar
	ctagByte
	ctagInt
	ctagFloat
	ctagType
)

func writeConstant(buf *bytes.Buffer, v value.Value) error {
	switch v.Kind {
	case value.KindUnit:
		buf.WriteByte(ctagUnit)
	case value.KindBool:
		buf.WriteByte(ctagBool)
		if v.AsBool() {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case value.KindChar:
		buf.WriteByte(ctagChar)
		writeUvarint(buf, uint64(v.AsChar()))
	case value.KindByte:
		buf.WriteByte(ctagByte)
		buf.WriteByte(v.AsByte())
	case value.KindInteger:
		buf.WriteByte(ctagInt)
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(v.AsInt()))
		buf.Write(tmp[:])
	case value.KindFloat:
		buf.WriteByte(ctagFloat)
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v.AsFloat()))
		buf.Write(tmp[:])
	case value.KindType:
		buf.WriteByte(ctagType)
		writeUvarint(buf, v.AsTypeHash())
	default:
		return fmt.Errorf("🤖 DeveloperError: constant pool only holds scalars, got %s", v.Kind)
	}
	return nil
}

func readConstant(r *bytes.Reader) (value.Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return value.Value{}, err
	}
	switch tag {
	case ctagUnit:
		return value.Unit, nil
	case ctagBool:
		b, err := r.ReadByte()
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(b == 1), nil
	case ctagChar:
		c, err := readUvarint(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.Char(rune(c)), nil
	case ctagByte:
		b, err := r.ReadByte()
		if err != nil {
			return value.Value{}, err
		}
		return value.Byte(b), nil
	case ctagInt:
		var tmp [8]byte
		if _, err := r.Read(tmp[:]); err != nil {
			return value.Value{}, err
		}
		return value.Int(int64(binary.LittleEndian.Uint64(tmp[:]))), nil
	case ctagFloat:
		var tmp [8]byte
		if _, err := r.Read(tmp[:]); err != nil {
			return value.Value{}, err
		}
		return value.Float(math.Float64frombits(binary.LittleEndian.Uint64(tmp[:]))), nil
	case ctagType:
		h, err := readUvarint(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.TypeHandle(h), nil
	default:
		return value.Value{}, fmt.Errorf("💥 VmError::BadSlot: unknown constant tag %d", tag)
	}
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func readUvarint(r *bytes.Reader) (uint64, error) {
	return binary.ReadUvarint(r)
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func writeString(buf *bytes.Buffer, s string) {
	writeUvarint(buf, uint64(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readUvarint(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}
