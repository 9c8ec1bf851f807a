package graph

import (
	"encoding/binary"
	"math"
)

// Tag bytes for the encoded form of a PropertyValue, used by both the disk
// backend's entity encoding and the index packages' key encoding.
const (
	tagString byte = iota
	tagInt
	tagFloat
	tagBool
	tagNull
	tagList
	tagMap
)

// EncodeIndexKey produces an injective, and for Int/Float order-preserving,
// byte encoding of a single PropertyValue, suitable as an index key. Nested
// List/Map values are rejected — they are not indexable.
//
// Integers are encoded big-endian with the sign bit flipped so unsigned
// byte-lexicographic order matches signed numeric order across the full
// range. Floats use the canonical IEEE-754 lexicographic transform: flip
// all bits when the sign bit is set, otherwise flip only the sign bit.
// This resolves the ordering bug a naive little-endian encoding would
// otherwise carry into range scans.
func EncodeIndexKey(v PropertyValue) ([]byte, error) {
	switch v.Kind {
	case KindString:
		out := make([]byte, 0, len(v.Str)+1)
		out = append(out, tagString)
		out = append(out, []byte(v.Str)...)
		return out, nil
	case KindInt:
		out := make([]byte, 9)
		out[0] = tagInt
		u := uint64(v.I) ^ 0x8000000000000000
		binary.BigEndian.PutUint64(out[1:], u)
		return out, nil
	case KindFloat:
		out := make([]byte, 9)
		out[0] = tagFloat
		bits := math.Float64bits(v.F)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
		binary.BigEndian.PutUint64(out[1:], bits)
		return out, nil
	case KindBool:
		b := byte(0)
		if v.B {
			b = 1
		}
		return []byte{tagBool, b}, nil
	case KindNull:
		return []byte{tagNull}, nil
	default:
		return nil, InvalidPropertyType("string|int|float|bool|null", v.Kind.String())
	}
}

// EncodeHashKey is the simpler encoding used by hash indices, which are
// never range-scanned and so need no order-preservation — it is identical
// to EncodeIndexKey for the scalar kinds it supports.
func EncodeHashKey(v PropertyValue) ([]byte, error) {
	return EncodeIndexKey(v)
}

// EncodeValue serializes a full PropertyValue (including nested List/Map)
// for storage in the disk backend's entity encoding.
func EncodeValue(v PropertyValue) []byte {
	var out []byte
	switch v.Kind {
	case KindString:
		out = append(out, tagString)
		out = appendLenPrefixed(out, []byte(v.Str))
	case KindInt:
		out = append(out, tagInt)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(v.I))
		out = append(out, buf[:]...)
	case KindFloat:
		out = append(out, tagFloat)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.F))
		out = append(out, buf[:]...)
	case KindBool:
		b := byte(0)
		if v.B {
			b = 1
		}
		out = append(out, tagBool, b)
	case KindNull:
		out = append(out, tagNull)
	case KindList:
		out = append(out, tagList)
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v.List)))
		out = append(out, lenBuf[:]...)
		for _, e := range v.List {
			out = appendLenPrefixed(out, EncodeValue(e))
		}
	case KindMap:
		out = append(out, tagMap)
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v.Map)))
		out = append(out, lenBuf[:]...)
		for k, e := range v.Map {
			out = appendLenPrefixed(out, []byte(k))
			out = appendLenPrefixed(out, EncodeValue(e))
		}
	}
	return out
}

func appendLenPrefixed(out, data []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	out = append(out, lenBuf[:]...)
	out = append(out, data...)
	return out
}

// DecodeValue is the inverse of EncodeValue, returning the value and the
// number of bytes consumed.
func DecodeValue(b []byte) (PropertyValue, int, error) {
	if len(b) == 0 {
		return Null(), 0, NewError(KindSerialization, "empty value buffer")
	}
	tag := b[0]
	rest := b[1:]
	switch tag {
	case tagString:
		s, n, err := readLenPrefixed(rest)
		if err != nil {
			return Null(), 0, err
		}
		return String(string(s)), 1 + n, nil
	case tagInt:
		if len(rest) < 8 {
			return Null(), 0, NewError(KindSerialization, "truncated int value")
		}
		return Int(int64(binary.LittleEndian.Uint64(rest[:8]))), 9, nil
	case tagFloat:
		if len(rest) < 8 {
			return Null(), 0, NewError(KindSerialization, "truncated float value")
		}
		return Float(math.Float64frombits(binary.LittleEndian.Uint64(rest[:8]))), 9, nil
	case tagBool:
		if len(rest) < 1 {
			return Null(), 0, NewError(KindSerialization, "truncated bool value")
		}
		return Bool(rest[0] != 0), 2, nil
	case tagNull:
		return Null(), 1, nil
	case tagList:
		if len(rest) < 4 {
			return Null(), 0, NewError(KindSerialization, "truncated list header")
		}
		count := int(binary.LittleEndian.Uint32(rest[:4]))
		off := 4
		list := make([]PropertyValue, 0, count)
		for i := 0; i < count; i++ {
			elemBytes, n, err := readLenPrefixed(rest[off:])
			if err != nil {
				return Null(), 0, err
			}
			off += n
			v, _, err := DecodeValue(elemBytes)
			if err != nil {
				return Null(), 0, err
			}
			list = append(list, v)
		}
		return List(list...), 1 + off, nil
	case tagMap:
		if len(rest) < 4 {
			return Null(), 0, NewError(KindSerialization, "truncated map header")
		}
		count := int(binary.LittleEndian.Uint32(rest[:4]))
		off := 4
		m := make(map[string]PropertyValue, count)
		for i := 0; i < count; i++ {
			keyBytes, n, err := readLenPrefixed(rest[off:])
			if err != nil {
				return Null(), 0, err
			}
			off += n
			valBytes, n, err := readLenPrefixed(rest[off:])
			if err != nil {
				return Null(), 0, err
			}
			off += n
			v, _, err := DecodeValue(valBytes)
			if err != nil {
				return Null(), 0, err
			}
			m[string(keyBytes)] = v
		}
		return Map(m), 1 + off, nil
	default:
		return Null(), 0, NewError(KindSerialization, "unknown value tag")
	}
}

func readLenPrefixed(b []byte) ([]byte, int, error) {
	if len(b) < 4 {
		return nil, 0, NewError(KindSerialization, "truncated length prefix")
	}
	n := int(binary.LittleEndian.Uint32(b[:4]))
	if len(b) < 4+n {
		return nil, 0, NewError(KindSerialization, "truncated value payload")
	}
	return b[4 : 4+n], 4 + n, nil
}
