package model

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Key is the set of key types an index can be built over.
type Key interface {
	int32 | int64 | uint32 | uint64 | float64
}

// KeyTag identifies a key type in persisted files.
type KeyTag uint8

const (
	KeyTagInvalid KeyTag = iota
	KeyTagInt32
	KeyTagInt64
	KeyTagUint32
	KeyTagUint64
	KeyTagFloat64
)

// String returns the Go name of the tagged key type.
func (t KeyTag) String() string {
	switch t {
	case KeyTagInt32:
		return "int32"
	case KeyTagInt64:
		return "int64"
	case KeyTagUint32:
		return "uint32"
	case KeyTagUint64:
		return "uint64"
	case KeyTagFloat64:
		return "float64"
	default:
		return fmt.Sprintf("KeyTag(%d)", uint8(t))
	}
}

// Width returns the encoded size of the key type in bytes, or 0 for unknown tags.
func (t KeyTag) Width() int {
	switch t {
	case KeyTagInt32, KeyTagUint32:
		return 4
	case KeyTagInt64, KeyTagUint64, KeyTagFloat64:
		return 8
	default:
		return 0
	}
}

// Valid reports whether t names a supported key type.
func (t KeyTag) Valid() bool {
	return t.Width() > 0
}

// TagOf returns the tag for K.
func TagOf[K Key]() KeyTag {
	var k K
	switch any(k).(type) {
	case int32:
		return KeyTagInt32
	case int64:
		return KeyTagInt64
	case uint32:
		return KeyTagUint32
	case uint64:
		return KeyTagUint64
	case float64:
		return KeyTagFloat64
	}
	return KeyTagInvalid
}

// Width returns the encoded size of K in bytes.
func Width[K Key]() int {
	return TagOf[K]().Width()
}

// AppendKey appends the little-endian encoding of k to dst.
func AppendKey[K Key](dst []byte, k K) []byte {
	switch v := any(k).(type) {
	case int32:
		return binary.LittleEndian.AppendUint32(dst, uint32(v))
	case uint32:
		return binary.LittleEndian.AppendUint32(dst, v)
	case int64:
		return binary.LittleEndian.AppendUint64(dst, uint64(v))
	case uint64:
		return binary.LittleEndian.AppendUint64(dst, v)
	case float64:
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
	}
	return dst
}

// DecodeKey decodes a key from the first Width[K]() bytes of b.
// The caller guarantees len(b) >= Width[K]().
func DecodeKey[K Key](b []byte) K {
	var k K
	switch any(k).(type) {
	case int32:
		return K(int32(binary.LittleEndian.Uint32(b)))
	case uint32:
		return K(binary.LittleEndian.Uint32(b))
	case int64:
		return K(int64(binary.LittleEndian.Uint64(b)))
	case uint64:
		return K(binary.LittleEndian.Uint64(b))
	case float64:
		return K(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	}
	return k
}

// IsNaN reports whether k is a float64 NaN. NaN keys have no total order and are
// rejected at build time.
func IsNaN[K Key](k K) bool {
	return k != k
}

// Distance returns to-from as a float64 for from <= to.
//
// Integer keys are mapped onto an order-preserving unsigned domain first, so the
// subtraction is exact and never overflows even across the full int64 range.
func Distance[K Key](from, to K) float64 {
	switch f := any(from).(type) {
	case float64:
		return any(to).(float64) - f
	}
	return float64(ordinal(to) - ordinal(from))
}

func ordinal[K Key](k K) uint64 {
	switch v := any(k).(type) {
	case int32:
		return uint64(int64(v)) ^ (1 << 63)
	case int64:
		return uint64(v) ^ (1 << 63)
	case uint32:
		return uint64(v)
	case uint64:
		return v
	}
	return 0
}

// Entry is a key/value pair of the base dataset.
type Entry[K Key, V any] struct {
	Key   K
	Value V
}
