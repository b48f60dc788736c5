// Package codec encodes index values into base layer payloads.
//
// Every codec carries a stable one-byte tag which is persisted in the file
// header. An index can only be loaded with a codec whose tag matches the one it
// was built with, so changing the codec of an existing file is a breaking change.
package codec

import "fmt"

// Built-in codec tags.
const (
	TagBytes  uint8 = 1
	TagString uint8 = 2
	TagUint64 uint8 = 3
	TagInt64  uint8 = 4
	TagJSON   uint8 = 0x10
)

// Codec encodes and decodes values of type V.
// Implementations must be safe for concurrent use.
type Codec[V any] interface {
	// Tag is the persisted identifier of the encoding.
	Tag() uint8
	// Append encodes v and appends it to dst.
	Append(dst []byte, v V) ([]byte, error)
	// Decode decodes a value. data may alias index memory; implementations must
	// copy anything they retain.
	Decode(data []byte) (V, error)
	// Name returns a human readable name.
	Name() string
}

// NameOf returns the name of a built-in codec tag.
//
// It is used by type-free tooling such as file inspection.
func NameOf(tag uint8) string {
	switch tag {
	case TagBytes:
		return "bytes"
	case TagString:
		return "string"
	case TagUint64:
		return "uint64"
	case TagInt64:
		return "int64"
	case TagJSON:
		return "json"
	default:
		return fmt.Sprintf("custom(%d)", tag)
	}
}
