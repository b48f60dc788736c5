package codec

import (
	"encoding/binary"
	"errors"
)

// ErrShortValue is returned when a fixed-width value has the wrong length.
var ErrShortValue = errors.New("codec: invalid fixed-width value length")

// Bytes stores raw byte slices.
type Bytes struct{}

func (Bytes) Tag() uint8   { return TagBytes }
func (Bytes) Name() string { return "bytes" }

func (Bytes) Append(dst []byte, v []byte) ([]byte, error) { return append(dst, v...), nil }

// Decode returns a copy of data.
func (Bytes) Decode(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// String stores UTF-8 strings verbatim.
type String struct{}

func (String) Tag() uint8   { return TagString }
func (String) Name() string { return "string" }

func (String) Append(dst []byte, v string) ([]byte, error) { return append(dst, v...), nil }
func (String) Decode(data []byte) (string, error)          { return string(data), nil }

// Uint64 stores little-endian fixed 8-byte unsigned integers.
type Uint64 struct{}

func (Uint64) Tag() uint8   { return TagUint64 }
func (Uint64) Name() string { return "uint64" }

func (Uint64) Append(dst []byte, v uint64) ([]byte, error) {
	return binary.LittleEndian.AppendUint64(dst, v), nil
}

func (Uint64) Decode(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, ErrShortValue
	}
	return binary.LittleEndian.Uint64(data), nil
}

// Int64 stores little-endian fixed 8-byte signed integers.
type Int64 struct{}

func (Int64) Tag() uint8   { return TagInt64 }
func (Int64) Name() string { return "int64" }

func (Int64) Append(dst []byte, v int64) ([]byte, error) {
	return binary.LittleEndian.AppendUint64(dst, uint64(v)), nil
}

func (Int64) Decode(data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, ErrShortValue
	}
	return int64(binary.LittleEndian.Uint64(data)), nil
}
