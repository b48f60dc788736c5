package hash

import (
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// UploadChecksum returns the x-amz-checksum-crc32c header value for an
// index blob: base64 of the big-endian CRC32C.
func UploadChecksum(blob []byte) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], CRC32C(blob))
	return base64.StdEncoding.EncodeToString(b[:])
}
