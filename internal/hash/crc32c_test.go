package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// RFC 3720 B.4: 32 bytes of zeros.
	assert.Equal(t, uint32(0x8a9136aa), CRC32C(make([]byte, 32)))
	assert.Equal(t, uint32(0), CRC32C(nil))
}

func TestUploadChecksum(t *testing.T) {
	assert.Equal(t, "AAAAAA==", UploadChecksum(nil))
	assert.Equal(t, "ipE2qg==", UploadChecksum(make([]byte, 32)))
}
