package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagOf(t *testing.T) {
	assert.Equal(t, KeyTagInt32, TagOf[int32]())
	assert.Equal(t, KeyTagInt64, TagOf[int64]())
	assert.Equal(t, KeyTagUint32, TagOf[uint32]())
	assert.Equal(t, KeyTagUint64, TagOf[uint64]())
	assert.Equal(t, KeyTagFloat64, TagOf[float64]())

	assert.Equal(t, 4, Width[int32]())
	assert.Equal(t, 8, Width[float64]())
	assert.False(t, KeyTag(9).Valid())
	assert.Equal(t, "KeyTag(9)", KeyTag(9).String())
}

func TestKeyEncoding(t *testing.T) {
	t.Run("int32", func(t *testing.T) {
		for _, k := range []int32{math.MinInt32, -1, 0, 42, math.MaxInt32} {
			b := AppendKey(nil, k)
			assert.Len(t, b, 4)
			assert.Equal(t, k, DecodeKey[int32](b))
		}
	})

	t.Run("int64", func(t *testing.T) {
		for _, k := range []int64{math.MinInt64, -7, 0, 1 << 40, math.MaxInt64} {
			assert.Equal(t, k, DecodeKey[int64](AppendKey(nil, k)))
		}
	})

	t.Run("uint64", func(t *testing.T) {
		for _, k := range []uint64{0, 1, math.MaxUint64} {
			assert.Equal(t, k, DecodeKey[uint64](AppendKey(nil, k)))
		}
	})

	t.Run("float64", func(t *testing.T) {
		for _, k := range []float64{-1.5, 0, 3.25, math.MaxFloat64} {
			assert.Equal(t, k, DecodeKey[float64](AppendKey(nil, k)))
		}
	})

	t.Run("little endian", func(t *testing.T) {
		assert.Equal(t, []byte{0x01, 0x02, 0x00, 0x00}, AppendKey(nil, uint32(0x0201)))
	})
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 0.0, Distance[int64](5, 5))
	assert.Equal(t, 10.0, Distance[int32](-5, 5))
	assert.Equal(t, float64(math.MaxUint64), Distance[int64](math.MinInt64, math.MaxInt64))
	assert.Equal(t, float64(math.MaxUint64), Distance[uint64](0, math.MaxUint64))
	assert.Equal(t, 2.5, Distance(0.5, 3.0))
}

func TestIsNaN(t *testing.T) {
	assert.True(t, IsNaN(math.NaN()))
	assert.False(t, IsNaN(1.0))
	assert.False(t, IsNaN[int64](1))
}
