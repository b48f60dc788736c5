package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ID    uint64   `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func appendValue[V any](t *testing.T, c Codec[V], dst []byte, v V) []byte {
	t.Helper()
	b, err := c.Append(dst, v)
	require.NoError(t, err)
	return b
}

func TestBytes(t *testing.T) {
	src := []byte("hello")
	enc := appendValue[[]byte](t, Bytes{}, []byte{0xff}, src)
	assert.Equal(t, []byte{0xff, 'h', 'e', 'l', 'l', 'o'}, enc)

	out, err := Bytes{}.Decode(enc[1:])
	require.NoError(t, err)
	assert.Equal(t, src, out)

	// Decoded values must not alias the input buffer.
	enc[1] = 'j'
	assert.Equal(t, "hello", string(out))
}

func TestFixedWidth(t *testing.T) {
	b := appendValue[uint64](t, Uint64{}, nil, 1<<40)
	v, err := Uint64{}.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), v)

	b = appendValue[int64](t, Int64{}, nil, -9)
	i, err := Int64{}.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, int64(-9), i)

	_, err = Int64{}.Decode([]byte{1, 2})
	assert.ErrorIs(t, err, ErrShortValue)
}

func TestJSON(t *testing.T) {
	c := JSON[payload]{}
	in := payload{ID: 7, Title: "seven", Tags: []string{"a", "b"}}

	b, err := c.Append(nil, in)
	require.NoError(t, err)

	out, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = c.Decode([]byte("{"))
	assert.Error(t, err)
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "string", NameOf(String{}.Tag()))
	assert.Equal(t, "json", NameOf(JSON[int]{}.Tag()))
	assert.Equal(t, "custom(99)", NameOf(99))
}
