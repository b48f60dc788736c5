package dataset

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/strata/model"
)

func TestParseKey(t *testing.T) {
	i32, err := ParseKey[int32]("-2147483648")
	require.NoError(t, err)
	assert.Equal(t, int32(math.MinInt32), i32)

	_, err = ParseKey[int32]("2147483648")
	assert.Error(t, err)

	u64, err := ParseKey[uint64]("18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), u64)

	_, err = ParseKey[uint32]("-1")
	assert.Error(t, err)

	f, err := ParseKey[float64]("1.5e3")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, f)

	_, err = ParseKey[float64]("NaN")
	assert.Error(t, err)

	_, err = ParseKey[int64]("abc")
	assert.Error(t, err)
}

func TestFormatKey_RoundTrip(t *testing.T) {
	for _, f := range []float64{0, -1.25, 1e-300, math.MaxFloat64, math.Inf(-1)} {
		got, err := ParseKey[float64](FormatKey(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	assert.Equal(t, "-7", FormatKey(int64(-7)))
	assert.Equal(t, "4294967295", FormatKey(uint32(math.MaxUint32)))
}

func TestReader(t *testing.T) {
	in := "# comment\n1\tone\n\n2\t\n3\ttab\\there\r\n4\tback\\\\slash\\n\n"
	entries, err := NewReader[int64](strings.NewReader(in)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []model.Entry[int64, string]{
		{Key: 1, Value: "one"},
		{Key: 2, Value: ""},
		{Key: 3, Value: "tab\there"},
		{Key: 4, Value: "back\\slash\n"},
	}, entries)
}

func TestReader_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line string
	}{
		{"missing tab", "1\ta\n2 b\n", "line 2"},
		{"bad key", "x\ta\n", "line 1"},
		{"overflow", "1\ta\n# c\n3000000000\tb\n", "line 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader[int32](strings.NewReader(tt.in))
			_, err := r.ReadAll()
			require.ErrorIs(t, err, ErrMalformed)
			assert.Contains(t, err.Error(), tt.line)
		})
	}
}

func TestWriter_ReaderRoundTrip(t *testing.T) {
	entries := []model.Entry[uint64, string]{
		{Key: 0, Value: "zero"},
		{Key: 10, Value: "a\tb\nc\\d\re"},
		{Key: math.MaxUint64, Value: ""},
	}

	var buf bytes.Buffer
	w := NewWriter[uint64](&buf)
	for _, e := range entries {
		require.NoError(t, w.Write(e.Key, e.Value))
	}
	require.NoError(t, w.Flush())
	assert.Equal(t, 3, w.Count())
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))

	got, err := NewReader[uint64](&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestCompressionFor(t *testing.T) {
	assert.Equal(t, CompressionZSTD, CompressionFor("data.tsv.zst"))
	assert.Equal(t, CompressionZSTD, CompressionFor("DATA.ZSTD"))
	assert.Equal(t, CompressionLZ4, CompressionFor("/tmp/x.lz4"))
	assert.Equal(t, CompressionNone, CompressionFor("x.tsv"))
	assert.Equal(t, "zstd", CompressionZSTD.String())
}

func TestFiles_RoundTrip(t *testing.T) {
	entries := make([]model.Entry[int64, string], 5000)
	for i := range entries {
		entries[i] = model.Entry[int64, string]{Key: int64(i*3 - 7000), Value: strings.Repeat("v", i%17)}
	}

	for _, name := range []string{"plain.tsv", "data.tsv.zst", "data.tsv.lz4"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			wc, err := CreateFile(path)
			require.NoError(t, err)
			w := NewWriter[int64](wc)
			for _, e := range entries {
				require.NoError(t, w.Write(e.Key, e.Value))
			}
			require.NoError(t, w.Flush())
			require.NoError(t, wc.Close())

			got, err := ReadFile[int64](path)
			require.NoError(t, err)
			assert.Equal(t, entries, got)
		})
	}
}

func TestCompressor_Streams(t *testing.T) {
	payload := bytes.Repeat([]byte("strata "), 4096)
	for _, c := range []Compression{CompressionNone, CompressionZSTD, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			wc, err := NewCompressor(&buf, c)
			require.NoError(t, err)
			_, err = wc.Write(payload)
			require.NoError(t, err)
			require.NoError(t, wc.Close())
			if c != CompressionNone {
				assert.Less(t, buf.Len(), len(payload))
			}

			rc, err := NewDecompressor(&buf, c)
			require.NoError(t, err)
			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, payload, got)
		})
	}

	_, err := NewCompressor(io.Discard, Compression(9))
	assert.Error(t, err)
}

func TestSorter(t *testing.T) {
	s := NewSorter[int32, string]()
	s.AddAll([]model.Entry[int32, string]{
		{Key: 5, Value: "a"},
		{Key: -1, Value: "b"},
		{Key: 5, Value: "c"},
		{Key: 3, Value: "d"},
	})
	s.Add(-1, "e")

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.Replaced())

	got := s.Entries()
	assert.Equal(t, []model.Entry[int32, string]{
		{Key: -1, Value: "e"},
		{Key: 3, Value: "d"},
		{Key: 5, Value: "c"},
	}, got)
	assert.True(t, Sorted(got))
}

func TestSorted(t *testing.T) {
	assert.True(t, Sorted[int64, string](nil))
	assert.True(t, Sorted([]model.Entry[int64, string]{{Key: 1}, {Key: 2}}))
	assert.False(t, Sorted([]model.Entry[int64, string]{{Key: 1}, {Key: 1}}))
	assert.False(t, Sorted([]model.Entry[int64, string]{{Key: 2}, {Key: 1}}))
}

func TestFromSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "CREATE TABLE records (key INTEGER PRIMARY KEY, value TEXT)")
	require.NoError(t, err)
	for _, row := range []struct {
		k int64
		v any
	}{{30, "thirty"}, {10, "ten"}, {20, nil}} {
		_, err = db.ExecContext(ctx, "INSERT INTO records (key, value) VALUES (?, ?)", row.k, row.v)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	got, err := FromSQLite[int64](ctx, path, "")
	require.NoError(t, err)
	assert.Equal(t, []model.Entry[int64, string]{
		{Key: 10, Value: "ten"},
		{Key: 20, Value: ""},
		{Key: 30, Value: "thirty"},
	}, got)

	fl, err := FromSQLite[float64](ctx, path, "SELECT key * 0.5, key FROM records WHERE key > 15 ORDER BY key DESC")
	require.NoError(t, err)
	assert.Equal(t, []model.Entry[float64, string]{
		{Key: 15, Value: "30"},
		{Key: 10, Value: "20"},
	}, fl)

	_, err = FromSQLite[int64](ctx, path, "SELECT nope FROM records")
	assert.Error(t, err)

	_, err = FromSQLite[int64](ctx, path, "SELECT value, key FROM records ORDER BY key")
	assert.ErrorIs(t, err, ErrMalformed)
}
