package main

import (
	"bytes"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/strata"
	"github.com/hupe1980/strata/dataset"
	"github.com/hupe1980/strata/model"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func writeRecords(t *testing.T, path string, n int) {
	t.Helper()
	wc, err := dataset.CreateFile(path)
	require.NoError(t, err)
	w := dataset.NewWriter[int64](wc)
	for i := range n {
		require.NoError(t, w.Write(int64(i*2), fmt.Sprintf("value\t%d", i)))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, wc.Close())
}

func TestRun_Usage(t *testing.T) {
	_, err := runCLI(t)
	assert.ErrorIs(t, err, flag.ErrHelp)

	out, err := runCLI(t, "help")
	require.NoError(t, err)
	assert.Contains(t, out, "Commands:")

	_, err = runCLI(t, "frobnicate")
	assert.ErrorContains(t, err, "unknown command")
}

func TestBuildAndQuery(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "records.tsv.zst")
	idx := filepath.Join(dir, "records.strata")
	writeRecords(t, in, 500)

	out, err := runCLI(t, "build", "-in", in, "-out", idx, "-plan", "0 => pgm(4), _ => btree(8)")
	require.NoError(t, err)
	assert.Contains(t, out, "500 entries")
	assert.Contains(t, out, "pgm")

	out, err = runCLI(t, "get", "-index", idx, "10", "998")
	require.NoError(t, err)
	assert.Equal(t, "10\tvalue\\t5\n998\tvalue\\t499\n", out)

	out, err = runCLI(t, "get", "-index", idx, "-resident", "1", "11", "12")
	assert.ErrorContains(t, err, "1 of 2 keys not found")
	assert.Equal(t, "12\tvalue\\t6\n", out)

	out, err = runCLI(t, "range", "-index", idx, "-lo", "5", "-hi", "11")
	require.NoError(t, err)
	assert.Equal(t, "6\tvalue\\t3\n8\tvalue\\t4\n10\tvalue\\t5\n", out)

	out, err = runCLI(t, "range", "-index", idx, "-limit", "2", "-resident", "0")
	require.NoError(t, err)
	assert.Equal(t, "0\tvalue\\t0\n2\tvalue\\t1\n", out)

	_, err = runCLI(t, "range", "-index", idx, "-lo", "x")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "records.tsv")
	idx := filepath.Join(dir, "records.strata")
	writeRecords(t, in, 100)

	_, err := runCLI(t, "build", "-in", in, "-out", idx, "-key", "uint32", "-plan", "_ => btree(4)")
	require.NoError(t, err)

	out, err := runCLI(t, "inspect", "-index", idx)
	require.NoError(t, err)
	assert.Contains(t, out, "key uint32, value string")
	assert.Contains(t, out, "btree")

	out, err = runCLI(t, "inspect", "-index", idx, "-json")
	require.NoError(t, err)
	var info strata.FileInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "uint32", info.KeyType)
	assert.Len(t, info.Layers, 4) // 100 -> 25 -> 7 -> 2 -> root
	assert.Equal(t, 25, info.Layers[0].Nodes)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "records.tsv.lz4")
	idx := filepath.Join(dir, "records.strata")
	writeRecords(t, in, 300)

	_, err := runCLI(t, "build", "-in", in, "-out", idx)
	require.NoError(t, err)

	dump := filepath.Join(dir, "dump.tsv.zst")
	out, err := runCLI(t, "export", "-index", idx, "-out", dump, "-lo", "100", "-hi", "199")
	require.NoError(t, err)
	assert.Equal(t, "exported 50 entries to "+dump+" (zstd)\n", out)

	got, err := dataset.ReadFile[int64](dump)
	require.NoError(t, err)
	require.Len(t, got, 50)
	assert.Equal(t, model.Entry[int64, string]{Key: 100, Value: "value\t50"}, got[0])
	assert.Equal(t, model.Entry[int64, string]{Key: 198, Value: "value\t99"}, got[49])
}

func TestBuild_SQLite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")
	idx := filepath.Join(dir, "users.strata")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "CREATE TABLE users (id INTEGER, score INTEGER)")
	require.NoError(t, err)
	for _, row := range [][2]int64{{3, 30}, {1, 10}, {2, 20}, {1, 11}} {
		_, err = db.ExecContext(ctx, "INSERT INTO users VALUES (?, ?)", row[0], row[1])
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	query := "SELECT id, score FROM users ORDER BY rowid"
	_, err = runCLI(t, "build", "-in", dbPath, "-query", query, "-out", idx, "-value", "uint64")
	assert.ErrorIs(t, err, strata.ErrInvalidInput)

	out, err := runCLI(t, "build", "-in", dbPath, "-query", query, "-out", idx, "-value", "uint64", "-sort")
	require.NoError(t, err)
	assert.Contains(t, out, "3 entries")
	assert.Contains(t, out, "1 duplicates replaced")

	out, err = runCLI(t, "range", "-index", idx)
	require.NoError(t, err)
	assert.Equal(t, "1\t11\n2\t20\n3\t30\n", out)

	out, err = runCLI(t, "inspect", "-index", idx)
	require.NoError(t, err)
	assert.Contains(t, out, "value uint64")
}

func TestBuild_YAMLPlan(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "records.tsv")
	idx := filepath.Join(dir, "records.strata")
	planPath := filepath.Join(dir, "plan.yaml")
	writeRecords(t, in, 64)
	require.NoError(t, os.WriteFile(planPath, []byte("layout: \"0 => btree(8), _ => pgm(2)\"\n"), 0o644))

	out, err := runCLI(t, "build", "-in", in, "-out", idx, "-plan", planPath)
	require.NoError(t, err)
	assert.Contains(t, out, "btree")
	assert.Contains(t, out, "pgm")
}

func TestBuild_Errors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "records.tsv")
	writeRecords(t, in, 10)
	out := filepath.Join(dir, "x.strata")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing flags", []string{"-in", in}, "required"},
		{"key type", []string{"-in", in, "-out", out, "-key", "int8"}, "unknown key type"},
		{"value codec", []string{"-in", in, "-out", out, "-value", "xml"}, "unknown value codec"},
		{"plan", []string{"-in", in, "-out", out, "-plan", "0 => hash(2)"}, "plan"},
		{"query on tsv", []string{"-in", in, "-out", out, "-query", "SELECT 1"}, "SQLite"},
		{"location", []string{"-in", in, "-out", "ftp://host/x"}, "unsupported scheme"},
		{"log level", []string{"-in", in, "-out", out, "-log-level", "loud"}, "-log-level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, append([]string{"build"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), strings.ToLower(tt.want))
		})
	}
}

func TestParseLocation(t *testing.T) {
	ctx := context.Background()

	loc, err := parseLocation(ctx, "/data/idx/main.strata", 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "main.strata", loc.name)
	assert.False(t, loc.remote)

	loc, err = parseLocation(ctx, "minio://localhost:9000/bucket/a/b/main.strata", 0)
	require.NoError(t, err)
	assert.Equal(t, "main.strata", loc.name)
	assert.True(t, loc.remote)

	_, err = parseLocation(ctx, "minio://localhost:9000/bucket", 0)
	assert.Error(t, err)

	_, err = parseLocation(ctx, "s3:///name", 0)
	assert.Error(t, err)

	prefix, name := splitKey("a/b/c")
	assert.Equal(t, "a/b", prefix)
	assert.Equal(t, "c", name)
	prefix, name = splitKey("c")
	assert.Equal(t, "", prefix)
	assert.Equal(t, "c", name)
}

func TestTextCodec(t *testing.T) {
	for _, tc := range []struct {
		codec string
		in    string
	}{
		{"string", "hello\tworld"},
		{"bytes", "\x00\x01"},
		{"uint64", "18446744073709551615"},
		{"int64", "-42"},
		{"json", `{"a":[1,2]}`},
	} {
		tag, err := valueTag(tc.codec)
		require.NoError(t, err)
		c := textCodec{tag: tag}
		assert.Equal(t, tc.codec, c.Name())

		data, err := c.Append(nil, tc.in)
		require.NoError(t, err)
		got, err := c.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, tc.in, got)
	}

	tag, _ := valueTag("json")
	_, err := textCodec{tag: tag}.Append(nil, "{")
	assert.Error(t, err)

	tag, _ = valueTag("uint64")
	_, err = textCodec{tag: tag}.Append(nil, "-1")
	assert.Error(t, err)
}

func TestKeyBounds(t *testing.T) {
	lo, hi := keyBounds[int32]()
	assert.Equal(t, int32(-1<<31), lo)
	assert.Equal(t, int32(1<<31-1), hi)

	ulo, uhi := keyBounds[uint64]()
	assert.Equal(t, uint64(0), ulo)
	assert.Equal(t, ^uint64(0), uhi)

	flo, fhi := keyBounds[float64]()
	assert.True(t, flo < -1e308 && fhi > 1e308)
}
