package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/strata/model"
)

// ErrMalformed is returned for record lines that cannot be parsed.
var ErrMalformed = errors.New("dataset: malformed record")

// maxLineSize bounds a single record line.
const maxLineSize = 16 << 20

var (
	escaper   = strings.NewReplacer(`\`, `\\`, "\t", `\t`, "\n", `\n`, "\r", `\r`)
	unescaper = strings.NewReplacer(`\\`, `\`, `\t`, "\t", `\n`, "\n", `\r`, "\r")
)

// Reader decodes records from a line oriented stream.
type Reader[K model.Key] struct {
	sc   *bufio.Scanner
	line int
}

// NewReader returns a Reader over r. Empty lines and lines starting with '#'
// are skipped.
func NewReader[K model.Key](r io.Reader) *Reader[K] {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	return &Reader[K]{sc: sc}
}

// Read returns the next record, or io.EOF once the stream is exhausted.
func (r *Reader[K]) Read() (model.Entry[K, string], error) {
	for r.sc.Scan() {
		r.line++
		line := strings.TrimSuffix(r.sc.Text(), "\r")
		if line == "" || line[0] == '#' {
			continue
		}
		keyText, value, ok := strings.Cut(line, "\t")
		if !ok {
			return model.Entry[K, string]{}, fmt.Errorf("%w: line %d: missing tab separator", ErrMalformed, r.line)
		}
		k, err := ParseKey[K](keyText)
		if err != nil {
			return model.Entry[K, string]{}, fmt.Errorf("%w: line %d: %w", ErrMalformed, r.line, err)
		}
		return model.Entry[K, string]{Key: k, Value: unescaper.Replace(value)}, nil
	}
	if err := r.sc.Err(); err != nil {
		return model.Entry[K, string]{}, err
	}
	return model.Entry[K, string]{}, io.EOF
}

// ReadAll reads the remaining records.
func (r *Reader[K]) ReadAll() ([]model.Entry[K, string], error) {
	var out []model.Entry[K, string]
	for {
		e, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}

// Writer encodes records as lines. Call Flush when done.
type Writer[K model.Key] struct {
	bw *bufio.Writer
	n  int
}

// NewWriter returns a buffered Writer over w.
func NewWriter[K model.Key](w io.Writer) *Writer[K] {
	return &Writer[K]{bw: bufio.NewWriterSize(w, 256<<10)}
}

// Write appends one record.
func (w *Writer[K]) Write(key K, value string) error {
	if _, err := w.bw.WriteString(FormatKey(key)); err != nil {
		return err
	}
	if err := w.bw.WriteByte('\t'); err != nil {
		return err
	}
	if _, err := w.bw.WriteString(escaper.Replace(value)); err != nil {
		return err
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	w.n++
	return nil
}

// Count returns the number of records written.
func (w *Writer[K]) Count() int { return w.n }

// Flush writes buffered records to the underlying writer.
func (w *Writer[K]) Flush() error { return w.bw.Flush() }

// ReadFile reads every record of a possibly compressed file.
func ReadFile[K model.Key](path string) ([]model.Entry[K, string], error) {
	rc, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	entries, err := NewReader[K](rc).ReadAll()
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return entries, nil
}
