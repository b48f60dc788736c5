package plan

// Builder is an immutable fluent builder for plans.
// Each method returns a new builder with the updated configuration.
type Builder struct {
	entries []Entry
	next    int
}

// New returns an empty plan builder.
func New() Builder {
	return Builder{}
}

// At assigns spec to a single depth, which must directly follow the previous entry.
func (b Builder) At(depth int, spec Spec) Builder {
	return b.Range(depth, depth, spec)
}

// Range assigns spec to the inclusive depth range [lo, hi].
func (b Builder) Range(lo, hi int, spec Spec) Builder {
	b.entries = append(append([]Entry(nil), b.entries...), Entry{Lo: lo, Hi: hi, Spec: spec})
	b.next = hi + 1
	return b
}

// Otherwise assigns spec to every depth not yet covered.
func (b Builder) Otherwise(spec Spec) Builder {
	b.entries = append(append([]Entry(nil), b.entries...), Entry{Lo: b.next, Hi: Unbounded, Spec: spec})
	return b
}

// Build validates the accumulated entries.
func (b Builder) Build() (Plan, error) {
	return Of(b.entries...)
}
