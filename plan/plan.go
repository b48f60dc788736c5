package plan

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalid is returned for plans that violate depth coverage or parameter bounds.
var ErrInvalid = errors.New("invalid layer plan")

// Kind is the indexing algorithm of a layer. The numeric value is persisted.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindBTree chunks items into fixed-fanout nodes.
	KindBTree
	// KindModel fits error-bounded linear segments (PGM).
	KindModel
)

// MaxFanout is the largest fanout a BTree node header can describe.
const MaxFanout = math.MaxUint16

// Unbounded marks an entry whose depth range has no upper limit.
const Unbounded = -1

func (k Kind) String() string {
	switch k {
	case KindBTree:
		return "btree"
	case KindModel:
		return "pgm"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Valid reports whether k is a known layer kind.
func (k Kind) Valid() bool {
	return k == KindBTree || k == KindModel
}

// Spec is a layer kind plus its single parameter: the fanout for BTree layers
// and epsilon for model layers.
type Spec struct {
	Kind  Kind
	Param int
}

// BTree returns a BTree layer spec with the given fanout.
func BTree(fanout int) Spec {
	return Spec{Kind: KindBTree, Param: fanout}
}

// PGM returns a model layer spec with the given error bound.
func PGM(epsilon int) Spec {
	return Spec{Kind: KindModel, Param: epsilon}
}

// Validate checks parameter bounds.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindBTree:
		if s.Param < 2 || s.Param > MaxFanout {
			return fmt.Errorf("%w: btree fanout %d out of range [2, %d]", ErrInvalid, s.Param, MaxFanout)
		}
	case KindModel:
		if s.Param < 0 || int64(s.Param) > math.MaxUint32 {
			return fmt.Errorf("%w: pgm epsilon %d out of range", ErrInvalid, s.Param)
		}
	default:
		return fmt.Errorf("%w: unknown layer kind %d", ErrInvalid, s.Kind)
	}
	return nil
}

func (s Spec) String() string {
	return fmt.Sprintf("%s(%d)", s.Kind, s.Param)
}

// Entry assigns a Spec to the inclusive depth range [Lo, Hi].
// Hi is Unbounded for the fallback entry.
type Entry struct {
	Lo   int
	Hi   int
	Spec Spec
}

func (e Entry) covers(depth int) bool {
	return depth >= e.Lo && (e.Hi == Unbounded || depth <= e.Hi)
}

func (e Entry) String() string {
	switch {
	case e.Hi == Unbounded:
		return "_ => " + e.Spec.String()
	case e.Lo == e.Hi:
		return fmt.Sprintf("%d => %s", e.Lo, e.Spec)
	default:
		return fmt.Sprintf("%d..%d => %s", e.Lo, e.Hi, e.Spec)
	}
}

// Plan is a validated, resolved layer plan. The zero value is not usable;
// obtain plans from Of, Parse, LoadFile or the Builder.
type Plan struct {
	entries []Entry
}

// Of validates entries and returns them as a Plan.
//
// Entries must be ordered, start at depth 0, be contiguous and end with a
// single unbounded entry.
func Of(entries ...Entry) (Plan, error) {
	if len(entries) == 0 {
		return Plan{}, fmt.Errorf("%w: no entries", ErrInvalid)
	}
	next := 0
	for i, e := range entries {
		if err := e.Spec.Validate(); err != nil {
			return Plan{}, fmt.Errorf("entry %d: %w", i, err)
		}
		if e.Lo != next {
			if e.Lo < next {
				return Plan{}, fmt.Errorf("%w: entry %d overlaps depth %d", ErrInvalid, i, e.Lo)
			}
			return Plan{}, fmt.Errorf("%w: depths %d..%d are not covered", ErrInvalid, next, e.Lo-1)
		}
		if e.Hi == Unbounded {
			if i != len(entries)-1 {
				return Plan{}, fmt.Errorf("%w: unbounded entry %d must be last", ErrInvalid, i)
			}
			break
		}
		if e.Hi < e.Lo {
			return Plan{}, fmt.Errorf("%w: entry %d has inverted range %d..%d", ErrInvalid, i, e.Lo, e.Hi)
		}
		next = e.Hi + 1
	}
	if entries[len(entries)-1].Hi != Unbounded {
		return Plan{}, fmt.Errorf("%w: last entry must be unbounded", ErrInvalid)
	}
	return Plan{entries: append([]Entry(nil), entries...)}, nil
}

// Uniform returns a plan using spec at every depth.
func Uniform(spec Spec) (Plan, error) {
	return Of(Entry{Lo: 0, Hi: Unbounded, Spec: spec})
}

// At returns the spec covering depth. It panics on a zero Plan.
func (p Plan) At(depth int) Spec {
	for _, e := range p.entries {
		if e.covers(depth) {
			return e.Spec
		}
	}
	panic("plan: depth not covered")
}

// Entries returns a copy of the plan entries.
func (p Plan) Entries() []Entry {
	return append([]Entry(nil), p.entries...)
}

// IsZero reports whether p was never initialized.
func (p Plan) IsZero() bool {
	return len(p.entries) == 0
}

// String renders the plan in the layout grammar accepted by Parse.
func (p Plan) String() string {
	parts := make([]string, len(p.entries))
	for i, e := range p.entries {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
