package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/hupe1980/strata"
	"github.com/hupe1980/strata/dataset"
	"github.com/hupe1980/strata/model"
	"github.com/hupe1980/strata/plan"
)

// keyOps runs the key type specific half of a command.
type keyOps interface {
	build(ctx context.Context, cfg buildConfig) (*buildSummary, error)
	open(ctx context.Context, loc location, resident int, valueTag uint8, opts []strata.Option) (reader, error)
}

// reader queries an open index with textual keys.
type reader interface {
	get(ctx context.Context, keys []string, w io.Writer) (missing int, err error)
	scan(ctx context.Context, lo, hi string, limit int, w io.Writer) (int, error)
	stats() strata.Stats
	close() error
}

func opsFor(tag model.KeyTag) (keyOps, error) {
	switch tag {
	case model.KeyTagInt32:
		return ops[int32]{}, nil
	case model.KeyTagInt64:
		return ops[int64]{}, nil
	case model.KeyTagUint32:
		return ops[uint32]{}, nil
	case model.KeyTagUint64:
		return ops[uint64]{}, nil
	case model.KeyTagFloat64:
		return ops[float64]{}, nil
	default:
		return nil, fmt.Errorf("unsupported key type %s", tag)
	}
}

type buildConfig struct {
	in       string
	query    string
	sort     bool
	plan     plan.Plan
	valueTag uint8
	out      location
	opts     []strata.Option
}

type buildSummary struct {
	entries  int
	replaced int
	stats    strata.Stats
}

type ops[K model.Key] struct{}

func (ops[K]) build(ctx context.Context, cfg buildConfig) (*buildSummary, error) {
	entries, err := readInput[K](ctx, cfg.in, cfg.query)
	if err != nil {
		return nil, err
	}

	sum := &buildSummary{}
	if cfg.sort {
		s := dataset.NewSorter[K, string]()
		s.AddAll(entries)
		entries = s.Entries()
		sum.replaced = s.Replaced()
	}
	sum.entries = len(entries)

	ix, err := strata.Build(ctx, entries, cfg.plan, textCodec{tag: cfg.valueTag}, cfg.opts...)
	if err != nil {
		return nil, err
	}
	defer ix.Close()

	if err := ix.SaveTo(ctx, cfg.out.store, cfg.out.name); err != nil {
		return nil, err
	}
	sum.stats = ix.Stats()
	return sum, nil
}

func readInput[K model.Key](ctx context.Context, in, query string) ([]model.Entry[K, string], error) {
	switch strings.ToLower(filepath.Ext(in)) {
	case ".db", ".sqlite", ".sqlite3":
		return dataset.FromSQLite[K](ctx, in, query)
	default:
		if query != "" {
			return nil, fmt.Errorf("-query requires a SQLite input, got %s", in)
		}
		return dataset.ReadFile[K](in)
	}
}

func (ops[K]) open(ctx context.Context, loc location, resident int, valueTag uint8, opts []strata.Option) (reader, error) {
	ix, err := strata.Open[K, string](ctx, loc.store, loc.name, resident, textCodec{tag: valueTag}, opts...)
	if err != nil {
		return nil, err
	}
	return &indexReader[K]{ix: ix}, nil
}

type indexReader[K model.Key] struct {
	ix *strata.Index[K, string]
}

func (r *indexReader[K]) get(ctx context.Context, keys []string, w io.Writer) (int, error) {
	out := dataset.NewWriter[K](w)
	missing := 0
	for _, s := range keys {
		k, err := dataset.ParseKey[K](s)
		if err != nil {
			return missing, fmt.Errorf("key %q: %w", s, err)
		}
		v, ok, err := r.ix.Get(ctx, k)
		if err != nil {
			return missing, err
		}
		if !ok {
			missing++
			continue
		}
		if err := out.Write(k, v); err != nil {
			return missing, err
		}
	}
	return missing, out.Flush()
}

func (r *indexReader[K]) scan(ctx context.Context, lo, hi string, limit int, w io.Writer) (int, error) {
	loKey, hiKey := keyBounds[K]()
	var err error
	if lo != "" {
		if loKey, err = dataset.ParseKey[K](lo); err != nil {
			return 0, fmt.Errorf("-lo %q: %w", lo, err)
		}
	}
	if hi != "" {
		if hiKey, err = dataset.ParseKey[K](hi); err != nil {
			return 0, fmt.Errorf("-hi %q: %w", hi, err)
		}
	}

	out := dataset.NewWriter[K](w)
	cur := r.ix.Range(ctx, loKey, hiKey)
	defer cur.Close()
	for (limit <= 0 || out.Count() < limit) && cur.Next() {
		if err := out.Write(cur.Key(), cur.Value()); err != nil {
			return out.Count(), err
		}
	}
	if err := cur.Err(); err != nil {
		return out.Count(), err
	}
	return out.Count(), out.Flush()
}

func (r *indexReader[K]) stats() strata.Stats { return r.ix.Stats() }

func (r *indexReader[K]) close() error { return r.ix.Close() }

// keyBounds returns the smallest and largest key of K.
func keyBounds[K model.Key]() (lo, hi K) {
	switch p := any(&lo).(type) {
	case *int32:
		*p = math.MinInt32
		*any(&hi).(*int32) = math.MaxInt32
	case *int64:
		*p = math.MinInt64
		*any(&hi).(*int64) = math.MaxInt64
	case *uint32:
		*any(&hi).(*uint32) = math.MaxUint32
	case *uint64:
		*any(&hi).(*uint64) = math.MaxUint64
	case *float64:
		*p = math.Inf(-1)
		*any(&hi).(*float64) = math.Inf(1)
	}
	return lo, hi
}
