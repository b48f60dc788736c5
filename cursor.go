package strata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/hupe1980/strata/internal/layer"
	"github.com/hupe1980/strata/model"
)

// Cursor iterates the entries of a key range in ascending order.
//
// A cursor is lazy and single-use. It is not safe for concurrent use, but any
// number of cursors may run over the same index. Close releases the streaming
// read of an on-disk base layer; cursors that ran to the end release it
// themselves.
//
//	cur := idx.Range(ctx, 100, 200)
//	defer cur.Close()
//	for cur.Next() {
//	    fmt.Println(cur.Key(), cur.Value())
//	}
//	if err := cur.Err(); err != nil {
//	    return err
//	}
type Cursor[K model.Key, V any] struct {
	ix  *Index[K, V]
	ctx context.Context
	hi  K

	node *layer.Node[K]
	pos  int
	iter layer.NodeIter[K]

	key K
	val V

	err   error
	done  bool
	items int
	start time.Time
}

// Range returns a cursor over all entries with lo <= key <= hi. An inverted
// range yields nothing.
func (ix *Index[K, V]) Range(ctx context.Context, lo, hi K) *Cursor[K, V] {
	c := &Cursor[K, V]{ix: ix, ctx: ctx, hi: hi, start: time.Now()}

	switch {
	case ix.closed.Load():
		c.fail(ErrClosed)
	case model.IsNaN(lo) || model.IsNaN(hi) || lo > hi:
		c.finish()
	default:
		n, err := ix.descend(ctx, lo)
		if err != nil {
			c.fail(err)
			break
		}
		if n == nil {
			c.finish()
			break
		}
		// First position with a key >= lo.
		i := n.Search(lo)
		if i < 0 || n.Keys[i] < lo {
			i++
		}
		c.node, c.pos = n, i
	}
	return c
}

// Next advances to the next entry. It returns false at the end of the range
// or on error.
func (c *Cursor[K, V]) Next() bool {
	if c.done {
		return false
	}
	for {
		// Nodes of an opened index may live in the unmapped blob.
		if c.ix.closed.Load() {
			c.fail(ErrClosed)
			return false
		}
		if c.node != nil && c.pos < c.node.Len() {
			k := c.node.Keys[c.pos]
			if k > c.hi {
				c.finish()
				return false
			}
			v, err := c.ix.codec.Decode(c.node.Values[c.pos])
			if err != nil {
				c.fail(fmt.Errorf("%w: decode value of key %v: %w", ErrCorruptFormat, k, err))
				return false
			}
			c.key, c.val = k, v
			c.pos++
			c.items++
			return true
		}

		if c.iter == nil {
			it, err := c.ix.layers[0].Scan(c.ctx, c.node.Next())
			if err != nil {
				c.fail(translateError(err))
				return false
			}
			c.iter = it
		}
		n, err := c.iter.Next()
		if errors.Is(err, io.EOF) {
			c.finish()
			return false
		}
		if err != nil {
			c.fail(translateError(err))
			return false
		}
		c.node, c.pos = n, 0
	}
}

// Key returns the key of the current entry.
func (c *Cursor[K, V]) Key() K { return c.key }

// Value returns the value of the current entry.
func (c *Cursor[K, V]) Value() V { return c.val }

// Err returns the error that stopped the cursor, if any.
func (c *Cursor[K, V]) Err() error { return c.err }

// Close stops the cursor. It is safe to call Close more than once.
func (c *Cursor[K, V]) Close() error {
	if !c.done {
		c.finish()
	}
	return nil
}

// All returns an iterator over the remaining entries. Check Err afterwards.
func (c *Cursor[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		defer c.Close()
		for c.Next() {
			if !yield(c.key, c.val) {
				return
			}
		}
	}
}

func (c *Cursor[K, V]) fail(err error) {
	c.err = err
	c.finish()
}

func (c *Cursor[K, V]) finish() {
	if c.done {
		return
	}
	c.done = true
	c.node = nil
	if c.iter != nil {
		if err := c.iter.Close(); err != nil && c.err == nil {
			c.err = ioError("close scan", err)
		}
		c.iter = nil
	}
	if c.ix != nil {
		c.ix.metrics.RecordRange(c.items, time.Since(c.start), c.err)
	}
}
