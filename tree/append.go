// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tree

import (
	"context"
	"sync"

	"appendtree.io/appendtree"
	"appendtree.io/backref"
	"appendtree.io/errors"
	"appendtree.io/log"
	"appendtree.io/path"
	"appendtree.io/record"
)

// Append writes value at name and returns the seq of the new record.
// A nil value records the path with no payload. Appends are applied one
// at a time in the order they are called; reads proceed concurrently and
// see either the old tip or the new one.
func (t *Tree) Append(ctx context.Context, name appendtree.PathName, value []byte) (int64, error) {
	const op errors.Op = "tree.Append"
	seq, err := t.append(ctx, op, name, value)
	t.metrics.observe(op, err)
	return seq, err
}

func (t *Tree) append(ctx context.Context, op errors.Op, name appendtree.PathName, value []byte) (int64, error) {
	if t.IsCheckout() {
		return -1, errors.E(op, name, errors.Invalid, errors.Str("cannot append to a checkout"))
	}
	p, err := parse(op, name)
	if err != nil {
		return -1, err
	}
	if p.IsRoot() {
		return -1, errors.E(op, name, errors.Invalid, errors.Str("cannot append to the root"))
	}

	release, err := t.writer.acquire(ctx)
	if err != nil {
		return -1, errors.E(op, p.Path(), errors.IO, err)
	}
	defer release()

	table, err := t.backrefs(ctx, p)
	if err != nil {
		return -1, errors.E(op, p.Path(), err)
	}
	want := t.feed.Len()
	b, err := record.Marshal(record.New(want, p, value, table))
	if err != nil {
		return -1, errors.E(op, p.Path(), err)
	}
	seq, err := t.feed.Append(ctx, b)
	if err != nil {
		return -1, errors.E(op, p.Path(), errors.IO, err)
	}
	if seq != want {
		return -1, errors.E(op, p.Path(), errors.Internal, errors.Errorf("feed stored record %d at %d", want, seq))
	}
	log.Debug.Printf("tree.Append: %s at %d", p, seq)
	return seq, nil
}

// backrefs computes the table for a new record at p: for each level,
// the children visible from the current tip minus those p supersedes.
// The writer section must be held.
func (t *Tree) backrefs(ctx context.Context, p path.Parsed) (backref.Table, error) {
	n := t.feed.Len()
	if n == 0 {
		return backref.Table{}, nil
	}
	tip, err := t.fetch(ctx, n-1)
	if err != nil {
		return backref.Table{}, err
	}
	levels := make([][]int64, p.NElem())
	for d := range levels {
		seqs, err := t.children(ctx, tip, p.First(d))
		if err != nil {
			return backref.Table{}, err
		}
		t.prefetch(seqs)
		kept := []int64{}
		for _, seq := range seqs {
			r, err := t.fetch(ctx, seq)
			if err != nil {
				return backref.Table{}, err
			}
			if r.Path.NElem() <= d || r.Path.Elem(d) != p.Elem(d) {
				kept = append(kept, seq)
			}
		}
		if len(kept) > backref.MaxLevel {
			return backref.Table{}, errors.E(errors.Invalid, errors.Errorf("directory %s has more than %d entries", p.First(d), backref.MaxLevel))
		}
		levels[d] = kept
	}
	return backref.New(levels), nil
}

// Flush waits until every append queued before the call has finished.
// It does not take a turn as a writer.
func (t *Tree) Flush(ctx context.Context) error {
	if t.writer == nil {
		return nil
	}
	if err := t.writer.flush(ctx); err != nil {
		return errors.E(errors.Op("tree.Flush"), errors.IO, err)
	}
	return nil
}

// queue is a FIFO mutex. Each holder waits for the one queued before it.
type queue struct {
	mu   sync.Mutex
	tail chan struct{} // Closed when the last queued holder releases.
}

// acquire waits for all earlier holders to release. If ctx is done first
// it returns ctx.Err() and its place in the queue passes to the next
// waiter once the predecessor releases.
func (q *queue) acquire(ctx context.Context) (release func(), err error) {
	mine := make(chan struct{})
	q.mu.Lock()
	prev := q.tail
	q.tail = mine
	q.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			go func() {
				<-prev
				close(mine)
			}()
			return nil, ctx.Err()
		}
	}
	var once sync.Once
	return func() { once.Do(func() { close(mine) }) }, nil
}

// flush waits until the holder queued last, as of the call, releases.
func (q *queue) flush(ctx context.Context) error {
	q.mu.Lock()
	tail := q.tail
	q.mu.Unlock()
	if tail == nil {
		return nil
	}
	select {
	case <-tail:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
