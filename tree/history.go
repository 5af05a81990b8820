// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tree

import (
	"context"

	"appendtree.io/errors"
	"appendtree.io/record"
)

// Iterator yields raw records in feed order. It is not safe for
// concurrent use.
type Iterator struct {
	tree  *Tree
	next  int64 // Seq of the next record to return.
	until int64 // Last seq to return, once resolved.
	ready bool  // Whether until is resolved.
	rec   *record.Record
	err   error
}

// History returns an iterator over the records after since, up to and
// including until. A negative since starts at the first record. A negative
// until means the last record as of the first call to Next, or the pinned
// record of a checkout. An until past the end of the feed stops at the end.
func (t *Tree) History(since, until int64) *Iterator {
	if since < -1 {
		since = -1
	}
	if until < 0 {
		until = -1
	}
	return &Iterator{tree: t, next: since + 1, until: until}
}

// Next advances to the next record, returning false at the end or on error.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if !it.ready {
		if it.until < 0 {
			it.until = it.tree.Version()
		}
		if last := it.tree.feed.Len() - 1; it.until > last {
			it.until = last
		}
		it.ready = true
	}
	if it.next > it.until {
		it.rec = nil
		return false
	}
	r, err := it.tree.fetch(ctx, it.next)
	if err != nil {
		it.err = errors.E(errors.Op("tree.History"), err)
		it.rec = nil
		return false
	}
	it.rec = r
	it.next++
	return true
}

// Record returns the record Next advanced to.
func (it *Iterator) Record() *record.Record {
	return it.rec
}

// Err returns the error, if any, that stopped the iteration.
func (it *Iterator) Err() error {
	return it.err
}
