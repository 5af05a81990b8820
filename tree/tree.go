// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tree implements a versioned directory index stored in an
// append-only feed.
//
// Every append writes one record holding the path, the value and, for
// each directory level of the path, the set of earlier records that are
// still visible at that level. Reads start at the newest record (the tip)
// and follow those back-references toward the target, so no query scans
// the feed. At each level the most recent write of a name wins: a name is
// either a leaf or a directory, whichever was written last.
package tree // import "appendtree.io/tree"

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"appendtree.io/appendtree"
	"appendtree.io/errors"
	"appendtree.io/feed"
	"appendtree.io/path"
	"appendtree.io/record"
)

// Tree is a view of an append tree. A Tree returned by New follows the
// feed as it grows and accepts appends; one returned by Checkout is
// pinned to a past record and is read-only. Trees are safe for
// concurrent use.
type Tree struct {
	feed     feed.Feed
	writer   *queue // nil for checkouts.
	checkout bool   // Whether t is a read-only view.
	pinned   int64  // Seq of the tip of a checkout.
	metrics  *metrics
}

// New opens f and returns a live tree over it. If reg is not nil the
// tree's metrics are registered with it; a registry can hold the metrics
// of only one tree.
func New(ctx context.Context, f feed.Feed, reg prometheus.Registerer) (*Tree, error) {
	const op errors.Op = "tree.New"
	if err := f.Open(ctx); err != nil {
		return nil, errors.E(op, err)
	}
	return &Tree{
		feed:    f,
		writer:  &queue{},
		pinned:  -1,
		metrics: newMetrics(reg),
	}, nil
}

// Checkout returns a read-only view of the tree as it was right after
// the record with the given seq was appended. A negative seq gives the
// view before the first record, which is empty.
func (t *Tree) Checkout(seq int64) *Tree {
	if seq < 0 {
		seq = -1
	}
	return &Tree{
		feed:     t.feed,
		checkout: true,
		pinned:   seq,
		metrics:  t.metrics,
	}
}

// IsCheckout reports whether t is a read-only checkout.
func (t *Tree) IsCheckout() bool {
	return t.checkout
}

// Version returns the seq of the tip t reads from, or -1 if the feed is
// empty. For a checkout it is the pinned seq.
func (t *Tree) Version() int64 {
	if t.IsCheckout() {
		return t.pinned
	}
	return t.feed.Len() - 1
}

// Feed returns the feed t is stored in.
func (t *Tree) Feed() feed.Feed {
	return t.feed
}

// tip returns the record reads start from, or nil if there is none.
func (t *Tree) tip(ctx context.Context) (*record.Record, error) {
	seq := t.Version()
	if seq < 0 {
		return nil, nil
	}
	if seq >= t.feed.Len() {
		// A checkout of a record not yet written sees nothing.
		return nil, nil
	}
	return t.fetch(ctx, seq)
}

// fetch reads and decodes the record at seq.
func (t *Tree) fetch(ctx context.Context, seq int64) (*record.Record, error) {
	const op errors.Op = "tree.fetch"
	b, err := t.feed.Get(ctx, seq)
	t.metrics.fetches.Inc()
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	r, err := record.Unmarshal(b)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if r.Seq != seq {
		return nil, errors.E(op, errors.Corrupt, errors.Errorf("block %d holds record with seq %d", seq, r.Seq))
	}
	return r, nil
}

// prefetch hints to the feed that the candidates will be read soon.
func (t *Tree) prefetch(seqs []int64) {
	p, ok := t.feed.(feed.Prefetcher)
	if !ok {
		return
	}
	for _, seq := range seqs {
		if !t.feed.Has(seq) {
			p.Prefetch(seq)
		}
	}
}

func notFound(op errors.Op, name appendtree.PathName) error {
	return errors.E(op, name, errors.NotExist)
}

// parse converts a path name to parsed form, for callers holding strings.
func parse(op errors.Op, name appendtree.PathName) (path.Parsed, error) {
	p, err := path.Parse(name)
	if err != nil {
		return path.Root, errors.E(op, err)
	}
	return p, nil
}
