// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package feed defines the append-only log an append tree is stored in.
// A feed is a sequence of opaque blocks addressed by their 0-based
// position. Blocks are never modified once appended.
package feed // import "appendtree.io/feed"

import (
	"context"
)

// Feed is an append-only, position-addressed store of blocks.
// Implementations must be safe for concurrent use; the tree serializes
// its own calls to Append.
type Feed interface {
	// Open prepares the feed for use. It may be called more than once;
	// calls after the first successful one return nil.
	Open(ctx context.Context) error

	// Len returns the number of blocks stored. Zero means empty.
	Len() int64

	// Get returns the block at position seq. It returns an error
	// of kind errors.NotExist if seq >= Len().
	Get(ctx context.Context, seq int64) ([]byte, error)

	// Append stores block at the end of the feed and returns its position.
	Append(ctx context.Context, block []byte) (int64, error)

	// Has reports whether Get(seq) can be served without I/O.
	Has(seq int64) bool
}

// Prefetcher is implemented by feeds that can start fetching a block
// in the background. Prefetch must not block.
type Prefetcher interface {
	Prefetch(seq int64)
}

// Closer is implemented by feeds that hold resources such as files.
type Closer interface {
	Close() error
}

// Close closes f if it implements Closer.
func Close(f Feed) error {
	if c, ok := f.(Closer); ok {
		return c.Close()
	}
	return nil
}
