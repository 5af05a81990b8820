// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package inprocess implements a simple non-persistent in-memory feed.
package inprocess // import "appendtree.io/feed/inprocess"

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"appendtree.io/errors"
	"appendtree.io/feed"
)

// Feed holds blocks in memory. The zero value is not usable; call New.
type Feed struct {
	// capacity is the maximum number of bytes this feed can store.
	capacity int64

	// mu protects the fields below.
	mu     sync.RWMutex
	opened bool
	size   int64
	blocks [][]byte
}

var _ feed.Feed = (*Feed)(nil)

var errFull = errors.E(errors.IO, errors.Str("feed capacity exceeded"))

// New returns an empty in-memory feed. The only option is
// "capacity=<bytes>", which bounds the total size of stored blocks
// (default 100 MB).
func New(options ...string) (*Feed, error) {
	const op errors.Op = "feed/inprocess.New"
	capacity := int64(100 * 1024 * 1024)
	for _, optPair := range options {
		opt := strings.Split(optPair, "=")
		if len(opt) != 2 {
			return nil, errors.E(op, errors.Invalid, errors.Errorf("invalid option format: %q", optPair))
		}
		k, v := opt[0], opt[1]
		switch k {
		case "capacity":
			var err error
			capacity, err = strconv.ParseInt(v, 10, 64)
			if err != nil || capacity <= 0 {
				return nil, errors.E(op, errors.Invalid, errors.Errorf("invalid capacity %q", v))
			}
		default:
			return nil, errors.E(op, errors.Invalid, errors.Errorf("unknown option %q", k))
		}
	}
	return &Feed{capacity: capacity}, nil
}

// Open implements feed.Feed.
func (f *Feed) Open(ctx context.Context) error {
	f.mu.Lock()
	f.opened = true
	f.mu.Unlock()
	return nil
}

// Len implements feed.Feed.
func (f *Feed) Len() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int64(len(f.blocks))
}

// Get implements feed.Feed. The returned slice must not be modified.
func (f *Feed) Get(ctx context.Context, seq int64) ([]byte, error) {
	const op errors.Op = "feed/inprocess.Get"
	if err := ctx.Err(); err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.opened {
		return nil, errors.E(op, errors.Invalid, errors.Str("feed not open"))
	}
	if seq < 0 || seq >= int64(len(f.blocks)) {
		return nil, errors.E(op, errors.NotExist, errors.Errorf("seq %d of %d", seq, len(f.blocks)))
	}
	return f.blocks[seq], nil
}

// Append implements feed.Feed. The block is copied.
func (f *Feed) Append(ctx context.Context, block []byte) (int64, error) {
	const op errors.Op = "feed/inprocess.Append"
	if err := ctx.Err(); err != nil {
		return 0, errors.E(op, errors.IO, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.opened {
		return 0, errors.E(op, errors.Invalid, errors.Str("feed not open"))
	}
	if f.size+int64(len(block)) > f.capacity {
		return 0, errors.E(op, errFull)
	}
	b := make([]byte, len(block))
	copy(b, block)
	f.blocks = append(f.blocks, b)
	f.size += int64(len(b))
	return int64(len(f.blocks) - 1), nil
}

// Has implements feed.Feed. Every stored block is in memory.
func (f *Feed) Has(seq int64) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return seq >= 0 && seq < int64(len(f.blocks))
}
