// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cached wraps a feed with an in-memory LRU cache of blocks and
// background prefetching.
package cached // import "appendtree.io/feed/cached"

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"appendtree.io/cache"
	"appendtree.io/errors"
	"appendtree.io/feed"
	"appendtree.io/log"
)

// maxPrefetch bounds the number of concurrent background fetches.
// Prefetch requests beyond it are dropped.
const maxPrefetch = 16

// Feed is a caching feed.Feed. It implements feed.Prefetcher.
type Feed struct {
	base   feed.Feed
	blocks *cache.LRU[int64, []byte]

	group singleflight.Group
	slots chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex // Protects closed and calls to wg.Add.
	closed bool

	hits, misses, prefetched atomic.Int64
}

var (
	_ feed.Feed       = (*Feed)(nil)
	_ feed.Prefetcher = (*Feed)(nil)
	_ feed.Closer     = (*Feed)(nil)
)

// New returns a feed that serves blocks of base from a cache holding
// up to size blocks.
func New(base feed.Feed, size int) *Feed {
	if size < 1 {
		size = 1
	}
	return &Feed{
		base:   base,
		blocks: cache.NewLRU[int64, []byte](size, nil),
		slots:  make(chan struct{}, maxPrefetch),
	}
}

// Open implements feed.Feed.
func (f *Feed) Open(ctx context.Context) error {
	return f.base.Open(ctx)
}

// Len implements feed.Feed.
func (f *Feed) Len() int64 {
	return f.base.Len()
}

// Has implements feed.Feed. It reports whether seq is in the cache.
func (f *Feed) Has(seq int64) bool {
	return f.blocks.Contains(seq) || f.base.Has(seq)
}

// Get implements feed.Feed. Concurrent misses for the same block share
// one fetch from the underlying feed.
func (f *Feed) Get(ctx context.Context, seq int64) ([]byte, error) {
	if b, ok := f.blocks.Get(seq); ok {
		f.hits.Add(1)
		return b, nil
	}
	f.misses.Add(1)
	return f.fetch(ctx, seq)
}

// fetch reads seq from the underlying feed. The shared read is not
// canceled with ctx, since other callers may be waiting on it; each
// caller stops waiting when its own ctx is done.
func (f *Feed) fetch(ctx context.Context, seq int64) ([]byte, error) {
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(strconv.FormatInt(seq, 10), func() (interface{}, error) {
		b, err := f.base.Get(shared, seq)
		if err != nil {
			return nil, err
		}
		f.blocks.Add(seq, b)
		return b, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, errors.E(errors.Op("feed/cached.Get"), errors.IO, ctx.Err())
	}
}

// Append implements feed.Feed. The appended block is cached, since
// the tree reads its tip right after writing it.
func (f *Feed) Append(ctx context.Context, block []byte) (int64, error) {
	seq, err := f.base.Append(ctx, block)
	if err != nil {
		return seq, err
	}
	b := make([]byte, len(block))
	copy(b, block)
	f.blocks.Add(seq, b)
	return seq, nil
}

// Prefetch implements feed.Prefetcher. It starts fetching seq in the
// background unless it is cached, too many fetches are running or the
// feed is closed.
func (f *Feed) Prefetch(seq int64) {
	if f.blocks.Contains(seq) {
		return
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	select {
	case f.slots <- struct{}{}:
	default:
		f.mu.Unlock()
		return
	}
	f.wg.Add(1)
	f.mu.Unlock()
	go func() {
		defer f.wg.Done()
		defer func() { <-f.slots }()
		if _, err := f.fetch(context.Background(), seq); err != nil {
			log.Debug.Printf("feed/cached: prefetch of %d: %v", seq, err)
			return
		}
		f.prefetched.Add(1)
	}()
}

// Stats reports cache activity since the feed was created.
type Stats struct {
	Hits, Misses, Prefetched int64
	Cached                   int
}

// Stats returns the current cache statistics.
func (f *Feed) Stats() Stats {
	return Stats{
		Hits:       f.hits.Load(),
		Misses:     f.misses.Load(),
		Prefetched: f.prefetched.Load(),
		Cached:     f.blocks.Len(),
	}
}

// Close waits for background fetches and closes the underlying feed.
// Prefetch requests made after Close are dropped.
func (f *Feed) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.wg.Wait()
	if err := feed.Close(f.base); err != nil {
		return errors.E(errors.Op("feed/cached.Close"), err)
	}
	return nil
}
