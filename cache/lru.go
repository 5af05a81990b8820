// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache implements an LRU cache used to hold recently read
// log blocks.
package cache // import "appendtree.io/cache"

import (
	"container/list"
	"sync"
)

// LRU is a least-recently used cache, safe for concurrent access.
type LRU[K comparable, V any] struct {
	maxEntries int
	onEvict    func(K, V)

	mu    sync.Mutex
	ll    *list.List
	cache map[K]*list.Element
}

// *entry is the type stored in each *list.Element.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU returns a new cache with the provided maximum items.
// If onEvict is not nil it is called, with the cache lock held, for each
// item Add pushes out of the cache. It is not called by Remove or
// RemoveOldest.
func NewLRU[K comparable, V any](maxEntries int, onEvict func(K, V)) *LRU[K, V] {
	return &LRU[K, V]{
		maxEntries: maxEntries,
		onEvict:    onEvict,
		ll:         list.New(),
		cache:      make(map[K]*list.Element),
	}
}

// Add adds the provided key and value to the cache, evicting
// an old item if necessary.
func (c *LRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Already in cache?
	if ee, ok := c.cache[key]; ok {
		c.ll.MoveToFront(ee)
		ee.Value.(*entry[K, V]).value = value
		return
	}

	// Add to cache if not present
	ele := c.ll.PushFront(&entry[K, V]{key, value})
	c.cache[key] = ele

	if c.ll.Len() > c.maxEntries {
		k, v, ok := c.removeOldest()
		if ok && c.onEvict != nil {
			c.onEvict(k, v)
		}
	}
}

// Get fetches the key's value from the cache.
// The ok result will be true if the item was found.
func (c *LRU[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, hit := c.cache[key]; hit {
		c.ll.MoveToFront(ele)
		return ele.Value.(*entry[K, V]).value, true
	}
	return
}

// Contains reports whether key is in the cache without
// changing its recency.
func (c *LRU[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.cache[key]
	return ok
}

// Remove removes key from the cache and returns its value, if any.
func (c *LRU[K, V]) Remove(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ele, hit := c.cache[key]
	if !hit {
		return
	}
	c.ll.Remove(ele)
	delete(c.cache, key)
	return ele.Value.(*entry[K, V]).value, true
}

// RemoveOldest removes the oldest item in the cache and returns its key and value.
// The ok result is false if the cache is empty.
func (c *LRU[K, V]) RemoveOldest() (key K, value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeOldest()
}

// note: must hold c.mu
func (c *LRU[K, V]) removeOldest() (key K, value V, ok bool) {
	ele := c.ll.Back()
	if ele == nil {
		return
	}
	c.ll.Remove(ele)
	ent := ele.Value.(*entry[K, V])
	delete(c.cache, ent.key)
	return ent.key, ent.value, true
}

// PeekOldest returns the least recently used item without
// changing its recency.
func (c *LRU[K, V]) PeekOldest() (key K, value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return peek[K, V](c.ll.Back())
}

// PeekNewest returns the most recently used item without
// changing its recency.
func (c *LRU[K, V]) PeekNewest() (key K, value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return peek[K, V](c.ll.Front())
}

func peek[K comparable, V any](ele *list.Element) (key K, value V, ok bool) {
	if ele == nil {
		return
	}
	ent := ele.Value.(*entry[K, V])
	return ent.key, ent.value, true
}

// Len returns the number of items in the cache.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
