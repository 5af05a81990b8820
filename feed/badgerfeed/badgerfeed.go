// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package badgerfeed implements a feed stored in a BadgerDB database.
//
// Block n is stored under the key "b" followed by n as 8 big-endian bytes.
// The block count is stored under the key "len" and is updated in the same
// transaction as the block it counts.
package badgerfeed // import "appendtree.io/feed/badgerfeed"

import (
	"context"
	"encoding/binary"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"appendtree.io/errors"
	"appendtree.io/feed"
	"appendtree.io/log"
)

// Config holds configuration for a badger-backed feed.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string

	// InMemory keeps the database in memory, for tests.
	InMemory bool

	// SyncWrites makes every append durable before it returns.
	SyncWrites bool
}

// Feed is a feed.Feed stored in BadgerDB.
type Feed struct {
	cfg Config

	// mu protects db and n.
	mu sync.RWMutex
	db *badger.DB
	n  int64
}

var (
	_ feed.Feed   = (*Feed)(nil)
	_ feed.Closer = (*Feed)(nil)
)

var lenKey = []byte("len")

func blockKey(seq int64) []byte {
	k := make([]byte, 9)
	k[0] = 'b'
	binary.BigEndian.PutUint64(k[1:], uint64(seq))
	return k
}

// New returns a feed for cfg. The database is opened by Open.
func New(cfg Config) *Feed {
	return &Feed{cfg: cfg}
}

// Open implements feed.Feed.
func (f *Feed) Open(ctx context.Context) error {
	const op errors.Op = "feed/badgerfeed.Open"
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db != nil {
		return nil
	}
	var opts badger.Options
	if f.cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if f.cfg.Path == "" {
			return errors.E(op, errors.Invalid, errors.Str("path is required for persistent database"))
		}
		if err := os.MkdirAll(f.cfg.Path, 0700); err != nil {
			return errors.E(op, errors.IO, err)
		}
		opts = badger.DefaultOptions(f.cfg.Path)
	}
	opts = opts.WithSyncWrites(f.cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return errors.E(op, errors.IO, err)
	}
	var n int64
	err = db.View(func(txn *badger.Txn) error {
		var err error
		n, err = readLen(txn)
		return err
	})
	if err != nil {
		db.Close()
		return errors.E(op, err)
	}
	f.db, f.n = db, n
	return nil
}

func readLen(txn *badger.Txn) (int64, error) {
	item, err := txn.Get(lenKey)
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, errors.E(errors.IO, err)
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return 0, errors.E(errors.IO, err)
	}
	if len(v) != 8 {
		return 0, errors.E(errors.Corrupt, errors.Errorf("length record is %d bytes", len(v)))
	}
	return int64(binary.BigEndian.Uint64(v)), nil
}

// Len implements feed.Feed.
func (f *Feed) Len() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.n
}

// Has implements feed.Feed. Reads always go to the database.
func (f *Feed) Has(seq int64) bool {
	return false
}

// Get implements feed.Feed.
func (f *Feed) Get(ctx context.Context, seq int64) ([]byte, error) {
	const op errors.Op = "feed/badgerfeed.Get"
	if err := ctx.Err(); err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	f.mu.RLock()
	db, n := f.db, f.n
	f.mu.RUnlock()
	if db == nil {
		return nil, errors.E(op, errors.Invalid, errors.Str("feed not open"))
	}
	if seq < 0 || seq >= n {
		return nil, errors.E(op, errors.NotExist, errors.Errorf("seq %d of %d", seq, n))
	}
	var block []byte
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blockKey(seq))
		if err == badger.ErrKeyNotFound {
			return errors.E(errors.Corrupt, errors.Errorf("block %d missing", seq))
		}
		if err != nil {
			return errors.E(errors.IO, err)
		}
		block, err = item.ValueCopy(nil)
		if err != nil {
			return errors.E(errors.IO, err)
		}
		return nil
	})
	if err != nil {
		return nil, errors.E(op, err)
	}
	if block == nil {
		block = []byte{}
	}
	return block, nil
}

// Append implements feed.Feed.
func (f *Feed) Append(ctx context.Context, block []byte) (int64, error) {
	const op errors.Op = "feed/badgerfeed.Append"
	if err := ctx.Err(); err != nil {
		return 0, errors.E(op, errors.IO, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db == nil {
		return 0, errors.E(op, errors.Invalid, errors.Str("feed not open"))
	}
	seq := f.n
	var lenVal [8]byte
	binary.BigEndian.PutUint64(lenVal[:], uint64(seq+1))
	err := f.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(blockKey(seq), block); err != nil {
			return err
		}
		return txn.Set(lenKey, lenVal[:])
	})
	if err != nil {
		return 0, errors.E(op, errors.IO, err)
	}
	f.n = seq + 1
	return seq, nil
}

// Close implements feed.Closer.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db == nil {
		return nil
	}
	err := f.db.Close()
	f.db = nil
	if err != nil {
		return errors.E(errors.Op("feed/badgerfeed.Close"), errors.IO, err)
	}
	return nil
}

// badgerLogger routes BadgerDB's logging to package log.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Error.Printf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Info.Printf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	log.Debug.Printf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	log.Debug.Printf("badger: "+format, args...)
}
