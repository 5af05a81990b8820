// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config creates a tree configuration from various sources.
package config // import "appendtree.io/config"

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"

	yaml "gopkg.in/yaml.v2"

	"appendtree.io/errors"
	"appendtree.io/feed"
	"appendtree.io/feed/badgerfeed"
	"appendtree.io/feed/cached"
	"appendtree.io/feed/disk"
	"appendtree.io/feed/inprocess"
	"appendtree.io/log"
)

// Config describes where a tree keeps its records and how it is served.
type Config struct {
	// Feed names the log implementation: inprocess, disk or badger.
	Feed string
	// Dir is the storage directory of the disk and badger feeds.
	Dir string
	// CacheSize is the number of blocks kept in memory by a
	// caching layer over the feed. Zero disables the cache.
	CacheSize int
	// Compress reports whether the disk feed compresses blocks with snappy.
	Compress bool
	// MaxLogSize is the size at which the disk feed starts a new file.
	MaxLogSize int64
	// SyncWrites makes the badger feed sync every append.
	SyncWrites bool
	// LogLevel is the level passed to log.SetLevel.
	LogLevel string
	// HTTPAddr is the address served by "appendtree serve".
	HTTPAddr string
}

// Known keys. All others are treated as errors.
const (
	feedKey       = "feed"
	dirKey        = "dir"
	cacheSizeKey  = "cachesize"
	compressKey   = "compress"
	maxLogSizeKey = "maxlogsize"
	syncWritesKey = "syncwrites"
	logLevelKey   = "loglevel"
	httpAddrKey   = "httpaddr"
)

// Feed implementations.
const (
	InProcess = "inprocess"
	Disk      = "disk"
	Badger    = "badger"
)

// Default values for the configuration.
const (
	defaultFeed      = InProcess
	defaultCacheSize = 1000
	defaultLogLevel  = "info"
	defaultHTTPAddr  = "localhost:8080"
)

// Default returns the configuration used when no file is given:
// an in-process feed behind a small cache.
func Default() *Config {
	return &Config{
		Feed:      defaultFeed,
		CacheSize: defaultCacheSize,
		LogLevel:  defaultLogLevel,
		HTTPAddr:  defaultHTTPAddr,
	}
}

// FromFile initializes a config using the given file. If the file cannot
// be opened, the error has kind errors.NotExist.
func FromFile(name string) (*Config, error) {
	const op errors.Op = "config.FromFile"
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(op, errors.NotExist, err)
		}
		return nil, errors.E(op, errors.IO, err)
	}
	defer f.Close()
	cfg, err := InitConfig(f)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return cfg, nil
}

// InitConfig returns a config generated from a YAML configuration read
// from r. Absent keys take their default values.
//
// The default configuration file location is $HOME/appendtree/config,
// which the appendtree command reads when no -config flag is given.
//
// An example configuration file:
//
//	feed: disk
//	dir: /var/lib/appendtree
//	cachesize: 5000
//	compress: snappy
//	loglevel: debug
//	httpaddr: localhost:8080
func InitConfig(r io.Reader) (*Config, error) {
	const op errors.Op = "config.InitConfig"
	vals := map[string]string{
		feedKey:       defaultFeed,
		dirKey:        "",
		cacheSizeKey:  strconv.Itoa(defaultCacheSize),
		compressKey:   "none",
		maxLogSizeKey: "0",
		syncWritesKey: "false",
		logLevelKey:   defaultLogLevel,
		httpAddrKey:   defaultHTTPAddr,
	}

	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	if err := valsFromYAML(vals, data); err != nil {
		return nil, errors.E(op, err)
	}

	cfg := &Config{
		Feed:     vals[feedKey],
		Dir:      vals[dirKey],
		LogLevel: vals[logLevelKey],
		HTTPAddr: vals[httpAddrKey],
	}
	switch cfg.Feed {
	case InProcess:
	case Disk, Badger:
		if cfg.Dir == "" {
			return nil, errors.E(op, errors.Invalid, errors.Errorf("feed %q requires a dir", cfg.Feed))
		}
	default:
		return nil, errors.E(op, errors.Invalid, errors.Errorf("unknown feed %q", cfg.Feed))
	}
	n, err := strconv.Atoi(vals[cacheSizeKey])
	if err != nil || n < 0 {
		return nil, errors.E(op, errors.Invalid, errors.Errorf("bad cachesize %q", vals[cacheSizeKey]))
	}
	cfg.CacheSize = n
	switch vals[compressKey] {
	case "snappy":
		cfg.Compress = true
	case "none", "":
	default:
		return nil, errors.E(op, errors.Invalid, errors.Errorf("unknown compression %q", vals[compressKey]))
	}
	size, err := strconv.ParseInt(vals[maxLogSizeKey], 10, 64)
	if err != nil || size < 0 {
		return nil, errors.E(op, errors.Invalid, errors.Errorf("bad maxlogsize %q", vals[maxLogSizeKey]))
	}
	cfg.MaxLogSize = size
	cfg.SyncWrites, err = strconv.ParseBool(vals[syncWritesKey])
	if err != nil {
		return nil, errors.E(op, errors.Invalid, errors.Errorf("bad syncwrites %q", vals[syncWritesKey]))
	}
	if !log.ValidLevel(cfg.LogLevel) {
		return nil, errors.E(op, errors.Invalid, errors.Errorf("bad loglevel %q", cfg.LogLevel))
	}
	return cfg, nil
}

// valsFromYAML parses YAML from the given map and puts the values
// into the provided map. Unrecognized keys generate an error.
func valsFromYAML(vals map[string]string, data []byte) error {
	newVals := map[string]interface{}{}
	if err := yaml.Unmarshal(data, newVals); err != nil {
		return errors.E(errors.Invalid, errors.Errorf("parsing YAML file: %v", err))
	}
	for k, v := range newVals {
		if _, ok := vals[k]; !ok {
			return errors.E(errors.Invalid, errors.Errorf("unrecognized key %q", k))
		}
		s, err := asString(v)
		if err != nil {
			return errors.E(errors.Invalid, errors.Errorf("%q: %v", k, err))
		}
		vals[k] = s
	}
	return nil
}

// asString tries to convert a value back into its original string. This will not
// always be possible but should be for all our expected use cases.
func asString(v interface{}) (string, error) {
	switch vc := v.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64, bool:
		return fmt.Sprintf("%v", vc), nil
	case string:
		return vc, nil
	case nil:
		return "", nil
	}
	return "", errors.Errorf("unrecognized value %T", v)
}

// OpenFeed assembles and opens the feed described by cfg.
// When cfg.CacheSize is positive the feed is wrapped in a block cache.
// The caller should release the result with feed.Close.
func OpenFeed(ctx context.Context, cfg *Config) (feed.Feed, error) {
	const op errors.Op = "config.OpenFeed"
	var f feed.Feed
	switch cfg.Feed {
	case InProcess, "":
		inp, err := inprocess.New()
		if err != nil {
			return nil, errors.E(op, err)
		}
		f = inp
	case Disk:
		f = disk.New(cfg.Dir, disk.Options{
			Compress:   cfg.Compress,
			MaxLogSize: cfg.MaxLogSize,
		})
	case Badger:
		f = badgerfeed.New(badgerfeed.Config{
			Path:       cfg.Dir,
			SyncWrites: cfg.SyncWrites,
		})
	default:
		return nil, errors.E(op, errors.Invalid, errors.Errorf("unknown feed %q", cfg.Feed))
	}
	if cfg.CacheSize > 0 {
		f = cached.New(f, cfg.CacheSize)
	}
	if err := f.Open(ctx); err != nil {
		feed.Close(f)
		return nil, errors.E(op, err)
	}
	log.Debug.Printf("config.OpenFeed: %s feed with %d records", cfg.Feed, f.Len())
	return f, nil
}
