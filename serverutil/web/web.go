// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package web provides an http.Handler implementation that serves the
// contents of an append tree as JSON. For example, an HTTP request for
//   http://host.example.com/ls/photos/2017
// returns the names of the children of /photos/2017.
//
// Any request may carry an "at" query parameter holding a sequence
// number, in which case it is answered from a checkout of the tree as of
// that record.
package web // import "appendtree.io/serverutil/web"

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/NYTimes/gziphandler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"appendtree.io/appendtree"
	"appendtree.io/errors"
	"appendtree.io/log"
	"appendtree.io/record"
	"appendtree.io/tree"
)

// Entry is the JSON form of a record.
type Entry struct {
	Seq  int64               `json:"seq"`
	Path appendtree.PathName `json:"path"`
	// Value is null for a record written without a value.
	Value []byte `json:"value"`
}

// Status is the response to a request for "/".
type Status struct {
	Version int64 `json:"version"`
	Len     int64 `json:"len"`
}

// Listing is the response to a request under /ls/.
type Listing struct {
	Path  appendtree.PathName `json:"path"`
	Names []string            `json:"names"`
}

// Count is the response to a request under /count/.
type Count struct {
	Path  appendtree.PathName `json:"path"`
	Count int                 `json:"count"`
}

// Proof is the response to a request under /proof/.
type Proof struct {
	Path appendtree.PathName `json:"path"`
	Seqs []int64             `json:"seqs"`
}

// History is the response to a request for /history.
type History struct {
	Records []Entry `json:"records"`
}

// Error is the body of every response with a non-2xx status.
type Error struct {
	Error string `json:"error"`
}

// New returns an http.Handler that serves the tree t. If g is not nil,
// the metrics it gathers are served at /metrics.
// Responses are gzip-compressed for clients that accept it.
func New(t *tree.Tree, g prometheus.Gatherer) http.Handler {
	s := &web{tree: t}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.status)
	mux.HandleFunc("/get/", s.get)
	mux.HandleFunc("/ls/", s.list)
	mux.HandleFunc("/count/", s.count)
	mux.HandleFunc("/proof/", s.proof)
	mux.HandleFunc("/history", s.history)
	if g != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
	return gziphandler.GzipHandler(readOnly{mux})
}

type web struct {
	tree *tree.Tree
}

// readOnly rejects requests that are not GET or HEAD.
type readOnly struct {
	http.Handler
}

func (h readOnly) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeJSON(w, http.StatusMethodNotAllowed, Error{http.StatusText(http.StatusMethodNotAllowed)})
		return
	}
	h.Handler.ServeHTTP(w, r)
}

func (s *web) status(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, Error{http.StatusText(http.StatusNotFound)})
		return
	}
	t, err := s.view(r)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Status{
		Version: t.Version(),
		Len:     t.Feed().Len(),
	})
}

func (s *web) get(w http.ResponseWriter, r *http.Request) {
	t, name, err := s.target(r, "/get")
	if err != nil {
		httpError(w, err)
		return
	}
	rec, err := t.Get(r.Context(), name)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry(rec))
}

func (s *web) list(w http.ResponseWriter, r *http.Request) {
	t, name, err := s.target(r, "/ls")
	if err != nil {
		httpError(w, err)
		return
	}
	names, err := t.List(r.Context(), name)
	if err != nil {
		httpError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, Listing{Path: name, Names: names})
}

func (s *web) count(w http.ResponseWriter, r *http.Request) {
	t, name, err := s.target(r, "/count")
	if err != nil {
		httpError(w, err)
		return
	}
	n, err := t.Count(r.Context(), name)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Count{Path: name, Count: n})
}

func (s *web) proof(w http.ResponseWriter, r *http.Request) {
	t, name, err := s.target(r, "/proof")
	if err != nil {
		httpError(w, err)
		return
	}
	seqs, err := t.Proof(r.Context(), name)
	if err != nil {
		httpError(w, err)
		return
	}
	if seqs == nil {
		seqs = []int64{}
	}
	writeJSON(w, http.StatusOK, Proof{Path: name, Seqs: seqs})
}

func (s *web) history(w http.ResponseWriter, r *http.Request) {
	const op errors.Op = "web.history"
	t, err := s.view(r)
	if err != nil {
		httpError(w, err)
		return
	}
	since, err := seqParam(r, "since")
	if err != nil {
		httpError(w, errors.E(op, err))
		return
	}
	until, err := seqParam(r, "until")
	if err != nil {
		httpError(w, errors.E(op, err))
		return
	}
	h := History{Records: []Entry{}}
	it := t.History(since, until)
	for it.Next(r.Context()) {
		h.Records = append(h.Records, entry(it.Record()))
	}
	if err := it.Err(); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// view returns the tree a request reads from: a checkout if the
// request has an "at" parameter, otherwise the live tree.
func (s *web) view(r *http.Request) (*tree.Tree, error) {
	at, err := seqParam(r, "at")
	if err != nil {
		return nil, errors.E(errors.Op("web.view"), err)
	}
	if at < 0 {
		return s.tree, nil
	}
	return s.tree.Checkout(at), nil
}

// target returns the tree and the path name addressed by a request
// whose URL path begins with prefix.
func (s *web) target(r *http.Request, prefix string) (*tree.Tree, appendtree.PathName, error) {
	t, err := s.view(r)
	if err != nil {
		return nil, "", err
	}
	name := strings.TrimPrefix(r.URL.Path, prefix)
	return t, appendtree.PathName(name), nil
}

// seqParam returns the sequence number in the named query parameter,
// or -1 if it is absent. Explicit values must not be negative.
func seqParam(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return -1, nil
	}
	seq, err := strconv.ParseInt(v, 10, 64)
	if err != nil || seq < 0 {
		return 0, errors.E(errors.Invalid, errors.Errorf("bad %s parameter %q", key, v))
	}
	return seq, nil
}

func entry(r *record.Record) Entry {
	return Entry{Seq: r.Seq, Path: r.Path.Path(), Value: r.Value}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error.Printf("web: encoding response: %v", err)
	}
}

// ifError checks if the error is the expected one, and if so writes back an
// HTTP error of the corresponding code.
func ifError(w http.ResponseWriter, got error, want errors.Kind, code int) bool {
	if !errors.Is(want, got) {
		return false
	}
	writeJSON(w, code, Error{got.Error()})
	return true
}

func httpError(w http.ResponseWriter, err error) {
	// This construction sets the HTTP error to the first type that matches.
	switch {
	case ifError(w, err, errors.NotExist, http.StatusNotFound):
	case ifError(w, err, errors.Invalid, http.StatusBadRequest):
	case ifError(w, err, errors.Syntax, http.StatusBadRequest):
	default:
		log.Error.Printf("web: %v", err)
		writeJSON(w, http.StatusInternalServerError, Error{err.Error()})
	}
}
