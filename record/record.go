// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package record defines the unit stored in each block of an append
// tree's log and its wire encoding.
package record // import "appendtree.io/record"

import (
	"fmt"
	"strings"
	"sync"

	"github.com/golang/protobuf/proto"

	"appendtree.io/backref"
	"appendtree.io/errors"
	"appendtree.io/path"
	pb "appendtree.io/record/proto"
)

// Record is one immutable entry of the tree. Seq equals its position in
// the log.
type Record struct {
	Seq  int64
	Path path.Parsed

	// Value is the payload. A nil Value is absent; a non-nil
	// empty Value is present with zero length.
	Value []byte

	// Index is the encoded back-reference table, nil if absent.
	Index []byte

	once   sync.Once
	table  backref.Table
	tabErr error
}

// New returns a record for the given fields. The table is stored in
// encoded form.
func New(seq int64, p path.Parsed, value []byte, table backref.Table) *Record {
	return &Record{
		Seq:   seq,
		Path:  p,
		Value: value,
		Index: table.Bytes(),
	}
}

// Backrefs decodes the record's back-reference table. The result is
// computed once and cached.
func (r *Record) Backrefs() (backref.Table, error) {
	r.once.Do(func() {
		r.table, r.tabErr = backref.Parse(r.Index)
		if r.tabErr != nil {
			r.tabErr = errors.E(errors.Op("record.Backrefs"), r.Path.Path(), r.tabErr)
		}
	})
	return r.table, r.tabErr
}

// Marshal returns the protocol buffer encoding of r.
func Marshal(r *Record) ([]byte, error) {
	const op errors.Op = "record.Marshal"
	if r.Seq < 0 {
		return nil, errors.E(op, errors.Invalid, errors.Errorf("negative seq %d", r.Seq))
	}
	seq := uint64(r.Seq)
	node := &pb.Node{
		Seq:   &seq,
		Path:  r.Path.Elems(),
		Value: r.Value,
		Index: r.Index,
	}
	if len(node.Path) == 0 {
		node.Path = nil
	}
	b, err := proto.Marshal(node)
	if err != nil {
		return nil, errors.E(op, errors.Internal, err)
	}
	return b, nil
}

// Unmarshal decodes a record from its protocol buffer encoding.
func Unmarshal(b []byte) (*Record, error) {
	const op errors.Op = "record.Unmarshal"
	var node pb.Node
	if err := proto.Unmarshal(b, &node); err != nil {
		return nil, errors.E(op, errors.Corrupt, err)
	}
	if node.Seq == nil {
		return nil, errors.E(op, errors.Corrupt, errors.Str("missing seq"))
	}
	p, err := path.FromElems(node.Path...)
	if err != nil {
		return nil, errors.E(op, errors.Corrupt, err)
	}
	return &Record{
		Seq:   int64(node.GetSeq()),
		Path:  p,
		Value: node.Value,
		Index: node.Index,
	}, nil
}

// String returns a one-line dump of the record, with its decoded table.
func (r *Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "seq=%d path=%s", r.Seq, r.Path)
	if r.Value == nil {
		b.WriteString(" value=<none>")
	} else {
		fmt.Fprintf(&b, " value=%dB", len(r.Value))
	}
	t, err := r.Backrefs()
	switch {
	case err != nil:
		fmt.Fprintf(&b, " index=<%v>", err)
	case !t.Present():
		b.WriteString(" index=<none>")
	default:
		b.WriteString(" index=")
		for d := 0; d < t.Depth(); d++ {
			if d > 0 {
				b.WriteByte('|')
			}
			fmt.Fprint(&b, t.Level(d))
		}
	}
	return b.String()
}
