// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package backref encodes the per-depth back-reference tables carried by
// each record of an append tree.
//
// A table holds one level per directory depth of the owning record's path.
// Each level is a set of earlier sequence numbers. On the wire a level is
// its element count followed by the ascending elements as deltas, all as
// unsigned varints. Levels are concatenated with no length prefix; the
// reader knows how many to expect from the path.
package backref // import "appendtree.io/backref"

import (
	"encoding/binary"
	"sort"

	"appendtree.io/errors"
)

// MaxLevel is the largest element count accepted for a single level.
const MaxLevel = 65535

// Encode returns the wire form of levels. The levels are not modified.
func Encode(levels [][]int64) []byte {
	b := make([]byte, 0, EncodingLength(levels))
	for _, level := range levels {
		b = binary.AppendUvarint(b, uint64(len(level)))
		prev := int64(0)
		for _, seq := range sorted(level) {
			b = binary.AppendUvarint(b, uint64(seq-prev))
			prev = seq
		}
	}
	return b
}

// EncodingLength returns the number of bytes Encode(levels) produces.
func EncodingLength(levels [][]int64) int {
	var buf [binary.MaxVarintLen64]byte
	n := 0
	for _, level := range levels {
		n += binary.PutUvarint(buf[:], uint64(len(level)))
		prev := int64(0)
		for _, seq := range sorted(level) {
			n += binary.PutUvarint(buf[:], uint64(seq-prev))
			prev = seq
		}
	}
	return n
}

func sorted(level []int64) []int64 {
	if sort.SliceIsSorted(level, func(i, j int) bool { return level[i] < level[j] }) {
		return level
	}
	s := make([]int64, len(level))
	copy(s, level)
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	return s
}

// Decode reads levels from b[start:end] until end is reached.
// Each returned level is in ascending order.
func Decode(b []byte, start, end int) ([][]int64, error) {
	const op errors.Op = "backref.Decode"
	if start < 0 || end > len(b) || start > end {
		return nil, errors.E(op, errors.Invalid, errors.Errorf("bad range [%d:%d] of %d bytes", start, end, len(b)))
	}
	var levels [][]int64
	off := start
	next := func() (uint64, error) {
		v, n := binary.Uvarint(b[off:end])
		if n <= 0 {
			return 0, errors.E(op, errors.Corrupt, errors.Errorf("bad varint at offset %d", off))
		}
		off += n
		return v, nil
	}
	for off < end {
		count, err := next()
		if err != nil {
			return nil, err
		}
		if count > MaxLevel {
			return nil, errors.E(op, errors.Corrupt, errors.Errorf("level %d has %d entries, more than %d", len(levels), count, MaxLevel))
		}
		level := make([]int64, count)
		seq := int64(0)
		for i := range level {
			delta, err := next()
			if err != nil {
				return nil, err
			}
			seq += int64(delta)
			level[i] = seq
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// Table is a decoded back-reference table. The zero Table is absent:
// the owning record carried no index at all, as the first record of a
// log does.
type Table struct {
	present bool
	levels  [][]int64
}

// Parse decodes raw into a Table. A nil raw yields an absent table;
// a non-nil empty raw yields a present table with no levels.
func Parse(raw []byte) (Table, error) {
	if raw == nil {
		return Table{}, nil
	}
	levels, err := Decode(raw, 0, len(raw))
	if err != nil {
		return Table{}, err
	}
	return Table{present: true, levels: levels}, nil
}

// New returns a present table holding a copy of levels, each sorted.
func New(levels [][]int64) Table {
	t := Table{present: true, levels: make([][]int64, len(levels))}
	for i, level := range levels {
		s := make([]int64, len(level))
		copy(s, level)
		sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
		t.levels[i] = s
	}
	return t
}

// Present reports whether the table was stored with its record.
func (t Table) Present() bool {
	return t.present
}

// Depth returns the number of levels in the table.
func (t Table) Depth() int {
	return len(t.levels)
}

// Level returns a copy of the sequence numbers at depth d, ascending.
// It returns an empty slice for an absent table or a depth out of range.
func (t Table) Level(d int) []int64 {
	if d < 0 || d >= len(t.levels) {
		return []int64{}
	}
	s := make([]int64, len(t.levels[d]))
	copy(s, t.levels[d])
	return s
}

// Bytes returns the wire form of the table, or nil if it is absent.
func (t Table) Bytes() []byte {
	if !t.present {
		return nil
	}
	return Encode(t.levels)
}
