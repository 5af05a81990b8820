// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"bytes"
	"reflect"
	"testing"

	"appendtree.io/appendtree"
	"appendtree.io/backref"
	"appendtree.io/errors"
	"appendtree.io/path"
)

func mustParse(t *testing.T, name string) path.Parsed {
	t.Helper()
	p, err := path.Parse(appendtree.PathName(name))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestMarshalRoundTrip(t *testing.T) {
	tests := []struct {
		seq    int64
		path   string
		value  []byte
		levels [][]int64
	}{
		{0, "/hello.txt", []byte("hello"), nil},
		{1, "/a/b/c", []byte("x"), [][]int64{{0}, {}, {}}},
		{2, "/a/b/d", nil, [][]int64{{}, {}, {1}}},
		{3, "/dir/empty", []byte{}, [][]int64{{0, 1}, {}}},
		{1 << 33, "/", nil, [][]int64{}},
	}
	for _, test := range tests {
		var table backref.Table
		if test.levels != nil {
			table = backref.New(test.levels)
		}
		r := New(test.seq, mustParse(t, test.path), test.value, table)
		b, err := Marshal(r)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", r, err)
		}
		got, err := Unmarshal(b)
		if err != nil {
			t.Fatalf("Unmarshal(%v): %v", r, err)
		}
		if got.Seq != r.Seq {
			t.Errorf("seq = %d; want %d", got.Seq, r.Seq)
		}
		if !got.Path.Equal(r.Path) {
			t.Errorf("path = %s; want %s", got.Path, r.Path)
		}
		if (got.Value == nil) != (r.Value == nil) || !bytes.Equal(got.Value, r.Value) {
			t.Errorf("%s: value = %#v; want %#v", r.Path, got.Value, r.Value)
		}
		gt, err := got.Backrefs()
		if err != nil {
			t.Fatal(err)
		}
		if gt.Present() != table.Present() || gt.Depth() != table.Depth() {
			t.Errorf("%s: table present=%v depth=%d; want present=%v depth=%d",
				r.Path, gt.Present(), gt.Depth(), table.Present(), table.Depth())
		}
		for d := 0; d < table.Depth(); d++ {
			if !reflect.DeepEqual(gt.Level(d), table.Level(d)) {
				t.Errorf("%s: level %d = %v; want %v", r.Path, d, gt.Level(d), table.Level(d))
			}
		}
	}
}

func TestAbsentValueIsDistinct(t *testing.T) {
	p := mustParse(t, "/x")
	none, err := Marshal(New(4, p, nil, backref.Table{}))
	if err != nil {
		t.Fatal(err)
	}
	empty, err := Marshal(New(4, p, []byte{}, backref.Table{}))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(none, empty) {
		t.Fatalf("absent and empty values encode identically: %x", none)
	}
	r, err := Unmarshal(empty)
	if err != nil {
		t.Fatal(err)
	}
	if r.Value == nil {
		t.Errorf("empty value decoded as absent")
	}
	r, err = Unmarshal(none)
	if err != nil {
		t.Fatal(err)
	}
	if r.Value != nil {
		t.Errorf("absent value decoded as %#v", r.Value)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	tests := [][]byte{
		{0xff, 0xff, 0xff},
		{},                       // missing required seq
		{0x12, 0x00},             // empty path element, no seq
		{0x08, 0x01, 0x12, 0x00}, // seq 1, empty path element
	}
	for _, b := range tests {
		if _, err := Unmarshal(b); !errors.Is(errors.Corrupt, err) {
			t.Errorf("Unmarshal(%x): got %v; want corrupt", b, err)
		}
	}
}

func TestNegativeSeq(t *testing.T) {
	if _, err := Marshal(New(-1, path.Root, nil, backref.Table{})); !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v; want invalid", err)
	}
}

func TestCorruptIndex(t *testing.T) {
	r := &Record{Seq: 3, Path: mustParse(t, "/a"), Index: []byte{0x80}}
	if _, err := r.Backrefs(); !errors.Is(errors.Corrupt, err) {
		t.Errorf("got %v; want corrupt", err)
	}
}

func TestString(t *testing.T) {
	r := New(5, mustParse(t, "/a/b"), []byte("xyz"), backref.New([][]int64{{3, 1}, {4}}))
	const want = "seq=5 path=/a/b value=3B index=[1 3]|[4]"
	if got := r.String(); got != want {
		t.Errorf("String() = %q; want %q", got, want)
	}
	r = New(0, mustParse(t, "/a"), nil, backref.Table{})
	const want0 = "seq=0 path=/a value=<none> index=<none>"
	if got := r.String(); got != want0 {
		t.Errorf("String() = %q; want %q", got, want0)
	}
}
