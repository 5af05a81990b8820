// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errors

import (
	goerrors "errors"
	"io"
	"testing"

	"appendtree.io/appendtree"
)

func TestSeparator(t *testing.T) {
	defer func(prev string) {
		Separator = prev
	}(Separator)
	Separator = ":: "

	path := appendtree.PathName("/dir/file")
	err := Str("read failed")

	// Single error.
	e1 := E(Op("Get"), path, IO, err)

	// Nested error.
	e2 := E(Op("Read"), path, Other, e1)

	want := "Read: /dir/file: I/O error:: Get: read failed"
	if e2.Error() != want {
		t.Errorf("expected %q; got %q", want, e2)
	}
}

func TestDoesNotChangePreviousError(t *testing.T) {
	err := E(Invalid)
	err2 := E(Op("I will NOT modify err"), err)

	expected := "I will NOT modify err: invalid operation"
	if err2.Error() != expected {
		t.Fatalf("Expected %q, got %q", expected, err2)
	}
	kind := err.(*Error).Kind
	if kind != Invalid {
		t.Fatalf("Expected kind %v, got %v", Invalid, kind)
	}
}

func TestNoArgs(t *testing.T) {
	defer func() {
		err := recover()
		if err == nil {
			t.Fatal("E() did not panic")
		}
	}()
	_ = E()
}

func TestStringArgIsMessage(t *testing.T) {
	err := E(Op("tree.Get"), NotExist, "no such record")
	want := "tree.Get: item does not exist: no such record"
	if err.Error() != want {
		t.Errorf("got %q; want %q", err, want)
	}
}

type matchTest struct {
	err1, err2 error
	matched    bool
}

const (
	path1 = appendtree.PathName("/x")
	path2 = appendtree.PathName("/y")
)

var matchTests = []matchTest{
	// Errors not of type *Error fail outright.
	{nil, nil, false},
	{io.EOF, io.EOF, false},
	{E(io.EOF), io.EOF, false},
	{io.EOF, E(io.EOF), false},
	// Success. We can drop fields from the first argument and still match.
	{E(io.EOF), E(io.EOF), true},
	{E(Op("Op"), Syntax, io.EOF, path1), E(Op("Op"), Syntax, io.EOF, path1), true},
	{E(Op("Op"), Syntax, io.EOF), E(Op("Op"), Syntax, io.EOF, path1), true},
	{E(Op("Op"), Syntax), E(Op("Op"), Syntax, io.EOF, path1), true},
	{E(Op("Op")), E(Op("Op"), Syntax, io.EOF, path1), true},
	// Failure.
	{E(io.EOF), E(io.ErrClosedPipe), false},
	{E(Op("Op1")), E(Op("Op2")), false},
	{E(Syntax), E(NotExist), false},
	{E(path1), E(path2), false},
	{E(Op("Op"), Syntax, io.EOF, path1), E(Op("Op"), Syntax, io.EOF, path2), false},
	{E(path1, Str("something")), E(path1), false}, // Test nil error on rhs.
}

func TestMatch(t *testing.T) {
	for _, test := range matchTests {
		matched := Match(test.err1, test.err2)
		if matched != test.matched {
			t.Errorf("Match(%q, %q)=%t; want %t", test.err1, test.err2, matched, test.matched)
		}
	}
}

type kindTest struct {
	err  error
	kind Kind
	want bool
}

var kindTests = []kindTest{
	// Non-Error errors.
	{nil, NotExist, false},
	{Str("not an *Error"), NotExist, false},

	// Basic comparisons.
	{E(NotExist), NotExist, true},
	{E(Corrupt), NotExist, false},
	{E("no kind"), NotExist, false},
	{E("no kind"), Other, false},

	// Nested *Error values.
	{E("Nesting", E(NotExist)), NotExist, true},
	{E("Nesting", E(Corrupt)), NotExist, false},
	{E("Nesting", E(Corrupt)), Corrupt, true},
	{E("Nesting", E("no kind")), NotExist, false},
}

func TestKind(t *testing.T) {
	for _, test := range kindTests {
		got := Is(test.kind, test.err)
		if got != test.want {
			t.Errorf("Is(%q, %q)=%t; want %t", test.kind, test.err, got, test.want)
		}
	}
}

func TestUnwrap(t *testing.T) {
	err := E(Op("feed.Get"), IO, io.ErrUnexpectedEOF)
	if !goerrors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("errors.Is(%q, io.ErrUnexpectedEOF) = false; want true", err)
	}
	var e *Error
	if !goerrors.As(E(Op("outer"), err), &e) {
		t.Fatal("errors.As failed to find *Error")
	}
}
