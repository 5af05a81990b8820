// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package path provides tools for parsing and printing path names.
// A path name is a sequence of elements separated by slashes, such
// as /photos/2017/cat.jpg. The root directory is "/". Elements are
// opaque: "." and ".." carry no special meaning and are not cleaned.
package path // import "appendtree.io/path"

import (
	"strings"

	"appendtree.io/appendtree"
	"appendtree.io/errors"
)

// Parsed represents a successfully parsed path name.
// The zero value is the root.
type Parsed struct {
	elems []string // Never modified after construction.
}

// Root is the parsed form of the root directory.
var Root = Parsed{}

// Parse parses a path name given in string form and returns its parsed form.
// One leading and one trailing slash are stripped, and both "" and "/"
// denote the root. Empty elements, as in "/a//b", are an error.
func Parse(pathName appendtree.PathName) (Parsed, error) {
	const op errors.Op = "path.Parse"
	name := string(pathName)
	if name == "" || name == appendtree.Separator {
		return Root, nil
	}
	name = strings.TrimPrefix(name, appendtree.Separator)
	name = strings.TrimSuffix(name, appendtree.Separator)
	elems := strings.Split(name, appendtree.Separator)
	for _, elem := range elems {
		if elem == "" {
			return Root, errors.E(op, pathName, errors.Syntax, errors.Str("empty element in path"))
		}
	}
	return Parsed{elems: elems}, nil
}

// FromElems returns the parsed path for a pre-split sequence of elements.
// No element may be empty or contain a slash.
func FromElems(elems ...string) (Parsed, error) {
	const op errors.Op = "path.FromElems"
	if len(elems) == 0 {
		return Root, nil
	}
	for _, elem := range elems {
		if err := validElem(elem); err != nil {
			return Root, errors.E(op, joinElems(elems), err)
		}
	}
	cp := make([]string, len(elems))
	copy(cp, elems)
	return Parsed{elems: cp}, nil
}

func validElem(elem string) error {
	if elem == "" {
		return errors.E(errors.Syntax, errors.Str("empty element"))
	}
	if strings.Contains(elem, appendtree.Separator) {
		return errors.E(errors.Syntax, errors.Errorf("element %q contains a slash", elem))
	}
	return nil
}

func joinElems(elems []string) appendtree.PathName {
	return appendtree.PathName(appendtree.Separator + strings.Join(elems, appendtree.Separator))
}

// Path returns the string representation with type appendtree.PathName.
// The root is "/"; other paths start with a slash and have no trailing slash.
func (p Parsed) Path() appendtree.PathName {
	return joinElems(p.elems)
}

func (p Parsed) String() string {
	return string(p.Path())
}

// Elem returns the nth element of the path.
// It panics if n is out of range.
func (p Parsed) Elem(n int) string {
	return p.elems[n]
}

// NElem returns number of elements in the path.
func (p Parsed) NElem() int {
	return len(p.elems)
}

// Elems returns a copy of the elements of the path.
func (p Parsed) Elems() []string {
	cp := make([]string, len(p.elems))
	copy(cp, p.elems)
	return cp
}

// IsRoot reports whether a parsed name refers to the root.
func (p Parsed) IsRoot() bool {
	return len(p.elems) == 0
}

// First returns a parsed name with only the first n elements.
// If n is larger than the number of elements, p is returned unchanged.
func (p Parsed) First(n int) Parsed {
	if n >= len(p.elems) {
		return p
	}
	return Parsed{elems: p.elems[:n:n]}
}

// Drop returns a parsed name with the last n elements dropped.
func (p Parsed) Drop(n int) Parsed {
	if n >= len(p.elems) {
		return Root
	}
	return p.First(len(p.elems) - n)
}

// Equal reports whether the two parsed path names are equal.
func (p Parsed) Equal(q Parsed) bool {
	return p.Shared(q) == len(p.elems) && len(p.elems) == len(q.elems)
}

// Shared returns the number of leading elements p and q have in common.
func (p Parsed) Shared(q Parsed) int {
	n := 0
	for n < len(p.elems) && n < len(q.elems) && p.elems[n] == q.elems[n] {
		n++
	}
	return n
}

// HasPrefix reports whether the first elements of p are those of prefix.
// Every path has the root as a prefix, and every path is a prefix of itself.
func (p Parsed) HasPrefix(prefix Parsed) bool {
	return p.Shared(prefix) == len(prefix.elems)
}

// Join appends any number of elements onto p. Empty strings are ignored;
// an element containing a slash is an error.
func Join(p Parsed, elems ...string) (Parsed, error) {
	const op errors.Op = "path.Join"
	all := make([]string, 0, len(p.elems)+len(elems))
	all = append(all, p.elems...)
	for _, elem := range elems {
		if elem == "" {
			continue
		}
		if err := validElem(elem); err != nil {
			return Root, errors.E(op, p.Path(), err)
		}
		all = append(all, elem)
	}
	return Parsed{elems: all}, nil
}
