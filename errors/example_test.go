// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errors_test

import (
	"fmt"

	"appendtree.io/appendtree"
	"appendtree.io/errors"
)

func ExampleError() {
	path := appendtree.PathName("/dir/file")

	// Single error.
	e1 := errors.E(errors.Op("Get"), path, errors.IO, "short read")
	fmt.Println("\nSimple error:")
	fmt.Println(e1)

	// Nested error.
	fmt.Println("\nNested error:")
	e2 := errors.E(errors.Op("Read"), path, errors.Other, e1)
	fmt.Println(e2)

	// Output:
	//
	// Simple error:
	// Get: /dir/file: I/O error: short read
	//
	// Nested error:
	// Read: /dir/file: I/O error:
	//	Get: short read
}

func ExampleMatch() {
	path := appendtree.PathName("/dir/file")
	err := errors.Str("short read")

	// Construct an error, one we pretend to have received from a test.
	got := errors.E(errors.Op("Get"), path, errors.IO, err)

	// Now construct a reference error, which might not have all
	// the fields of the error from the test.
	expect := errors.E(path, errors.IO, err)

	fmt.Println("Match:", errors.Match(expect, got))

	// Now one that's incorrect - wrong Kind.
	got = errors.E(errors.Op("Get"), path, errors.NotExist, err)

	fmt.Println("Mismatch:", errors.Match(expect, got))

	// Output:
	//
	// Match: true
	// Mismatch: false
}
