// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package appendtree holds the small set of types shared by the packages
// that implement a versioned directory index over an append-only log.
package appendtree // import "appendtree.io/appendtree"

// A PathName is just a string representing a path in the index, with
// elements separated by slashes. It is given a unique type so the API is clear.
// Example: /photos/2017/cat.jpg
type PathName string

// Separator separates path elements in a PathName.
// It may not appear inside an element.
const Separator = "/"

// Root is the PathName of the root directory.
const Root PathName = "/"
