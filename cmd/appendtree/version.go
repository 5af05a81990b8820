// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"

	"appendtree.io/version"
)

func (s *State) version(args ...string) {
	const help = `
Version prints the version of the appendtree command and the number of
records in the configured tree.
`
	fs := flag.NewFlagSet("version", flag.ExitOnError)
	s.ParseFlags(fs, args, help, "version")
	if fs.NArg() != 0 {
		fs.Usage()
		return
	}
	fmt.Fprint(s.Stdout, version.Version())
	fmt.Fprintf(s.Stdout, "Records:    %d\n", s.Tree.Feed().Len())
}
