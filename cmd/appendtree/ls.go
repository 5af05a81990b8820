// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"

	"appendtree.io/flags"
)

func (s *State) ls(args ...string) {
	const help = `
Ls lists the names of the children of each directory path, in the
order they were last written. If given no path arguments, it lists
the root.
`
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	s.ParseFlags(fs, args, help, "ls [path...]")

	names := fs.Args()
	if len(names) == 0 {
		names = []string{"/"}
	}
	t := s.View(flags.At)
	for _, arg := range names {
		name := s.PathName(arg)
		children, err := t.List(context.Background(), name)
		if err != nil {
			s.Fail(err)
			continue
		}
		if len(names) > 1 {
			fmt.Fprintf(s.Stdout, "%s:\n", name)
		}
		for _, c := range children {
			fmt.Fprintln(s.Stdout, c)
		}
	}
}

func (s *State) count(args ...string) {
	const help = `
Count prints the number of children of each directory path.
`
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	s.ParseFlags(fs, args, help, "count path...")
	if fs.NArg() == 0 {
		fs.Usage()
		return
	}
	t := s.View(flags.At)
	for _, arg := range fs.Args() {
		name := s.PathName(arg)
		n, err := t.Count(context.Background(), name)
		if err != nil {
			s.Fail(err)
			continue
		}
		fmt.Fprintf(s.Stdout, "%s: %d\n", name, n)
	}
}
