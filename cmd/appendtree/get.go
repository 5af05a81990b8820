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

func (s *State) get(args ...string) {
	const help = `
Get writes to standard output the value stored at the path.
With -l it prints the whole record instead.
`
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	long := fs.Bool("l", false, "print the record, not the value")
	s.ParseFlags(fs, args, help, "get [-l] path")
	if fs.NArg() != 1 {
		fs.Usage()
		return
	}

	r, err := s.View(flags.At).Get(context.Background(), s.PathName(fs.Arg(0)))
	if err != nil {
		s.Exit(err)
	}
	if *long {
		fmt.Fprintln(s.Stdout, r)
		return
	}
	if _, err := s.Stdout.Write(r.Value); err != nil {
		s.Exitf("writing output: %v", err)
	}
}
