// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"

	"appendtree.io/flags"
	"appendtree.io/subcmd"
)

func (s *State) history(args ...string) {
	const help = `
History prints the records appended after -since, up to and including
-until. By default it prints every record of the tree.
`
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	fs.Int64("since", -1, "print records after `seq`")
	fs.Int64("until", -1, "print records up to and including `seq`")
	verbose := fs.Bool("v", false, "print values and back-references")
	s.ParseFlags(fs, args, help, "history [-since=seq] [-until=seq] [-v]")
	if fs.NArg() != 0 {
		fs.Usage()
		return
	}

	ctx := context.Background()
	it := s.View(flags.At).History(subcmd.Int64Flag(fs, "since"), subcmd.Int64Flag(fs, "until"))
	for it.Next(ctx) {
		r := it.Record()
		if *verbose {
			fmt.Fprintln(s.Stdout, r)
			continue
		}
		fmt.Fprintf(s.Stdout, "%d %s\n", r.Seq, r.Path)
	}
	if err := it.Err(); err != nil {
		s.Exit(err)
	}
}
