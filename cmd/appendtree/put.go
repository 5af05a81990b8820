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

func (s *State) put(args ...string) {
	const help = `
Put appends a record for the path to the tree and prints its sequence
number. The value is the second argument if present, otherwise the
contents of the -in file or standard input. With -novalue the record
carries no value at all, which is distinct from an empty value.
`
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	inFile := fs.String("in", "", "input file (default standard input)")
	noValue := fs.Bool("novalue", false, "write the path without a value")
	s.ParseFlags(fs, args, help, "put [-in=inputfile] [-novalue] path [value]")
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return
	}
	if flags.At >= 0 {
		s.Exitf("cannot put with -at")
	}
	name := s.PathName(fs.Arg(0))

	var value []byte
	switch {
	case *noValue:
		if fs.NArg() == 2 || *inFile != "" {
			s.Exitf("-novalue conflicts with a value")
		}
	case fs.NArg() == 2:
		value = []byte(fs.Arg(1))
	default:
		value = s.ReadAll(*inFile)
	}

	seq, err := s.Tree.Append(context.Background(), name, value)
	if err != nil {
		s.Exit(err)
	}
	fmt.Fprintln(s.Stdout, seq)
}
