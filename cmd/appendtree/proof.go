// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"appendtree.io/flags"
)

func (s *State) proof(args ...string) {
	const help = `
Proof prints the sequence numbers of the records read to find the
path, in the order they were read.
`
	fs := flag.NewFlagSet("proof", flag.ExitOnError)
	s.ParseFlags(fs, args, help, "proof path")
	if fs.NArg() != 1 {
		fs.Usage()
		return
	}
	seqs, err := s.View(flags.At).Proof(context.Background(), s.PathName(fs.Arg(0)))
	if err != nil {
		s.Exit(err)
	}
	strs := make([]string, len(seqs))
	for i, seq := range seqs {
		strs[i] = strconv.FormatInt(seq, 10)
	}
	fmt.Fprintln(s.Stdout, strings.Join(strs, " "))
}
