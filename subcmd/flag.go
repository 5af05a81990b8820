// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package subcmd

import (
	"flag"
	"fmt"
)

// ParseFlags parses args against fs. Every subcommand also accepts -help,
// which prints the usage line followed by help and the flag defaults.
func (s *State) ParseFlags(fs *flag.FlagSet, args []string, help, usage string) {
	helpFlag := fs.Bool("help", false, "print more information about the command")
	fs.Usage = func() {
		fmt.Fprintf(s.Stderr, "Usage: appendtree %s\n", usage)
		if *helpFlag {
			fmt.Fprintln(s.Stderr, help)
		}
		fmt.Fprintf(s.Stderr, "Flags:\n")
		fs.PrintDefaults()
		if s.Interactive {
			panic("exit")
		}
	}
	if err := fs.Parse(args); err != nil {
		s.Exit(err)
	}
	if *helpFlag {
		fs.Usage()
		s.ExitCode = 2
		s.ExitNow()
	}
}

// IntFlag returns the value of the named int flag in fs.
func IntFlag(fs *flag.FlagSet, name string) int {
	return flagValue[int](fs, name)
}

// Int64Flag returns the value of the named int64 flag in fs.
func Int64Flag(fs *flag.FlagSet, name string) int64 {
	return flagValue[int64](fs, name)
}

func flagValue[T any](fs *flag.FlagSet, name string) T {
	return fs.Lookup(name).Value.(flag.Getter).Get().(T)
}
