// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package subcmd provides the state and helpers shared by the
// subcommands of the appendtree command.
package subcmd // import "appendtree.io/subcmd"

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"appendtree.io/config"
	"appendtree.io/feed"
	"appendtree.io/shutdown"
	"appendtree.io/tree"
)

// State describes the state of a subcommand.
// See the comments for Exitf to see how Interactive is used.
type State struct {
	Name        string         // Name of the subcommand we are running.
	Config      *config.Config // Config; may be nil.
	Tree        *tree.Tree     // Tree; nil until Init.
	Interactive bool           // Whether the command is line-by-line.
	Stdin       io.Reader      // Where to read standard input
	Stdout      io.Writer      // Where to write standard output.
	Stderr      io.Writer      // Where to write error output.
	ExitCode    int            // Exit with non-zero status for minor problems.
}

// NewState returns a new State for the named subcommand.
func NewState(name string) *State {
	s := &State{Name: name}
	s.DefaultIO()
	return s
}

// Init opens the feed described by cfg and the tree stored in it.
// Metrics of the tree are registered with reg if it is not nil.
// The feed is closed on shutdown.
func (s *State) Init(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) {
	f, err := config.OpenFeed(ctx, cfg)
	if err != nil {
		s.Exit(err)
	}
	shutdown.Handle(func() {
		if err := feed.Close(f); err != nil {
			fmt.Fprintf(s.Stderr, "appendtree: closing feed: %v\n", err)
		}
	})
	t, err := tree.New(ctx, f, reg)
	if err != nil {
		s.Exit(err)
	}
	s.Config = cfg
	s.Tree = t
}

func (s *State) SetIO(stdin io.Reader, stdout, stderr io.Writer) {
	s.Stdin = stdin
	s.Stdout = stdout
	s.Stderr = stderr
}

func (s *State) DefaultIO() {
	s.SetIO(os.Stdin, os.Stdout, os.Stderr)
}

// Exitf prints the error and exits the program.
// If we are interactive, it calls panic("exit"), which is intended to be recovered
// from by the calling interpreter.
// We don't use log (although the packages we call do) because the errors
// are for regular people.
func (s *State) Exitf(format string, args ...interface{}) {
	format = fmt.Sprintf("appendtree: %s: %s\n", s.Name, format)
	fmt.Fprintf(s.Stderr, format, args...)
	if s.Interactive {
		panic("exit")
	}
	s.ExitCode = 1
	s.ExitNow()
}

// Exit calls s.Exitf with the error.
func (s *State) Exit(err error) {
	s.Exitf("%s", err)
}

// ExitNow terminates the process with the current ExitCode.
func (s *State) ExitNow() {
	shutdown.Now(s.ExitCode)
}

// Failf logs the error and sets the exit code. It does not exit the program.
func (s *State) Failf(format string, args ...interface{}) {
	format = fmt.Sprintf("appendtree: %s: %s\n", s.Name, format)
	fmt.Fprintf(s.Stderr, format, args...)
	s.ExitCode = 1
}

// Fail calls s.Failf with the error.
func (s *State) Fail(err error) {
	s.Failf("%v", err)
}

// View returns the tree to read from: a checkout as of seq, or the live
// tree if seq is negative.
func (s *State) View(seq int64) *tree.Tree {
	if seq < 0 {
		return s.Tree
	}
	return s.Tree.Checkout(seq)
}
