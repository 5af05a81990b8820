// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command appendtree creates, reads and serves append trees.
package main // import "appendtree.io/cmd/appendtree"

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"appendtree.io/config"
	"appendtree.io/errors"
	"appendtree.io/flags"
	"appendtree.io/log"
	"appendtree.io/shutdown"
	"appendtree.io/subcmd"
)

const intro = `
The appendtree command reads and writes an append tree: a directory
index kept in an append-only log. Every put appends one record; the
tree as of any earlier record can be read with the global -at flag.

There is a set of global flags such as -config to identify the
configuration file to use (default $HOME/appendtree/config) and -log
to set the logging level for debugging. These flags apply across
the subcommands.

Each subcommand has its own set of flags, which if used must appear
after the subcommand name. For example, to list /photos as it was
after record 10 with debugging enabled, run

	appendtree -log debug -at 10 ls /photos

For a list of available subcommands and global flags, run

	appendtree -help
`

var commands = map[string]func(*State, ...string){
	"count":   (*State).count,
	"get":     (*State).get,
	"history": (*State).history,
	"ls":      (*State).ls,
	"proof":   (*State).proof,
	"put":     (*State).put,
	"serve":   (*State).serve,
	"version": (*State).version,
}

// State is the state of the running subcommand.
type State struct {
	*subcmd.State
	registry *prometheus.Registry
}

func main() {
	flag.Usage = usage
	flags.Parse(nil) // enable all flags

	if len(flag.Args()) < 1 {
		fmt.Fprint(os.Stderr, intro, "\n")
		os.Exit(2)
	}

	state, args := setup(strings.ToLower(flag.Arg(0)), flag.Args()[1:])
	state.getCommand(state.Name)(state, args...)
	state.ExitNow()
}

// setup loads the configuration and opens the tree for the named command.
func setup(op string, args []string) (*State, []string) {
	s := &State{
		State:    subcmd.NewState(op),
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cfg := s.loadConfig()
	s.Init(shutdown.Context(), cfg, s.registry)
	return s, args
}

// loadConfig reads the file named by -config. A missing default file
// yields the default configuration. Values of flags set on the command
// line take precedence over the file.
func (s *State) loadConfig() *config.Config {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := config.FromFile(subcmd.Tilde(flags.Config))
	switch {
	case errors.Is(errors.NotExist, err) && !set["config"]:
		cfg = config.Default()
	case err != nil:
		s.Exit(err)
	}
	if !set["log"] {
		if err := log.SetLevel(cfg.LogLevel); err != nil {
			s.Exit(err)
		}
	}
	if set["http_addr"] {
		cfg.HTTPAddr = flags.HTTPAddr
	}
	return cfg
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage of appendtree:\n")
	fmt.Fprintf(os.Stderr, "\tappendtree [globalflags] <command> [flags] <path>\n")
	printCommands()
	fmt.Fprintf(os.Stderr, "Global flags:\n")
	flag.PrintDefaults()
	os.Exit(2)
}

// printCommands shows the available commands.
func printCommands() {
	fmt.Fprintf(os.Stderr, "Appendtree commands:\n")
	var cmdStrs []string
	for cmd := range commands {
		cmdStrs = append(cmdStrs, cmd)
	}
	sort.Strings(cmdStrs)
	for _, cmd := range cmdStrs {
		fmt.Fprintf(os.Stderr, "\t%s\n", cmd)
	}
}

// getCommand looks up the command named by op.
// If the command can't be found, it exits after listing the
// commands that do exist.
func (s *State) getCommand(op string) func(*State, ...string) {
	fn := commands[op]
	if fn != nil {
		return fn
	}
	fmt.Fprintf(os.Stderr, "appendtree: no such command %q\n", op)
	printCommands()
	s.ExitCode = 2
	s.ExitNow()
	return nil
}
