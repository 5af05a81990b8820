// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flags defines command-line flags to make them consistent between binaries.
// Not all flags make sense for all binaries.
package flags // import "appendtree.io/flags"

import (
	"flag"
	"fmt"
	"strconv"

	"appendtree.io/log"
)

// We define the flags in two steps so clients don't have to write *flags.Flag.
// It also makes the documentation easier to read.

var (
	// At pins reads to the tree as of the given sequence number.
	// Negative means the live tree.
	At int64 = -1

	// Config names the appendtree configuration file to use.
	Config = defaultConfig

	// HTTPAddr is the network address on which to listen for incoming
	// HTTP connections.
	HTTPAddr = defaultHTTPAddr

	// Log sets the level of logging (implements flag.Value).
	Log logFlag
)

const defaultHTTPAddr = "localhost:8080"

// None is the set of no flags. It is rarely needed as most programs
// use either the Server or Client set.
var None = []string{}

// Server is the set of flags most useful in servers. It can be passed as the
// argument to Parse to set up the package for a server.
var Server = []string{"config", "http_addr", "log"}

// Client is the set of flags most useful in clients. It can be passed as the
// argument to Parse to set up the package for a client.
var Client = []string{"at", "config", "log"}

// flags is a map of flag registration functions keyed by flag name,
// used by Parse to register specific (or all) flags.
var flags = map[string]*flagVar{
	"at": {
		set: func(fs *flag.FlagSet) {
			fs.Var(atFlag{&At}, "at", "read the tree as of `seq` (negative for the live tree)")
		},
		arg: func() string { return strArg("at", strconv.FormatInt(At, 10), "-1") },
	},
	"config": strVar(&Config, "config", Config, "configuration `file` name"),
	"http_addr": strVar(&HTTPAddr, "http_addr", HTTPAddr,
		"`address` for incoming HTTP connections"),
	"log": {
		set: func(fs *flag.FlagSet) {
			fs.Var(&Log, "log", "`level` of logging: debug, info, error, disabled")
		},
		arg: func() string { return strArg("log", Log.String(), "info") },
	},
}

// Parse registers the command-line flags for the given default flags list, plus
// any extra flag names, and calls flag.Parse. Passing no flag names in either
// list registers all flags. Passing an unknown name triggers a panic.
// The Server and Client variables contain useful default sets.
//
// Examples:
//
//	flags.Parse(flags.Client) // Register all client flags.
//	flags.Parse(flags.Server, "at") // Register all server flags plus "at".
//	flags.Parse(nil) // Register all flags.
//	flags.Parse(flags.None, "http_addr") // Register only "http_addr".
func Parse(defaultList []string, extras ...string) {
	Register(flag.CommandLine, defaultList, extras...)
	flag.Parse()
}

// ParseArgsInto registers the flags on fs and parses args with it.
// It is used by commands that keep their own flag sets.
func ParseArgsInto(fs *flag.FlagSet, args []string, defaultList []string, extras ...string) error {
	Register(fs, defaultList, extras...)
	return fs.Parse(args)
}

// Register registers the named flags on fs without parsing.
func Register(fs *flag.FlagSet, defaultList []string, extras ...string) {
	if len(defaultList) == 0 && len(extras) == 0 {
		for _, f := range flags {
			f.set(fs)
		}
		return
	}
	for _, n := range append(defaultList, extras...) {
		f, ok := flags[n]
		if !ok {
			panic(fmt.Sprintf("unknown flag %q", n))
		}
		f.set(fs)
	}
}

// Args returns a slice of -flag=value strings that will recreate
// the state of the flags. Flags set to their default value are elided.
func Args() []string {
	var args []string
	for _, f := range flags {
		if arg := f.arg(); arg != "" {
			args = append(args, arg)
		}
	}
	return args
}

type flagVar struct {
	set func(fs *flag.FlagSet)
	arg func() string
}

func strVar(value *string, name, _default, usage string) *flagVar {
	return &flagVar{
		set: func(fs *flag.FlagSet) {
			fs.StringVar(value, name, _default, usage)
		},
		arg: func() string {
			return strArg(name, *value, _default)
		},
	}
}

func strArg(name, value, _default string) string {
	if value == _default {
		return ""
	}
	return fmt.Sprintf("-%s=%s", name, value)
}

type logFlag string

// String implements flag.Value.
func (f logFlag) String() string {
	if f == "" {
		return log.GetLevel()
	}
	return string(f)
}

// Set implements flag.Value.
func (f *logFlag) Set(level string) error {
	if err := log.SetLevel(level); err != nil {
		return err
	}
	*f = logFlag(level)
	return nil
}

// Get implements flag.Getter.
func (f logFlag) Get() interface{} {
	return f.String()
}

type atFlag struct {
	seq *int64
}

// String implements flag.Value.
func (f atFlag) String() string {
	if f.seq == nil {
		return "-1"
	}
	return strconv.FormatInt(*f.seq, 10)
}

// Set implements flag.Value.
func (f atFlag) Set(s string) error {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid sequence number %q", s)
	}
	*f.seq = v
	return nil
}
