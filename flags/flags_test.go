// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flags

import (
	"flag"
	"io/ioutil"
	"testing"

	"appendtree.io/log"
)

func TestParseArgsInto(t *testing.T) {
	defer func() {
		At = -1
		HTTPAddr = defaultHTTPAddr
		Log = ""
		log.SetLevel("info")
	}()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(ioutil.Discard)
	err := ParseArgsInto(fs, []string{"-at=7", "-http_addr=:9999", "-log=error", "ls", "/a"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if At != 7 {
		t.Errorf("At = %d; want 7", At)
	}
	if HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q; want :9999", HTTPAddr)
	}
	if got := log.GetLevel(); got != "error" {
		t.Errorf("log level = %q; want error", got)
	}
	if got := fs.Args(); len(got) != 2 || got[0] != "ls" {
		t.Errorf("Args = %q", got)
	}
	args := map[string]bool{}
	for _, a := range Args() {
		args[a] = true
	}
	for _, want := range []string{"-at=7", "-http_addr=:9999", "-log=error"} {
		if !args[want] {
			t.Errorf("Args() missing %q: %v", want, Args())
		}
	}
}

func TestBadFlags(t *testing.T) {
	defer func() { At = -1 }()
	for _, args := range [][]string{{"-at=x"}, {"-log=loud"}} {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.SetOutput(ioutil.Discard)
		if err := ParseArgsInto(fs, args, Client); err == nil {
			t.Errorf("%q: expected error", args)
		}
	}
}

func TestUnknownFlagPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Register of unknown flag did not panic")
		}
	}()
	Register(flag.NewFlagSet("test", flag.ContinueOnError), None, "context")
}
