// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package subcmd

import (
	"bytes"
	"flag"
	"strings"
	"testing"
)

func TestParseFlags(t *testing.T) {
	s := NewState("test")
	s.Interactive = true
	s.SetIO(nil, &bytes.Buffer{}, &bytes.Buffer{})
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.Int64("since", -1, "first seq")
	fs.Int("n", 10, "count")
	s.ParseFlags(fs, []string{"-since=3", "extra"}, "help text", "history [-since=seq]")
	if got := Int64Flag(fs, "since"); got != 3 {
		t.Errorf("since = %d; want 3", got)
	}
	if got := IntFlag(fs, "n"); got != 10 {
		t.Errorf("n = %d; want 10", got)
	}
	if fs.NArg() != 1 || fs.Arg(0) != "extra" {
		t.Errorf("args = %q; want [extra]", fs.Args())
	}
}

func TestParseFlagsHelp(t *testing.T) {
	s := NewState("test")
	s.Interactive = true
	s.SetIO(nil, &bytes.Buffer{}, &bytes.Buffer{})
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Int("maxconns", 100, "connection limit")
	defer func() {
		if r := recover(); r != "exit" {
			t.Errorf("recovered %v; want exit", r)
		}
		msg := s.Stderr.(*bytes.Buffer).String()
		for _, want := range []string{"Usage: appendtree serve", "help text", "-maxconns"} {
			if !strings.Contains(msg, want) {
				t.Errorf("usage output %q missing %q", msg, want)
			}
		}
	}()
	s.ParseFlags(fs, []string{"-help"}, "help text", "serve [-maxconns=n]")
	t.Error("ParseFlags with -help returned")
}
