// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"appendtree.io/config"
	"appendtree.io/flags"
	"appendtree.io/log"
	"appendtree.io/subcmd"
)

func init() {
	log.SetLevel("disabled")
}

type runner struct {
	state  *State
	stdin  *bytes.Buffer
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newRunner(t *testing.T) *runner {
	t.Helper()
	r := &runner{
		stdin:  new(bytes.Buffer),
		stdout: new(bytes.Buffer),
		stderr: new(bytes.Buffer),
	}
	r.state = &State{
		State:    subcmd.NewState("test"),
		registry: prometheus.NewRegistry(),
	}
	r.state.Interactive = true
	r.state.SetIO(r.stdin, r.stdout, r.stderr)
	r.state.Init(context.Background(), &config.Config{Feed: config.InProcess, CacheSize: 10}, r.state.registry)
	return r
}

// run executes the command and returns its standard output. failed
// reports whether the command exited with an error.
func (r *runner) run(cmd string, args ...string) (out string, failed bool) {
	r.stdout.Reset()
	r.stderr.Reset()
	r.state.Name = cmd
	r.state.ExitCode = 0
	defer func() {
		if rec := recover(); rec != nil {
			if rec != "exit" {
				panic(rec)
			}
			out, failed = r.stdout.String(), true
		}
	}()
	commands[cmd](r.state, args...)
	return r.stdout.String(), r.state.ExitCode != 0
}

type cmdTest struct {
	name string
	at   int64
	cmd  string
	args []string
	out  string // Expected output; checked with strings.Contains if fail is set.
	fail bool
}

var cmdTests = []cmdTest{
	{"put a/b", -1, "put", []string{"/a/b", "one"}, "0\n", false},
	{"put a/c", -1, "put", []string{"a/c", "two"}, "1\n", false},
	{"put d", -1, "put", []string{"-novalue", "/d"}, "2\n", false},
	{"overwrite a/b", -1, "put", []string{"/a/b", "three"}, "3\n", false},
	{"get a/b", -1, "get", []string{"/a/b"}, "three", false},
	{"get a/b at 0", 0, "get", []string{"/a/b"}, "one", false},
	{"get long", -1, "get", []string{"-l", "/a/c"}, "seq=1 path=/a/c value=3B", false},
	{"get missing", -1, "get", []string{"/x"}, "", true},
	{"get dir", -1, "get", []string{"/a"}, "", true},
	{"ls root", -1, "ls", nil, "d\na\n", false},
	{"ls a", -1, "ls", []string{"/a"}, "c\nb\n", false},
	{"ls a at 1", 1, "ls", []string{"a"}, "b\nc\n", false},
	{"ls two", -1, "ls", []string{"/a", "/"}, "/a:\nc\nb\n/:\nd\na\n", false},
	{"count", -1, "count", []string{"/", "/a"}, "/: 2\n/a: 2\n", false},
	{"history", -1, "history", nil, "0 /a/b\n1 /a/c\n2 /d\n3 /a/b\n", false},
	{"history range", -1, "history", []string{"-since=0", "-until=2"}, "1 /a/c\n2 /d\n", false},
	{"history at", 1, "history", nil, "0 /a/b\n1 /a/c\n", false},
	{"put at", 1, "put", []string{"/e", "x"}, "", true},
	{"put conflict", -1, "put", []string{"-novalue", "/e", "x"}, "", true},
	{"put root", -1, "put", []string{"/", "x"}, "", true},
	{"bad name", -1, "get", []string{"/a//b"}, "", true},
	{"version", -1, "version", nil, "Records:    4\n", false},
}

func TestCommands(t *testing.T) {
	defer func() { flags.At = -1 }()
	r := newRunner(t)
	for _, test := range cmdTests {
		t.Run(test.name, func(t *testing.T) {
			flags.At = test.at
			out, failed := r.run(test.cmd, test.args...)
			if failed != test.fail {
				t.Fatalf("failed = %v; want %v; stderr %q", failed, test.fail, r.stderr)
			}
			if test.fail {
				if !strings.Contains(r.stderr.String(), "appendtree: "+test.cmd+":") {
					t.Errorf("stderr %q lacks command prefix", r.stderr)
				}
				return
			}
			switch test.cmd {
			case "get":
				if strings.HasPrefix(test.out, "seq=") {
					if !strings.HasPrefix(out, test.out) {
						t.Errorf("output %q; want prefix %q", out, test.out)
					}
					return
				}
			case "version":
				if !strings.HasSuffix(out, test.out) {
					t.Errorf("output %q; want suffix %q", out, test.out)
				}
				return
			}
			if out != test.out {
				t.Errorf("output %q; want %q", out, test.out)
			}
		})
	}
}

func TestPutStdin(t *testing.T) {
	r := newRunner(t)
	r.stdin.WriteString("from stdin")
	if out, failed := r.run("put", "/in"); failed || out != "0\n" {
		t.Fatalf("put: %q, failed %v, stderr %q", out, failed, r.stderr)
	}
	if out, _ := r.run("get", "/in"); out != "from stdin" {
		t.Errorf("get = %q; want %q", out, "from stdin")
	}
}

func TestProof(t *testing.T) {
	r := newRunner(t)
	r.run("put", "/a", "1")
	r.run("put", "/b", "2")
	want, err := r.state.Tree.Proof(context.Background(), "/a")
	if err != nil {
		t.Fatal(err)
	}
	strs := make([]string, len(want))
	for i, seq := range want {
		strs[i] = strconv.FormatInt(seq, 10)
	}
	out, failed := r.run("proof", "/a")
	if failed {
		t.Fatalf("proof failed: %q", r.stderr)
	}
	if got := strings.TrimSpace(out); got != strings.Join(strs, " ") {
		t.Errorf("proof = %q; want %q", got, strings.Join(strs, " "))
	}
}
