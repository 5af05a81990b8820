// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disk

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"appendtree.io/errors"
	"appendtree.io/log"
)

func init() {
	// Truncation of torn tails is logged at error level.
	log.SetLevel("disabled")
}

func open(t testing.TB, dir string, opts Options) *Feed {
	t.Helper()
	f := New(dir, opts)
	if err := f.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	return f
}

func appendN(t testing.TB, f *Feed, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		seq, err := f.Append(ctx, block(i))
		if err != nil {
			t.Fatal(err)
		}
		if seq != int64(i) {
			t.Fatalf("Append returned seq %d; want %d", seq, i)
		}
	}
}

func block(i int) []byte {
	return bytes.Repeat([]byte(fmt.Sprintf("block %d;", i)), i%7+1)
}

func verify(t testing.TB, f *Feed, n int) {
	t.Helper()
	if got := f.Len(); got != int64(n) {
		t.Fatalf("Len = %d; want %d", got, n)
	}
	for i := 0; i < n; i++ {
		got, err := f.Get(context.Background(), int64(i))
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if !bytes.Equal(got, block(i)) {
			t.Fatalf("Get(%d) = %q; want %q", i, got, block(i))
		}
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	for _, compress := range []bool{false, true} {
		in := bytes.Repeat([]byte("abc"), 100)
		buf, err := marshalFrame(in, compress)
		if err != nil {
			t.Fatal(err)
		}
		out, n, err := readFrame(&countingReader{r: bufio.NewReader(bytes.NewReader(buf))})
		if err != nil {
			t.Fatal(err)
		}
		if n != int64(len(buf)) {
			t.Errorf("compress=%v: read %d bytes; want %d", compress, n, len(buf))
		}
		if !bytes.Equal(in, out) {
			t.Errorf("compress=%v: got %q; want %q", compress, out, in)
		}
		if compress && len(buf) >= len(in) {
			t.Errorf("compressed frame is %d bytes for %d of input", len(buf), len(in))
		}
	}
}

func TestEmptyBlock(t *testing.T) {
	f := open(t, t.TempDir(), Options{})
	defer f.Close()
	ctx := context.Background()
	if _, err := f.Append(ctx, []byte{}); err != nil {
		t.Fatal(err)
	}
	got, err := f.Get(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %q; want empty", got)
	}
}

func TestReopen(t *testing.T) {
	for _, compress := range []bool{false, true} {
		dir := t.TempDir()
		opts := Options{Compress: compress}
		f := open(t, dir, opts)
		appendN(t, f, 20)
		verify(t, f, 20)
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}

		// A reopened feed sees the same blocks and continues at the end.
		f = open(t, dir, opts)
		verify(t, f, 20)
		seq, err := f.Append(context.Background(), block(20))
		if err != nil {
			t.Fatal(err)
		}
		if seq != 20 {
			t.Errorf("Append after reopen returned %d; want 20", seq)
		}
		verify(t, f, 21)
		f.Close()
	}
}

func TestOpenTwice(t *testing.T) {
	f := open(t, t.TempDir(), Options{})
	defer f.Close()
	appendN(t, f, 3)
	if err := f.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	verify(t, f, 3)
}

func TestRoll(t *testing.T) {
	dir := t.TempDir()
	f := open(t, dir, Options{MaxLogSize: 100})
	appendN(t, f, 30)
	files := f.Files()
	if len(files) < 3 {
		t.Fatalf("got %d log files; want several", len(files))
	}
	if got, want := filepath.Base(files[0]), "0.1"; got != want {
		t.Errorf("first file is %q; want %q", got, want)
	}
	verify(t, f, 30)
	f.Close()

	f = open(t, dir, Options{MaxLogSize: 100})
	defer f.Close()
	verify(t, f, 30)
	if len(f.Files()) != len(files) {
		t.Errorf("reopen found %d files; want %d", len(f.Files()), len(files))
	}
}

func TestTornTail(t *testing.T) {
	dir := t.TempDir()
	f := open(t, dir, Options{})
	appendN(t, f, 5)
	name := f.Files()[0]
	f.Close()

	// Simulate a crash part way through writing a sixth frame.
	frame, err := marshalFrame(block(5), false)
	if err != nil {
		t.Fatal(err)
	}
	fd, err := os.OpenFile(name, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatal(err)
	}
	fd.Write(frame[:len(frame)-3])
	fd.Close()

	f = open(t, dir, Options{})
	defer f.Close()
	verify(t, f, 5)
	appendN6 := func() {
		seq, err := f.Append(context.Background(), block(5))
		if err != nil {
			t.Fatal(err)
		}
		if seq != 5 {
			t.Fatalf("seq = %d; want 5", seq)
		}
	}
	appendN6()
	verify(t, f, 6)
}

func TestBadChecksum(t *testing.T) {
	dir := t.TempDir()
	f := open(t, dir, Options{MaxLogSize: 100})
	appendN(t, f, 30)
	first := f.Files()[0]
	f.Close()

	// Damage in a file that is not the last cannot be repaired.
	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(first, data, 0600); err != nil {
		t.Fatal(err)
	}
	f = New(dir, Options{MaxLogSize: 100})
	if err := f.Open(context.Background()); !errors.Is(errors.Corrupt, err) {
		t.Fatalf("Open: got %v; want corrupt", err)
	}
}

func TestUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "0.7"), nil, 0600); err != nil {
		t.Fatal(err)
	}
	f := New(dir, Options{})
	if err := f.Open(context.Background()); !errors.Is(errors.Invalid, err) {
		t.Fatalf("Open: got %v; want invalid", err)
	}
}

func TestGetErrors(t *testing.T) {
	f := New(t.TempDir(), Options{})
	ctx := context.Background()
	if _, err := f.Get(ctx, 0); !errors.Is(errors.Invalid, err) {
		t.Errorf("Get before Open: got %v; want invalid", err)
	}
	if err := f.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Get(ctx, 0); !errors.Is(errors.NotExist, err) {
		t.Errorf("Get(0) of empty feed: got %v; want not exist", err)
	}
	f.Close()
	if _, err := f.Append(ctx, []byte("x")); !errors.Is(errors.Invalid, err) {
		t.Errorf("Append after Close: got %v; want invalid", err)
	}
}

func BenchmarkGet(b *testing.B) {
	f := open(b, b.TempDir(), Options{})
	defer f.Close()
	appendN(b, f, 100)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := f.Get(ctx, int64(i%100)); err != nil {
			b.Fatal(err)
		}
	}
}
