// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// I/O helpers.

package subcmd

import (
	"io/ioutil"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"appendtree.io/appendtree"
	"appendtree.io/path"
)

var (
	userLookup  = user.Lookup
	userCurrent = user.Current
)

func homeDir(who string) string {
	var u *user.User
	var err error
	if who == "" {
		u, err = userCurrent()
	} else {
		u, err = userLookup(who)
	}
	if err != nil {
		return "~" + who // What else can we do?
	}
	return u.HomeDir
}

// Tilde processes a leading tilde, if any, in the local file name.
// If the file name does not begin with a tilde, Tilde returns the argument unchanged.
// This special processing (only) is applied to all local file names passed to
// functions in this package.
// If the target user does not exist, it returns the original string.
func Tilde(file string) string {
	if file == "" || file[0] != '~' {
		return file
	}
	if file == "~" {
		return homeDir("")
	}
	slash := strings.IndexByte(file, '/')
	if slash < 0 {
		return homeDir(file[1:])
	}
	return filepath.Join(homeDir(file[1:slash]), file[slash+1:])
}

// PathName returns the canonical form of the tree path name arg,
// exiting if it is malformed. A name without a leading slash is taken
// relative to the root.
func (s *State) PathName(arg string) appendtree.PathName {
	p, err := path.Parse(appendtree.PathName(arg))
	if err != nil {
		s.Exit(err)
	}
	return p.Path()
}

// ReadAll reads all contents from a local input file or from stdin if
// the input file name is empty
func (s *State) ReadAll(fileName string) []byte {
	if fileName == "" {
		data, err := ioutil.ReadAll(s.Stdin)
		if err != nil {
			s.Exit(err)
		}
		return data
	}
	input := s.OpenLocal(fileName)
	defer input.Close()
	data, err := ioutil.ReadAll(input)
	if err != nil {
		s.Exit(err)
	}
	return data
}

// OpenLocal opens a file on local disk.
func (s *State) OpenLocal(path string) *os.File {
	f, err := os.Open(Tilde(path))
	if err != nil {
		s.Exit(err)
	}
	return f
}
