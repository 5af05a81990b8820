// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"net"
	"net/http"

	"golang.org/x/net/netutil"

	"appendtree.io/log"
	"appendtree.io/serverutil/web"
	"appendtree.io/shutdown"
	"appendtree.io/subcmd"
)

func (s *State) serve(args ...string) {
	const help = `
Serve answers read-only HTTP requests for the tree at the address set
by the -http_addr flag or the httpaddr configuration key. The tree's
metrics are served at /metrics.
`
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.Int("maxconns", 100, "maximum number of simultaneous `connections`")
	s.ParseFlags(fs, args, help, "serve [-maxconns=n]")
	if fs.NArg() != 0 {
		fs.Usage()
		return
	}

	ln, err := net.Listen("tcp", s.Config.HTTPAddr)
	if err != nil {
		s.Exit(err)
	}
	ln = netutil.LimitListener(ln, subcmd.IntFlag(fs, "maxconns"))

	srv := &http.Server{Handler: web.New(s.Tree, s.registry)}
	shutdown.Handle(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdown.GracePeriod/2)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error.Printf("appendtree: serve: shutting down: %v", err)
		}
	})
	log.Info.Printf("appendtree: serving %d records on %s", s.Tree.Feed().Len(), ln.Addr())
	if err := srv.Serve(ln); err != http.ErrServerClosed {
		s.Exit(err)
	}
	// Serve returns as soon as shutdown begins; wait for it to finish.
	select {}
}
