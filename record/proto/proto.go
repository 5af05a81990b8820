// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package proto contains the protocol buffer definition of a stored
// append-tree record. Conversion to and from the record.Record type
// lives in package record.
//
// The Node message in node.go matches record.proto field for field; the
// protobuf runtime derives its descriptor from the struct tags, and
// proto_test.go checks the two agree.
package proto // import "appendtree.io/record/proto"

// To regenerate the protocol buffer output for this package, run
//	go generate
// The generated record.pb.go replaces node.go.

//go:generate protoc record.proto --go_out=paths=source_relative:.
//go:generate mv record.pb.go node.go
