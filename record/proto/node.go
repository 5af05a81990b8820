// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package proto

import (
	"github.com/golang/protobuf/proto"
)

// Node is one record of an append tree, stored as a single log block.
type Node struct {
	Seq                  *uint64  `protobuf:"varint,1,req,name=seq" json:"seq,omitempty"`
	Path                 []string `protobuf:"bytes,2,rep,name=path" json:"path,omitempty"`
	Value                []byte   `protobuf:"bytes,3,opt,name=value" json:"value,omitempty"`
	Index                []byte   `protobuf:"bytes,4,opt,name=index" json:"index,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func init() {
	proto.RegisterType((*Node)(nil), "appendtree.Node")
}

func (m *Node) Reset()         { *m = Node{} }
func (m *Node) String() string { return proto.CompactTextString(m) }
func (*Node) ProtoMessage()    {}

func (m *Node) GetSeq() uint64 {
	if m != nil && m.Seq != nil {
		return *m.Seq
	}
	return 0
}

func (m *Node) GetPath() []string {
	if m != nil {
		return m.Path
	}
	return nil
}

func (m *Node) GetValue() []byte {
	if m != nil {
		return m.Value
	}
	return nil
}

func (m *Node) GetIndex() []byte {
	if m != nil {
		return m.Index
	}
	return nil
}
