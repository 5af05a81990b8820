// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package disk implements a feed stored in a directory of append-only files.

Blocks are written to log files named <first>.<version>, where first is
the position of the first block in the file and version is the format
version, currently 1. When a file reaches MaxLogSize a new one is
started. Each block is written as one frame:

	uvarint  length of the stored payload
	byte     flags; bit 0 set means the payload is snappy-compressed
	payload
	[8]byte  first 8 bytes of the BLAKE2b-256 hash of everything above

The position table is rebuilt on Open by scanning every file. A frame
that is short or fails its checksum at the end of the last file is a
torn write; the file is truncated there so later appends stay aligned.
Damage anywhere else is reported as corruption.

Only one Feed may have a directory open at a time.
*/
package disk // import "appendtree.io/feed/disk"
