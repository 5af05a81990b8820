// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disk

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"golang.org/x/crypto/blake2b"

	"appendtree.io/errors"
	"appendtree.io/feed"
	"appendtree.io/log"
)

// MaxLogSize is the default maximum size of a single log file.
const MaxLogSize int64 = 100 * 1024 * 1024 // 100 MB

const (
	version = 1

	flagSnappy byte = 1 << 0

	checksumSize = 8

	// reasonableBlockSize bounds the payload length read from a frame header.
	reasonableBlockSize = 1 << 26 // 64MB
)

// Options configures a Feed.
type Options struct {
	// Compress enables snappy compression of stored blocks.
	// Readers decode either form regardless of this setting.
	Compress bool

	// MaxLogSize is the size at which a new log file is started.
	// Zero means the package default.
	MaxLogSize int64
}

// Feed is a feed.Feed stored on local disk.
type Feed struct {
	dir  string
	opts Options

	// mu protects everything below. Reads take it only to look up
	// a frame; the I/O itself happens outside it.
	mu     sync.Mutex
	opened bool
	closed bool

	// files are sorted in increasing first-block order.
	files []*logFile

	// frames[seq] locates block seq.
	frames []frame

	writer *os.File // Append-only descriptor for the last file.
}

var (
	_ feed.Feed   = (*Feed)(nil)
	_ feed.Closer = (*Feed)(nil)
)

// logFile gathers the information about a log file on disk.
type logFile struct {
	name    string // Full path name.
	version int    // Version number of the format used.
	first   int64  // Position of the first block in the file.
	size    int64  // Bytes of valid frames.

	reader *os.File // Opened on first read.
}

type frame struct {
	file   *logFile
	offset int64 // Within file.
	size   int64 // Whole frame, header and checksum included.
}

// New returns a Feed that will store its files in dir.
// Nothing is read or created until Open.
func New(dir string, opts Options) *Feed {
	if opts.MaxLogSize <= 0 {
		opts.MaxLogSize = MaxLogSize
	}
	return &Feed{dir: dir, opts: opts}
}

// Open implements feed.Feed. It creates the directory if needed and
// rebuilds the position table from the log files.
func (f *Feed) Open(ctx context.Context) error {
	const op errors.Op = "feed/disk.Open"
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.opened {
		return nil
	}
	if f.closed {
		return errors.E(op, errors.Invalid, errors.Str("feed is closed"))
	}

	// MkdirAll returns a nil error if the directory exists.
	if err := os.MkdirAll(f.dir, 0700); err != nil {
		return errors.E(op, errors.IO, err)
	}
	f.frames = nil
	if err := f.findLogFiles(); err != nil {
		return errors.E(op, err)
	}
	for i, file := range f.files {
		if err := ctx.Err(); err != nil {
			return errors.E(op, errors.IO, err)
		}
		if err := f.scan(file, i == len(f.files)-1); err != nil {
			return errors.E(op, err)
		}
	}

	var err error
	if len(f.files) == 0 {
		err = f.createLogFile(0)
	} else {
		last := f.files[len(f.files)-1]
		f.writer, err = os.OpenFile(last.name, os.O_APPEND|os.O_WRONLY, 0600)
	}
	if err != nil {
		return errors.E(op, errors.IO, err)
	}
	f.opened = true
	return nil
}

func (f *Feed) logFileName(first int64) string {
	return filepath.Join(f.dir, fmt.Sprintf("%d.%d", first, version))
}

// findLogFiles populates f.files with the log files in the directory.
// f.mu must be held.
func (f *Feed) findLogFiles() error {
	f.files = nil
	names, err := filepath.Glob(filepath.Join(f.dir, "*.*"))
	if err != nil {
		return errors.E(errors.IO, err)
	}
	for _, name := range names {
		// Format of name is <dir>/ffff.vvvv where f=first block, v=version.
		elems := strings.Split(filepath.Base(name), ".")
		if len(elems) != 2 {
			log.Error.Printf("feed/disk.findLogFiles: can't parse %q", name)
			continue
		}
		first, err1 := strconv.ParseInt(elems[0], 10, 64)
		vers, err2 := strconv.Atoi(elems[1])
		if err1 != nil || err2 != nil || first < 0 {
			log.Error.Printf("feed/disk.findLogFiles: can't parse %q", name)
			continue
		}
		if vers != version {
			return errors.E(errors.Invalid, errors.Errorf("log file %q has unsupported version %d", name, vers))
		}
		f.files = append(f.files, &logFile{
			name:    name,
			version: vers,
			first:   first,
		})
	}
	sort.Slice(f.files, func(i, j int) bool { return f.files[i].first < f.files[j].first })
	return nil
}

// scan reads every frame of file, appending to f.frames. If last is set,
// a damaged tail is truncated rather than reported.
// f.mu must be held.
func (f *Feed) scan(file *logFile, last bool) error {
	if file.first != int64(len(f.frames)) {
		return errors.E(errors.Corrupt, errors.Errorf("log file %q starts at block %d; expected %d", file.name, file.first, len(f.frames)))
	}
	fd, err := os.Open(file.name)
	if err != nil {
		return errors.E(errors.IO, err)
	}
	defer fd.Close()
	info, err := fd.Stat()
	if err != nil {
		return errors.E(errors.IO, err)
	}

	r := &countingReader{r: bufio.NewReader(fd)}
	for r.n < info.Size() {
		start := r.n
		if _, _, err := readFrame(r); err != nil {
			if !errors.Is(errors.Corrupt, err) {
				return err
			}
			if !last {
				return errors.E(errors.Corrupt, errors.Errorf("log file %q at offset %d: %v", file.name, start, err))
			}
			log.Error.Printf("feed/disk: truncating %q at offset %d of %d: %v", file.name, start, info.Size(), err)
			if err := os.Truncate(file.name, start); err != nil {
				return errors.E(errors.IO, err)
			}
			break
		}
		f.frames = append(f.frames, frame{file: file, offset: start, size: r.n - start})
		file.size = r.n
	}
	return nil
}

// createLogFile starts a new log file whose first block is first.
// f.mu must be held.
func (f *Feed) createLogFile(first int64) error {
	name := f.logFileName(first)
	fd, err := os.OpenFile(name, os.O_APPEND|os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	f.files = append(f.files, &logFile{
		name:    name,
		version: version,
		first:   first,
	})
	f.writer = fd
	return nil
}

// Len implements feed.Feed.
func (f *Feed) Len() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.frames))
}

// Has implements feed.Feed. Every read from a disk feed does I/O.
func (f *Feed) Has(seq int64) bool {
	return false
}

// Append implements feed.Feed.
func (f *Feed) Append(ctx context.Context, block []byte) (int64, error) {
	const op errors.Op = "feed/disk.Append"
	if err := ctx.Err(); err != nil {
		return 0, errors.E(op, errors.IO, err)
	}
	buf, err := marshalFrame(block, f.opts.Compress)
	if err != nil {
		return 0, errors.E(op, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.opened || f.closed {
		return 0, errors.E(op, errors.Invalid, errors.Str("feed not open"))
	}

	seq := int64(len(f.frames))
	file := f.files[len(f.files)-1]

	// Is it time to move to a new log file?
	if file.size >= f.opts.MaxLogSize {
		if err := f.writer.Close(); err != nil {
			return 0, errors.E(op, errors.IO, err)
		}
		f.writer = nil
		if err := f.createLogFile(seq); err != nil {
			return 0, errors.E(op, errors.IO, err)
		}
		file = f.files[len(f.files)-1]
	}

	// File is append-only, so this is guaranteed to write to the tail.
	n, err := f.writer.Write(buf)
	if err == nil {
		err = f.writer.Sync()
	}
	if err != nil {
		// Drop any partial frame so the next append starts aligned.
		if terr := f.writer.Truncate(file.size); terr != nil {
			log.Error.Printf("feed/disk.Append: truncating %q after failed write: %v", file.name, terr)
		}
		return 0, errors.E(op, errors.IO, err)
	}
	// Sanity check: the write landed where we expected.
	newSize := file.size + int64(n)
	if got := size(f.writer); got != newSize {
		return 0, errors.E(op, errors.IO, errors.Errorf("file.Sync did not update offset: expected %d, got %d", newSize, got))
	}
	f.frames = append(f.frames, frame{file: file, offset: file.size, size: int64(n)})
	file.size = newSize
	return seq, nil
}

// Get implements feed.Feed.
func (f *Feed) Get(ctx context.Context, seq int64) ([]byte, error) {
	const op errors.Op = "feed/disk.Get"
	if err := ctx.Err(); err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	fr, fd, err := f.locate(seq)
	if err != nil {
		return nil, errors.E(op, err)
	}
	buf := make([]byte, fr.size)
	if _, err := fd.ReadAt(buf, fr.offset); err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	block, n, err := readFrame(&countingReader{r: bufio.NewReader(bytes.NewReader(buf))})
	if err != nil {
		return nil, errors.E(op, err)
	}
	if n != fr.size {
		return nil, errors.E(op, errors.Corrupt, errors.Errorf("block %d: frame is %d bytes; expected %d", seq, n, fr.size))
	}
	return block, nil
}

// locate returns the frame for seq and a descriptor to read it from.
func (f *Feed) locate(seq int64) (frame, *os.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.opened || f.closed {
		return frame{}, nil, errors.E(errors.Invalid, errors.Str("feed not open"))
	}
	if seq < 0 || seq >= int64(len(f.frames)) {
		return frame{}, nil, errors.E(errors.NotExist, errors.Errorf("seq %d of %d", seq, len(f.frames)))
	}
	fr := f.frames[seq]
	if fr.file.reader == nil {
		fd, err := os.Open(fr.file.name)
		if err != nil {
			return frame{}, nil, errors.E(errors.IO, err)
		}
		fr.file.reader = fd
	}
	return fr, fr.file.reader, nil
}

// Close implements feed.Closer.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	var firstErr error
	if f.writer != nil {
		firstErr = f.writer.Close()
		f.writer = nil
	}
	for _, file := range f.files {
		if file.reader == nil {
			continue
		}
		if err := file.reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		file.reader = nil
	}
	if firstErr != nil {
		return errors.E(errors.Op("feed/disk.Close"), errors.IO, firstErr)
	}
	return nil
}

// Files returns the names of the log files, oldest first.
func (f *Feed) Files() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.files))
	for i, file := range f.files {
		names[i] = file.name
	}
	return names
}

func size(fd *os.File) int64 {
	info, err := fd.Stat()
	if err != nil {
		return -1
	}
	return info.Size()
}

func marshalFrame(block []byte, compress bool) ([]byte, error) {
	var flags byte
	payload := block
	if compress {
		payload = snappy.Encode(nil, block)
		flags |= flagSnappy
	}
	if len(payload) > reasonableBlockSize {
		return nil, errors.E(errors.Invalid, errors.Errorf("block size too large: %d", len(payload)))
	}
	b := make([]byte, 0, binary.MaxVarintLen64+1+len(payload)+checksumSize)
	b = binary.AppendUvarint(b, uint64(len(payload)))
	b = append(b, flags)
	b = append(b, payload...)
	sum := checksum(b)
	return append(b, sum[:]...), nil
}

func checksum(buf []byte) [checksumSize]byte {
	var c [checksumSize]byte
	h := blake2b.Sum256(buf)
	copy(c[:], h[:])
	return c
}

// readFrame reads one frame from r and returns the decoded block and the
// frame's length. A short or damaged frame is reported as Corrupt.
func readFrame(r *countingReader) ([]byte, int64, error) {
	start := r.n
	length, err := binary.ReadUvarint(r)
	if err != nil {
		// Overflow and truncation both mean a damaged header.
		return nil, 0, errors.E(errors.Corrupt, err)
	}
	if length > reasonableBlockSize {
		return nil, 0, errors.E(errors.Corrupt, errors.Errorf("block size too large: %d", length))
	}
	flags, err := r.ReadByte()
	if err != nil {
		return nil, 0, frameErr(err)
	}
	if flags&^flagSnappy != 0 {
		return nil, 0, errors.E(errors.Corrupt, errors.Errorf("unknown frame flags %#x", flags))
	}
	header := binary.AppendUvarint(nil, length)
	header = append(header, flags)
	body := make([]byte, len(header)+int(length)+checksumSize)
	copy(body, header)
	if _, err := io.ReadFull(r, body[len(header):]); err != nil {
		return nil, 0, frameErr(err)
	}
	data := body[:len(body)-checksumSize]
	if sum := checksum(data); string(sum[:]) != string(body[len(data):]) {
		return nil, 0, errors.E(errors.Corrupt, errors.Errorf("invalid checksum: got %x, expected %x", body[len(data):], sum))
	}
	payload := data[len(header):]
	if flags&flagSnappy != 0 {
		payload, err = snappy.Decode(nil, payload)
		if err != nil {
			return nil, 0, errors.E(errors.Corrupt, err)
		}
	}
	return payload, r.n - start, nil
}

func frameErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.E(errors.Corrupt, errors.Str("short frame"))
	}
	return errors.E(errors.IO, err)
}

// countingReader tracks the number of bytes consumed.
type countingReader struct {
	r *bufio.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}
