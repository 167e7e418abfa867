// Package icy reads Icecast/Shoutcast in-band metadata.
//
// A server that honours the "Icy-MetaData: 1" request header interleaves
// a metadata block after every icy-metaint bytes of audio. The block starts
// with a length byte (in units of 16 bytes) followed by key='value'; pairs.
package icy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const (
	// RequestHeader asks the server to interleave metadata.
	RequestHeader = "Icy-MetaData"
	// IntervalHeader carries the audio byte count between metadata blocks.
	IntervalHeader = "icy-metaint"

	// KeyStreamTitle is the metadata key holding "Artist - Title".
	KeyStreamTitle = "StreamTitle"
)

// ErrMalformed is returned when a metadata block cannot be read.
var ErrMalformed = errors.New("icy: malformed metadata block")

// Metadata is one parsed metadata block.
type Metadata map[string]string

// StreamTitle returns the StreamTitle value, if present and non-empty.
func (m Metadata) StreamTitle() (string, bool) {
	t, ok := m[KeyStreamTitle]
	if !ok || strings.TrimSpace(t) == "" {
		return "", false
	}
	return t, true
}

// Interval returns the metadata interval announced in h, or 0 if the server
// does not interleave metadata.
func Interval(h http.Header) int {
	v := strings.TrimSpace(h.Get(IntervalHeader))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Reader strips metadata blocks from an ICY stream and hands them to a
// callback, yielding only audio bytes.
type Reader struct {
	r         *bufio.Reader
	interval  int
	remaining int
	onMeta    func(Metadata)
}

// NewReader wraps r. interval is the icy-metaint value; 0 disables
// metadata handling. onMeta is called for every non-empty block from the
// goroutine calling Read.
func NewReader(r io.Reader, interval int, onMeta func(Metadata)) *Reader {
	return &Reader{
		r:         bufio.NewReader(r),
		interval:  interval,
		remaining: interval,
		onMeta:    onMeta,
	}
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.interval <= 0 {
		return r.r.Read(p)
	}
	if r.remaining == 0 {
		if err := r.readBlock(); err != nil {
			return 0, err
		}
		r.remaining = r.interval
	}
	if len(p) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.r.Read(p)
	r.remaining -= n
	return n, err
}

func (r *Reader) readBlock() error {
	lenByte, err := r.r.ReadByte()
	if err != nil {
		return err
	}
	size := int(lenByte) * 16
	if size == 0 {
		return nil
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: truncated block of %d bytes", ErrMalformed, size)
		}
		return err
	}

	meta := Parse(string(buf))
	if len(meta) > 0 && r.onMeta != nil {
		r.onMeta(meta)
	}
	return nil
}

// Parse decodes a metadata block such as
// "StreamTitle='Artist - Title';StreamUrl='';". Trailing NUL padding is
// ignored. Values may contain quotes and semicolons as long as they are not
// followed by "';".
func Parse(block string) Metadata {
	block = strings.TrimRight(block, "\x00")
	meta := Metadata{}
	for block != "" {
		eq := strings.Index(block, "='")
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(strings.TrimLeft(block[:eq], ";"))
		rest := block[eq+2:]

		end := strings.Index(rest, "';")
		var value string
		if end < 0 {
			value = strings.TrimSuffix(rest, "'")
			block = ""
		} else {
			value = rest[:end]
			block = rest[end+2:]
		}
		if key != "" {
			meta[key] = value
		}
	}
	return meta
}
