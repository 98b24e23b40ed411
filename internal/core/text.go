package core

// text.go provides streaming readers that turn raw file bytes into UTF-8
// text without loading the whole file:
//
//   - bomSkippingReader: Removes a leading UTF-8 BOM written by Windows tools
//   - utf8Sanitizer: Replaces invalid UTF-8 bytes with '?'
//   - countingReader: Tracks bytes read for metrics
//
// Use NewTextReader to apply the transforms in the correct order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewTextReader strips a leading BOM and then sanitizes invalid UTF-8.
// The BOM must go first: the sanitizer would otherwise pass it through as a
// valid rune.
func NewTextReader(r io.Reader) io.Reader {
	return newUTF8Sanitizer(newBOMSkippingReader(r))
}

type bomSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{br: bufio.NewReader(r)}
}

func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		// Short files fail Peek; they simply have no BOM and any real read
		// error resurfaces from Read below.
		if head, err := r.br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = r.br.Discard(len(utf8BOM))
		}
	}
	return r.br.Read(p)
}

// sanitizerBufSize is the read size of the UTF-8 sanitizer.
const sanitizerBufSize = 32 * 1024

// utf8Sanitizer keeps O(sanitizerBufSize) memory regardless of input size.
// A multi-byte sequence split across reads is carried to the next read.
type utf8Sanitizer struct {
	r     io.Reader
	buf   []byte
	carry []byte
	out   []byte
	err   error
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

func (s *utf8Sanitizer) fill() {
	if s.buf == nil {
		s.buf = make([]byte, sanitizerBufSize)
	}
	n, err := s.r.Read(s.buf)

	data := make([]byte, 0, len(s.carry)+n)
	data = append(data, s.carry...)
	data = append(data, s.buf[:n]...)

	s.out, s.carry = sanitizeUTF8(data, err != nil)
	s.err = err
}

// sanitizeUTF8 replaces each invalid byte with '?'. Unless atEOF, an
// incomplete trailing sequence is returned as carry instead of replaced.
func sanitizeUTF8(data []byte, atEOF bool) (out, carry []byte) {
	if utf8.Valid(data) {
		return data, nil
	}

	out = make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		b := data[i]
		if b < utf8.RuneSelf {
			out = append(out, b)
			i++
			continue
		}

		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && !utf8.FullRune(data[i:]) {
				return out, append([]byte(nil), data[i:]...)
			}
			out = append(out, '?')
			i++
			continue
		}

		out = append(out, data[i:i+size]...)
		i += size
	}
	return out, nil
}

// countingReader counts bytes pulled from the underlying reader.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
