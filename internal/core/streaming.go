package core

// streaming.go cleans upload bodies on the way into the CSV parser without
// buffering the whole file:
//
//   - a leading UTF-8 byte order mark is dropped
//   - invalid UTF-8 is replaced with U+FFFD
//   - reads past the size limit fail with ErrFileTooLarge

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var replacementChar = []byte("\uFFFD")

const sanitizeChunkSize = 32 * 1024

// WrapForStreaming applies BOM skipping and UTF-8 sanitisation to r.
func WrapForStreaming(r io.Reader) io.Reader {
	return NewUTF8Sanitizer(SkipBOM(r))
}

// SkipBOM returns a reader positioned after a leading byte order mark.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// UTF8Sanitizer replaces invalid UTF-8 with the replacement character.
// Multi-byte runes split across reads are carried to the next chunk.
type UTF8Sanitizer struct {
	r     io.Reader
	chunk []byte
	carry []byte
	out   []byte
	err   error
}

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{r: r, chunk: make([]byte, sanitizeChunkSize)}
}

func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		n, err := s.r.Read(s.chunk)
		data := append(s.carry, s.chunk[:n]...)
		s.carry = nil
		if err != nil {
			s.err = err
		} else if k := partialRuneSuffix(data); k > 0 {
			s.carry = append([]byte(nil), data[len(data)-k:]...)
			data = data[:len(data)-k]
		}
		s.out = bytes.ToValidUTF8(data, replacementChar)
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// partialRuneSuffix returns how many trailing bytes of data begin a rune
// that is not yet complete.
func partialRuneSuffix(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		if utf8.RuneStart(data[len(data)-i]) {
			if utf8.FullRune(data[len(data)-i:]) {
				return 0
			}
			return i
		}
	}
	return 0
}

// SizeLimitReader fails with ErrFileTooLarge once more than limit bytes
// have been read.
type SizeLimitReader struct {
	r         io.Reader
	remaining int64
}

// NewSizeLimitReader wraps r with a byte limit.
func NewSizeLimitReader(r io.Reader, limit int64) *SizeLimitReader {
	return &SizeLimitReader{r: r, remaining: limit}
}

func (l *SizeLimitReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		var extra [1]byte
		n, err := l.r.Read(extra[:])
		if n > 0 {
			return 0, ErrFileTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
