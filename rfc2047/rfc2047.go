// Package rfc2047 decodes RFC 2047 encoded-words in header values and
// filenames. Decoding never fails: a word whose charset or payload cannot
// be handled is passed through verbatim instead of aborting the header.
package rfc2047

import (
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message/charset"
)

var (
	// strictDecoder converts each encoded word from its declared charset
	// to UTF-8.
	strictDecoder = mime.WordDecoder{CharsetReader: charset.Reader}

	// looseDecoder only undoes the transfer encoding and leaves the bytes
	// alone, so the result can be checked for valid UTF-8.
	looseDecoder = mime.WordDecoder{CharsetReader: func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}}
)

// Decode decodes all encoded-words in a header value and returns the
// concatenated text with surrounding whitespace trimmed. Each word is
// tried in order: declared charset, then raw transfer decoding when the
// result is valid UTF-8, then verbatim passthrough. Plain text between
// words is kept as-is.
func Decode(header string) string {
	start := strings.Index(header, "=?")
	if start == -1 {
		return strings.TrimSpace(header)
	}

	var buf strings.Builder
	buf.WriteString(header[:start])
	header = header[start:]

	// Whitespace separating two adjacent encoded words carries no
	// content and is dropped, matching mime.WordDecoder.DecodeHeader.
	betweenWords := false
	for {
		start := strings.Index(header, "=?")
		if start == -1 {
			break
		}
		end := wordEnd(header[start:])
		if end < 0 {
			buf.WriteString(header[:start+2])
			header = header[start+2:]
			betweenWords = false
			continue
		}

		sep := header[:start]
		word := header[start : start+end]
		if decoded, ok := decodeWord(word); ok {
			if !betweenWords || hasNonWhitespace(sep) {
				buf.WriteString(sep)
			}
			buf.WriteString(decoded)
			betweenWords = true
		} else {
			buf.WriteString(sep)
			buf.WriteString(word)
			betweenWords = false
		}
		header = header[start+end:]
	}
	buf.WriteString(header)

	return strings.TrimSpace(buf.String())
}

func decodeWord(word string) (string, bool) {
	if s, err := strictDecoder.Decode(word); err == nil {
		return s, true
	}
	if s, err := looseDecoder.Decode(word); err == nil && utf8.ValidString(s) {
		return s, true
	}
	return "", false
}

// wordEnd returns the length of the encoded word "=?charset?enc?payload?="
// at the start of s, or -1 if s does not begin a complete word. s must
// start with "=?".
func wordEnd(s string) int {
	cur := len("=?")

	i := strings.IndexByte(s[cur:], '?')
	if i < 0 {
		return -1
	}
	cur += i + 1

	// a one-byte encoding followed by '?'
	if cur+1 >= len(s) || s[cur+1] != '?' {
		return -1
	}
	cur += 2

	j := strings.Index(s[cur:], "?=")
	if j < 0 {
		return -1
	}
	return cur + j + len("?=")
}

func hasNonWhitespace(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return true
		}
	}
	return false
}
