package message

import (
	"bytes"
	"errors"
)

var (
	ErrMissingBoundary        = errors.New("missing/empty boundary content-type parameter")
	ErrNoBoundaryDelimiter    = errors.New("no boundary delimiter in multipart body")
	ErrMissingClosingBoundary = errors.New("eof without closing boundary")
	errFirstBoundCloses       = errors.New("first boundary cannot be finishing boundary")
)

// splitMultipart returns the body parts of a multipart body, in order. Each part
// references body. The preamble before the first delimiter and the epilogue
// after the closing delimiter are discarded. The line ending before a delimiter
// is part of the delimiter, not of the preceding body part.
//
// Lines can end in CRLF or bare LF.
//
// RFC 2046 5.1.1
func splitMultipart(body []byte, boundary string) ([][]byte, error) {
	bound := []byte("--" + boundary)

	var parts [][]byte
	start := -1 // Start of current part, after its delimiter line.
	prevEOL := 0
	for o := 0; o < len(body); {
		line := body[o:]
		next := len(body)
		eol := 0
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
			next = o + i + 1
			eol = 1
			if i > 0 && line[i-1] == '\r' {
				line = line[:i-1]
				eol = 2
			}
		}

		if match, finish := checkBound(line, bound); match {
			if start < 0 && finish {
				return nil, errFirstBoundCloses
			}
			if start >= 0 {
				end := o - prevEOL
				if end < start {
					end = start
				}
				parts = append(parts, body[start:end])
			}
			if finish {
				return parts, nil
			}
			start = next
		}
		prevEOL = eol
		o = next
	}
	if start < 0 {
		return nil, ErrNoBoundaryDelimiter
	}
	return nil, ErrMissingClosingBoundary
}

// checkBound returns whether line is a delimiter line for bound, and whether it
// is the closing delimiter. The line has no line ending. The boundary only needs
// to be a prefix of the line, RFC 2046 allows trailing whitespace. For
// compatibility, other trailing text is not accepted, some software uses the
// same boundary with text appended for nested parts.
func checkBound(line, bound []byte) (bool, bool) {
	if !bytes.HasPrefix(line, bound) {
		return false, false
	}
	line = line[len(bound):]
	if bytes.HasPrefix(line, []byte("--")) {
		return true, true
	}
	if len(line) == 0 {
		return true, false
	}
	switch line[0] {
	case ' ', '\t':
		return true, false
	}
	return false, false
}
