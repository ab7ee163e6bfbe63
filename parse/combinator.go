package parse

import (
	"bytes"
)

// MaxCommentDepth is the maximum nesting of comments accepted by CFWS.
const MaxCommentDepth = 32

var (
	errFWS          = Known("expected folding whitespace")
	errComment      = Known("unterminated comment")
	errQuotedPair   = Known("invalid quoted-pair in comment")
	errDigit        = Known("expected digit")
	errTakeWhile    = Known("expected at least one matching character")
	errCommentStart = TagError("(")
)

// Tag consumes lit from the start of buf. If buf does not start with lit, an
// error of kind KindTag is returned.
func Tag(buf, lit []byte) ([]byte, error) {
	if !bytes.HasPrefix(buf, lit) {
		return buf, TagError(string(lit))
	}
	return buf[len(lit):], nil
}

// Optional applies rule to buf. If rule fails, the original buf, the zero value
// and false are returned and the error is discarded.
func Optional[T any](buf []byte, rule func([]byte) ([]byte, T, error)) ([]byte, T, bool) {
	rest, v, err := rule(buf)
	if err != nil {
		var zero T
		return buf, zero, false
	}
	return rest, v, true
}

func isWSP(c byte) bool {
	return c == ' ' || c == '\t'
}

// newline returns the length of the line ending at the start of buf, 0 if
// there is none. Bare LF is accepted as well as CRLF.
func newline(buf []byte) int {
	if bytes.HasPrefix(buf, []byte("\r\n")) {
		return 2
	}
	if len(buf) > 0 && buf[0] == '\n' {
		return 1
	}
	return 0
}

// FWS consumes folding whitespace and returns the consumed bytes. Both the
// current form ([*WSP CRLF] 1*WSP) and the obsolete form (1*WSP *(CRLF 1*WSP))
// are accepted. A line ending must always be followed by whitespace, and at
// least one whitespace character is required.
//
// RFC 5322 3.2.2 and 4.2
func FWS(buf []byte) ([]byte, []byte, error) {
	o := 0
	wsp := false
	for {
		for o < len(buf) && isWSP(buf[o]) {
			o++
			wsp = true
		}
		n := newline(buf[o:])
		if n == 0 || o+n >= len(buf) || !isWSP(buf[o+n]) {
			break
		}
		o += n
	}
	if !wsp {
		return buf, nil, errFWS
	}
	return buf[o:], buf[:o], nil
}

// CFWS consumes a run of folding whitespace and comments, returning the
// consumed bytes. At least folding whitespace or a single comment must be
// present.
//
// RFC 5322 3.2.2
func CFWS(buf []byte) ([]byte, []byte, error) {
	rest := buf
	var found bool
	for {
		if r, _, ok := Optional(rest, FWS); ok {
			rest = r
			found = true
		}
		r, err := comment(rest, 1)
		if err != nil {
			if IsTag(err) {
				break
			}
			return buf, nil, err
		}
		rest = r
		found = true
	}
	if !found {
		return buf, nil, errFWS
	}
	return rest, buf[:len(buf)-len(rest)], nil
}

// SkipCFWS consumes optional folding whitespace and comments. Absent CFWS is not
// an error, but a malformed comment is, including ErrDepth for comments nested
// too deeply.
func SkipCFWS(buf []byte) ([]byte, error) {
	rest, _, err := CFWS(buf)
	if err == errFWS {
		return buf, nil
	}
	return rest, err
}

func isCtext(c byte) bool {
	// Non-ascii is allowed for utf-8, RFC 6532 3.2.
	return c >= 33 && c <= 39 || c >= 42 && c <= 91 || c >= 93 && c <= 126 || c >= 0x80
}

// comment parses a parenthesised comment, with nested comments up to
// MaxCommentDepth. An absent opening parenthesis returns a KindTag error.
//
// RFC 5322 3.2.2
func comment(buf []byte, depth int) ([]byte, error) {
	rest, err := Tag(buf, []byte("("))
	if err != nil {
		return buf, errCommentStart
	}
	if depth > MaxCommentDepth {
		return buf, ErrDepth
	}
	for {
		if r, _, ok := Optional(rest, FWS); ok {
			rest = r
		}
		if len(rest) == 0 {
			return buf, errComment
		}
		switch c := rest[0]; {
		case c == ')':
			return rest[1:], nil
		case c == '(':
			r, err := comment(rest, depth+1)
			if err != nil {
				return buf, err
			}
			rest = r
		case c == '\\':
			// quoted-pair, RFC 5322 3.2.1
			if len(rest) < 2 || !(rest[1] >= 0x21 && rest[1] <= 0x7e || isWSP(rest[1]) || rest[1] >= 0x80) {
				return buf, errQuotedPair
			}
			rest = rest[2:]
		case isCtext(c):
			rest = rest[1:]
		default:
			return buf, errComment
		}
	}
}

// IsDigit returns whether c is an ASCII digit.
func IsDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Digit parses a single ASCII digit.
func Digit(buf []byte) ([]byte, int, error) {
	if len(buf) == 0 || !IsDigit(buf[0]) {
		return buf, 0, errDigit
	}
	return buf[1:], int(buf[0] - '0'), nil
}

// TwoDigits parses exactly two ASCII digits.
func TwoDigits(buf []byte) ([]byte, int, error) {
	if len(buf) < 2 || !IsDigit(buf[0]) || !IsDigit(buf[1]) {
		return buf, 0, errDigit
	}
	return buf[2:], int(buf[0]-'0')*10 + int(buf[1]-'0'), nil
}

// TakeWhile1 consumes bytes for which fn returns true. At least one byte must
// match.
func TakeWhile1(buf []byte, fn func(byte) bool) ([]byte, []byte, error) {
	o := 0
	for o < len(buf) && fn(buf[o]) {
		o++
	}
	if o == 0 {
		return buf, nil, errTakeWhile
	}
	return buf[o:], buf[:o], nil
}

// ASCII returns buf as string. Only call on input already validated to be
// ASCII, e.g. with TakeWhile1 and IsDigit.
func ASCII(buf []byte) string {
	return string(buf)
}
