package message

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	ErrBase64          = errors.New("invalid base64")
	ErrQuotedPrintable = errors.New("invalid quoted-printable")
)

// supportedEncoding returns whether the transfer encoding can be decoded.
func supportedEncoding(enc TransferEncoding) bool {
	switch enc {
	case "", Encoding7Bit, Encoding8Bit, EncodingBinary, EncodingQuotedPrintable, EncodingBase64:
		return true
	}
	return false
}

// decodeTransfer returns buf with the transfer encoding removed. For the
// identity encodings, buf itself is returned. The encoding must be supported.
func decodeTransfer(enc TransferEncoding, buf []byte) ([]byte, error) {
	switch enc {
	case EncodingBase64:
		return decodeBase64(buf)
	case EncodingQuotedPrintable:
		return decodeQuotedPrintable(buf)
	case "", Encoding7Bit, Encoding8Bit, EncodingBinary:
		return buf, nil
	}
	return nil, fmt.Errorf("unsupported transfer encoding %q", enc)
}

// decodeBase64 decodes the standard alphabet with padding. Whitespace,
// including line endings, is ignored. Any other byte outside the alphabet is an
// error.
//
// RFC 2045 6.8
func decodeBase64(buf []byte) ([]byte, error) {
	clean := make([]byte, 0, len(buf))
	for _, c := range buf {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		clean = append(clean, c)
	}
	dst := make([]byte, base64.StdEncoding.DecodedLen(len(clean)))
	n, err := base64.StdEncoding.Decode(dst, clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBase64, err)
	}
	return dst[:n], nil
}

// decodeQuotedPrintable decodes "=XX" escapes and removes soft line breaks and
// trailing whitespace on lines. An "=" that is not followed by two hexadecimal
// digits or a line ending is an error. Hex digits may be lower case, some
// software writes them that way.
//
// RFC 2045 6.7
func decodeQuotedPrintable(buf []byte) ([]byte, error) {
	dst := make([]byte, 0, len(buf))
	for lineno := 1; len(buf) > 0; lineno++ {
		line := buf
		var eol []byte
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			line = buf[:i]
			buf = buf[i+1:]
			eol = []byte("\n")
			if i > 0 && line[i-1] == '\r' {
				line = line[:i-1]
				eol = []byte("\r\n")
			}
		} else {
			buf = nil
		}
		line = bytes.TrimRight(line, " \t")

		soft := false
		for i := 0; i < len(line); i++ {
			c := line[i]
			if c != '=' {
				dst = append(dst, c)
				continue
			}
			if i == len(line)-1 {
				soft = true
				break
			}
			if i+2 >= len(line) {
				return nil, fmt.Errorf("%w: short escape on line %d", ErrQuotedPrintable, lineno)
			}
			h, okh := unhex(line[i+1])
			l, okl := unhex(line[i+2])
			if !okh || !okl {
				return nil, fmt.Errorf("%w: bad escape %q on line %d", ErrQuotedPrintable, line[i:i+3], lineno)
			}
			dst = append(dst, h<<4|l)
			i += 2
		}
		if !soft {
			dst = append(dst, eol...)
		}
	}
	return dst, nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
