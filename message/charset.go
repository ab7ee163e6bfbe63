package message

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

var ErrUTF8 = errors.New("invalid utf-8")

// Single-byte charsets of the ISO-8859 family that are decoded. Other charsets,
// even if known to x/text, result in an Unknown entity.
var iso8859 = map[encoding.Encoding]bool{
	charmap.ISO8859_1:  true,
	charmap.ISO8859_2:  true,
	charmap.ISO8859_3:  true,
	charmap.ISO8859_4:  true,
	charmap.ISO8859_5:  true,
	charmap.ISO8859_6:  true,
	charmap.ISO8859_6E: true,
	charmap.ISO8859_6I: true,
	charmap.ISO8859_7:  true,
	charmap.ISO8859_8:  true,
	charmap.ISO8859_8E: true,
	charmap.ISO8859_8I: true,
	charmap.ISO8859_9:  true,
	charmap.ISO8859_10: true,
	charmap.ISO8859_13: true,
	charmap.ISO8859_14: true,
	charmap.ISO8859_15: true,
	charmap.ISO8859_16: true,
}

// lookupCharset returns the decoder for a charset name. A nil encoding with ok
// true means the text is UTF-8, as for us-ascii. If ok is false, the charset is
// not supported.
func lookupCharset(name string) (enc encoding.Encoding, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "us-ascii", "ascii", "utf-8", "utf8":
		return nil, true
	}
	enc, _ = ianaindex.MIME.Encoding(name)
	if enc == nil {
		enc, _ = ianaindex.IANA.Encoding(name)
	}
	switch {
	case enc == nil:
		return nil, false
	case enc == unicode.UTF8:
		return nil, true
	case iso8859[enc]:
		return enc, true
	}
	// Aliases of us-ascii, like "ansi_x3.4-1968".
	if n, err := ianaindex.MIME.Name(enc); err == nil && n == "US-ASCII" {
		return nil, true
	}
	return nil, false
}

// decodeCharset returns buf as string. Without enc, buf must be valid UTF-8.
func decodeCharset(enc encoding.Encoding, buf []byte) (string, error) {
	if enc == nil {
		if !utf8.Valid(buf) {
			return "", ErrUTF8
		}
		return string(buf), nil
	}
	nbuf, err := enc.NewDecoder().Bytes(buf)
	if err != nil {
		return "", fmt.Errorf("decoding charset: %v", err)
	}
	return string(nbuf), nil
}
