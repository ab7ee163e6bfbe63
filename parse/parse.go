// Package parse provides the byte-level building blocks for the RFC 5322
// grammars in this module.
//
// Each grammar rule is a function that takes the input and returns the
// remaining input, the parsed value and an error:
//
//	func(buf []byte) (rest []byte, v T, err error)
//
// On success, rest is always a suffix of buf. Rules do not copy input, values
// are either computed or reference buf. A failing rule makes no promise about
// rest, callers that want to try an alternative wrap the attempt in Optional,
// which returns the original input on failure. There is no other form of
// backtracking.
package parse

import (
	"errors"
)

// Kind distinguishes the two classes of parse errors.
type Kind int

const (
	// KindKnown is a syntactic or semantic violation, e.g. a value out of range.
	KindKnown Kind = iota

	// KindTag means an expected literal was absent at the current position.
	// Callers can treat it as "this alternative did not match".
	KindTag
)

// Error is returned by all grammar rules. Errors are comparable and can be
// matched with errors.Is.
type Error struct {
	Kind Kind
	Msg  string
}

func (e Error) Error() string {
	if e.Kind == KindTag {
		return "expected token: " + e.Msg
	}
	return e.Msg
}

// Known returns an error of kind KindKnown.
func Known(msg string) Error {
	return Error{KindKnown, msg}
}

// TagError returns an error of kind KindTag.
func TagError(msg string) Error {
	return Error{KindTag, msg}
}

// ErrDepth is returned when nesting (comments, multipart bodies) exceeds the
// configured maximum depth.
var ErrDepth = Known("maximum nesting depth exceeded")

// IsTag returns whether err is, or wraps, an error of kind KindTag.
func IsTag(err error) bool {
	var pe Error
	return errors.As(err, &pe) && pe.Kind == KindTag
}
