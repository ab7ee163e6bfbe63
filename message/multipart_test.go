package message

import (
	"testing"
)

func TestSplitMultipart(t *testing.T) {
	check := func(body, boundary string, expParts []string, expErr error) {
		t.Helper()
		parts, err := splitMultipart([]byte(body), boundary)
		tfail(t, err, expErr)
		if err != nil {
			return
		}
		var l []string
		for _, p := range parts {
			l = append(l, string(p))
		}
		tcompare(t, l, expParts)
	}

	check("--X\r\na\r\n--X\r\nb\r\n--X--\r\n", "X", []string{"a", "b"}, nil)
	check("preamble\r\n--X\r\na\r\n--X--\r\nepilogue\r\n", "X", []string{"a"}, nil)
	check("--X\na\n--X\nb\n--X--", "X", []string{"a", "b"}, nil)

	// Line ending before a delimiter belongs to the delimiter, but only one.
	check("--X\r\na\r\n\r\n--X--\r\n", "X", []string{"a\r\n"}, nil)

	// Empty parts.
	check("--X\r\n--X\r\n--X--\r\n", "X", []string{"", ""}, nil)

	// Whitespace after delimiter.
	check("--X \t\r\na\r\n--X--  \r\n", "X", []string{"a"}, nil)

	// Not delimiters: text after the boundary, or not at start of line.
	check("--X\r\n--Xmore\r\n --X\r\n--X--\r\n", "X", []string{"--Xmore\r\n --X"}, nil)

	// Boundaries with spaces, as in quoted parameters.
	check("--simple boundary\r\n\r\nx\r\n--simple boundary--\r\n", "simple boundary", []string{"\r\nx"}, nil)

	check("", "X", nil, ErrNoBoundaryDelimiter)
	check("no delimiter\r\n", "X", nil, ErrNoBoundaryDelimiter)
	check("--X\r\na\r\n", "X", nil, ErrMissingClosingBoundary)
	check("--X--\r\n", "X", nil, errFirstBoundCloses)
}

func TestCheckBound(t *testing.T) {
	check := func(line string, expMatch, expFinish bool) {
		t.Helper()
		match, finish := checkBound([]byte(line), []byte("--b"))
		tcompare(t, match, expMatch)
		tcompare(t, finish, expFinish)
	}

	check("--b", true, false)
	check("--b--", true, true)
	check("--b-- trailing", true, true)
	check("--b ", true, false)
	check("--bb", false, false)
	check("--", false, false)
	check("b", false, false)
}
