package parse

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func tcompare(t *testing.T, got, exp any) {
	t.Helper()
	if !reflect.DeepEqual(got, exp) {
		t.Fatalf("got %#v, expected %#v", got, exp)
	}
}

func TestTag(t *testing.T) {
	rest, err := Tag([]byte(",x"), []byte(","))
	tcompare(t, err, nil)
	tcompare(t, string(rest), "x")

	rest, err = Tag([]byte("x,"), []byte(","))
	if !IsTag(err) {
		t.Fatalf("got err %v, expected tag error", err)
	}
	tcompare(t, string(rest), "x,")

	_, err = Tag(nil, []byte(","))
	if !IsTag(err) {
		t.Fatalf("got err %v, expected tag error", err)
	}
}

func TestOptional(t *testing.T) {
	in := []byte("abc")
	rest, v, ok := Optional(in, TwoDigits)
	tcompare(t, ok, false)
	tcompare(t, v, 0)
	tcompare(t, string(rest), "abc")

	rest, v, ok = Optional([]byte("42abc"), TwoDigits)
	tcompare(t, ok, true)
	tcompare(t, v, 42)
	tcompare(t, string(rest), "abc")
}

func TestFWS(t *testing.T) {
	check := func(in, expRest string, expErr bool) {
		t.Helper()
		rest, ws, err := FWS([]byte(in))
		if (err != nil) != expErr {
			t.Fatalf("fws %q: got err %v, expected error %v", in, err, expErr)
		}
		if err != nil {
			tcompare(t, string(rest), in)
			return
		}
		tcompare(t, string(rest), expRest)
		tcompare(t, string(ws), in[:len(in)-len(expRest)])
	}

	check(" x", "x", false)
	check(" \t x", "x", false)
	check("\r\n x", "x", false)
	check("  \r\n\tx", "x", false)
	check(" \r\n \r\n x", "x", false) // Obsolete form.
	check("\n x", "x", false)
	check(" \r\nx", "\r\nx", false) // Line ending must be followed by whitespace.
	check(" \r\n", "\r\n", false)
	check("x", "", true)
	check("\r\nx", "", true)
	check("", "", true)
}

func TestCFWS(t *testing.T) {
	check := func(in, expRest string, expErr error) {
		t.Helper()
		rest, _, err := CFWS([]byte(in))
		if expErr != nil {
			if !errors.Is(err, expErr) {
				t.Fatalf("cfws %q: got err %v, expected %v", in, err, expErr)
			}
			return
		}
		if err != nil {
			t.Fatalf("cfws %q: %v", in, err)
		}
		tcompare(t, string(rest), expRest)
	}

	check(" x", "x", nil)
	check("(comment)x", "x", nil)
	check(" (comment) x", "x", nil)
	check(" (a (nested \\) comment)) (another)\r\n x", "x", nil)
	check("(utf-8 ☺)x", "x", nil)
	check(" (unterminated", "", errComment)
	check("(bad \\\x01)", "", errQuotedPair)
	check("x", "", errFWS)

	deep := strings.Repeat("(", MaxCommentDepth) + strings.Repeat(")", MaxCommentDepth)
	check(deep+"x", "x", nil)
	deeper := strings.Repeat("(", MaxCommentDepth+1) + strings.Repeat(")", MaxCommentDepth+1)
	check(deeper, "", ErrDepth)
	check(strings.Repeat("(", 1000000), "", ErrDepth)
}

func TestSkipCFWS(t *testing.T) {
	check := func(in, expRest string, expErr error) {
		t.Helper()
		rest, err := SkipCFWS([]byte(in))
		if expErr != nil {
			if !errors.Is(err, expErr) {
				t.Fatalf("got err %v, expected %v", err, expErr)
			}
			tcompare(t, string(rest), in)
			return
		}
		tcompare(t, err, nil)
		tcompare(t, string(rest), expRest)
	}

	check("", "", nil)
	check("x", "x", nil)
	check("\r\nx", "\r\nx", nil)
	check(" (c) x", "x", nil)
	check(" (unterminated", "", errComment)
	check(" "+strings.Repeat("(", MaxCommentDepth+8)+strings.Repeat(")", MaxCommentDepth+8), "", ErrDepth)
}

func TestDigits(t *testing.T) {
	rest, v, err := Digit([]byte("7x"))
	tcompare(t, err, nil)
	tcompare(t, v, 7)
	tcompare(t, string(rest), "x")

	_, _, err = Digit([]byte("x"))
	tcompare(t, err, error(errDigit))

	_, _, err = TwoDigits([]byte("1x"))
	tcompare(t, err, error(errDigit))
	_, _, err = TwoDigits([]byte("1"))
	tcompare(t, err, error(errDigit))

	rest, span, err := TakeWhile1([]byte("2023 "), IsDigit)
	tcompare(t, err, nil)
	tcompare(t, ASCII(span), "2023")
	tcompare(t, string(rest), " ")

	_, _, err = TakeWhile1([]byte(" 2023"), IsDigit)
	tcompare(t, err, error(errTakeWhile))
}

func TestErrorKinds(t *testing.T) {
	if IsTag(Known("x")) {
		t.Fatalf("known error is not a tag error")
	}
	if !errors.Is(ErrDepth, Known("maximum nesting depth exceeded")) {
		t.Fatalf("errors with same kind and message should match")
	}
	tcompare(t, TagError(",").Error(), "expected token: ,")
}

// Rules never panic and always return a suffix of their input.
func TestRulesSuffix(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		buf := []byte(rapid.StringMatching(`[ \t\r\n()\\a-z0-9]{0,40}`).Draw(t, "buf"))
		rules := []func([]byte) ([]byte, []byte, error){
			FWS,
			CFWS,
			func(b []byte) ([]byte, []byte, error) { return TakeWhile1(b, IsDigit) },
		}
		for _, rule := range rules {
			rest, _, err := rule(buf)
			if err == nil && !strings.HasSuffix(string(buf), string(rest)) {
				t.Fatalf("rest %q is not a suffix of %q", rest, buf)
			}
		}
	})
}
