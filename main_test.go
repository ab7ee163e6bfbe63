package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mjl-/mimeparse/datetime"
	"github.com/mjl-/mimeparse/message"
)

func tcompare(t *testing.T, got, exp string) {
	t.Helper()
	if got != exp {
		t.Fatalf("got:\n%s\nexpected:\n%s", got, exp)
	}
}

const testMsg = `Content-Type: multipart/mixed; boundary=b
Content-ID: <msg@example.org>

--b
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

caf=C3=A9
--b
Content-Type: image/png
Content-Disposition: attachment; filename=x.png

png
--b--
`

func TestDescribe(t *testing.T) {
	raw, err := message.ParsePart([]byte(strings.ReplaceAll(testMsg, "\n", "\r\n")))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	n, err := message.ResolveTree(nil, raw, message.Opts{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var b bytes.Buffer
	describeNode(&b, n)
	tcompare(t, b.String(), `multipart/mixed, 2 parts
	id <msg@example.org>
	text/plain, text, 5 bytes decoded
		charset="utf-8"
		encoding quoted-printable
	image/png, unknown, 3 bytes
		disposition attachment, filename "x.png"
`)

	b.Reset()
	describeEntity(&b, n.Raw, n.Entity, "", true)
	tcompare(t, b.String(), `multipart/mixed, 2 parts
	id <msg@example.org>
	part 0: text/plain, 9 bytes
	part 1: image/png, 3 bytes
`)
}

func TestDescribeDate(t *testing.T) {
	dt, err := datetime.Parse("Mon, 12 Apr 2023 10:25:03 -0130")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var b bytes.Buffer
	describeDate(&b, dt)
	tcompare(t, b.String(), `weekday: Monday
date: 12 April 2023
time: 10:25:03
zone: -0130
utc: 2023-04-12T11:55:03Z
`)
}

func TestReadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "msg.eml")
	if err := os.WriteFile(p, []byte("0123456789"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf, err := readFile(p, 10)
	if err != nil || string(buf) != "0123456789" {
		t.Fatalf("read file: %q, %v", buf, err)
	}
	_, err = readFile(p, 9)
	if !errors.Is(err, errTooLarge) {
		t.Fatalf("got err %v, expected %v", err, errTooLarge)
	}
}

func TestWriteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "mimeparse_test_total"}, []string{"result"})
	reg.MustRegister(c)
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "other_total"}))
	c.WithLabelValues("text").Add(2)

	var b bytes.Buffer
	if err := writeMetrics(&b, reg); err != nil {
		t.Fatalf("write metrics: %v", err)
	}
	tcompare(t, b.String(), "mimeparse_test_total{result=\"text\"} 2\n")
}
