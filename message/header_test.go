package message

import (
	"strings"
	"testing"
	"time"

	"github.com/mjl-/mimeparse/datetime"
	"github.com/mjl-/mimeparse/parse"
)

func TestParsePart(t *testing.T) {
	raw, err := ParsePart([]byte(crlf(`Date: Mon, 7 Feb 1994 21:52:25 -0800 (PST)
Content-Type: TEXT/PLAIN; CHARSET=US-ASCII
Content-Transfer-Encoding: Base64
Content-Description: =?utf-8?q?caf=C3=A9?=
Content-ID: <part1@example.org>
Subject: afternoon
 meeting

aGkK
`)))
	tcheck(t, err, "parse")
	tcompare(t, raw.Type, TypeText)
	tcompare(t, raw.Subtype, "plain")
	tcompare(t, raw.Params, map[string]string{"charset": "US-ASCII"})
	tcompare(t, raw.Encoding, EncodingBase64)
	tcompare(t, *raw.Description, "café")
	tcompare(t, *raw.ID, ContentID{"part1", "example.org"})
	tcompare(t, raw.Headers, []Header{
		{"Date", "Mon, 7 Feb 1994 21:52:25 -0800 (PST)"},
		{"Subject", "afternoon meeting"},
	})
	tcompare(t, string(raw.Value), "aGkK\r\n")
	tcompare(t, raw.Depth(), 0)

	v, ok := raw.Param("Charset")
	tcompare(t, ok, true)
	tcompare(t, v, "US-ASCII")

	e, err := raw.Resolve()
	tcheck(t, err, "resolve")
	tcompare(t, e, Entity(&Text{"plain", "hi\n"}))
}

func TestParsePartDefaults(t *testing.T) {
	// Empty header.
	raw, err := ParsePart([]byte("\r\nx"))
	tcheck(t, err, "parse")
	tcompare(t, raw.Type, TypeText)
	tcompare(t, raw.Subtype, "plain")
	tcompare(t, raw.Params, map[string]string{"charset": "us-ascii"})
	tcompare(t, raw.Encoding, TransferEncoding(""))
	tcompare(t, string(raw.Value), "x")

	// Bare newlines.
	raw, err = ParsePart([]byte("Content-Type: image/png\n\nbody\n"))
	tcheck(t, err, "parse")
	tcompare(t, raw.Type, TypeImage)
	tcompare(t, string(raw.Value), "body\n")

	// Header without body.
	raw, err = ParsePart([]byte("Content-Type: application/octet-stream\r\n"))
	tcheck(t, err, "parse")
	tcompare(t, raw.Type, TypeApplication)
	tcompare(t, len(raw.Value), 0)

	raw, err = ParsePart([]byte("Content-Type: X-Custom/Thing\r\n\r\n"))
	tcheck(t, err, "parse")
	tcompare(t, raw.Type, MediaType("x-custom"))
	tcompare(t, raw.Type.IsOther(), true)
	tcompare(t, raw.Type.IsComposite(), false)
	tcompare(t, TypeMessage.IsComposite(), true)
	tcompare(t, TypeMultipart.IsOther(), false)
}

func TestParsePartErrors(t *testing.T) {
	check := func(s string, expErr error) {
		t.Helper()
		_, err := ParsePart([]byte(crlf(s)))
		tfail(t, err, expErr)
	}

	check(" leading space\n\n", ErrHeader)
	check("no colon\n\n", ErrHeader)
	check("Content-Type: text\n\n", ErrBadContentType)
	check("Content-Type: /plain\n\n", ErrBadContentType)
	check("Content-ID: part1@example.org\n\n", ErrContentID)
	check("Content-ID: <part1>\n\n", ErrContentID)
	check("Content-ID: <@example.org>\n\n", ErrContentID)
	check("Content-Disposition: attachment; creation-date=\"yesterday\"\n\n", ErrDisposition)
	check("Content-Disposition: ;;\n\n", ErrDisposition)
	deep := strings.Repeat("(", 40) + strings.Repeat(")", 40)
	check("Content-Disposition: attachment; creation-date=\"12 Apr 2023 10:25:03 +0000 "+deep+"\"\n\n", ErrDisposition)
	check("Content-Disposition: attachment; creation-date=\"12 Apr 2023 10:25:03 +0000 "+deep+"\"\n\n", parse.ErrDepth)
	check("Content-Type: text/plain\n\n", nil)
}

func TestDisposition(t *testing.T) {
	raw, err := ParsePart([]byte(crlf(`Content-Type: image/png
Content-Disposition: Attachment; filename="photo.png"; size=1234;
 creation-date="Mon, 12 Apr 2023 10:25:03 +0000";
 modification-date="5 May 2003 18:59:03 -0130"; x-other=yes

`)))
	tcheck(t, err, "parse")
	d := raw.Disposition
	if d == nil {
		t.Fatalf("missing disposition")
	}
	tcompare(t, d.Type, DispositionAttachment)
	tcompare(t, *d.Filename, "photo.png")
	tcompare(t, d.Params, map[string]string{"size": "1234", "x-other": "yes"})
	tcompare(t, d.ReadDate, (*datetime.DateTime)(nil))

	mon := time.Monday
	tcompare(t, *d.CreationDate, datetime.DateTime{
		Weekday: &mon,
		Date:    datetime.Date{Day: 12, Month: time.April, Year: 2023},
		Time:    datetime.Time{Hour: 10, Minute: 25, Second: 3, Zone: datetime.Zone{Positive: true}},
	})
	tcompare(t, *d.ModificationDate, datetime.DateTime{
		Date: datetime.Date{Day: 5, Month: time.May, Year: 2003},
		Time: datetime.Time{Hour: 18, Minute: 59, Second: 3, Zone: datetime.Zone{Positive: false, Hours: 1, Minutes: 30}},
	})

	dd := d.Detach()
	tcompare(t, dd, *d)
	if dd.CreationDate == d.CreationDate || dd.CreationDate.Weekday == d.CreationDate.Weekday {
		t.Fatalf("detached disposition shares pointers")
	}
}
