package message

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	gomessage "github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // For RFC 2047 words in descriptions and parameters.
	"github.com/emersion/go-message/textproto"

	"github.com/mjl-/mimeparse/datetime"
)

var (
	ErrHeader         = errors.New("bad part header")
	ErrBadContentType = errors.New("bad content-type")
	ErrContentID      = errors.New("bad content-id")
	ErrDisposition    = errors.New("bad content-disposition")
)

// Content header fields that are interpreted into RawEntity fields. Others end
// up in RawEntity.Headers.
var contentHeaders = map[string]bool{
	"content-type":              true,
	"content-transfer-encoding": true,
	"content-id":                true,
	"content-description":       true,
	"content-disposition":       true,
}

// ParsePart parses buf, a header section followed by a body, into a RawEntity.
// This is the form of each part in a multipart body, and of a top-level message
// without its envelope fields. The body is not copied, Value references buf.
//
// Without Content-Type, the entity is text/plain with charset us-ascii.
func ParsePart(buf []byte) (RawEntity, error) {
	return parsePart(buf, TypeText, "plain", 0)
}

// parsePart parses a part with the defaults for a missing Content-Type. Depth is
// the multipart nesting depth of the part.
func parsePart(buf []byte, defType MediaType, defSubtype string, depth int) (RawEntity, error) {
	r := bytes.NewReader(buf)
	br := bufio.NewReader(r)
	th, err := textproto.ReadHeader(br)
	if err != nil {
		return RawEntity{}, fmt.Errorf("%w: %v", ErrHeader, err)
	}
	body := buf[len(buf)-r.Len()-br.Buffered():]

	e := RawEntity{
		Value: body,
		depth: depth,
	}
	h := gomessage.Header{Header: th}

	// RFC 2045 5.2
	if strings.TrimSpace(h.Get("Content-Type")) == "" {
		e.Type = defType
		e.Subtype = defSubtype
		if defType == TypeText {
			e.Params = map[string]string{"charset": "us-ascii"}
		} else {
			e.Params = map[string]string{}
		}
	} else {
		mt, params, err := h.ContentType()
		if err != nil {
			return RawEntity{}, fmt.Errorf("%w: %v", ErrBadContentType, err)
		}
		t, st, ok := strings.Cut(mt, "/")
		if !ok || t == "" || st == "" {
			return RawEntity{}, fmt.Errorf("%w: %q", ErrBadContentType, mt)
		}
		e.Type = MediaType(t)
		e.Subtype = st
		e.Params = params
	}

	if s := h.Get("Content-Description"); s != "" {
		if ds, err := h.Text("Content-Description"); err == nil {
			s = ds
		}
		e.Description = &s
	}

	if s := h.Get("Content-Id"); s != "" {
		id, err := parseContentID(s)
		if err != nil {
			return RawEntity{}, err
		}
		e.ID = &id
	}

	if s := h.Get("Content-Transfer-Encoding"); s != "" {
		e.Encoding = TransferEncoding(strings.ToLower(strings.TrimSpace(s)))
	}

	if h.Get("Content-Disposition") != "" {
		disp, params, err := h.ContentDisposition()
		if err != nil {
			return RawEntity{}, fmt.Errorf("%w: %v", ErrDisposition, err)
		}
		d, err := parseDisposition(disp, params)
		if err != nil {
			return RawEntity{}, err
		}
		e.Disposition = &d
	}

	fields := h.Fields()
	for fields.Next() {
		k := fields.Key()
		if contentHeaders[strings.ToLower(k)] {
			continue
		}
		v, err := fields.Text()
		if err != nil {
			v = fields.Value()
		}
		e.Headers = append(e.Headers, Header{k, v})
	}

	return e, nil
}

// parseContentID parses a msg-id, without comments or folding.
//
// RFC 2045 7 and RFC 5322 3.6.4
func parseContentID(s string) (ContentID, error) {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "<") || !strings.HasSuffix(t, ">") {
		return ContentID{}, fmt.Errorf("%w: missing angle brackets in %q", ErrContentID, s)
	}
	t = t[1 : len(t)-1]
	i := strings.LastIndexByte(t, '@')
	if i <= 0 || i == len(t)-1 {
		return ContentID{}, fmt.Errorf("%w: missing left or right part in %q", ErrContentID, s)
	}
	return ContentID{t[:i], t[i+1:]}, nil
}

// parseDisposition interprets the parameters of a Content-Disposition. The date
// parameters must be valid RFC 5322 date-times.
//
// RFC 2183 2
func parseDisposition(disp string, params map[string]string) (Disposition, error) {
	d := Disposition{Type: DispositionType(disp)}
	for k, v := range params {
		var dtp **datetime.DateTime
		switch k {
		case "filename":
			s := v
			d.Filename = &s
			continue
		case "creation-date":
			dtp = &d.CreationDate
		case "modification-date":
			dtp = &d.ModificationDate
		case "read-date":
			dtp = &d.ReadDate
		default:
			if d.Params == nil {
				d.Params = map[string]string{}
			}
			d.Params[k] = v
			continue
		}
		dt, err := datetime.Parse(v)
		if err != nil {
			return Disposition{}, fmt.Errorf("%w: parameter %s: %w", ErrDisposition, k, err)
		}
		*dtp = &dt
	}
	return d, nil
}
