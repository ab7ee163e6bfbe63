package message

import (
	"bytes"
	"strings"

	"github.com/mjl-/mimeparse/datetime"
)

// MediaType is the top-level media type from a Content-Type header, in lower
// case. Values other than the constants below are "other" types, e.g. "x-custom".
type MediaType string

const (
	TypeText        MediaType = "text"
	TypeImage       MediaType = "image"
	TypeAudio       MediaType = "audio"
	TypeVideo       MediaType = "video"
	TypeApplication MediaType = "application"
	TypeMessage     MediaType = "message"
	TypeMultipart   MediaType = "multipart"
)

// IsComposite returns whether the type contains nested entities instead of an
// opaque payload. RFC 2045 5.1
func (t MediaType) IsComposite() bool {
	return t == TypeMessage || t == TypeMultipart
}

// IsOther returns whether t is not one of the types defined by RFC 2046.
func (t MediaType) IsOther() bool {
	switch t {
	case TypeText, TypeImage, TypeAudio, TypeVideo, TypeApplication, TypeMessage, TypeMultipart:
		return false
	}
	return true
}

// TransferEncoding is a Content-Transfer-Encoding, in lower case. The empty
// value is treated as 7bit.
type TransferEncoding string

const (
	Encoding7Bit            TransferEncoding = "7bit"
	Encoding8Bit            TransferEncoding = "8bit"
	EncodingBinary          TransferEncoding = "binary"
	EncodingQuotedPrintable TransferEncoding = "quoted-printable"
	EncodingBase64          TransferEncoding = "base64"
)

// DispositionType is the type from a Content-Disposition header, in lower case.
// Unrecognized types should be treated as attachment. RFC 2183 2.8
type DispositionType string

const (
	DispositionInline     DispositionType = "inline"
	DispositionAttachment DispositionType = "attachment"
)

// Disposition holds the Content-Disposition of an entity, RFC 2183.
//
// The size parameter is not interpreted, it is an approximation at best. It
// remains in Params.
type Disposition struct {
	Type             DispositionType
	Filename         *string
	CreationDate     *datetime.DateTime
	ModificationDate *datetime.DateTime
	ReadDate         *datetime.DateTime
	Params           map[string]string // Other parameters, with lower-case keys.
}

// ContentID is a Content-ID, "<left@right>".
type ContentID struct {
	Left  string
	Right string
}

func (id ContentID) String() string {
	return "<" + id.Left + "@" + id.Right + ">"
}

// Header is a header field that is not a MIME content field.
type Header struct {
	Key   string
	Value string
}

// RawEntity is a MIME entity before interpretation: its content header fields
// and its body as it appears in the message.
type RawEntity struct {
	Type        MediaType
	Subtype     string // Lower case.
	Description *string
	ID          *ContentID
	Params      map[string]string // Content-Type parameters. Lower-case keys, values as is.
	Disposition *Disposition
	Encoding    TransferEncoding
	Headers     []Header // Additional header fields.

	// Body with the content-transfer-encoding still applied. Typically
	// references the buffer the entity was parsed from.
	Value []byte

	depth int // Number of multipart ancestors.
}

// Depth returns the number of multipart entities this entity is nested in.
func (e RawEntity) Depth() int {
	return e.depth
}

// Param returns the Content-Type parameter with name k, matched
// case-insensitively.
func (e RawEntity) Param(k string) (string, bool) {
	if v, ok := e.Params[strings.ToLower(k)]; ok {
		return v, true
	}
	for pk, v := range e.Params {
		if strings.EqualFold(pk, k) {
			return v, true
		}
	}
	return "", false
}

// Detach returns a copy of e that does not share memory with the buffer e was
// parsed from, or with e itself.
func (e RawEntity) Detach() RawEntity {
	ne := RawEntity{
		Type:        MediaType(strings.Clone(string(e.Type))),
		Subtype:     strings.Clone(e.Subtype),
		Description: cloneString(e.Description),
		Params:      cloneParams(e.Params),
		Encoding:    TransferEncoding(strings.Clone(string(e.Encoding))),
		Value:       bytes.Clone(e.Value),
		depth:       e.depth,
	}
	if e.ID != nil {
		ne.ID = &ContentID{strings.Clone(e.ID.Left), strings.Clone(e.ID.Right)}
	}
	if e.Disposition != nil {
		d := e.Disposition.Detach()
		ne.Disposition = &d
	}
	if e.Headers != nil {
		ne.Headers = make([]Header, len(e.Headers))
		for i, h := range e.Headers {
			ne.Headers[i] = Header{strings.Clone(h.Key), strings.Clone(h.Value)}
		}
	}
	return ne
}

// Detach returns a copy of d that does not share memory with d.
func (d Disposition) Detach() Disposition {
	return Disposition{
		Type:             DispositionType(strings.Clone(string(d.Type))),
		Filename:         cloneString(d.Filename),
		CreationDate:     cloneDateTime(d.CreationDate),
		ModificationDate: cloneDateTime(d.ModificationDate),
		ReadDate:         cloneDateTime(d.ReadDate),
		Params:           cloneParams(d.Params),
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.Clone(*s)
	return &v
}

func cloneParams(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	nm := make(map[string]string, len(m))
	for k, v := range m {
		nm[strings.Clone(k)] = strings.Clone(v)
	}
	return nm
}

func cloneDateTime(dt *datetime.DateTime) *datetime.DateTime {
	if dt == nil {
		return nil
	}
	ndt := *dt
	if dt.Weekday != nil {
		wd := *dt.Weekday
		ndt.Weekday = &wd
	}
	return &ndt
}

// Entity is a MIME entity after interpretation, one of *Multipart, *Text or
// *Unknown.
type Entity interface {
	// Detach returns a copy that does not share memory with the parsed buffer.
	Detach() Entity

	entity()
}

// Multipart is a multipart entity. Its parts are not resolved, call Resolve on
// each, or use ResolveTree.
type Multipart struct {
	Subtype string // E.g. "mixed", "alternative".
	Parts   []RawEntity
}

// Text is a text entity, with transfer encoding and charset decoded.
type Text struct {
	Subtype string // E.g. "plain", "html".
	Value   string
}

// Unknown is an entity without further interpretation, e.g. an image, or a
// text with an unsupported charset.
type Unknown struct {
	Raw RawEntity
}

func (*Multipart) entity() {}
func (*Text) entity()      {}
func (*Unknown) entity()   {}

func (m *Multipart) Detach() Entity {
	nm := &Multipart{Subtype: strings.Clone(m.Subtype)}
	if m.Parts != nil {
		nm.Parts = make([]RawEntity, len(m.Parts))
		for i, p := range m.Parts {
			nm.Parts[i] = p.Detach()
		}
	}
	return nm
}

func (t *Text) Detach() Entity {
	return &Text{strings.Clone(t.Subtype), strings.Clone(t.Value)}
}

func (u *Unknown) Detach() Entity {
	return &Unknown{u.Raw.Detach()}
}
