package message

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/k3a/html2text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Maximum number of characters in a preview. RFC 8970 3
const previewMax = 256

// Preview returns a short text for display next to a subject line. Quoted text
// and "On ... wrote:" lines are replaced by "[...]", trailing signatures are
// left out. HTML is turned into text first. The result has at most 256
// characters, and typically has trailing whitespace.
func (t *Text) Preview() string {
	s := t.Value
	if t.Subtype == "html" {
		var err error
		s, err = previewHTML(s)
		if err != nil {
			return ""
		}
	}
	return previewText(s)
}

// PlainText returns the value as plain text. HTML is rendered to text, other
// subtypes are returned as is.
func (t *Text) PlainText() string {
	if t.Subtype == "html" {
		return html2text.HTML2Text(t.Value)
	}
	return t.Value
}

// Preview returns the preview of the first text/plain or text/html entity in
// the tree with a non-empty preview. Attachments are skipped, as are encrypted
// multiparts and the signatures of signed multiparts.
func (n *Node) Preview() string {
	if d := n.Raw.Disposition; d != nil && d.Type == DispositionAttachment {
		return ""
	}
	switch e := n.Entity.(type) {
	case *Text:
		if e.Subtype == "plain" || e.Subtype == "html" {
			return e.Preview()
		}
	case *Multipart:
		for i, p := range n.Parts {
			if e.Subtype == "encrypted" || e.Subtype == "signed" && i > 0 {
				break
			}
			if s := p.Preview(); s != "" {
				return s
			}
		}
	}
	return ""
}

func isSnipped(s string) bool {
	return s == "[...]" || s == "[…]" || s == "..."
}

// previewText keeps the new text from s, snipping quoted text.
func previewText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}

	// Whether the line after i, skipping an empty line, is quoted.
	nextQuoted := func(i int) bool {
		if i+1 < len(lines) && lines[i+1] == "" {
			i++
		}
		return i+1 < len(lines) && (strings.HasPrefix(lines[i+1], ">") || isSnipped(lines[i+1]))
	}

	// A line of at least two dashes starts a signature if fewer than 5 non-empty
	// lines follow without an empty line in between.
	isSignature := func(i int) bool {
		if !strings.HasPrefix(lines[i], "--") || strings.Trim(lines[i], "-") != "" {
			return false
		}
		l := lines[i+1:]
		for len(l) > 0 && l[len(l)-1] == "" {
			l = l[:len(l)-1]
		}
		return len(l) < 5 && !slices.Contains(l, "")
	}

	var b strings.Builder
	snipped := func() bool {
		r := b.String()
		return strings.HasSuffix(r, "[...]\n") || strings.HasSuffix(r, "[…]\n")
	}
	snip := func() {
		if !snipped() {
			b.WriteString("[...]\n")
		}
	}

	i := 0
	// Wrapped "On ... wrote:" line at the start.
	if len(lines) > 3 && strings.HasPrefix(lines[0], "On ") && !strings.HasSuffix(lines[0], "wrote:") && strings.HasSuffix(lines[1], ":") && nextQuoted(1) {
		snip()
		i = 3
	}
	for ; i < len(lines) && !isSignature(i) && b.Len() <= 250; i++ {
		line := lines[i]
		switch {
		case line == "":
		case strings.HasPrefix(line, ">"):
			snip()
		case strings.HasSuffix(line, ":") && (strings.ContainsAny(line, "0123456789") || b.Len() == 0) && nextQuoted(i):
			// "On <date>, <person> wrote:"
			snip()
		case isSnipped(line) && snipped():
		default:
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	r := b.String()
	n := 0
	for o := range r {
		n++
		if n > previewMax {
			return r[:o]
		}
	}
	return r
}

// Text inside these elements is ignored.
var ignoreAtoms = atomSet(
	atom.Dialog,
	atom.Head,
	atom.Map,
	atom.Math,
	atom.Script,
	atom.Style,
	atom.Svg,
	atom.Template,
)

// Inline elements don't start a new line. Table cells get a space.
var inlineAtoms = atomSet(
	atom.A, atom.Abbr, atom.B, atom.Bdi, atom.Bdo, atom.Cite, atom.Code,
	atom.Data, atom.Dfn, atom.Em, atom.I, atom.Kbd, atom.Mark, atom.Q,
	atom.Rp, atom.Rt, atom.Ruby, atom.S, atom.Samp, atom.Small, atom.Span,
	atom.Strong, atom.Sub, atom.Sup, atom.Time, atom.U, atom.Var, atom.Wbr,
	atom.Del, atom.Ins,
	atom.Td, atom.Th,
)

func atomSet(l ...atom.Atom) map[atom.Atom]bool {
	m := map[atom.Atom]bool{}
	for _, a := range l {
		m[a] = true
	}
	return m
}

var (
	regexpSpace     = regexp.MustCompile(`[ \t]+`)
	regexpNewlines  = regexp.MustCompile(`\n\n\n+`)
	regexpZeroWidth = regexp.MustCompile("[\u00a0\u200b\u200c\u200d][\u00a0\u200b\u200c\u200d]+") // Generated, combinations are meaningless.
)

// htmlText gathers text from an HTML document for a preview, with
// blockquotes turned into "> " quoting.
type htmlText struct {
	text    strings.Builder
	ignore  int // Number of ignoring elements we are in.
	inlines []bool
	quotes  int
	err     error
}

// Enough for a 256 character preview after quoted text is removed.
const htmlTextMax = 4 * 1024

// walk adds the text of n and its descendants. It returns false when enough
// text was gathered or an error was encountered.
func (h *htmlText) walk(n *html.Node) bool {
	switch n.Type {
	case html.ErrorNode:
		h.err = fmt.Errorf("unexpected error node")
		return false

	case html.ElementNode:
		ignore := ignoreAtoms[n.DataAtom]
		inline := inlineAtoms[n.DataAtom]
		quote := n.DataAtom == atom.Blockquote
		if ignore {
			h.ignore++
		}
		if quote {
			h.quotes++
		}
		h.inlines = append(h.inlines, inline)
		defer func() {
			if ignore {
				h.ignore--
			}
			if quote {
				h.quotes--
			}
			h.inlines = h.inlines[:len(h.inlines)-1]
			s := h.text.String()
			if !inline && !strings.HasSuffix(s, "\n\n") {
				h.text.WriteString("\n")
			} else if (n.DataAtom == atom.Td || n.DataAtom == atom.Th) && !strings.HasSuffix(s, " ") {
				h.text.WriteString(" ")
			}
		}()

	case html.TextNode:
		if h.ignore > 0 {
			return true
		}
		h.addText(n.Data)
		if h.text.Len() >= htmlTextMax {
			return false
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !h.walk(c) {
			return false
		}
	}
	return true
}

func (h *htmlText) addText(data string) {
	s := strings.ReplaceAll(data, "\r", "")
	s = strings.ReplaceAll(s, "\t", " ")
	s = regexpSpace.ReplaceAllString(s, " ")
	s = regexpNewlines.ReplaceAllString(s, "\n")
	s = regexpZeroWidth.ReplaceAllString(s, "")

	inline := len(h.inlines) > 0 && h.inlines[len(h.inlines)-1]
	ts := strings.TrimSpace(s)
	if !inline && ts == "" {
		return
	}
	if ts == "" && (strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n")) {
		return
	}
	if h.quotes == 0 {
		h.text.WriteString(s)
		return
	}
	q := strings.Repeat("> ", h.quotes)
	for s != "" {
		o := strings.IndexByte(s, '\n') + 1
		if o == 0 {
			o = len(s)
		}
		h.text.WriteString(q)
		h.text.WriteString(s[:o])
		s = s[o:]
	}
}

// previewHTML returns the text of an HTML document, for passing to previewText.
func previewHTML(s string) (string, error) {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return "", fmt.Errorf("parsing html: %v", err)
	}
	var h htmlText
	h.walk(doc)
	text := strings.TrimSpace(h.text.String())
	return regexpSpace.ReplaceAllString(text, " "), h.err
}
