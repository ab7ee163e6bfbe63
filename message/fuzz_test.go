package message

import (
	"testing"
)

func FuzzParsePart(f *testing.F) {
	f.Add([]byte(""))
	f.Add([]byte(mimeMsg))
	f.Add([]byte(nested(5)))
	f.Add([]byte("Content-Type: text/plain; charset=iso-8859-1\r\nContent-Transfer-Encoding: quoted-printable\r\n\r\nt=E9st=\r\n"))
	f.Add([]byte("Content-Type: multipart/digest; boundary=d\r\n\r\n--d\r\n\r\nSubject: x\r\n\r\nx\r\n--d--\r\n"))
	f.Fuzz(func(t *testing.T, buf []byte) {
		raw, err := ParsePart(buf)
		if err != nil {
			return
		}
		n, err := ResolveTree(nil, raw, Opts{MaxDepth: 10})
		if err != nil {
			return
		}
		n.Walk(func(n *Node) bool {
			if n.Raw.Depth() > 10 {
				t.Fatalf("entity at depth %d, beyond maximum", n.Raw.Depth())
			}
			n.Entity.Detach()
			return true
		})
		n.Preview()
	})
}
