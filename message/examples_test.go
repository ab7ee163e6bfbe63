package message_test

import (
	"fmt"
	"log"
	"strings"

	"github.com/mjl-/mimeparse/message"
)

func ExampleResolve() {
	raw := message.RawEntity{
		Type:     message.TypeText,
		Subtype:  "plain",
		Params:   map[string]string{"charset": "iso-8859-1"},
		Encoding: message.EncodingQuotedPrintable,
		Value:    []byte("t=E9st"),
	}
	e, err := message.Resolve(nil, raw, message.Opts{})
	if err != nil {
		log.Fatalf("resolve: %v", err)
	}
	fmt.Println(e.(*message.Text).Value)
	// Output: tést
}

func ExampleResolveTree() {
	msg := strings.ReplaceAll(`Content-Type: multipart/alternative; boundary=b

--b
Content-Type: text/plain; charset=utf-8

hello
--b
Content-Type: text/html; charset=utf-8

<p>hello</p>
--b--
`, "\n", "\r\n")

	raw, err := message.ParsePart([]byte(msg))
	if err != nil {
		log.Fatalf("parse: %v", err)
	}
	tree, err := message.ResolveTree(nil, raw, message.Opts{})
	if err != nil {
		log.Fatalf("resolve: %v", err)
	}
	tree.Walk(func(n *message.Node) bool {
		fmt.Printf("%s%s/%s\n", strings.Repeat("  ", n.Raw.Depth()), n.Raw.Type, n.Raw.Subtype)
		return true
	})
	fmt.Printf("preview: %q\n", tree.Preview())
	// Output:
	// multipart/alternative
	//   text/plain
	//   text/html
	// preview: "hello\n"
}

func ExampleRawEntity_Resolve() {
	raw := message.RawEntity{Type: message.MediaType("x-custom"), Subtype: "thing", Value: []byte("opaque")}
	e, err := raw.Resolve()
	if err != nil {
		log.Fatalf("resolve: %v", err)
	}
	u := e.(*message.Unknown)
	fmt.Printf("%s/%s %s\n", u.Raw.Type, u.Raw.Subtype, u.Raw.Value)
	// Output: x-custom/thing opaque
}
