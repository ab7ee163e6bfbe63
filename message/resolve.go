package message

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mjl-/mimeparse/metrics"
	"github.com/mjl-/mimeparse/mlog"
	"github.com/mjl-/mimeparse/parse"
)

var (
	metricResolve = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mimeparse_resolve_total",
			Help: "Entity resolutions, by result: text, multipart, unknown, error or depth.",
		},
		[]string{
			"result",
		},
	)
)

var (
	errMultipartEncoding = errors.New("multipart with non-identity transfer encoding")
	errPanic             = errors.New("internal error while resolving entity")
)

// DefaultMaxDepth is the maximum multipart nesting depth used when Opts.MaxDepth
// is zero.
const DefaultMaxDepth = 50

// Opts influence resolving entities.
type Opts struct {
	// Maximum number of nested multiparts. A multipart whose parts would be
	// nested deeper results in an error wrapping parse.ErrDepth. Zero means
	// DefaultMaxDepth.
	MaxDepth int
}

func (o Opts) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// Resolve interprets raw. A multipart is split into its parts, which are not
// resolved themselves. A text with supported transfer encoding and charset is
// decoded. Anything else is returned as Unknown, which is not an error.
//
// Malformed content in an entity that is interpreted, like a multipart without
// closing boundary or invalid base64 data, is an error.
//
// If elog is nil, the default mlog handler is used.
func Resolve(elog *slog.Logger, raw RawEntity, opts Opts) (rentity Entity, rerr error) {
	log := mlog.New("message", elog)

	defer func() {
		x := recover()
		if x == nil {
			return
		}
		log.Error("unhandled panic while resolving entity", slog.Any("panic", x))
		metrics.PanicInc(metrics.Message)
		rentity = nil
		rerr = fmt.Errorf("%w: %v", errPanic, x)
	}()

	e, result, err := resolve(log, raw, opts)
	metricResolve.WithLabelValues(result).Inc()
	if err != nil {
		log.Debugx("resolving entity", err,
			slog.String("type", string(raw.Type)+"/"+raw.Subtype),
			slog.Int("depth", raw.depth))
		return nil, err
	}
	return e, nil
}

// Resolve is Resolve with a nil logger and default options.
func (e RawEntity) Resolve() (Entity, error) {
	return Resolve(nil, e, Opts{})
}

func resolve(log mlog.Log, raw RawEntity, opts Opts) (Entity, string, error) {
	switch raw.Type {
	case TypeMultipart:
		m, err := resolveMultipart(raw, opts)
		if err != nil {
			if errors.Is(err, parse.ErrDepth) {
				return nil, "depth", err
			}
			return nil, "error", err
		}
		return m, "multipart", nil

	case TypeText:
		if !supportedEncoding(raw.Encoding) {
			log.Debug("unsupported transfer encoding, leaving text as unknown", slog.String("encoding", string(raw.Encoding)))
			return &Unknown{raw}, "unknown", nil
		}
		charset, _ := raw.Param("charset")
		enc, ok := lookupCharset(charset)
		if !ok {
			log.Debug("unsupported charset, leaving text as unknown", slog.String("charset", charset))
			return &Unknown{raw}, "unknown", nil
		}
		buf, err := decodeTransfer(raw.Encoding, raw.Value)
		if err != nil {
			return nil, "error", err
		}
		s, err := decodeCharset(enc, buf)
		if err != nil {
			return nil, "error", fmt.Errorf("text with charset %q: %w", charset, err)
		}
		return &Text{raw.Subtype, s}, "text", nil
	}

	mt := slog.String("type", string(raw.Type)+"/"+raw.Subtype)
	if raw.Type.IsComposite() {
		log.Debug("composite entity not interpreted, leaving as unknown", mt)
	} else if raw.Type.IsOther() {
		log.Debug("unregistered media type, leaving as unknown", mt)
	}
	return &Unknown{raw}, "unknown", nil
}

// RFC 2046 5.1
func resolveMultipart(raw RawEntity, opts Opts) (*Multipart, error) {
	boundary, _ := raw.Param("boundary")
	if boundary == "" {
		return nil, ErrMissingBoundary
	}
	// RFC 2045 6.4
	switch raw.Encoding {
	case "", Encoding7Bit, Encoding8Bit, EncodingBinary:
	default:
		return nil, fmt.Errorf("%w: %q", errMultipartEncoding, raw.Encoding)
	}
	if maxd := opts.maxDepth(); raw.depth+1 > maxd {
		return nil, fmt.Errorf("%w: multipart at depth %d, maximum %d", parse.ErrDepth, raw.depth, maxd)
	}

	sections, err := splitMultipart(raw.Value, boundary)
	if err != nil {
		return nil, err
	}

	// RFC 2046 5.1.5
	defType, defSubtype := TypeText, "plain"
	if raw.Subtype == "digest" {
		defType, defSubtype = TypeMessage, "rfc822"
	}

	m := &Multipart{Subtype: raw.Subtype, Parts: make([]RawEntity, 0, len(sections))}
	for i, buf := range sections {
		p, err := parsePart(buf, defType, defSubtype, raw.depth+1)
		if err != nil {
			return nil, fmt.Errorf("parsing part %d: %w", i, err)
		}
		m.Parts = append(m.Parts, p)
	}
	return m, nil
}

// Node is an entity in a fully resolved tree.
type Node struct {
	Raw    RawEntity
	Entity Entity
	Parts  []*Node // For multiparts, in order.
}

// ResolveTree resolves raw and, for multiparts, all descendants. An error in any
// descendant fails the whole tree.
func ResolveTree(elog *slog.Logger, raw RawEntity, opts Opts) (*Node, error) {
	e, err := Resolve(elog, raw, opts)
	if err != nil {
		return nil, err
	}
	n := &Node{Raw: raw, Entity: e}
	if m, ok := e.(*Multipart); ok {
		for i, p := range m.Parts {
			pn, err := ResolveTree(elog, p, opts)
			if err != nil {
				return nil, fmt.Errorf("part %d: %w", i, err)
			}
			n.Parts = append(n.Parts, pn)
		}
	}
	return n, nil
}

// Walk calls fn for n and its descendants, depth-first, in order. Walking stops
// when fn returns false.
func (n *Node) Walk(fn func(n *Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, p := range n.Parts {
		if !p.Walk(fn) {
			return false
		}
	}
	return true
}
