// Package mlog provides logging with log levels and fields, on top of log/slog.
//
// Most log levels have a function to log with and without error. Each such
// function takes a varargs list of slog attributes. Variable data should be in
// attributes. Logged text should be constant, for easier log processing.
//
// The log levels can be configured per originating package, e.g. message or
// datetime. The configuration is application-global, so each Log instance uses
// the same log levels.
//
// Print* should be used for lines that always should be printed, regardless of
// configured log levels. Useful for subcommands.
package mlog

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Logfmt, if set, makes the default handler write logfmt instead of the more
// human-readable format.
var Logfmt bool

type Level = slog.Level

const (
	LevelPrint Level = 12 // Printed regardless of configured log level.
	LevelFatal Level = 10 // Printed regardless of configured log level.
	LevelError Level = slog.LevelError
	LevelInfo  Level = slog.LevelInfo
	LevelDebug Level = slog.LevelDebug
	LevelTrace Level = -8
)

var LevelStrings = map[Level]string{
	LevelPrint: "print",
	LevelFatal: "fatal",
	LevelError: "error",
	LevelInfo:  "info",
	LevelDebug: "debug",
	LevelTrace: "trace",
}

var Levels = map[string]Level{
	"print": LevelPrint,
	"fatal": LevelFatal,
	"error": LevelError,
	"info":  LevelInfo,
	"debug": LevelDebug,
	"trace": LevelTrace,
}

// Holds a map[string]Level, mapping a package (attribute pkg in logs) to a log
// level. The empty string is the default/fallback log level.
var config atomic.Value

func init() {
	config.Store(map[string]Level{"": LevelError})
}

// SetConfig atomically sets the new log levels used by all Log instances.
func SetConfig(c map[string]Level) {
	config.Store(c)
}

// Log wraps a *slog.Logger with level functions that take an error.
type Log struct {
	*slog.Logger
}

// Handler writing to stderr, shared by all Log instances created without a
// logger, so their lines are written under a single lock.
var defaultHandler = &handler{w: os.Stderr, mu: &sync.Mutex{}}

// New returns a Log that adds attribute "pkg" to each line. If elog is nil, a
// logger writing to stderr with the package-level configuration is used.
func New(pkg string, elog *slog.Logger) Log {
	if elog == nil {
		elog = slog.New(defaultHandler)
	}
	return Log{elog.With(slog.String("pkg", pkg))}
}

// With returns a Log that adds attrs to each line.
func (l Log) With(attrs ...slog.Attr) Log {
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return Log{l.Logger.With(args...)}
}

func (l Log) Fatal(text string, attrs ...slog.Attr) { l.Fatalx(text, nil, attrs...) }
func (l Log) Fatalx(text string, err error, attrs ...slog.Attr) {
	l.logx(LevelFatal, err, text, attrs...)
	os.Exit(1)
}

func (l Log) Print(text string, attrs ...slog.Attr) {
	l.logx(LevelPrint, nil, text, attrs...)
}
func (l Log) Printx(text string, err error, attrs ...slog.Attr) {
	l.logx(LevelPrint, err, text, attrs...)
}

func (l Log) Debug(text string, attrs ...slog.Attr) {
	l.logx(LevelDebug, nil, text, attrs...)
}
func (l Log) Debugx(text string, err error, attrs ...slog.Attr) {
	l.logx(LevelDebug, err, text, attrs...)
}

func (l Log) Info(text string, attrs ...slog.Attr) { l.logx(LevelInfo, nil, text, attrs...) }

func (l Log) Error(text string, attrs ...slog.Attr) {
	l.logx(LevelError, nil, text, attrs...)
}
func (l Log) Errorx(text string, err error, attrs ...slog.Attr) {
	l.logx(LevelError, err, text, attrs...)
}

func (l Log) logx(level Level, err error, text string, attrs ...slog.Attr) {
	if err != nil {
		attrs = append([]slog.Attr{slog.String("err", err.Error())}, attrs...)
	}
	l.Logger.LogAttrs(context.Background(), level, text, attrs...)
}

// handler is the default slog.Handler. It filters on the per-package levels
// and writes a line per record in a single write.
type handler struct {
	w     io.Writer
	mu    *sync.Mutex
	pkg   string
	attrs []slog.Attr
}

var _ slog.Handler = (*handler)(nil)

// NewHandler returns a slog.Handler writing to w that uses the package-level
// configuration.
func NewHandler(w io.Writer) slog.Handler {
	return &handler{w: w, mu: &sync.Mutex{}}
}

func (h *handler) Enabled(ctx context.Context, level Level) bool {
	return match(h.pkg, level)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	for _, a := range attrs {
		if a.Key == "pkg" {
			nh.pkg = a.Value.String()
		}
	}
	return &nh
}

func (h *handler) WithGroup(name string) slog.Handler {
	// Groups are flattened.
	return h
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	attrs := append([]slog.Attr{}, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	// We build up a buffer so we can do a single write of the data. Otherwise
	// partial log lines may interleave.
	b := &bytes.Buffer{}
	if Logfmt {
		fmt.Fprintf(b, "l=%s m=%s", levelString(r.Level), logfmtValue(r.Message))
		for _, a := range attrs {
			fmt.Fprintf(b, " %s=%s", a.Key, logfmtValue(stringValue(false, a.Value.Any())))
		}
	} else {
		fmt.Fprintf(b, "%s: %s", levelString(r.Level), logfmtValue(r.Message))
		if len(attrs) > 0 {
			b.WriteString(" (")
			for i, a := range attrs {
				if i > 0 {
					b.WriteString("; ")
				}
				fmt.Fprintf(b, "%s: %s", a.Key, logfmtValue(stringValue(false, a.Value.Any())))
			}
			b.WriteString(")")
		}
	}
	b.WriteString("\n")
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(b.Bytes())
	return err
}

func levelString(level Level) string {
	if s, ok := LevelStrings[level]; ok {
		return s
	}
	return strings.ToLower(level.String())
}

// match returns whether a line at level for pkg should be logged.
func match(pkg string, level Level) bool {
	if level == LevelPrint || level == LevelFatal {
		return true
	}
	cl := config.Load().(map[string]Level)
	if v, ok := cl[pkg]; ok && pkg != "" {
		return level >= v
	}
	v, ok := cl[""]
	return ok && level >= v
}

// escape logfmt string if required, otherwise return original string.
func logfmtValue(s string) string {
	for _, c := range s {
		if c == '"' || c == '\\' || c <= ' ' || c == '=' || c >= 0x7f {
			return fmt.Sprintf("%q", s)
		}
	}
	return s
}

func stringValue(nested bool, v any) string {
	// Handle some common types first.
	if v == nil {
		return ""
	}
	switch r := v.(type) {
	case string:
		return r
	case int:
		return strconv.Itoa(r)
	case int64:
		return strconv.FormatInt(r, 10)
	case bool:
		if r {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%v", v)
	case []byte:
		return base64.RawURLEncoding.EncodeToString(r)
	case []string:
		if nested && len(r) == 0 {
			// Drop field from logging.
			return ""
		}
		return "[" + strings.Join(r, ",") + "]"
	case error:
		return r.Error()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return ""
	}

	if r, ok := v.(fmt.Stringer); ok {
		return r.String()
	}

	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
		return stringValue(nested, rv.Interface())
	}
	if rv.Kind() == reflect.Slice {
		n := rv.Len()
		if nested && n == 0 {
			// Drop field.
			return ""
		}
		b := &strings.Builder{}
		b.WriteString("[")
		for i := 0; i < n; i++ {
			if i > 0 {
				b.WriteString(";")
			}
			b.WriteString(stringValue(true, rv.Index(i).Interface()))
		}
		b.WriteString("]")
		return b.String()
	} else if rv.Kind() != reflect.Struct {
		return fmt.Sprintf("%v", v)
	}
	n := rv.NumField()
	t := rv.Type()
	b := &strings.Builder{}
	first := true
	for i := 0; i < n; i++ {
		fv := rv.Field(i)
		if !t.Field(i).IsExported() {
			continue
		}
		if fv.Kind() == reflect.Struct || fv.Kind() == reflect.Ptr || fv.Kind() == reflect.Interface {
			// Don't recurse.
			continue
		}
		vs := stringValue(true, fv.Interface())
		if vs == "" {
			continue
		}
		if !first {
			b.WriteByte(' ')
		}
		first = false
		k := strings.ToLower(t.Field(i).Name)
		b.WriteString(k + "=" + logfmtValue(vs))
	}
	return b.String()
}
