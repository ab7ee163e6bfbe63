package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mjl-/sconf"

	"github.com/mjl-/mimeparse/message"
	"github.com/mjl-/mimeparse/mlog"
)

// DefaultMaxBodySize is the maximum size of a message file read by the
// mimeparse command, if not configured.
const DefaultMaxBodySize = 100 * 1024 * 1024

// Static is the parsed form of mimeparse.conf.
type Static struct {
	LogLevel         string            `sconf-doc:"NOTE: This config file is in 'sconf' format. Indent with tabs. Comments must be on their own line, they don't end a line. Do not escape or quote strings. Details: https://pkg.go.dev/github.com/mjl-/sconf.\n\n\nDefault log level, one of: error, info, debug, trace."`
	PackageLogLevels map[string]string `sconf:"optional" sconf-doc:"Overrides of log level per package (e.g. message)."`
	MaxDepth         int               `sconf:"optional" sconf-doc:"Maximum nesting depth of multiparts. Messages nested more deeply are rejected. Default: 50."`
	MaxBodySize      int64             `sconf:"optional" sconf-doc:"Maximum size in bytes of a message file to parse. Default: 104857600 (100MB)."`
}

// Config is a parsed and checked configuration.
type Config struct {
	Static

	// Log levels per package, with the empty string for the default. For
	// mlog.SetConfig.
	Log map[string]slog.Level
}

// Default returns the configuration used without config file.
func Default() *Config {
	c := &Config{
		Static: Static{LogLevel: "error"},
	}
	if errs := c.prepare(); len(errs) > 0 {
		panic(fmt.Sprintf("default config: %v", errs))
	}
	return c
}

// Load reads and checks the config file at path p.
func Load(p string) (*Config, []error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, []error{fmt.Errorf("open config file: %v", err)}
	}
	defer f.Close()
	c, errs := Parse(f)
	for i, err := range errs {
		errs[i] = fmt.Errorf("%s: %w", p, err)
	}
	return c, errs
}

// Parse reads and checks a config file from r.
func Parse(r io.Reader) (*Config, []error) {
	c := &Config{}
	if err := sconf.Parse(r, &c.Static); err != nil {
		return nil, []error{fmt.Errorf("parsing config: %v", err)}
	}
	if errs := c.prepare(); len(errs) > 0 {
		return nil, errs
	}
	return c, nil
}

// prepare checks the static config, fills in defaults and sets Log.
func (c *Config) prepare() (errs []error) {
	addErrorf := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	c.Log = map[string]slog.Level{}
	if logLevel, ok := mlog.Levels[strings.ToLower(c.LogLevel)]; ok {
		c.Log[""] = logLevel
	} else {
		addErrorf("invalid log level %q", c.LogLevel)
	}
	for pkg, s := range c.PackageLogLevels {
		if logLevel, ok := mlog.Levels[strings.ToLower(s)]; ok {
			c.Log[pkg] = logLevel
		} else {
			addErrorf("invalid log level %q for package %q", s, pkg)
		}
	}

	if c.MaxDepth < 0 {
		addErrorf("MaxDepth must not be negative")
	} else if c.MaxDepth == 0 {
		c.MaxDepth = message.DefaultMaxDepth
	}
	if c.MaxBodySize < 0 {
		addErrorf("MaxBodySize must not be negative")
	} else if c.MaxBodySize == 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	return errs
}

// Opts returns the options for resolving entities.
func (c *Config) Opts() message.Opts {
	return message.Opts{MaxDepth: c.MaxDepth}
}

// Describe writes an annotated example config file to w.
func Describe(w io.Writer) error {
	var sc Static
	return sconf.Describe(w, &sc)
}

// Write writes the effective static configuration, with docs, to w.
func (c *Config) Write(w io.Writer) error {
	return sconf.WriteDocs(w, &c.Static)
}
