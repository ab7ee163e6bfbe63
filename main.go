package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/maps"

	"github.com/mjl-/mimeparse/config"
	"github.com/mjl-/mimeparse/datetime"
	"github.com/mjl-/mimeparse/message"
	"github.com/mjl-/mimeparse/mlog"
)

var commands = []struct {
	cmd string
	fn  func(c *cmd)
}{
	{"parse", cmdParse},
	{"date", cmdDate},
	{"help", cmdHelp},
	{"config describe", cmdConfigDescribe},
	{"config test", cmdConfigTest},
	{"version", cmdVersion},

	{"helpall", cmdHelpall},
}

var cmds []cmd

func init() {
	for _, xc := range commands {
		c := cmd{words: strings.Split(xc.cmd, " "), fn: xc.fn}
		cmds = append(cmds, c)
	}
}

type cmd struct {
	words []string
	fn    func(c *cmd)

	// Set before calling command.
	flag     *flag.FlagSet
	flagArgs []string
	_gather  bool // Set when using Parse to gather usage for a command.

	// Set by invoked command or Parse.
	unlisted bool   // If set, command is not listed until at least some words are matched from command.
	params   string // Arguments to command. Multiple lines possible.
	help     string // Additional explanation. First line is synopsis, the rest is only printed for an explicit help/usage for that command.
	args     []string

	log mlog.Log
}

func (c *cmd) Parse() []string {
	// To gather params and usage information, we run the command but panic after
	// it has registered its flags and set its params and help. The panic is caught
	// in gather.
	if c._gather {
		panic("gather")
	}

	c.flag.Usage = c.Usage
	c.flag.Parse(c.flagArgs)
	c.args = c.flag.Args()
	return c.args
}

func (c *cmd) gather() {
	c.flag = flag.NewFlagSet("mimeparse "+strings.Join(c.words, " "), flag.ExitOnError)
	c._gather = true
	defer func() {
		x := recover()
		// panic generated by Parse.
		if x != "gather" {
			panic(x)
		}
	}()
	c.fn(c)
}

func (c *cmd) makeUsage() string {
	var r strings.Builder
	cs := "mimeparse " + strings.Join(c.words, " ")
	for i, line := range strings.Split(strings.TrimSpace(c.params), "\n") {
		s := ""
		if i == 0 {
			s = "usage:"
		}
		if line != "" {
			line = " " + line
		}
		fmt.Fprintf(&r, "%6s %s%s\n", s, cs, line)
	}
	c.flag.SetOutput(&r)
	c.flag.PrintDefaults()
	return r.String()
}

func (c *cmd) printUsage() {
	fmt.Fprint(os.Stderr, c.makeUsage())
	if c.help != "" {
		fmt.Fprint(os.Stderr, "\n"+c.help+"\n")
	}
}

func (c *cmd) Usage() {
	c.printUsage()
	os.Exit(2)
}

func cmdHelp(c *cmd) {
	c.params = "[command ...]"
	c.help = `Prints help about matching commands.

If multiple commands match, they are listed along with the first line of their help text.
If a single command matches, its usage and full help text is printed.
`
	args := c.Parse()
	if len(args) == 0 {
		c.Usage()
	}

	var partial []cmd
	for _, c := range cmds {
		if slices.Equal(c.words, args) {
			c.gather()
			fmt.Print(c.makeUsage())
			if c.help != "" {
				fmt.Print("\n" + c.help + "\n")
			}
			return
		} else if len(args) <= len(c.words) && slices.Equal(args, c.words[:len(args)]) {
			partial = append(partial, c)
		}
	}
	if len(partial) == 0 {
		fmt.Fprintf(os.Stderr, "%s: unknown command\n", strings.Join(args, " "))
		os.Exit(2)
	}
	for _, c := range partial {
		c.gather()
		fmt.Printf("mimeparse %s\n", strings.Join(c.words, " "))
		if c.help != "" {
			fmt.Printf("\t%s\n", strings.Split(c.help, "\n")[0])
		}
	}
}

func cmdHelpall(c *cmd) {
	c.unlisted = true
	c.help = `Print all detailed usage and help information for all listed commands.

Used to generate documentation.
`
	if len(c.Parse()) != 0 {
		c.Usage()
	}

	n := 0
	for _, c := range cmds {
		c.gather()
		if c.unlisted {
			continue
		}
		if n > 0 {
			fmt.Println()
		}
		n++

		fmt.Printf("# mimeparse %s\n\n", strings.Join(c.words, " "))
		if c.help != "" {
			fmt.Println(c.help)
		}
		s := c.makeUsage()
		fmt.Println("\t" + strings.ReplaceAll(strings.TrimSuffix(s, "\n"), "\n", "\n\t"))
	}
}

func usage(l []cmd, unlisted bool) {
	var lines []string
	if !unlisted {
		lines = append(lines, "mimeparse [-config mimeparse.conf] [-loglevel level] [-logfmt] ...")
	}
	for _, c := range l {
		c.gather()
		if c.unlisted && !unlisted {
			continue
		}
		for _, line := range strings.Split(c.params, "\n") {
			x := append([]string{"mimeparse"}, c.words...)
			if line != "" {
				x = append(x, line)
			}
			lines = append(lines, strings.Join(x, " "))
		}
	}
	for i, line := range lines {
		pre := "       "
		if i == 0 {
			pre = "usage: "
		}
		fmt.Fprintln(os.Stderr, pre+line)
	}
	os.Exit(2)
}

var (
	configPath string
	loglevel   string // Overrides the config file, if set.
	conf       = config.Default()
)

// loadConfig loads the config file, if any, and applies the log levels.
func loadConfig(log mlog.Log) {
	if configPath != "" {
		c, errs := config.Load(configPath)
		if len(errs) > 0 {
			for _, err := range errs {
				log.Errorx("config error", err, slog.String("path", configPath))
			}
			log.Fatal("loading config failed")
		}
		conf = c
	}
	if loglevel != "" {
		level, ok := mlog.Levels[loglevel]
		if !ok {
			log.Fatal("unknown loglevel", slog.String("loglevel", loglevel))
		}
		conf.Log[""] = level
	}
	mlog.SetConfig(conf.Log)
}

func main() {
	log.SetFlags(0)

	flag.StringVar(&configPath, "config", os.Getenv("MIMEPARSECONF"), "optional configuration file, defaults to $MIMEPARSECONF")
	flag.StringVar(&loglevel, "loglevel", "", "if non-empty, overrides the log level from the configuration file")
	flag.BoolVar(&mlog.Logfmt, "logfmt", false, "write log lines in logfmt")

	var cpuprofile, memprofile string
	flag.StringVar(&cpuprofile, "cpuprof", "", "store cpu profile to file")
	flag.StringVar(&memprofile, "memprof", "", "store mem profile to file")

	flag.Usage = func() { usage(cmds, false) }
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage(cmds, false)
	}

	defer profile(cpuprofile, memprofile)()

	var partial []cmd
next:
	for _, c := range cmds {
		for i, w := range c.words {
			if i >= len(args) || w != args[i] {
				if i > 0 {
					partial = append(partial, c)
				}
				continue next
			}
		}
		c.flag = flag.NewFlagSet("mimeparse "+strings.Join(c.words, " "), flag.ExitOnError)
		c.flagArgs = args[len(c.words):]
		c.log = mlog.New(strings.Join(c.words, ""), nil)
		c.fn(&c)
		return
	}
	if len(partial) > 0 {
		usage(partial, true)
	}
	usage(cmds, false)
}

func xcheckf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	log.Fatalf("%s: %s", msg, err)
}

func cmdParse(c *cmd) {
	c.params = "[-tree] [-maxdepth n] [-preview] [-metrics] file.eml"
	c.help = `Parse a message or MIME part from a file and print its structure.

The file starts with a header section, followed by an empty line and the body.
Only the Content-* header fields are interpreted. Without -tree, only the
top-level entity is resolved, with the parts of a multipart listed but not
interpreted. With -tree, all parts are resolved, and any error in a part fails
the whole message.

Text is decoded from its transfer encoding and charset. Entities that cannot be
interpreted, e.g. images, or texts in unsupported charsets, are printed as
unknown with their size.
`
	var tree, preview, metrics bool
	var maxDepth int
	c.flag.BoolVar(&tree, "tree", false, "resolve all parts recursively")
	c.flag.IntVar(&maxDepth, "maxdepth", 0, "maximum multipart nesting depth, overrides the configuration file")
	c.flag.BoolVar(&preview, "preview", false, "print a preview of the message text")
	c.flag.BoolVar(&metrics, "metrics", false, "print resolve counters when done")
	args := c.Parse()
	if len(args) != 1 {
		c.Usage()
	}
	loadConfig(c.log)
	log := c.log.With(slog.String("file", args[0]))

	opts := conf.Opts()
	if maxDepth > 0 {
		opts.MaxDepth = maxDepth
	}
	buf, err := readFile(args[0], conf.MaxBodySize)
	if err != nil {
		log.Fatalx("reading message", err)
	}

	raw, err := message.ParsePart(buf)
	if err != nil {
		log.Fatalx("parsing part header", err)
	}
	log.Debug("parsed part", slog.Int("size", len(buf)), slog.String("type", string(raw.Type)+"/"+raw.Subtype))

	if tree {
		n, err := message.ResolveTree(nil, raw, opts)
		if err != nil {
			log.Fatalx("resolving message", err)
		}
		var count int
		n.Walk(func(*message.Node) bool {
			count++
			return true
		})
		log.Info("resolved message", slog.Int("entities", count))
		describeNode(os.Stdout, n)
		if preview {
			fmt.Printf("\npreview:\n%s", n.Preview())
		}
	} else {
		e, err := message.Resolve(nil, raw, opts)
		if err != nil {
			log.Fatalx("resolving message", err)
		}
		describeEntity(os.Stdout, raw, e, "", true)
		if preview {
			if t, ok := e.(*message.Text); ok {
				fmt.Printf("\npreview:\n%s", t.Preview())
			} else {
				log.Print("no preview without -tree for non-text entity", slog.String("type", string(raw.Type)+"/"+raw.Subtype))
			}
		}
	}
	if metrics {
		if err := writeMetrics(os.Stdout, prometheus.DefaultGatherer); err != nil {
			log.Fatalx("writing metrics", err)
		}
	}
}

var errTooLarge = errors.New("file larger than maximum body size")

// readFile reads the file at path, failing if it is larger than maxSize.
func readFile(path string, maxSize int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(buf)) > maxSize {
		return nil, fmt.Errorf("%w (%d bytes)", errTooLarge, maxSize)
	}
	return buf, nil
}

// describeNode writes a line per entity in the tree, indented by depth.
func describeNode(w io.Writer, n *message.Node) {
	n.Walk(func(n *message.Node) bool {
		indent := strings.Repeat("\t", n.Raw.Depth())
		describeEntity(w, n.Raw, n.Entity, indent, false)
		return true
	})
}

// describeEntity writes a line for e, followed by its metadata. With listParts,
// the unresolved parts of a multipart are listed as well.
func describeEntity(w io.Writer, raw message.RawEntity, e message.Entity, indent string, listParts bool) {
	ct := string(raw.Type) + "/" + raw.Subtype
	switch e := e.(type) {
	case *message.Multipart:
		fmt.Fprintf(w, "%s%s, %d parts\n", indent, ct, len(e.Parts))
	case *message.Text:
		fmt.Fprintf(w, "%s%s, text, %d bytes decoded\n", indent, ct, len(e.Value))
	case *message.Unknown:
		fmt.Fprintf(w, "%s%s, unknown, %d bytes\n", indent, ct, len(e.Raw.Value))
	}

	keys := maps.Keys(raw.Params)
	slices.Sort(keys)
	for _, k := range keys {
		if k == "boundary" {
			continue
		}
		fmt.Fprintf(w, "%s\t%s=%q\n", indent, k, raw.Params[k])
	}
	if raw.Encoding != "" {
		fmt.Fprintf(w, "%s\tencoding %s\n", indent, raw.Encoding)
	}
	if raw.ID != nil {
		fmt.Fprintf(w, "%s\tid %s\n", indent, raw.ID)
	}
	if raw.Description != nil {
		fmt.Fprintf(w, "%s\tdescription %q\n", indent, *raw.Description)
	}
	if d := raw.Disposition; d != nil {
		fmt.Fprintf(w, "%s\tdisposition %s", indent, d.Type)
		if d.Filename != nil {
			fmt.Fprintf(w, ", filename %q", *d.Filename)
		}
		fmt.Fprintln(w)
	}

	if m, ok := e.(*message.Multipart); ok && listParts {
		for i, p := range m.Parts {
			fmt.Fprintf(w, "%s\tpart %d: %s/%s, %d bytes\n", indent, i, p.Type, p.Subtype, len(p.Value))
		}
	}
}

// writeMetrics writes the mimeparse counters from g, one line per label set.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if !strings.HasPrefix(mf.GetName(), "mimeparse_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			fmt.Fprintf(w, "%s{%s} %v\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
	return nil
}

func cmdDate(c *cmd) {
	c.params = "value"
	c.help = `Parse an RFC 5322 date-time and print its fields.

For example:

	mimeparse date "Mon, 12 Apr 2023 10:25:03 +0000"

The day of the week is optional, and is not checked against the date. The time
is also printed in UTC.
`
	args := c.Parse()
	if len(args) != 1 {
		c.Usage()
	}
	loadConfig(c.log)

	dt, err := datetime.Parse(args[0])
	if err != nil {
		c.log.Fatalx("parsing date-time", err, slog.String("value", args[0]))
	}
	describeDate(os.Stdout, dt)
}

func describeDate(w io.Writer, dt datetime.DateTime) {
	if dt.Weekday != nil {
		fmt.Fprintf(w, "weekday: %s\n", *dt.Weekday)
	}
	fmt.Fprintf(w, "date: %d %s %d\n", dt.Date.Day, dt.Date.Month, dt.Date.Year)
	fmt.Fprintf(w, "time: %02d:%02d:%02d\n", dt.Time.Hour, dt.Time.Minute, dt.Time.Second)
	fmt.Fprintf(w, "zone: %s\n", dt.Time.Zone)
	fmt.Fprintf(w, "utc: %s\n", dt.Timestamp().UTC().Format("2006-01-02T15:04:05Z"))
}

func cmdConfigDescribe(c *cmd) {
	c.params = ">mimeparse.conf"
	c.help = `Prints an annotated empty configuration for use as mimeparse.conf.

The configuration file is optional. Fields that are not needed can be removed.
`
	if len(c.Parse()) != 0 {
		c.Usage()
	}

	if err := config.Describe(os.Stdout); err != nil {
		c.log.Fatalx("describing config", err)
	}
}

func cmdConfigTest(c *cmd) {
	c.params = "mimeparse.conf"
	c.help = `Parses and checks the configuration file and prints the effective configuration.`
	args := c.Parse()
	if len(args) != 1 {
		c.Usage()
	}

	nc, errs := config.Load(args[0])
	if len(errs) > 0 {
		for _, err := range errs {
			c.log.Printx("config error", err, slog.String("path", args[0]))
		}
		c.log.Fatal("config file has errors")
	}
	var b bytes.Buffer
	if err := nc.Write(&b); err != nil {
		c.log.Fatalx("writing config", err)
	}
	fmt.Print(b.String())
	fmt.Println("# config OK")
}

// version is the module version, or the vcs revision for development builds.
func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "(devel)"
	}
	v := info.Main.Version
	if v != "(devel)" && v != "" {
		return v
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return "(devel)"
}

func cmdVersion(c *cmd) {
	c.help = "Prints this mimeparse version."
	if len(c.Parse()) != 0 {
		c.Usage()
	}
	fmt.Println(version())
	fmt.Printf("%s/%s\n", runtime.GOOS, runtime.GOARCH)
}
