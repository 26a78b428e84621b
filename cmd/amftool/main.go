// amftool converts AMF0 and AMF3 data to editable JSON or YAML trees and back.
//
//	amftool decode [-v 0|3] [-f json|yaml] [--offset N] [--zlib] [-o OUT] FILE
//	amftool encode [-v 0|3] [-f json|yaml] [--zlib] [-o OUT] FILE
//	amftool verify [-v 0|3] [--offset N] [--zlib] FILE
//
// verify prints the size and BLAKE3 digest of the value it checked, so that values can be
// compared across files.
//
// FILE may be "-" for standard input. Defaults come from --config, a YAML file.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/torresjeff/amf/config"
	"github.com/torresjeff/amf/tree"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "amftool: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	cfg    config.Tool
	offset int
	output string
	input  string
	stdin  io.Reader
	stdout io.Writer
	logger *zap.Logger
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errors.New("missing command")
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage(stderr)
		return nil
	}

	flagSet := pflag.NewFlagSet("amftool "+name, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	version := flagSet.Uint8P("version", "v", config.DefaultVersion, "AMF version, 0 or 3")
	format := flagSet.StringP("format", "f", config.DefaultFormat, "tree format, json or yaml")
	indent := flagSet.Int("indent", config.DefaultIndent, "spaces per indentation level, 0 for compact JSON")
	useZlib := flagSet.Bool("zlib", false, "the AMF bytes are a zlib stream")
	debug := flagSet.Bool("debug", config.Debug, "log codec activity")
	configPath := flagSet.String("config", "", "YAML file with defaults for the flags above")
	c := &command{stdin: stdin, stdout: stdout}
	flagSet.IntVar(&c.offset, "offset", 0, "byte offset of the value in the input")
	flagSet.StringVarP(&c.output, "output", "o", "", "write the result here instead of standard output")
	if err := flagSet.Parse(args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	c.cfg = config.Default()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		c.cfg = cfg
	}
	// Flags given on the command line win over the config file.
	if flagSet.Changed("version") || *configPath == "" {
		c.cfg.Version = *version
	}
	if flagSet.Changed("format") || *configPath == "" {
		c.cfg.Format = *format
	}
	if flagSet.Changed("indent") || *configPath == "" {
		c.cfg.Indent = *indent
	}
	if flagSet.Changed("zlib") {
		c.cfg.Zlib = *useZlib
	}
	if flagSet.Changed("debug") {
		c.cfg.Debug = *debug
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	rest := flagSet.Args()
	if len(rest) != 1 {
		return errors.Errorf("%s takes exactly one input file, got %d", name, len(rest))
	}
	c.input = rest[0]

	c.logger = newLogger(c.cfg.Debug, stderr)
	defer c.logger.Sync()

	switch name {
	case "decode":
		return c.decode()
	case "encode":
		return c.encode()
	case "verify":
		return c.verify()
	}
	printUsage(stderr)
	return errors.Errorf("unknown command %q", name)
}

func newLogger(debug bool, w io.Writer) *zap.Logger {
	level := zapcore.InfoLevel
	encoderConfig := zap.NewProductionEncoderConfig()
	if debug {
		level = zapcore.DebugLevel
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), level)
	return zap.New(core)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage:
  amftool decode [-v 0|3] [-f json|yaml] [--offset N] [--zlib] [-o OUT] FILE
  amftool encode [-v 0|3] [-f json|yaml] [--zlib] [-o OUT] FILE
  amftool verify [-v 0|3] [--offset N] [--zlib] FILE

Common flags: --config FILE, --indent N, --debug
`)
}

func (c *command) decode() error {
	data, err := c.readBinary()
	if err != nil {
		return err
	}
	pos := c.offset
	if pos < 0 || pos > len(data) {
		return errors.Errorf("offset %d outside the %d byte input", pos, len(data))
	}
	n, err := tree.Decode(data, &pos, c.cfg.Version, c.logger)
	if err != nil {
		return errors.Wrapf(err, "decoding %s", c.input)
	}
	c.logger.Debug("decoded", zap.String("input", c.input), zap.Int("offset", c.offset), zap.Int("consumed", pos-c.offset))
	if pos < len(data) {
		c.logger.Info("input continues after the value", zap.Int("position", pos), zap.Int("remaining", len(data)-pos))
	}
	text, err := renderTree(n, c.cfg.Format, c.cfg.Indent)
	if err != nil {
		return err
	}
	return c.writeOutput(text)
}

func (c *command) encode() error {
	text, err := c.readAll()
	if err != nil {
		return err
	}
	n, err := parseTree(text, c.cfg.Format)
	if err != nil {
		return errors.Wrapf(err, "parsing %s", c.input)
	}
	data, err := tree.Encode(n, c.cfg.Version, c.logger)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", c.input)
	}
	c.logger.Debug("encoded", zap.String("input", c.input), zap.Int("bytes", len(data)))
	if c.output == "" && isTerminal(c.stdout) {
		return errors.New("refusing to write binary AMF to a terminal, use -o")
	}
	if c.cfg.Zlib {
		if data, err = deflate(data); err != nil {
			return err
		}
	}
	return c.writeOutput(data)
}

// verify checks that decoding the value and encoding its tree gives back the same bytes.
func (c *command) verify() error {
	data, err := c.readBinary()
	if err != nil {
		return err
	}
	pos := c.offset
	if pos < 0 || pos > len(data) {
		return errors.Errorf("offset %d outside the %d byte input", pos, len(data))
	}
	n, err := tree.Decode(data, &pos, c.cfg.Version, c.logger)
	if err != nil {
		return errors.Wrapf(err, "decoding %s", c.input)
	}
	original := data[c.offset:pos]
	again, err := tree.Encode(n, c.cfg.Version, c.logger)
	if err != nil {
		return errors.Wrapf(err, "re-encoding %s", c.input)
	}
	if !bytes.Equal(original, again) {
		return errors.Errorf("re-encoding %s differs at byte %d", c.input, c.offset+firstDifference(original, again))
	}
	_, err = fmt.Fprintf(c.stdout, "ok: %d bytes blake3:%x\n", len(original), blake3.Sum256(original))
	return err
}

func firstDifference(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) < len(b) {
		return len(a)
	}
	return len(b)
}

func (c *command) readAll() ([]byte, error) {
	if c.input == "-" {
		data, err := io.ReadAll(c.stdin)
		return data, errors.Wrap(err, "reading standard input")
	}
	data, err := os.ReadFile(c.input)
	return data, errors.Wrapf(err, "reading %s", c.input)
}

// readBinary reads the AMF input, inflating it when zlib is on.
func (c *command) readBinary() ([]byte, error) {
	data, err := c.readAll()
	if err != nil || !c.cfg.Zlib {
		return data, err
	}
	return inflate(data)
}

func (c *command) writeOutput(data []byte) error {
	if c.output == "" {
		_, err := c.stdout.Write(data)
		return err
	}
	return errors.Wrapf(os.WriteFile(c.output, data, 0644), "writing %s", c.output)
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "zlib")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	return out, errors.Wrap(err, "zlib")
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "zlib")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "zlib")
	}
	return buf.Bytes(), nil
}

func renderTree(n *tree.Node, format string, indent int) ([]byte, error) {
	switch format {
	case "json":
		var out []byte
		var err error
		if indent == 0 {
			out, err = json.Marshal(n)
		} else {
			out, err = json.MarshalIndent(n, "", strings.Repeat(" ", indent))
		}
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(indent)
		if err := enc.Encode(n); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, errors.Errorf("unknown format %q", format)
}

func parseTree(text []byte, format string) (*tree.Node, error) {
	switch format {
	case "json":
		return tree.ParseJSON(text)
	case "yaml":
		n := &tree.Node{}
		if err := yaml.Unmarshal(text, n); err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, errors.Errorf("unknown format %q", format)
}
