package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/torresjeff/amf"
	"gopkg.in/yaml.v3"
)

var Debug = false

// MaxNestingDepth bounds how deep objects and arrays may nest while decoding or encoding.
const MaxNestingDepth = 512

const DefaultFormat = "json"
const DefaultIndent = 4
const DefaultVersion uint8 = 3

// Tool holds the defaults amftool reads from a YAML file.
type Tool struct {
	// Version is the AMF version used when no -v flag is given (0 or 3).
	Version uint8 `yaml:"version"`
	// Format is the tree rendering, "json" or "yaml".
	Format string `yaml:"format"`
	Indent int    `yaml:"indent"`
	// Zlib treats binary inputs and outputs as zlib streams.
	Zlib  bool `yaml:"zlib"`
	Debug bool `yaml:"debug"`
}

// Default returns the tool configuration used when no file is given.
func Default() Tool {
	return Tool{
		Version: DefaultVersion,
		Format:  DefaultFormat,
		Indent:  DefaultIndent,
		Debug:   Debug,
	}
}

// Load reads a tool configuration from path. Fields missing from the file keep their defaults.
func Load(path string) (Tool, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "config: reading %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parsing %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config: %s", path)
	}
	return cfg, nil
}

// Validate checks that every field holds a usable value.
func (t Tool) Validate() error {
	if !amf.ValidVersion(t.Version) {
		return errors.Errorf("unsupported AMF version %d", t.Version)
	}
	switch t.Format {
	case "json", "yaml":
	default:
		return errors.Errorf("unknown format %q", t.Format)
	}
	if t.Indent < 0 || t.Indent > 16 {
		return errors.Errorf("indent %d out of range", t.Indent)
	}
	return nil
}
