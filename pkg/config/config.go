// Package config handles liveedit.toml runtime configuration.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/daimatz/liveedit/pkg/eval"
	"github.com/daimatz/liveedit/pkg/interp"
	"github.com/daimatz/liveedit/pkg/liveedit"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "liveedit.toml"

// DefaultAPILevel is the host API level assumed when none is configured.
const DefaultAPILevel = 30

// Config represents a liveedit.toml file.
type Config struct {
	Runtime   Runtime    `toml:"runtime"`
	Logging   Logging    `toml:"logging"`
	Quirks    Quirks     `toml:"quirks"`
	Backports []Backport `toml:"backport"`

	// Path is the file the configuration was read from (set at load time).
	Path string `toml:"-"`
}

// Runtime configures the interpreter.
type Runtime struct {
	APILevel     int  `toml:"api-level"`
	InterpretAll bool `toml:"interpret-all"`
	MaxDepth     int  `toml:"max-depth"`
}

// Logging configures commonlog.
type Logging struct {
	Verbosity      int    `toml:"verbosity"`
	Path           string `toml:"path"`
	TraceEvaluator bool   `toml:"trace-evaluator"`
}

// Quirks adds static-field owner renames to the built-in table.
type Quirks struct {
	StaticFieldOwners map[string]string `toml:"static-field-owners"`
}

// Backport is an extra polyfill entry.
type Backport struct {
	Owner      string `toml:"owner"`
	Name       string `toml:"name"`
	Descriptor string `toml:"descriptor"`
	Target     string `toml:"target"`
	Introduced int    `toml:"introduced"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Runtime.APILevel == 0 {
		c.Runtime.APILevel = DefaultAPILevel
	}
	if c.Runtime.MaxDepth == 0 {
		c.Runtime.MaxDepth = interp.DefaultMaxDepth
	}
	if c.Logging.Verbosity == 0 {
		c.Logging.Verbosity = 1
	}
	for i := range c.Backports {
		if c.Backports[i].Target == "" {
			c.Backports[i].Target = eval.BackportsClass
		}
		// No introducing level: the host never has the method.
		if c.Backports[i].Introduced == 0 {
			c.Backports[i].Introduced = math.MaxInt32
		}
	}
}

// Load parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// Parse decodes configuration text and validates it.
func Parse(data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Runtime.APILevel < 0 {
		return fmt.Errorf("runtime.api-level must not be negative, got %d", c.Runtime.APILevel)
	}
	if c.Runtime.MaxDepth < 0 {
		return fmt.Errorf("runtime.max-depth must not be negative, got %d", c.Runtime.MaxDepth)
	}
	for i, b := range c.Backports {
		if b.Owner == "" || b.Name == "" || b.Descriptor == "" {
			return fmt.Errorf("backport %d: owner, name and descriptor are required", i)
		}
	}
	return nil
}

// FindAndLoad walks up from startDir looking for liveedit.toml. It returns
// Default() when there is none.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Polyfills converts the configured backports.
func (c *Config) Polyfills() []eval.Polyfill {
	out := make([]eval.Polyfill, len(c.Backports))
	for i, b := range c.Backports {
		out[i] = eval.Polyfill{
			Owner:      b.Owner,
			Name:       b.Name,
			Descriptor: b.Descriptor,
			Target:     b.Target,
			Introduced: b.Introduced,
		}
	}
	return out
}

// Options turns the configuration into context options.
func (c *Config) Options() []liveedit.Option {
	return []liveedit.Option{
		liveedit.WithBackports(eval.NewBackportTable(c.Runtime.APILevel, c.Polyfills()...)),
		liveedit.WithQuirks(eval.NewQuirks(c.Quirks.StaticFieldOwners)),
		liveedit.WithInterpretAll(c.Runtime.InterpretAll),
		liveedit.WithMaxDepth(c.Runtime.MaxDepth),
		liveedit.WithTrace(c.Logging.TraceEvaluator),
	}
}
