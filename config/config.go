// Package config loads the stylusport YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/morikuni/failure/v2"
	"github.com/stylusport/handbook-mcp/scaffold"
	"github.com/stylusport/handbook-mcp/search"
	"gopkg.in/yaml.v3"
)

// RelPath is the config file location under the XDG config directories.
const RelPath = "stylusport/config.yaml"

// Config holds the stylusport configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Search   SearchConfig   `yaml:"search"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Scaffold ScaffoldConfig `yaml:"scaffold"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds the protocol server settings.
type ServerConfig struct {
	Workers         int    `yaml:"workers"`
	Framing         string `yaml:"framing"` // auto, line, header (default: auto)
	MaxMessageBytes int    `yaml:"max_message_bytes"`
}

// SearchConfig holds BM25 tuning.
type SearchConfig struct {
	K1           float64       `yaml:"k1"`
	DefaultLimit int           `yaml:"default_limit"`
	MaxLimit     int           `yaml:"max_limit"`
	Fields       []FieldConfig `yaml:"fields"`
}

// FieldConfig tunes one indexed field. An empty list keeps the built-in
// title, body and code fields.
type FieldConfig struct {
	Name   string  `yaml:"name"`
	Mode   string  `yaml:"mode"` // prose, code
	Weight float64 `yaml:"weight"`
	B      float64 `yaml:"b"`
}

// CorpusConfig selects the chapters served as resources.
type CorpusConfig struct {
	Dir string `yaml:"dir"` // empty: built-in handbook
}

// ScaffoldConfig pins crate versions for the generators.
type ScaffoldConfig struct {
	Versions scaffold.Versions `yaml:"versions"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // written on shutdown when set
}

// Default returns a configuration with every default applied.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// Load reads the configuration at path. An empty path searches the XDG
// config directories and falls back to defaults when no file exists.
func Load(path string) (Config, error) {
	var data []byte
	if path == "" {
		found, err := xdg.SearchConfigFile(RelPath)
		if err == nil {
			path = found
		}
	}
	if path != "" {
		b, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, failure.Wrap(err,
				failure.WithCode(ReadFailure),
				failure.Message("failed to read config"),
				failure.Context{"path": path},
			)
		}
		data = expandEnvVars(b)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, failure.Wrap(err,
			failure.WithCode(InvalidConfig),
			failure.Message("failed to parse config"),
			failure.Context{"path": path},
		)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Server.Workers <= 0 {
		c.Server.Workers = 4
	}
	if c.Server.Framing == "" {
		c.Server.Framing = "auto"
	}
	if c.Server.MaxMessageBytes <= 0 {
		c.Server.MaxMessageBytes = 4 << 20
	}
	if c.Search.K1 <= 0 {
		c.Search.K1 = search.DefaultParams().K1
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 5
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 50
	}
	if len(c.Search.Fields) == 0 {
		for _, f := range search.DefaultParams().Fields {
			c.Search.Fields = append(c.Search.Fields, FieldConfig{
				Name:   f.Name,
				Mode:   f.Mode.String(),
				Weight: f.Weight,
				B:      f.B,
			})
		}
	}
	for i := range c.Search.Fields {
		if c.Search.Fields[i].Mode == "" {
			c.Search.Fields[i].Mode = search.Prose.String()
		}
	}
	c.Scaffold.Versions = c.Scaffold.Versions.WithDefaults()
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Server.Framing {
	case "auto", "line", "header":
	default:
		return invalid("server.framing must be auto, line or header, got %q", c.Server.Framing)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return invalid("search.default_limit %d exceeds search.max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	for _, f := range c.Search.Fields {
		if _, ok := search.ParseMode(f.Mode); !ok {
			return invalid("search.fields.%s.mode must be prose or code, got %q", f.Name, f.Mode)
		}
	}
	if _, err := c.SearchParams(); err != nil {
		return failure.Wrap(err, failure.WithCode(InvalidConfig))
	}
	return nil
}

// SearchParams converts the search section into index parameters.
func (c *Config) SearchParams() (search.Params, error) {
	p := search.Params{K1: c.Search.K1}
	for _, f := range c.Search.Fields {
		mode, ok := search.ParseMode(f.Mode)
		if !ok {
			return search.Params{}, failure.New(search.InvalidParams,
				failure.Message("unknown field mode"),
				failure.Context{"field": f.Name, "mode": f.Mode},
			)
		}
		p.Fields = append(p.Fields, search.FieldSpec{Name: f.Name, Mode: mode, Weight: f.Weight, B: f.B})
	}
	if err := p.Validate(); err != nil {
		return search.Params{}, err
	}
	return p, nil
}

func invalid(format string, args ...any) error {
	return failure.New(InvalidConfig, failure.Message(fmt.Sprintf(format, args...)))
}

// versionEnv maps STYLUSPORT_MCP_<DEP>_VERSION variables to the version
// they override.
func versionEnv(v *scaffold.Versions) map[string]*string {
	return map[string]*string{
		"STYLUSPORT_MCP_ALLOY_PRIMITIVES_VERSION":    &v.AlloyPrimitives,
		"STYLUSPORT_MCP_ALLOY_SOL_TYPES_VERSION":     &v.AlloySolTypes,
		"STYLUSPORT_MCP_OPENZEPPELIN_STYLUS_VERSION": &v.OpenZeppelinStylus,
		"STYLUSPORT_MCP_STYLUS_SDK_VERSION":          &v.StylusSDK,
		"STYLUSPORT_MCP_ARBITRARY_VERSION":           &v.Arbitrary,
		"STYLUSPORT_MCP_MOTSU_VERSION":               &v.Motsu,
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for key, dst := range versionEnv(&c.Scaffold.Versions) {
		if val, ok := lookup(key); ok && val != "" {
			*dst = val
		}
	}
	if val, ok := lookup("STYLUSPORT_WORKERS"); ok && val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return failure.New(InvalidConfig,
				failure.Message("STYLUSPORT_WORKERS must be a positive integer"),
				failure.Context{"value": val},
			)
		}
		c.Server.Workers = n
	}
	if val, ok := lookup("STYLUSPORT_CORPUS_DIR"); ok && val != "" {
		c.Corpus.Dir = val
	}
	if val, ok := lookup("STYLUSPORT_LOG_LEVEL"); ok && val != "" {
		c.Log.Level = val
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
