package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/ritzau/agentgraph/pkg/agentgraph"
	"github.com/spf13/pflag"
)

// DefaultFile is the optional config file read from the working directory.
const DefaultFile = "agentgraph.toml"

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels, e.g. AGENTGRAPH_BOTTLENECK__IN_DEGREE=4.
const EnvPrefix = "AGENTGRAPH_"

// Output formats for the CLI report.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatDOT  = "dot"
)

// Config holds all configuration for the application
type Config struct {
	Manifest   string     `koanf:"manifest"`
	WebMode    bool       `koanf:"web"`
	Port       int        `koanf:"port"`
	Watch      bool       `koanf:"watch"`
	Format     string     `koanf:"format"`
	Verbosity  string     `koanf:"verbosity"`
	VerboseCnt int        `koanf:"verbose"`
	Log        Log        `koanf:"log"`
	Bottleneck Bottleneck `koanf:"bottleneck"`
	Debounce   Debounce   `koanf:"debounce"`
}

// Log selects the log output format.
type Log struct {
	JSON bool `koanf:"json"`
}

// Bottleneck mirrors agentgraph.BottleneckPolicy.
type Bottleneck struct {
	Centrality float64 `koanf:"centrality"`
	InDegree   int     `koanf:"in_degree"`
	OutDegree  int     `koanf:"out_degree"`
}

// Debounce tunes manifest hot reload. Values are milliseconds.
type Debounce struct {
	QuietMs   int `koanf:"quiet_ms"`
	MaxWaitMs int `koanf:"max_wait_ms"`
}

// flagKeys maps flag names that differ from their config key.
var flagKeys = map[string]string{
	"json":           "log.json",
	"max-centrality": "bottleneck.centrality",
	"max-in-degree":  "bottleneck.in_degree",
	"max-out-degree": "bottleneck.out_degree",
}

// RegisterFlags declares the command line flags understood by Load.
func RegisterFlags(f *pflag.FlagSet) {
	f.StringP("manifest", "m", "", "Path to the agent manifest (YAML)")
	f.Bool("web", false, "Serve the HTTP API instead of printing a report")
	f.IntP("port", "p", 8080, "Port for the HTTP API")
	f.Bool("watch", false, "Reload the manifest when it changes (web mode)")
	f.StringP("format", "f", FormatText, "Report format: text, json or dot")
	f.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.Bool("json", false, "Log in JSON")
	f.Float64("max-centrality", 0.5, "Flag agents whose betweenness exceeds this")
	f.Int("max-in-degree", 2, "Flag agents with more dependents than this")
	f.Int("max-out-degree", 2, "Flag agents with more dependencies than this")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(f, DefaultFile)
}

// LoadFile is Load with an explicit config file path. A missing file is
// not an error; a malformed one is.
func LoadFile(f *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	policy := agentgraph.DefaultBottleneckPolicy()
	defaults := map[string]any{
		"manifest":  "",
		"web":       false,
		"port":      8080,
		"watch":     false,
		"format":    FormatText,
		"verbosity": "",
		"verbose":   0,
		"log": map[string]any{
			"json": false,
		},
		"bottleneck": map[string]any{
			"centrality": policy.MaxCentrality,
			"in_degree":  policy.MaxInDegree,
			"out_degree": policy.MaxOutDegree,
		},
		"debounce": map[string]any{
			"quiet_ms":    200,
			"max_wait_ms": 2000,
		},
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	// 3. Environment Variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, flagKey(f)), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey turns AGENTGRAPH_BOTTLENECK__IN_DEGREE into bottleneck.in_degree.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func flagKey(set *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key := f.Name
		if mapped, ok := flagKeys[key]; ok {
			key = mapped
		}
		return key, posflag.FlagVal(set, f)
	}
}

// Validate checks values that the rest of the program relies on.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON, FormatDOT:
	default:
		return fmt.Errorf("unknown format %q (want text, json or dot)", c.Format)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Bottleneck.Centrality < 0 || c.Bottleneck.InDegree < 0 || c.Bottleneck.OutDegree < 0 {
		return fmt.Errorf("bottleneck thresholds must not be negative")
	}
	return nil
}

// Policy returns the configured bottleneck thresholds.
func (c *Config) Policy() agentgraph.BottleneckPolicy {
	return agentgraph.BottleneckPolicy{
		MaxCentrality: c.Bottleneck.Centrality,
		MaxInDegree:   c.Bottleneck.InDegree,
		MaxOutDegree:  c.Bottleneck.OutDegree,
	}
}

// QuietPeriod is how long the manifest must stay unchanged before a reload.
func (c *Config) QuietPeriod() time.Duration {
	return time.Duration(c.Debounce.QuietMs) * time.Millisecond
}

// MaxWait caps how long a burst of manifest changes can delay a reload.
func (c *Config) MaxWait() time.Duration {
	return time.Duration(c.Debounce.MaxWaitMs) * time.Millisecond
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]any
}

func makeMapProvider(m map[string]any) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]any, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
