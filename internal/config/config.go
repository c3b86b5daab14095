// Package config loads countbot's configuration.
//
// Values come from three layers, later ones winning: built-in defaults,
// the YAML file, then COUNTBOT_* environment variables. The merged result
// is validated against an embedded CUE schema before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/countbot/internal/expr"
	"github.com/roach88/countbot/internal/game"
	"github.com/roach88/countbot/internal/score"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "COUNTBOT_"

// Config is the complete runtime configuration.
type Config struct {
	// Database is the SQLite file the game is checkpointed to.
	Database string `yaml:"database" env:"DATABASE"`

	// Listen is the HTTP listen address. Empty disables the HTTP adapter.
	Listen string `yaml:"listen" env:"LISTEN"`

	Policy             string        `yaml:"policy" env:"POLICY"`
	OperandCeiling     int           `yaml:"operand_ceiling" env:"OPERAND_CEILING"`
	EvalTimeout        time.Duration `yaml:"eval_timeout" env:"EVAL_TIMEOUT"`
	MaxConcurrentEvals int           `yaml:"max_concurrent_evals" env:"MAX_CONCURRENT_EVALS"`
	MaxExpressionBytes int           `yaml:"max_expression_bytes" env:"MAX_EXPRESSION_BYTES"`
	LogFormat          string        `yaml:"log_format" env:"LOG_FORMAT"`

	// Milestones adds special numbers to, or retags numbers of, the
	// default table. NoDefaultMilestones starts from an empty table.
	Milestones          []Milestone `yaml:"milestones"`
	NoDefaultMilestones bool        `yaml:"no_default_milestones" env:"NO_DEFAULT_MILESTONES"`

	// HundredTag overrides the tag for multiples of 100.
	HundredTag string `yaml:"hundred_tag" env:"HUNDRED_TAG"`

	// Glyphs adds or overrides tag glyphs used in celebration messages.
	Glyphs map[string]string `yaml:"glyphs"`

	// Names maps participant IDs to display names for the stats report.
	Names map[string]string `yaml:"names"`
}

// Milestone is one special number and its reaction tag.
type Milestone struct {
	Value int64  `yaml:"value"`
	Tag   string `yaml:"tag"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Database:           "countbot.db",
		Listen:             ":8080",
		Policy:             string(game.PolicyContinue),
		OperandCeiling:     score.DefaultOperandCeiling,
		EvalTimeout:        expr.DefaultTimeout,
		MaxConcurrentEvals: 16,
		MaxExpressionBytes: expr.DefaultMaxBytes,
		LogFormat:          "text",
	}
}

// Load reads the configuration. An empty path skips the file layer; a
// path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GamePolicy returns the configured policy.
func (c *Config) GamePolicy() game.Policy {
	p, err := game.ParsePolicy(c.Policy)
	if err != nil {
		// Validate rejects unknown policies; fall back for unvalidated configs.
		return game.PolicyContinue
	}
	return p
}

// Table builds the milestone table.
func (c *Config) Table() game.Table {
	table := game.DefaultTable()
	if c.NoDefaultMilestones {
		table.Special = make(map[int64]game.ReactionTag)
	}
	for _, m := range c.Milestones {
		table.Special[m.Value] = game.ReactionTag(m.Tag)
	}
	if c.HundredTag != "" {
		table.HundredTag = game.ReactionTag(c.HundredTag)
	}
	for tag, glyph := range c.Glyphs {
		table.Glyphs[game.ReactionTag(tag)] = glyph
	}
	return table
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")
