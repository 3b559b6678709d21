// Package appconfig loads the TOML configuration of the videocfg command:
// where layers are stored, which capabilities to assume and which extra
// expression rules to run during validation.
package appconfig

import (
	"bytes"
	_ "embed"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	videocfg "github.com/goliatone/go-videoconfig"
	"github.com/goliatone/go-videoconfig/pkg/state"
)

//go:embed sample_config.toml
var sampleConfig string

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// Store selects the layer backend.
type Store struct {
	Backend string `toml:"backend" validate:"required,oneof=toml sqlite memory"`
	Dir     string `toml:"dir" validate:"required_if=Backend toml"`
	Path    string `toml:"path" validate:"required_if=Backend sqlite"`
}

// Capabilities describes the backend when no live probe is available. File
// points at a JSON capability report and takes precedence over the inline
// fields.
type Capabilities struct {
	File          string   `toml:"file"`
	Adapters      []string `toml:"adapters" validate:"dive,required"`
	AAModes       []int    `toml:"aa_modes" validate:"dive,gt=0"`
	Stereoscopy   bool     `toml:"stereoscopy"`
	Display       string   `toml:"display" validate:"omitempty,oneof=none rift oculus vr920"`
	MaxAnisotropy int      `toml:"max_anisotropy" validate:"gte=0,lte=16"`
}

// Rule is an expression rule appended to the built-in rule table.
type Rule struct {
	Name  string `toml:"name" validate:"required"`
	When  string `toml:"when" validate:"required"`
	Key   string `toml:"key" validate:"required"`
	Value any    `toml:"value" validate:"required"`
}

// Config is the videocfg command configuration.
type Config struct {
	Store        Store        `toml:"store"`
	Capabilities Capabilities `toml:"capabilities"`
	Evaluator    string       `toml:"evaluator" validate:"oneof=expr cel js"`
	Rules        []Rule       `toml:"rules" validate:"dive"`
	Actor        string       `toml:"actor" validate:"omitempty,uuid"`
	Channel      string       `toml:"channel"`
	LogLevel     string       `toml:"log_level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Store: Store{Backend: "toml", Dir: "~/.config/videocfg/layers"},
		Capabilities: Capabilities{
			Adapters:      []string{"Default Adapter"},
			AAModes:       []int{1, 2, 4, 8},
			Stereoscopy:   true,
			MaxAnisotropy: 16,
		},
		Evaluator: "expr",
		Channel:   "cli",
		LogLevel:  "warn",
	}
}

// DefaultPath returns ~/.config/videocfg/config.toml.
func DefaultPath() (string, error) {
	return ExpandPath("~/.config/videocfg/config.toml")
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

// Load reads path (or the default location when empty) over Default. A
// missing file at the default location is not an error; the returned bool
// reports whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, "", false, err
		}
	} else {
		expanded, err := ExpandPath(path)
		if err != nil {
			return nil, "", false, err
		}
		path = expanded
	}

	cfg := Default()
	found := true
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		found = false
	case err != nil:
		return nil, path, false, fmt.Errorf("read config %s: %w", path, err)
	default:
		decoder := toml.NewDecoder(bytes.NewReader(raw))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, path, true, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, path, found, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, found, err
	}
	return &cfg, path, found, nil
}

func (c *Config) normalize() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Evaluator = strings.ToLower(strings.TrimSpace(c.Evaluator))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Capabilities.Display = strings.ToLower(strings.TrimSpace(c.Capabilities.Display))
	for _, target := range []*string{&c.Store.Dir, &c.Store.Path, &c.Capabilities.File} {
		expanded, err := ExpandPath(*target)
		if err != nil {
			return err
		}
		*target = expanded
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			problems := make([]string, 0, len(fieldErrs))
			for _, fieldErr := range fieldErrs {
				problems = append(problems, fmt.Sprintf("%s fails %q", fieldErr.Namespace(), fieldErr.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Evaluator == "js" && !videocfg.JSEvaluatorAvailable() {
		return errors.New("invalid config: evaluator \"js\" requires a build with the js_eval tag")
	}
	return nil
}

// OpenStore opens the configured layer backend. The returned closer is
// never nil.
func (c *Config) OpenStore(ctx context.Context) (state.Store, io.Closer, error) {
	switch c.Store.Backend {
	case "memory":
		return state.NewMemoryStore(), nopCloser{}, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(c.Store.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
		store, err := state.OpenSQLite(ctx, c.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		store, err := state.NewFileStore(c.Store.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// CapabilityDescriptor builds the configured capabilities.
func (c *Config) CapabilityDescriptor() (videocfg.CapabilityDescriptor, error) {
	if c.Capabilities.File != "" {
		raw, err := os.ReadFile(c.Capabilities.File)
		if err != nil {
			return videocfg.CapabilityDescriptor{}, fmt.Errorf("read capability report: %w", err)
		}
		return videocfg.ParseCapabilityReport(c.Capabilities.File, raw)
	}
	display, err := videocfg.ParseDisplayClass(c.Capabilities.Display)
	if err != nil {
		return videocfg.CapabilityDescriptor{}, err
	}
	return videocfg.CapabilityDescriptor{
		Adapters:            append([]string(nil), c.Capabilities.Adapters...),
		AAModes:             append([]int(nil), c.Capabilities.AAModes...),
		SupportsStereoscopy: c.Capabilities.Stereoscopy,
		Display:             display,
		MaxAnisotropy:       c.Capabilities.MaxAnisotropy,
	}, nil
}

// NewEvaluator returns the configured expression engine with the
// capability helper functions installed.
func (c *Config) NewEvaluator() (videocfg.Evaluator, error) {
	engine, err := videocfg.ParseEngine(c.Evaluator)
	if err != nil {
		return nil, err
	}
	return videocfg.NewEvaluator(engine, videocfg.WithFunctions(videocfg.CapabilityFunctions()))
}

// ExtraRules compiles the configured rules with the configured engine.
func (c *Config) ExtraRules(logger videocfg.EvaluatorLogger) ([]videocfg.ValidationRule, error) {
	if len(c.Rules) == 0 {
		return nil, nil
	}
	evaluator, err := c.NewEvaluator()
	if err != nil {
		return nil, err
	}
	rules := make([]videocfg.ValidationRule, 0, len(c.Rules))
	for _, spec := range c.Rules {
		rule, err := videocfg.NewExprRule(spec.Name, spec.When, spec.Key, spec.Value,
			videocfg.WithRuleEvaluator(evaluator),
			videocfg.WithRuleLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
