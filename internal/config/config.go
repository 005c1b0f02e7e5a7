// Package config loads layered configuration: defaults, then the user file,
// then the project file, then SABE_* environment variables, then explicit
// flag overrides. Later layers win.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config is the full configuration tree.
type Config struct {
	General GeneralConfig `mapstructure:"general"`
	Gate    GateConfig    `mapstructure:"gate"`
	History HistoryConfig `mapstructure:"history"`
	Hacks   HacksConfig   `mapstructure:"hacks"`
	Log     LogConfig     `mapstructure:"log"`
}

// GeneralConfig holds resolution thresholds and session behavior.
type GeneralConfig struct {
	// DirectThreshold is the confidence at or above which a verb resolves
	// without an ambiguity confirmation.
	DirectThreshold int `mapstructure:"direct_threshold"`
	// RejectThreshold is the confidence below which a verb is rejected.
	RejectThreshold int `mapstructure:"reject_threshold"`
	// ConfirmTTLSecs is how long a pending confirmation stays answerable.
	ConfirmTTLSecs int `mapstructure:"confirm_ttl_seconds"`
	// CollaboratorTimeoutMS is the per-call budget for resource and cost
	// collaborators.
	CollaboratorTimeoutMS int    `mapstructure:"collaborator_timeout_ms"`
	SessionName           string `mapstructure:"session_name"`
}

// GateConfig holds the large-task limits.
type GateConfig struct {
	MaxTokens int `mapstructure:"max_tokens"`
	MaxSteps  int `mapstructure:"max_steps"`
}

// HistoryConfig controls the ledger.
type HistoryConfig struct {
	// MaxEntries bounds the ledger; 0 means unbounded.
	MaxEntries   int    `mapstructure:"max_entries"`
	DatabasePath string `mapstructure:"database_path"`
}

// HacksConfig controls the milestone postscripts.
type HacksConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	EnableExpertPanel bool     `mapstructure:"enable_expert_panel"`
	Disabled          []string `mapstructure:"disabled"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			DirectThreshold:       90,
			RejectThreshold:       30,
			ConfirmTTLSecs:        120,
			CollaboratorTimeoutMS: 500,
			SessionName:           "default",
		},
		Gate: GateConfig{
			MaxTokens: 50000,
			MaxSteps:  5,
		},
		History: HistoryConfig{
			MaxEntries:   100,
			DatabasePath: filepath.Join(".sabe", "state.db"),
		},
		Hacks: HacksConfig{
			Enabled:           true,
			EnableExpertPanel: false,
			Disabled:          []string{},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// ProjectDir is the project root; empty means the current directory.
	ProjectDir string
	// UserConfigPath overrides ~/.sabe/config.toml.
	UserConfigPath string
	// ProjectConfigPath overrides <project>/.sabe/config.toml.
	ProjectConfigPath string
	// FlagOverrides are applied last, keyed by dotted config path.
	FlagOverrides map[string]any
}

// Load builds a Config from all layers and validates it.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userPath, _ := ConfigPaths(opts.ProjectDir, opts.UserConfigPath)
	projectPath := projectConfigPath(opts.ProjectDir, opts.ProjectConfigPath)

	if err := mergeConfigFile(v, userPath); err != nil {
		return nil, fmt.Errorf("user config: %w", err)
	}
	if err := mergeConfigFile(v, projectPath); err != nil {
		return nil, fmt.Errorf("project config: %w", err)
	}

	if err := applyEnv(v); err != nil {
		return nil, err
	}

	for key, val := range opts.FlagOverrides {
		v.Set(key, val)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("general.direct_threshold", d.General.DirectThreshold)
	v.SetDefault("general.reject_threshold", d.General.RejectThreshold)
	v.SetDefault("general.confirm_ttl_seconds", d.General.ConfirmTTLSecs)
	v.SetDefault("general.collaborator_timeout_ms", d.General.CollaboratorTimeoutMS)
	v.SetDefault("general.session_name", d.General.SessionName)
	v.SetDefault("gate.max_tokens", d.Gate.MaxTokens)
	v.SetDefault("gate.max_steps", d.Gate.MaxSteps)
	v.SetDefault("history.max_entries", d.History.MaxEntries)
	v.SetDefault("history.database_path", d.History.DatabasePath)
	v.SetDefault("hacks.enabled", d.Hacks.Enabled)
	v.SetDefault("hacks.enable_expert_panel", d.Hacks.EnableExpertPanel)
	v.SetDefault("hacks.disabled", d.Hacks.Disabled)
	v.SetDefault("log.level", d.Log.Level)
}

// envBindings maps dotted config keys to their SABE_* variables.
var envBindings = map[string]string{
	"general.direct_threshold":        "SABE_DIRECT_THRESHOLD",
	"general.reject_threshold":        "SABE_REJECT_THRESHOLD",
	"general.confirm_ttl_seconds":     "SABE_CONFIRM_TTL_SECONDS",
	"general.collaborator_timeout_ms": "SABE_COLLABORATOR_TIMEOUT_MS",
	"general.session_name":            "SABE_SESSION",
	"gate.max_tokens":                 "SABE_MAX_TOKENS",
	"gate.max_steps":                  "SABE_MAX_STEPS",
	"history.max_entries":             "SABE_MAX_ENTRIES",
	"history.database_path":           "SABE_DB",
	"log.level":                       "SABE_LOG_LEVEL",
}

// applyEnv copies set SABE_* variables into the viper tree, parsing them
// to the key's expected type so a bad value fails loudly at load time.
func applyEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		raw, ok := os.LookupEnv(env)
		if !ok || raw == "" {
			continue
		}
		parsed, err := ParseValue(key, raw)
		if err != nil {
			return fmt.Errorf("env %s: %w", env, err)
		}
		v.Set(key, parsed)
	}
	return nil
}

// ConfigPaths returns the user and project config file paths.
func ConfigPaths(projectDir, userOverride string) (userPath, projectPath string) {
	userPath = userOverride
	if userPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			userPath = filepath.Join(home, ".sabe", "config.toml")
		}
	}
	projectPath = projectConfigPath(projectDir, "")
	return userPath, projectPath
}

func projectConfigPath(projectDir, override string) string {
	if override != "" {
		return override
	}
	return filepath.Join(projectDir, ".sabe", "config.toml")
}

// mergeConfigFile merges a TOML file into v. Empty paths and missing files
// are no-ops; unreadable or invalid files are errors.
func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("merge %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations that cannot work.
func Validate(cfg *Config) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if cfg.General.DirectThreshold < 1 || cfg.General.DirectThreshold > 100 {
		add("general.direct_threshold must be in 1..100, got %d", cfg.General.DirectThreshold)
	}
	if cfg.General.RejectThreshold < 0 || cfg.General.RejectThreshold > 100 {
		add("general.reject_threshold must be in 0..100, got %d", cfg.General.RejectThreshold)
	}
	if cfg.General.RejectThreshold >= cfg.General.DirectThreshold {
		add("general.reject_threshold (%d) must be below general.direct_threshold (%d)",
			cfg.General.RejectThreshold, cfg.General.DirectThreshold)
	}
	if cfg.General.ConfirmTTLSecs < 1 {
		add("general.confirm_ttl_seconds must be positive, got %d", cfg.General.ConfirmTTLSecs)
	}
	if cfg.General.CollaboratorTimeoutMS < 1 {
		add("general.collaborator_timeout_ms must be positive, got %d", cfg.General.CollaboratorTimeoutMS)
	}
	if cfg.Gate.MaxTokens < 1 {
		add("gate.max_tokens must be positive, got %d", cfg.Gate.MaxTokens)
	}
	if cfg.Gate.MaxSteps < 1 {
		add("gate.max_steps must be positive, got %d", cfg.Gate.MaxSteps)
	}
	if cfg.History.MaxEntries < 0 {
		add("history.max_entries must not be negative, got %d", cfg.History.MaxEntries)
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		add("log.level must be one of debug, info, warn, error; got %q", cfg.Log.Level)
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

type valueKind int

const (
	kindInt valueKind = iota
	kindBool
	kindString
	kindStringSlice
)

// keyKinds declares the type of every settable key.
var keyKinds = map[string]valueKind{
	"general.direct_threshold":        kindInt,
	"general.reject_threshold":        kindInt,
	"general.confirm_ttl_seconds":     kindInt,
	"general.collaborator_timeout_ms": kindInt,
	"general.session_name":            kindString,
	"gate.max_tokens":                 kindInt,
	"gate.max_steps":                  kindInt,
	"history.max_entries":             kindInt,
	"history.database_path":           kindString,
	"hacks.enabled":                   kindBool,
	"hacks.enable_expert_panel":       kindBool,
	"hacks.disabled":                  kindStringSlice,
	"log.level":                       kindString,
}

// ParseValue converts a raw string to the typed value for a config key.
func ParseValue(key, raw string) (any, error) {
	kind, ok := keyKinds[key]
	if !ok {
		return nil, fmt.Errorf("unsupported config key %q", key)
	}
	return parseValueByKind(raw, kind)
}

func parseValueByKind(raw string, kind valueKind) (any, error) {
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", raw)
		}
		return n, nil
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %q", raw)
		}
		return b, nil
	case kindString:
		return raw, nil
	case kindStringSlice:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		if out == nil {
			out = []string{}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value kind %d", kind)
}

// GetValue resolves a dotted key against a loaded config.
func GetValue(cfg *Config, key string) (any, bool) {
	switch key {
	case "general":
		return cfg.General, true
	case "general.direct_threshold":
		return cfg.General.DirectThreshold, true
	case "general.reject_threshold":
		return cfg.General.RejectThreshold, true
	case "general.confirm_ttl_seconds":
		return cfg.General.ConfirmTTLSecs, true
	case "general.collaborator_timeout_ms":
		return cfg.General.CollaboratorTimeoutMS, true
	case "general.session_name":
		return cfg.General.SessionName, true
	case "gate":
		return cfg.Gate, true
	case "gate.max_tokens":
		return cfg.Gate.MaxTokens, true
	case "gate.max_steps":
		return cfg.Gate.MaxSteps, true
	case "history":
		return cfg.History, true
	case "history.max_entries":
		return cfg.History.MaxEntries, true
	case "history.database_path":
		return cfg.History.DatabasePath, true
	case "hacks":
		return cfg.Hacks, true
	case "hacks.enabled":
		return cfg.Hacks.Enabled, true
	case "hacks.enable_expert_panel":
		return cfg.Hacks.EnableExpertPanel, true
	case "hacks.disabled":
		return cfg.Hacks.Disabled, true
	case "log":
		return cfg.Log, true
	case "log.level":
		return cfg.Log.Level, true
	}
	return nil, false
}

// WriteValue sets one dotted key in a TOML file, creating the file and its
// directory when missing and preserving everything else in the file.
func WriteValue(path, key string, value any) error {
	if path == "" {
		return fmt.Errorf("config path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tree := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &tree); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	segments := strings.Split(key, ".")
	node := tree
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg]
		if !ok {
			next := map[string]any{}
			node[seg] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("config key %s: %q is not a table", key, seg)
		}
		node = next
	}
	node[segments[len(segments)-1]] = value

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(tree); err != nil {
		return fmt.Errorf("encode config %s: %w", path, err)
	}
	return nil
}
