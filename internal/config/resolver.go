// Package config resolves commlog settings from, in order of precedence,
// CLI flags, environment variables, the YAML config file, and built-in
// defaults. Each resolved value remembers where it came from so `commlog
// stats` can show effective configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hallamw/commlog/internal/ingest"
	"github.com/hallamw/commlog/internal/store"
)

type ValueSource string

const (
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries CLI-provided overrides. Empty strings mean "not
// set on the command line".
type ResolveOptions struct {
	ConfigPath       string
	CLIDBPath        string
	CLIBatchSize     string
	CLISkipDuplicate string // "true"/"false"
}

type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath         ResolvedValue `json:"db_path"`
	BatchSize      ResolvedValue `json:"batch_size"`
	SkipDuplicates ResolvedValue `json:"skip_duplicates"`
}

type fileConfig struct {
	DBPath string `yaml:"db_path"`
	Import struct {
		BatchSize      int   `yaml:"batch_size"`
		SkipDuplicates *bool `yaml:"skip_duplicates"`
	} `yaml:"import"`
}

// DefaultConfigPath is ~/.commlog/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".commlog", "config.yaml")
}

// ResolveConfig merges all sources. A missing config file is fine; a
// malformed one is an error.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		if cfg.Import.BatchSize > 0 {
			apply(&out.BatchSize, strconv.Itoa(cfg.Import.BatchSize), SourceConfig, path)
		}
		if cfg.Import.SkipDuplicates != nil {
			apply(&out.SkipDuplicates, strconv.FormatBool(*cfg.Import.SkipDuplicates), SourceConfig, path)
		}
	}

	applyEnv(&out.DBPath, "COMMLOG_DB")
	applyEnv(&out.BatchSize, "COMMLOG_BATCH_SIZE")
	applyEnv(&out.SkipDuplicates, "COMMLOG_SKIP_DUPLICATES")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "")
	apply(&out.BatchSize, opts.CLIBatchSize, SourceCLI, "")
	apply(&out.SkipDuplicates, opts.CLISkipDuplicate, SourceCLI, "")

	applyDefault(&out.DBPath, store.DefaultDBPath)
	applyDefault(&out.BatchSize, strconv.Itoa(ingest.DefaultBatchSize))
	applyDefault(&out.SkipDuplicates, "true")

	return out, nil
}

// BatchSizeValue parses the resolved batch size.
func (c ResolvedConfig) BatchSizeValue() (int, error) {
	n, err := strconv.Atoi(c.BatchSize.Value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid batch size %q (from %s)", c.BatchSize.Value, c.BatchSize.Source)
	}
	return n, nil
}

// SkipDuplicatesValue parses the resolved duplicate-check toggle.
func (c ResolvedConfig) SkipDuplicatesValue() (bool, error) {
	b, err := strconv.ParseBool(c.SkipDuplicates.Value)
	if err != nil {
		return false, fmt.Errorf("invalid skip_duplicates %q (from %s)", c.SkipDuplicates.Value, c.SkipDuplicates.Source)
	}
	return b, nil
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &fileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func apply(dst *ResolvedValue, value string, source ValueSource, from string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	dst.Value = value
	dst.Source = source
	dst.From = from
}

func applyEnv(dst *ResolvedValue, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		dst.Value = v
		dst.Source = SourceEnv
		dst.From = key
	}
}

func applyDefault(dst *ResolvedValue, value string) {
	if dst.Value == "" {
		dst.Value = value
		dst.Source = SourceDefault
	}
}
