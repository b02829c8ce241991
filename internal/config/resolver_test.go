package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/hallamw/commlog/internal/ingest"
	"github.com/hallamw/commlog/internal/store"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestResolveConfig_Defaults(t *testing.T) {
	cfg, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	if err != nil {
		t.Fatalf("ResolveConfig failed: %v", err)
	}

	if cfg.DBPath.Value != store.DefaultDBPath || cfg.DBPath.Source != SourceDefault {
		t.Errorf("unexpected db path: %+v", cfg.DBPath)
	}
	if cfg.BatchSize.Value != strconv.Itoa(ingest.DefaultBatchSize) {
		t.Errorf("unexpected batch size: %+v", cfg.BatchSize)
	}
	if cfg.SkipDuplicates.Value != "true" || cfg.SkipDuplicates.Source != SourceDefault {
		t.Errorf("unexpected skip_duplicates: %+v", cfg.SkipDuplicates)
	}

	n, err := cfg.BatchSizeValue()
	if err != nil || n != ingest.DefaultBatchSize {
		t.Errorf("BatchSizeValue = %d, %v", n, err)
	}
	b, err := cfg.SkipDuplicatesValue()
	if err != nil || !b {
		t.Errorf("SkipDuplicatesValue = %v, %v", b, err)
	}
}

func TestResolveConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
db_path: /data/comms.db
import:
  batch_size: 250
  skip_duplicates: false
`)

	cfg, err := ResolveConfig(ResolveOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("ResolveConfig failed: %v", err)
	}

	if cfg.DBPath.Value != "/data/comms.db" || cfg.DBPath.Source != SourceConfig {
		t.Errorf("unexpected db path: %+v", cfg.DBPath)
	}
	if cfg.DBPath.From != path {
		t.Errorf("From should name the config file, got %q", cfg.DBPath.From)
	}
	if cfg.BatchSize.Value != "250" || cfg.BatchSize.Source != SourceConfig {
		t.Errorf("unexpected batch size: %+v", cfg.BatchSize)
	}
	if cfg.SkipDuplicates.Value != "false" {
		t.Errorf("unexpected skip_duplicates: %+v", cfg.SkipDuplicates)
	}
}

func TestResolveConfig_Precedence(t *testing.T) {
	path := writeConfig(t, "db_path: /from/config.db\nimport:\n  batch_size: 250\n")

	t.Setenv("COMMLOG_DB", "/from/env.db")
	t.Setenv("COMMLOG_BATCH_SIZE", "500")

	cfg, err := ResolveConfig(ResolveOptions{
		ConfigPath: path,
		CLIDBPath:  "/from/cli.db",
	})
	if err != nil {
		t.Fatalf("ResolveConfig failed: %v", err)
	}

	// CLI beats env beats config.
	if cfg.DBPath.Value != "/from/cli.db" || cfg.DBPath.Source != SourceCLI {
		t.Errorf("unexpected db path: %+v", cfg.DBPath)
	}
	if cfg.BatchSize.Value != "500" || cfg.BatchSize.Source != SourceEnv {
		t.Errorf("unexpected batch size: %+v", cfg.BatchSize)
	}
	if cfg.BatchSize.From != "COMMLOG_BATCH_SIZE" {
		t.Errorf("From should name the env var, got %q", cfg.BatchSize.From)
	}
}

func TestResolveConfig_MalformedFile(t *testing.T) {
	path := writeConfig(t, "db_path: [unclosed\n")
	if _, err := ResolveConfig(ResolveOptions{ConfigPath: path}); err == nil {
		t.Fatal("expected an error for malformed yaml")
	}
}

func TestResolvedConfig_InvalidValues(t *testing.T) {
	cfg := ResolvedConfig{
		BatchSize:      ResolvedValue{Value: "zero", Source: SourceEnv},
		SkipDuplicates: ResolvedValue{Value: "maybe", Source: SourceEnv},
	}
	if _, err := cfg.BatchSizeValue(); err == nil {
		t.Error("expected an error for non-numeric batch size")
	}
	if _, err := cfg.SkipDuplicatesValue(); err == nil {
		t.Error("expected an error for non-boolean skip_duplicates")
	}

	cfg.BatchSize.Value = "-5"
	if _, err := cfg.BatchSizeValue(); err == nil {
		t.Error("expected an error for non-positive batch size")
	}
}
