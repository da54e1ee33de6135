package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/dw2tools/dw2file/dw2l"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Policy != dw2l.DefaultPolicy() {
		t.Errorf("expected default policy, got %+v", cfg.Policy)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level 'warn', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if cfg.Metrics.File != "" {
		t.Errorf("expected empty metrics file, got %s", cfg.Metrics.File)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
policy:
  overlap: allow
  alignment: 4
  max_decompressed_size: 1024

logging:
  level: "debug"
  log_file: "dw2l.log"
  compress: false

metrics:
  file: "dw2l.prom"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	want := dw2l.Policy{Overlap: dw2l.OverlapAllow, Alignment: 4, MaxDecompressedSize: 1024}
	if cfg.Policy != want {
		t.Errorf("expected policy %+v, got %+v", want, cfg.Policy)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "dw2l.log" {
		t.Errorf("expected log file 'dw2l.log', got %s", cfg.Logging.LogFile)
	}
	if cfg.Logging.Compress {
		t.Error("expected compress to be false")
	}
	// Keys absent from the file keep their defaults.
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("expected max backups 3, got %d", cfg.Logging.MaxBackups)
	}
	if cfg.Metrics.File != "dw2l.prom" {
		t.Errorf("expected metrics file 'dw2l.prom', got %s", cfg.Metrics.File)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"syntax":  "policy:\n  alignment: not a number\n  invalid syntax here\n",
		"unknown": "policy:\n  overlapp: allow\n",
	} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "invalid.yaml")
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			if err := loadFromFile(Default(), configPath); err == nil {
				t.Error("expected error loading invalid YAML, got nil")
			}
		})
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("empty file: %v", err)
	}
	if cfg.Policy != dw2l.DefaultPolicy() {
		t.Errorf("empty file changed the policy: %+v", cfg.Policy)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "dw2l.yaml"), []byte("policy:\n  alignment: 2\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path == "" {
		t.Error("expected to find dw2l.yaml in current directory")
	}
}

func TestBindFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs)
	err := fs.Parse([]string{"--log-level", "debug", "--overlap", "allow", "--align", "8", "--metrics-file", "m.prom"})
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := Default()
	flags.apply(cfg)
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Policy.Overlap != dw2l.OverlapAllow {
		t.Errorf("expected overlap 'allow', got %s", cfg.Policy.Overlap)
	}
	if cfg.Policy.Alignment != 8 {
		t.Errorf("expected alignment 8, got %d", cfg.Policy.Alignment)
	}
	if cfg.Metrics.File != "m.prom" {
		t.Errorf("expected metrics file 'm.prom', got %s", cfg.Metrics.File)
	}

	// Unset flags leave the config alone.
	cfg = Default()
	(&Flags{}).apply(cfg)
	(*Flags)(nil).apply(cfg)
	if cfg.Policy != dw2l.DefaultPolicy() || cfg.Logging.Level != "warn" {
		t.Errorf("empty flags changed the config: %+v", cfg)
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
policy:
  overlap: allow
  alignment: 4
logging:
  level: info
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(&Flags{Config: configPath, Alignment: 16})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Alignment comes from the flag, overlap and level from the file.
	if cfg.Policy.Alignment != 16 {
		t.Errorf("expected alignment 16 from flag, got %d", cfg.Policy.Alignment)
	}
	if cfg.Policy.Overlap != dw2l.OverlapAllow {
		t.Errorf("expected overlap 'allow' from file, got %s", cfg.Policy.Overlap)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info' from file, got %s", cfg.Logging.Level)
	}
	if cfg.Policy.MaxDecompressedSize != dw2l.DefaultMaxDecompressedSize {
		t.Errorf("expected default size limit, got %d", cfg.Policy.MaxDecompressedSize)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load(&Flags{Config: filepath.Join(t.TempDir(), "none.yaml")}); err == nil {
		t.Error("expected error for missing explicit config file")
	}

	_, err := Load(&Flags{Config: writeConfig(t, "logging:\n  level: loud\n")})
	if err == nil {
		t.Error("expected error for unknown log level")
	}

	_, err = Load(&Flags{Config: writeConfig(t, "policy:\n  overlap: loose\n")})
	if err == nil {
		t.Error("expected error for unknown overlap policy")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Policy.Alignment = 4
	cfg.Logging.LogFile = "out.log"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save config: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("load saved config: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("expected %+v, got %+v", cfg, loaded)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}
