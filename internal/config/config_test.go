package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-intake/internal/storage"
)

func TestFromEnvironmentDefaults(t *testing.T) {
	cfg, err := FromEnvironment(map[string]string{"PORT": "  ", "LOG_LEVEL": ""})
	if err != nil {
		t.Fatalf("FromEnvironment: %v", err)
	}
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.Addr() != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Addr())
	}
}

func TestFromEnvironmentOverrides(t *testing.T) {
	cfg, err := FromEnvironment(map[string]string{
		"PORT":           "9090",
		"DEFAULT_LOCALE": "es-MX",
		"STORAGE_TYPE":   "S3",
		"AWS_S3_BUCKET":  "intake-archive",
		"AWS_REGION":     "us-west-2",
		"LOG_LEVEL":      "DEBUG",
		"LOG_FORMAT":     "json",
	})
	if err != nil {
		t.Fatalf("FromEnvironment: %v", err)
	}
	if cfg.Port != 9090 || cfg.DefaultLocale != "es" || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	want := storage.Config{
		Type:      storage.TypeS3,
		LocalPath: "./storage/requests",
		S3Bucket:  "intake-archive",
		S3Region:  "us-west-2",
	}
	if diff := cmp.Diff(want, cfg.Storage()); diff != "" {
		t.Fatalf("storage config mismatch (-want +got):\n%s", diff)
	}
}

func TestFromEnvironmentRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad port":        {"PORT": "abc"},
		"port range":      {"PORT": "70000"},
		"locale":          {"DEFAULT_LOCALE": "fr"},
		"s3 needs bucket": {"STORAGE_TYPE": "s3"},
		"log format":      {"LOG_FORMAT": "xml"},
		"base url":        {"PUBLIC_BASE_URL": "not a url"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := FromEnvironment(env); err == nil {
				t.Fatalf("expected error for %v", env)
			}
		})
	}
}

func TestValidateNamesEnvKeys(t *testing.T) {
	cfg := Defaults()
	cfg.StorageType = "s3"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AWS_S3_BUCKET failed required_if") {
		t.Fatalf("expected AWS_S3_BUCKET violation, got %v", err)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("CATALOG_PATH=/srv/catalog\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CATALOG_PATH", "")
	os.Unsetenv("CATALOG_PATH")

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CatalogPath != "/srv/catalog" {
		t.Fatalf("expected CATALOG_PATH from file, got %q", cfg.CatalogPath)
	}
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := Defaults()
	cfg.LogFormat = "json"
	cfg.Logger(&buf).Info("ready", "port", 8080)
	if !strings.Contains(buf.String(), `"msg":"ready"`) {
		t.Fatalf("expected json log line, got %q", buf.String())
	}

	buf.Reset()
	cfg.LogLevel = "warn"
	cfg.Logger(&buf).Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
}
