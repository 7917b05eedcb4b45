package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CAA.BaseURL != "https://coverartarchive.org" {
		t.Errorf("unexpected base URL: %s", cfg.CAA.BaseURL)
	}
	if cfg.CAA.Timeout != 10*time.Second {
		t.Errorf("unexpected timeout: %s", cfg.CAA.Timeout)
	}
	if cfg.MusicBrainz.MinScore != 95 {
		t.Errorf("unexpected min score: %d", cfg.MusicBrainz.MinScore)
	}
	if cfg.Output.Format != FormatAuto {
		t.Errorf("unexpected output format: %s", cfg.Output.Format)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
caa:
  base_url: http://localhost:9000
  timeout: 3s
  requests_per_second: 2.5
musicbrainz:
  min_score: 80
user_agent:
  contact: me@example.com
output:
  dir: /tmp/covers
  format: json
logging:
  level: debug
  format: json
  file_path: /tmp/coverart.log
  file_max_size_mb: 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CAA.BaseURL != "http://localhost:9000" || cfg.CAA.Timeout != 3*time.Second || cfg.CAA.RequestsPerSecond != 2.5 {
		t.Errorf("unexpected caa config: %+v", cfg.CAA)
	}
	if cfg.MusicBrainz.MinScore != 80 {
		t.Errorf("unexpected min score: %d", cfg.MusicBrainz.MinScore)
	}
	if cfg.MusicBrainz.BaseURL != "https://musicbrainz.org/ws/2" {
		t.Errorf("expected default musicbrainz URL to survive, got %s", cfg.MusicBrainz.BaseURL)
	}
	if cfg.UserAgent.Contact != "me@example.com" {
		t.Errorf("unexpected contact: %s", cfg.UserAgent.Contact)
	}
	if cfg.Output.Dir != "/tmp/covers" || cfg.Output.Format != FormatJSON {
		t.Errorf("unexpected output config: %+v", cfg.Output)
	}
	if cfg.Logging.FilePath != "/tmp/coverart.log" || cfg.Logging.FileMaxSizeMB != 5 {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "caa:\n  base_url: http://from-file\n")
	t.Setenv("CA_CAA_URL", "http://from-env")
	t.Setenv("CA_TIMEOUT", "250ms")
	t.Setenv("CA_RPS", "4")
	t.Setenv("CA_CONTACT", "env@example.com")
	t.Setenv("CA_LOG_LEVEL", "error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CAA.BaseURL != "http://from-env" {
		t.Errorf("expected env to win, got %s", cfg.CAA.BaseURL)
	}
	if cfg.CAA.Timeout != 250*time.Millisecond {
		t.Errorf("unexpected timeout: %s", cfg.CAA.Timeout)
	}
	if cfg.CAA.RequestsPerSecond != 4 {
		t.Errorf("unexpected rps: %g", cfg.CAA.RequestsPerSecond)
	}
	if cfg.UserAgent.Contact != "env@example.com" || cfg.Logging.Level != "error" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("CA_TIMEOUT", "soon")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "CA_TIMEOUT") {
		t.Fatalf("expected CA_TIMEOUT error, got %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"scheme", "caa:\n  base_url: ftp://x\n", "caa.base_url"},
		{"host", "musicbrainz:\n  base_url: http://\n", "musicbrainz.base_url"},
		{"timeout", "caa:\n  timeout: 0s\n", "caa.timeout"},
		{"rps", "caa:\n  requests_per_second: -1\n", "requests_per_second"},
		{"score", "musicbrainz:\n  min_score: 101\n", "min_score"},
		{"output format", "output:\n  format: xml\n", "output.format"},
		{"log level", "logging:\n  level: loud\n", "logging.level"},
		{"log format", "logging:\n  format: xml\n", "logging.format"},
		{"yaml", "caa: [\n", "loading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
