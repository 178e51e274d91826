package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWritesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("unexpected path: %s", resolved)
	}
	if cfg.IRC.Addr != ":6667" || cfg.Sync.UsersInterval != 50*time.Second || !cfg.Transform.Smileys {
		t.Fatalf("defaults not applied: %+v", cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	if !strings.Contains(string(data), "base_url: https://chat.cz") {
		t.Fatalf("unexpected default file:\n%s", data)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
irc:
  addr: ":7000"
  hostname: gate.example
sync:
  tick: 2s
  messages_interval: 4s
  users_interval: 10s
idler:
  enabled: true
  phrases: ["ahoj", "jsem tu"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("IRCGATE_IRC_ADDR", ":7001")
	t.Setenv("IRCGATE_BACKEND_ANONYMOUS_GENDER", "f")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IRC.Addr != ":7001" {
		t.Fatalf("env must override the file, got %q", cfg.IRC.Addr)
	}
	if cfg.IRC.Hostname != "gate.example" || cfg.Sync.Tick != 2*time.Second || cfg.Sync.MessagesInterval != 4*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Backend.AnonymousGender != "f" || cfg.Backend.BaseURL != "https://chat.cz" {
		t.Fatalf("unexpected backend config: %+v", cfg.Backend)
	}
	if !cfg.Idler.Enabled || strings.Join(cfg.Idler.Phrases, "|") != "ahoj|jsem tu" || cfg.Idler.IdleTime != 30*time.Minute {
		t.Fatalf("unexpected idler config: %+v", cfg.Idler)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("sync:\n  tick: 10s\n  messages_interval: 5s\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := Load(nil, path); err == nil {
		t.Fatalf("expected interval shorter than tick to be rejected")
	}
}

func TestLoadUsesDefaultPathEnv(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")
	t.Setenv(envConfigDefaultPath, dir)

	_, resolved, err := Load(nil, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != filepath.Join(dir, defaultConfigName) {
		t.Fatalf("unexpected path: %s", resolved)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	broken := Default()
	broken.Idler.Enabled = true
	broken.Idler.Phrases = nil
	if err := broken.Validate(); err == nil {
		t.Fatalf("enabled idler without phrases must fail")
	}

	broken = Default()
	broken.Sync.Tick = 0
	if err := broken.Validate(); err == nil {
		t.Fatalf("zero tick must fail")
	}
}

func TestUpdateFromOverridesNonZero(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{LogLevel: "debug", IRC: IRCConfig{Addr: ":1"}, Status: StatusConfig{Addr: ":2"}})

	if cfg.LogLevel != "debug" || cfg.IRC.Addr != ":1" || cfg.Status.Addr != ":2" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.IRC.Hostname != "localhost" {
		t.Fatalf("zero override must keep the value, got %q", cfg.IRC.Hostname)
	}
}
