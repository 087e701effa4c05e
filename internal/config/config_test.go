package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, projectDir, body string) {
	t.Helper()
	dir := filepath.Join(projectDir, BargainDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(strings.TrimSpace(body)), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", cfg.Project.Version)
	}
	if cfg.OrchestratorURL() != defaultOrchestratorURL {
		t.Fatalf("expected default orchestrator, got %q", cfg.OrchestratorURL())
	}
	if cfg.SendTimeout() != defaultSendTimeout {
		t.Fatalf("expected default timeout, got %s", cfg.SendTimeout())
	}
	if cfg.Project.Rules.MessageFloor != 10 || cfg.Project.Rules.MinWords != 5 {
		t.Fatalf("unexpected rule defaults %+v", cfg.Project.Rules)
	}
	if cfg.Project.EventBridge.Enabled != nil {
		t.Fatalf("bridge enabled should be left to the bridge default")
	}
}

func TestInitBargainDirWritesParsableDefault(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitBargainDir(projectDir); err != nil {
		t.Fatalf("InitBargainDir: %v", err)
	}
	for _, sub := range []string{"logs", "state"} {
		if info, err := os.Stat(filepath.Join(projectDir, BargainDir, sub)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s dir: %v", sub, err)
		}
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("default config must parse: %v", err)
	}
	if cfg.Project.EventBridge.Enabled == nil || !*cfg.Project.EventBridge.Enabled {
		t.Fatalf("default config enables the bridge")
	}
	if cfg.Project.EventBridge.RateLimit != 20 {
		t.Fatalf("unexpected rate limit %d", cfg.Project.EventBridge.RateLimit)
	}
}

func TestNewConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	writeConfig(t, projectDir, `
version: 1
participant:
  id: mturk_agent_1
orchestrator:
  url: https://study.example.org/api/
  send_timeout: 3s
event_bridge:
  enabled: false
  port: 9100
rules:
  min_words: 3
`)
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.ParticipantID() != "mturk_agent_1" {
		t.Fatalf("wrong participant: %q", cfg.ParticipantID())
	}
	if cfg.OrchestratorURL() != "https://study.example.org/api" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.OrchestratorURL())
	}
	if cfg.SendTimeout() != 3*time.Second {
		t.Fatalf("wrong timeout: %s", cfg.SendTimeout())
	}
	if cfg.Project.EventBridge.Enabled == nil || *cfg.Project.EventBridge.Enabled {
		t.Fatalf("expected bridge disabled")
	}
	if cfg.Project.EventBridge.Host != defaultBridgeHost {
		t.Fatalf("expected default host, got %q", cfg.Project.EventBridge.Host)
	}
	if cfg.Project.Rules.MinWords != 3 || cfg.Project.Rules.MessageFloor != 10 {
		t.Fatalf("unexpected rules %+v", cfg.Project.Rules)
	}
}

func TestNewConfigValidation(t *testing.T) {
	projectDir := t.TempDir()
	writeConfig(t, projectDir, `
version: 1
orchestrator:
  url: ftp://study.example.org
`)
	if _, err := NewConfig(projectDir); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}

func TestNewConfigHonorsEnv(t *testing.T) {
	t.Setenv("BARGAIN_PARTICIPANT_ID", "mturk_agent_2")
	t.Setenv("BARGAIN_ORCHESTRATOR_URL", "http://10.0.0.5:9000")
	t.Setenv("BARGAIN_BRIDGE_ENABLED", "false")
	t.Setenv("BARGAIN_BRIDGE_PORT", "9001")
	cfg, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.ParticipantID() != "mturk_agent_2" {
		t.Fatalf("participant override ignored: %q", cfg.ParticipantID())
	}
	if cfg.OrchestratorURL() != "http://10.0.0.5:9000" {
		t.Fatalf("orchestrator override ignored: %q", cfg.OrchestratorURL())
	}
	if cfg.Project.EventBridge.Enabled == nil || *cfg.Project.EventBridge.Enabled {
		t.Fatalf("expected enabled=false from env override")
	}
	if cfg.Project.EventBridge.Port != 9001 {
		t.Fatalf("expected port 9001, got %d", cfg.Project.EventBridge.Port)
	}
}

func TestSetOrchestratorURLRejectsGarbage(t *testing.T) {
	cfg, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetOrchestratorURL("not a url"); err == nil {
		t.Fatalf("expected error")
	}
	if err := cfg.SetOrchestratorURL("http://orchestrator:8080/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OrchestratorURL() != "http://orchestrator:8080" {
		t.Fatalf("got %q", cfg.OrchestratorURL())
	}
}
