// internal/config/config.go
//
// This package handles configuration and the .bargain directory structure.
// Every working directory a participant client runs from gets a .bargain/
// folder holding its config, logs and state.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// BargainDir is the name of the directory we create in each project
	BargainDir = ".bargain"

	defaultOrchestratorURL = "http://127.0.0.1:8080"
	defaultSendTimeout     = 10 * time.Second
	defaultBridgeHost      = "127.0.0.1"
	defaultBridgePort      = 8765
	defaultRateLimit       = 20
	defaultMinWords        = 5
	defaultMessageFloor    = 10
)

const defaultProjectConfigYAML = `# bargain participant configuration
version: 1

# Identity stamped on every outbound message. Usually assigned per session
# with --participant or BARGAIN_PARTICIPANT_ID.
participant:
  id: ""

# Where submissions are delivered.
orchestrator:
  url: http://127.0.0.1:8080
  send_timeout: 10s

# Loopback listener the orchestrator pushes phase assignments to.
event_bridge:
  enabled: true
  host: 127.0.0.1
  port: 8765
  # Accepted events per second.
  rate_limit: 20

rules:
  # Minimum words per onboarding reason.
  min_words: 5
  # Chat messages required before a deal can be proposed.
  message_floor: 10
`

// ParticipantConfig identifies this client to the orchestrator.
type ParticipantConfig struct {
	ID string `yaml:"id"`
}

// OrchestratorConfig describes the outbound endpoint.
type OrchestratorConfig struct {
	URL         string        `yaml:"url"`
	SendTimeout time.Duration `yaml:"send_timeout"`
}

// EventBridgeConfig captures the inbound listener settings. Enabled is a
// pointer so an omitted key keeps the default.
type EventBridgeConfig struct {
	Enabled   *bool  `yaml:"enabled,omitempty"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	RateLimit int    `yaml:"rate_limit"`
}

// RulesConfig tunes the study parameters enforced locally.
type RulesConfig struct {
	MinWords     int `yaml:"min_words"`
	MessageFloor int `yaml:"message_floor"`
}

// ProjectConfig models .bargain/config.yaml.
type ProjectConfig struct {
	Version      int                `yaml:"version"`
	Participant  ParticipantConfig  `yaml:"participant"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	EventBridge  EventBridgeConfig  `yaml:"event_bridge"`
	Rules        RulesConfig        `yaml:"rules"`
}

// Config holds the runtime configuration for a participant client.
type Config struct {
	// ProjectDir is the directory where the user ran `bargain` from
	ProjectDir string

	// BargainProjectDir is ProjectDir/.bargain
	BargainProjectDir string

	Project ProjectConfig
}

// InitBargainDir creates the .bargain directory structure in the given
// project directory and writes a default config on first run.
//
// Structure created:
// .bargain/
// ├── config.yaml
// ├── logs/    <- bargain.log diagnostics and session.log journal
// └── state/   <- scratch space for the running session
func InitBargainDir(projectDir string) error {
	bargainDir := filepath.Join(projectDir, BargainDir)
	dirs := []string{
		filepath.Join(bargainDir, "logs"),
		filepath.Join(bargainDir, "state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(bargainDir, "config.yaml"))
}

// NewConfig loads .bargain/config.yaml (if present) and applies environment
// overrides on top.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:        projectDir,
		BargainProjectDir: filepath.Join(projectDir, BargainDir),
		Project:           defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.Project.applyEnvOverrides()
	cfg.Project.normalize()
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.BargainProjectDir, "logs")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.BargainProjectDir, "state")
}

// JournalPath is where the session logbook is written.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "session.log")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.BargainProjectDir, "config.yaml")
}

// ParticipantID is the configured sender identity.
func (c *Config) ParticipantID() string {
	return c.Project.Participant.ID
}

// SetParticipantID overrides the identity for this run without saving it.
func (c *Config) SetParticipantID(id string) {
	c.Project.Participant.ID = strings.TrimSpace(id)
}

// OrchestratorURL is the base URL submissions are posted to.
func (c *Config) OrchestratorURL() string {
	return c.Project.Orchestrator.URL
}

// SetOrchestratorURL overrides the endpoint for this run after validating it.
func (c *Config) SetOrchestratorURL(raw string) error {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if err := validateURL(trimmed); err != nil {
		return fmt.Errorf("config: orchestrator.url: %w", err)
	}
	c.Project.Orchestrator.URL = trimmed
	return nil
}

// SendTimeout bounds a single outbound delivery.
func (c *Config) SendTimeout() time.Duration {
	return c.Project.Orchestrator.SendTimeout
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Orchestrator: OrchestratorConfig{
			URL:         defaultOrchestratorURL,
			SendTimeout: defaultSendTimeout,
		},
		EventBridge: EventBridgeConfig{
			Host:      defaultBridgeHost,
			Port:      defaultBridgePort,
			RateLimit: defaultRateLimit,
		},
		Rules: RulesConfig{
			MinWords:     defaultMinWords,
			MessageFloor: defaultMessageFloor,
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Orchestrator.SendTimeout <= 0 {
		pc.Orchestrator.SendTimeout = defaultSendTimeout
	}
	if pc.EventBridge.Port == 0 {
		pc.EventBridge.Port = defaultBridgePort
	}
	if pc.EventBridge.RateLimit <= 0 {
		pc.EventBridge.RateLimit = defaultRateLimit
	}
	if pc.Rules.MinWords <= 0 {
		pc.Rules.MinWords = defaultMinWords
	}
	if pc.Rules.MessageFloor <= 0 {
		pc.Rules.MessageFloor = defaultMessageFloor
	}
}

func (pc *ProjectConfig) applyEnvOverrides() {
	if id := strings.TrimSpace(os.Getenv("BARGAIN_PARTICIPANT_ID")); id != "" {
		pc.Participant.ID = id
	}
	if raw := strings.TrimSpace(os.Getenv("BARGAIN_ORCHESTRATOR_URL")); raw != "" {
		pc.Orchestrator.URL = raw
	}
	if value := strings.TrimSpace(os.Getenv("BARGAIN_BRIDGE_ENABLED")); value != "" {
		if enabled, err := strconv.ParseBool(value); err == nil {
			pc.EventBridge.Enabled = &enabled
		}
	}
	if host := strings.TrimSpace(os.Getenv("BARGAIN_BRIDGE_HOST")); host != "" {
		pc.EventBridge.Host = host
	}
	if port := strings.TrimSpace(os.Getenv("BARGAIN_BRIDGE_PORT")); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			pc.EventBridge.Port = parsed
		}
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Participant.ID = strings.TrimSpace(pc.Participant.ID)
	pc.Orchestrator.URL = strings.TrimRight(strings.TrimSpace(pc.Orchestrator.URL), "/")
	if pc.Orchestrator.URL == "" {
		pc.Orchestrator.URL = defaultOrchestratorURL
	}
	pc.EventBridge.Host = strings.TrimSpace(pc.EventBridge.Host)
	if pc.EventBridge.Host == "" {
		pc.EventBridge.Host = defaultBridgeHost
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if err := validateURL(pc.Orchestrator.URL); err != nil {
		return fmt.Errorf("orchestrator.url: %w", err)
	}
	if pc.Orchestrator.SendTimeout <= 0 {
		return fmt.Errorf("orchestrator.send_timeout must be positive")
	}
	if pc.EventBridge.Port < 0 || pc.EventBridge.Port > 65535 {
		return fmt.Errorf("event_bridge.port %d out of range", pc.EventBridge.Port)
	}
	if pc.Rules.MinWords < 1 {
		return fmt.Errorf("rules.min_words must be >= 1")
	}
	if pc.Rules.MessageFloor < 0 {
		return fmt.Errorf("rules.message_floor must be >= 0")
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
