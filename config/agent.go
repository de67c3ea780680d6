package config

import (
	"os"
	"strings"
	"time"
)

const (
	defaultPollInterval      = 3 * time.Second
	defaultRequestTimeout    = 5 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
	defaultMaxStaleness      = 5 * time.Minute
	defaultMaxScanNodes      = 5000
)

// AgentConfig is the on-device agent configuration, loaded from agent.yaml.
type AgentConfig struct {
	Env struct {
		Debug bool `json:"debug" yaml:"debug"`
		Log   Log  `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	Server struct {
		URL   string `json:"url" yaml:"url"`
		Token string `json:"token" yaml:"token"`
	} `json:"server" yaml:"server"`

	Device struct {
		ID       string `json:"id" yaml:"id"`
		Name     string `json:"name" yaml:"name"`
		Kind     string `json:"kind" yaml:"kind"`
		Platform string `json:"platform" yaml:"platform"`
	} `json:"device" yaml:"device"`

	Sync SyncConfig `json:"sync" yaml:"sync"`

	Matcher MatcherConfig `json:"matcher" yaml:"matcher"`
}

// SyncConfig controls the session polling loop
type SyncConfig struct {
	PollInterval      time.Duration `json:"pollInterval" yaml:"pollInterval"`
	RequestTimeout    time.Duration `json:"requestTimeout" yaml:"requestTimeout"`
	HeartbeatInterval time.Duration `json:"heartbeatInterval" yaml:"heartbeatInterval"`
	// MaxStaleness clears the cached session after this long without a successful poll; a negative value disables it
	MaxStaleness time.Duration `json:"maxStaleness" yaml:"maxStaleness"`
}

// MatcherConfig controls the content matching engine
type MatcherConfig struct {
	SelfIdentifier  string   `json:"selfIdentifier" yaml:"selfIdentifier"`
	BrowserPackages []string `json:"browserPackages" yaml:"browserPackages"`
	BrowserNames    []string `json:"browserNames" yaml:"browserNames"`
	MaxScanNodes    int      `json:"maxScanNodes" yaml:"maxScanNodes"`
}

// NewAgent loads agent.yaml from the working directory or ./config.
func NewAgent() (*AgentConfig, error) {
	cfg, err := LoadWithEnv[AgentConfig]("agent", "config", "../config")
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	return cfg, nil
}

// ApplyDefaults fills unset agent settings.
func (cfg *AgentConfig) ApplyDefaults() {
	if cfg.Sync.PollInterval <= 0 {
		cfg.Sync.PollInterval = defaultPollInterval
	}
	if cfg.Sync.RequestTimeout <= 0 {
		cfg.Sync.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Sync.HeartbeatInterval <= 0 {
		cfg.Sync.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.Sync.MaxStaleness < 0 {
		cfg.Sync.MaxStaleness = 0
	} else if cfg.Sync.MaxStaleness == 0 {
		cfg.Sync.MaxStaleness = defaultMaxStaleness
	}
	if strings.TrimSpace(cfg.Matcher.SelfIdentifier) == "" {
		cfg.Matcher.SelfIdentifier = DefaultSelfIdentifier
	}
	if cfg.Matcher.MaxScanNodes <= 0 {
		cfg.Matcher.MaxScanNodes = defaultMaxScanNodes
	}
	if cfg.Device.ID == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.Device.ID = host
		}
	}
	if cfg.Device.Name == "" {
		cfg.Device.Name = cfg.Device.ID
	}
	if cfg.Device.Kind == "" {
		cfg.Device.Kind = "desktop"
	}
	if cfg.Device.Platform == "" {
		cfg.Device.Platform = "unknown"
	}
	if cfg.Env.Log.Level == "" {
		cfg.Env.Log.Level = "info"
	}
}
