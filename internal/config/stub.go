package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StubConfig configures the workspace stub server
type StubConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Token    string         `yaml:"token"`
	Runs     StubRunsConfig `yaml:"runs"`
	Clusters []StubCluster  `yaml:"clusters"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	PublicURL       string        `yaml:"public_url"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StubRunsConfig scripts how every run progresses
type StubRunsConfig struct {
	PendingPolls int    `yaml:"pending_polls"`
	RunningPolls int    `yaml:"running_polls"`
	ResultState  string `yaml:"result_state"`
}

// StubCluster is one seeded cluster
type StubCluster struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	State string `yaml:"state"`
}

// LoadStub reads and parses the stub configuration file
func LoadStub(configPath string) (*StubConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &StubConfig{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Runs:    StubRunsConfig{PendingPolls: 1, RunningPolls: 2, ResultState: "SUCCESS"},
		Logging: LoggingConfig{Level: "info", Format: "console", Output: "stdout"},
		App:     AppConfig{Name: "workspace-stub", Environment: "development"},
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Validate checks if the stub configuration is valid
func (c *StubConfig) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Token == "" {
		return fmt.Errorf("stub token is required")
	}

	if c.Runs.PendingPolls < 0 || c.Runs.RunningPolls < 0 {
		return fmt.Errorf("run poll counts must not be negative")
	}

	seen := make(map[string]bool, len(c.Clusters))
	for _, cl := range c.Clusters {
		if cl.ID == "" {
			return fmt.Errorf("cluster id is required")
		}
		if seen[cl.ID] {
			return fmt.Errorf("duplicate cluster id %s", cl.ID)
		}
		seen[cl.ID] = true
	}

	return nil
}
