package config

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Supported run history drivers
const (
	HistoryDriverPostgres = "postgres"
	HistoryDriverSQLite   = "sqlite3"
)

// Config represents the complete job runner configuration
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Job       JobConfig       `yaml:"job"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	History   HistoryConfig   `yaml:"history"`
	Events    EventsConfig    `yaml:"events"`
	Logging   LoggingConfig   `yaml:"logging"`
	App       AppConfig       `yaml:"app"`
}

// WorkspaceConfig holds the workspace REST endpoint and credentials
type WorkspaceConfig struct {
	Host    string        `yaml:"host"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// ClusterConfig selects the compute resource. ID is probed first; Name is the
// fallback.
type ClusterConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// JobConfig describes the job to upsert and run
type JobConfig struct {
	Name              string            `yaml:"name"`
	PayloadPath       string            `yaml:"payload_path"`
	WorkspacePath     string            `yaml:"workspace_path"`
	TaskKey           string            `yaml:"task_key"`
	Parameters        []string          `yaml:"parameters"`
	MaxConcurrentRuns int               `yaml:"max_concurrent_runs"`
	TimeoutSeconds    int               `yaml:"timeout_seconds"`
	Tags              map[string]string `yaml:"tags"`
	PollInterval      time.Duration     `yaml:"poll_interval"`
	RunTimeout        time.Duration     `yaml:"run_timeout"` // 0 waits forever
	ListPageSize      int               `yaml:"list_page_size"`
}

// WarehouseConfig holds SQL warehouse settings
type WarehouseConfig struct {
	HTTPPath  string        `yaml:"http_path"`
	Statement string        `yaml:"statement"`
	Timeout   time.Duration `yaml:"timeout"`
}

// HistoryConfig holds the optional run history database
type HistoryConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// EventsConfig holds the optional RabbitMQ run event publisher
type EventsConfig struct {
	Enabled    bool             `yaml:"enabled"`
	URL        string           `yaml:"url"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Durable bool   `yaml:"durable"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{Timeout: 30 * time.Second},
		Job: JobConfig{
			Name:              domain.DefaultJobName,
			PayloadPath:       "payloads/simple_job.py",
			WorkspacePath:     "/Shared/workspace-jobs/simple_job.py",
			TaskKey:           domain.DefaultTaskKey,
			MaxConcurrentRuns: 1,
			PollInterval:      domain.DefaultPollInterval,
		},
		History: HistoryConfig{
			Driver:       HistoryDriverSQLite,
			DSN:          "job_runs.db",
			MaxOpenConns: 1,
		},
		Events: EventsConfig{
			Exchange:   ExchangeConfig{Name: "job_runs", Type: "topic", Durable: true},
			RoutingKey: "run.finished",
			Connection: ConnectionConfig{RetryAttempts: 3, RetryInterval: time.Second, Heartbeat: 10 * time.Second},
			Publish:    PublishConfig{RetryAttempts: 3, RetryInterval: 100 * time.Millisecond, BackoffMultiplier: 2},
		},
		Logging: LoggingConfig{Level: "info", Format: "console", Output: "stderr"},
		App:     AppConfig{Name: "job-runner", Version: "1.0.0", Environment: "development"},
	}
}

// Load reads and parses the configuration file on top of the defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// LookupFunc reads one environment variable, like os.LookupEnv
type LookupFunc func(key string) (string, bool)

// FromEnvironment loads the file named by JOB_RUNNER_CONFIG_PATH, when set,
// and applies the environment on top of it.
func FromEnvironment(lookup LookupFunc) (*Config, error) {
	config := Default()
	if p, ok := lookup("JOB_RUNNER_CONFIG_PATH"); ok && p != "" {
		loaded, err := Load(p)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if err := config.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields with the environment variables that are set and
// not empty.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("DATABRICKS_HOST", &c.Workspace.Host)
	str("DATABRICKS_TOKEN", &c.Workspace.Token)
	str("DATABRICKS_CLUSTER_ID", &c.Cluster.ID)
	str("DATABRICKS_CLUSTER_NAME", &c.Cluster.Name)
	str("DATABRICKS_WAREHOUSE_HTTP_PATH", &c.Warehouse.HTTPPath)
	str("JOB_NAME", &c.Job.Name)
	str("JOB_PAYLOAD_PATH", &c.Job.PayloadPath)
	str("JOB_WORKSPACE_PATH", &c.Job.WorkspacePath)
	str("HISTORY_DRIVER", &c.History.Driver)
	str("HISTORY_DSN", &c.History.DSN)
	str("EVENTS_URL", &c.Events.URL)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	if v, ok := lookup("JOB_POLL_INTERVAL"); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return domain.NewConfigurationError("JOB_POLL_INTERVAL", err.Error())
		}
		c.Job.PollInterval = d
	}
	if v, ok := lookup("JOB_RUN_TIMEOUT"); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return domain.NewConfigurationError("JOB_RUN_TIMEOUT", err.Error())
		}
		c.Job.RunTimeout = d
	}
	if v, ok := lookup("HISTORY_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return domain.NewConfigurationError("HISTORY_ENABLED", fmt.Sprintf("invalid boolean %q", v))
		}
		c.History.Enabled = b
	}
	if v, ok := lookup("EVENTS_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return domain.NewConfigurationError("EVENTS_ENABLED", fmt.Sprintf("invalid boolean %q", v))
		}
		c.Events.Enabled = b
	}

	return nil
}

// ValidateRunner checks everything the job runner needs before it makes any
// network call
func (c *Config) ValidateRunner() error {
	if err := c.validateWorkspace(); err != nil {
		return err
	}

	if c.Cluster.ID == "" && c.Cluster.Name == "" {
		return domain.NewConfigurationError("cluster", "either a cluster id or a cluster name is required")
	}

	if strings.TrimSpace(c.Job.Name) == "" {
		return domain.NewConfigurationError("job.name", "is required")
	}

	if c.Job.PayloadPath == "" {
		return domain.NewConfigurationError("job.payload_path", "is required")
	}
	info, err := os.Stat(c.Job.PayloadPath)
	if err != nil {
		return domain.NewConfigurationError("job.payload_path", fmt.Sprintf("cannot read %s: %v", c.Job.PayloadPath, err))
	}
	if info.IsDir() {
		return domain.NewConfigurationError("job.payload_path", fmt.Sprintf("%s is a directory", c.Job.PayloadPath))
	}

	if !path.IsAbs(c.Job.WorkspacePath) || strings.HasSuffix(c.Job.WorkspacePath, "/") {
		return domain.NewConfigurationError("job.workspace_path", "must be an absolute file path")
	}

	if c.Job.PollInterval <= 0 {
		return domain.NewConfigurationError("job.poll_interval", "must be greater than 0")
	}

	if c.Job.RunTimeout < 0 {
		return domain.NewConfigurationError("job.run_timeout", "must not be negative")
	}

	if c.Job.MaxConcurrentRuns < 0 {
		return domain.NewConfigurationError("job.max_concurrent_runs", "must not be negative")
	}

	if c.History.Enabled {
		switch c.History.Driver {
		case HistoryDriverPostgres, HistoryDriverSQLite:
		default:
			return domain.NewConfigurationError("history.driver",
				fmt.Sprintf("unsupported driver %q (want %s or %s)", c.History.Driver, HistoryDriverPostgres, HistoryDriverSQLite))
		}
		if c.History.DSN == "" {
			return domain.NewConfigurationError("history.dsn", "is required when history is enabled")
		}
	}

	if c.Events.Enabled {
		if c.Events.URL == "" {
			return domain.NewConfigurationError("events.url", "is required when events are enabled")
		}
		if c.Events.Exchange.Name == "" {
			return domain.NewConfigurationError("events.exchange.name", "is required when events are enabled")
		}
	}

	return nil
}

// ValidateWarehouse checks everything the warehouse query needs
func (c *Config) ValidateWarehouse() error {
	if err := c.validateWorkspace(); err != nil {
		return err
	}

	if c.Warehouse.HTTPPath == "" {
		return domain.NewConfigurationError("warehouse.http_path", "is required")
	}

	return nil
}

func (c *Config) validateWorkspace() error {
	if strings.TrimSpace(c.Workspace.Host) == "" {
		return domain.NewConfigurationError("workspace.host", "is required")
	}
	if c.Workspace.Token == "" {
		return domain.NewConfigurationError("workspace.token", "is required")
	}
	return nil
}

// parseDuration accepts Go durations ("5s", "2m") and bare seconds ("5")
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}
