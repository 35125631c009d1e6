package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "/config/tankobon.yaml"
)

type Config struct {
	CacheDir                  string        `koanf:"cache_dir"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" required:"true"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries"`
	InitialAdminPassword      string        `koanf:"initial_admin_password"`
	InitialAdminUsername      string        `koanf:"initial_admin_username"`
	JWTSecret                 string        `koanf:"jwt_secret" required:"true"`
	ServerHost                string        `koanf:"server_host"`
	ServerPort                int           `koanf:"server_port"`
	TaskTimeout               time.Duration `koanf:"task_timeout"`
	ThumbnailWidth            int           `koanf:"thumbnail_width"`
	WorkerProcesses           int           `koanf:"worker_processes"`
}

func defaults() *Config {
	return &Config{
		CacheDir:                  "/cache",
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        5,
		ServerHost:                "0.0.0.0",
		ServerPort:                25600,
		TaskTimeout:               2 * time.Minute,
		ThumbnailWidth:            300,
		WorkerProcesses:           2,
	}
}

// New loads the config from defaults, then the YAML file named by CONFIG_FILE
// (if it exists), then the environment. Later sources win.
func New() (*Config, error) {
	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configFile)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := checkRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config suitable for tests, without touching the file
// system or environment.
func NewForTest() *Config {
	cfg := defaults()
	cfg.CacheDir = filepath.Join(os.TempDir(), "tankobon-test-cache")
	cfg.DatabaseFilePath = ":memory:"
	cfg.JWTSecret = "test-secret"
	cfg.ServerHost = "127.0.0.1"
	cfg.TaskTimeout = 10 * time.Second
	cfg.WorkerProcesses = 1
	return cfg
}

func checkRequired(cfg *Config) error {
	missing := []string{}
	if cfg.DatabaseFilePath == "" {
		missing = append(missing, describeKey("database_file_path"))
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, describeKey("jwt_secret"))
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

func describeKey(key string) string {
	return strings.ToUpper(key) + " (" + key + ")"
}
