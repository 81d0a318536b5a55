package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	MirrorNone  = "none"
	MirrorBolt  = "bolt"
	MirrorRedis = "redis"
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string          `yaml:"git_commit" envconfig:"BKEX_GIT_COMMIT"`
	GitTag                  string          `yaml:"git_tag" envconfig:"BKEX_GIT_TAG"`
	BuildTime               string          `yaml:"build_time" envconfig:"BKEX_BUILD_TIME"`
	IsProduction            bool            `yaml:"is_production" envconfig:"BKEX_IS_PRODUCTION"`
	LogLevel                zapcore.Level   `yaml:"log_level" envconfig:"BKEX_LOG_LEVEL"`
	LogFolder               string          `yaml:"log_folder" envconfig:"BKEX_LOG_FOLDER"`
	LogMaxSize              int             `yaml:"log_max_size" envconfig:"BKEX_LOG_MAX_SIZE"` // in megabytes
	OpsEndpointsEnable      bool            `yaml:"ops_endpoints_enable" envconfig:"BKEX_OPS_ENDPOINTS_ENABLE"`
	ProfilerEndpointsEnable bool            `yaml:"profiler_endpoints_enable" envconfig:"BKEX_PROFILER_ENDPOINTS_ENABLE"`
	Server                  ServerConfig    `yaml:"server"`
	Catalog                 CatalogConfig   `yaml:"catalog"`
	Sessions                SessionsConfig  `yaml:"sessions"`
	Favorites               FavoritesConfig `yaml:"favorites"`
	Redis                   RedisConfig     `yaml:"redis"`
	BoltDB                  BoltDBConfig    `yaml:"boltdb"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"BKEX_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"BKEX_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"BKEX_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"BKEX_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"BKEX_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"BKEX_SERVER_SHUTDOWN_TIMEOUT"`
	RateLimit       float64       `yaml:"rate_limit" envconfig:"BKEX_SERVER_RATE_LIMIT"` // requests per second, 0 disables
	RateBurst       int           `yaml:"rate_burst" envconfig:"BKEX_SERVER_RATE_BURST"`
}

type CatalogConfig struct {
	BaseURL             string        `yaml:"base_url" envconfig:"BKEX_CATALOG_BASE_URL"`
	APIKey              string        `yaml:"api_key" envconfig:"BKEX_CATALOG_API_KEY" json:"-"`
	MaxResults          int           `yaml:"max_results" envconfig:"BKEX_CATALOG_MAX_RESULTS"`
	Timeout             time.Duration `yaml:"timeout" envconfig:"BKEX_CATALOG_TIMEOUT"`
	SanitizeDescription bool          `yaml:"sanitize_description" envconfig:"BKEX_CATALOG_SANITIZE_DESCRIPTION"`
}

type SessionsConfig struct {
	CookieName    string        `yaml:"cookie_name" envconfig:"BKEX_SESSIONS_COOKIE_NAME"`
	TTL           time.Duration `yaml:"ttl" envconfig:"BKEX_SESSIONS_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"BKEX_SESSIONS_SWEEP_INTERVAL"`
}

type FavoritesConfig struct {
	Mirror    string `yaml:"mirror" envconfig:"BKEX_FAVORITES_MIRROR"`
	Queue     string `yaml:"queue" envconfig:"BKEX_FAVORITES_QUEUE"`
	QueueSize int    `yaml:"queue_size" envconfig:"BKEX_FAVORITES_QUEUE_SIZE"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BKEX_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"BKEX_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BKEX_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BKEX_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BKEX_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BKEX_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BKEX_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"BKEX_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"BKEX_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BKEX_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BKEX_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BKEX_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"BKEX_BOLTDB_BUCKET_NAME"`
}

// UsesRedis tells if any favorites component needs a redis connection.
func (c *Config) UsesRedis() bool {
	return c.Favorites.Mirror == MirrorRedis || c.Favorites.Queue == QueueRedis
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 30 * time.Second
	}

	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if config.Server.RateLimit > 0 && config.Server.RateBurst <= 0 {
		config.Server.RateBurst = int(config.Server.RateLimit) + 1
	}

	if len(config.LogFolder) == 0 {
		config.LogFolder = "./logs"
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}

	if len(config.Catalog.BaseURL) == 0 {
		config.Catalog.BaseURL = "https://www.googleapis.com/books/v1"
	}

	if config.Catalog.MaxResults <= 0 {
		config.Catalog.MaxResults = 20
	}

	if config.Catalog.MaxResults > 40 {
		return errors.New("catalog max results cannot exceed 40")
	}

	if config.Catalog.Timeout == 0 {
		config.Catalog.Timeout = 15 * time.Second
	}

	if len(config.Sessions.CookieName) == 0 {
		config.Sessions.CookieName = "bkex_session"
	}

	if config.Sessions.TTL == 0 {
		config.Sessions.TTL = time.Hour
	}

	if config.Sessions.SweepInterval == 0 {
		config.Sessions.SweepInterval = 5 * time.Minute
	}

	switch config.Favorites.Mirror {
	case "":
		config.Favorites.Mirror = MirrorNone
	case MirrorNone, MirrorBolt, MirrorRedis:
	default:
		return fmt.Errorf("unknown favorites mirror %q", config.Favorites.Mirror)
	}

	switch config.Favorites.Queue {
	case "":
		config.Favorites.Queue = QueueMemory
	case QueueMemory, QueueRedis:
	default:
		return fmt.Errorf("unknown favorites queue %q", config.Favorites.Queue)
	}

	if config.Favorites.QueueSize <= 0 {
		config.Favorites.QueueSize = 256
	}

	if config.UsesRedis() && (len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0) {
		return errors.New("make sure to set valid redis address and port in configuration file")
	}

	if config.Favorites.Mirror == MirrorBolt {
		if len(config.BoltDB.FilePath) == 0 {
			return errors.New("make sure to set a valid boltdb file path in configuration file")
		}
		if len(config.BoltDB.BucketName) == 0 {
			config.BoltDB.BucketName = "favorites"
		}
		if config.BoltDB.Timeout == 0 {
			config.BoltDB.Timeout = 5 * time.Second
		}
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. A missing env file is not an error.
func LoadAndInitConfigs(configFile, envFile, gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile(configFile)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration.
	if len(envFile) != 0 {
		err = godotenv.Load(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return config, fmt.Errorf("failed to set environment configurations: %s", err)
		}
	}

	// Use environment variables with prefix `BKEX`.
	err = LoadConfigEnvs("BKEX", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
