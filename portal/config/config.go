package config

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/library-portal/pkg/kvstore"
	"github.com/Astemirdum/library-portal/pkg/logger"
)

type API struct {
	URL     string        `yaml:"url" envconfig:"PORTAL_API_URL" default:"http://localhost:8080"`
	Timeout time.Duration `yaml:"timeout" envconfig:"PORTAL_HTTP_TIMEOUT" default:"10s"`
}

// Breaker tunes the circuit breaker in front of the backend.
type Breaker struct {
	RecordLength     int           `yaml:"recordLength" envconfig:"PORTAL_CB_RECORDS" default:"20"`
	Timeout          time.Duration `yaml:"timeout" envconfig:"PORTAL_CB_TIMEOUT" default:"10s"`
	Percentile       float64       `yaml:"percentile" envconfig:"PORTAL_CB_PERCENTILE" default:"0.5"`
	RecoveryRequests int           `yaml:"recoveryRequests" envconfig:"PORTAL_CB_RECOVERY" default:"2"`
}

type Config struct {
	API     API     `yaml:"api"`
	Breaker Breaker `yaml:"breaker"`
	// DataDir holds the session store and, by default, the legacy cookies file.
	DataDir    string        `yaml:"dataDir" envconfig:"PORTAL_DATA_DIR" default:".library-portal"`
	CookieFile string        `yaml:"cookieFile" envconfig:"PORTAL_LEGACY_COOKIES"`
	LogLevel   zapcore.Level `yaml:"logLevel" envconfig:"PORTAL_LOG_LEVEL" default:"warn"`
	LogSink    string        `yaml:"logSink" envconfig:"PORTAL_LOG_SINK"`
}

func (c Config) Log() logger.Log {
	return logger.Log{LogLevel: c.LogLevel, Sink: c.LogSink}
}

func (c Config) Store() kvstore.Config {
	return kvstore.Config{
		Driver: kvstore.DriverSQLite,
		DSN:    filepath.Join(c.DataDir, "portal.db"),
	}
}

func (c Config) LegacyCookies() string {
	if c.CookieFile != "" {
		return c.CookieFile
	}
	return filepath.Join(c.DataDir, "cookies.txt")
}

type Option func(cfg *Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(cfg *Config) {
		cfg.LogLevel = level
	}
}

func WithAPIURL(url string) Option {
	return func(cfg *Config) {
		if url != "" {
			cfg.API.URL = url
		}
	}
}

func WithDataDir(dir string) Option {
	return func(cfg *Config) {
		if dir != "" {
			cfg.DataDir = dir
		}
	}
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment. Options are applied after the environment.
func NewConfig(ops ...Option) Config {
	once.Do(func() {
		var config Config
		if err := envconfig.Process("", &config); err != nil {
			log.Fatal("NewConfig ", err)
		}
		for _, op := range ops {
			op(&config)
		}
		cfg = config
	})

	return cfg
}
