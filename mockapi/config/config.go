package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/library-portal/pkg/kafka"
	"github.com/Astemirdum/library-portal/pkg/kvstore"
	"github.com/Astemirdum/library-portal/pkg/logger"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"MOCKAPI_HTTP_HOST" default:"localhost"`
	Port         string        `yaml:"port" envconfig:"MOCKAPI_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE" default:"10s"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwtSecret" envconfig:"JWT_SECRET" default:"library-secret"`
	TokenTTL  time.Duration `yaml:"tokenTTL" envconfig:"TOKEN_TTL" default:"24h"`
	ResetTTL  time.Duration `yaml:"resetTTL" envconfig:"RESET_TTL" default:"30m"`
}

type Circulation struct {
	SweepInterval time.Duration `yaml:"sweepInterval" envconfig:"SWEEP_INTERVAL" default:"1m"`
	// Seed fills empty collections with demo fixtures on start.
	Seed bool `yaml:"seed" envconfig:"SEED" default:"true"`
}

type Config struct {
	Server      HTTPServer     `yaml:"server"`
	Database    kvstore.Config `yaml:"db"`
	Auth        Auth           `yaml:"auth"`
	Kafka       kafka.Config   `yaml:"kafka"`
	Circulation Circulation    `yaml:"circulation"`
	Log         logger.Log     `yaml:"log"`
}

type Option func(cfg *Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(cfg *Config) {
		cfg.Log.LogLevel = level
	}
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(cfg *Config) {
		cfg.Server.WriteTimeout = timeout
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
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		for _, op := range ops {
			op(&config)
		}
		cfg = config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg Config) {
	cfg.Auth.JWTSecret = "***"
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
