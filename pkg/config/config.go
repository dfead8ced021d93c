package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		BodyLimit       string        `yaml:"body_limit" default:"32M"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Render struct {
		Width      int               `yaml:"width" default:"980" validate:"min=100"`
		Height     int               `yaml:"height" default:"500" validate:"min=100"`
		Theme      string            `yaml:"theme" default:"westeros"`
		Preamble   string            `yaml:"preamble" default:"See the below charts for results"`
		LineStyles map[string]string `yaml:"line_styles"`
		Timeout    time.Duration     `yaml:"timeout" default:"30s"`
	} `yaml:"render"`
	Store struct {
		Backend    string        `yaml:"backend" default:"memory" validate:"oneof=memory redis layered"`
		TTL        time.Duration `yaml:"ttl" default:"24h"`
		MemorySize int           `yaml:"memory_size" default:"1000" validate:"min=1"`
		Redis      struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size" default:"10"`
			Prefix   string `yaml:"prefix" default:"tcavis"`
		} `yaml:"redis"`
	} `yaml:"store"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers" validate:"required_if=Enabled true"`
		ResultsTopic  string   `yaml:"results_topic" default:"tca.results"`
		RenderedTopic string   `yaml:"rendered_topic" default:"tca.rendered"`
		Producer      struct {
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"tcavis"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"16"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	RateLimit struct {
		Enabled      bool    `yaml:"enabled" default:"true"`
		Capacity     float64 `yaml:"capacity" default:"20" validate:"gt=0"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"5" validate:"gt=0"`
	} `yaml:"ratelimit"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. Missing keys take their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// An empty path starts from the defaults.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TCAVIS_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("TCAVIS_PORT"); v != "" {
		if p, perr := strconv.Atoi(v); perr == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("TCAVIS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TCAVIS_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Store.Redis.Host = host
		if ok {
			if p, perr := strconv.Atoi(port); perr == nil {
				c.Store.Redis.Port = p
			}
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("TCAVIS_RESULTS_TOPIC"); v != "" {
		c.Kafka.ResultsTopic = v
	}
	if v := os.Getenv("TCAVIS_RENDERED_TOPIC"); v != "" {
		c.Kafka.RenderedTopic = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	return validate.Struct(c)
}
