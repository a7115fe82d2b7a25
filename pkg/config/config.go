package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration, loaded from yaml with
// environment-variable overrides on top.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	MQ       MQConfig       `yaml:"mq"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Inbound  InboundConfig  `yaml:"inbound"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DispatchConfig tunes the outbox poller and scheduler loops in the worker.
type DispatchConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	SchedulerInterval time.Duration `yaml:"scheduler_interval"`
	BatchSize         int           `yaml:"batch_size"`
}

// InboundConfig tunes the retrieval loop that pulls inbox messages per
// account through the connector Retrieve capability.
type InboundConfig struct {
	Interval time.Duration `yaml:"interval"`
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}

// Durations appear in yaml as strings like "500ms". Overlay files may set
// only some fields, so absent keys keep their current values.
func (c *DispatchConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		PollInterval      string `yaml:"poll_interval"`
		SchedulerInterval string `yaml:"scheduler_interval"`
		BatchSize         int    `yaml:"batch_size"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.PollInterval != "" {
		d, err := time.ParseDuration(raw.PollInterval)
		if err != nil {
			return err
		}
		c.PollInterval = d
	}
	if raw.SchedulerInterval != "" {
		d, err := time.ParseDuration(raw.SchedulerInterval)
		if err != nil {
			return err
		}
		c.SchedulerInterval = d
	}
	if raw.BatchSize != 0 {
		c.BatchSize = raw.BatchSize
	}
	return nil
}

func (c *InboundConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Interval string `yaml:"interval"`
		DedupTTL string `yaml:"dedup_ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Interval != "" {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return err
		}
		c.Interval = d
	}
	if raw.DedupTTL != "" {
		d, err := time.ParseDuration(raw.DedupTTL)
		if err != nil {
			return err
		}
		c.DedupTTL = d
	}
	return nil
}

// OverrideFromEnv applies environment variables on top of the loaded
// configuration. Env always wins over yaml.
func (c *Config) OverrideFromEnv() {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		c.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		c.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		c.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		c.DB.Name = name
	}
	if url := os.Getenv("MQ_URL"); url != "" {
		c.MQ.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}
