package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PROOFCHAIN_"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Transport modes.
const (
	ModeHTTP  = "http"
	ModeStdio = "stdio"
)

// Caller authentication modes.
const (
	AuthAPIKey = "apikey"
	AuthJWT    = "jwt"
	AuthNone   = "none"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	DB        DBConfig        `yaml:"db" envPrefix:"DB_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Transport TransportConfig `yaml:"transport" envPrefix:"TRANSPORT_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	Events    EventsConfig    `yaml:"events" envPrefix:"EVENTS_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

type DBConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	Path   string `yaml:"path" env:"PATH"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	Path  string `yaml:"path" env:"PATH"`
}

type TransportConfig struct {
	Mode string `yaml:"mode" env:"MODE"`
}

// AuthConfig selects how bearer tokens become caller identities.
// JWTPublicKey is a base64 Ed25519 public key.
type AuthConfig struct {
	Mode          string `yaml:"mode" env:"MODE"`
	DefaultCaller string `yaml:"default_caller" env:"DEFAULT_CALLER"`
	JWTIssuer     string `yaml:"jwt_issuer" env:"JWT_ISSUER"`
	JWTAudience   string `yaml:"jwt_audience" env:"JWT_AUDIENCE"`
	JWTPublicKey  string `yaml:"jwt_public_key" env:"JWT_PUBLIC_KEY"`
}

// EventsConfig enables post-commit publishing when AMQPURL is set.
type EventsConfig struct {
	AMQPURL string `yaml:"amqp_url" env:"AMQP_URL"`
	Queue   string `yaml:"queue" env:"QUEUE"`
}

// TelemetryConfig enables OTLP trace export when OTLPEndpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Driver: DriverSQLite,
			Path:   "proofchain.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: ModeHTTP,
		},
		Auth: AuthConfig{
			Mode: AuthAPIKey,
		},
		Events: EventsConfig{
			Queue: "proofchain.events",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "proofchain",
		},
	}
}

// Load reads configuration from defaults, an optional .env file, an
// optional YAML file and environment variables, in that order of
// increasing precedence. Variables from .env never replace ones already
// set in the process environment.
func Load() (Config, error) {
	envFile := os.Getenv(EnvPrefix + "ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Default()

	if path := os.Getenv(EnvPrefix + "CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Transport.Mode = strings.ToLower(strings.TrimSpace(c.Transport.Mode))
	c.Auth.Mode = strings.ToLower(strings.TrimSpace(c.Auth.Mode))
	c.Auth.DefaultCaller = strings.TrimSpace(c.Auth.DefaultCaller)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.DB.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.DB.Path) == "" {
			return fmt.Errorf("db path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid db driver %q", c.DB.Driver)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Transport.Mode {
	case ModeHTTP, ModeStdio:
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	switch c.Auth.Mode {
	case AuthAPIKey:
		if c.DB.Driver != DriverSQLite {
			return fmt.Errorf("apikey auth requires the sqlite driver")
		}
	case AuthJWT:
		if c.Auth.JWTIssuer == "" || c.Auth.JWTAudience == "" || c.Auth.JWTPublicKey == "" {
			return fmt.Errorf("jwt auth requires issuer, audience and public key")
		}
	case AuthNone:
		if c.Auth.DefaultCaller == "" {
			return fmt.Errorf("auth mode none requires a default caller")
		}
	default:
		return fmt.Errorf("invalid auth mode %q", c.Auth.Mode)
	}
	if c.Transport.Mode == ModeStdio && c.Auth.Mode != AuthNone {
		return fmt.Errorf("stdio transport requires auth mode none")
	}
	if c.Events.AMQPURL != "" && strings.TrimSpace(c.Events.Queue) == "" {
		return fmt.Errorf("events queue is required when amqp_url is set")
	}
	return nil
}
