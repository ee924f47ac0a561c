package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	PlayAgainAsk    = "ask"
	PlayAgainAlways = "always"
	PlayAgainNever  = "never"
)

type Config struct {
	LogLevel string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Server   Server `yaml:"server"`
	Redis    Redis  `yaml:"redis"`
	Client   Client `yaml:"client"`
}

type Server struct {
	Host         string `yaml:"host" env:"SERVER_HOST" env-default:""`
	Port         int    `yaml:"port" env:"SERVER_PORT" env-default:"27015"`
	RoundSeconds int    `yaml:"round-seconds" env:"ROUND_SECONDS" env-default:"60"`
	ReadBuffer   int    `yaml:"read-buffer" env:"READ_BUFFER" env-default:"512"`
	PlayAgain    string `yaml:"play-again" env:"PLAY_AGAIN" env-default:"ask"`
}

type Redis struct {
	Enabled bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host    string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port    string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Client struct {
	Host            string `yaml:"host" env:"CLIENT_HOST" env-default:"127.0.0.1"`
	Port            int    `yaml:"port" env:"CLIENT_PORT" env-default:"27015"`
	MaxRetries      uint64 `yaml:"max-retries" env:"CLIENT_MAX_RETRIES" env-default:"5"`
	RetryIntervalMS int    `yaml:"retry-interval-ms" env:"CLIENT_RETRY_INTERVAL_MS" env-default:"500"`
	LogFile         string `yaml:"log-file" env:"CLIENT_LOG_FILE" env-default:"client.log"`
}

var (
	ErrInvalidPort      = errors.New("port must be in 1..65535")
	ErrInvalidRound     = errors.New("round-seconds must be positive")
	ErrInvalidPlayAgain = errors.New("play-again must be ask, always or never")
)

// MustLoad - loads .env (if any), then config.yml with env overrides. Falls back to env-only
// when the file does not exist.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func Load(path string) (*Config, error) {
	// missing .env is fine
	_ = godotenv.Load()

	config := &Config{}

	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = cleanenv.ReadConfig(path, config)
	} else {
		err = cleanenv.ReadEnv(config)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	if that.Server.Port < 1 || that.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port=%d", ErrInvalidPort, that.Server.Port)
	}

	if that.Client.Port < 1 || that.Client.Port > 65535 {
		return fmt.Errorf("%w: client.port=%d", ErrInvalidPort, that.Client.Port)
	}

	if that.Server.RoundSeconds <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRound, that.Server.RoundSeconds)
	}

	switch that.Server.PlayAgain {
	case PlayAgainAsk, PlayAgainAlways, PlayAgainNever:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPlayAgain, that.Server.PlayAgain)
	}

	return nil
}

func (that *Server) GetAddr() string {
	return net.JoinHostPort(that.Host, strconv.Itoa(that.Port))
}

func (that *Server) RoundDuration() time.Duration {
	return time.Duration(that.RoundSeconds) * time.Second
}

func (that *Redis) GetRedisAddr() string {
	return net.JoinHostPort(that.Host, that.Port)
}

func (that *Client) GetAddr() string {
	return net.JoinHostPort(that.Host, strconv.Itoa(that.Port))
}

func (that *Client) RetryInterval() time.Duration {
	return time.Duration(that.RetryIntervalMS) * time.Millisecond
}

// ParseLevel - maps log-level to slog; anything unknown is info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
