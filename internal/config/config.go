// Package config loads the sockecho configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/OpenListTeam/gosock/manager/sockets"
)

// Network selects the socket variant the tool runs over.
type Network string

const (
	NetworkTCP Network = "tcp"
	NetworkUDP Network = "udp"
)

// ServerConfig configures the echo server.
type ServerConfig struct {
	Listen    string `yaml:"listen"`
	Backlog   int    `yaml:"backlog"`
	ReuseAddr bool   `yaml:"reuseAddr"`
	ReusePort bool   `yaml:"reusePort"`
	RcvBuf    int    `yaml:"rcvBuf"`
	SndBuf    int    `yaml:"sndBuf"`
}

// RetryConfig bounds the client's connect retries.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"maxAttempts"`
	InitialInterval time.Duration `yaml:"initialInterval"`
	MaxInterval     time.Duration `yaml:"maxInterval"`
}

// ClientConfig configures the echo client.
type ClientConfig struct {
	Remote  string        `yaml:"remote"`
	Message string        `yaml:"message"`
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
}

// Config is the complete tool configuration.
type Config struct {
	Network  Network      `yaml:"network"`
	LogLevel string       `yaml:"logLevel"`
	Server   ServerConfig `yaml:"server"`
	Client   ClientConfig `yaml:"client"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Network:  NetworkTCP,
		LogLevel: "info",
		Server: ServerConfig{
			Listen:    "127.0.0.1:7007",
			Backlog:   sockets.DefaultBacklog,
			ReuseAddr: true,
		},
		Client: ClientConfig{
			Remote:  "127.0.0.1:7007",
			Message: "hello",
			Timeout: 5 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:     5,
				InitialInterval: 100 * time.Millisecond,
				MaxInterval:     2 * time.Second,
			},
		},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping the values of absent fields, and
// validates the result.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document leaves every default in place.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Validate checks field ranges and that addresses parse.
func (c Config) Validate() error {
	var errs []error
	switch c.Network {
	case NetworkTCP, NetworkUDP:
	default:
		errs = append(errs, fmt.Errorf("network: unknown value %q", c.Network))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logLevel: unknown value %q", c.LogLevel))
	}
	if _, err := sockets.ParseAddress(c.Server.Listen); err != nil {
		errs = append(errs, fmt.Errorf("server.listen: %w", err))
	}
	if c.Server.RcvBuf < 0 || c.Server.SndBuf < 0 {
		errs = append(errs, errors.New("server: buffer sizes must not be negative"))
	}
	if _, err := sockets.ParseAddress(c.Client.Remote); err != nil {
		errs = append(errs, fmt.Errorf("client.remote: %w", err))
	}
	if c.Client.Timeout <= 0 {
		errs = append(errs, errors.New("client.timeout: must be positive"))
	}
	if c.Client.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("client.retry.maxAttempts: must be at least 1"))
	}
	if c.Client.Retry.InitialInterval <= 0 || c.Client.Retry.MaxInterval < c.Client.Retry.InitialInterval {
		errs = append(errs, errors.New("client.retry: intervals must be positive and maxInterval >= initialInterval"))
	}
	return errors.Join(errs...)
}
