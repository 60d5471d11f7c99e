// Package config loads the settings of the httpx-echo binary from a YAML
// file and command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"dqx0.com/go/verglas/httpx"
	"dqx0.com/go/verglas/internal/obs"
)

var (
	// ErrNoAddrs - no listen address configured
	ErrNoAddrs = errors.New("config: no listen address")
	// ErrBadLogFormat - log.format is neither console nor json
	ErrBadLogFormat = errors.New("config: log format must be console or json")
)

// LogConfig selects the zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config holds every server setting. Zero durations and limits mean
// "no limit", matching httpx.NewServer without options.
type Config struct {
	Addrs []string  `yaml:"addrs"`
	Log   LogConfig `yaml:"log"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	MaxConns    int     `yaml:"max_conns"`
	AcceptRate  float64 `yaml:"accept_rate"`
	AcceptBurst int     `yaml:"accept_burst"`

	MaxHeaderBytes   int   `yaml:"max_header_bytes"`
	MaxBodyBytes     int64 `yaml:"max_body_bytes"`
	MaxParseFailures int   `yaml:"max_parse_failures"`
}

// Default returns the configuration used when neither a file nor flags
// say otherwise.
func Default() *Config {
	return &Config{
		Addrs:       []string{"127.0.0.1:8080"},
		Log:         LogConfig{Level: "info", Format: "console"},
		AcceptBurst: 1,
	}
}

// LoadFile overlays the YAML document at path onto c. Unknown keys are
// rejected and an empty file leaves c unchanged.
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// BindFlags registers one flag per field on fs, using the current values
// of c as defaults. Parsing fs writes straight into c.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&c.Addrs, "addr", "a", c.Addrs, "listen addresses, tried in order")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "debug, info, warn or error")
	fs.StringVar(&c.Log.Format, "log-format", c.Log.Format, "console or json")
	fs.DurationVar(&c.ReadTimeout, "read-timeout", c.ReadTimeout, "deadline for the first request on a connection")
	fs.DurationVar(&c.IdleTimeout, "idle-timeout", c.IdleTimeout, "deadline for each following request")
	fs.DurationVar(&c.WriteTimeout, "write-timeout", c.WriteTimeout, "deadline for writing a response")
	fs.IntVar(&c.MaxConns, "max-conns", c.MaxConns, "maximum open connections (0 = unlimited)")
	fs.Float64Var(&c.AcceptRate, "accept-rate", c.AcceptRate, "accepted connections per second (0 = unlimited)")
	fs.IntVar(&c.AcceptBurst, "accept-burst", c.AcceptBurst, "accept burst size")
	fs.IntVar(&c.MaxHeaderBytes, "max-header-bytes", c.MaxHeaderBytes, "maximum size of the request line and headers together")
	fs.Int64Var(&c.MaxBodyBytes, "max-body-bytes", c.MaxBodyBytes, "maximum Content-Length; larger requests are answered and the connection closed")
	fs.IntVar(&c.MaxParseFailures, "max-parse-failures", c.MaxParseFailures, "close after this many consecutive bad requests")
}

// Parse builds a Config from defaults, then the file named by --config,
// then the remaining flags. Later sources win.
func Parse(name string, args []string) (*Config, error) {
	path, err := configPath(args)
	if err != nil {
		return nil, err
	}
	c := Default()
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return nil, err
		}
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", path, "YAML configuration file")
	c.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// configPath picks --config out of args before the file is read.
func configPath(args []string) (string, error) {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	path := fs.StringP("config", "c", "", "")
	if err := fs.Parse(args); err != nil && !errors.Is(err, pflag.ErrHelp) {
		return "", err
	}
	return *path, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if len(c.Addrs) == 0 {
		return ErrNoAddrs
	}
	if _, err := obs.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return ErrBadLogFormat
	}
	for name, d := range map[string]time.Duration{
		"read_timeout":  c.ReadTimeout,
		"idle_timeout":  c.IdleTimeout,
		"write_timeout": c.WriteTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("config: %s must not be negative", name)
		}
	}
	switch {
	case c.MaxConns < 0:
		return errors.New("config: max_conns must not be negative")
	case c.AcceptRate < 0:
		return errors.New("config: accept_rate must not be negative")
	case c.AcceptRate > 0 && c.AcceptBurst < 1:
		return errors.New("config: accept_burst must be at least 1 when accept_rate is set")
	case c.MaxHeaderBytes < 0, c.MaxBodyBytes < 0:
		return errors.New("config: size limits must not be negative")
	case c.MaxParseFailures < 0:
		return errors.New("config: max_parse_failures must not be negative")
	}
	return nil
}

// Logger builds the zerolog logger described by c.Log.
func (c *Config) Logger(w io.Writer) obs.ZeroLogger {
	level, err := obs.ParseLevel(c.Log.Level)
	if err != nil {
		level = obs.Info
	}
	return obs.NewZeroLogger(w, c.Log.Format, level)
}

// ServerOptions translates c into httpx server options. logger may be nil.
func (c *Config) ServerOptions(logger obs.Logger) []httpx.Option {
	opts := []httpx.Option{
		httpx.WithReadTimeout(c.ReadTimeout),
		httpx.WithIdleTimeout(c.IdleTimeout),
		httpx.WithWriteTimeout(c.WriteTimeout),
		httpx.WithLimits(httpx.Limits{
			MaxHeaderBytes: c.MaxHeaderBytes,
			MaxBodyBytes:   c.MaxBodyBytes,
		}),
		httpx.WithMaxConns(c.MaxConns),
		httpx.WithMaxParseFailures(c.MaxParseFailures),
	}
	if c.AcceptRate > 0 {
		opts = append(opts, httpx.WithAcceptRate(rate.Limit(c.AcceptRate), c.AcceptBurst))
	}
	if logger != nil {
		opts = append(opts, httpx.WithLogger(logger))
	}
	return opts
}
