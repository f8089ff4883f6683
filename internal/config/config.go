package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHTTPPort  = 8000
	DefaultHTTPSPort = 8001
	DefaultStaticDir = "files"
	DefaultCertFile  = "cert.pem"
	DefaultKeyFile   = "key.pem"

	// FilesPrefix is the URL prefix the static directory is mounted under.
	FilesPrefix = "/files/"
)

// Config holds the server configuration, optionally loaded from a YAML file.
// It is read-only once the server has started.
type Config struct {
	HTTPPort  int    `yaml:"http_port"`
	HTTPSPort int    `yaml:"https_port"`
	BindHost  string `yaml:"bind_host"`
	StaticDir string `yaml:"static_dir"`
	CertFile  string `yaml:"cert_file"`
	KeyFile   string `yaml:"key_file"`
	Watch     bool   `yaml:"watch"`
	AccessLog string `yaml:"access_log"`
	LogLevel  string `yaml:"log_level"`
}

// Default returns the built-in configuration: HTTP on 8000, HTTPS on 8001,
// files/ served under /files/, cert.pem and key.pem in the working directory.
func Default() *Config {
	return &Config{
		HTTPPort:  DefaultHTTPPort,
		HTTPSPort: DefaultHTTPSPort,
		StaticDir: DefaultStaticDir,
		CertFile:  DefaultCertFile,
		KeyFile:   DefaultKeyFile,
		LogLevel:  "info",
	}
}

// Load reads a YAML config file from path on top of the defaults. An empty
// path or a missing file returns the defaults and no error. An empty or
// all-comment file also returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the config can be used to start both listeners.
func (c *Config) Validate() error {
	if err := validPort("http_port", c.HTTPPort); err != nil {
		return err
	}
	if err := validPort("https_port", c.HTTPSPort); err != nil {
		return err
	}
	if c.HTTPPort != 0 && c.HTTPPort == c.HTTPSPort {
		return fmt.Errorf("http_port and https_port must differ, both are %d", c.HTTPPort)
	}
	if c.StaticDir == "" {
		return fmt.Errorf("static_dir is required")
	}
	if c.CertFile == "" {
		return fmt.Errorf("cert_file is required")
	}
	if c.KeyFile == "" {
		return fmt.Errorf("key_file is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// HTTPAddr is the listen address of the plaintext listener.
func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.BindHost, strconv.Itoa(c.HTTPPort))
}

// HTTPSAddr is the listen address of the TLS listener.
func (c *Config) HTTPSAddr() string {
	return net.JoinHostPort(c.BindHost, strconv.Itoa(c.HTTPSPort))
}

// ParseLevel maps a log_level value onto a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level must be \"debug\", \"info\", \"warn\" or \"error\", got %q", s)
	}
}

// port 0 is accepted and means "any free port", which tests rely on.
func validPort(name string, p int) error {
	if p < 0 || p > 65535 {
		return fmt.Errorf("%s %d is out of range", name, p)
	}
	return nil
}
