// Package config handles loading and parsing the application's configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned by Load for files that are neither TOML nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Config holds all configuration for the application.
// It is built once at startup and shared by pointer with every service.
type Config struct {
	HTTPHost        string `toml:"http_host" yaml:"http_host"`
	HTTPPort        int    `toml:"http_port" yaml:"http_port"`
	RelayHost       string `toml:"relay_host" yaml:"relay_host"`
	RelayPort       int    `toml:"relay_port" yaml:"relay_port"`
	RelayBufferSize int    `toml:"relay_buffer_size" yaml:"relay_buffer_size"` // Larger datagrams are truncated
	DocRoot         string `toml:"doc_root" yaml:"doc_root"`
	IndexDocument   string `toml:"index_document" yaml:"index_document"` // Served for "/"
	ErrorDocument   string `toml:"error_document" yaml:"error_document"` // Served with 404
	ConfirmPath     string `toml:"confirm_path" yaml:"confirm_path"`     // Redirect target after POST
	StorePath       string `toml:"store_path" yaml:"store_path"`
	MetricsPort     int    `toml:"metrics_port" yaml:"metrics_port"` // 0 disables the metrics endpoint
	LogLevel        string `toml:"log_level" yaml:"log_level"`
}

// New returns a new Config with default values.
func New() *Config {
	return &Config{
		HTTPHost:        "0.0.0.0",
		HTTPPort:        3000,
		RelayHost:       "127.0.0.1",
		RelayPort:       5000,
		RelayBufferSize: 1024,
		DocRoot:         "www",
		IndexDocument:   "index.html",
		ErrorDocument:   "error.html",
		ConfirmPath:     "/message.html",
		StorePath:       filepath.Join("www", "storage", "data.json"),
		MetricsPort:     0,
		LogLevel:        "info",
	}
}

// Load reads a configuration file from the given path and populates the Config struct.
// The decoder is picked from the file extension.
func (c *Config) Load(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.DecodeFile(path, c)
		return err
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(data, c)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Validate checks that the configuration can be used to start the services.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http_port %d out of range", c.HTTPPort))
	}
	if c.RelayPort <= 0 || c.RelayPort > 65535 {
		errs = append(errs, fmt.Errorf("relay_port %d out of range", c.RelayPort))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics_port %d out of range", c.MetricsPort))
	}
	if c.RelayBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("relay_buffer_size must be positive, got %d", c.RelayBufferSize))
	}
	if c.DocRoot == "" {
		errs = append(errs, errors.New("doc_root is empty"))
	}
	if c.StorePath == "" {
		errs = append(errs, errors.New("store_path is empty"))
	}
	if !strings.HasPrefix(c.ConfirmPath, "/") {
		errs = append(errs, fmt.Errorf("confirm_path %q must start with /", c.ConfirmPath))
	}
	return errors.Join(errs...)
}

// HTTPAddr is the listen address of the HTTP front end.
func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// RelayAddr is the well-known address of the datagram relay listener.
func (c *Config) RelayAddr() string {
	return net.JoinHostPort(c.RelayHost, strconv.Itoa(c.RelayPort))
}

// MetricsAddr is the listen address of the metrics endpoint.
func (c *Config) MetricsAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.MetricsPort))
}
