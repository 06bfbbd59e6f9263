// Package config loads and validates the server's YAML configuration:
// decode with KnownFields(true), resolve relative paths against the
// config file's directory, then validate. Range and cardinality
// constraints are expressed as validator tags
// (github.com/go-playground/validator/v10) rather than hand-rolled checks.
package config

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/barnettlynn/ncamd/internal/logging"
)

// Config is the server's full on-disk configuration.
type Config struct {
	Listen   ListenConfig  `yaml:"listen" validate:"required"`
	Accounts string        `yaml:"accounts_file" validate:"required"`
	Channels string        `yaml:"channels_file"`
	Admin    AdminConfig   `yaml:"admin" validate:"required"`
	Logging  LoggingConfig `yaml:"logging" validate:"required"`
}

// ListenConfig covers the listener socket and the Newcamd root key.
type ListenConfig struct {
	Addr          string   `yaml:"addr" validate:"required,hostname_port"`
	SocketTimeout Duration `yaml:"socket_timeout" validate:"required,gt=0"`
	RootKeyHex    string   `yaml:"root_key_hex" validate:"required,len=28,hexadecimal"`
	MaxConns      int      `yaml:"max_connections" validate:"required,gt=0,lte=256"`
}

// AdminConfig covers the administrative HTTP API.
type AdminConfig struct {
	Addr      string `yaml:"addr" validate:"required,hostname_port"`
	JWTSecret string `yaml:"jwt_secret" validate:"required,min=16"`
}

// LoggingConfig covers the slog sink and the category mask (§6).
type LoggingConfig struct {
	Level      string   `yaml:"level" validate:"required,oneof=debug info warn error"`
	Categories []string `yaml:"categories" validate:"required,dive,oneof=net client ecm proto config admin ban all"`
}

var validate = validator.New()

// Load reads, decodes, and validates the config file at path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.resolvePaths(path)

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, err := cfg.Listen.RootKey(); err != nil {
		return nil, fmt.Errorf("config: listen.root_key_hex: %w", err)
	}
	return &cfg, nil
}

// RootKey decodes the hex-encoded 14-byte Newcamd root key.
func (l ListenConfig) RootKey() ([14]byte, error) {
	var key [14]byte
	raw, err := hex.DecodeString(l.RootKeyHex)
	if err != nil {
		return key, fmt.Errorf("not valid hex: %w", err)
	}
	if len(raw) != 14 {
		return key, fmt.Errorf("decoded to %d bytes, want 14", len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// CategoryMask resolves the configured category names to a logging.Category
// bitmask.
func (l LoggingConfig) CategoryMask() (logging.Category, error) {
	return logging.ParseCategories(l.Categories)
}

func (c *Config) resolvePaths(configPath string) {
	dir := filepath.Dir(configPath)
	c.Accounts = resolvePath(dir, c.Accounts)
	c.Channels = resolvePath(dir, c.Channels)
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}
