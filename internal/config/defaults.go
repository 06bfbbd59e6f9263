package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns a fresh configuration: a random root key, the standard
// admin and listener ports, and every log category enabled.
func Default() (*Config, error) {
	rootKey := make([]byte, 14)
	if _, err := rand.Read(rootKey); err != nil {
		return nil, fmt.Errorf("config: generate default root key: %w", err)
	}
	jwtSecret := make([]byte, 32)
	if _, err := rand.Read(jwtSecret); err != nil {
		return nil, fmt.Errorf("config: generate default admin secret: %w", err)
	}

	return &Config{
		Listen: ListenConfig{
			Addr:          ":15050",
			SocketTimeout: Duration(30 * time.Second),
			RootKeyHex:    hex.EncodeToString(rootKey),
			MaxConns:      256,
		},
		Accounts: "accounts.yaml",
		Channels: "channels.yaml",
		Admin: AdminConfig{
			Addr:      ":8080",
			JWTSecret: hex.EncodeToString(jwtSecret),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Categories: []string{"all"},
		},
	}, nil
}

// WriteDefault writes a freshly generated default config to path, refusing
// to clobber an existing file. Called at startup when no config file is
// found at the configured path.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists, refusing to overwrite", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}

	cfg, err := Default()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal defaults: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
