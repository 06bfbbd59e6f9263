package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ncamd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfigYAML = `
listen:
  addr: ":15050"
  socket_timeout: 30s
  root_key_hex: "0102030405060708091011121314"
  max_connections: 64
accounts_file: accounts.yaml
channels_file: channels.yaml
admin:
  addr: ":8080"
  jwt_secret: "0123456789abcdef0123456789abcdef"
logging:
  level: info
  categories: [all]
`

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, validConfigYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen.Addr != ":15050" {
		t.Fatalf("listen addr = %q", cfg.Listen.Addr)
	}

	wantAccounts := filepath.Join(filepath.Dir(path), "accounts.yaml")
	if cfg.Accounts != wantAccounts {
		t.Fatalf("accounts path = %q, want %q", cfg.Accounts, wantAccounts)
	}

	rootKey, err := cfg.Listen.RootKey()
	if err != nil {
		t.Fatalf("RootKey: %v", err)
	}
	want := [14]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x10, 0x11, 0x12, 0x13, 0x14}
	if rootKey != want {
		t.Fatalf("RootKey = %x, want %x", rootKey, want)
	}

	mask, err := cfg.Logging.CategoryMask()
	if err != nil {
		t.Fatalf("CategoryMask: %v", err)
	}
	if mask == 0 {
		t.Fatalf("expected nonzero mask for category \"all\"")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, validConfigYAML+"\nbogus_field: true\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown top-level field")
	}
}

func TestLoadRejectsBadRootKeyLength(t *testing.T) {
	bad := `
listen:
  addr: ":15050"
  socket_timeout: 30s
  root_key_hex: "0102"
  max_connections: 64
accounts_file: accounts.yaml
admin:
  addr: ":8080"
  jwt_secret: "0123456789abcdef0123456789abcdef"
logging:
  level: info
  categories: [all]
`
	path := writeConfig(t, bad)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for short root_key_hex")
	}
}

func TestLoadResolvesRelativePathsAgainstConfigDir(t *testing.T) {
	path := writeConfig(t, validConfigYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !filepath.IsAbs(cfg.Accounts) || !filepath.IsAbs(cfg.Channels) {
		t.Fatalf("expected resolved absolute paths, got accounts=%q channels=%q", cfg.Accounts, cfg.Channels)
	}
}

func TestLoadAbsolutePathsLeftUntouched(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "somewhere", "accounts.yaml")
	content := `
listen:
  addr: ":15050"
  socket_timeout: 30s
  root_key_hex: "0102030405060708091011121314"
  max_connections: 64
accounts_file: ` + abs + `
admin:
  addr: ":8080"
  jwt_secret: "0123456789abcdef0123456789abcdef"
logging:
  level: info
  categories: [all]
`
	path := writeConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Accounts != abs {
		t.Fatalf("absolute accounts path should pass through unchanged, got %q", cfg.Accounts)
	}
}
