// Package channels implements the two lookup tables the core consumes
// for logging only (spec.md §6 "Channel-name lookup contract"): channel
// names keyed by (caid, sid), and a client-name-by-sid table. Both are
// loaded from YAML so they can be edited without a rebuild.
package channels

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Entry is one channel-name mapping as it appears in the YAML file.
type Entry struct {
	CAID uint16 `yaml:"caid"`
	SID  uint16 `yaml:"sid"`
	Name string `yaml:"name"`
}

// File is the on-disk shape of the channels YAML document.
type File struct {
	Channels []Entry           `yaml:"channels"`
	Clients  map[uint16]string `yaml:"clients"` // sid -> client name
}

type key struct {
	caid uint16
	sid  uint16
}

// Table is a reloadable (caid,sid)->name and sid->client-name lookup.
// Implements pkg/newcamd.ChannelNameLookup.
type Table struct {
	mu       sync.RWMutex
	channels map[key]string
	clients  map[uint16]string
}

// NewTable returns an empty table; Load or Replace populates it.
func NewTable() *Table {
	return &Table{
		channels: make(map[key]string),
		clients:  make(map[uint16]string),
	}
}

// Load reads and parses path, replacing the table's contents.
func (t *Table) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("channels: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("channels: parse %s: %w", path, err)
	}
	t.Replace(f)
	return nil
}

// Replace atomically swaps in a freshly parsed file's contents.
func (t *Table) Replace(f File) {
	channels := make(map[key]string, len(f.Channels))
	for _, e := range f.Channels {
		channels[key{e.CAID, e.SID}] = e.Name
	}
	clients := make(map[uint16]string, len(f.Clients))
	for sid, name := range f.Clients {
		clients[sid] = name
	}

	t.mu.Lock()
	t.channels = channels
	t.clients = clients
	t.mu.Unlock()
}

// Lookup resolves (caid, sid) to a channel name. Satisfies
// pkg/newcamd.ChannelNameLookup.
func (t *Table) Lookup(caid, sid uint16) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok := t.channels[key{caid, sid}]
	return name, ok
}

// ClientName resolves a service-id to the logging-only client-name
// table entry, falling back to "" when sid has no entry.
func (t *Table) ClientName(sid uint16) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.clients[sid]
}
