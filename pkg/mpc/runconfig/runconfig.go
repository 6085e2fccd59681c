// Package runconfig loads and saves the JSON run description a party
// process needs to join a protocol run: its own id and threshold
// parameters, its libp2p identity and listen address, and (for
// networked runs) its peers' libp2p addresses. The circuit is not part
// of it. The persistence shape follows the teacher's ConfigManager: a
// single JSON file, loaded and saved under a mutex, timestamped on
// every save.
package runconfig

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// PeerAddr names one other party's libp2p dial address, a full
// multiaddr including the /p2p/<peer-id> suffix.
type PeerAddr struct {
	ID        int    `json:"id"`
	Multiaddr string `json:"multiaddr"`
}

// Config is the full run description for a single party process.
type Config struct {
	PartyID       int        `json:"party_id"`
	N             int        `json:"n"`
	T             int        `json:"t"`
	ListenAddr    string     `json:"listen_addr,omitempty"`
	PrivateKeyB64 string     `json:"private_key_b64,omitempty"`
	Peers         []PeerAddr `json:"peers,omitempty"`
	LastSavedAt   string     `json:"last_saved_at,omitempty"`
}

// Manager handles loading and saving one party's run configuration.
type Manager struct {
	path string
	mu   sync.RWMutex
	cfg  *Config
}

// NewManager returns a Manager backed by the JSON file at path. The
// file need not exist yet; Load returns ErrNotExist-wrapping errors
// the caller can treat as "use defaults."
func NewManager(path string) *Manager {
	return &Manager{path: path, cfg: &Config{}}
}

// Load reads the config file from disk.
func (m *Manager) Load() (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("runconfig: reading %s: %w", m.path, err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("runconfig: parsing %s: %w", m.path, err)
	}
	m.cfg = cfg
	log.Printf("📄 [runconfig] loaded party %d config from %s", cfg.PartyID, m.path)
	return cfg, nil
}

// Save writes cfg to disk as indented JSON, stamping LastSavedAt.
func (m *Manager) Save(cfg *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg.LastSavedAt = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("runconfig: marshaling config: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("runconfig: writing %s: %w", m.path, err)
	}
	m.cfg = cfg
	log.Printf("✅ [runconfig] saved party %d config to %s", cfg.PartyID, m.path)
	return nil
}

// PeerMultiaddr returns the dial address for peer id, or false if not
// present in the config.
func (c *Config) PeerMultiaddr(id int) (string, bool) {
	for _, p := range c.Peers {
		if p.ID == id {
			return p.Multiaddr, true
		}
	}
	return "", false
}
