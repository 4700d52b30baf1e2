// ABOUTME: Charm KV client wrapper with automatic sync support
// ABOUTME: Wraps charm/kv behind a small store interface so tests can swap in BadgerDB

package charm

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
)

// store is the subset of charm/kv the directory needs.
type store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
}

// Client wraps a KV store with config and sync helpers. Writes sync to the
// Charm server when AutoSync is enabled.
type Client struct {
	store  store
	config *Config
	remote bool
	mu     sync.RWMutex
}

// NewClient opens the kin KV database against the configured Charm host.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// charm/kv reads the host from the environment when it opens.
	_ = os.Setenv("CHARM_HOST", cfg.Host)

	db, err := kv.OpenWithDefaults(AppName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := &Client{store: db, config: cfg, remote: true}

	// Pull remote changes before first use.
	if cfg.AutoSync {
		_ = db.Sync()
	}

	return c, nil
}

// Close releases the client. charm/kv leaves BadgerDB cleanup to process exit.
func (c *Client) Close() error {
	return nil
}

func (c *Client) Config() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// ID returns the charm user ID for this device.
func (c *Client) ID() (string, error) {
	if !c.remote {
		return "local", nil
	}
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// IsConnected reports whether the Charm server answers with a user ID.
func (c *Client) IsConnected() bool {
	_, err := c.ID()
	return err == nil
}

// Sync performs a manual sync with the charm server.
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Sync()
}

func (c *Client) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Get(key)
}

// Set stores a value and syncs if enabled.
func (c *Client) Set(key, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Set(key, value); err != nil {
		return err
	}
	// Sync under the lock so a concurrent write cannot interleave.
	if c.config.AutoSync {
		_ = c.store.Sync()
	}
	return nil
}

// Delete removes a key and syncs if enabled.
func (c *Client) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(key); err != nil {
		return err
	}
	if c.config.AutoSync {
		_ = c.store.Sync()
	}
	return nil
}

func (c *Client) Keys() ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Keys()
}

// KeysWithPrefix returns all keys starting with the given prefix.
func (c *Client) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	allKeys, err := c.Keys()
	if err != nil {
		return nil, err
	}

	var matched [][]byte
	for _, k := range allKeys {
		if bytes.HasPrefix(k, prefix) {
			matched = append(matched, k)
		}
	}
	return matched, nil
}

// Reset wipes all data from the KV store.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Reset()
}
