// ABOUTME: Test utilities for creating isolated charm clients
// ABOUTME: Backs the client store with a BadgerDB in a temp directory, no server needed

package charm

import (
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v3"
)

// badgerStore satisfies store with a local BadgerDB and a no-op Sync.
type badgerStore struct {
	db *badger.DB
}

func (b *badgerStore) Get(key []byte) ([]byte, error) {
	var result []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	return result, err
}

func (b *badgerStore) Set(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *badgerStore) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *badgerStore) Keys() ([][]byte, error) {
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

func (b *badgerStore) Sync() error {
	return nil
}

func (b *badgerStore) Reset() error {
	return b.db.DropAll()
}

// NewTestClient creates a client over a throwaway BadgerDB. The cleanup
// function closes the database; the directory is removed by the test framework.
func NewTestClient(t *testing.T) (*Client, func()) {
	t.Helper()

	dataDir := filepath.Join(t.TempDir(), AppName)
	db, err := badger.Open(badger.DefaultOptions(dataDir).WithLogger(nil))
	if err != nil {
		t.Fatalf("failed to open badger: %v", err)
	}

	c := &Client{
		store:  &badgerStore{db: db},
		config: &Config{Host: "localhost", AutoSync: false},
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test database: %v", err)
		}
	}
	return c, cleanup
}
