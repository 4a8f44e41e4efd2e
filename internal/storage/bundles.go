// Package storage persists trained model bundles using BoltDB. Bundles are
// opaque binary blobs keyed by their creation timestamp; keys sort
// lexicographically in creation order, so "latest" is a cursor seek to the
// last key. Persisted bundles are immutable: a new training run writes a new
// key and never touches prior ones.
package storage

import (
	"fmt"
	"path/filepath"
	"time"

	"edurisk/internal/ml"

	"go.etcd.io/bbolt"
)

const bundlesBucket = "model_bundles"

// BundleStore stores gob-encoded model bundles in a BoltDB file.
type BundleStore struct {
	db *bbolt.DB
}

// Open creates or opens the bundle database under the given data path.
func Open(dataPath string) (*BundleStore, error) {
	dbPath := filepath.Join(dataPath, "edurisk-models.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open model database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bundlesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bundles bucket: %w", err)
	}

	return &BundleStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BundleStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save persists a bundle under its timestamp key and returns the key.
func (s *BundleStore) Save(b *ml.TrainedModelBundle) (string, error) {
	data, err := b.Encode()
	if err != nil {
		return "", err
	}

	key := b.Key()
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bundlesBucket)).Put([]byte(key), data)
	})
	if err != nil {
		return "", fmt.Errorf("store bundle %s: %w", key, err)
	}
	return key, nil
}

// Latest returns the most recently created bundle, or ml.ErrNoBundle when
// none has been persisted.
func (s *BundleStore) Latest() (*ml.TrainedModelBundle, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bundlesBucket)).Cursor()
		k, v := c.Last()
		if k == nil {
			return ml.ErrNoBundle
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ml.DecodeBundle(data)
}

// Get returns the bundle stored under a specific key.
func (s *BundleStore) Get(key string) (*ml.TrainedModelBundle, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bundlesBucket)).Get([]byte(key))
		if v == nil {
			return ml.ErrNoBundle
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ml.DecodeBundle(data)
}

// Keys lists all stored bundle keys in creation order.
func (s *BundleStore) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bundlesBucket)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}
