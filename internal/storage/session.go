package storage

import (
	"context"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"
)

var sessionBucket = []byte("kv")

// SessionBackend is the session-scoped Database implementation: a bbolt file
// that persists for the lifetime of one wallet session and is expected to be
// discarded or reinitialized between sessions. Chosen because bbolt (already
// a dependency of the wider pack) gives single-file, single-process embedded
// storage with the same get/put/batch shape the durable backend exposes,
// without requiring a running server process.
type SessionBackend struct {
	db *bbolt.DB
}

// NewSessionBackend opens (creating if absent) a bbolt database at path.
func NewSessionBackend(path string) (*SessionBackend, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: bbolt open: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: bbolt init bucket: %w", err)
	}
	return &SessionBackend{db: db}, nil
}

func (b *SessionBackend) Get(ctx context.Context, k string) ([]byte, bool, error) {
	var value []byte
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(sessionBucket).Get([]byte(k))
		if v != nil {
			found = true
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("storage: bbolt get: %w", err)
	}
	return value, found, nil
}

func (b *SessionBackend) Put(ctx context.Context, k string, v []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Put([]byte(k), v)
	})
}

func (b *SessionBackend) Batch(ctx context.Context, ops []Op) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionBucket)
		for _, op := range ops {
			switch op.Type {
			case OpPut:
				if err := bucket.Put([]byte(op.Key), op.Value); err != nil {
					return err
				}
			case OpDelete:
				if err := bucket.Delete([]byte(op.Key)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (b *SessionBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(sessionBucket).Cursor()
		prefixBytes := []byte(prefix)
		for k, _ := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

func (b *SessionBackend) Close() error {
	return b.db.Close()
}
