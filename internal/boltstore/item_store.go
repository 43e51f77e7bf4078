package boltstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/vbonduro/wastecapture/internal/domain"
	"github.com/vbonduro/wastecapture/internal/store"
)

var documentsBucket = []byte("documents")

// ItemStore keeps the captured item collection as one JSON value under
// store.Namespace in a bbolt bucket. bbolt update transactions make every
// replacement of the value atomic.
type ItemStore struct {
	db     *bolt.DB
	logger *slog.Logger
	mu     sync.Mutex
}

func Open(dbPath string, logger *slog.Logger) (*ItemStore, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(documentsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create documents bucket: %w", err)
	}

	return &ItemStore{db: db, logger: logger}, nil
}

func (s *ItemStore) Close() error {
	return s.db.Close()
}

// List returns the stored items newest first, or an empty list if the
// document cannot be read.
func (s *ItemStore) List(ctx context.Context) []domain.CapturedItem {
	items, err := s.load()
	if err != nil {
		s.logger.Error("failed to read items", "error", err)
		return []domain.CapturedItem{}
	}
	return items
}

func (s *ItemStore) Get(ctx context.Context, id string) (*domain.CapturedItem, error) {
	items, err := s.load()
	if err != nil {
		return nil, err
	}
	return store.Find(items, id), nil
}

func (s *ItemStore) Save(ctx context.Context, item domain.CapturedItem) error {
	return s.write(ctx, func(items []domain.CapturedItem) ([]domain.CapturedItem, error) {
		return store.Prepend(items, item)
	})
}

func (s *ItemStore) Update(ctx context.Context, id string, u domain.ItemUpdate) error {
	return s.write(ctx, func(items []domain.CapturedItem) ([]domain.CapturedItem, error) {
		if _, err := store.Replace(items, id, u); err != nil {
			return nil, err
		}
		return items, nil
	})
}

func (s *ItemStore) Delete(ctx context.Context, id string) error {
	return s.write(ctx, func(items []domain.CapturedItem) ([]domain.CapturedItem, error) {
		out, _ := store.Remove(items, id)
		return out, nil
	})
}

func (s *ItemStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).Delete([]byte(store.Namespace))
	})
	if err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	return nil
}

func (s *ItemStore) load() ([]domain.CapturedItem, error) {
	var items []domain.CapturedItem
	err := s.db.View(func(tx *bolt.Tx) error {
		// Get's slice is only valid inside the transaction; DecodeItems copies.
		var err error
		items, err = store.DecodeItems(tx.Bucket(documentsBucket).Get([]byte(store.Namespace)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ItemStore) write(ctx context.Context, mutate func([]domain.CapturedItem) ([]domain.CapturedItem, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(documentsBucket)

		items, err := store.DecodeItems(b.Get([]byte(store.Namespace)))
		if err != nil {
			s.logger.Warn("replacing unreadable items document", "error", err)
			items = []domain.CapturedItem{}
		}

		items, err = mutate(items)
		if err != nil {
			return err
		}

		body, err := store.EncodeItems(items)
		if err != nil {
			return err
		}

		if err := b.Put([]byte(store.Namespace), body); err != nil {
			return fmt.Errorf("failed to write items: %w", err)
		}
		return nil
	})
}
