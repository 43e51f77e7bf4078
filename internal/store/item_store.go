package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vbonduro/wastecapture/internal/domain"
)

// ItemStore keeps the captured item collection as one JSON document in the
// documents table. Every write replaces the document inside a transaction.
type ItemStore struct {
	db     *sql.DB
	logger *slog.Logger
	mu     sync.Mutex
}

func NewItemStore(db *sql.DB, logger *slog.Logger) *ItemStore {
	return &ItemStore{db: db, logger: logger}
}

// List returns the stored items newest first. Read or decode failures are
// logged and yield an empty list.
func (s *ItemStore) List(ctx context.Context) []domain.CapturedItem {
	items, err := s.load(ctx, s.db)
	if err != nil {
		s.logger.Error("failed to read items", "error", err)
		return []domain.CapturedItem{}
	}
	return items
}

// Get returns the item with id, or nil if it is not stored.
func (s *ItemStore) Get(ctx context.Context, id string) (*domain.CapturedItem, error) {
	items, err := s.load(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return Find(items, id), nil
}

func (s *ItemStore) Save(ctx context.Context, item domain.CapturedItem) error {
	return s.write(ctx, func(items []domain.CapturedItem) ([]domain.CapturedItem, error) {
		return Prepend(items, item)
	})
}

// Update merges u into the item with id. Updating an absent id is a no-op.
func (s *ItemStore) Update(ctx context.Context, id string, u domain.ItemUpdate) error {
	return s.write(ctx, func(items []domain.CapturedItem) ([]domain.CapturedItem, error) {
		if _, err := Replace(items, id, u); err != nil {
			return nil, err
		}
		return items, nil
	})
}

// Delete removes the item with id. Deleting an absent id is a no-op.
func (s *ItemStore) Delete(ctx context.Context, id string) error {
	return s.write(ctx, func(items []domain.CapturedItem) ([]domain.CapturedItem, error) {
		out, _ := Remove(items, id)
		return out, nil
	})
}

func (s *ItemStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE namespace = ?`, Namespace); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *ItemStore) load(ctx context.Context, q querier) ([]domain.CapturedItem, error) {
	var body string
	err := q.QueryRowContext(ctx, `SELECT body FROM documents WHERE namespace = ?`, Namespace).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.CapturedItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}
	return DecodeItems([]byte(body))
}

// write runs mutate against the current collection and stores the result
// atomically. A corrupt document is treated as empty and overwritten.
func (s *ItemStore) write(ctx context.Context, mutate func([]domain.CapturedItem) ([]domain.CapturedItem, error)) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
				s.logger.Error("failed to roll back items write", "error", rerr)
			}
		}
	}()

	items, err := s.load(ctx, tx)
	if errors.Is(err, ErrCorruptDocument) {
		s.logger.Warn("replacing unreadable items document", "error", err)
		items, err = []domain.CapturedItem{}, nil
	}
	if err != nil {
		return err
	}

	items, err = mutate(items)
	if err != nil {
		return err
	}

	body, err := EncodeItems(items)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO documents (namespace, body, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(namespace) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`, Namespace, string(body)); err != nil {
		return fmt.Errorf("failed to write items: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit items: %w", err)
	}
	return nil
}
