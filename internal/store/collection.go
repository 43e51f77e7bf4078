package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vbonduro/wastecapture/internal/domain"
)

// Namespace is the key the whole item collection is stored under.
const Namespace = "@captured_items"

var (
	ErrInvalidItem     = errors.New("invalid item")
	ErrCorruptDocument = errors.New("corrupt items document")
)

// ValidateItem enforces the invariants every stored record must satisfy.
func ValidateItem(item domain.CapturedItem) error {
	switch {
	case strings.TrimSpace(item.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidItem)
	case strings.TrimSpace(item.PhotoURI) == "":
		return fmt.Errorf("%w: photoUri is required", ErrInvalidItem)
	case strings.TrimSpace(item.WasteType) == "":
		return fmt.Errorf("%w: wasteType is required", ErrInvalidItem)
	}
	return nil
}

// DecodeItems parses a stored collection document. An empty document is an
// empty collection.
func DecodeItems(data []byte) ([]domain.CapturedItem, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return []domain.CapturedItem{}, nil
	}
	var items []domain.CapturedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	if items == nil {
		items = []domain.CapturedItem{}
	}
	return items, nil
}

func EncodeItems(items []domain.CapturedItem) ([]byte, error) {
	if items == nil {
		items = []domain.CapturedItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}
	return data, nil
}

// Prepend validates item and returns a new collection with item at index 0.
func Prepend(items []domain.CapturedItem, item domain.CapturedItem) ([]domain.CapturedItem, error) {
	if err := ValidateItem(item); err != nil {
		return nil, err
	}
	if indexOf(items, item.ID) >= 0 {
		return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidItem, item.ID)
	}
	out := make([]domain.CapturedItem, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...), nil
}

// Remove returns the collection without id and whether anything was removed.
func Remove(items []domain.CapturedItem, id string) ([]domain.CapturedItem, bool) {
	i := indexOf(items, id)
	if i < 0 {
		return items, false
	}
	out := make([]domain.CapturedItem, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...), true
}

// Find returns a copy of the item with id, or nil.
func Find(items []domain.CapturedItem, id string) *domain.CapturedItem {
	i := indexOf(items, id)
	if i < 0 {
		return nil
	}
	item := items[i]
	return &item
}

// Replace applies u to the item with id in place. It reports whether the
// item existed.
func Replace(items []domain.CapturedItem, id string, u domain.ItemUpdate) (bool, error) {
	i := indexOf(items, id)
	if i < 0 {
		return false, nil
	}
	updated := u.Apply(items[i])
	if err := ValidateItem(updated); err != nil {
		return true, err
	}
	items[i] = updated
	return true, nil
}

func indexOf(items []domain.CapturedItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
