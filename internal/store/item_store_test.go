package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/wastecapture/internal/db"
	"github.com/vbonduro/wastecapture/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func newTestItem(id, wasteType string) domain.CapturedItem {
	return domain.CapturedItem{
		ID:         id,
		PhotoURI:   "capture_" + id + ".jpg",
		WasteType:  wasteType,
		CapturedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		CapturedBy: "Driver",
	}
}

func TestItemStoreSaveListNewestFirst(t *testing.T) {
	items := NewItemStore(openTestDB(t), slog.Default())
	ctx := context.Background()

	require.NoError(t, items.Save(ctx, newTestItem("a", "Sofa")))
	require.NoError(t, items.Save(ctx, newTestItem("b", "Fridge")))

	list := items.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)

	// Stable across reads until the next write.
	assert.Equal(t, list, items.List(ctx))
}

func TestItemStoreListEmpty(t *testing.T) {
	items := NewItemStore(openTestDB(t), slog.Default())

	list := items.List(context.Background())
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestItemStoreSaveRoundTripsOptionalFields(t *testing.T) {
	items := NewItemStore(openTestDB(t), slog.Default())
	ctx := context.Background()

	item := newTestItem("a", "Bulk Items (Furniture, appliances)")
	item.Volume = domain.VolumeMedium
	item.Weight = "15"
	item.Dimensions = domain.NewDimensions("90", "", "")
	item.Location = &domain.Location{Latitude: 37, Longitude: -122, Address: "12 Elm, Springfield"}
	require.NoError(t, items.Save(ctx, item))

	got, err := items.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, item, *got)
}

func TestItemStoreSaveRejectsInvalidItem(t *testing.T) {
	items := NewItemStore(openTestDB(t), slog.Default())
	ctx := context.Background()

	err := items.Save(ctx, newTestItem("a", ""))
	assert.ErrorIs(t, err, ErrInvalidItem)

	noPhoto := newTestItem("b", "Sofa")
	noPhoto.PhotoURI = ""
	assert.ErrorIs(t, items.Save(ctx, noPhoto), ErrInvalidItem)

	assert.Empty(t, items.List(ctx))
}

func TestItemStoreSaveRejectsDuplicateID(t *testing.T) {
	items := NewItemStore(openTestDB(t), slog.Default())
	ctx := context.Background()

	require.NoError(t, items.Save(ctx, newTestItem("a", "Sofa")))
	assert.ErrorIs(t, items.Save(ctx, newTestItem("a", "Chair")), ErrInvalidItem)
	assert.Len(t, items.List(ctx), 1)
}

func TestItemStoreDelete(t *testing.T) {
	items := NewItemStore(openTestDB(t), slog.Default())
	ctx := context.Background()

	require.NoError(t, items.Save(ctx, newTestItem("a", "Sofa")))
	require.NoError(t, items.Save(ctx, newTestItem("b", "Fridge")))

	require.NoError(t, items.Delete(ctx, "a"))
	list := items.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)
}

func TestItemStoreDeleteMissingIsNoop(t *testing.T) {
	items := NewItemStore(openTestDB(t), slog.Default())
	ctx := context.Background()

	require.NoError(t, items.Save(ctx, newTestItem("a", "Sofa")))
	require.NoError(t, items.Delete(ctx, "missing"))
	require.NoError(t, items.Delete(ctx, "missing"))
	assert.Len(t, items.List(ctx), 1)
}

func TestItemStoreClear(t *testing.T) {
	items := NewItemStore(openTestDB(t), slog.Default())
	ctx := context.Background()

	require.NoError(t, items.Save(ctx, newTestItem("a", "Sofa")))
	require.NoError(t, items.Clear(ctx))
	assert.Empty(t, items.List(ctx))

	// Clearing an empty store is fine too.
	require.NoError(t, items.Clear(ctx))
}

func TestItemStoreUpdate(t *testing.T) {
	items := NewItemStore(openTestDB(t), slog.Default())
	ctx := context.Background()

	require.NoError(t, items.Save(ctx, newTestItem("a", "Sofa")))

	notes := "left by the gate"
	wasteType := "Armchair"
	require.NoError(t, items.Update(ctx, "a", domain.ItemUpdate{Notes: &notes, WasteType: &wasteType}))

	got, err := items.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Armchair", got.WasteType)
	assert.Equal(t, "left by the gate", got.Notes)

	// Blanking a required field is rejected and leaves the record untouched.
	empty := ""
	assert.ErrorIs(t, items.Update(ctx, "a", domain.ItemUpdate{WasteType: &empty}), ErrInvalidItem)
	got, err = items.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Armchair", got.WasteType)

	// Unknown ids are ignored.
	require.NoError(t, items.Update(ctx, "missing", domain.ItemUpdate{Notes: &notes}))
}

func TestItemStoreGetMissing(t *testing.T) {
	items := NewItemStore(openTestDB(t), slog.Default())

	got, err := items.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestItemStoreCorruptDocument(t *testing.T) {
	d := openTestDB(t)
	items := NewItemStore(d, slog.Default())
	ctx := context.Background()

	_, err := d.Exec(`INSERT INTO documents (namespace, body) VALUES (?, ?)`, Namespace, "{not json")
	require.NoError(t, err)

	list := items.List(ctx)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	// The next write replaces the unreadable document.
	require.NoError(t, items.Save(ctx, newTestItem("a", "Sofa")))
	assert.Len(t, items.List(ctx), 1)
}

func TestItemStoreDocumentLayout(t *testing.T) {
	d := openTestDB(t)
	items := NewItemStore(d, slog.Default())
	ctx := context.Background()

	require.NoError(t, items.Save(ctx, newTestItem("a", "Sofa")))
	require.NoError(t, items.Save(ctx, newTestItem("b", "Fridge")))

	var body string
	require.NoError(t, d.QueryRow(`SELECT body FROM documents WHERE namespace = ?`, Namespace).Scan(&body))

	var raw []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, "b", raw[0]["id"])
	assert.NotContains(t, raw[0], "dimensions")
	assert.NotContains(t, raw[0], "location")
}

func TestItemStoreConcurrentSaves(t *testing.T) {
	items := NewItemStore(openTestDB(t), slog.Default())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, items.Save(ctx, newTestItem(fmt.Sprintf("item-%d", i), "Box")))
		}(i)
	}
	wg.Wait()

	assert.Len(t, items.List(ctx), 20)
}
