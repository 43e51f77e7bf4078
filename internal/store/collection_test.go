package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/wastecapture/internal/domain"
)

func TestDecodeItems(t *testing.T) {
	items, err := DecodeItems(nil)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = DecodeItems([]byte("null"))
	require.NoError(t, err)
	assert.NotNil(t, items)

	_, err = DecodeItems([]byte("[{"))
	assert.ErrorIs(t, err, ErrCorruptDocument)
}

func TestEncodeItemsNilIsEmptyArray(t *testing.T) {
	data, err := EncodeItems(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestRemove(t *testing.T) {
	items := []domain.CapturedItem{newTestItem("a", "x"), newTestItem("b", "y"), newTestItem("c", "z")}

	out, removed := Remove(items, "b")
	assert.True(t, removed)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
	// The input is not modified.
	assert.Len(t, items, 3)

	out, removed = Remove(items, "missing")
	assert.False(t, removed)
	assert.Len(t, out, 3)
}

func TestPrependDoesNotAliasInput(t *testing.T) {
	items := make([]domain.CapturedItem, 1, 4)
	items[0] = newTestItem("a", "x")

	out, err := Prepend(items, newTestItem("b", "y"))
	require.NoError(t, err)
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "a", items[0].ID)
}
