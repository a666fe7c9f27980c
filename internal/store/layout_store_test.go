package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/floorplan/internal/domain"
	"github.com/vbonduro/floorplan/internal/geometry"
	"github.com/vbonduro/floorplan/internal/layout"
)

func TestLayoutStoreEmptyArea(t *testing.T) {
	store := NewLayoutStore(openTestDB(t))

	v, err := store.GetLayout(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, v.Draft)
	assert.Nil(t, v.Published)
	assert.Nil(t, v.Latest())
}

func TestLayoutStoreDraftThenPublish(t *testing.T) {
	d := openTestDB(t)
	area, err := NewAreaStore(d).Create(context.Background(), "Main")
	require.NoError(t, err)
	store := NewLayoutStore(d)
	ctx := context.Background()

	doc := layout.New(1200, 800)
	table, err := doc.AddItem(layout.KindRoundTable, geometry.Point{X: 100, Y: 100}, layout.Defaults{})
	require.NoError(t, err)

	require.NoError(t, store.PutLayout(ctx, area.ID, domain.LayoutDraft, doc))
	v, err := store.GetLayout(ctx, area.ID)
	require.NoError(t, err)
	require.NotNil(t, v.Draft)
	assert.Nil(t, v.Published)
	assert.Equal(t, doc, v.Draft)

	_, err = doc.UpdateItem(table.ID, layout.Patch{Code: ptr("T1")})
	require.NoError(t, err)
	require.NoError(t, store.PutLayout(ctx, area.ID, domain.LayoutDraft, doc))
	require.NoError(t, store.PutLayout(ctx, area.ID, domain.LayoutPublished, doc))

	v, err = store.GetLayout(ctx, area.ID)
	require.NoError(t, err)
	assert.Nil(t, v.Draft, "publishing clears the draft")
	require.NotNil(t, v.Published)
	assert.Equal(t, "T1", v.Published.Items[0].Code)
	assert.Same(t, v.Published, v.Latest())
}

func TestLayoutStoreRejectsUnknownStatus(t *testing.T) {
	store := NewLayoutStore(openTestDB(t))
	err := store.PutLayout(context.Background(), 1, domain.LayoutStatus("archived"), layout.New(1, 1))
	assert.Error(t, err)
}

func ptr[T any](v T) *T { return &v }
