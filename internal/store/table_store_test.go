package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/floorplan/internal/domain"
)

func codesByClient(codes []domain.ConfirmedCode) map[string]string {
	out := make(map[string]string, len(codes))
	for _, c := range codes {
		out[c.ClientID] = c.Code
	}
	return out
}

func TestTableStoreReplaceIssuesCodes(t *testing.T) {
	d := openTestDB(t)
	area, err := NewAreaStore(d).Create(context.Background(), "Main")
	require.NoError(t, err)
	store := NewTableStore(d)
	ctx := context.Background()

	codes, err := store.ReplaceTables(ctx, area.ID, []domain.TableAssignment{
		{ClientID: "a", Name: "1", Seats: 4},
		{ClientID: "b", Name: "2", Seats: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "T1", "b": "T2"}, codesByClient(codes))

	tables, err := store.ListTables(ctx, area.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.TableRecord{
		{Code: "T1", Seats: 4, Status: domain.TableStatusAvailable},
		{Code: "T2", Seats: 2, Status: domain.TableStatusAvailable},
	}, tables)
}

func TestTableStoreReplaceKeepsStableCodes(t *testing.T) {
	d := openTestDB(t)
	area, err := NewAreaStore(d).Create(context.Background(), "Main")
	require.NoError(t, err)
	store := NewTableStore(d)
	ctx := context.Background()

	_, err = store.ReplaceTables(ctx, area.ID, []domain.TableAssignment{
		{ClientID: "a", Name: "Window", Seats: 4},
		{ClientID: "b", Name: "Door", Seats: 2},
		{ClientID: "c", Name: "Corner", Seats: 2},
	})
	require.NoError(t, err)

	// "a" keeps its code by client id even though it was renamed, "d" inherits
	// Door's code by name, "c" is dropped and "e" gets a fresh code.
	codes, err := store.ReplaceTables(ctx, area.ID, []domain.TableAssignment{
		{ClientID: "a", Name: "Window seat", Seats: 6},
		{ClientID: "d", Name: " door ", Seats: 2},
		{ClientID: "e", Name: "Booth", Seats: 8},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "T1", "d": "T2", "e": "T4"}, codesByClient(codes))

	tables, err := store.ListTables(ctx, area.ID)
	require.NoError(t, err)
	require.Len(t, tables, 3)
	assert.Equal(t, 6, tables[0].Seats)
}

func TestTableStoreReplaceDuplicateNamesGetDistinctCodes(t *testing.T) {
	d := openTestDB(t)
	area, err := NewAreaStore(d).Create(context.Background(), "Main")
	require.NoError(t, err)
	store := NewTableStore(d)
	ctx := context.Background()

	_, err = store.ReplaceTables(ctx, area.ID, []domain.TableAssignment{{ClientID: "a", Name: "Twin", Seats: 2}})
	require.NoError(t, err)

	codes, err := store.ReplaceTables(ctx, area.ID, []domain.TableAssignment{
		{ClientID: "a", Name: "Twin", Seats: 2},
		{ClientID: "copy", Name: "Twin", Seats: 2},
	})
	require.NoError(t, err)
	got := codesByClient(codes)
	assert.Equal(t, "T1", got["a"])
	assert.Equal(t, "T2", got["copy"])
}

func TestTableStoreAreasAreIsolated(t *testing.T) {
	d := openTestDB(t)
	areas := NewAreaStore(d)
	ctx := context.Background()
	first, err := areas.Create(ctx, "First")
	require.NoError(t, err)
	second, err := areas.Create(ctx, "Second")
	require.NoError(t, err)
	store := NewTableStore(d)

	_, err = store.ReplaceTables(ctx, first.ID, []domain.TableAssignment{{ClientID: "a", Name: "1", Seats: 2}})
	require.NoError(t, err)
	codes, err := store.ReplaceTables(ctx, second.ID, []domain.TableAssignment{{ClientID: "b", Name: "1", Seats: 2}})
	require.NoError(t, err)
	assert.Equal(t, "T1", codes[0].Code)

	tables, err := store.ListTables(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, tables, 1)

	empty, err := store.ListTables(ctx, second.ID+10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
