package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/floorplan/internal/domain"
)

func TestWriteTablesXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTablesXLSX(&buf, "Terrace", []domain.TableRecord{
		{Code: "T1", Seats: 4, Status: domain.TableStatusAvailable},
		{Code: "T2", Seats: 2, Status: domain.TableStatusOccupied},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Tables"}, f.GetSheetList())
	rows, err := f.GetRows("Tables")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Area", "Code", "Seats", "Status"},
		{"Terrace", "T1", "4", "available"},
		{"Terrace", "T2", "2", "occupied"},
	}, rows)
}

func TestWriteTablesXLSXHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTablesXLSX(&buf, "Bar", nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Tables")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
