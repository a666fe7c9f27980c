package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/floorplan/internal/domain"
	"github.com/vbonduro/floorplan/internal/layout"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDirectoryClientListTables(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/areas/7/tables", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"code":"T1","seats":4,"status":"available"}]`))
	}))
	defer srv.Close()

	c := NewDirectoryClient(srv.URL, time.Second, discardLogger())
	tables, err := c.ListTables(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, []domain.TableRecord{{Code: "T1", Seats: 4, Status: "available"}}, tables)
}

func TestDirectoryClientReplaceTables(t *testing.T) {
	var got replaceTablesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"clientId":"item-1","code":"T9"}]`))
	}))
	defer srv.Close()

	c := NewDirectoryClient(srv.URL, time.Second, discardLogger())
	codes, err := c.ReplaceTables(context.Background(), 3, []domain.TableAssignment{{ClientID: "item-1", Name: "1", Seats: 2}})

	require.NoError(t, err)
	assert.Equal(t, []domain.ConfirmedCode{{ClientID: "item-1", Code: "T9"}}, codes)
	assert.Equal(t, "item-1", got.Tables[0].ClientID)
}

func TestDirectoryClientErrorStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewDirectoryClient(srv.URL, time.Second, discardLogger())
	_, err := c.ListTables(context.Background(), 1)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Status)
	assert.Equal(t, 1, calls, "failed calls are not retried")
}

func TestLayoutClientGetLayout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/areas/404/layout" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"published":{"version":1,"canvas":{"width":800,"height":600},"gridSize":20,"items":[{"id":"a","kind":"chair","x":1,"y":2,"width":32,"height":32,"rotation":0}]}}`))
	}))
	defer srv.Close()

	c := NewLayoutClient(srv.URL, time.Second, discardLogger())

	v, err := c.GetLayout(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, v.Draft)
	require.NotNil(t, v.Published)
	assert.Equal(t, layout.KindChair, v.Published.Items[0].Kind)
	assert.Equal(t, 800.0, v.Published.Canvas.Width)

	v, err = c.GetLayout(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, v.Latest())
}

func TestLayoutClientPutLayout(t *testing.T) {
	var got struct {
		Status string          `json:"status"`
		Layout json.RawMessage `json:"layout"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/areas/5/layout", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewLayoutClient(srv.URL, time.Second, discardLogger())
	err := c.PutLayout(context.Background(), 5, domain.LayoutPublished, layout.New(640, 480))

	require.NoError(t, err)
	assert.Equal(t, "published", got.Status)
	assert.Contains(t, string(got.Layout), `"width":640`)
}
