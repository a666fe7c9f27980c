// Package remote talks to the Table Directory and Layout Persistence services
// over HTTP when they are deployed separately from the editor.
package remote

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Status, e.Body)
}

// newClient builds the shared resty client. Failed calls are surfaced to the
// user and retried by hand, so resty's retries stay off.
func newClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

func checkResponse(op string, resp *resty.Response, err error, logger *slog.Logger) error {
	if err != nil {
		logger.Error("remote call failed", "op", op, "error", err)
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if resp.IsError() {
		logger.Error("remote call rejected", "op", op, "status", resp.StatusCode())
		return &StatusError{Op: op, Status: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}
	return nil
}

func isNotFound(resp *resty.Response) bool {
	return resp != nil && resp.StatusCode() == http.StatusNotFound
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
