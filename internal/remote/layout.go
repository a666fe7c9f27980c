package remote

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vbonduro/floorplan/internal/domain"
	"github.com/vbonduro/floorplan/internal/layout"
)

// LayoutClient is the HTTP Layout Persistence.
type LayoutClient struct {
	http   *resty.Client
	logger *slog.Logger
}

func NewLayoutClient(baseURL string, timeout time.Duration, logger *slog.Logger) *LayoutClient {
	return &LayoutClient{http: newClient(baseURL, timeout), logger: logger}
}

// GetLayout treats a 404 as an area that has never been laid out.
func (c *LayoutClient) GetLayout(ctx context.Context, areaID int64) (layout.Versions, error) {
	var v layout.Versions
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("areaID", strconv.FormatInt(areaID, 10)).
		SetResult(&v).
		Get("/areas/{areaID}/layout")
	if err == nil && isNotFound(resp) {
		return layout.Versions{}, nil
	}
	if err := checkResponse("get layout", resp, err, c.logger); err != nil {
		return layout.Versions{}, err
	}
	return v, nil
}

type putLayoutRequest struct {
	Status domain.LayoutStatus `json:"status"`
	Layout *layout.Document    `json:"layout"`
}

func (c *LayoutClient) PutLayout(ctx context.Context, areaID int64, status domain.LayoutStatus, doc *layout.Document) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("areaID", strconv.FormatInt(areaID, 10)).
		SetBody(putLayoutRequest{Status: status, Layout: doc}).
		Put("/areas/{areaID}/layout")
	if err := checkResponse("put layout", resp, err, c.logger); err != nil {
		return err
	}
	c.logger.Info("layout stored", "area_id", areaID, "status", status, "items", len(doc.Items))
	return nil
}
