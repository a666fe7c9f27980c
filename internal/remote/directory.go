package remote

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vbonduro/floorplan/internal/domain"
)

// DirectoryClient is the HTTP Table Directory.
type DirectoryClient struct {
	http   *resty.Client
	logger *slog.Logger
}

func NewDirectoryClient(baseURL string, timeout time.Duration, logger *slog.Logger) *DirectoryClient {
	return &DirectoryClient{http: newClient(baseURL, timeout), logger: logger}
}

func (c *DirectoryClient) ListTables(ctx context.Context, areaID int64) ([]domain.TableRecord, error) {
	var tables []domain.TableRecord
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("areaID", strconv.FormatInt(areaID, 10)).
		SetResult(&tables).
		Get("/areas/{areaID}/tables")
	if err := checkResponse("list tables", resp, err, c.logger); err != nil {
		return nil, err
	}
	c.logger.Debug("tables listed", "area_id", areaID, "count", len(tables))
	return tables, nil
}

type replaceTablesRequest struct {
	Tables []domain.TableAssignment `json:"tables"`
}

func (c *DirectoryClient) ReplaceTables(ctx context.Context, areaID int64, tables []domain.TableAssignment) ([]domain.ConfirmedCode, error) {
	var codes []domain.ConfirmedCode
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("areaID", strconv.FormatInt(areaID, 10)).
		SetBody(replaceTablesRequest{Tables: tables}).
		SetResult(&codes).
		Put("/areas/{areaID}/tables")
	if err := checkResponse("replace tables", resp, err, c.logger); err != nil {
		return nil, err
	}
	c.logger.Info("tables replaced", "area_id", areaID, "count", len(codes))
	return codes, nil
}
