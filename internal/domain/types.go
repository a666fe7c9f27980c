package domain

import "time"

// Area is a dining room (or terrace, bar...) that owns one floor plan.
type Area struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableRecord is the Table Directory's authoritative view of a table.
type TableRecord struct {
	Code   string `json:"code"`
	Seats  int    `json:"seats"`
	Status string `json:"status"`
}

const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
)

// TableAssignment is one table sent to the directory on publish. ClientID is
// the layout item id; the directory answers with a code per ClientID.
type TableAssignment struct {
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
	Seats    int    `json:"seats"`
}

type ConfirmedCode struct {
	ClientID string `json:"clientId"`
	Code     string `json:"code"`
}

type LayoutStatus string

const (
	LayoutDraft     LayoutStatus = "draft"
	LayoutPublished LayoutStatus = "published"
)
