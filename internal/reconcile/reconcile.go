// Package reconcile merges the Table Directory's records into a layout so
// every directory table has a visual counterpart.
package reconcile

import (
	"strings"

	"github.com/vbonduro/floorplan/internal/domain"
	"github.com/vbonduro/floorplan/internal/layout"
)

const (
	DefaultSpacing = 120.0
	DefaultMargin  = 80.0
)

// Placement controls where tables missing from the layout are auto-placed.
type Placement struct {
	CanvasWidth float64
	Spacing     float64
	Margin      float64
}

func (p Placement) withDefaults() Placement {
	if p.Spacing <= 0 {
		p.Spacing = DefaultSpacing
	}
	if p.Margin < 0 {
		p.Margin = 0
	} else if p.Margin == 0 {
		p.Margin = DefaultMargin
	}
	return p
}

func (p Placement) columns() int {
	cols := int((p.CanvasWidth-2*p.Margin)/p.Spacing) + 1
	if cols < 1 {
		return 1
	}
	return cols
}

// slot returns the center of the idx-th grid cell, filled row by row.
func (p Placement) slot(idx int) (x, y float64) {
	cols := p.columns()
	return p.Margin + float64(idx%cols)*p.Spacing, p.Margin + float64(idx/cols)*p.Spacing
}

// NormalizeCode is the key table items and records are matched on.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Merge returns items extended with a round table for every record whose code
// no table item carries yet. Matched tables without a seat count take the
// record's; explicit seat counts are never overwritten. Records with a blank
// code are skipped. The input slice is not modified.
func Merge(items []layout.Item, records []domain.TableRecord, placement Placement) []layout.Item {
	placement = placement.withDefaults()

	out := make([]layout.Item, len(items), len(items)+len(records))
	copy(out, items)

	byCode := make(map[string]int, len(items))
	for i, it := range out {
		if !it.IsTable() {
			continue
		}
		key := NormalizeCode(it.Code)
		if key == "" {
			continue
		}
		if _, dup := byCode[key]; !dup {
			byCode[key] = i
		}
	}

	for _, rec := range records {
		key := NormalizeCode(rec.Code)
		if key == "" {
			continue
		}
		if i, ok := byCode[key]; ok {
			if out[i].Seats == nil {
				seats := rec.Seats
				out[i].Seats = &seats
			}
			continue
		}

		x, y := placement.slot(len(out))
		w, h := layout.KindRoundTable.DefaultSize()
		it := layout.Item{
			ID:     layout.NewID(),
			Kind:   layout.KindRoundTable,
			X:      x,
			Y:      y,
			Width:  w,
			Height: h,
			Name:   rec.Code,
			Code:   rec.Code,
		}
		seats := rec.Seats
		it.Seats = &seats
		byCode[key] = len(out)
		out = append(out, it)
	}
	return out
}
