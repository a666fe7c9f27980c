package layout

import (
	"encoding/json"
	"fmt"
)

// Kind is the closed set of element variants a layout can hold. Every switch
// over Kind in this module lists all six cases and fails loudly on anything
// else, so adding a kind means visiting each of them.
type Kind string

const (
	KindRoundTable Kind = "round-table"
	KindRectTable  Kind = "rect-table"
	KindChair      Kind = "chair"
	KindWall       Kind = "wall"
	KindLabel      Kind = "label"
	KindPolygon    Kind = "polygon"
)

// Kinds lists every valid kind in palette order.
var Kinds = []Kind{KindRoundTable, KindRectTable, KindChair, KindWall, KindLabel, KindPolygon}

const (
	minSizeWall    = 8.0
	minSizeDefault = 24.0
	// MinPolygonExtent floors the bounding box of a freshly closed polygon.
	MinPolygonExtent = 24.0
)

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	switch k {
	case KindRoundTable, KindRectTable, KindChair, KindWall, KindLabel, KindPolygon:
		return true
	default:
		return false
	}
}

// IsTable reports whether items of this kind reference a directory table.
func (k Kind) IsTable() bool {
	switch k {
	case KindRoundTable, KindRectTable:
		return true
	case KindChair, KindWall, KindLabel, KindPolygon:
		return false
	default:
		panic(fmt.Sprintf("layout: unhandled kind %q", string(k)))
	}
}

// MinSize is the smallest width/height an item of this kind may have.
// Polygons report zero: their extent is derived from their points.
func (k Kind) MinSize() float64 {
	switch k {
	case KindWall:
		return minSizeWall
	case KindRoundTable, KindRectTable, KindChair, KindLabel:
		return minSizeDefault
	case KindPolygon:
		return 0
	default:
		panic(fmt.Sprintf("layout: unhandled kind %q", string(k)))
	}
}

// DefaultSize is the footprint a new item of this kind is created with.
func (k Kind) DefaultSize() (w, h float64) {
	switch k {
	case KindRoundTable:
		return 80, 80
	case KindRectTable:
		return 120, 72
	case KindChair:
		return 32, 32
	case KindWall:
		return 200, 8
	case KindLabel:
		return 120, 32
	case KindPolygon:
		return 96, 96
	default:
		panic(fmt.Sprintf("layout: unhandled kind %q", string(k)))
	}
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
