// Package layout is the in-memory floor plan: a document of placed items that
// the editor mutates and that is persisted as JSON.
//
// Items live in a flat arena addressed by opaque id. Every mutation replaces
// the item slice (and the touched item) instead of editing it in place, so a
// consumer holding an older slice can diff by identity. Rendering code keeps
// its own id-keyed handles; the document never stores any.
package layout

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/vbonduro/floorplan/internal/geometry"
)

// FormatVersion tags the persisted document shape.
const FormatVersion = 1

const (
	DefaultGridSize = 20.0
	DefaultSeats    = 4
)

var (
	ErrItemNotFound = errors.New("layout item not found")
	ErrUnknownKind  = errors.New("unknown layout item kind")
)

type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Meta struct {
	DefaultSeats int `json:"defaultSeats,omitempty"`
}

// Item is one placed element. X/Y is the model-space center, except for
// polygons where it is the top-left corner their Points are relative to.
type Item struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Rotation float64   `json:"rotation"`
	Name     string    `json:"name,omitempty"`
	Code     string    `json:"code,omitempty"`
	Seats    *int      `json:"seats,omitempty"`
	Label    string    `json:"label,omitempty"`
	Points   []float64 `json:"points,omitempty"`
}

func (it Item) IsTable() bool { return it.Kind.IsTable() }

// clone returns a copy that shares no slices or pointers with it.
func (it Item) clone() Item {
	out := it
	if it.Seats != nil {
		seats := *it.Seats
		out.Seats = &seats
	}
	out.Points = slices.Clone(it.Points)
	return out
}

type Document struct {
	Version  int     `json:"version"`
	Canvas   Canvas  `json:"canvas"`
	GridSize float64 `json:"gridSize"`
	Meta     *Meta   `json:"meta,omitempty"`
	Items    []Item  `json:"items"`
}

// Versions is what Layout Persistence holds for an area: an optional
// work-in-progress draft and an optional published document.
type Versions struct {
	Draft     *Document `json:"draft,omitempty"`
	Published *Document `json:"published,omitempty"`
}

// Latest prefers the draft over the published document. It returns nil when
// neither exists.
func (v Versions) Latest() *Document {
	if v.Draft != nil {
		return v.Draft
	}
	return v.Published
}

// New synthesizes an empty document for a canvas of the given size.
func New(width, height float64) *Document {
	return &Document{
		Version:  FormatVersion,
		Canvas:   Canvas{Width: width, Height: height},
		GridSize: DefaultGridSize,
		Meta:     &Meta{DefaultSeats: DefaultSeats},
		Items:    []Item{},
	}
}

func NewID() string {
	return uuid.NewString()
}

// Clone deep-copies the document.
func (d *Document) Clone() *Document {
	out := *d
	if d.Meta != nil {
		meta := *d.Meta
		out.Meta = &meta
	}
	out.Items = make([]Item, len(d.Items))
	for i, it := range d.Items {
		out.Items[i] = it.clone()
	}
	return &out
}

func (d *Document) DefaultSeats() int {
	if d.Meta != nil && d.Meta.DefaultSeats > 0 {
		return d.Meta.DefaultSeats
	}
	return DefaultSeats
}

// Defaults overrides the kind defaults of a new item. Zero fields are ignored.
type Defaults struct {
	Width  float64
	Height float64
	Seats  int
	Label  string
}

// AddItem places a new item of kind centred on center and returns it.
func (d *Document) AddItem(kind Kind, center geometry.Point, defaults Defaults) (Item, error) {
	if !kind.Valid() {
		return Item{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	w, h := kind.DefaultSize()
	if defaults.Width > 0 {
		w = defaults.Width
	}
	if defaults.Height > 0 {
		h = defaults.Height
	}

	it := Item{ID: NewID(), Kind: kind, X: center.X, Y: center.Y, Width: w, Height: h}
	switch kind {
	case KindRoundTable, KindRectTable:
		seats := d.DefaultSeats()
		if defaults.Seats > 0 {
			seats = defaults.Seats
		}
		it.Seats = &seats
	case KindLabel:
		it.Label = defaults.Label
		if it.Label == "" {
			it.Label = "Label"
		}
	case KindPolygon:
		it.X, it.Y = center.X-w/2, center.Y-h/2
		it.Points = []float64{0, 0, w, 0, w, h, 0, h}
	case KindChair, KindWall:
	}

	it = normalize(it)
	d.Items = append(slices.Clone(d.Items), it)
	return it, nil
}

// AddPolygon creates a polygon from absolute model-space points. The item is
// positioned at the points' bounding-box minimum and stores points relative
// to it.
func (d *Document) AddPolygon(points []float64) (Item, error) {
	minX, minY, maxX, maxY, ok := geometry.Bounds(points)
	if !ok {
		return Item{}, fmt.Errorf("polygon needs at least one point")
	}
	rel := make([]float64, 0, len(points)&^1)
	for i := 0; i+1 < len(points); i += 2 {
		rel = append(rel, points[i]-minX, points[i+1]-minY)
	}
	it := Item{
		ID:     NewID(),
		Kind:   KindPolygon,
		X:      minX,
		Y:      minY,
		Width:  math.Max(MinPolygonExtent, maxX-minX),
		Height: math.Max(MinPolygonExtent, maxY-minY),
		Points: rel,
	}
	d.Items = append(slices.Clone(d.Items), it)
	return it, nil
}

func (d *Document) Find(id string) (Item, bool) {
	i := d.indexOf(id)
	if i < 0 {
		return Item{}, false
	}
	return d.Items[i].clone(), true
}

// Patch lists the fields UpdateItem changes; nil fields are left alone.
type Patch struct {
	X        *float64  `json:"x,omitempty"`
	Y        *float64  `json:"y,omitempty"`
	Width    *float64  `json:"width,omitempty"`
	Height   *float64  `json:"height,omitempty"`
	Rotation *float64  `json:"rotation,omitempty"`
	Name     *string   `json:"name,omitempty"`
	Code     *string   `json:"code,omitempty"`
	Seats    *int      `json:"seats,omitempty"`
	Label    *string   `json:"label,omitempty"`
	Points   []float64 `json:"points,omitempty"`
}

// UpdateItem applies patch to the item with id and returns the new value.
// Size invariants are re-established after the patch.
func (d *Document) UpdateItem(id string, patch Patch) (Item, error) {
	i := d.indexOf(id)
	if i < 0 {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	it := d.Items[i].clone()
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setF(&it.X, patch.X)
	setF(&it.Y, patch.Y)
	setF(&it.Width, patch.Width)
	setF(&it.Height, patch.Height)
	setF(&it.Rotation, patch.Rotation)
	if patch.Name != nil {
		it.Name = *patch.Name
	}
	if patch.Code != nil {
		it.Code = *patch.Code
	}
	if patch.Seats != nil {
		seats := *patch.Seats
		it.Seats = &seats
	}
	if patch.Label != nil {
		it.Label = *patch.Label
	}
	if patch.Points != nil && it.Kind == KindPolygon {
		it.Points = slices.Clone(patch.Points)
		_, _, maxX, maxY, ok := geometry.Bounds(it.Points)
		if ok {
			it.Width = math.Max(MinPolygonExtent, maxX)
			it.Height = math.Max(MinPolygonExtent, maxY)
		}
	}

	it = normalize(it)
	items := slices.Clone(d.Items)
	items[i] = it
	d.Items = items
	return it, nil
}

func (d *Document) RemoveItem(id string) error {
	i := d.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	d.Items = slices.Delete(slices.Clone(d.Items), i, i+1)
	return nil
}

// DuplicateItem clones the item one grid step down and to the right. Tables
// lose their code so the copy cannot collide with the original in the
// directory.
func (d *Document) DuplicateItem(id string) (Item, error) {
	i := d.indexOf(id)
	if i < 0 {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	offset := d.GridSize
	if offset <= 0 {
		offset = DefaultGridSize
	}
	it := d.Items[i].clone()
	it.ID = NewID()
	it.X += offset
	it.Y += offset
	if it.IsTable() {
		it.Code = ""
	}
	d.Items = append(slices.Clone(d.Items), it)
	return it, nil
}

// Tables returns copies of the table items in document order.
func (d *Document) Tables() []Item {
	var out []Item
	for _, it := range d.Items {
		if it.IsTable() {
			out = append(out, it.clone())
		}
	}
	return out
}

// AutoNumber names the tables "1".."n" in reading order: by y, then x.
func (d *Document) AutoNumber() {
	type ref struct {
		idx  int
		x, y float64
	}
	var tables []ref
	for i, it := range d.Items {
		if it.IsTable() {
			tables = append(tables, ref{idx: i, x: it.X, y: it.Y})
		}
	}
	sort.SliceStable(tables, func(a, b int) bool {
		if tables[a].y != tables[b].y {
			return tables[a].y < tables[b].y
		}
		return tables[a].x < tables[b].x
	})

	items := slices.Clone(d.Items)
	for n, t := range tables {
		it := items[t.idx].clone()
		it.Name = strconv.Itoa(n + 1)
		items[t.idx] = it
	}
	d.Items = items
}

func (d *Document) indexOf(id string) int {
	return slices.IndexFunc(d.Items, func(it Item) bool { return it.ID == id })
}

// normalize enforces the per-kind size floor and keeps round tables round.
func normalize(it Item) Item {
	if it.Kind == KindPolygon {
		return it
	}
	minSize := it.Kind.MinSize()
	it.Width = math.Max(minSize, it.Width)
	it.Height = math.Max(minSize, it.Height)
	if it.Kind == KindRoundTable {
		side := math.Max(it.Width, it.Height)
		it.Width, it.Height = side, side
	}
	return it
}
