// Package editor drives an open floor-plan editing session: selection,
// dragging, resize/rotate and freehand polygon authoring on top of a
// layout.Document.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/vbonduro/floorplan/internal/geometry"
	"github.com/vbonduro/floorplan/internal/layout"
)

var (
	// ErrPolygonTooShort is returned when closing a polygon with fewer than three points.
	ErrPolygonTooShort = errors.New("polygon needs at least 3 points")
	ErrNotDrawing      = errors.New("no polygon is being drawn")
)

// minPolygonNumbers is three points, two numbers each.
const minPolygonNumbers = 6

type Key string

const (
	KeyEnter     Key = "Enter"
	KeyEscape    Key = "Escape"
	KeyBackspace Key = "Backspace"
)

// Transform is what a bounding-box resize/rotate handle reports on release:
// scale relative to the item's committed size and the absolute rotation.
type Transform struct {
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	Rotation float64 `json:"rotation"`
}

// State is a read-only snapshot of the transient interaction state.
type State struct {
	Selected string            `json:"selected,omitempty"`
	Drawing  bool              `json:"drawing"`
	Draft    []float64         `json:"draft,omitempty"`
	Viewport geometry.Viewport `json:"viewport"`
	Snap     bool              `json:"snap"`
}

// Controller owns the interaction state of one session. It is not safe for
// concurrent use.
type Controller struct {
	doc      *layout.Document
	selected string
	drawing  bool
	draft    []float64
	snap     bool
	view     geometry.Viewport
	logger   *slog.Logger
}

func NewController(doc *layout.Document, snap bool, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		doc:    doc,
		snap:   snap,
		view:   geometry.NewViewport(),
		logger: logger,
	}
}

func (c *Controller) Document() *layout.Document { return c.doc }

func (c *Controller) State() State {
	return State{
		Selected: c.selected,
		Drawing:  c.drawing,
		Draft:    slices.Clone(c.draft),
		Viewport: c.view,
		Snap:     c.snap,
	}
}

func (c *Controller) SetSnap(on bool) { c.snap = on }

func (c *Controller) Selected() string { return c.selected }

func (c *Controller) grid() float64 {
	if !c.snap {
		return 0
	}
	if c.doc.GridSize > 0 {
		return c.doc.GridSize
	}
	return layout.DefaultGridSize
}

func (c *Controller) snapValue(v float64) float64 {
	return geometry.Snap(v, c.grid())
}

// Select marks id as the selected item. Ignored while a polygon is drawn:
// clicks then belong to the draft.
func (c *Controller) Select(id string) error {
	if c.drawing {
		return nil
	}
	if _, ok := c.doc.Find(id); !ok {
		return fmt.Errorf("%w: %s", layout.ErrItemNotFound, id)
	}
	c.selected = id
	return nil
}

// ClickCanvas handles a click on empty canvas at a view-space position. While
// drawing it appends a point to the draft, otherwise it clears the selection.
func (c *Controller) ClickCanvas(view geometry.Point) {
	if !c.drawing {
		c.selected = ""
		return
	}
	p := c.view.ToModel(view)
	if g := c.grid(); g > 0 {
		p = geometry.SnapPoint(p, g)
	}
	c.draft = append(slices.Clone(c.draft), p.X, p.Y)
}

// DragEnd commits the model-space position an item was dropped at.
func (c *Controller) DragEnd(id string, pos geometry.Point) (layout.Item, error) {
	x, y := c.snapValue(pos.X), c.snapValue(pos.Y)
	return c.doc.UpdateItem(id, layout.Patch{X: &x, Y: &y})
}

// TransformEnd turns a handle's scale factors into absolute sizes, applies the
// kind's minimum and snapping, and commits the result.
func (c *Controller) TransformEnd(id string, tr Transform) (layout.Item, error) {
	it, ok := c.doc.Find(id)
	if !ok {
		return layout.Item{}, fmt.Errorf("%w: %s", layout.ErrItemNotFound, id)
	}
	sx, sy := tr.ScaleX, tr.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	sx, sy = math.Abs(sx), math.Abs(sy)

	rotation := tr.Rotation
	if c.snap {
		rotation = geometry.SnapRotation(rotation)
	}

	if it.Kind == layout.KindPolygon {
		points := slices.Clone(it.Points)
		for i := 0; i+1 < len(points); i += 2 {
			points[i] *= sx
			points[i+1] *= sy
		}
		return c.doc.UpdateItem(id, layout.Patch{Points: points, Rotation: &rotation})
	}

	minSize := it.Kind.MinSize()
	w := math.Max(minSize, it.Width*sx)
	h := math.Max(minSize, it.Height*sy)
	w = math.Max(minSize, c.snapValue(w))
	h = math.Max(minSize, c.snapValue(h))
	if it.Kind == layout.KindRoundTable {
		side := math.Max(w, h)
		w, h = side, side
	}
	return c.doc.UpdateItem(id, layout.Patch{Width: &w, Height: &h, Rotation: &rotation})
}

// Zoom scales the stage by factor around a view-space pointer position.
func (c *Controller) Zoom(pointer geometry.Point, factor float64) geometry.Viewport {
	if factor > 0 {
		c.view = c.view.ZoomAt(pointer, factor)
	}
	return c.view
}

func (c *Controller) Pan(dx, dy float64) geometry.Viewport {
	c.view.Offset.X += dx
	c.view.Offset.Y += dy
	return c.view
}

func (c *Controller) ResetView() { c.view = geometry.NewViewport() }

// AddItem places a new item and selects it.
func (c *Controller) AddItem(kind layout.Kind, center geometry.Point, defaults layout.Defaults) (layout.Item, error) {
	if g := c.grid(); g > 0 {
		center = geometry.SnapPoint(center, g)
	}
	it, err := c.doc.AddItem(kind, center, defaults)
	if err != nil {
		return layout.Item{}, err
	}
	c.selected = it.ID
	return it, nil
}

func (c *Controller) UpdateItem(id string, patch layout.Patch) (layout.Item, error) {
	return c.doc.UpdateItem(id, patch)
}

func (c *Controller) RemoveItem(id string) error {
	if err := c.doc.RemoveItem(id); err != nil {
		return err
	}
	if c.selected == id {
		c.selected = ""
	}
	return nil
}

func (c *Controller) DuplicateItem(id string) (layout.Item, error) {
	it, err := c.doc.DuplicateItem(id)
	if err != nil {
		return layout.Item{}, err
	}
	c.selected = it.ID
	return it, nil
}

// Drawing reports whether a polygon draft is in progress.
func (c *Controller) Drawing() bool { return c.drawing }

// StartPolygon enters drawing mode with an empty draft.
func (c *Controller) StartPolygon() {
	c.selected = ""
	c.drawing = true
	c.draft = []float64{}
}

// HandleKey feeds a keyboard event to the polygon state machine. It reports
// whether the key was consumed; keys are inert outside drawing mode. A created
// polygon is returned when Enter closes the draft.
func (c *Controller) HandleKey(key Key) (handled bool, created *layout.Item, err error) {
	if !c.drawing {
		return false, nil, nil
	}
	switch key {
	case KeyBackspace:
		if n := len(c.draft); n >= 2 {
			c.draft = slices.Clone(c.draft[:n-2])
		}
		return true, nil, nil
	case KeyEscape:
		c.CancelPolygon()
		return true, nil, nil
	case KeyEnter:
		it, err := c.ClosePolygon()
		if err != nil {
			return true, nil, err
		}
		return true, &it, nil
	default:
		return false, nil, nil
	}
}

// CancelPolygon discards the draft.
func (c *Controller) CancelPolygon() {
	c.drawing = false
	c.draft = nil
}

// ClosePolygon turns the draft into a polygon item and selects it. With fewer
// than three points the draft is kept and ErrPolygonTooShort is returned.
func (c *Controller) ClosePolygon() (layout.Item, error) {
	if !c.drawing {
		return layout.Item{}, ErrNotDrawing
	}
	if len(c.draft) < minPolygonNumbers {
		c.logger.Warn("polygon close rejected", "points", len(c.draft)/2)
		return layout.Item{}, ErrPolygonTooShort
	}
	it, err := c.doc.AddPolygon(c.draft)
	if err != nil {
		return layout.Item{}, err
	}
	c.drawing = false
	c.draft = nil
	c.selected = it.ID
	return it, nil
}
