// Package geometry holds the pure math used by the floor-plan editor: grid
// snapping and the mapping between view (screen) space and model space.
package geometry

import "math"

const (
	// RotationStep is the granularity rotations snap to.
	RotationStep = 5.0

	MinScale = 0.5
	MaxScale = 2.5
)

// Point is a 2D point. Whether it is in view or model space depends on the caller.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Snap rounds value to the nearest multiple of gridSize. A non-positive grid
// size leaves the value untouched.
func Snap(value, gridSize float64) float64 {
	if gridSize <= 0 {
		return value
	}
	return math.Round(value/gridSize) * gridSize
}

func SnapRotation(deg float64) float64 {
	return Snap(deg, RotationStep)
}

func SnapPoint(p Point, gridSize float64) Point {
	return Point{X: Snap(p.X, gridSize), Y: Snap(p.Y, gridSize)}
}

// Viewport is the stage transform: model points are drawn at p*Scale + Offset.
type Viewport struct {
	Scale  float64 `json:"scale"`
	Offset Point   `json:"offset"`
}

func NewViewport() Viewport {
	return Viewport{Scale: 1}
}

// ToModel maps a view-space point into model space.
func (v Viewport) ToModel(view Point) Point {
	s := v.scale()
	return Point{
		X: (view.X - v.Offset.X) / s,
		Y: (view.Y - v.Offset.Y) / s,
	}
}

// ZoomAt multiplies the scale by factor, clamped to [MinScale, MaxScale], and
// moves the offset so the model point under pointer stays under pointer.
func (v Viewport) ZoomAt(pointer Point, factor float64) Viewport {
	anchor := v.ToModel(pointer)
	next := ClampScale(v.scale() * factor)
	return Viewport{
		Scale: next,
		Offset: Point{
			X: pointer.X - anchor.X*next,
			Y: pointer.Y - anchor.Y*next,
		},
	}
}

func ClampScale(s float64) float64 {
	return math.Min(MaxScale, math.Max(MinScale, s))
}

func (v Viewport) scale() float64 {
	if v.Scale == 0 {
		return 1
	}
	return v.Scale
}

// Bounds returns the axis-aligned bounding box of a flat x,y point list.
// ok is false when the list holds no complete point.
func Bounds(points []float64) (minX, minY, maxX, maxY float64, ok bool) {
	if len(points) < 2 {
		return 0, 0, 0, 0, false
	}
	minX, minY = points[0], points[1]
	maxX, maxY = minX, minY
	for i := 2; i+1 < len(points); i += 2 {
		x, y := points[i], points[i+1]
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	return minX, minY, maxX, maxY, true
}

// Rotate rotates p around origin by deg degrees (clockwise in screen space).
func Rotate(p, origin Point, deg float64) Point {
	if deg == 0 {
		return p
	}
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	dx, dy := p.X-origin.X, p.Y-origin.Y
	return Point{
		X: origin.X + dx*cos - dy*sin,
		Y: origin.Y + dx*sin + dy*cos,
	}
}
