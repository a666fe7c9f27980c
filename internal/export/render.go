// Package export rasterises a layout document into a static image.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/vbonduro/floorplan/internal/geometry"
	"github.com/vbonduro/floorplan/internal/layout"
)

// DefaultPixelRatio is the pixel density snapshots are rendered at.
const DefaultPixelRatio = 2.0

// segments used to approximate a round table's outline.
const ellipseSegments = 64

// Snapshots wider or taller than MaxSnapshotSide pixels, or larger than
// MaxSnapshotPixels in total, are refused.
const (
	MaxSnapshotSide   = 16384
	MaxSnapshotPixels = 64 << 20
)

var ErrSnapshotTooLarge = errors.New("snapshot too large")

var (
	colorBackground = color.RGBA{255, 255, 255, 255}
	colorGrid       = color.RGBA{238, 238, 238, 255}
	colorOutline    = color.RGBA{51, 51, 51, 255}
	colorTable      = color.RGBA{255, 243, 224, 255} // #fff3e0
	colorChair      = color.RGBA{207, 216, 220, 255} // #cfd8dc
	colorWall       = color.RGBA{69, 90, 100, 255}   // #455a64
	colorPolygon    = color.RGBA{187, 222, 251, 200} // #bbdefb
	colorText       = color.RGBA{33, 33, 33, 255}
)

type Options struct {
	PixelRatio float64
	// Grid draws the snapping grid behind the items.
	Grid bool
}

func (o Options) withDefaults() Options {
	if o.PixelRatio <= 0 {
		o.PixelRatio = DefaultPixelRatio
	}
	return o
}

// pixelSize sizes the snapshot of doc: its canvas, or the extent of its
// content when no canvas size is recorded.
func (o Options) pixelSize(doc *layout.Document) (int, int, error) {
	width, height := doc.Canvas.Width, doc.Canvas.Height
	if width <= 0 || height <= 0 {
		width, height = contentExtent(doc)
	}
	w := math.Ceil(width * o.PixelRatio)
	h := math.Ceil(height * o.PixelRatio)
	if !(w > 0 && h > 0) {
		return 0, 0, fmt.Errorf("invalid snapshot size %vx%v", w, h)
	}
	if w > MaxSnapshotSide || h > MaxSnapshotSide || w*h > MaxSnapshotPixels {
		return 0, 0, fmt.Errorf("%w: %.0fx%.0f pixels", ErrSnapshotTooLarge, w, h)
	}
	return int(w), int(h), nil
}

// node is the renderer's handle for one item, rebuilt on every pass.
type node struct {
	item    layout.Item
	outline []geometry.Point
	fill    color.RGBA
	text    string
}

// renderer holds the state of one rendering pass.
type renderer struct {
	img   *image.RGBA
	z     *vector.Rasterizer
	ratio float64
	face  font.Face
	nodes map[string]*node
	order []string
}

// Render draws doc at opts.PixelRatio. Interaction state such as selection
// never reaches the renderer; the document is only read.
func Render(doc *layout.Document, opts Options) (*image.RGBA, error) {
	opts = opts.withDefaults()
	w, h, err := opts.pixelSize(doc)
	if err != nil {
		return nil, err
	}

	face, err := newFace(12 * opts.PixelRatio)
	if err != nil {
		return nil, err
	}
	defer func() { _ = face.Close() }()

	r := &renderer{
		img:   image.NewRGBA(image.Rect(0, 0, w, h)),
		z:     vector.NewRasterizer(0, 0),
		ratio: opts.PixelRatio,
		face:  face,
	}
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(colorBackground), image.Point{}, draw.Src)
	if opts.Grid && doc.GridSize > 0 {
		r.drawGrid(doc.GridSize)
	}

	r.build(doc)
	for _, id := range r.order {
		r.drawNode(r.nodes[id])
	}
	return r.img, nil
}

// EncodePNG renders doc and writes it as PNG.
func EncodePNG(w io.Writer, doc *layout.Document, opts Options) error {
	img, err := Render(doc, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func newFace(size float64) (font.Face, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// build maps every item to a node in document (z) order.
func (r *renderer) build(doc *layout.Document) {
	r.nodes = make(map[string]*node, len(doc.Items))
	r.order = r.order[:0]
	for _, it := range doc.Items {
		n := &node{item: it}
		center := geometry.Point{X: it.X, Y: it.Y}
		switch it.Kind {
		case layout.KindRoundTable:
			n.outline = ellipse(center, it.Width/2, it.Height/2)
			n.fill = colorTable
			n.text = tableText(it)
		case layout.KindRectTable:
			n.outline = rect(center, it.Width, it.Height, it.Rotation)
			n.fill = colorTable
			n.text = tableText(it)
		case layout.KindChair:
			n.outline = rect(center, it.Width, it.Height, it.Rotation)
			n.fill = colorChair
		case layout.KindWall:
			n.outline = rect(center, it.Width, it.Height, it.Rotation)
			n.fill = colorWall
		case layout.KindLabel:
			n.text = it.Label
		case layout.KindPolygon:
			origin := geometry.Point{X: it.X, Y: it.Y}
			for i := 0; i+1 < len(it.Points); i += 2 {
				p := geometry.Point{X: it.X + it.Points[i], Y: it.Y + it.Points[i+1]}
				n.outline = append(n.outline, geometry.Rotate(p, origin, it.Rotation))
			}
			n.fill = colorPolygon
		default:
			panic(fmt.Sprintf("export: unhandled kind %q", string(it.Kind)))
		}
		r.nodes[it.ID] = n
		r.order = append(r.order, it.ID)
	}
}

func tableText(it layout.Item) string {
	text := it.Name
	if text == "" {
		text = it.Code
	}
	if it.Seats != nil && *it.Seats > 0 {
		if text != "" {
			text += " "
		}
		text += "(" + strconv.Itoa(*it.Seats) + ")"
	}
	return text
}

func (r *renderer) drawNode(n *node) {
	if len(n.outline) >= 3 {
		// A slightly grown copy in the outline colour gives a border.
		r.fillPolygon(grow(n.outline, 1/r.ratio), colorOutline)
		r.fillPolygon(n.outline, n.fill)
	}
	if n.text != "" {
		r.drawText(geometry.Point{X: n.item.X, Y: n.item.Y}, n.text)
	}
}

// fillPolygon rasterises only the pixel box around points, reusing the
// pass's rasterizer.
func (r *renderer) fillPolygon(points []geometry.Point, c color.RGBA) {
	b := r.img.Bounds()
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		x, y := p.X*r.ratio, p.Y*r.ratio
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	minX, minY = math.Max(math.Floor(minX), 0), math.Max(math.Floor(minY), 0)
	maxX = math.Min(math.Ceil(maxX), float64(b.Max.X))
	maxY = math.Min(math.Ceil(maxY), float64(b.Max.Y))
	if !(minX < maxX && minY < maxY) {
		return
	}
	box := image.Rect(int(minX), int(minY), int(maxX), int(maxY))

	r.z.Reset(box.Dx(), box.Dy())
	r.z.DrawOp = draw.Over
	for i, p := range points {
		x, y := float32(p.X*r.ratio-minX), float32(p.Y*r.ratio-minY)
		if i == 0 {
			r.z.MoveTo(x, y)
		} else {
			r.z.LineTo(x, y)
		}
	}
	r.z.ClosePath()
	r.z.Draw(r.img, box, image.NewUniform(c), box.Min)
}

// drawText centres text on a model-space point.
func (r *renderer) drawText(at geometry.Point, text string) {
	d := &font.Drawer{Dst: r.img, Src: image.NewUniform(colorText), Face: r.face}
	width := d.MeasureString(text)
	metrics := r.face.Metrics()
	x := fixed.Int26_6(at.X*r.ratio*64) - width/2
	y := fixed.Int26_6(at.Y*r.ratio*64) + (metrics.Ascent-metrics.Descent)/2
	d.Dot = fixed.Point26_6{X: x, Y: y}
	d.DrawString(text)
}

func (r *renderer) drawGrid(grid float64) {
	b := r.img.Bounds()
	step := grid * r.ratio
	for x := 0.0; x < float64(b.Dx()); x += step {
		for y := 0; y < b.Dy(); y++ {
			r.img.SetRGBA(int(x), y, colorGrid)
		}
	}
	for y := 0.0; y < float64(b.Dy()); y += step {
		for x := 0; x < b.Dx(); x++ {
			r.img.SetRGBA(x, int(y), colorGrid)
		}
	}
}

func rect(center geometry.Point, w, h, rotation float64) []geometry.Point {
	hw, hh := w/2, h/2
	corners := []geometry.Point{
		{X: center.X - hw, Y: center.Y - hh},
		{X: center.X + hw, Y: center.Y - hh},
		{X: center.X + hw, Y: center.Y + hh},
		{X: center.X - hw, Y: center.Y + hh},
	}
	for i := range corners {
		corners[i] = geometry.Rotate(corners[i], center, rotation)
	}
	return corners
}

func ellipse(center geometry.Point, rx, ry float64) []geometry.Point {
	out := make([]geometry.Point, ellipseSegments)
	for i := range out {
		a := 2 * math.Pi * float64(i) / ellipseSegments
		out[i] = geometry.Point{X: center.X + rx*math.Cos(a), Y: center.Y + ry*math.Sin(a)}
	}
	return out
}

// grow pushes every vertex away from the centroid by d.
func grow(points []geometry.Point, d float64) []geometry.Point {
	var c geometry.Point
	for _, p := range points {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= float64(len(points))
	c.Y /= float64(len(points))

	out := make([]geometry.Point, len(points))
	for i, p := range points {
		dx, dy := p.X-c.X, p.Y-c.Y
		dist := math.Hypot(dx, dy)
		if dist == 0 {
			out[i] = p
			continue
		}
		k := (dist + d) / dist
		out[i] = geometry.Point{X: c.X + dx*k, Y: c.Y + dy*k}
	}
	return out
}

// contentExtent sizes a snapshot for documents without a canvas size.
func contentExtent(doc *layout.Document) (float64, float64) {
	w, h := 0.0, 0.0
	for _, it := range doc.Items {
		right, bottom := it.X+it.Width/2, it.Y+it.Height/2
		if it.Kind == layout.KindPolygon {
			right, bottom = it.X+it.Width, it.Y+it.Height
		}
		w = math.Max(w, right)
		h = math.Max(h, bottom)
	}
	if w <= 0 || h <= 0 {
		return 1, 1
	}
	return w, h
}
