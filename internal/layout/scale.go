package layout

import "math"

// ScaleTo returns a copy of doc remapped from its own canvas size to (toW, toH).
// Positions, sizes and polygon points scale per axis; rotation is kept as is,
// which is only exact when both factors are equal. Round tables scale their
// diameter by the geometric mean of the two factors so they stay circular
// and scaling back restores them. A document without a recorded canvas size,
// or a zero target, is returned unscaled.
func ScaleTo(doc *Document, toW, toH float64) *Document {
	out := doc.Clone()
	fromW, fromH := doc.Canvas.Width, doc.Canvas.Height
	if fromW <= 0 || fromH <= 0 || toW <= 0 || toH <= 0 {
		return out
	}
	sx, sy := toW/fromW, toH/fromH
	out.Canvas = Canvas{Width: toW, Height: toH}
	if sx == 1 && sy == 1 {
		return out
	}
	diameter := math.Sqrt(sx * sy)

	for i := range out.Items {
		it := &out.Items[i]
		it.X *= sx
		it.Y *= sy
		if it.Kind == KindRoundTable {
			it.Width *= diameter
			it.Height = it.Width
		} else {
			it.Width *= sx
			it.Height *= sy
		}
		for p := 0; p+1 < len(it.Points); p += 2 {
			it.Points[p] *= sx
			it.Points[p+1] *= sy
		}
	}
	return out
}
