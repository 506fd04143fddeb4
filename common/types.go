package common

// BoundingBox is an axis-aligned pixel-space rectangle centred on the viewport origin.
// X grows to the right and Y grows upward; both axes span [-half, half] of the viewport.
// The zero value is the empty box.
type BoundingBox struct {
	MinX int32
	MinY int32
	MaxX int32
	MaxY int32
}

// Width returns the box width in pixels, or 0 for inverted boxes.
func (b BoundingBox) Width() uint32 {
	if b.MaxX <= b.MinX {
		return 0
	}
	return uint32(b.MaxX - b.MinX)
}

// Height returns the box height in pixels, or 0 for inverted boxes.
func (b BoundingBox) Height() uint32 {
	if b.MaxY <= b.MinY {
		return 0
	}
	return uint32(b.MaxY - b.MinY)
}

// Empty reports whether the box covers no pixels.
func (b BoundingBox) Empty() bool {
	return b.Width() == 0 || b.Height() == 0
}

// Within reports whether the box lies inside [-halfW, halfW] × [-halfH, halfH].
//
// Parameters:
//   - halfW: half the viewport width in pixels
//   - halfH: half the viewport height in pixels
//
// Returns:
//   - bool: true if every edge is inside the viewport
func (b BoundingBox) Within(halfW, halfH int32) bool {
	return b.MinX >= -halfW && b.MaxX <= halfW && b.MinY >= -halfH && b.MaxY <= halfH
}

// FullViewport returns the box covering the whole viewport.
func FullViewport(halfW, halfH int32) BoundingBox {
	return BoundingBox{MinX: -halfW, MinY: -halfH, MaxX: halfW, MaxY: halfH}
}
