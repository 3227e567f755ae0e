package window

// BBox is an axis-aligned bounding box in a tile's or window's pixel frame,
// stored as [x, y, width, height] like the manifest format.
type BBox struct {
	X float64
	Y float64
	W float64
	H float64
}

// Slice returns the bbox in manifest order [x, y, w, h].
func (b BBox) Slice() []float64 {
	return []float64{b.X, b.Y, b.W, b.H}
}

// Area returns width times height.
func (b BBox) Area() float64 {
	return b.W * b.H
}

// Retarget translates a bbox from a contributing tile's frame into window
// space and clips it to [0, tileSize) in both axes. The second return is
// false when the bbox degenerates to zero area, meaning the annotation does
// not intersect the window and must be dropped.
//
// offX, offY is the tile's placement offset (SourceChunk.PlacementOffset).
func Retarget(b BBox, offX, offY, tileSize int) (BBox, bool) {
	newX := b.X - float64(offX)
	newY := b.Y - float64(offY)

	x1 := max(0, newX)
	y1 := max(0, newY)
	x2 := min(float64(tileSize), newX+b.W)
	y2 := min(float64(tileSize), newY+b.H)

	if x2 <= x1 || y2 <= y1 {
		return BBox{}, false
	}
	return BBox{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}, true
}
