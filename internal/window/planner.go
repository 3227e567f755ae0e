package window

import (
	"fmt"
	"image"

	"github.com/noahgolmant/label-tiles/internal/tiles"
)

// Offset is a window's pixel displacement from its base tile's origin.
type Offset struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// Offsets generates the sliding-window offsets for a tile size and stride,
// in row-major order (dy outer, dx inner). (0, 0) is excluded: the unshifted
// tile is handled as an original, not a generated window.
// Count = ceil(tileSize/stride)^2 - 1.
func Offsets(tileSize, stride int) ([]Offset, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("tile size must be positive, got %d", tileSize)
	}
	if stride < 1 || stride > tileSize {
		return nil, fmt.Errorf("stride %d out of range [1, %d]", stride, tileSize)
	}

	var offsets []Offset
	for dy := 0; dy < tileSize; dy += stride {
		for dx := 0; dx < tileSize; dx += stride {
			if dx == 0 && dy == 0 {
				continue
			}
			offsets = append(offsets, Offset{DX: dx, DY: dy})
		}
	}
	return offsets, nil
}

// SourceChunk is one tile's contribution to a window composite: the crop
// rectangle in the source tile's pixel frame and the point in the window
// where it is pasted. The chunks of a window exactly tile the output.
type SourceChunk struct {
	Tile        tiles.Tile
	Crop        image.Rectangle
	PasteOrigin image.Point
}

// PlacementOffset returns the signed translation from the chunk's tile frame
// into window space: crop origin minus paste origin. Subtracting it from a
// tile-frame coordinate yields the window-frame coordinate.
func (c SourceChunk) PlacementOffset() (dx, dy int) {
	return c.Crop.Min.X - c.PasteOrigin.X, c.Crop.Min.Y - c.PasteOrigin.Y
}

// Chunks plans the contributions for the window of base at the given offset.
// At most four tiles contribute (base, east, south, diagonal); contributions
// with an empty crop are omitted. Offsets must satisfy 0 <= dx,dy < tileSize.
func Chunks(base tiles.Tile, off Offset, tileSize int) []SourceChunk {
	t := tileSize
	dx, dy := off.DX, off.DY

	candidates := []SourceChunk{
		// Top-left: remainder of the base tile
		{
			Tile:        base,
			Crop:        image.Rect(dx, dy, t, t),
			PasteOrigin: image.Point{0, 0},
		},
		// Top-right: western strip of the east neighbor
		{
			Tile:        base.East(),
			Crop:        image.Rect(0, dy, dx, t),
			PasteOrigin: image.Point{t - dx, 0},
		},
		// Bottom-left: northern strip of the south neighbor
		{
			Tile:        base.South(),
			Crop:        image.Rect(dx, 0, t, dy),
			PasteOrigin: image.Point{0, t - dy},
		},
		// Bottom-right: corner of the diagonal neighbor
		{
			Tile:        base.SouthEast(),
			Crop:        image.Rect(0, 0, dx, dy),
			PasteOrigin: image.Point{t - dx, t - dy},
		},
	}

	chunks := make([]SourceChunk, 0, 4)
	for _, c := range candidates {
		if c.Crop.Empty() {
			continue
		}
		chunks = append(chunks, c)
	}
	return chunks
}
