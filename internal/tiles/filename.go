package tiles

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Filename returns the flat z_x_y filename used for downloaded tiles.
// Format: {z}_{x}_{y}.png
func (t Tile) Filename() string {
	return fmt.Sprintf("%d_%d_%d.png", t.Z, t.X, t.Y)
}

// WindowFilename returns the filename for a window generated from this tile
// at the given pixel offset.
// Format: {z}_{x}_{y}_w{dx}_{dy}.png
func (t Tile) WindowFilename(dx, dy int) string {
	return fmt.Sprintf("%d_%d_%d_w%d_%d.png", t.Z, t.X, t.Y, dx, dy)
}

// ParseFilename extracts the tile address from a tile or window filename.
// Accepts {z}_{x}_{y}.{ext} as well as {z}_{x}_{y}_w{dx}_{dy}.{ext};
// the window suffix is ignored.
func ParseFilename(name string) (Tile, error) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return Tile{}, fmt.Errorf("cannot parse tile filename: %s", name)
	}

	z, errZ := strconv.Atoi(parts[0])
	x, errX := strconv.Atoi(parts[1])
	y, errY := strconv.Atoi(parts[2])
	if errZ != nil || errX != nil || errY != nil {
		return Tile{}, fmt.Errorf("cannot parse tile filename: %s", name)
	}

	return New(z, x, y)
}

// IsWindowFilename reports whether a filename carries a window offset suffix.
func IsWindowFilename(name string) bool {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(stem, "_")
	return len(parts) == 5 && strings.HasPrefix(parts[3], "w")
}
