package window

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/noahgolmant/label-tiles/internal/tiles"
)

// writeSolidTile writes a uniformly colored tile PNG into dir.
func writeSolidTile(t *testing.T, dir string, tile tiles.Tile, size int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(filepath.Join(dir, tile.Filename()))
	if err != nil {
		t.Fatalf("create tile: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode tile: %v", err)
	}
}

func TestCompositor_Build_FourContributors(t *testing.T) {
	const size = 64
	dir := t.TempDir()
	base := tiles.Tile{Z: 5, X: 3, Y: 7}

	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	writeSolidTile(t, dir, base, size, red)
	writeSolidTile(t, dir, base.East(), size, green)
	writeSolidTile(t, dir, base.South(), size, blue)
	writeSolidTile(t, dir, base.SouthEast(), size, white)

	comp, err := NewCompositor(dir, size)
	if err != nil {
		t.Fatalf("NewCompositor: %v", err)
	}

	off := Offset{DX: 16, DY: 32}
	out, err := comp.Build(Chunks(base, off, size))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Quadrant boundaries: base contributes [0,size-dx) x [0,size-dy),
	// east fills the right band, south the bottom band, diagonal the corner.
	checks := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{name: "base quadrant", x: 0, y: 0, want: red},
		{name: "base bottom-right pixel", x: size - off.DX - 1, y: size - off.DY - 1, want: red},
		{name: "east band", x: size - off.DX, y: 0, want: green},
		{name: "east far edge", x: size - 1, y: size - off.DY - 1, want: green},
		{name: "south band", x: 0, y: size - off.DY, want: blue},
		{name: "south bottom edge", x: size - off.DX - 1, y: size - 1, want: blue},
		{name: "diagonal corner", x: size - off.DX, y: size - off.DY, want: white},
		{name: "diagonal far corner", x: size - 1, y: size - 1, want: white},
	}

	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if got := out.RGBAAt(c.x, c.y); got != c.want {
				t.Errorf("pixel (%d, %d) = %v, want %v", c.x, c.y, got, c.want)
			}
		})
	}
}

func TestCompositor_Build_MissingTile(t *testing.T) {
	const size = 32
	dir := t.TempDir()
	base := tiles.Tile{Z: 5, X: 3, Y: 7}

	// Only the base tile exists; the east neighbor is missing.
	writeSolidTile(t, dir, base, size, color.RGBA{R: 255, A: 255})

	comp, err := NewCompositor(dir, size)
	if err != nil {
		t.Fatalf("NewCompositor: %v", err)
	}

	_, err = comp.Build(Chunks(base, Offset{DX: 16, DY: 0}, size))
	if !errors.Is(err, ErrUnbuildable) {
		t.Errorf("Build with missing neighbor = %v, want ErrUnbuildable", err)
	}
}

func TestCompositor_Build_UndecodableTile(t *testing.T) {
	const size = 32
	dir := t.TempDir()
	base := tiles.Tile{Z: 5, X: 3, Y: 7}

	if err := os.WriteFile(filepath.Join(dir, base.Filename()), []byte("not an image"), 0644); err != nil {
		t.Fatalf("write corrupt tile: %v", err)
	}

	comp, err := NewCompositor(dir, size)
	if err != nil {
		t.Fatalf("NewCompositor: %v", err)
	}

	_, err = comp.Build(Chunks(base, Offset{DX: 16, DY: 0}, size))
	if !errors.Is(err, ErrUnbuildable) {
		t.Errorf("Build with corrupt tile = %v, want ErrUnbuildable", err)
	}
}

func TestCompositor_Build_UndersizedTile(t *testing.T) {
	dir := t.TempDir()
	base := tiles.Tile{Z: 5, X: 3, Y: 7}

	// Tile on disk is smaller than the configured tile size.
	writeSolidTile(t, dir, base, 16, color.RGBA{R: 255, A: 255})
	writeSolidTile(t, dir, base.East(), 16, color.RGBA{G: 255, A: 255})

	comp, err := NewCompositor(dir, 32)
	if err != nil {
		t.Fatalf("NewCompositor: %v", err)
	}

	_, err = comp.Build(Chunks(base, Offset{DX: 8, DY: 0}, 32))
	if !errors.Is(err, ErrUnbuildable) {
		t.Errorf("Build with undersized tile = %v, want ErrUnbuildable", err)
	}
}
