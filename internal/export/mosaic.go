package export

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/noahgolmant/label-tiles/internal/tiles"
	"github.com/noahgolmant/label-tiles/pkg/geotiff"
)

// Mosaic stitches already-downloaded tiles into a single georeferenced
// GeoTIFF. Tiles missing from tilesDir leave transparent holes; the mosaic
// fails only when no tile can be placed at all.
func Mosaic(batch []tiles.Tile, tilesDir string, tileSize int, outputPath string) error {
	if len(batch) == 0 {
		return fmt.Errorf("no tiles to mosaic")
	}
	if tileSize <= 0 {
		return fmt.Errorf("tile size must be positive, got %d", tileSize)
	}
	zoom := batch[0].Z
	for _, t := range batch {
		if t.Z != zoom {
			return fmt.Errorf("mosaic tiles must share one zoom level, got %d and %d", zoom, t.Z)
		}
	}

	minX, maxX := batch[0].X, batch[0].X
	minY, maxY := batch[0].Y, batch[0].Y
	for _, t := range batch {
		if t.X < minX {
			minX = t.X
		}
		if t.X > maxX {
			maxX = t.X
		}
		if t.Y < minY {
			minY = t.Y
		}
		if t.Y > maxY {
			maxY = t.Y
		}
	}

	cols := maxX - minX + 1
	rows := maxY - minY + 1
	out := image.NewRGBA(image.Rect(0, 0, cols*tileSize, rows*tileSize))

	placed := 0
	for _, t := range batch {
		f, err := os.Open(filepath.Join(tilesDir, t.Filename()))
		if err != nil {
			log.Printf("[Mosaic] Missing tile %s, leaving hole", t)
			continue
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			log.Printf("[Mosaic] Failed to decode tile %s: %v", t, err)
			continue
		}

		x0 := (t.X - minX) * tileSize
		y0 := (t.Y - minY) * tileSize
		dest := image.Rect(x0, y0, x0+tileSize, y0+tileSize)
		draw.Draw(out, dest, img, img.Bounds().Min, draw.Src)
		placed++
	}
	if placed == 0 {
		return fmt.Errorf("no tiles could be placed in mosaic")
	}

	// Top-left corner of the north-west tile anchors the raster.
	originTile := tiles.Tile{Z: zoom, X: minX, Y: minY}
	originX, _, _, originY := originTile.Bounds()
	res := tiles.ResolutionAtZoom(zoom, tileSize)
	ref := geotiff.GeoReference{
		OriginX:    originX,
		OriginY:    originY,
		PixelSizeX: res,
		PixelSizeY: res,
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create mosaic file: %w", err)
	}
	defer f.Close()
	if err := geotiff.Encode(f, out, ref.Tags()); err != nil {
		return fmt.Errorf("failed to encode mosaic: %w", err)
	}
	return nil
}
