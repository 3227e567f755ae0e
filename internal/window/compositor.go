package window

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/noahgolmant/label-tiles/internal/tiles"

	_ "image/jpeg"              // tile sources may be JPEG
	_ "image/png"               // default tile encoding
	_ "golang.org/x/image/tiff" // register TIFF decoder for GeoTIFF-derived tiles
)

// ErrUnbuildable marks a window whose source tiles are missing or
// undecodable. Callers skip the window and continue; it is never fatal
// to an augmentation run.
var ErrUnbuildable = errors.New("window unbuildable")

const defaultCacheSize = 64

// Compositor builds window images from planned source chunks. Decoded
// source tiles are kept in an LRU cache because every interior tile is
// read by up to four neighboring windows per offset.
type Compositor struct {
	tilesDir string
	tileSize int
	cache    *lru.Cache[string, image.Image]
}

// NewCompositor creates a compositor reading source tiles from tilesDir.
func NewCompositor(tilesDir string, tileSize int) (*Compositor, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("tile size must be positive, got %d", tileSize)
	}
	cache, err := lru.New[string, image.Image](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create tile cache: %w", err)
	}
	return &Compositor{
		tilesDir: tilesDir,
		tileSize: tileSize,
		cache:    cache,
	}, nil
}

// Build composites the chunks into a tileSize x tileSize window image.
// Returns ErrUnbuildable (wrapped) when any required source tile cannot be
// opened or decoded, which callers treat identically to a missing tile.
func (c *Compositor) Build(chunks []SourceChunk) (*image.RGBA, error) {
	out := image.NewRGBA(image.Rect(0, 0, c.tileSize, c.tileSize))

	for _, chunk := range chunks {
		src, err := c.loadTile(chunk.Tile)
		if err != nil {
			return nil, err
		}

		if !chunk.Crop.In(src.Bounds()) {
			return nil, fmt.Errorf("%w: tile %v is %v, smaller than crop %v",
				ErrUnbuildable, chunk.Tile, src.Bounds(), chunk.Crop)
		}

		dst := image.Rectangle{
			Min: chunk.PasteOrigin,
			Max: chunk.PasteOrigin.Add(chunk.Crop.Size()),
		}
		draw.Draw(out, dst, src, chunk.Crop.Min, draw.Src)
	}

	return out, nil
}

// loadTile decodes a source tile image, consulting the LRU cache first.
func (c *Compositor) loadTile(t tiles.Tile) (image.Image, error) {
	key := t.String()
	if img, ok := c.cache.Get(key); ok {
		return img, nil
	}

	path := filepath.Join(c.tilesDir, t.Filename())
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: tile %v: %v", ErrUnbuildable, t, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		log.Printf("[Compositor] Failed to decode tile %v: %v", t, err)
		return nil, fmt.Errorf("%w: tile %v: %v", ErrUnbuildable, t, err)
	}

	c.cache.Add(key, img)
	return img, nil
}

// TileExists reports whether a source tile file is present on disk.
func (c *Compositor) TileExists(t tiles.Tile) bool {
	_, err := os.Stat(filepath.Join(c.tilesDir, t.Filename()))
	return err == nil
}
