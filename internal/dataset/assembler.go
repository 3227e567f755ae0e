package dataset

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/noahgolmant/label-tiles/internal/tiles"
	"github.com/noahgolmant/label-tiles/internal/window"
)

// Summary reports the aggregate outcome of an assembly run.
type Summary struct {
	OriginalsCopied    int `json:"originalsCopied"`
	WindowsCreated     int `json:"windowsCreated"`
	WindowsSkipped     int `json:"windowsSkipped"`
	AnnotationsEmitted int `json:"annotationsEmitted"`
}

// Assembler runs a full augmentation pass: originals are copied into the
// output with fresh ids, then a sliding window is swept over every labeled
// tile, compositing new training images from neighboring tiles and
// retargeting their annotations. Ids are contiguous across originals and
// windows combined.
type Assembler struct {
	tilesDir  string
	outputDir string
	stride    int
}

// NewAssembler creates an assembler reading source tiles from tilesDir and
// writing the augmented dataset to outputDir.
func NewAssembler(tilesDir, outputDir string, stride int) *Assembler {
	return &Assembler{
		tilesDir:  tilesDir,
		outputDir: outputDir,
		stride:    stride,
	}
}

// ResolveTilesDir locates the tile directory for a run. Tiles may live
// directly in baseDir or nested one level under a tile server id. An
// explicit sourceID always wins; with exactly one subdirectory that
// subdirectory is used; with several and no selection the run refuses to
// guess and fails.
func ResolveTilesDir(baseDir, sourceID string) (string, error) {
	if _, err := os.Stat(baseDir); err != nil {
		return "", fmt.Errorf("tiles directory not found: %s", baseDir)
	}

	if sourceID != "" {
		dir := filepath.Join(baseDir, sourceID)
		if _, err := os.Stat(dir); err != nil {
			return "", fmt.Errorf("tile source %q not found under %s", sourceID, baseDir)
		}
		return dir, nil
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to read tiles directory: %w", err)
	}
	var subdirs []string
	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, e.Name())
		}
	}

	switch len(subdirs) {
	case 0:
		return baseDir, nil
	case 1:
		return filepath.Join(baseDir, subdirs[0]), nil
	default:
		return "", fmt.Errorf("multiple tile sources under %s (%v); select one explicitly", baseDir, subdirs)
	}
}

// Run executes a single augmentation pass over the source manifest. Every
// (tile, offset) pair is visited exactly once; per-window failures are
// absorbed into the skip counter. Only precondition failures return an error.
func (a *Assembler) Run(src *Manifest) (*Manifest, Summary, error) {
	var sum Summary

	if len(src.Images) == 0 {
		return nil, sum, fmt.Errorf("source manifest has no images")
	}
	if _, err := os.Stat(a.tilesDir); err != nil {
		return nil, sum, fmt.Errorf("tiles directory not found: %s", a.tilesDir)
	}

	// Tile size comes from the corpus itself; every tile shares it.
	tileSize := src.Images[0].Width

	offsets, err := window.Offsets(tileSize, a.stride)
	if err != nil {
		return nil, sum, err
	}

	if err := os.MkdirAll(a.outputDir, 0755); err != nil {
		return nil, sum, fmt.Errorf("failed to create output directory: %w", err)
	}

	comp, err := window.NewCompositor(a.tilesDir, tileSize)
	if err != nil {
		return nil, sum, err
	}

	log.Printf("[Assembler] %d labeled tiles, tile size %d, stride %d, %d offsets",
		len(src.Images), tileSize, a.stride, len(offsets))

	// Index the source corpus: annotations by image, and the tile address
	// behind each labeled image so neighbor lookups can find annotations.
	annsByImage := make(map[int][]Annotation)
	for _, ann := range src.Annotations {
		annsByImage[ann.ImageID] = append(annsByImage[ann.ImageID], ann)
	}
	tileToImageID := make(map[tiles.Tile]int)
	for _, img := range src.Images {
		t, err := tiles.ParseFilename(img.FileName)
		if err != nil {
			continue
		}
		tileToImageID[t] = img.ID
	}

	out := &Manifest{
		Info: Info{
			Description: fmt.Sprintf("Sliding window dataset (stride=%d)", a.stride),
		},
		Categories: src.Categories,
	}
	nextImageID := 1
	nextAnnID := 1

	// Pass 1: copy originals with fresh contiguous ids.
	for _, orig := range src.Images {
		basename := filepath.Base(orig.FileName)
		srcPath := filepath.Join(a.tilesDir, basename)
		data, err := os.ReadFile(srcPath)
		if err != nil {
			log.Printf("[Assembler] Original tile not found: %s", srcPath)
			continue
		}
		if err := os.WriteFile(filepath.Join(a.outputDir, basename), data, 0644); err != nil {
			return nil, sum, fmt.Errorf("failed to copy original tile: %w", err)
		}
		sum.OriginalsCopied++

		out.Images = append(out.Images, Image{
			ID:       nextImageID,
			FileName: basename,
			Width:    orig.Width,
			Height:   orig.Height,
		})

		for _, ann := range annsByImage[orig.ID] {
			seg := ann.Segmentation
			bbox := bboxOf(ann)
			if len(seg) == 0 {
				seg = SegmentationFromBBox(bbox)
			}
			area := ann.Area
			if area == 0 {
				area = bbox.Area()
			}
			out.Annotations = append(out.Annotations, Annotation{
				ID:           nextAnnID,
				ImageID:      nextImageID,
				CategoryID:   ann.CategoryID,
				BBox:         ann.BBox,
				Segmentation: seg,
				Area:         area,
				IsCrowd:      ann.IsCrowd,
				NounPhrase:   ann.NounPhrase,
			})
			nextAnnID++
			sum.AnnotationsEmitted++
		}
		nextImageID++
	}

	// Pass 2: sweep the sliding window over every labeled tile.
	for _, orig := range src.Images {
		base, err := tiles.ParseFilename(orig.FileName)
		if err != nil {
			log.Printf("[Assembler] Skipping unparsable filename: %s", orig.FileName)
			continue
		}

		for _, off := range offsets {
			chunks := window.Chunks(base, off, tileSize)

			// Collect and retarget annotations from every contributing
			// tile before touching any pixels: an unlabeled window has no
			// training value and is pruned without compositing.
			var windowAnns []Annotation
			for _, chunk := range chunks {
				imageID, ok := tileToImageID[chunk.Tile]
				if !ok {
					continue
				}
				offX, offY := chunk.PlacementOffset()
				for _, ann := range annsByImage[imageID] {
					bbox, kept := window.Retarget(bboxOf(ann), offX, offY, tileSize)
					if !kept {
						continue
					}
					windowAnns = append(windowAnns, Annotation{
						ImageID:      nextImageID,
						CategoryID:   ann.CategoryID,
						BBox:         bbox.Slice(),
						Segmentation: SegmentationFromBBox(bbox),
						Area:         bbox.Area(),
						NounPhrase:   ann.NounPhrase,
					})
				}
			}
			if len(windowAnns) == 0 {
				sum.WindowsSkipped++
				continue
			}

			img, err := comp.Build(chunks)
			if err != nil {
				if !errors.Is(err, window.ErrUnbuildable) {
					return nil, sum, err
				}
				sum.WindowsSkipped++
				continue
			}

			filename := base.WindowFilename(off.DX, off.DY)
			if err := writePNG(filepath.Join(a.outputDir, filename), img); err != nil {
				return nil, sum, err
			}
			sum.WindowsCreated++

			out.Images = append(out.Images, Image{
				ID:       nextImageID,
				FileName: filename,
				Width:    tileSize,
				Height:   tileSize,
			})
			for _, ann := range windowAnns {
				ann.ID = nextAnnID
				out.Annotations = append(out.Annotations, ann)
				nextAnnID++
				sum.AnnotationsEmitted++
			}
			nextImageID++
		}
	}

	log.Printf("[Assembler] Done: %d originals, %d windows created, %d skipped, %d annotations",
		sum.OriginalsCopied, sum.WindowsCreated, sum.WindowsSkipped, sum.AnnotationsEmitted)

	return out, sum, nil
}

// bboxOf converts a manifest annotation's bbox slice to a window.BBox.
func bboxOf(ann Annotation) window.BBox {
	b := window.BBox{}
	if len(ann.BBox) == 4 {
		b = window.BBox{X: ann.BBox[0], Y: ann.BBox[1], W: ann.BBox[2], H: ann.BBox[3]}
	}
	return b
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create window image: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode window image: %w", err)
	}
	return nil
}
