// Package export renders labels into interchange formats: a GeoJSON
// feature collection for GIS tooling and a COCO annotation file for
// model training.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/noahgolmant/label-tiles/internal/dataset"
	"github.com/noahgolmant/label-tiles/internal/labels"
	"github.com/noahgolmant/label-tiles/internal/tiles"
	"github.com/noahgolmant/label-tiles/internal/window"
)

// Feature is one GeoJSON feature describing a label's geographic footprint.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry is a GeoJSON polygon.
type Geometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// FeatureCollection is the GeoJSON document root.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// GeoJSON renders every label as a polygon feature carrying its tile
// address, pixel box, and phrase in the properties.
func GeoJSON(all []labels.Label) *FeatureCollection {
	fc := &FeatureCollection{
		Type:     "FeatureCollection",
		Features: []Feature{},
	}
	for _, l := range all {
		west, south, east, north := l.GeoBounds[0], l.GeoBounds[1], l.GeoBounds[2], l.GeoBounds[3]
		props := map[string]interface{}{
			"id":          l.ID,
			"tile_x":      l.TileX,
			"tile_y":      l.TileY,
			"tile_z":      l.TileZ,
			"pixel_bbox":  l.PixelBBox[:],
			"is_negative": l.IsNegative,
			"created_at":  l.CreatedAt.Format(time.RFC3339Nano),
		}
		if l.NounPhrase != "" {
			props["noun_phrase"] = l.NounPhrase
		} else {
			props["noun_phrase"] = nil
		}
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type: "Polygon",
				Coordinates: [][][2]float64{{
					{west, south},
					{east, south},
					{east, north},
					{west, north},
					{west, south},
				}},
			},
			Properties: props,
		})
	}
	return fc
}

// WriteGeoJSON renders the labels and writes the document to path.
func WriteGeoJSON(all []labels.Label, path string) error {
	return writeJSON(path, GeoJSON(all))
}

// COCO renders the labels as a COCO manifest. Each distinct labeled tile
// becomes one image; negative labels mark their tile as present but emit
// no annotation. Image and annotation ids start at 1 with no gaps.
func COCO(all []labels.Label, tileSize int) *dataset.Manifest {
	m := &dataset.Manifest{
		Info:        dataset.Info{Description: "Tile labeling dataset"},
		Images:      []dataset.Image{},
		Annotations: []dataset.Annotation{},
		Categories:  []dataset.Category{{ID: 1, Name: "object"}},
	}

	imageIDs := make(map[tiles.Tile]int)
	for _, l := range all {
		addr := l.Tile()
		if _, seen := imageIDs[addr]; seen {
			continue
		}
		id := len(imageIDs) + 1
		imageIDs[addr] = id
		m.Images = append(m.Images, dataset.Image{
			ID:       id,
			FileName: filepath.Join("tiles", addr.Filename()),
			Width:    tileSize,
			Height:   tileSize,
		})
	}

	annotationID := 1
	for _, l := range all {
		if l.IsNegative {
			continue
		}
		bbox := window.BBox{X: l.PixelBBox[0], Y: l.PixelBBox[1], W: l.PixelBBox[2], H: l.PixelBBox[3]}
		m.Annotations = append(m.Annotations, dataset.Annotation{
			ID:           annotationID,
			ImageID:      imageIDs[l.Tile()],
			CategoryID:   1,
			BBox:         bbox.Slice(),
			Segmentation: dataset.SegmentationFromBBox(bbox),
			Area:         bbox.Area(),
			IsCrowd:      0,
			NounPhrase:   l.NounPhrase,
		})
		annotationID++
	}
	return m
}

// WriteCOCO renders the labels and writes the manifest to path.
func WriteCOCO(all []labels.Label, tileSize int, path string) error {
	return COCO(all, tileSize).Save(path)
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace export: %w", err)
	}
	return nil
}
