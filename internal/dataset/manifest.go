package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/noahgolmant/label-tiles/internal/window"
)

// Info describes a manifest's provenance.
type Info struct {
	Description     string `json:"description"`
	OriginalDataset string `json:"original_dataset,omitempty"`
}

// Image is one image record in a manifest.
type Image struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Annotation is one object annotation in a manifest. BBox is [x, y, w, h]
// in the image's pixel frame.
type Annotation struct {
	ID           int         `json:"id"`
	ImageID      int         `json:"image_id"`
	CategoryID   int         `json:"category_id"`
	BBox         []float64   `json:"bbox"`
	Segmentation [][]float64 `json:"segmentation"`
	Area         float64     `json:"area"`
	IsCrowd      int         `json:"iscrowd"`
	NounPhrase   string      `json:"noun_phrase"`
}

// Category is one entry of the category table.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Manifest is the merged image/annotation corpus written by an assembly run.
type Manifest struct {
	Info        Info         `json:"info"`
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}

// SegmentationFromBBox builds the rectangular segmentation polygon for a bbox.
func SegmentationFromBBox(b window.BBox) [][]float64 {
	return [][]float64{{
		b.X, b.Y,
		b.X + b.W, b.Y,
		b.X + b.W, b.Y + b.H,
		b.X, b.Y + b.H,
	}}
}

// Load reads a manifest from disk.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Save writes a manifest to disk. The write goes to a temp file first and is
// renamed into place so a crash never leaves a truncated manifest.
func (m *Manifest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename manifest file: %w", err)
	}
	return nil
}
