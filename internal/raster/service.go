// Package raster manages an optional external raster-tile service and a
// persistent registry of local GeoTIFF sources. The service is a deploy-time
// capability: when absent, registration is refused but the registry itself
// keeps working.
package raster

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// ErrServiceUnavailable is returned by operations that need the external
// tiler when it is not deployed.
var ErrServiceUnavailable = errors.New("raster tile service not available")

// SourceInfo describes a registered GeoTIFF and how to request tiles from it.
type SourceInfo struct {
	ID              string     `json:"id"`
	Filename        string     `json:"filename"`
	Path            string     `json:"path"`
	TileURLTemplate string     `json:"tileUrlTemplate"`
	Bounds          [4]float64 `json:"bounds"` // [west, south, east, north]
	MinZoom         int        `json:"minZoom"`
	MaxZoom         int        `json:"maxZoom"`
}

// Service is the capability boundary to the external tiler.
type Service interface {
	// Available reports whether the tiler is deployed.
	Available() bool
	// Describe inspects a GeoTIFF and returns its geographic bounds and
	// the zoom range it can reasonably serve.
	Describe(path string) (bounds [4]float64, minZoom, maxZoom int, err error)
	// TileURLTemplate builds the {z}/{x}/{y} URL template serving path.
	TileURLTemplate(path string) string
}

// Unavailable is the Service used when no tiler is deployed.
type Unavailable struct{}

func (Unavailable) Available() bool { return false }

func (Unavailable) Describe(string) ([4]float64, int, int, error) {
	return [4]float64{}, 0, 0, ErrServiceUnavailable
}

func (Unavailable) TileURLTemplate(string) string { return "" }

// TilerService delegates to an external dynamic-tiling endpoint that
// accepts a source URL parameter, serving WebMercatorQuad tiles.
type TilerService struct {
	// BaseURL is the tiler root, e.g. "http://localhost:8000/tiler".
	BaseURL string
}

func (s *TilerService) Available() bool { return s.BaseURL != "" }

func (s *TilerService) TileURLTemplate(path string) string {
	return fmt.Sprintf("%s/cog/tiles/WebMercatorQuad/{z}/{x}/{y}?url=file://%s",
		strings.TrimRight(s.BaseURL, "/"), path)
}

// Describe returns whole-world bounds and a full zoom range; the tiler
// resolves exact bounds itself when serving. Callers needing precise
// bounds can refine them from the file's own georeferencing.
func (s *TilerService) Describe(path string) ([4]float64, int, int, error) {
	if !s.Available() {
		return [4]float64{}, 0, 0, ErrServiceUnavailable
	}
	return [4]float64{-180, -85, 180, 85}, 0, 22, nil
}

// ZoomForResolution maps a ground resolution in meters per pixel to the
// deepest Web Mercator zoom level that resolution supports.
func ZoomForResolution(metersPerPixel float64) int {
	if metersPerPixel <= 0 {
		return 18
	}
	z := int(math.Log2(156543.0 / metersPerPixel))
	if z < 0 {
		return 0
	}
	if z > 22 {
		return 22
	}
	return z
}

func isGeoTIFFPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff", ".geotiff":
		return true
	}
	return false
}
