package tiles

import (
	"fmt"
	"math"
)

const (
	MaxZoom = 23

	// Web Mercator latitude limit
	MinLat = -85.051129
	MaxLat = 85.051129
	MinLon = -180.0
	MaxLon = 180.0

	// Equator is Earth's circumference in meters (EPSG:3857)
	Equator = 40075016.685578
)

// Tile addresses a square raster tile in the standard XYZ power-of-two
// pyramid. Y counts from the top (north), matching slippy-map convention.
type Tile struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// New creates a tile after validating that the coordinates fit the zoom level.
func New(z, x, y int) (Tile, error) {
	t := Tile{Z: z, X: x, Y: y}
	if err := t.Valid(); err != nil {
		return Tile{}, err
	}
	return t, nil
}

// Valid checks the 0 <= x,y < 2^z invariant.
func (t Tile) Valid() error {
	if t.Z < 0 || t.Z > MaxZoom {
		return fmt.Errorf("zoom %d out of range [0, %d]", t.Z, MaxZoom)
	}
	size := 1 << t.Z
	if t.X < 0 || t.X >= size {
		return fmt.Errorf("x %d out of range [0, %d) for zoom %d", t.X, size, t.Z)
	}
	if t.Y < 0 || t.Y >= size {
		return fmt.Errorf("y %d out of range [0, %d) for zoom %d", t.Y, size, t.Z)
	}
	return nil
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// WebMercator represents coordinates in EPSG:3857 meters.
type WebMercator struct {
	X float64 // meters east of the prime meridian
	Y float64 // meters north of the equator
}

// Wgs84 represents WGS84 lat/lon coordinates in degrees.
type Wgs84 struct {
	Lat float64
	Lon float64
}

// ToWgs84 converts Web Mercator meters to WGS84 degrees.
func (m WebMercator) ToWgs84() Wgs84 {
	lon := m.X / Equator * 360.0
	lat := math.Atan(math.Sinh(m.Y/Equator*2*math.Pi)) * 180.0 / math.Pi
	return Wgs84{Lat: lat, Lon: lon}
}

// ToWebMercator converts WGS84 degrees to Web Mercator meters.
func (w Wgs84) ToWebMercator() WebMercator {
	x := w.Lon / 360.0 * Equator
	latRad := w.Lat * math.Pi / 180.0
	y := math.Log(math.Tan(math.Pi/4+latRad/2)) / (2 * math.Pi) * Equator
	return WebMercator{X: x, Y: y}
}

// toCoordinate converts fractional tile position to Web Mercator.
func (t Tile) toCoordinate(x, y float64) WebMercator {
	n := float64(int(1) << t.Z)
	return WebMercator{
		X: (x/n - 0.5) * Equator,
		Y: (0.5 - y/n) * Equator,
	}
}

// Bounds returns the tile's bounding box in Web Mercator (minX, minY, maxX, maxY).
func (t Tile) Bounds() (minX, minY, maxX, maxY float64) {
	ll := t.toCoordinate(float64(t.X), float64(t.Y+1)) // lower-left
	ur := t.toCoordinate(float64(t.X+1), float64(t.Y)) // upper-right
	return ll.X, ll.Y, ur.X, ur.Y
}

// GeoBounds returns the tile's bounding box in WGS84 (west, south, east, north).
func (t Tile) GeoBounds() (west, south, east, north float64) {
	minX, minY, maxX, maxY := t.Bounds()
	sw := WebMercator{X: minX, Y: minY}.ToWgs84()
	ne := WebMercator{X: maxX, Y: maxY}.ToWgs84()
	return sw.Lon, sw.Lat, ne.Lon, ne.Lat
}

// Center returns the tile center in WGS84.
func (t Tile) Center() Wgs84 {
	return t.toCoordinate(float64(t.X)+0.5, float64(t.Y)+0.5).ToWgs84()
}

// East returns the tile's eastern neighbor without range checking.
func (t Tile) East() Tile { return Tile{Z: t.Z, X: t.X + 1, Y: t.Y} }

// South returns the tile's southern neighbor without range checking.
func (t Tile) South() Tile { return Tile{Z: t.Z, X: t.X, Y: t.Y + 1} }

// SouthEast returns the tile's diagonal neighbor without range checking.
func (t Tile) SouthEast() Tile { return Tile{Z: t.Z, X: t.X + 1, Y: t.Y + 1} }

// ForCoord returns the tile containing a WGS84 coordinate at the given zoom.
func ForCoord(lat, lon float64, zoom int) (Tile, error) {
	if zoom < 0 || zoom > MaxZoom {
		return Tile{}, fmt.Errorf("zoom %d out of range [0, %d]", zoom, MaxZoom)
	}
	m := Wgs84{Lat: lat, Lon: lon}.ToWebMercator()
	size := 1 << zoom
	x := clamp(int((0.5+m.X/Equator)*float64(size)), 0, size-1)
	y := clamp(int((0.5-m.Y/Equator)*float64(size)), 0, size-1)
	return New(zoom, x, y)
}

// InBounds enumerates all tiles at the given zoom level that cover a WGS84
// bounding box, in row-major order (north to south, west to east).
func InBounds(west, south, east, north float64, zoom int) ([]Tile, error) {
	if zoom < 0 || zoom > MaxZoom {
		return nil, fmt.Errorf("zoom %d out of range [0, %d]", zoom, MaxZoom)
	}
	if err := ValidateExtent(west, south, east, north); err != nil {
		return nil, err
	}

	sw := Wgs84{Lat: clampLat(south), Lon: west}.ToWebMercator()
	ne := Wgs84{Lat: clampLat(north), Lon: east}.ToWebMercator()

	size := 1 << zoom
	minX := clamp(int((0.5+sw.X/Equator)*float64(size)), 0, size-1)
	maxX := clamp(int((0.5+ne.X/Equator)*float64(size)), 0, size-1)
	minY := clamp(int((0.5-ne.Y/Equator)*float64(size)), 0, size-1) // north edge = smaller y
	maxY := clamp(int((0.5-sw.Y/Equator)*float64(size)), 0, size-1)

	var result []Tile
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			t, err := New(zoom, x, y)
			if err != nil {
				return nil, err
			}
			result = append(result, t)
		}
	}
	return result, nil
}

// ValidateExtent checks a WGS84 bounding box for degenerate or out-of-range values.
func ValidateExtent(west, south, east, north float64) error {
	if west >= east {
		return fmt.Errorf("west (%f) must be less than east (%f)", west, east)
	}
	if south >= north {
		return fmt.Errorf("south (%f) must be less than north (%f)", south, north)
	}
	if west < MinLon || east > MaxLon {
		return fmt.Errorf("longitude out of range [%f, %f]: west=%f, east=%f", MinLon, MaxLon, west, east)
	}
	if south < -90 || north > 90 {
		return fmt.Errorf("latitude out of range [-90, 90]: south=%f, north=%f", south, north)
	}
	return nil
}

// ResolutionAtZoom returns approximate meters per pixel at the given zoom level.
func ResolutionAtZoom(zoom, tileSize int) float64 {
	return Equator / float64(tileSize<<zoom)
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func clampLat(lat float64) float64 {
	if lat < MinLat {
		return MinLat
	}
	if lat > MaxLat {
		return MaxLat
	}
	return lat
}
