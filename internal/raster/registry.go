package raster

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrSourceNotFound is returned when a registry id is unknown.
var ErrSourceNotFound = errors.New("raster source not found")

// Registry tracks registered GeoTIFF sources keyed by a short id and
// persists them as a JSON file. Files are referenced in place, never copied.
type Registry struct {
	mu      sync.Mutex
	path    string
	service Service
	sources map[string]SourceInfo
}

// OpenRegistry loads (or initializes) the registry file at path, using
// service to describe newly registered files.
func OpenRegistry(path string, service Service) (*Registry, error) {
	r := &Registry{
		path:    path,
		service: service,
		sources: make(map[string]SourceInfo),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read raster registry: %w", err)
	}
	if err := json.Unmarshal(data, &r.sources); err != nil {
		return nil, fmt.Errorf("failed to parse raster registry: %w", err)
	}
	return r, nil
}

// Available reports whether the backing tile service is deployed.
func (r *Registry) Available() bool {
	return r.service.Available()
}

// Register adds a GeoTIFF by absolute path and persists the registry.
// It requires the tile service to be available.
func (r *Registry) Register(path string) (SourceInfo, error) {
	if !r.service.Available() {
		return SourceInfo{}, ErrServiceUnavailable
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return SourceInfo{}, fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return SourceInfo{}, fmt.Errorf("file not found: %s", abs)
	}
	if !isGeoTIFFPath(abs) {
		return SourceInfo{}, fmt.Errorf("file must be a GeoTIFF (.tif, .tiff, or .geotiff): %s", abs)
	}

	bounds, minZoom, maxZoom, err := r.service.Describe(abs)
	if err != nil {
		return SourceInfo{}, err
	}

	info := SourceInfo{
		ID:              uuid.NewString()[:8],
		Filename:        filepath.Base(abs),
		Path:            abs,
		TileURLTemplate: r.service.TileURLTemplate(abs),
		Bounds:          bounds,
		MinZoom:         minZoom,
		MaxZoom:         maxZoom,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[info.ID] = info
	if err := r.save(); err != nil {
		delete(r.sources, info.ID)
		return SourceInfo{}, err
	}
	return info, nil
}

// Get returns a registered source by id.
func (r *Registry) Get(id string) (SourceInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.sources[id]
	if !ok {
		return SourceInfo{}, ErrSourceNotFound
	}
	return info, nil
}

// List returns the registered sources whose files still exist, ordered
// by filename. Entries for vanished files are filtered, not removed.
func (r *Registry) List() []SourceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []SourceInfo
	for _, info := range r.sources {
		if _, err := os.Stat(info.Path); err == nil {
			result = append(result, info)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Filename < result[j].Filename
	})
	return result
}

// Unregister removes a source from the registry without touching the file.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sources[id]; !ok {
		return ErrSourceNotFound
	}
	delete(r.sources, id)
	return r.save()
}

// save persists the registry; callers hold r.mu.
func (r *Registry) save() error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create registry directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r.sources, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal raster registry: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write raster registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace raster registry: %w", err)
	}
	return nil
}
