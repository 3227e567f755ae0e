package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrServerNotFound is returned when a tile server id is unknown.
var ErrServerNotFound = errors.New("tile server not found")

// TileServer describes one XYZ imagery source.
type TileServer struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	URLTemplate string     `json:"urlTemplate"`
	Bounds      [4]float64 `json:"bounds"` // [west, south, east, north]
	MinZoom     int        `json:"minZoom"`
	MaxZoom     int        `json:"maxZoom"`
	TileSize    int        `json:"tileSize"`
}

// Config holds the persistent project configuration.
type Config struct {
	TileServers    []TileServer `json:"tileServers"`
	LabelingZoom   int          `json:"labelingZoom"`
	NounPhrases    []string     `json:"nounPhrases"`
	LabelingExtent *[4]float64  `json:"labelingExtent,omitempty"`
}

// Viewport is the map camera state.
type Viewport struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
	Bearing   float64 `json:"bearing"`
	Pitch     float64 `json:"pitch"`
}

// UIState persists the last interactive session between runs.
type UIState struct {
	Viewport     Viewport        `json:"viewport"`
	ActiveLayers []string        `json:"activeLayers"`
	SelectedTile json.RawMessage `json:"selectedTile,omitempty"`
}

// DefaultConfig returns the configuration used before any is saved.
func DefaultConfig() *Config {
	return &Config{
		TileServers:  []TileServer{},
		LabelingZoom: 18,
		NounPhrases:  []string{"building", "road", "tree", "vehicle"},
	}
}

// DefaultUIState returns the initial viewport over San Francisco.
func DefaultUIState() *UIState {
	return &UIState{
		Viewport: Viewport{
			Latitude:  37.75,
			Longitude: -122.4,
			Zoom:      14,
		},
		ActiveLayers: []string{},
	}
}

// Store reads and writes config and UI state under a single data directory.
type Store struct {
	dataDir string
}

// NewStore creates a store rooted at dataDir, creating the directory if needed.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dataDir: dataDir}, nil
}

func (s *Store) configPath() string {
	return filepath.Join(s.dataDir, "config.json")
}

func (s *Store) uiStatePath() string {
	return filepath.Join(s.dataDir, "ui_state.json")
}

// Load reads the configuration, falling back to defaults when the file is
// missing or unreadable as JSON.
func (s *Store) Load() (*Config, error) {
	data, err := os.ReadFile(s.configPath())
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), nil
	}
	if cfg.LabelingZoom == 0 {
		cfg.LabelingZoom = DefaultConfig().LabelingZoom
	}
	if cfg.NounPhrases == nil {
		cfg.NounPhrases = DefaultConfig().NounPhrases
	}
	if cfg.TileServers == nil {
		cfg.TileServers = []TileServer{}
	}
	return cfg, nil
}

// Save writes the configuration to disk.
func (s *Store) Save(cfg *Config) error {
	return writeJSON(s.configPath(), cfg)
}

// LoadUIState reads the UI state, falling back to defaults when missing
// or corrupt.
func (s *Store) LoadUIState() (*UIState, error) {
	data, err := os.ReadFile(s.uiStatePath())
	if os.IsNotExist(err) {
		return DefaultUIState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ui state file: %w", err)
	}

	state := DefaultUIState()
	if err := json.Unmarshal(data, state); err != nil {
		return DefaultUIState(), nil
	}
	return state, nil
}

// SaveUIState writes the UI state to disk.
func (s *Store) SaveUIState(state *UIState) error {
	return writeJSON(s.uiStatePath(), state)
}

// AddServer appends a tile server, minting a unique id from its name when
// none is provided, and persists the configuration.
func (s *Store) AddServer(server TileServer) (TileServer, error) {
	if err := ValidateServer(&server); err != nil {
		return TileServer{}, err
	}

	cfg, err := s.Load()
	if err != nil {
		return TileServer{}, err
	}

	if server.ID == "" {
		existing := make(map[string]bool, len(cfg.TileServers))
		for _, sv := range cfg.TileServers {
			existing[sv.ID] = true
		}
		base := SanitizeNameToID(server.Name)
		server.ID = base
		for counter := 1; existing[server.ID]; counter++ {
			server.ID = fmt.Sprintf("%s-%d", base, counter)
		}
	}

	cfg.TileServers = append(cfg.TileServers, server)
	if err := s.Save(cfg); err != nil {
		return TileServer{}, err
	}
	return server, nil
}

// UpdateServer replaces the server with the given id, keeping the id stable.
func (s *Store) UpdateServer(id string, server TileServer) (TileServer, error) {
	cfg, err := s.Load()
	if err != nil {
		return TileServer{}, err
	}
	for i, sv := range cfg.TileServers {
		if sv.ID == id {
			server.ID = id
			cfg.TileServers[i] = server
			if err := s.Save(cfg); err != nil {
				return TileServer{}, err
			}
			return server, nil
		}
	}
	return TileServer{}, ErrServerNotFound
}

// DeleteServer removes the server with the given id.
func (s *Store) DeleteServer(id string) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}
	kept := cfg.TileServers[:0]
	for _, sv := range cfg.TileServers {
		if sv.ID != id {
			kept = append(kept, sv)
		}
	}
	if len(kept) == len(cfg.TileServers) {
		return ErrServerNotFound
	}
	cfg.TileServers = kept
	return s.Save(cfg)
}

// Server finds a tile server by id.
func (s *Store) Server(id string) (TileServer, error) {
	cfg, err := s.Load()
	if err != nil {
		return TileServer{}, err
	}
	for _, sv := range cfg.TileServers {
		if sv.ID == id {
			return sv, nil
		}
	}
	return TileServer{}, ErrServerNotFound
}

// ValidateServer checks the fields required before a server can be used.
func ValidateServer(server *TileServer) error {
	if server.Name == "" {
		return fmt.Errorf("server name is required")
	}
	if server.URLTemplate == "" {
		return fmt.Errorf("server URL template is required")
	}
	if !strings.Contains(server.URLTemplate, "{z}") ||
		!strings.Contains(server.URLTemplate, "{x}") ||
		!strings.Contains(server.URLTemplate, "{y}") {
		return fmt.Errorf("URL template must contain {z}, {x}, and {y} placeholders")
	}
	if server.TileSize == 0 {
		server.TileSize = 256
	}
	if server.MaxZoom == 0 {
		server.MaxZoom = 22
	}
	if server.Bounds == ([4]float64{}) {
		server.Bounds = [4]float64{-180, -85, 180, 85}
	}
	return nil
}

var (
	idSeparators = regexp.MustCompile(`[\s_]+`)
	idInvalid    = regexp.MustCompile(`[^a-z0-9-]`)
	idHyphenRuns = regexp.MustCompile(`-+`)
)

// SanitizeNameToID converts a display name into a stable lowercase id.
func SanitizeNameToID(name string) string {
	id := strings.ToLower(name)
	id = idSeparators.ReplaceAllString(id, "-")
	id = idInvalid.ReplaceAllString(id, "")
	id = idHyphenRuns.ReplaceAllString(id, "-")
	id = strings.Trim(id, "-")
	if id == "" {
		return "tile-server"
	}
	return id
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
