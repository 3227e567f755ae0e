package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestLoadReturnsDefaultsWhenMissing(t *testing.T) {
	s := newTestStore(t)

	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LabelingZoom != 18 {
		t.Errorf("LabelingZoom = %d, want 18", cfg.LabelingZoom)
	}
	if len(cfg.NounPhrases) == 0 {
		t.Error("default noun phrases empty")
	}
	if cfg.LabelingExtent != nil {
		t.Errorf("default LabelingExtent = %v, want nil", cfg.LabelingExtent)
	}
}

func TestLoadReturnsDefaultsOnCorruptFile(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.configPath(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LabelingZoom != 18 {
		t.Errorf("corrupt file did not fall back to defaults: zoom=%d", cfg.LabelingZoom)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	extent := [4]float64{-122.52, 37.7, -122.35, 37.83}
	cfg := &Config{
		TileServers: []TileServer{{
			ID:          "usgs",
			Name:        "USGS Imagery",
			URLTemplate: "https://tiles.example.com/{z}/{x}/{y}.png",
			TileSize:    256,
			MaxZoom:     20,
		}},
		LabelingZoom:   19,
		NounPhrases:    []string{"solar panel"},
		LabelingExtent: &extent,
	}
	if err := s.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LabelingZoom != 19 {
		t.Errorf("LabelingZoom = %d", got.LabelingZoom)
	}
	if len(got.TileServers) != 1 || got.TileServers[0].ID != "usgs" {
		t.Errorf("TileServers = %+v", got.TileServers)
	}
	if got.LabelingExtent == nil || *got.LabelingExtent != extent {
		t.Errorf("LabelingExtent = %v", got.LabelingExtent)
	}
}

func TestAddServerMintsUniqueIDs(t *testing.T) {
	s := newTestStore(t)

	template := "https://tiles.example.com/{z}/{x}/{y}.png"
	first, err := s.AddServer(TileServer{Name: "My Server", URLTemplate: template})
	if err != nil {
		t.Fatalf("AddServer: %v", err)
	}
	if first.ID != "my-server" {
		t.Errorf("first id = %q, want my-server", first.ID)
	}

	second, err := s.AddServer(TileServer{Name: "My Server", URLTemplate: template})
	if err != nil {
		t.Fatalf("AddServer: %v", err)
	}
	if second.ID != "my-server-1" {
		t.Errorf("second id = %q, want my-server-1", second.ID)
	}

	third, err := s.AddServer(TileServer{Name: "My Server", URLTemplate: template})
	if err != nil {
		t.Fatalf("AddServer: %v", err)
	}
	if third.ID != "my-server-2" {
		t.Errorf("third id = %q, want my-server-2", third.ID)
	}
}

func TestAddServerRejectsBadTemplate(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddServer(TileServer{Name: "broken", URLTemplate: "https://tiles.example.com/static.png"})
	if err == nil {
		t.Fatal("AddServer accepted template without placeholders")
	}
}

func TestUpdateAndDeleteServer(t *testing.T) {
	s := newTestStore(t)
	template := "https://tiles.example.com/{z}/{x}/{y}.png"

	added, err := s.AddServer(TileServer{Name: "Imagery", URLTemplate: template})
	if err != nil {
		t.Fatalf("AddServer: %v", err)
	}

	updated, err := s.UpdateServer(added.ID, TileServer{
		ID:          "attempted-rename",
		Name:        "Imagery v2",
		URLTemplate: template,
	})
	if err != nil {
		t.Fatalf("UpdateServer: %v", err)
	}
	if updated.ID != added.ID {
		t.Errorf("update changed id to %q", updated.ID)
	}
	if updated.Name != "Imagery v2" {
		t.Errorf("update did not apply name: %q", updated.Name)
	}

	if err := s.DeleteServer(added.ID); err != nil {
		t.Fatalf("DeleteServer: %v", err)
	}
	if _, err := s.Server(added.ID); !errors.Is(err, ErrServerNotFound) {
		t.Errorf("Server after delete = %v, want ErrServerNotFound", err)
	}
	if err := s.DeleteServer(added.ID); !errors.Is(err, ErrServerNotFound) {
		t.Errorf("second DeleteServer = %v, want ErrServerNotFound", err)
	}
}

func TestUIStateRoundTrip(t *testing.T) {
	s := newTestStore(t)

	state, err := s.LoadUIState()
	if err != nil {
		t.Fatalf("LoadUIState: %v", err)
	}
	if state.Viewport.Zoom != 14 {
		t.Errorf("default zoom = %v", state.Viewport.Zoom)
	}

	state.Viewport.Latitude = 40.71
	state.Viewport.Zoom = 17.5
	state.ActiveLayers = []string{"labels", "imagery"}
	if err := s.SaveUIState(state); err != nil {
		t.Fatalf("SaveUIState: %v", err)
	}

	got, err := s.LoadUIState()
	if err != nil {
		t.Fatalf("LoadUIState: %v", err)
	}
	if got.Viewport.Latitude != 40.71 || got.Viewport.Zoom != 17.5 {
		t.Errorf("viewport = %+v", got.Viewport)
	}
	if len(got.ActiveLayers) != 2 {
		t.Errorf("active layers = %v", got.ActiveLayers)
	}

	if _, err := os.Stat(filepath.Join(s.dataDir, "ui_state.json")); err != nil {
		t.Errorf("ui_state.json not written: %v", err)
	}
}

func TestSanitizeNameToID(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"My Server", "my-server"},
		{"  USGS__Imagery  2024 ", "usgs-imagery-2024"},
		{"---", "tile-server"},
		{"!!!", "tile-server"},
		{"already-clean", "already-clean"},
		{"Mixed CASE & symbols!", "mixed-case-symbols"},
	}
	for _, tc := range cases {
		if got := SanitizeNameToID(tc.name); got != tc.want {
			t.Errorf("SanitizeNameToID(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
