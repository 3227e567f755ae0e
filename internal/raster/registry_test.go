package raster

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFakeGeoTIFF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("II*\x00"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRegisterRequiresService(t *testing.T) {
	reg, err := OpenRegistry(filepath.Join(t.TempDir(), "registry.json"), Unavailable{})
	if err != nil {
		t.Fatalf("OpenRegistry: %v", err)
	}
	if reg.Available() {
		t.Error("Unavailable service reported available")
	}

	tif := writeFakeGeoTIFF(t, t.TempDir(), "scene.tif")
	if _, err := reg.Register(tif); !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("Register without service = %v, want ErrServiceUnavailable", err)
	}
}

func TestRegisterAndList(t *testing.T) {
	svc := &TilerService{BaseURL: "http://localhost:8000/tiler/"}
	reg, err := OpenRegistry(filepath.Join(t.TempDir(), "registry.json"), svc)
	if err != nil {
		t.Fatalf("OpenRegistry: %v", err)
	}

	dir := t.TempDir()
	tif := writeFakeGeoTIFF(t, dir, "scene.tif")

	info, err := reg.Register(tif)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(info.ID) != 8 {
		t.Errorf("id = %q, want 8 characters", info.ID)
	}
	if info.Filename != "scene.tif" {
		t.Errorf("filename = %q", info.Filename)
	}
	wantPrefix := "http://localhost:8000/tiler/cog/tiles/WebMercatorQuad/{z}/{x}/{y}?url=file://"
	if got := info.TileURLTemplate; len(got) < len(wantPrefix) || got[:len(wantPrefix)] != wantPrefix {
		t.Errorf("tile url template = %q", got)
	}

	list := reg.List()
	if len(list) != 1 || list[0].ID != info.ID {
		t.Errorf("List = %+v", list)
	}

	got, err := reg.Get(info.ID)
	if err != nil || got.Path != info.Path {
		t.Errorf("Get = %+v, %v", got, err)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc := &TilerService{BaseURL: "http://localhost:8000/tiler"}
	reg, err := OpenRegistry(filepath.Join(t.TempDir(), "registry.json"), svc)
	if err != nil {
		t.Fatalf("OpenRegistry: %v", err)
	}

	if _, err := reg.Register(filepath.Join(t.TempDir(), "missing.tif")); err == nil {
		t.Error("Register accepted a missing file")
	}

	notTiff := writeFakeGeoTIFF(t, t.TempDir(), "notes.txt")
	if _, err := reg.Register(notTiff); err == nil {
		t.Error("Register accepted a non-GeoTIFF extension")
	}
}

func TestListFiltersVanishedFiles(t *testing.T) {
	svc := &TilerService{BaseURL: "http://localhost:8000/tiler"}
	reg, err := OpenRegistry(filepath.Join(t.TempDir(), "registry.json"), svc)
	if err != nil {
		t.Fatalf("OpenRegistry: %v", err)
	}

	dir := t.TempDir()
	keep := writeFakeGeoTIFF(t, dir, "keep.tif")
	gone := writeFakeGeoTIFF(t, dir, "gone.tif")

	if _, err := reg.Register(keep); err != nil {
		t.Fatalf("Register: %v", err)
	}
	goneInfo, err := reg.Register(gone)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}

	list := reg.List()
	if len(list) != 1 || list[0].Filename != "keep.tif" {
		t.Errorf("List after file removal = %+v", list)
	}

	// The registry entry itself survives filtering.
	if _, err := reg.Get(goneInfo.ID); err != nil {
		t.Errorf("vanished file's entry dropped from registry: %v", err)
	}
}

func TestUnregisterPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	svc := &TilerService{BaseURL: "http://localhost:8000/tiler"}

	reg, err := OpenRegistry(path, svc)
	if err != nil {
		t.Fatalf("OpenRegistry: %v", err)
	}
	tif := writeFakeGeoTIFF(t, t.TempDir(), "scene.tif")
	info, err := reg.Register(tif)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// A fresh registry sees the persisted entry.
	reloaded, err := OpenRegistry(path, svc)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := reloaded.Get(info.ID); err != nil {
		t.Errorf("Get after reload: %v", err)
	}

	if err := reloaded.Unregister(info.ID); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if err := reloaded.Unregister(info.ID); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("second Unregister = %v, want ErrSourceNotFound", err)
	}
	if _, err := os.Stat(tif); err != nil {
		t.Errorf("Unregister removed the underlying file: %v", err)
	}

	final, err := OpenRegistry(path, svc)
	if err != nil {
		t.Fatalf("final reopen: %v", err)
	}
	if _, err := final.Get(info.ID); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("entry survived unregister across reload: %v", err)
	}
}

func TestZoomForResolution(t *testing.T) {
	cases := []struct {
		metersPerPixel float64
		want           int
	}{
		{156543, 0},
		{0.3, 19},
		{0, 18},   // unknown resolution falls back
		{1e9, 0},   // coarser than zoom 0 clamps
		{1e-9, 22}, // finer than zoom 22 clamps
	}
	for _, tc := range cases {
		if got := ZoomForResolution(tc.metersPerPixel); got != tc.want {
			t.Errorf("ZoomForResolution(%v) = %d, want %d", tc.metersPerPixel, got, tc.want)
		}
	}
}
