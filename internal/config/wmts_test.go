package config

import (
	"strings"
	"testing"
)

const sampleCapabilities = `<?xml version="1.0" encoding="UTF-8"?>
<Capabilities xmlns="http://www.opengis.net/wmts/1.0" xmlns:ows="http://www.opengis.net/ows/1.1">
  <Contents>
    <Layer>
      <ows:Title>Sentinel-2 Cloudless</ows:Title>
      <ows:Identifier>s2cloudless</ows:Identifier>
      <ows:WGS84BoundingBox>
        <ows:LowerCorner>-180 -85</ows:LowerCorner>
        <ows:UpperCorner>180 85</ows:UpperCorner>
      </ows:WGS84BoundingBox>
      <ResourceURL format="image/jpeg" resourceType="tile"
        template="https://tiles.example.com/wmts/s2cloudless/{TileMatrix}/{TileCol}/{TileRow}.jpg"/>
    </Layer>
    <Layer>
      <ows:Title>Metadata Only</ows:Title>
      <ows:Identifier>meta</ows:Identifier>
    </Layer>
  </Contents>
</Capabilities>`

func TestParseWMTSCapabilities(t *testing.T) {
	servers, err := ParseWMTSCapabilities(strings.NewReader(sampleCapabilities))
	if err != nil {
		t.Fatalf("ParseWMTSCapabilities: %v", err)
	}

	// The layer without a tile resource is skipped.
	if len(servers) != 1 {
		t.Fatalf("servers = %d, want 1", len(servers))
	}

	s := servers[0]
	if s.Name != "Sentinel-2 Cloudless" {
		t.Errorf("name = %q", s.Name)
	}
	want := "https://tiles.example.com/wmts/s2cloudless/{z}/{x}/{y}.jpg"
	if s.URLTemplate != want {
		t.Errorf("url template = %q, want %q", s.URLTemplate, want)
	}
	if s.Bounds != ([4]float64{-180, -85, 180, 85}) {
		t.Errorf("bounds = %v", s.Bounds)
	}

	// The converted template passes server validation as-is.
	if err := ValidateServer(&s); err != nil {
		t.Errorf("imported server fails validation: %v", err)
	}
}

func TestParseWMTSCapabilitiesErrors(t *testing.T) {
	if _, err := ParseWMTSCapabilities(strings.NewReader("<notxml")); err == nil {
		t.Error("malformed XML accepted")
	}

	empty := `<?xml version="1.0"?>
<Capabilities xmlns="http://www.opengis.net/wmts/1.0"><Contents></Contents></Capabilities>`
	if _, err := ParseWMTSCapabilities(strings.NewReader(empty)); err == nil {
		t.Error("capabilities without layers accepted")
	}
}
