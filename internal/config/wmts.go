package config

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// wmtsCapabilities mirrors the subset of a WMTS GetCapabilities document
// needed to turn layers into tile servers.
type wmtsCapabilities struct {
	XMLName  xml.Name `xml:"Capabilities"`
	Contents struct {
		Layers []wmtsLayer `xml:"Layer"`
	} `xml:"Contents"`
}

type wmtsLayer struct {
	Title      string `xml:"http://www.opengis.net/ows/1.1 Title"`
	Identifier string `xml:"http://www.opengis.net/ows/1.1 Identifier"`
	Bounds     struct {
		LowerCorner string `xml:"LowerCorner"`
		UpperCorner string `xml:"UpperCorner"`
	} `xml:"http://www.opengis.net/ows/1.1 WGS84BoundingBox"`
	ResourceURLs []struct {
		Format       string `xml:"format,attr"`
		ResourceType string `xml:"resourceType,attr"`
		Template     string `xml:"template,attr"`
	} `xml:"ResourceURL"`
}

// ImportWMTS fetches a WMTS capabilities document and returns its tile
// layers as server candidates ready for AddServer. Layers without a tile
// resource template are skipped.
func ImportWMTS(url string) ([]TileServer, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch capabilities: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch capabilities: HTTP %d", resp.StatusCode)
	}
	return ParseWMTSCapabilities(resp.Body)
}

// ParseWMTSCapabilities reads a capabilities document and extracts one
// server candidate per tile layer.
func ParseWMTSCapabilities(r io.Reader) ([]TileServer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read capabilities: %w", err)
	}

	var caps wmtsCapabilities
	if err := xml.Unmarshal(data, &caps); err != nil {
		return nil, fmt.Errorf("failed to parse capabilities XML: %w", err)
	}
	if len(caps.Contents.Layers) == 0 {
		return nil, fmt.Errorf("no layers found in capabilities")
	}

	var servers []TileServer
	for _, layer := range caps.Contents.Layers {
		template := ""
		for _, res := range layer.ResourceURLs {
			if res.ResourceType == "tile" {
				template = wmtsTemplateToXYZ(res.Template)
				break
			}
		}
		if template == "" {
			continue
		}

		name := layer.Title
		if name == "" {
			name = layer.Identifier
		}
		servers = append(servers, TileServer{
			Name:        name,
			URLTemplate: template,
			Bounds:      parseWMTSBounds(layer),
			MaxZoom:     22,
			TileSize:    256,
		})
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no layers with tile resource templates found")
	}
	return servers, nil
}

// wmtsTemplateToXYZ rewrites WMTS tile placeholders as XYZ placeholders.
func wmtsTemplateToXYZ(template string) string {
	result := strings.ReplaceAll(template, "{TileMatrix}", "{z}")
	result = strings.ReplaceAll(result, "{TileCol}", "{x}")
	return strings.ReplaceAll(result, "{TileRow}", "{y}")
}

func parseWMTSBounds(layer wmtsLayer) [4]float64 {
	bounds := [4]float64{-180, -85, 180, 85}
	var west, south, east, north float64
	n1, err1 := fmt.Sscanf(layer.Bounds.LowerCorner, "%f %f", &west, &south)
	n2, err2 := fmt.Sscanf(layer.Bounds.UpperCorner, "%f %f", &east, &north)
	if err1 == nil && err2 == nil && n1 == 2 && n2 == 2 {
		bounds = [4]float64{west, south, east, north}
	}
	return bounds
}
