package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/noahgolmant/label-tiles/internal/config"
	"github.com/noahgolmant/label-tiles/internal/export"
	"github.com/noahgolmant/label-tiles/internal/labels"
	"github.com/noahgolmant/label-tiles/internal/tiles"
)

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "workspace data directory")
	format := fs.String("format", "coco", "export format: coco or geojson")
	serverID := fs.String("server", "", "tile server id supplying the tile size")
	out := fs.String("out", "", "output file (defaults under the data directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := labels.Open(filepath.Join(*dataDir, "labels.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	all, err := store.All()
	if err != nil {
		return err
	}
	log.Printf("[Export] %d labels loaded", len(all))

	switch *format {
	case "geojson":
		path := *out
		if path == "" {
			path = filepath.Join(*dataDir, "labels.geojson")
		}
		if err := export.WriteGeoJSON(all, path); err != nil {
			return err
		}
		log.Printf("[Export] GeoJSON written to %s", path)
		return nil

	case "coco":
		tileSize := 512
		if *serverID != "" {
			cfgStore, err := config.NewStore(*dataDir)
			if err != nil {
				return err
			}
			server, err := cfgStore.Server(*serverID)
			if err != nil {
				return err
			}
			tileSize = server.TileSize
		}
		path := *out
		if path == "" {
			path = filepath.Join(*dataDir, "annotations.json")
		}
		if err := export.WriteCOCO(all, tileSize, path); err != nil {
			return err
		}
		log.Printf("[Export] COCO annotations written to %s", path)
		return nil

	default:
		return fmt.Errorf("unknown format %q (want coco or geojson)", *format)
	}
}

func runMosaic(args []string) error {
	fs := flag.NewFlagSet("mosaic", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "workspace data directory")
	serverID := fs.String("server", "", "tile server id whose tiles to stitch (required)")
	out := fs.String("out", "mosaic.tif", "output GeoTIFF path")
	labeledOnly := fs.Bool("labeled-only", false, "stitch only tiles that carry labels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *serverID == "" {
		return fmt.Errorf("-server is required")
	}

	cfgStore, err := config.NewStore(*dataDir)
	if err != nil {
		return err
	}
	cfg, err := cfgStore.Load()
	if err != nil {
		return err
	}
	server, err := cfgStore.Server(*serverID)
	if err != nil {
		return err
	}

	var batch []tiles.Tile
	if *labeledOnly {
		store, err := labels.Open(filepath.Join(*dataDir, "labels.db"))
		if err != nil {
			return err
		}
		defer store.Close()
		batch, err = store.LabeledTiles()
		if err != nil {
			return err
		}
	} else {
		if cfg.LabelingExtent == nil {
			return fmt.Errorf("labeling extent not set in config")
		}
		extent := *cfg.LabelingExtent
		batch, err = tiles.InBounds(extent[0], extent[1], extent[2], extent[3], cfg.LabelingZoom)
		if err != nil {
			return err
		}
	}
	if len(batch) == 0 {
		return fmt.Errorf("no tiles to stitch")
	}

	tilesDir := filepath.Join(*dataDir, "tiles", server.ID)
	if err := export.Mosaic(batch, tilesDir, server.TileSize, *out); err != nil {
		return err
	}
	log.Printf("[Mosaic] %d tiles written to %s", len(batch), *out)
	return nil
}
