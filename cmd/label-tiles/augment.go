package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/noahgolmant/label-tiles/internal/dataset"
	"github.com/noahgolmant/label-tiles/internal/telemetry"
)

func runAugment(args []string) error {
	fs := flag.NewFlagSet("augment", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "input COCO manifest (required)")
	tilesDir := fs.String("tiles", "", "directory holding source tiles (auto-detected under -data when empty)")
	dataDir := fs.String("data", "./data", "workspace data directory")
	serverID := fs.String("server", "", "tile server id whose tiles to use")
	outputDir := fs.String("out", "", "output directory (required)")
	stride := fs.Int("stride", 128, "sliding-window stride in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *manifestPath == "" {
		return fmt.Errorf("-manifest is required")
	}
	if *outputDir == "" {
		return fmt.Errorf("-out is required")
	}

	src, err := dataset.Load(*manifestPath)
	if err != nil {
		return err
	}

	dir := *tilesDir
	if dir == "" {
		dir, err = dataset.ResolveTilesDir(filepath.Join(*dataDir, "tiles"), *serverID)
		if err != nil {
			return err
		}
	}

	assembler := dataset.NewAssembler(dir, *outputDir, *stride)
	merged, summary, err := assembler.Run(src)
	if err != nil {
		return err
	}

	outManifest := filepath.Join(*outputDir, "annotations.json")
	if err := merged.Save(outManifest); err != nil {
		return err
	}

	tm := telemetry.New(telemetry.PostHogKey, telemetry.PostHogHost)
	defer tm.Close()
	tm.Track("augment_complete", map[string]interface{}{
		"stride":          *stride,
		"originals":       summary.OriginalsCopied,
		"windows_created": summary.WindowsCreated,
		"windows_skipped": summary.WindowsSkipped,
	})

	log.Printf("[Augment] %d originals, %d windows created, %d skipped, %d annotations",
		summary.OriginalsCopied, summary.WindowsCreated, summary.WindowsSkipped,
		summary.AnnotationsEmitted)
	log.Printf("[Augment] Manifest written to %s", outManifest)
	return nil
}
