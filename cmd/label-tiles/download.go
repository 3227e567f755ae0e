package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/noahgolmant/label-tiles/internal/config"
	"github.com/noahgolmant/label-tiles/internal/fetch"
	"github.com/noahgolmant/label-tiles/internal/labels"
	"github.com/noahgolmant/label-tiles/internal/telemetry"
	"github.com/noahgolmant/label-tiles/internal/tiles"
)

func runDownload(args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "workspace data directory")
	serverID := fs.String("server", "", "tile server id (required)")
	workers := fs.Int("workers", 50, "maximum concurrent fetches")
	force := fs.Bool("force", false, "re-download tiles that already exist")
	labeledOnly := fs.Bool("labeled-only", false, "fetch only tiles that carry labels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *serverID == "" {
		return fmt.Errorf("-server is required")
	}

	store, err := config.NewStore(*dataDir)
	if err != nil {
		return err
	}
	cfg, err := store.Load()
	if err != nil {
		return err
	}
	server, err := store.Server(*serverID)
	if err != nil {
		return err
	}
	var batch []tiles.Tile
	if *labeledOnly {
		labelStore, err := labels.Open(filepath.Join(*dataDir, "labels.db"))
		if err != nil {
			return err
		}
		defer labelStore.Close()
		batch, err = labelStore.LabeledTiles()
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			log.Print("[Download] No labeled tiles to fetch")
			return nil
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
	log.Printf("[Download] %d tiles at zoom %d from %s", len(batch), cfg.LabelingZoom, server.Name)

	destDir := filepath.Join(*dataDir, "tiles", server.ID)
	fetcher, err := fetch.NewFetcher(server.URLTemplate, destDir, *workers,
		fetch.WithSkipExisting(!*force))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress, err := fetcher.Fetch(ctx, batch)
	if err != nil {
		return err
	}

	var final fetch.Progress
	for p := range progress {
		final = p
		if p.Error != "" {
			log.Printf("[Download] %s failed: %s", p.CurrentTile, p.Error)
		} else if p.Completed%500 == 0 || p.Completed == p.Total {
			log.Printf("[Download] %d/%d (failed %d, skipped %d)",
				p.Completed, p.Total, p.Failed, p.Skipped)
		}
	}

	tm := telemetry.New(telemetry.PostHogKey, telemetry.PostHogHost)
	defer tm.Close()
	tm.Track("download_complete", map[string]interface{}{
		"zoom":    cfg.LabelingZoom,
		"total":   final.Total,
		"failed":  final.Failed,
		"skipped": final.Skipped,
	})

	log.Printf("[Download] Done: %d total, %d failed, %d skipped",
		final.Total, final.Failed, final.Skipped)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("download interrupted: %w", err)
	}
	return nil
}
