package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/noahgolmant/label-tiles/internal/raster"
)

func runRasters(args []string) error {
	if len(args) == 0 {
		return listRasters([]string{})
	}
	switch args[0] {
	case "list":
		return listRasters(args[1:])
	case "register":
		return registerRaster(args[1:])
	case "unregister":
		return unregisterRaster(args[1:])
	default:
		return fmt.Errorf("unknown rasters subcommand %q (want list, register, or unregister)", args[0])
	}
}

func openRasterRegistry(dataDir string) (*raster.Registry, error) {
	var svc raster.Service = raster.Unavailable{}
	if base := os.Getenv("LABEL_TILES_TILER_URL"); base != "" {
		svc = &raster.TilerService{BaseURL: base}
	}
	return raster.OpenRegistry(filepath.Join(dataDir, "geotiff_registry.json"), svc)
}

func listRasters(args []string) error {
	fs := flag.NewFlagSet("rasters list", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "workspace data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg, err := openRasterRegistry(*dataDir)
	if err != nil {
		return err
	}
	if !reg.Available() {
		fmt.Println("Raster tile service not configured (set LABEL_TILES_TILER_URL).")
	}

	sources := reg.List()
	if len(sources) == 0 {
		fmt.Println("No GeoTIFF sources registered.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILE\tZOOM\tPATH")
	for _, s := range sources {
		fmt.Fprintf(w, "%s\t%s\t%d-%d\t%s\n", s.ID, s.Filename, s.MinZoom, s.MaxZoom, s.Path)
	}
	return w.Flush()
}

func registerRaster(args []string) error {
	fs := flag.NewFlagSet("rasters register", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "workspace data directory")
	path := fs.String("path", "", "GeoTIFF file to register (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("-path is required")
	}

	reg, err := openRasterRegistry(*dataDir)
	if err != nil {
		return err
	}
	info, err := reg.Register(*path)
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s as %s\n", info.Filename, info.ID)
	fmt.Printf("Tile URL: %s\n", info.TileURLTemplate)
	return nil
}

func unregisterRaster(args []string) error {
	fs := flag.NewFlagSet("rasters unregister", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "workspace data directory")
	id := fs.String("id", "", "source id to unregister (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("-id is required")
	}

	reg, err := openRasterRegistry(*dataDir)
	if err != nil {
		return err
	}
	if err := reg.Unregister(*id); err != nil {
		return err
	}
	fmt.Printf("Unregistered %s (file left in place)\n", *id)
	return nil
}
