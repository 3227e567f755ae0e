// label-tiles manages a tile-labeling workspace: it downloads imagery
// tiles for the configured labeling extent, synthesizes sliding-window
// training data from labeled tiles, and exports labels in interchange
// formats.
package main

import (
	"fmt"
	"log"
	"os"
)

const usage = `label-tiles - tile dataset toolkit

Usage:
  label-tiles <command> [flags]

Commands:
  download   Fetch tiles for the labeling extent from a tile server
  augment    Build sliding-window training data from a labeled dataset
  export     Export labels as GeoJSON or COCO annotations
  mosaic     Stitch downloaded tiles into a georeferenced GeoTIFF
  servers    Manage configured tile servers
  rasters    Manage registered local GeoTIFF sources

Run "label-tiles <command> -h" for command flags.
`

func main() {
	log.SetFlags(log.LstdFlags)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "download":
		err = runDownload(os.Args[2:])
	case "augment":
		err = runAugment(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "mosaic":
		err = runMosaic(os.Args[2:])
	case "servers":
		err = runServers(os.Args[2:])
	case "rasters":
		err = runRasters(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}
