package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/noahgolmant/label-tiles/internal/config"
)

func runServers(args []string) error {
	if len(args) == 0 {
		return listServers([]string{})
	}
	switch args[0] {
	case "list":
		return listServers(args[1:])
	case "add":
		return addServer(args[1:])
	case "remove":
		return removeServer(args[1:])
	case "import":
		return importServers(args[1:])
	default:
		return fmt.Errorf("unknown servers subcommand %q (want list, add, remove, or import)", args[0])
	}
}

func listServers(args []string) error {
	fs := flag.NewFlagSet("servers list", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "workspace data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := config.NewStore(*dataDir)
	if err != nil {
		return err
	}
	cfg, err := store.Load()
	if err != nil {
		return err
	}
	if len(cfg.TileServers) == 0 {
		fmt.Println("No tile servers configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTILE SIZE\tZOOM\tURL")
	for _, s := range cfg.TileServers {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d-%d\t%s\n",
			s.ID, s.Name, s.TileSize, s.MinZoom, s.MaxZoom, s.URLTemplate)
	}
	return w.Flush()
}

func addServer(args []string) error {
	fs := flag.NewFlagSet("servers add", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "workspace data directory")
	name := fs.String("name", "", "display name (required)")
	url := fs.String("url", "", "XYZ URL template with {z}/{x}/{y} placeholders (required)")
	tileSize := fs.Int("tile-size", 256, "tile edge length in pixels")
	minZoom := fs.Int("min-zoom", 0, "minimum zoom level")
	maxZoom := fs.Int("max-zoom", 22, "maximum zoom level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *url == "" {
		return fmt.Errorf("-name and -url are required")
	}

	store, err := config.NewStore(*dataDir)
	if err != nil {
		return err
	}
	server, err := store.AddServer(config.TileServer{
		Name:        *name,
		URLTemplate: *url,
		TileSize:    *tileSize,
		MinZoom:     *minZoom,
		MaxZoom:     *maxZoom,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added tile server %q with id %s\n", server.Name, server.ID)
	return nil
}

func importServers(args []string) error {
	fs := flag.NewFlagSet("servers import", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "workspace data directory")
	url := fs.String("url", "", "WMTS GetCapabilities URL (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *url == "" {
		return fmt.Errorf("-url is required")
	}

	candidates, err := config.ImportWMTS(*url)
	if err != nil {
		return err
	}

	store, err := config.NewStore(*dataDir)
	if err != nil {
		return err
	}
	for _, candidate := range candidates {
		server, err := store.AddServer(candidate)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %q as %s\n", server.Name, server.ID)
	}
	return nil
}

func removeServer(args []string) error {
	fs := flag.NewFlagSet("servers remove", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "workspace data directory")
	id := fs.String("id", "", "server id to remove (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("-id is required")
	}

	store, err := config.NewStore(*dataDir)
	if err != nil {
		return err
	}
	if err := store.DeleteServer(*id); err != nil {
		return err
	}
	fmt.Printf("Removed tile server %s\n", *id)
	return nil
}
