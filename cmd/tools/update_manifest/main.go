package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/nupi-ai/plugin-translate-local/internal/models"
)

func main() {
	manifestPath := flag.String("manifest", "internal/models/embedded_manifest.yaml", "Path to manifest YAML to update")
	dataDir := flag.String("data-dir", "data", "Adapter data directory holding models/")
	prune := flag.Bool("prune", false, "Drop entries for pairs that are no longer installed")
	flag.Parse()

	manifest, err := readManifest(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read manifest: %v\n", err)
		os.Exit(1)
	}

	library, err := models.NewManager(*dataDir, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open model library: %v\n", err)
		os.Exit(1)
	}
	installed, err := library.Installed()
	if err != nil {
		fmt.Fprintf(os.Stderr, "list models: %v\n", err)
		os.Exit(1)
	}

	seen := make(map[string]bool, len(installed))
	for _, m := range installed {
		key := models.Key(m.Pair, m.Type)
		seen[key] = true

		files, err := models.Describe(m.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", key, err)
			continue
		}
		manifest.Pairs[key] = models.Entry{
			Source: m.Pair.Source,
			Target: m.Pair.Target,
			Type:   m.Type,
			Files:  files,
		}
		var total int64
		for _, f := range files {
			total += f.SizeBytes
		}
		fmt.Printf("%s: files=%d size=%d\n", key, len(files), total)
	}

	if *prune {
		for key := range manifest.Pairs {
			if !seen[key] {
				delete(manifest.Pairs, key)
				fmt.Printf("%s: pruned\n", key)
			}
		}
	}

	out, err := os.Create(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "write manifest: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := manifest.Write(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode manifest: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Updated manifest written to %s\n", *manifestPath)
}

func readManifest(path string) (models.Manifest, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return models.Manifest{Version: models.ManifestVersion, Pairs: map[string]models.Entry{}}, nil
	}
	if err != nil {
		return models.Manifest{}, err
	}
	defer file.Close()
	return models.LoadManifest(file)
}
