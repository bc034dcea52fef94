package adapterinfo

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed plugin.yaml
var pluginManifest []byte

// Metadata captures static identifiers for the adapter. Centralising the values
// makes it easy to clone this repository for new adapters.
type Metadata struct {
	Name        string
	BinaryName  string
	Slug        string
	Description string
	GeneratorID string
	Version     string
}

type manifest struct {
	Metadata struct {
		Name        string `yaml:"name"`
		Slug        string `yaml:"slug"`
		Description string `yaml:"description"`
		Version     string `yaml:"version"`
	} `yaml:"metadata"`
	Spec struct {
		Binary    string `yaml:"binary"`
		Generator string `yaml:"generator"`
	} `yaml:"spec"`
}

// Info describes the current adapter.
var Info = mustLoad(pluginManifest)

// Version returns the adapter version declared in plugin.yaml.
func Version() string { return Info.Version }

func load(data []byte) (Metadata, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("adapterinfo: decode plugin.yaml: %w", err)
	}
	if m.Metadata.Slug == "" || m.Metadata.Version == "" {
		return Metadata{}, fmt.Errorf("adapterinfo: plugin.yaml missing slug or version")
	}
	return Metadata{
		Name:        m.Metadata.Name,
		BinaryName:  m.Spec.Binary,
		Slug:        m.Metadata.Slug,
		Description: m.Metadata.Description,
		GeneratorID: m.Spec.Generator,
		Version:     m.Metadata.Version,
	}, nil
}

func mustLoad(data []byte) Metadata {
	md, err := load(data)
	if err != nil {
		panic(err)
	}
	return md
}

// TranslationMetadata produces the standard metadata payload attached
// to translation responses.
func TranslationMetadata(source, target, modelType string) map[string]string {
	return map[string]string{
		"generator":  Info.GeneratorID,
		"version":    Info.Version,
		"source":     source,
		"target":     target,
		"model_type": modelType,
	}
}
