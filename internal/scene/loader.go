package scene

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"roomcore/pkg/domain"
)

// File is the YAML layout of a scene definition file.
//
//	fallback_zone: floor
//	aliases:
//	  ground: floor
//	scenes:
//	  - id: indoor
//	    name: Indoor
//	    zones:
//	      - id: floor
//	        bounds: {x: 10, y: 5, width: 80, height: 25}
//	        default_position: {x: 50, y: 15}
type File struct {
	FallbackZone string            `yaml:"fallback_zone"`
	Aliases      map[string]string `yaml:"aliases"`
	Scenes       []domain.Scene    `yaml:"scenes"`
}

// Load decodes a scene definition and builds a registry from it.
func Load(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read scenes: %w", err)
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse scenes: %w", err)
	}
	if len(f.Scenes) == 0 {
		return nil, fmt.Errorf("parse scenes: no scenes declared")
	}
	fallback := f.FallbackZone
	if fallback == "" && len(f.Scenes[0].Zones) > 0 {
		fallback = f.Scenes[0].Zones[0].ID
	}
	reg, err := NewRegistry(f.Scenes, WithAliases(f.Aliases), WithFallbackZone(fallback))
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	return reg, nil
}

// LoadFile reads a scene definition from path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenes file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Open returns the registry from path, or the builtin house when path is empty.
func Open(path string) (*Registry, error) {
	if path == "" {
		return Builtin(), nil
	}
	return LoadFile(path)
}
