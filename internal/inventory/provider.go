package inventory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"roomcore/pkg/domain"
)

// StaticProvider serves a fixed list of owned items.
type StaticProvider []domain.CatalogItem

// OwnedItems returns a copy of the list.
func (p StaticProvider) OwnedItems(context.Context) ([]domain.CatalogItem, error) {
	out := make([]domain.CatalogItem, len(p))
	copy(out, p)
	return out, nil
}

// StarterItems is the inventory a new household owns: one of each stock
// house default item.
func StarterItems() []domain.CatalogItem {
	return []domain.CatalogItem{
		{ID: "basic-bed", Name: "Basic Bed", Category: CategoryFurniture, Type: TypeFurniture, Icon: "🛏️", Price: 0},
		{ID: "flower-bed", Name: "Flower Bed", Category: CategoryFurniture, Type: TypeFurniture, Icon: "🌷", Price: 30},
		{ID: "pool", Name: "Paddling Pool", Category: CategoryFurniture, Type: TypeFurniture, Icon: "🏊", Price: 80},
		{ID: "fancy-lamp", Name: "Fancy Lamp", Category: CategoryFurniture, Type: "decoration", Icon: "💡", Price: 40},
		{ID: "garden-fence", Name: "Garden Fence", Category: CategoryFurniture, Type: "decoration", Icon: "🪵", Price: 25},
	}
}

// file is the layout of an inventory file. JSON documents decode too.
//
//	items:
//	  - id: basic-bed
//	    name: Basic Bed
//	    category: furniture
//	    type: furniture
type file struct {
	Items []domain.CatalogItem `yaml:"items"`
}

// FileProvider reads owned items from a YAML or JSON file on every call so
// edits are picked up without a restart.
type FileProvider struct {
	path string
}

// NewFileProvider returns a provider reading path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// OwnedItems parses the file.
func (p *FileProvider) OwnedItems(context.Context) ([]domain.CatalogItem, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// Decode parses an inventory document.
func Decode(r io.Reader) ([]domain.CatalogItem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	var doc file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}
	for i, item := range doc.Items {
		if item.ID == "" {
			return nil, fmt.Errorf("parse inventory: item %d has no id", i)
		}
	}
	if doc.Items == nil {
		doc.Items = []domain.CatalogItem{}
	}
	return doc.Items, nil
}

// Open returns a file provider for path, or the starter inventory when
// path is empty.
func Open(path string) domain.InventoryProvider {
	if path == "" {
		return StaticProvider(StarterItems())
	}
	return NewFileProvider(path)
}
