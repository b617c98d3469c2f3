package schema

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Manifest is an explicit description of entities and their metadata,
// used when no Go model root is available (for example from the CLI)
//
// Example:
//
//	schema: dbo
//	entities:
//	  - name: Person
//	    table: People
//	    description: People records
//	    columns:
//	      - name: FirstName
//	        description: Given name
//	      - name: Orders
//	        persisted: false
type Manifest struct {
	Schema   string           `yaml:"schema"`
	Entities []ManifestEntity `yaml:"entities"`
}

// ManifestEntity declares one entity type
type ManifestEntity struct {
	Name        string           `yaml:"name"`
	Table       string           `yaml:"table"`
	Description *string          `yaml:"description"`
	Columns     []ManifestColumn `yaml:"columns"`
}

// ManifestColumn declares one property of an entity
type ManifestColumn struct {
	Name        string  `yaml:"name"`
	Column      string  `yaml:"column"`
	Description *string `yaml:"description"`
	Persisted   *bool   `yaml:"persisted"`
}

// LoadManifest reads and parses a manifest file
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseManifest parses manifest YAML. Unknown keys are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalWithOptions(data, &m, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// EntityTypes converts the manifest into entity descriptors in declaration
// order. Columns default to persisted.
func (m *Manifest) EntityTypes() ([]*EntityType, error) {
	entities := make([]*EntityType, 0, len(m.Entities))

	for _, me := range m.Entities {
		e := NewEntityType(me.Name)
		e.TableOverride = me.Table
		e.TableDescription = me.Description

		for _, mc := range me.Columns {
			persisted := true
			if mc.Persisted != nil {
				persisted = *mc.Persisted
			}
			e.Columns = append(e.Columns, &ColumnMeta{
				Property:       mc.Name,
				Description:    mc.Description,
				IsPersisted:    persisted,
				ColumnOverride: mc.Column,
			})
		}
		entities = append(entities, e)
	}

	if err := Validate(entities); err != nil {
		return nil, err
	}
	return entities, nil
}
