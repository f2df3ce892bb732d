// Package template loads YAML board blueprints used to create
// sub-boards from a predefined column/card layout.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"boardsync/internal/domain"
	"boardsync/internal/domain/models"
)

// Load parses a single blueprint file.
func Load(path string) (*models.TemplateSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}

	var spec models.TemplateSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	if err := validate(&spec); err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return &spec, nil
}

// LoadDir parses every *.yaml/*.yml blueprint in dir, keyed by the
// file name without extension.
func LoadDir(dir string) (map[string]*models.TemplateSpec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read template dir %s: %w", dir, err)
	}

	specs := make(map[string]*models.TemplateSpec)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		spec, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		specs[strings.TrimSuffix(entry.Name(), ext)] = spec
	}
	return specs, nil
}

func validate(spec *models.TemplateSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: template name required", domain.ErrValidation)
	}
	if len(spec.Columns) == 0 {
		return fmt.Errorf("%w: template needs at least one column", domain.ErrValidation)
	}
	seen := make(map[string]bool, len(spec.Columns))
	for _, col := range spec.Columns {
		if col.Name == "" {
			return fmt.Errorf("%w: column name required", domain.ErrValidation)
		}
		if seen[col.Name] {
			return fmt.Errorf("%w: duplicate column %q", domain.ErrValidation, col.Name)
		}
		seen[col.Name] = true
		for _, card := range col.Cards {
			if card.Title == "" {
				return fmt.Errorf("%w: card title required in column %q", domain.ErrValidation, col.Name)
			}
		}
	}
	return nil
}
