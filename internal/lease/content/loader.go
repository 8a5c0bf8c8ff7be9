// Package content loads property definitions from the world-content file and
// seeds one vacant snapshot per property.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"leasehold/internal/lease/models"
	id "leasehold/pkg/domain"
	"leasehold/pkg/platform/sentinel"
)

// DefaultGraceDays applies to properties that do not set eviction_grace_days.
const DefaultGraceDays = 2

type file struct {
	Properties []propertyEntry `yaml:"properties"`
}

type propertyEntry struct {
	ID                  string  `yaml:"id"`
	InternalName        string  `yaml:"internal_name"`
	Settlement          string  `yaml:"settlement"`
	Category            string  `yaml:"category"`
	AreaTag             string  `yaml:"area_tag"`
	MonthlyRent         int64   `yaml:"monthly_rent"`
	AllowsLinkedAccount bool    `yaml:"allows_linked_account"`
	AllowsDirect        bool    `yaml:"allows_direct"`
	LinkedAccountID     *string `yaml:"linked_account_id"`
	PurchasePrice       *int64  `yaml:"purchase_price"`
	PropertyTax         *int64  `yaml:"property_tax"`
	EvictionGraceDays   *int    `yaml:"eviction_grace_days"`
}

// LoadFile reads definitions from path.
func LoadFile(path string, defaultGraceDays int) ([]models.PropertyDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read world content: %w", err)
	}
	return Load(bytes.NewReader(raw), defaultGraceDays)
}

// Load decodes and validates definitions. Unknown keys and duplicate IDs are
// rejected so typos in content never silently change a lease.
func Load(r io.Reader, defaultGraceDays int) ([]models.PropertyDefinition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode world content: %w", err)
	}

	seen := make(map[id.PropertyID]string, len(f.Properties))
	defs := make([]models.PropertyDefinition, 0, len(f.Properties))
	for i, entry := range f.Properties {
		def, err := entry.definition(defaultGraceDays)
		if err != nil {
			return nil, fmt.Errorf("property #%d (%s): %w", i+1, entry.InternalName, err)
		}
		if other, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("property %s: id already used by %s: %w", def.InternalName, other, sentinel.ErrInvalidInput)
		}
		seen[def.ID] = def.InternalName
		defs = append(defs, def)
	}
	return defs, nil
}

func (e propertyEntry) definition(defaultGraceDays int) (models.PropertyDefinition, error) {
	propertyID, err := id.ParsePropertyID(e.ID)
	if err != nil {
		return models.PropertyDefinition{}, err
	}
	if e.InternalName == "" {
		return models.PropertyDefinition{}, fmt.Errorf("internal_name is required: %w", sentinel.ErrInvalidInput)
	}
	if e.MonthlyRent < 0 {
		return models.PropertyDefinition{}, fmt.Errorf("monthly_rent cannot be negative: %w", sentinel.ErrInvalidInput)
	}

	grace := defaultGraceDays
	if e.EvictionGraceDays != nil {
		grace = *e.EvictionGraceDays
	}
	if grace < 0 {
		return models.PropertyDefinition{}, fmt.Errorf("eviction_grace_days cannot be negative: %w", sentinel.ErrInvalidInput)
	}

	return models.PropertyDefinition{
		ID:                  propertyID,
		InternalName:        e.InternalName,
		Settlement:          e.Settlement,
		Category:            e.Category,
		AreaTag:             e.AreaTag,
		MonthlyRent:         e.MonthlyRent,
		AllowsLinkedAccount: e.AllowsLinkedAccount,
		AllowsDirect:        e.AllowsDirect,
		LinkedAccountID:     e.LinkedAccountID,
		PurchasePrice:       e.PurchasePrice,
		PropertyTax:         e.PropertyTax,
		EvictionGraceDays:   grace,
	}, nil
}
