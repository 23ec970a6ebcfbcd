package ingest

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
)

const nutrientReferenceEnv = "INGEST_NUTRIENT_REFERENCE_YAML"

//go:embed nutrients.yaml
var nutrientReferenceFS embed.FS

// Reference is the loaded nutrient ontology: the core set used for
// completeness scoring plus the canonical unit per tagname.
type Reference struct {
	Core map[string]struct{}
	Refs []types.NutrientRef
}

func (r *Reference) IsCore(nutrientID string) bool {
	_, ok := r.Core[strings.ToUpper(strings.TrimSpace(nutrientID))]
	return ok
}

func (r *Reference) CoreSize() int { return len(r.Core) }

// CanonicalUnit returns the target unit for a tagname, or unknown when
// the tagname is not in the ontology.
func (r *Reference) CanonicalUnit(nutrientID string) types.QuantityUnit {
	id := strings.ToUpper(strings.TrimSpace(nutrientID))
	for i := range r.Refs {
		if r.Refs[i].ID == id {
			return r.Refs[i].Unit
		}
	}
	return types.UnitUnknown
}

type yamlNutrientRef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Unit        string `yaml:"unit"`
	OntologyURI string `yaml:"ontology_uri"`
}

type yamlReference struct {
	Reference string            `yaml:"reference"`
	Core      []string          `yaml:"core"`
	Nutrients []yamlNutrientRef `yaml:"nutrients"`
}

var referenceOnce sync.Once
var referenceCache *Reference
var referenceErr error

// LoadReference parses the nutrient reference YAML, preferring the
// INGEST_NUTRIENT_REFERENCE_YAML path over the embedded default. The
// result is cached for the process lifetime.
func LoadReference() (*Reference, error) {
	referenceOnce.Do(func() {
		referenceCache, referenceErr = loadReference()
	})
	return referenceCache, referenceErr
}

func loadReference() (*Reference, error) {
	data, err := readReferenceYAML()
	if err != nil {
		return nil, err
	}

	var spec yamlReference
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.Reference) != "nutrients" {
		return nil, fmt.Errorf("unexpected reference kind: %s", spec.Reference)
	}
	if len(spec.Nutrients) == 0 {
		return nil, errors.New("nutrient reference has no entries")
	}

	core := make(map[string]struct{}, len(spec.Core))
	for _, id := range spec.Core {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id != "" {
			core[id] = struct{}{}
		}
	}

	refs := make([]types.NutrientRef, 0, len(spec.Nutrients))
	seen := make(map[string]struct{}, len(spec.Nutrients))
	for _, n := range spec.Nutrients {
		id := strings.ToUpper(strings.TrimSpace(n.ID))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate nutrient reference entry: %s", id)
		}
		seen[id] = struct{}{}

		unit := types.QuantityUnit(strings.TrimSpace(n.Unit))
		if !unit.Valid() {
			return nil, fmt.Errorf("nutrient %s has invalid unit %q", id, n.Unit)
		}

		refs = append(refs, types.NutrientRef{
			ID:          id,
			Name:        strings.TrimSpace(n.Name),
			Unit:        unit,
			OntologyURI: strings.TrimSpace(n.OntologyURI),
		})
	}

	for id := range core {
		if _, ok := seen[id]; !ok {
			return nil, fmt.Errorf("core nutrient %s missing from reference entries", id)
		}
	}

	return &Reference{Core: core, Refs: refs}, nil
}

func readReferenceYAML() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(nutrientReferenceEnv)); path != "" {
		return os.ReadFile(path)
	}
	return nutrientReferenceFS.ReadFile("nutrients.yaml")
}
