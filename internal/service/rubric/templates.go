package rubric

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/models"
)

//go:embed templates.yaml
var templatesYAML []byte

// Templates maps each kind to the criteria a new evaluation starts with.
type Templates map[artifact.Kind][]models.RubricCriterion

// ParseTemplates decodes criteria templates keyed by artifact type. Every kind
// must have a template.
func ParseTemplates(data []byte) (Templates, error) {
	var raw map[string][]models.RubricCriterion
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse rubric templates: %w", err)
	}

	templates := make(Templates, len(raw))
	for key, criteria := range raw {
		kind, err := artifact.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("rubric template %q: %w", key, err)
		}
		templates[kind] = criteria
	}
	for _, kind := range artifact.All() {
		if len(templates[kind]) == 0 {
			return nil, fmt.Errorf("no rubric template for %s", kind)
		}
	}
	return templates, nil
}

// DefaultTemplates returns the embedded templates.
func DefaultTemplates() (Templates, error) {
	return ParseTemplates(templatesYAML)
}

// For returns a fresh copy of the kind's criteria with zero scores.
func (t Templates) For(kind artifact.Kind) []models.RubricCriterion {
	src := t[kind]
	out := make([]models.RubricCriterion, len(src))
	for i, c := range src {
		out[i] = models.RubricCriterion{Name: c.Name, Description: c.Description}
	}
	return out
}
