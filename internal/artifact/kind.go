// Package artifact defines the closed set of reviewable artifact kinds and the
// static registry describing how each kind is stored and scored.
package artifact

import (
	"errors"
	"fmt"
)

// ErrInvalidKind is returned when a type string is not one of the known kinds.
var ErrInvalidKind = errors.New("invalid artifact type")

// Kind identifies one of the eight artifact kinds.
type Kind int

// Artifact kinds.
const (
	Requirements Kind = iota + 1
	Stories
	ActivityDiagrams
	UseCaseDiagrams
	SequenceDiagrams
	ClassDiagrams
	DesignPatterns
	Mockups
)

// Criterion is a named 0-5 review sub-score and the column holding it.
type Criterion struct {
	Name   string
	Column string
}

// Descriptor describes storage and scoring for one kind.
type Descriptor struct {
	Kind          Kind
	Key           string // canonical external key
	Singular      string // accepted input alias
	Label         string
	ArtifactTable string
	ReviewTable   string
	Criteria      []Criterion
}

// CriterionNames returns the criterion names in registry order.
func (d Descriptor) CriterionNames() []string {
	names := make([]string, len(d.Criteria))
	for i, c := range d.Criteria {
		names[i] = c.Name
	}
	return names
}

// Column returns the column for a criterion name.
func (d Descriptor) Column(name string) (string, bool) {
	for _, c := range d.Criteria {
		if c.Name == name {
			return c.Column, true
		}
	}
	return "", false
}

var registry = []Descriptor{
	{
		Kind: Requirements, Key: "requirements", Singular: "requirement", Label: "Requirements",
		ArtifactTable: "requirements", ReviewTable: "requirement_reviews",
		Criteria: []Criterion{
			{"syntaxScore", "syntax_score"},
			{"categorizationScore", "categorization_score"},
			{"scopeDefinitionScore", "scope_definition_score"},
			{"quantificationScore", "quantification_score"},
		},
	},
	{
		Kind: Stories, Key: "stories", Singular: "story", Label: "Stories",
		ArtifactTable: "stories", ReviewTable: "story_reviews",
		Criteria: []Criterion{
			{"storyFormatScore", "story_format_score"},
			{"featureCompletionScore", "feature_completion_score"},
			{"acceptanceCriteriaScore", "acceptance_criteria_score"},
		},
	},
	{
		Kind: ActivityDiagrams, Key: "activityDiagrams", Singular: "activityDiagram", Label: "Activity diagrams",
		ArtifactTable: "activity_diagrams", ReviewTable: "activity_diagram_reviews",
		Criteria: []Criterion{
			{"umlSyntaxScore", "uml_syntax_score"},
			{"scenarioComprehensiveScore", "scenario_comprehensive_score"},
			{"gherkinAlignmentScore", "gherkin_alignment_score"},
		},
	},
	{
		Kind: UseCaseDiagrams, Key: "useCaseDiagrams", Singular: "useCaseDiagram", Label: "Use case diagrams",
		ArtifactTable: "use_case_diagrams", ReviewTable: "use_case_diagram_reviews",
		Criteria: []Criterion{
			{"umlSyntaxScore", "uml_syntax_score"},
			{"useCasePackageScore", "use_case_package_score"},
			{"gherkinSpecificationScore", "gherkin_specification_score"},
		},
	},
	{
		Kind: SequenceDiagrams, Key: "sequenceDiagrams", Singular: "sequenceDiagram", Label: "Sequence diagrams",
		ArtifactTable: "sequence_diagrams", ReviewTable: "sequence_diagram_reviews",
		Criteria: []Criterion{
			{"umlCorrectnessScore", "uml_correctness_score"},
			{"messageFlowScore", "message_flow_score"},
			{"returnValuesScore", "return_values_score"},
			{"completenessScore", "completeness_score"},
		},
	},
	{
		Kind: ClassDiagrams, Key: "classDiagrams", Singular: "classDiagram", Label: "Class diagrams",
		ArtifactTable: "class_diagrams", ReviewTable: "class_diagram_reviews",
		Criteria: []Criterion{
			{"classStructureScore", "class_structure_score"},
			{"relationshipModelingScore", "relationship_modeling_score"},
			{"completenessScore", "completeness_score"},
			{"clarityScore", "clarity_score"},
			{"designPrinciplesScore", "design_principles_score"},
		},
	},
	{
		Kind: DesignPatterns, Key: "designPatterns", Singular: "designPattern", Label: "Design patterns",
		ArtifactTable: "design_patterns", ReviewTable: "design_pattern_reviews",
		Criteria: []Criterion{
			{"patternSelectionScore", "pattern_selection_score"},
			{"implementationScore", "implementation_score"},
			{"flexibilityScore", "flexibility_score"},
			{"complexityScore", "complexity_score"},
			{"documentationScore", "documentation_score"},
		},
	},
	{
		Kind: Mockups, Key: "mockups", Singular: "mockup", Label: "Mockups",
		ArtifactTable: "mockups", ReviewTable: "mockup_reviews",
		Criteria: []Criterion{
			{"uiUxDesignScore", "ui_ux_design_score"},
			{"consistencyScore", "consistency_score"},
			{"flowScore", "flow_score"},
			{"completenessScore", "completeness_score"},
			{"userFriendlinessScore", "user_friendliness_score"},
		},
	},
}

var byName map[string]Kind

func init() {
	if err := Validate(); err != nil {
		panic(err)
	}
	byName = make(map[string]Kind, len(registry)*2)
	for _, d := range registry {
		byName[d.Key] = d.Kind
		byName[d.Singular] = d.Kind
	}
}

// Validate checks that the registry is complete and consistent.
func Validate() error {
	if len(registry) != int(Mockups) {
		return fmt.Errorf("artifact registry has %d kinds, want %d", len(registry), Mockups)
	}
	seen := make(map[string]bool)
	for i, d := range registry {
		if d.Kind != Kind(i+1) {
			return fmt.Errorf("artifact registry entry %d has kind %d", i, d.Kind)
		}
		if d.Key == "" || d.Singular == "" || d.ArtifactTable == "" || d.ReviewTable == "" {
			return fmt.Errorf("artifact registry entry %q is incomplete", d.Key)
		}
		for _, name := range []string{d.Key, d.Singular} {
			if seen[name] {
				return fmt.Errorf("artifact type name %q registered twice", name)
			}
			seen[name] = true
		}
		if n := len(d.Criteria); n < 3 || n > 5 {
			return fmt.Errorf("artifact type %q has %d criteria, want 3 to 5", d.Key, n)
		}
		cols := make(map[string]bool)
		for _, c := range d.Criteria {
			if c.Name == "" || c.Column == "" || cols[c.Column] {
				return fmt.Errorf("artifact type %q has an invalid criterion %q", d.Key, c.Name)
			}
			cols[c.Column] = true
		}
	}
	return nil
}

// All returns every kind in registry order.
func All() []Kind {
	kinds := make([]Kind, len(registry))
	for i, d := range registry {
		kinds[i] = d.Kind
	}
	return kinds
}

// Parse resolves a key or singular alias to a Kind.
func Parse(s string) (Kind, error) {
	k, ok := byName[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= Requirements && k <= Mockups
}

// Descriptor returns the registry entry for k. It panics on an invalid kind;
// callers obtain kinds from Parse or All.
func (k Kind) Descriptor() Descriptor {
	if !k.Valid() {
		panic(fmt.Sprintf("artifact: invalid kind %d", int(k)))
	}
	return registry[k-1]
}

// String returns the canonical key.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return registry[k-1].Key
}

// MarshalText encodes the canonical key.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts a key or singular alias.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
