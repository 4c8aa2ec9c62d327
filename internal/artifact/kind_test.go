package artifact

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate())
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{input: "requirements", want: Requirements},
		{input: "requirement", want: Requirements},
		{input: "stories", want: Stories},
		{input: "story", want: Stories},
		{input: "storys", wantErr: true},
		{input: "activityDiagrams", want: ActivityDiagrams},
		{input: "useCaseDiagram", want: UseCaseDiagrams},
		{input: "sequenceDiagrams", want: SequenceDiagrams},
		{input: "classDiagram", want: ClassDiagrams},
		{input: "designPatterns", want: DesignPatterns},
		{input: "mockup", want: Mockups},
		{input: "Requirements", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidKind))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeysAreCanonical(t *testing.T) {
	var keys []string
	for _, k := range All() {
		keys = append(keys, k.String())
	}

	want := []string{
		"requirements", "stories", "activityDiagrams", "useCaseDiagrams",
		"sequenceDiagrams", "classDiagrams", "designPatterns", "mockups",
	}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptorCriteria(t *testing.T) {
	d := Requirements.Descriptor()
	assert.Equal(t, []string{"syntaxScore", "categorizationScore", "scopeDefinitionScore", "quantificationScore"}, d.CriterionNames())

	col, ok := d.Column("scopeDefinitionScore")
	assert.True(t, ok)
	assert.Equal(t, "scope_definition_score", col)

	_, ok = d.Column("flowScore")
	assert.False(t, ok)

	assert.Len(t, Stories.Descriptor().Criteria, 3)
	assert.Len(t, Mockups.Descriptor().Criteria, 5)
}

func TestKindJSON(t *testing.T) {
	var payload struct {
		Kind Kind `json:"kind"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"story"}`), &payload))
	assert.Equal(t, Stories, payload.Kind)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"stories"}`, string(out))

	err = json.Unmarshal([]byte(`{"kind":"storys"}`), &payload)
	assert.Error(t, err)
}

func TestInvalidKind(t *testing.T) {
	assert.False(t, Kind(0).Valid())
	assert.False(t, Kind(9).Valid())
	assert.Equal(t, "Kind(9)", Kind(9).String())
	assert.Panics(t, func() { _ = Kind(0).Descriptor() })
}
