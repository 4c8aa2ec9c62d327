package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/artifactlab/review-scoring/internal/artifact"
)

func TestFrom(t *testing.T) {
	_, kindErr := artifact.Parse("storys")

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"forbidden", Forbidden("Not a project member", nil), http.StatusForbidden},
		{"wrapped app error", fmt.Errorf("submit: %w", NotFound("Artifact not found", nil)), http.StatusNotFound},
		{"invalid kind", kindErr, http.StatusBadRequest},
		{"record not found", fmt.Errorf("failed to get project: %w", gorm.ErrRecordNotFound), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, Status(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause)

	assert.Equal(t, "Internal server error: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Forbidden", Forbidden("Forbidden", nil).Error())
}
