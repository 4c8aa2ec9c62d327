package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/artifactlab/review-scoring/internal/artifact"
)

// RegisterValidators adds the artifact_kind tag to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("artifact_kind", validArtifactKind); err != nil {
		return fmt.Errorf("failed to register artifact_kind validator: %w", err)
	}
	return nil
}

func validArtifactKind(fl validator.FieldLevel) bool {
	_, err := artifact.Parse(fl.Field().String())
	return err == nil
}
