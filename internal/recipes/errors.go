package recipes

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/palette/internal/generation"
	"github.com/JaimeStill/palette/internal/pipeline"
)

// Domain errors for recipe operations.
var (
	ErrNotFound        = errors.New("recipe not found")
	ErrInvalidID       = errors.New("recipe id must be a UUID")
	ErrDuplicate       = errors.New("a recipe with this name already exists in the category")
	ErrInvalidName     = errors.New("recipe name must be between 2 and 100 characters")
	ErrMissingTemplate = errors.New("template is required")
)

// MapHTTPStatus maps recipe, pipeline, and model errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrMissingTemplate),
		errors.Is(err, generation.ErrUnknownModel),
		errors.Is(err, generation.ErrPrivateReference):
		return http.StatusBadRequest
	}
	return pipeline.MapHTTPStatus(err)
}
