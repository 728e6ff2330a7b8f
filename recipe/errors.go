// Package recipe implements the recipe template engine: placeholder parsing,
// recipe-wide field deduplication, prompt construction, cost accounting,
// validation, and stage-chaining checks. It has no I/O; execution lives in
// internal/pipeline.
package recipe

import (
	"errors"
	"strings"
)

// Sentinel errors for recipe operations.
var (
	ErrEmptyRecipe      = errors.New("recipe has no stages")
	ErrInvalidKind      = errors.New("stage type must be generation, tool, or analysis")
	ErrInvalidStage     = errors.New("invalid stage definition")
	ErrUnknownTool      = errors.New("unknown tool")
	ErrUnknownAnalysis  = errors.New("unknown analysis")
	ErrMultiOutputChain = errors.New("multi-output tool stage cannot feed the next stage")
	ErrValidation       = errors.New("missing required fields")
)

// ValidationError carries the labels of required fields that were left empty.
type ValidationError struct {
	MissingFields []string
	Errors        []string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.MissingFields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
