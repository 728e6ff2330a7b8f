// Package pipeline executes prepared recipes stage by stage, threading
// reference images and analysis outputs forward and debiting credits as
// each stage succeeds.
package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/palette/recipe"
)

// Sentinel errors for pipeline execution.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrStageFailed         = errors.New("stage failed")
	ErrNoOutput            = errors.New("stage produced no output")
	ErrNoInput             = errors.New("stage requires a reference image")
)

// BalanceError reports a pre-flight balance check that could not cover the
// estimated cost of the run.
type BalanceError struct {
	Required  int
	Available int
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("%s: required %d, available %d", ErrInsufficientBalance, e.Required, e.Available)
}

func (e *BalanceError) Unwrap() error { return ErrInsufficientBalance }

// StageError attaches a failure to the zero-based index of the stage that
// aborted the run.
type StageError struct {
	Stage int
	Kind  recipe.StageKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: stage %d (%s): %v", ErrStageFailed, e.Stage+1, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error { return []error{ErrStageFailed, e.Err} }

// MapHTTPStatus maps pipeline and recipe errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrStageFailed):
		return http.StatusBadGateway
	case errors.Is(err, recipe.ErrValidation),
		errors.Is(err, recipe.ErrEmptyRecipe),
		errors.Is(err, recipe.ErrInvalidKind),
		errors.Is(err, recipe.ErrInvalidStage),
		errors.Is(err, recipe.ErrUnknownTool),
		errors.Is(err, recipe.ErrUnknownAnalysis),
		errors.Is(err, recipe.ErrMultiOutputChain):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
