// Package generation adapts image backends to the pipeline: a model
// catalog that prices generations, a client for prediction-style model
// APIs, and an OpenAI adapter for image creation and vision analysis.
package generation

import "errors"

var (
	ErrUnknownModel        = errors.New("unknown model")
	ErrNotConfigured       = errors.New("provider not configured")
	ErrPredictionFailed    = errors.New("prediction failed")
	ErrNoOutput            = errors.New("model returned no output")
	ErrPrivateReference    = errors.New("reference image is not publicly reachable")
	ErrInvalidAnalysis     = errors.New("analysis response is not a JSON object")
	ErrUnsupportedProvider = errors.New("unsupported provider")
)
