package pipeline

import (
	"context"
	"log/slog"

	"github.com/JaimeStill/palette/recipe"
)

// GenerationRequest is one call to an image model.
type GenerationRequest struct {
	Prompt       string
	References   []string
	Model        string
	AspectRatio  string
	OutputFormat string
	Seed         *int64
}

// Generator renders an image from a prompt and reference images and
// returns the URLs of the produced assets.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) ([]string, error)
}

// ToolRunner applies a registered tool to an input image.
type ToolRunner interface {
	RunTool(ctx context.Context, tool recipe.ToolDef, input string) ([]string, error)
}

// Analyzer extracts named variables from an input image.
type Analyzer interface {
	Analyze(ctx context.Context, analysis recipe.AnalysisDef, input string) (map[string]string, error)
}

// Ledger reads and debits a user's credit balance. Debit must be an atomic
// conditional decrement: it fails with ErrInsufficientBalance rather than
// overdrawing, and returns the remaining balance on success.
type Ledger interface {
	Balance(ctx context.Context, userID string) (int, error)
	Debit(ctx context.Context, userID string, amount int, memo string) (int, error)
}

// Pricer prices one generation on a model.
type Pricer interface {
	ModelCost(model string) (int, error)
}

// Assets copies stage outputs to durable storage and returns the URLs to
// report in their place.
type Assets interface {
	Persist(ctx context.Context, runID string, stage int, urls []string) ([]string, error)
}

// Prober reports the aspect ratio of a reference image.
type Prober interface {
	AspectRatio(ctx context.Context, url string) (string, error)
}

// Observer receives stage transitions. It is called synchronously from the
// run's goroutine.
type Observer func(Event)

// Runtime bundles the collaborators a run needs. Assets, Prober, and
// Observer are optional.
type Runtime struct {
	Generator Generator
	Tools     ToolRunner
	Analyzer  Analyzer
	Ledger    Ledger
	Pricer    Pricer
	Registry  *recipe.Registry
	Assets    Assets
	Prober    Prober
	Observer  Observer
	Logger    *slog.Logger

	// IntermediateAspectRatio, when set, replaces the requested aspect
	// ratio on every generation stage except the last one.
	IntermediateAspectRatio string
}

func (rt *Runtime) emit(e Event) {
	if rt.Observer != nil {
		rt.Observer(e)
	}
}
