package recipes

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/palette/internal/pipeline"
	"github.com/JaimeStill/palette/recipe"
)

// Recipe is a stored, named sequence of stages. Stage fields are derived
// from the templates on every load and are never persisted.
type Recipe struct {
	ID                   uuid.UUID                `json:"id"`
	Name                 string                   `json:"name"`
	Description          string                   `json:"description"`
	Category             string                   `json:"category"`
	Note                 string                   `json:"note"`
	Stages               []recipe.Stage           `json:"stages"`
	SuggestedModel       string                   `json:"suggestedModel,omitempty"`
	SuggestedAspectRatio string                   `json:"suggestedAspectRatio,omitempty"`
	SuggestedResolution  string                   `json:"suggestedResolution,omitempty"`
	MultiOutput          recipe.MultiOutputPolicy `json:"multiOutput,omitempty"`
	IsSystem             bool                     `json:"isSystem"`
	CreatedBy            string                   `json:"createdBy"`
	CreatedAt            time.Time                `json:"createdAt"`
	UpdatedAt            time.Time                `json:"updatedAt"`
}

// Command creates or replaces a recipe. Stages may be given explicitly or
// as a single pipe-separated Template; Stages wins when both are set.
type Command struct {
	Name                 string             `json:"name"`
	Description          string             `json:"description"`
	Category             string             `json:"category"`
	Note                 string             `json:"note"`
	Template             string             `json:"template,omitempty"`
	Stages               []recipe.StageSpec `json:"stages,omitempty"`
	SuggestedModel       string             `json:"suggestedModel,omitempty"`
	SuggestedAspectRatio string             `json:"suggestedAspectRatio,omitempty"`
	SuggestedResolution  string             `json:"suggestedResolution,omitempty"`
	MultiOutput          string             `json:"multiOutput,omitempty"`
	IsSystem             bool               `json:"isSystem,omitempty"`
	CreatedBy            string             `json:"-"`
}

// ExecuteCommand runs a stored recipe. Model and aspect ratio fall back to
// the recipe's suggestions, then to the service defaults.
type ExecuteCommand struct {
	FieldValues     recipe.Values `json:"fieldValues"`
	ReferenceImages []string      `json:"referenceImages"`
	Model           string        `json:"model,omitempty"`
	AspectRatio     string        `json:"aspectRatio,omitempty"`
	OutputFormat    string        `json:"outputFormat,omitempty"`
	Seed            *int64        `json:"seed,omitempty"`
	UserID          string        `json:"-"`
}

// TemplateCommand runs an unsaved template. The template is split on "|"
// into generation stages.
type TemplateCommand struct {
	Template        string        `json:"template"`
	Variables       recipe.Values `json:"variables"`
	Model           string        `json:"model,omitempty"`
	AspectRatio     string        `json:"aspectRatio,omitempty"`
	OutputFormat    string        `json:"outputFormat,omitempty"`
	ReferenceImages []string      `json:"referenceImages"`
	Seed            *int64        `json:"seed,omitempty"`
	UserID          string        `json:"-"`
}

// ParseRequest previews how a template splits into stages and fields.
type ParseRequest struct {
	Template string `json:"template"`
}

// ParseResult is the stages and form fields of a parsed template.
type ParseResult struct {
	Stages []recipe.Stage `json:"stages"`
	Fields []recipe.Field `json:"fields"`
}

// ValuesRequest carries field values for validation and prompt previews.
type ValuesRequest struct {
	FieldValues recipe.Values `json:"fieldValues"`
}

// Cost is the estimated price of one run.
type Cost struct {
	Model           string `json:"model"`
	ToolCost        int    `json:"toolCost"`
	GenerationCount int    `json:"generationCount"`
	Total           int    `json:"total"`
}

// RunResponse is the result of an execution as reported to clients.
// Stage numbers are one-based.
type RunResponse struct {
	Success          bool             `json:"success"`
	RunID            string           `json:"runId,omitempty"`
	Images           []pipeline.Image `json:"images"`
	TotalCost        int              `json:"totalCost"`
	RemainingBalance int              `json:"remainingBalance"`
	Error            string           `json:"error,omitempty"`
	FailedStage      int              `json:"failedStage,omitempty"`
	MissingFields    []string         `json:"missingFields,omitempty"`
}

// NewRunResponse reports a pipeline result and the error that ended it.
// A nil result describes a run rejected before any stage started.
func NewRunResponse(result *pipeline.Result, err error) RunResponse {
	resp := RunResponse{Images: []pipeline.Image{}}

	if result != nil {
		resp.Success = result.Success()
		resp.RunID = result.RunID
		resp.Images = result.Images
		resp.TotalCost = result.TotalCost
		resp.RemainingBalance = result.RemainingBalance
		resp.FailedStage = result.FailedStage
	}

	if err != nil {
		resp.Success = false
		resp.Error = err.Error()

		var verr *recipe.ValidationError
		if errors.As(err, &verr) {
			resp.MissingFields = verr.MissingFields
		}
	}

	return resp
}
