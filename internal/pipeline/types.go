package pipeline

import (
	"github.com/JaimeStill/palette/recipe"
)

// Status is the state of a run or of one of its stages.
type Status string

const (
	StatusReady     Status = "ready"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Request describes one run. References seed the reference chain for the
// first stage. Values are copied; the caller's map is never modified.
type Request struct {
	RunID        string
	UserID       string
	Stages       []recipe.Stage
	Values       recipe.Values
	References   []string
	Model        string
	AspectRatio  string
	OutputFormat string
	Seed         *int64
	MultiOutput  recipe.MultiOutputPolicy

	// FallbackAspectRatio applies when AspectRatio is empty and the first
	// reference cannot be probed.
	FallbackAspectRatio string
}

// Image is one produced asset. Stage is one-based.
type Image struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
	Stage  int    `json:"stage"`
}

// StageResult records what one stage did.
type StageResult struct {
	Stage     int               `json:"stage"`
	Kind      recipe.StageKind  `json:"kind"`
	Status    Status            `json:"status"`
	Prompt    string            `json:"prompt,omitempty"`
	Outputs   []string          `json:"outputs,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
	Cost      int               `json:"cost"`
	Error     string            `json:"error,omitempty"`
}

// Result is the outcome of a run. On failure it holds everything produced
// before the failing stage; FailedStage is one-based.
type Result struct {
	RunID            string        `json:"runId"`
	Status           Status        `json:"status"`
	Images           []Image       `json:"images"`
	Stages           []StageResult `json:"stages"`
	TotalCost        int           `json:"totalCost"`
	RemainingBalance int           `json:"remainingBalance"`
	Error            string        `json:"error,omitempty"`
	FailedStage      int           `json:"failedStage,omitempty"`
}

// Success reports whether every stage completed.
func (r *Result) Success() bool {
	return r.Status == StatusCompleted
}

// Event is a stage transition delivered to an Observer. Stage is one-based.
type Event struct {
	RunID  string
	Stage  int
	Total  int
	Kind   recipe.StageKind
	Status Status
	Cost   int
	Err    error
}

// StagePreview is the prompt and static references a stage would be sent
// with, without running anything.
type StagePreview struct {
	Stage      int              `json:"stage" yaml:"stage"`
	Kind       recipe.StageKind `json:"kind" yaml:"kind"`
	Prompt     string           `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	ToolID     string           `json:"toolId,omitempty" yaml:"toolId,omitempty"`
	AnalysisID string           `json:"analysisId,omitempty" yaml:"analysisId,omitempty"`
	References []string         `json:"references" yaml:"references"`
	Chained    bool             `json:"chained" yaml:"chained"`
}
