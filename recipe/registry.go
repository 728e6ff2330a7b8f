package recipe

import (
	"fmt"
	"maps"
	"slices"
)

// OutputType describes how many images a tool returns.
type OutputType string

// Tool output types.
const (
	OutputSingle OutputType = "single"
	OutputMulti  OutputType = "multi"
)

// ToolDef is a registered fixed-function image transform. Endpoint names
// the backend model the tool runs on; Prompt is the fixed instruction sent
// with the input image, if the model takes one.
type ToolDef struct {
	ID          string     `json:"id" toml:"id" yaml:"id"`
	Name        string     `json:"name" toml:"name" yaml:"name"`
	Description string     `json:"description,omitempty" toml:"description" yaml:"description,omitempty"`
	Cost        int        `json:"cost" toml:"cost" yaml:"cost"`
	Endpoint    string     `json:"endpoint" toml:"endpoint" yaml:"endpoint"`
	Prompt      string     `json:"prompt,omitempty" toml:"prompt" yaml:"prompt,omitempty"`
	OutputType  OutputType `json:"outputType" toml:"output_type" yaml:"outputType"`
	OutputCount int        `json:"outputCount,omitempty" toml:"output_count" yaml:"outputCount,omitempty"`
}

// Multi reports whether the tool produces more than one image.
func (t ToolDef) Multi() bool {
	return t.OutputType == OutputMulti
}

// AnalysisDef is a registered image analysis. OutputVariables are the
// field names its result is merged under.
type AnalysisDef struct {
	ID              string   `json:"id" toml:"id" yaml:"id"`
	Name            string   `json:"name" toml:"name" yaml:"name"`
	Endpoint        string   `json:"endpoint" toml:"endpoint" yaml:"endpoint"`
	Instruction     string   `json:"instruction,omitempty" toml:"instruction" yaml:"instruction,omitempty"`
	OutputVariables []string `json:"outputVariables" toml:"output_variables" yaml:"outputVariables"`
}

// Registry holds the tools and analyses recipes may reference.
type Registry struct {
	Tools    map[string]ToolDef
	Analyses map[string]AnalysisDef
}

// NewRegistry indexes tool and analysis definitions by id.
func NewRegistry(tools []ToolDef, analyses []AnalysisDef) *Registry {
	r := &Registry{
		Tools:    make(map[string]ToolDef, len(tools)),
		Analyses: make(map[string]AnalysisDef, len(analyses)),
	}
	for _, t := range tools {
		if t.OutputType == "" {
			t.OutputType = OutputSingle
		}
		r.Tools[t.ID] = t
	}
	for _, a := range analyses {
		r.Analyses[a.ID] = a
	}
	return r
}

// DefaultRegistry returns the built-in tools and analyses.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultTools(), DefaultAnalyses())
}

func DefaultTools() []ToolDef {
	return []ToolDef{
		{
			ID:          "remove-background",
			Name:        "Remove Background",
			Description: "Cut the subject out onto a transparent background",
			Cost:        3,
			Endpoint:    "851-labs/background-remover",
			OutputType:  OutputSingle,
		},
		{
			ID:          "cinematic-grid",
			Name:        "Cinematic Grid",
			Description: "Render nine cinematic angles of the reference as a 3x3 grid",
			Cost:        20,
			Endpoint:    "google/nano-banana-pro",
			Prompt:      "Create a 3x3 grid of nine cinematic shots of the subject in the reference image: extreme wide, wide, medium wide, medium, medium close-up, close-up, extreme close-up, low angle, high angle. Keep the subject, wardrobe, and lighting consistent.",
			OutputType:  OutputMulti,
			OutputCount: 9,
		},
		{
			ID:          "upscale",
			Name:        "Upscale",
			Description: "Increase resolution 4x",
			Cost:        5,
			Endpoint:    "nightmareai/real-esrgan",
			OutputType:  OutputSingle,
		},
	}
}

func DefaultAnalyses() []AnalysisDef {
	return []AnalysisDef{
		{
			ID:              "style-analysis",
			Name:            "Style Analysis",
			Endpoint:        "gpt-4o-mini",
			Instruction:     "Name the visual style of this image in a few words and describe it in one sentence covering medium, palette, lighting, and texture.",
			OutputVariables: []string{"ANALYZED_STYLE_NAME", "ANALYZED_STYLE_DESCRIPTION"},
		},
		{
			ID:              "character-analysis",
			Name:            "Character Analysis",
			Endpoint:        "gpt-4o-mini",
			Instruction:     "Describe the main character in this image in one sentence: apparent age, build, hair, face, and clothing.",
			OutputVariables: []string{"ANALYZED_CHARACTER_DESCRIPTION"},
		},
	}
}

// Tool looks up a tool definition.
func (r *Registry) Tool(id string) (ToolDef, error) {
	t, ok := r.Tools[id]
	if !ok {
		return ToolDef{}, fmt.Errorf("%w: %s", ErrUnknownTool, id)
	}
	return t, nil
}

// Analysis looks up an analysis definition.
func (r *Registry) Analysis(id string) (AnalysisDef, error) {
	a, ok := r.Analyses[id]
	if !ok {
		return AnalysisDef{}, fmt.Errorf("%w: %s", ErrUnknownAnalysis, id)
	}
	return a, nil
}

// ToolList returns tool definitions sorted by id.
func (r *Registry) ToolList() []ToolDef {
	out := make([]ToolDef, 0, len(r.Tools))
	for _, id := range slices.Sorted(maps.Keys(r.Tools)) {
		out = append(out, r.Tools[id])
	}
	return out
}

// AnalysisList returns analysis definitions sorted by id.
func (r *Registry) AnalysisList() []AnalysisDef {
	out := make([]AnalysisDef, 0, len(r.Analyses))
	for _, id := range slices.Sorted(maps.Keys(r.Analyses)) {
		out = append(out, r.Analyses[id])
	}
	return out
}

// CheckReferences verifies that every tool and analysis stage names a
// registered definition.
func (r *Registry) CheckReferences(stages []Stage) error {
	for i, s := range stages {
		switch step := s.Step.(type) {
		case Tool:
			if _, err := r.Tool(step.ToolID); err != nil {
				return fmt.Errorf("stage %d: %w", i+1, err)
			}
		case Analysis:
			if _, err := r.Analysis(step.AnalysisID); err != nil {
				return fmt.Errorf("stage %d: %w", i+1, err)
			}
		}
	}
	return nil
}
