package recipe

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
)

// StageKind selects how the executor dispatches a stage.
type StageKind string

// Stage kinds.
const (
	KindGeneration StageKind = "generation"
	KindTool       StageKind = "tool"
	KindAnalysis   StageKind = "analysis"
)

var kinds = []StageKind{KindGeneration, KindTool, KindAnalysis}

// ParseStageKind validates a stage kind. An empty string is a generation stage.
func ParseStageKind(s string) (StageKind, error) {
	if s == "" {
		return KindGeneration, nil
	}
	k := StageKind(s)
	if !slices.Contains(kinds, k) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// ReferenceImage is an image supplied to a stage. Static references are
// sent with their stage regardless of chaining.
type ReferenceImage struct {
	URL         string `json:"url" yaml:"url"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty" yaml:"aspectRatio,omitempty"`
	Static      bool   `json:"isStatic" yaml:"isStatic"`
}

// Step is the kind-specific body of a stage. Exactly one of Generation,
// Tool, or Analysis.
type Step interface {
	Kind() StageKind
	step()
}

// Generation renders a prompt from a template and calls the image model.
type Generation struct {
	Template string
	Fields   []Field
}

// Tool applies a registered fixed-function transform to the current reference.
type Tool struct {
	ToolID string
}

// Analysis extracts variables from the current reference image.
type Analysis struct {
	AnalysisID string
}

func (Generation) Kind() StageKind { return KindGeneration }
func (Tool) Kind() StageKind       { return KindTool }
func (Analysis) Kind() StageKind   { return KindAnalysis }

func (Generation) step() {}
func (Tool) step()       {}
func (Analysis) step()   {}

// Stage is one ordered step of a recipe.
type Stage struct {
	ID         string
	Order      int
	Step       Step
	References []ReferenceImage
}

// NewGenerationStage parses template using order as the stage index.
func NewGenerationStage(id string, order int, template string) Stage {
	return Stage{
		ID:    id,
		Order: order,
		Step: Generation{
			Template: template,
			Fields:   ParseStageTemplate(template, order),
		},
	}
}

// NewToolStage creates a tool stage.
func NewToolStage(id string, order int, toolID string) Stage {
	return Stage{ID: id, Order: order, Step: Tool{ToolID: toolID}}
}

// NewAnalysisStage creates an analysis stage.
func NewAnalysisStage(id string, order int, analysisID string) Stage {
	return Stage{ID: id, Order: order, Step: Analysis{AnalysisID: analysisID}}
}

// Kind reports the stage kind. A stage without a step is a generation stage.
func (s Stage) Kind() StageKind {
	if s.Step == nil {
		return KindGeneration
	}
	return s.Step.Kind()
}

// Template returns the generation template, or "" for tool and analysis stages.
func (s Stage) Template() string {
	if g, ok := s.Step.(Generation); ok {
		return g.Template
	}
	return ""
}

// Fields returns the parsed fields of a generation stage.
func (s Stage) Fields() []Field {
	if g, ok := s.Step.(Generation); ok {
		return g.Fields
	}
	return nil
}

// Prepare sorts stages by Order, checks kind invariants, and re-derives
// generation fields using each stage's position as its index.
func Prepare(stages []Stage) ([]Stage, error) {
	if len(stages) == 0 {
		return nil, ErrEmptyRecipe
	}

	out := slices.Clone(stages)
	slices.SortStableFunc(out, func(a, b Stage) int {
		return cmp.Compare(a.Order, b.Order)
	})

	for i, s := range out {
		switch step := s.Step.(type) {
		case Generation:
			if step.Template == "" {
				return nil, fmt.Errorf("%w: stage %d: generation stages require a template", ErrInvalidStage, i+1)
			}
			step.Fields = ParseStageTemplate(step.Template, i)
			out[i].Step = step
		case Tool:
			if step.ToolID == "" {
				return nil, fmt.Errorf("%w: stage %d: tool stages require a toolId", ErrInvalidStage, i+1)
			}
		case Analysis:
			if step.AnalysisID == "" {
				return nil, fmt.Errorf("%w: stage %d: analysis stages require an analysisId", ErrInvalidStage, i+1)
			}
		default:
			return nil, fmt.Errorf("%w: stage %d has no step", ErrInvalidStage, i+1)
		}
	}

	return out, nil
}

// StageSpec is the flat wire form of a Stage used for JSON, YAML, and
// database storage. Fields are output-only and ignored on decode.
type StageSpec struct {
	ID              string           `json:"id" yaml:"id,omitempty"`
	Order           int              `json:"order" yaml:"order"`
	Type            string           `json:"type" yaml:"type,omitempty"`
	Template        string           `json:"template" yaml:"template,omitempty"`
	ToolID          string           `json:"toolId,omitempty" yaml:"toolId,omitempty"`
	AnalysisID      string           `json:"analysisId,omitempty" yaml:"analysisId,omitempty"`
	ReferenceImages []ReferenceImage `json:"referenceImages" yaml:"referenceImages,omitempty"`
	Fields          []Field          `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Spec converts a stage to its wire form.
func (s Stage) Spec() StageSpec {
	spec := StageSpec{
		ID:              s.ID,
		Order:           s.Order,
		Type:            string(s.Kind()),
		ReferenceImages: s.References,
	}
	switch step := s.Step.(type) {
	case Generation:
		spec.Template = step.Template
		spec.Fields = step.Fields
	case Tool:
		spec.ToolID = step.ToolID
	case Analysis:
		spec.AnalysisID = step.AnalysisID
	}
	if spec.ReferenceImages == nil {
		spec.ReferenceImages = []ReferenceImage{}
	}
	return spec
}

// Stage converts the wire form into a Stage, rejecting combinations that
// violate the kind invariants.
func (sp StageSpec) Stage() (Stage, error) {
	kind, err := ParseStageKind(sp.Type)
	if err != nil {
		return Stage{}, err
	}

	var s Stage
	switch kind {
	case KindGeneration:
		if sp.Template == "" {
			return Stage{}, fmt.Errorf("%w: generation stages require a template", ErrInvalidStage)
		}
		s = NewGenerationStage(sp.ID, sp.Order, sp.Template)
	case KindTool:
		if sp.ToolID == "" {
			return Stage{}, fmt.Errorf("%w: tool stages require a toolId", ErrInvalidStage)
		}
		if sp.Template != "" {
			return Stage{}, fmt.Errorf("%w: tool stages must not carry a template", ErrInvalidStage)
		}
		s = NewToolStage(sp.ID, sp.Order, sp.ToolID)
	case KindAnalysis:
		if sp.AnalysisID == "" {
			return Stage{}, fmt.Errorf("%w: analysis stages require an analysisId", ErrInvalidStage)
		}
		if sp.Template != "" {
			return Stage{}, fmt.Errorf("%w: analysis stages must not carry a template", ErrInvalidStage)
		}
		s = NewAnalysisStage(sp.ID, sp.Order, sp.AnalysisID)
	}

	s.References = sp.ReferenceImages
	return s, nil
}

// MarshalJSON encodes the stage in its flat wire form.
func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Spec())
}

// UnmarshalJSON decodes the flat wire form and re-parses the template.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var spec StageSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	stage, err := spec.Stage()
	if err != nil {
		return err
	}
	*s = stage
	return nil
}

// Specs converts stages to their wire form.
func Specs(stages []Stage) []StageSpec {
	out := make([]StageSpec, len(stages))
	for i, s := range stages {
		out[i] = s.Spec()
	}
	return out
}

// FromSpecs converts wire-form stages and prepares them for execution.
func FromSpecs(specs []StageSpec) ([]Stage, error) {
	stages := make([]Stage, 0, len(specs))
	for i, sp := range specs {
		s, err := sp.Stage()
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i+1, err)
		}
		stages = append(stages, s)
	}
	return Prepare(stages)
}
