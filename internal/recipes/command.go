package recipes

import (
	"context"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/JaimeStill/palette/internal/assets"
	"github.com/JaimeStill/palette/recipe"
)

const (
	minNameLength   = 2
	maxNameLength   = 100
	defaultCategory = "general"
)

// Prober reads the dimensions of a reference image.
type Prober interface {
	Probe(ctx context.Context, src string) (*assets.ImageInfo, error)
}

// Draft is a Command that passed import validation.
type Draft struct {
	Command
	Prepared []recipe.Stage
	Policy   recipe.MultiOutputPolicy
}

var strict = bluemonday.StrictPolicy()

// sanitize strips markup and decodes the entities the policy escapes.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Prepare sanitizes cmd and checks it against the registry: name length,
// at least one well-formed stage, registered tools and analyses, and a
// multi-output policy that covers the recipe's chaining.
func Prepare(cmd Command, registry *recipe.Registry) (*Draft, error) {
	cmd.Name = sanitize(cmd.Name)
	cmd.Description = sanitize(cmd.Description)
	cmd.Note = sanitize(cmd.Note)
	cmd.Category = strings.ToLower(sanitize(cmd.Category))
	if cmd.Category == "" {
		cmd.Category = defaultCategory
	}

	if n := utf8.RuneCountInString(cmd.Name); n < minNameLength || n > maxNameLength {
		return nil, ErrInvalidName
	}

	policy, err := recipe.ParseMultiOutputPolicy(cmd.MultiOutput)
	if err != nil {
		return nil, err
	}

	stages, err := commandStages(cmd)
	if err != nil {
		return nil, err
	}

	if err := registry.CheckReferences(stages); err != nil {
		return nil, err
	}

	if err := recipe.CheckChaining(stages, registry.Tools, policy); err != nil {
		return nil, err
	}

	return &Draft{Command: cmd, Prepared: stages, Policy: policy}, nil
}

func commandStages(cmd Command) ([]recipe.Stage, error) {
	if len(cmd.Stages) == 0 {
		if strings.TrimSpace(cmd.Template) == "" {
			return nil, recipe.ErrEmptyRecipe
		}
		return recipe.Prepare(recipe.ParseTemplate(cmd.Template, uuid.NewString))
	}

	specs := make([]recipe.StageSpec, len(cmd.Stages))
	for i, sp := range cmd.Stages {
		if sp.ID == "" {
			sp.ID = uuid.NewString()
		}
		sp.Fields = nil
		specs[i] = sp
	}

	stages, err := recipe.FromSpecs(specs)
	if err != nil {
		return nil, err
	}

	for i := range stages {
		stages[i].Order = i
		for j := range stages[i].References {
			stages[i].References[j].Static = true
		}
	}
	return stages, nil
}

// probeReferences fills in the aspect ratio of static references that do
// not carry one. Probe failures leave the reference unchanged.
func (r *repo) probeReferences(ctx context.Context, stages []recipe.Stage) {
	if r.prober == nil {
		return
	}

	for i := range stages {
		for j, ref := range stages[i].References {
			if ref.AspectRatio != "" {
				continue
			}
			info, err := r.prober.Probe(ctx, ref.URL)
			if err != nil {
				r.logger.WarnContext(ctx, "reference probe failed", "url", ref.URL, "error", err)
				continue
			}
			stages[i].References[j].AspectRatio = info.AspectRatio
		}
	}
}
