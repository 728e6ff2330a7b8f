package recipes

import (
	"cmp"
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/palette/internal/pipeline"
	"github.com/JaimeStill/palette/recipe"
)

func (r *repo) Estimate(ctx context.Context, id uuid.UUID, model string) (*Cost, error) {
	rec, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	model = cmp.Or(model, rec.SuggestedModel, r.defaults.Model)
	total, err := pipeline.Estimate(r.rt, rec.Stages, model)
	if err != nil {
		return nil, err
	}

	return &Cost{
		Model:           model,
		ToolCost:        recipe.ToolCost(rec.Stages, r.rt.Registry.Tools),
		GenerationCount: recipe.GenerationCount(rec.Stages),
		Total:           total,
	}, nil
}

func (r *repo) Execute(ctx context.Context, id uuid.UUID, cmd ExecuteCommand) (*pipeline.Result, error) {
	rec, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	req := pipeline.Request{
		RunID:        uuid.NewString(),
		UserID:       cmd.UserID,
		Stages:       rec.Stages,
		Values:       cmd.FieldValues,
		References:   cmd.ReferenceImages,
		Model:        cmp.Or(cmd.Model, rec.SuggestedModel, r.defaults.Model),
		AspectRatio:  cmp.Or(cmd.AspectRatio, rec.SuggestedAspectRatio),
		OutputFormat: cmp.Or(cmd.OutputFormat, r.defaults.OutputFormat),
		Seed:         cmd.Seed,
		MultiOutput:  rec.MultiOutput,

		FallbackAspectRatio: cmp.Or(staticRatio(rec.Stages), r.defaults.AspectRatio),
	}

	r.logger.InfoContext(ctx, "executing recipe",
		"recipe_id", rec.ID,
		"name", rec.Name,
		"run_id", req.RunID,
		"model", req.Model,
	)

	return r.run(ctx, req)
}

func (r *repo) ExecuteTemplate(ctx context.Context, cmd TemplateCommand) (*pipeline.Result, error) {
	if strings.TrimSpace(cmd.Template) == "" {
		return nil, ErrMissingTemplate
	}

	stages := recipe.ParseTemplate(cmd.Template, uuid.NewString)

	req := pipeline.Request{
		RunID:        uuid.NewString(),
		UserID:       cmd.UserID,
		Stages:       stages,
		Values:       cmd.Variables,
		References:   cmd.ReferenceImages,
		Model:        cmp.Or(cmd.Model, r.defaults.Model),
		AspectRatio:  cmd.AspectRatio,
		OutputFormat: cmp.Or(cmd.OutputFormat, r.defaults.OutputFormat),
		Seed:         cmd.Seed,

		FallbackAspectRatio: r.defaults.AspectRatio,
	}

	r.logger.InfoContext(ctx, "executing template",
		"run_id", req.RunID,
		"stages", len(stages),
		"model", req.Model,
	)

	return r.run(ctx, req)
}

func (r *repo) run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	result, err := pipeline.Execute(ctx, r.rt, req)
	if err != nil && result == nil {
		r.logger.WarnContext(ctx, "run rejected", "run_id", req.RunID, "error", err)
	}
	return result, err
}

// staticRatio returns the ratio of the first static reference that already
// carries one, or "".
func staticRatio(stages []recipe.Stage) string {
	for _, s := range stages {
		for _, ref := range s.References {
			if ref.AspectRatio != "" {
				return ref.AspectRatio
			}
		}
	}
	return ""
}
