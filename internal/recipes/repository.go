package recipes

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/palette/internal/pipeline"
	"github.com/JaimeStill/palette/pkg/pagination"
	"github.com/JaimeStill/palette/pkg/query"
	"github.com/JaimeStill/palette/pkg/repository"
)

// Defaults are the request values used when neither the caller nor the
// recipe supplies one.
type Defaults struct {
	Model        string
	AspectRatio  string
	OutputFormat string
}

type repo struct {
	db         *sql.DB
	rt         *pipeline.Runtime
	defaults   Defaults
	prober     Prober
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a recipe repository implementing the System interface. A
// nil prober skips aspect-ratio detection of reference images.
func New(
	db *sql.DB,
	rt *pipeline.Runtime,
	defaults Defaults,
	prober Prober,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		rt:         rt,
		defaults:   defaults,
		prober:     prober,
		logger:     logger.With("system", "recipes"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.rt.Registry, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Recipe], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "name", "description")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count recipes: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	recipes, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRecipe)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}

	result := pagination.NewPageResult(recipes, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Recipe, error) {
	q, args := query.NewBuilder(projection).BuildSingle("id", id)

	rec, err := repository.QueryOne(ctx, r.db, q, args, scanRecipe)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

func (r *repo) FindByName(ctx context.Context, name, category string) (*Recipe, error) {
	qb := query.NewBuilder(projection, defaultSort).WhereEqualsFold("name", &name)
	if category != "" {
		qb.WhereEqualsFold("category", &category)
	}

	q, args := qb.BuildFirst()
	rec, err := repository.QueryOne(ctx, r.db, q, args, scanRecipe)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

func (r *repo) Create(ctx context.Context, cmd Command) (*Recipe, error) {
	d, err := Prepare(cmd, r.rt.Registry)
	if err != nil {
		return nil, err
	}
	r.probeReferences(ctx, d.Prepared)

	stages, err := encodeStages(d.Prepared)
	if err != nil {
		return nil, fmt.Errorf("encode stages: %w", err)
	}

	q := `
		INSERT INTO recipes(
			name, description, category, note, stages,
			suggested_model, suggested_aspect_ratio, suggested_resolution,
			multi_output, is_system, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		` + returning

	args := []any{
		d.Name, d.Description, d.Category, d.Note, stages,
		d.SuggestedModel, d.SuggestedAspectRatio, d.SuggestedResolution,
		string(d.Policy), d.IsSystem, d.CreatedBy,
	}

	rec, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Recipe, error) {
		return repository.QueryOne(ctx, tx, q, args, scanRecipe)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.InfoContext(ctx, "recipe created", "id", rec.ID, "name", rec.Name, "stages", len(rec.Stages))
	return &rec, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd Command) (*Recipe, error) {
	d, err := Prepare(cmd, r.rt.Registry)
	if err != nil {
		return nil, err
	}
	r.probeReferences(ctx, d.Prepared)

	stages, err := encodeStages(d.Prepared)
	if err != nil {
		return nil, fmt.Errorf("encode stages: %w", err)
	}

	q := `
		UPDATE recipes
		SET name = $1, description = $2, category = $3, note = $4, stages = $5,
			suggested_model = $6, suggested_aspect_ratio = $7, suggested_resolution = $8,
			multi_output = $9, updated_at = now()
		WHERE id = $10
		` + returning

	args := []any{
		d.Name, d.Description, d.Category, d.Note, stages,
		d.SuggestedModel, d.SuggestedAspectRatio, d.SuggestedResolution,
		string(d.Policy), id,
	}

	rec, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Recipe, error) {
		return repository.QueryOne(ctx, tx, q, args, scanRecipe)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.InfoContext(ctx, "recipe updated", "id", rec.ID, "name", rec.Name)
	return &rec, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM recipes WHERE id = $1", id)
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.InfoContext(ctx, "recipe deleted", "id", id)
	return nil
}
