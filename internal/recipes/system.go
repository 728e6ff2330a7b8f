package recipes

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/palette/internal/pipeline"
	"github.com/JaimeStill/palette/pkg/pagination"
)

// System defines the public contract for recipe storage and execution.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Recipe], error)

	Find(ctx context.Context, id uuid.UUID) (*Recipe, error)
	FindByName(ctx context.Context, name, category string) (*Recipe, error)
	Create(ctx context.Context, cmd Command) (*Recipe, error)
	Update(ctx context.Context, id uuid.UUID, cmd Command) (*Recipe, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Estimate prices one run of a stored recipe on model, or on the
	// recipe's default model when model is empty.
	Estimate(ctx context.Context, id uuid.UUID, model string) (*Cost, error)

	// Execute runs a stored recipe. When a stage fails the partial result
	// is returned along with the error.
	Execute(ctx context.Context, id uuid.UUID, cmd ExecuteCommand) (*pipeline.Result, error)

	// ExecuteTemplate runs an unsaved pipe-separated template.
	ExecuteTemplate(ctx context.Context, cmd TemplateCommand) (*pipeline.Result, error)
}
