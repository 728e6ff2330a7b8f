package recipes

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JaimeStill/palette/pkg/query"
	"github.com/JaimeStill/palette/pkg/repository"
	"github.com/JaimeStill/palette/recipe"
)

var projection = query.
	NewProjectionMap("public", "recipes", "r").
	Project("id", "id").
	Project("name", "name").
	Project("description", "description").
	Project("category", "category").
	Project("note", "note").
	Project("stages", "stages").
	Project("suggested_model", "suggestedModel").
	Project("suggested_aspect_ratio", "suggestedAspectRatio").
	Project("suggested_resolution", "suggestedResolution").
	Project("multi_output", "multiOutput").
	Project("is_system", "isSystem").
	Project("created_by", "createdBy").
	Project("created_at", "createdAt").
	Project("updated_at", "updatedAt")

const returning = `RETURNING id, name, description, category, note, stages,
	suggested_model, suggested_aspect_ratio, suggested_resolution,
	multi_output, is_system, created_by, created_at, updated_at`

var defaultSort = query.SortField{Field: "name"}

// Filters narrows recipe listings. Nil fields are ignored. Category
// matches case-insensitively; Name is a substring match.
type Filters struct {
	Category *string `json:"category,omitempty"`
	Name     *string `json:"name,omitempty"`
	IsSystem *bool   `json:"isSystem,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEqualsFold("category", f.Category).
		WhereContains("name", f.Name).
		WhereEquals("isSystem", f.IsSystem)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if c := values.Get("category"); c != "" {
		f.Category = &c
	}

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	if s := values.Get("isSystem"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			f.IsSystem = &v
		}
	}

	return f
}

func scanRecipe(s repository.Scanner) (Recipe, error) {
	var (
		rec    Recipe
		stages []byte
		policy string
	)

	err := s.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Description,
		&rec.Category,
		&rec.Note,
		&stages,
		&rec.SuggestedModel,
		&rec.SuggestedAspectRatio,
		&rec.SuggestedResolution,
		&policy,
		&rec.IsSystem,
		&rec.CreatedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return rec, err
	}

	var specs []recipe.StageSpec
	if err := json.Unmarshal(stages, &specs); err != nil {
		return rec, fmt.Errorf("decode stages of recipe %s: %w", rec.ID, err)
	}

	if rec.Stages, err = recipe.FromSpecs(specs); err != nil {
		return rec, fmt.Errorf("load stages of recipe %s: %w", rec.ID, err)
	}

	rec.MultiOutput = recipe.MultiOutputPolicy(policy)
	return rec, nil
}

// encodeStages stores stages in wire form without derived fields.
func encodeStages(stages []recipe.Stage) ([]byte, error) {
	specs := recipe.Specs(stages)
	for i := range specs {
		specs[i].Fields = nil
	}
	return json.Marshal(specs)
}
