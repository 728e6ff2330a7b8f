package config

import (
	"fmt"
	"regexp"

	"github.com/JaimeStill/palette/recipe"
)

var variableName = regexp.MustCompile(`^[A-Z_0-9]+$`)

// RegistryConfig declares tools and analyses in addition to the built-in
// ones. An entry whose id matches a built-in replaces it.
type RegistryConfig struct {
	Tools    []recipe.ToolDef     `toml:"tools"`
	Analyses []recipe.AnalysisDef `toml:"analyses"`
}

// Registry builds the recipe registry from the built-ins and the
// configured entries.
func (c *RegistryConfig) Registry() *recipe.Registry {
	return recipe.NewRegistry(c.Tools, c.Analyses)
}

// Finalize folds the built-in definitions in and validates the result.
func (c *RegistryConfig) Finalize() error {
	c.Tools = mergeByID(recipe.DefaultTools(), c.Tools, func(t recipe.ToolDef) string { return t.ID })
	c.Analyses = mergeByID(recipe.DefaultAnalyses(), c.Analyses, func(a recipe.AnalysisDef) string { return a.ID })
	return c.validate()
}

// Merge appends overlay entries; later entries win by id at Finalize.
func (c *RegistryConfig) Merge(overlay *RegistryConfig) {
	c.Tools = append(c.Tools, overlay.Tools...)
	c.Analyses = append(c.Analyses, overlay.Analyses...)
}

func (c *RegistryConfig) validate() error {
	for _, t := range c.Tools {
		if t.ID == "" || t.Endpoint == "" {
			return fmt.Errorf("tool %q: id and endpoint required", t.ID)
		}
		if t.Cost < 0 {
			return fmt.Errorf("tool %s: cost must not be negative", t.ID)
		}
		switch t.OutputType {
		case "", recipe.OutputSingle:
		case recipe.OutputMulti:
			if t.OutputCount < 2 {
				return fmt.Errorf("tool %s: multi output requires output_count of at least 2", t.ID)
			}
		default:
			return fmt.Errorf("tool %s: output_type must be single or multi", t.ID)
		}
	}

	for _, a := range c.Analyses {
		if a.ID == "" || a.Endpoint == "" {
			return fmt.Errorf("analysis %q: id and endpoint required", a.ID)
		}
		if len(a.OutputVariables) == 0 {
			return fmt.Errorf("analysis %s: output_variables required", a.ID)
		}
		for _, v := range a.OutputVariables {
			if !variableName.MatchString(v) {
				return fmt.Errorf("analysis %s: invalid output variable %q", a.ID, v)
			}
		}
	}
	return nil
}

// mergeByID keeps first-seen order; a later entry with the same id
// replaces the earlier one in place.
func mergeByID[T any](base, extra []T, id func(T) string) []T {
	out := make([]T, 0, len(base)+len(extra))
	index := make(map[string]int, len(base)+len(extra))

	for _, item := range append(base, extra...) {
		if i, ok := index[id(item)]; ok {
			out[i] = item
			continue
		}
		index[id(item)] = len(out)
		out = append(out, item)
	}
	return out
}
