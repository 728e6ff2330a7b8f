package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/palette/recipe"
)

// recipeFile is the on-disk recipe form. Either Template or Stages is set.
// JSON files decode through the same path.
type recipeFile struct {
	Name        string             `yaml:"name"`
	Template    string             `yaml:"template,omitempty"`
	Stages      []recipe.StageSpec `yaml:"stages,omitempty"`
	MultiOutput string             `yaml:"multiOutput,omitempty"`
	Values      recipe.Values      `yaml:"values,omitempty"`
}

// registryFile adds to or overrides the built-in tools and analyses.
type registryFile struct {
	Tools    []recipe.ToolDef     `yaml:"tools"`
	Analyses []recipe.AnalysisDef `yaml:"analyses"`
}

type loaded struct {
	file   recipeFile
	stages []recipe.Stage
	policy recipe.MultiOutputPolicy
}

func loadRecipe(path string) (*loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}

	var f recipeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse recipe %s: %w", path, err)
	}

	policy, err := recipe.ParseMultiOutputPolicy(f.MultiOutput)
	if err != nil {
		return nil, err
	}

	var stages []recipe.Stage
	switch {
	case strings.TrimSpace(f.Template) != "":
		stages, err = recipe.Prepare(recipe.ParseTemplate(f.Template, recipe.IndexIDs()))
	case len(f.Stages) > 0:
		stages, err = recipe.FromSpecs(f.Stages)
	default:
		err = recipe.ErrEmptyRecipe
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &loaded{file: f, stages: stages, policy: policy}, nil
}

func loadRegistry(path string) (*recipe.Registry, error) {
	if path == "" {
		return recipe.DefaultRegistry(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}

	reg := recipe.DefaultRegistry()
	extra := recipe.NewRegistry(f.Tools, f.Analyses)
	for id, t := range extra.Tools {
		reg.Tools[id] = t
	}
	for id, a := range extra.Analyses {
		reg.Analyses[id] = a
	}
	return reg, nil
}

// parseSets turns repeated KEY=value flags into values layered over base.
func parseSets(base recipe.Values, sets []string) (recipe.Values, error) {
	values := base.Clone()
	for _, s := range sets {
		key, val, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --set %q: want KEY=value", s)
		}
		values[strings.TrimSpace(key)] = val
	}
	return values, nil
}
