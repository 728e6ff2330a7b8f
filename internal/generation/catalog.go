package generation

import (
	"fmt"
	"maps"
	"slices"
)

// Provider names the backend family a model runs on.
type Provider string

const (
	ProviderPredictions Provider = "predictions"
	ProviderOpenAI      Provider = "openai"
)

// ModelDef describes one image model. Cost is in credits per generated
// image. ReferenceParam is the input key that carries reference images;
// models with MaxReferences 0 are text-to-image only.
type ModelDef struct {
	ID             string   `json:"id" toml:"id"`
	Name           string   `json:"name" toml:"name"`
	Provider       Provider `json:"provider" toml:"provider"`
	Endpoint       string   `json:"endpoint" toml:"endpoint"`
	Cost           int      `json:"cost" toml:"cost"`
	MaxReferences  int      `json:"maxReferences" toml:"max_references"`
	ReferenceParam string   `json:"-" toml:"reference_param"`
	Aliases        []string `json:"aliases,omitempty" toml:"aliases"`
}

// SupportsReferences reports whether the model accepts reference images.
func (m ModelDef) SupportsReferences() bool {
	return m.MaxReferences > 0
}

func DefaultModels() []ModelDef {
	return []ModelDef{
		{
			ID:             "nano-banana-2",
			Name:           "Nano Banana 2",
			Provider:       ProviderPredictions,
			Endpoint:       "google/nano-banana-2",
			Cost:           6,
			MaxReferences:  14,
			ReferenceParam: "image_input",
			Aliases:        []string{"nano-banana"},
		},
		{
			ID:             "nano-banana-pro",
			Name:           "Nano Banana Pro",
			Provider:       ProviderPredictions,
			Endpoint:       "google/nano-banana-pro",
			Cost:           25,
			MaxReferences:  14,
			ReferenceParam: "image_input",
		},
		{
			ID:       "z-image-turbo",
			Name:     "Z-Image Turbo",
			Provider: ProviderPredictions,
			Endpoint: "prunaai/z-image-turbo",
			Cost:     3,
		},
		{
			ID:             "seedream-5-lite",
			Name:           "Seedream 5 Lite",
			Provider:       ProviderPredictions,
			Endpoint:       "bytedance/seedream-5-lite",
			Cost:           4,
			MaxReferences:  14,
			ReferenceParam: "image_input",
		},
		{
			ID:       "qwen-image-fast",
			Name:     "Qwen Image Fast",
			Provider: ProviderPredictions,
			Endpoint: "prunaai/qwen-image-fast",
			Cost:     2,
		},
		{
			ID:       "dall-e-3",
			Name:     "DALL-E 3",
			Provider: ProviderOpenAI,
			Endpoint: "dall-e-3",
			Cost:     8,
		},
	}
}

// Catalog resolves model ids and aliases and prices generations.
type Catalog struct {
	models  map[string]ModelDef
	aliases map[string]string
}

// NewCatalog indexes models by id and alias.
func NewCatalog(models []ModelDef) *Catalog {
	c := &Catalog{
		models:  make(map[string]ModelDef, len(models)),
		aliases: make(map[string]string),
	}
	for _, m := range models {
		if m.Provider == "" {
			m.Provider = ProviderPredictions
		}
		c.models[m.ID] = m
		for _, a := range m.Aliases {
			c.aliases[a] = m.ID
		}
	}
	return c
}

// Model looks up a model by id or alias.
func (c *Catalog) Model(id string) (ModelDef, error) {
	if m, ok := c.models[id]; ok {
		return m, nil
	}
	if target, ok := c.aliases[id]; ok {
		return c.models[target], nil
	}
	return ModelDef{}, fmt.Errorf("%w: %s", ErrUnknownModel, id)
}

// ModelCost returns the per-image cost of a model.
func (c *Catalog) ModelCost(id string) (int, error) {
	m, err := c.Model(id)
	if err != nil {
		return 0, err
	}
	return m.Cost, nil
}

// List returns all models sorted by id.
func (c *Catalog) List() []ModelDef {
	out := make([]ModelDef, 0, len(c.models))
	for _, id := range slices.Sorted(maps.Keys(c.models)) {
		out = append(out, c.models[id])
	}
	return out
}
