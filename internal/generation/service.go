package generation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/palette/internal/pipeline"
	"github.com/JaimeStill/palette/pkg/remote"
	"github.com/JaimeStill/palette/recipe"
)

// Service routes generation, tool, and analysis calls to the configured
// backends. It implements pipeline.Generator, pipeline.ToolRunner,
// pipeline.Analyzer, and pipeline.Pricer.
type Service struct {
	catalog      *Catalog
	predictions  *PredictionClient
	openai       *OpenAIClient
	allowPrivate bool
	logger       *slog.Logger
}

// New creates a Service from cfg. A nil httpClient uses per-client defaults.
func New(cfg *Config, httpClient *http.Client, logger *slog.Logger) *Service {
	logger = logger.With("system", "generation")
	return &Service{
		catalog:      NewCatalog(cfg.Models),
		predictions:  NewPredictionClient(cfg, httpClient, logger),
		openai:       NewOpenAIClient(cfg, httpClient, logger),
		allowPrivate: cfg.AllowPrivateReferences,
		logger:       logger,
	}
}

// Catalog returns the model catalog.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// ModelCost prices one generation on model.
func (s *Service) ModelCost(model string) (int, error) {
	return s.catalog.ModelCost(model)
}

// Generate renders one stage. References beyond the model's limit are
// dropped; text-to-image models receive none.
func (s *Service) Generate(ctx context.Context, req pipeline.GenerationRequest) ([]string, error) {
	m, err := s.catalog.Model(req.Model)
	if err != nil {
		return nil, err
	}

	refs := req.References
	for _, ref := range refs {
		if err := s.checkReference(ref); err != nil {
			return nil, err
		}
	}
	if len(refs) > m.MaxReferences {
		s.logger.WarnContext(ctx, "dropping references beyond model limit",
			"model", m.ID,
			"given", len(refs),
			"limit", m.MaxReferences,
		)
		refs = refs[:m.MaxReferences]
	}

	switch m.Provider {
	case ProviderPredictions:
		return s.predictions.Run(ctx, m.Endpoint, predictionInput(m, req, refs))
	case ProviderOpenAI:
		return s.openai.CreateImage(ctx, m.Endpoint, req.Prompt, req.AspectRatio)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, m.Provider)
	}
}

// RunTool runs a registered tool on the predictions backend.
func (s *Service) RunTool(ctx context.Context, tool recipe.ToolDef, input string) ([]string, error) {
	if err := s.checkReference(input); err != nil {
		return nil, err
	}

	in := map[string]any{"image": input}
	if tool.Prompt != "" {
		in["prompt"] = tool.Prompt
		in["image_input"] = []string{input}
	}

	urls, err := s.predictions.Run(ctx, tool.Endpoint, in)
	if err != nil {
		return nil, err
	}

	if tool.Multi() && tool.OutputCount > 0 && len(urls) != tool.OutputCount {
		s.logger.WarnContext(ctx, "tool output count differs from registration",
			"tool", tool.ID,
			"want", tool.OutputCount,
			"got", len(urls),
		)
	}
	return urls, nil
}

// Analyze runs a registered analysis on the vision model named by its
// endpoint.
func (s *Service) Analyze(ctx context.Context, analysis recipe.AnalysisDef, input string) (map[string]string, error) {
	if err := s.checkReference(input); err != nil {
		return nil, err
	}
	return s.openai.Analyze(ctx, analysis.Endpoint, analysis.Instruction, analysis.OutputVariables, input)
}

func predictionInput(m ModelDef, req pipeline.GenerationRequest, refs []string) map[string]any {
	in := map[string]any{"prompt": req.Prompt}

	if req.AspectRatio != "" {
		in["aspect_ratio"] = req.AspectRatio
	}
	if req.OutputFormat != "" {
		in["output_format"] = req.OutputFormat
	}
	if req.Seed != nil {
		in["seed"] = *req.Seed
	}
	if len(refs) > 0 && m.ReferenceParam != "" {
		in[m.ReferenceParam] = refs
	}

	return in
}

func (s *Service) checkReference(ref string) error {
	if s.allowPrivate {
		return nil
	}
	return CheckPublicURL(ref)
}

// CheckPublicURL rejects references a remote backend cannot fetch: data
// URIs, non-HTTP schemes, and loopback or private hosts.
func CheckPublicURL(ref string) error {
	if err := remote.CheckPublic(ref); err != nil {
		return fmt.Errorf("%w: %w", ErrPrivateReference, err)
	}
	return nil
}
