package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/palette/recipe"
)

// Plan prepares stages and checks everything that can be checked without
// external calls: kind invariants, registry references, chaining under the
// multi-output policy, and required fields.
func Plan(rt *Runtime, req Request) ([]recipe.Stage, error) {
	stages, err := recipe.Prepare(req.Stages)
	if err != nil {
		return nil, err
	}

	if err := rt.Registry.CheckReferences(stages); err != nil {
		return nil, err
	}

	if err := recipe.CheckChaining(stages, rt.Registry.Tools, req.MultiOutput); err != nil {
		return nil, err
	}

	deferred := rt.Registry.DeferredFields(stages)
	if err := recipe.ValidateDeferred(stages, req.Values, deferred).Err(); err != nil {
		return nil, err
	}

	return stages, nil
}

// Estimate returns the cost of running stages on model: registered tool
// costs plus one model charge per generation stage.
func Estimate(rt *Runtime, stages []recipe.Stage, model string) (int, error) {
	total := recipe.ToolCost(stages, rt.Registry.Tools)

	if n := recipe.GenerationCount(stages); n > 0 {
		per, err := rt.Pricer.ModelCost(model)
		if err != nil {
			return 0, err
		}
		total += n * per
	}

	return total, nil
}

// Preview builds every stage's prompt and static references without
// calling any backend. Values are not checked.
func Preview(stages []recipe.Stage, values recipe.Values) []StagePreview {
	prompts := recipe.BuildPrompts(stages, values)
	out := make([]StagePreview, len(stages))

	for i, s := range stages {
		p := StagePreview{
			Stage:      i + 1,
			Kind:       s.Kind(),
			Prompt:     prompts[i],
			References: staticRefs(s),
			Chained:    i > 0,
		}
		switch step := s.Step.(type) {
		case recipe.Tool:
			p.ToolID = step.ToolID
		case recipe.Analysis:
			p.AnalysisID = step.AnalysisID
		}
		out[i] = p
	}

	return out
}

// Execute runs a recipe. Validation, chaining, and balance failures return
// before any backend is called. Stages then run strictly in order; each
// successful stage is debited before the next begins. When a stage fails
// the run stops and the partial Result is returned with a *StageError.
func Execute(ctx context.Context, rt *Runtime, req Request) (*Result, error) {
	stages, err := Plan(rt, req)
	if err != nil {
		return nil, err
	}

	estimate, err := Estimate(rt, stages, req.Model)
	if err != nil {
		return nil, err
	}

	balance, err := rt.Ledger.Balance(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}

	if balance < estimate {
		return nil, &BalanceError{Required: estimate, Available: balance}
	}

	req.AspectRatio = aspectRatio(ctx, rt, req)

	r := &run{
		rt:      rt,
		req:     req,
		stages:  stages,
		unique:  recipe.UniqueFields(stages),
		values:  req.Values.Clone(),
		chain:   req.References,
		lastGen: lastGeneration(stages),
		result: &Result{
			RunID:            req.RunID,
			Status:           StatusRunning,
			Images:           []Image{},
			Stages:           make([]StageResult, 0, len(stages)),
			RemainingBalance: balance,
		},
	}

	rt.Logger.InfoContext(ctx, "run started",
		"run_id", req.RunID,
		"stages", len(stages),
		"estimate", estimate,
		"balance", balance,
	)

	for i, s := range stages {
		if err := r.stage(ctx, i, s); err != nil {
			r.result.Status = StatusFailed
			r.result.Error = err.Error()
			r.result.FailedStage = i + 1
			return r.result, err
		}
	}

	r.result.Status = StatusCompleted

	rt.Logger.InfoContext(ctx, "run completed",
		"run_id", req.RunID,
		"images", len(r.result.Images),
		"total_cost", r.result.TotalCost,
	)

	return r.result, nil
}

// run is the mutable state of one execution.
type run struct {
	rt      *Runtime
	req     Request
	stages  []recipe.Stage
	unique  []recipe.Field
	values  recipe.Values
	chain   []string
	lastGen int
	result  *Result
}

type outcome struct {
	prompt    string
	outputs   []string
	variables map[string]string
	cost      int
}

func (r *run) stage(ctx context.Context, i int, s recipe.Stage) error {
	kind := s.Kind()
	logger := r.rt.Logger.With("run_id", r.req.RunID, "stage", i+1, "kind", kind)

	r.rt.emit(Event{RunID: r.req.RunID, Stage: i + 1, Total: len(r.stages), Kind: kind, Status: StatusRunning})
	logger.InfoContext(ctx, "stage started")

	out, err := r.dispatch(ctx, i, s)
	if err == nil {
		err = r.debit(ctx, i, kind, out.cost)
	}

	if err != nil {
		serr := &StageError{Stage: i, Kind: kind, Err: err}
		r.result.Stages = append(r.result.Stages, StageResult{
			Stage:  i + 1,
			Kind:   kind,
			Status: StatusFailed,
			Prompt: out.prompt,
			Error:  err.Error(),
		})
		r.rt.emit(Event{RunID: r.req.RunID, Stage: i + 1, Total: len(r.stages), Kind: kind, Status: StatusFailed, Err: serr})
		logger.ErrorContext(ctx, "stage failed", "error", err)
		return serr
	}

	if kind != recipe.KindAnalysis {
		r.chain = out.outputs
		if kind == recipe.KindTool {
			r.chain = r.req.MultiOutput.Thread(out.outputs)
		}
		r.record(ctx, i, out)
	}

	r.result.TotalCost += out.cost
	r.result.Stages = append(r.result.Stages, StageResult{
		Stage:     i + 1,
		Kind:      kind,
		Status:    StatusCompleted,
		Prompt:    out.prompt,
		Outputs:   out.outputs,
		Variables: out.variables,
		Cost:      out.cost,
	})

	r.rt.emit(Event{RunID: r.req.RunID, Stage: i + 1, Total: len(r.stages), Kind: kind, Status: StatusCompleted, Cost: out.cost})
	logger.InfoContext(ctx, "stage completed", "cost", out.cost, "outputs", len(out.outputs))

	return nil
}

func (r *run) dispatch(ctx context.Context, i int, s recipe.Stage) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}

	switch step := s.Step.(type) {
	case recipe.Generation:
		return r.generate(ctx, i, s, step)
	case recipe.Tool:
		return r.tool(ctx, step)
	case recipe.Analysis:
		return r.analyze(ctx, step)
	default:
		return outcome{}, fmt.Errorf("%w: unsupported step %T", recipe.ErrInvalidStage, s.Step)
	}
}

func (r *run) generate(ctx context.Context, i int, s recipe.Stage, g recipe.Generation) (outcome, error) {
	prompt := recipe.BuildStagePrompt(g.Template, g.Fields, r.values, r.unique)
	out := outcome{prompt: prompt}

	refs := make([]string, 0, len(r.chain)+len(s.References))
	refs = append(refs, r.chain...)
	refs = append(refs, staticRefs(s)...)

	aspect := r.req.AspectRatio
	if r.rt.IntermediateAspectRatio != "" && i != r.lastGen {
		aspect = r.rt.IntermediateAspectRatio
	}

	cost, err := r.rt.Pricer.ModelCost(r.req.Model)
	if err != nil {
		return out, err
	}

	urls, err := r.rt.Generator.Generate(ctx, GenerationRequest{
		Prompt:       prompt,
		References:   refs,
		Model:        r.req.Model,
		AspectRatio:  aspect,
		OutputFormat: r.req.OutputFormat,
		Seed:         r.req.Seed,
	})
	if err != nil {
		return out, err
	}
	if len(urls) == 0 {
		return out, ErrNoOutput
	}

	out.outputs = urls
	out.cost = cost
	return out, nil
}

func (r *run) tool(ctx context.Context, step recipe.Tool) (outcome, error) {
	def, err := r.rt.Registry.Tool(step.ToolID)
	if err != nil {
		return outcome{}, err
	}

	if len(r.chain) == 0 {
		return outcome{}, fmt.Errorf("%w: tool %s", ErrNoInput, def.ID)
	}

	urls, err := r.rt.Tools.RunTool(ctx, def, r.chain[0])
	if err != nil {
		return outcome{}, err
	}
	if len(urls) == 0 {
		return outcome{}, ErrNoOutput
	}

	return outcome{outputs: urls, cost: def.Cost}, nil
}

func (r *run) analyze(ctx context.Context, step recipe.Analysis) (outcome, error) {
	def, err := r.rt.Registry.Analysis(step.AnalysisID)
	if err != nil {
		return outcome{}, err
	}

	if len(r.chain) == 0 {
		return outcome{}, fmt.Errorf("%w: analysis %s", ErrNoInput, def.ID)
	}

	vars, err := r.rt.Analyzer.Analyze(ctx, def, r.chain[0])
	if err != nil {
		return outcome{}, err
	}

	// only declared variables are merged
	merged := make(map[string]string, len(def.OutputVariables))
	var missing []string
	for _, name := range def.OutputVariables {
		v := strings.TrimSpace(vars[name])
		if v == "" {
			missing = append(missing, name)
			continue
		}
		r.values[name] = v
		merged[name] = v
	}

	if len(missing) > 0 {
		return outcome{variables: merged}, fmt.Errorf("%w: analysis %s returned no %s",
			ErrNoOutput, def.ID, strings.Join(missing, ", "))
	}

	return outcome{variables: merged}, nil
}

func (r *run) debit(ctx context.Context, i int, kind recipe.StageKind, amount int) error {
	if amount <= 0 {
		return nil
	}

	memo := fmt.Sprintf("run %s stage %d (%s)", r.req.RunID, i+1, kind)
	remaining, err := r.rt.Ledger.Debit(ctx, r.req.UserID, amount, memo)
	if err != nil {
		return fmt.Errorf("debit: %w", err)
	}

	r.result.RemainingBalance = remaining
	return nil
}

// record appends the stage's images, replacing backend URLs with persisted
// ones when an asset store is configured. The chain keeps backend URLs.
func (r *run) record(ctx context.Context, i int, out outcome) {
	urls := out.outputs

	if r.rt.Assets != nil {
		persisted, err := r.rt.Assets.Persist(ctx, r.req.RunID, i+1, out.outputs)
		if err != nil {
			r.rt.Logger.WarnContext(ctx, "persist outputs failed",
				"run_id", r.req.RunID,
				"stage", i+1,
				"error", err,
			)
		} else {
			urls = persisted
		}
	}

	for _, u := range urls {
		r.result.Images = append(r.result.Images, Image{URL: u, Prompt: out.prompt, Stage: i + 1})
	}
}

// aspectRatio resolves the run's ratio once the run is admitted: the
// requested ratio, then the first caller reference's probed ratio, then
// the fallback.
func aspectRatio(ctx context.Context, rt *Runtime, req Request) string {
	if req.AspectRatio != "" {
		return req.AspectRatio
	}

	if len(req.References) > 0 && rt.Prober != nil {
		ratio, err := rt.Prober.AspectRatio(ctx, req.References[0])
		if err != nil {
			rt.Logger.WarnContext(ctx, "reference probe failed",
				"run_id", req.RunID,
				"url", req.References[0],
				"error", err,
			)
		} else if ratio != "" {
			return ratio
		}
	}

	return req.FallbackAspectRatio
}

func staticRefs(s recipe.Stage) []string {
	refs := make([]string, 0, len(s.References))
	for _, ref := range s.References {
		refs = append(refs, ref.URL)
	}
	return refs
}

func lastGeneration(stages []recipe.Stage) int {
	last := -1
	for i, s := range stages {
		if s.Kind() == recipe.KindGeneration {
			last = i
		}
	}
	return last
}
