package recipes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/JaimeStill/palette/internal/pipeline"
	"github.com/JaimeStill/palette/internal/recipes"
	"github.com/JaimeStill/palette/pkg/auth"
	"github.com/JaimeStill/palette/pkg/pagination"
	"github.com/JaimeStill/palette/pkg/routes"
	"github.com/JaimeStill/palette/recipe"
)

type mockSystem struct {
	listFn            func(ctx context.Context, page pagination.PageRequest, filters recipes.Filters) (*pagination.PageResult[recipes.Recipe], error)
	findFn            func(ctx context.Context, id uuid.UUID) (*recipes.Recipe, error)
	findByNameFn      func(ctx context.Context, name, category string) (*recipes.Recipe, error)
	createFn          func(ctx context.Context, cmd recipes.Command) (*recipes.Recipe, error)
	updateFn          func(ctx context.Context, id uuid.UUID, cmd recipes.Command) (*recipes.Recipe, error)
	deleteFn          func(ctx context.Context, id uuid.UUID) error
	estimateFn        func(ctx context.Context, id uuid.UUID, model string) (*recipes.Cost, error)
	executeFn         func(ctx context.Context, id uuid.UUID, cmd recipes.ExecuteCommand) (*pipeline.Result, error)
	executeTemplateFn func(ctx context.Context, cmd recipes.TemplateCommand) (*pipeline.Result, error)
}

func (m *mockSystem) Handler() *recipes.Handler { return nil }

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters recipes.Filters) (*pagination.PageResult[recipes.Recipe], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*recipes.Recipe, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) FindByName(ctx context.Context, name, category string) (*recipes.Recipe, error) {
	return m.findByNameFn(ctx, name, category)
}

func (m *mockSystem) Create(ctx context.Context, cmd recipes.Command) (*recipes.Recipe, error) {
	return m.createFn(ctx, cmd)
}

func (m *mockSystem) Update(ctx context.Context, id uuid.UUID, cmd recipes.Command) (*recipes.Recipe, error) {
	return m.updateFn(ctx, id, cmd)
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func (m *mockSystem) Estimate(ctx context.Context, id uuid.UUID, model string) (*recipes.Cost, error) {
	return m.estimateFn(ctx, id, model)
}

func (m *mockSystem) Execute(ctx context.Context, id uuid.UUID, cmd recipes.ExecuteCommand) (*pipeline.Result, error) {
	return m.executeFn(ctx, id, cmd)
}

func (m *mockSystem) ExecuteTemplate(ctx context.Context, cmd recipes.TemplateCommand) (*pipeline.Result, error) {
	return m.executeTemplateFn(ctx, cmd)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupMux(sys recipes.System) http.Handler {
	h := recipes.NewHandler(sys, recipe.DefaultRegistry(), discard, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(auth.WithSubject(r.Context(), "user-1")))
	})
}

func storedRecipe(t *testing.T) *recipes.Recipe {
	t.Helper()
	stages, err := recipe.Prepare([]recipe.Stage{
		recipe.NewGenerationStage("s0", 0, "<<CHARACTER:name!>> in a <<SETTING:select(forest, city)>>"),
		recipe.NewAnalysisStage("s1", 1, "style-analysis"),
		recipe.NewGenerationStage("s2", 2, "<<CHARACTER:name>> painted as <<ANALYZED_STYLE_NAME:text!>>"),
	})
	if err != nil {
		t.Fatal(err)
	}
	return &recipes.Recipe{ID: uuid.New(), Name: "Styled", Category: "general", Stages: stages}
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func TestHandlerList(t *testing.T) {
	var gotFilters recipes.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, page pagination.PageRequest, filters recipes.Filters) (*pagination.PageResult[recipes.Recipe], error) {
			gotFilters = filters
			result := pagination.NewPageResult([]recipes.Recipe{{Name: "Styled"}}, 1, page.Page, page.PageSize)
			return &result, nil
		},
	}

	rec := do(setupMux(sys), "GET", "/recipes?category=portraits&isSystem=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if gotFilters.Category == nil || *gotFilters.Category != "portraits" {
		t.Errorf("category filter: %v", gotFilters.Category)
	}
	if gotFilters.IsSystem == nil || !*gotFilters.IsSystem {
		t.Errorf("isSystem filter: %v", gotFilters.IsSystem)
	}

	var page pagination.PageResult[recipes.Recipe]
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Data[0].Name != "Styled" {
		t.Errorf("page: %+v", page)
	}
}

func TestHandlerFind(t *testing.T) {
	stored := storedRecipe(t)

	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"found", "/recipes/" + stored.ID.String(), nil, http.StatusOK},
		{"not found", "/recipes/" + uuid.NewString(), recipes.ErrNotFound, http.StatusNotFound},
		{"bad id", "/recipes/not-a-uuid", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &mockSystem{
				findFn: func(context.Context, uuid.UUID) (*recipes.Recipe, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return stored, nil
				},
			}

			rec := do(setupMux(sys), "GET", tt.target, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerInvalidID(t *testing.T) {
	tests := []struct {
		method string
		target string
		body   string
	}{
		{"GET", "/recipes/not-a-uuid", ""},
		{"GET", "/recipes/not-a-uuid/fields", ""},
		{"GET", "/recipes/not-a-uuid/cost", ""},
		{"POST", "/recipes/not-a-uuid/validate", `{}`},
		{"POST", "/recipes/not-a-uuid/execute", `{}`},
		{"PUT", "/recipes/not-a-uuid", `{"name":"x"}`},
		{"DELETE", "/recipes/not-a-uuid", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := do(setupMux(&mockSystem{}), tt.method, tt.target, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if !strings.Contains(rec.Body.String(), recipes.ErrInvalidID.Error()) {
				t.Errorf("body = %s, want %q", rec.Body.String(), recipes.ErrInvalidID)
			}
		})
	}
}

func TestHandlerFields(t *testing.T) {
	stored := storedRecipe(t)
	sys := &mockSystem{
		findFn: func(context.Context, uuid.UUID) (*recipes.Recipe, error) { return stored, nil },
	}

	rec := do(setupMux(sys), "GET", "/recipes/"+stored.ID.String()+"/fields", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var fields []recipe.Field
	if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, f := range fields {
		names = append(names, f.Name)
	}
	want := []string{"CHARACTER", "SETTING", "ANALYZED_STYLE_NAME"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
	if !fields[0].Required {
		t.Error("CHARACTER should stay required after dedup")
	}
}

func TestHandlerValidate(t *testing.T) {
	stored := storedRecipe(t)
	sys := &mockSystem{
		findFn: func(context.Context, uuid.UUID) (*recipes.Recipe, error) { return stored, nil },
	}
	h := setupMux(sys)
	target := "/recipes/" + stored.ID.String() + "/validate"

	tests := []struct {
		name    string
		body    string
		valid   bool
		missing []string
	}{
		{"missing", `{"fieldValues": {}}`, false, []string{"Character"}},
		{"analysis output deferred", `{"fieldValues": {"stage0_field0_character": "Maya"}}`, true, []string{}},
		{"fallback id", `{"fieldValues": {"ui_character": "Maya"}}`, true, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, "POST", target, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}

			var got recipe.Validation
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			if got.IsValid != tt.valid {
				t.Errorf("isValid = %v, want %v", got.IsValid, tt.valid)
			}
			if diff := cmp.Diff(tt.missing, got.MissingFields); diff != "" {
				t.Errorf("missing (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandlerPrompts(t *testing.T) {
	stored := storedRecipe(t)
	sys := &mockSystem{
		findFn: func(context.Context, uuid.UUID) (*recipes.Recipe, error) { return stored, nil },
	}

	body := `{"fieldValues": {"stage0_field0_character": "Maya", "ANALYZED_STYLE_NAME": "gouache"}}`
	rec := do(setupMux(sys), "POST", "/recipes/"+stored.ID.String()+"/prompts", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var previews []pipeline.StagePreview
	if err := json.Unmarshal(rec.Body.Bytes(), &previews); err != nil {
		t.Fatal(err)
	}

	if len(previews) != 3 {
		t.Fatalf("previews = %d, want 3", len(previews))
	}
	if previews[0].Prompt != "Maya in a" {
		t.Errorf("stage 1 prompt = %q", previews[0].Prompt)
	}
	if previews[1].AnalysisID != "style-analysis" {
		t.Errorf("stage 2 analysis = %q", previews[1].AnalysisID)
	}
	if previews[2].Prompt != "Maya painted as gouache" {
		t.Errorf("stage 3 prompt = %q", previews[2].Prompt)
	}
}

func TestHandlerParse(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   int
		stages int
		fields int
	}{
		{"two stages", `{"template": "<<A:text!>> cat | <<A:text>> dog, <<B:name>>"}`, http.StatusOK, 2, 2},
		{"empty", `{"template": "  "}`, http.StatusBadRequest, 0, 0},
		{"bad json", `{`, http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(setupMux(&mockSystem{}), "POST", "/recipes/parse", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want != http.StatusOK {
				return
			}

			var got recipes.ParseResult
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			if len(got.Stages) != tt.stages || len(got.Fields) != tt.fields {
				t.Errorf("stages = %d, fields = %d", len(got.Stages), len(got.Fields))
			}
		})
	}
}

func TestHandlerCreate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"created", nil, http.StatusCreated},
		{"duplicate", recipes.ErrDuplicate, http.StatusConflict},
		{"invalid name", recipes.ErrInvalidName, http.StatusBadRequest},
		{"unknown tool", recipe.ErrUnknownTool, http.StatusBadRequest},
		{"chaining", recipe.ErrMultiOutputChain, http.StatusBadRequest},
		{"storage", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &mockSystem{
				createFn: func(_ context.Context, cmd recipes.Command) (*recipes.Recipe, error) {
					if cmd.CreatedBy != "user-1" {
						t.Errorf("createdBy = %q", cmd.CreatedBy)
					}
					if tt.err != nil {
						return nil, tt.err
					}
					return &recipes.Recipe{ID: uuid.New(), Name: cmd.Name}, nil
				},
			}

			rec := do(setupMux(sys), "POST", "/recipes", `{"name": "Noir", "template": "a <<X:text>>"}`)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerDelete(t *testing.T) {
	var deleted uuid.UUID
	sys := &mockSystem{
		deleteFn: func(_ context.Context, id uuid.UUID) error {
			deleted = id
			return nil
		},
	}

	id := uuid.New()
	rec := do(setupMux(sys), "DELETE", "/recipes/"+id.String(), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if deleted != id {
		t.Errorf("deleted %s, want %s", deleted, id)
	}
}

func TestHandlerCost(t *testing.T) {
	sys := &mockSystem{
		estimateFn: func(_ context.Context, _ uuid.UUID, model string) (*recipes.Cost, error) {
			return &recipes.Cost{Model: model, ToolCost: 3, GenerationCount: 2, Total: 13}, nil
		},
	}

	rec := do(setupMux(sys), "GET", "/recipes/"+uuid.NewString()+"/cost?model=nano-banana", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got recipes.Cost
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := recipes.Cost{Model: "nano-banana", ToolCost: 3, GenerationCount: 2, Total: 13}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cost (-want +got):\n%s", diff)
	}
}

func TestHandlerExecute(t *testing.T) {
	partial := &pipeline.Result{
		RunID:            "run-1",
		Status:           pipeline.StatusFailed,
		Images:           []pipeline.Image{{URL: "https://cdn.example/1.png", Prompt: "p", Stage: 1}},
		TotalCost:        4,
		RemainingBalance: 96,
		FailedStage:      2,
	}

	tests := []struct {
		name        string
		result      *pipeline.Result
		err         error
		want        int
		success     bool
		images      int
		failedStage int
		missing     []string
	}{
		{
			name:    "completed",
			result:  &pipeline.Result{RunID: "run-1", Status: pipeline.StatusCompleted, Images: partial.Images, TotalCost: 4},
			want:    http.StatusOK,
			success: true,
			images:  1,
		},
		{
			name:        "stage failure keeps partial images",
			result:      partial,
			err:         &pipeline.StageError{Stage: 1, Kind: recipe.KindGeneration, Err: errors.New("backend down")},
			want:        http.StatusBadGateway,
			images:      1,
			failedStage: 2,
		},
		{
			name:    "validation",
			err:     &recipe.ValidationError{MissingFields: []string{"Character"}, Errors: []string{"Character is required"}},
			want:    http.StatusBadRequest,
			missing: []string{"Character"},
		},
		{
			name: "insufficient balance",
			err:  &pipeline.BalanceError{Required: 30, Available: 5},
			want: http.StatusPaymentRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &mockSystem{
				executeFn: func(_ context.Context, _ uuid.UUID, cmd recipes.ExecuteCommand) (*pipeline.Result, error) {
					if cmd.UserID != "user-1" {
						t.Errorf("user = %q", cmd.UserID)
					}
					if cmd.FieldValues["stage0_field0_character"] != "Maya" {
						t.Errorf("values = %v", cmd.FieldValues)
					}
					return tt.result, tt.err
				},
			}

			body := `{"fieldValues": {"stage0_field0_character": "Maya"}, "model": "nano-banana"}`
			rec := do(setupMux(sys), "POST", "/recipes/"+uuid.NewString()+"/execute", body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}

			var got recipes.RunResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			if got.Success != tt.success {
				t.Errorf("success = %v, want %v", got.Success, tt.success)
			}
			if len(got.Images) != tt.images {
				t.Errorf("images = %d, want %d", len(got.Images), tt.images)
			}
			if got.FailedStage != tt.failedStage {
				t.Errorf("failedStage = %d, want %d", got.FailedStage, tt.failedStage)
			}
			if diff := cmp.Diff(tt.missing, got.MissingFields); diff != "" {
				t.Errorf("missing (-want +got):\n%s", diff)
			}
			if !tt.success && got.Error == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestHandlerExecuteNotFound(t *testing.T) {
	sys := &mockSystem{
		executeFn: func(context.Context, uuid.UUID, recipes.ExecuteCommand) (*pipeline.Result, error) {
			return nil, recipes.ErrNotFound
		},
	}

	rec := do(setupMux(sys), "POST", "/recipes/"+uuid.NewString()+"/execute", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(recipes.ErrNotFound.Error())) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandlerExecuteTemplate(t *testing.T) {
	var got recipes.TemplateCommand
	sys := &mockSystem{
		executeTemplateFn: func(_ context.Context, cmd recipes.TemplateCommand) (*pipeline.Result, error) {
			got = cmd
			return &pipeline.Result{RunID: "r", Status: pipeline.StatusCompleted, Images: []pipeline.Image{}}, nil
		},
	}

	body := `{"template": "<<A:text>> | b", "variables": {"a": "x"}, "referenceImages": ["https://cdn.example/r.png"], "seed": 7}`
	rec := do(setupMux(sys), "POST", "/recipes/execute", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if got.Template != "<<A:text>> | b" || got.UserID != "user-1" {
		t.Errorf("command: %+v", got)
	}
	if got.Seed == nil || *got.Seed != 7 {
		t.Errorf("seed: %v", got.Seed)
	}
	if len(got.ReferenceImages) != 1 {
		t.Errorf("references: %v", got.ReferenceImages)
	}
}

func TestHandlerRegistry(t *testing.T) {
	rec := do(setupMux(&mockSystem{}), "GET", "/recipes/registry", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got recipes.RegistryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Tools) != 3 || len(got.Analyses) != 2 {
		t.Errorf("registry: %d tools, %d analyses", len(got.Tools), len(got.Analyses))
	}
}
