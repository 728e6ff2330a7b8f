package recipe_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/palette/recipe"
)

func TestCheckChaining(t *testing.T) {
	tools := recipe.DefaultRegistry().Tools

	gridThen := func(next recipe.Stage) []recipe.Stage {
		next.Order = 2
		return []recipe.Stage{
			recipe.NewGenerationStage("g", 0, "a knight"),
			recipe.NewToolStage("grid", 1, "cinematic-grid"),
			next,
		}
	}

	tests := []struct {
		name    string
		stages  []recipe.Stage
		policy  recipe.MultiOutputPolicy
		wantErr bool
	}{
		{"grid last is fine", gridThen(recipe.NewGenerationStage("x", 0, "y"))[:2], recipe.MultiReject, false},
		{"reject policy blocks follower", gridThen(recipe.NewGenerationStage("x", 0, "y")), recipe.MultiReject, true},
		{"first allows tool follower", gridThen(recipe.NewToolStage("u", 0, "upscale")), recipe.MultiFirst, false},
		{"all allows generation follower", gridThen(recipe.NewGenerationStage("x", 0, "y")), recipe.MultiAll, false},
		{"all blocks tool follower", gridThen(recipe.NewToolStage("u", 0, "upscale")), recipe.MultiAll, true},
		{"all blocks analysis follower", gridThen(recipe.NewAnalysisStage("a", 0, "style-analysis")), recipe.MultiAll, true},
		{
			name: "analysis keeps multi chain alive",
			stages: []recipe.Stage{
				recipe.NewToolStage("grid", 0, "cinematic-grid"),
				recipe.NewAnalysisStage("a", 1, "style-analysis"),
				recipe.NewToolStage("u", 2, "upscale"),
			},
			policy:  recipe.MultiAll,
			wantErr: true,
		},
		{
			name: "single output tools chain freely",
			stages: []recipe.Stage{
				recipe.NewToolStage("bg", 0, "remove-background"),
				recipe.NewToolStage("u", 1, "upscale"),
			},
			policy: recipe.MultiReject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := recipe.CheckChaining(tt.stages, tools, tt.policy)
			if tt.wantErr && !errors.Is(err, recipe.ErrMultiOutputChain) {
				t.Errorf("err = %v, want ErrMultiOutputChain", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestMultiOutputPolicyThread(t *testing.T) {
	out := []string{"a", "b", "c"}

	if diff := cmp.Diff([]string{"a"}, recipe.MultiFirst.Thread(out)); diff != "" {
		t.Errorf("first (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(out, recipe.MultiAll.Thread(out)); diff != "" {
		t.Errorf("all (-want +got):\n%s", diff)
	}

	if _, err := recipe.ParseMultiOutputPolicy("fan-out"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
