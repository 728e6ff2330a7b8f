package recipe_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/palette/recipe"
)

func TestCleanup(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tall, , blue.", "tall, blue."},
		{"A man, , walking", "A man, walking"},
		{"a, , , .", "a."},
		{", leading", "leading"},
		{"trailing, ", "trailing"},
		{"x  ,  y .", "x, y."},
		{"Hello .  World , ok", "Hello. World, ok"},
		{"Maya stands still", "Maya stands still"},
		// single pass leaves this artifact
		{"a, , , b", "a,, b"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := recipe.Cleanup(tt.in); got != tt.want {
				t.Errorf("Cleanup(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildStagePrompt(t *testing.T) {
	tests := []struct {
		name     string
		template string
		values   recipe.Values
		want     string
	}{
		{
			name:     "optional empty omitted",
			template: "A man, <<HAT:text>>, walking",
			values:   recipe.Values{},
			want:     "A man, walking",
		},
		{
			name:     "required with value",
			template: "<<NAME:name!>> stands still",
			values:   recipe.Values{"stage0_field0_name": "Maya"},
			want:     "Maya stands still",
		},
		{
			name:     "fallback on substring of lowercase name",
			template: "<<NAME:name!>> stands still",
			values:   recipe.Values{"ui-name-input": "Maya"},
			want:     "Maya stands still",
		},
		{
			name:     "duplicate placeholder receives one value",
			template: "<<X:text>> and <<X:text>>",
			values:   recipe.Values{"stage0_field0_x": "rain"},
			want:     "rain and rain",
		},
		{
			name:     "malformed placeholder left as text",
			template: "<<lower:text>>, <<MOOD:text>>.",
			values:   recipe.Values{},
			want:     "<<lower:text>>.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := recipe.ParseStageTemplate(tt.template, 0)
			got := recipe.BuildStagePrompt(tt.template, fields, tt.values, nil)
			if got != tt.want {
				t.Errorf("BuildStagePrompt = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildStagePromptUsesUniqueFields(t *testing.T) {
	stages := recipe.ParseTemplate("<<HERO:name!>> portrait | <<HERO:name!>> on a rooftop, <<TIME:text>>", recipe.IndexIDs())
	unique := recipe.UniqueFields(stages)

	// value keyed by the first stage's id reaches the second stage
	values := recipe.Values{"stage0_field0_hero": "Ada"}

	got := recipe.BuildStagePrompt(stages[1].Template(), stages[1].Fields(), values, unique)
	if got != "Ada on a rooftop" {
		t.Errorf("got %q", got)
	}
}

func TestBuildPrompts(t *testing.T) {
	stages := []recipe.Stage{
		recipe.NewGenerationStage("a", 0, "<<SUBJECT:text!>> sketch"),
		recipe.NewToolStage("b", 1, "upscale"),
		recipe.NewGenerationStage("c", 2, "<<SUBJECT:text!>> painted, <<STYLE:text>>"),
	}

	got := recipe.BuildPrompts(stages, recipe.Values{"subject": "fox"})
	want := []string{"fox sketch", "", "fox painted"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildPrompts mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve(t *testing.T) {
	f := recipe.Field{ID: "stage0_field0_hat", Name: "HAT"}

	tests := []struct {
		name   string
		values recipe.Values
		want   string
	}{
		{"exact id", recipe.Values{"stage0_field0_hat": "fedora", "hat": "cap"}, "fedora"},
		{"empty exact falls back", recipe.Values{"stage0_field0_hat": "", "my_hat": "cap"}, "cap"},
		{"fallback skips empty values", recipe.Values{"a_hat": "", "b_hat": "beret"}, "beret"},
		{"fallback is case-insensitive", recipe.Values{"Stage9_HAT": "bowler"}, "bowler"},
		{"sorted key order", recipe.Values{"z_hat": "z", "a_hat": "a"}, "a"},
		{"no match", recipe.Values{"coat": "trench"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recipe.Resolve(f, tt.values); got != tt.want {
				t.Errorf("Resolve = %q, want %q", got, tt.want)
			}
		})
	}
}
