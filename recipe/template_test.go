package recipe_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/palette/recipe"
)

func TestParseStageTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		index    int
		want     []recipe.Field
	}{
		{
			name:     "no placeholders",
			template: "a quiet harbor at dawn",
			want:     nil,
		},
		{
			name:     "required name field",
			template: "<<CHARACTER_NAME:name!>> stands still",
			want: []recipe.Field{
				{
					ID:          "stage0_field0_character_name",
					Name:        "CHARACTER_NAME",
					Label:       "Character Name",
					Type:        recipe.FieldName,
					Required:    true,
					Placeholder: "Character Name!",
				},
			},
		},
		{
			name:     "select options trimmed",
			template: "<<SHOT:select( A , B,C )>>",
			index:    2,
			want: []recipe.Field{
				{
					ID:          "stage2_field0_shot",
					Name:        "SHOT",
					Label:       "Shot",
					Type:        recipe.FieldSelect,
					Options:     []string{"A", "B", "C"},
					Placeholder: "Shot",
				},
			},
		},
		{
			name:     "required select",
			template: "<<MOOD:select(calm,tense)!>>",
			want: []recipe.Field{
				{
					ID:          "stage0_field0_mood",
					Name:        "MOOD",
					Label:       "Mood",
					Type:        recipe.FieldSelect,
					Required:    true,
					Options:     []string{"calm", "tense"},
					Placeholder: "Mood!",
				},
			},
		},
		{
			name:     "empty select",
			template: "<<MOOD:select()>>",
			want: []recipe.Field{
				{
					ID:          "stage0_field0_mood",
					Name:        "MOOD",
					Label:       "Mood",
					Type:        recipe.FieldSelect,
					Options:     []string{},
					Placeholder: "Mood",
				},
			},
		},
		{
			name:     "unknown type spec is text",
			template: "<<NOTE:paragraph>>",
			want: []recipe.Field{
				{
					ID:          "stage0_field0_note",
					Name:        "NOTE",
					Label:       "Note",
					Type:        recipe.FieldText,
					Placeholder: "Note",
				},
			},
		},
		{
			name:     "malformed placeholders are literal",
			template: "<<lower:text>> <<NOCOLON>> <<OPEN:text",
			want:     nil,
		},
		{
			name:     "duplicate names get distinct ids",
			template: "<<X:text>> and <<X:text!>>",
			index:    1,
			want: []recipe.Field{
				{ID: "stage1_field0_x", Name: "X", Label: "X", Type: recipe.FieldText, Placeholder: "X"},
				{ID: "stage1_field1_x", Name: "X", Label: "X", Type: recipe.FieldText, Required: true, Placeholder: "X!"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recipe.ParseStageTemplate(tt.template, tt.index)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseStageTemplate mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseStageTemplateDeterministic(t *testing.T) {
	tmpl := "<<A:name!>>, <<B:select(x,y)>>, <<A:text>> <<C_2:text>>"

	first := recipe.ParseStageTemplate(tmpl, 3)
	second := recipe.ParseStageTemplate(tmpl, 3)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("re-parse differs (-first +second):\n%s", diff)
	}
}

func TestParseTemplate(t *testing.T) {
	stages := recipe.ParseTemplate("<<HERO:name!>> portrait |  <<HERO:name>> on a rooftop  ", recipe.IndexIDs())

	if len(stages) != 2 {
		t.Fatalf("len(stages) = %d, want 2", len(stages))
	}

	for i, s := range stages {
		if s.Kind() != recipe.KindGeneration {
			t.Errorf("stage %d kind = %s, want generation", i, s.Kind())
		}
		if s.Order != i {
			t.Errorf("stage %d order = %d", i, s.Order)
		}
	}

	if stages[0].ID != "stage_0" || stages[1].ID != "stage_1" {
		t.Errorf("ids = %q, %q", stages[0].ID, stages[1].ID)
	}

	if got := stages[1].Template(); got != "<<HERO:name>> on a rooftop" {
		t.Errorf("template not trimmed: %q", got)
	}

	if got := stages[1].Fields()[0].ID; got != "stage1_field0_hero" {
		t.Errorf("field id = %q, want stage1_field0_hero", got)
	}
}

func TestFieldLabel(t *testing.T) {
	tests := map[string]string{
		"SHOT_TYPE":      "Shot Type",
		"X":              "X",
		"CAMERA_2":       "Camera 2",
		"A__B":           "A  B",
		"CHARACTER_NAME": "Character Name",
	}

	for in, want := range tests {
		if got := recipe.FieldLabel(in); got != want {
			t.Errorf("FieldLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
