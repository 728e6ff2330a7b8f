package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/palette/recipe"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const portrait = `
name: Portrait
template: "<<SUBJECT:text!>> portrait in <<PLACE:text>> | <<SUBJECT:text>> at night"
`

const upscaled = `
name: Upscaled
stages:
  - template: "a <<SUBJECT:text>>"
  - type: tool
    toolId: upscale
`

func TestParse(t *testing.T) {
	out, err := run(t, "parse", "<<SUBJECT:text!>> portrait | <<SUBJECT:text>> at night")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var got parseOutput
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(got.Stages) != 2 {
		t.Errorf("stages: got %d, want 2", len(got.Stages))
	}
	if len(got.Fields) != 1 || got.Fields[0].Name != "SUBJECT" || !got.Fields[0].Required {
		t.Errorf("fields: got %+v", got.Fields)
	}
}

func TestFields(t *testing.T) {
	path := writeFile(t, "portrait.yaml", portrait)

	out, err := run(t, "fields", path)
	if err != nil {
		t.Fatalf("fields: %v", err)
	}

	var fields []recipe.Field
	if err := yaml.Unmarshal([]byte(out), &fields); err != nil {
		t.Fatalf("decode output: %v", err)
	}

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	if strings.Join(names, ",") != "SUBJECT,PLACE" {
		t.Errorf("field names: got %v", names)
	}
}

func TestValidate(t *testing.T) {
	path := writeFile(t, "portrait.yaml", portrait)

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"missing subject", nil, true},
		{"subject set", []string{"--set", "SUBJECT=a lighthouse keeper"}, false},
		{"bad set", []string{"--set", "SUBJECT"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"validate", path}, tt.args...)
			_, err := run(t, args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("err: got %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportsMissing(t *testing.T) {
	path := writeFile(t, "portrait.yaml", portrait)

	out, err := run(t, "validate", path)
	if !errors.Is(err, errInvalid) {
		t.Fatalf("err: got %v, want errInvalid", err)
	}

	var v recipe.Validation
	if err := yaml.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if v.IsValid || len(v.MissingFields) != 1 {
		t.Errorf("validation: got %+v", v)
	}
}

func TestPrompts(t *testing.T) {
	path := writeFile(t, "portrait.yaml", portrait)

	out, err := run(t, "prompts", path, "--set", "SUBJECT=a fox", "--set", "PLACE=snow")
	if err != nil {
		t.Fatalf("prompts: %v", err)
	}
	for _, want := range []string{"a fox portrait in snow", "a fox at night"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCost(t *testing.T) {
	path := writeFile(t, "upscaled.yaml", upscaled)

	out, err := run(t, "cost", path, "--model", "nano-banana-2")
	if err != nil {
		t.Fatalf("cost: %v", err)
	}

	var got costOutput
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	want := costOutput{Model: "nano-banana-2", ToolCost: 5, GenerationCount: 1, Total: 11}
	if got != want {
		t.Errorf("cost: got %+v, want %+v", got, want)
	}
}

func TestCostUnknownModel(t *testing.T) {
	path := writeFile(t, "upscaled.yaml", upscaled)

	if _, err := run(t, "cost", path, "--model", "nope"); err == nil {
		t.Error("expected error for unknown model")
	}
}

func TestCheck(t *testing.T) {
	grid := func(policy string) string {
		return `
name: Grid
multiOutput: "` + policy + `"
stages:
  - template: "a castle"
  - type: tool
    toolId: cinematic-grid
  - template: "the same castle in winter"
`
	}

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"single outputs", upscaled, nil},
		{"multi rejected", grid(""), recipe.ErrMultiOutputChain},
		{"multi first", grid("first"), nil},
		{"unknown tool", "name: X\nstages:\n  - type: tool\n    toolId: sharpen\n", recipe.ErrUnknownTool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "recipe.yaml", tt.content)
			_, err := run(t, "check", path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err: got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckWithRegistry(t *testing.T) {
	path := writeFile(t, "recipe.yaml", "name: X\nstages:\n  - type: tool\n    toolId: sharpen\n")
	reg := writeFile(t, "registry.yaml", "tools:\n  - id: sharpen\n    name: Sharpen\n    endpoint: acme/sharpen\n    cost: 2\n")

	out, err := run(t, "check", path, "--registry", reg)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "1 stages ok") {
		t.Errorf("output: %q", out)
	}
}
