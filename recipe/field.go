package recipe

import (
	"strconv"
	"strings"
)

// FieldType is the input kind a placeholder asks the caller for.
type FieldType string

// Placeholder input kinds.
const (
	FieldName   FieldType = "name"
	FieldText   FieldType = "text"
	FieldSelect FieldType = "select"
)

// Field is a typed placeholder extracted from a stage template.
// IDs are derived from stage index, occurrence index, and name, so
// re-parsing identical text yields identical fields.
type Field struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Label       string    `json:"label" yaml:"label"`
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required" yaml:"required"`
	Options     []string  `json:"options,omitempty" yaml:"options,omitempty"`
	Placeholder string    `json:"placeholder" yaml:"placeholder"`
}

// Values maps field ids (or any key containing a field's lowercase name)
// to caller-supplied values.
type Values map[string]string

// Clone returns a shallow copy so a run can add analysis outputs without
// touching the caller's map.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// FieldLabel converts SHOT_TYPE into "Shot Type".
func FieldLabel(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = w[:1] + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// FieldID builds the deterministic id for the n-th placeholder of a stage.
func FieldID(stageIndex, occurrence int, name string) string {
	return "stage" + strconv.Itoa(stageIndex) + "_field" + strconv.Itoa(occurrence) + "_" + strings.ToLower(name)
}

// UniqueFields returns one canonical field per name across all stages in
// first-seen order. The first occurrence wins except for Required, which
// is set if any occurrence is required.
func UniqueFields(stages []Stage) []Field {
	var out []Field
	index := make(map[string]int)

	for _, s := range stages {
		for _, f := range s.Fields() {
			if i, ok := index[f.Name]; ok {
				if f.Required {
					out[i].Required = true
				}
				continue
			}
			index[f.Name] = len(out)
			out = append(out, f)
		}
	}

	return out
}

// FormFields is the caller-facing alias of UniqueFields: each name is
// filled once and projected into every stage that references it.
func FormFields(stages []Stage) []Field {
	return UniqueFields(stages)
}
