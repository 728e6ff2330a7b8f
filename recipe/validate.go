package recipe

import "strings"

// Validation is the result of checking required fields.
type Validation struct {
	IsValid       bool     `json:"isValid" yaml:"isValid"`
	MissingFields []string `json:"missingFields" yaml:"missingFields"`
	Errors        []string `json:"errors" yaml:"errors"`
}

// Err returns a *ValidationError when the validation failed, nil otherwise.
func (v Validation) Err() error {
	if v.IsValid {
		return nil
	}
	return &ValidationError{MissingFields: v.MissingFields, Errors: v.Errors}
}

// Validate checks that every required unique field resolves to a
// non-blank value.
func Validate(stages []Stage, values Values) Validation {
	return ValidateDeferred(stages, values, nil)
}

// ValidateDeferred is Validate that skips fields named in deferred,
// typically Registry.DeferredFields: analysis outputs that are only known
// once their stage runs.
func ValidateDeferred(stages []Stage, values Values, deferred []string) Validation {
	skip := make(map[string]bool, len(deferred))
	for _, name := range deferred {
		skip[name] = true
	}

	v := Validation{MissingFields: []string{}, Errors: []string{}}
	for _, f := range UniqueFields(stages) {
		if !f.Required || skip[f.Name] {
			continue
		}
		if strings.TrimSpace(Resolve(f, values)) == "" {
			v.MissingFields = append(v.MissingFields, f.Label)
			v.Errors = append(v.Errors, f.Label+" is required")
		}
	}
	v.IsValid = len(v.MissingFields) == 0
	return v
}

// DeferredFields returns the analysis output variables a run may leave
// unset: a name qualifies only when an analysis stage declaring it comes
// before every stage that references it.
func (r *Registry) DeferredFields(stages []Stage) []string {
	firstUse := make(map[string]int)
	for i, s := range stages {
		for _, f := range s.Fields() {
			if _, ok := firstUse[f.Name]; !ok {
				firstUse[f.Name] = i
			}
		}
	}

	var out []string
	seen := make(map[string]bool)
	for i, s := range stages {
		a, ok := s.Step.(Analysis)
		if !ok {
			continue
		}
		for _, name := range r.Analyses[a.AnalysisID].OutputVariables {
			if seen[name] {
				continue
			}
			seen[name] = true
			if use, ok := firstUse[name]; !ok || use > i {
				out = append(out, name)
			}
		}
	}
	return out
}
