package recipe

import (
	"regexp"
	"slices"
	"strings"
)

// Resolve looks up the value for f. An exact match on f.ID wins; otherwise
// the first key (in sorted order) whose lowercase form contains the field's
// lowercase name and has a non-empty value is used. Caller-supplied ids are
// not guaranteed to match parser ids, so the fallback is required.
func Resolve(f Field, values Values) string {
	if v := values[f.ID]; v != "" {
		return v
	}

	name := strings.ToLower(f.Name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if v := values[k]; v != "" && strings.Contains(strings.ToLower(k), name) {
			return v
		}
	}
	return ""
}

// cleanup rules run in this order; the order changes the result.
var cleanupRules = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`,\s*,`), ","},
	{regexp.MustCompile(`[,\s]+\.`), "."},
	{regexp.MustCompile(`\.\s*,`), "."},
	{regexp.MustCompile(`,\s*$`), ""},
	{regexp.MustCompile(`^\s*,\s*`), ""},
	{regexp.MustCompile(`\s+`), " "},
	{regexp.MustCompile(`\s+,`), ","},
	{regexp.MustCompile(`\s+\.`), "."},
}

// Cleanup removes punctuation orphaned by omitted placeholders and
// collapses whitespace. It is a single pass: inputs with several adjacent
// empty placeholders may keep artifacts a second pass would remove.
func Cleanup(s string) string {
	for _, r := range cleanupRules {
		s = r.pattern.ReplaceAllString(s, r.replace)
	}
	return strings.TrimSpace(s)
}

// BuildStagePrompt substitutes field values into template and cleans up
// the result. Values are looked up by field name through unique (the
// recipe-wide deduplicated set) so a name reused across stages receives one
// value; when unique is nil the stage's own fields are used.
func BuildStagePrompt(template string, stageFields []Field, values Values, unique []Field) string {
	lookup := unique
	if lookup == nil {
		lookup = stageFields
	}

	byName := make(map[string]string, len(lookup))
	for _, f := range lookup {
		byName[f.Name] = Resolve(f, values)
	}

	// Required and optional placeholders both take the resolved value; an
	// empty optional value deletes the placeholder and Cleanup repairs the
	// punctuation around it. Missing required values are a validation error.
	out := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		m := placeholderPattern.FindStringSubmatch(match)
		return byName[m[1]]
	})

	return Cleanup(out)
}

// BuildPrompts builds every generation stage's prompt using the recipe-wide
// unique fields. Tool and analysis stages yield "".
func BuildPrompts(stages []Stage, values Values) []string {
	unique := UniqueFields(stages)
	prompts := make([]string, len(stages))
	for i, s := range stages {
		if g, ok := s.Step.(Generation); ok {
			prompts[i] = BuildStagePrompt(g.Template, g.Fields, values, unique)
		}
	}
	return prompts
}
