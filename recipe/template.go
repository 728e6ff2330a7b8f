package recipe

import (
	"regexp"
	"strconv"
	"strings"
)

// StageSeparator splits a full recipe template into stages.
const StageSeparator = "|"

var (
	placeholderPattern = regexp.MustCompile(`<<([A-Z_0-9]+):([^>]+)>>`)
	selectPattern      = regexp.MustCompile(`select\(([^)]+)\)`)
)

// IDFunc produces stage ids. Callers pass uuid.NewString in production and
// a deterministic sequence in tests.
type IDFunc func() string

// IndexIDs returns an IDFunc yielding "stage_0", "stage_1", ...
func IndexIDs() IDFunc {
	n := 0
	return func() string {
		id := "stage_" + strconv.Itoa(n)
		n++
		return id
	}
}

// ParseStageTemplate extracts placeholders of the form <<NAME:TYPESPEC>>
// in order of appearance. Malformed placeholders are not matched and stay
// in the template as literal text.
func ParseStageTemplate(template string, stageIndex int) []Field {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return nil
	}

	fields := make([]Field, 0, len(matches))
	for i, m := range matches {
		name := m[1]
		typ, options, required := parseTypeSpec(m[2])
		label := FieldLabel(name)

		placeholder := label
		if required {
			placeholder += "!"
		}

		fields = append(fields, Field{
			ID:          FieldID(stageIndex, i, name),
			Name:        name,
			Label:       label,
			Type:        typ,
			Required:    required,
			Options:     options,
			Placeholder: placeholder,
		})
	}

	return fields
}

// parseTypeSpec interprets name, text, or select(a,b,...) with an optional
// trailing "!". Unrecognized specs are text fields.
func parseTypeSpec(spec string) (FieldType, []string, bool) {
	clean, required := strings.CutSuffix(spec, "!")

	switch {
	case clean == "name":
		return FieldName, nil, required
	case clean == "text":
		return FieldText, nil, required
	case strings.HasPrefix(clean, "select("):
		options := []string{}
		if m := selectPattern.FindStringSubmatch(clean); m != nil {
			for opt := range strings.SplitSeq(m[1], ",") {
				options = append(options, strings.TrimSpace(opt))
			}
		}
		return FieldSelect, options, required
	default:
		return FieldText, nil, required
	}
}

// ParseTemplate splits a full template on "|" into trimmed generation
// stages and parses each one. Stage ids come from newID.
func ParseTemplate(full string, newID IDFunc) []Stage {
	parts := strings.Split(full, StageSeparator)
	stages := make([]Stage, 0, len(parts))

	for i, part := range parts {
		stages = append(stages, NewGenerationStage(newID(), i, strings.TrimSpace(part)))
	}

	return stages
}
