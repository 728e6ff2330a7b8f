package recipe

// ToolCost sums the registered cost of every tool stage. Generation and
// analysis stages contribute nothing; generation is priced by the model the
// caller selects. Unregistered tools are priced at zero here and rejected by
// Registry.CheckReferences.
func ToolCost(stages []Stage, tools map[string]ToolDef) int {
	total := 0
	for _, s := range stages {
		if t, ok := s.Step.(Tool); ok {
			total += tools[t.ToolID].Cost
		}
	}
	return total
}

// GenerationCount returns the number of generation stages.
func GenerationCount(stages []Stage) int {
	n := 0
	for _, s := range stages {
		if s.Kind() == KindGeneration {
			n++
		}
	}
	return n
}
