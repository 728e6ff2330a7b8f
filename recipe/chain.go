package recipe

import "fmt"

// MultiOutputPolicy decides what a multi-output tool stage passes to the
// stage after it.
type MultiOutputPolicy string

const (
	// MultiReject forbids any stage after a multi-output tool stage.
	MultiReject MultiOutputPolicy = ""
	// MultiFirst threads only the first image forward.
	MultiFirst MultiOutputPolicy = "first"
	// MultiAll threads every image forward. Only generation stages accept
	// more than one reference.
	MultiAll MultiOutputPolicy = "all"
)

// ParseMultiOutputPolicy validates a policy string.
func ParseMultiOutputPolicy(s string) (MultiOutputPolicy, error) {
	switch p := MultiOutputPolicy(s); p {
	case MultiReject, MultiFirst, MultiAll:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown multi-output policy %q", ErrInvalidStage, s)
	}
}

// Thread returns the images passed to the next stage.
func (p MultiOutputPolicy) Thread(outputs []string) []string {
	if p == MultiFirst && len(outputs) > 1 {
		return outputs[:1]
	}
	return outputs
}

// CheckChaining reports a multi-output tool stage whose output would reach a
// stage that cannot consume it under policy. Stages must be prepared.
func CheckChaining(stages []Stage, tools map[string]ToolDef, policy MultiOutputPolicy) error {
	multi := -1
	for i, s := range stages {
		if multi >= 0 {
			switch {
			case policy == MultiReject:
				return fmt.Errorf("%w: stage %d follows multi-output stage %d; set a multi-output policy",
					ErrMultiOutputChain, i+1, multi+1)
			case policy == MultiAll && s.Kind() != KindGeneration:
				return fmt.Errorf("%w: %s stage %d accepts a single reference but stage %d produces several",
					ErrMultiOutputChain, s.Kind(), i+1, multi+1)
			}
		}

		switch step := s.Step.(type) {
		case Tool:
			if tools[step.ToolID].Multi() {
				multi = i
			} else {
				multi = -1
			}
		case Generation:
			multi = -1
		}
	}
	return nil
}
