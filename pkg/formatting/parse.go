package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed reports content that is not JSON, fenced or bare.
var ErrParseFailed = errors.New("failed to parse json content")

var fence = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")

// Parse decodes content as JSON into T. Model responses wrapped in a
// markdown code fence are unwrapped first.
func Parse[T any](content string) (T, error) {
	var out T
	content = strings.TrimSpace(content)

	if m := fence.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	return out, nil
}
