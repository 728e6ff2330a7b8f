// Command palette inspects recipe files offline: it parses templates,
// lists form fields, validates values, previews prompts, and prices runs
// without calling any generation backend.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
