// Package resume supplies the fixed background text injected into every prompt.
package resume

import (
	"fmt"
	"os"
	"strings"
)

// Provider returns the context text. Implementations must be constant for
// the life of the process.
type Provider interface {
	Context() string
}

// Static is a Provider over a fixed string.
type Static string

func (s Static) Context() string { return string(s) }

// Default returns the built-in resume.
func Default() Static {
	return Static(builtin)
}

// Load returns the built-in resume when path is empty, otherwise the trimmed
// contents of the file read once now.
func Load(path string) (Static, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read resume file: %w", err)
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return "", fmt.Errorf("resume file %s is empty", path)
	}
	return Static(text), nil
}
