// Package prompts implements the prompt override domain.
// Each pipeline stage has hardcoded default instructions and an immutable
// output specification. Operators may store named instruction overrides,
// optionally scoped to a user language, and activate at most one per stage
// and language. The specification is never overridden.
package prompts

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Prompt is a named instruction override for a pipeline stage. An empty
// Language applies to every user without a language-specific override.
type Prompt struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Stage        Stage     `json:"stage"`
	Language     string    `json:"language"`
	Instructions string    `json:"instructions"`
	Description  *string   `json:"description"`
	Active       bool      `json:"active"`
}

// Command carries the writable fields of a prompt for create and update.
type Command struct {
	Name         string  `json:"name"`
	Stage        Stage   `json:"stage"`
	Language     string  `json:"language"`
	Instructions string  `json:"instructions"`
	Description  *string `json:"description"`
}

// CreateCommand carries the data needed to create a new prompt override.
type CreateCommand = Command

// UpdateCommand carries the data needed to update an existing prompt override.
type UpdateCommand = Command

func (c *Command) normalize() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Language = NormalizeLanguage(c.Language)

	if c.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidPrompt)
	}
	if _, err := ParseStage(string(c.Stage)); err != nil {
		return err
	}
	if strings.TrimSpace(c.Instructions) == "" {
		return fmt.Errorf("%w: instructions required", ErrInvalidPrompt)
	}
	return nil
}

// NormalizeLanguage reduces a language tag to its lowercase primary subtag,
// so "pt-BR" and "pt_br" both resolve to "pt".
func NormalizeLanguage(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	return lang
}
