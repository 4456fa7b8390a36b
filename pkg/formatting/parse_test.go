package formatting_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/vitalis/pkg/formatting"
)

type marker struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

func TestParse(t *testing.T) {
	inputs := map[string]string{
		"bare":           `{"key":"ldl","value":131}`,
		"padded":         "\n  {\"key\":\"ldl\",\"value\":131}  \n",
		"json fence":     "```json\n{\"key\":\"ldl\",\"value\":131}\n```",
		"plain fence":    "```\n{\"key\":\"ldl\",\"value\":131}\n```",
		"fence in prose": "Here is the panel:\n```json\n{\"key\":\"ldl\",\"value\":131}\n```\nLet me know.",
		"prose only":     `The result is {"key":"ldl","value":131} as requested.`,
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := formatting.Parse[marker](in)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got != (marker{Key: "ldl", Value: 131}) {
				t.Errorf("Parse = %+v", got)
			}
		})
	}
}

func TestParseFailures(t *testing.T) {
	inputs := []string{
		"",
		"I could not read the label.",
		"```json\n{broken\n```",
		`{"key": 5}`,
	}

	for _, in := range inputs {
		if _, err := formatting.Parse[marker](in); !errors.Is(err, formatting.ErrParseFailed) {
			t.Errorf("Parse(%q) error = %v, want ErrParseFailed", in, err)
		}
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"object", `{"a":1}`, `{"a":1}`},
		{"array", ` [1, 2] `, `[1, 2]`},
		{"fence preferred over braces", "x {\n```json\n{\"markers\":[]}\n```", `{"markers":[]}`},
		{"brace span", `ok: {"a":{"b":2}} done`, `{"a":{"b":2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Extract(tt.in)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Extract = %s, want %s", got, tt.want)
			}
		})
	}
}
