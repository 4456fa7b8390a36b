package correlations

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"path"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/vitalis/internal/findings"
	"github.com/JaimeStill/vitalis/internal/taxonomy"
)

//go:embed rules.yaml
var defaultRules []byte

// Condition matches findings. Empty fields match anything. Key is a
// path.Match glob over finding keys.
type Condition struct {
	System string   `yaml:"system"`
	Key    string   `yaml:"key"`
	Status []string `yaml:"status"`
	Below  *float64 `yaml:"below"`
	Above  *float64 `yaml:"above"`
}

// Rule fires when every All condition and at least one Any condition (if
// any are listed) match a current finding.
type Rule struct {
	Title          string      `yaml:"title"`
	PrimarySystem  string      `yaml:"primary_system"`
	RelatedSystems []string    `yaml:"related_systems"`
	Explanation    string      `yaml:"explanation"`
	ActionTip      string      `yaml:"action_tip"`
	Confidence     float64     `yaml:"confidence"`
	Priority       string      `yaml:"priority"`
	All            []Condition `yaml:"all"`
	Any            []Condition `yaml:"any"`
}

// RuleSet is the YAML document read by the rule detector.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// ParseRules decodes and validates a rule set.
func ParseRules(data []byte) (RuleSet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return RuleSet{}, fmt.Errorf("%w: payload is empty", ErrInvalidRules)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("%w: decode: %w", ErrInvalidRules, err)
	}

	for i, r := range rs.Rules {
		if err := r.validate(); err != nil {
			return RuleSet{}, fmt.Errorf("%w: rule %d (%q): %w", ErrInvalidRules, i, r.Title, err)
		}
	}

	return rs, nil
}

// LoadRules reads the rule file at path, or the embedded defaults when path
// is empty.
func LoadRules(path string) (RuleSet, error) {
	if path == "" {
		return ParseRules(defaultRules)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	return ParseRules(data)
}

func (r Rule) validate() error {
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if r.PrimarySystem == "" {
		return fmt.Errorf("primary_system is required")
	}
	if len(r.All)+len(r.Any) == 0 {
		return fmt.Errorf("at least one condition is required")
	}
	for _, c := range slices.Concat(r.All, r.Any) {
		if c.Key == "" {
			return fmt.Errorf("condition key is required")
		}
		if _, err := path.Match(c.Key, ""); err != nil {
			return fmt.Errorf("condition key %q: %w", c.Key, err)
		}
	}
	return nil
}

type ruleDetector struct {
	rules []Rule
}

// NewRuleDetector returns a Detector evaluating rs against current findings.
func NewRuleDetector(rs RuleSet) Detector {
	return &ruleDetector{rules: rs.Rules}
}

func (d *ruleDetector) Source() Source { return SourceRules }

func (d *ruleDetector) Detect(_ context.Context, in Input) ([]Candidate, error) {
	out := []Candidate{}

	for _, r := range d.rules {
		evidence, ok := r.evaluate(in.Findings)
		if !ok {
			continue
		}

		related := make([]taxonomy.BodySystem, len(r.RelatedSystems))
		for i, s := range r.RelatedSystems {
			related[i] = taxonomy.BodySystem(s)
		}

		out = append(out, Candidate{
			Title:          r.Title,
			PrimarySystem:  taxonomy.BodySystem(r.PrimarySystem),
			RelatedSystems: related,
			Explanation:    r.Explanation,
			ActionTip:      r.ActionTip,
			Confidence:     r.Confidence,
			Priority:       taxonomy.Priority(r.Priority),
			EvidenceKeys:   evidence,
			Source:         SourceRules,
		})
	}

	return out, nil
}

func (r Rule) evaluate(current []findings.Finding) ([]string, bool) {
	var evidence []string

	for _, c := range r.All {
		keys := c.matches(current)
		if len(keys) == 0 {
			return nil, false
		}
		evidence = append(evidence, keys...)
	}

	if len(r.Any) > 0 {
		hit := false
		for _, c := range r.Any {
			if keys := c.matches(current); len(keys) > 0 {
				hit = true
				evidence = append(evidence, keys...)
			}
		}
		if !hit {
			return nil, false
		}
	}

	slices.Sort(evidence)
	return slices.Compact(evidence), true
}

func (c Condition) matches(current []findings.Finding) []string {
	var keys []string
	for _, f := range current {
		if c.match(f) {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

func (c Condition) match(f findings.Finding) bool {
	if c.System != "" && taxonomy.ParseBodySystem(c.System) != f.BodySystem {
		return false
	}
	if ok, _ := path.Match(c.Key, f.Key); !ok {
		return false
	}
	if len(c.Status) > 0 && !slices.ContainsFunc(c.Status, func(s string) bool {
		return taxonomy.ParseStatus(s) == f.Status
	}) {
		return false
	}
	if c.Below != nil && (f.ValueNumeric == nil || *f.ValueNumeric >= *c.Below) {
		return false
	}
	if c.Above != nil && (f.ValueNumeric == nil || *f.ValueNumeric <= *c.Above) {
		return false
	}
	return true
}
