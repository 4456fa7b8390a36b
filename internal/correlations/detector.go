package correlations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/JaimeStill/vitalis/internal/findings"
	"github.com/JaimeStill/vitalis/internal/taxonomy"
)

// Input is what a detector sees: the user's current findings.
type Input struct {
	UserID   string
	Language string
	Findings []findings.Finding
}

// Detector proposes correlations from current findings. Source names the
// origin stamped on every candidate it returns.
type Detector interface {
	Detect(ctx context.Context, in Input) ([]Candidate, error)
	Source() Source
}

// Detection is the merged output of one run. Ran lists the sources whose
// detector completed; stored rows from any other source are left standing.
type Detection struct {
	Candidates []Candidate
	Ran        []Source
}

// Composite runs a set of detectors and merges their output.
type Composite struct {
	detectors []Detector
	logger    *slog.Logger
}

// NewComposite runs every detector and merges their candidates by key,
// keeping the one with the higher confidence. A failing detector is logged
// and skipped; the composite fails only when all of them fail.
func NewComposite(logger *slog.Logger, detectors ...Detector) *Composite {
	return &Composite{
		detectors: detectors,
		logger:    logger.With("system", "correlation-detectors"),
	}
}

func (c *Composite) Detect(ctx context.Context, in Input) (Detection, error) {
	var (
		lists [][]Candidate
		errs  []error
		ran   []Source
	)

	for _, d := range c.detectors {
		found, err := d.Detect(ctx, in)
		if err != nil {
			c.logger.WarnContext(ctx, "detector failed",
				"user_id", in.UserID,
				"source", d.Source(),
				"error", err,
			)
			errs = append(errs, err)
			continue
		}
		lists = append(lists, found)
		ran = append(ran, d.Source())
	}

	if len(c.detectors) > 0 && len(errs) == len(c.detectors) {
		return Detection{}, fmt.Errorf("%w: %w", ErrDetectionFailed, errors.Join(errs...))
	}

	return Detection{Candidates: Merge(lists...), Ran: ran}, nil
}

// Merge normalizes candidates, drops untitled ones, and keeps the
// highest-confidence candidate per key. Output order follows first
// appearance.
func Merge(lists ...[]Candidate) []Candidate {
	index := map[string]int{}
	out := []Candidate{}

	for _, list := range lists {
		for _, c := range list {
			c, ok := normalize(c)
			if !ok {
				continue
			}

			key := c.Key()
			if i, seen := index[key]; seen {
				if c.Confidence > out[i].Confidence {
					out[i] = c
				}
				continue
			}
			index[key] = len(out)
			out = append(out, c)
		}
	}

	return out
}

// normalize cleans a candidate. Related systems repeating the primary are
// removed; a candidate confined to its primary system is kept.
func normalize(c Candidate) (Candidate, bool) {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return c, false
	}

	c.PrimarySystem = taxonomy.ParseBodySystem(string(c.PrimarySystem))

	related := make([]taxonomy.BodySystem, 0, len(c.RelatedSystems))
	for _, r := range c.RelatedSystems {
		bs := taxonomy.ParseBodySystem(string(r))
		if bs != c.PrimarySystem && !slices.Contains(related, bs) {
			related = append(related, bs)
		}
	}
	c.RelatedSystems = related

	c.Confidence = taxonomy.Clamp01(c.Confidence)
	c.Priority = taxonomy.ParsePriority(string(c.Priority))
	if c.EvidenceKeys == nil {
		c.EvidenceKeys = []string{}
	}

	return c, true
}
