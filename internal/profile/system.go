package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/vitalis/internal/correlations"
	"github.com/JaimeStill/vitalis/internal/findings"
)

// ErrUnauthenticated is returned when no caller identity is available.
var ErrUnauthenticated = errors.New("user identity required")

// FindingsReader reads stored findings.
type FindingsReader interface {
	Current(ctx context.Context, userID string, filters findings.Filters) ([]findings.Finding, error)
	All(ctx context.Context, userID string) ([]findings.Finding, error)
}

// CorrelationLister reads stored correlations.
type CorrelationLister interface {
	List(ctx context.Context, userID string, includeDismissed bool) ([]correlations.Correlation, error)
}

// System defines the public contract for the health profile read model.
type System interface {
	Handler() *Handler
	GetUserHealthProfile(ctx context.Context, userID string, includeHistory bool) (*Profile, error)
}

type reader struct {
	findings     FindingsReader
	correlations CorrelationLister
	logger       *slog.Logger
	now          func() time.Time
}

// New creates the profile read model.
func New(f FindingsReader, c CorrelationLister, logger *slog.Logger) System {
	return &reader{
		findings:     f,
		correlations: c,
		logger:       logger.With("system", "profile"),
		now:          time.Now,
	}
}

func (r *reader) Handler() *Handler {
	return NewHandler(r, r.logger)
}

// GetUserHealthProfile loads findings and active correlations concurrently.
func (r *reader) GetUserHealthProfile(ctx context.Context, userID string, includeHistory bool) (*Profile, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	var (
		rows  []findings.Finding
		corrs []correlations.Correlation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if includeHistory {
			rows, err = r.findings.All(gctx, userID)
		} else {
			rows, err = r.findings.Current(gctx, userID, findings.Filters{})
		}
		if err != nil {
			return fmt.Errorf("load findings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if corrs, err = r.correlations.List(gctx, userID, false); err != nil {
			return fmt.Errorf("load correlations: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p := Build(userID, rows, corrs, includeHistory, r.now().UTC())

	r.logger.DebugContext(ctx, "profile assembled",
		"user_id", userID,
		"body_systems", len(p.BodySystems),
		"findings", len(rows),
		"correlations", len(p.Correlations),
	)
	return p, nil
}
