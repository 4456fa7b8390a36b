package pipeline_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/vitalis/internal/analysis"
	"github.com/JaimeStill/vitalis/internal/documents"
	"github.com/JaimeStill/vitalis/internal/engagement"
	"github.com/JaimeStill/vitalis/internal/findings"
	"github.com/JaimeStill/vitalis/internal/pipeline"
	"github.com/JaimeStill/vitalis/internal/taxonomy"
	"github.com/JaimeStill/vitalis/internal/users"
)

type harness struct {
	docs   *memDocs
	ledger *memLedger
	rt     *pipeline.Runtime
	marker atomic.Value
}

func labResult(value, status string) *analysis.Result {
	return &analysis.Result{
		Variant: analysis.VariantLab,
		Details: &analysis.LabDetails{Markers: []analysis.Measurement{{
			Key:         "vitamin_d_level",
			Title:       "Vitamin D",
			Value:       value,
			Unit:        "ng/mL",
			Status:      status,
			Explanation: "25-hydroxy vitamin D.",
		}}},
	}
}

func newHarness() *harness {
	h := &harness{docs: newMemDocs(), ledger: &memLedger{}}
	h.marker.Store([2]string{"20", "attention"})

	h.rt = &pipeline.Runtime{
		Documents: h.docs,
		Users: profiles{
			"user-1": {UserID: "user-1", Language: "es-MX", Allergies: []string{}},
		},
		Classifier: classifierFunc(func(context.Context, analysis.Input) (*analysis.Classification, error) {
			return &analysis.Classification{
				DocumentType: taxonomy.DocumentLabPDF,
				BodySystem:   taxonomy.SystemNutrition,
				Confidence:   0.92,
			}, nil
		}),
		Analyzer: analyzerFunc(func(context.Context, analysis.Request) (*analysis.Result, error) {
			m := h.marker.Load().([2]string)
			return labResult(m[0], m[1]), nil
		}),
		Findings: findings.New(h.ledger, discard(), 3),
		Correlator: correlatorFunc(func(context.Context, string, string) (int, error) {
			return 1, nil
		}),
		Logger:        discard(),
		MaxUploadSize: 1 << 20,
	}
	return h
}

func (h *harness) upload(t *testing.T, ctx context.Context, userID string) (*pipeline.Result, error) {
	t.Helper()
	return pipeline.New(h.rt).ProcessUpload(ctx, pipeline.Upload{
		UserID:   userID,
		FileRef:  "users/" + userID + "/documents/lab.pdf",
		FileName: "lab.pdf",
		MimeType: "application/pdf",
	})
}

var fullRun = []documents.Status{
	documents.StatusPending,
	documents.StatusClassifying,
	documents.StatusAnalyzing,
	documents.StatusExtracting,
	documents.StatusDownstream,
	documents.StatusCompleted,
}

func TestProcessUploadVitaminD(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	first, err := h.upload(t, ctx, "user-1")
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if !first.Success || first.Status != documents.StatusCompleted {
		t.Fatalf("first result = %+v, want completed", first)
	}
	if *first.FindingsExtracted != 1 || *first.EvolutionDetected {
		t.Errorf("first findings = %d evolved = %v, want 1 and false", *first.FindingsExtracted, *first.EvolutionDetected)
	}
	if *first.DocumentType != taxonomy.DocumentLabPDF || *first.BodySystem != taxonomy.SystemNutrition {
		t.Errorf("classification = %s/%s, want lab_pdf/nutrition", *first.DocumentType, *first.BodySystem)
	}
	if got := h.docs.statuses(first.DocumentID); !slices.Equal(got, fullRun) {
		t.Errorf("statuses = %v, want %v", got, fullRun)
	}

	h.marker.Store([2]string{"35", "good"})

	second, err := h.upload(t, ctx, "user-1")
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if !second.Success || !*second.EvolutionDetected {
		t.Fatalf("second result = %+v, want completed with evolution", second)
	}

	rows, _ := h.ledger.History(ctx, findings.Identity{
		UserID:     "user-1",
		BodySystem: taxonomy.SystemNutrition,
		Key:        "vitamin_d_level",
	})
	if len(rows) != 2 {
		t.Fatalf("history = %d rows, want 2", len(rows))
	}

	latest, prior := rows[0], rows[1]
	if !latest.IsCurrent || prior.IsCurrent {
		t.Errorf("current flags = %v/%v, want true/false", latest.IsCurrent, prior.IsCurrent)
	}
	if latest.PreviousFindingID == nil || *latest.PreviousFindingID != prior.ID {
		t.Error("latest row is not linked to its predecessor")
	}
	if prior.SupersededBy == nil || *prior.SupersededBy != latest.ID {
		t.Error("prior row is not marked superseded by the latest")
	}
	if latest.EvolutionTrend == nil || *latest.EvolutionTrend != taxonomy.TrendImproved {
		t.Errorf("trend = %v, want improved", latest.EvolutionTrend)
	}
	if latest.DocumentID != second.DocumentID {
		t.Error("latest row does not reference the second document")
	}
}

func TestClassifierFailure(t *testing.T) {
	h := newHarness()
	h.rt.Classifier = classifierFunc(func(context.Context, analysis.Input) (*analysis.Classification, error) {
		return nil, errors.New("model unavailable")
	})

	result, err := h.upload(t, context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ProcessUpload error = %v, want nil", err)
	}
	if result.Success || result.Status != documents.StatusFailed {
		t.Fatalf("result = %+v, want failed", result)
	}
	if result.FindingsExtracted != nil {
		t.Errorf("FindingsExtracted = %d, want unset", *result.FindingsExtracted)
	}
	if len(h.ledger.rows) != 0 {
		t.Errorf("ledger has %d rows, want 0", len(h.ledger.rows))
	}

	doc := h.docs.get(result.DocumentID)
	if doc.Status != documents.StatusFailed {
		t.Errorf("document status = %s, want failed", doc.Status)
	}
	if doc.ErrorMessage == nil || !strings.Contains(*doc.ErrorMessage, analysis.ErrClassificationFailed.Error()) {
		t.Errorf("error message = %v, want classification failure", doc.ErrorMessage)
	}

	want := []documents.Status{documents.StatusPending, documents.StatusClassifying, documents.StatusFailed}
	if got := h.docs.statuses(result.DocumentID); !slices.Equal(got, want) {
		t.Errorf("statuses = %v, want %v", got, want)
	}
}

func TestAnalyzerTimeout(t *testing.T) {
	h := newHarness()
	h.rt.Timeouts.Analyze = 20 * time.Millisecond
	h.rt.Analyzer = analyzerFunc(func(ctx context.Context, _ analysis.Request) (*analysis.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	result, err := h.upload(t, context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ProcessUpload error = %v, want nil", err)
	}
	if result.Status != documents.StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if !strings.Contains(result.Error, "timed out") {
		t.Errorf("error = %q, want timeout", result.Error)
	}
}

func TestCorrelationFailureCompletes(t *testing.T) {
	h := newHarness()
	h.rt.Correlator = correlatorFunc(func(context.Context, string, string) (int, error) {
		return 0, errors.New("rules exploded")
	})

	result, err := h.upload(t, context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ProcessUpload: %v", err)
	}
	if !result.Success || result.Status != documents.StatusCompleted {
		t.Fatalf("result = %+v, want completed", result)
	}
	if *result.FindingsExtracted == 0 {
		t.Error("FindingsExtracted = 0, want > 0")
	}
	if result.Correlations != nil {
		t.Errorf("Correlations = %d, want unset", *result.Correlations)
	}
}

type recordEffect struct {
	name     string
	err      error
	findings atomic.Int32
}

func (e *recordEffect) Name() string { return e.name }

func (e *recordEffect) Apply(_ context.Context, ev engagement.Event) error {
	e.findings.Store(int32(len(ev.Findings)))
	return e.err
}

func TestSideEffectFailureCompletes(t *testing.T) {
	h := newHarness()
	broken := &recordEffect{name: "broken", err: errors.New("smtp down")}
	healthy := &recordEffect{name: "healthy"}
	h.rt.Engagement = engagement.NewDispatcher(engagement.Options{Concurrency: 2}, nil, discard(), broken, healthy)

	result, err := h.upload(t, context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ProcessUpload: %v", err)
	}
	if result.Status != documents.StatusCompleted {
		t.Fatalf("status = %s, want completed", result.Status)
	}
	if len(result.SideEffects) != 2 {
		t.Fatalf("side effects = %d, want 2", len(result.SideEffects))
	}
	if !errors.Is(result.SideEffects[0].Err, engagement.ErrSideEffectFailed) {
		t.Errorf("broken outcome = %v, want ErrSideEffectFailed", result.SideEffects[0].Err)
	}
	if result.SideEffects[1].Err != nil {
		t.Errorf("healthy outcome = %v, want nil", result.SideEffects[1].Err)
	}
	if healthy.findings.Load() != 1 {
		t.Errorf("event carried %d findings, want 1", healthy.findings.Load())
	}
}

func TestCancellationThenRetry(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())

	h.rt.Analyzer = analyzerFunc(func(ctx context.Context, _ analysis.Request) (*analysis.Result, error) {
		cancel()
		return nil, ctx.Err()
	})

	result, err := h.upload(t, ctx, "user-1")
	if !errors.Is(err, pipeline.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}

	doc := h.docs.get(result.DocumentID)
	if doc.Status != documents.StatusAnalyzing {
		t.Errorf("status = %s, want analyzing", doc.Status)
	}
	if doc.ErrorMessage == nil || *doc.ErrorMessage != documents.CancelledPrefix+context.Canceled.Error() {
		t.Errorf("error message = %v, want cancellation", doc.ErrorMessage)
	}
	if len(h.docs.interrupted) != 1 || h.docs.interrupted[0] != nil {
		t.Errorf("interrupt contexts = %v, want one live context", h.docs.interrupted)
	}

	h.rt.Analyzer = analyzerFunc(func(context.Context, analysis.Request) (*analysis.Result, error) {
		return labResult("20", "attention"), nil
	})

	retried, err := pipeline.New(h.rt).Retry(context.Background(), "user-1", result.DocumentID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Status != documents.StatusCompleted || retried.DocumentID != result.DocumentID {
		t.Errorf("retry result = %+v, want the same document completed", retried)
	}
}

func TestRetryAfterLateInterruptKeepsFindings(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())

	h.rt.Correlator = correlatorFunc(func(ctx context.Context, _, _ string) (int, error) {
		cancel()
		return 0, ctx.Err()
	})

	result, err := h.upload(t, ctx, "user-1")
	if !errors.Is(err, pipeline.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if got := h.docs.get(result.DocumentID).Status; got != documents.StatusDownstream {
		t.Fatalf("status = %s, want generating_downstream", got)
	}

	h.rt.Correlator = correlatorFunc(func(context.Context, string, string) (int, error) { return 0, nil })

	retried, err := pipeline.New(h.rt).ProcessUpload(context.Background(), pipeline.Upload{
		UserID:     "user-1",
		DocumentID: &result.DocumentID,
	})
	if err != nil {
		t.Fatalf("re-entry: %v", err)
	}
	if retried.Status != documents.StatusCompleted {
		t.Fatalf("status = %s, want completed", retried.Status)
	}
	if *retried.EvolutionDetected {
		t.Error("re-entry superseded its own finding")
	}
	if len(h.ledger.rows) != 1 {
		t.Errorf("ledger has %d rows, want 1", len(h.ledger.rows))
	}
}

func TestRetryRejected(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	done, err := h.upload(t, ctx, "user-1")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	sys := pipeline.New(h.rt)

	tests := []struct {
		name   string
		userID string
		want   error
	}{
		{"completed document", "user-1", pipeline.ErrNotRetryable},
		{"another user's document", "user-2", documents.ErrNotFound},
		{"no caller", "", pipeline.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sys.Retry(ctx, tt.userID, done.DocumentID)
			if !errors.Is(err, tt.want) {
				t.Errorf("Retry error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestProcessUploadValidation(t *testing.T) {
	sys := pipeline.New(newHarness().rt)

	tests := []struct {
		name string
		up   pipeline.Upload
		want error
	}{
		{"no user", pipeline.Upload{FileRef: "ref"}, pipeline.ErrUnauthenticated},
		{"no file", pipeline.Upload{UserID: "user-1"}, pipeline.ErrInvalidUpload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sys.ProcessUpload(context.Background(), tt.up); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUserContextPerRun(t *testing.T) {
	h := newHarness()

	var languages []string
	h.rt.Analyzer = analyzerFunc(func(_ context.Context, req analysis.Request) (*analysis.Result, error) {
		languages = append(languages, req.User.Language)
		return labResult("20", "attention"), nil
	})
	h.rt.Correlator = correlatorFunc(func(_ context.Context, _, language string) (int, error) {
		languages = append(languages, language)
		return 0, nil
	})

	if _, err := h.upload(t, context.Background(), "user-1"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := h.upload(t, context.Background(), "user-2"); err != nil {
		t.Fatalf("upload without profile: %v", err)
	}

	want := []string{"es-MX", "es-MX", users.DefaultLanguage, users.DefaultLanguage}
	if !slices.Equal(languages, want) {
		t.Errorf("languages = %v, want %v", languages, want)
	}
}
