package analysis_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/JaimeStill/vitalis/internal/analysis"
	"github.com/JaimeStill/vitalis/internal/prompts"
	"github.com/JaimeStill/vitalis/internal/taxonomy"
	"github.com/JaimeStill/vitalis/internal/users"
	"github.com/JaimeStill/vitalis/pkg/lifecycle"
	"github.com/JaimeStill/vitalis/pkg/storage"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type memStore struct {
	blobs map[string][]byte
}

func (m *memStore) Start(*lifecycle.Coordinator) error { return nil }

func (m *memStore) Upload(_ context.Context, key string, r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.blobs[key] = data
	return nil
}

func (m *memStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.blobs, key)
	return nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.blobs[key]
	return ok, nil
}

type fakeGenerator struct {
	response string
	err      error

	system      string
	prompt      string
	attachments []analysis.Attachment
}

func (f *fakeGenerator) Generate(_ context.Context, system, prompt string, attachments ...analysis.Attachment) (string, error) {
	f.system, f.prompt, f.attachments = system, prompt, attachments
	return f.response, f.err
}

func TestFloatUnmarshal(t *testing.T) {
	tests := []struct {
		input string
		want  analysis.Float
	}{
		{`18`, analysis.Some(18)},
		{`"35 ng/mL"`, analysis.Some(35)},
		{`"4,5"`, analysis.Some(4.5)},
		{`"<0.1"`, analysis.Some(0.1)},
		{`null`, analysis.Float{}},
		{`""`, analysis.Float{}},
		{`"not measured"`, analysis.Float{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got analysis.Float
			if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRawClassificationNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      analysis.RawClassification
		wantType taxonomy.DocumentType
		wantSys  taxonomy.BodySystem
		wantConf float64
	}{
		{
			name:     "known values pass through",
			raw:      analysis.RawClassification{DocumentType: "lab_pdf", BodySystem: "blood", Confidence: analysis.Some(0.9)},
			wantType: taxonomy.DocumentLabPDF,
			wantSys:  taxonomy.SystemBlood,
			wantConf: 0.9,
		},
		{
			name:     "unknown values are coerced",
			raw:      analysis.RawClassification{DocumentType: "x-ray", BodySystem: "soul", Confidence: analysis.Some(-0.3)},
			wantType: taxonomy.DocumentOther,
			wantSys:  taxonomy.SystemGeneral,
			wantConf: 0,
		},
		{
			name:     "percent confidence is rescaled",
			raw:      analysis.RawClassification{DocumentType: "Food Photo", BodySystem: "Nutrition", Confidence: analysis.Some(85)},
			wantType: taxonomy.DocumentFoodPhoto,
			wantSys:  taxonomy.SystemNutrition,
			wantConf: 0.85,
		},
		{
			name:     "out of range confidence is clamped",
			raw:      analysis.RawClassification{Confidence: analysis.Some(250)},
			wantType: taxonomy.DocumentOther,
			wantSys:  taxonomy.SystemGeneral,
			wantConf: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.raw.Normalize()
			if got.DocumentType != tt.wantType {
				t.Errorf("DocumentType = %q, want %q", got.DocumentType, tt.wantType)
			}
			if got.BodySystem != tt.wantSys {
				t.Errorf("BodySystem = %q, want %q", got.BodySystem, tt.wantSys)
			}
			if got.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
			if got.DetectedElements == nil || got.SuggestedAnalysis == nil {
				t.Error("list fields should be empty, not nil")
			}
		})
	}
}

func TestDecodeResult(t *testing.T) {
	t.Run("lab markers", func(t *testing.T) {
		raw := []byte(`{
			"summary": "Low vitamin D",
			"health_score": 62,
			"concerns": ["vitamin D deficiency"],
			"unknown_field": true,
			"details": {
				"collected_at": "2026-01-10",
				"markers": [{"key": "vitamin_d_level", "title": "Vitamin D", "value": "18", "value_numeric": "18", "unit": "ng/mL", "status": "concern"}]
			}
		}`)

		res, err := analysis.DecodeResult(analysis.VariantLab, raw)
		if err != nil {
			t.Fatalf("DecodeResult: %v", err)
		}

		lab, ok := res.Details.(*analysis.LabDetails)
		if !ok {
			t.Fatalf("Details = %T, want *LabDetails", res.Details)
		}
		if len(lab.Markers) != 1 || lab.Markers[0].ValueNumeric != analysis.Some(18) {
			t.Errorf("markers = %+v", lab.Markers)
		}
		if res.HealthScore != analysis.Some(62) || res.Summary != "Low vitamin D" {
			t.Errorf("common = %+v", res.Common)
		}
		if res.Variant != analysis.VariantLab {
			t.Errorf("Variant = %q, want lab", res.Variant)
		}
	})

	t.Run("missing details yields empty details", func(t *testing.T) {
		res, err := analysis.DecodeResult(analysis.VariantDrink, []byte(`{"summary": "water"}`))
		if err != nil {
			t.Fatalf("DecodeResult: %v", err)
		}
		if _, ok := res.Details.(*analysis.DrinkDetails); !ok {
			t.Errorf("Details = %T, want *DrinkDetails", res.Details)
		}
	})

	t.Run("unknown variant decodes as general", func(t *testing.T) {
		res, err := analysis.DecodeResult("tattoo", []byte(`{"details": {"diagnoses": ["eczema"]}}`))
		if err != nil {
			t.Fatalf("DecodeResult: %v", err)
		}
		g, ok := res.Details.(*analysis.GeneralDetails)
		if !ok || len(g.Diagnoses) != 1 {
			t.Errorf("Details = %+v", res.Details)
		}
		if res.Variant != analysis.VariantGeneral {
			t.Errorf("Variant = %q, want general", res.Variant)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := analysis.DecodeResult(analysis.VariantFood, []byte(`{`)); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRoute(t *testing.T) {
	tests := []struct {
		dt   taxonomy.DocumentType
		want analysis.Variant
	}{
		{taxonomy.DocumentFoodPhoto, analysis.VariantFood},
		{taxonomy.DocumentSupplement, analysis.VariantSupplement},
		{taxonomy.DocumentDrink, analysis.VariantDrink},
		{taxonomy.DocumentLabPDF, analysis.VariantLab},
		{taxonomy.DocumentLabHandwritten, analysis.VariantLab},
		{taxonomy.DocumentMedication, analysis.VariantMedication},
		{taxonomy.DocumentSkincareProduct, analysis.VariantSkincare},
		{taxonomy.DocumentClinicalReport, analysis.VariantGeneral},
		{taxonomy.DocumentOther, analysis.VariantGeneral},
		{taxonomy.DocumentType("hologram"), analysis.VariantGeneral},
	}

	for _, tt := range tests {
		t.Run(string(tt.dt), func(t *testing.T) {
			if got := analysis.Route(tt.dt); got != tt.want {
				t.Errorf("Route(%q) = %q, want %q", tt.dt, got, tt.want)
			}
		})
	}
}

type stubAnalyzer struct {
	variant analysis.Variant
	calls   int
}

func (s *stubAnalyzer) Analyze(context.Context, analysis.Request) (*analysis.Result, error) {
	s.calls++
	return &analysis.Result{Variant: s.variant, Details: analysis.NewDetails(s.variant)}, nil
}

func TestRouter(t *testing.T) {
	t.Run("requires general analyzer", func(t *testing.T) {
		_, err := analysis.NewRouter(map[analysis.Variant]analysis.Analyzer{
			analysis.VariantLab: &stubAnalyzer{variant: analysis.VariantLab},
		})
		if !errors.Is(err, analysis.ErrNoAnalyzer) {
			t.Errorf("err = %v, want ErrNoAnalyzer", err)
		}
	})

	t.Run("dispatches and falls back", func(t *testing.T) {
		lab := &stubAnalyzer{variant: analysis.VariantLab}
		general := &stubAnalyzer{variant: analysis.VariantGeneral}

		r, err := analysis.NewRouter(map[analysis.Variant]analysis.Analyzer{
			analysis.VariantLab:     lab,
			analysis.VariantGeneral: general,
		})
		if err != nil {
			t.Fatalf("NewRouter: %v", err)
		}

		ctx := context.Background()
		r.Analyze(ctx, analysis.Request{DocumentType: taxonomy.DocumentLabHandwritten})
		r.Analyze(ctx, analysis.Request{DocumentType: taxonomy.DocumentFoodPhoto})

		if lab.calls != 1 {
			t.Errorf("lab calls = %d, want 1", lab.calls)
		}
		if general.calls != 1 {
			t.Errorf("general calls = %d, want 1 (fallback for unregistered food)", general.calls)
		}
	})
}

func TestModelClassifier(t *testing.T) {
	store := &memStore{blobs: map[string][]byte{"uploads/a.pdf": []byte("%PDF-1.7")}}
	in := analysis.Input{FileRef: "uploads/a.pdf", FileName: "a.pdf", MimeType: "application/pdf"}

	t.Run("parses fenced response and coerces", func(t *testing.T) {
		gen := &fakeGenerator{response: "```json\n{\"document_type\":\"blood test\",\"body_system\":\"blood\",\"confidence\":0.7}\n```"}
		c := analysis.NewModelClassifier(gen, prompts.Defaults{}, store, discard())

		got, err := c.Classify(context.Background(), in)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if got.DocumentType != taxonomy.DocumentOther || got.BodySystem != taxonomy.SystemBlood {
			t.Errorf("classification = %+v", got)
		}
		if len(gen.attachments) != 1 || gen.attachments[0].MimeType != "application/pdf" || string(gen.attachments[0].Data) != "%PDF-1.7" {
			t.Errorf("attachments = %+v", gen.attachments)
		}
		if !strings.Contains(gen.system, "document_type") {
			t.Error("system prompt should include the output spec")
		}
	})

	t.Run("generator failure", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("quota exceeded")}
		c := analysis.NewModelClassifier(gen, prompts.Defaults{}, store, discard())

		if _, err := c.Classify(context.Background(), in); !errors.Is(err, analysis.ErrClassificationFailed) {
			t.Errorf("err = %v, want ErrClassificationFailed", err)
		}
	})

	t.Run("missing blob", func(t *testing.T) {
		c := analysis.NewModelClassifier(&fakeGenerator{}, prompts.Defaults{}, store, discard())

		_, err := c.Classify(context.Background(), analysis.Input{FileRef: "uploads/missing"})
		if !errors.Is(err, analysis.ErrClassificationFailed) || !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrClassificationFailed wrapping ErrNotFound", err)
		}
	})

	t.Run("unparseable response", func(t *testing.T) {
		gen := &fakeGenerator{response: "I cannot help with that."}
		c := analysis.NewModelClassifier(gen, prompts.Defaults{}, store, discard())

		if _, err := c.Classify(context.Background(), in); !errors.Is(err, analysis.ErrClassificationFailed) {
			t.Errorf("err = %v, want ErrClassificationFailed", err)
		}
	})
}

func TestModelAnalyzer(t *testing.T) {
	store := &memStore{blobs: map[string][]byte{"uploads/lab.pdf": []byte("%PDF")}}
	gen := &fakeGenerator{response: `{"summary":"ok","details":{"markers":[{"title":"Ferritin","value":"40"}]}}`}

	a := analysis.NewModelAnalyzer(analysis.VariantLab, gen, prompts.Defaults{}, store, discard())

	res, err := a.Analyze(context.Background(), analysis.Request{
		Input:        analysis.Input{FileRef: "uploads/lab.pdf", FileName: "lab.pdf", MimeType: "application/pdf"},
		DocumentType: taxonomy.DocumentLabPDF,
		BodySystem:   taxonomy.SystemBlood,
		User:         users.Context{Language: "pt", Allergies: []string{"penicillin"}},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if _, ok := res.Details.(*analysis.LabDetails); !ok {
		t.Errorf("Details = %T, want *LabDetails", res.Details)
	}
	if !strings.Contains(gen.system, "penicillin") || !strings.Contains(gen.system, `"document_type": "lab_pdf"`) {
		t.Errorf("system prompt missing user or classification context:\n%s", gen.system)
	}

	gen.err = errors.New("timeout")
	if _, err := a.Analyze(context.Background(), analysis.Request{Input: analysis.Input{FileRef: "uploads/lab.pdf"}}); !errors.Is(err, analysis.ErrAnalysisFailed) {
		t.Errorf("err = %v, want ErrAnalysisFailed", err)
	}
}
