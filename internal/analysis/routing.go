package analysis

import (
	"context"
	"fmt"

	"github.com/JaimeStill/vitalis/internal/taxonomy"
	"github.com/JaimeStill/vitalis/internal/users"
)

// Request is the Analyzer port input.
type Request struct {
	Input
	DocumentType taxonomy.DocumentType `json:"document_type"`
	BodySystem   taxonomy.BodySystem   `json:"body_system"`
	User         users.Context         `json:"user"`
}

// Analyzer extracts a structured result from a classified file.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

var routes = map[taxonomy.DocumentType]Variant{
	taxonomy.DocumentFoodPhoto:       VariantFood,
	taxonomy.DocumentSupplement:      VariantSupplement,
	taxonomy.DocumentDrink:           VariantDrink,
	taxonomy.DocumentLabPDF:          VariantLab,
	taxonomy.DocumentLabHandwritten:  VariantLab,
	taxonomy.DocumentMedication:      VariantMedication,
	taxonomy.DocumentSkincareProduct: VariantSkincare,
	taxonomy.DocumentClinicalReport:  VariantGeneral,
	taxonomy.DocumentOther:           VariantGeneral,
}

// Route returns the analyzer variant for a document type. Unknown types
// route to the general analyzer.
func Route(dt taxonomy.DocumentType) Variant {
	if v, ok := routes[dt]; ok {
		return v
	}
	return VariantGeneral
}

// Router dispatches requests to the analyzer registered for the routed
// variant, falling back to the general analyzer when none is registered.
type Router struct {
	analyzers map[Variant]Analyzer
}

// NewRouter requires an analyzer for VariantGeneral.
func NewRouter(analyzers map[Variant]Analyzer) (*Router, error) {
	if analyzers[VariantGeneral] == nil {
		return nil, ErrNoAnalyzer
	}
	return &Router{analyzers: analyzers}, nil
}

// Resolve returns the variant and analyzer that will handle dt.
func (r *Router) Resolve(dt taxonomy.DocumentType) (Variant, Analyzer) {
	v := Route(dt)
	if a, ok := r.analyzers[v]; ok && a != nil {
		return v, a
	}
	return VariantGeneral, r.analyzers[VariantGeneral]
}

// Analyze implements Analyzer by routing on req.DocumentType.
func (r *Router) Analyze(ctx context.Context, req Request) (*Result, error) {
	v, a := r.Resolve(req.DocumentType)

	res, err := a.Analyze(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s analyzer: %w", v, err)
	}
	return res, nil
}
