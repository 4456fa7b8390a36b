package analysis

import "errors"

// Port failures. Adapters wrap the underlying cause with %w.
var (
	ErrClassificationFailed = errors.New("classification failed")
	ErrAnalysisFailed       = errors.New("analysis failed")
	ErrNoAnalyzer           = errors.New("no analyzer registered for the general variant")
)
