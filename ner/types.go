package ner

import "fmt"

// TokenPrediction is the model's verdict for a single token: the
// highest-probability label and its probability. Predictions are owned by
// one Classify call and discarded after aggregation.
type TokenPrediction struct {
	Index      int
	Label      string
	Confidence float64
}

// LineResult is the document-level verdict for one input line. It is the
// stable structure consumed by the report emitters and the history sink.
type LineResult struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Flagged    bool    `json:"flagged"`
}

// FailureKind says which stage of classification failed.
type FailureKind string

const (
	FailureTokenize  FailureKind = "tokenize"
	FailureSession   FailureKind = "session"
	FailureInference FailureKind = "inference"
)

// ClassifyError is a structured classification failure. Callers that want
// to distinguish "no entities found" from "the engine failed" check for
// this type; batch runners convert it into NeutralResult so a single bad
// line never aborts a run.
type ClassifyError struct {
	Kind FailureKind
	Err  error
}

func (e *ClassifyError) Error() string {
	return fmt.Sprintf("classification failed (%s): %v", e.Kind, e.Err)
}

func (e *ClassifyError) Unwrap() error {
	return e.Err
}

// NeutralResult is the verdict used when classification fails: no
// entities, zero confidence, not flagged.
func NeutralResult(text string) LineResult {
	return LineResult{
		Text:       text,
		Label:      LabelBenign,
		Confidence: 0.0,
		Flagged:    false,
	}
}
