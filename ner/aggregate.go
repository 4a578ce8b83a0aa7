package ner

import "math"

// highConfidenceThreshold gates the Flagged bit. It is compared against
// the line's overall average confidence, not the winning label's own
// average.
const highConfidenceThreshold = 0.80

// Aggregate collapses per-token predictions into a single line verdict.
//
// The overall average is the mean of every token's top probability. Tokens
// labelled LabelNone are then excluded and the remainder grouped by label
// in first-seen order; the label with the highest per-label mean wins,
// with ties resolved in favor of the label seen first. A line with no
// entity tokens falls back to BENIGN paired with the overall average.
func Aggregate(text string, preds []TokenPrediction) LineResult {
	if len(preds) == 0 {
		return NeutralResult(text)
	}

	var total float64
	for _, p := range preds {
		total += p.Confidence
	}
	overallAvg := total / float64(len(preds))

	var order []string
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, p := range preds {
		if p.Label == LabelNone {
			continue
		}
		if _, seen := sums[p.Label]; !seen {
			order = append(order, p.Label)
		}
		sums[p.Label] += p.Confidence
		counts[p.Label]++
	}

	if len(order) == 0 {
		return LineResult{
			Text:       text,
			Label:      LabelBenign,
			Confidence: overallAvg,
			Flagged:    false,
		}
	}

	winner := ""
	winnerMean := -math.MaxFloat64
	for _, label := range order {
		mean := sums[label] / float64(counts[label])
		// Strict comparison keeps the first-seen label on ties.
		if mean > winnerMean {
			winner = label
			winnerMean = mean
		}
	}

	return LineResult{
		Text:       text,
		Label:      winner,
		Confidence: winnerMean,
		Flagged:    winner != LabelBenign && overallAvg > highConfidenceThreshold,
	}
}

// softmax converts one token's logits into a probability distribution.
func softmax(logits []float32) []float64 {
	probs := make([]float64, len(logits))
	maxLogit := float64(-math.MaxFloat32)
	for _, l := range logits {
		if float64(l) > maxLogit {
			maxLogit = float64(l)
		}
	}
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// argmax returns the index of the largest probability and its value.
func argmax(probs []float64) (int, float64) {
	best := 0
	bestProb := -math.MaxFloat64
	for i, p := range probs {
		if p > bestProb {
			best = i
			bestProb = p
		}
	}
	return best, bestProb
}
