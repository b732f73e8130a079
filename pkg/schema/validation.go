package schema

// ValidationResult is one scoring pass over a characteristic batch.
// Produced fresh each iteration, never mutated in place.
type ValidationResult struct {
	Score  int      `json:"score"`
	Issues []string `json:"issues"`
	// Characteristics optionally carries a corrected list proposed by the
	// model review. It is re-normalized and re-checked before being
	// trusted; self-correction is never taken on faith.
	Characteristics []Characteristic `json:"characteristics,omitempty"`
}

// RefinementAttempt is one entry of a refinement run's append-only history.
type RefinementAttempt struct {
	Iteration       int              `json:"iteration"`
	Characteristics []Characteristic `json:"characteristics"`
	Score           int              `json:"score"`
	Issues          []string         `json:"issues"`
}

// BestAttempt returns the highest-scoring attempt, or nil for an empty
// history. Earlier attempts win ties so a later regenerate cannot displace
// equal prior data.
func BestAttempt(history []RefinementAttempt) *RefinementAttempt {
	var best *RefinementAttempt
	for i := range history {
		if best == nil || history[i].Score > best.Score {
			best = &history[i]
		}
	}
	return best
}
