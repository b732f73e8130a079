package schema

// Score bounds and penalty classes for the characteristics validator.
// The penalty values are tunable constants, not a contract; they reproduce
// the classes the production scorer converged on.
const (
	ScoreMax = 100
	ScoreMin = 0

	// ScoreThreshold accepts a refinement attempt without further cycles.
	ScoreThreshold = 90

	// PenaltyRequiredEmpty applies per required field left without a value.
	PenaltyRequiredEmpty = 25

	// PenaltyOutOfDictionary applies per field containing values that do
	// not resolve to a dictionary entry, capped at OutOfDictionaryCap in
	// aggregate so a single bad batch cannot zero the score on its own.
	PenaltyOutOfDictionary = 20
	OutOfDictionaryCap     = 30

	// PenaltyCardinality applies per field exceeding its element limit.
	PenaltyCardinality = 15

	// PenaltyLockedField applies per locked field the generator touched.
	PenaltyLockedField = 25
)

// Refinement loop bounds.
const (
	// DefaultMaxIterations bounds generate→validate→refine cycles per batch.
	DefaultMaxIterations = 3

	// RegressionMargin is how far below the best-so-far a score must fall,
	// twice in a row, before the loop stops early and rolls back.
	RegressionMargin = 10

	// FieldBatchSize bounds how many attributes go into one generation call.
	FieldBatchSize = 10

	// DictionarySampleSize bounds how many allowed values are quoted in the
	// per-field strict instructions. Large dictionaries are truncated to
	// control prompt size; the rule enforcer supplies actual correctness.
	DictionarySampleSize = 50
)

// Issue codes surfaced by the deterministic scorer.
const (
	IssueRequiredEmpty   = "REQUIRED_EMPTY"
	IssueOutOfDictionary = "OUT_OF_DICTIONARY"
	IssueOverLimit       = "OVER_LIMIT"
	IssueLockedField     = "LOCKED_FIELD"
)

// ClampScore bounds a score to [ScoreMin, ScoreMax].
func ClampScore(s int) int {
	if s < ScoreMin {
		return ScoreMin
	}
	if s > ScoreMax {
		return ScoreMax
	}
	return s
}
