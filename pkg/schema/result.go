package schema

import "time"

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Machine-readable error classifications for failed runs.
const (
	ErrorTypeConfigMissing = "category_config_not_found"
	ErrorTypeNotFound      = "card_not_found"
	ErrorTypeUnexpected    = "unexpected"
)

// TextAttempt is one iteration of a title or description refinement loop.
type TextAttempt struct {
	Attempt int      `json:"attempt"`
	Content string   `json:"content"`
	Errors  []string `json:"errors"`
	Valid   bool     `json:"valid"`
	Score   int      `json:"score"`
}

// TextResult is the outcome of a single-field text refinement loop.
type TextResult struct {
	Old        string        `json:"old"`
	New        string        `json:"new"`
	Success    bool          `json:"success"`
	RolledBack bool          `json:"rolled_back,omitempty"`
	Warnings   []string      `json:"warnings"`
	Score      int           `json:"score"`
	Attempts   int           `json:"attempts"`
	History    []TextAttempt `json:"history,omitempty"`
}

// FieldStats summarizes how the final characteristic set was produced.
type FieldStats struct {
	FixedFields              int `json:"fixed_fields"`
	ConditionalSkip          int `json:"conditional_skip"`
	ConditionalFill          int `json:"conditional_fill"`
	GeneratedFields          int `json:"generated_fields"`
	PrimaryFieldsGenerated   int `json:"primary_fields_generated"`
	SecondaryFieldsGenerated int `json:"secondary_fields_generated"`
	ConditionalFieldsRemoved int `json:"conditional_fields_removed"`
	TotalFields              int `json:"total_fields"`
	RequiredFields           int `json:"required_fields"`
	OptionalFields           int `json:"optional_fields"`
	RequiredFilled           int `json:"required_filled"`
	RequiredMissing          int `json:"required_missing"`
	TargetFields             int `json:"target_fields"`
	TargetFilled             int `json:"target_filled"`
	FixedFilled              int `json:"fixed_filled"`
	TotalFilled              int `json:"total_filled"`
}

// CardResult bundles everything one pipeline run produced for a product.
// Failed runs still yield a CardResult with Status set to StatusError and
// the classification in ErrorType; a run never ends in a silent empty
// success.
type CardResult struct {
	RunID       string `json:"run_id"`
	Status      string `json:"status"`
	ErrorType   string `json:"error_type,omitempty"`
	Message     string `json:"message,omitempty"`
	Detail      string `json:"detail,omitempty"`
	Article     string `json:"article"`
	NmID        int64  `json:"nmID,omitempty"`
	CategoryID  int64  `json:"subjectID,omitempty"`
	SubjectName string `json:"subjectName,omitempty"`

	// AvailableCategoryIDs is populated on category_config_not_found so a
	// caller can surface which categories are configured.
	AvailableCategoryIDs []int64 `json:"available_category_ids,omitempty"`

	OldTitle           string           `json:"old_title,omitempty"`
	OldDescription     string           `json:"old_description,omitempty"`
	OldCharacteristics []Characteristic `json:"old_characteristics,omitempty"`

	PhotoURLs        []string `json:"photo_urls,omitempty"`
	ImageDescription string   `json:"image_description,omitempty"`

	NewTitle           string           `json:"new_title,omitempty"`
	NewDescription     string           `json:"new_description,omitempty"`
	NewCharacteristics []Characteristic `json:"new_characteristics,omitempty"`

	DetectedColors []string `json:"detected_colors,omitempty"`

	ValidationScore  int      `json:"validation_score"`
	ValidationIssues []string `json:"validation_issues,omitempty"`
	IterationsDone   int      `json:"iterations_done"`

	Title       *TextResult `json:"title,omitempty"`
	Description *TextResult `json:"description,omitempty"`

	FixedRow map[string]string `json:"fixed_row,omitempty"`
	Stats    FieldStats        `json:"stats"`
}

// BatchItem is one product's record within a batch result.
type BatchItem struct {
	Article string        `json:"article"`
	Result  *CardResult   `json:"result,omitempty"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// BatchResult aggregates a batch invocation. Items never share mutable
// state; the result is discarded after its consumer reads it.
type BatchResult struct {
	BatchID    string        `json:"batch_id"`
	Total      int           `json:"total"`
	Completed  int           `json:"completed"`
	Failed     int           `json:"failed"`
	Items      []BatchItem   `json:"items"`
	Elapsed    time.Duration `json:"elapsed"`
	PerItemAvg time.Duration `json:"per_item_avg"`
}

// Finding is one coded message from the pre-flight card audit.
type Finding struct {
	Level   string `json:"level"` // "error" or "warning"
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
