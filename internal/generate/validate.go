package generate

import (
	"context"
	"fmt"
	"strings"

	"cardgen/internal/llm"
	"cardgen/pkg/schema"
)

// ValidateInput carries one batch of generated characteristics together
// with the constraints they were generated under.
type ValidateInput struct {
	Characteristics []schema.Characteristic
	Fields          []schema.AttributeSchema
	Allowed         map[string][]string
	Limits          map[string]schema.Limit
	Locked          map[string]bool
}

// ScoreCharacteristics computes the deterministic rule score for a
// batch. It never calls the model; the same input always produces the
// same score and issue list.
func ScoreCharacteristics(in ValidateInput) schema.ValidationResult {
	score := schema.ScoreMax
	var issues []string

	byName := make(map[string]schema.Characteristic, len(in.Characteristics))
	for _, c := range in.Characteristics {
		if c.Name != "" {
			byName[c.Name] = c
		}
	}

	for _, f := range in.Fields {
		if !f.Required {
			continue
		}
		if c, ok := byName[f.Name]; !ok || c.Empty() {
			issues = append(issues, fmt.Sprintf("%s: required field %q is empty", schema.IssueRequiredEmpty, f.Name))
			score -= schema.PenaltyRequiredEmpty
		}
	}

	dictPenalty := 0
	for _, c := range in.Characteristics {
		if c.Name == "" {
			continue
		}

		dict := trimValues(in.Allowed[c.Name])
		if len(dict) > 0 {
			lower := make(map[string]string, len(dict))
			for _, d := range dict {
				lower[strings.ToLower(d)] = d
			}
			var bad []string
			for _, v := range trimValues(c.Value) {
				if _, ok := matchDictionary(v, dict, lower); !ok {
					bad = append(bad, v)
				}
			}
			if len(bad) > 0 {
				issues = append(issues, fmt.Sprintf("%s: %s has values outside the dictionary: %s",
					schema.IssueOutOfDictionary, c.Name, strings.Join(bad, ", ")))
				dictPenalty += schema.PenaltyOutOfDictionary
			}
		}

		if limit := in.Limits[c.Name]; limit.Bounded() && len(trimValues(c.Value)) > limit.Max {
			issues = append(issues, fmt.Sprintf("%s: %s has %d values, max=%d",
				schema.IssueOverLimit, c.Name, len(trimValues(c.Value)), limit.Max))
			score -= schema.PenaltyCardinality
		}

		if in.Locked[c.Name] && !c.Empty() {
			issues = append(issues, fmt.Sprintf("%s: %s is locked and must not be generated",
				schema.IssueLockedField, c.Name))
			score -= schema.PenaltyLockedField
		}
	}

	if dictPenalty > schema.OutOfDictionaryCap {
		dictPenalty = schema.OutOfDictionaryCap
	}
	score -= dictPenalty

	return schema.ValidationResult{
		Score:  schema.ClampScore(score),
		Issues: issues,
	}
}

// Validator scores a batch of characteristics. With a client it adds a
// model review pass on top of the deterministic rules; without one it
// is fully offline.
type Validator struct {
	client llm.Completer
	log    func(string)
}

// NewValidator creates a validator. client may be nil to disable the
// model review pass; log may be nil.
func NewValidator(client llm.Completer, log func(string)) *Validator {
	return &Validator{client: client, log: log}
}

func (v *Validator) logf(format string, args ...any) {
	if v.log != nil {
		v.log(fmt.Sprintf(format, args...))
	}
}

type reviewReply struct {
	Score           int                     `json:"score"`
	Issues          []string                `json:"issues"`
	Characteristics []schema.Characteristic `json:"characteristics"`
}

// Validate normalizes the batch through the dictionary enforcer, scores
// it, and optionally asks the model to review. A failed review call
// yields score 0 with a diagnostic issue; the enforced characteristics
// are kept so the caller can still roll forward with the best attempt.
func (v *Validator) Validate(ctx context.Context, in ValidateInput) schema.ValidationResult {
	enforced, violations := EnforceDictionary(in.Characteristics, in.Allowed, in.Limits)
	if len(violations) > 0 {
		v.logf("pre-validation corrections: %d", len(violations))
	}
	in.Characteristics = enforced

	base := ScoreCharacteristics(in)
	base.Characteristics = enforced

	if v.client == nil {
		return base
	}

	reply, err := llm.CompleteInto[reviewReply](ctx, v.client, llm.Request{
		System: strings.TrimSpace(reviewPrompt),
		Payload: map[string]any{
			"characteristics": enforced,
			"charcs_meta":     in.Fields,
			"limits":          in.Limits,
			"allowed_values":  in.Allowed,
			"locked_fields":   lockedNames(in.Locked),
		},
		MaxTokens: 8000,
	})
	if err != nil {
		v.logf("model review failed: %v", err)
		return schema.ValidationResult{
			Score:           0,
			Issues:          []string{fmt.Sprintf("model review failed: %v", err)},
			Characteristics: enforced,
		}
	}

	final := enforced
	if len(reply.Characteristics) > 0 {
		// The review may have corrected values; they go through the
		// enforcer again so a bad correction cannot reintroduce
		// out-of-dictionary values.
		corrected, postViolations := EnforceDictionary(reply.Characteristics, in.Allowed, in.Limits)
		final = corrected
		if len(postViolations) > 0 {
			penalty := len(postViolations) * 5
			if penalty > 30 {
				penalty = 30
			}
			reply.Score -= penalty
			reply.Issues = append(reply.Issues, postViolations...)
			v.logf("review corrections violated rules: -%d score", penalty)
		}
	}

	score := schema.ClampScore(reply.Score)
	if base.Score < score {
		// The deterministic rules are authoritative; the model cannot
		// score a batch above them.
		score = base.Score
	}

	return schema.ValidationResult{
		Score:           score,
		Issues:          append(base.Issues, reply.Issues...),
		Characteristics: final,
	}
}

func lockedNames(locked map[string]bool) []string {
	names := make([]string, 0, len(locked))
	for name, on := range locked {
		if on {
			names = append(names, name)
		}
	}
	return names
}
