package generate

import (
	"context"
	"fmt"
	"strings"

	"cardgen/internal/llm"
	"cardgen/pkg/schema"
)

// GenerateInput carries everything one generation call needs.
type GenerateInput struct {
	ImageDescription string
	Fields           []schema.AttributeSchema
	Allowed          map[string][]string
	Limits           map[string]schema.Limit
	DetectedColors   []string
	FixedData        map[string][]string
	SubjectName      string
	// AllFieldNames is the full field list of the run, not just this
	// batch, so the model sees what its batch is part of.
	AllFieldNames []string
}

// Generator produces characteristic values constrained by per-field
// dictionaries and limits.
type Generator struct {
	client llm.Completer
	log    func(string)
}

// NewGenerator creates a generator. log may be nil.
func NewGenerator(client llm.Completer, log func(string)) *Generator {
	return &Generator{client: client, log: log}
}

func (g *Generator) logf(format string, args ...any) {
	if g.log != nil {
		g.log(fmt.Sprintf(format, args...))
	}
}

type characteristicsReply struct {
	Characteristics []schema.Characteristic `json:"characteristics"`
}

// Generate asks the model to fill the batch and forces the reply back
// inside the dictionaries. A failed call returns an empty list; the
// refinement loop treats that as a zero-score attempt rather than an
// abort.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) []schema.Characteristic {
	g.logf("generating characteristics: %d fields", len(in.Fields))

	reply, err := llm.CompleteInto[characteristicsReply](ctx, g.client, llm.Request{
		System: strings.TrimSpace(characteristicsPrompt),
		Payload: map[string]any{
			"image_description":   in.ImageDescription,
			"charcs_meta":         in.Fields,
			"limits":              in.Limits,
			"allowed_values":      sampleAllowed(in.Allowed),
			"detected_colors":     in.DetectedColors,
			"fixed_data":          in.FixedData,
			"subject_name":        in.SubjectName,
			"all_field_names":     in.AllFieldNames,
			"strict_instructions": buildStrictInstructions(in.Allowed, in.Limits),
		},
		MaxTokens: 16000,
	})
	if err != nil {
		g.logf("characteristics generation error: %v", err)
		return nil
	}

	chars, violations := EnforceDictionary(reply.Characteristics, in.Allowed, in.Limits)
	for _, v := range violations {
		g.logf("rule violation corrected: %s", v)
	}

	filled := 0
	for _, c := range chars {
		if !c.Empty() {
			filled++
		}
	}
	g.logf("generated %d characteristics (%d filled)", len(chars), filled)

	return chars
}

// buildStrictInstructions writes one explicit rule per field so the
// model cannot claim the constraints were ambiguous. Dictionaries are
// sampled; the enforcer supplies actual correctness.
func buildStrictInstructions(allowed map[string][]string, limits map[string]schema.Limit) map[string]any {
	instructions := make(map[string]any, len(allowed))

	for name, values := range allowed {
		limit := limits[name]
		maxCount := limit.Max
		if maxCount <= 0 {
			maxCount = len(values)
		}

		if len(values) == 0 {
			instructions[name] = map[string]any{
				"type":      "free_text",
				"max_count": maxCount,
				"rule":      fmt.Sprintf("Свободный текст. Максимум %d элементов.", maxCount),
			}
			continue
		}

		sample := values
		if len(sample) > schema.DictionarySampleSize {
			sample = sample[:schema.DictionarySampleSize]
		}
		instructions[name] = map[string]any{
			"allowed_values": sample,
			"max_count":      maxCount,
			"rule": fmt.Sprintf("ТОЛЬКО значения из словаря (%d вариантов). Максимум %d.",
				len(values), maxCount),
		}
	}

	return instructions
}

func sampleAllowed(allowed map[string][]string) map[string][]string {
	out := make(map[string][]string, len(allowed))
	for name, values := range allowed {
		if len(values) > schema.DictionarySampleSize {
			values = values[:schema.DictionarySampleSize]
		}
		out[name] = values
	}
	return out
}
