package core

import (
	"context"
	"fmt"

	"cardgen/internal/generate"
	"cardgen/pkg/schema"
)

// RefineInput carries one field set through the generate→validate cycle.
// Allowed and Limits must cover every field name in Fields.
type RefineInput struct {
	ImageDescription string
	Fields           []schema.AttributeSchema
	Allowed          map[string][]string
	Limits           map[string]schema.Limit
	DetectedColors   []string
	FixedData        map[string][]string
	SubjectName      string
	AllFieldNames    []string
	// SkipNames are fields allowed to come back empty without a retry.
	SkipNames map[string]bool
	Locked    map[string]bool
}

// RefineResult is the settled outcome of one refinement run.
type RefineResult struct {
	Characteristics []schema.Characteristic
	Score           int
	Iterations      int
	Issues          []string
	History         []schema.RefinementAttempt
}

// Refiner drives batched characteristic generation: fields go to the model
// in chunks, every chunk cycles through validation until it scores above
// the acceptance threshold or runs out of attempts, and the best-scoring
// attempt of each chunk wins.
type Refiner struct {
	gen           *generate.Generator
	val           *generate.Validator
	maxIterations int
	log           func(string)
}

// NewRefiner creates a refiner. maxIterations <= 0 falls back to
// DefaultMaxIterations; log may be nil.
func NewRefiner(gen *generate.Generator, val *generate.Validator, maxIterations int, log func(string)) *Refiner {
	if maxIterations <= 0 {
		maxIterations = schema.DefaultMaxIterations
	}
	return &Refiner{gen: gen, val: val, maxIterations: maxIterations, log: log}
}

func (r *Refiner) logf(format string, args ...any) {
	if r.log != nil {
		r.log(fmt.Sprintf(format, args...))
	}
}

// Run processes in.Fields in chunks of FieldBatchSize. A chunk whose
// result leaves expected fields empty gets one targeted retry for the gap
// (skip-conditioned fields excused). The overall score is the mean of the
// chunk scores; empty values with a spreadsheet-supplied fallback are
// filled from it at the end.
func (r *Refiner) Run(ctx context.Context, in RefineInput) RefineResult {
	if len(in.Fields) == 0 {
		return RefineResult{Score: schema.ScoreMax}
	}

	r.logf("refining %d fields in chunks of %d", len(in.Fields), schema.FieldBatchSize)

	var out RefineResult
	var scores []int

	for start := 0; start < len(in.Fields); start += schema.FieldBatchSize {
		end := start + schema.FieldBatchSize
		if end > len(in.Fields) {
			end = len(in.Fields)
		}
		chunk := in.Fields[start:end]
		r.logf("chunk %d: fields %d-%d", start/schema.FieldBatchSize+1, start+1, end)

		br := r.runChunk(ctx, in, chunk)

		if missing := r.missingFields(chunk, br.Characteristics, in.SkipNames); len(missing) > 0 {
			r.logf("chunk left %d fields empty, retrying: %v", len(missing), missing)
			retry := r.runChunk(ctx, in, fieldsNamed(chunk, missing))

			present := make(map[string]bool, len(br.Characteristics))
			for _, c := range br.Characteristics {
				present[c.Name] = true
			}
			for _, c := range retry.Characteristics {
				if c.Name != "" && !present[c.Name] {
					br.Characteristics = append(br.Characteristics, c)
					present[c.Name] = true
				}
			}
			if retry.Score > br.Score {
				br.Score = retry.Score
			}
			br.Issues = append(br.Issues, retry.Issues...)
			br.Iterations += retry.Iterations
		}

		out.Characteristics = append(out.Characteristics, br.Characteristics...)
		out.Issues = append(out.Issues, br.Issues...)
		out.History = append(out.History, br.History...)
		out.Iterations += br.Iterations
		scores = append(scores, br.Score)

		r.logf("chunk done: score=%d fields=%d", br.Score, len(br.Characteristics))
	}

	sum := 0
	for _, s := range scores {
		sum += s
	}
	if len(scores) > 0 {
		out.Score = sum / len(scores)
	}

	applyFixedFallback(out.Characteristics, in.FixedData)
	return out
}

// runChunk generates one chunk and cycles it through validation. Each
// cycle may carry model-corrected characteristics into the next one; the
// best-scoring attempt is what comes out. Two consecutive scores falling
// RegressionMargin below the best end the loop early.
func (r *Refiner) runChunk(ctx context.Context, in RefineInput, fields []schema.AttributeSchema) RefineResult {
	names := fieldNames(fields)
	allowed := subsetValues(in.Allowed, names)
	limits := subsetLimits(in.Limits, names)

	current := r.gen.Generate(ctx, generate.GenerateInput{
		ImageDescription: in.ImageDescription,
		Fields:           fields,
		Allowed:          allowed,
		Limits:           limits,
		DetectedColors:   in.DetectedColors,
		FixedData:        in.FixedData,
		SubjectName:      in.SubjectName,
		AllFieldNames:    in.AllFieldNames,
	})

	var history []schema.RefinementAttempt
	regressions := 0

	for attempt := 1; attempt <= r.maxIterations; attempt++ {
		res := r.val.Validate(ctx, generate.ValidateInput{
			Characteristics: current,
			Fields:          fields,
			Allowed:         allowed,
			Limits:          limits,
			Locked:          in.Locked,
		})

		candidate := res.Characteristics
		if len(candidate) == 0 {
			candidate = current
		}

		history = append(history, schema.RefinementAttempt{
			Iteration:       attempt,
			Characteristics: candidate,
			Score:           res.Score,
			Issues:          res.Issues,
		})
		r.logf("validation attempt %d/%d: score=%d issues=%d",
			attempt, r.maxIterations, res.Score, len(res.Issues))

		best := schema.BestAttempt(history)
		if res.Score >= schema.ScoreThreshold {
			break
		}
		if best.Score-res.Score >= schema.RegressionMargin {
			regressions++
			if regressions >= 2 {
				r.logf("two regressions below best=%d, stopping early", best.Score)
				break
			}
		} else {
			regressions = 0
		}

		current = candidate
	}

	best := schema.BestAttempt(history)
	if best == nil {
		return RefineResult{Characteristics: current, History: history}
	}
	return RefineResult{
		Characteristics: best.Characteristics,
		Score:           best.Score,
		Iterations:      len(history),
		Issues:          best.Issues,
		History:         history,
	}
}

// missingFields lists chunk fields the result left absent or empty,
// excluding names the skip set excuses.
func (r *Refiner) missingFields(fields []schema.AttributeSchema, chars []schema.Characteristic, skip map[string]bool) []string {
	filled := make(map[string]bool, len(chars))
	for _, c := range chars {
		if c.Name != "" && !c.Empty() {
			filled[c.Name] = true
		}
	}

	var missing []string
	for _, f := range fields {
		if f.Name == "" || filled[f.Name] || skip[f.Name] {
			continue
		}
		missing = append(missing, f.Name)
	}
	return missing
}

// applyFixedFallback fills empty values from the spreadsheet row in place.
func applyFixedFallback(chars []schema.Characteristic, fixed map[string][]string) {
	if len(fixed) == 0 {
		return
	}
	for i := range chars {
		if vals, ok := fixed[chars[i].Name]; ok && chars[i].Empty() {
			chars[i].Value = append([]string(nil), vals...)
		}
	}
}

func fieldNames(fields []schema.AttributeSchema) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Name != "" {
			names = append(names, f.Name)
		}
	}
	return names
}

func fieldsNamed(fields []schema.AttributeSchema, names []string) []schema.AttributeSchema {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := make([]schema.AttributeSchema, 0, len(names))
	for _, f := range fields {
		if want[f.Name] {
			out = append(out, f)
		}
	}
	return out
}

func subsetValues(m map[string][]string, names []string) map[string][]string {
	out := make(map[string][]string, len(names))
	for _, n := range names {
		out[n] = m[n]
	}
	return out
}

func subsetLimits(m map[string]schema.Limit, names []string) map[string]schema.Limit {
	out := make(map[string]schema.Limit, len(names))
	for _, n := range names {
		out[n] = m[n]
	}
	return out
}
