package generate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"cardgen/internal/llm"
	"cardgen/pkg/schema"
)

// Title and description length bounds, in runes.
const (
	titleHardMax   = 60
	titleHardMin   = 20
	titleIdealMin  = 35
	titleIdealMax  = 50
	descHardMax    = 5000
	descHardMin    = 500
	descIdealMin   = 1000
	descIdealMax   = 1800
	descMinParas   = 3
	descMaxParas   = 6
	descRepeatsMax = 3
)

// Early-rollback bounds for the text loops: from the second attempt on,
// a score this low with a best this high stops regenerating.
const (
	rollbackFloor = 40
	rollbackBest  = 60
)

// Marketing and restricted vocabulary the marketplace rejects.
var forbiddenTitleWords = []string{
	"стильный", "красивый", "идеальный", "хит", "топ", "супер",
	"премиум", "модный", "актуальный", "элегантный", "роскошный",
	"женский", "мужской", "офисный",
}

var forbiddenDescWords = []string{
	"стильный", "красивый", "идеальный", "хит", "топ", "супер",
	"премиум", "роскошный", "актуальный", "модный", "элегантный",
	"лучший", "качественный", "делает стройнее", "делает выше",
}

var (
	capsSequenceRe = regexp.MustCompile(`[А-ЯЁA-Z]{3,}`)
	bulletRe       = regexp.MustCompile(`(?m)^\s*[-*•]\s`)
	descWordRe     = regexp.MustCompile(`[а-яёa-z]{4,}`)
)

// ScoreTitle applies the deterministic title rules and returns validity,
// the rule violations, and a 0-100 score.
func ScoreTitle(title string, characteristics []schema.Characteristic) (bool, []string, int) {
	var errs []string
	score := schema.ScoreMax
	length := utf8.RuneCountInString(title)

	if length > titleHardMax {
		errs = append(errs, fmt.Sprintf("title too long: %d > %d characters", length, titleHardMax))
		score -= 30
	}
	if length < titleHardMin {
		errs = append(errs, fmt.Sprintf("title too short: %d < %d characters", length, titleHardMin))
		score -= 20
	} else if length < titleIdealMin || length > titleIdealMax {
		errs = append(errs, fmt.Sprintf("length outside ideal range %d-%d: %d", titleIdealMin, titleIdealMax, length))
		score -= 10
	}

	lower := strings.ToLower(title)
	if found := findForbidden(lower, forbiddenTitleWords); len(found) > 0 {
		errs = append(errs, "forbidden words: "+strings.Join(found, ", "))
		score -= 25
	}

	if repeated := repeatedWords(lower, 1); len(repeated) > 0 {
		errs = append(errs, "repeated words: "+strings.Join(repeated, ", "))
		score -= 15
	}

	if color := schema.FindCharacteristic(characteristics, schema.ColorField); color != nil {
		for _, c := range color.Value {
			if c != "" && strings.Contains(lower, strings.ToLower(c)) {
				errs = append(errs, fmt.Sprintf("color %q duplicated in title and characteristics", c))
				score -= 10
			}
		}
	}

	if isAllUpper(title) {
		errs = append(errs, "title is all caps")
		score -= 20
	}
	if seqs := capsSequenceRe.FindAllString(title, -1); len(seqs) > 0 {
		errs = append(errs, "caps sequences: "+strings.Join(seqs, ", "))
		score -= 10
	}
	if containsEmoji(title) {
		errs = append(errs, "emoji are not allowed")
		score -= 15
	}

	return len(errs) == 0, errs, schema.ClampScore(score)
}

// ScoreDescription applies the deterministic description rules.
func ScoreDescription(description string) (bool, []string, int) {
	var errs []string
	score := schema.ScoreMax
	length := utf8.RuneCountInString(description)

	if length > descHardMax {
		errs = append(errs, fmt.Sprintf("description too long: %d > %d characters", length, descHardMax))
		score -= 40
	}
	if length < descHardMin {
		errs = append(errs, fmt.Sprintf("description too short: %d < %d characters", length, descHardMin))
		score -= 30
	} else if length < descIdealMin || length > descIdealMax {
		errs = append(errs, fmt.Sprintf("length outside ideal range %d-%d: %d", descIdealMin, descIdealMax, length))
		score -= 10
	}

	lower := strings.ToLower(description)
	if found := findForbidden(lower, forbiddenDescWords); len(found) > 0 {
		errs = append(errs, "forbidden words: "+strings.Join(found, ", "))
		score -= 25
	}

	if repeated := repeatedLongWords(lower); len(repeated) > 0 {
		errs = append(errs, "words repeated too often: "+strings.Join(repeated, ", "))
		score -= 15
	}

	paragraphs := 0
	for _, p := range strings.Split(description, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}
	if paragraphs < descMinParas {
		errs = append(errs, fmt.Sprintf("too few paragraphs: %d < %d", paragraphs, descMinParas))
		score -= 15
	}
	if paragraphs > descMaxParas {
		errs = append(errs, fmt.Sprintf("too many paragraphs: %d > %d", paragraphs, descMaxParas))
		score -= 10
	}

	if bulletRe.MatchString(description) {
		errs = append(errs, "bullet lists are not allowed")
		score -= 20
	}
	if containsEmoji(description) {
		errs = append(errs, "emoji are not allowed")
		score -= 15
	}

	return len(errs) == 0, errs, schema.ClampScore(score)
}

// TextWriter generates and refines the title and description.
type TextWriter struct {
	client llm.Completer
	log    func(string)
}

// NewTextWriter creates a writer. log may be nil.
func NewTextWriter(client llm.Completer, log func(string)) *TextWriter {
	return &TextWriter{client: client, log: log}
}

func (w *TextWriter) logf(format string, args ...any) {
	if w.log != nil {
		w.log(fmt.Sprintf(format, args...))
	}
}

// WriteDescription generates a description and runs it through the
// refinement loop. A generation failure falls back to the old text.
func (w *TextWriter) WriteDescription(ctx context.Context, characteristics []schema.Characteristic, title, oldDescription string, maxIterations int) schema.TextResult {
	w.logf("generating description")

	reply, err := llm.CompleteInto[map[string]string](ctx, w.client, llm.Request{
		System: strings.TrimSpace(descriptionPrompt),
		Payload: map[string]any{
			"characteristics": characteristics,
			"title":           title,
		},
		MaxTokens: 2048,
	})
	if err != nil {
		w.logf("description generation error: %v", err)
		return schema.TextResult{
			Old:      oldDescription,
			New:      oldDescription,
			Warnings: []string{fmt.Sprintf("description generation failed: %v", err)},
		}
	}

	content := strings.TrimSpace((*reply)["description"])
	result := w.refineLoop(ctx, textLoopInput{
		content:         content,
		kind:            "description",
		systemPrompt:    descriptionPrompt,
		characteristics: characteristics,
		maxIterations:   maxIterations,
	})
	result.Old = oldDescription
	return result
}

// WriteTitle generates a title from the final characteristics and the
// fresh description, then refines it.
func (w *TextWriter) WriteTitle(ctx context.Context, subjectName string, characteristics []schema.Characteristic, description, oldTitle string, maxIterations int) schema.TextResult {
	w.logf("generating title")

	reply, err := llm.CompleteInto[map[string]string](ctx, w.client, llm.Request{
		System: strings.TrimSpace(titlePrompt),
		Payload: map[string]any{
			"subject_name":    subjectName,
			"characteristics": characteristics,
			"description":     description,
		},
		MaxTokens: 1024,
	})
	if err != nil {
		w.logf("title generation error: %v", err)
		fallback := oldTitle
		if fallback == "" {
			fallback = subjectName
		}
		return schema.TextResult{
			Old:      oldTitle,
			New:      fallback,
			Warnings: []string{fmt.Sprintf("title generation failed: %v", err)},
		}
	}

	content := strings.TrimSpace((*reply)["title"])
	result := w.refineLoop(ctx, textLoopInput{
		content:         content,
		kind:            "title",
		systemPrompt:    titlePrompt,
		characteristics: characteristics,
		maxIterations:   maxIterations,
	})
	result.Old = oldTitle
	return result
}

type textLoopInput struct {
	content         string
	kind            string
	systemPrompt    string
	characteristics []schema.Characteristic
	maxIterations   int
}

// refineLoop validates the content, regenerating with the accumulated
// attempt history until it passes, regresses hard enough to roll back,
// or runs out of attempts. The best-scoring attempt is always the
// floor of the outcome.
func (w *TextWriter) refineLoop(ctx context.Context, in textLoopInput) schema.TextResult {
	maxAttempts := in.maxIterations
	if maxAttempts <= 0 {
		maxAttempts = schema.DefaultMaxIterations
	}

	var history []schema.TextAttempt
	var best *schema.TextAttempt
	content := in.content

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var valid bool
		var errs []string
		var score int
		if in.kind == "title" {
			valid, errs, score = ScoreTitle(content, in.characteristics)
		} else {
			valid, errs, score = ScoreDescription(content)
		}

		history = append(history, schema.TextAttempt{
			Attempt: attempt,
			Content: content,
			Errors:  errs,
			Valid:   valid,
			Score:   score,
		})
		current := &history[len(history)-1]
		if best == nil || score > best.Score {
			best = current
			w.logf("new best %s attempt (score %d)", in.kind, score)
		}

		if valid {
			return schema.TextResult{
				New:      content,
				Success:  true,
				Warnings: []string{},
				Score:    score,
				Attempts: attempt,
				History:  history,
			}
		}

		w.logf("%s validation failed (score %d): %s", in.kind, score, strings.Join(firstN(errs, 2), "; "))

		if attempt >= 2 && score < rollbackFloor && best.Score >= rollbackBest {
			w.logf("%s score regressed, rolling back to best (score %d)", in.kind, best.Score)
			return schema.TextResult{
				New:        best.Content,
				RolledBack: true,
				Warnings:   best.Errors,
				Score:      best.Score,
				Attempts:   attempt,
				History:    history,
			}
		}

		if attempt < maxAttempts {
			regenerated, err := w.regenerate(ctx, in, history)
			if err != nil {
				w.logf("%s regeneration error: %v", in.kind, err)
				return schema.TextResult{
					New:        best.Content,
					RolledBack: true,
					Warnings:   append(best.Errors, fmt.Sprintf("regeneration failed: %v", err)),
					Score:      best.Score,
					Attempts:   attempt,
					History:    history,
				}
			}
			content = regenerated
		}
	}

	return schema.TextResult{
		New:        best.Content,
		RolledBack: true,
		Warnings:   best.Errors,
		Score:      best.Score,
		Attempts:   maxAttempts,
		History:    history,
	}
}

// regenerate asks the model for a fresh attempt, quoting the full
// attempt history so it cannot repeat a mistake it has already made.
func (w *TextWriter) regenerate(ctx context.Context, in textLoopInput, history []schema.TextAttempt) (string, error) {
	var sb strings.Builder
	for _, h := range history {
		fmt.Fprintf(&sb, "ПОПЫТКА %d (Score: %d):\nРезультат: %s\nОшибки: %s\n\n",
			h.Attempt, h.Score, h.Content, strings.Join(h.Errors, "; "))
	}

	lastErrors := history[len(history)-1].Errors
	lengthRule := "Длина 1000-1800 символов, 3-6 абзацев"
	if in.kind == "title" {
		lengthRule = "Длина 35-50 символов"
	}

	userMessage := fmt.Sprintf(`ИСТОРИЯ ПРЕДЫДУЩИХ ПОПЫТОК:
%s
ПРОБЛЕМЫ ПОСЛЕДНЕЙ ПОПЫТКИ:
%s

ЗАДАЧА: изучи все предыдущие попытки и их ошибки, и создай СОВЕРШЕННО
НОВЫЙ %s, который полностью устраняет все указанные проблемы, не
повторяет ошибок и использует другие формулировки. %s.

Характеристики: %s

Ответ строго в JSON: {"%s": "..."}`,
		sb.String(),
		strings.Join(firstN(lastErrors, 3), "\n"),
		in.kind,
		lengthRule,
		characteristicsJSON(in.characteristics),
		in.kind,
	)

	maxTokens := 1024
	if in.kind == "description" {
		maxTokens = 2048
	}

	reply, err := llm.CompleteInto[map[string]string](ctx, w.client, llm.Request{
		System:    strings.TrimSpace(in.systemPrompt),
		Text:      userMessage,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}

	content := strings.TrimSpace((*reply)[in.kind])
	if content == "" {
		return "", fmt.Errorf("empty %s in regeneration reply", in.kind)
	}
	return content, nil
}

func characteristicsJSON(chars []schema.Characteristic) string {
	parts := make([]string, 0, len(chars))
	for _, c := range chars {
		if !c.Empty() {
			parts = append(parts, fmt.Sprintf("%s: %s", c.Name, strings.Join(c.Value, ", ")))
		}
	}
	return strings.Join(parts, "; ")
}

func findForbidden(lower string, words []string) []string {
	var found []string
	for _, w := range words {
		if strings.Contains(lower, w) {
			found = append(found, w)
		}
	}
	return found
}

// repeatedWords returns words longer than three runes occurring more
// than maxCount times.
func repeatedWords(lower string, maxCount int) []string {
	counts := map[string]int{}
	for _, w := range strings.Fields(lower) {
		if utf8.RuneCountInString(w) > 3 {
			counts[w]++
		}
	}
	var out []string
	for w, c := range counts {
		if c > maxCount {
			out = append(out, w)
		}
	}
	return out
}

func repeatedLongWords(lower string) []string {
	counts := map[string]int{}
	for _, w := range descWordRe.FindAllString(lower, -1) {
		counts[w]++
	}
	var out []string
	for w, c := range counts {
		if c > descRepeatsMax {
			out = append(out, fmt.Sprintf("%s(%dx)", w, c))
			if len(out) >= 3 {
				break
			}
		}
	}
	return out
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}

func containsEmoji(s string) bool {
	for _, r := range s {
		if (r >= 0x1F300 && r <= 0x1F5FF) || (r >= 0x1F600 && r <= 0x1F64F) {
			return true
		}
	}
	return false
}

func firstN(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	return list[:n]
}
