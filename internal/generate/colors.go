package generate

import (
	"context"
	"fmt"
	"strings"

	"cardgen/internal/llm"
	"cardgen/pkg/schema"
)

// MaxColors caps how many color values a card may carry.
const MaxColors = 5

// maxColorGroups caps the first detection stage; the group narrows the
// candidate set before exact names are picked.
const maxColorGroups = 3

// ColorTaxonomy resolves the two-level color dictionary.
// *dictionary.Store satisfies it.
type ColorTaxonomy interface {
	ColorGroups() ([]string, error)
	ColorsByGroup(parent string) ([]string, error)
}

// ColorResult is the outcome of detection plus validation.
type ColorResult struct {
	Colors     []string `json:"colors"`
	Score      int      `json:"score"`
	Iterations int      `json:"iterations"`
	Issues     []string `json:"issues"`
}

// ColorDetector finds a card's colors from the visual description in
// two stages: base groups first, then exact names within those groups.
type ColorDetector struct {
	client   llm.Completer
	taxonomy ColorTaxonomy
	log      func(string)
}

// NewColorDetector creates a detector. log may be nil.
func NewColorDetector(client llm.Completer, taxonomy ColorTaxonomy, log func(string)) *ColorDetector {
	return &ColorDetector{client: client, taxonomy: taxonomy, log: log}
}

func (d *ColorDetector) logf(format string, args ...any) {
	if d.log != nil {
		d.log(fmt.Sprintf(format, args...))
	}
}

type colorsReply struct {
	Colors []string `json:"colors"`
}

// Detect returns the detected color names and the candidate set they
// were picked from. Any failure returns empty results; a card without
// colors is degraded, not broken.
func (d *ColorDetector) Detect(ctx context.Context, imageDescription string) (colors, candidates []string) {
	groups, err := d.taxonomy.ColorGroups()
	if err != nil {
		d.logf("color taxonomy unavailable: %v", err)
		return nil, nil
	}

	d.logf("detecting colors from text")

	groupReply, err := llm.CompleteInto[colorsReply](ctx, d.client, llm.Request{
		System: strings.TrimSpace(colorGroupsPrompt),
		Payload: map[string]any{
			"image_description": imageDescription,
			"allowed_colors":    groups,
			"max_colors":        maxColorGroups,
		},
		MaxTokens: 4096,
	})
	if err != nil {
		d.logf("color group detection error: %v", err)
		return nil, nil
	}

	detectedGroups := keepAllowed(groupReply.Colors, groups, maxColorGroups)
	if len(detectedGroups) == 0 {
		d.logf("no color group detected")
		return nil, nil
	}

	for _, g := range detectedGroups {
		names, err := d.taxonomy.ColorsByGroup(g)
		if err != nil {
			d.logf("color group %q lookup error: %v", g, err)
			continue
		}
		candidates = append(candidates, names...)
	}
	if len(candidates) == 0 {
		// Groups without named shades stand in for themselves.
		return detectedGroups, detectedGroups
	}

	nameReply, err := llm.CompleteInto[colorsReply](ctx, d.client, llm.Request{
		System: strings.TrimSpace(colorNamesPrompt),
		Payload: map[string]any{
			"image_description": imageDescription,
			"allowed_colors":    candidates,
			"max_colors":        MaxColors,
		},
		MaxTokens: 8096,
	})
	if err != nil {
		d.logf("color name detection error: %v", err)
		return detectedGroups, candidates
	}

	colors = keepAllowed(nameReply.Colors, candidates, MaxColors)
	if len(colors) == 0 {
		colors = detectedGroups
	}
	d.logf("colors detected: %s", strings.Join(colors, ", "))
	return colors, candidates
}

// Review runs the lightweight validate/refine loop over detected colors
// and returns the best accepted set. Acceptance is score >= threshold;
// a refine failure stops the loop and keeps the best so far.
func (d *ColorDetector) Review(ctx context.Context, colors []string, imageDescription string, candidates []string, maxIterations int) ColorResult {
	if maxIterations <= 0 {
		maxIterations = schema.DefaultMaxIterations
	}

	best := ColorResult{Colors: colors, Iterations: 1}
	current := colors
	var lastIssues []string

	for iteration := 1; iteration <= maxIterations; iteration++ {
		d.logf("color validation attempt %d/%d", iteration, maxIterations)

		score, issues := d.reviewOnce(ctx, current, imageDescription, candidates)
		lastIssues = issues
		d.logf("color score: %d, issues: %d", score, len(issues))

		if score > best.Score {
			best = ColorResult{Colors: current, Score: score, Iterations: iteration}
		}

		if score >= schema.ScoreThreshold {
			return ColorResult{Colors: current, Score: score, Iterations: iteration}
		}

		if iteration < maxIterations && len(issues) > 0 {
			refined, err := d.refine(ctx, current, issues, imageDescription, candidates)
			if err != nil {
				d.logf("color refine error: %v", err)
				break
			}
			current = refined
		}
	}

	if best.Score < schema.ScoreThreshold {
		best.Issues = lastIssues
	}
	d.logf("using best color result from iteration %d (score %d)", best.Iterations, best.Score)
	return best
}

type colorReviewReply struct {
	Score  int      `json:"score"`
	Issues []string `json:"issues"`
}

func (d *ColorDetector) reviewOnce(ctx context.Context, colors []string, imageDescription string, candidates []string) (int, []string) {
	reply, err := llm.CompleteInto[colorReviewReply](ctx, d.client, llm.Request{
		System: strings.TrimSpace(colorReviewPrompt),
		Payload: map[string]any{
			"colors":            colors,
			"image_description": imageDescription,
			"allowed_colors":    candidates,
			"limits":            MaxColors,
		},
		MaxTokens: 4096,
	})
	if err != nil {
		return 0, []string{fmt.Sprintf("color validation error: %v", err)}
	}
	return schema.ClampScore(reply.Score), reply.Issues
}

func (d *ColorDetector) refine(ctx context.Context, colors, issues []string, imageDescription string, candidates []string) ([]string, error) {
	reply, err := llm.CompleteInto[colorsReply](ctx, d.client, llm.Request{
		System: strings.TrimSpace(colorRefinePrompt),
		Payload: map[string]any{
			"colors":            colors,
			"issues":            issues,
			"image_description": imageDescription,
			"allowed_colors":    candidates,
			"limits":            MaxColors,
		},
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, err
	}

	refined := keepAllowed(reply.Colors, candidates, MaxColors)
	if len(refined) == 0 {
		return colors, nil
	}
	return refined, nil
}

// keepAllowed filters values down to the allowed set, case-insensitively,
// preserving order and deduplicating, capped at max.
func keepAllowed(values, allowed []string, max int) []string {
	allowedSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allowedSet[strings.ToLower(strings.TrimSpace(a))] = true
	}

	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || !allowedSet[strings.ToLower(v)] {
			continue
		}
		if !containsString(out, v) {
			out = append(out, v)
			if len(out) >= max {
				break
			}
		}
	}
	return out
}
