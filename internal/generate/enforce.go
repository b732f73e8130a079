// Package generate holds the model-facing services of the pipeline:
// image analysis, color detection, characteristic generation, review
// scoring, and the title/description writers. Every service degrades
// instead of failing: a model error produces an empty or rolled-back
// result plus a diagnostic, never a panic.
package generate

import (
	"fmt"
	"strings"

	"cardgen/pkg/schema"
)

// EnforceDictionary forces every characteristic back inside its
// dictionary and element limit. Values that resolve to a dictionary
// entry are replaced by the canonical dictionary string; values that
// resolve to nothing are dropped. Fields without a dictionary keep free
// text but are still truncated to the limit. The input is not mutated;
// the returned violation messages describe every correction made.
//
// Running the result through EnforceDictionary again is a no-op.
func EnforceDictionary(
	chars []schema.Characteristic,
	allowed map[string][]string,
	limits map[string]schema.Limit,
) ([]schema.Characteristic, []string) {
	out := make([]schema.Characteristic, 0, len(chars))
	var violations []string

	for _, char := range chars {
		if char.Name == "" {
			out = append(out, char)
			continue
		}

		values := trimValues(char.Value)
		limit := limits[char.Name]

		dict := trimValues(allowed[char.Name])
		if len(dict) == 0 {
			if limit.Bounded() && len(values) > limit.Max {
				violations = append(violations, fmt.Sprintf(
					"%s: %d values over max=%d, truncated", char.Name, len(values), limit.Max))
				values = values[:limit.Max]
			}
			out = append(out, schema.Characteristic{ID: char.ID, Name: char.Name, Value: values})
			continue
		}

		lower := make(map[string]string, len(dict))
		for _, d := range dict {
			lower[strings.ToLower(d)] = d
		}

		var mapped, invalid []string
		for _, raw := range values {
			if canonical, ok := matchDictionary(raw, dict, lower); ok {
				if !containsString(mapped, canonical) {
					mapped = append(mapped, canonical)
				}
				continue
			}
			invalid = append(invalid, raw)
		}

		if len(invalid) > 0 {
			violations = append(violations, fmt.Sprintf(
				"%s: dropped values not in dictionary: %s", char.Name, strings.Join(invalid, ", ")))
		}
		if limit.Bounded() && len(mapped) > limit.Max {
			violations = append(violations, fmt.Sprintf(
				"%s: %d values over max=%d, truncated", char.Name, len(mapped), limit.Max))
			mapped = mapped[:limit.Max]
		}

		out = append(out, schema.Characteristic{ID: char.ID, Name: char.Name, Value: mapped})
	}

	return out, violations
}

// matchDictionary resolves one raw value to its canonical dictionary
// entry. The chain goes from strict to loose: exact, parenthetical and
// punctuation stripped, case-insensitive, then dictionary-entry
// substring. The first hit wins.
func matchDictionary(raw string, dict []string, lower map[string]string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if containsString(dict, raw) {
		return raw, true
	}

	base := stripAnnotations(raw)
	if base != raw && containsString(dict, base) {
		return base, true
	}

	if canonical, ok := lower[strings.ToLower(raw)]; ok {
		return canonical, true
	}
	if canonical, ok := lower[strings.ToLower(base)]; ok {
		return canonical, true
	}

	rawLower := strings.ToLower(raw)
	for _, d := range dict {
		if strings.Contains(rawLower, strings.ToLower(d)) {
			return d, true
		}
	}

	return "", false
}

// stripAnnotations removes a trailing parenthetical or bracketed part
// and dangling punctuation: "приталенный (жакет)" becomes "приталенный".
func stripAnnotations(s string) string {
	if i := strings.Index(s, "("); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "["); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(strings.TrimSpace(s), " .,-;")
}

func trimValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
