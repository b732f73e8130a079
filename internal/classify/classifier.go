// Package classify partitions a category's attribute schema into the four
// generation classes driven by the category config: fixed, skipped,
// conditional-fill, and generate.
package classify

import (
	"sort"
	"strings"

	"cardgen/pkg/schema"
)

// Classification is the partition of one category's attributes.
// The color field is excluded entirely; a separate subsystem owns it.
type Classification struct {
	// Fixed attributes are sourced only from the external spreadsheet.
	Fixed []schema.AttributeSchema
	// Skip attributes are always left empty.
	Skip []schema.AttributeSchema
	// Generate attributes are generation candidates. Conditional-fill
	// attributes whose controlling value is unknown at classification
	// time are included here and re-evaluated before the secondary pass.
	Generate []schema.AttributeSchema
	// Conditions maps a conditional-fill attribute name to its condition.
	Conditions map[string]schema.Condition
}

// ConditionalFillCount reports how many attributes carry a fill condition.
func (c Classification) ConditionalFillCount() int { return len(c.Conditions) }

// Classify partitions attrs according to cfg. known carries controlling
// field values already resolved before classification (for example a
// gender-like attribute read off the existing product record); a
// conditional-fill attribute whose controlling value is known and does not
// match is excluded from generation for this run, while one whose
// controlling value is still unknown is deferred: it stays in Generate and
// must be re-checked with FilterSatisfied once the primary batch has
// produced the controlling field.
func Classify(attrs []schema.AttributeSchema, cfg *schema.CategoryConfig, known map[string]string) Classification {
	out := Classification{Conditions: map[string]schema.Condition{}}

	for _, attr := range attrs {
		if attr.Name == "" || attr.Name == schema.ColorField {
			continue
		}

		rule := ruleFor(cfg, attr)
		if rule == nil {
			out.Generate = append(out.Generate, attr)
			continue
		}
		if rule.Fixed {
			out.Fixed = append(out.Fixed, attr)
			continue
		}
		if rule.Color {
			continue
		}
		if !rule.Conditional || rule.Condition == nil {
			out.Generate = append(out.Generate, attr)
			continue
		}

		cond := *rule.Condition
		if cond.Action == schema.ActionSkip {
			out.Skip = append(out.Skip, attr)
			continue
		}

		out.Conditions[attr.Name] = cond
		if v, ok := known[cond.Field]; ok {
			if !valueMatches(cond, v) {
				continue
			}
		}
		out.Generate = append(out.Generate, attr)
	}

	return out
}

func ruleFor(cfg *schema.CategoryConfig, attr schema.AttributeSchema) *schema.AttributeRule {
	if cfg == nil {
		return nil
	}
	if r := cfg.RuleByID(attr.ID); r != nil {
		return r
	}
	return cfg.RuleByName(attr.Name)
}

// LockedFields returns the union of field names the generator must never
// touch: config-fixed, config-skipped, and externally supplied names.
func (c Classification) LockedFields(external map[string][]string) map[string]bool {
	locked := make(map[string]bool)
	for _, a := range c.Fixed {
		locked[a.Name] = true
	}
	for _, a := range c.Skip {
		locked[a.Name] = true
	}
	for name := range external {
		locked[name] = true
	}
	return locked
}

// ControllingFields returns the sorted names of fields some other field's
// fill condition depends on. These are generated first so conditional
// attributes can be resolved before the secondary pass.
func ControllingFields(cfg *schema.CategoryConfig) []string {
	if cfg == nil {
		return nil
	}
	seen := map[string]bool{}
	for _, a := range cfg.Attributes {
		if a.Conditional && a.Condition != nil && a.Condition.Action == schema.ActionFill {
			if f := a.Condition.Field; f != "" {
				seen[f] = true
			}
		}
	}
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// ShouldFill reports whether a fill condition is satisfied by the current
// characteristic set.
func ShouldFill(cond schema.Condition, current []schema.Characteristic) bool {
	ctrl := schema.FindCharacteristic(current, cond.Field)
	if ctrl == nil {
		return false
	}
	for _, v := range ctrl.Value {
		if valueMatches(cond, v) {
			return true
		}
	}
	return false
}

// FilterSatisfied keeps the fields whose fill condition (if any) is met by
// current, and reports the names it removed. Fields without a condition
// pass through untouched.
func FilterSatisfied(fields []schema.AttributeSchema, conds map[string]schema.Condition, current []schema.Characteristic) ([]schema.AttributeSchema, []string) {
	kept := make([]schema.AttributeSchema, 0, len(fields))
	var removed []string

	for _, f := range fields {
		cond, ok := conds[f.Name]
		if !ok || ShouldFill(cond, current) {
			kept = append(kept, f)
			continue
		}
		removed = append(removed, f.Name)
	}
	return kept, removed
}

// ApplyConditionalFill clears the value of every conditional-fill target
// whose condition is not met by the merged characteristic set. Runs at
// merge time so a value produced before the controlling field settled
// cannot leak into the final result.
func ApplyConditionalFill(full []schema.Characteristic, conds map[string]schema.Condition) []schema.Characteristic {
	for name, cond := range conds {
		if ShouldFill(cond, full) {
			continue
		}
		for i := range full {
			if full[i].Name == name {
				full[i].Value = []string{}
			}
		}
	}
	return full
}

// valueMatches compares a controlling value against the expected set,
// case-insensitively and tolerating substring variants in either
// direction ("женский" matches "Женский оверсайз").
func valueMatches(cond schema.Condition, value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	for _, want := range cond.Values {
		w := strings.ToLower(strings.TrimSpace(want))
		if w == "" {
			continue
		}
		if v == w || strings.Contains(v, w) || strings.Contains(w, v) {
			return true
		}
	}
	return false
}
