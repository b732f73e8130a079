package schema

// ConditionAction decides what happens to a conditional attribute.
type ConditionAction string

const (
	// ActionSkip leaves the attribute empty on every run.
	ActionSkip ConditionAction = "skip"
	// ActionFill generates the attribute only when the controlling
	// field's value matches one of the expected values.
	ActionFill ConditionAction = "fill"
)

// Condition gates generation of an attribute on another field's value.
type Condition struct {
	Field  string          `yaml:"field" json:"field"`
	Values []string        `yaml:"values" json:"values"`
	Action ConditionAction `yaml:"action" json:"action"`
}

// AttributeRule is one per-attribute entry of a category config.
type AttributeRule struct {
	ID          int64      `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Fixed       bool       `yaml:"is_fixed" json:"is_fixed"`
	Color       bool       `yaml:"is_color" json:"is_color"`
	Conditional bool       `yaml:"is_conditional" json:"is_conditional"`
	Condition   *Condition `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// CategoryConfig holds the declarative generation rules for one category.
// Loaded once per category and cached; read-only for the duration of a run.
type CategoryConfig struct {
	CategoryID int64           `yaml:"category_id" json:"category_id"`
	Attributes []AttributeRule `yaml:"characteristics" json:"characteristics"`
}

// RuleByID returns the rule for an attribute id, or nil.
func (c *CategoryConfig) RuleByID(id int64) *AttributeRule {
	for i := range c.Attributes {
		if c.Attributes[i].ID == id {
			return &c.Attributes[i]
		}
	}
	return nil
}

// RuleByName returns the rule for an attribute name, or nil.
func (c *CategoryConfig) RuleByName(name string) *AttributeRule {
	for i := range c.Attributes {
		if c.Attributes[i].Name == name {
			return &c.Attributes[i]
		}
	}
	return nil
}

// Limit bounds the number of elements an attribute's value may carry.
// Max == 0 means unbounded.
type Limit struct {
	Min int `json:"min,omitempty"`
	Max int `json:"max,omitempty"`
}

// Bounded reports whether a maximum is configured.
func (l Limit) Bounded() bool { return l.Max > 0 }
