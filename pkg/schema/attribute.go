package schema

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ColorField is the attribute handled by the color subsystem.
// It is excluded from classification and from characteristic generation.
const ColorField = "Цвет"

// AttributeSchema describes one attribute of a category's schema.
// The list of attributes for a category is fetched once per run and
// is read-only afterwards.
type AttributeSchema struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// Characteristic is one generated or merged attribute value.
// Value is always a list after decoding; models sometimes return a bare
// string or a comma-joined string, and UnmarshalJSON coerces both.
type Characteristic struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Value []string `json:"value"`
}

type rawCharacteristic struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// UnmarshalJSON decodes a characteristic, coercing value to a list of
// trimmed, non-empty strings regardless of the shape the model produced.
func (c *Characteristic) UnmarshalJSON(data []byte) error {
	var raw rawCharacteristic
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = raw.ID
	c.Name = raw.Name
	c.Value = CoerceValues(raw.Value)
	return nil
}

// CoerceValues converts a raw JSON value into a list of strings.
// Accepted shapes: null, string (split on commas), number, bool, and
// arrays of any of those. Anything else collapses to an empty list.
func CoerceValues(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			if s := scalarString(v); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	var scalar any
	if err := json.Unmarshal(raw, &scalar); err != nil {
		return []string{}
	}
	s := scalarString(scalar)
	if s == "" {
		return []string{}
	}
	if strings.Contains(s, ",") {
		return SplitValues(s)
	}
	return []string{s}
}

// SplitValues splits a delimited raw value on commas and semicolons,
// trimming whitespace and dropping empty parts.
func SplitValues(raw string) []string {
	parts := strings.Split(strings.ReplaceAll(raw, ";", ","), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Empty reports whether the characteristic carries no usable value.
func (c Characteristic) Empty() bool {
	for _, v := range c.Value {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// First returns the first non-empty value, or "".
func (c Characteristic) First() string {
	for _, v := range c.Value {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// FindCharacteristic returns the characteristic with the given name, or nil.
func FindCharacteristic(chars []Characteristic, name string) *Characteristic {
	for i := range chars {
		if chars[i].Name == name {
			return &chars[i]
		}
	}
	return nil
}

// Product is a product record resolved from the external catalog.
type Product struct {
	NmID            int64            `json:"nmID"`
	Article         string           `json:"article"`
	CategoryID      int64            `json:"subjectID"`
	SubjectName     string           `json:"subjectName"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Characteristics []Characteristic `json:"characteristics"`
	PhotoURLs       []string         `json:"photoURLs"`
	VideoURL        string           `json:"videoURL"`
}
