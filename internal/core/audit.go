package core

import (
	"context"
	"fmt"
	"strings"

	"cardgen/pkg/schema"
)

// recommendedPhotoCount is the photo count moderation favors.
const recommendedPhotoCount = 30

// AuditCard inspects an existing card without generating anything: media
// presence, required characteristics, dictionary membership, and value
// limits. Findings are advisory; an audit never mutates the card.
func (p *Pipeline) AuditCard(ctx context.Context, article string) ([]schema.Finding, error) {
	product, err := p.products.ProductByArticle(ctx, article)
	if err != nil {
		return nil, err
	}

	var findings []schema.Finding
	add := func(level, field, code, message string) {
		findings = append(findings, schema.Finding{
			Level: level, Field: field, Code: code, Message: message,
		})
	}

	if product.VideoURL == "" {
		add(findingError, "video", "MISSING_VIDEO", "видео не загружено")
	}

	switch photos := len(product.PhotoURLs); {
	case photos == 0:
		add(findingError, "photos", "NO_PHOTOS", "не загружено ни одной фотографии товара")
	case photos < recommendedPhotoCount:
		add(findingWarning, "photos", "LOW_PHOTO_COUNT",
			fmt.Sprintf("найдено %d фотографий, рекомендуется не менее %d", photos, recommendedPhotoCount))
	case photos > recommendedPhotoCount:
		add(findingWarning, "photos", "HIGH_PHOTO_COUNT",
			fmt.Sprintf("загружено %d фотографий, рекомендуется не более %d", photos, recommendedPhotoCount))
	}

	if len(product.Characteristics) == 0 {
		add(findingError, "characteristics", "MISSING_CHARACTERISTICS", "характеристики товара отсутствуют")
		return findings, nil
	}

	attrs, err := p.products.CategoryAttributes(ctx, product.CategoryID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]schema.Characteristic, len(product.Characteristics))
	for _, c := range product.Characteristics {
		if c.ID != 0 {
			byID[c.ID] = c
		}
	}
	attrByID := make(map[int64]bool, len(attrs))
	for _, a := range attrs {
		attrByID[a.ID] = true
	}

	for _, a := range attrs {
		c, present := byID[a.ID]
		if !present {
			if a.Required {
				add(findingError, a.Name, "REQUIRED_MISSING",
					fmt.Sprintf("не заполнена обязательная характеристика %q (id=%d)", a.Name, a.ID))
			}
			continue
		}
		if c.Empty() {
			if a.Required {
				add(findingError, a.Name, "REQUIRED_EMPTY",
					fmt.Sprintf("обязательная характеристика %q (id=%d) указана без значения", a.Name, a.ID))
			} else {
				add(findingWarning, a.Name, "EMPTY_VALUE",
					fmt.Sprintf("характеристика %q (id=%d) указана без значения", a.Name, a.ID))
			}
		}
	}

	for _, c := range product.Characteristics {
		if c.ID != 0 && !attrByID[c.ID] {
			add(findingWarning, c.Name, "UNKNOWN_CHAR",
				fmt.Sprintf("характеристика %q (id=%d) отсутствует в схеме категории", c.Name, c.ID))
		}
	}

	if got, want := len(product.Characteristics), len(attrs); got < want {
		add(findingWarning, "characteristics", "CHAR_COUNT_LESS",
			fmt.Sprintf("в карточке %d характеристик, в схеме категории %d, возможны пропуски", got, want))
	} else if got > want {
		add(findingWarning, "characteristics", "CHAR_COUNT_MORE",
			fmt.Sprintf("в карточке %d характеристик, в схеме категории %d, возможны лишние", got, want))
	}

	names := make([]string, 0, len(product.Characteristics))
	for _, c := range product.Characteristics {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	allowed, err := p.store.AllowedValues(names)
	if err != nil {
		return nil, err
	}
	limits, err := p.store.Limits(names)
	if err != nil {
		return nil, err
	}

	for _, c := range product.Characteristics {
		if dict := allowed[c.Name]; len(dict) > 0 {
			inDict := make(map[string]bool, len(dict))
			for _, d := range dict {
				inDict[d] = true
			}
			var invalid []string
			for _, v := range c.Value {
				if v != "" && !inDict[v] {
					invalid = append(invalid, v)
				}
			}
			if len(invalid) > 0 {
				add(findingError, c.Name, "VALUE_NOT_ALLOWED",
					fmt.Sprintf("недопустимые значения: %s", strings.Join(invalid, ", ")))
			}
		}

		limit := limits[c.Name]
		count := len(c.Value)
		if limit.Min > 0 && count < limit.Min {
			add(findingWarning, c.Name, "BELOW_MIN_LIMIT",
				fmt.Sprintf("указано %d значений, рекомендуемый минимум %d", count, limit.Min))
		}
		if limit.Bounded() && count > limit.Max {
			add(findingWarning, c.Name, "ABOVE_MAX_LIMIT",
				fmt.Sprintf("указано %d значений, допустимый максимум %d", count, limit.Max))
		}
	}

	return findings, nil
}
