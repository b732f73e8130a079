package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardgen/internal/llm"
)

type fakeTaxonomy struct {
	groups map[string][]string
	err    error
}

func (f fakeTaxonomy) ColorGroups() ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, 0, len(f.groups))
	for g := range f.groups {
		out = append(out, g)
	}
	return out, nil
}

func (f fakeTaxonomy) ColorsByGroup(parent string) ([]string, error) {
	return f.groups[parent], nil
}

var testTaxonomy = fakeTaxonomy{groups: map[string][]string{
	"коричневый": {"грильяж", "медно-шоколадный", "каштановый"},
	"серый":      {"графит", "мокрый асфальт"},
}}

func TestDetectTwoStage(t *testing.T) {
	mock := llm.NewMock().
		EnqueueJSON(map[string][]string{"colors": {"коричневый"}}).
		EnqueueJSON(map[string][]string{"colors": {"грильяж", "медно-шоколадный"}})
	d := NewColorDetector(mock, testTaxonomy, nil)

	colors, candidates := d.Detect(context.Background(), "коричневое пальто с медным отливом")

	assert.Equal(t, []string{"грильяж", "медно-шоколадный"}, colors)
	assert.Equal(t, []string{"грильяж", "медно-шоколадный", "каштановый"}, candidates)
	assert.Equal(t, 2, mock.CallCount())
}

func TestDetectFiltersValuesOutsideTaxonomy(t *testing.T) {
	mock := llm.NewMock().
		EnqueueJSON(map[string][]string{"colors": {"коричневый", "фиолетовый"}}).
		EnqueueJSON(map[string][]string{"colors": {"грильяж", "лавандовый"}})
	d := NewColorDetector(mock, testTaxonomy, nil)

	colors, _ := d.Detect(context.Background(), "описание")

	assert.Equal(t, []string{"грильяж"}, colors)
}

func TestDetectNoGroupDetected(t *testing.T) {
	mock := llm.NewMock().EnqueueJSON(map[string][]string{"colors": {}})
	d := NewColorDetector(mock, testTaxonomy, nil)

	colors, candidates := d.Detect(context.Background(), "описание без цвета")

	assert.Empty(t, colors)
	assert.Empty(t, candidates)
	assert.Equal(t, 1, mock.CallCount(), "no second stage without a group")
}

func TestDetectTaxonomyUnavailable(t *testing.T) {
	mock := llm.NewMock()
	d := NewColorDetector(mock, fakeTaxonomy{err: errors.New("no colors file")}, nil)

	colors, _ := d.Detect(context.Background(), "описание")

	assert.Empty(t, colors)
	assert.Zero(t, mock.CallCount())
}

func TestReviewAcceptsAtThreshold(t *testing.T) {
	mock := llm.NewMock().EnqueueJSON(map[string]any{"score": 92, "issues": []string{}})
	d := NewColorDetector(mock, testTaxonomy, nil)

	result := d.Review(context.Background(), []string{"грильяж"}, "описание", []string{"грильяж"}, 3)

	assert.Equal(t, 92, result.Score)
	assert.Equal(t, []string{"грильяж"}, result.Colors)
	assert.Equal(t, 1, result.Iterations)
	assert.Empty(t, result.Issues)
}

func TestReviewRefinesThenAccepts(t *testing.T) {
	mock := llm.NewMock().
		EnqueueJSON(map[string]any{"score": 60, "issues": []string{"цвет не из списка"}}).
		EnqueueJSON(map[string][]string{"colors": {"графит"}}).
		EnqueueJSON(map[string]any{"score": 95, "issues": []string{}})
	d := NewColorDetector(mock, testTaxonomy, nil)

	result := d.Review(context.Background(), []string{"серебристый"}, "описание", []string{"графит"}, 3)

	assert.Equal(t, []string{"графит"}, result.Colors)
	assert.Equal(t, 95, result.Score)
	assert.Equal(t, 2, result.Iterations)
}

func TestReviewKeepsBestWhenNeverPassing(t *testing.T) {
	mock := llm.NewMock().
		EnqueueJSON(map[string]any{"score": 70, "issues": []string{"порядок"}}).
		EnqueueJSON(map[string][]string{"colors": {"графит"}}).
		EnqueueJSON(map[string]any{"score": 50, "issues": []string{"не соответствует"}}).
		EnqueueJSON(map[string][]string{"colors": {"графит"}}).
		EnqueueJSON(map[string]any{"score": 40, "issues": []string{"не соответствует"}})
	d := NewColorDetector(mock, testTaxonomy, nil)

	result := d.Review(context.Background(), []string{"мокрый асфальт"}, "описание", []string{"графит", "мокрый асфальт"}, 3)

	assert.Equal(t, 70, result.Score)
	assert.Equal(t, []string{"мокрый асфальт"}, result.Colors)
	assert.NotEmpty(t, result.Issues)
}

func TestKeepAllowed(t *testing.T) {
	allowed := []string{"графит", "грильяж", "каштановый"}

	out := keepAllowed([]string{"Графит", "грильяж", "графит", "неон", "каштановый"}, allowed, 2)
	assert.Equal(t, []string{"Графит", "грильяж"}, out)
}

func TestImageAnalyzerDescribe(t *testing.T) {
	mock := llm.NewMock().EnqueueJSON(map[string]string{"description": "Черное пальто прямого кроя"})
	a := NewImageAnalyzer(mock, nil)

	desc := a.Describe(context.Background(),
		[]string{"https://img.example/1.jpg", "https://img.example/2.jpg", "https://img.example/3.jpg"},
		"Пальто", []string{"Покрой", "Застежка"})

	assert.Equal(t, "Черное пальто прямого кроя", desc)

	req := mock.LastRequest()
	require.NotNil(t, req)
	assert.Len(t, req.Images, 2, "only the first photos are analyzed")
	assert.True(t, req.JSONMode)
}

func TestImageAnalyzerNoPhotos(t *testing.T) {
	a := NewImageAnalyzer(llm.NewMock(), nil)

	desc := a.Describe(context.Background(), nil, "Пальто", nil)
	assert.Equal(t, "No photos available", desc)
}

func TestImageAnalyzerEmptyDescription(t *testing.T) {
	mock := llm.NewMock().EnqueueJSON(map[string]string{"description": "  "})
	a := NewImageAnalyzer(mock, nil)

	desc := a.Describe(context.Background(), []string{"https://img.example/1.jpg"}, "Пальто", nil)
	assert.Equal(t, "Image analysis failed: empty description", desc)
}

func TestImageAnalyzerModelFailure(t *testing.T) {
	mock := llm.NewMock().EnqueueError(errors.New("vision model unavailable"))
	a := NewImageAnalyzer(mock, nil)

	desc := a.Describe(context.Background(), []string{"https://img.example/1.jpg"}, "Пальто", nil)
	assert.Contains(t, desc, "Image analysis failed:")
	assert.Contains(t, desc, "vision model unavailable")
}
