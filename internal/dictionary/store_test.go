package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardgen/pkg/schema"
)

func writeTestData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		dictionaryFile: `{
			"Покрой": ["прямой", "приталенный", "свободный"],
			"Назначение": ["офисный", "повседневный", "вечерний"]
		}`,
		limitsFile: `{
			"Покрой": {"max": 1},
			"Назначение": {"max": 3},
			"Цвет": {"max": 5}
		}`,
		colorsFile: `{"data": [
			{"name": "грильяж", "parentName": "коричневый"},
			{"name": "медно-шоколадный", "parentName": "коричневый"},
			{"name": "графит", "parentName": "серый"}
		]}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	require.NoError(t, os.MkdirAll(filepath.Join(dir, configsDir), 0o755))
	config := `
category_id: 105
characteristics:
  - id: 1
    name: "Состав"
    is_fixed: true
  - id: 2
    name: "Пол"
  - id: 3
    name: "Вырез горловины"
    is_conditional: true
    condition:
      field: "Пол"
      values: ["Женский"]
      action: fill
  - id: 4
    name: "Номер декларации"
    is_conditional: true
    condition:
      action: skip
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configsDir, "105.yaml"), []byte(config), 0o644))
	return dir
}

func TestAllowedValues(t *testing.T) {
	store := NewStore(writeTestData(t))

	allowed, err := store.AllowedValues([]string{"Покрой", "Длина рукава", schema.ColorField, ""})
	require.NoError(t, err)

	assert.Equal(t, []string{"прямой", "приталенный", "свободный"}, allowed["Покрой"])

	// Unknown field: present with an empty list, meaning free text.
	vals, ok := allowed["Длина рукава"]
	assert.True(t, ok)
	assert.Empty(t, vals)

	// The color field is handled by its own taxonomy.
	_, ok = allowed[schema.ColorField]
	assert.False(t, ok)
}

func TestLimits(t *testing.T) {
	store := NewStore(writeTestData(t))

	limits, err := store.Limits([]string{"Покрой", "Длина рукава"})
	require.NoError(t, err)
	assert.Equal(t, schema.Limit{Max: 1}, limits["Покрой"])
	assert.False(t, limits["Длина рукава"].Bounded())

	colorLimit, err := store.Limit(schema.ColorField)
	require.NoError(t, err)
	assert.Equal(t, 5, colorLimit.Max)
}

func TestColorTaxonomy(t *testing.T) {
	store := NewStore(writeTestData(t))

	groups, err := store.ColorGroups()
	require.NoError(t, err)
	assert.Equal(t, []string{"коричневый", "серый"}, groups)

	names, err := store.ColorsByGroup("коричневый")
	require.NoError(t, err)
	assert.Equal(t, []string{"грильяж", "медно-шоколадный"}, names)
}

func TestCategoryConfig(t *testing.T) {
	store := NewStore(writeTestData(t))

	cfg, err := store.CategoryConfig(105)
	require.NoError(t, err)
	assert.Equal(t, int64(105), cfg.CategoryID)
	require.Len(t, cfg.Attributes, 4)

	rule := cfg.RuleByName("Вырез горловины")
	require.NotNil(t, rule)
	require.NotNil(t, rule.Condition)
	assert.Equal(t, schema.ActionFill, rule.Condition.Action)

	_, err = store.CategoryConfig(999)
	var missing *ConfigMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, int64(999), missing.CategoryID)
	assert.Equal(t, []int64{105}, missing.Available)
}

func TestMultiLevelConditionRejected(t *testing.T) {
	dir := writeTestData(t)
	config := `
characteristics:
  - id: 1
    name: "А"
    is_conditional: true
    condition:
      field: "Б"
      values: ["x"]
      action: fill
  - id: 2
    name: "Б"
    is_conditional: true
    condition:
      field: "В"
      values: ["y"]
      action: fill
  - id: 3
    name: "В"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configsDir, "200.yaml"), []byte(config), 0o644))

	store := NewStore(dir)
	_, err := store.CategoryConfig(200)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "itself conditional")
}

func TestInvalidate(t *testing.T) {
	dir := writeTestData(t)
	store := NewStore(dir)

	allowed, err := store.AllowedValues([]string{"Покрой"})
	require.NoError(t, err)
	assert.Len(t, allowed["Покрой"], 3)

	// Update the file on disk; the cached copy must survive until
	// Invalidate is called.
	updated := `{"Покрой": ["прямой"]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, dictionaryFile), []byte(updated), 0o644))

	allowed, err = store.AllowedValues([]string{"Покрой"})
	require.NoError(t, err)
	assert.Len(t, allowed["Покрой"], 3)

	store.Invalidate()

	allowed, err = store.AllowedValues([]string{"Покрой"})
	require.NoError(t, err)
	assert.Equal(t, []string{"прямой"}, allowed["Покрой"])
}
