package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, cardsDir), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, subjectsDir), 0o755))

	card := `{
		"nmID": 400123,
		"subjectID": 105,
		"subjectName": "Костюмы",
		"title": "Костюм женский",
		"characteristics": [
			{"id": 2, "name": "Пол", "value": ["Женский"]}
		],
		"photoURLs": ["https://img.example/1.jpg"]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, cardsDir, "A-100.json"), []byte(card), 0o644))

	attrs := `[
		{"id": 1, "name": "Состав", "required": false},
		{"id": 2, "name": "Пол", "required": true}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, subjectsDir, "105.json"), []byte(attrs), 0o644))

	return dir
}

func TestFileCatalogProductByArticle(t *testing.T) {
	catalog := NewFileCatalog(writeCatalog(t))

	product, err := catalog.ProductByArticle(context.Background(), "A-100")
	require.NoError(t, err)
	assert.Equal(t, int64(400123), product.NmID)
	assert.Equal(t, int64(105), product.CategoryID)
	// The article falls back to the file name when the record omits it.
	assert.Equal(t, "A-100", product.Article)
	require.Len(t, product.Characteristics, 1)
	assert.Equal(t, []string{"Женский"}, product.Characteristics[0].Value)
}

func TestFileCatalogUnknownArticle(t *testing.T) {
	catalog := NewFileCatalog(writeCatalog(t))

	_, err := catalog.ProductByArticle(context.Background(), "NOPE")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "NOPE", nf.Article)

	_, err = catalog.ProductByArticle(context.Background(), "  ")
	require.ErrorAs(t, err, &nf)
}

func TestFileCatalogCategoryAttributes(t *testing.T) {
	catalog := NewFileCatalog(writeCatalog(t))

	attrs, err := catalog.CategoryAttributes(context.Background(), 105)
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, "Пол", attrs[1].Name)
	assert.True(t, attrs[1].Required)

	_, err = catalog.CategoryAttributes(context.Background(), 999)
	assert.Error(t, err)
}

func TestFileCatalogArticles(t *testing.T) {
	dir := writeCatalog(t)
	catalog := NewFileCatalog(dir)

	articles, err := catalog.Articles()
	require.NoError(t, err)
	assert.Equal(t, []string{"A-100"}, articles)

	empty := NewFileCatalog(t.TempDir())
	articles, err = empty.Articles()
	require.NoError(t, err)
	assert.Empty(t, articles)
}
