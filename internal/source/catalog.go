package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cardgen/pkg/schema"
)

// Catalog directory layout.
const (
	cardsDir    = "cards"
	subjectsDir = "subjects"
)

// FileCatalog is a directory-backed ProductSource: one JSON file per card
// under cards/, one attribute schema per category under subjects/. Useful
// for demos and offline runs; the production catalog sits behind an API
// with the same interface.
type FileCatalog struct {
	dir string
}

// NewFileCatalog creates a catalog over a directory.
func NewFileCatalog(dir string) *FileCatalog {
	return &FileCatalog{dir: dir}
}

// ProductByArticle reads cards/<article>.json. A missing file is a
// NotFoundError, anything else an I/O error.
func (c *FileCatalog) ProductByArticle(_ context.Context, article string) (*schema.Product, error) {
	article = strings.TrimSpace(article)
	if article == "" {
		return nil, &NotFoundError{Article: article}
	}

	path := filepath.Join(c.dir, cardsDir, article+".json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{Article: article}
	}
	if err != nil {
		return nil, fmt.Errorf("read card %s: %w", article, err)
	}

	var product schema.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("parse card %s: %w", article, err)
	}
	if product.Article == "" {
		product.Article = article
	}
	return &product, nil
}

// CategoryAttributes reads subjects/<categoryID>.json.
func (c *FileCatalog) CategoryAttributes(_ context.Context, categoryID int64) ([]schema.AttributeSchema, error) {
	path := filepath.Join(c.dir, subjectsDir, fmt.Sprintf("%d.json", categoryID))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attribute schema %d: %w", categoryID, err)
	}

	var attrs []schema.AttributeSchema
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("parse attribute schema %d: %w", categoryID, err)
	}
	return attrs, nil
}

// Articles lists every article the catalog has a card for, in directory
// order.
func (c *FileCatalog) Articles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(c.dir, cardsDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	var articles []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		if name == e.Name() || name == "" {
			continue
		}
		articles = append(articles, name)
	}
	return articles, nil
}
