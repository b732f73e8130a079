// Package source defines the external boundaries of the pipeline: the
// product catalog, the spreadsheet of merchant-fixed values, and the
// history sink results are reported to.
package source

import (
	"context"
	"fmt"
	"time"

	"cardgen/pkg/schema"
)

// NotFoundError reports that an article has no product record.
type NotFoundError struct {
	Article string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("card with article %s not found", e.Article)
}

// ProductSource resolves product records and category schemas from the
// external catalog.
type ProductSource interface {
	// ProductByArticle returns the product record for an article.
	// Returns *NotFoundError when the catalog has no such card.
	ProductByArticle(ctx context.Context, article string) (*schema.Product, error)

	// CategoryAttributes returns the attribute schema of a category.
	CategoryAttributes(ctx context.Context, categoryID int64) ([]schema.AttributeSchema, error)
}

// FixedDataSource resolves the merchant's fixed values for an article.
// A missing article yields an empty row, not an error: fixed data is
// optional per card.
type FixedDataSource interface {
	RowByArticle(article string) (map[string]string, error)
}

// RunRecord is what the history sink receives per finished run.
type RunRecord struct {
	RunID      string             `json:"run_id"`
	Article    string             `json:"article"`
	Status     string             `json:"status"`
	Score      int                `json:"score"`
	Result     *schema.CardResult `json:"result,omitempty"`
	FinishedAt time.Time          `json:"finished_at"`
}

// HistorySink receives finished run records. Implementations must not
// block the pipeline; recording history is best effort.
type HistorySink interface {
	Record(ctx context.Context, rec RunRecord) error
}

// NopHistory discards every record.
type NopHistory struct{}

func (NopHistory) Record(context.Context, RunRecord) error { return nil }

// NopFixedData returns an empty row for every article.
type NopFixedData struct{}

func (NopFixedData) RowByArticle(string) (map[string]string, error) { return nil, nil }
