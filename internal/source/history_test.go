package source

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardgen/pkg/schema"
)

func TestFileHistoryRecordAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "runs.jsonl")
	history := NewFileHistory(path)

	first := RunRecord{
		RunID:      "RUN-aaaaaaaaaa",
		Article:    "A-100",
		Status:     schema.StatusSuccess,
		Score:      95,
		FinishedAt: time.Now().UTC().Truncate(time.Second),
	}
	second := RunRecord{
		RunID:   "RUN-bbbbbbbbbb",
		Article: "B-200",
		Status:  schema.StatusError,
	}

	require.NoError(t, history.Record(context.Background(), first))
	require.NoError(t, history.Record(context.Background(), second))

	records, err := history.Load()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.RunID, records[0].RunID)
	assert.Equal(t, 95, records[0].Score)
	assert.Equal(t, schema.StatusError, records[1].Status)
}

func TestFileHistoryLoadMissingFile(t *testing.T) {
	history := NewFileHistory(filepath.Join(t.TempDir(), "runs.jsonl"))

	records, err := history.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileHistoryConcurrentAppends(t *testing.T) {
	history := NewFileHistory(filepath.Join(t.TempDir(), "runs.jsonl"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := RunRecord{RunID: "RUN-concurrent", Article: "A", Score: i}
			assert.NoError(t, history.Record(context.Background(), rec))
		}(i)
	}
	wg.Wait()

	records, err := history.Load()
	require.NoError(t, err)
	assert.Len(t, records, 20)
}
