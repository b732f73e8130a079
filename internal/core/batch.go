package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cardgen/internal/source"
	"cardgen/pkg/schema"
)

// Worker pool bounds for batch processing.
const (
	DefaultWorkers = 3
	MaxWorkers     = 50
)

// Runner processes a set of articles concurrently through one pipeline.
// Items are fully isolated: one failing card never touches the others,
// and each worker drives its own Process call with its own log stream.
type Runner struct {
	pipeline *Pipeline
	history  source.HistorySink
	workers  int
	logger   Logger
}

// NewRunner creates a batch runner. history may be nil to disable run
// recording; workers outside [1, MaxWorkers] is clamped.
func NewRunner(pipeline *Pipeline, history source.HistorySink, workers int, logger Logger) *Runner {
	if history == nil {
		history = source.NopHistory{}
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	if logger == nil {
		logger = NewLogger("info")
	}
	return &Runner{pipeline: pipeline, history: history, workers: workers, logger: logger}
}

// Run processes every article and returns the aggregated result. sink
// receives progress events and may be nil. Run blocks until all items
// finish or ctx is canceled; canceled items come back as failed.
func (r *Runner) Run(ctx context.Context, articles []string, sink ProgressSink) *schema.BatchResult {
	batchID, err := schema.NewBatchID()
	if err != nil {
		batchID = "BATCH-unknown"
	}

	started := time.Now()
	result := &schema.BatchResult{
		BatchID: batchID,
		Total:   len(articles),
		Items:   make([]schema.BatchItem, len(articles)),
	}

	batchLog := r.logger.With("batch_id", batchID)
	emit(sink, Event{Type: EventBatchStarted, BatchID: batchID, Total: len(articles)})
	batchLog.Info("batch started", "total", len(articles), "workers", r.workers)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
		sem  = make(chan struct{}, r.workers)
	)

	for i, article := range articles {
		wg.Add(1)
		go func(i int, article string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			item := r.runItem(ctx, batchID, article, sink)

			mu.Lock()
			result.Items[i] = item
			if item.Error == "" {
				result.Completed++
			} else {
				result.Failed++
			}
			done++
			n := done
			mu.Unlock()

			eventType := EventItemCompleted
			if item.Error != "" {
				eventType = EventItemFailed
			}
			emit(sink, Event{
				Type:    eventType,
				BatchID: batchID,
				Article: article,
				Message: item.Error,
				Done:    n,
				Total:   len(articles),
			})
		}(i, article)
	}
	wg.Wait()

	result.Elapsed = time.Since(started)
	if result.Total > 0 {
		result.PerItemAvg = result.Elapsed / time.Duration(result.Total)
	}

	emit(sink, Event{Type: EventBatchCompleted, BatchID: batchID, Done: result.Completed, Total: result.Total})
	batchLog.Info("batch completed",
		"completed", result.Completed, "failed", result.Failed, "elapsed", result.Elapsed)

	return result
}

func (r *Runner) runItem(ctx context.Context, batchID, article string, sink ProgressSink) schema.BatchItem {
	started := time.Now()
	emit(sink, Event{Type: EventItemStarted, BatchID: batchID, Article: article})

	if err := ctx.Err(); err != nil {
		return schema.BatchItem{Article: article, Error: err.Error(), Elapsed: time.Since(started)}
	}

	res := r.pipeline.Process(ctx, article, func(msg string) {
		emit(sink, Event{Type: EventItemLog, BatchID: batchID, Article: article, Message: msg})
	})

	item := schema.BatchItem{
		Article: article,
		Result:  res,
		Elapsed: time.Since(started),
	}
	if res.Status != schema.StatusSuccess {
		item.Error = res.Message
		if item.Error == "" {
			item.Error = fmt.Sprintf("run failed: %s", res.ErrorType)
		}
	}

	r.record(ctx, res)
	return item
}

// record writes the run to the history sink. Recording failures are
// logged and swallowed; they never fail the item.
func (r *Runner) record(ctx context.Context, res *schema.CardResult) {
	rec := source.RunRecord{
		RunID:      res.RunID,
		Article:    res.Article,
		Status:     res.Status,
		Score:      res.ValidationScore,
		Result:     res,
		FinishedAt: time.Now(),
	}
	if err := r.history.Record(ctx, rec); err != nil {
		r.logger.Warn("history record failed", "run_id", res.RunID, "error", err)
	}
}
