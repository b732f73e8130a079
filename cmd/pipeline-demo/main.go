package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"cardgen/internal/core"
	"cardgen/internal/dictionary"
	"cardgen/internal/llm"
	"cardgen/internal/source"
)

func main() {
	audit := flag.Bool("audit", false, "run the pre-flight card audit instead of generation")
	asJSON := flag.Bool("json", false, "print the full result as JSON")
	flag.Usage = usage
	flag.Parse()

	articles := flag.Args()
	if len(articles) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := core.NewLogger(cfg.LogLevel)

	store := dictionary.NewStore(cfg.DataDir)
	catalog := source.NewFileCatalog(cfg.CatalogDir)

	var fixed source.FixedDataSource
	if cfg.FixedDataPath != "" {
		fixed = source.NewExcelFixedData(cfg.FixedDataPath)
	}

	var client llm.Completer
	if !*audit {
		if cfg.APIKey == "" {
			fmt.Println("❌ OPENAI_API_KEY not set")
			fmt.Println("   Set it with: export OPENAI_API_KEY=sk-...")
			os.Exit(1)
		}
		c, err := llm.NewClient(cfg.AdapterConfig())
		if err != nil {
			fmt.Printf("❌ Failed to create model client: %v\n", err)
			os.Exit(1)
		}
		client = c
	}

	pipeline := core.NewPipeline(catalog, fixed, store, client, cfg.MaxIterations, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case *audit:
		runAudit(ctx, pipeline, articles)
	case len(articles) == 1:
		runSingle(ctx, pipeline, articles[0], *asJSON)
	default:
		runBatch(ctx, pipeline, cfg, articles, *asJSON)
	}
}

func usage() {
	fmt.Println("usage: pipeline-demo [-audit] [-json] article [article...]")
	fmt.Println()
	fmt.Println("  Generates card characteristics, title, and description for the")
	fmt.Println("  given articles. With -audit, reports card problems without")
	fmt.Println("  generating anything (no API key needed).")
}

func runAudit(ctx context.Context, pipeline *core.Pipeline, articles []string) {
	exitCode := 0
	for _, article := range articles {
		fmt.Printf("🔎 Auditing %s\n", article)

		findings, err := pipeline.AuditCard(ctx, article)
		if err != nil {
			fmt.Printf("   ❌ %v\n", err)
			exitCode = 1
			continue
		}
		if len(findings) == 0 {
			fmt.Println("   ✅ No findings")
			continue
		}
		for _, f := range findings {
			mark := "⚠️"
			if f.Level == "error" {
				mark = "❌"
				exitCode = 1
			}
			fmt.Printf("   %s [%s] %s: %s\n", mark, f.Code, f.Field, f.Message)
		}
	}
	os.Exit(exitCode)
}

func runSingle(ctx context.Context, pipeline *core.Pipeline, article string, asJSON bool) {
	fmt.Printf("🚀 Processing %s\n", article)

	res := pipeline.Process(ctx, article, func(msg string) {
		fmt.Printf("   %s\n", msg)
	})

	if asJSON {
		printJSON(res)
	}

	if res.Status != "success" {
		fmt.Printf("❌ Failed (%s): %s\n", res.ErrorType, res.Message)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("✅ %s done (run %s)\n", article, res.RunID)
	fmt.Printf("   Title:       %s\n", res.NewTitle)
	fmt.Printf("   Colors:      %v\n", res.DetectedColors)
	fmt.Printf("   Score:       %d (%d iterations)\n", res.ValidationScore, res.IterationsDone)
	fmt.Printf("   Filled:      %d/%d fields\n", res.Stats.TotalFilled, res.Stats.TotalFields)
}

func runBatch(ctx context.Context, pipeline *core.Pipeline, cfg *core.Config, articles []string, asJSON bool) {
	fmt.Printf("🚀 Processing %d articles (%d workers)\n", len(articles), cfg.Workers)

	history := source.NewFileHistory(cfg.HistoryPath)
	runner := core.NewRunner(pipeline, history, cfg.Workers, core.NewLogger(cfg.LogLevel))

	sink := core.ProgressFunc(func(e core.Event) {
		switch e.Type {
		case core.EventItemCompleted:
			fmt.Printf("   ✅ %s (%d/%d)\n", e.Article, e.Done, e.Total)
		case core.EventItemFailed:
			fmt.Printf("   ❌ %s: %s (%d/%d)\n", e.Article, e.Message, e.Done, e.Total)
		}
	})

	res := runner.Run(ctx, articles, sink)

	if asJSON {
		printJSON(res)
	}

	fmt.Println()
	fmt.Printf("✨ Batch %s: %d completed, %d failed in %s\n",
		res.BatchID, res.Completed, res.Failed, res.Elapsed.Round(10*time.Millisecond))
	if res.Failed > 0 {
		os.Exit(1)
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("❌ Failed to encode result: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
