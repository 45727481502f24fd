package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "jobscrape/internal/platform/workday"

	"jobscrape/internal/config"
	"jobscrape/internal/logging"
	"jobscrape/internal/orchestrator"
	"jobscrape/internal/platform"
	"jobscrape/internal/sink"
)

var (
	companyName   = flag.String("company", "", "Company name attached to every record (required)")
	targetURL     = flag.String("url", "", "Absolute listing URL to crawl (required)")
	platformID    = flag.String("platform", "workday", "Registered platform identifier")
	maxPages      = flag.Int("max-pages", -1, "Maximum listing pages to crawl, -1 for unbounded")
	concurrency   = flag.Int("concurrency", 0, "Detail fetch concurrency, 0 uses the platform default")
	enrichEnabled = flag.Bool("enrich", false, "Enable LLM location enrichment")
	enrichAPIKey  = flag.String("enrich-api-key", "", "Anthropic API key (falls back to ANTHROPIC_API_KEY)")
	enrichModel   = flag.String("enrich-model", "", "Anthropic model identifier")
	outputCSV     = flag.String("out", "jobs.csv", "CSV output path")
	configFile    = flag.String("config", "", "Optional global TOML config path")
	logLevel      = flag.String("log-level", "info", "Log level: trace/debug/info/warn/error")
)

func main() {
	flag.Parse()

	logging.Setup(*logLevel, "")
	logger := logging.Get()

	if *companyName == "" || *targetURL == "" {
		logger.Fatal().Msg("-company and -url are required")
	}

	global, err := config.LoadGlobalConfig(*configFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load global config")
	}
	level := global.Logging.Level
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "log-level" {
			level = *logLevel
		}
	})
	logging.Setup(level, global.Logging.TimeFormat)
	logger = logging.Get()

	run := config.RunConfig{
		CompanyName:          *companyName,
		TargetURL:            *targetURL,
		Platform:             *platformID,
		JobDetailConcurrency: *concurrency,
		EnrichmentEnabled:    *enrichEnabled,
		EnrichmentAPIKey:     resolveAPIKey(*enrichAPIKey),
		EnrichmentModel:      *enrichModel,
	}
	if *maxPages >= 0 {
		run.MaxPages = maxPages
	}

	factory := platform.NewFactory(global.Defaults)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn().Msg("interrupt received, cancelling run")
		cancel()
	}()

	dest := sink.CSVSink{Path: *outputCSV}

	o := orchestrator.New(factory)
	report, records, err := o.Run(ctx, run, dest)
	if err != nil {
		logger.Fatal().Err(err).Msg("run failed")
	}

	logger.Info().
		Str("run_id", report.RunID).
		Int("total_summaries", report.TotalSummaries).
		Int("persisted", report.Persisted).
		Int("filtered_duplicate", report.FilteredDuplicate).
		Int("filtered_stale", report.FilteredStale).
		Int("detail_failed", report.DetailFailed).
		Str("enrichment_state", report.EnrichmentState).
		Int("enrichment_calls", report.EnrichmentCalls).
		Msg("run complete")

	fmt.Printf("wrote %d records to %s\n", len(records), *outputCSV)
}

func resolveAPIKey(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("ANTHROPIC_API_KEY")
}
