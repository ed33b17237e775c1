// Package main provides the run-once tender crawler. An external scheduler
// (or a human) invokes it; the exit status tells the scheduler how the run
// went: 0 completed, 1 failed, 2 partial failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"printwatch/internal/config"
	"printwatch/internal/logger"
	"printwatch/internal/models"
	"printwatch/internal/output"
	"printwatch/internal/runner"
	"printwatch/internal/store"
)

func main() {
	configFile := flag.String("config", "configs/crawler.yaml", "Path to YAML configuration file")
	tablePath := flag.String("table", "", "Output table path (overrides config)")
	pagePath := flag.String("page", "", "Display page path (overrides config)")
	showUsage := flag.Bool("help", false, "Show usage information")

	flag.Parse()

	if *showUsage {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *tablePath != "" {
		cfg.Crawler.Output.TablePath = *tablePath
	}

	if *pagePath != "" {
		cfg.Crawler.Output.PagePath = *pagePath
	}

	log := logger.New(cfg.Crawler.Logging.Level)
	log.Info("configuration loaded", "config", cfg.String())

	st, err := store.Open(&cfg.Crawler.Store)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	defer func() {
		_ = st.Close()
	}()

	writer := output.NewWriter(&cfg.Crawler.Output)
	lock := store.NewRunLock(cfg.Crawler.LockPath())

	r := runner.New(cfg, st, writer, lock, log)

	result, runErr := r.Run(context.Background())
	if runErr != nil {
		log.Error("run ended with error", "error", runErr)
	}

	printReport(result)

	os.Exit(result.ExitCode())
}

func printReport(result *models.RunResult) {
	fmt.Println("\n------------------------------------------------")
	fmt.Println("📊 Run Report")
	fmt.Println("------------------------------------------------")
	fmt.Printf("Run ID: %s\n", result.RunID)
	fmt.Printf("Duration: %v\n\n", result.Duration)
	fmt.Print(output.RenderSummary(result))
	fmt.Println("------------------------------------------------")
}

func printUsage() {
	fmt.Println("Usage: ./bin/crawler [OPTIONS]")
	fmt.Println()
	fmt.Println("Runs one crawl across all configured sites, merges the findings")
	fmt.Println("into the persisted table, and regenerates the display page.")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Exit status: 0 completed, 1 failed, 2 partial failure.")
}
