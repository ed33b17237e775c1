// Package main regenerates the display artifacts from the persisted table
// without crawling. Useful after editing the page template or recovering
// the page from the table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"printwatch/internal/config"
	"printwatch/internal/output"
	"printwatch/internal/store"
)

func main() {
	configFile := flag.String("config", "configs/crawler.yaml", "Path to YAML configuration file")
	pagePath := flag.String("page", "", "Display page path (overrides config)")

	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *pagePath != "" {
		cfg.Crawler.Output.PagePath = *pagePath
	}

	st, err := store.Open(&cfg.Crawler.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to open store: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		_ = st.Close()
	}()

	table, err := st.Load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load table: %v\n", err)
		os.Exit(1)
	}

	writer := output.NewWriter(&cfg.Crawler.Output)
	if err := writer.Write(table, nil); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to write output: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Rendered %d records to %s\n", table.Len(), cfg.Crawler.Output.PagePath)
}
