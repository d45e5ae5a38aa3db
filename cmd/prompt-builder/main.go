package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/cloudx-io/proxypilot/core"
	"github.com/cloudx-io/proxypilot/history"
	"github.com/cloudx-io/proxypilot/intel"
	"github.com/cloudx-io/proxypilot/oracle"
)

func main() {
	// Define CLI flags
	var (
		contextInput = flag.String("context", "", "Auction context JSON (file path or inline JSON)")
		intelDB      = flag.String("intel-db", "", "Market intelligence sqlite database (optional)")
		historyDB    = flag.String("history-db", "", "Auction history sqlite database (optional)")
		lastBidder   = flag.String("last-bidder", "", "Known id of the opposing bidder (optional)")
		help         = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	// Show help
	if *help {
		showUsage()
		os.Exit(0)
	}

	if *contextInput == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: --context is required\n")
		os.Exit(2)
	}

	auctionCtx, err := readAuctionContext(*contextInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading auction context: %v\n", err)
		os.Exit(2)
	}

	log := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	req := oracle.Request{Context: auctionCtx}

	if *intelDB != "" {
		dataset, err := intel.LoadDataset(context.Background(), *intelDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading intelligence dataset: %v\n", err)
			os.Exit(2)
		}
		enrichment := intel.NewResolver(dataset, log).Enrich(auctionCtx, *lastBidder)
		req.Enrichment = &enrichment
	}

	if *historyDB != "" {
		store, err := history.OpenSQLite(*historyDB, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
			os.Exit(2)
		}
		defer store.Close()

		hc, err := history.NewLearning(store, log).HistoricalContext(context.Background(), auctionCtx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error building historical context: %v\n", err)
			os.Exit(2)
		}
		req.HistoricalContext = hc.PromptSection()
	}

	prompts := oracle.NewPromptBuilder()
	fmt.Println("=== SYSTEM PROMPT ===")
	fmt.Println(prompts.SystemPrompt())
	fmt.Println()
	fmt.Println("=== USER PROMPT ===")
	fmt.Println(prompts.UserPrompt(req))
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Oracle Prompt Builder")
	fmt.Println()
	fmt.Println("Renders the exact system and user prompts the bid advisor would send")
	fmt.Println("to the reasoning oracle for a given auction context.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  prompt-builder --context <json> [options]")
	fmt.Println()
	fmt.Println("Required Flags:")
	fmt.Println("  --context <json>     Auction context (file path or inline JSON)")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --intel-db <path>    Include market-intelligence sections")
	fmt.Println("  --history-db <path>  Include the historical-performance section")
	fmt.Println("  --last-bidder <id>   Known id of the opposing bidder")
	fmt.Println("  --help               Show this help message")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Prompts rendered")
	fmt.Println("  2 - Invalid input or runtime error")
}

func readAuctionContext(input string) (*core.AuctionContext, error) {
	// Try reading as file first
	data, err := os.ReadFile(input)
	if err != nil {
		// Treat as inline JSON
		data = []byte(input)
	}

	var auctionCtx core.AuctionContext
	if err := json.Unmarshal(data, &auctionCtx); err != nil {
		return nil, fmt.Errorf("parse auction context: %w", err)
	}
	if err := auctionCtx.Validate(); err != nil {
		return nil, err
	}
	return &auctionCtx, nil
}
