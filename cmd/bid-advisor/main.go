package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/cloudx-io/proxypilot/agent"
	"github.com/cloudx-io/proxypilot/audit"
	"github.com/cloudx-io/proxypilot/config"
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
		auditLog     = flag.String("audit-log", "", "Decision audit log path (optional)")
		lastBidder   = flag.String("last-bidder", "", "Known id of the opposing bidder (optional)")
		offline      = flag.Bool("offline", false, "Skip the reasoning oracle and decide by rules only")
		outputFormat = flag.String("format", "text", "Output format: text or json")
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

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(2)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	auctionCtx, err := readAuctionContext(*contextInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading auction context: %v\n", err)
		os.Exit(2)
	}

	opts := agent.Options{Logger: log, SafeMaxRatio: cfg.SafeMaxRatio, CeilingRatio: cfg.CeilingRatio}

	if !*offline && cfg.OracleAPIKey != "" {
		client := oracle.NewClient(oracle.ClientConfig{
			APIKey:       cfg.OracleAPIKey,
			BaseURL:      cfg.OracleBaseURL,
			Model:        cfg.OracleModel,
			SafeMaxRatio: cfg.SafeMaxRatio,
			CeilingRatio: cfg.CeilingRatio,
		}, log)
		retry := oracle.NewRetry(client, log)
		retry.MaxAttempts = cfg.OracleMaxAttempts
		retry.BaseDelay = cfg.OracleBaseDelay
		retry.MaxDelay = cfg.OracleMaxDelay
		retry.AttemptTimeout = cfg.OracleAttemptTimeout
		opts.Oracle = retry
	}

	if *intelDB != "" {
		dataset, err := intel.LoadDataset(context.Background(), *intelDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading intelligence dataset: %v\n", err)
			os.Exit(2)
		}
		opts.Resolver = intel.NewResolver(dataset, log)
	}

	if *historyDB != "" {
		store, err := history.OpenSQLite(*historyDB, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
			os.Exit(2)
		}
		defer store.Close()
		opts.Store = store
	}

	if *auditLog != "" {
		writer, err := audit.NewWriter(*auditLog, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening audit log: %v\n", err)
			os.Exit(2)
		}
		defer writer.Close()
		opts.Audit = writer
	}

	advisor := agent.New(opts)
	decision := advisor.SelectStrategyAgainst(context.Background(), auctionCtx, *lastBidder)

	if *outputFormat == "json" {
		outputJSON(decision)
	} else {
		outputText(auctionCtx, decision)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Domain Auction Bid Advisor")
	fmt.Println()
	fmt.Println("Recommends a bidding action for one domain auction round.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  bid-advisor --context <json> [options]")
	fmt.Println()
	fmt.Println("Required Flags:")
	fmt.Println("  --context <json>       Auction context (file path or inline JSON)")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --intel-db <path>      Market intelligence sqlite database")
	fmt.Println("  --history-db <path>    Auction history sqlite database")
	fmt.Println("  --audit-log <path>     Append decisions to a CBOR audit log")
	fmt.Println("  --last-bidder <id>     Known id of the opposing bidder")
	fmt.Println("  --offline              Skip the reasoning oracle; rule fallback only")
	fmt.Println("  --format <text|json>   Output format (default: text)")
	fmt.Println("  --help                 Show this help message")
	fmt.Println()
	fmt.Println("Auction Context:")
	fmt.Println("  {")
	fmt.Println("    \"domain\": \"example.com\",")
	fmt.Println("    \"platform\": \"godaddy\",")
	fmt.Println("    \"estimated_value\": 1000,")
	fmt.Println("    \"current_bid\": 300,")
	fmt.Println("    \"num_bidders\": 2,")
	fmt.Println("    \"hours_remaining\": 5,")
	fmt.Println("    \"your_current_proxy\": 0,")
	fmt.Println("    \"budget_available\": 5000,")
	fmt.Println("    \"bidder_analysis\": {\"bot_detected\": false, \"aggression_score\": 4}")
	fmt.Println("  }")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  ORACLE_API_KEY / OPENROUTER_API_KEY / OPENAI_API_KEY for the oracle;")
	fmt.Println("  without a key the advisor runs as if --offline were set.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  bid-advisor --context auction.json --intel-db intel.db --history-db history.db")
	fmt.Println("  bid-advisor --context '{\"domain\":\"example.com\",...}' --offline --format json")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Decision produced")
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

func outputText(auctionCtx *core.AuctionContext, decision core.FinalDecision) {
	fmt.Println("Domain Auction Bid Advisor")
	fmt.Println("==========================")
	fmt.Println()
	fmt.Printf("Domain:    %s (%s)\n", auctionCtx.Domain, auctionCtx.Platform)
	fmt.Printf("Current:   $%.2f of $%.2f estimated value, %d bidders\n",
		auctionCtx.CurrentBid, auctionCtx.EstimatedValue, auctionCtx.NumBidders)
	fmt.Println()
	fmt.Println("Decision:")
	fmt.Println("---------")
	fmt.Printf("  Strategy:          %s\n", decision.Strategy)
	fmt.Printf("  Recommended Bid:   $%.2f\n", decision.RecommendedBidAmount)
	fmt.Printf("  Max Budget:        $%.2f\n", decision.MaxBudgetForDomain)
	fmt.Printf("  Risk Level:        %s\n", decision.RiskLevel)
	fmt.Printf("  Confidence:        %.2f\n", decision.Confidence)
	fmt.Printf("  Source:            %s\n", decision.DecisionSource)
	if decision.NextBidAmount != nil {
		fmt.Printf("  Next Bid:          $%.2f\n", *decision.NextBidAmount)
	}
	if decision.ProxyDecision != nil {
		fmt.Println()
		fmt.Println("Proxy Analysis:")
		fmt.Printf("  Action:            %s\n", decision.ProxyDecision.ProxyAction)
		fmt.Printf("  Increase Proxy:    %v\n", decision.ShouldIncreaseProxy)
		if decision.ProxyDecision.NewProxyMax != nil {
			fmt.Printf("  New Proxy Max:     $%.2f\n", *decision.ProxyDecision.NewProxyMax)
		}
		fmt.Printf("  Explanation:       %s\n", decision.ProxyDecision.Explanation)
	}
	fmt.Println()
	fmt.Println("Reasoning:")
	fmt.Printf("  %s\n", decision.Reasoning)
}

func outputJSON(decision core.FinalDecision) {
	data, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}
