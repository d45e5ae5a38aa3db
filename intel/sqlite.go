package intel

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// LoadDataset reads all market-intelligence tables from a sqlite database
// into memory. The database is produced by the offline preprocessing jobs
// and is never written by this process, so it is opened, drained, and
// closed in one shot.
func LoadDataset(ctx context.Context, dbPath string) (*Dataset, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_busy_timeout=5000&mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open intelligence db: %w", err)
	}
	defer db.Close()

	bidders, err := loadBidderProfiles(ctx, db)
	if err != nil {
		return nil, err
	}
	domains, err := loadDomainStats(ctx, db)
	if err != nil {
		return nil, err
	}
	archetypes, err := loadArchetypes(ctx, db)
	if err != nil {
		return nil, err
	}

	return NewDataset(bidders, domains, archetypes), nil
}

func loadBidderProfiles(ctx context.Context, db *sql.DB) ([]BidderProfile, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT bidder_id, total_auctions, total_bids, avg_bid_increase,
		       max_bid, win_rate, late_bid_ratio, avg_reaction_time, proxy_usage
		FROM bidder_profiles`)
	if err != nil {
		return nil, fmt.Errorf("query bidder_profiles: %w", err)
	}
	defer rows.Close()

	var out []BidderProfile
	for rows.Next() {
		var p BidderProfile
		if err := rows.Scan(&p.BidderID, &p.TotalAuctions, &p.TotalBids, &p.AvgBidIncrease,
			&p.MaxBid, &p.WinRate, &p.LateBidRatio, &p.AvgReactionTime, &p.ProxyUsage); err != nil {
			return nil, fmt.Errorf("scan bidder profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func loadDomainStats(ctx context.Context, db *sql.DB) ([]DomainStats, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT domain, avg_final_price, volatility, auction_count
		FROM domain_stats`)
	if err != nil {
		return nil, fmt.Errorf("query domain_stats: %w", err)
	}
	defer rows.Close()

	var out []DomainStats
	for rows.Next() {
		var d DomainStats
		if err := rows.Scan(&d.Domain, &d.AvgFinalPrice, &d.Volatility, &d.AuctionCount); err != nil {
			return nil, fmt.Errorf("scan domain stats: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func loadArchetypes(ctx context.Context, db *sql.DB) ([]ArchetypeRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT late_bid_ratio, avg_bid_jump, duration_sec
		FROM auction_archetypes`)
	if err != nil {
		return nil, fmt.Errorf("query auction_archetypes: %w", err)
	}
	defer rows.Close()

	var out []ArchetypeRow
	for rows.Next() {
		var a ArchetypeRow
		if err := rows.Scan(&a.LateBidRatio, &a.AvgBidJump, &a.DurationSec); err != nil {
			return nil, fmt.Errorf("scan archetype: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
