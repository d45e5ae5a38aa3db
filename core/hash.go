package core

import (
	"crypto/sha256"
	"fmt"
)

// ComputeContextDigest computes a stable digest of the decision-relevant
// snapshot fields. Audit records carry it so a logged decision can be tied
// back to the exact auction state it was made against.
//
// Formula: SHA256(domain + "|" + platform + "|" + sprintf("%.2f", current_bid)
// + "|" + sprintf("%.2f", estimated_value) + "|" + sprintf("%d", num_bidders))
//
// Amounts are formatted to exactly 2 decimal places so the digest does not
// depend on how the floats are represented in memory.
func ComputeContextDigest(ctx *AuctionContext) string {
	data := fmt.Sprintf("%s|%s|%.2f|%.2f|%d",
		ctx.Domain, ctx.Platform, ctx.CurrentBid, ctx.EstimatedValue, ctx.NumBidders)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeRoundKey computes the natural key for one decision round within an
// auction thread. History upserts use it so retries after partial failures
// update rather than duplicate.
//
// Formula: SHA256(thread_id + "|" + sprintf("%d", round_number))
func ComputeRoundKey(threadID string, roundNumber int) string {
	data := fmt.Sprintf("%s|%d", threadID, roundNumber)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
