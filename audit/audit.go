// Package audit keeps an append-only log of final decisions. Records are
// CBOR-encoded back to back in a single file, so the log can be replayed
// or tailed without any framing beyond the codec itself.
package audit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"

	"github.com/cloudx-io/proxypilot/core"
)

// Record is one audited decision. ContextDigest ties the record back to the
// exact auction snapshot the decision was made against.
type Record struct {
	RunID         string             `cbor:"run_id"`
	RecordedAt    time.Time          `cbor:"recorded_at"`
	Domain        string             `cbor:"domain"`
	Platform      core.Platform      `cbor:"platform"`
	ContextDigest string             `cbor:"context_digest"`
	Decision      core.FinalDecision `cbor:"decision"`
}

// Writer appends records to a log file. It is for sequential use by a
// single advisor; callers needing concurrency serialize above it.
type Writer struct {
	file *os.File
	enc  *cbor.Encoder
	log  zerolog.Logger
}

// NewWriter opens (creating if needed) the audit log at path for appending.
func NewWriter(path string, log zerolog.Logger) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Writer{
		file: file,
		enc:  cbor.NewEncoder(file),
		log:  log.With().Str("component", "audit").Logger(),
	}, nil
}

// Append writes one record. RecordedAt is stamped when unset.
func (w *Writer) Append(r Record) error {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}
	if err := w.enc.Encode(r); err != nil {
		return fmt.Errorf("append audit record %s: %w", r.RunID, err)
	}
	w.log.Debug().Str("run_id", r.RunID).Str("domain", r.Domain).Msg("decision audited")
	return nil
}

func (w *Writer) Close() error {
	return w.file.Close()
}

// ReadAll decodes every record in an audit log, in append order.
func ReadAll(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	dec := cbor.NewDecoder(file)
	var records []Record
	for {
		var r Record
		if err := dec.Decode(&r); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return nil, fmt.Errorf("decode audit record: %w", err)
		}
		records = append(records, r)
	}
}
