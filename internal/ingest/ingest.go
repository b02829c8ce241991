// Package ingest provides the import pipeline for commlog.
//
// Exported communication logs arrive as one free-text file mixing SMS,
// call, instant-message, and calendar records in a loosely delimited
// multi-line format. The pipeline reassembles raw lines into logical
// records, extracts phone/name/content/timestamp fields, resolves
// contacts against the store, and commits messages in bounded batches.
//
// Control flow: file -> Reassembler -> type-specific RecordParser ->
// Session/Resolver -> BatchWriter -> store.
package ingest

import (
	"fmt"
	"time"

	"github.com/hallamw/commlog/internal/store"
)

// RawRecord is one reassembled multi-line record, not yet parsed.
type RawRecord struct {
	Seq       int64    // leading numeric id on the start line, 0 if absent
	TypeToken string   // "SMS", "Call Log", "Calendar", "Instant"
	Direction string   // "From", "To", or "" when the start line carries none
	DateToken string   // day/month/year date token
	Rest      string   // free text after the date token on the start line
	Extra     []string // continuation lines, verbatim
	StartLine int      // 1-indexed line number of the start line
	Raw       string   // all source lines of the record, newline-joined
}

// ParsedMessage is the structured output of a RecordParser, ready for the
// batch writer to resolve contacts and persist.
type ParsedMessage struct {
	Type           store.MessageType
	Direction      store.Direction
	SenderNumber   string
	SenderName     string
	ReceiverNumber string
	ReceiverName   string
	Timestamp      time.Time
	Content        string
	Attachment     string
	Location       string
	Raw            string
	StartLine      int
}

// Stats accumulates counters over one import run.
type Stats struct {
	TotalLines        int64
	Records           int64
	ContactsCreated   int64
	MessagesCreated   int64
	Errors            int64
	SkippedLines      int64
	DuplicatesSkipped int64
}

// SuccessRate is (records - errors) / records. 0 for an empty run.
func (s Stats) SuccessRate() float64 {
	if s.Records == 0 {
		return 0
	}
	return float64(s.Records-s.Errors) / float64(s.Records)
}

// RecordError records a non-fatal record-level failure during import.
type RecordError struct {
	Line int
	Raw  string
	Err  string
}

// Result summarizes one import run.
type Result struct {
	Stats        Stats
	WouldImport  int64 // dry-run only: messages that would have been inserted
	RunID        string
	RecordErrors []RecordError
}

// ImportOptions configures an import run. The zero value carries the
// defaults: duplicate check enabled, batch size 100, real (non-dry) run.
type ImportOptions struct {
	DryRun           bool
	NoDuplicateCheck bool
	BatchSize        int
	ProgressFn       func(m *store.Message)
	ErrorFn          func(line int, raw string, err error)
}

// DefaultBatchSize is the batch writer's default buffer capacity.
const DefaultBatchSize = 100

// Normalize fills in defaults.
func (o *ImportOptions) Normalize() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
}

// FormatResult renders the final statistics block.
func FormatResult(r *Result) string {
	s := r.Stats
	out := fmt.Sprintf(`Import complete:
  Total lines:        %d
  Records processed:  %d
  Contacts created:   %d
  Messages created:   %d
  Duplicates skipped: %d
  Skipped lines:      %d
  Errors:             %d
  Success rate:       %.1f%%
`, s.TotalLines, s.Records, s.ContactsCreated, s.MessagesCreated,
		s.DuplicatesSkipped, s.SkippedLines, s.Errors, s.SuccessRate()*100)

	if r.WouldImport > 0 {
		out += fmt.Sprintf("  Would import:       %d (dry run)\n", r.WouldImport)
	}
	return out
}
