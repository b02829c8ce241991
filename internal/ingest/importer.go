package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/hallamw/commlog/internal/store"
)

// Engine drives a full import run: stream the file through the
// reassembler, parse each record by type, and feed the batch writer.
// Import is single-threaded and sequential; the file is never loaded
// wholly into memory.
type Engine struct {
	store store.Store
}

// NewEngine returns an import engine over the given store.
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

// ImportFile imports one exported log file. A missing or unreadable file
// is fatal and returns an error before any processing; record-level parse
// failures and individual persistence failures are logged, counted, and
// never abort the run.
func (e *Engine) ImportFile(ctx context.Context, path string, opts ImportOptions) (*Result, error) {
	opts.Normalize()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	result := &Result{}
	sess := NewSession()

	recordError := func(line int, raw string, err error) {
		result.RecordErrors = append(result.RecordErrors, RecordError{
			Line: line, Raw: raw, Err: err.Error(),
		})
		if opts.ErrorFn != nil {
			opts.ErrorFn(line, raw, err)
		}
	}
	writerOpts := opts
	writerOpts.ErrorFn = recordError

	writer := NewBatchWriter(e.store, writerOpts)
	startedAt := time.Now().UTC()

	totalLines, skippedLines, err := ScanRecords(f, func(rec *RawRecord) error {
		sess.Stats.Records++

		parser := ParserFor(rec.TypeToken)
		if parser == nil {
			recordError(rec.StartLine, rec.Raw, fmt.Errorf("unknown record type %q", rec.TypeToken))
			sess.Stats.Errors++
			return nil
		}

		pm, err := parser.Parse(rec)
		if err != nil {
			recordError(rec.StartLine, rec.Raw, err)
			sess.Stats.Errors++
			return nil
		}

		return writer.Add(ctx, sess, pm)
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := writer.Flush(ctx, sess); err != nil {
		return nil, err
	}

	sess.Stats.TotalLines = totalLines
	sess.Stats.SkippedLines += skippedLines

	result.Stats = sess.Stats
	result.WouldImport = writer.WouldImport()

	if !opts.DryRun {
		result.RunID = uuid.NewString()
		run := &store.ImportRun{
			ID:                result.RunID,
			SourceFile:        path,
			StartedAt:         startedAt,
			FinishedAt:        time.Now().UTC(),
			TotalLines:        sess.Stats.TotalLines,
			Records:           sess.Stats.Records,
			ContactsCreated:   sess.Stats.ContactsCreated,
			MessagesCreated:   sess.Stats.MessagesCreated,
			Errors:            sess.Stats.Errors,
			SkippedLines:      sess.Stats.SkippedLines,
			DuplicatesSkipped: sess.Stats.DuplicatesSkipped,
		}
		if err := e.store.RecordImportRun(ctx, run); err != nil {
			// Audit log failure shouldn't fail a completed import.
			fmt.Fprintf(os.Stderr, "Warning: recording import run: %v\n", err)
		}
	}

	return result, nil
}
