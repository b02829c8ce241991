package store

import (
	"context"
	"database/sql"
	"fmt"
)

// RecordImportRun appends one entry to the import audit log.
func (s *SQLiteStore) RecordImportRun(ctx context.Context, r *ImportRun) error {
	if r.ID == "" {
		return fmt.Errorf("import run id cannot be empty")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, source_file, started_at, finished_at,
			total_lines, records, contacts_created, messages_created,
			errors, skipped_lines, duplicates_skipped, dry_run)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SourceFile, r.StartedAt.UTC(), r.FinishedAt.UTC(),
		r.TotalLines, r.Records, r.ContactsCreated, r.MessagesCreated,
		r.Errors, r.SkippedLines, r.DuplicatesSkipped, boolToInt(r.DryRun),
	)
	if err != nil {
		return fmt.Errorf("recording import run: %w", err)
	}
	return nil
}

// RecentImportRuns returns the most recent import runs, newest first.
func (s *SQLiteStore) RecentImportRuns(ctx context.Context, limit int) ([]*ImportRun, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_file, started_at, finished_at, total_lines, records,
		        contacts_created, messages_created, errors, skipped_lines,
		        duplicates_skipped, dry_run
		 FROM import_runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing import runs: %w", err)
	}
	defer rows.Close()

	var out []*ImportRun
	for rows.Next() {
		r := &ImportRun{}
		var sourceFile sql.NullString
		var dryRun int
		if err := rows.Scan(&r.ID, &sourceFile, &r.StartedAt, &r.FinishedAt,
			&r.TotalLines, &r.Records, &r.ContactsCreated, &r.MessagesCreated,
			&r.Errors, &r.SkippedLines, &r.DuplicatesSkipped, &dryRun); err != nil {
			return nil, fmt.Errorf("scanning import run row: %w", err)
		}
		r.SourceFile = sourceFile.String
		r.DryRun = dryRun != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
