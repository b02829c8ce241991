package ingest

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// startLineRE matches a record-start line: optional numeric id, a record
// type token, an optional direction token, and a day/month/year date
// token, in that order, with optional trailing free text.
var startLineRE = regexp.MustCompile(
	`^\s*(?:(\d+)\s+)?(SMS|Call Log|Calendar|Instant)\s+(?:(From|To)\s+)?(\d{1,2}/\d{1,2}/\d{2,4})\s*(.*)$`)

// ScanRecords reads a line-oriented stream and groups raw lines into
// logical records: a two-state machine {idle, accumulating} that starts a
// new record on every start line (flushing the previous one), appends
// every other non-empty line to the current record, and flushes the last
// record at end of stream.
//
// Empty lines are counted as skipped but never start or terminate a
// record. Non-empty lines seen before the first start line have no record
// to attach to and are counted as skipped too.
//
// emit is called once per completed record; a non-nil error from emit
// aborts the scan.
func ScanRecords(r io.Reader, emit func(rec *RawRecord) error) (totalLines, skippedLines int64, err error) {
	scanner := bufio.NewScanner(r)
	// Some exports carry very long continuation lines (base64 attachments).
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var current *RawRecord
	lineNo := 0

	flush := func() error {
		if current == nil {
			return nil
		}
		rec := current
		current = nil
		return emit(rec)
	}

	for scanner.Scan() {
		lineNo++
		totalLines++
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			skippedLines++
			continue
		}

		if m := startLineRE.FindStringSubmatch(line); m != nil {
			if err := flush(); err != nil {
				return totalLines, skippedLines, err
			}
			var seq int64
			if m[1] != "" {
				seq, _ = strconv.ParseInt(m[1], 10, 64)
			}
			current = &RawRecord{
				Seq:       seq,
				TypeToken: m[2],
				Direction: m[3],
				DateToken: m[4],
				Rest:      strings.TrimSpace(m[5]),
				StartLine: lineNo,
				Raw:       line,
			}
			continue
		}

		if current == nil {
			skippedLines++
			continue
		}
		current.Extra = append(current.Extra, line)
		current.Raw += "\n" + line
	}

	if err := scanner.Err(); err != nil {
		return totalLines, skippedLines, err
	}
	if err := flush(); err != nil {
		return totalLines, skippedLines, err
	}
	return totalLines, skippedLines, nil
}
