package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hallamw/commlog/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeLogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write log file: %v", err)
	}
	return path
}

func TestImportFile_Basic(t *testing.T) {
	s := newTestStore(t)
	path := writeLogFile(t, strings.Join([]string{
		"1 SMS From 05/06/2014 From: +9607777472 Ahmed",
		"05:07:40(UTC+0) Hello there",
		"2 SMS To 05/06/2014 To: 7771234 Aminath",
		"06:00:00(UTC+0) see you soon",
	}, "\n"))

	res, err := NewEngine(s).ImportFile(context.Background(), path, ImportOptions{})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	if res.Stats.Records != 2 || res.Stats.MessagesCreated != 2 {
		t.Errorf("unexpected stats: %+v", res.Stats)
	}
	if res.Stats.ContactsCreated != 2 {
		t.Errorf("expected 2 contacts created, got %d", res.Stats.ContactsCreated)
	}
	if res.Stats.Errors != 0 || len(res.RecordErrors) != 0 {
		t.Errorf("unexpected errors: %+v", res.RecordErrors)
	}
	if res.RunID == "" {
		t.Error("expected a run id on a real import")
	}

	contacts, err := s.AllContacts(context.Background())
	if err != nil {
		t.Fatalf("AllContacts failed: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(contacts))
	}
	// Numbers are stored in canonical form.
	if contacts[0].PhoneNumber != "+9607777472" || contacts[1].PhoneNumber != "+9607771234" {
		t.Errorf("unexpected phones: %q / %q", contacts[0].PhoneNumber, contacts[1].PhoneNumber)
	}
	if contacts[0].Name != "Ahmed" {
		t.Errorf("unexpected name %q", contacts[0].Name)
	}
}

func TestImportFile_DryRunCreatesNothing(t *testing.T) {
	s := newTestStore(t)

	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines,
			fmt.Sprintf("%d SMS From 05/06/2014 From: 777%04d", i+1, i),
			fmt.Sprintf("05:07:%02d(UTC+0) message %d", i%60, i))
	}
	path := writeLogFile(t, strings.Join(lines, "\n"))

	res, err := NewEngine(s).ImportFile(context.Background(), path, ImportOptions{DryRun: true})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	if res.Stats.Records != 50 {
		t.Errorf("expected 50 records, got %d", res.Stats.Records)
	}
	if res.Stats.MessagesCreated != 0 || res.Stats.ContactsCreated != 0 {
		t.Errorf("dry run must create nothing: %+v", res.Stats)
	}
	if res.WouldImport != 50 {
		t.Errorf("expected WouldImport=50, got %d", res.WouldImport)
	}
	if res.RunID != "" {
		t.Error("dry run must not log an import run")
	}

	st, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.ContactCount != 0 || st.MessageCount != 0 || st.RunCount != 0 {
		t.Errorf("dry run left rows behind: %+v", st)
	}
}

func TestImportFile_DuplicateSkipped(t *testing.T) {
	s := newTestStore(t)
	record := "1 SMS From 05/06/2014 From: 7771234\n05:07:40(UTC+0) same message\n"
	path := writeLogFile(t, record+record)

	res, err := NewEngine(s).ImportFile(context.Background(), path, ImportOptions{})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if res.Stats.MessagesCreated != 1 {
		t.Errorf("expected 1 created, got %d", res.Stats.MessagesCreated)
	}
	if res.Stats.DuplicatesSkipped != 1 {
		t.Errorf("expected 1 duplicate skipped, got %d", res.Stats.DuplicatesSkipped)
	}
}

func TestImportFile_NoDuplicateCheck(t *testing.T) {
	s := newTestStore(t)
	record := "1 SMS From 05/06/2014 From: 7771234\n05:07:40(UTC+0) same message\n"
	path := writeLogFile(t, record+record)

	res, err := NewEngine(s).ImportFile(context.Background(), path, ImportOptions{NoDuplicateCheck: true})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if res.Stats.MessagesCreated != 2 || res.Stats.DuplicatesSkipped != 0 {
		t.Errorf("duplicate check should be off: %+v", res.Stats)
	}
}

func TestImportFile_ReimportIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	path := writeLogFile(t, strings.Join([]string{
		"1 SMS From 05/06/2014 From: 7771234",
		"05:07:40(UTC+0) hello",
		"2 Call Log From 05/06/2014 From: 7775678",
		"06:00:00(UTC+0)",
	}, "\n"))

	engine := NewEngine(s)
	if _, err := engine.ImportFile(context.Background(), path, ImportOptions{}); err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	res, err := engine.ImportFile(context.Background(), path, ImportOptions{})
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if res.Stats.MessagesCreated != 0 || res.Stats.DuplicatesSkipped != 2 {
		t.Errorf("re-import should skip everything: %+v", res.Stats)
	}
}

func TestImportFile_FallbackReceiver(t *testing.T) {
	s := newTestStore(t)
	path := writeLogFile(t, strings.Join([]string{
		"1 SMS From 05/06/2014 From: 7771234 Ahmed",
		"05:07:40(UTC+0) incoming",
		"2 SMS To 05/06/2014",
		"05:08:00(UTC+0) reply with no number",
	}, "\n"))

	if _, err := NewEngine(s).ImportFile(context.Background(), path, ImportOptions{}); err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	ctx := context.Background()
	ahmed, err := s.FindContactByPhone(ctx, "+9607771234")
	if err != nil || ahmed == nil {
		t.Fatalf("contact lookup failed: %v / %v", ahmed, err)
	}
	msgs, err := s.MessagesForContact(ctx, ahmed.ID)
	if err != nil {
		t.Fatalf("MessagesForContact failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected both messages tied to the contact, got %d", len(msgs))
	}
	reply := msgs[1]
	if reply.Direction != store.DirectionTo {
		t.Errorf("unexpected direction %q", reply.Direction)
	}
	if reply.ReceiverID == nil || *reply.ReceiverID != ahmed.ID {
		t.Errorf("fallback receiver not applied: %+v", reply.ReceiverID)
	}
}

func TestImportFile_RecordErrorsDoNotAbort(t *testing.T) {
	s := newTestStore(t)
	path := writeLogFile(t, strings.Join([]string{
		"1 SMS From 32/13/2014 From: 7771234",
		"bad date above",
		"2 SMS From 05/06/2014 From: 7771234",
		"05:07:40(UTC+0) good record",
	}, "\n"))

	var reported int
	res, err := NewEngine(s).ImportFile(context.Background(), path, ImportOptions{
		ErrorFn: func(line int, raw string, err error) { reported++ },
	})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	if res.Stats.Records != 2 || res.Stats.Errors != 1 || res.Stats.MessagesCreated != 1 {
		t.Errorf("unexpected stats: %+v", res.Stats)
	}
	if len(res.RecordErrors) != 1 || res.RecordErrors[0].Line != 1 {
		t.Errorf("unexpected record errors: %+v", res.RecordErrors)
	}
	if reported != 1 {
		t.Errorf("error callback fired %d times", reported)
	}
	if got := res.Stats.SuccessRate(); got != 0.5 {
		t.Errorf("unexpected success rate %v", got)
	}
}

func TestImportFile_MissingFileIsFatal(t *testing.T) {
	s := newTestStore(t)
	_, err := NewEngine(s).ImportFile(context.Background(), "/nonexistent/export.txt", ImportOptions{})
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestImportFile_SmallBatches(t *testing.T) {
	s := newTestStore(t)

	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines,
			fmt.Sprintf("%d SMS From 05/06/2014 From: 7771234", i+1),
			fmt.Sprintf("05:07:%02d(UTC+0) message %d", i, i))
	}
	path := writeLogFile(t, strings.Join(lines, "\n"))

	res, err := NewEngine(s).ImportFile(context.Background(), path, ImportOptions{BatchSize: 2})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if res.Stats.MessagesCreated != 5 {
		t.Errorf("expected 5 messages across 3 flushes, got %d", res.Stats.MessagesCreated)
	}
	if res.Stats.ContactsCreated != 1 {
		t.Errorf("contact should be cached across batches, got %d created", res.Stats.ContactsCreated)
	}
}

func TestImportFile_LogsRun(t *testing.T) {
	s := newTestStore(t)
	path := writeLogFile(t, "1 SMS From 05/06/2014 From: 7771234\n05:07:40(UTC+0) hi\n")

	res, err := NewEngine(s).ImportFile(context.Background(), path, ImportOptions{})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	runs, err := s.RecentImportRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentImportRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != res.RunID {
		t.Errorf("run id mismatch: %q vs %q", run.ID, res.RunID)
	}
	if run.SourceFile != path || run.MessagesCreated != 1 || run.Records != 1 {
		t.Errorf("unexpected run row: %+v", run)
	}
}
