package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hallamw/commlog/internal/store"
)

func runContacts(args []string) error {
	cliDBPath, rest, err := splitDBFlag(args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	s, err := openStore(cliDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	contacts, err := s.ListContacts(context.Background())
	if err != nil {
		return err
	}

	if len(contacts) == 0 {
		fmt.Println("No contacts. Run `commlog import <file>` first.")
		return nil
	}

	fmt.Printf("%-6s %-16s %-24s %-10s %6s %6s\n", "ID", "PHONE", "NAME", "TYPE", "SENT", "RECVD")
	for _, c := range contacts {
		name := c.Name
		if name == "" {
			name = "-"
		}
		fmt.Printf("%-6d %-16s %-24s %-10s %6d %6d\n",
			c.ID, c.PhoneNumber, name, c.Type, c.Sent, c.Received)
	}
	return nil
}

func runMessages(args []string) error {
	cliDBPath, rest, err := splitDBFlag(args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("usage: commlog messages <contact-id>")
	}
	contactID, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid contact id %q", rest[0])
	}

	s, err := openStore(cliDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	c, err := s.GetContact(ctx, contactID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("contact %d not found", contactID)
	}

	msgs, err := s.MessagesForContact(ctx, contactID)
	if err != nil {
		return err
	}

	label := c.Name
	if label == "" {
		label = c.PhoneNumber
	}
	fmt.Printf("%s — %d messages\n\n", label, len(msgs))
	for _, m := range msgs {
		printMessage(m, "")
	}
	return nil
}

func runSearch(args []string) error {
	cliDBPath, rest, err := splitDBFlag(args)
	if err != nil {
		return err
	}

	window := store.DefaultSearchWindow
	limit := 10
	var terms []string
	for _, arg := range rest {
		switch {
		case strings.HasPrefix(arg, "--window="):
			window, err = strconv.Atoi(strings.TrimPrefix(arg, "--window="))
			if err != nil || window < 0 {
				return fmt.Errorf("invalid --window value")
			}
		case strings.HasPrefix(arg, "--limit="):
			limit, err = strconv.Atoi(strings.TrimPrefix(arg, "--limit="))
			if err != nil || limit <= 0 {
				return fmt.Errorf("invalid --limit value")
			}
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			terms = append(terms, arg)
		}
	}
	if len(terms) == 0 {
		return fmt.Errorf("usage: commlog search <query> [--window=N] [--limit=N]")
	}

	s, err := openStore(cliDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	hits, err := s.SearchMessages(context.Background(), strings.Join(terms, " "), limit, window)
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Println("No matches.")
		return nil
	}

	for i, hit := range hits {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("Match %d/%d (message %d):\n", i+1, len(hits), hit.Message.ID)
		for _, m := range hit.Context {
			if beforeInTimeline(m, &hit.Message) {
				printMessage(m, "   ")
			}
		}
		printMessage(&hit.Message, ">> ")
		for _, m := range hit.Context {
			if !beforeInTimeline(m, &hit.Message) {
				printMessage(m, "   ")
			}
		}
	}
	return nil
}

func runStats(args []string) error {
	cliDBPath, rest, err := splitDBFlag(args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	s, err := openStore(cliDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	st, err := s.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Contacts:    %d\n", st.ContactCount)
	fmt.Printf("Messages:    %d\n", st.MessageCount)
	fmt.Printf("Import runs: %d\n", st.RunCount)
	if st.DBSizeBytes > 0 {
		fmt.Printf("DB size:     %.1f KB\n", float64(st.DBSizeBytes)/1024)
	}

	runs, err := s.RecentImportRuns(ctx, 5)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		fmt.Println("\nRecent imports:")
		for _, r := range runs {
			fmt.Printf("  %s  %s  records=%d messages=%d errors=%d\n",
				r.StartedAt.Format("2006-01-02 15:04"), r.SourceFile,
				r.Records, r.MessagesCreated, r.Errors)
		}
	}
	return nil
}

func runVacuum(args []string) error {
	cliDBPath, rest, err := splitDBFlag(args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	s, err := openStore(cliDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Vacuum(context.Background()); err != nil {
		return err
	}
	fmt.Println("Database compacted.")
	return nil
}

// beforeInTimeline orders messages by (timestamp, id).
func beforeInTimeline(a, b *store.Message) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.ID < b.ID
	}
	return a.Timestamp.Before(b.Timestamp)
}

// printMessage renders one message line with an optional prefix.
func printMessage(m *store.Message, prefix string) {
	who := ""
	switch m.Direction {
	case store.DirectionFrom:
		if m.SenderID != nil {
			who = fmt.Sprintf(" from #%d", *m.SenderID)
		}
	case store.DirectionTo:
		if m.ReceiverID != nil {
			who = fmt.Sprintf(" to #%d", *m.ReceiverID)
		}
	}
	fmt.Printf("%s%s [%s %s%s] %s\n", prefix,
		m.Timestamp.Format("2006-01-02 15:04:05"),
		m.MessageType, m.Direction, who, preview(m.Content))
}

// splitDBFlag peels a --db=PATH flag off an argument list.
func splitDBFlag(args []string) (dbPath string, rest []string, err error) {
	for _, arg := range args {
		if strings.HasPrefix(arg, "--db=") {
			dbPath = strings.TrimPrefix(arg, "--db=")
			continue
		}
		rest = append(rest, arg)
	}
	return dbPath, rest, nil
}
