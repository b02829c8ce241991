package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hallamw/commlog/internal/config"
	"github.com/hallamw/commlog/internal/ingest"
	"github.com/hallamw/commlog/internal/store"
)

func runImport(args []string) error {
	var path string
	var dryRun, noSkipDuplicates bool
	cliBatchSize := ""
	cliDBPath := ""

	for _, arg := range args {
		switch {
		case arg == "--dry-run" || arg == "-n":
			dryRun = true
		case arg == "--no-skip-duplicates":
			noSkipDuplicates = true
		case strings.HasPrefix(arg, "--batch-size="):
			cliBatchSize = strings.TrimPrefix(arg, "--batch-size=")
		case strings.HasPrefix(arg, "--db="):
			cliDBPath = strings.TrimPrefix(arg, "--db=")
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			if path != "" {
				return fmt.Errorf("unexpected argument: %s", arg)
			}
			path = arg
		}
	}

	if path == "" {
		return fmt.Errorf("usage: commlog import <file> [--dry-run] [--no-skip-duplicates] [--batch-size=N]")
	}

	cliSkip := ""
	if noSkipDuplicates {
		cliSkip = "false"
	}
	cfg, err := config.ResolveConfig(config.ResolveOptions{
		CLIDBPath:        cliDBPath,
		CLIBatchSize:     cliBatchSize,
		CLISkipDuplicate: cliSkip,
	})
	if err != nil {
		return err
	}
	batchSize, err := cfg.BatchSizeValue()
	if err != nil {
		return err
	}
	skipDuplicates, err := cfg.SkipDuplicatesValue()
	if err != nil {
		return err
	}

	s, err := store.NewStore(store.StoreConfig{DBPath: expand(cfg.DBPath.Value)})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	if dryRun {
		fmt.Println("Dry run mode — no changes will be written")
		fmt.Println()
	}

	opts := ingest.ImportOptions{
		DryRun:           dryRun,
		NoDuplicateCheck: !skipDuplicates,
		BatchSize:        batchSize,
		ProgressFn: func(m *store.Message) {
			fmt.Printf("  [%s %s] %s %s\n",
				m.MessageType, m.Direction,
				m.Timestamp.Format("2006-01-02 15:04:05"),
				preview(m.Content))
		},
		ErrorFn: func(line int, raw string, err error) {
			fmt.Fprintf(os.Stderr, "  Error: line %d: %v\n", line, err)
			for _, l := range strings.Split(raw, "\n") {
				fmt.Fprintf(os.Stderr, "    | %s\n", l)
			}
		},
	}

	engine := ingest.NewEngine(s)
	fmt.Printf("Importing %s...\n", path)

	result, err := engine.ImportFile(context.Background(), path, opts)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Print(ingest.FormatResult(result))
	return nil
}

func preview(content string) string {
	const max = 60
	content = strings.Join(strings.Fields(content), " ")
	if len(content) > max {
		return content[:max] + "…"
	}
	return content
}
