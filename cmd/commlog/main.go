package main

import (
	"fmt"
	"os"

	"github.com/hallamw/commlog/internal/config"
	"github.com/hallamw/commlog/internal/ingest"
	"github.com/hallamw/commlog/internal/store"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "import":
		err = runImport(os.Args[2:])
	case "contacts":
		err = runContacts(os.Args[2:])
	case "messages":
		err = runMessages(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "correct":
		err = runCorrect(os.Args[2:])
	case "merge":
		err = runMerge(os.Args[2:])
	case "fix":
		err = runFix(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "vacuum":
		err = runVacuum(os.Args[2:])
	case "mcp":
		err = runMCP(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("commlog %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore resolves configuration and opens the store.
func openStore(cliDBPath string) (store.Store, error) {
	cfg, err := config.ResolveConfig(config.ResolveOptions{CLIDBPath: cliDBPath})
	if err != nil {
		return nil, err
	}

	s, err := store.NewStore(store.StoreConfig{DBPath: expand(cfg.DBPath.Value)})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

func expand(path string) string {
	if len(path) > 1 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return home + path[1:]
		}
	}
	return path
}

func printUsage() {
	fmt.Printf(`commlog %s — import exported communication logs into a searchable local store

Usage:
  commlog <command> [arguments]

Commands:
  import <file>            Import an exported log file
  contacts                 List contacts with message counts
  messages <contact-id>    Show a contact's full history
  search <query>           Full-text search with surrounding context
  correct <message-id>     Manually fix a message's attribution
  merge <keeper> <other>   Merge one contact into another
  fix <pass>               Run a correction pass: receivers | self-replies | contacts
  stats                    Store totals and recent import runs
  vacuum                   Compact the database file
  mcp                      Serve the query/mutation surface over MCP stdio
  version                  Print version

Import Flags:
  -n, --dry-run            Parse and report without writing anything
  --no-skip-duplicates     Insert even when an identical message exists
  --batch-size=N           Messages per write batch (default %d)

Flags:
  --db=PATH                Database path (default %s)
  -h, --help               Show this help message
  -v, --version            Print version
`, version, ingest.DefaultBatchSize, store.DefaultDBPath)
}
