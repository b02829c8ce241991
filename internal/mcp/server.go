// Package mcp provides a Model Context Protocol server for commlog.
//
// It exposes the downstream query/mutation surface of the store — contact
// listing, message history, full-text search with context, manual
// attribution correction, and pairwise contact merge — as MCP tools over
// stdio, so external UIs and agents never touch the database directly.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hallamw/commlog/internal/correct"
	"github.com/hallamw/commlog/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store   store.Store
	Version string
}

// dbMu serializes all MCP tool calls that touch the database. The mcp-go
// library dispatches handlers concurrently via goroutines; SQLite wants
// exactly one logical writer at a time.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all commlog tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"commlog",
		ver,
		server.WithToolCapabilities(false),
	)

	registerContactsTool(s, cfg.Store)
	registerMessagesTool(s, cfg.Store)
	registerSearchTool(s, cfg.Store)
	registerCorrectTool(s, cfg.Store)
	registerMergeTool(s, cfg.Store)
	registerFixTool(s, cfg.Store)
	registerStatsTool(s, cfg.Store)

	return s
}

// ServeStdio runs the server over stdio until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func registerContactsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("commlog_contacts",
		mcp.WithDescription("List all contacts with derived sent/received message counts."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		contacts, err := st.ListContacts(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list contacts error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(contacts, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerMessagesTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("commlog_messages",
		mcp.WithDescription("Fetch all messages for a contact, ordered by timestamp."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("contact_id",
			mcp.Required(),
			mcp.Description("Contact ID to fetch history for"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		contactID, err := req.RequireFloat("contact_id")
		if err != nil {
			return mcp.NewToolResultError("contact_id is required"), nil
		}

		msgs, err := st.MessagesForContact(ctx, int64(contactID))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("messages error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(msgs, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerSearchTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("commlog_search",
		mcp.WithDescription("Full-text search over message content. Each match comes with a bounded window of chronologically surrounding messages."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of matches (default: 10, max: 50)"),
		),
		mcp.WithNumber("window",
			mcp.Description("Surrounding messages per side of each match (default: 3)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		query, err := req.RequireString("query")
		if err != nil || query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		limit := 10
		if v, err := req.RequireFloat("limit"); err == nil && v > 0 {
			limit = int(v)
			if limit > 50 {
				limit = 50
			}
		}
		window := store.DefaultSearchWindow
		if v, err := req.RequireFloat("window"); err == nil && v >= 0 {
			window = int(v)
		}

		hits, err := st.SearchMessages(ctx, query, limit, window)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(hits, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerCorrectTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("commlog_correct",
		mcp.WithDescription("Manually correct a message's direction, sender, or receiver. Pass sender_id/receiver_id of 0 to clear the reference."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("message_id",
			mcp.Required(),
			mcp.Description("Message ID to correct"),
		),
		mcp.WithString("direction",
			mcp.Description("New direction"),
			mcp.Enum("FROM", "TO", "UNKNOWN"),
		),
		mcp.WithNumber("sender_id",
			mcp.Description("New sender contact ID (0 clears)"),
		),
		mcp.WithNumber("receiver_id",
			mcp.Description("New receiver contact ID (0 clears)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		messageID, err := req.RequireFloat("message_id")
		if err != nil {
			return mcp.NewToolResultError("message_id is required"), nil
		}

		update := store.AttributionUpdate{}
		if d, err := req.RequireString("direction"); err == nil && d != "" {
			dir := store.Direction(d)
			update.Direction = &dir
		}
		if v, err := req.RequireFloat("sender_id"); err == nil {
			if v == 0 {
				update.ClearSender = true
			} else {
				id := int64(v)
				update.SenderID = &id
			}
		}
		if v, err := req.RequireFloat("receiver_id"); err == nil {
			if v == 0 {
				update.ClearReceiver = true
			} else {
				id := int64(v)
				update.ReceiverID = &id
			}
		}

		if err := st.UpdateMessageAttribution(ctx, int64(messageID), update); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("correct error: %v", err)), nil
		}

		msg, err := st.GetMessage(ctx, int64(messageID))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("fetching corrected message: %v", err)), nil
		}
		data, _ := json.MarshalIndent(msg, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerMergeTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("commlog_merge",
		mcp.WithDescription("Merge one contact into another: messages are reassigned to the keeper, the keeper's number canonicalized, and the absorbed contact deleted."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithNumber("keeper_id",
			mcp.Required(),
			mcp.Description("Contact that survives the merge"),
		),
		mcp.WithNumber("other_id",
			mcp.Required(),
			mcp.Description("Contact absorbed into the keeper"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		keeperID, err := req.RequireFloat("keeper_id")
		if err != nil {
			return mcp.NewToolResultError("keeper_id is required"), nil
		}
		otherID, err := req.RequireFloat("other_id")
		if err != nil {
			return mcp.NewToolResultError("other_id is required"), nil
		}

		if err := st.MergeContacts(ctx, int64(keeperID), int64(otherID)); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("merge error: %v", err)), nil
		}

		keeper, err := st.GetContact(ctx, int64(keeperID))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("fetching merged contact: %v", err)), nil
		}
		data, _ := json.MarshalIndent(keeper, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerFixTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("commlog_fix",
		mcp.WithDescription("Run a correction pass over the whole store: 'receivers' backfills missing receivers, 'self-replies' reclassifies likely self-authored replies, 'contacts' merges duplicates onto canonical phone numbers."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("pass",
			mcp.Required(),
			mcp.Description("Correction pass to run"),
			mcp.Enum("receivers", "self-replies", "contacts"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		pass, err := req.RequireString("pass")
		if err != nil {
			return mcp.NewToolResultError("pass is required"), nil
		}

		var res *correct.Result
		switch pass {
		case "receivers":
			res, err = correct.BackfillReceivers(ctx, st)
		case "self-replies":
			res, err = correct.ReclassifySelfReplies(ctx, st, nil)
		case "contacts":
			res, err = correct.MergeDuplicateContacts(ctx, st)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown pass %q", pass)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s pass error: %v", pass, err)), nil
		}

		data, _ := json.MarshalIndent(res, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("commlog_stats",
		mcp.WithDescription("Store totals (contacts, messages, import runs) and recent import run summaries."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats error: %v", err)), nil
		}
		runs, err := st.RecentImportRuns(ctx, 5)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("runs error: %v", err)), nil
		}

		out := struct {
			Stats *store.StoreStats  `json:"stats"`
			Runs  []*store.ImportRun `json:"recent_runs"`
		}{stats, runs}

		data, _ := json.MarshalIndent(out, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}
