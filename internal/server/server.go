package server

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	Name    = "symindex"
	Version = "0.1.0"
)

// New は MCP サーバーを生成し、ツールを登録して返します。
// ロジックは handler に委譲し、ここではプロトコル変換のみ行います。
func New(handler *Handler) *server.MCPServer {
	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("search_symbols",
		mcp.WithDescription("Lists documented symbols whose search key starts with a prefix, ignoring case, in index order. Each result carries its documentation links grouped by owning scope. An empty prefix returns no results."),
		mcp.WithString("prefix",
			mcp.Required(),
			mcp.Description("Name prefix, e.g. abs, atomic_load or abs(int"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default from configuration, at most 200)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(searchTool, handler.Search)

	lookupTool := mcp.NewTool("lookup_symbol",
		mcp.WithDescription("Returns one symbol by its exact search key."),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Exact key as returned by search_symbols, e.g. abs_28int_29_2265"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(lookupTool, handler.Lookup)

	if handler.assistant != nil {
		askTool := mcp.NewTool("ask",
			mcp.WithDescription("Answers a question about the documented API. A Gemini model searches the symbol index and cites the documentation links it used."),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("The question, e.g. \"which overloads of abs exist and where are they documented?\""),
			),
		)
		s.AddTool(askTool, handler.Ask)
	}

	return s
}
