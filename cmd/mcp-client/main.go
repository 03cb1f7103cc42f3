package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage:
  mcp-client search <prefix> [limit]
  mcp-client lookup <key>
  mcp-client ask <question>`)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 3 {
		usage()
	}

	toolReq := mcp.CallToolRequest{}
	switch os.Args[1] {
	case "search":
		args := map[string]any{"prefix": os.Args[2]}
		if len(os.Args) >= 4 {
			n, err := strconv.Atoi(os.Args[3])
			if err != nil {
				log.Fatalf("invalid limit %q: %v", os.Args[3], err)
			}
			args["limit"] = n
		}
		toolReq.Params.Name = "search_symbols"
		toolReq.Params.Arguments = args
	case "lookup":
		toolReq.Params.Name = "lookup_symbol"
		toolReq.Params.Arguments = map[string]any{"key": os.Args[2]}
	case "ask":
		toolReq.Params.Name = "ask"
		toolReq.Params.Arguments = map[string]any{"question": os.Args[2]}
	default:
		usage()
	}

	serverBin := os.Getenv("MCP_SERVER_BIN")
	if serverBin == "" {
		serverBin = "mcp-server"
	}

	// --- MCP クライアントの起動（サーバープロセスを spawn） ---
	c, err := client.NewStdioMCPClient(
		serverBin,
		os.Environ(),
	)
	if err != nil {
		log.Fatalf("failed to create MCP client: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// --- Initialize ハンドシェイク ---
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "symindex-client",
		Version: "0.1.0",
	}

	initResult, err := c.Initialize(ctx, initReq)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Connected to: %s %s\n", initResult.ServerInfo.Name, initResult.ServerInfo.Version)

	result, err := c.CallTool(ctx, toolReq)
	if err != nil {
		log.Fatalf("tool call failed: %v", err)
	}

	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			fmt.Println(tc.Text)
		}
	}
	if result.IsError {
		os.Exit(1)
	}
}
