package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/0muji4/symindex/internal/symbol"
)

// MaxLimit caps the number of entries one search may return.
const MaxLimit = 200

// Asker answers free-form questions about the indexed symbols.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Handler は MCP のツール呼び出しを索引への問い合わせに変換する Adapter です。
type Handler struct {
	resolver  symbol.Resolver
	assistant Asker
	limit     int
	logger    *zap.Logger
}

// NewHandler creates a Handler. assistant may be nil, in which case the ask
// tool is not offered.
func NewHandler(resolver symbol.Resolver, assistant Asker, limit int, logger *zap.Logger) *Handler {
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		resolver:  resolver,
		assistant: assistant,
		limit:     limit,
		logger:    logger,
	}
}

// EntryView is the JSON shape returned by the tools.
type EntryView struct {
	Key    string              `json:"key"`
	Label  string              `json:"label"`
	Scopes []symbol.ScopeGroup `json:"scopes"`
}

func newEntryView(e symbol.Entry) EntryView {
	return EntryView{Key: e.Key, Label: e.Label, Scopes: symbol.GroupByScope(e.Targets)}
}

// Search handles search_symbols.
func (h *Handler) Search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := req.GetString("prefix", "")
	limit := req.GetInt("limit", h.limit)
	if limit <= 0 {
		limit = h.limit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	views := []EntryView{}
	for _, e := range symbol.Take(h.resolver.Search(prefix), limit) {
		views = append(views, newEntryView(e))
	}
	h.logger.Debug("search", zap.String("prefix", prefix), zap.Int("results", len(views)))
	return jsonResult(views)
}

// Lookup handles lookup_symbol.
func (h *Handler) Lookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil || key == "" {
		return mcp.NewToolResultError("key is required"), nil
	}
	e, ok := h.resolver.Lookup(key)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("symbol %q not found", key)), nil
	}
	return jsonResult(newEntryView(e))
}

// Ask handles ask.
func (h *Handler) Ask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.assistant == nil {
		return mcp.NewToolResultError("assistant is not configured"), nil
	}
	question, err := req.RequireString("question")
	if err != nil || question == "" {
		return mcp.NewToolResultError("question is required"), nil
	}
	answer, err := h.assistant.Ask(ctx, question)
	if err != nil {
		h.logger.Error("ask failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("assistant error: %v", err)), nil
	}
	return mcp.NewToolResultText(answer), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
