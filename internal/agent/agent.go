package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/0muji4/symindex/internal/symbol"
)

const (
	maxIterations = 10
	searchLimit   = 25
)

// DefaultSystemPrompt is used when the configuration does not provide one.
const DefaultSystemPrompt = `You answer questions about a C++ library's API documentation.
Use search-symbols to find candidate symbols by name prefix and lookup-symbol
to fetch the documentation links of a specific key. Cite the URLs you relied on.
If a symbol cannot be found, say so instead of guessing.`

// Assistant は Gemini とシンボル索引を組み合わせて質問に答えます
type Assistant struct {
	client       *genai.Client
	model        string
	resolver     symbol.Resolver
	systemPrompt string
	logger       *zap.Logger
}

func New(
	ctx context.Context,
	apiKey string,
	model string,
	systemPrompt string,
	resolver symbol.Resolver,
	logger *zap.Logger,
) (*Assistant, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assistant{
		client:       client,
		model:        model,
		resolver:     resolver,
		systemPrompt: systemPrompt,
		logger:       logger,
	}, nil
}

func tools() []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "search-symbols",
					Description: "Lists documented symbols whose search key starts with the given prefix, in index order. Matching ignores case; punctuation such as '(' or '_' may be typed literally.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"prefix": {
								Type:        genai.TypeString,
								Description: "Name prefix, for example abs, atomic_load or abs(int",
							},
						},
						Required: []string{"prefix"},
					},
				},
				{
					Name:        "lookup-symbol",
					Description: "Returns every documentation link of one symbol, grouped by owning scope. Use a key returned by search-symbols.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"key": {
								Type:        genai.TypeString,
								Description: "Exact symbol key, for example abs_28int_29_2265",
							},
						},
						Required: []string{"key"},
					},
				},
			},
		},
	}
}

// Ask runs the function-calling loop for one question. Each call keeps its
// own history so an Assistant can serve concurrent requests.
func (a *Assistant) Ask(ctx context.Context, question string) (string, error) {
	history := []*genai.Content{genai.NewContentFromText(question, "user")}

	config := &genai.GenerateContentConfig{
		Tools: tools(),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(a.systemPrompt)},
		},
	}

	// ReAct Loop
	for i := 0; i < maxIterations; i++ {
		a.logger.Debug("generating", zap.Int("iteration", i+1), zap.Int("max", maxIterations))

		resp, err := a.generate(ctx, history, config)
		if err != nil {
			return "", err
		}

		functionCalls := resp.FunctionCalls()
		if len(functionCalls) == 0 {
			return resp.Text(), nil
		}
		if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
			history = append(history, resp.Candidates[0].Content)
		}

		var responseParts []*genai.Part
		for _, call := range functionCalls {
			responseParts = append(responseParts, genai.NewPartFromFunctionResponse(
				call.Name,
				map[string]any{"result": a.execute(call)},
			))
		}
		history = append(history, &genai.Content{
			Role:  "tool",
			Parts: responseParts,
		})

		// ループ終盤で最終回答を促す
		if i == maxIterations-2 {
			history = append(history, genai.NewContentFromText(
				"You have one tool call left. Answer now using what you have collected.",
				"user",
			))
		}
	}

	return "", fmt.Errorf("agent: loop limit exceeded")
}

// generate calls the model, retrying twice on rate limiting.
func (a *Assistant) generate(ctx context.Context, history []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	for retry := 0; ; retry++ {
		resp, err := a.client.Models.GenerateContent(ctx, a.model, history, config)
		if err == nil {
			return resp, nil
		}
		if !isRateLimited(err) || retry >= 2 {
			return nil, fmt.Errorf("agent: generate content: %w", err)
		}
		wait := time.Duration(30*(retry+1)) * time.Second
		a.logger.Warn("rate limited", zap.Duration("wait", wait))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func isRateLimited(err error) bool {
	return strings.Contains(err.Error(), "429")
}

// execute runs one tool call and returns the text handed back to the model.
func (a *Assistant) execute(call *genai.FunctionCall) string {
	switch call.Name {
	case "search-symbols":
		prefix, _ := call.Args["prefix"].(string)
		a.logger.Debug("tool call", zap.String("tool", call.Name), zap.String("prefix", prefix))
		return a.executeSearch(prefix)
	case "lookup-symbol":
		key, _ := call.Args["key"].(string)
		a.logger.Debug("tool call", zap.String("tool", call.Name), zap.String("key", key))
		return a.executeLookup(key)
	default:
		return fmt.Sprintf("Error: unknown tool %q", call.Name)
	}
}

func (a *Assistant) executeSearch(prefix string) string {
	if prefix == "" {
		return "Error: prefix is required."
	}
	entries := symbol.Take(a.resolver.Search(prefix), searchLimit+1)
	if len(entries) == 0 {
		return fmt.Sprintf("No symbols start with %q.", prefix)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Symbols starting with %q:\n", prefix)
	for i, e := range entries {
		if i == searchLimit {
			b.WriteString("(more results omitted; use a longer prefix)\n")
			break
		}
		scopes := make([]string, 0, len(e.Targets))
		for _, g := range symbol.GroupByScope(e.Targets) {
			scopes = append(scopes, g.Scope)
		}
		fmt.Fprintf(&b, "%s\t%s\t[%s]\n", e.Key, e.Label, strings.Join(scopes, ", "))
	}
	return b.String()
}

func (a *Assistant) executeLookup(key string) string {
	e, ok := a.resolver.Lookup(key)
	if !ok {
		return fmt.Sprintf("Symbol %q not found.", key)
	}
	out, err := json.Marshal(struct {
		Key    string              `json:"key"`
		Label  string              `json:"label"`
		Scopes []symbol.ScopeGroup `json:"scopes"`
	}{e.Key, e.Label, symbol.GroupByScope(e.Targets)})
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return string(out)
}
