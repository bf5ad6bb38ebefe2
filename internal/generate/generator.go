// Package generate drives the model conversation: it sends the user query
// to the Anthropic messages API, executes any tool calls the model makes,
// and loops until the model produces a final text answer or the tool-round
// budget runs out.
package generate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lectern/lectern/internal/log"
	"github.com/lectern/lectern/internal/tools"
)

// MessagesAPI is the slice of the Anthropic client the generator needs.
// *anthropic.MessageService satisfies it; tests substitute a fake.
type MessagesAPI interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Generator orchestrates model calls with tool execution rounds.
//
// A query costs at most maxToolRounds+1 model calls: the initial call, then
// one follow-up per tool round. The follow-up after the last round carries
// no tool definitions, which forces a text answer.
type Generator struct {
	client        MessagesAPI
	model         string
	maxTokens     int64
	maxToolRounds int
	logger        log.Logger
}

// New creates a Generator.
func New(client MessagesAPI, model string, maxTokens int64, maxToolRounds int, logger log.Logger) (*Generator, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if maxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", maxTokens)
	}
	if maxToolRounds < 0 {
		return nil, fmt.Errorf("max tool rounds must be non-negative, got %d", maxToolRounds)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Generator{
		client:        client,
		model:         model,
		maxTokens:     maxTokens,
		maxToolRounds: maxToolRounds,
		logger:        logger,
	}, nil
}

// Generate answers a query, running tool rounds as the model requests them.
// Tool execution failures flow back to the model as result text; only API
// failures return an error.
func (g *Generator) Generate(ctx context.Context, query, history string, defs []tools.Definition, reg *tools.Registry) (string, error) {
	system := buildSystem(history)
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
	}
	toolParams := toolUnionParams(defs)

	resp, err := g.call(ctx, system, messages, toolParams)
	if err != nil {
		return "", err
	}
	if resp.StopReason != anthropic.StopReasonToolUse || reg == nil {
		return textOf(resp), nil
	}

	for round := 1; round <= g.maxToolRounds; round++ {
		messages = append(messages, resp.ToParam())

		results := g.executeToolCalls(ctx, resp, reg)
		if len(results) > 0 {
			messages = append(messages, anthropic.NewUserMessage(results...))
		}

		// The call after the final round carries no tools, forcing text.
		var nextTools []anthropic.ToolUnionParam
		if round < g.maxToolRounds {
			nextTools = toolParams
		}

		resp, err = g.call(ctx, system, messages, nextTools)
		if err != nil {
			return "", err
		}
		if resp.StopReason != anthropic.StopReasonToolUse {
			break
		}
	}
	return textOf(resp), nil
}

// call issues one messages API request.
func (g *Generator) call(ctx context.Context, system string, messages []anthropic.MessageParam, toolParams []anthropic.ToolUnionParam) (*anthropic.Message, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   g.maxTokens,
		Temperature: anthropic.Float(0),
		Messages:    messages,
		System:      []anthropic.TextBlockParam{{Text: system}},
	}
	if len(toolParams) > 0 {
		params.Tools = toolParams
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfAuto: &anthropic.ToolChoiceAutoParam{},
		}
	}

	resp, err := g.client.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("messages API call: %w", err)
	}
	g.logger.Debug("model response", "stop_reason", resp.StopReason)
	return resp, nil
}

// executeToolCalls runs every tool_use block in order and returns the
// tool_result blocks for the follow-up user turn. Failures become result
// text so the model can see and react to them.
func (g *Generator) executeToolCalls(ctx context.Context, resp *anthropic.Message, reg *tools.Registry) []anthropic.ContentBlockParamUnion {
	var results []anthropic.ContentBlockParamUnion
	for _, block := range resp.Content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}

		var args map[string]any
		if raw := toolUse.JSON.Input.Raw(); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				g.logger.Warn("undecodable tool input", "tool", toolUse.Name, "error", err)
				results = append(results, anthropic.NewToolResultBlock(
					toolUse.ID, fmt.Sprintf("Invalid tool input: %v", err), true))
				continue
			}
		}

		g.logger.Debug("executing tool", "tool", toolUse.Name)
		result := reg.Execute(ctx, toolUse.Name, args)
		results = append(results, anthropic.NewToolResultBlock(toolUse.ID, result, false))
	}
	return results
}

// textOf concatenates the text blocks of a response.
func textOf(resp *anthropic.Message) string {
	var text string
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += tb.Text
		}
	}
	return text
}

// toolUnionParams converts tool definitions to API tool parameters.
func toolUnionParams(defs []tools.Definition) []anthropic.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	params := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := anthropic.ToolInputSchemaParam{}
		if def.InputSchema != nil {
			schema.Properties = def.InputSchema.Properties
			schema.Required = def.InputSchema.Required
		}
		params = append(params, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: schema,
			},
		})
	}
	return params
}
