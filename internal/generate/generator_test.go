package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/lectern/lectern/internal/course"
	"github.com/lectern/lectern/internal/log"
	"github.com/lectern/lectern/internal/tools"
)

// fakeMessages replays canned API responses and records every request.
type fakeMessages struct {
	responses []*anthropic.Message
	calls     []anthropic.MessageNewParams
	err       error
}

func (f *fakeMessages) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.calls) > len(f.responses) {
		return nil, fmt.Errorf("unexpected call %d", len(f.calls))
	}
	return f.responses[len(f.calls)-1], nil
}

// messageFromJSON builds a Message through the SDK's own decoder so union
// accessors and raw-JSON fields behave as they do against the live API.
func messageFromJSON(t *testing.T, raw string) *anthropic.Message {
	t.Helper()
	var m anthropic.Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshaling message fixture: %v", err)
	}
	return &m
}

func textResponse(t *testing.T, text string) *anthropic.Message {
	t.Helper()
	return messageFromJSON(t, fmt.Sprintf(`{
		"id": "msg_text",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": [{"type": "text", "text": %q}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 20}
	}`, text))
}

func toolUseResponse(t *testing.T, id, name, inputJSON string) *anthropic.Message {
	t.Helper()
	return messageFromJSON(t, fmt.Sprintf(`{
		"id": "msg_tool",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": [
			{"type": "text", "text": "Let me look that up."},
			{"type": "tool_use", "id": %q, "name": %q, "input": %s}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 10, "output_tokens": 20}
	}`, id, name, inputJSON))
}

// recordingTool remembers each call's arguments.
type recordingTool struct {
	name    string
	result  string
	sources []course.Source
	args    []map[string]any
}

func (r *recordingTool) Definition() tools.Definition {
	return tools.Definition{
		Name:        r.name,
		Description: "test tool",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {Type: "string"},
			},
			Required: []string{"query"},
		},
	}
}

func (r *recordingTool) Execute(_ context.Context, args map[string]any) (string, []course.Source) {
	r.args = append(r.args, args)
	return r.result, r.sources
}

func newTestRegistry(t *testing.T, tool tools.Tool) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	if err := reg.Register(tool); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return reg
}

func newGenerator(t *testing.T, client MessagesAPI) *Generator {
	t.Helper()
	g, err := New(client, "claude-sonnet-4-20250514", 2048, 2, log.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

func TestGenerateDirectAnswer(t *testing.T) {
	client := &fakeMessages{responses: []*anthropic.Message{
		textResponse(t, "Paris is the capital of France."),
	}}
	tool := &recordingTool{name: "search_course_content"}
	reg := newTestRegistry(t, tool)
	g := newGenerator(t, client)

	answer, err := g.Generate(context.Background(), "What is the capital of France?", "", reg.Definitions(), reg)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "Paris is the capital of France." {
		t.Errorf("answer = %q", answer)
	}
	if len(client.calls) != 1 {
		t.Errorf("model calls = %d, want 1", len(client.calls))
	}
	if len(tool.args) != 0 {
		t.Errorf("tool executed %d times, want 0", len(tool.args))
	}
	if len(client.calls[0].Tools) != 1 {
		t.Errorf("first call tools = %d, want 1", len(client.calls[0].Tools))
	}
}

func TestGenerateSingleToolRound(t *testing.T) {
	client := &fakeMessages{responses: []*anthropic.Message{
		toolUseResponse(t, "toolu_1", "search_course_content", `{"query": "python basics"}`),
		textResponse(t, "Python is a programming language."),
	}}
	tool := &recordingTool{name: "search_course_content", result: "[Python 101 - Lesson 1]\nPython intro"}
	reg := newTestRegistry(t, tool)
	g := newGenerator(t, client)

	answer, err := g.Generate(context.Background(), "What is Python?", "", reg.Definitions(), reg)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "Python is a programming language." {
		t.Errorf("answer = %q", answer)
	}
	if len(client.calls) != 2 {
		t.Fatalf("model calls = %d, want 2", len(client.calls))
	}

	// The tool ran exactly once with the model's arguments.
	if len(tool.args) != 1 {
		t.Fatalf("tool executions = %d, want 1", len(tool.args))
	}
	if tool.args[0]["query"] != "python basics" {
		t.Errorf("tool args = %v", tool.args[0])
	}

	// Round 1 of 2: the follow-up call still offers tools.
	if len(client.calls[1].Tools) != 1 {
		t.Errorf("second call tools = %d, want 1", len(client.calls[1].Tools))
	}

	// Conversation: user query, assistant tool use, user tool results.
	if len(client.calls[1].Messages) != 3 {
		t.Errorf("second call messages = %d, want 3", len(client.calls[1].Messages))
	}
}

func TestGenerateMaxToolRounds(t *testing.T) {
	client := &fakeMessages{responses: []*anthropic.Message{
		toolUseResponse(t, "toolu_1", "get_course_outline", `{"course_title": "MCP"}`),
		toolUseResponse(t, "toolu_2", "search_course_content", `{"query": "lesson 4"}`),
		textResponse(t, "Lesson 4 covers server deployment."),
	}}
	outline := &recordingTool{name: "get_course_outline", result: "Course: MCP\nLesson 4: Deployment"}
	search := &recordingTool{name: "search_course_content", result: "[MCP - Lesson 4]\nDeployment details"}
	reg := tools.NewRegistry()
	for _, tool := range []tools.Tool{outline, search} {
		if err := reg.Register(tool); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	g := newGenerator(t, client)

	answer, err := g.Generate(context.Background(), "What's in lesson 4 of the MCP course?", "", reg.Definitions(), reg)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "Lesson 4 covers server deployment." {
		t.Errorf("answer = %q", answer)
	}
	if len(client.calls) != 3 {
		t.Fatalf("model calls = %d, want 3", len(client.calls))
	}
	if len(outline.args) != 1 || len(search.args) != 1 {
		t.Errorf("executions: outline=%d search=%d, want 1 each", len(outline.args), len(search.args))
	}

	// After the last round, the final call must carry no tools.
	if len(client.calls[2].Tools) != 0 {
		t.Errorf("final call tools = %d, want 0", len(client.calls[2].Tools))
	}
	// user, assistant, user(results), assistant, user(results).
	if len(client.calls[2].Messages) != 5 {
		t.Errorf("final call messages = %d, want 5", len(client.calls[2].Messages))
	}
}

func TestGenerateToolFailureFlowsToModel(t *testing.T) {
	client := &fakeMessages{responses: []*anthropic.Message{
		toolUseResponse(t, "toolu_1", "search_course_content", `{"query": "x", "course_name": "Nope"}`),
		textResponse(t, "That course does not exist."),
	}}
	tool := &recordingTool{name: "search_course_content", result: "No course found matching 'Nope'"}
	reg := newTestRegistry(t, tool)
	g := newGenerator(t, client)

	answer, err := g.Generate(context.Background(), "Tell me about Nope", "", reg.Definitions(), reg)
	if err != nil {
		t.Fatalf("Generate() error = %v, tool failures must not become errors", err)
	}
	if answer != "That course does not exist." {
		t.Errorf("answer = %q", answer)
	}
}

func TestGenerateUnknownToolName(t *testing.T) {
	client := &fakeMessages{responses: []*anthropic.Message{
		toolUseResponse(t, "toolu_1", "imaginary_tool", `{"query": "x"}`),
		textResponse(t, "recovered"),
	}}
	reg := newTestRegistry(t, &recordingTool{name: "search_course_content"})
	g := newGenerator(t, client)

	answer, err := g.Generate(context.Background(), "q", "", reg.Definitions(), reg)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "recovered" {
		t.Errorf("answer = %q", answer)
	}
	if len(client.calls) != 2 {
		t.Errorf("model calls = %d, want 2", len(client.calls))
	}
}

func TestGenerateAPIErrorPropagates(t *testing.T) {
	apiErr := errors.New("overloaded")
	client := &fakeMessages{err: apiErr}
	reg := newTestRegistry(t, &recordingTool{name: "search_course_content"})
	g := newGenerator(t, client)

	_, err := g.Generate(context.Background(), "q", "", reg.Definitions(), reg)
	if !errors.Is(err, apiErr) {
		t.Errorf("Generate() error = %v, want wrapped %v", err, apiErr)
	}
}

func TestGenerateWithoutTools(t *testing.T) {
	client := &fakeMessages{responses: []*anthropic.Message{
		textResponse(t, "hello"),
	}}
	g := newGenerator(t, client)

	answer, err := g.Generate(context.Background(), "hi", "", nil, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "hello" {
		t.Errorf("answer = %q", answer)
	}
	if len(client.calls[0].Tools) != 0 {
		t.Errorf("tools offered = %d, want 0", len(client.calls[0].Tools))
	}
}

func TestGenerateHistoryInSystemPrompt(t *testing.T) {
	client := &fakeMessages{responses: []*anthropic.Message{
		textResponse(t, "as I said"),
	}}
	g := newGenerator(t, client)

	history := "User: What is MCP?\nAssistant: A protocol."
	if _, err := g.Generate(context.Background(), "Say it again", history, nil, nil); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	system := client.calls[0].System
	if len(system) != 1 {
		t.Fatalf("system blocks = %d, want 1", len(system))
	}
	wantSuffix := "Previous conversation:\n" + history
	if got := system[0].Text; len(got) < len(wantSuffix) || got[len(got)-len(wantSuffix):] != wantSuffix {
		t.Errorf("system prompt does not end with history section")
	}
}

func TestNewValidation(t *testing.T) {
	client := &fakeMessages{}
	tests := []struct {
		name      string
		client    MessagesAPI
		model     string
		maxTokens int64
		rounds    int
	}{
		{"nil client", nil, "m", 100, 2},
		{"empty model", client, "", 100, 2},
		{"zero tokens", client, "m", 0, 2},
		{"negative rounds", client, "m", 100, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.client, tt.model, tt.maxTokens, tt.rounds, log.NewNop()); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}
