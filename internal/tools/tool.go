// Package tools defines the retrieval tools exposed to the model and the
// per-query registry that dispatches calls and collects citation sources.
package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/lectern/lectern/internal/course"
)

// Definition describes a tool to the model.
type Definition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Tool is one callable retrieval operation. Execute never fails with a Go
// error: anything that goes wrong is reported in the result string so the
// model can react to it, and sources are returned explicitly alongside the
// result.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, args map[string]any) (string, []course.Source)
}

// stringArg extracts an optional string argument.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg extracts an optional integer argument. JSON numbers decode as
// float64, so both forms are accepted.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
