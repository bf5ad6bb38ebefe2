package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/lectern/lectern/internal/course"
	"github.com/lectern/lectern/internal/knowledge"
)

// OutlineToolName is the tool name the model calls for course outlines.
const OutlineToolName = "get_course_outline"

// OutlineGetter is the slice of the knowledge store the outline tool needs.
type OutlineGetter interface {
	GetOutline(ctx context.Context, name string) (*course.Course, error)
}

// OutlineTool returns a course's full outline: title, link, and the
// numbered lesson list.
type OutlineTool struct {
	store OutlineGetter
}

// NewOutlineTool creates an OutlineTool backed by the given store.
func NewOutlineTool(store OutlineGetter) *OutlineTool {
	return &OutlineTool{store: store}
}

// Definition describes the outline tool to the model.
func (t *OutlineTool) Definition() Definition {
	return Definition{
		Name: OutlineToolName,
		Description: "Get the complete outline of a course: its title, link, and full lesson list. " +
			"Use for questions about a course's structure or what lessons it contains.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"course_title": {
					Type:        "string",
					Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
			},
			Required: []string{"course_title"},
		},
	}
}

// Execute resolves the course and formats its outline. A course that can't
// be resolved yields an explanatory string with no sources.
func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) (string, []course.Source) {
	title := stringArg(args, "course_title")
	if title == "" {
		return "No course title provided", nil
	}

	c, err := t.store.GetOutline(ctx, title)
	if errors.Is(err, knowledge.ErrCourseNotFound) {
		return fmt.Sprintf("No course found matching '%s'", title), nil
	}
	if err != nil {
		return fmt.Sprintf("Outline error: %v", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", c.Title)
	if c.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", c.Link)
	}
	fmt.Fprintf(&b, "Lessons (%d):\n", len(c.Lessons))
	for _, l := range c.Lessons {
		fmt.Fprintf(&b, "Lesson %d: %s\n", l.Number, l.Title)
	}

	return strings.TrimRight(b.String(), "\n"), []course.Source{course.NewSource(c.Title, nil, c.Link)}
}
