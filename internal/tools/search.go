package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/lectern/lectern/internal/course"
)

// SearchToolName is the tool name the model calls for content search.
const SearchToolName = "search_course_content"

// Searcher is the slice of the knowledge store the search tool needs.
type Searcher interface {
	SearchCourses(ctx context.Context, query, courseName string, lessonNumber *int) course.SearchResults
}

// SearchTool performs semantic search over course content with optional
// course and lesson filters.
type SearchTool struct {
	store Searcher
}

// NewSearchTool creates a SearchTool backed by the given store.
func NewSearchTool(store Searcher) *SearchTool {
	return &SearchTool{store: store}
}

// Definition describes the search tool to the model.
func (t *SearchTool) Definition() Definition {
	return Definition{
		Name: SearchToolName,
		Description: "Search course materials with smart course name matching and lesson filtering. " +
			"Use for questions about specific course content or detailed educational materials.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "What to search for in the course content",
				},
				"course_name": {
					Type:        "string",
					Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": {
					Type:        "integer",
					Description: "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			Required: []string{"query"},
		},
	}
}

// Execute runs the search and formats matches as "[<course> - Lesson <n>]"
// headed snippets. Store errors come back verbatim as the result string
// with no sources.
func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (string, []course.Source) {
	query := stringArg(args, "query")
	courseName := stringArg(args, "course_name")
	var lesson *int
	if n, ok := intArg(args, "lesson_number"); ok {
		lesson = &n
	}

	results := t.store.SearchCourses(ctx, query, courseName, lesson)
	if results.IsError() {
		return results.Err, nil
	}
	if results.Empty() {
		return emptyMessage(courseName, lesson), nil
	}

	var blocks []string
	var sources []course.Source
	for i, doc := range results.Documents {
		title, _ := results.Metadata[i]["course_title"].(string)
		if title == "" {
			title = "unknown"
		}
		var lessonNo *int
		if n, ok := intArg(results.Metadata[i], "lesson_number"); ok {
			lessonNo = &n
		}

		header := title
		if lessonNo != nil {
			header = fmt.Sprintf("%s - Lesson %d", title, *lessonNo)
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", header, doc))

		link := ""
		if i < len(results.Links) {
			link = results.Links[i]
		}
		sources = append(sources, course.NewSource(title, lessonNo, link))
	}
	return strings.Join(blocks, "\n\n"), sources
}

// emptyMessage builds the no-results message, naming whichever filters were
// in effect.
func emptyMessage(courseName string, lesson *int) string {
	var b strings.Builder
	b.WriteString("No relevant content found")
	if courseName != "" {
		fmt.Fprintf(&b, " in course '%s'", courseName)
	}
	if lesson != nil {
		fmt.Fprintf(&b, " in lesson %d", *lesson)
	}
	b.WriteString(".")
	return b.String()
}
