package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lectern/lectern/internal/course"
	"github.com/lectern/lectern/internal/document"
	"github.com/lectern/lectern/internal/log"
	"github.com/lectern/lectern/internal/session"
	"github.com/lectern/lectern/internal/tools"
)

// fakeStore implements Store in memory.
type fakeStore struct {
	titles        []string
	searchResults course.SearchResults
	outline       *course.Course
	outlineErr    error

	addedCourses []*course.Course
	addedChunks  []course.Chunk
	cleared      bool
}

func (f *fakeStore) SearchCourses(context.Context, string, string, *int) course.SearchResults {
	return f.searchResults
}

func (f *fakeStore) GetOutline(context.Context, string) (*course.Course, error) {
	return f.outline, f.outlineErr
}

func (f *fakeStore) AddCourse(_ context.Context, c *course.Course) error {
	f.addedCourses = append(f.addedCourses, c)
	f.titles = append(f.titles, c.Title)
	return nil
}

func (f *fakeStore) AddChunks(_ context.Context, chunks []course.Chunk) error {
	f.addedChunks = append(f.addedChunks, chunks...)
	return nil
}

func (f *fakeStore) ListCourseTitles(context.Context) ([]string, error) {
	return append([]string(nil), f.titles...), nil
}

func (f *fakeStore) CountCourses(context.Context) (int, error) {
	return len(f.titles), nil
}

func (f *fakeStore) ClearAll(context.Context) error {
	f.cleared = true
	f.titles = nil
	return nil
}

// fakeGenerator records its inputs and optionally executes a tool through
// the registry before answering, mimicking a tool-use round.
type fakeGenerator struct {
	answer      string
	err         error
	callTool    string
	callArgs    map[string]any
	lastQuery   string
	lastHistory string
	lastDefs    []tools.Definition
}

func (f *fakeGenerator) Generate(ctx context.Context, query, history string, defs []tools.Definition, reg *tools.Registry) (string, error) {
	f.lastQuery = query
	f.lastHistory = history
	f.lastDefs = defs
	if f.err != nil {
		return "", f.err
	}
	if f.callTool != "" {
		reg.Execute(ctx, f.callTool, f.callArgs)
	}
	return f.answer, nil
}

func newSystem(t *testing.T, store *fakeStore, gen *fakeGenerator) *System {
	t.Helper()
	sys, err := New(store, session.NewStore(2), gen, document.New(), log.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return sys
}

func TestQueryWithoutSession(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{answer: "General knowledge answer."}
	sys := newSystem(t, store, gen)

	answer, sources, err := sys.Query(context.Background(), "What is Go?", "")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if answer != "General knowledge answer." {
		t.Errorf("answer = %q", answer)
	}
	if len(sources) != 0 {
		t.Errorf("sources = %v, want none", sources)
	}
	if gen.lastHistory != "" {
		t.Errorf("history = %q, want empty without a session", gen.lastHistory)
	}
	if !strings.Contains(gen.lastQuery, "What is Go?") {
		t.Errorf("query prompt = %q", gen.lastQuery)
	}
	if sys.Sessions().Count() != 0 {
		t.Error("Query() must not create sessions")
	}
}

func TestQueryOffersBothTools(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	sys := newSystem(t, &fakeStore{}, gen)

	if _, _, err := sys.Query(context.Background(), "q", ""); err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if len(gen.lastDefs) != 2 {
		t.Fatalf("tool definitions = %d, want 2", len(gen.lastDefs))
	}
	if gen.lastDefs[0].Name != tools.SearchToolName || gen.lastDefs[1].Name != tools.OutlineToolName {
		t.Errorf("definitions = %q, %q", gen.lastDefs[0].Name, gen.lastDefs[1].Name)
	}
}

func TestQueryReturnsDrainedSources(t *testing.T) {
	store := &fakeStore{
		searchResults: course.SearchResults{
			Documents: []string{"content"},
			Metadata:  []map[string]any{{"course_title": "Python 101", "lesson_number": 1}},
			Distances: []float64{0.1},
			Links:     []string{"http://example.com/1"},
		},
	}
	gen := &fakeGenerator{
		answer:   "Python is a language.",
		callTool: tools.SearchToolName,
		callArgs: map[string]any{"query": "python"},
	}
	sys := newSystem(t, store, gen)

	_, sources, err := sys.Query(context.Background(), "What is Python?", "")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("len(sources) = %d, want 1", len(sources))
	}
	if sources[0].Text != "Python 101 - Lesson 1" || sources[0].Link != "http://example.com/1" {
		t.Errorf("sources[0] = %+v", sources[0])
	}
}

func TestQuerySessionHistory(t *testing.T) {
	gen := &fakeGenerator{answer: "second answer"}
	sys := newSystem(t, &fakeStore{}, gen)

	id := sys.Sessions().Create()
	sys.Sessions().AddExchange(id, "first question", "first answer")

	answer, _, err := sys.Query(context.Background(), "follow-up", id)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if !strings.Contains(gen.lastHistory, "User: first question") {
		t.Errorf("history = %q, missing prior exchange", gen.lastHistory)
	}

	// The new exchange is recorded with the raw question, not the prompt.
	history := sys.Sessions().History(id)
	if !strings.Contains(history, "User: follow-up\nAssistant: "+answer) {
		t.Errorf("history after query = %q", history)
	}
}

func TestQueryGeneratorErrorNotPersisted(t *testing.T) {
	genErr := errors.New("api down")
	gen := &fakeGenerator{err: genErr}
	sys := newSystem(t, &fakeStore{}, gen)

	id := sys.Sessions().Create()
	_, _, err := sys.Query(context.Background(), "q", id)
	if !errors.Is(err, genErr) {
		t.Fatalf("Query() error = %v, want wrapped %v", err, genErr)
	}
	if got := sys.Sessions().History(id); got != "" {
		t.Errorf("failed exchange was persisted: %q", got)
	}
}

func writeDoc(t *testing.T, dir, name, title string) {
	t.Helper()
	content := "Course Title: " + title + "\n\nLesson 1: Intro\nSome course content here. More content follows.\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("writing doc: %v", err)
	}
}

func TestIngestFolder(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "course1.txt", "Course One")
	writeDoc(t, dir, "course2.txt", "Course Two")

	store := &fakeStore{}
	sys := newSystem(t, store, &fakeGenerator{answer: "ok"})

	courses, chunks, err := sys.Ingest(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if courses != 2 {
		t.Errorf("courses = %d, want 2", courses)
	}
	if chunks == 0 {
		t.Error("chunks = 0, want > 0")
	}
	if len(store.addedCourses) != 2 {
		t.Errorf("stored courses = %d", len(store.addedCourses))
	}
}

func TestIngestSkipsIndexedCourses(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "course1.txt", "Course One")

	store := &fakeStore{titles: []string{"Course One"}}
	sys := newSystem(t, store, &fakeGenerator{answer: "ok"})

	courses, chunks, err := sys.Ingest(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if courses != 0 || chunks != 0 {
		t.Errorf("Ingest() = (%d, %d), want (0, 0) for already-indexed course", courses, chunks)
	}
}

func TestIngestClearExisting(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "course1.txt", "Course One")

	store := &fakeStore{titles: []string{"Course One"}}
	sys := newSystem(t, store, &fakeGenerator{answer: "ok"})

	courses, _, err := sys.Ingest(context.Background(), dir, true)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if !store.cleared {
		t.Error("ClearAll was not called")
	}
	if courses != 1 {
		t.Errorf("courses = %d, want 1 after clear", courses)
	}
}

func TestAnalytics(t *testing.T) {
	store := &fakeStore{titles: []string{"Zeta Course", "Alpha Course"}}
	sys := newSystem(t, store, &fakeGenerator{answer: "ok"})

	count, titles, err := sys.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if titles[0] != "Alpha Course" || titles[1] != "Zeta Course" {
		t.Errorf("titles = %v, want sorted", titles)
	}
}
