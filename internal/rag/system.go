// Package rag ties the pieces together: it answers questions through the
// generator with retrieval tools over the knowledge store, tracks
// conversation sessions, and ingests course documents.
package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lectern/lectern/internal/course"
	"github.com/lectern/lectern/internal/document"
	"github.com/lectern/lectern/internal/log"
	"github.com/lectern/lectern/internal/session"
	"github.com/lectern/lectern/internal/tools"
)

// Store is the slice of the knowledge layer the system needs.
type Store interface {
	tools.Searcher
	tools.OutlineGetter
	AddCourse(ctx context.Context, c *course.Course) error
	AddChunks(ctx context.Context, chunks []course.Chunk) error
	ListCourseTitles(ctx context.Context) ([]string, error)
	CountCourses(ctx context.Context) (int, error)
	ClearAll(ctx context.Context) error
}

// Generator produces an answer for a query, executing tools as needed.
type Generator interface {
	Generate(ctx context.Context, query, history string, defs []tools.Definition, reg *tools.Registry) (string, error)
}

// System is the application facade used by both the HTTP API and the CLI.
type System struct {
	store     Store
	sessions  *session.Store
	generator Generator
	processor *document.Processor
	logger    log.Logger
}

// New creates a System.
func New(store Store, sessions *session.Store, generator Generator, processor *document.Processor, logger log.Logger) (*System, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if processor == nil {
		processor = document.New()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &System{
		store:     store,
		sessions:  sessions,
		generator: generator,
		processor: processor,
		logger:    logger,
	}, nil
}

// Sessions exposes the session store for callers that manage session
// lifecycles themselves (the HTTP layer and the interactive CLI).
func (s *System) Sessions() *session.Store {
	return s.sessions
}

// Query answers a question. Each call gets its own tool registry, so
// concurrent queries never mix citation sources. With a non-empty
// sessionID, prior history flows into the prompt and the new exchange is
// recorded; Query never creates sessions itself.
func (s *System) Query(ctx context.Context, text, sessionID string) (string, []course.Source, error) {
	reg := tools.NewRegistry()
	for _, t := range []tools.Tool{
		tools.NewSearchTool(s.store),
		tools.NewOutlineTool(s.store),
	} {
		if err := reg.Register(t); err != nil {
			return "", nil, fmt.Errorf("registering tools: %w", err)
		}
	}

	var history string
	if sessionID != "" {
		history = s.sessions.History(sessionID)
	}

	query := fmt.Sprintf("Answer this question about course materials: %s", text)
	answer, err := s.generator.Generate(ctx, query, history, reg.Definitions(), reg)
	if err != nil {
		return "", nil, fmt.Errorf("generating answer: %w", err)
	}

	sources := reg.DrainSources()

	if sessionID != "" {
		s.sessions.AddExchange(sessionID, text, answer)
	}

	s.logger.Debug("query answered", "session", sessionID, "sources", len(sources))
	return answer, sources, nil
}

// Ingest loads one course document or every document in a folder into the
// store. Courses whose title is already indexed are skipped unless
// clearExisting wipes the catalog first. Returns the number of courses and
// chunks added.
func (s *System) Ingest(ctx context.Context, path string, clearExisting bool) (int, int, error) {
	if clearExisting {
		if err := s.store.ClearAll(ctx); err != nil {
			return 0, 0, err
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, fmt.Errorf("reading docs path: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = courseFiles(path)
		if err != nil {
			return 0, 0, err
		}
	}

	existing, err := s.store.ListCourseTitles(ctx)
	if err != nil {
		return 0, 0, err
	}
	indexed := make(map[string]bool, len(existing))
	for _, title := range existing {
		indexed[title] = true
	}

	coursesAdded, chunksAdded := 0, 0
	for _, file := range files {
		c, chunks, err := s.processor.ProcessFile(file)
		if err != nil {
			s.logger.Warn("skipping unreadable document", "file", file, "error", err)
			continue
		}
		if indexed[c.Title] {
			s.logger.Debug("course already indexed", "title", c.Title)
			continue
		}

		if err := s.store.AddCourse(ctx, c); err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("storing course %q: %w", c.Title, err)
		}
		if err := s.store.AddChunks(ctx, chunks); err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("storing chunks for %q: %w", c.Title, err)
		}

		indexed[c.Title] = true
		coursesAdded++
		chunksAdded += len(chunks)
		s.logger.Info("course ingested", "title", c.Title, "chunks", len(chunks))
	}
	return coursesAdded, chunksAdded, nil
}

// Analytics reports the catalog: course count and sorted titles.
func (s *System) Analytics(ctx context.Context) (int, []string, error) {
	titles, err := s.store.ListCourseTitles(ctx)
	if err != nil {
		return 0, nil, err
	}
	sort.Strings(titles)
	return len(titles), titles, nil
}

// courseFiles lists ingestible documents in a folder, sorted by name.
func courseFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading docs folder: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt", ".md":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
