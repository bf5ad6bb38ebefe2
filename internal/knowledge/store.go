// Package knowledge stores course material in PostgreSQL with pgvector and
// answers semantic search queries over it.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lectern/lectern/internal/course"
	"github.com/lectern/lectern/internal/log"
)

// ErrCourseNotFound is returned when a course name resolves to nothing.
var ErrCourseNotFound = errors.New("course not found")

// Store manages the course catalog and chunk vectors backed by
// PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool       *pgxpool.Pool
	embedder   Embedder
	maxResults int
	logger     log.Logger
}

// NewStore creates a knowledge Store. maxResults caps search hits when the
// caller does not override the limit.
func NewStore(pool *pgxpool.Pool, embedder Embedder, maxResults int, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, embedder: embedder, maxResults: maxResults, logger: logger}, nil
}

// AddCourse upserts a course and its lesson list. Re-adding an existing
// title replaces its metadata and lessons but leaves chunks alone; use
// AddChunks to refresh content.
func (s *Store) AddCourse(ctx context.Context, c *course.Course) error {
	if c == nil || strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("course title is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	var courseID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO courses (title, link, instructor)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (title) DO UPDATE
		 SET link = EXCLUDED.link, instructor = EXCLUDED.instructor
		 RETURNING id`,
		c.Title, c.Link, c.Instructor,
	).Scan(&courseID)
	if err != nil {
		return fmt.Errorf("upserting course %q: %w", c.Title, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM lessons WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("clearing lessons for %q: %w", c.Title, err)
	}
	for _, l := range c.Lessons {
		if _, err := tx.Exec(ctx,
			`INSERT INTO lessons (course_id, number, title, link) VALUES ($1, $2, $3, $4)`,
			courseID, l.Number, l.Title, l.Link,
		); err != nil {
			return fmt.Errorf("inserting lesson %d of %q: %w", l.Number, c.Title, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing course %q: %w", c.Title, err)
	}

	s.logger.Debug("course stored", "title", c.Title, "lessons", len(c.Lessons))
	return nil
}

// AddChunks embeds and stores content chunks. All chunks must belong to a
// course previously stored with AddCourse. Existing chunks for the same
// course and index are replaced.
func (s *Store) AddChunks(ctx context.Context, chunks []course.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vecs, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	for i, ch := range chunks {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chunks (course_id, lesson_number, idx, content, embedding)
			 SELECT id, $2, $3, $4, $5 FROM courses WHERE title = $1
			 ON CONFLICT (course_id, idx) DO UPDATE
			 SET lesson_number = EXCLUDED.lesson_number,
			     content = EXCLUDED.content,
			     embedding = EXCLUDED.embedding`,
			ch.CourseTitle, ch.LessonNumber, ch.Index, ch.Content, pgvector.NewVector(vecs[i]),
		); err != nil {
			return fmt.Errorf("inserting chunk %d of %q: %w", ch.Index, ch.CourseTitle, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}

	s.logger.Debug("chunks stored", "count", len(chunks))
	return nil
}

// SearchOption narrows a Search call.
type SearchOption func(*searchParams)

type searchParams struct {
	courseName string
	lesson     *int
	limit      int
}

// WithCourse filters results to one course. The name may be partial; it is
// resolved against the catalog before searching.
func WithCourse(name string) SearchOption {
	return func(p *searchParams) { p.courseName = name }
}

// WithLesson filters results to one lesson number.
func WithLesson(number int) SearchOption {
	return func(p *searchParams) { p.lesson = &number }
}

// WithLimit overrides the store's default result cap.
func WithLimit(limit int) SearchOption {
	return func(p *searchParams) {
		if limit > 0 {
			p.limit = limit
		}
	}
}

// Search runs a vector similarity search over stored chunks. Failures that
// the caller should surface verbatim (an unresolvable course name, a broken
// backend) are reported in the Err field rather than as a Go error, so the
// result can flow back to the model as text.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) course.SearchResults {
	p := searchParams{limit: s.maxResults}
	for _, opt := range opts {
		opt(&p)
	}

	var courseTitle string
	if p.courseName != "" {
		resolved, err := s.ResolveCourseName(ctx, p.courseName)
		if errors.Is(err, ErrCourseNotFound) {
			return course.SearchResults{Err: fmt.Sprintf("No course found matching '%s'", p.courseName)}
		}
		if err != nil {
			s.logger.Error("course resolution failed", "name", p.courseName, "error", err)
			return course.SearchResults{Err: fmt.Sprintf("Search error: %v", err)}
		}
		courseTitle = resolved
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logger.Error("query embedding failed", "error", err)
		return course.SearchResults{Err: fmt.Sprintf("Search error: %v", err)}
	}

	results, err := s.searchChunks(ctx, pgvector.NewVector(vec), courseTitle, p.lesson, p.limit)
	if err != nil {
		s.logger.Error("vector search failed", "error", err)
		return course.SearchResults{Err: fmt.Sprintf("Search error: %v", err)}
	}
	return results
}

// SearchCourses is Search with explicit filter parameters. It exists so
// callers that receive filters from decoded JSON (the retrieval tools) can
// pass them through without assembling options.
func (s *Store) SearchCourses(ctx context.Context, query, courseName string, lessonNumber *int) course.SearchResults {
	var opts []SearchOption
	if courseName != "" {
		opts = append(opts, WithCourse(courseName))
	}
	if lessonNumber != nil {
		opts = append(opts, WithLesson(*lessonNumber))
	}
	return s.Search(ctx, query, opts...)
}

// searchChunks runs the filtered ANN query. Lesson links fall back to the
// course link for chunks without a lesson number.
func (s *Store) searchChunks(ctx context.Context, vec pgvector.Vector, courseTitle string, lesson *int, limit int) (course.SearchResults, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ch.content, co.title, ch.lesson_number,
		        ch.embedding <=> $1 AS distance,
		        COALESCE(l.link, co.link, '') AS link
		 FROM chunks ch
		 JOIN courses co ON co.id = ch.course_id
		 LEFT JOIN lessons l ON l.course_id = ch.course_id AND l.number = ch.lesson_number
		 WHERE ($2 = '' OR co.title = $2)
		   AND ($3::int IS NULL OR ch.lesson_number = $3)
		 ORDER BY ch.embedding <=> $1
		 LIMIT $4`,
		vec, courseTitle, lesson, limit,
	)
	if err != nil {
		return course.SearchResults{}, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results course.SearchResults
	for rows.Next() {
		var (
			content  string
			title    string
			lessonNo *int
			distance float64
			link     string
		)
		if err := rows.Scan(&content, &title, &lessonNo, &distance, &link); err != nil {
			return course.SearchResults{}, fmt.Errorf("scanning chunk row: %w", err)
		}
		meta := map[string]any{"course_title": title}
		if lessonNo != nil {
			meta["lesson_number"] = *lessonNo
		}
		results.Documents = append(results.Documents, content)
		results.Metadata = append(results.Metadata, meta)
		results.Distances = append(results.Distances, distance)
		results.Links = append(results.Links, link)
	}
	if err := rows.Err(); err != nil {
		return course.SearchResults{}, fmt.Errorf("reading chunk rows: %w", err)
	}
	return results, nil
}

// ResolveCourseName maps a possibly-partial course name to the stored
// title. Exact matches win; otherwise the first case-insensitive substring
// match (alphabetical) is used. Returns ErrCourseNotFound when nothing
// matches.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, error) {
	var title string
	err := s.pool.QueryRow(ctx, `SELECT title FROM courses WHERE title = $1`, name).Scan(&title)
	if err == nil {
		return title, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("resolving course %q: %w", name, err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT title FROM courses WHERE title ILIKE '%' || $1 || '%' ORDER BY title LIMIT 1`,
		name,
	).Scan(&title)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %q", ErrCourseNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("resolving course %q: %w", name, err)
	}
	return title, nil
}

// GetOutline returns a course with its full lesson list. The name may be
// partial. Returns ErrCourseNotFound when nothing matches.
func (s *Store) GetOutline(ctx context.Context, name string) (*course.Course, error) {
	title, err := s.ResolveCourseName(ctx, name)
	if err != nil {
		return nil, err
	}

	c := &course.Course{Title: title}
	var courseID uuid.UUID
	err = s.pool.QueryRow(ctx,
		`SELECT id, link, instructor FROM courses WHERE title = $1`, title,
	).Scan(&courseID, &c.Link, &c.Instructor)
	if err != nil {
		return nil, fmt.Errorf("loading course %q: %w", title, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT number, title, link FROM lessons WHERE course_id = $1 ORDER BY number`, courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading lessons for %q: %w", title, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l course.Lesson
		if err := rows.Scan(&l.Number, &l.Title, &l.Link); err != nil {
			return nil, fmt.Errorf("scanning lesson row: %w", err)
		}
		c.Lessons = append(c.Lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading lesson rows: %w", err)
	}
	return c, nil
}

// ListCourseTitles returns all course titles in alphabetical order.
func (s *Store) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT title FROM courses ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning course title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading course titles: %w", err)
	}
	return titles, nil
}

// CountCourses returns the number of stored courses.
func (s *Store) CountCourses(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM courses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting courses: %w", err)
	}
	return n, nil
}

// ClearAll removes every course, lesson and chunk. Used by full re-ingest.
func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE courses CASCADE`); err != nil {
		return fmt.Errorf("clearing catalog: %w", err)
	}
	s.logger.Info("course catalog cleared")
	return nil
}
