// Package course defines the domain model for ingested course materials:
// courses, lessons, content chunks, search results, and citation sources.
//
// All types are plain data. Courses and chunks are immutable once produced
// by the document processor; search results and sources are transient
// per-query values.
package course

import "fmt"

// Course represents a single ingested course.
// Title is the unique identifier across the catalog.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Lesson is one lesson within a course. Number is unique within its course.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Chunk is a bounded slice of course text, the unit indexed and retrieved.
// Index is zero-based and contiguous per course; LessonNumber is nil for
// content that precedes the first lesson marker.
type Chunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	Index        int
}

// SearchResults holds ranked matches from the vector store.
// Documents, Metadata, Distances and Links are parallel slices of equal
// length. If Err is non-empty the slices are empty and the value must be
// treated as a terminal failure signal, not as zero results.
type SearchResults struct {
	Documents []string
	Metadata  []map[string]any
	Distances []float64
	Links     []string
	Err       string
}

// IsError reports whether the results carry a store-level error.
func (r SearchResults) IsError() bool {
	return r.Err != ""
}

// Empty reports whether the search produced no matches (and no error).
func (r SearchResults) Empty() bool {
	return r.Err == "" && len(r.Documents) == 0
}

// Source is a citation record shown to the end user, indicating which
// course/lesson content backed an answer.
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// NewSource builds a Source for the given course and optional lesson.
// With a lesson number the display text is "<course> - Lesson <n>";
// without one it is just the course title.
func NewSource(courseTitle string, lessonNumber *int, link string) Source {
	text := courseTitle
	if lessonNumber != nil {
		text = fmt.Sprintf("%s - Lesson %d", courseTitle, *lessonNumber)
	}
	return Source{Text: text, Link: link}
}
