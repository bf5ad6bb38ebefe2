// Package document parses structured course documents into a course record
// plus ordered, embeddable text chunks.
//
// Expected input format:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 1: <lesson title>
//	Lesson Link: <url>
//	<lesson text...>
//
//	Lesson 2: ...
//
// Header lines are optional except the title (a missing title falls back to
// the file name). Lesson text is split into fixed-width, sentence-aware
// chunks with configurable overlap; chunk indexes are contiguous and
// zero-based per course.
package document

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/lectern/lectern/internal/course"
)

// Default chunking parameters, tuned for short course transcripts.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.+)$`)

// sentenceEnd matches sentence boundaries: terminal punctuation followed by
// whitespace. Abbreviations are not handled; course transcripts rarely
// contain them and a misplaced boundary only shifts a chunk edge.
var sentenceEnd = regexp.MustCompile(`(?:[.!?])\s+`)

// Processor splits course documents into metadata and content chunks.
type Processor struct {
	chunkSize    int
	chunkOverlap int
}

// Option configures a Processor.
type Option func(*Processor)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between consecutive chunks in characters.
func WithChunkOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.chunkOverlap = overlap
		}
	}
}

// New creates a Processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.chunkOverlap >= p.chunkSize {
		p.chunkOverlap = p.chunkSize / 4
	}
	return p
}

// ProcessFile reads and processes a course document from disk.
func (p *Processor) ProcessFile(path string) (*course.Course, []course.Chunk, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the operator's docs directory
	if err != nil {
		return nil, nil, fmt.Errorf("opening course document: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p.Process(f, name)
}

// Process parses a course document from r. fallbackTitle is used when the
// document carries no "Course Title:" header.
func (p *Processor) Process(r io.Reader, fallbackTitle string) (*course.Course, []course.Chunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading course document: %w", err)
	}

	c := &course.Course{Title: fallbackTitle}
	body := p.parseHeader(c, lines)
	chunks := p.chunkLessons(c, body)
	return c, chunks, nil
}

// parseHeader consumes the course metadata lines and returns the remaining
// body lines. Header parsing stops at the first lesson marker or at the
// first non-header content line.
func (p *Processor) parseHeader(c *course.Course, lines []string) []string {
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "Course Title:"):
			c.Title = strings.TrimSpace(strings.TrimPrefix(line, "Course Title:"))
		case strings.HasPrefix(line, "Course Link:"):
			c.Link = strings.TrimSpace(strings.TrimPrefix(line, "Course Link:"))
		case strings.HasPrefix(line, "Course Instructor:"):
			c.Instructor = strings.TrimSpace(strings.TrimPrefix(line, "Course Instructor:"))
		default:
			return lines[i:]
		}
	}
	return nil
}

// lessonText accumulates one lesson's metadata and content during parsing.
type lessonText struct {
	number *int // nil for preamble content before the first lesson marker
	title  string
	link   string
	text   []string
}

// chunkLessons walks the body, groups content by lesson, and emits chunks
// with contiguous per-course indexes. The first chunk of every lesson is
// prefixed with "Lesson <n> content:" so retrieval keeps lesson context
// even when the chunk lands mid-transcript.
func (p *Processor) chunkLessons(c *course.Course, body []string) []course.Chunk {
	var sections []lessonText
	current := lessonText{}

	for i := 0; i < len(body); i++ {
		line := strings.TrimSpace(body[i])
		if m := lessonMarker.FindStringSubmatch(line); m != nil {
			sections = append(sections, current)
			n, _ := strconv.Atoi(m[1])
			current = lessonText{number: &n, title: strings.TrimSpace(m[2])}

			// An immediately following "Lesson Link:" line belongs to
			// this lesson's metadata, not its content.
			if i+1 < len(body) {
				next := strings.TrimSpace(body[i+1])
				if strings.HasPrefix(next, "Lesson Link:") {
					current.link = strings.TrimSpace(strings.TrimPrefix(next, "Lesson Link:"))
					i++
				}
			}
			continue
		}
		if line != "" {
			current.text = append(current.text, line)
		}
	}
	sections = append(sections, current)

	var chunks []course.Chunk
	index := 0
	for _, sec := range sections {
		if sec.number != nil {
			c.Lessons = append(c.Lessons, course.Lesson{
				Number: *sec.number,
				Title:  sec.title,
				Link:   sec.link,
			})
		}

		text := strings.Join(sec.text, " ")
		if strings.TrimSpace(text) == "" {
			continue
		}

		for i, piece := range p.ChunkText(text) {
			content := piece
			if i == 0 && sec.number != nil {
				content = fmt.Sprintf("Lesson %d content: %s", *sec.number, piece)
			}
			chunks = append(chunks, course.Chunk{
				Content:      content,
				CourseTitle:  c.Title,
				LessonNumber: sec.number,
				Index:        index,
			})
			index++
		}
	}
	return chunks
}

// ChunkText splits text into sentence-aware chunks of at most chunkSize
// characters, with roughly chunkOverlap characters of trailing context
// carried into the next chunk. A single sentence longer than chunkSize
// becomes its own oversized chunk rather than being cut mid-sentence.
func (p *Processor) ChunkText(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var cur []string
	curLen := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(cur, " "))

		// Seed the next chunk with trailing sentences forming the overlap.
		// The first sentence is never carried so the loop always advances.
		var carry []string
		carryLen := 0
		for i := len(cur) - 1; i >= 1 && carryLen < p.chunkOverlap; i-- {
			carry = append([]string{cur[i]}, carry...)
			carryLen += len(cur[i]) + 1
		}
		cur = carry
		curLen = carryLen
	}

	for _, s := range sentences {
		if curLen > 0 && curLen+len(s)+1 > p.chunkSize {
			flush()
		}
		cur = append(cur, s)
		curLen += len(s) + 1
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}

	// Drop a trailing chunk that is pure overlap of the previous one.
	if n := len(chunks); n >= 2 && strings.HasSuffix(chunks[n-2], chunks[n-1]) {
		chunks = chunks[:n-1]
	}
	return chunks
}

// splitSentences splits text on sentence-ending punctuation, keeping the
// punctuation with the preceding sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		// loc[0] is the punctuation position; keep it with the sentence.
		s := strings.TrimSpace(text[last : loc[0]+1])
		if s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
