package course

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedDocument indicates a transcript document that cannot be
// ingested: the title header is missing or unparsable. Ingestion of that
// document aborts; other documents in a batch continue.
var ErrMalformedDocument = errors.New("malformed course document")

// Document header prefixes. The title line is required and must be first;
// the link and instructor lines are optional but must follow immediately.
const (
	titlePrefix      = "Course Title:"
	linkPrefix       = "Course Link:"
	instructorPrefix = "Course Instructor:"
	lessonLinkPrefix = "Lesson Link:"
)

// lessonMarker matches lines like "Lesson 0: Introduction". The lesson
// number is a non-negative integer; the title may be empty.
var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// Parser converts raw transcript documents into a Course plus its chunks.
type Parser struct {
	chunker *Chunker
}

// NewParser creates a Parser using the given chunker for lesson bodies.
func NewParser(chunker *Chunker) *Parser {
	return &Parser{chunker: chunker}
}

// ParseDocument reads a transcript document and returns the parsed Course
// together with its ordered chunks.
//
// Expected format:
//
//	Course Title: <string>          (required)
//	Course Link: <url>              (optional)
//	Course Instructor: <string>     (optional)
//	Lesson <N>: <title>
//	Lesson Link: <url>              (optional, directly after the marker)
//	<free-text body...>
//	Lesson <M>: <title>
//	...
//
// Text between the header and the first lesson marker is chunked without a
// lesson association. Returns ErrMalformedDocument when the title line is
// missing or unparsable.
func (p *Parser) ParseDocument(r io.Reader, name string) (*Course, []Chunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading document %q: %w", name, err)
	}

	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("%w: %q is empty", ErrMalformedDocument, name)
	}

	title := strings.TrimSpace(strings.TrimPrefix(lines[0], titlePrefix))
	if !strings.HasPrefix(lines[0], titlePrefix) || title == "" {
		return nil, nil, fmt.Errorf("%w: %q missing %q header line", ErrMalformedDocument, name, titlePrefix)
	}

	c := &Course{Title: title}

	// Optional header lines 2 and 3.
	i := 1
	if i < len(lines) && strings.HasPrefix(lines[i], linkPrefix) {
		c.Link = strings.TrimSpace(strings.TrimPrefix(lines[i], linkPrefix))
		i++
	}
	if i < len(lines) && strings.HasPrefix(lines[i], instructorPrefix) {
		c.Instructor = strings.TrimSpace(strings.TrimPrefix(lines[i], instructorPrefix))
		i++
	}

	chunks := p.parseBody(c, lines[i:])
	return c, chunks, nil
}

// parseBody splits the post-header lines on lesson markers, chunks each
// body and assigns a strictly increasing chunk index per course.
func (p *Parser) parseBody(c *Course, lines []string) []Chunk {
	var chunks []Chunk
	index := 0

	// flush chunks the accumulated body for the given lesson (nil for the
	// preamble before the first marker).
	flush := func(lesson *int, body []string) {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text == "" {
			return
		}
		for _, window := range p.chunker.Split(text) {
			stored := window
			if lesson != nil {
				stored = fmt.Sprintf("Lesson %d content: %s", *lesson, window)
			}
			chunks = append(chunks, Chunk{
				CourseTitle: c.Title,
				Lesson:      lesson,
				Index:       index,
				Text:        stored,
			})
			index++
		}
	}

	var current *int
	var body []string
	for i := 0; i < len(lines); i++ {
		m := lessonMarker.FindStringSubmatch(lines[i])
		if m == nil {
			body = append(body, lines[i])
			continue
		}

		flush(current, body)
		body = nil

		// Marker line is guaranteed numeric by the regexp.
		number, _ := strconv.Atoi(m[1])
		lesson := Lesson{Number: number, Title: strings.TrimSpace(m[2])}

		if i+1 < len(lines) && strings.HasPrefix(lines[i+1], lessonLinkPrefix) {
			lesson.Link = strings.TrimSpace(strings.TrimPrefix(lines[i+1], lessonLinkPrefix))
			i++
		}

		c.Lessons = append(c.Lessons, lesson)
		n := number
		current = &n
	}
	flush(current, body)

	return chunks
}
