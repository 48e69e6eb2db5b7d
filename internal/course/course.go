// Package course defines the course transcript data model and turns raw
// transcript documents into lesson-scoped, overlapping text chunks ready
// for embedding.
//
// The package is pure: parsing and chunking have no side effects, and all
// failures are returned as errors.
package course

// Course is the top-level unit of ingestion. A course is identified solely
// by its title; it is created once per ingested document and immutable
// thereafter.
type Course struct {
	Title      string   // Unique identifier
	Link       string   // Optional course URL
	Instructor string   // Optional instructor name
	Lessons    []Lesson // Ordered; numbers need not start at 0 or be contiguous
}

// Lesson is a single lesson within a course. Lesson numbers are unique
// within their course.
type Lesson struct {
	Number int
	Title  string
	Link   string // Optional lesson URL
}

// Chunk is a bounded, overlapping slice of a lesson's text, the unit of
// embedding and retrieval. Chunks reference their course by title and are
// immutable once stored.
type Chunk struct {
	CourseTitle string
	Lesson      *int // nil for text that precedes any lesson marker
	Index       int  // Strictly increasing per course, across lessons
	Text        string
}

// LessonNumber returns the chunk's lesson number, or -1 when the chunk
// does not belong to a lesson.
func (c Chunk) LessonNumber() int {
	if c.Lesson == nil {
		return -1
	}
	return *c.Lesson
}
