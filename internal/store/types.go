package store

import "errors"

// Sentinel errors for store operations.
//
// Callers branch with errors.Is: a duplicate course is skipped rather than
// aborting a batch, and an unresolved course name is an expected query
// outcome rather than a hard failure.
var (
	// ErrDuplicateCourse indicates a catalog record with the same title
	// already exists. Non-fatal; the caller should skip the course.
	ErrDuplicateCourse = errors.New("course already exists")

	// ErrCourseNotFound indicates a fuzzy course name could not be resolved
	// against the catalog (empty catalog or best match below the
	// similarity floor).
	ErrCourseNotFound = errors.New("course not found")

	// ErrEmbedding indicates the embedding capability failed. Fatal for the
	// operation in progress; there is no silent fallback.
	ErrEmbedding = errors.New("embedding failed")
)

// Filter scopes a content search. Zero values mean "unfiltered". When both
// fields are set they combine with logical AND. CourseName may be an
// inexact, human-typed name; it is resolved against the catalog before the
// predicate is built.
type Filter struct {
	CourseName string
	Lesson     *int
}

// Hit is a single content search result. Results are ordered by ascending
// Distance (closer = more relevant).
type Hit struct {
	Content     string
	CourseTitle string
	Lesson      int // -1 when the chunk has no lesson association
	Distance    float32
}

// Outline is the catalog's view of a course, used for name resolution
// readback and the course outline tool. It is never shown to end users as
// retrieval content.
type Outline struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []OutlineLesson
}

// OutlineLesson is one entry of a course outline.
type OutlineLesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}
