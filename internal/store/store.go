// Package store implements the dual-index vector store backing course
// content retrieval.
//
// Two named chromem-go collections share one embedding function:
//
//   - course_catalog holds one record per course and exists only to resolve
//     fuzzy, human-typed course names into exact titles.
//   - course_content holds one record per chunk and answers the actual
//     content queries, scoped by exact-match metadata predicates.
//
// The store is safe for concurrent use by multiple goroutines.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	chromem "github.com/philippgille/chromem-go"

	"github.com/courselens/courselens/internal/course"
)

// Collection names for the two indexes.
const (
	CatalogCollection = "course_catalog"
	ContentCollection = "course_content"
)

// DefaultResolveThreshold is the minimum cosine similarity at which a fuzzy
// course name is accepted as resolving to a catalog record. Below it the
// resolution reports ErrCourseNotFound rather than guessing. Tunable via
// configuration.
const DefaultResolveThreshold = 0.3

// DefaultMaxResults bounds a search when the caller does not supply a limit.
const DefaultMaxResults = 5

// Metadata keys used on catalog and content records.
const (
	metaTitle       = "title"
	metaLink        = "link"
	metaInstructor  = "instructor"
	metaLessonCount = "lesson_count"
	metaLessons     = "lessons"
	metaCourseTitle = "course_title"
	metaLessonNum   = "lesson_number"
	metaChunkIndex  = "chunk_index"
)

// Config holds the required parameters for a Store.
type Config struct {
	// Path is the index storage location. Empty means a volatile in-memory
	// index (useful for tests and one-shot runs).
	Path string

	// Embedder generates vector embeddings for both indexes. Required.
	Embedder ai.Embedder

	// ResolveThreshold overrides DefaultResolveThreshold when > 0.
	ResolveThreshold float32

	// Logger for debugging. Nil uses slog.Default().
	Logger *slog.Logger
}

// Store manages the catalog and content indexes.
type Store struct {
	db        *chromem.DB
	catalog   *chromem.Collection
	content   *chromem.Collection
	threshold float32
	logger    *slog.Logger

	// chromem-go has no document enumeration API, so titles added by this
	// process are cached for listing. Counts always come from the index.
	mu     sync.RWMutex
	titles []string
}

// New creates a Store. When cfg.Path is non-empty the underlying index is
// persisted there and survives restarts; otherwise it lives in memory.
func New(cfg Config) (*Store, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("opening index at %q: %w", cfg.Path, err)
		}
	}

	embedFn := NewEmbeddingFunc(cfg.Embedder)
	catalog, err := db.GetOrCreateCollection(CatalogCollection, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("creating catalog collection: %w", err)
	}
	content, err := db.GetOrCreateCollection(ContentCollection, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("creating content collection: %w", err)
	}

	threshold := cfg.ResolveThreshold
	if threshold <= 0 {
		threshold = DefaultResolveThreshold
	}

	return &Store{
		db:        db,
		catalog:   catalog,
		content:   content,
		threshold: threshold,
		logger:    logger,
	}, nil
}

// AddCourse embeds a synthesized course summary and upserts it into the
// catalog index. Returns ErrDuplicateCourse when a record with the same
// title already exists; callers should skip the course, not abort the
// batch.
func (s *Store) AddCourse(ctx context.Context, c *course.Course) error {
	if c == nil || c.Title == "" {
		return errors.New("course with a title is required")
	}

	if _, err := s.catalog.GetByID(ctx, c.Title); err == nil {
		return fmt.Errorf("%w: %q", ErrDuplicateCourse, c.Title)
	}

	lessonsJSON, err := json.Marshal(outlineLessons(c))
	if err != nil {
		return fmt.Errorf("serializing lesson list for %q: %w", c.Title, err)
	}

	doc := chromem.Document{
		ID:      c.Title,
		Content: courseSummary(c),
		Metadata: map[string]string{
			metaTitle:       c.Title,
			metaLink:        c.Link,
			metaInstructor:  c.Instructor,
			metaLessonCount: strconv.Itoa(len(c.Lessons)),
			metaLessons:     string(lessonsJSON),
		},
	}
	if err := s.catalog.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("adding course %q to catalog: %w", c.Title, err)
	}

	s.mu.Lock()
	s.titles = append(s.titles, c.Title)
	s.mu.Unlock()

	s.logger.Debug("added course to catalog", "title", c.Title, "lessons", len(c.Lessons))
	return nil
}

// AddChunks embeds each chunk's text and upserts it into the content index.
// Records are keyed by (course title, chunk index), so re-ingesting an
// identical document is idempotent.
func (s *Store) AddChunks(ctx context.Context, chunks []course.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		metadata := map[string]string{
			metaCourseTitle: chunk.CourseTitle,
			metaChunkIndex:  strconv.Itoa(chunk.Index),
		}
		if chunk.Lesson != nil {
			metadata[metaLessonNum] = strconv.Itoa(*chunk.Lesson)
		}
		docs = append(docs, chromem.Document{
			ID:       chunkID(chunk.CourseTitle, chunk.Index),
			Content:  chunk.Text,
			Metadata: metadata,
		})
	}

	if err := s.content.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("adding %d chunks to content index: %w", len(docs), err)
	}

	s.logger.Debug("added chunks to content index", "count", len(docs))
	return nil
}

// RemoveCourse deletes a course's catalog record by exact title. Ingestion
// uses it to roll back the catalog when chunk storage fails, so a course is
// never resolvable without content behind it. Removing an absent title is
// not an error.
func (s *Store) RemoveCourse(ctx context.Context, title string) error {
	if title == "" {
		return errors.New("course title is required")
	}

	if err := s.catalog.Delete(ctx, nil, nil, title); err != nil {
		return fmt.Errorf("removing course %q from catalog: %w", title, err)
	}

	s.mu.Lock()
	for i, t := range s.titles {
		if t == title {
			s.titles = append(s.titles[:i], s.titles[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.logger.Debug("removed course from catalog", "title", title)
	return nil
}

// ResolveCourseName resolves a fuzzy, human-typed course name to the exact
// stored title via semantic search over the catalog. Returns
// ErrCourseNotFound when the catalog is empty or the best match falls below
// the similarity floor; ambiguity is a caller-visible condition, not a hard
// failure.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty course name", ErrCourseNotFound)
	}
	if s.catalog.Count() == 0 {
		return "", fmt.Errorf("%w: %q (catalog is empty)", ErrCourseNotFound, name)
	}

	results, err := s.catalog.Query(ctx, name, 1, nil, nil)
	if err != nil {
		return "", fmt.Errorf("resolving course name %q: %w", name, err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("%w: %q", ErrCourseNotFound, name)
	}

	best := results[0]
	if best.Similarity < s.threshold {
		s.logger.Debug("course resolution below threshold",
			"name", name,
			"best", best.Metadata[metaTitle],
			"similarity", best.Similarity,
			"threshold", s.threshold)
		return "", fmt.Errorf("%w: %q", ErrCourseNotFound, name)
	}

	return best.Metadata[metaTitle], nil
}

// Search embeds the query and returns the closest content chunks, scoped by
// the filter. A human-typed filter course name is resolved first; combining
// course and lesson builds a logical-AND exact-match predicate. Results are
// ordered by ascending distance and truncated to max (DefaultMaxResults
// when max <= 0). An unresolvable course name yields ErrCourseNotFound,
// distinguishable from an empty result set.
func (s *Store) Search(ctx context.Context, query string, f Filter, max int) ([]Hit, error) {
	if max <= 0 {
		max = DefaultMaxResults
	}

	where := make(map[string]string)
	if f.CourseName != "" {
		title, err := s.ResolveCourseName(ctx, f.CourseName)
		if err != nil {
			return nil, err
		}
		where[metaCourseTitle] = title
	}
	if f.Lesson != nil {
		where[metaLessonNum] = strconv.Itoa(*f.Lesson)
	}
	if len(where) == 0 {
		where = nil
	}

	// chromem rejects nResults greater than the collection size.
	if count := s.content.Count(); count == 0 {
		return nil, nil
	} else if max > count {
		max = count
	}

	results, err := s.content.Query(ctx, query, max, where, nil)
	if err != nil {
		return nil, fmt.Errorf("searching content index: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			Content:     r.Content,
			CourseTitle: r.Metadata[metaCourseTitle],
			Lesson:      lessonFromMetadata(r.Metadata),
			Distance:    1 - r.Similarity,
		})
	}

	// chromem returns results by descending similarity; keep the ordering
	// invariant explicit in our terms.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	return hits, nil
}

// CourseOutline returns the catalog record for a course. The name may be
// fuzzy; it is resolved first. Returns ErrCourseNotFound when resolution
// fails.
func (s *Store) CourseOutline(ctx context.Context, name string) (*Outline, error) {
	title, err := s.ResolveCourseName(ctx, name)
	if err != nil {
		return nil, err
	}

	doc, err := s.catalog.GetByID(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrCourseNotFound, title)
	}

	outline := &Outline{
		Title:      doc.Metadata[metaTitle],
		Link:       doc.Metadata[metaLink],
		Instructor: doc.Metadata[metaInstructor],
	}
	if raw := doc.Metadata[metaLessons]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &outline.Lessons); err != nil {
			return nil, fmt.Errorf("parsing lesson list for %q: %w", title, err)
		}
	}
	return outline, nil
}

// CourseCount returns the number of courses in the catalog index.
func (s *Store) CourseCount() int {
	return s.catalog.Count()
}

// ChunkCount returns the number of chunks in the content index.
func (s *Store) ChunkCount() int {
	return s.content.Count()
}

// Titles returns the titles of courses added by this process, in insertion
// order. Counts of previously persisted courses are available via
// CourseCount.
func (s *Store) Titles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.titles))
	copy(out, s.titles)
	return out
}

// courseSummary synthesizes the text embedded for catalog records: title,
// instructor and lesson titles, which is what humans paraphrase when they
// refer to a course.
func courseSummary(c *course.Course) string {
	var sb strings.Builder
	sb.WriteString(c.Title)
	if c.Instructor != "" {
		sb.WriteString(" taught by ")
		sb.WriteString(c.Instructor)
	}
	if len(c.Lessons) > 0 {
		sb.WriteString(". Lessons: ")
		for i, lesson := range c.Lessons {
			if i > 0 {
				sb.WriteString("; ")
			}
			fmt.Fprintf(&sb, "%d. %s", lesson.Number, lesson.Title)
		}
	}
	return sb.String()
}

func outlineLessons(c *course.Course) []OutlineLesson {
	lessons := make([]OutlineLesson, 0, len(c.Lessons))
	for _, l := range c.Lessons {
		lessons = append(lessons, OutlineLesson{Number: l.Number, Title: l.Title, Link: l.Link})
	}
	return lessons
}

func chunkID(title string, index int) string {
	return fmt.Sprintf("%s#%d", title, index)
}

func lessonFromMetadata(metadata map[string]string) int {
	raw, ok := metadata[metaLessonNum]
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}
