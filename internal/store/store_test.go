package store

import (
	"context"
	"errors"
	"testing"

	"github.com/courselens/courselens/internal/course"
	"github.com/courselens/courselens/internal/testutil"
)

const testDim = 4

// Orthogonal-ish unit vectors for precise cosine similarity control.
var (
	vecAlpha = []float32{1, 0, 0, 0}
	vecBeta  = []float32{0, 1, 0, 0}
	vecGamma = []float32{0, 0, 1, 0}
)

func intPtr(n int) *int { return &n }

func newTestStore(t *testing.T, embedder *testutil.MockEmbedder) *Store {
	t.Helper()
	s, err := New(Config{
		Embedder: embedder,
		Logger:   testutil.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func testCourse(title string, lessons ...course.Lesson) *course.Course {
	return &course.Course{
		Title:      title,
		Link:       "https://example.com/" + title,
		Instructor: "Test Instructor",
		Lessons:    lessons,
	}
}

func TestNew_RequiresEmbedder(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New() with nil embedder should fail")
	}
}

func TestAddCourse(t *testing.T) {
	ctx := context.Background()
	embedder := testutil.NewMockEmbedder(testDim)
	s := newTestStore(t, embedder)

	c := testCourse("Building RAG Systems",
		course.Lesson{Number: 1, Title: "Introduction"},
		course.Lesson{Number: 2, Title: "Vector Stores"},
	)

	if err := s.AddCourse(ctx, c); err != nil {
		t.Fatalf("AddCourse() error = %v", err)
	}
	if got := s.CourseCount(); got != 1 {
		t.Errorf("CourseCount() = %d, want 1", got)
	}

	// Re-adding the same title must be rejected, not overwrite.
	err := s.AddCourse(ctx, c)
	if !errors.Is(err, ErrDuplicateCourse) {
		t.Errorf("AddCourse() duplicate error = %v, want ErrDuplicateCourse", err)
	}
	if got := s.CourseCount(); got != 1 {
		t.Errorf("CourseCount() after duplicate = %d, want 1", got)
	}

	if titles := s.Titles(); len(titles) != 1 || titles[0] != "Building RAG Systems" {
		t.Errorf("Titles() = %v, want [Building RAG Systems]", titles)
	}
}

func TestRemoveCourse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testutil.NewMockEmbedder(testDim))

	c := testCourse("Building RAG Systems", course.Lesson{Number: 1, Title: "Introduction"})
	if err := s.AddCourse(ctx, c); err != nil {
		t.Fatalf("AddCourse() error = %v", err)
	}

	if err := s.RemoveCourse(ctx, c.Title); err != nil {
		t.Fatalf("RemoveCourse() error = %v", err)
	}
	if got := s.CourseCount(); got != 0 {
		t.Errorf("CourseCount() after removal = %d, want 0", got)
	}
	if titles := s.Titles(); len(titles) != 0 {
		t.Errorf("Titles() after removal = %v, want none", titles)
	}

	// The title is available again, as after a failed ingest.
	if err := s.AddCourse(ctx, c); err != nil {
		t.Fatalf("AddCourse() after removal error = %v", err)
	}
	if got := s.CourseCount(); got != 1 {
		t.Errorf("CourseCount() after re-add = %d, want 1", got)
	}

	// Absent titles are not an error, only empty ones are.
	if err := s.RemoveCourse(ctx, "No Such Course"); err != nil {
		t.Errorf("RemoveCourse() absent title error = %v, want nil", err)
	}
	if err := s.RemoveCourse(ctx, ""); err == nil {
		t.Error("RemoveCourse() with empty title should fail")
	}
}

func TestAddCourse_Invalid(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testutil.NewMockEmbedder(testDim))

	if err := s.AddCourse(ctx, nil); err == nil {
		t.Error("AddCourse(nil) should fail")
	}
	if err := s.AddCourse(ctx, &course.Course{}); err == nil {
		t.Error("AddCourse() without title should fail")
	}
}

func TestResolveCourseName(t *testing.T) {
	ctx := context.Background()
	embedder := testutil.NewMockEmbedder(testDim)
	s := newTestStore(t, embedder)

	ragCourse := testCourse("Building RAG Systems", course.Lesson{Number: 1, Title: "Intro"})
	mcpCourse := testCourse("MCP in Practice", course.Lesson{Number: 1, Title: "Servers"})
	embedder.SetVector(courseSummary(ragCourse), vecAlpha)
	embedder.SetVector(courseSummary(mcpCourse), vecBeta)

	if err := s.AddCourse(ctx, ragCourse); err != nil {
		t.Fatalf("AddCourse() error = %v", err)
	}
	if err := s.AddCourse(ctx, mcpCourse); err != nil {
		t.Fatalf("AddCourse() error = %v", err)
	}

	// Exact title lands on its own catalog record.
	embedder.SetVector("Building RAG Systems", vecAlpha)

	// Fuzzy name close to the RAG course, above the similarity floor.
	embedder.SetVector("rag course", []float32{0.95, 0.312, 0, 0})

	// Name that is far from everything in the catalog.
	embedder.SetVector("underwater basket weaving", []float32{0.1, 0.1, 0.99, 0})

	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{"exact title", "Building RAG Systems", "Building RAG Systems", false},
		{"fuzzy name", "rag course", "Building RAG Systems", false},
		{"below threshold", "underwater basket weaving", "", true},
		{"empty name", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ResolveCourseName(ctx, tt.query)
			if tt.wantErr {
				if !errors.Is(err, ErrCourseNotFound) {
					t.Fatalf("ResolveCourseName(%q) error = %v, want ErrCourseNotFound", tt.query, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveCourseName(%q) error = %v", tt.query, err)
			}
			if got != tt.want {
				t.Errorf("ResolveCourseName(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestResolveCourseName_EmptyCatalog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testutil.NewMockEmbedder(testDim))

	_, err := s.ResolveCourseName(ctx, "anything")
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("ResolveCourseName() on empty catalog error = %v, want ErrCourseNotFound", err)
	}
}

// seedContent loads two courses with controlled chunk vectors:
//
//	Go Course   lesson 1: "alpha content" (vecAlpha), lesson 2: "beta content" (0.8 cos to alpha)
//	Py Course   lesson 1: "gamma content" (vecGamma, orthogonal to alpha)
func seedContent(t *testing.T, ctx context.Context, s *Store, embedder *testutil.MockEmbedder) {
	t.Helper()

	goCourse := testCourse("Go Course", course.Lesson{Number: 1, Title: "A"}, course.Lesson{Number: 2, Title: "B"})
	pyCourse := testCourse("Py Course", course.Lesson{Number: 1, Title: "C"})
	embedder.SetVector(courseSummary(goCourse), vecAlpha)
	embedder.SetVector(courseSummary(pyCourse), vecGamma)
	embedder.SetVector("Go Course", vecAlpha)
	embedder.SetVector("Py Course", vecGamma)

	embedder.SetVector("alpha content", vecAlpha)
	embedder.SetVector("beta content", []float32{0.8, 0.6, 0, 0})
	embedder.SetVector("gamma content", vecGamma)

	if err := s.AddCourse(ctx, goCourse); err != nil {
		t.Fatalf("AddCourse() error = %v", err)
	}
	if err := s.AddCourse(ctx, pyCourse); err != nil {
		t.Fatalf("AddCourse() error = %v", err)
	}

	chunks := []course.Chunk{
		{CourseTitle: "Go Course", Lesson: intPtr(1), Index: 0, Text: "alpha content"},
		{CourseTitle: "Go Course", Lesson: intPtr(2), Index: 1, Text: "beta content"},
		{CourseTitle: "Py Course", Lesson: intPtr(1), Index: 0, Text: "gamma content"},
	}
	if err := s.AddChunks(ctx, chunks); err != nil {
		t.Fatalf("AddChunks() error = %v", err)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	embedder := testutil.NewMockEmbedder(testDim)
	s := newTestStore(t, embedder)
	seedContent(t, ctx, s, embedder)

	embedder.SetVector("find alpha", vecAlpha)

	t.Run("unfiltered ordering", func(t *testing.T) {
		hits, err := s.Search(ctx, "find alpha", Filter{}, 5)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 3 {
			t.Fatalf("Search() returned %d hits, want 3", len(hits))
		}
		if hits[0].Content != "alpha content" || hits[1].Content != "beta content" {
			t.Errorf("Search() order = [%q, %q], want alpha then beta", hits[0].Content, hits[1].Content)
		}
		for i := 1; i < len(hits); i++ {
			if hits[i].Distance < hits[i-1].Distance {
				t.Errorf("Search() hits not in ascending distance order: %v then %v",
					hits[i-1].Distance, hits[i].Distance)
			}
		}
	})

	t.Run("course filter", func(t *testing.T) {
		hits, err := s.Search(ctx, "find alpha", Filter{CourseName: "Go Course"}, 5)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		for _, h := range hits {
			if h.CourseTitle != "Go Course" {
				t.Errorf("Search() returned chunk from %q, want Go Course only", h.CourseTitle)
			}
		}
		if len(hits) != 2 {
			t.Errorf("Search() returned %d hits, want 2", len(hits))
		}
	})

	t.Run("course and lesson filter", func(t *testing.T) {
		hits, err := s.Search(ctx, "find alpha", Filter{CourseName: "Go Course", Lesson: intPtr(2)}, 5)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 1 || hits[0].Content != "beta content" || hits[0].Lesson != 2 {
			t.Errorf("Search() = %+v, want single beta content hit from lesson 2", hits)
		}
	})

	t.Run("lesson filter without course", func(t *testing.T) {
		hits, err := s.Search(ctx, "find alpha", Filter{Lesson: intPtr(1)}, 5)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 2 {
			t.Errorf("Search() returned %d hits, want 2 (lesson 1 of both courses)", len(hits))
		}
	})

	t.Run("unknown course", func(t *testing.T) {
		embedder.SetVector("no such course", []float32{0, 0, 0, 1})
		_, err := s.Search(ctx, "find alpha", Filter{CourseName: "no such course"}, 5)
		if !errors.Is(err, ErrCourseNotFound) {
			t.Errorf("Search() error = %v, want ErrCourseNotFound", err)
		}
	})

	t.Run("result cap is a prefix of larger caps", func(t *testing.T) {
		one, err := s.Search(ctx, "find alpha", Filter{}, 1)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		three, err := s.Search(ctx, "find alpha", Filter{}, 3)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(one) != 1 {
			t.Fatalf("Search() with cap 1 returned %d hits", len(one))
		}
		if one[0].Content != three[0].Content {
			t.Errorf("cap 1 top hit %q differs from cap 3 top hit %q", one[0].Content, three[0].Content)
		}
	})

	t.Run("cap above corpus size", func(t *testing.T) {
		hits, err := s.Search(ctx, "find alpha", Filter{}, 50)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 3 {
			t.Errorf("Search() returned %d hits, want all 3", len(hits))
		}
	})
}

func TestSearch_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testutil.NewMockEmbedder(testDim))

	hits, err := s.Search(ctx, "anything", Filter{}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("Search() on empty index returned %d hits, want 0", len(hits))
	}
}

func TestAddChunks_Idempotent(t *testing.T) {
	ctx := context.Background()
	embedder := testutil.NewMockEmbedder(testDim)
	s := newTestStore(t, embedder)

	chunks := []course.Chunk{
		{CourseTitle: "Go Course", Lesson: intPtr(1), Index: 0, Text: "alpha content"},
		{CourseTitle: "Go Course", Lesson: intPtr(1), Index: 1, Text: "beta content"},
	}
	if err := s.AddChunks(ctx, chunks); err != nil {
		t.Fatalf("AddChunks() error = %v", err)
	}
	if err := s.AddChunks(ctx, chunks); err != nil {
		t.Fatalf("AddChunks() re-add error = %v", err)
	}
	if got := s.ChunkCount(); got != 2 {
		t.Errorf("ChunkCount() after re-add = %d, want 2", got)
	}
}

func TestAddChunks_Empty(t *testing.T) {
	s := newTestStore(t, testutil.NewMockEmbedder(testDim))
	if err := s.AddChunks(context.Background(), nil); err != nil {
		t.Errorf("AddChunks(nil) error = %v", err)
	}
}

func TestCourseOutline(t *testing.T) {
	ctx := context.Background()
	embedder := testutil.NewMockEmbedder(testDim)
	s := newTestStore(t, embedder)

	c := testCourse("Go Course",
		course.Lesson{Number: 1, Title: "Basics", Link: "https://example.com/l1"},
		course.Lesson{Number: 3, Title: "Advanced"},
	)
	embedder.SetVector(courseSummary(c), vecAlpha)
	embedder.SetVector("Go Course", vecAlpha)

	if err := s.AddCourse(ctx, c); err != nil {
		t.Fatalf("AddCourse() error = %v", err)
	}

	outline, err := s.CourseOutline(ctx, "Go Course")
	if err != nil {
		t.Fatalf("CourseOutline() error = %v", err)
	}
	if outline.Title != "Go Course" || outline.Instructor != "Test Instructor" {
		t.Errorf("CourseOutline() header = %+v", outline)
	}
	if len(outline.Lessons) != 2 {
		t.Fatalf("CourseOutline() lessons = %d, want 2", len(outline.Lessons))
	}
	if outline.Lessons[1].Number != 3 || outline.Lessons[1].Title != "Advanced" {
		t.Errorf("CourseOutline() lesson[1] = %+v", outline.Lessons[1])
	}
	if outline.Lessons[0].Link != "https://example.com/l1" {
		t.Errorf("CourseOutline() lesson[0].Link = %q", outline.Lessons[0].Link)
	}

	embedder.SetVector("missing", []float32{0, 0, 0, 1})
	if _, err := s.CourseOutline(ctx, "missing"); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("CourseOutline() error = %v, want ErrCourseNotFound", err)
	}
}
