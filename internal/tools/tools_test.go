package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/courselens/courselens/internal/store"
	"github.com/courselens/courselens/internal/testutil"
)

// mockSearcher implements ContentSearcher for testing.
type mockSearcher struct {
	hits       []store.Hit
	outline    *store.Outline
	searchErr  error
	outlineErr error

	lastQuery  string
	lastFilter store.Filter
	lastMax    int
}

func (m *mockSearcher) Search(_ context.Context, query string, f store.Filter, max int) ([]store.Hit, error) {
	m.lastQuery = query
	m.lastFilter = f
	m.lastMax = max
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.hits, nil
}

func (m *mockSearcher) CourseOutline(_ context.Context, name string) (*store.Outline, error) {
	if m.outlineErr != nil {
		return nil, m.outlineErr
	}
	return m.outline, nil
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	search := NewSearchTool(&mockSearcher{}, 5, testutil.DiscardLogger())

	if err := reg.Register(nil, search); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(nil, search); err == nil {
		t.Error("Register() with duplicate name should fail")
	}
	if names := reg.Names(); len(names) != 1 || names[0] != SearchToolName {
		t.Errorf("Names() = %v", names)
	}

	_, err := reg.Execute(context.Background(), "no_such_tool", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("Execute() unknown tool error = %v, want ErrUnknownTool", err)
	}
}

func TestSearchTool_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("formats hits and collects sources", func(t *testing.T) {
		searcher := &mockSearcher{hits: []store.Hit{
			{Content: "first chunk", CourseTitle: "Go Course", Lesson: 1},
			{Content: "second chunk", CourseTitle: "Go Course", Lesson: 1},
			{Content: "third chunk", CourseTitle: "Py Course", Lesson: 2},
		}}
		tool := NewSearchTool(searcher, 5, testutil.DiscardLogger())

		res, err := tool.Execute(ctx, map[string]any{"query": "anything"})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		want := "[Go Course - Lesson 1]\nfirst chunk\n\n" +
			"[Go Course - Lesson 1]\nsecond chunk\n\n" +
			"[Py Course - Lesson 2]\nthird chunk"
		if res.Content != want {
			t.Errorf("Execute() content =\n%s\nwant\n%s", res.Content, want)
		}

		// Duplicate labels collapse, order preserved.
		if len(res.Sources) != 2 || res.Sources[0] != "Go Course - Lesson 1" || res.Sources[1] != "Py Course - Lesson 2" {
			t.Errorf("Execute() sources = %v", res.Sources)
		}
	})

	t.Run("chunk without lesson", func(t *testing.T) {
		searcher := &mockSearcher{hits: []store.Hit{
			{Content: "course intro", CourseTitle: "Go Course", Lesson: -1},
		}}
		tool := NewSearchTool(searcher, 5, testutil.DiscardLogger())

		res, err := tool.Execute(ctx, map[string]any{"query": "intro"})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !strings.HasPrefix(res.Content, "[Go Course]\n") {
			t.Errorf("Execute() content = %q, want label without lesson", res.Content)
		}
	})

	t.Run("passes filter through", func(t *testing.T) {
		searcher := &mockSearcher{}
		tool := NewSearchTool(searcher, 3, testutil.DiscardLogger())

		_, err := tool.Execute(ctx, map[string]any{
			"query":         "deploys",
			"course_name":   "MCP",
			"lesson_number": 4,
		})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if searcher.lastQuery != "deploys" || searcher.lastFilter.CourseName != "MCP" {
			t.Errorf("filter = %+v, query = %q", searcher.lastFilter, searcher.lastQuery)
		}
		if searcher.lastFilter.Lesson == nil || *searcher.lastFilter.Lesson != 4 {
			t.Errorf("lesson filter = %v, want 4", searcher.lastFilter.Lesson)
		}
		if searcher.lastMax != 3 {
			t.Errorf("max = %d, want 3", searcher.lastMax)
		}
	})

	t.Run("course not found is a readable result", func(t *testing.T) {
		searcher := &mockSearcher{searchErr: store.ErrCourseNotFound}
		tool := NewSearchTool(searcher, 5, testutil.DiscardLogger())

		res, err := tool.Execute(ctx, map[string]any{"query": "q", "course_name": "Rust"})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if res.Content != "No course found matching 'Rust'" {
			t.Errorf("Execute() content = %q", res.Content)
		}
		if len(res.Sources) != 0 {
			t.Errorf("Execute() sources = %v, want none", res.Sources)
		}
	})

	t.Run("empty hit list is a readable result", func(t *testing.T) {
		searcher := &mockSearcher{}
		lesson := 3
		tool := NewSearchTool(searcher, 5, testutil.DiscardLogger())

		res, err := tool.Execute(ctx, map[string]any{
			"query": "q", "course_name": "Go Course", "lesson_number": lesson,
		})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		want := "No relevant content found in course 'Go Course' in lesson 3."
		if res.Content != want {
			t.Errorf("Execute() content = %q, want %q", res.Content, want)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		tool := NewSearchTool(&mockSearcher{}, 5, testutil.DiscardLogger())
		if _, err := tool.Execute(ctx, map[string]any{"course_name": "Go"}); err == nil {
			t.Error("Execute() without query should fail")
		}
	})

	t.Run("store failure propagates", func(t *testing.T) {
		searcher := &mockSearcher{searchErr: store.ErrEmbedding}
		tool := NewSearchTool(searcher, 5, testutil.DiscardLogger())
		if _, err := tool.Execute(ctx, map[string]any{"query": "q"}); !errors.Is(err, store.ErrEmbedding) {
			t.Errorf("Execute() error = %v, want ErrEmbedding", err)
		}
	})
}

func TestOutlineTool_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("formats outline", func(t *testing.T) {
		searcher := &mockSearcher{outline: &store.Outline{
			Title:      "Go Course",
			Link:       "https://example.com/go",
			Instructor: "Rob",
			Lessons: []store.OutlineLesson{
				{Number: 1, Title: "Basics"},
				{Number: 2, Title: "Concurrency"},
			},
		}}
		tool := NewOutlineTool(searcher, testutil.DiscardLogger())

		res, err := tool.Execute(ctx, map[string]any{"course_name": "go"})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		want := "Course: Go Course\n" +
			"Link: https://example.com/go\n" +
			"Instructor: Rob\n" +
			"Lessons (2):\n" +
			"1. Basics\n" +
			"2. Concurrency"
		if res.Content != want {
			t.Errorf("Execute() content =\n%s\nwant\n%s", res.Content, want)
		}
		if len(res.Sources) != 1 || res.Sources[0] != "Go Course" {
			t.Errorf("Execute() sources = %v", res.Sources)
		}
	})

	t.Run("course not found", func(t *testing.T) {
		searcher := &mockSearcher{outlineErr: store.ErrCourseNotFound}
		tool := NewOutlineTool(searcher, testutil.DiscardLogger())

		res, err := tool.Execute(ctx, map[string]any{"course_name": "Rust"})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if res.Content != "No course found matching 'Rust'" {
			t.Errorf("Execute() content = %q", res.Content)
		}
	})

	t.Run("missing course name", func(t *testing.T) {
		tool := NewOutlineTool(&mockSearcher{}, testutil.DiscardLogger())
		if _, err := tool.Execute(ctx, map[string]any{}); err == nil {
			t.Error("Execute() without course_name should fail")
		}
	})
}
