package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/courselens/courselens/internal/store"
)

// SearchToolName is the Genkit tool name for course content retrieval.
const SearchToolName = "search_course_content"

// ContentSearcher is the slice of the store the tools need.
type ContentSearcher interface {
	Search(ctx context.Context, query string, f store.Filter, max int) ([]store.Hit, error)
	CourseOutline(ctx context.Context, name string) (*store.Outline, error)
}

// SearchInput defines the arguments the model supplies when calling
// search_course_content.
type SearchInput struct {
	Query      string `json:"query" jsonschema_description:"What to look for in the course content"`
	CourseName string `json:"course_name,omitempty" jsonschema_description:"Course title to search within (partial titles are matched, e.g. 'MCP' or 'Introduction')"`
	Lesson     *int   `json:"lesson_number,omitempty" jsonschema_description:"Specific lesson number to search within (e.g. 1, 2, 3)"`
}

// SearchTool retrieves course content chunks by semantic similarity, scoped
// by optional course and lesson filters.
type SearchTool struct {
	searcher   ContentSearcher
	maxResults int
	logger     *slog.Logger
}

// NewSearchTool creates the content search tool. maxResults caps the chunks
// returned per call (store.DefaultMaxResults when <= 0).
func NewSearchTool(searcher ContentSearcher, maxResults int, logger *slog.Logger) *SearchTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchTool{searcher: searcher, maxResults: maxResults, logger: logger}
}

// Name implements Tool.
func (t *SearchTool) Name() string { return SearchToolName }

// Define implements Tool, publishing the schema to the model.
func (t *SearchTool) Define(g *genkit.Genkit) ai.Tool {
	return genkit.DefineTool(g, SearchToolName,
		"Search course materials for content relevant to a question. "+
			"Optionally scope the search to one course by title (partial titles work) "+
			"and to one lesson by number. "+
			"Returns matching excerpts labeled with their course and lesson.",
		func(ctx *ai.ToolContext, in SearchInput) (string, error) {
			res, err := t.run(ctx, in)
			if err != nil {
				return "", err
			}
			return res.Content, nil
		})
}

// Execute implements Tool.
func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	var in SearchInput
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return t.run(ctx, in)
}

func (t *SearchTool) run(ctx context.Context, in SearchInput) (*Result, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, errors.New("query is required")
	}

	filter := store.Filter{CourseName: in.CourseName, Lesson: in.Lesson}
	hits, err := t.searcher.Search(ctx, in.Query, filter, t.maxResults)
	if errors.Is(err, store.ErrCourseNotFound) {
		// Readable outcome for the model, not a pipeline failure.
		return &Result{Content: fmt.Sprintf("No course found matching '%s'", in.CourseName)}, nil
	}
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		return &Result{Content: noResultsMessage(in)}, nil
	}

	t.logger.Debug("content search", "query", in.Query, "hits", len(hits))
	return formatHits(hits), nil
}

// formatHits renders hits as labeled excerpts and collects deduplicated
// source attributions in hit order.
func formatHits(hits []store.Hit) *Result {
	blocks := make([]string, 0, len(hits))
	sources := make([]string, 0, len(hits))
	seen := make(map[string]bool)

	for _, h := range hits {
		label := h.CourseTitle
		if h.Lesson >= 0 {
			label = fmt.Sprintf("%s - Lesson %d", h.CourseTitle, h.Lesson)
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", label, h.Content))
		if !seen[label] {
			seen[label] = true
			sources = append(sources, label)
		}
	}

	return &Result{
		Content: strings.Join(blocks, "\n\n"),
		Sources: sources,
	}
}

func noResultsMessage(in SearchInput) string {
	var scope strings.Builder
	if in.CourseName != "" {
		fmt.Fprintf(&scope, " in course '%s'", in.CourseName)
	}
	if in.Lesson != nil {
		fmt.Fprintf(&scope, " in lesson %d", *in.Lesson)
	}
	return fmt.Sprintf("No relevant content found%s.", scope.String())
}
