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

// OutlineToolName is the Genkit tool name for course outline lookup.
const OutlineToolName = "get_course_outline"

// OutlineInput defines the arguments for get_course_outline.
type OutlineInput struct {
	CourseName string `json:"course_name" jsonschema_description:"Course title to look up (partial titles are matched)"`
}

// OutlineTool returns a course's structure: title, link, instructor and the
// full lesson list. It answers questions about what a course covers without
// searching chunk content.
type OutlineTool struct {
	searcher ContentSearcher
	logger   *slog.Logger
}

// NewOutlineTool creates the course outline tool.
func NewOutlineTool(searcher ContentSearcher, logger *slog.Logger) *OutlineTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutlineTool{searcher: searcher, logger: logger}
}

// Name implements Tool.
func (t *OutlineTool) Name() string { return OutlineToolName }

// Define implements Tool.
func (t *OutlineTool) Define(g *genkit.Genkit) ai.Tool {
	return genkit.DefineTool(g, OutlineToolName,
		"Get a course's outline: its title, link, instructor and complete "+
			"numbered lesson list. Use this for questions about course structure "+
			"rather than lesson content.",
		func(ctx *ai.ToolContext, in OutlineInput) (string, error) {
			res, err := t.run(ctx, in)
			if err != nil {
				return "", err
			}
			return res.Content, nil
		})
}

// Execute implements Tool.
func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	var in OutlineInput
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return t.run(ctx, in)
}

func (t *OutlineTool) run(ctx context.Context, in OutlineInput) (*Result, error) {
	if strings.TrimSpace(in.CourseName) == "" {
		return nil, errors.New("course_name is required")
	}

	outline, err := t.searcher.CourseOutline(ctx, in.CourseName)
	if errors.Is(err, store.ErrCourseNotFound) {
		return &Result{Content: fmt.Sprintf("No course found matching '%s'", in.CourseName)}, nil
	}
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Course: %s\n", outline.Title)
	if outline.Link != "" {
		fmt.Fprintf(&sb, "Link: %s\n", outline.Link)
	}
	if outline.Instructor != "" {
		fmt.Fprintf(&sb, "Instructor: %s\n", outline.Instructor)
	}
	fmt.Fprintf(&sb, "Lessons (%d):\n", len(outline.Lessons))
	for _, l := range outline.Lessons {
		fmt.Fprintf(&sb, "%d. %s\n", l.Number, l.Title)
	}

	t.logger.Debug("outline lookup", "course", outline.Title, "lessons", len(outline.Lessons))
	return &Result{
		Content: strings.TrimRight(sb.String(), "\n"),
		Sources: []string{outline.Title},
	}, nil
}
