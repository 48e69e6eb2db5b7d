// Package ingest loads course transcript documents into the store.
//
// Ingestion is additive and idempotent: documents whose course already
// exists are skipped, re-adding identical chunks overwrites them in place,
// and a malformed document is reported and skipped without aborting the
// batch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/courselens/courselens/internal/course"
	"github.com/courselens/courselens/internal/store"
)

// CourseStore is the slice of the store ingestion needs.
type CourseStore interface {
	AddCourse(ctx context.Context, c *course.Course) error
	AddChunks(ctx context.Context, chunks []course.Chunk) error
	RemoveCourse(ctx context.Context, title string) error
}

// Result summarizes one ingestion run.
type Result struct {
	CoursesAdded   int
	CoursesSkipped int // already present
	ChunksAdded    int
	Failed         []string // documents that could not be parsed or stored
}

// Ingestor parses transcript documents and loads them into the store.
type Ingestor struct {
	parser *course.Parser
	store  CourseStore
	logger *slog.Logger
}

// New creates an Ingestor.
func New(parser *course.Parser, st CourseStore, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{parser: parser, store: st, logger: logger}
}

// IngestFile loads a single transcript document. Returns
// course.ErrMalformedDocument when the document cannot be parsed and
// store.ErrDuplicateCourse when the course is already present.
func (i *Ingestor) IngestFile(ctx context.Context, path string) (*course.Course, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	c, chunks, err := i.parser.ParseDocument(f, filepath.Base(path))
	if err != nil {
		return nil, 0, err
	}

	if err := i.store.AddCourse(ctx, c); err != nil {
		return nil, 0, err
	}
	if err := i.store.AddChunks(ctx, chunks); err != nil {
		// Roll back the catalog record so a retry is not turned away as a
		// duplicate of a course that has no content.
		if rmErr := i.store.RemoveCourse(ctx, c.Title); rmErr != nil {
			i.logger.Warn("rollback of catalog record failed", "title", c.Title, "error", rmErr)
		}
		return nil, 0, fmt.Errorf("storing chunks for %q: %w", c.Title, err)
	}

	i.logger.Info("ingested course", "title", c.Title, "lessons", len(c.Lessons), "chunks", len(chunks))
	return c, len(chunks), nil
}

// IngestDirectory loads every .txt document in dir (non-recursive, sorted
// by name). Duplicate courses and malformed documents are counted and
// skipped; only filesystem-level failures abort the run.
func (i *Ingestor) IngestDirectory(ctx context.Context, dir string) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	res := &Result{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		_, chunks, err := i.IngestFile(ctx, path)
		switch {
		case errors.Is(err, store.ErrDuplicateCourse):
			res.CoursesSkipped++
		case errors.Is(err, course.ErrMalformedDocument):
			i.logger.Warn("skipping malformed document", "path", path, "error", err)
			res.Failed = append(res.Failed, filepath.Base(path))
		case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
			return res, err
		case err != nil:
			i.logger.Warn("skipping document", "path", path, "error", err)
			res.Failed = append(res.Failed, filepath.Base(path))
		default:
			res.CoursesAdded++
			res.ChunksAdded += chunks
		}
	}

	i.logger.Info("ingestion complete",
		"added", res.CoursesAdded,
		"skipped", res.CoursesSkipped,
		"chunks", res.ChunksAdded,
		"failed", len(res.Failed))
	return res, nil
}
