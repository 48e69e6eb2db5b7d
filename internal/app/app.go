// Package app wires the application together: Genkit, the vector store,
// the retrieval tools, sessions and the answering agent.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/courselens/courselens/internal/chat"
	"github.com/courselens/courselens/internal/config"
	"github.com/courselens/courselens/internal/course"
	"github.com/courselens/courselens/internal/ingest"
	"github.com/courselens/courselens/internal/log"
	"github.com/courselens/courselens/internal/session"
	"github.com/courselens/courselens/internal/store"
	"github.com/courselens/courselens/internal/tools"
)

// App holds the assembled application.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Store    *store.Store
	Registry *tools.Registry
	Sessions *session.Store
	Agent    *chat.Agent
	Ingestor *ingest.Ingestor

	cancel context.CancelFunc
}

// Setup creates and initializes the application. Call Close to release it.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	a := &App{Config: cfg, cancel: cancel}
	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	a.Logger = log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai plugin")
	}
	a.Genkit = g
	a.Embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)

	st, err := store.New(store.Config{
		Path:             cfg.StorePath,
		Embedder:         a.Embedder,
		ResolveThreshold: cfg.ResolveThreshold,
		Logger:           a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	a.Store = st

	a.Registry = tools.NewRegistry()
	if err := a.Registry.Register(g, tools.NewSearchTool(st, cfg.MaxResults, a.Logger)); err != nil {
		return nil, err
	}
	if err := a.Registry.Register(g, tools.NewOutlineTool(st, a.Logger)); err != nil {
		return nil, err
	}

	a.Sessions = session.NewStore(cfg.MaxHistory, a.Logger)

	model := googlegenai.GoogleAIModel(g, cfg.ModelName)
	if model == nil {
		return nil, fmt.Errorf("model %q not found", cfg.ModelName)
	}
	agent, err := chat.New(chat.Config{
		Genkit:    g,
		Model:     model,
		Registry:  a.Registry,
		Sessions:  a.Sessions,
		MaxTokens: cfg.MaxTokens,
		Logger:    a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	a.Agent = agent

	chunker, err := course.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}
	a.Ingestor = ingest.New(course.NewParser(chunker), st, a.Logger)

	return a, nil
}

// Close releases application resources. Safe to call more than once.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
}
