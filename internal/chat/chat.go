// Package chat orchestrates answering questions over ingested course
// materials.
//
// The answering protocol is a fixed two-turn exchange with the model. On
// the first turn the model sees the question and the retrieval tools; tool
// execution is not delegated to the framework, the agent collects the
// model's tool requests itself. After running at most one round of tools it
// asks the model again, this time offering no tools, so a single question
// costs at most two model calls and one retrieval round.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/courselens/courselens/internal/session"
	"github.com/courselens/courselens/internal/tools"
)

// ErrGeneration wraps model call failures. Tool failures never surface
// here; they are folded into the conversation as readable tool output.
var ErrGeneration = errors.New("generation failed")

// DefaultMaxTokens bounds answer length when the configuration does not.
const DefaultMaxTokens = 800

// systemPrompt instructs the model on when to retrieve and how to answer.
const systemPrompt = `You are a helpful assistant answering questions about course materials.

You have tools for retrieving course information:
- search_course_content: finds lesson content relevant to a question, optionally scoped to one course or lesson
- get_course_outline: returns a course's title, link and complete lesson list

Use at most one tool call per question, and only when the question concerns
specific course content or structure. Answer general questions directly
from your own knowledge.

Answers must be brief, accurate and grounded in the retrieved content when
a tool was used. If the retrieved content does not answer the question, say
so. Do not mention the tools or the retrieval process in your answer.`

// Config holds the dependencies for an Agent.
type Config struct {
	Genkit    *genkit.Genkit  // required
	Model     ai.Model        // required
	Registry  *tools.Registry // required
	Sessions  *session.Store  // required
	MaxTokens int             // answer length cap (DefaultMaxTokens when 0)

	// RateLimiter throttles model calls across all sessions. Nil installs
	// a conservative default.
	RateLimiter *rate.Limiter

	Logger *slog.Logger
}

// Agent answers questions, maintaining per-session conversation context.
//
// Safe for concurrent use; concurrent questions on the same session
// serialize only when recording the finished exchange.
type Agent struct {
	g         *genkit.Genkit
	model     ai.Model
	registry  *tools.Registry
	sessions  *session.Store
	maxTokens int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// Answer is a completed response to one question.
type Answer struct {
	Text      string
	Sources   []string  // attributions from tool output, empty when no tool ran
	SessionID uuid.UUID // session to pass back for follow-up questions
}

// New creates an Agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.Model == nil {
		return nil, errors.New("model is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Agent{
		g:         cfg.Genkit,
		model:     cfg.Model,
		registry:  cfg.Registry,
		sessions:  cfg.Sessions,
		maxTokens: maxTokens,
		limiter:   limiter,
		logger:    logger,
	}, nil
}

// Answer runs the two-turn protocol for one question. Passing uuid.Nil as
// sessionID starts a fresh conversation; the returned Answer carries the
// session ID to continue it.
//
// The session records the exchange only after an answer is final, so a
// failed attempt never pollutes follow-up context.
func (a *Agent) Answer(ctx context.Context, question string, sessionID uuid.UUID) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question is required")
	}

	sess := a.sessions.GetOrCreate(sessionID)

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	system := systemPrompt
	if history := sess.History(); history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}

	messages := []*ai.Message{ai.NewUserMessage(ai.NewTextPart(question))}

	// Turn one: offer the tools, but take back control instead of letting
	// the framework loop on tool calls.
	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModel(a.model),
		ai.WithSystem(system),
		ai.WithMessages(messages...),
		ai.WithTools(a.registry.Refs()...),
		ai.WithReturnToolRequests(true),
		ai.WithConfig(map[string]any{"maxOutputTokens": a.maxTokens}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	requests := resp.ToolRequests()
	if len(requests) == 0 {
		text := resp.Text()
		sess.AddExchange(question, text)
		return &Answer{Text: text, Sources: nil, SessionID: sess.ID()}, nil
	}

	messages = append(messages, resp.Message)
	toolMsg, sources := a.runTools(ctx, requests)
	messages = append(messages, toolMsg)

	// Turn two: no tools offered, so the model must answer from the
	// retrieved content. The limiter gates every model call, not the
	// question as a whole.
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	resp, err = genkit.Generate(ctx, a.g,
		ai.WithModel(a.model),
		ai.WithSystem(system),
		ai.WithMessages(messages...),
		ai.WithConfig(map[string]any{"maxOutputTokens": a.maxTokens}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	text := resp.Text()
	sess.AddExchange(question, text)
	return &Answer{Text: text, Sources: sources, SessionID: sess.ID()}, nil
}

// runTools executes the model's tool requests through the registry and
// builds the tool message for the second turn. Failures become readable
// tool output rather than errors, so the model can explain the problem.
func (a *Agent) runTools(ctx context.Context, requests []*ai.ToolRequest) (*ai.Message, []string) {
	parts := make([]*ai.Part, 0, len(requests))
	var sources []string

	for _, req := range requests {
		args, _ := req.Input.(map[string]any)

		output := ""
		result, err := a.registry.Execute(ctx, req.Name, args)
		switch {
		case err != nil:
			a.logger.Warn("tool execution failed", "tool", req.Name, "error", err)
			output = fmt.Sprintf("Tool %s failed: %v", req.Name, err)
		default:
			output = result.Content
			sources = append(sources, result.Sources...)
		}

		parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: output,
		}))
	}

	return ai.NewMessage(ai.RoleTool, nil, parts...), sources
}
