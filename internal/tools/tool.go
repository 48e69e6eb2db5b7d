// Package tools provides the retrieval tools the model can call while
// answering, and the registry the answering protocol executes them
// through.
//
// Each tool is registered twice: with Genkit, which publishes its schema to
// the model, and with the Registry, which performs the actual execution.
// The protocol layer asks the model for tool requests, runs them through
// the Registry, and feeds the results back, so tool output (including
// source attributions) flows by value rather than through shared state.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ErrUnknownTool is returned when the model requests a tool that was never
// registered.
var ErrUnknownTool = errors.New("unknown tool")

// Result is the outcome of one tool execution. Content is the text handed
// back to the model; Sources are the attributions surfaced to the user
// alongside the final answer.
type Result struct {
	Content string
	Sources []string
}

// Tool is a capability the model can invoke by name.
//
// Define publishes the tool's schema to a Genkit instance so the model
// sees it; Execute runs the tool with the raw arguments from a model tool
// request.
type Tool interface {
	Name() string
	Define(g *genkit.Genkit) ai.Tool
	Execute(ctx context.Context, args map[string]any) (*Result, error)
}

// Registry holds the registered tools and dispatches execution by name.
//
// Thread-safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	refs  []ai.ToolRef
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool and, when g is non-nil, defines it with Genkit.
// Registering the same name twice is an error.
func (r *Registry) Register(g *genkit.Genkit, t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	if g != nil {
		r.refs = append(r.refs, t.Define(g))
	}
	return nil
}

// Refs returns Genkit references for all registered tools, for offering to
// the model.
func (r *Registry) Refs() []ai.ToolRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refs := make([]ai.ToolRef, len(r.refs))
	copy(refs, r.refs)
	return refs
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Execute runs the named tool with the given arguments. Returns
// ErrUnknownTool for names that were never registered.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (*Result, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return t.Execute(ctx, args)
}

// decodeArgs converts the loosely typed arguments of a model tool request
// into a typed input struct via a JSON round trip.
func decodeArgs(args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding tool arguments: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding tool arguments: %w", err)
	}
	return nil
}
