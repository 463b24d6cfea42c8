// Package agent orchestrates the RAG pipeline: knowledge-box search,
// context construction, LLM answer generation, and source enrichment.
//
// The agent holds no per-request state; everything request-scoped flows
// through Ask's context and return values.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sabio-ai/sabio/internal/kb"
	"github.com/sabio-ai/sabio/internal/log"
	"github.com/sabio-ai/sabio/internal/source"
)

// DefaultInstructions is the system prompt used when none is configured.
const DefaultInstructions = "You are a helpful assistant answering questions " +
	"strictly from the provided context. Cite the source documents you used. " +
	"If the context does not contain the answer, say so instead of guessing."

// Searcher performs the raw knowledge-box search call. Implemented by
// kb.Client.
type Searcher interface {
	Search(ctx context.Context, query string, opts kb.SearchOptions) ([]byte, error)
}

// Options tunes one Ask invocation.
type Options struct {
	Size        int     // results requested from the knowledge box
	MaxChunks   int     // context passages and source count bound
	UseSemantic bool    // hybrid (keyword+semantic) vs keyword-only search
	MinScore    float64 // score threshold for context and sources
}

// Result is the outcome of one Ask invocation.
type Result struct {
	Answer  string
	Sources []source.Source
}

// Config wires an Agent's collaborators.
type Config struct {
	Searcher     Searcher          // required
	Completer    Completer         // required
	Assembler    *source.Assembler // required
	Vectorset    string
	Instructions string // system prompt; DefaultInstructions when empty
	Logger       log.Logger
}

// Agent runs the RAG pipeline. Safe for concurrent use.
type Agent struct {
	searcher     Searcher
	completer    Completer
	assembler    *source.Assembler
	vectorset    string
	instructions string
	logger       log.Logger
	tracer       trace.Tracer
}

// New creates an agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Searcher == nil {
		return nil, errors.New("agent: searcher is required")
	}
	if cfg.Completer == nil {
		return nil, errors.New("agent: completer is required")
	}
	if cfg.Assembler == nil {
		return nil, errors.New("agent: assembler is required")
	}

	instructions := cfg.Instructions
	if instructions == "" {
		instructions = DefaultInstructions
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Agent{
		searcher:     cfg.Searcher,
		completer:    cfg.Completer,
		assembler:    cfg.Assembler,
		vectorset:    cfg.Vectorset,
		instructions: instructions,
		logger:       logger,
		tracer:       otel.Tracer("sabio/agent"),
	}, nil
}

// Ask runs the full pipeline for one question.
//
// A failed search or a failed completion fails the request; failures
// enriching individual sources are absorbed inside the assembler.
func (a *Agent) Ask(ctx context.Context, question string, opts Options) (*Result, error) {
	query := normalizeQuery(question)

	ctx, span := a.tracer.Start(ctx, "agent.ask",
		trace.WithAttributes(attribute.Int("ask.size", opts.Size)))
	defer span.End()

	features := []string{"keyword"}
	if opts.UseSemantic {
		features = append(features, "semantic")
	}

	raw, err := a.searchStage(ctx, query, kb.SearchOptions{
		Size:      opts.Size,
		Features:  features,
		MinScore:  opts.MinScore,
		Vectorset: a.vectorset,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	candidates, err := source.Candidates(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}
	contextBlock := BuildContext(candidates, opts.MaxChunks, opts.MinScore)

	answer, err := a.completeStage(ctx, contextBlock, question)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	sources, err := a.enrichStage(ctx, raw, opts.MaxChunks, opts.MinScore)
	if err != nil {
		return nil, fmt.Errorf("enriching sources: %w", err)
	}

	a.logger.Debug("ask pipeline completed",
		"candidates", len(candidates),
		"sources", len(sources),
		"answer_len", len(answer),
	)

	return &Result{Answer: answer, Sources: sources}, nil
}

// EnrichSources exposes the enrichment stage alone, for responses whose
// answer was generated by the knowledge box itself.
func (a *Agent) EnrichSources(ctx context.Context, raw []byte, maxChunks int, minScore float64) ([]source.Source, error) {
	return a.enrichStage(ctx, raw, maxChunks, minScore)
}

func (a *Agent) searchStage(ctx context.Context, query string, opts kb.SearchOptions) ([]byte, error) {
	ctx, span := a.tracer.Start(ctx, "agent.search")
	defer span.End()
	return a.searcher.Search(ctx, query, opts)
}

func (a *Agent) completeStage(ctx context.Context, contextBlock, question string) (string, error) {
	ctx, span := a.tracer.Start(ctx, "agent.complete")
	defer span.End()
	return a.completer.Complete(ctx, a.instructions, contextBlock, question)
}

func (a *Agent) enrichStage(ctx context.Context, raw []byte, maxChunks int, minScore float64) ([]source.Source, error) {
	ctx, span := a.tracer.Start(ctx, "agent.enrich")
	defer span.End()
	return a.assembler.Assemble(ctx, raw, maxChunks, minScore)
}

// normalizeQuery collapses whitespace runs so the search call receives a
// clean single-line query.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}
