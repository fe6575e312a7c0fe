// Package extract turns segment text into validated property transaction
// records, either through a language model or a line-oriented heuristic
// parser, and retries failed segments with exponential backoff.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/llm"
	"github.com/Veraticus/deedscan/internal/model"
)

// Extractor pulls records out of one segment of document text. Returned
// records always carry both a survey number and a document number.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]model.ExtractedRecord, error)
}

// Kind selects an Extractor implementation.
type Kind string

// Extractor kinds.
const (
	KindLLM   Kind = "llm"
	KindRegex Kind = "regex"
	KindAuto  Kind = "auto"
)

// New builds the extractor named by kind. KindAuto uses the model client
// when one is available and the regex parser otherwise.
func New(kind Kind, client llm.Client, logger *slog.Logger) (Extractor, error) {
	switch Kind(strings.ToLower(string(kind))) {
	case KindLLM:
		if client == nil {
			return nil, fmt.Errorf("%w: %w: llm extractor needs a model client", common.ErrPipelineFatal, common.ErrMissingConfig)
		}
		return NewLLMExtractor(client, logger), nil
	case KindRegex:
		return NewRegexExtractor(logger), nil
	case KindAuto, "":
		if client != nil {
			return NewLLMExtractor(client, logger), nil
		}
		common.LoggerOrDefault(logger).Warn("No model client configured, using regex extraction")
		return NewRegexExtractor(logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown extractor kind %q", common.ErrInvalidConfig, kind)
	}
}

// LLMExtractor extracts records with a single model request per segment.
type LLMExtractor struct {
	client          llm.Client
	logger          *slog.Logger
	maxOutputTokens int
}

// NewLLMExtractor creates an extractor backed by client.
func NewLLMExtractor(client llm.Client, logger *slog.Logger) *LLMExtractor {
	return &LLMExtractor{
		client:          client,
		logger:          common.LoggerOrDefault(logger),
		maxOutputTokens: llm.DefaultMaxTokens,
	}
}

// Extract sends the segment to the model and returns the records that pass
// validation.
func (e *LLMExtractor) Extract(ctx context.Context, text string) ([]model.ExtractedRecord, error) {
	content, err := e.client.Complete(ctx, llm.Request{
		SystemPrompt:    systemPrompt,
		UserPrompt:      userPrompt(text),
		Temperature:     0,
		MaxOutputTokens: e.maxOutputTokens,
	})
	if err != nil {
		return nil, err
	}

	records, dropped, err := ParseRecords(content)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		e.logger.Debug("Dropped records missing required fields", "dropped", dropped, "kept", len(records))
	}
	return records, nil
}
