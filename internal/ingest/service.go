package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/engine"
	"github.com/Veraticus/deedscan/internal/model"
	"github.com/Veraticus/deedscan/internal/progress"
	"github.com/Veraticus/deedscan/internal/service"
	"github.com/Veraticus/deedscan/internal/translit"
)

// DocumentReader loads a document from a path.
type DocumentReader interface {
	Read(ctx context.Context, path string) (Document, error)
}

// RecordExtractor turns document text into deduplicated records.
type RecordExtractor interface {
	Extract(ctx context.Context, text string, sink progress.Sink) ([]model.ExtractedRecord, engine.RunStats, error)
}

// Options control a single ingest.
type Options struct {
	Sink      progress.Sink
	SessionID string
	Filter    model.TransactionFilter
	NoSave    bool
}

// Result is the outcome of ingesting one document.
type Result struct {
	Message        string              `json:"message"`
	SessionID      string              `json:"sessionId"`
	DataQuality    *model.DataQuality  `json:"dataQuality,omitempty"`
	Records        []model.Transaction `json:"data"`
	TotalExtracted int                 `json:"totalExtracted"`
	TotalFiltered  int                 `json:"totalFiltered"`
	TotalInserted  int                 `json:"totalInserted"`
	TotalPages     int                 `json:"totalPages"`
	Duration       time.Duration       `json:"-"`
	Success        bool                `json:"success"`
	Cached         bool                `json:"cached"`
}

// Service runs documents through extraction, translation and persistence.
type Service struct {
	reader   DocumentReader
	pipeline RecordExtractor
	storage  service.Storage
	cache    service.ResultCache
	reporter *progress.Reporter
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache enables the result cache.
func WithCache(cache service.ResultCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

// WithReporter publishes progress under each run's session id.
func WithReporter(r *progress.Reporter) ServiceOption {
	return func(s *Service) { s.reporter = r }
}

// NewService creates an ingest service.
func NewService(reader DocumentReader, pipeline RecordExtractor, storage service.Storage, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		reader:   reader,
		pipeline: pipeline,
		storage:  storage,
		logger:   common.LoggerOrDefault(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestFile reads path and ingests it.
func (s *Service) IngestFile(ctx context.Context, path string, opts Options) (*Result, error) {
	doc, err := s.reader.Read(ctx, path)
	if err != nil {
		return nil, common.NewUserError("could not read document", err)
	}
	return s.Ingest(ctx, doc, opts)
}

// Ingest extracts, translates, filters and stores the records in doc.
func (s *Service) Ingest(ctx context.Context, doc Document, opts Options) (*Result, error) {
	start := time.Now()
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sinks := []progress.Sink{opts.Sink}
	if s.reporter != nil {
		sinks = append(sinks, s.reporter.Sink(sessionID))
		defer s.reporter.Clear(sessionID)
	}
	sink := progress.Monotonic(progress.Fanout(sinks...))

	logger := s.logger.With("session_id", sessionID, "file", doc.Name)
	logger.Info("Ingesting document", "bytes", len(doc.Bytes), "pages", doc.Pages)

	sink(model.StepParsing, 5, "Reading document")
	records, cached, err := s.extract(ctx, doc, sink, logger)
	if err != nil {
		return nil, err
	}

	result := &Result{
		SessionID:      sessionID,
		TotalPages:     doc.Pages,
		TotalExtracted: len(records),
		Cached:         cached,
		Success:        true,
	}

	if len(records) == 0 {
		result.Message = "No transactions found in the document"
		return s.finish(result, start, sink, logger), nil
	}

	sink(model.StepProcessing, 90, fmt.Sprintf("Translating %d records", len(records)))
	translated := translit.TranslateRecords(records)
	quality := model.AssessQuality(translated)
	result.DataQuality = &quality

	var matched []model.Transaction
	for _, rec := range translated {
		if opts.Filter.Matches(rec) {
			matched = append(matched, model.NewTransaction(rec, doc.Name))
		}
	}
	result.TotalFiltered = len(matched)

	if len(matched) == 0 {
		result.Message = "No transactions match the provided filters"
		return s.finish(result, start, sink, logger), nil
	}

	if opts.NoSave || s.storage == nil {
		result.Records = matched
		result.Message = fmt.Sprintf("Extracted %d transactions", len(matched))
		return s.finish(result, start, sink, logger), nil
	}

	saved, err := s.storage.CreateTransactions(ctx, matched)
	if err != nil {
		return nil, common.NewUserError("failed to save transactions", err)
	}
	result.Records = saved
	result.TotalInserted = len(saved)
	result.Message = fmt.Sprintf("Successfully processed %d transactions", len(saved))
	return s.finish(result, start, sink, logger), nil
}

func (s *Service) extract(ctx context.Context, doc Document, sink progress.Sink, logger *slog.Logger) ([]model.ExtractedRecord, bool, error) {
	hash := ContentHash(doc.Bytes)

	if s.cache != nil {
		hit, ok, err := s.cache.GetCachedResult(ctx, hash)
		switch {
		case err != nil:
			logger.Warn("Cache lookup failed", "error", err)
		case ok:
			logger.Info("Cache hit", "records", len(hit.Records), "cached_at", hit.CreatedAt)
			sink(model.StepParsing, 10, "Using cached extraction")
			return hit.Records, true, nil
		}
	}

	sink(model.StepParsing, 10, fmt.Sprintf("Parsed %d pages", doc.Pages))
	records, stats, err := s.pipeline.Extract(ctx, doc.Text, sink)
	if err != nil {
		logger.Error("Extraction failed", "error", err)
		return nil, false, common.NewUserError("extraction failed", err)
	}

	logger.Info("Extraction complete",
		"segments", stats.Segments,
		"failed_segments", stats.Failed,
		"records", len(records),
		"duplicates", stats.Duplicates,
		"duration", stats.Duration)

	if s.cache != nil {
		err := s.cache.SetCachedResult(ctx, service.CachedResult{
			Hash:    hash,
			Label:   doc.Name,
			Records: records,
			Pages:   doc.Pages,
		})
		if err != nil {
			logger.Warn("Failed to cache extraction", "error", err)
		}
	}
	return records, false, nil
}

func (s *Service) finish(result *Result, start time.Time, sink progress.Sink, logger *slog.Logger) *Result {
	result.Duration = time.Since(start)
	sink(model.StepComplete, 100, result.Message)
	logger.Info("Ingest complete",
		"extracted", result.TotalExtracted,
		"filtered", result.TotalFiltered,
		"inserted", result.TotalInserted,
		"cached", result.Cached,
		"duration", result.Duration)
	return result
}

// ContentHash returns the SHA-256 hex digest of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
