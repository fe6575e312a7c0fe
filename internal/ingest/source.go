// Package ingest turns deed documents into persisted transactions.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Document is the raw material for one extraction run.
type Document struct {
	Name  string
	Text  string
	Bytes []byte
	Pages int
}

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		slog.Error("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
	} else {
		slog.Debug("exec ok",
			"cmd", name,
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}

// Source reads documents from disk.
type Source struct {
	runner    Runner
	pdftotext string
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithRunner replaces the command runner.
func WithRunner(r Runner) SourceOption {
	return func(s *Source) { s.runner = r }
}

// WithPDFToText sets the pdftotext binary.
func WithPDFToText(path string) SourceOption {
	return func(s *Source) {
		if path != "" {
			s.pdftotext = path
		}
	}
}

// NewSource creates a Source that shells out to pdftotext for PDFs.
func NewSource(opts ...SourceOption) *Source {
	s := &Source{runner: execRunner{}, pdftotext: "pdftotext"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read loads path. PDFs go through pdftotext; .txt files are read as is.
func (s *Source) Read(ctx context.Context, path string) (Document, error) {
	// #nosec G304 - path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc := Document{Name: filepath.Base(path), Bytes: data}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		doc.Text, err = s.pdfText(ctx, path)
		if err != nil {
			return Document{}, err
		}
		doc.Pages, err = api.PageCount(bytes.NewReader(data), nil)
		if err != nil {
			slog.Warn("Failed to count PDF pages", "file", doc.Name, "error", err)
			doc.Pages = countPages(doc.Text)
		}
	case ".txt", ".text":
		doc.Text = string(data)
		doc.Pages = countPages(doc.Text)
	default:
		return Document{}, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	return doc, nil
}

func (s *Source) pdfText(ctx context.Context, path string) (string, error) {
	stdout, stderr, err := s.runner.Run(ctx, s.pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("pdftotext failed for %s: %s: %w", filepath.Base(path), truncate(msg, 512), err)
	}
	return string(stdout), nil
}

// countPages counts form-feed separated pages.
func countPages(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(strings.TrimRight(text, "\f"), "\f") + 1
}

// Supported reports whether path has an extension Source can read.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".text":
		return true
	}
	return false
}
