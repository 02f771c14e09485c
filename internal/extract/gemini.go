package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

var _ Provider = (*Gemini)(nil)

// generator is the slice of genai.Models that Gemini uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// fileService is the slice of genai.Files that Gemini uses.
type fileService interface {
	Upload(ctx context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
}

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	APIKey string
	Model  string
	// HTTPClient carries timeouts and proxies. Nil uses a default client.
	HTTPClient *http.Client
	// PollInterval is how often an uploaded file's state is checked.
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Gemini talks to the Gemini API through the genai SDK.
type Gemini struct {
	models       generator
	files        fileService
	model        string
	pollInterval time.Duration
	logger       *slog.Logger

	mu   sync.RWMutex
	docs map[string]*genai.File
}

// NewGemini creates a Gemini adapter.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: recordingClient(cfg.HTTPClient),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newGemini(client.Models, client.Files, cfg), nil
}

func newGemini(models generator, files fileService, cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Gemini{
		models:       models,
		files:        files,
		model:        cfg.Model,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
		docs:         make(map[string]*genai.File),
	}
}

// Extract runs one GenerateContent call.
func (g *Gemini) Extract(ctx context.Context, req Request) (string, error) {
	ctx, slot := withStatusSlot(ctx)

	parts := []*genai.Part{{Text: req.Input}}
	if req.DocumentID != "" {
		f, err := g.document(ctx, req.DocumentID)
		if err != nil {
			return "", classify(slot.get(), err)
		}
		parts = append([]*genai.Part{{FileData: &genai.FileData{FileURI: f.URI, MIMEType: f.MIMEType}}}, parts...)
	}

	contents := []*genai.Content{{Parts: parts, Role: "user"}}

	config := &genai.GenerateContentConfig{}
	if req.Instruction != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.Instruction}}}
	}
	if req.WebSearch {
		config.Tools = []*genai.Tool{
			{
				URLContext:   &genai.URLContext{},
				GoogleSearch: &genai.GoogleSearch{},
			},
		}
	} else if req.JSON {
		// Tool use and a JSON response type cannot be combined.
		config.ResponseMIMEType = "application/json"
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", classify(slot.get(), fmt.Errorf("gemini API call failed: %w", err))
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrServiceError)
	}
	return text, nil
}

// RegisterDocument uploads doc and waits until the file is ACTIVE.
func (g *Gemini) RegisterDocument(ctx context.Context, doc Document) (string, error) {
	ctx, slot := withStatusSlot(ctx)

	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = DetectMIME(doc.Name, doc.Data)
	}

	f, err := g.files.Upload(ctx, bytes.NewReader(doc.Data), &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: doc.Name,
	})
	if err != nil {
		return "", classify(slot.get(), fmt.Errorf("gemini upload failed: %w", err))
	}

	for f.State != genai.FileStateActive {
		if f.State == genai.FileStateFailed {
			return "", fmt.Errorf("%w: file %s failed processing", ErrServiceError, f.Name)
		}

		g.logger.Debug("waiting for uploaded file", "file", f.Name, "state", f.State)
		select {
		case <-ctx.Done():
			return "", classify(0, ctx.Err())
		case <-time.After(g.pollInterval):
		}

		f, err = g.files.Get(ctx, f.Name, nil)
		if err != nil {
			return "", classify(slot.get(), fmt.Errorf("gemini file status failed: %w", err))
		}
	}

	g.mu.Lock()
	g.docs[f.Name] = f
	g.mu.Unlock()

	return f.Name, nil
}

// document resolves a handle, asking the service for handles registered
// by an earlier process.
func (g *Gemini) document(ctx context.Context, name string) (*genai.File, error) {
	g.mu.RLock()
	f, ok := g.docs[name]
	g.mu.RUnlock()
	if ok {
		return f, nil
	}

	f, err := g.files.Get(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve document %s: %w", name, err)
	}
	if f.State != genai.FileStateActive {
		return nil, fmt.Errorf("%w: document %s is %s", ErrServiceError, name, f.State)
	}

	g.mu.Lock()
	g.docs[name] = f
	g.mu.Unlock()
	return f, nil
}
