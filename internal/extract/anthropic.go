package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
)

var _ Provider = (*Anthropic)(nil)

// AnthropicConfig configures the Anthropic adapter.
type AnthropicConfig struct {
	APIKey     string
	Model      string
	MaxTokens  int64
	HTTPClient *http.Client
	// BaseURL overrides the API endpoint. Mostly for tests.
	BaseURL string
	Logger  *slog.Logger
}

// Anthropic talks to the Messages API. It has no file store, so registered
// documents must be text; they are kept in memory under a generated handle
// and inlined into each request that references them.
type Anthropic struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	logger    *slog.Logger

	mu   sync.RWMutex
	docs map[string]Document
}

// NewAnthropic creates an Anthropic adapter.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retry policy belongs to the caller; the SDK would otherwise retry twice.
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
		docs:      make(map[string]Document),
	}, nil
}

// Extract runs one Messages.New call.
func (a *Anthropic) Extract(ctx context.Context, req Request) (string, error) {
	prompt := req.Input
	if req.DocumentID != "" {
		a.mu.RLock()
		doc, ok := a.docs[req.DocumentID]
		a.mu.RUnlock()
		if !ok {
			return "", fmt.Errorf("%w: unknown document %s", ErrServiceError, req.DocumentID)
		}
		prompt = fmt.Sprintf("<document name=%q>\n%s\n</document>\n\n%s", doc.Name, doc.Data, req.Input)
	}
	if req.WebSearch {
		a.logger.Debug("web search not available, answering from model knowledge", "operation", req.Operation)
	}

	system := req.Instruction
	if req.JSON {
		system += "\n\nRespond with JSON only, no prose and no code fences."
	}

	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if strings.TrimSpace(system) != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		status := 0
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			status = apierr.StatusCode
		}
		return "", classify(status, fmt.Errorf("anthropic API call failed: %w", err))
	}

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}

	text := strings.TrimSpace(result.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty response (stop reason %s)", ErrServiceError, resp.StopReason)
	}
	return text, nil
}

// RegisterDocument stores a text document and returns its handle. Binary
// documents are rejected with ErrUnsupportedDocument.
func (a *Anthropic) RegisterDocument(_ context.Context, doc Document) (string, error) {
	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = DetectMIME(doc.Name, doc.Data)
	}
	if !isTextual(mimeType) {
		return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedDocument, doc.Name, mimeType)
	}

	doc.MIMEType = mimeType
	id := "doc-" + uuid.NewString()

	a.mu.Lock()
	a.docs[id] = doc
	a.mu.Unlock()

	return id, nil
}
