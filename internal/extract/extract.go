// Package extract is the boundary to the external generative extraction
// service. Everything that talks to the outside world goes through Client.
package extract

import (
	"context"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// Operation names used for metrics, logs and cache keys.
const (
	OpPlan       = "plan"
	OpSearch     = "search"
	OpSummary    = "summary"
	OpIntel      = "intel"
	OpImages     = "images"
	OpCompliance = "compliance"
	OpRegister   = "register"
)

// Request is one extraction call.
type Request struct {
	Operation   string `json:"operation"`
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	// DocumentID references a handle returned by RegisterDocument.
	DocumentID string `json:"document_id,omitempty"`
	// WebSearch lets the service consult the live web.
	WebSearch bool `json:"web_search,omitempty"`
	// JSON asks for a JSON answer.
	JSON bool `json:"json,omitempty"`
}

// Client performs a single extraction.
type Client interface {
	Extract(ctx context.Context, req Request) (string, error)
}

// Document is a file to be made available to later requests.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// DocumentRegistrar registers a document with the service and returns its
// handle once the service reports it usable.
type DocumentRegistrar interface {
	RegisterDocument(ctx context.Context, doc Document) (string, error)
}

// Provider is a complete extraction service adapter.
type Provider interface {
	Client
	DocumentRegistrar
}

// DetectMIME guesses a document's type from its extension, then its content.
func DetectMIME(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
		return t
	}
	t := http.DetectContentType(data)
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}

// isTextual reports whether a MIME type can be inlined into a prompt.
func isTextual(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/x-yaml", "application/yaml":
		return true
	}
	return false
}
