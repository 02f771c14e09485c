package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/procura/internal/extract"
	"github.com/FranksOps/procura/internal/metrics"
	"github.com/FranksOps/procura/internal/storage"
)

// UploadComplianceDoc reads the file at path and registers it with the
// extraction service. The handle is returned only once the service reports
// the document Ready; from then on it is the active compliance document.
// Any failure is a DocumentUploadError and leaves the previously active
// document in place.
func (m *Manager) UploadComplianceDoc(ctx context.Context, path string, docType DocumentType) (string, error) {
	start := m.now()
	fail := func(err error) (string, error) {
		return "", &DocumentUploadError{Path: path, Err: err}
	}

	if !docType.Valid() {
		return fail(fmt.Errorf("unknown document type %d", int(docType)))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fail(fmt.Errorf("%w: %v", ErrFileNotFound, err))
		}
		return fail(fmt.Errorf("%w: %v", ErrFileRead, err))
	}
	if len(data) == 0 {
		return fail(fmt.Errorf("%w: file is empty", ErrFileRead))
	}

	doc := ComplianceDocument{Path: path, Type: docType, Status: StatusUploading}
	m.recordDocument(ctx, path, doc, start, nil)
	m.report("compliance", fmt.Sprintf("uploading %s", filepath.Base(path)))

	regCtx, cancel := context.WithTimeout(ctx, m.uploadTimeout)
	defer cancel()
	fileID, err := m.provider.RegisterDocument(regCtx, extract.Document{
		Name:     filepath.Base(path),
		MIMEType: extract.DetectMIME(path, data),
		Data:     data,
	})
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		doc.Status = StatusFailed
		m.recordDocument(ctx, path, doc, start, err)
		return fail(err)
	}

	doc.FileID = fileID
	doc.Status = StatusReady
	m.mu.Lock()
	active := doc
	m.activeDoc = &active
	m.mu.Unlock()

	m.recordDocument(ctx, fileID, doc, start, nil)
	m.report("compliance", fmt.Sprintf("document ready: %s", fileID))
	return fileID, nil
}

// ResumeComplianceDoc makes a document registered by an earlier run the
// active one. The journal must show fileID's latest state as Ready.
func (m *Manager) ResumeComplianceDoc(ctx context.Context, fileID string) (*ComplianceDocument, error) {
	if m.journal == nil || strings.TrimSpace(fileID) == "" {
		return nil, &DocumentNotReadyError{FileID: fileID}
	}
	recs, err := m.journal.Query(ctx, storage.Filter{Kind: storage.KindDocument, Subject: fileID, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("look up document %s: %w", fileID, err)
	}
	if len(recs) == 0 || recs[0].Status != string(StatusReady) {
		return nil, &DocumentNotReadyError{FileID: fileID}
	}

	var doc ComplianceDocument
	if err := json.Unmarshal(recs[0].Payload, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", fileID, err)
	}
	doc.FileID = fileID
	doc.Status = StatusReady

	m.mu.Lock()
	active := doc
	m.activeDoc = &active
	m.mu.Unlock()
	return &doc, nil
}

// ActiveDocument returns the document compliance checks run against, or
// nil when none is Ready.
func (m *Manager) ActiveDocument() *ComplianceDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.activeDoc == nil {
		return nil
	}
	doc := *m.activeDoc
	return &doc
}

// CheckComplianceForProducts checks every product against the active
// document. The result has one entry per product, in input order; a
// failed check yields a non-compliant entry with Error set.
func (m *Manager) CheckComplianceForProducts(ctx context.Context, products []string) ([]ComplianceResult, error) {
	start := m.now()
	doc := m.ActiveDocument()
	if doc == nil {
		return nil, &DocumentNotReadyError{}
	}

	m.report("compliance", fmt.Sprintf("checking %d products", len(products)))
	results := make([]ComplianceResult, len(products))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, product := range products {
		g.Go(func() error {
			results[i] = m.checkProduct(ctx, *doc, product)
			return nil
		})
	}
	_ = g.Wait()

	m.record(ctx, storage.KindCompliance, doc.FileID, start, &ComplianceReport{
		RunID:        m.runID,
		FileID:       doc.FileID,
		DocumentType: doc.Type.String(),
		GeneratedAt:  m.now().UTC(),
		Results:      results,
	}, nil)
	return results, nil
}

func (m *Manager) checkProduct(ctx context.Context, doc ComplianceDocument, product string) ComplianceResult {
	name := strings.TrimSpace(product)
	res := ComplianceResult{ProductName: name}

	err := ctx.Err()
	if err == nil && name == "" {
		err = ErrEmptyQuery
	}
	if err == nil {
		var out string
		out, err = m.extractWithTimeout(ctx, extract.Request{
			Operation:   extract.OpCompliance,
			Instruction: fmt.Sprintf(complianceInstruction, doc.Type),
			Input:       fmt.Sprintf("Product: %s", name),
			DocumentID:  doc.FileID,
			JSON:        true,
		})
		if err == nil {
			res.Compliant, res.Explanation, err = parseVerdict(out)
		}
	}

	metrics.RecordTask("compliance", err)
	if err != nil {
		err = &ExtractionError{Operation: extract.OpCompliance, Target: name, Err: err}
		m.logger.Warn("compliance check failed", "product", name, "err", err)
		res.Compliant = false
		res.Explanation = fmt.Sprintf("compliance check failed: %v", err)
		res.Error = err.Error()
	}
	return res
}

var (
	leadingNegativeRe = regexp.MustCompile(`(?i)^\W*(no|non[- ]?compliant|not\s+compliant)\b`)
	leadingPositiveRe = regexp.MustCompile(`(?i)^\W*(yes|compliant|complies)\b`)
	negativeVerdictRe = regexp.MustCompile(`(?i)\b(non[- ]?compliant|not\s+compliant|does\s+not\s+comply|fails\s+to\s+comply)\b`)
	positiveVerdictRe = regexp.MustCompile(`(?i)\b(compliant|complies)\b`)
)

type verdict struct {
	Compliant   *bool  `json:"compliant"`
	Explanation string `json:"explanation"`
}

// parseVerdict reads a JSON verdict, falling back to the wording of a
// plain-text answer: a leading verdict word decides, otherwise a negative
// phrase anywhere wins over a positive one.
func parseVerdict(out string) (bool, string, error) {
	if raw, ok := findJSON(out); ok {
		var v verdict
		if err := json.Unmarshal(raw, &v); err == nil && v.Compliant != nil {
			return *v.Compliant, strings.TrimSpace(v.Explanation), nil
		}
	}

	text := strings.TrimSpace(out)
	switch {
	case text == "":
		return false, "", fmt.Errorf("%w: empty verdict", ErrUnparseable)
	case leadingNegativeRe.MatchString(text):
		return false, text, nil
	case leadingPositiveRe.MatchString(text):
		return true, text, nil
	case negativeVerdictRe.MatchString(text):
		return false, text, nil
	case positiveVerdictRe.MatchString(text):
		return true, text, nil
	}
	return false, "", fmt.Errorf("%w: %.200q", ErrUnparseable, text)
}

// recordDocument journals one document state transition. The record's
// Status is the document state.
func (m *Manager) recordDocument(ctx context.Context, subject string, doc ComplianceDocument, start time.Time, opErr error) {
	if m.journal == nil {
		return
	}
	rec := m.newRecord(storage.KindDocument, subject, start, doc, opErr)
	rec.Status = string(doc.Status)
	m.save(ctx, rec)
}
