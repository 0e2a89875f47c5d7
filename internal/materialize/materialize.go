// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package materialize downloads a document and parses it into per-page
// plain text plus a best-effort bibliography. Failures carry a typed
// reason so the orchestrator can present actionable status rather than a
// generic error.
package materialize

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/pkg/types"
)

const defaultMaxDocumentBytes = 30 << 20 // 30 MB

// Known carries metadata already known from search, so parsing only has to
// derive what is missing.
type Known struct {
	ID      string
	Title   string
	Authors []string
}

// Materializer fetches and parses documents. The converter and cache are
// injected; the cache avoids re-parsing identical bytes within a run.
type Materializer struct {
	Client    *http.Client
	Converter Converter
	Cache     cache.Cache
	Config    types.MaterializeConfig
	Logger    *zap.Logger
}

// Materialize downloads the document at uri and parses it. Errors are
// always *types.MaterializeError with a classified reason.
func (m *Materializer) Materialize(ctx context.Context, uri string, known Known) (*types.MaterializedDocument, error) {
	body, contentType, err := m.fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("doc:%x", sha256.Sum256(body))
	if m.Cache != nil {
		if v, ok := m.Cache.Get(key); ok {
			if cached, ok := v.(*types.MaterializedDocument); ok {
				return withKnown(cached, known), nil
			}
		}
	}

	var doc *types.MaterializedDocument
	switch classify(body, contentType) {
	case kindPDF:
		doc, err = m.parsePDF(ctx, body)
	case kindHTML:
		doc, err = m.parseHTML(body, uri)
	default:
		return nil, &types.MaterializeError{
			Reason: types.FailureNotADocument,
			Err:    fmt.Errorf("unsupported content type %q", contentType),
		}
	}
	if err != nil {
		return nil, err
	}

	if m.Cache != nil {
		m.Cache.Set(key, doc, time.Hour)
	}
	return withKnown(doc, known), nil
}

// fetch downloads up to MaxDocumentBytes from uri and classifies any
// failure.
func (m *Materializer) fetch(ctx context.Context, uri string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", &types.MaterializeError{Reason: types.FailureNetwork, Err: err}
	}
	req.Header.Set("User-Agent", m.Config.UserAgent)

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, "", &types.MaterializeError{Reason: classifyNetErr(err), Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusUnavailableForLegalReasons,
		resp.StatusCode == http.StatusTooManyRequests:
		return nil, "", &types.MaterializeError{
			Reason: types.FailureBlocked,
			Err:    fmt.Errorf("HTTP %d from source", resp.StatusCode),
		}
	default:
		return nil, "", &types.MaterializeError{
			Reason: types.FailureNetwork,
			Err:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	maxBytes := m.Config.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxDocumentBytes
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", &types.MaterializeError{Reason: classifyNetErr(err), Err: err}
	}
	if int64(len(body)) > maxBytes {
		return nil, "", &types.MaterializeError{
			Reason: types.FailureTooLarge,
			Err:    fmt.Errorf("document exceeds %d bytes", maxBytes),
		}
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// classifyNetErr maps transport errors onto failure reasons.
func classifyNetErr(err error) types.FailureReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.FailureTimedOut
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return types.FailureTimedOut
	}
	return types.FailureNetwork
}

type documentKind int

const (
	kindUnknown documentKind = iota
	kindPDF
	kindHTML
)

// classify sniffs the body; the Content-Type header alone is unreliable
// (sources serve PDFs as octet-stream and error pages as PDFs).
func classify(body []byte, contentType string) documentKind {
	if bytes.HasPrefix(body, []byte("%PDF-")) {
		return kindPDF
	}
	trimmed := bytes.TrimSpace(body)
	lower := bytes.ToLower(trimmed)
	if bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html")) {
		return kindHTML
	}
	if strings.Contains(contentType, "text/html") {
		return kindHTML
	}
	return kindUnknown
}

// parsePDF pipes the bytes through the conversion service and splits the
// returned Markdown into pages.
func (m *Materializer) parsePDF(ctx context.Context, body []byte) (*types.MaterializedDocument, error) {
	if m.Converter == nil {
		return nil, &types.MaterializeError{
			Reason: types.FailureNotADocument,
			Err:    fmt.Errorf("no PDF converter configured"),
		}
	}

	markdown, err := m.Converter.Convert(ctx, body)
	if err != nil {
		reason := types.FailureNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			reason = types.FailureTimedOut
		}
		return nil, &types.MaterializeError{Reason: reason, Err: fmt.Errorf("converting PDF: %w", err)}
	}

	pages := splitPages(markdown)
	return &types.MaterializedDocument{
		Title:        deriveTitle(markdown),
		Pages:        pages,
		Bibliography: parseBibliography(markdown),
	}, nil
}

// parseHTML runs readability extraction and yields a single-page document.
func (m *Materializer) parseHTML(body []byte, uri string) (*types.MaterializedDocument, error) {
	parsedURL, _ := url.Parse(uri)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return nil, &types.MaterializeError{
			Reason: types.FailureNotADocument,
			Err:    fmt.Errorf("readability extraction: %w", err),
		}
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, &types.MaterializeError{
			Reason: types.FailureNotADocument,
			Err:    fmt.Errorf("no extractable content"),
		}
	}

	doc := &types.MaterializedDocument{
		Title: article.Title,
		Pages: []types.Page{{Number: 1, Text: text}},
	}
	if article.Byline != "" {
		doc.Authors = []string{article.Byline}
	}
	doc.Bibliography = parseBibliography(text)
	return doc, nil
}

// withKnown overlays search-time metadata on the parsed document. The
// cached copy is shared, so the result is a shallow clone.
func withKnown(doc *types.MaterializedDocument, known Known) *types.MaterializedDocument {
	out := *doc
	out.ID = known.ID
	if known.Title != "" {
		out.Title = known.Title
	}
	if len(known.Authors) > 0 {
		out.Authors = known.Authors
	}
	return &out
}
