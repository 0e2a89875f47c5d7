// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package materialize

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/pkg/types"
)

const samplePDF = "%PDF-1.7 fake body"

const sampleMarkdown = `# Attention Is All You Need

We propose the Transformer [1].

<!-- page 2 -->
## References

[1] Vaswani, A. et al. Attention Is All You Need. NeurIPS, 2017.
`

// stubConverter returns fixed Markdown and counts invocations.
type stubConverter struct {
	markdown string
	err      error
	calls    int32
}

func (s *stubConverter) Convert(_ context.Context, _ []byte) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.markdown, s.err
}

func newMaterializer(client *http.Client, conv Converter) *Materializer {
	return &Materializer{
		Client:    client,
		Converter: conv,
		Cache:     cache.NewMemory(),
		Config: types.MaterializeConfig{
			HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test/0.1"},
		},
		Logger: zap.NewNop(),
	}
}

func TestMaterializePDF(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte(samplePDF))
	}))
	defer ts.Close()

	conv := &stubConverter{markdown: sampleMarkdown}
	m := newMaterializer(ts.Client(), conv)

	doc, err := m.Materialize(context.Background(), ts.URL, Known{ID: "2301.07041"})
	require.NoError(t, err)

	assert.Equal(t, "2301.07041", doc.ID)
	assert.Equal(t, "Attention Is All You Need", doc.Title)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, 1, doc.Pages[0].Number)
	assert.Contains(t, doc.Pages[0].Text, "Transformer [1]")
	require.Len(t, doc.Bibliography, 1)
	assert.Equal(t, "1", doc.Bibliography[0].Key)
	assert.Equal(t, "2017", doc.Bibliography[0].Year)
}

func TestMaterializeKnownMetadataWins(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(samplePDF))
	}))
	defer ts.Close()

	m := newMaterializer(ts.Client(), &stubConverter{markdown: sampleMarkdown})
	doc, err := m.Materialize(context.Background(), ts.URL, Known{
		ID:      "doc-1",
		Title:   "Known Title",
		Authors: []string{"Vaswani, A."},
	})
	require.NoError(t, err)
	assert.Equal(t, "Known Title", doc.Title)
	assert.Equal(t, []string{"Vaswani, A."}, doc.Authors)
}

func TestMaterializeCachesIdenticalBytes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(samplePDF))
	}))
	defer ts.Close()

	conv := &stubConverter{markdown: sampleMarkdown}
	m := newMaterializer(ts.Client(), conv)

	_, err := m.Materialize(context.Background(), ts.URL, Known{ID: "a"})
	require.NoError(t, err)
	doc2, err := m.Materialize(context.Background(), ts.URL, Known{ID: "b"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&conv.calls))
	assert.Equal(t, "b", doc2.ID)
}

func TestMaterializeHTML(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>Blog Post</title></head>
<body><article><h1>Blog Post</h1><p>` +
		`Attention lets a model weigh tokens against each other. ` +
		`This paragraph needs enough prose for readability to keep it around, ` +
		`so it rambles on about scaled dot products for a little while longer.` +
		`</p></article></body></html>`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
	}))
	defer ts.Close()

	m := newMaterializer(ts.Client(), nil)
	doc, err := m.Materialize(context.Background(), ts.URL, Known{ID: "user-url"})
	require.NoError(t, err)

	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 1, doc.Pages[0].Number)
	assert.Contains(t, doc.Pages[0].Text, "weigh tokens")
}

func TestMaterializeNotADocument(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte{0x00, 0x01, 0x02, 0x03})
	}))
	defer ts.Close()

	m := newMaterializer(ts.Client(), &stubConverter{})
	_, err := m.Materialize(context.Background(), ts.URL, Known{})

	var merr *types.MaterializeError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, types.FailureNotADocument, merr.Reason)
}

func TestMaterializeTooLarge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer ts.Close()

	m := newMaterializer(ts.Client(), &stubConverter{})
	m.Config.MaxDocumentBytes = 1024

	_, err := m.Materialize(context.Background(), ts.URL, Known{})

	var merr *types.MaterializeError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, types.FailureTooLarge, merr.Reason)
}

func TestMaterializeBlockedBySource(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	m := newMaterializer(ts.Client(), &stubConverter{})
	_, err := m.Materialize(context.Background(), ts.URL, Known{})

	var merr *types.MaterializeError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, types.FailureBlocked, merr.Reason)
}

func TestMaterializeNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	m := newMaterializer(ts.Client(), &stubConverter{})
	_, err := m.Materialize(context.Background(), ts.URL, Known{})

	var merr *types.MaterializeError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, types.FailureNetwork, merr.Reason)
}
