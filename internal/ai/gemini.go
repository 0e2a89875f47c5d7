// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"google.golang.org/genai"

	"github.com/pdiddy/deep-research/pkg/types"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultEmbedModel = "gemini-embedding-001"
)

// backoffBase controls the base duration for exponential backoff between
// retry attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Gemini implements Reasoner and Embedder over the Gemini API.
type Gemini struct {
	client     *genai.Client
	model      string
	embedModel string
	maxRetries int
}

// NewGemini creates a Gemini client from the AI configuration.
func NewGemini(ctx context.Context, cfg types.AIConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Gemini{
		client:     client,
		model:      model,
		embedModel: embedModel,
		maxRetries: maxRetries,
	}, nil
}

// generateJSON renders the prompt template, requests a JSON response, and
// retries transient failures with exponential backoff.
func (g *Gemini) generateJSON(ctx context.Context, tmplName string, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
		if err == nil {
			return resp.Text(), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%s after %d retries: %w", tmplName, g.maxRetries, lastErr)
}

// expandResponse is the strict schema for term expansion output.
type expandResponse struct {
	ExactPhrases  []string `json:"exact_phrases"`
	TitleTerms    []string `json:"title_terms"`
	AbstractTerms []string `json:"abstract_terms"`
	GeneralTerms  []string `json:"general_terms"`
}

// Expand implements Reasoner.
func (g *Gemini) Expand(ctx context.Context, topics, questions []string) (types.StructuredTerms, error) {
	var buf bytes.Buffer
	if err := expandPromptTmpl.Execute(&buf, struct {
		Topics    []string
		Questions []string
	}{topics, questions}); err != nil {
		return types.StructuredTerms{}, fmt.Errorf("rendering expand prompt: %w", err)
	}

	text, err := g.generateJSON(ctx, "expand", buf.String())
	if err != nil {
		return types.StructuredTerms{}, err
	}

	var resp expandResponse
	if err := decodeJSON(text, &resp); err != nil {
		return types.StructuredTerms{}, err
	}

	// Absent fields decode as nil slices, which downstream treats as empty.
	return types.StructuredTerms{
		ExactPhrases:  resp.ExactPhrases,
		TitleTerms:    resp.TitleTerms,
		AbstractTerms: resp.AbstractTerms,
		GeneralTerms:  resp.GeneralTerms,
	}, nil
}

// rerankResponse is the strict schema for re-rank output.
type rerankResponse struct {
	Scores []CandidateScore `json:"scores"`
}

// Rerank implements Reasoner.
func (g *Gemini) Rerank(ctx context.Context, candidates []types.Candidate, questions, keywords []string) ([]CandidateScore, error) {
	var buf bytes.Buffer
	if err := rerankPromptTmpl.Execute(&buf, struct {
		Questions  []string
		Keywords   []string
		Candidates []types.Candidate
	}{questions, keywords, candidates}); err != nil {
		return nil, fmt.Errorf("rendering rerank prompt: %w", err)
	}

	text, err := g.generateJSON(ctx, "rerank", buf.String())
	if err != nil {
		return nil, err
	}

	var resp rerankResponse
	if err := decodeJSON(text, &resp); err != nil {
		return nil, err
	}

	scores := resp.Scores[:0]
	for _, s := range resp.Scores {
		if s.Identifier == "" {
			continue
		}
		s.Score = clamp01(s.Score)
		scores = append(scores, s)
	}
	return scores, nil
}

// localizeResponse is the strict schema for page localization output.
type localizeResponse struct {
	Pages []int `json:"pages"`
}

// LocalizePages implements Reasoner.
func (g *Gemini) LocalizePages(ctx context.Context, pages []types.Page, questions []string) ([]int, error) {
	var buf bytes.Buffer
	if err := localizePromptTmpl.Execute(&buf, struct {
		Questions []string
		Pages     []types.Page
	}{questions, pages}); err != nil {
		return nil, fmt.Errorf("rendering localize prompt: %w", err)
	}

	text, err := g.generateJSON(ctx, "localize", buf.String())
	if err != nil {
		return nil, err
	}

	var resp localizeResponse
	if err := decodeJSON(text, &resp); err != nil {
		return nil, err
	}
	return resp.Pages, nil
}

// notesResponse is the strict schema for note extraction output.
type notesResponse struct {
	Notes []types.Note `json:"notes"`
}

// ExtractNotes implements Reasoner.
func (g *Gemini) ExtractNotes(ctx context.Context, pages []types.Page, questions []string, bibliography []types.BibliographyEntry) ([]types.Note, error) {
	var buf bytes.Buffer
	if err := extractPromptTmpl.Execute(&buf, struct {
		Questions    []string
		Pages        []types.Page
		Bibliography []types.BibliographyEntry
	}{questions, pages, bibliography}); err != nil {
		return nil, fmt.Errorf("rendering extract prompt: %w", err)
	}

	text, err := g.generateJSON(ctx, "extract", buf.String())
	if err != nil {
		return nil, err
	}

	var resp notesResponse
	if err := decodeJSON(text, &resp); err != nil {
		return nil, err
	}

	notes := resp.Notes[:0]
	for _, n := range resp.Notes {
		if n.Quote == "" {
			continue
		}
		n.Score = clamp01(n.Score)
		notes = append(notes, n)
	}
	return notes, nil
}

// Embed implements Embedder.
func (g *Gemini) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text}, task)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return vectors[0], nil
}

// EmbedBatch implements Embedder. The Gemini API has native batch support.
func (g *Gemini) EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, contents,
		&genai.EmbedContentConfig{TaskType: string(task)})
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed returned %d vectors for %d texts", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}
