package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/libroai/libro/internal/log"
)

// GoogleAI embeds text through the Gemini embedding API.
type GoogleAI struct {
	client    *genai.Client
	model     string
	dimension int32
	logger    log.Logger
}

// NewGoogleAI creates a Gemini-backed embedding client.
func NewGoogleAI(ctx context.Context, apiKey, model string, dimension int, logger log.Logger) (*GoogleAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("creating embedding client: API key is empty")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("creating embedding client: dimension must be positive, got %d", dimension)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	return &GoogleAI{
		client:    client,
		model:     model,
		dimension: int32(dimension),
		logger:    logger,
	}, nil
}

var _ Client = (*GoogleAI)(nil)

// Embed returns the embedding for a single text. Provider failures come
// back as a Degraded zero vector, never as an error.
func (g *GoogleAI) Embed(ctx context.Context, text string, mode Mode) (Result, error) {
	results, err := g.EmbedBatch(ctx, []string{text}, mode)
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// EmbedBatch embeds texts in a single API call. The returned slice always
// has one Result per input text; a failed call marks every result Degraded.
func (g *GoogleAI) EmbedBatch(ctx context.Context, texts []string, mode Mode) ([]Result, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		TaskType:             mode.TaskType(),
		OutputDimensionality: genai.Ptr(g.dimension),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("embedding batch: %w", ctx.Err())
		}
		g.logger.Warn("embedding call failed, returning degraded vectors",
			"model", g.model,
			"batch_size", len(texts),
			"error", err)
		return g.degradedBatch(len(texts)), nil
	}

	if len(resp.Embeddings) != len(texts) {
		g.logger.Warn("embedding count mismatch, returning degraded vectors",
			"expected", len(texts),
			"got", len(resp.Embeddings))
		return g.degradedBatch(len(texts)), nil
	}

	results := make([]Result, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != int(g.dimension) {
			g.logger.Warn("embedding has unexpected dimension, degrading",
				"index", i,
				"expected", g.dimension)
			results[i] = Result{Vector: ZeroVector(int(g.dimension)), Degraded: true}
			continue
		}
		results[i] = Result{Vector: emb.Values}
	}
	return results, nil
}

func (g *GoogleAI) degradedBatch(n int) []Result {
	results := make([]Result, n)
	for i := range results {
		results[i] = Result{Vector: ZeroVector(int(g.dimension)), Degraded: true}
	}
	return results
}
