package generate

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleAI completes prompts through the Gemini API.
type GoogleAI struct {
	client *genai.Client
	model  string
}

// NewGoogleAI creates a Gemini-backed completer.
func NewGoogleAI(ctx context.Context, apiKey, model string) (*GoogleAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("creating completion client: API key is empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating completion client: %w", err)
	}

	return &GoogleAI{client: client, model: model}, nil
}

var _ Completer = (*GoogleAI)(nil)

func (g *GoogleAI) Complete(ctx context.Context, req Request) (string, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, msg := range req.History {
		var role genai.Role = genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Query, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	return resp.Text(), nil
}
