// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gemini wraps the Google GenAI SDK behind two narrow
// interfaces so the validation, augmentation, and embedding stages can
// be tested against mocks.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/pdiddy/litscout/pkg/types"
)

// TextGenerator issues a single prompt and returns the raw model text.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Embedder produces an embedding vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Client talks to the Gemini API for both text generation and embeddings.
type Client struct {
	gc             *genai.Client
	model          string
	embeddingModel string
	dimensions     int
}

// NewClient builds a Gemini client from the validation and embedding
// configs. The API key is required; model names fall back to the
// config defaults.
func NewClient(ctx context.Context, vcfg types.ValidationConfig, ecfg types.EmbeddingConfig) (*Client, error) {
	apiKey := vcfg.APIKey
	if apiKey == "" {
		apiKey = ecfg.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required: set GEMINI_API_KEY")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	model := vcfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	embeddingModel := ecfg.Model
	if embeddingModel == "" {
		embeddingModel = "gemini-embedding-001"
	}
	dims := ecfg.Dimensions
	if dims <= 0 {
		dims = 768
	}

	return &Client{
		gc:             gc,
		model:          model,
		embeddingModel: embeddingModel,
		dimensions:     dims,
	}, nil
}

// GenerateText sends one user prompt and returns the concatenated
// response text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	resp, err := c.gc.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", c.model)
	}
	return text, nil
}

// Embed returns the embedding vector for text, truncated to the model's
// input limit. The output dimensionality is fixed at construction.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	// Conservative input cap for gemini-embedding-001.
	if len(text) > 8000 {
		text = text[:8000]
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: text}},
		Role:  "user",
	}}

	dims := int32(c.dimensions)
	resp, err := c.gc.Models.EmbedContent(ctx, c.embeddingModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("generating embedding: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

// Dimensions returns the embedding output dimensionality.
func (c *Client) Dimensions() int { return c.dimensions }
