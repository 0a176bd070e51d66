package linguistic

import (
	"context"
	"fmt"

	"github.com/fractal-lba/textaug/internal/remote"
)

// HTTPTagger delegates tagging to a tagging service (for example a spaCy
// pipeline behind a small HTTP wrapper).
//
// Request:  POST /tag {"text": "..."}
// Response: {"tokens": [{"text": "...", "pos": "NOUN"}, ...]}
type HTTPTagger struct {
	client *remote.Client
}

// NewHTTPTagger returns a tagger posting to the given client.
func NewHTTPTagger(client *remote.Client) *HTTPTagger {
	return &HTTPTagger{client: client}
}

type tagRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type tagResponse struct {
	Tokens []Token `json:"tokens"`
}

// Tag implements Tagger.
func (h *HTTPTagger) Tag(ctx context.Context, sentence string) ([]Token, error) {
	var resp tagResponse
	if err := h.client.PostJSON(ctx, "/tag", tagRequest{Text: sentence, Model: h.client.Model()}, &resp); err != nil {
		return nil, fmt.Errorf("tagging failed: %w", err)
	}
	for i := range resp.Tokens {
		resp.Tokens[i].Index = i
	}
	return resp.Tokens, nil
}
