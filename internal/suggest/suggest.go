// Package suggest generates tag suggestions for saved posts using the
// Anthropic API.
//
// Suggestions are strictly best-effort and CLI-only: nothing in the
// store or sync path depends on this package.
package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linkstash/linkstash/internal/schema"
)

// defaultModel is used when the caller doesn't override it.
const defaultModel = "claude-3-5-haiku-latest"

// maxSuggestions caps how many tags one call returns.
const maxSuggestions = 5

// Suggester asks a model for tags describing a post.
type Suggester struct {
	client anthropic.Client
	model  anthropic.Model
}

// New creates a Suggester with the given API key.
// An empty key falls back to the ANTHROPIC_API_KEY environment variable.
func New(apiKey string) *Suggester {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &Suggester{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(defaultModel),
	}
}

// Tags returns suggested tags for the post, lowercase, at most
// maxSuggestions, merged with none of the post's existing tags.
func (s *Suggester) Tags(ctx context.Context, post *schema.Post) ([]string, error) {
	prompt := buildPrompt(post)

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("suggestion request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		sb.WriteString(block.Text)
	}

	return parseTags(sb.String(), post), nil
}

// buildPrompt describes the post to the model.
func buildPrompt(post *schema.Post) string {
	var sb strings.Builder
	sb.WriteString("Suggest short topical tags for a bookmarked ")
	sb.WriteString(string(post.Platform))
	sb.WriteString(" post.\n")
	sb.WriteString("URL: " + post.URL + "\n")
	if post.Title != "" {
		sb.WriteString("Title: " + post.Title + "\n")
	}
	if post.Description != "" {
		sb.WriteString("Description: " + post.Description + "\n")
	}
	if len(post.Tags) > 0 {
		sb.WriteString("Existing tags (do not repeat): " + strings.Join(post.Tags, ", ") + "\n")
	}
	sb.WriteString("Reply with a comma-separated list of lowercase tags only, no other text.")
	return sb.String()
}

// parseTags extracts tags from the model reply, dropping duplicates and
// anything the post already carries.
func parseTags(reply string, post *schema.Post) []string {
	var tags []string
	for _, part := range strings.Split(reply, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		tag = strings.Trim(tag, ".#\"'")
		if tag == "" || post.HasTag(tag) {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxSuggestions {
			break
		}
	}
	return schema.NormalizeTags(tags)
}
