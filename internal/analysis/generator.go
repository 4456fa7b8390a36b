package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Attachment is a file passed inline to a model call.
type Attachment struct {
	MimeType string
	Data     []byte
}

// Generator produces a JSON text response from a system prompt, a user
// prompt and optional attachments. It is shared by every model-backed port.
type Generator interface {
	Generate(ctx context.Context, system, prompt string, attachments ...Attachment) (string, error)
}

// GeminiOptions configures the Gemini generator.
type GeminiOptions struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// Gemini is a Generator backed by the Google Gemini API.
type Gemini struct {
	client *genai.Client
	opts   GeminiOptions
	logger *slog.Logger
}

// NewGemini creates a Gemini client. Close releases it.
func NewGemini(ctx context.Context, opts GeminiOptions, logger *slog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		opts:   opts,
		logger: logger.With("system", "gemini", "model", opts.Model),
	}, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Generate(ctx context.Context, system, prompt string, attachments ...Attachment) (string, error) {
	model := g.client.GenerativeModel(g.opts.Model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(g.opts.Temperature)
	if g.opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(g.opts.MaxOutputTokens)
	}

	parts := make([]genai.Part, 0, len(attachments)+1)
	for _, a := range attachments {
		parts = append(parts, genai.Blob{MIMEType: a.MimeType, Data: a.Data})
	}
	parts = append(parts, genai.Text(prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", errors.New("model returned no candidates")
	}

	var sb strings.Builder
	for i, c := range resp.Candidates {
		if c.Content == nil || len(c.Content.Parts) == 0 {
			g.logger.WarnContext(ctx, "candidate has no parts", "candidate", i, "finish_reason", c.FinishReason)
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		break
	}

	if sb.Len() == 0 {
		return "", errors.New("model returned empty content")
	}

	return sb.String(), nil
}
