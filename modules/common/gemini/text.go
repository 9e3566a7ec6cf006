package gemini

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"quel-catalog-server/modules/common/config"
)

// TextClient generates product copy through the generative-ai-go SDK.
type TextClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewTextClient - 텍스트 생성용 클라이언트 생성
func NewTextClient(ctx context.Context, cfg *config.Config) (*TextClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini text client: %w", err)
	}

	model := client.GenerativeModel(cfg.GeminiTextModel)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.4)

	log.Printf("✅ [Gemini] Text client initialized (model: %s)", cfg.GeminiTextModel)
	return &TextClient{client: client, model: model}, nil
}

// GenerateText - prompt로 텍스트 생성
func (t *TextClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := t.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini text call failed: %w", err)
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		if sb.Len() > 0 {
			break
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("empty text response")
	}
	return sb.String(), nil
}

// Close releases the underlying connection.
func (t *TextClient) Close() error {
	return t.client.Close()
}
