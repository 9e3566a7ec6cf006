package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
	"quel-catalog-server/modules/common/config"
	"quel-catalog-server/modules/common/storage"
	"quel-catalog-server/modules/common/utils"
)

// ErrNoImageInResponse is returned when the image model answers without inline image data.
var ErrNoImageInResponse = errors.New("no image data in response")

// visionMaxSide bounds the longest edge of images sent for grouping.
const visionMaxSide = 1024

// VariantRequest - 이미지 변형 생성 요청
type VariantRequest struct {
	Prompt        string
	ReferenceURLs []string
	AspectRatio   string
	// KeyPrefix is the storage folder for the uploaded result.
	KeyPrefix string
	// Kind names the variant in the object key (e.g. "lifestyle").
	Kind string
}

// Client wraps google.golang.org/genai for the vision and image models.
type Client struct {
	genaiClient *genai.Client
	uploader    storage.Uploader
	httpClient  *http.Client

	imageModel  string
	visionModel string
	webpQuality float32
}

// NewClient - Gemini 클라이언트 생성
func NewClient(ctx context.Context, cfg *config.Config, uploader storage.Uploader) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	log.Printf("✅ [Gemini] Client initialized (image=%s, vision=%s)", cfg.GeminiImageModel, cfg.GeminiVisionModel)
	return &Client{
		genaiClient: genaiClient,
		uploader:    uploader,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		imageModel:  cfg.GeminiImageModel,
		visionModel: cfg.GeminiVisionModel,
		webpQuality: cfg.WebPQuality,
	}, nil
}

// AnalyzeImages - 이미지들과 prompt를 vision 모델에 보내 텍스트 응답 반환
func (c *Client) AnalyzeImages(ctx context.Context, prompt string, imageURLs []string) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for i, url := range imageURLs {
		data, mimeType, err := storage.DownloadImage(ctx, c.httpClient, url)
		if err != nil {
			return "", err
		}
		data, mimeType = utils.FitForVision(data, mimeType, visionMaxSide)
		parts = append(parts,
			genai.NewPartFromText(fmt.Sprintf("Image %d: %s", i+1, url)),
			genai.NewPartFromBytes(data, mimeType),
		)
	}

	log.Printf("📤 [Gemini] Vision request (model: %s) with %d images", c.visionModel, len(imageURLs))
	result, err := c.genaiClient.Models.GenerateContent(
		ctx,
		c.visionModel,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini vision call failed: %w", err)
	}

	text := responseText(result)
	if text == "" {
		return "", fmt.Errorf("empty vision response")
	}
	return text, nil
}

// GenerateVariant - 참조 이미지 + prompt로 이미지 생성 후 WebP 업로드, URL 반환
func (c *Client) GenerateVariant(ctx context.Context, req VariantRequest) (string, error) {
	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, url := range req.ReferenceURLs {
		data, mimeType, err := storage.DownloadImage(ctx, c.httpClient, url)
		if err != nil {
			return "", err
		}
		parts = append(parts, genai.NewPartFromBytes(data, mimeType))
	}

	log.Printf("🎨 [Gemini] Image request (model: %s, kind: %s, aspect-ratio: %s)", c.imageModel, req.Kind, aspectRatio)
	result, err := c.genaiClient.Models.GenerateContent(
		ctx,
		c.imageModel,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		&genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{
				AspectRatio: aspectRatio,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini image call failed: %w", err)
	}

	imageData := firstInlineImage(result)
	if imageData == nil {
		return "", ErrNoImageInResponse
	}
	log.Printf("✅ [Gemini] Received image: %d bytes", len(imageData))

	webpData, err := utils.ConvertToWebP(imageData, c.webpQuality)
	if err != nil {
		return "", err
	}

	return c.uploader.Upload(ctx, storage.ObjectKey(req.KeyPrefix, req.Kind), webpData, "image/webp")
}

func firstInlineImage(result *genai.GenerateContentResponse) []byte {
	if result == nil {
		return nil
	}
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String()
}
