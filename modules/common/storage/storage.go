package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"quel-catalog-server/modules/common/config"
	"quel-catalog-server/modules/common/retry"
	"quel-catalog-server/modules/common/utils"
)

// maxDownloadBytes caps a single source image download.
var maxDownloadBytes = 32 << 20

// ErrImageTooLarge is returned when a source image exceeds maxDownloadBytes.
var ErrImageTooLarge = errors.New("image exceeds download size limit")

// Uploader stores generated images and returns a URL the browser can load.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// NewUploader - STORAGE_BACKEND 설정에 맞는 Uploader 생성
func NewUploader(cfg *config.Config) (Uploader, error) {
	switch cfg.StorageBackend {
	case "r2":
		return NewR2Uploader(cfg)
	case "supabase", "":
		return NewSupabaseUploader(cfg), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

// ObjectKey - 생성 이미지 저장 경로 (<prefix>/<kind>_<uuid>.webp)
func ObjectKey(prefix, kind string) string {
	return path.Join(prefix, fmt.Sprintf("%s_%s.webp", kind, uuid.NewString()))
}

// SupabaseUploader uploads through the Supabase Storage REST API.
type SupabaseUploader struct {
	baseURL       string
	serviceKey    string
	bucket        string
	publicBaseURL string
	httpClient    *http.Client
}

// NewSupabaseUploader - Supabase Storage 업로더 생성
func NewSupabaseUploader(cfg *config.Config) *SupabaseUploader {
	return &SupabaseUploader{
		baseURL:       strings.TrimRight(cfg.SupabaseURL, "/"),
		serviceKey:    cfg.SupabaseServiceKey,
		bucket:        cfg.SupabaseStorageBucket,
		publicBaseURL: cfg.SupabaseStorageBaseURL,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload - Supabase Storage에 업로드 후 public URL 반환
func (u *SupabaseUploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", u.baseURL, u.bucket, key)
	log.Printf("📤 [Storage] Uploading %d bytes to supabase: %s", len(data), key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.serviceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("upload failed: %w", &retry.StatusError{Code: resp.StatusCode, Body: string(body)})
	}

	publicURL := u.PublicURL(key)
	log.Printf("✅ [Storage] Uploaded: %s", publicURL)
	return publicURL, nil
}

// PublicURL - 저장된 object의 공개 URL
func (u *SupabaseUploader) PublicURL(key string) string {
	if u.publicBaseURL != "" {
		return strings.TrimRight(u.publicBaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", u.baseURL, u.bucket, key)
}

// DownloadImage - 원본 이미지 다운로드 (MIME 타입 판별 포함)
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("download %s: %w", url, &retry.StatusError{Code: resp.StatusCode, Body: string(body)})
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxDownloadBytes)+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, "", fmt.Errorf("download %s: %w: %w", url, ErrImageTooLarge,
			&retry.StatusError{Code: http.StatusRequestEntityTooLarge})
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("download %s: empty body", url)
	}

	mimeType := utils.DetectMimeType(data, resp.Header.Get("Content-Type"))
	log.Printf("📥 [Storage] Downloaded %s (%d bytes, %s)", url, len(data), mimeType)
	return data, mimeType, nil
}
