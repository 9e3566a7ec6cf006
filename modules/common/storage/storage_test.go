package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quel-catalog-server/modules/common/config"
	"quel-catalog-server/modules/common/retry"
)

func TestSupabaseUploader_Upload(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u := NewSupabaseUploader(&config.Config{
		SupabaseURL:           srv.URL,
		SupabaseServiceKey:    "service-key",
		SupabaseStorageBucket: "bulk-assets",
	})

	url, err := u.Upload(context.Background(), "bulk/m1/b1/lifestyle_x.webp", []byte("webp"), "image/webp")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/bulk-assets/bulk/m1/b1/lifestyle_x.webp", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "image/webp", gotType)
	assert.Equal(t, []byte("webp"), gotBody)
	assert.Equal(t, srv.URL+"/storage/v1/object/public/bulk-assets/bulk/m1/b1/lifestyle_x.webp", url)
}

func TestSupabaseUploader_StatusErrorIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	u := NewSupabaseUploader(&config.Config{SupabaseURL: srv.URL, SupabaseStorageBucket: "b"})
	_, err := u.Upload(context.Background(), "k.webp", []byte("x"), "image/webp")
	require.Error(t, err)

	var statusErr *retry.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.True(t, retry.IsRetryable(err))
}

func TestSupabaseUploader_PublicBaseURL(t *testing.T) {
	u := NewSupabaseUploader(&config.Config{
		SupabaseURL:            "https://x.supabase.co",
		SupabaseStorageBucket:  "b",
		SupabaseStorageBaseURL: "https://cdn.example.com/assets/",
	})
	assert.Equal(t, "https://cdn.example.com/assets/a/b.webp", u.PublicURL("a/b.webp"))
}

func TestDownloadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10})
		case "/sniff":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n0000"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	data, mime, err := DownloadImage(context.Background(), srv.Client(), srv.URL+"/ok.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.Len(t, data, 6)

	_, mime, err = DownloadImage(context.Background(), srv.Client(), srv.URL+"/sniff")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, _, err = DownloadImage(context.Background(), srv.Client(), srv.URL+"/missing")
	require.Error(t, err)
	assert.False(t, retry.IsRetryable(err))
}

func TestDownloadImage_RejectsOversizedBody(t *testing.T) {
	original := maxDownloadBytes
	maxDownloadBytes = 16
	defer func() { maxDownloadBytes = original }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(make([]byte, 17))
	}))
	defer srv.Close()

	_, _, err := DownloadImage(context.Background(), srv.Client(), srv.URL+"/big.jpg")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImageTooLarge)
	assert.False(t, retry.IsRetryable(err))

	maxDownloadBytes = 17
	data, _, err := DownloadImage(context.Background(), srv.Client(), srv.URL+"/big.jpg")
	require.NoError(t, err)
	assert.Len(t, data, 17)
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("bulk/m1/b1", "lifestyle")
	assert.True(t, strings.HasPrefix(key, "bulk/m1/b1/lifestyle_"))
	assert.True(t, strings.HasSuffix(key, ".webp"))
	assert.NotEqual(t, key, ObjectKey("bulk/m1/b1", "lifestyle"))
}
