package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetectMimeType(t *testing.T) {
	pngData := samplePNG(t)

	assert.Equal(t, "image/jpeg", DetectMimeType(pngData, "image/jpeg; charset=binary"))
	assert.Equal(t, "image/png", DetectMimeType(pngData, "application/octet-stream"))
	assert.Equal(t, "image/png", DetectMimeType([]byte("not an image"), ""))
}

func TestConvertToWebP(t *testing.T) {
	out, err := ConvertToWebP(samplePNG(t), 80)
	require.NoError(t, err)
	require.True(t, len(out) > 12)
	assert.Equal(t, "RIFF", string(out[:4]))
	assert.Equal(t, "WEBP", string(out[8:12]))

	_, err = ConvertToWebP([]byte("garbage"), 80)
	assert.Error(t, err)
}

func TestFitForVision(t *testing.T) {
	small := samplePNG(t)
	out, mime := FitForVision(small, "image/png", 1024)
	assert.Equal(t, small, out)
	assert.Equal(t, "image/png", mime)

	big := image.NewRGBA(image.Rect(0, 0, 400, 200))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, big))

	out, mime = FitForVision(buf.Bytes(), "image/png", 100)
	assert.Equal(t, "image/jpeg", mime)
	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())

	garbage := []byte("not an image")
	out, mime = FitForVision(garbage, "image/heic", 100)
	assert.Equal(t, garbage, out)
	assert.Equal(t, "image/heic", mime)
}
