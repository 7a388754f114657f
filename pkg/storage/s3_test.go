package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateImageType(t *testing.T) {
	assert.True(t, ValidateImageType("image/png", "x.bin"))
	assert.True(t, ValidateImageType("", "photo.JPEG"))
	assert.False(t, ValidateImageType("video/mp4", "clip.mp4"))
	assert.False(t, ValidateImageType("", "notes.txt"))
}

func TestOptionImageKey(t *testing.T) {
	assert.Equal(t, "option-images/user-1/abc.png", OptionImageKey("user-1", "abc", ".png"))
	assert.Equal(t, "option-images/evil/abc.png", OptionImageKey("../evil", "abc", ".png"))
}

func TestKeyFromURLRoundTrip(t *testing.T) {
	cfg := S3Config{Region: "us-east-1", ImagesBucket: "quizzie-images"}
	key := OptionImageKey("u1", "obj", ".webp")

	got, ok := keyFromURL(cfg, publicURL(cfg, key))
	assert.True(t, ok)
	assert.Equal(t, key, got)

	_, ok = keyFromURL(cfg, "https://example.com/option-images/u1/obj.webp")
	assert.False(t, ok)
	_, ok = keyFromURL(cfg, publicURL(cfg, "other/u1/obj.webp"))
	assert.False(t, ok)
}

func TestKeyFromURLWithPublicBase(t *testing.T) {
	cfg := S3Config{PublicBaseURL: "https://cdn.example.com/", ImagesBucket: "b"}
	url := publicURL(cfg, "option-images/u/o.png")
	assert.Equal(t, "https://cdn.example.com/option-images/u/o.png", url)

	key, ok := keyFromURL(cfg, url)
	assert.True(t, ok)
	assert.Equal(t, "option-images/u/o.png", key)
}
