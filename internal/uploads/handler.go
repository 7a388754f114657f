package uploads

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quizzie/backend/internal/middleware"
	"github.com/quizzie/backend/pkg/response"
	"github.com/quizzie/backend/pkg/storage"
)

// GenerateUploadURLRequest is the body for POST /upload/option-image-url.
type GenerateUploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize" binding:"required,gt=0"`
}

// ObjectStore stores option images. *storage.S3 satisfies it.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	GeneratePresignedUploadURL(ctx context.Context, key, contentType string) (string, error)
	PublicObjectURL(key string) string
	KeyFromURL(raw string) (string, bool)
	Bucket() string
}

// Handler handles option image uploads.
type Handler struct {
	store  ObjectStore
	logger *zap.Logger
}

// NewHandler creates an uploads handler. A nil store makes every endpoint answer 503.
func NewHandler(store ObjectStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// UploadOptionImage handles POST /upload/option-image (multipart form field "file").
func (h *Handler) UploadOptionImage(c *gin.Context) {
	if h.store == nil {
		response.ServiceUnavailable(c, "image storage is not configured")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	if file.Size > storage.MaxImageFileSize {
		response.BadRequest(c, "file size exceeds 5MB limit")
		return
	}
	headerType := file.Header.Get("Content-Type")
	if !storage.ValidateImageType(headerType, file.Filename) {
		response.BadRequest(c, "invalid file type: only jpg, png, webp and gif images are allowed")
		return
	}

	contentType, ext := resolveType(headerType, file.Filename)
	key := storage.OptionImageKey(middleware.UserID(c), uuid.NewString(), ext)

	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	imageURL, err := h.store.Upload(c.Request.Context(), key, contentType, rc, file.Size)
	if err != nil {
		h.logger.Error("S3 upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to upload file to storage")
		return
	}
	response.Created(c, "Image uploaded successfully", gin.H{
		"imageUrl":    imageURL,
		"key":         key,
		"contentType": contentType,
		"fileSize":    file.Size,
	})
}

// GenerateUploadURL handles POST /upload/option-image-url. The client PUTs the file to uploadUrl
// and then stores imageUrl in the option.
func (h *Handler) GenerateUploadURL(c *gin.Context) {
	if h.store == nil {
		response.ServiceUnavailable(c, "image storage is not configured")
		return
	}
	var req GenerateUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.FileSize > storage.MaxImageFileSize {
		response.BadRequest(c, "file size exceeds 5MB limit")
		return
	}
	if !storage.ValidateImageType(req.ContentType, req.Filename) {
		response.BadRequest(c, "invalid file type: only jpg, png, webp and gif images are allowed")
		return
	}

	contentType, ext := resolveType(req.ContentType, req.Filename)
	key := storage.OptionImageKey(middleware.UserID(c), uuid.NewString(), ext)
	uploadURL, err := h.store.GeneratePresignedUploadURL(c.Request.Context(), key, contentType)
	if err != nil {
		h.logger.Error("presign failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to generate upload URL")
		return
	}
	response.OK(c, "Upload URL generated successfully", gin.H{
		"uploadUrl":   uploadURL,
		"imageUrl":    h.store.PublicObjectURL(key),
		"key":         key,
		"contentType": contentType,
	})
}

// resolveType prefers an allowed declared content type and falls back to the filename extension.
func resolveType(declared, filename string) (contentType, ext string) {
	if ext = storage.ExtensionForContentType(declared); ext != "" {
		return strings.ToLower(declared), ext
	}
	ext = strings.ToLower(path.Ext(filename))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	return storage.ContentTypeForFilename(filename), ext
}
