package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/storage"
)

// maxUploadBytes caps CSV uploads at 32 MiB.
const maxUploadBytes = 32 << 20

// readUploadedCSV pulls the "file" part out of a multipart form and returns
// its name and contents.
func readUploadedCSV(c *gin.Context) (string, []byte, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("no file provided")
	}
	if header.Size > maxUploadBytes {
		return "", nil, fmt.Errorf("file exceeds %d bytes", int64(maxUploadBytes))
	}

	f, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer func(f multipart.File) { _ = f.Close() }(f)

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > maxUploadBytes {
		return "", nil, fmt.Errorf("file exceeds %d bytes", int64(maxUploadBytes))
	}

	return filepath.Base(header.Filename), data, nil
}

// archiveUpload copies the raw CSV to object storage in the background so a
// failed import can be replayed later. Archive errors never fail the request.
func archiveUpload(store storage.ObjectStorage, kind, filename string, data []byte) {
	if store == nil {
		return
	}

	key := fmt.Sprintf("uploads/%s/%s_%s", kind, time.Now().UTC().Format("20060102T150405Z"), filename)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.UploadObject(ctx, key, data); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("upload archive failed")
		}
	}()
}

// respondError maps domain errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	var (
		schemaErr        *domain.SchemaError
		alreadyProcessed *domain.AlreadyProcessedError
		invalidItem      *domain.InvalidLineItemError
	)

	switch {
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrOrderExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &alreadyProcessed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &schemaErr), errors.As(err, &invalidItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
