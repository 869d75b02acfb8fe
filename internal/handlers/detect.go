package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/ai-check/internal/auth"
	"github.com/example/ai-check/internal/logging"
	"github.com/example/ai-check/internal/usecase"
)

const (
	msgNoFilePart      = "No file part in the request"
	msgNoSelectedFile  = "No selected file"
	msgUnsupportedFile = "Image Not Found/Unsupported File Type (Only JPG/PNG accepted)."
	msgTooLarge        = "Uploaded file is too large"
	msgProcessFailed   = "Failed to process the image"
)

func (h *handler) detect(c *gin.Context) {
	limit := h.opts.MaxUploadSize
	if c.Request.ContentLength > limit {
		errorJSON(c, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorJSON(c, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		if errors.Is(err, http.ErrMissingFile) && emptyFilePart(c.Request) {
			errorJSON(c, http.StatusBadRequest, msgNoSelectedFile)
			return
		}
		errorJSON(c, http.StatusBadRequest, msgNoFilePart)
		return
	}
	defer file.Close()

	if !usecase.AllowedFile(header.Filename) {
		errorJSON(c, http.StatusBadRequest, msgUnsupportedFile)
		return
	}

	userID := auth.UserIDFrom(c)
	requestID, verdict, err := h.detection.Detect(c.Request.Context(), userID, header.Filename, file)
	if err != nil {
		if errors.Is(err, usecase.ErrUnsupportedFileType) {
			errorJSON(c, http.StatusBadRequest, msgUnsupportedFile)
			return
		}
		h.logger.Error("detection request failed",
			zap.String("request_id", requestID),
			zap.String("operation", logging.OperationOf(err)),
			zap.Error(err),
		)
		errorJSON(c, http.StatusInternalServerError, msgProcessFailed)
		return
	}

	c.Header("X-Request-ID", requestID)
	c.JSON(http.StatusOK, gin.H{"status": "success", "result": verdict})
}

// emptyFilePart reports a "file" part submitted without a filename, which is
// what browsers send when no file was picked. The multipart parser files such
// parts as plain values.
func emptyFilePart(r *http.Request) bool {
	if r.MultipartForm == nil {
		return false
	}
	_, ok := r.MultipartForm.Value["file"]
	return ok
}
