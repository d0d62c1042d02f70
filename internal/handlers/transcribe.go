package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/services"
)

// Transcribe turns an uploaded voice memo (multipart field "audio") into
// a transcript and prefilled travel form fields.
func (h *Handler) Transcribe(ctx *gin.Context) {
	if !h.AI.Enabled() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": services.ErrAIDisabled.Error()})
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.Config.MaxUploadBytes()+1<<20)

	header, err := ctx.FormFile("audio")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "An audio file is required"})
		return
	}

	audio, err := header.Open()

	if err != nil {
		internalError(ctx)
		return
	}
	defer audio.Close()

	transcript, err := h.AI.Transcribe(ctx.Request.Context(), filepath.Base(header.Filename), audio)

	if err != nil {
		logger.WithError(err).Warn("Transcription failed")
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "Audio could not be transcribed"})
		return
	}

	draft, err := h.AI.ExtractFormFields(ctx.Request.Context(), transcript)

	if err != nil && !errors.Is(err, services.ErrEmptyResponse) {
		logger.WithError(err).Warn("Form extraction failed")
	}

	ctx.JSON(http.StatusOK, gin.H{"transcript": transcript, "form": draft})
}
