package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/models"
	"github.com/tripwise-dev/tripwise/internal/services"
	"github.com/tripwise-dev/tripwise/internal/types"
	"github.com/tripwise-dev/tripwise/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newReceiptResponse(r models.Receipt) types.ReceiptResponse {
	var ocr interface{}
	if len(r.OCRResult) > 0 {
		ocr = json.RawMessage(r.OCRResult)
	}

	return types.ReceiptResponse{
		ID:           r.ID,
		TravelFormID: r.TravelFormID,
		FileName:     r.FileName,
		ContentType:  r.ContentType,
		Size:         r.Size,
		OCRResult:    ocr,
		CreatedAt:    r.CreatedAt,
	}
}

func loadReceipt(ctx *gin.Context) (models.Receipt, bool) {
	var receipt models.Receipt

	receiptID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return receipt, false
	}

	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return receipt, false
	}

	if err := db.DB.Where("id = ? AND user_id = ?", receiptID, userID).First(&receipt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Receipt not found"})
		} else {
			internalError(ctx)
		}
		return receipt, false
	}

	return receipt, true
}

// UploadReceipt stores a receipt image or PDF sent as multipart field "file".
func (h *Handler) UploadReceipt(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.Config.MaxUploadBytes()+1<<20)

	file, err := ctx.FormFile("file")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "A file is required"})
		return
	}

	if file.Size > h.Config.MaxUploadBytes() {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File is too large"})
		return
	}

	contentType := file.Header.Get("Content-Type")

	storedName, ok := h.Receipts.NewName(contentType)
	if !ok {
		ctx.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Only JPEG, PNG, WebP and PDF receipts are accepted"})
		return
	}

	var travelFormID *uint

	if raw := ctx.PostForm("travelFormId"); raw != "" {
		var form models.TravelForm

		if err := db.DB.Where("id = ? AND user_id = ?", raw, userID).First(&form).Error; err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Travel form not found"})
			return
		}
		travelFormID = &form.ID
	}

	if err := ctx.SaveUploadedFile(file, h.Receipts.Path(storedName)); err != nil {
		logger.WithError(err).Error("Failed to store receipt")
		internalError(ctx)
		return
	}

	receipt := models.Receipt{
		UserID:       userID,
		TravelFormID: travelFormID,
		FileName:     filepath.Base(file.Filename),
		StoredName:   storedName,
		ContentType:  contentType,
		Size:         file.Size,
	}

	if err := db.DB.Create(&receipt).Error; err != nil {
		logger.WithError(err).Error("Failed to save receipt")
		_ = h.Receipts.Remove(storedName)
		internalError(ctx)
		return
	}

	ctx.JSON(http.StatusCreated, newReceiptResponse(receipt))
}

func (h *Handler) ListReceipts(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	query := db.DB.Where("user_id = ?", userID)
	if formID := ctx.Query("travelFormId"); formID != "" {
		query = query.Where("travel_form_id = ?", formID)
	}

	var receipts []models.Receipt

	if err := query.Order("created_at DESC").Find(&receipts).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve receipts"})
		return
	}

	response := make([]types.ReceiptResponse, 0, len(receipts))
	for _, receipt := range receipts {
		response = append(response, newReceiptResponse(receipt))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *Handler) DownloadReceipt(ctx *gin.Context) {
	receipt, ok := loadReceipt(ctx)
	if !ok {
		return
	}

	ctx.Header("Content-Type", receipt.ContentType)
	ctx.FileAttachment(h.Receipts.Path(receipt.StoredName), receipt.FileName)
}

func (h *Handler) DeleteReceipt(ctx *gin.Context) {
	receipt, ok := loadReceipt(ctx)
	if !ok {
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Expense{}).Where("receipt_id = ?", receipt.ID).Update("receipt_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&receipt).Error
	})

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete receipt"})
		return
	}

	if err := h.Receipts.Remove(receipt.StoredName); err != nil {
		logger.WithFields(logrus.Fields{"receipt_id": receipt.ID}).WithError(err).Warn("Failed to remove receipt file")
	}

	ctx.Status(http.StatusNoContent)
}

// ScanReceipt runs OCR over a stored receipt and keeps the result.
func (h *Handler) ScanReceipt(ctx *gin.Context) {
	receipt, ok := loadReceipt(ctx)
	if !ok {
		return
	}

	if !h.AI.Enabled() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": services.ErrAIDisabled.Error()})
		return
	}

	image, err := h.Receipts.Read(receipt.StoredName)

	if err != nil {
		logger.WithError(err).Error("Failed to read receipt file")
		internalError(ctx)
		return
	}

	scan, err := h.AI.ScanReceipt(ctx.Request.Context(), receipt.ContentType, image)

	switch {
	case errors.Is(err, services.ErrUnsupportedScan):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		logger.WithFields(logrus.Fields{"receipt_id": receipt.ID}).WithError(err).Warn("Receipt scan failed")
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "Receipt could not be scanned"})
		return
	}

	encoded, err := json.Marshal(scan)
	if err != nil {
		internalError(ctx)
		return
	}

	if err := db.DB.Model(&receipt).Update("ocr_result", datatypes.JSON(encoded)).Error; err != nil {
		logger.WithError(err).Error("Failed to store scan result")
		internalError(ctx)
		return
	}

	ctx.JSON(http.StatusOK, scan)
}
