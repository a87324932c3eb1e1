package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/welthhq/welth/internal/api/middleware"
	"github.com/welthhq/welth/internal/receipt"
	"github.com/welthhq/welth/internal/session"
)

// ScannerAPI extracts a structured record from a receipt image.
type ScannerAPI interface {
	Scan(ctx context.Context, data []byte, mimeType string) (*receipt.Record, error)
}

// ArchiverAPI stores the original image and returns its URI. May be nil
// when no bucket is configured; scans still work, nothing is archived.
type ArchiverAPI interface {
	Archive(ctx context.Context, userID string, data []byte, mimeType string) (string, error)
}

// ReceiptsHandler handles receipt scanning.
type ReceiptsHandler struct {
	scanner  ScannerAPI
	archiver ArchiverAPI
	log      zerolog.Logger
}

// NewReceiptsHandler creates a new receipts handler.
func NewReceiptsHandler(scanner ScannerAPI, archiver ArchiverAPI, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{
		scanner:  scanner,
		archiver: archiver,
		log:      log,
	}
}

// ScanReceipt handles POST /api/receipts/scan. The image arrives as
// multipart form field "file".
func (h *ReceiptsHandler) ScanReceipt(w http.ResponseWriter, r *http.Request) {
	user := session.UserFromContext(r.Context())
	if user == nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if h.scanner == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Receipt scanning is not configured")
		return
	}

	if err := r.ParseMultipartForm(receipt.MaxFileSize); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, receipt.MaxFileSize+1))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read file")
		return
	}
	mimeType := header.Header.Get("Content-Type")

	rec, err := h.scanner.Scan(r.Context(), data, mimeType)
	if err != nil {
		writeDomainError(w, h.log, err, "scan receipt")
		return
	}

	var receiptURL string
	if h.archiver != nil {
		receiptURL, err = h.archiver.Archive(r.Context(), user.ID, data, mimeType)
		if err != nil {
			// The scan result is still useful without the archive copy.
			h.log.Warn().Err(err).Msg("Failed to archive receipt image")
			receiptURL = ""
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"amount":        rec.Amount.StringFixed(2),
		"date":          rec.Date.Format(dateFormat),
		"description":   rec.Description,
		"merchant_name": rec.MerchantName,
		"category":      rec.Category,
		"receipt_url":   receiptURL,
	})
}
