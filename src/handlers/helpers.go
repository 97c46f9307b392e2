package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayael01/tazrim/src/config"
	"github.com/ayael01/tazrim/src/logger"
	"github.com/ayael01/tazrim/src/services"
	"github.com/ayael01/tazrim/src/utils"
	"github.com/ayael01/tazrim/src/validation"
)

// parseImportForm pulls the upload file and its target metadata out of a
// multipart request. Returns ok=false after writing the error response.
func parseImportForm(w http.ResponseWriter, r *http.Request) (multipart.File, services.ImportRequest, bool) {
	var req services.ImportRequest

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, "Failed to parse form or request too large", http.StatusBadRequest)
		return nil, req, false
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return nil, req, false
	}

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		file.Close()
		utils.SendJSONError(w, "File too large", http.StatusBadRequest)
		return nil, req, false
	}

	if err := validation.ValidateClientContentType(fileHeader.Header.Get("Content-Type")); err != nil {
		file.Close()
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, req, false
	}
	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		file.Close()
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, req, false
	}

	req.AccountName = validation.SanitizeForFormulaInjection(
		validation.StripUnprintable(strings.TrimSpace(r.FormValue("account_name"))))
	if req.AccountName == "" {
		file.Close()
		utils.SendJSONError(w, "account_name is required", http.StatusBadRequest)
		return nil, req, false
	}

	req.PeriodLabel = r.FormValue("period_month")
	if _, err := time.Parse("2006-01", req.PeriodLabel); err != nil {
		file.Close()
		utils.SendJSONError(w, "period_month must be YYYY-MM", http.StatusBadRequest)
		return nil, req, false
	}

	req.Source = r.FormValue("source")
	if req.Source == "" {
		req.Source = "bank"
	}
	if req.Source != "bank" && req.Source != "card" {
		file.Close()
		utils.SendJSONError(w, "source must be 'bank' or 'card'", http.StatusBadRequest)
		return nil, req, false
	}

	req.Filename = fileHeader.Filename
	return file, req, true
}

// sendServiceError maps pipeline errors onto HTTP statuses.
func sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrInvalidState):
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrParsingFailed):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		logger.L.Error("Internal error in import pipeline", "error", err)
		utils.SendJSONError(w, "An internal error occurred. Please try again later.", http.StatusInternalServerError)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback, min, max int) int {
	valueStr := r.URL.Query().Get(name)
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value < min {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}
