package handlers

import (
	"net/http"

	"github.com/ayael01/tazrim/src/logger"
	"github.com/ayael01/tazrim/src/models"
	"github.com/ayael01/tazrim/src/services"
	"github.com/ayael01/tazrim/src/utils"
)

type ImportHandler struct {
	importService services.ImportService
}

func NewImportHandler(service services.ImportService) *ImportHandler {
	return &ImportHandler{importService: service}
}

// HandleImport runs the direct-commit ingestion path: the statement lands in
// the permanent ledger in one shot, no review step.
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	file, req, ok := parseImportForm(w, r)
	if !ok {
		return
	}
	defer file.Close()

	logger.L.Info("Processing import request", "account", req.AccountName, "filename", req.Filename, "source", req.Source)
	summary, err := h.importService.ImportStatement(file, req)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}

func (h *ImportHandler) HandleListImports(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20, 1, 200)
	batches, err := h.importService.ListBatches(limit)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if batches == nil {
		batches = []models.ImportBatch{}
	}
	utils.WriteJSON(w, http.StatusOK, batches)
}

func (h *ImportHandler) HandleDeleteImport(w http.ResponseWriter, r *http.Request) {
	batchID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.importService.DeleteBatch(batchID); err != nil {
		sendServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleGetSkippedRows serves the skip-log diagnostic for a committed batch.
// The log is ephemeral; after it expires this returns 404.
func (h *ImportHandler) HandleGetSkippedRows(w http.ResponseWriter, r *http.Request) {
	batchID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	skipped, found := h.importService.SkippedRows("batch", batchID)
	if !found {
		utils.SendJSONError(w, "no skip log available for this batch", http.StatusNotFound)
		return
	}
	if skipped == nil {
		skipped = []models.SkippedRow{}
	}
	utils.WriteJSON(w, http.StatusOK, skipped)
}

// HandleGetDraftSkippedRows is the draft-side twin of HandleGetSkippedRows.
func (h *ImportHandler) HandleGetDraftSkippedRows(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	skipped, found := h.importService.SkippedRows("draft", draftID)
	if !found {
		utils.SendJSONError(w, "no skip log available for this draft", http.StatusNotFound)
		return
	}
	if skipped == nil {
		skipped = []models.SkippedRow{}
	}
	utils.WriteJSON(w, http.StatusOK, skipped)
}
