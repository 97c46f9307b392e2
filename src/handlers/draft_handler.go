package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ayael01/tazrim/src/logger"
	"github.com/ayael01/tazrim/src/models"
	"github.com/ayael01/tazrim/src/services"
	"github.com/ayael01/tazrim/src/utils"
)

type DraftHandler struct {
	draftService services.DraftService
}

func NewDraftHandler(service services.DraftService) *DraftHandler {
	return &DraftHandler{draftService: service}
}

type draftCreateResponse struct {
	models.ImportDraft
	DuplicateFilename bool `json:"duplicate_filename,omitempty"`
}

// HandleCreateDraft stages an upload for review instead of committing it.
func (h *DraftHandler) HandleCreateDraft(w http.ResponseWriter, r *http.Request) {
	file, req, ok := parseImportForm(w, r)
	if !ok {
		return
	}
	defer file.Close()

	logger.L.Info("Creating import draft", "account", req.AccountName, "filename", req.Filename, "source", req.Source)
	draft, duplicate, err := h.draftService.CreateDraft(file, req)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, draftCreateResponse{ImportDraft: *draft, DuplicateFilename: duplicate})
}

func (h *DraftHandler) HandleListDrafts(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.DraftStatusPending
	}
	if status != models.DraftStatusPending && status != models.DraftStatusCommitted && status != models.DraftStatusDiscarded {
		utils.SendJSONError(w, "status must be pending, committed or discarded", http.StatusBadRequest)
		return
	}
	limit := queryInt(r, "limit", 20, 1, 200)

	drafts, err := h.draftService.ListDrafts(status, limit)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if drafts == nil {
		drafts = []models.ImportDraft{}
	}
	utils.WriteJSON(w, http.StatusOK, drafts)
}

func (h *DraftHandler) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 100, 1, 500)
	offset := queryInt(r, "offset", 0, 0, 1<<30)

	detail, err := h.draftService.GetDraft(draftID, limit, offset)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, detail)
}

// HandleSetRowApproval records the reviewer's category decision for one row.
// An empty or missing value clears a previous approval.
func (h *DraftHandler) HandleSetRowApproval(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rowID, ok := pathID(w, r, "rowID")
	if !ok {
		return
	}

	var body struct {
		ApprovedCategoryText string `json:"approved_category_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	row, err := h.draftService.SetRowApproval(draftID, rowID, body.ApprovedCategoryText)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, row)
}

func (h *DraftHandler) HandleCommitDraft(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	summary, err := h.draftService.CommitDraft(draftID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}

func (h *DraftHandler) HandleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.draftService.DiscardDraft(draftID); err != nil {
		sendServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
