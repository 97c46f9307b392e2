package services

import (
	"io"

	"github.com/ayael01/tazrim/src/models"
)

// ImportRequest identifies where an uploaded statement should land.
type ImportRequest struct {
	AccountName string
	Source      string // "bank" or "card"
	PeriodLabel string // YYYY-MM
	Filename    string
}

// ImportSummary is what a completed ingestion reports back.
// UnmappedEntities counts only entities touched by this batch that still
// have no category link. DuplicateFilename flags a re-upload of a filename
// this account has already imported; it is a warning, not a rejection.
type ImportSummary struct {
	BatchID           int64 `json:"batch_id"`
	TotalRows         int   `json:"total_rows"`
	InsertedRows      int   `json:"inserted_rows"`
	NewEntities       int   `json:"new_entities"`
	UnmappedEntities  int   `json:"unmapped_entities"`
	DuplicateFilename bool  `json:"duplicate_filename,omitempty"`
}

// DraftDetail is one draft plus a page of its rows.
type DraftDetail struct {
	Draft     models.ImportDraft `json:"draft"`
	Rows      []models.DraftRow  `json:"rows"`
	TotalRows int                `json:"total_rows"`
}

// ImportService is the direct-commit ingestion path.
type ImportService interface {
	ImportStatement(file io.Reader, req ImportRequest) (*ImportSummary, error)
	ListBatches(limit int) ([]models.ImportBatch, error)
	DeleteBatch(batchID int64) error
	SkippedRows(kind string, id int64) ([]models.SkippedRow, bool)
}

// DraftService is the staged review-then-commit path.
type DraftService interface {
	CreateDraft(file io.Reader, req ImportRequest) (*models.ImportDraft, bool, error)
	ListDrafts(status string, limit int) ([]models.ImportDraft, error)
	GetDraft(draftID int64, limit, offset int) (*DraftDetail, error)
	SetRowApproval(draftID, rowID int64, approved string) (*models.DraftRow, error)
	CommitDraft(draftID int64) (*ImportSummary, error)
	DiscardDraft(draftID int64) error
}
