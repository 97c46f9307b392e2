package services

import (
	"strings"
	"testing"
	"time"

	"github.com/ayael01/tazrim/src/database"
	"github.com/ayael01/tazrim/src/models"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDraftService() DraftService {
	return NewDraftService("ILS", cache.New(time.Minute, time.Minute))
}

func TestCreateDraftSuggestions(t *testing.T) {
	setupTestDB(t)
	importSvc := newTestImportService()
	draftSvc := newTestDraftService()

	// Seed the knowledge base: "superstore" gets linked to Groceries.
	seed := "date,description,debit,category\n13/01/2024,Superstore,50.00,Groceries\n"
	_, err := importSvc.ImportStatement(strings.NewReader(seed), ImportRequest{
		AccountName: "checking", Source: "bank", PeriodLabel: "2024-01", Filename: "jan.csv",
	})
	require.NoError(t, err)

	csvData := "date,description,debit,category\n" +
		"13/02/2024,Superstore,40.00,\n" +
		"14/02/2024,New Pizza Place,60.00,Eating Out\n" +
		"15/02/2024,Mystery Shop,10.00,\n"

	draft, duplicate, err := draftSvc.CreateDraft(strings.NewReader(csvData), ImportRequest{
		AccountName: "checking", Source: "bank", PeriodLabel: "2024-02", Filename: "feb.csv",
	})
	require.NoError(t, err)
	assert.False(t, duplicate)
	assert.Equal(t, models.DraftStatusPending, draft.Status)
	assert.Equal(t, 3, draft.RowCount)

	detail, err := draftSvc.GetDraft(draft.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, detail.Rows, 3)

	// Known entity with no hint inherits its persisted link.
	assert.Equal(t, "Groceries", detail.Rows[0].SuggestedCategoryText)
	// A raw hint beats the knowledge base.
	assert.Equal(t, "Eating Out", detail.Rows[1].SuggestedCategoryText)
	// Unknown entity, no hint: nothing to suggest.
	assert.Equal(t, "", detail.Rows[2].SuggestedCategoryText)

	// Draft creation writes no ledger rows and no new entities.
	assert.Equal(t, 1, countRows(t, "activities"))
	assert.Equal(t, 1, countRows(t, "entities"))
}

func TestDraftCommitLifecycle(t *testing.T) {
	setupTestDB(t)
	draftSvc := newTestDraftService()

	csvData := "date,description,debit,category\n" +
		"13/01/2024,Cafe Joe's,18.50,Eating Out\n" +
		"14/01/2024,Hardware Store,120.00,\n"

	draft, _, err := draftSvc.CreateDraft(strings.NewReader(csvData), ImportRequest{
		AccountName: "checking", Source: "bank", PeriodLabel: "2024-01", Filename: "jan.csv",
	})
	require.NoError(t, err)

	detail, err := draftSvc.GetDraft(draft.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, detail.Rows, 2)

	// Reviewer overrides the first row and categorizes the second.
	row, err := draftSvc.SetRowApproval(draft.ID, detail.Rows[0].ID, "Coffee")
	require.NoError(t, err)
	assert.Equal(t, "Coffee", row.ApprovedCategoryText)

	_, err = draftSvc.SetRowApproval(draft.ID, detail.Rows[1].ID, "Home Improvement")
	require.NoError(t, err)

	summary, err := draftSvc.CommitDraft(draft.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.InsertedRows)
	assert.Equal(t, 2, summary.NewEntities)
	assert.Equal(t, 0, summary.UnmappedEntities)

	// Consensus voted on the approved texts, not the raw hints.
	var linked int
	require.NoError(t, database.DB.QueryRow(`
		SELECT COUNT(*) FROM entity_category_map m
		JOIN entities e ON e.id = m.entity_id
		JOIN categories c ON c.id = m.category_id
		WHERE e.normalized_key = 'cafe joe s' AND c.name = 'Coffee'`).Scan(&linked))
	assert.Equal(t, 1, linked)

	var hint string
	require.NoError(t, database.DB.QueryRow(
		"SELECT category_hint FROM activities WHERE counterparty_raw = 'Cafe Joe''s'").Scan(&hint))
	assert.Equal(t, "Coffee", hint)

	committed, err := draftSvc.GetDraft(draft.ID, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusCommitted, committed.Draft.Status)
	// Rows are retained for audit after commit.
	assert.Equal(t, 2, committed.TotalRows)

	// A committed draft is terminal.
	_, err = draftSvc.CommitDraft(draft.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)

	err = draftSvc.DiscardDraft(draft.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = draftSvc.SetRowApproval(draft.ID, detail.Rows[0].ID, "Other")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDraftUncategorizedApprovalClearsCategory(t *testing.T) {
	setupTestDB(t)
	draftSvc := newTestDraftService()

	csvData := "date,description,debit,category\n" +
		"13/01/2024,Cafe Joe's,18.50,Eating Out\n"

	draft, _, err := draftSvc.CreateDraft(strings.NewReader(csvData), ImportRequest{
		AccountName: "checking", Source: "bank", PeriodLabel: "2024-01", Filename: "jan.csv",
	})
	require.NoError(t, err)

	detail, err := draftSvc.GetDraft(draft.ID, 50, 0)
	require.NoError(t, err)
	_, err = draftSvc.SetRowApproval(draft.ID, detail.Rows[0].ID, "Uncategorized")
	require.NoError(t, err)

	summary, err := draftSvc.CommitDraft(draft.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UnmappedEntities)
	assert.Equal(t, 0, countRows(t, "entity_category_map"))
}

func TestDiscardDraftCascades(t *testing.T) {
	setupTestDB(t)
	draftSvc := newTestDraftService()

	csvData := "date,description,debit\n13/01/2024,Groceries,50.00\n"
	draft, _, err := draftSvc.CreateDraft(strings.NewReader(csvData), ImportRequest{
		AccountName: "checking", Source: "bank", PeriodLabel: "2024-01", Filename: "jan.csv",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, "import_draft_rows"))

	require.NoError(t, draftSvc.DiscardDraft(draft.ID))
	assert.Equal(t, 0, countRows(t, "import_draft_rows"))
	assert.Equal(t, 0, countRows(t, "activities"))

	_, err = draftSvc.GetDraft(draft.ID, 50, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetRowApprovalUnknownRow(t *testing.T) {
	setupTestDB(t)
	draftSvc := newTestDraftService()

	csvData := "date,description,debit\n13/01/2024,Groceries,50.00\n"
	draft, _, err := draftSvc.CreateDraft(strings.NewReader(csvData), ImportRequest{
		AccountName: "checking", Source: "bank", PeriodLabel: "2024-01", Filename: "jan.csv",
	})
	require.NoError(t, err)

	_, err = draftSvc.SetRowApproval(draft.ID, 99999, "Groceries")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDraftsFiltersByStatus(t *testing.T) {
	setupTestDB(t)
	draftSvc := newTestDraftService()

	csvData := "date,description,debit\n13/01/2024,Groceries,50.00\n"
	draft, _, err := draftSvc.CreateDraft(strings.NewReader(csvData), ImportRequest{
		AccountName: "checking", Source: "bank", PeriodLabel: "2024-01", Filename: "jan.csv",
	})
	require.NoError(t, err)

	pending, err := draftSvc.ListDrafts(models.DraftStatusPending, 50)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, draft.ID, pending[0].ID)

	_, err = draftSvc.CommitDraft(draft.ID)
	require.NoError(t, err)

	pending, err = draftSvc.ListDrafts(models.DraftStatusPending, 50)
	require.NoError(t, err)
	assert.Empty(t, pending)

	committed, err := draftSvc.ListDrafts(models.DraftStatusCommitted, 50)
	require.NoError(t, err)
	require.Len(t, committed, 1)
}

func TestDraftRowPagination(t *testing.T) {
	setupTestDB(t)
	draftSvc := newTestDraftService()

	var sb strings.Builder
	sb.WriteString("date,description,debit\n")
	sb.WriteString("13/01/2024,Shop A,10.00\n")
	sb.WriteString("14/01/2024,Shop B,20.00\n")
	sb.WriteString("15/01/2024,Shop C,30.00\n")

	draft, _, err := draftSvc.CreateDraft(strings.NewReader(sb.String()), ImportRequest{
		AccountName: "checking", Source: "bank", PeriodLabel: "2024-01", Filename: "jan.csv",
	})
	require.NoError(t, err)

	page, err := draftSvc.GetDraft(draft.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalRows)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "Shop A", page.Rows[0].Description)

	page, err = draftSvc.GetDraft(draft.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Shop C", page.Rows[0].Description)
}

func TestDraftCommitEndToEnd(t *testing.T) {
	setupTestDB(t)
	draftSvc := newTestDraftService()

	// Rows 1 and 2 are the same counterparty in different spellings with one
	// shared hint; row 3 gets explicitly approved as uncategorized.
	csvData := "date,description,debit,category\n" +
		"13/01/2024,Cafe Joe's,18.50,Eating Out\n" +
		"14/01/2024,CAFE  JOE'S!!,22.00,Eating Out\n" +
		"15/01/2024,Mystery Shop,10.00,Misc\n"

	draft, _, err := draftSvc.CreateDraft(strings.NewReader(csvData), ImportRequest{
		AccountName: "checking", Source: "bank", PeriodLabel: "2024-01", Filename: "jan.csv",
	})
	require.NoError(t, err)

	detail, err := draftSvc.GetDraft(draft.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, detail.Rows, 3)
	_, err = draftSvc.SetRowApproval(draft.ID, detail.Rows[2].ID, "Uncategorized")
	require.NoError(t, err)

	summary, err := draftSvc.CommitDraft(draft.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.InsertedRows)
	assert.Equal(t, 2, summary.NewEntities)
	assert.Equal(t, 1, summary.UnmappedEntities)

	assert.Equal(t, 2, countRows(t, "entities"))
	assert.Equal(t, 3, countRows(t, "activities"))

	var linkedCategory string
	require.NoError(t, database.DB.QueryRow(`
		SELECT c.name FROM entity_category_map m
		JOIN entities e ON e.id = m.entity_id
		JOIN categories c ON c.id = m.category_id
		WHERE e.normalized_key = 'cafe joe s'`).Scan(&linkedCategory))
	assert.Equal(t, "Eating Out", linkedCategory)

	var mysteryLinks int
	require.NoError(t, database.DB.QueryRow(`
		SELECT COUNT(*) FROM entity_category_map m
		JOIN entities e ON e.id = m.entity_id
		WHERE e.normalized_key = 'mystery shop'`).Scan(&mysteryLinks))
	assert.Equal(t, 0, mysteryLinks)
}

func TestEffectiveCategoryText(t *testing.T) {
	assert.Equal(t, "Coffee", effectiveCategoryText(models.DraftRow{
		CategoryHint: "Eating Out", SuggestedCategoryText: "Eating Out", ApprovedCategoryText: "Coffee",
	}))
	assert.Equal(t, "Eating Out", effectiveCategoryText(models.DraftRow{
		CategoryHint: "Food", SuggestedCategoryText: "Eating Out",
	}))
	assert.Equal(t, "Food", effectiveCategoryText(models.DraftRow{CategoryHint: "Food"}))
	assert.Equal(t, "", effectiveCategoryText(models.DraftRow{}))
	assert.Equal(t, "", effectiveCategoryText(models.DraftRow{ApprovedCategoryText: "UNCATEGORIZED"}))
	assert.Equal(t, "", effectiveCategoryText(models.DraftRow{SuggestedCategoryText: "uncategorized"}))
}
