package services

import (
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ayael01/tazrim/src/database"
	"github.com/ayael01/tazrim/src/logger"
	"github.com/ayael01/tazrim/src/models"
	"github.com/ayael01/tazrim/src/parsers"
	"github.com/patrickmn/go-cache"
)

type draftServiceImpl struct {
	defaultCurrency string
	skipLogCache    *cache.Cache
}

func NewDraftService(defaultCurrency string, skipLogCache *cache.Cache) DraftService {
	return &draftServiceImpl{
		defaultCurrency: defaultCurrency,
		skipLogCache:    skipLogCache,
	}
}

// CreateDraft stages a parsed statement for review instead of committing it.
// Each row's suggested category is the raw hint when present, else the
// entity's persisted category link. The bool result flags a duplicate
// filename for this account.
func (s *draftServiceImpl) CreateDraft(file io.Reader, req ImportRequest) (*models.ImportDraft, bool, error) {
	parser, err := parsers.GetParser(req.Source, s.defaultCurrency)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}
	result, err := parser.Parse(file)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	account, err := ensureAccount(dbTx, req.AccountName, req.Source, s.defaultCurrency)
	if err != nil {
		return nil, false, err
	}
	duplicate, err := filenameAlreadyImported(dbTx, account.ID, req.Filename)
	if err != nil {
		return nil, false, err
	}
	if duplicate {
		logger.L.Warn("Draft filename was already imported for this account",
			"account", req.AccountName, "filename", req.Filename)
	}

	// Suggestions come from the persisted knowledge base as it stands now.
	links, err := loadEntityCategoryLinks(dbTx)
	if err != nil {
		return nil, false, err
	}
	categoriesByName, err := loadCategoriesByName(dbTx)
	if err != nil {
		return nil, false, err
	}
	categoryNames := make(map[int64]string, len(categoriesByName))
	for name, id := range categoriesByName {
		categoryNames[id] = name
	}

	refs := make([]entityRef, len(result.Activities))
	for i, row := range result.Activities {
		refs[i] = entityRef{Key: row.CounterpartyKey, Raw: row.CounterpartyRaw}
	}
	existing, err := lookupEntities(dbTx, refs)
	if err != nil {
		return nil, false, err
	}

	res, err := dbTx.Exec(
		"INSERT INTO import_drafts (account_id, source_filename, period_label, row_count, status) VALUES (?, ?, ?, ?, ?)",
		account.ID, strToArg(req.Filename), req.PeriodLabel, len(result.Activities), models.DraftStatusPending)
	if err != nil {
		return nil, false, fmt.Errorf("error inserting import draft: %w", err)
	}
	draftID, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("error reading draft insert id: %w", err)
	}

	stmt := `INSERT INTO import_draft_rows (
		draft_id, row_index, activity_date, value_date, description, reference,
		counterparty_raw, counterparty_key, debit, credit, amount, charged_amount,
		charged_currency, balance, currency, category_hint, suggested_category_text
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i, row := range result.Activities {
		suggested := row.CategoryHint
		if suggested == "" {
			if entityID, ok := existing[row.CounterpartyKey]; ok {
				if categoryID, linked := links[entityID]; linked {
					suggested = categoryNames[categoryID]
				}
			}
		}
		_, err := dbTx.Exec(stmt,
			draftID, i+2,
			row.Date.Format(sqlDateFormat), dateToArg(row.ValueDate),
			row.Description, strToArg(row.Reference),
			row.CounterpartyRaw, row.CounterpartyKey,
			decToArg(row.Debit), decToArg(row.Credit),
			decToArg(row.Amount), decToArg(row.ChargedAmount),
			strToArg(row.ChargedCurrency), decToArg(row.Balance),
			strToArg(row.Currency), strToArg(row.CategoryHint),
			strToArg(suggested))
		if err != nil {
			return nil, false, fmt.Errorf("error inserting draft row %d: %w", i+2, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, false, fmt.Errorf("error committing draft creation: %w", err)
	}

	s.skipLogCache.Set(fmt.Sprintf(ckDraftSkipLog, draftID), result.Skipped, cache.DefaultExpiration)

	draft, err := s.getDraftRecord(database.DB, draftID)
	if err != nil {
		return nil, false, err
	}
	logger.L.Info("Created import draft", "draftID", draftID, "rows", len(result.Activities),
		"skipped", len(result.Skipped), "account", req.AccountName)
	return draft, duplicate, nil
}

func (s *draftServiceImpl) ListDrafts(status string, limit int) ([]models.ImportDraft, error) {
	rows, err := database.DB.Query(`
		SELECT id, account_id, COALESCE(source_filename, ''), period_label,
		       COALESCE(row_count, 0), status, created_at
		FROM import_drafts
		WHERE status = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying import drafts: %w", err)
	}
	defer rows.Close()

	var drafts []models.ImportDraft
	for rows.Next() {
		var d models.ImportDraft
		if err := rows.Scan(&d.ID, &d.AccountID, &d.SourceFilename, &d.PeriodLabel, &d.RowCount, &d.Status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning draft row: %w", err)
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

func (s *draftServiceImpl) GetDraft(draftID int64, limit, offset int) (*DraftDetail, error) {
	draft, err := s.getDraftRecord(database.DB, draftID)
	if err != nil {
		return nil, err
	}

	var totalRows int
	if err := database.DB.QueryRow("SELECT COUNT(*) FROM import_draft_rows WHERE draft_id = ?", draftID).Scan(&totalRows); err != nil {
		return nil, fmt.Errorf("error counting draft rows: %w", err)
	}

	rows, err := database.DB.Query(draftRowSelect+`
		WHERE draft_id = ?
		ORDER BY row_index
		LIMIT ? OFFSET ?`, draftID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error querying draft rows: %w", err)
	}
	defer rows.Close()

	detail := &DraftDetail{Draft: *draft, Rows: []models.DraftRow{}, TotalRows: totalRows}
	for rows.Next() {
		dr, err := scanDraftRow(rows)
		if err != nil {
			return nil, err
		}
		detail.Rows = append(detail.Rows, *dr)
	}
	return detail, rows.Err()
}

// SetRowApproval records the reviewer's decision for one row. Passing an
// empty string clears a previous approval. Only pending drafts accept edits.
func (s *draftServiceImpl) SetRowApproval(draftID, rowID int64, approved string) (*models.DraftRow, error) {
	draft, err := s.getDraftRecord(database.DB, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != models.DraftStatusPending {
		return nil, fmt.Errorf("%w: draft %d is %s", ErrInvalidState, draftID, draft.Status)
	}

	res, err := database.DB.Exec(
		"UPDATE import_draft_rows SET approved_category_text = ? WHERE id = ? AND draft_id = ?",
		strToArg(strings.TrimSpace(approved)), rowID, draftID)
	if err != nil {
		return nil, fmt.Errorf("error updating draft row approval: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error reading affected row count: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: draft row %d", ErrNotFound, rowID)
	}

	row := database.DB.QueryRow(draftRowSelect+" WHERE id = ? AND draft_id = ?", rowID, draftID)
	return scanDraftRowFromRow(row)
}

// CommitDraft materializes a pending draft: entity resolution, consensus
// over the effective category texts, and the ledger write all happen inside
// one transaction, after which the draft is terminal. Rows are retained for
// audit.
func (s *draftServiceImpl) CommitDraft(draftID int64) (*ImportSummary, error) {
	startTime := time.Now()

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	draft, err := s.getDraftRecord(dbTx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != models.DraftStatusPending {
		return nil, fmt.Errorf("%w: draft %d is %s", ErrInvalidState, draftID, draft.Status)
	}

	rows, err := dbTx.Query(draftRowSelect+" WHERE draft_id = ? ORDER BY row_index", draftID)
	if err != nil {
		return nil, fmt.Errorf("error querying draft rows: %w", err)
	}
	var draftRows []models.DraftRow
	for rows.Next() {
		dr, err := scanDraftRow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		draftRows = append(draftRows, *dr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating draft rows: %w", err)
	}
	rows.Close()

	batchID, err := insertBatch(dbTx, draft.AccountID, draft.SourceFilename, draft.PeriodLabel, len(draftRows))
	if err != nil {
		return nil, err
	}

	refs := make([]entityRef, len(draftRows))
	keys := make([]string, len(draftRows))
	for i, dr := range draftRows {
		refs[i] = entityRef{Key: dr.CounterpartyKey, Raw: dr.CounterpartyRaw}
		keys[i] = dr.CounterpartyKey
	}
	entityIDs, newEntities, err := resolveEntities(dbTx, refs)
	if err != nil {
		return nil, err
	}

	categoriesByName, err := loadCategoriesByName(dbTx)
	if err != nil {
		return nil, err
	}
	links, err := loadEntityCategoryLinks(dbTx)
	if err != nil {
		return nil, err
	}

	// The consensus rule votes on what the reviewer approved, not on what
	// the file said.
	effective := make([]string, len(draftRows))
	activities := make([]models.ParsedActivity, len(draftRows))
	for i, dr := range draftRows {
		effective[i] = effectiveCategoryText(dr)
		if effective[i] != "" {
			if _, err := ensureCategory(dbTx, effective[i], categoriesByName); err != nil {
				return nil, err
			}
		}
		activities[i] = draftRowToActivity(dr)
	}

	if err := applyConsensus(dbTx, collectHints(entityIDs, keys, effective), links, categoriesByName); err != nil {
		return nil, err
	}

	inserted, err := writeActivities(dbTx, draft.AccountID, batchID, activities, entityIDs, func(i int) string { return effective[i] })
	if err != nil {
		return nil, err
	}

	if _, err := dbTx.Exec("UPDATE import_drafts SET status = ? WHERE id = ?", models.DraftStatusCommitted, draftID); err != nil {
		return nil, fmt.Errorf("error marking draft committed: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing draft: %w", err)
	}

	logger.L.Info("Committed import draft", "draftID", draftID, "batchID", batchID,
		"inserted", inserted, "duration", time.Since(startTime))
	return &ImportSummary{
		BatchID:          batchID,
		TotalRows:        len(draftRows),
		InsertedRows:     inserted,
		NewEntities:      newEntities,
		UnmappedEntities: countUnmapped(entityIDs, links),
	}, nil
}

// DiscardDraft deletes a pending draft and cascades its rows. Discarding a
// committed or already-discarded draft is an error, never a no-op.
func (s *draftServiceImpl) DiscardDraft(draftID int64) error {
	dbTx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	draft, err := s.getDraftRecord(dbTx, draftID)
	if err != nil {
		return err
	}
	if draft.Status != models.DraftStatusPending {
		return fmt.Errorf("%w: draft %d is %s", ErrInvalidState, draftID, draft.Status)
	}

	if _, err := dbTx.Exec("DELETE FROM import_drafts WHERE id = ?", draftID); err != nil {
		return fmt.Errorf("error deleting draft: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing draft discard: %w", err)
	}
	logger.L.Info("Discarded import draft", "draftID", draftID)
	return nil
}

func (s *draftServiceImpl) getDraftRecord(q dbtx, draftID int64) (*models.ImportDraft, error) {
	var d models.ImportDraft
	err := q.QueryRow(`
		SELECT id, account_id, COALESCE(source_filename, ''), period_label,
		       COALESCE(row_count, 0), status, created_at
		FROM import_drafts WHERE id = ?`, draftID).
		Scan(&d.ID, &d.AccountID, &d.SourceFilename, &d.PeriodLabel, &d.RowCount, &d.Status, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: draft %d", ErrNotFound, draftID)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading draft %d: %w", draftID, err)
	}
	return &d, nil
}

// effectiveCategoryText resolves the category a row commits with: the
// reviewer's approval wins, then the suggestion, then the raw hint. The
// literal "uncategorized" in any case means no category at all.
func effectiveCategoryText(dr models.DraftRow) string {
	text := dr.ApprovedCategoryText
	if text == "" {
		text = dr.SuggestedCategoryText
	}
	if text == "" {
		text = dr.CategoryHint
	}
	if strings.EqualFold(strings.TrimSpace(text), "uncategorized") {
		return ""
	}
	return text
}

func draftRowToActivity(dr models.DraftRow) models.ParsedActivity {
	return models.ParsedActivity{
		Date:            dr.Date,
		ValueDate:       dr.ValueDate,
		Description:     dr.Description,
		Reference:       dr.Reference,
		Debit:           dr.Debit,
		Credit:          dr.Credit,
		Amount:          dr.Amount,
		ChargedAmount:   dr.ChargedAmount,
		ChargedCurrency: dr.ChargedCurrency,
		Balance:         dr.Balance,
		Currency:        dr.Currency,
		CategoryHint:    dr.CategoryHint,
		CounterpartyRaw: dr.CounterpartyRaw,
		CounterpartyKey: dr.CounterpartyKey,
	}
}

// lookupEntities is the read-only half of entity resolution, used at draft
// creation to surface suggestions without creating anything.
func lookupEntities(tx dbtx, refs []entityRef) (map[string]int64, error) {
	entityIDs := make(map[string]int64)
	seen := make(map[string]bool)
	var keys []any
	for _, ref := range refs {
		if !seen[ref.Key] {
			seen[ref.Key] = true
			keys = append(keys, ref.Key)
		}
	}
	if len(keys) == 0 {
		return entityIDs, nil
	}
	query := fmt.Sprintf("SELECT id, normalized_key FROM entities WHERE normalized_key IN (%s)", placeholders(len(keys)))
	rows, err := tx.Query(query, keys...)
	if err != nil {
		return nil, fmt.Errorf("error looking up entities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, fmt.Errorf("error scanning entity row: %w", err)
		}
		entityIDs[key] = id
	}
	return entityIDs, rows.Err()
}
