package services

import (
	"fmt"
	"io"
	"time"

	"github.com/ayael01/tazrim/src/database"
	"github.com/ayael01/tazrim/src/logger"
	"github.com/ayael01/tazrim/src/models"
	"github.com/ayael01/tazrim/src/parsers"
	"github.com/patrickmn/go-cache"
)

// Skip logs are a diagnostic artifact, not part of the permanent schema.
// They live in the report cache until the uploader stops caring.
const (
	ckBatchSkipLog = "skiplog_batch_%d"
	ckDraftSkipLog = "skiplog_draft_%d"
)

type importServiceImpl struct {
	defaultCurrency string
	skipLogCache    *cache.Cache
}

func NewImportService(defaultCurrency string, skipLogCache *cache.Cache) ImportService {
	return &importServiceImpl{
		defaultCurrency: defaultCurrency,
		skipLogCache:    skipLogCache,
	}
}

// ImportStatement is the direct-commit path: parse, resolve entities, apply
// the consensus rule over the raw hints, and write the whole batch in one
// transaction. Nothing is written when any hard error occurs.
func (s *importServiceImpl) ImportStatement(file io.Reader, req ImportRequest) (*ImportSummary, error) {
	startTime := time.Now()
	logger.L.Info("ImportStatement START", "account", req.AccountName, "source", req.Source, "filename", req.Filename)

	parser, err := parsers.GetParser(req.Source, s.defaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}
	result, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	account, err := ensureAccount(dbTx, req.AccountName, req.Source, s.defaultCurrency)
	if err != nil {
		return nil, err
	}

	duplicate, err := filenameAlreadyImported(dbTx, account.ID, req.Filename)
	if err != nil {
		return nil, err
	}
	if duplicate {
		logger.L.Warn("Filename was already imported for this account; duplicate rows are possible",
			"account", req.AccountName, "filename", req.Filename)
	}

	batchID, err := insertBatch(dbTx, account.ID, req.Filename, req.PeriodLabel, len(result.Activities))
	if err != nil {
		return nil, err
	}

	refs := make([]entityRef, len(result.Activities))
	keys := make([]string, len(result.Activities))
	hints := make([]string, len(result.Activities))
	for i, row := range result.Activities {
		refs[i] = entityRef{Key: row.CounterpartyKey, Raw: row.CounterpartyRaw}
		keys[i] = row.CounterpartyKey
		hints[i] = row.CategoryHint
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

	// Category rows exist for every distinct hint, linked or not.
	for _, hint := range hints {
		if hint == "" {
			continue
		}
		if _, err := ensureCategory(dbTx, hint, categoriesByName); err != nil {
			return nil, err
		}
	}

	if err := applyConsensus(dbTx, collectHints(entityIDs, keys, hints), links, categoriesByName); err != nil {
		return nil, err
	}

	inserted, err := writeActivities(dbTx, account.ID, batchID, result.Activities, entityIDs, nil)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing import batch: %w", err)
	}

	s.skipLogCache.Set(fmt.Sprintf(ckBatchSkipLog, batchID), result.Skipped, cache.DefaultExpiration)

	summary := &ImportSummary{
		BatchID:           batchID,
		TotalRows:         len(result.Activities) + len(result.Skipped),
		InsertedRows:      inserted,
		NewEntities:       newEntities,
		UnmappedEntities:  countUnmapped(entityIDs, links),
		DuplicateFilename: duplicate,
	}
	logger.L.Info("ImportStatement END", "batchID", batchID, "inserted", inserted,
		"skipped", len(result.Skipped), "duration", time.Since(startTime))
	return summary, nil
}

func (s *importServiceImpl) ListBatches(limit int) ([]models.ImportBatch, error) {
	rows, err := database.DB.Query(`
		SELECT b.id, b.account_id, COALESCE(b.source_filename, ''), b.period_label,
		       COUNT(a.id), b.uploaded_at
		FROM import_batches b
		LEFT JOIN activities a ON a.batch_id = b.id
		GROUP BY b.id
		ORDER BY b.uploaded_at DESC, b.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying import batches: %w", err)
	}
	defer rows.Close()

	var batches []models.ImportBatch
	for rows.Next() {
		var b models.ImportBatch
		if err := rows.Scan(&b.ID, &b.AccountID, &b.SourceFilename, &b.PeriodLabel, &b.RowCount, &b.UploadedAt); err != nil {
			return nil, fmt.Errorf("error scanning import batch row: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (s *importServiceImpl) DeleteBatch(batchID int64) error {
	dbTx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	var id int64
	if err := dbTx.QueryRow("SELECT id FROM import_batches WHERE id = ?", batchID).Scan(&id); err != nil {
		return fmt.Errorf("%w: import batch %d", ErrNotFound, batchID)
	}
	if _, err := dbTx.Exec("DELETE FROM activities WHERE batch_id = ?", batchID); err != nil {
		return fmt.Errorf("error deleting batch activities: %w", err)
	}
	if _, err := dbTx.Exec("DELETE FROM import_batches WHERE id = ?", batchID); err != nil {
		return fmt.Errorf("error deleting import batch: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing batch deletion: %w", err)
	}
	logger.L.Info("Deleted import batch and its activities", "batchID", batchID)
	return nil
}

// SkippedRows returns the cached skip log for a batch or draft, if it has
// not expired. kind is "batch" or "draft".
func (s *importServiceImpl) SkippedRows(kind string, id int64) ([]models.SkippedRow, bool) {
	key := fmt.Sprintf(ckBatchSkipLog, id)
	if kind == "draft" {
		key = fmt.Sprintf(ckDraftSkipLog, id)
	}
	cached, found := s.skipLogCache.Get(key)
	if !found {
		return nil, false
	}
	return cached.([]models.SkippedRow), true
}

// ensureAccount looks up an account by name, creating it on first use.
func ensureAccount(tx dbtx, name, kind, defaultCurrency string) (*models.Account, error) {
	account := &models.Account{Name: name}
	err := tx.QueryRow("SELECT id, kind, COALESCE(currency, '') FROM accounts WHERE name = ?", name).
		Scan(&account.ID, &account.Kind, &account.Currency)
	if err == nil {
		return account, nil
	}

	res, err := tx.Exec("INSERT INTO accounts (name, kind, currency) VALUES (?, ?, ?)", name, kind, defaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("error creating account %q: %w", name, err)
	}
	account.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("error reading account insert id: %w", err)
	}
	account.Kind = kind
	account.Currency = defaultCurrency
	logger.L.Info("Created account on first import", "account", name, "kind", kind)
	return account, nil
}

// filenameAlreadyImported reports whether this account already committed a
// batch from the same filename. Content is not hashed; renaming a file still
// slips through, which is why this is only a warning.
func filenameAlreadyImported(tx dbtx, accountID int64, filename string) (bool, error) {
	if filename == "" {
		return false, nil
	}
	var count int
	err := tx.QueryRow("SELECT COUNT(*) FROM import_batches WHERE account_id = ? AND source_filename = ?", accountID, filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error checking for duplicate filename: %w", err)
	}
	return count > 0, nil
}

func insertBatch(tx dbtx, accountID int64, filename, periodLabel string, rowCount int) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO import_batches (account_id, source_filename, period_label, row_count) VALUES (?, ?, ?, ?)",
		accountID, strToArg(filename), periodLabel, rowCount)
	if err != nil {
		return 0, fmt.Errorf("error inserting import batch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading import batch insert id: %w", err)
	}
	return id, nil
}

// writeActivities materializes the batch's permanent ledger rows. This is
// the only place ledger data changes through the pipeline. hintOverride, if
// non-nil, supplies the stored category hint per row (the draft commit path
// uses it to record effective texts instead of raw hints).
func writeActivities(tx dbtx, accountID, batchID int64, rows []models.ParsedActivity, entityIDs map[string]int64, hintOverride func(i int) string) (int, error) {
	stmt := `INSERT INTO activities (
		account_id, batch_id, activity_date, value_date, description, reference,
		counterparty_raw, entity_id, debit, credit, amount, charged_amount,
		charged_currency, balance, currency, category_hint
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	inserted := 0
	for i, row := range rows {
		hint := row.CategoryHint
		if hintOverride != nil {
			hint = hintOverride(i)
		}
		entityID := entityIDs[row.CounterpartyKey]
		_, err := tx.Exec(stmt,
			accountID, batchID,
			row.Date.Format(sqlDateFormat), dateToArg(row.ValueDate),
			row.Description, strToArg(row.Reference),
			row.CounterpartyRaw, entityID,
			decToArg(row.Debit), decToArg(row.Credit),
			decToArg(row.Amount), decToArg(row.ChargedAmount),
			strToArg(row.ChargedCurrency), decToArg(row.Balance),
			strToArg(row.Currency), strToArg(hint))
		if err != nil {
			return 0, fmt.Errorf("error inserting activity (row %d): %w", i+1, err)
		}
		inserted++
	}
	return inserted, nil
}

func countUnmapped(entityIDs map[string]int64, links map[int64]int64) int {
	seen := make(map[int64]bool)
	unmapped := 0
	for _, id := range entityIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := links[id]; !ok {
			unmapped++
		}
	}
	return unmapped
}
