package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ayael01/tazrim/src/models"
)

const draftRowSelect = `
	SELECT id, draft_id, row_index, activity_date, value_date, description,
	       reference, counterparty_raw, counterparty_key, debit, credit,
	       amount, charged_amount, charged_currency, balance, currency,
	       category_hint, suggested_category_text, approved_category_text
	FROM import_draft_rows`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraftRowInto(scanner rowScanner) (*models.DraftRow, error) {
	var dr models.DraftRow
	var activityDate string
	var valueDate, reference, debit, credit, amount, chargedAmount sql.NullString
	var chargedCurrency, balance, currency, hint, suggested, approved sql.NullString

	err := scanner.Scan(
		&dr.ID, &dr.DraftID, &dr.RowIndex, &activityDate, &valueDate,
		&dr.Description, &reference, &dr.CounterpartyRaw, &dr.CounterpartyKey,
		&debit, &credit, &amount, &chargedAmount, &chargedCurrency,
		&balance, &currency, &hint, &suggested, &approved)
	if err != nil {
		return nil, err
	}

	if dr.Date, err = time.Parse(sqlDateFormat, activityDate); err != nil {
		return nil, fmt.Errorf("error parsing stored draft row date %q: %w", activityDate, err)
	}
	if dr.ValueDate, err = scanDate(valueDate); err != nil {
		return nil, fmt.Errorf("error parsing stored draft row value date: %w", err)
	}
	if dr.Debit, err = scanDec(debit); err != nil {
		return nil, fmt.Errorf("error parsing stored debit: %w", err)
	}
	if dr.Credit, err = scanDec(credit); err != nil {
		return nil, fmt.Errorf("error parsing stored credit: %w", err)
	}
	if dr.Amount, err = scanDec(amount); err != nil {
		return nil, fmt.Errorf("error parsing stored amount: %w", err)
	}
	if dr.ChargedAmount, err = scanDec(chargedAmount); err != nil {
		return nil, fmt.Errorf("error parsing stored charged amount: %w", err)
	}
	if dr.Balance, err = scanDec(balance); err != nil {
		return nil, fmt.Errorf("error parsing stored balance: %w", err)
	}
	dr.Reference = reference.String
	dr.ChargedCurrency = chargedCurrency.String
	dr.Currency = currency.String
	dr.CategoryHint = hint.String
	dr.SuggestedCategoryText = suggested.String
	dr.ApprovedCategoryText = approved.String
	return &dr, nil
}

func scanDraftRow(rows *sql.Rows) (*models.DraftRow, error) {
	dr, err := scanDraftRowInto(rows)
	if err != nil {
		return nil, fmt.Errorf("error scanning draft row: %w", err)
	}
	return dr, nil
}

func scanDraftRowFromRow(row *sql.Row) (*models.DraftRow, error) {
	dr, err := scanDraftRowInto(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: draft row", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning draft row: %w", err)
	}
	return dr, nil
}
