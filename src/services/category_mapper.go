package services

import (
	"fmt"

	"github.com/ayael01/tazrim/src/logger"
)

// Snapshot maps are loaded inside the current transaction and passed
// explicitly; nothing here is shared across requests.

func loadCategoriesByName(tx dbtx) (map[string]int64, error) {
	rows, err := tx.Query("SELECT id, name FROM categories")
	if err != nil {
		return nil, fmt.Errorf("error loading categories: %w", err)
	}
	defer rows.Close()
	categories := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("error scanning category row: %w", err)
		}
		categories[name] = id
	}
	return categories, rows.Err()
}

func loadEntityCategoryLinks(tx dbtx) (map[int64]int64, error) {
	rows, err := tx.Query("SELECT entity_id, category_id FROM entity_category_map")
	if err != nil {
		return nil, fmt.Errorf("error loading entity category links: %w", err)
	}
	defer rows.Close()
	links := make(map[int64]int64)
	for rows.Next() {
		var entityID, categoryID int64
		if err := rows.Scan(&entityID, &categoryID); err != nil {
			return nil, fmt.Errorf("error scanning entity category link: %w", err)
		}
		links[entityID] = categoryID
	}
	return links, rows.Err()
}

// ensureCategory returns the id for a category name, creating the row on
// demand and updating the snapshot.
func ensureCategory(tx dbtx, name string, categoriesByName map[string]int64) (int64, error) {
	if id, ok := categoriesByName[name]; ok {
		return id, nil
	}
	res, err := tx.Exec("INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		if isUniqueViolation(err) {
			var id int64
			if selErr := tx.QueryRow("SELECT id FROM categories WHERE name = ?", name).Scan(&id); selErr != nil {
				return 0, fmt.Errorf("error re-selecting category after unique violation: %w", selErr)
			}
			categoriesByName[name] = id
			return id, nil
		}
		return 0, fmt.Errorf("error inserting category %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading category insert id: %w", err)
	}
	categoriesByName[name] = id
	return id, nil
}

// applyConsensus runs the auto-link rule for one batch: an entity with
// exactly one distinct hint gets linked to that category; entities that are
// already linked, hint-free, or ambiguous are left alone. The links snapshot
// is updated in place so the caller can count unmapped entities afterwards.
func applyConsensus(tx dbtx, hintsByEntity map[int64]map[string]bool, links map[int64]int64, categoriesByName map[string]int64) error {
	for entityID, hints := range hintsByEntity {
		if _, linked := links[entityID]; linked {
			continue
		}
		if len(hints) != 1 {
			continue
		}
		var hint string
		for h := range hints {
			hint = h
		}
		categoryID, err := ensureCategory(tx, hint, categoriesByName)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO entity_category_map (entity_id, category_id) VALUES (?, ?)", entityID, categoryID); err != nil {
			return fmt.Errorf("error linking entity %d to category %q: %w", entityID, hint, err)
		}
		links[entityID] = categoryID
		logger.L.Debug("Consensus auto-linked entity to category", "entityID", entityID, "category", hint)
	}
	return nil
}

// collectHints builds the distinct-hint sets the consensus rule votes on.
// Blank hints are ignored.
func collectHints(entityIDs map[string]int64, keys []string, hints []string) map[int64]map[string]bool {
	hintsByEntity := make(map[int64]map[string]bool)
	for i, key := range keys {
		hint := hints[i]
		if hint == "" {
			continue
		}
		entityID := entityIDs[key]
		if hintsByEntity[entityID] == nil {
			hintsByEntity[entityID] = make(map[string]bool)
		}
		hintsByEntity[entityID][hint] = true
	}
	return hintsByEntity
}
