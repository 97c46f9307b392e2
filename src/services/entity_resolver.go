package services

import (
	"fmt"

	"github.com/ayael01/tazrim/src/logger"
)

// entityRef is one counterparty occurrence: the canonical dedup key plus the
// raw string it came from.
type entityRef struct {
	Key string
	Raw string
}

// resolveEntities maps every canonical key in the batch to an entity id,
// creating entities for keys never seen before. The lookup is bulk, once per
// batch. A new entity's display name is the first occurrence's raw string;
// existing display names are never overwritten.
//
// The normalized key is unique at the storage layer, so a concurrent import
// racing to create the same entity loses the insert and falls back to
// re-selecting the winner's row. No application-level lock is involved.
func resolveEntities(tx dbtx, refs []entityRef) (map[string]int64, int, error) {
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
		return entityIDs, 0, nil
	}

	query := fmt.Sprintf("SELECT id, normalized_key FROM entities WHERE normalized_key IN (%s)", placeholders(len(keys)))
	rows, err := tx.Query(query, keys...)
	if err != nil {
		return nil, 0, fmt.Errorf("error looking up entities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, 0, fmt.Errorf("error scanning entity row: %w", err)
		}
		entityIDs[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating entity rows: %w", err)
	}

	newEntities := 0
	for _, ref := range refs {
		if _, ok := entityIDs[ref.Key]; ok {
			continue
		}
		res, err := tx.Exec("INSERT INTO entities (normalized_key, display_name) VALUES (?, ?)", ref.Key, ref.Raw)
		if err != nil {
			if isUniqueViolation(err) {
				var id int64
				if selErr := tx.QueryRow("SELECT id FROM entities WHERE normalized_key = ?", ref.Key).Scan(&id); selErr != nil {
					return nil, 0, fmt.Errorf("error re-selecting entity after unique violation: %w", selErr)
				}
				logger.L.Debug("Entity insert lost a race, reusing existing row", "normalizedKey", ref.Key)
				entityIDs[ref.Key] = id
				continue
			}
			return nil, 0, fmt.Errorf("error inserting entity %q: %w", ref.Key, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, 0, fmt.Errorf("error reading entity insert id: %w", err)
		}
		entityIDs[ref.Key] = id
		newEntities++
	}

	return entityIDs, newEntities, nil
}
