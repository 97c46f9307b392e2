package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayael01/tazrim/src/database"
	"github.com/ayael01/tazrim/src/logger"
	"github.com/ayael01/tazrim/src/models"
	"github.com/ayael01/tazrim/src/utils"
)

// CategoryHandler serves the knowledge-base endpoints around categories and
// entity links. These are simple enough to query the store directly.
type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

func (h *CategoryHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	rows, err := database.DB.Query("SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		utils.SendJSONError(w, "Error querying categories", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			utils.SendJSONError(w, "Error scanning category", http.StatusInternalServerError)
			return
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		utils.SendJSONError(w, "Error iterating categories", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		utils.SendJSONError(w, "name is required", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(body.Name)

	res, err := database.DB.Exec("INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
			utils.SendJSONError(w, "category already exists", http.StatusConflict)
			return
		}
		utils.SendJSONError(w, "Error creating category", http.StatusInternalServerError)
		return
	}
	id, _ := res.LastInsertId()
	utils.WriteJSON(w, http.StatusCreated, models.Category{ID: id, Name: name})
}

type unmappedEntity struct {
	ID            int64  `json:"id"`
	DisplayName   string `json:"display_name"`
	NormalizedKey string `json:"normalized_key"`
	ActivityCount int    `json:"activity_count"`
}

// HandleListUnmappedEntities surfaces entities the consensus rule could not
// categorize, busiest first, for manual assignment.
func (h *CategoryHandler) HandleListUnmappedEntities(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 200, 1, 1000)
	rows, err := database.DB.Query(`
		SELECT e.id, e.display_name, e.normalized_key, COUNT(a.id)
		FROM entities e
		LEFT JOIN entity_category_map m ON e.id = m.entity_id
		LEFT JOIN activities a ON a.entity_id = e.id
		WHERE m.id IS NULL
		GROUP BY e.id
		ORDER BY COUNT(a.id) DESC
		LIMIT ?`, limit)
	if err != nil {
		utils.SendJSONError(w, "Error querying unmapped entities", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	entities := []unmappedEntity{}
	for rows.Next() {
		var e unmappedEntity
		if err := rows.Scan(&e.ID, &e.DisplayName, &e.NormalizedKey, &e.ActivityCount); err != nil {
			utils.SendJSONError(w, "Error scanning entity", http.StatusInternalServerError)
			return
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		utils.SendJSONError(w, "Error iterating entities", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, entities)
}

// HandleAssignEntityCategory is the manual override: it rewrites the
// entity's link unconditionally, bypassing consensus.
func (h *CategoryHandler) HandleAssignEntityCategory(w http.ResponseWriter, r *http.Request) {
	entityID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		CategoryID int64 `json:"category_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var exists int64
	if err := database.DB.QueryRow("SELECT id FROM entities WHERE id = ?", entityID).Scan(&exists); err != nil {
		utils.SendJSONError(w, "Entity not found", http.StatusNotFound)
		return
	}
	if err := database.DB.QueryRow("SELECT id FROM categories WHERE id = ?", body.CategoryID).Scan(&exists); err != nil {
		utils.SendJSONError(w, "Category not found", http.StatusNotFound)
		return
	}

	res, err := database.DB.Exec("UPDATE entity_category_map SET category_id = ? WHERE entity_id = ?", body.CategoryID, entityID)
	if err != nil {
		utils.SendJSONError(w, "Error assigning category", http.StatusInternalServerError)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, err := database.DB.Exec("INSERT INTO entity_category_map (entity_id, category_id) VALUES (?, ?)", entityID, body.CategoryID); err != nil {
			utils.SendJSONError(w, "Error assigning category", http.StatusInternalServerError)
			return
		}
	}
	logger.L.Info("Manually assigned entity category", "entityID", entityID, "categoryID", body.CategoryID)
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSetActivityCategory sets or clears the per-row manual category
// override. It is independent of the entity-level mapping.
func (h *CategoryHandler) HandleSetActivityCategory(w http.ResponseWriter, r *http.Request) {
	activityID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		CategoryID *int64 `json:"category_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var exists int64
	if err := database.DB.QueryRow("SELECT id FROM activities WHERE id = ?", activityID).Scan(&exists); err != nil {
		utils.SendJSONError(w, "Activity not found", http.StatusNotFound)
		return
	}

	var categoryArg any
	if body.CategoryID != nil {
		if err := database.DB.QueryRow("SELECT id FROM categories WHERE id = ?", *body.CategoryID).Scan(&exists); err != nil {
			utils.SendJSONError(w, "Category not found", http.StatusNotFound)
			return
		}
		categoryArg = *body.CategoryID
	}

	if _, err := database.DB.Exec("UPDATE activities SET manual_category_id = ? WHERE id = ?", categoryArg, activityID); err != nil {
		utils.SendJSONError(w, "Error updating activity category", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
