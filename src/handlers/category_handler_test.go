package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ayael01/tazrim/src/database"
	"github.com/ayael01/tazrim/src/logger"
	"github.com/ayael01/tazrim/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) *http.ServeMux {
	t.Helper()
	logger.InitLogger("error")
	database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() { database.DB.Close() })

	h := NewCategoryHandler()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/categories", h.HandleListCategories)
	mux.HandleFunc("POST /api/categories", h.HandleCreateCategory)
	mux.HandleFunc("GET /api/entities/unmapped", h.HandleListUnmappedEntities)
	mux.HandleFunc("PUT /api/entities/{id}/category", h.HandleAssignEntityCategory)
	mux.HandleFunc("PATCH /api/activities/{id}/category", h.HandleSetActivityCategory)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndListCategories(t *testing.T) {
	mux := setupHandlerTest(t)

	rec := doJSON(t, mux, "POST", "/api/categories", `{"name":"Groceries"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Groceries", created.Name)
	assert.NotZero(t, created.ID)

	// Duplicate names conflict.
	rec = doJSON(t, mux, "POST", "/api/categories", `{"name":"Groceries"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, mux, "POST", "/api/categories", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, "GET", "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var categories []models.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &categories))
	require.Len(t, categories, 1)
}

func TestAssignEntityCategory(t *testing.T) {
	mux := setupHandlerTest(t)

	res, err := database.DB.Exec("INSERT INTO entities (normalized_key, display_name) VALUES ('cafe joe s', 'Cafe Joe''s')")
	require.NoError(t, err)
	entityID, _ := res.LastInsertId()
	res, err = database.DB.Exec("INSERT INTO categories (name) VALUES ('Coffee')")
	require.NoError(t, err)
	coffeeID, _ := res.LastInsertId()
	res, err = database.DB.Exec("INSERT INTO categories (name) VALUES ('Eating Out')")
	require.NoError(t, err)
	eatingOutID, _ := res.LastInsertId()

	// Unmapped entity shows up in the worklist.
	rec := doJSON(t, mux, "GET", "/api/entities/unmapped", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var unmapped []unmappedEntity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unmapped))
	require.Len(t, unmapped, 1)
	assert.Equal(t, entityID, unmapped[0].ID)

	rec = doJSON(t, mux, "PUT", "/api/entities/1/category", `{"category_id":`+itoa(coffeeID)+`}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Re-assigning overwrites the link instead of erroring.
	rec = doJSON(t, mux, "PUT", "/api/entities/1/category", `{"category_id":`+itoa(eatingOutID)+`}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var categoryID int64
	require.NoError(t, database.DB.QueryRow("SELECT category_id FROM entity_category_map WHERE entity_id = ?", entityID).Scan(&categoryID))
	assert.Equal(t, eatingOutID, categoryID)

	rec = doJSON(t, mux, "GET", "/api/entities/unmapped", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unmapped))
	assert.Empty(t, unmapped)

	rec = doJSON(t, mux, "PUT", "/api/entities/999/category", `{"category_id":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, mux, "PUT", "/api/entities/1/category", `{"category_id":999}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetActivityCategory(t *testing.T) {
	mux := setupHandlerTest(t)

	_, err := database.DB.Exec("INSERT INTO accounts (name, kind) VALUES ('checking', 'bank')")
	require.NoError(t, err)
	_, err = database.DB.Exec("INSERT INTO import_batches (account_id, period_label) VALUES (1, '2024-01')")
	require.NoError(t, err)
	_, err = database.DB.Exec(`INSERT INTO activities (account_id, batch_id, activity_date, description, counterparty_raw)
		VALUES (1, 1, '2024-01-13', 'Groceries', 'Groceries')`)
	require.NoError(t, err)
	_, err = database.DB.Exec("INSERT INTO categories (name) VALUES ('Food')")
	require.NoError(t, err)

	rec := doJSON(t, mux, "PATCH", "/api/activities/1/category", `{"category_id":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var manual int64
	require.NoError(t, database.DB.QueryRow("SELECT manual_category_id FROM activities WHERE id = 1").Scan(&manual))
	assert.Equal(t, int64(1), manual)

	// Null clears the override.
	rec = doJSON(t, mux, "PATCH", "/api/activities/1/category", `{"category_id":null}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared *int64
	require.NoError(t, database.DB.QueryRow("SELECT manual_category_id FROM activities WHERE id = 1").Scan(&cleared))
	assert.Nil(t, cleared)

	rec = doJSON(t, mux, "PATCH", "/api/activities/999/category", `{"category_id":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
