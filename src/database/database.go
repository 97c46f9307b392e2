package database

import (
	"database/sql"
	stdlog "log"

	"github.com/ayael01/tazrim/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	// foreign_keys is a per-connection pragma in SQLite; it must ride the DSN
	// so every pooled connection enforces it. Cascade deletes on draft rows
	// depend on this.
	db, err := sql.Open("sqlite", databasePath+"?_pragma=foreign_keys(1)")
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL DEFAULT 'bank',
		currency TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS entities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		normalized_key TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entity_category_map (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id INTEGER NOT NULL UNIQUE,
		category_id INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(entity_id) REFERENCES entities(id),
		FOREIGN KEY(category_id) REFERENCES categories(id)
	);

	CREATE TABLE IF NOT EXISTS import_batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		source_filename TEXT,
		period_label TEXT NOT NULL,
		row_count INTEGER,
		uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(account_id) REFERENCES accounts(id)
	);

	CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		batch_id INTEGER NOT NULL,
		activity_date TEXT NOT NULL,
		value_date TEXT,
		description TEXT NOT NULL,
		reference TEXT,
		counterparty_raw TEXT NOT NULL,
		entity_id INTEGER,
		debit TEXT,
		credit TEXT,
		amount TEXT,
		charged_amount TEXT,
		charged_currency TEXT,
		balance TEXT,
		currency TEXT,
		category_hint TEXT,
		manual_category_id INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(account_id) REFERENCES accounts(id),
		FOREIGN KEY(batch_id) REFERENCES import_batches(id),
		FOREIGN KEY(entity_id) REFERENCES entities(id),
		FOREIGN KEY(manual_category_id) REFERENCES categories(id)
	);

	CREATE INDEX IF NOT EXISTS ix_activities_activity_date ON activities(activity_date);
	CREATE INDEX IF NOT EXISTS ix_activities_entity_id ON activities(entity_id);
	CREATE INDEX IF NOT EXISTS ix_activities_batch_id ON activities(batch_id);

	CREATE TABLE IF NOT EXISTS import_drafts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		source_filename TEXT,
		period_label TEXT NOT NULL,
		row_count INTEGER,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(account_id) REFERENCES accounts(id)
	);

	CREATE TABLE IF NOT EXISTS import_draft_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		draft_id INTEGER NOT NULL,
		row_index INTEGER NOT NULL,
		activity_date TEXT NOT NULL,
		value_date TEXT,
		description TEXT NOT NULL,
		reference TEXT,
		counterparty_raw TEXT NOT NULL,
		counterparty_key TEXT NOT NULL,
		debit TEXT,
		credit TEXT,
		amount TEXT,
		charged_amount TEXT,
		charged_currency TEXT,
		balance TEXT,
		currency TEXT,
		category_hint TEXT,
		suggested_category_text TEXT,
		approved_category_text TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(draft_id) REFERENCES import_drafts(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS ix_import_draft_rows_draft_id ON import_draft_rows(draft_id);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}

	migrateActivitiesTable()
	migrateDraftRowsTable()

	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

func tableColumns(tableName string) map[string]bool {
	var name string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", tableName).Scan(&name)
	if err != nil {
		if err != sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Error("Error checking for table", "table", tableName, "error", err)
			} else {
				stdlog.Printf("Error checking for table %s: %v", tableName, err)
			}
		}
		return nil
	}

	rows, err := DB.Query("PRAGMA table_info(" + tableName + ")")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema", "table", tableName, "error", err)
		} else {
			stdlog.Printf("Error querying table schema for %s: %v", tableName, err)
		}
		return nil
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var colName, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &colName, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info", "table", tableName, "error", err)
			} else {
				stdlog.Printf("Error scanning column info for %s: %v", tableName, err)
			}
			return nil
		}
		columnExists[colName] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info", "table", tableName, "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for %s: %v", tableName, err)
		}
		return nil
	}
	return columnExists
}

// migrateActivitiesTable upgrades ledgers created before per-row category
// overrides existed.
func migrateActivitiesTable() {
	columnExists := tableColumns("activities")
	if columnExists == nil {
		return
	}

	if _, ok := columnExists["manual_category_id"]; !ok {
		_, err := DB.Exec("ALTER TABLE activities ADD COLUMN manual_category_id INTEGER REFERENCES categories(id)")
		if err != nil {
			logger.L.Error("Error adding 'manual_category_id' column to 'activities' table", "error", err)
		} else {
			logger.L.Info("Added 'manual_category_id' column to 'activities' table")
		}
	}
}

// migrateDraftRowsTable upgrades draft tables created before the review
// workflow recorded approvals separately from suggestions.
func migrateDraftRowsTable() {
	columnExists := tableColumns("import_draft_rows")
	if columnExists == nil {
		return
	}

	if _, ok := columnExists["approved_category_text"]; !ok {
		_, err := DB.Exec("ALTER TABLE import_draft_rows ADD COLUMN approved_category_text TEXT")
		if err != nil {
			logger.L.Error("Error adding 'approved_category_text' column to 'import_draft_rows' table", "error", err)
		} else {
			logger.L.Info("Added 'approved_category_text' column to 'import_draft_rows' table")
		}
	}
}
