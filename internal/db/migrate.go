package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// migrations is an ordered list of idempotent schema statements. The
// whole list re-runs on every open; ALTER TABLE duplicates are tolerated.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id                  TEXT PRIMARY KEY,
		title               TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		assignee_id         TEXT NOT NULL DEFAULT '',
		business_id         TEXT NOT NULL DEFAULT '',
		status              TEXT NOT NULL DEFAULT 'todo'
		                    CHECK(status IN ('todo','in_progress','done','cancelled')),
		kind                TEXT NOT NULL
		                    CHECK(kind IN ('master','instance','standalone')),
		start_date          TEXT NOT NULL,
		due_date            TEXT,
		rule                TEXT,
		recurrence_end_date TEXT,
		long_cycle          INTEGER NOT NULL DEFAULT 0,
		parent_task_id      TEXT REFERENCES tasks(id) ON DELETE CASCADE,
		is_exception        INTEGER NOT NULL DEFAULT 0,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_task_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_start_date ON tasks(start_date)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_business ON tasks(business_id)`,
	`CREATE TABLE IF NOT EXISTS task_exceptions (
		master_task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		exception_date TEXT NOT NULL,
		exception_type TEXT NOT NULL
		               CHECK(exception_type IN ('modified','cancelled','moved')),
		new_task_id    TEXT,
		notes          TEXT NOT NULL DEFAULT '',
		created_at     TEXT NOT NULL,
		PRIMARY KEY (master_task_id, exception_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_exceptions_new_task ON task_exceptions(new_task_id)`,
}

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
