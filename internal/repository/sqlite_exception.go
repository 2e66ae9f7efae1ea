package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mfserna/taskcycle/internal/db"
	"github.com/mfserna/taskcycle/internal/domain"
)

const exceptionColumns = `master_task_id, exception_date, exception_type, new_task_id, notes, created_at`

// SQLiteExceptionRepo implements ExceptionRepo over a DBTX.
type SQLiteExceptionRepo struct {
	db db.DBTX
}

// NewSQLiteExceptionRepo creates a new SQLiteExceptionRepo.
func NewSQLiteExceptionRepo(conn db.DBTX) *SQLiteExceptionRepo {
	return &SQLiteExceptionRepo{db: conn}
}

func (r *SQLiteExceptionRepo) Upsert(ctx context.Context, e *domain.Exception) error {
	// The (master, date) primary key enforces the one-exception-per-date
	// invariant; a repeat edit of the same occurrence refreshes the row.
	query := `INSERT INTO task_exceptions (` + exceptionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(master_task_id, exception_date) DO UPDATE SET
			exception_type = excluded.exception_type,
			new_task_id = excluded.new_task_id,
			notes = excluded.notes`
	_, err := r.db.ExecContext(ctx, query,
		e.MasterTaskID,
		e.Date.Format(dateLayout),
		string(e.Type),
		nullableStrToValue(e.NewTaskID),
		e.Notes,
		e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting exception: %w", err)
	}
	return nil
}

func (r *SQLiteExceptionRepo) Get(ctx context.Context, masterID string, date time.Time) (*domain.Exception, error) {
	query := `SELECT ` + exceptionColumns + ` FROM task_exceptions
		WHERE master_task_id = ? AND exception_date = ?`
	row := r.db.QueryRowContext(ctx, query, masterID, date.Format(dateLayout))

	e, err := scanException(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("exception: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning exception: %w", err)
	}
	return e, nil
}

func (r *SQLiteExceptionRepo) ListByMaster(ctx context.Context, masterID string) ([]domain.Exception, error) {
	query := `SELECT ` + exceptionColumns + ` FROM task_exceptions
		WHERE master_task_id = ? ORDER BY exception_date`
	rows, err := r.db.QueryContext(ctx, query, masterID)
	if err != nil {
		return nil, fmt.Errorf("listing exceptions: %w", err)
	}
	defer rows.Close()

	var exceptions []domain.Exception
	for rows.Next() {
		e, err := scanException(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning exception row: %w", err)
		}
		exceptions = append(exceptions, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating exceptions: %w", err)
	}
	return exceptions, nil
}

func (r *SQLiteExceptionRepo) ReassignFrom(ctx context.Context, oldMasterID, newMasterID string, from time.Time) (int64, error) {
	query := `UPDATE task_exceptions SET master_task_id = ?
		WHERE master_task_id = ? AND exception_date >= ?`
	res, err := r.db.ExecContext(ctx, query, newMasterID, oldMasterID, from.Format(dateLayout))
	if err != nil {
		return 0, fmt.Errorf("reassigning exceptions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting reassigned exceptions: %w", err)
	}
	return n, nil
}

func scanException(scan func(dest ...any) error) (*domain.Exception, error) {
	var e domain.Exception
	var dateStr, typeStr, createdAtStr string
	var newTaskIDStr sql.NullString

	if err := scan(&e.MasterTaskID, &dateStr, &typeStr, &newTaskIDStr, &e.Notes, &createdAtStr); err != nil {
		return nil, err
	}

	e.Type = domain.ExceptionType(typeStr)
	if newTaskIDStr.Valid && newTaskIDStr.String != "" {
		id := newTaskIDStr.String
		e.NewTaskID = &id
	}

	var parseErr error
	e.Date, parseErr = time.Parse(dateLayout, dateStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing exception_date: %w", parseErr)
	}
	e.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	return &e, nil
}
