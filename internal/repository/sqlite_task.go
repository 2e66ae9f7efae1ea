package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mfserna/taskcycle/internal/db"
	"github.com/mfserna/taskcycle/internal/domain"
	"github.com/mfserna/taskcycle/internal/recur"
)

// taskColumns is the canonical SELECT column list for tasks.
const taskColumns = `id, title, description, assignee_id, business_id, status, kind,
		start_date, due_date, rule, recurrence_end_date, long_cycle,
		parent_task_id, is_exception, created_at, updated_at`

// SQLiteTaskRepo implements TaskRepo over a DBTX, so the same type serves
// both direct access and transaction-scoped access.
type SQLiteTaskRepo struct {
	db db.DBTX
}

// NewSQLiteTaskRepo creates a new SQLiteTaskRepo.
func NewSQLiteTaskRepo(conn db.DBTX) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: conn}
}

func (r *SQLiteTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, taskInsertArgs(t)...)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepo) CreateMany(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	placeholders := make([]string, len(tasks))
	args := make([]any, 0, len(tasks)*16)
	for i, t := range tasks {
		placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, taskInsertArgs(t)...)
	}
	query := `INSERT INTO tasks (` + taskColumns + `) VALUES ` + strings.Join(placeholders, ", ")
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting %d tasks: %w", len(tasks), err)
	}
	return nil
}

func taskInsertArgs(t *domain.Task) []any {
	return []any{
		t.ID,
		t.Title,
		t.Description,
		t.AssigneeID,
		t.BusinessID,
		string(t.Status),
		string(t.Kind),
		t.StartDate.Format(dateLayout),
		nullableTimeToString(t.DueDate, dateLayout),
		ruleToValue(t.Rule),
		nullableTimeToString(t.RecurrenceEndDate, dateLayout),
		boolToInt(t.LongCycle),
		nullableStrToValue(t.ParentTaskID),
		boolToInt(t.IsException),
		t.CreatedAt.Format(time.RFC3339),
		t.UpdatedAt.Format(time.RFC3339),
	}
}

func (r *SQLiteTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return scanTaskRow(row)
}

func (r *SQLiteTaskRepo) GetMany(ctx context.Context, ids []string) (map[string]*domain.Task, error) {
	result := make(map[string]*domain.Task, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id IN (` + strings.Join(placeholders, ", ") + `)`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching tasks by id: %w", err)
	}
	defer rows.Close()
	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		result[t.ID] = t
	}
	return result, nil
}

func (r *SQLiteTaskRepo) List(ctx context.Context, q TaskQuery) ([]*domain.Task, error) {
	var conds []string
	var args []any

	if q.From != nil {
		conds = append(conds, "start_date >= ?")
		args = append(args, q.From.Format(dateLayout))
	}
	if q.To != nil {
		conds = append(conds, "start_date <= ?")
		args = append(args, q.To.Format(dateLayout))
	}
	if q.AssigneeID != "" {
		conds = append(conds, "assignee_id = ?")
		args = append(args, q.AssigneeID)
	}
	if q.BusinessID != "" {
		conds = append(conds, "business_id = ?")
		args = append(args, q.BusinessID)
	}
	if q.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*q.Status))
	}
	if q.Kind != nil {
		conds = append(conds, "kind = ?")
		args = append(args, string(*q.Kind))
	}
	if q.IsException != nil {
		conds = append(conds, "is_exception = ?")
		args = append(args, boolToInt(*q.IsException))
	}
	if q.ParentTaskID != nil {
		conds = append(conds, "parent_task_id = ?")
		args = append(args, *q.ParentTaskID)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY start_date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *SQLiteTaskRepo) ListInstances(ctx context.Context, masterID string) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE parent_task_id = ? ORDER BY start_date, id`
	rows, err := r.db.QueryContext(ctx, query, masterID)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *SQLiteTaskRepo) ListInstanceDates(ctx context.Context, masterID string) ([]time.Time, error) {
	query := `SELECT start_date FROM tasks WHERE parent_task_id = ? ORDER BY start_date`
	rows, err := r.db.QueryContext(ctx, query, masterID)
	if err != nil {
		return nil, fmt.Errorf("listing instance dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning instance date: %w", err)
		}
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("parsing instance date %q: %w", s, err)
		}
		dates = append(dates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating instance dates: %w", err)
	}
	return dates, nil
}

func (r *SQLiteTaskRepo) ListMastersExpiringBy(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE kind = 'master'
		  AND recurrence_end_date IS NOT NULL
		  AND recurrence_end_date <= ?
		ORDER BY recurrence_end_date, id`
	rows, err := r.db.QueryContext(ctx, query, cutoff.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("listing expiring masters: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *SQLiteTaskRepo) Update(ctx context.Context, t *domain.Task) error {
	query := `UPDATE tasks SET title = ?, description = ?, assignee_id = ?, business_id = ?,
		status = ?, kind = ?, start_date = ?, due_date = ?, rule = ?, recurrence_end_date = ?,
		long_cycle = ?, parent_task_id = ?, is_exception = ?, updated_at = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		t.Title,
		t.Description,
		t.AssigneeID,
		t.BusinessID,
		string(t.Status),
		string(t.Kind),
		t.StartDate.Format(dateLayout),
		nullableTimeToString(t.DueDate, dateLayout),
		ruleToValue(t.Rule),
		nullableTimeToString(t.RecurrenceEndDate, dateLayout),
		boolToInt(t.LongCycle),
		nullableStrToValue(t.ParentTaskID),
		boolToInt(t.IsException),
		t.UpdatedAt.Format(time.RFC3339),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepo) UpdateSeries(ctx context.Context, masterID string, changes domain.TaskChanges, now time.Time) (int64, error) {
	var sets []string
	var args []any
	if changes.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *changes.Title)
	}
	if changes.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *changes.Description)
	}
	if changes.AssigneeID != nil {
		sets = append(sets, "assignee_id = ?")
		args = append(args, *changes.AssigneeID)
	}
	if changes.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*changes.Status))
	}
	if changes.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, changes.DueDate.Format(dateLayout))
	}
	if len(sets) == 0 {
		return 0, nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now.UTC().Format(time.RFC3339))
	args = append(args, masterID, masterID)

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = ? OR parent_task_id = ?`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("updating series: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting series update rows: %w", err)
	}
	return n, nil
}

func (r *SQLiteTaskRepo) ReparentInstances(ctx context.Context, oldMasterID, newMasterID string, from time.Time) (int64, error) {
	query := `UPDATE tasks SET parent_task_id = ?, updated_at = ?
		WHERE parent_task_id = ? AND start_date >= ?`
	res, err := r.db.ExecContext(ctx, query, newMasterID, nowUTC(), oldMasterID, from.Format(dateLayout))
	if err != nil {
		return 0, fmt.Errorf("reparenting instances: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting reparented instances: %w", err)
	}
	return n, nil
}

func (r *SQLiteTaskRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM tasks WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

func ruleToValue(rule *domain.RecurrenceRule) interface{} {
	if rule == nil {
		return nil
	}
	return recur.EncodeRule(*rule)
}

// scanTaskRow scans a single task from a *sql.Row.
func scanTaskRow(row *sql.Row) (*domain.Task, error) {
	var t domain.Task
	var statusStr, kindStr, startDateStr string
	var dueDateStr, ruleStr, recEndStr, parentIDStr sql.NullString
	var longCycleInt, isExceptionInt int
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.AssigneeID, &t.BusinessID,
		&statusStr, &kindStr, &startDateStr, &dueDateStr, &ruleStr, &recEndStr,
		&longCycleInt, &parentIDStr, &isExceptionInt, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("task: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}
	return populateTask(&t, statusStr, kindStr, startDateStr, dueDateStr, ruleStr,
		recEndStr, parentIDStr, longCycleInt, isExceptionInt, createdAtStr, updatedAtStr)
}

// scanTasks scans multiple tasks from *sql.Rows.
func scanTasks(rows *sql.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		var t domain.Task
		var statusStr, kindStr, startDateStr string
		var dueDateStr, ruleStr, recEndStr, parentIDStr sql.NullString
		var longCycleInt, isExceptionInt int
		var createdAtStr, updatedAtStr string

		err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.AssigneeID, &t.BusinessID,
			&statusStr, &kindStr, &startDateStr, &dueDateStr, &ruleStr, &recEndStr,
			&longCycleInt, &parentIDStr, &isExceptionInt, &createdAtStr, &updatedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		task, err := populateTask(&t, statusStr, kindStr, startDateStr, dueDateStr, ruleStr,
			recEndStr, parentIDStr, longCycleInt, isExceptionInt, createdAtStr, updatedAtStr)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// populateTask fills in parsed fields on a Task after scanning raw values.
func populateTask(
	t *domain.Task,
	statusStr, kindStr, startDateStr string,
	dueDateStr, ruleStr, recEndStr, parentIDStr sql.NullString,
	longCycleInt, isExceptionInt int,
	createdAtStr, updatedAtStr string,
) (*domain.Task, error) {
	t.Status = domain.TaskStatus(statusStr)
	t.Kind = domain.TaskKind(kindStr)
	t.LongCycle = intToBool(longCycleInt)
	t.IsException = intToBool(isExceptionInt)
	t.DueDate = parseNullableTime(dueDateStr, dateLayout)
	t.RecurrenceEndDate = parseNullableTime(recEndStr, dateLayout)

	if parentIDStr.Valid && parentIDStr.String != "" {
		parent := parentIDStr.String
		t.ParentTaskID = &parent
	}

	var parseErr error
	t.StartDate, parseErr = time.Parse(dateLayout, startDateStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing start_date: %w", parseErr)
	}
	t.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	t.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	if ruleStr.Valid && ruleStr.String != "" {
		rule, err := recur.DecodeRule(ruleStr.String)
		if err != nil {
			return nil, fmt.Errorf("decoding stored rule for task %s: %w", t.ID, err)
		}
		t.Rule = &rule
	}

	return t, nil
}
