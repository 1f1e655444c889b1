package repo

import (
	"context"
	"database/sql"

	"teamline/internal/domain"
)

const taskColumns = `id,title,description,project_id,created_by,status,priority,deadline,progress,milestones_json,submitted_at,reviewed_at,reviewed_by,created_at,updated_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var description sql.NullString
	var deadline, milestones, submittedAt, reviewedAt, reviewedBy sql.NullString
	err := scan(&t.ID, &t.Title, &description, &t.ProjectID, &t.CreatedBy, &t.Status, &t.Priority,
		&deadline, &t.Progress, &milestones, &submittedAt, &reviewedAt, &reviewedBy, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Description = description.String
	t.Deadline = optString(deadline)
	t.MilestonesJSON = optString(milestones)
	t.SubmittedAt = optString(submittedAt)
	t.ReviewedAt = optString(reviewedAt)
	t.ReviewedBy = optString(reviewedBy)
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, nullable(t.Description), t.ProjectID, t.CreatedBy, t.Status, t.Priority,
		nullableStringPtr(t.Deadline), t.Progress, nullableStringPtr(t.MilestonesJSON),
		nullableStringPtr(t.SubmittedAt), nullableStringPtr(t.ReviewedAt), nullableStringPtr(t.ReviewedBy),
		t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return err
	}
	for _, empID := range t.AssignedTo {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO task_assignees(task_id,employee_id) VALUES (?,?)`, t.ID, empID); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, status=?, priority=?, deadline=?, progress=?, milestones_json=?, submitted_at=?, reviewed_at=?, reviewed_by=?, updated_at=? WHERE id=?`,
		t.Title, nullable(t.Description), t.Status, t.Priority, nullableStringPtr(t.Deadline), t.Progress,
		nullableStringPtr(t.MilestonesJSON), nullableStringPtr(t.SubmittedAt), nullableStringPtr(t.ReviewedAt),
		nullableStringPtr(t.ReviewedBy), t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTask(row.Scan)
	if err != nil {
		return t, err
	}
	t.AssignedTo, err = r.taskAssignees(ctx, r.DB, id)
	return t, err
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTask(row.Scan)
	if err != nil {
		return t, err
	}
	t.AssignedTo, err = r.taskAssignees(ctx, tx, id)
	return t, err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r Repo) taskAssignees(ctx context.Context, q querier, taskID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT employee_id FROM task_assignees WHERE task_id=? ORDER BY employee_id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type TaskFilters struct {
	ProjectID  string
	AssignedTo string
	Status     string
	Limit      int
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if f.ProjectID != "" {
		query += ` AND project_id=?`
		args = append(args, f.ProjectID)
	}
	if f.AssignedTo != "" {
		query += ` AND id IN (SELECT task_id FROM task_assignees WHERE employee_id=?)`
		args = append(args, f.AssignedTo)
	}
	if f.Status != "" {
		query += ` AND status=?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		res[i].AssignedTo, err = r.taskAssignees(ctx, r.DB, res[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r Repo) SetTaskAssignees(ctx context.Context, tx *sql.Tx, taskID string, employeeIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE task_id=?`, taskID); err != nil {
		return err
	}
	for _, empID := range employeeIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO task_assignees(task_id,employee_id) VALUES (?,?)`, taskID, empID); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) InsertTaskFeedback(ctx context.Context, tx *sql.Tx, f domain.TaskFeedback) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO task_feedback(id,task_id,message,given_by,created_at) VALUES (?,?,?,?,?)`,
		f.ID, f.TaskID, f.Message, f.GivenBy, f.CreatedAt)
	return err
}

func (r Repo) ListTaskFeedback(ctx context.Context, taskID string) ([]domain.TaskFeedback, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,task_id,message,given_by,created_at FROM task_feedback WHERE task_id=? ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TaskFeedback
	for rows.Next() {
		var f domain.TaskFeedback
		if err := rows.Scan(&f.ID, &f.TaskID, &f.Message, &f.GivenBy, &f.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}
