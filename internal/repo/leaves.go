package repo

import (
	"context"
	"database/sql"

	"teamline/internal/domain"
)

const leaveColumns = `id,employee_id,type,start_date,end_date,days,reason,status,approved_by,rejected_by,rejection_reason,reviewed_at,flagged,flag_reason,flagged_by,created_at`

func scanLeave(scan func(dest ...any) error) (domain.Leave, error) {
	var l domain.Leave
	var approvedBy, rejectedBy, rejectionReason, reviewedAt, flagReason, flaggedBy sql.NullString
	err := scan(&l.ID, &l.EmployeeID, &l.Type, &l.StartDate, &l.EndDate, &l.Days, &l.Reason, &l.Status,
		&approvedBy, &rejectedBy, &rejectionReason, &reviewedAt, &l.Flagged, &flagReason, &flaggedBy, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	if err != nil {
		return l, err
	}
	l.ApprovedBy = optString(approvedBy)
	l.RejectedBy = optString(rejectedBy)
	l.RejectionReason = rejectionReason.String
	l.ReviewedAt = optString(reviewedAt)
	l.FlagReason = flagReason.String
	l.FlaggedBy = optString(flaggedBy)
	return l, nil
}

func (r Repo) InsertLeave(ctx context.Context, tx *sql.Tx, l domain.Leave) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO leaves(`+leaveColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.ID, l.EmployeeID, l.Type, l.StartDate, l.EndDate, l.Days, l.Reason, l.Status,
		nullableStringPtr(l.ApprovedBy), nullableStringPtr(l.RejectedBy), nullable(l.RejectionReason),
		nullableStringPtr(l.ReviewedAt), l.Flagged, nullable(l.FlagReason), nullableStringPtr(l.FlaggedBy), l.CreatedAt)
	return err
}

func (r Repo) UpdateLeave(ctx context.Context, tx *sql.Tx, l domain.Leave) error {
	res, err := tx.ExecContext(ctx, `UPDATE leaves SET status=?, approved_by=?, rejected_by=?, rejection_reason=?, reviewed_at=?, flagged=?, flag_reason=?, flagged_by=? WHERE id=?`,
		l.Status, nullableStringPtr(l.ApprovedBy), nullableStringPtr(l.RejectedBy), nullable(l.RejectionReason),
		nullableStringPtr(l.ReviewedAt), l.Flagged, nullable(l.FlagReason), nullableStringPtr(l.FlaggedBy), l.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetLeave(ctx context.Context, id string) (domain.Leave, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+leaveColumns+` FROM leaves WHERE id=?`, id)
	return scanLeave(row.Scan)
}

func (r Repo) GetLeaveTx(ctx context.Context, tx *sql.Tx, id string) (domain.Leave, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+leaveColumns+` FROM leaves WHERE id=?`, id)
	return scanLeave(row.Scan)
}

type LeaveFilters struct {
	EmployeeID string
	Status     string
	Flagged    *bool
	Limit      int
}

func (r Repo) ListLeaves(ctx context.Context, f LeaveFilters) ([]domain.Leave, error) {
	query := `SELECT ` + leaveColumns + ` FROM leaves WHERE 1=1`
	var args []any
	if f.EmployeeID != "" {
		query += ` AND employee_id=?`
		args = append(args, f.EmployeeID)
	}
	if f.Status != "" {
		query += ` AND status=?`
		args = append(args, f.Status)
	}
	if f.Flagged != nil {
		query += ` AND flagged=?`
		args = append(args, *f.Flagged)
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
	var res []domain.Leave
	for rows.Next() {
		l, err := scanLeave(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}
