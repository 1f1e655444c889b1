package repo

import (
	"context"
	"database/sql"
	"strings"

	"teamline/internal/domain"
)

const attendanceColumns = `id,employee_id,date,check_in_time,check_in_location,check_out_time,check_out_location,total_hours,status`

func scanAttendance(scan func(dest ...any) error) (domain.Attendance, error) {
	var a domain.Attendance
	var checkOutTime, checkOutLoc sql.NullString
	var totalHours sql.NullFloat64
	err := scan(&a.ID, &a.EmployeeID, &a.Date, &a.CheckInTime, &a.CheckInLocation,
		&checkOutTime, &checkOutLoc, &totalHours, &a.Status)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.CheckOutTime = optString(checkOutTime)
	a.CheckOutLocation = optString(checkOutLoc)
	if totalHours.Valid {
		h := totalHours.Float64
		a.TotalHours = &h
	}
	return a, nil
}

// InsertAttendance maps the unique (employee_id, date) violation to
// ErrConflict so callers can distinguish a double check-in.
func (r Repo) InsertAttendance(ctx context.Context, tx *sql.Tx, a domain.Attendance) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO attendance(`+attendanceColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ID, a.EmployeeID, a.Date, a.CheckInTime, a.CheckInLocation,
		nullableStringPtr(a.CheckOutTime), nullableStringPtr(a.CheckOutLocation), a.TotalHours, a.Status)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrConflict
	}
	return err
}

func (r Repo) UpdateAttendance(ctx context.Context, tx *sql.Tx, a domain.Attendance) error {
	res, err := tx.ExecContext(ctx, `UPDATE attendance SET check_out_time=?, check_out_location=?, total_hours=?, status=? WHERE id=?`,
		nullableStringPtr(a.CheckOutTime), nullableStringPtr(a.CheckOutLocation), a.TotalHours, a.Status, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetAttendance(ctx context.Context, id string) (domain.Attendance, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE id=?`, id)
	return scanAttendance(row.Scan)
}

func (r Repo) GetAttendanceByDay(ctx context.Context, employeeID, date string) (domain.Attendance, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE employee_id=? AND date=?`, employeeID, date)
	return scanAttendance(row.Scan)
}

func (r Repo) GetAttendanceByDayTx(ctx context.Context, tx *sql.Tx, employeeID, date string) (domain.Attendance, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE employee_id=? AND date=?`, employeeID, date)
	return scanAttendance(row.Scan)
}

type AttendanceFilters struct {
	EmployeeID string
	From       string
	To         string
	Limit      int
}

func (r Repo) ListAttendance(ctx context.Context, f AttendanceFilters) ([]domain.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE 1=1`
	var args []any
	if f.EmployeeID != "" {
		query += ` AND employee_id=?`
		args = append(args, f.EmployeeID)
	}
	if f.From != "" {
		query += ` AND date>=?`
		args = append(args, f.From)
	}
	if f.To != "" {
		query += ` AND date<=?`
		args = append(args, f.To)
	}
	query += ` ORDER BY date DESC, employee_id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
