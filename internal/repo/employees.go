package repo

import (
	"context"
	"database/sql"

	"teamline/internal/domain"
)

const employeeColumns = `id,user_id,first_name,last_name,email,phone,department,position,employee_no,hire_date,manager_id,leave_balance,terminated,termination_date,termination_reason,created_at,updated_at`

func scanEmployee(scan func(dest ...any) error) (domain.Employee, error) {
	var e domain.Employee
	var phone, managerID, termDate, termReason sql.NullString
	err := scan(&e.ID, &e.UserID, &e.FirstName, &e.LastName, &e.Email, &phone, &e.Department, &e.Position,
		&e.EmployeeNo, &e.HireDate, &managerID, &e.LeaveBalance, &e.Terminated, &termDate, &termReason,
		&e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if phone.Valid {
		e.Phone = phone.String
	}
	e.ManagerID = optString(managerID)
	e.TerminationDate = optString(termDate)
	if termReason.Valid {
		e.TerminationReason = termReason.String
	}
	return e, nil
}

func (r Repo) InsertEmployee(ctx context.Context, tx *sql.Tx, e domain.Employee) error {
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err := exec(ctx, `INSERT INTO employees(`+employeeColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.UserID, e.FirstName, e.LastName, e.Email, nullable(e.Phone), e.Department, e.Position,
		e.EmployeeNo, e.HireDate, nullableStringPtr(e.ManagerID), e.LeaveBalance, e.Terminated,
		nullableStringPtr(e.TerminationDate), nullable(e.TerminationReason), e.CreatedAt, e.UpdatedAt)
	return err
}

func (r Repo) UpdateEmployee(ctx context.Context, tx *sql.Tx, e domain.Employee) error {
	res, err := tx.ExecContext(ctx, `UPDATE employees SET first_name=?, last_name=?, email=?, phone=?, department=?, position=?, manager_id=?, leave_balance=?, terminated=?, termination_date=?, termination_reason=?, updated_at=? WHERE id=?`,
		e.FirstName, e.LastName, e.Email, nullable(e.Phone), e.Department, e.Position,
		nullableStringPtr(e.ManagerID), e.LeaveBalance, e.Terminated,
		nullableStringPtr(e.TerminationDate), nullable(e.TerminationReason), e.UpdatedAt, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetEmployee(ctx context.Context, id string) (domain.Employee, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id=?`, id)
	return scanEmployee(row.Scan)
}

func (r Repo) GetEmployeeTx(ctx context.Context, tx *sql.Tx, id string) (domain.Employee, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id=?`, id)
	return scanEmployee(row.Scan)
}

// GetEmployeeByUser resolves the employee record backing a user account.
func (r Repo) GetEmployeeByUser(ctx context.Context, userID string) (domain.Employee, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE user_id=?`, userID)
	return scanEmployee(row.Scan)
}

type EmployeeFilters struct {
	Department        string
	ManagerID         string
	IncludeTerminated bool
	Limit             int
}

func (r Repo) ListEmployees(ctx context.Context, f EmployeeFilters) ([]domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE 1=1`
	var args []any
	if !f.IncludeTerminated {
		query += ` AND terminated=0`
	}
	if f.Department != "" {
		query += ` AND department=?`
		args = append(args, f.Department)
	}
	if f.ManagerID != "" {
		query += ` AND manager_id=?`
		args = append(args, f.ManagerID)
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
	var res []domain.Employee
	for rows.Next() {
		e, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// DebitLeaveBalance decrements the balance only when it covers the requested
// days; the guard makes concurrent approvals safe.
func (r Repo) DebitLeaveBalance(ctx context.Context, tx *sql.Tx, employeeID string, days int) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE employees SET leave_balance=leave_balance-? WHERE id=? AND leave_balance>=?`,
		days, employeeID, days)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r Repo) CreditLeaveBalance(ctx context.Context, tx *sql.Tx, employeeID string, days int) error {
	res, err := tx.ExecContext(ctx, `UPDATE employees SET leave_balance=leave_balance+? WHERE id=?`, days, employeeID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
