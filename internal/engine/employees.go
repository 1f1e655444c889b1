package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"teamline/internal/domain"
	"teamline/internal/events"
	"teamline/internal/policy"
)

// EmployeeCreateOptions are parameters for onboarding an employee together
// with its user account.
type EmployeeCreateOptions struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Department string
	Position   string
	EmployeeNo string
	ManagerID  string
	Role       string
}

// CreateEmployee creates a user account and its employee record in one
// transaction. The leave balance starts at the configured default.
func (e Engine) CreateEmployee(ctx context.Context, opts EmployeeCreateOptions, actor policy.Actor) (domain.Employee, error) {
	if err := policy.Require(actor, policy.IntentCreate, policy.EmployeeTarget{}); err != nil {
		return domain.Employee{}, err
	}
	opts.Email = strings.ToLower(strings.TrimSpace(opts.Email))
	if opts.Email == "" || opts.FirstName == "" {
		return domain.Employee{}, fmt.Errorf("email and first_name required")
	}
	if opts.Department == "" || opts.Position == "" {
		return domain.Employee{}, fmt.Errorf("department and position required")
	}
	role := opts.Role
	if role == "" {
		role = "employee"
	}
	switch role {
	case "employee", "pm", "hr":
	default:
		return domain.Employee{}, fmt.Errorf("role must be employee, pm or hr")
	}
	balance := 20
	if e.Config != nil && e.Config.Leave.DefaultBalance > 0 {
		balance = e.Config.Leave.DefaultBalance
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Employee{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	u := domain.User{
		ID:        uuid.New().String(),
		Email:     opts.Email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
	}
	if err := e.Repo.InsertUser(ctx, tx, u); err != nil {
		return domain.Employee{}, fmt.Errorf("insert user: %w", err)
	}
	emp := domain.Employee{
		ID:           uuid.New().String(),
		UserID:       u.ID,
		FirstName:    opts.FirstName,
		LastName:     opts.LastName,
		Email:        opts.Email,
		Phone:        opts.Phone,
		Department:   opts.Department,
		Position:     opts.Position,
		EmployeeNo:   opts.EmployeeNo,
		HireDate:     now,
		LeaveBalance: balance,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if emp.EmployeeNo == "" {
		emp.EmployeeNo = "EMP-" + emp.ID[:8]
	}
	if opts.ManagerID != "" {
		if _, err := e.Repo.GetEmployeeTx(ctx, tx, opts.ManagerID); err != nil {
			return domain.Employee{}, fmt.Errorf("manager %s: %w", opts.ManagerID, err)
		}
		emp.ManagerID = &opts.ManagerID
	}
	if err := e.Repo.InsertEmployee(ctx, tx, emp); err != nil {
		return domain.Employee{}, fmt.Errorf("insert employee: %w", err)
	}
	if err := e.events().Append(ctx, tx, "employee.created", "employee", emp.ID, actor.UserID, events.EventPayload{
		"email": emp.Email,
		"role":  role,
	}); err != nil {
		return domain.Employee{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Employee{}, err
	}
	return emp, nil
}

// TerminateEmployee marks the employee terminated and deactivates the user
// account in the same transaction.
func (e Engine) TerminateEmployee(ctx context.Context, employeeID, reason string, actor policy.Actor) (domain.Employee, error) {
	emp, err := e.Repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return domain.Employee{}, err
	}
	if err := policy.Require(actor, policy.IntentTerminate, policy.EmployeeTarget{EmployeeID: emp.ID, UserID: emp.UserID}); err != nil {
		return domain.Employee{}, err
	}
	if emp.Terminated {
		return domain.Employee{}, InvalidTransitionError{Entity: "employee", From: "terminated", To: "terminated"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Employee{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	emp.Terminated = true
	emp.TerminationDate = &now
	emp.TerminationReason = reason
	emp.UpdatedAt = now
	if err := e.Repo.UpdateEmployee(ctx, tx, emp); err != nil {
		return domain.Employee{}, err
	}
	if err := e.Repo.SetUserActive(ctx, tx, emp.UserID, false); err != nil {
		return domain.Employee{}, err
	}
	if err := e.events().Append(ctx, tx, "employee.terminated", "employee", emp.ID, actor.UserID, events.EventPayload{
		"reason": reason,
	}); err != nil {
		return domain.Employee{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Employee{}, err
	}
	return emp, nil
}

// EmployeeUpdateOptions are the HR-editable employee fields.
type EmployeeUpdateOptions struct {
	Phone      *string
	Department *string
	Position   *string
	ManagerID  *string
}

func (e Engine) UpdateEmployee(ctx context.Context, employeeID string, opts EmployeeUpdateOptions, actor policy.Actor) (domain.Employee, error) {
	emp, err := e.Repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return domain.Employee{}, err
	}
	if err := policy.Require(actor, policy.IntentEditMetadata, policy.EmployeeTarget{EmployeeID: emp.ID, UserID: emp.UserID}); err != nil {
		return domain.Employee{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Employee{}, err
	}
	defer tx.Rollback()

	if opts.Phone != nil {
		emp.Phone = *opts.Phone
	}
	if opts.Department != nil {
		emp.Department = *opts.Department
	}
	if opts.Position != nil {
		emp.Position = *opts.Position
	}
	if opts.ManagerID != nil {
		if *opts.ManagerID == "" {
			emp.ManagerID = nil
		} else {
			if _, err := e.Repo.GetEmployeeTx(ctx, tx, *opts.ManagerID); err != nil {
				return domain.Employee{}, fmt.Errorf("manager %s: %w", *opts.ManagerID, err)
			}
			emp.ManagerID = opts.ManagerID
		}
	}
	emp.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateEmployee(ctx, tx, emp); err != nil {
		return domain.Employee{}, err
	}
	if err := e.events().Append(ctx, tx, "employee.updated", "employee", emp.ID, actor.UserID, nil); err != nil {
		return domain.Employee{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Employee{}, err
	}
	return emp, nil
}
