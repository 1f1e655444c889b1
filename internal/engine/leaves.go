package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"teamline/internal/domain"
	"teamline/internal/events"
	"teamline/internal/policy"
)

// LeaveApplyOptions are parameters for a leave application.
type LeaveApplyOptions struct {
	EmployeeID string
	Type       string
	StartDate  string
	EndDate    string
	Reason     string
}

// LeaveDays computes the inclusive day span of a leave request.
func LeaveDays(startDate, endDate string) (int, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return 0, fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return 0, fmt.Errorf("invalid end_date: %w", err)
	}
	if end.Before(start) {
		return 0, fmt.Errorf("end_date before start_date")
	}
	return int(end.Sub(start).Hours()/24) + 1, nil
}

// ApplyLeave files a pending leave request. The balance is checked here so an
// obviously uncoverable request is refused up front; approval re-checks it
// atomically.
func (e Engine) ApplyLeave(ctx context.Context, opts LeaveApplyOptions, actor policy.Actor) (domain.Leave, error) {
	employeeID := opts.EmployeeID
	if employeeID == "" {
		employeeID = actor.EmployeeID
	}
	if employeeID == "" {
		return domain.Leave{}, fmt.Errorf("employee_id required")
	}
	emp, err := e.Repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return domain.Leave{}, err
	}
	target := policy.LeaveTarget{EmployeeID: emp.ID, EmployeeUserID: emp.UserID}
	if emp.ManagerID != nil {
		target.ManagerID = *emp.ManagerID
	}
	if err := policy.Require(actor, policy.IntentCreate, target); err != nil {
		return domain.Leave{}, err
	}
	if e.Config != nil && !e.Config.LeaveType(opts.Type) {
		return domain.Leave{}, fmt.Errorf("unknown leave type %q", opts.Type)
	}
	days, err := LeaveDays(opts.StartDate, opts.EndDate)
	if err != nil {
		return domain.Leave{}, err
	}
	if opts.Reason == "" {
		return domain.Leave{}, fmt.Errorf("reason required")
	}
	if emp.LeaveBalance < days {
		return domain.Leave{}, InsufficientBalanceError{EmployeeID: emp.ID, Balance: emp.LeaveBalance, Requested: days}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Leave{}, err
	}
	defer tx.Rollback()

	l := domain.Leave{
		ID:         uuid.New().String(),
		EmployeeID: emp.ID,
		Type:       opts.Type,
		StartDate:  opts.StartDate,
		EndDate:    opts.EndDate,
		Days:       days,
		Reason:     opts.Reason,
		Status:     "pending",
		CreatedAt:  e.nowRFC3339(),
	}
	if err := e.Repo.InsertLeave(ctx, tx, l); err != nil {
		return domain.Leave{}, fmt.Errorf("insert leave: %w", err)
	}
	if err := e.events().Append(ctx, tx, "leave.applied", "leave", l.ID, actor.UserID, events.EventPayload{
		"employee_id": emp.ID,
		"days":        days,
		"type":        opts.Type,
	}); err != nil {
		return domain.Leave{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Leave{}, err
	}
	return l, nil
}

// ApproveLeave moves a pending leave to approved and debits the balance. The
// debit is a guarded update re-checked inside the transaction, so two
// overlapping approvals can never push the balance negative.
func (e Engine) ApproveLeave(ctx context.Context, leaveID string, actor policy.Actor) (domain.Leave, error) {
	l, target, err := e.leaveWithTarget(ctx, leaveID)
	if err != nil {
		return domain.Leave{}, err
	}
	if err := policy.Require(actor, policy.IntentApprove, target); err != nil {
		return domain.Leave{}, err
	}
	if l.Status != "pending" {
		return domain.Leave{}, InvalidTransitionError{Entity: "leave", From: l.Status, To: "approved"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Leave{}, err
	}
	defer tx.Rollback()

	l, err = e.Repo.GetLeaveTx(ctx, tx, leaveID)
	if err != nil {
		return domain.Leave{}, err
	}
	if l.Status != "pending" {
		return domain.Leave{}, InvalidTransitionError{Entity: "leave", From: l.Status, To: "approved"}
	}
	ok, err := e.Repo.DebitLeaveBalance(ctx, tx, l.EmployeeID, l.Days)
	if err != nil {
		return domain.Leave{}, err
	}
	if !ok {
		emp, gerr := e.Repo.GetEmployeeTx(ctx, tx, l.EmployeeID)
		if gerr != nil {
			return domain.Leave{}, gerr
		}
		return domain.Leave{}, InsufficientBalanceError{EmployeeID: l.EmployeeID, Balance: emp.LeaveBalance, Requested: l.Days}
	}
	now := e.nowRFC3339()
	l.Status = "approved"
	l.ApprovedBy = &actor.EmployeeID
	l.ReviewedAt = &now
	if err := e.Repo.UpdateLeave(ctx, tx, l); err != nil {
		return domain.Leave{}, err
	}
	if err := e.events().Append(ctx, tx, "leave.approved", "leave", l.ID, actor.UserID, events.EventPayload{
		"employee_id": l.EmployeeID,
		"days":        l.Days,
	}); err != nil {
		return domain.Leave{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Leave{}, err
	}
	return l, nil
}

// RejectLeave moves a pending leave to rejected. A reason is required; the
// balance is untouched.
func (e Engine) RejectLeave(ctx context.Context, leaveID, reason string, actor policy.Actor) (domain.Leave, error) {
	if reason == "" {
		return domain.Leave{}, fmt.Errorf("rejection reason required")
	}
	l, target, err := e.leaveWithTarget(ctx, leaveID)
	if err != nil {
		return domain.Leave{}, err
	}
	if err := policy.Require(actor, policy.IntentReject, target); err != nil {
		return domain.Leave{}, err
	}
	if l.Status != "pending" {
		return domain.Leave{}, InvalidTransitionError{Entity: "leave", From: l.Status, To: "rejected"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Leave{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	l.Status = "rejected"
	l.RejectedBy = &actor.EmployeeID
	l.RejectionReason = reason
	l.ReviewedAt = &now
	if err := e.Repo.UpdateLeave(ctx, tx, l); err != nil {
		return domain.Leave{}, err
	}
	if err := e.events().Append(ctx, tx, "leave.rejected", "leave", l.ID, actor.UserID, events.EventPayload{
		"employee_id": l.EmployeeID,
		"reason":      reason,
	}); err != nil {
		return domain.Leave{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Leave{}, err
	}
	return l, nil
}

// CancelLeave lets the owner withdraw a pending request.
func (e Engine) CancelLeave(ctx context.Context, leaveID string, actor policy.Actor) (domain.Leave, error) {
	l, target, err := e.leaveWithTarget(ctx, leaveID)
	if err != nil {
		return domain.Leave{}, err
	}
	if err := policy.Require(actor, policy.IntentCancel, target); err != nil {
		return domain.Leave{}, err
	}
	if l.Status != "pending" {
		return domain.Leave{}, InvalidTransitionError{Entity: "leave", From: l.Status, To: "cancelled"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Leave{}, err
	}
	defer tx.Rollback()

	l.Status = "cancelled"
	if err := e.Repo.UpdateLeave(ctx, tx, l); err != nil {
		return domain.Leave{}, err
	}
	if err := e.events().Append(ctx, tx, "leave.cancelled", "leave", l.ID, actor.UserID, nil); err != nil {
		return domain.Leave{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Leave{}, err
	}
	return l, nil
}

// FlagLeave marks a leave for audit attention without touching its status.
func (e Engine) FlagLeave(ctx context.Context, leaveID, reason string, actor policy.Actor) (domain.Leave, error) {
	if reason == "" {
		return domain.Leave{}, fmt.Errorf("flag reason required")
	}
	l, target, err := e.leaveWithTarget(ctx, leaveID)
	if err != nil {
		return domain.Leave{}, err
	}
	if err := policy.Require(actor, policy.IntentFlag, target); err != nil {
		return domain.Leave{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Leave{}, err
	}
	defer tx.Rollback()

	l.Flagged = true
	l.FlagReason = reason
	l.FlaggedBy = &actor.EmployeeID
	if err := e.Repo.UpdateLeave(ctx, tx, l); err != nil {
		return domain.Leave{}, err
	}
	if err := e.events().Append(ctx, tx, "leave.flagged", "leave", l.ID, actor.UserID, events.EventPayload{
		"reason": reason,
	}); err != nil {
		return domain.Leave{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Leave{}, err
	}
	return l, nil
}

// OverrideLeave lets an admin flip a decided leave between approved and
// rejected. The balance moves with the decision: a newly approved leave is
// debited, a reversed approval is credited back.
func (e Engine) OverrideLeave(ctx context.Context, leaveID, decision, reason string, actor policy.Actor) (domain.Leave, error) {
	if err := policy.Require(actor, policy.IntentOverride, policy.LeaveTarget{}); err != nil {
		return domain.Leave{}, err
	}
	if decision != "approved" && decision != "rejected" {
		return domain.Leave{}, fmt.Errorf("decision must be approved or rejected")
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Leave{}, err
	}
	defer tx.Rollback()

	l, err := e.Repo.GetLeaveTx(ctx, tx, leaveID)
	if err != nil {
		return domain.Leave{}, err
	}
	if l.Status == "cancelled" {
		return domain.Leave{}, InvalidTransitionError{Entity: "leave", From: l.Status, To: decision}
	}
	if l.Status == decision {
		if err := tx.Commit(); err != nil {
			return domain.Leave{}, err
		}
		return l, nil
	}
	wasApproved := l.Status == "approved"
	now := e.nowRFC3339()
	if decision == "approved" {
		ok, err := e.Repo.DebitLeaveBalance(ctx, tx, l.EmployeeID, l.Days)
		if err != nil {
			return domain.Leave{}, err
		}
		if !ok {
			emp, gerr := e.Repo.GetEmployeeTx(ctx, tx, l.EmployeeID)
			if gerr != nil {
				return domain.Leave{}, gerr
			}
			return domain.Leave{}, InsufficientBalanceError{EmployeeID: l.EmployeeID, Balance: emp.LeaveBalance, Requested: l.Days}
		}
		l.Status = "approved"
		l.ApprovedBy = &actor.EmployeeID
		l.RejectedBy = nil
		l.RejectionReason = ""
	} else {
		if wasApproved {
			if err := e.Repo.CreditLeaveBalance(ctx, tx, l.EmployeeID, l.Days); err != nil {
				return domain.Leave{}, err
			}
		}
		if reason == "" {
			reason = "overridden"
		}
		l.Status = "rejected"
		l.RejectedBy = &actor.EmployeeID
		l.RejectionReason = reason
		l.ApprovedBy = nil
	}
	l.ReviewedAt = &now
	if err := e.Repo.UpdateLeave(ctx, tx, l); err != nil {
		return domain.Leave{}, err
	}
	if err := e.events().Append(ctx, tx, "leave.overridden", "leave", l.ID, actor.UserID, events.EventPayload{
		"decision": decision,
	}); err != nil {
		return domain.Leave{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Leave{}, err
	}
	return l, nil
}

func (e Engine) GetLeave(ctx context.Context, leaveID string, actor policy.Actor) (domain.Leave, error) {
	l, target, err := e.leaveWithTarget(ctx, leaveID)
	if err != nil {
		return domain.Leave{}, err
	}
	if err := policy.Require(actor, policy.IntentView, target); err != nil {
		return domain.Leave{}, err
	}
	return l, nil
}

func (e Engine) leaveWithTarget(ctx context.Context, leaveID string) (domain.Leave, policy.LeaveTarget, error) {
	l, err := e.Repo.GetLeave(ctx, leaveID)
	if err != nil {
		return domain.Leave{}, policy.LeaveTarget{}, err
	}
	emp, err := e.Repo.GetEmployee(ctx, l.EmployeeID)
	if err != nil {
		return domain.Leave{}, policy.LeaveTarget{}, err
	}
	target := policy.LeaveTarget{EmployeeID: emp.ID, EmployeeUserID: emp.UserID}
	if emp.ManagerID != nil {
		target.ManagerID = *emp.ManagerID
	}
	return l, target, nil
}
