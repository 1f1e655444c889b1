package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"teamline/internal/domain"
	"teamline/internal/events"
	"teamline/internal/policy"
	"teamline/internal/repo"
)

// RecruitmentRequestOptions are parameters for a recruitment request.
type RecruitmentRequestOptions struct {
	Department string
	Position   string
	Reason     string
	Urgency    string
}

// CreateRecruitmentRequest files a pending request for a new hire.
func (e Engine) CreateRecruitmentRequest(ctx context.Context, opts RecruitmentRequestOptions, actor policy.Actor) (domain.Recruitment, error) {
	if err := policy.Require(actor, policy.IntentCreate, policy.RecruitmentTarget{}); err != nil {
		return domain.Recruitment{}, err
	}
	if opts.Department == "" || opts.Position == "" {
		return domain.Recruitment{}, fmt.Errorf("department and position required")
	}
	if opts.Urgency == "" {
		opts.Urgency = "medium"
	}
	now := e.nowRFC3339()
	rec := domain.Recruitment{
		ID:            uuid.New().String(),
		RequestedBy:   actor.EmployeeID,
		Department:    opts.Department,
		Position:      opts.Position,
		RequestReason: opts.Reason,
		Urgency:       opts.Urgency,
		RequestStatus: "pending",
		PostingStatus: "draft",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Recruitment{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertRecruitment(ctx, tx, rec); err != nil {
		return domain.Recruitment{}, fmt.Errorf("insert recruitment: %w", err)
	}
	if err := e.events().Append(ctx, tx, "recruitment.requested", "recruitment", rec.ID, actor.UserID, events.EventPayload{
		"department": rec.Department,
		"position":   rec.Position,
	}); err != nil {
		return domain.Recruitment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Recruitment{}, err
	}
	return rec, nil
}

// DecideRequest approves or rejects a pending recruitment request.
func (e Engine) DecideRequest(ctx context.Context, recruitmentID, decision string, actor policy.Actor) (domain.Recruitment, error) {
	if actor.Role != policy.RoleAdmin {
		return domain.Recruitment{}, policy.ForbiddenError{Intent: policy.IntentApprove, Kind: "recruitment"}
	}
	if decision != "approved" && decision != "rejected" {
		return domain.Recruitment{}, fmt.Errorf("decision must be approved or rejected")
	}
	rec, err := e.Repo.GetRecruitment(ctx, recruitmentID)
	if err != nil {
		return domain.Recruitment{}, err
	}
	if rec.RequestStatus != "pending" {
		return domain.Recruitment{}, InvalidTransitionError{Entity: "recruitment", From: rec.RequestStatus, To: decision}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Recruitment{}, err
	}
	defer tx.Rollback()

	rec.RequestStatus = decision
	rec.ApprovedBy = &actor.UserID
	rec.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateRecruitment(ctx, tx, rec); err != nil {
		return domain.Recruitment{}, err
	}
	if err := e.events().Append(ctx, tx, "recruitment.decided", "recruitment", rec.ID, actor.UserID, events.EventPayload{
		"decision": decision,
	}); err != nil {
		return domain.Recruitment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Recruitment{}, err
	}
	return rec, nil
}

// SetPostingStatus publishes or closes the job posting on an approved
// request.
func (e Engine) SetPostingStatus(ctx context.Context, recruitmentID, status, title, description string, actor policy.Actor) (domain.Recruitment, error) {
	if err := policy.Require(actor, policy.IntentEditMetadata, policy.RecruitmentTarget{}); err != nil {
		return domain.Recruitment{}, err
	}
	if status != "published" && status != "closed" {
		return domain.Recruitment{}, fmt.Errorf("status must be published or closed")
	}
	rec, err := e.Repo.GetRecruitment(ctx, recruitmentID)
	if err != nil {
		return domain.Recruitment{}, err
	}
	if status == "published" {
		if rec.RequestStatus != "approved" {
			return domain.Recruitment{}, InvalidTransitionError{Entity: "recruitment", From: rec.RequestStatus, To: "published"}
		}
		if rec.PostingStatus == "closed" {
			return domain.Recruitment{}, InvalidTransitionError{Entity: "posting", From: rec.PostingStatus, To: status}
		}
	}
	if status == "closed" && rec.PostingStatus != "published" {
		return domain.Recruitment{}, InvalidTransitionError{Entity: "posting", From: rec.PostingStatus, To: status}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Recruitment{}, err
	}
	defer tx.Rollback()

	rec.PostingStatus = status
	if title != "" {
		rec.PostingTitle = title
	}
	if description != "" {
		rec.PostingDescription = description
	}
	rec.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateRecruitment(ctx, tx, rec); err != nil {
		return domain.Recruitment{}, err
	}
	if err := e.events().Append(ctx, tx, "recruitment.posting", "recruitment", rec.ID, actor.UserID, events.EventPayload{
		"posting_status": status,
	}); err != nil {
		return domain.Recruitment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Recruitment{}, err
	}
	return rec, nil
}

// CandidateOptions are parameters for adding a candidate.
type CandidateOptions struct {
	Name  string
	Email string
	Phone string
	Notes string
}

// AddCandidate registers an applicant on a published posting.
func (e Engine) AddCandidate(ctx context.Context, recruitmentID string, opts CandidateOptions, actor policy.Actor) (domain.Candidate, error) {
	if err := policy.Require(actor, policy.IntentEditMetadata, policy.RecruitmentTarget{}); err != nil {
		return domain.Candidate{}, err
	}
	if opts.Name == "" || opts.Email == "" {
		return domain.Candidate{}, fmt.Errorf("name and email required")
	}
	rec, err := e.Repo.GetRecruitment(ctx, recruitmentID)
	if err != nil {
		return domain.Candidate{}, err
	}
	if rec.PostingStatus != "published" {
		return domain.Candidate{}, InvalidTransitionError{Entity: "posting", From: rec.PostingStatus, To: "published"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Candidate{}, err
	}
	defer tx.Rollback()

	c := domain.Candidate{
		ID:            uuid.New().String(),
		RecruitmentID: rec.ID,
		Name:          opts.Name,
		Email:         strings.ToLower(strings.TrimSpace(opts.Email)),
		Phone:         opts.Phone,
		Status:        "applied",
		AppliedAt:     e.nowRFC3339(),
		Notes:         opts.Notes,
	}
	if err := e.Repo.InsertCandidate(ctx, tx, c); err != nil {
		return domain.Candidate{}, fmt.Errorf("insert candidate: %w", err)
	}
	if err := e.events().Append(ctx, tx, "recruitment.candidate.added", "recruitment", rec.ID, actor.UserID, events.EventPayload{
		"candidate_id": c.ID,
	}); err != nil {
		return domain.Candidate{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Candidate{}, err
	}
	return c, nil
}

// SetCandidateStatus moves a candidate through the pipeline. The sub-status
// is advisory; any value from the catalog may follow any other.
func (e Engine) SetCandidateStatus(ctx context.Context, candidateID, status, notes string, actor policy.Actor) (domain.Candidate, error) {
	if err := policy.Require(actor, policy.IntentEditMetadata, policy.RecruitmentTarget{}); err != nil {
		return domain.Candidate{}, err
	}
	switch status {
	case "applied", "shortlisted", "interviewed", "selected", "rejected":
	default:
		return domain.Candidate{}, fmt.Errorf("unknown candidate status %q", status)
	}
	c, err := e.Repo.GetCandidate(ctx, candidateID)
	if err != nil {
		return domain.Candidate{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Candidate{}, err
	}
	defer tx.Rollback()

	c.Status = status
	if notes != "" {
		c.Notes = notes
	}
	if err := e.Repo.UpdateCandidate(ctx, tx, c); err != nil {
		return domain.Candidate{}, err
	}
	if status == "selected" {
		rec, err := e.Repo.GetRecruitmentTx(ctx, tx, c.RecruitmentID)
		if err != nil {
			return domain.Candidate{}, err
		}
		rec.SelectedCandidateID = &c.ID
		rec.UpdatedAt = e.nowRFC3339()
		if err := e.Repo.UpdateRecruitment(ctx, tx, rec); err != nil {
			return domain.Candidate{}, err
		}
	}
	if err := e.events().Append(ctx, tx, "recruitment.candidate.status", "recruitment", c.RecruitmentID, actor.UserID, events.EventPayload{
		"candidate_id": c.ID,
		"status":       status,
	}); err != nil {
		return domain.Candidate{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Candidate{}, err
	}
	return c, nil
}

// HireOptions supply the employee record fields for a hire.
type HireOptions struct {
	Department string
	Position   string
	ManagerID  string
	EmployeeNo string
}

// Hire converts the selected candidate into an employee. The whole operation
// is one transaction: it requires an inactive user account under the
// candidate's email, reactivates it, inserts the employee and marks the
// recruitment hired. If the account is missing nothing is written.
func (e Engine) Hire(ctx context.Context, recruitmentID string, opts HireOptions, actor policy.Actor) (domain.Employee, error) {
	if actor.Role != policy.RoleAdmin {
		return domain.Employee{}, policy.ForbiddenError{Intent: policy.IntentApprove, Kind: "recruitment"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Employee{}, err
	}
	defer tx.Rollback()

	rec, err := e.Repo.GetRecruitmentTx(ctx, tx, recruitmentID)
	if err != nil {
		return domain.Employee{}, err
	}
	if rec.Hired {
		return domain.Employee{}, InvalidTransitionError{Entity: "recruitment", From: "hired", To: "hired"}
	}
	if rec.SelectedCandidateID == nil {
		return domain.Employee{}, fmt.Errorf("no candidate selected")
	}
	c, err := e.Repo.GetCandidateTx(ctx, tx, *rec.SelectedCandidateID)
	if err != nil {
		return domain.Employee{}, err
	}
	u, err := e.Repo.GetUserByEmailTx(ctx, tx, c.Email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Employee{}, fmt.Errorf("no user account for %s: %w", c.Email, repo.ErrNotFound)
		}
		return domain.Employee{}, err
	}
	if u.IsActive {
		return domain.Employee{}, fmt.Errorf("user account %s already active", u.ID)
	}
	if err := e.Repo.SetUserActive(ctx, tx, u.ID, true); err != nil {
		return domain.Employee{}, err
	}

	now := e.nowRFC3339()
	department := opts.Department
	if department == "" {
		department = rec.Department
	}
	position := opts.Position
	if position == "" {
		position = rec.Position
	}
	balance := 20
	if e.Config != nil && e.Config.Leave.DefaultBalance > 0 {
		balance = e.Config.Leave.DefaultBalance
	}
	names := strings.SplitN(c.Name, " ", 2)
	emp := domain.Employee{
		ID:           uuid.New().String(),
		UserID:       u.ID,
		FirstName:    names[0],
		Email:        c.Email,
		Phone:        c.Phone,
		Department:   department,
		Position:     position,
		EmployeeNo:   opts.EmployeeNo,
		HireDate:     now,
		LeaveBalance: balance,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if len(names) > 1 {
		emp.LastName = names[1]
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

	rec.Hired = true
	rec.HiredAt = &now
	rec.PostingStatus = "closed"
	rec.UpdatedAt = now
	if err := e.Repo.UpdateRecruitment(ctx, tx, rec); err != nil {
		return domain.Employee{}, err
	}
	if err := e.events().Append(ctx, tx, "recruitment.hired", "recruitment", rec.ID, actor.UserID, events.EventPayload{
		"candidate_id": c.ID,
		"employee_id":  emp.ID,
	}); err != nil {
		return domain.Employee{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Employee{}, err
	}
	return emp, nil
}
