package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"teamline/internal/domain"
	"teamline/internal/events"
	"teamline/internal/policy"
)

// ProjectCreateOptions are parameters for creating a project.
type ProjectCreateOptions struct {
	ID          string
	Name        string
	Description string
	Team        []string
	ClientID    string
}

// CreateProject inserts a pending project managed by the creating PM.
func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions, actor policy.Actor) (domain.Project, error) {
	if err := policy.Require(actor, policy.IntentCreate, policy.ProjectTarget{}); err != nil {
		return domain.Project{}, err
	}
	if opts.Name == "" {
		return domain.Project{}, fmt.Errorf("name required")
	}
	if actor.EmployeeID == "" {
		return domain.Project{}, fmt.Errorf("actor has no employee record")
	}
	now := e.nowRFC3339()
	p := domain.Project{
		ID:          opts.ID,
		Name:        opts.Name,
		Description: opts.Description,
		Status:      "pending",
		PMID:        actor.EmployeeID,
		Team:        opts.Team,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if opts.ClientID != "" {
		p.ClientID = &opts.ClientID
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if opts.ClientID != "" {
		if _, err := e.Repo.GetClient(ctx, opts.ClientID); err != nil {
			return domain.Project{}, fmt.Errorf("client %s: %w", opts.ClientID, err)
		}
	}
	for _, empID := range opts.Team {
		if _, err := e.Repo.GetEmployeeTx(ctx, tx, empID); err != nil {
			return domain.Project{}, fmt.Errorf("employee %s: %w", empID, err)
		}
	}
	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if err := e.events().Append(ctx, tx, "project.created", "project", p.ID, actor.UserID, events.EventPayload{
		"name":   p.Name,
		"status": p.Status,
	}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// ApproveProject is the single admin-gated transition: pending -> approved,
// stamping approver and timestamp.
func (e Engine) ApproveProject(ctx context.Context, projectID string, actor policy.Actor) (domain.Project, error) {
	if err := policy.Require(actor, policy.IntentApprove, policy.ProjectTarget{}); err != nil {
		return domain.Project{}, err
	}
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if p.Status != "pending" {
		return domain.Project{}, InvalidTransitionError{Entity: "project", From: p.Status, To: "approved"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	p.Status = "approved"
	p.ApprovedBy = &actor.UserID
	p.ApprovedAt = &now
	p.UpdatedAt = now
	if err := e.Repo.UpdateProject(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.events().Append(ctx, tx, "project.approved", "project", p.ID, actor.UserID, nil); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// SetProjectStatus moves an approved project across the open working
// statuses. A pending project only exits through ApproveProject or a cancel.
func (e Engine) SetProjectStatus(ctx context.Context, projectID, status string, actor policy.Actor) (domain.Project, error) {
	switch status {
	case "active", "on-hold", "completed", "cancelled":
	default:
		return domain.Project{}, fmt.Errorf("status must be one of active, on-hold, completed, cancelled")
	}
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	target := policy.ProjectTarget{PMID: p.PMID, TeamIDs: p.Team}
	if err := policy.Require(actor, policy.IntentEditMetadata, target); err != nil {
		return domain.Project{}, err
	}
	if p.Status == "pending" && status != "cancelled" {
		return domain.Project{}, InvalidTransitionError{Entity: "project", From: p.Status, To: status}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	from := p.Status
	p.Status = status
	p.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateProject(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.events().Append(ctx, tx, "project.status", "project", p.ID, actor.UserID, events.EventPayload{
		"from_status": from,
		"to_status":   status,
	}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// SetProjectTeam replaces the project's team membership.
func (e Engine) SetProjectTeam(ctx context.Context, projectID string, team []string, actor policy.Actor) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	target := policy.ProjectTarget{PMID: p.PMID, TeamIDs: p.Team}
	if err := policy.Require(actor, policy.IntentEditMetadata, target); err != nil {
		return domain.Project{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	for _, empID := range team {
		if _, err := e.Repo.GetEmployeeTx(ctx, tx, empID); err != nil {
			return domain.Project{}, fmt.Errorf("employee %s: %w", empID, err)
		}
	}
	if err := e.Repo.SetProjectTeam(ctx, tx, projectID, team); err != nil {
		return domain.Project{}, err
	}
	p.Team = team
	p.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateProject(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.events().Append(ctx, tx, "project.team", "project", p.ID, actor.UserID, events.EventPayload{
		"team_size": len(team),
	}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (e Engine) GetProject(ctx context.Context, projectID string, actor policy.Actor) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	target := policy.ProjectTarget{PMID: p.PMID, TeamIDs: p.Team}
	if err := policy.Require(actor, policy.IntentView, target); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// ClientOptions are parameters for registering a client.
type ClientOptions struct {
	Name    string
	Company string
	Email   string
}

func (e Engine) CreateClient(ctx context.Context, opts ClientOptions, actor policy.Actor) (domain.Client, error) {
	if actor.Role != policy.RoleAdmin && actor.Role != policy.RolePM {
		return domain.Client{}, policy.ForbiddenError{Intent: policy.IntentCreate, Kind: "client"}
	}
	if opts.Name == "" || opts.Email == "" {
		return domain.Client{}, fmt.Errorf("name and email required")
	}
	c := domain.Client{
		ID:        uuid.New().String(),
		Name:      opts.Name,
		Company:   opts.Company,
		Email:     opts.Email,
		CreatedAt: e.nowRFC3339(),
	}
	if err := e.Repo.InsertClient(ctx, nil, c); err != nil {
		return domain.Client{}, fmt.Errorf("insert client: %w", err)
	}
	return c, nil
}
