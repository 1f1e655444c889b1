package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"teamline/internal/domain"
	"teamline/internal/events"
	"teamline/internal/policy"
)

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	ID             string
	Title          string
	Description    string
	ProjectID      string
	AssignedTo     []string
	Priority       string
	Deadline       string
	MilestonesJSON string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions, actor policy.Actor) (domain.Task, error) {
	if err := policy.Require(actor, policy.IntentCreate, policy.TaskTarget{}); err != nil {
		return domain.Task{}, err
	}
	if opts.Title == "" {
		return domain.Task{}, fmt.Errorf("title required")
	}
	if opts.ProjectID == "" {
		return domain.Task{}, fmt.Errorf("project_id required")
	}
	if opts.Priority == "" {
		opts.Priority = "medium"
	}
	now := e.nowRFC3339()
	t := domain.Task{
		ID:          opts.ID,
		Title:       opts.Title,
		Description: opts.Description,
		ProjectID:   opts.ProjectID,
		AssignedTo:  opts.AssignedTo,
		CreatedBy:   actor.EmployeeID,
		Status:      "todo",
		Priority:    opts.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if opts.Deadline != "" {
		t.Deadline = &opts.Deadline
	}
	if opts.MilestonesJSON != "" {
		t.MilestonesJSON = &opts.MilestonesJSON
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetProjectTx(ctx, tx, opts.ProjectID); err != nil {
		return domain.Task{}, fmt.Errorf("project %s: %w", opts.ProjectID, err)
	}
	for _, empID := range opts.AssignedTo {
		if _, err := e.Repo.GetEmployeeTx(ctx, tx, empID); err != nil {
			return domain.Task{}, fmt.Errorf("employee %s: %w", empID, err)
		}
	}
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if err := e.events().Append(ctx, tx, "task.created", "task", t.ID, actor.UserID, events.EventPayload{
		"title":  t.Title,
		"status": t.Status,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// SubmitForReview moves an assignee's task from todo or in-progress to review.
func (e Engine) SubmitForReview(ctx context.Context, taskID string, actor policy.Actor) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := policy.Require(actor, policy.IntentSubmitForReview, taskTarget(t)); err != nil {
		return domain.Task{}, err
	}
	if t.Status != "todo" && t.Status != "in-progress" {
		return domain.Task{}, InvalidTransitionError{Entity: "task", From: t.Status, To: "review"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	from := t.Status
	t.Status = "review"
	t.SubmittedAt = &now
	t.UpdatedAt = now
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.events().Append(ctx, tx, "task.submitted", "task", t.ID, actor.UserID, events.EventPayload{
		"from_status": from,
		"to_status":   t.Status,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// ReviewTask accepts or rejects a task in review. Accepting completes the
// task and forces progress to 100; rejecting sends it back to in-progress
// and records feedback when a message is supplied.
func (e Engine) ReviewTask(ctx context.Context, taskID, decision, message string, actor policy.Actor) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := policy.Require(actor, policy.IntentReview, taskTarget(t)); err != nil {
		return domain.Task{}, err
	}
	var to string
	switch decision {
	case "accept":
		to = "completed"
	case "reject":
		to = "in-progress"
	default:
		return domain.Task{}, fmt.Errorf("decision must be accept or reject")
	}
	if t.Status != "review" {
		return domain.Task{}, InvalidTransitionError{Entity: "task", From: t.Status, To: to}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	from := t.Status
	t.Status = to
	t.ReviewedAt = &now
	t.ReviewedBy = &actor.EmployeeID
	t.UpdatedAt = now
	if to == "completed" {
		t.Progress = 100
	}
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if decision == "reject" && message != "" {
		fb := domain.TaskFeedback{
			ID:        uuid.New().String(),
			TaskID:    t.ID,
			Message:   message,
			GivenBy:   actor.EmployeeID,
			CreatedAt: now,
		}
		if err := e.Repo.InsertTaskFeedback(ctx, tx, fb); err != nil {
			return domain.Task{}, fmt.Errorf("insert feedback: %w", err)
		}
	}
	if err := e.events().Append(ctx, tx, "task.reviewed", "task", t.ID, actor.UserID, events.EventPayload{
		"decision":    decision,
		"from_status": from,
		"to_status":   t.Status,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// TaskUpdateOptions are the assignee-editable task fields.
type TaskUpdateOptions struct {
	Progress       *int
	MilestonesJSON *string
	Status         string
}

// UpdateTask lets assignees and the task's PM adjust progress, milestones
// and the todo/in-progress working states. Review entry and exit go through
// SubmitForReview and ReviewTask.
func (e Engine) UpdateTask(ctx context.Context, taskID string, opts TaskUpdateOptions, actor policy.Actor) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := policy.Require(actor, policy.IntentEditMetadata, taskTarget(t)); err != nil {
		return domain.Task{}, err
	}
	if opts.Status != "" {
		if err := ensureTaskWorkingTransition(t.Status, opts.Status); err != nil {
			return domain.Task{}, err
		}
	}
	if opts.Progress != nil && (*opts.Progress < 0 || *opts.Progress > 100) {
		return domain.Task{}, fmt.Errorf("progress must be within 0..100")
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	from := t.Status
	if opts.Status != "" {
		t.Status = opts.Status
	}
	if opts.Progress != nil {
		t.Progress = *opts.Progress
	}
	if opts.MilestonesJSON != nil {
		t.MilestonesJSON = opts.MilestonesJSON
	}
	t.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.events().Append(ctx, tx, "task.updated", "task", t.ID, actor.UserID, events.EventPayload{
		"from_status": from,
		"to_status":   t.Status,
		"progress":    t.Progress,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// ensureTaskWorkingTransition guards the open todo/in-progress moves; every
// other status change belongs to the review cycle.
func ensureTaskWorkingTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case "todo":
		if newStatus == "in-progress" {
			return nil
		}
	case "in-progress":
		if newStatus == "todo" {
			return nil
		}
	case "rejected":
		if newStatus == "in-progress" {
			return nil
		}
	}
	return InvalidTransitionError{Entity: "task", From: oldStatus, To: newStatus}
}

func (e Engine) GetTask(ctx context.Context, taskID string, actor policy.Actor) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := policy.Require(actor, policy.IntentView, taskTarget(t)); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (e Engine) ListTaskFeedback(ctx context.Context, taskID string, actor policy.Actor) ([]domain.TaskFeedback, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := policy.Require(actor, policy.IntentView, taskTarget(t)); err != nil {
		return nil, err
	}
	return e.Repo.ListTaskFeedback(ctx, taskID)
}

func taskTarget(t domain.Task) policy.TaskTarget {
	return policy.TaskTarget{CreatorID: t.CreatedBy, AssigneeIDs: t.AssignedTo}
}
