package server

import (
	"teamline/internal/domain"
)

// Request payloads

type CreateEmployeeRequest struct {
	Email      string  `json:"email" format:"email"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Department string  `json:"department"`
	Position   string  `json:"position"`
	EmployeeNo *string `json:"employee_no,omitempty"`
	ManagerID  *string `json:"manager_id,omitempty"`
	Role       *string `json:"role,omitempty" enum:"employee,pm,hr"`
}

type UpdateEmployeeRequest struct {
	Phone      *string `json:"phone,omitempty"`
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
	ManagerID  *string `json:"manager_id,omitempty"`
}

type TerminateEmployeeRequest struct {
	Reason string `json:"reason"`
}

type CreateDocumentRequest struct {
	Title     string         `json:"title"`
	Content   map[string]any `json:"content,omitempty"`
	ProjectID *string        `json:"project_id,omitempty"`
	TaskID    *string        `json:"task_id,omitempty"`
}

type AppendVersionRequest struct {
	Content map[string]any `json:"content"`
}

type ShareDocumentRequest struct {
	UserID string `json:"user_id"`
	Mode   string `json:"mode" enum:"live,static"`
}

type UpdateDocumentRequest struct {
	Title string `json:"title"`
}

type CreateTaskRequest struct {
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	ProjectID   string         `json:"project_id"`
	AssignedTo  []string       `json:"assigned_to,omitempty"`
	Priority    *string        `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	Deadline    *string        `json:"deadline,omitempty" format:"date-time"`
	Milestones  map[string]any `json:"milestones,omitempty"`
}

type UpdateTaskRequest struct {
	Status     *string        `json:"status,omitempty" enum:"todo,in-progress"`
	Progress   *int           `json:"progress,omitempty" minimum:"0" maximum:"100"`
	Milestones map[string]any `json:"milestones,omitempty"`
}

type ReviewTaskRequest struct {
	Decision string  `json:"decision" enum:"accept,reject"`
	Message  *string `json:"message,omitempty"`
}

type ApplyLeaveRequest struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	Type       string  `json:"type"`
	StartDate  string  `json:"start_date" format:"date"`
	EndDate    string  `json:"end_date" format:"date"`
	Reason     string  `json:"reason"`
}

type RejectLeaveRequest struct {
	Reason string `json:"reason"`
}

type FlagLeaveRequest struct {
	Reason string `json:"reason"`
}

type OverrideLeaveRequest struct {
	Decision string  `json:"decision" enum:"approved,rejected"`
	Reason   *string `json:"reason,omitempty"`
}

type CreateProjectRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Team        []string `json:"team,omitempty"`
	ClientID    *string  `json:"client_id,omitempty"`
}

type SetProjectStatusRequest struct {
	Status string `json:"status" enum:"active,on-hold,completed,cancelled"`
}

type SetProjectTeamRequest struct {
	Team []string `json:"team"`
}

type CreateClientRequest struct {
	Name    string  `json:"name"`
	Company *string `json:"company,omitempty"`
	Email   string  `json:"email" format:"email"`
}

type CreateRecruitmentRequest struct {
	Department string  `json:"department"`
	Position   string  `json:"position"`
	Reason     *string `json:"reason,omitempty"`
	Urgency    *string `json:"urgency,omitempty" enum:"low,medium,high"`
}

type DecideRecruitmentRequest struct {
	Decision string `json:"decision" enum:"approved,rejected"`
}

type SetPostingRequest struct {
	Status      string  `json:"status" enum:"published,closed"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type AddCandidateRequest struct {
	Name  string  `json:"name"`
	Email string  `json:"email" format:"email"`
	Phone *string `json:"phone,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

type SetCandidateStatusRequest struct {
	Status string  `json:"status" enum:"applied,shortlisted,interviewed,selected,rejected"`
	Notes  *string `json:"notes,omitempty"`
}

type HireRequest struct {
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
	ManagerID  *string `json:"manager_id,omitempty"`
	EmployeeNo *string `json:"employee_no,omitempty"`
}

type CheckInRequest struct {
	Location *string `json:"location,omitempty" enum:"onsite,remote"`
}

type CheckOutRequest struct {
	Location *string `json:"location,omitempty" enum:"onsite,remote"`
}

type CreateAPIKeyRequest struct {
	UserID string  `json:"user_id"`
	Key    string  `json:"key"`
	Name   *string `json:"name,omitempty"`
}

// Composite responses

type DocumentResponse struct {
	domain.Document
	Shares      []domain.DocumentShare `json:"shares,omitempty"`
	LiveEditors []domain.LiveEditor    `json:"live_editors,omitempty"`
}

type TaskResponse struct {
	domain.Task
	Feedback []domain.TaskFeedback `json:"feedback,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
