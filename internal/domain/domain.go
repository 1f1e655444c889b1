package domain

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role" enum:"admin,hr,pm,employee,client"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Employee struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	FirstName         string  `json:"first_name"`
	LastName          string  `json:"last_name"`
	Email             string  `json:"email"`
	Phone             string  `json:"phone,omitempty"`
	Department        string  `json:"department"`
	Position          string  `json:"position"`
	EmployeeNo        string  `json:"employee_no"`
	HireDate          string  `json:"hire_date" format:"date-time"`
	ManagerID         *string `json:"manager_id,omitempty"`
	LeaveBalance      int     `json:"leave_balance"`
	Terminated        bool    `json:"terminated"`
	TerminationDate   *string `json:"termination_date,omitempty" format:"date-time"`
	TerminationReason string  `json:"termination_reason,omitempty"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
	UpdatedAt         string  `json:"updated_at" format:"date-time"`
}

type Document struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	ContentJSON  string  `json:"content_json"`
	ProjectID    *string `json:"project_id,omitempty"`
	TaskID       *string `json:"task_id,omitempty"`
	CreatedBy    string  `json:"created_by"`
	IsLiveShared bool    `json:"is_live_shared"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
	UpdatedAt    string  `json:"updated_at" format:"date-time"`
}

// DocumentVersion rows are append-only; version numbers are strictly
// increasing per document starting at 1.
type DocumentVersion struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	VersionNumber int    `json:"version_number"`
	ContentJSON   string `json:"content_json"`
	CreatedBy     string `json:"created_by"`
	CreatedAt     string `json:"created_at" format:"date-time"`
}

type DocumentShare struct {
	DocumentID      string  `json:"document_id"`
	UserID          string  `json:"user_id"`
	Mode            string  `json:"mode" enum:"live,static"`
	PinnedVersionID *string `json:"pinned_version_id,omitempty"`
	SharedAt        string  `json:"shared_at" format:"date-time"`
}

type LiveEditor struct {
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
	JoinedAt   string `json:"joined_at" format:"date-time"`
}

type Task struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	ProjectID      string   `json:"project_id"`
	AssignedTo     []string `json:"assigned_to"`
	CreatedBy      string   `json:"created_by"`
	Status         string   `json:"status" enum:"todo,in-progress,review,completed,rejected"`
	Priority       string   `json:"priority" enum:"low,medium,high,urgent"`
	Deadline       *string  `json:"deadline,omitempty" format:"date-time"`
	Progress       int      `json:"progress"`
	MilestonesJSON *string  `json:"milestones_json,omitempty"`
	SubmittedAt    *string  `json:"submitted_at,omitempty" format:"date-time"`
	ReviewedAt     *string  `json:"reviewed_at,omitempty" format:"date-time"`
	ReviewedBy     *string  `json:"reviewed_by,omitempty"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
	UpdatedAt      string   `json:"updated_at" format:"date-time"`
}

type TaskFeedback struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	Message   string `json:"message"`
	GivenBy   string `json:"given_by"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Leave struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	Type            string  `json:"type" enum:"sick,vacation,personal,maternity,paternity,emergency"`
	StartDate       string  `json:"start_date" format:"date"`
	EndDate         string  `json:"end_date" format:"date"`
	Days            int     `json:"days"`
	Reason          string  `json:"reason"`
	Status          string  `json:"status" enum:"pending,approved,rejected,cancelled"`
	ApprovedBy      *string `json:"approved_by,omitempty"`
	RejectedBy      *string `json:"rejected_by,omitempty"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	ReviewedAt      *string `json:"reviewed_at,omitempty" format:"date-time"`
	Flagged         bool    `json:"flagged"`
	FlagReason      string  `json:"flag_reason,omitempty"`
	FlaggedBy       *string `json:"flagged_by,omitempty"`
	CreatedAt       string  `json:"created_at" format:"date-time"`
}

type Project struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status" enum:"pending,approved,active,on-hold,completed,cancelled"`
	PMID        string   `json:"pm_id"`
	Team        []string `json:"team"`
	ClientID    *string  `json:"client_id,omitempty"`
	ApprovedBy  *string  `json:"approved_by,omitempty"`
	ApprovedAt  *string  `json:"approved_at,omitempty" format:"date-time"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
}

type Client struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Company   string `json:"company,omitempty"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Recruitment struct {
	ID                  string  `json:"id"`
	RequestedBy         string  `json:"requested_by"`
	Department          string  `json:"department"`
	Position            string  `json:"position"`
	RequestReason       string  `json:"request_reason,omitempty"`
	Urgency             string  `json:"urgency" enum:"low,medium,high"`
	RequestStatus       string  `json:"request_status" enum:"pending,approved,rejected"`
	PostingTitle        string  `json:"posting_title,omitempty"`
	PostingDescription  string  `json:"posting_description,omitempty"`
	PostingStatus       string  `json:"posting_status" enum:"draft,published,closed"`
	SelectedCandidateID *string `json:"selected_candidate_id,omitempty"`
	ApprovedBy          *string `json:"approved_by,omitempty"`
	Hired               bool    `json:"hired"`
	HiredAt             *string `json:"hired_at,omitempty" format:"date-time"`
	CreatedAt           string  `json:"created_at" format:"date-time"`
	UpdatedAt           string  `json:"updated_at" format:"date-time"`
}

type Candidate struct {
	ID            string `json:"id"`
	RecruitmentID string `json:"recruitment_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Status        string `json:"status" enum:"applied,shortlisted,interviewed,selected,rejected"`
	AppliedAt     string `json:"applied_at" format:"date-time"`
	Notes         string `json:"notes,omitempty"`
}

type Attendance struct {
	ID               string   `json:"id"`
	EmployeeID       string   `json:"employee_id"`
	Date             string   `json:"date" format:"date"`
	CheckInTime      string   `json:"check_in_time" format:"date-time"`
	CheckInLocation  string   `json:"check_in_location" enum:"onsite,remote"`
	CheckOutTime     *string  `json:"check_out_time,omitempty" format:"date-time"`
	CheckOutLocation *string  `json:"check_out_location,omitempty"`
	TotalHours       *float64 `json:"total_hours,omitempty"`
	Status           string   `json:"status" enum:"present,absent,half-day,leave"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
