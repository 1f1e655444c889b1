// Package policy decides whether an actor may perform an intent against an
// entity. It is a pure predicate over the actor's role and its relationship
// to the target; all data access happens before the call.
package policy

import "fmt"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHR       Role = "hr"
	RolePM       Role = "pm"
	RoleEmployee Role = "employee"
	RoleClient   Role = "client"
)

type Intent string

const (
	IntentView            Intent = "view"
	IntentCreate          Intent = "create"
	IntentEditContent     Intent = "edit-content"
	IntentEditMetadata    Intent = "edit-metadata"
	IntentShare           Intent = "share"
	IntentApprove         Intent = "approve"
	IntentReject          Intent = "reject"
	IntentCancel          Intent = "cancel"
	IntentFlag            Intent = "flag"
	IntentOverride        Intent = "override"
	IntentTerminate       Intent = "terminate"
	IntentSubmitForReview Intent = "submit-for-review"
	IntentReview          Intent = "review"
)

// Actor is the identity performing an intent, resolved once per request.
type Actor struct {
	UserID     string
	EmployeeID string
	Role       Role
}

// Target is a relation snapshot of the entity being acted on. Implementations
// carry only the reference fields the rules need.
type Target interface {
	Kind() string
}

type DocumentTarget struct {
	CreatorID    string   // employee id
	SharedWith   []string // user ids with any share
	LiveEditors  []string // user ids
	IsLiveShared bool
	TeamIDs      []string // employee ids of the owning project's team
}

func (DocumentTarget) Kind() string { return "document" }

type TaskTarget struct {
	CreatorID   string
	AssigneeIDs []string
}

func (TaskTarget) Kind() string { return "task" }

type LeaveTarget struct {
	EmployeeID     string // employee the leave belongs to
	EmployeeUserID string
	ManagerID      string // direct manager of that employee
}

func (LeaveTarget) Kind() string { return "leave" }

type ProjectTarget struct {
	PMID    string
	TeamIDs []string
}

func (ProjectTarget) Kind() string { return "project" }

type RecruitmentTarget struct {
	RequestedBy string
}

func (RecruitmentTarget) Kind() string { return "recruitment" }

type EmployeeTarget struct {
	EmployeeID string
	UserID     string
}

func (EmployeeTarget) Kind() string { return "employee" }

type AttendanceTarget struct {
	EmployeeID string
}

func (AttendanceTarget) Kind() string { return "attendance" }

// ForbiddenError indicates the actor may not perform the intent.
type ForbiddenError struct {
	Intent Intent
	Kind   string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("intent %s forbidden on %s", e.Intent, e.Kind)
}

type rule struct {
	intents []Intent
	allow   func(a Actor, t Target) bool
}

// rules are evaluated top-down per entity kind; the first rule covering the
// intent decides. Admin short-circuits before the table is consulted.
var rules = map[string][]rule{
	"document": {
		{intents: []Intent{IntentEditContent, IntentEditMetadata, IntentView, IntentShare},
			allow: func(a Actor, t Target) bool {
				return t.(DocumentTarget).CreatorID != "" && t.(DocumentTarget).CreatorID == a.EmployeeID
			}},
		{intents: []Intent{IntentEditContent},
			allow: func(a Actor, t Target) bool {
				d := t.(DocumentTarget)
				return d.IsLiveShared && contains(d.LiveEditors, a.UserID)
			}},
		{intents: []Intent{IntentShare},
			allow: func(a Actor, t Target) bool { return a.Role == RolePM }},
		{intents: []Intent{IntentView},
			allow: func(a Actor, t Target) bool {
				d := t.(DocumentTarget)
				return contains(d.SharedWith, a.UserID) || contains(d.TeamIDs, a.EmployeeID)
			}},
		{intents: []Intent{IntentCreate},
			allow: func(a Actor, t Target) bool { return a.Role == RolePM || a.Role == RoleEmployee }},
	},
	"task": {
		{intents: []Intent{IntentCreate, IntentReview, IntentEditMetadata},
			allow: func(a Actor, t Target) bool { return a.Role == RolePM }},
		{intents: []Intent{IntentSubmitForReview, IntentEditMetadata},
			allow: func(a Actor, t Target) bool {
				return a.Role == RoleEmployee && contains(t.(TaskTarget).AssigneeIDs, a.EmployeeID)
			}},
		{intents: []Intent{IntentView},
			allow: func(a Actor, t Target) bool {
				tt := t.(TaskTarget)
				return contains(tt.AssigneeIDs, a.EmployeeID) || tt.CreatorID == a.EmployeeID
			}},
	},
	"leave": {
		{intents: []Intent{IntentCreate},
			allow: func(a Actor, t Target) bool {
				if a.Role == RoleHR {
					return true
				}
				return (a.Role == RoleEmployee || a.Role == RolePM) && t.(LeaveTarget).EmployeeID == a.EmployeeID
			}},
		{intents: []Intent{IntentView, IntentCancel},
			allow: func(a Actor, t Target) bool { return t.(LeaveTarget).EmployeeID == a.EmployeeID }},
		{intents: []Intent{IntentApprove, IntentReject},
			allow: func(a Actor, t Target) bool {
				l := t.(LeaveTarget)
				return a.Role == RolePM && l.ManagerID != "" && l.ManagerID == a.EmployeeID
			}},
		{intents: []Intent{IntentFlag, IntentView},
			allow: func(a Actor, t Target) bool { return a.Role == RoleHR }},
	},
	"project": {
		{intents: []Intent{IntentCreate},
			allow: func(a Actor, t Target) bool { return a.Role == RolePM }},
		{intents: []Intent{IntentEditMetadata},
			allow: func(a Actor, t Target) bool {
				return a.Role == RolePM && t.(ProjectTarget).PMID == a.EmployeeID
			}},
		{intents: []Intent{IntentView},
			allow: func(a Actor, t Target) bool {
				p := t.(ProjectTarget)
				return a.Role == RoleHR || p.PMID == a.EmployeeID || contains(p.TeamIDs, a.EmployeeID)
			}},
	},
	"recruitment": {
		{intents: []Intent{IntentCreate},
			allow: func(a Actor, t Target) bool { return a.Role == RolePM }},
		{intents: []Intent{IntentEditMetadata, IntentView},
			allow: func(a Actor, t Target) bool { return a.Role == RoleHR }},
		{intents: []Intent{IntentView},
			allow: func(a Actor, t Target) bool { return t.(RecruitmentTarget).RequestedBy == a.EmployeeID }},
	},
	"employee": {
		{intents: []Intent{IntentCreate, IntentEditMetadata, IntentTerminate},
			allow: func(a Actor, t Target) bool { return a.Role == RoleHR }},
		{intents: []Intent{IntentView},
			allow: func(a Actor, t Target) bool { return a.Role != RoleClient }},
	},
	"attendance": {
		{intents: []Intent{IntentCreate, IntentView, IntentEditMetadata},
			allow: func(a Actor, t Target) bool { return t.(AttendanceTarget).EmployeeID == a.EmployeeID }},
		{intents: []Intent{IntentView},
			allow: func(a Actor, t Target) bool { return a.Role == RoleHR }},
	},
}

// CanAct reports whether the actor may perform intent on target.
func CanAct(a Actor, intent Intent, target Target) bool {
	if a.Role == RoleAdmin {
		return true
	}
	for _, r := range rules[target.Kind()] {
		if !coversIntent(r.intents, intent) {
			continue
		}
		if r.allow(a, target) {
			return true
		}
	}
	return false
}

// Require is CanAct with a typed error for the deny path.
func Require(a Actor, intent Intent, target Target) error {
	if CanAct(a, intent, target) {
		return nil
	}
	return ForbiddenError{Intent: intent, Kind: target.Kind()}
}

func coversIntent(intents []Intent, intent Intent) bool {
	for _, i := range intents {
		if i == intent {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
