package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamline/internal/policy"
)

func TestCanAct(t *testing.T) {
	admin := policy.Actor{UserID: "u-admin", Role: policy.RoleAdmin}
	hr := policy.Actor{UserID: "u-hr", EmployeeID: "e-hr", Role: policy.RoleHR}
	pm := policy.Actor{UserID: "u-pm", EmployeeID: "e-pm", Role: policy.RolePM}
	dev := policy.Actor{UserID: "u-dev", EmployeeID: "e-dev", Role: policy.RoleEmployee}
	client := policy.Actor{UserID: "u-client", Role: policy.RoleClient}

	doc := policy.DocumentTarget{
		CreatorID:    "e-dev",
		SharedWith:   []string{"u-hr"},
		LiveEditors:  []string{"u-hr"},
		IsLiveShared: true,
		TeamIDs:      []string{"e-pm"},
	}
	staticDoc := policy.DocumentTarget{
		CreatorID:   "e-dev",
		SharedWith:  []string{"u-hr"},
		LiveEditors: []string{"u-hr"},
	}
	task := policy.TaskTarget{CreatorID: "e-pm", AssigneeIDs: []string{"e-dev"}}
	leave := policy.LeaveTarget{EmployeeID: "e-dev", EmployeeUserID: "u-dev", ManagerID: "e-pm"}
	unmanaged := policy.LeaveTarget{EmployeeID: "e-dev", EmployeeUserID: "u-dev"}
	project := policy.ProjectTarget{PMID: "e-pm", TeamIDs: []string{"e-dev"}}
	rec := policy.RecruitmentTarget{RequestedBy: "e-pm"}

	cases := []struct {
		name   string
		actor  policy.Actor
		intent policy.Intent
		target policy.Target
		want   bool
	}{
		{"admin anything", admin, policy.IntentTerminate, policy.EmployeeTarget{}, true},

		{"creator edits content", dev, policy.IntentEditContent, doc, true},
		{"creator shares", dev, policy.IntentShare, doc, true},
		{"live editor edits content", hr, policy.IntentEditContent, doc, true},
		{"live grant dead without live flag", hr, policy.IntentEditContent, staticDoc, false},
		{"shared user views", hr, policy.IntentView, doc, true},
		{"team member views", pm, policy.IntentView, doc, true},
		{"outsider cannot view", client, policy.IntentView, doc, false},
		{"pm shares any document", pm, policy.IntentShare, doc, true},
		{"employee creates documents", dev, policy.IntentCreate, policy.DocumentTarget{}, true},
		{"client cannot create documents", client, policy.IntentCreate, policy.DocumentTarget{}, false},

		{"pm creates tasks", pm, policy.IntentCreate, policy.TaskTarget{}, true},
		{"pm reviews", pm, policy.IntentReview, task, true},
		{"assignee submits", dev, policy.IntentSubmitForReview, task, true},
		{"assignee cannot review", dev, policy.IntentReview, task, false},
		{"non-assignee cannot submit", hr, policy.IntentSubmitForReview, task, false},
		{"creator views task", pm, policy.IntentView, task, true},
		{"assignee views task", dev, policy.IntentView, task, true},
		{"hr cannot view unrelated task", hr, policy.IntentView, task, false},

		{"employee applies for own leave", dev, policy.IntentCreate, leave, true},
		{"employee cannot apply for another", dev, policy.IntentCreate, policy.LeaveTarget{EmployeeID: "e-pm"}, false},
		{"pm applies for own leave", pm, policy.IntentCreate, policy.LeaveTarget{EmployeeID: "e-pm"}, true},
		{"pm cannot apply on behalf", pm, policy.IntentCreate, leave, false},
		{"hr applies on behalf", hr, policy.IntentCreate, leave, true},
		{"own leave view", dev, policy.IntentView, leave, true},
		{"own leave cancel", dev, policy.IntentCancel, leave, true},
		{"manager approves", pm, policy.IntentApprove, leave, true},
		{"manager rejects", pm, policy.IntentReject, leave, true},
		{"non-manager pm cannot approve", pm, policy.IntentApprove, unmanaged, false},
		{"hr flags", hr, policy.IntentFlag, leave, true},
		{"hr views leave", hr, policy.IntentView, leave, true},
		{"hr cannot approve", hr, policy.IntentApprove, leave, false},
		{"employee cannot override", dev, policy.IntentOverride, leave, false},

		{"pm creates project", pm, policy.IntentCreate, policy.ProjectTarget{}, true},
		{"owning pm edits project", pm, policy.IntentEditMetadata, project, true},
		{"other pm cannot edit project", policy.Actor{UserID: "u2", EmployeeID: "e-other", Role: policy.RolePM}, policy.IntentEditMetadata, project, false},
		{"team member views project", dev, policy.IntentView, project, true},
		{"hr views project", hr, policy.IntentView, project, true},

		{"pm requests recruitment", pm, policy.IntentCreate, policy.RecruitmentTarget{}, true},
		{"hr runs the pipeline", hr, policy.IntentEditMetadata, rec, true},
		{"requester views recruitment", pm, policy.IntentView, rec, true},
		{"employee cannot view recruitment", dev, policy.IntentView, rec, false},

		{"hr creates employees", hr, policy.IntentCreate, policy.EmployeeTarget{}, true},
		{"pm cannot create employees", pm, policy.IntentCreate, policy.EmployeeTarget{}, false},
		{"hr terminates", hr, policy.IntentTerminate, policy.EmployeeTarget{EmployeeID: "e-dev"}, true},
		{"staff view employees", dev, policy.IntentView, policy.EmployeeTarget{}, true},
		{"client cannot view employees", client, policy.IntentView, policy.EmployeeTarget{}, false},

		{"own attendance", dev, policy.IntentCreate, policy.AttendanceTarget{EmployeeID: "e-dev"}, true},
		{"not someone else's attendance", dev, policy.IntentCreate, policy.AttendanceTarget{EmployeeID: "e-pm"}, false},
		{"hr views attendance", hr, policy.IntentView, policy.AttendanceTarget{EmployeeID: "e-dev"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, policy.CanAct(tc.actor, tc.intent, tc.target),
				"CanAct(%s, %s, %s)", tc.actor.Role, tc.intent, tc.target.Kind())
		})
	}
}

func TestRequireError(t *testing.T) {
	dev := policy.Actor{UserID: "u-dev", EmployeeID: "e-dev", Role: policy.RoleEmployee}
	target := policy.TaskTarget{AssigneeIDs: []string{"e-dev"}}

	err := policy.Require(dev, policy.IntentReview, target)
	var fe policy.ForbiddenError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, policy.IntentReview, fe.Intent)
	assert.Equal(t, "task", fe.Kind)

	require.NoError(t, policy.Require(dev, policy.IntentSubmitForReview, target))
}
