package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"teamline/internal/config"
	"teamline/internal/db"
	"teamline/internal/domain"
	"teamline/internal/engine"
	"teamline/internal/migrate"
	"teamline/internal/policy"
	"teamline/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Admin  policy.Actor
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("acme")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	admin := domain.User{
		ID:        "admin-user",
		Email:     "admin@acme.test",
		Role:      "admin",
		IsActive:  true,
		CreatedAt: "2024-06-01T09:00:00Z",
	}
	if err := eng.Repo.InsertUser(ctx, nil, admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return testEnv{
		Engine: eng,
		Ctx:    ctx,
		Admin:  policy.Actor{UserID: admin.ID, Role: policy.RoleAdmin},
	}
}

func seedEmployee(t *testing.T, env testEnv, name, role, managerID string) (domain.Employee, policy.Actor) {
	t.Helper()
	emp, err := env.Engine.CreateEmployee(env.Ctx, engine.EmployeeCreateOptions{
		Email:      name + "@acme.test",
		FirstName:  name,
		LastName:   "Doe",
		Department: "engineering",
		Position:   "engineer",
		ManagerID:  managerID,
		Role:       role,
	}, env.Admin)
	if err != nil {
		t.Fatalf("seed employee %s: %v", name, err)
	}
	return emp, policy.Actor{UserID: emp.UserID, EmployeeID: emp.ID, Role: policy.Role(role)}
}

func TestDocumentVersionHistoryAndRepin(t *testing.T) {
	env := newTestEnv(t)
	_, pm := seedEmployee(t, env, "paula", "pm", "")
	viewerEmp, viewer := seedEmployee(t, env, "vera", "employee", "")

	doc, err := env.Engine.CreateDocument(env.Ctx, engine.DocumentCreateOptions{
		Title:       "Design notes",
		ContentJSON: `{"rev":1}`,
	}, pm)
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	share, err := env.Engine.ShareDocument(env.Ctx, doc.ID, viewerEmp.UserID, "static", pm)
	if err != nil {
		t.Fatalf("static share: %v", err)
	}
	if share.PinnedVersionID == nil {
		t.Fatalf("static share must pin a version")
	}
	firstPin := *share.PinnedVersionID

	if _, err := env.Engine.AppendVersion(env.Ctx, doc.ID, `{"rev":2}`, pm); err != nil {
		t.Fatalf("append v2: %v", err)
	}
	if _, err := env.Engine.AppendVersion(env.Ctx, doc.ID, `{"rev":3}`, pm); err != nil {
		t.Fatalf("append v3: %v", err)
	}

	versions, err := env.Engine.ListVersions(env.Ctx, doc.ID, pm)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}
	for i, v := range versions {
		if v.VersionNumber != i+1 {
			t.Fatalf("version %d has number %d", i, v.VersionNumber)
		}
	}

	// static share follows each append to the new latest version
	shares, err := env.Engine.ListShares(env.Ctx, doc.ID, pm)
	if err != nil {
		t.Fatalf("list shares: %v", err)
	}
	if len(shares) != 1 || shares[0].PinnedVersionID == nil {
		t.Fatalf("expected one pinned share")
	}
	if *shares[0].PinnedVersionID == firstPin {
		t.Fatalf("expected share repinned after append")
	}
	if *shares[0].PinnedVersionID != versions[2].ID {
		t.Fatalf("expected pin on latest version")
	}

	got, err := env.Engine.GetDocument(env.Ctx, doc.ID, viewer)
	if err != nil {
		t.Fatalf("viewer get: %v", err)
	}
	if got.ContentJSON != `{"rev":3}` {
		t.Fatalf("viewer should see pinned latest content, got %s", got.ContentJSON)
	}
}

func TestStaticShareRepeatIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	_, pm := seedEmployee(t, env, "paula", "pm", "")
	viewerEmp, _ := seedEmployee(t, env, "vera", "employee", "")

	doc, err := env.Engine.CreateDocument(env.Ctx, engine.DocumentCreateOptions{Title: "Handbook"}, pm)
	if err != nil {
		t.Fatal(err)
	}
	first, err := env.Engine.ShareDocument(env.Ctx, doc.ID, viewerEmp.UserID, "static", pm)
	if err != nil {
		t.Fatalf("first share: %v", err)
	}
	second, err := env.Engine.ShareDocument(env.Ctx, doc.ID, viewerEmp.UserID, "static", pm)
	if err != nil {
		t.Fatalf("repeat share: %v", err)
	}
	if first.PinnedVersionID == nil || second.PinnedVersionID == nil {
		t.Fatalf("static shares must carry a pin")
	}
	if *second.PinnedVersionID != *first.PinnedVersionID {
		t.Fatalf("repeat share moved the pin: %s -> %s", *first.PinnedVersionID, *second.PinnedVersionID)
	}
	shares, err := env.Engine.ListShares(env.Ctx, doc.ID, pm)
	if err != nil {
		t.Fatal(err)
	}
	if len(shares) != 1 {
		t.Fatalf("expected a single share row, got %d", len(shares))
	}
	if shares[0].Mode != "static" || *shares[0].PinnedVersionID != *first.PinnedVersionID {
		t.Fatalf("unexpected share %+v", shares[0])
	}
}

func TestShareModeSwitchDropsLiveEditor(t *testing.T) {
	env := newTestEnv(t)
	_, pm := seedEmployee(t, env, "paula", "pm", "")
	editorEmp, editor := seedEmployee(t, env, "eddy", "employee", "")

	doc, err := env.Engine.CreateDocument(env.Ctx, engine.DocumentCreateOptions{Title: "Spec"}, pm)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.ShareDocument(env.Ctx, doc.ID, editorEmp.UserID, "live", pm); err != nil {
		t.Fatalf("live share: %v", err)
	}
	got, err := env.Engine.GetDocument(env.Ctx, doc.ID, pm)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsLiveShared {
		t.Fatalf("expected live shared flag")
	}
	// live editor can append content
	if _, err := env.Engine.AppendVersion(env.Ctx, doc.ID, `{"by":"editor"}`, editor); err != nil {
		t.Fatalf("live editor append: %v", err)
	}

	// switching the same user to static removes the live grant
	if _, err := env.Engine.ShareDocument(env.Ctx, doc.ID, editorEmp.UserID, "static", pm); err != nil {
		t.Fatalf("switch to static: %v", err)
	}
	got, err = env.Engine.GetDocument(env.Ctx, doc.ID, pm)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsLiveShared {
		t.Fatalf("expected live flag cleared after last live share removed")
	}
	if _, err := env.Engine.AppendVersion(env.Ctx, doc.ID, `{"by":"editor"}`, editor); err == nil {
		t.Fatalf("static viewer must not edit content")
	}
	editors, err := env.Engine.Repo.ListLiveEditors(env.Ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(editors) != 0 {
		t.Fatalf("expected no live editors, got %d", len(editors))
	}
}

func TestTaskReviewCycle(t *testing.T) {
	env := newTestEnv(t)
	pmEmp, pm := seedEmployee(t, env, "paula", "pm", "")
	devEmp, dev := seedEmployee(t, env, "devon", "employee", "")

	project, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		Name: "Platform",
		Team: []string{pmEmp.ID, devEmp.ID},
	}, pm)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title:      "Build feature",
		ProjectID:  project.ID,
		AssignedTo: []string{devEmp.ID},
	}, pm)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	progress := 60
	task, err = env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdateOptions{Status: "in-progress", Progress: &progress}, dev)
	if err != nil {
		t.Fatalf("start work: %v", err)
	}
	task, err = env.Engine.SubmitForReview(env.Ctx, task.ID, dev)
	if err != nil || task.Status != "review" {
		t.Fatalf("submit: %v status=%s", err, task.Status)
	}

	// reject sends it back with feedback
	task, err = env.Engine.ReviewTask(env.Ctx, task.ID, "reject", "needs tests", pm)
	if err != nil || task.Status != "in-progress" {
		t.Fatalf("reject: %v status=%s", err, task.Status)
	}
	fb, err := env.Engine.Repo.ListTaskFeedback(env.Ctx, task.ID)
	if err != nil || len(fb) != 1 || fb[0].Message != "needs tests" {
		t.Fatalf("expected one feedback entry, got %v %v", fb, err)
	}

	task, err = env.Engine.SubmitForReview(env.Ctx, task.ID, dev)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	task, err = env.Engine.ReviewTask(env.Ctx, task.ID, "accept", "", pm)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if task.Status != "completed" || task.Progress != 100 {
		t.Fatalf("expected completed/100, got %s/%d", task.Status, task.Progress)
	}
}

func TestTaskInvalidWorkingTransition(t *testing.T) {
	env := newTestEnv(t)
	pmEmp, pm := seedEmployee(t, env, "paula", "pm", "")
	devEmp, dev := seedEmployee(t, env, "devon", "employee", "")
	project, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "P", Team: []string{pmEmp.ID, devEmp.ID}}, pm)
	if err != nil {
		t.Fatal(err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "T", ProjectID: project.ID, AssignedTo: []string{devEmp.ID}}, pm)
	if err != nil {
		t.Fatal(err)
	}
	task, err = env.Engine.SubmitForReview(env.Ctx, task.ID, dev)
	if err != nil {
		t.Fatal(err)
	}
	// a task in review cannot be dragged back to todo by the assignee
	_, err = env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdateOptions{Status: "todo"}, dev)
	var te engine.InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestLeaveApprovalDebitsBalance(t *testing.T) {
	env := newTestEnv(t)
	mgrEmp, mgr := seedEmployee(t, env, "marge", "pm", "")
	devEmp, dev := seedEmployee(t, env, "devon", "employee", mgrEmp.ID)

	// filing for someone else is an evaluator decision
	_, err := env.Engine.ApplyLeave(env.Ctx, engine.LeaveApplyOptions{
		EmployeeID: mgrEmp.ID,
		Type:       "vacation",
		StartDate:  "2024-07-01",
		EndDate:    "2024-07-01",
		Reason:     "not mine",
	}, dev)
	var fe policy.ForbiddenError
	if !errors.As(err, &fe) || fe.Kind != "leave" {
		t.Fatalf("expected forbidden on behalf, got %v", err)
	}

	leave, err := env.Engine.ApplyLeave(env.Ctx, engine.LeaveApplyOptions{
		Type:      "vacation",
		StartDate: "2024-07-01",
		EndDate:   "2024-07-03",
		Reason:    "trip",
	}, dev)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if leave.Days != 3 || leave.Status != "pending" {
		t.Fatalf("unexpected leave %+v", leave)
	}

	leave, err = env.Engine.ApproveLeave(env.Ctx, leave.ID, mgr)
	if err != nil || leave.Status != "approved" {
		t.Fatalf("approve: %v status=%s", err, leave.Status)
	}
	emp, err := env.Engine.Repo.GetEmployee(env.Ctx, devEmp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if emp.LeaveBalance != 17 {
		t.Fatalf("expected balance 17, got %d", emp.LeaveBalance)
	}

	// approving twice is an invalid transition
	if _, err := env.Engine.ApproveLeave(env.Ctx, leave.ID, mgr); err == nil {
		t.Fatalf("expected transition error on second approval")
	}

	// a request larger than the remaining balance fails at approval time
	big, err := env.Engine.ApplyLeave(env.Ctx, engine.LeaveApplyOptions{
		Type:      "vacation",
		StartDate: "2024-08-01",
		EndDate:   "2024-08-31",
		Reason:    "long trip",
	}, dev)
	if err == nil {
		_, err = env.Engine.ApproveLeave(env.Ctx, big.ID, mgr)
	}
	var be engine.InsufficientBalanceError
	if !errors.As(err, &be) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	emp, _ = env.Engine.Repo.GetEmployee(env.Ctx, devEmp.ID)
	if emp.LeaveBalance != 17 {
		t.Fatalf("failed approval must not touch balance, got %d", emp.LeaveBalance)
	}
}

func TestLeaveOverrideReversalCreditsBack(t *testing.T) {
	env := newTestEnv(t)
	mgrEmp, mgr := seedEmployee(t, env, "marge", "pm", "")
	devEmp, dev := seedEmployee(t, env, "devon", "employee", mgrEmp.ID)

	leave, err := env.Engine.ApplyLeave(env.Ctx, engine.LeaveApplyOptions{
		Type:      "sick",
		StartDate: "2024-07-01",
		EndDate:   "2024-07-02",
		Reason:    "flu",
	}, dev)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.ApproveLeave(env.Ctx, leave.ID, mgr); err != nil {
		t.Fatal(err)
	}
	emp, _ := env.Engine.Repo.GetEmployee(env.Ctx, devEmp.ID)
	if emp.LeaveBalance != 18 {
		t.Fatalf("expected 18 after approval, got %d", emp.LeaveBalance)
	}

	// admin reverses the approval; the debited days come back
	leave, err = env.Engine.OverrideLeave(env.Ctx, leave.ID, "rejected", "policy violation", env.Admin)
	if err != nil || leave.Status != "rejected" {
		t.Fatalf("override: %v status=%s", err, leave.Status)
	}
	emp, _ = env.Engine.Repo.GetEmployee(env.Ctx, devEmp.ID)
	if emp.LeaveBalance != 20 {
		t.Fatalf("expected balance restored to 20, got %d", emp.LeaveBalance)
	}

	// overriding back to approved debits again
	leave, err = env.Engine.OverrideLeave(env.Ctx, leave.ID, "approved", "second look", env.Admin)
	if err != nil || leave.Status != "approved" {
		t.Fatalf("re-override: %v status=%s", err, leave.Status)
	}
	emp, _ = env.Engine.Repo.GetEmployee(env.Ctx, devEmp.ID)
	if emp.LeaveBalance != 18 {
		t.Fatalf("expected 18 after re-approval, got %d", emp.LeaveBalance)
	}
}

func TestHireRequiresInactiveAccount(t *testing.T) {
	env := newTestEnv(t)
	_, pm := seedEmployee(t, env, "paula", "pm", "")
	_, hr := seedEmployee(t, env, "hank", "hr", "")

	rec, err := env.Engine.CreateRecruitmentRequest(env.Ctx, engine.RecruitmentRequestOptions{
		Department: "engineering",
		Position:   "backend engineer",
		Urgency:    "high",
	}, pm)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if rec, err = env.Engine.DecideRequest(env.Ctx, rec.ID, "approved", env.Admin); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if rec, err = env.Engine.SetPostingStatus(env.Ctx, rec.ID, "published", "Backend Engineer", "Go services", hr); err != nil {
		t.Fatalf("publish: %v", err)
	}
	cand, err := env.Engine.AddCandidate(env.Ctx, rec.ID, engine.CandidateOptions{
		Name:  "Nina Nord",
		Email: "Nina@Example.test",
	}, hr)
	if err != nil {
		t.Fatalf("add candidate: %v", err)
	}
	if cand.Email != "nina@example.test" {
		t.Fatalf("candidate email must be lowercased, got %s", cand.Email)
	}
	if _, err := env.Engine.SetCandidateStatus(env.Ctx, cand.ID, "selected", "", hr); err != nil {
		t.Fatalf("select: %v", err)
	}

	// no pre-created account: the whole hire fails and writes nothing
	_, err = env.Engine.Hire(env.Ctx, rec.ID, engine.HireOptions{}, env.Admin)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for missing account, got %v", err)
	}
	if got, _ := env.Engine.Repo.GetRecruitment(env.Ctx, rec.ID); got.Hired {
		t.Fatalf("failed hire must not mark recruitment hired")
	}

	// with an inactive account the hire activates it and onboards
	u := domain.User{
		ID:        "nina-user",
		Email:     "nina@example.test",
		Role:      "employee",
		IsActive:  false,
		CreatedAt: "2024-06-01T09:00:00Z",
	}
	if err := env.Engine.Repo.InsertUser(env.Ctx, nil, u); err != nil {
		t.Fatal(err)
	}
	emp, err := env.Engine.Hire(env.Ctx, rec.ID, engine.HireOptions{}, env.Admin)
	if err != nil {
		t.Fatalf("hire: %v", err)
	}
	if emp.FirstName != "Nina" || emp.LastName != "Nord" {
		t.Fatalf("unexpected name split: %s %s", emp.FirstName, emp.LastName)
	}
	if emp.LeaveBalance != 20 {
		t.Fatalf("expected default balance, got %d", emp.LeaveBalance)
	}
	activated, err := env.Engine.Repo.GetUser(env.Ctx, "nina-user")
	if err != nil || !activated.IsActive {
		t.Fatalf("expected account activated: %v", err)
	}
	got, err := env.Engine.Repo.GetRecruitment(env.Ctx, rec.ID)
	if err != nil || !got.Hired || got.PostingStatus != "closed" {
		t.Fatalf("expected hired+closed, got %+v %v", got, err)
	}

	// hiring twice is blocked
	if _, err := env.Engine.Hire(env.Ctx, rec.ID, engine.HireOptions{}, env.Admin); err == nil {
		t.Fatalf("expected error on double hire")
	}
}

func TestDoubleCheckInConflict(t *testing.T) {
	env := newTestEnv(t)
	_, dev := seedEmployee(t, env, "devon", "employee", "")

	att, err := env.Engine.CheckIn(env.Ctx, "remote", dev)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if att.Status != "present" {
		t.Fatalf("expected present, got %s", att.Status)
	}
	_, err = env.Engine.CheckIn(env.Ctx, "remote", dev)
	if !errors.Is(err, repo.ErrConflict) {
		t.Fatalf("expected conflict on second check-in, got %v", err)
	}

	// short day flips to half-day on checkout
	env.Engine.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	att, err = env.Engine.CheckOut(env.Ctx, "remote", dev)
	if err != nil {
		t.Fatalf("check out: %v", err)
	}
	if att.Status != "half-day" {
		t.Fatalf("expected half-day after 3h, got %s", att.Status)
	}
	if att.TotalHours == nil || *att.TotalHours != 3 {
		t.Fatalf("expected 3 hours, got %v", att.TotalHours)
	}
}

func TestAuditEventsUseEngineClock(t *testing.T) {
	env := newTestEnv(t)
	_, pm := seedEmployee(t, env, "paula", "pm", "")

	doc, err := env.Engine.CreateDocument(env.Ctx, engine.DocumentCreateOptions{Title: "Notes"}, pm)
	if err != nil {
		t.Fatal(err)
	}
	var ts string
	err = env.Engine.DB.QueryRow(`SELECT ts FROM events WHERE type='document.created' AND entity_id=?`, doc.ID).Scan(&ts)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ts != "2024-06-01T09:00:00Z" {
		t.Fatalf("event ts = %s, want the frozen clock", ts)
	}
}

func TestTerminateDeactivatesAccount(t *testing.T) {
	env := newTestEnv(t)
	devEmp, _ := seedEmployee(t, env, "devon", "employee", "")

	emp, err := env.Engine.TerminateEmployee(env.Ctx, devEmp.ID, "restructuring", env.Admin)
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if !emp.Terminated || emp.TerminationDate == nil {
		t.Fatalf("expected terminated employee, got %+v", emp)
	}
	u, err := env.Engine.Repo.GetUser(env.Ctx, devEmp.UserID)
	if err != nil || u.IsActive {
		t.Fatalf("expected deactivated account: %v active=%v", err, u.IsActive)
	}
}
