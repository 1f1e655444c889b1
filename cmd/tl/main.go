package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"teamline/internal/app"
	"teamline/internal/config"
	"teamline/internal/db"
	"teamline/internal/domain"
	"teamline/internal/engine"
	"teamline/internal/migrate"
	"teamline/internal/policy"
	"teamline/internal/repo"
	"teamline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tl",
	Short: "Teamline CLI",
	Long: `Teamline is a role-based work platform: versioned documents with live and
static shares, task review cycles, leave approvals with balance accounting,
project approval, and a recruitment-to-hire pipeline.

All state lives in the .teamline workspace database. Commands act as the
user given by --user; roles (admin, hr, pm, employee) decide what each
command may touch.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TEAMLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().StringP("user", "u", "", "acting user id")
	rootCmd.PersistentFlags().String("company", "", "company config name (overrides default)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
	_ = viper.BindPFlag("company", rootCmd.PersistentFlags().Lookup("company"))
}

func registerCommands() {
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(employeeCmd())
	rootCmd.AddCommand(docCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(leaveCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(clientCmd())
	rootCmd.AddCommand(recruitCmd())
	rootCmd.AddCommand(attendanceCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- user ---

func userCmd() *cobra.Command {
	u := &cobra.Command{Use: "user", Short: "Manage user accounts"}
	u.AddCommand(userBootstrapCmd())
	u.AddCommand(userWhoamiCmd())
	return u
}

func userBootstrapCmd() *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create a user account without policy checks (first admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email required")
			}
			if role == "" {
				role = "admin"
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				u := domain.User{
					ID:        uuid.New().String(),
					Email:     strings.ToLower(strings.TrimSpace(email)),
					Role:      role,
					IsActive:  true,
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertUser(ctx, nil, u); err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", "admin", "role (admin, hr, pm, employee)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func userWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the resolved acting user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				out := map[string]any{
					"user_id": actor.UserID,
					"role":    string(actor.Role),
				}
				if actor.EmployeeID != "" {
					out["employee_id"] = actor.EmployeeID
				}
				return printJSONOrTable(out)
			})
		},
	}
	return cmd
}

// --- employee ---

func employeeCmd() *cobra.Command {
	emp := &cobra.Command{Use: "employee", Short: "Manage employees"}
	emp.AddCommand(employeeCreateCmd())
	emp.AddCommand(employeeListCmd())
	emp.AddCommand(employeeGetCmd())
	emp.AddCommand(employeeTerminateCmd())
	return emp
}

func employeeCreateCmd() *cobra.Command {
	var opts engine.EmployeeCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Onboard an employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				emp, err := e.CreateEmployee(ctx, opts, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(emp)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&opts.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "phone")
	cmd.Flags().StringVar(&opts.Department, "department", "", "department")
	cmd.Flags().StringVar(&opts.Position, "position", "", "position")
	cmd.Flags().StringVar(&opts.EmployeeNo, "employee-no", "", "employee number")
	cmd.Flags().StringVar(&opts.ManagerID, "manager", "", "manager employee id")
	cmd.Flags().StringVar(&opts.Role, "role", "employee", "account role (employee, pm, hr)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	_ = cmd.MarkFlagRequired("department")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}

func employeeListCmd() *cobra.Command {
	var f repo.EmployeeFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				if err := policy.Require(actor, policy.IntentView, policy.EmployeeTarget{}); err != nil {
					return err
				}
				items, err := e.Repo.ListEmployees(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Department", "Position", "Balance", "Terminated"})
				for _, emp := range items {
					tw.AppendRow(table.Row{emp.ID, emp.FirstName + " " + emp.LastName, emp.Department, emp.Position, emp.LeaveBalance, emp.Terminated})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Department, "department", "", "department filter")
	cmd.Flags().StringVar(&f.ManagerID, "manager", "", "manager filter")
	cmd.Flags().BoolVar(&f.IncludeTerminated, "include-terminated", false, "include terminated employees")
	return cmd
}

func employeeGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				emp, err := e.Repo.GetEmployee(ctx, args[0])
				if err != nil {
					return err
				}
				if err := policy.Require(actor, policy.IntentView, policy.EmployeeTarget{EmployeeID: emp.ID, UserID: emp.UserID}); err != nil {
					return err
				}
				return printJSONOrTable(emp)
			})
		},
	}
	return cmd
}

func employeeTerminateCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "terminate <id>",
		Short: "Terminate an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				emp, err := e.TerminateEmployee(ctx, args[0], reason, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(emp)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "termination reason")
	return cmd
}

// --- doc ---

func docCmd() *cobra.Command {
	doc := &cobra.Command{
		Use:   "doc",
		Short: "Manage documents",
		Long:  "Documents carry an immutable version history. Live shares track the latest version; static shares stay pinned to the version current at share time and re-pin on every append.",
	}
	doc.AddCommand(docCreateCmd())
	doc.AddCommand(docListCmd())
	doc.AddCommand(docGetCmd())
	doc.AddCommand(docAppendCmd())
	doc.AddCommand(docShareCmd())
	doc.AddCommand(docVersionsCmd())
	return doc
}

func docCreateCmd() *cobra.Command {
	var title, content, projectID, taskID string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				d, err := e.CreateDocument(ctx, engine.DocumentCreateOptions{
					Title:       title,
					ContentJSON: content,
					ProjectID:   projectID,
					TaskID:      taskID,
				}, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&content, "content-json", "{}", "content JSON")
	cmd.Flags().StringVar(&projectID, "project", "", "owning project id")
	cmd.Flags().StringVar(&taskID, "task", "", "owning task id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func docListCmd() *cobra.Command {
	var f repo.DocumentFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visible documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				docs, err := e.ListDocuments(ctx, f, actor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(docs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Live", "Updated"})
				for _, d := range docs {
					tw.AppendRow(table.Row{d.ID, d.Title, d.IsLiveShared, d.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project filter")
	cmd.Flags().StringVar(&f.TaskID, "task", "", "task filter")
	return cmd
}

func docGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a document (static viewers see their pinned version)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				d, err := e.GetDocument(ctx, args[0], actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	return cmd
}

func docAppendCmd() *cobra.Command {
	var content string
	cmd := &cobra.Command{
		Use:   "append <id>",
		Short: "Append a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if content == "" {
				return fmt.Errorf("--content-json required")
			}
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				d, err := e.AppendVersion(ctx, args[0], content, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&content, "content-json", "", "content JSON")
	return cmd
}

func docShareCmd() *cobra.Command {
	var userID, mode string
	cmd := &cobra.Command{
		Use:   "share <id>",
		Short: "Share a document live or static",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				s, err := e.ShareDocument(ctx, args[0], userID, mode, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "with", "", "user id to share with")
	cmd.Flags().StringVar(&mode, "mode", "live", "share mode (live, static)")
	_ = cmd.MarkFlagRequired("with")
	return cmd
}

func docVersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions <id>",
		Short: "List versions oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				versions, err := e.ListVersions(ctx, args[0], actor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(versions)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Version", "Created By", "Created At"})
				for _, v := range versions {
					tw.AppendRow(table.Row{v.VersionNumber, v.CreatedBy, v.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

// --- task ---

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks flow todo -> in-progress -> review, then the reviewing PM accepts (completed) or rejects (back to in-progress with feedback).",
	}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskGetCmd())
	task.AddCommand(taskProgressCmd())
	task.AddCommand(taskSubmitCmd())
	task.AddCommand(taskReviewCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var assignees []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.AssignedTo = assignees
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				t, err := e.CreateTask(ctx, opts, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringArrayVar(&assignees, "assign", []string{}, "assignee employee id (repeatable)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "priority (low, medium, high)")
	cmd.Flags().StringVar(&opts.Deadline, "deadline", "", "deadline (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				tasks, err := e.Repo.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Progress", "Assignees"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Progress, strings.Join(t.AssignedTo, ",")})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project filter")
	cmd.Flags().StringVar(&f.AssignedTo, "assignee", "", "assignee filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	return cmd
}

func taskGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				t, err := e.GetTask(ctx, args[0], actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskProgressCmd() *cobra.Command {
	var progress int
	var status string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update progress or working status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.TaskUpdateOptions{Status: status}
			if cmd.Flags().Changed("progress") {
				opts.Progress = &progress
			}
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				t, err := e.UpdateTask(ctx, args[0], opts, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().IntVar(&progress, "progress", 0, "progress percent (0-100)")
	cmd.Flags().StringVar(&status, "status", "", "working status (todo, in-progress)")
	return cmd
}

func taskSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <id>",
		Short: "Submit a task for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				t, err := e.SubmitForReview(ctx, args[0], actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskReviewCmd() *cobra.Command {
	var decision, message string
	cmd := &cobra.Command{
		Use:   "review <id>",
		Short: "Accept or reject a submitted task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				t, err := e.ReviewTask(ctx, args[0], decision, message, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&decision, "decision", "", "accept or reject")
	cmd.Flags().StringVar(&message, "message", "", "feedback message")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}

// --- leave ---

func leaveCmd() *cobra.Command {
	leave := &cobra.Command{
		Use:   "leave",
		Short: "Manage leave requests",
		Long:  "Leaves go pending -> approved/rejected/cancelled. Approval debits the employee balance atomically; admins may override a decision after the fact.",
	}
	leave.AddCommand(leaveApplyCmd())
	leave.AddCommand(leaveListCmd())
	leave.AddCommand(leaveApproveCmd())
	leave.AddCommand(leaveRejectCmd())
	leave.AddCommand(leaveCancelCmd())
	leave.AddCommand(leaveFlagCmd())
	leave.AddCommand(leaveOverrideCmd())
	return leave
}

func leaveApplyCmd() *cobra.Command {
	var opts engine.LeaveApplyOptions
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply for leave",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				l, err := e.ApplyLeave(ctx, opts, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	cmd.Flags().StringVar(&opts.EmployeeID, "employee", "", "employee id (defaults to own)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "leave type")
	cmd.Flags().StringVar(&opts.StartDate, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.EndDate, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "reason")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func leaveListCmd() *cobra.Command {
	var f repo.LeaveFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leaves",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				if actor.Role == policy.RoleEmployee {
					f.EmployeeID = actor.EmployeeID
				}
				items, err := e.Repo.ListLeaves(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Employee", "Type", "From", "To", "Status", "Flagged"})
				for _, l := range items {
					tw.AppendRow(table.Row{l.ID, l.EmployeeID, l.Type, l.StartDate, l.EndDate, l.Status, l.Flagged})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.EmployeeID, "employee", "", "employee filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	return cmd
}

func leaveApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending leave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				l, err := e.ApproveLeave(ctx, args[0], actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	return cmd
}

func leaveRejectCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending leave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				l, err := e.RejectLeave(ctx, args[0], reason, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func leaveCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an own pending leave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				l, err := e.CancelLeave(ctx, args[0], actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	return cmd
}

func leaveFlagCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "flag <id>",
		Short: "Flag a leave for audit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				l, err := e.FlagLeave(ctx, args[0], reason, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "flag reason")
	return cmd
}

func leaveOverrideCmd() *cobra.Command {
	var decision, reason string
	cmd := &cobra.Command{
		Use:   "override <id>",
		Short: "Admin override of a leave decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				l, err := e.OverrideLeave(ctx, args[0], decision, reason, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	cmd.Flags().StringVar(&decision, "decision", "", "approved or rejected")
	cmd.Flags().StringVar(&reason, "reason", "", "override reason")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}

// --- project ---

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectGetCmd())
	prj.AddCommand(projectApproveCmd())
	prj.AddCommand(projectStatusCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var opts engine.ProjectCreateOptions
	var team []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project (starts pending)",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Team = team
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				p, err := e.CreateProject(ctx, opts, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "project name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringArrayVar(&team, "team", []string{}, "team member employee id (repeatable)")
	cmd.Flags().StringVar(&opts.ClientID, "client", "", "client id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectListCmd() *cobra.Command {
	var f repo.ProjectFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				if actor.Role == policy.RoleEmployee || actor.Role == policy.RolePM {
					f.Member = actor.EmployeeID
				}
				items, err := e.Repo.ListProjects(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "PM", "Team"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Status, p.PMID, len(p.Team)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	return cmd
}

func projectGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				p, err := e.GetProject(ctx, args[0], actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func projectApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				p, err := e.ApproveProject(ctx, args[0], actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func projectStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Set project working status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				p, err := e.SetProjectStatus(ctx, args[0], status, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status (active, on-hold, completed, cancelled)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

// --- client ---

func clientCmd() *cobra.Command {
	c := &cobra.Command{Use: "client", Short: "Manage clients"}
	c.AddCommand(clientCreateCmd())
	c.AddCommand(clientListCmd())
	return c
}

func clientCreateCmd() *cobra.Command {
	var opts engine.ClientOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a client",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				c, err := e.CreateClient(ctx, opts, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "client name")
	cmd.Flags().StringVar(&opts.Company, "company-name", "", "company")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func clientListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				items, err := e.Repo.ListClients(ctx, 0)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

// --- recruit ---

func recruitCmd() *cobra.Command {
	rec := &cobra.Command{
		Use:   "recruit",
		Short: "Recruitment pipeline",
		Long:  "A PM files a request, an admin approves it, HR publishes the posting and tracks candidates, and hiring the selected candidate activates the pre-created account and onboards the employee in one step.",
	}
	rec.AddCommand(recruitRequestCmd())
	rec.AddCommand(recruitListCmd())
	rec.AddCommand(recruitDecideCmd())
	rec.AddCommand(recruitPostingCmd())
	rec.AddCommand(recruitCandidateCmd())
	rec.AddCommand(recruitHireCmd())
	return rec
}

func recruitRequestCmd() *cobra.Command {
	var opts engine.RecruitmentRequestOptions
	cmd := &cobra.Command{
		Use:   "request",
		Short: "File a recruitment request",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				rec, err := e.CreateRecruitmentRequest(ctx, opts, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Department, "department", "", "department")
	cmd.Flags().StringVar(&opts.Position, "position", "", "position")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "reason")
	cmd.Flags().StringVar(&opts.Urgency, "urgency", "", "urgency (low, medium, high)")
	_ = cmd.MarkFlagRequired("department")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}

func recruitListCmd() *cobra.Command {
	var f repo.RecruitmentFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recruitments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				if actor.Role == policy.RolePM {
					f.RequestedBy = actor.EmployeeID
				}
				items, err := e.Repo.ListRecruitments(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Position", "Request", "Posting", "Hired"})
				for _, rec := range items {
					tw.AppendRow(table.Row{rec.ID, rec.Position, rec.RequestStatus, rec.PostingStatus, rec.Hired})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.RequestStatus, "request-status", "", "request status filter")
	cmd.Flags().StringVar(&f.PostingStatus, "posting-status", "", "posting status filter")
	return cmd
}

func recruitDecideCmd() *cobra.Command {
	var decision string
	cmd := &cobra.Command{
		Use:   "decide <id>",
		Short: "Approve or reject a recruitment request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				rec, err := e.DecideRequest(ctx, args[0], decision, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&decision, "decision", "", "approved or rejected")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}

func recruitPostingCmd() *cobra.Command {
	var status, title, description string
	cmd := &cobra.Command{
		Use:   "posting <id>",
		Short: "Publish or close the job posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				rec, err := e.SetPostingStatus(ctx, args[0], status, title, description, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "posting status (published, closed)")
	cmd.Flags().StringVar(&title, "title", "", "posting title")
	cmd.Flags().StringVar(&description, "description", "", "posting description")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func recruitCandidateCmd() *cobra.Command {
	cand := &cobra.Command{Use: "candidate", Short: "Manage candidates"}
	cand.AddCommand(candidateAddCmd())
	cand.AddCommand(candidateListCmd())
	cand.AddCommand(candidateStatusCmd())
	return cand
}

func candidateAddCmd() *cobra.Command {
	var recruitmentID string
	var opts engine.CandidateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a candidate to a published posting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				c, err := e.AddCandidate(ctx, recruitmentID, opts, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&recruitmentID, "recruitment", "", "recruitment id")
	cmd.Flags().StringVar(&opts.Name, "name", "", "candidate name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "candidate email")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "phone")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("recruitment")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func candidateListCmd() *cobra.Command {
	var recruitmentID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				if err := policy.Require(actor, policy.IntentView, policy.RecruitmentTarget{}); err != nil {
					return err
				}
				items, err := e.Repo.ListCandidates(ctx, recruitmentID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&recruitmentID, "recruitment", "", "recruitment id")
	_ = cmd.MarkFlagRequired("recruitment")
	return cmd
}

func candidateStatusCmd() *cobra.Command {
	var status, notes string
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Move a candidate through the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				c, err := e.SetCandidateStatus(ctx, args[0], status, notes, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "pipeline status (applied, screening, interview, selected, rejected)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func recruitHireCmd() *cobra.Command {
	var opts engine.HireOptions
	cmd := &cobra.Command{
		Use:   "hire <recruitment-id>",
		Short: "Hire the selected candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				emp, err := e.Hire(ctx, args[0], opts, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(emp)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Department, "department", "", "department (defaults to the request's)")
	cmd.Flags().StringVar(&opts.Position, "position", "", "position (defaults to the request's)")
	cmd.Flags().StringVar(&opts.ManagerID, "manager", "", "manager employee id")
	cmd.Flags().StringVar(&opts.EmployeeNo, "employee-no", "", "employee number")
	return cmd
}

// --- attendance ---

func attendanceCmd() *cobra.Command {
	att := &cobra.Command{Use: "attendance", Short: "Attendance tracking"}
	att.AddCommand(attendanceInCmd())
	att.AddCommand(attendanceOutCmd())
	att.AddCommand(attendanceListCmd())
	return att
}

func attendanceInCmd() *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "in",
		Short: "Check in for the day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				a, err := e.CheckIn(ctx, location, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&location, "location", "remote", "location (onsite, remote)")
	return cmd
}

func attendanceOutCmd() *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "out",
		Short: "Check out for the day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				a, err := e.CheckOut(ctx, location, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "location (onsite, remote)")
	return cmd
}

func attendanceListCmd() *cobra.Command {
	var f repo.AttendanceFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List attendance records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				if actor.Role != policy.RoleAdmin && actor.Role != policy.RoleHR {
					f.EmployeeID = actor.EmployeeID
				}
				items, err := e.Repo.ListAttendance(ctx, f)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&f.EmployeeID, "employee", "", "employee filter")
	cmd.Flags().StringVar(&f.From, "from", "", "date lower bound (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.To, "to", "", "date upper bound (YYYY-MM-DD)")
	return cmd
}

// --- config ---

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect company config",
		Long:  "Company config (stored in DB): leave types and default balance, departments, attendance hours. Import from teamline.yml if desired.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configImportCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import company config from YAML into the DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return err
			}
			cfg, err := config.FromYAML(data)
			if err != nil {
				return err
			}
			name := cfg.Company.Name
			if name == "" {
				name = "default"
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.UpsertCompanyConfig(ctx, name, cfg); err != nil {
					return err
				}
				return printJSONOrTable(cfg)
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML config")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate stored config",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Config.Validate()
			})
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

// --- log ---

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Audit event log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor policy.Actor) error {
				if actor.Role != policy.RoleAdmin && actor.Role != policy.RoleHR {
					return policy.ForbiddenError{Intent: policy.IntentView, Kind: "event"}
				}
				events, err := e.Repo.ListEvents(ctx, repo.EventFilters{
					Type:       evtType,
					EntityKind: entityKind,
					EntityID:   entityID,
					Limit:      n,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

// --- apikey ---

func apikeyCmd() *cobra.Command {
	ak := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	ak.AddCommand(apikeyAddCmd())
	ak.AddCommand(apikeyListCmd())
	ak.AddCommand(apikeyDeleteCmd())
	return ak
}

func apikeyAddCmd() *cobra.Command {
	var userID, key, name string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an API key for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" || key == "" {
				return fmt.Errorf("--user-id and --key required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				rec := domain.APIKey{
					ID:      uuid.New().String(),
					UserID:  userID,
					Name:    name,
					KeyHash: repo.HashAPIKey(key),
				}
				if err := r.InsertAPIKey(ctx, nil, rec); err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user id the key authenticates as")
	cmd.Flags().StringVar(&key, "key", "", "plaintext key (stored hashed)")
	cmd.Flags().StringVar(&name, "name", "", "label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, userID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "filter by user")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			cfg, err := app.ResolveCompanyConfig(cmd.Context(), workspace, viper.GetString("company"), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("TEAMLINE_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("TEAMLINE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Teamline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	cfg, err := app.ResolveCompanyConfig(ctx, workspace, viper.GetString("company"), r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withActor(ctx context.Context, fn func(context.Context, engine.Engine, policy.Actor) error) error {
	userID := strings.TrimSpace(viper.GetString("user"))
	if userID == "" {
		return fmt.Errorf("--user is required (acting user id)")
	}
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		actor, err := app.ResolveActor(ctx, e.Repo, userID)
		if err != nil {
			return err
		}
		return fn(ctx, e, actor)
	})
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	return fn(ctx, r)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
