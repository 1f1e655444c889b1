package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"teamline/internal/app"
	"teamline/internal/domain"
	"teamline/internal/engine"
	"teamline/internal/policy"
	"teamline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"forbidden"`
	Message string         `json:"message" example:"intent approve forbidden on leave"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Teamline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Teamline API", "0.1.0")
	// Spec and docs routes are registered manually below.
	hcfg.OpenAPIPath = ""
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerMe(group, cfg.Engine)
	registerEmployees(group, cfg.Engine)
	registerDocuments(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerLeaves(group, cfg.Engine)
	registerProjects(group, cfg.Engine)
	registerClients(group, cfg.Engine)
	registerRecruitments(group, cfg.Engine)
	registerAttendance(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerAPIKeys(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var fe policy.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{
			"intent": string(fe.Intent),
			"kind":   fe.Kind,
		})
	}
	var te engine.InvalidTransitionError
	if errors.As(err, &te) {
		return newAPIError(http.StatusUnprocessableEntity, "invalid_transition", err.Error(), map[string]any{
			"entity": te.Entity,
			"from":   te.From,
			"to":     te.To,
		})
	}
	var be engine.InsufficientBalanceError
	if errors.As(err, &be) {
		return newAPIError(http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), map[string]any{
			"balance":   be.Balance,
			"requested": be.Requested,
		})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrConflict) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") ||
		strings.Contains(lowered, "must be") || strings.Contains(lowered, "unknown"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// resolveActor maps the authenticated principal to a policy actor.
func resolveActor(ctx context.Context, e engine.Engine) (policy.Actor, huma.StatusError) {
	userID, authErr := userIDFromContext(ctx)
	if authErr != nil {
		return policy.Actor{}, authErr
	}
	actor, err := app.ResolveActor(ctx, e.Repo, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return policy.Actor{}, newAPIError(http.StatusUnauthorized, "unauthorized", "unknown user", nil)
		}
		return policy.Actor{}, handleError(err)
	}
	return actor, nil
}

func jsonBlob(m map[string]any) string {
	if m == nil {
		return ""
	}
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusUnprocessableEntity,
	http.StatusInternalServerError,
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Resolved identity of the caller",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		body := map[string]any{
			"user_id": actor.UserID,
			"role":    string(actor.Role),
		}
		if actor.EmployeeID != "" {
			body["employee_id"] = actor.EmployeeID
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: body}, nil
	})
}

func registerEmployees(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-employee",
		Method:        http.MethodPost,
		Path:          "/employees",
		Summary:       "Onboard an employee",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateEmployeeRequest `json:"body"`
	}) (*struct {
		Body domain.Employee `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		emp, err := e.CreateEmployee(ctx, engine.EmployeeCreateOptions{
			Email:      input.Body.Email,
			FirstName:  input.Body.FirstName,
			LastName:   input.Body.LastName,
			Phone:      deref(input.Body.Phone),
			Department: input.Body.Department,
			Position:   input.Body.Position,
			EmployeeNo: deref(input.Body.EmployeeNo),
			ManagerID:  deref(input.Body.ManagerID),
			Role:       deref(input.Body.Role),
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Employee `json:"body"`
		}{Body: emp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-employees",
		Method:      http.MethodGet,
		Path:        "/employees",
		Summary:     "List employees",
	}, func(ctx context.Context, input *struct {
		Department string `query:"department"`
		ManagerID  string `query:"manager_id"`
		Terminated bool   `query:"include_terminated"`
		Limit      int    `query:"limit"`
	}) (*struct {
		Body []domain.Employee `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		if err := policy.Require(actor, policy.IntentView, policy.EmployeeTarget{}); err != nil {
			return nil, handleError(err)
		}
		list, err := e.Repo.ListEmployees(ctx, repo.EmployeeFilters{
			Department:        input.Department,
			ManagerID:         input.ManagerID,
			IncludeTerminated: input.Terminated,
			Limit:             input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Employee `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-employee",
		Method:      http.MethodGet,
		Path:        "/employees/{employee_id}",
		Summary:     "Get an employee",
	}, func(ctx context.Context, input *struct {
		EmployeeID string `path:"employee_id"`
	}) (*struct {
		Body domain.Employee `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		emp, err := e.Repo.GetEmployee(ctx, input.EmployeeID)
		if err != nil {
			return nil, handleError(err)
		}
		if err := policy.Require(actor, policy.IntentView, policy.EmployeeTarget{EmployeeID: emp.ID, UserID: emp.UserID}); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Employee `json:"body"`
		}{Body: emp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-employee",
		Method:      http.MethodPatch,
		Path:        "/employees/{employee_id}",
		Summary:     "Update an employee",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		EmployeeID string                `path:"employee_id"`
		Body       UpdateEmployeeRequest `json:"body"`
	}) (*struct {
		Body domain.Employee `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		emp, err := e.UpdateEmployee(ctx, input.EmployeeID, engine.EmployeeUpdateOptions{
			Phone:      input.Body.Phone,
			Department: input.Body.Department,
			Position:   input.Body.Position,
			ManagerID:  input.Body.ManagerID,
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Employee `json:"body"`
		}{Body: emp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "terminate-employee",
		Method:      http.MethodPost,
		Path:        "/employees/{employee_id}/terminate",
		Summary:     "Terminate an employee",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		EmployeeID string                   `path:"employee_id"`
		Body       TerminateEmployeeRequest `json:"body"`
	}) (*struct {
		Body domain.Employee `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		emp, err := e.TerminateEmployee(ctx, input.EmployeeID, input.Body.Reason, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Employee `json:"body"`
		}{Body: emp}, nil
	})
}

func registerDocuments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-document",
		Method:        http.MethodPost,
		Path:          "/documents",
		Summary:       "Create a document",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateDocumentRequest `json:"body"`
	}) (*struct {
		Body domain.Document `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.CreateDocument(ctx, engine.DocumentCreateOptions{
			Title:       input.Body.Title,
			ContentJSON: jsonBlob(input.Body.Content),
			ProjectID:   deref(input.Body.ProjectID),
			TaskID:      deref(input.Body.TaskID),
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Document `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-documents",
		Method:      http.MethodGet,
		Path:        "/documents",
		Summary:     "List documents",
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id"`
		TaskID    string `query:"task_id"`
		Limit     int    `query:"limit"`
	}) (*struct {
		Body []domain.Document `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		docs, err := e.ListDocuments(ctx, repo.DocumentFilters{
			ProjectID: input.ProjectID,
			TaskID:    input.TaskID,
			Limit:     input.Limit,
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Document `json:"body"`
		}{Body: docs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-document",
		Method:      http.MethodGet,
		Path:        "/documents/{document_id}",
		Summary:     "Get a document",
	}, func(ctx context.Context, input *struct {
		DocumentID string `path:"document_id"`
	}) (*struct {
		Body DocumentResponse `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.GetDocument(ctx, input.DocumentID, actor)
		if err != nil {
			return nil, handleError(err)
		}
		shares, err := e.ListShares(ctx, d.ID, actor)
		if err != nil {
			return nil, handleError(err)
		}
		editors, err := e.Repo.ListLiveEditors(ctx, d.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DocumentResponse `json:"body"`
		}{Body: DocumentResponse{Document: d, Shares: shares, LiveEditors: editors}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-document",
		Method:      http.MethodPatch,
		Path:        "/documents/{document_id}",
		Summary:     "Rename a document",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		DocumentID string                `path:"document_id"`
		Body       UpdateDocumentRequest `json:"body"`
	}) (*struct {
		Body domain.Document `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.UpdateDocumentTitle(ctx, input.DocumentID, input.Body.Title, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Document `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "append-version",
		Method:        http.MethodPost,
		Path:          "/documents/{document_id}/versions",
		Summary:       "Append a version",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		DocumentID string               `path:"document_id"`
		Body       AppendVersionRequest `json:"body"`
	}) (*struct {
		Body domain.Document `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.AppendVersion(ctx, input.DocumentID, jsonBlob(input.Body.Content), actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Document `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-versions",
		Method:      http.MethodGet,
		Path:        "/documents/{document_id}/versions",
		Summary:     "List versions oldest first",
	}, func(ctx context.Context, input *struct {
		DocumentID string `path:"document_id"`
	}) (*struct {
		Body []domain.DocumentVersion `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		versions, err := e.ListVersions(ctx, input.DocumentID, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.DocumentVersion `json:"body"`
		}{Body: versions}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "share-document",
		Method:      http.MethodPost,
		Path:        "/documents/{document_id}/shares",
		Summary:     "Share a document",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		DocumentID string               `path:"document_id"`
		Body       ShareDocumentRequest `json:"body"`
	}) (*struct {
		Body domain.DocumentShare `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.ShareDocument(ctx, input.DocumentID, input.Body.UserID, input.Body.Mode, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DocumentShare `json:"body"`
		}{Body: s}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a task",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			Title:          input.Body.Title,
			Description:    deref(input.Body.Description),
			ProjectID:      input.Body.ProjectID,
			AssignedTo:     input.Body.AssignedTo,
			Priority:       deref(input.Body.Priority),
			Deadline:       deref(input.Body.Deadline),
			MilestonesJSON: jsonBlob(input.Body.Milestones),
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		ProjectID  string `query:"project_id"`
		AssignedTo string `query:"assigned_to"`
		Status     string `query:"status"`
		Limit      int    `query:"limit"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		list, err := e.Repo.ListTasks(ctx, repo.TaskFilters{
			ProjectID:  input.ProjectID,
			AssignedTo: input.AssignedTo,
			Status:     input.Status,
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if actor.Role != policy.RoleAdmin && actor.Role != policy.RolePM && actor.Role != policy.RoleHR {
			visible := list[:0]
			for _, t := range list {
				if policy.CanAct(actor, policy.IntentView, policy.TaskTarget{CreatorID: t.CreatedBy, AssigneeIDs: t.AssignedTo}) {
					visible = append(visible, t)
				}
			}
			list = visible
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get a task",
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.GetTask(ctx, input.TaskID, actor)
		if err != nil {
			return nil, handleError(err)
		}
		fb, err := e.Repo.ListTaskFeedback(ctx, t.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: TaskResponse{Task: t, Feedback: fb}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task progress or working status",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.TaskUpdateOptions{Progress: input.Body.Progress, Status: deref(input.Body.Status)}
		if input.Body.Milestones != nil {
			blob := jsonBlob(input.Body.Milestones)
			opts.MilestonesJSON = &blob
		}
		t, err := e.UpdateTask(ctx, input.TaskID, opts, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/submit",
		Summary:     "Submit a task for review",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.SubmitForReview(ctx, input.TaskID, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "review-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/review",
		Summary:     "Accept or reject a submitted task",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   ReviewTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.ReviewTask(ctx, input.TaskID, input.Body.Decision, deref(input.Body.Message), actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})
}

func registerLeaves(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "apply-leave",
		Method:        http.MethodPost,
		Path:          "/leaves",
		Summary:       "Apply for leave",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body ApplyLeaveRequest `json:"body"`
	}) (*struct {
		Body domain.Leave `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.ApplyLeave(ctx, engine.LeaveApplyOptions{
			EmployeeID: deref(input.Body.EmployeeID),
			Type:       input.Body.Type,
			StartDate:  input.Body.StartDate,
			EndDate:    input.Body.EndDate,
			Reason:     input.Body.Reason,
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Leave `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-leaves",
		Method:      http.MethodGet,
		Path:        "/leaves",
		Summary:     "List leaves",
	}, func(ctx context.Context, input *struct {
		EmployeeID string `query:"employee_id"`
		Status     string `query:"status"`
		Limit      int    `query:"limit"`
	}) (*struct {
		Body []domain.Leave `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		f := repo.LeaveFilters{EmployeeID: input.EmployeeID, Status: input.Status, Limit: input.Limit}
		// Employees see their own leaves; managers their reports'; hr/admin all.
		if actor.Role == policy.RoleEmployee {
			f.EmployeeID = actor.EmployeeID
		}
		list, err := e.Repo.ListLeaves(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Leave `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-leave",
		Method:      http.MethodGet,
		Path:        "/leaves/{leave_id}",
		Summary:     "Get a leave",
	}, func(ctx context.Context, input *struct {
		LeaveID string `path:"leave_id"`
	}) (*struct {
		Body domain.Leave `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.GetLeave(ctx, input.LeaveID, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Leave `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-leave",
		Method:      http.MethodPost,
		Path:        "/leaves/{leave_id}/approve",
		Summary:     "Approve a pending leave",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		LeaveID string `path:"leave_id"`
	}) (*struct {
		Body domain.Leave `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.ApproveLeave(ctx, input.LeaveID, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Leave `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-leave",
		Method:      http.MethodPost,
		Path:        "/leaves/{leave_id}/reject",
		Summary:     "Reject a pending leave",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		LeaveID string             `path:"leave_id"`
		Body    RejectLeaveRequest `json:"body"`
	}) (*struct {
		Body domain.Leave `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.RejectLeave(ctx, input.LeaveID, input.Body.Reason, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Leave `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-leave",
		Method:      http.MethodPost,
		Path:        "/leaves/{leave_id}/cancel",
		Summary:     "Cancel an own pending leave",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		LeaveID string `path:"leave_id"`
	}) (*struct {
		Body domain.Leave `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.CancelLeave(ctx, input.LeaveID, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Leave `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "flag-leave",
		Method:      http.MethodPost,
		Path:        "/leaves/{leave_id}/flag",
		Summary:     "Flag a leave for audit",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		LeaveID string           `path:"leave_id"`
		Body    FlagLeaveRequest `json:"body"`
	}) (*struct {
		Body domain.Leave `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.FlagLeave(ctx, input.LeaveID, input.Body.Reason, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Leave `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "override-leave",
		Method:      http.MethodPost,
		Path:        "/leaves/{leave_id}/override",
		Summary:     "Admin override of a leave decision",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		LeaveID string               `path:"leave_id"`
		Body    OverrideLeaveRequest `json:"body"`
	}) (*struct {
		Body domain.Leave `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.OverrideLeave(ctx, input.LeaveID, input.Body.Decision, deref(input.Body.Reason), actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Leave `json:"body"`
		}{Body: l}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create a project",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
			Name:        input.Body.Name,
			Description: deref(input.Body.Description),
			Team:        input.Body.Team,
			ClientID:    deref(input.Body.ClientID),
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
		Limit  int    `query:"limit"`
	}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		f := repo.ProjectFilters{Status: input.Status, Limit: input.Limit}
		if actor.Role == policy.RoleEmployee || actor.Role == policy.RolePM {
			f.Member = actor.EmployeeID
		}
		list, err := e.Repo.ListProjects(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get a project",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.GetProject(ctx, input.ProjectID, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/approve",
		Summary:     "Approve a pending project",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.ApproveProject(ctx, input.ProjectID, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-project-status",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/status",
		Summary:     "Set project working status",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string                  `path:"project_id"`
		Body      SetProjectStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.SetProjectStatus(ctx, input.ProjectID, input.Body.Status, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-project-team",
		Method:      http.MethodPut,
		Path:        "/projects/{project_id}/team",
		Summary:     "Replace the project team",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string                `path:"project_id"`
		Body      SetProjectTeamRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.SetProjectTeam(ctx, input.ProjectID, input.Body.Team, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})
}

func registerClients(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-client",
		Method:        http.MethodPost,
		Path:          "/clients",
		Summary:       "Create a client",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateClientRequest `json:"body"`
	}) (*struct {
		Body domain.Client `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateClient(ctx, engine.ClientOptions{
			Name:    input.Body.Name,
			Company: deref(input.Body.Company),
			Email:   input.Body.Email,
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Client `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-clients",
		Method:      http.MethodGet,
		Path:        "/clients",
		Summary:     "List clients",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit"`
	}) (*struct {
		Body []domain.Client `json:"body"`
	}, error) {
		if _, authErr := resolveActor(ctx, e); authErr != nil {
			return nil, authErr
		}
		list, err := e.Repo.ListClients(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Client `json:"body"`
		}{Body: list}, nil
	})
}

func registerRecruitments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-recruitment",
		Method:        http.MethodPost,
		Path:          "/recruitments",
		Summary:       "File a recruitment request",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateRecruitmentRequest `json:"body"`
	}) (*struct {
		Body domain.Recruitment `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		rec, err := e.CreateRecruitmentRequest(ctx, engine.RecruitmentRequestOptions{
			Department: input.Body.Department,
			Position:   input.Body.Position,
			Reason:     deref(input.Body.Reason),
			Urgency:    deref(input.Body.Urgency),
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Recruitment `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-recruitments",
		Method:      http.MethodGet,
		Path:        "/recruitments",
		Summary:     "List recruitments",
	}, func(ctx context.Context, input *struct {
		RequestStatus string `query:"request_status"`
		PostingStatus string `query:"posting_status"`
		Limit         int    `query:"limit"`
	}) (*struct {
		Body []domain.Recruitment `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		f := repo.RecruitmentFilters{
			RequestStatus: input.RequestStatus,
			PostingStatus: input.PostingStatus,
			Limit:         input.Limit,
		}
		if actor.Role == policy.RolePM {
			f.RequestedBy = actor.EmployeeID
		} else if actor.Role != policy.RoleAdmin && actor.Role != policy.RoleHR {
			return nil, handleError(policy.ForbiddenError{Intent: policy.IntentView, Kind: "recruitment"})
		}
		list, err := e.Repo.ListRecruitments(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Recruitment `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "decide-recruitment",
		Method:      http.MethodPost,
		Path:        "/recruitments/{recruitment_id}/decide",
		Summary:     "Approve or reject a recruitment request",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		RecruitmentID string                   `path:"recruitment_id"`
		Body          DecideRecruitmentRequest `json:"body"`
	}) (*struct {
		Body domain.Recruitment `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		rec, err := e.DecideRequest(ctx, input.RecruitmentID, input.Body.Decision, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Recruitment `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-posting",
		Method:      http.MethodPost,
		Path:        "/recruitments/{recruitment_id}/posting",
		Summary:     "Publish or close the job posting",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		RecruitmentID string            `path:"recruitment_id"`
		Body          SetPostingRequest `json:"body"`
	}) (*struct {
		Body domain.Recruitment `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		rec, err := e.SetPostingStatus(ctx, input.RecruitmentID, input.Body.Status, deref(input.Body.Title), deref(input.Body.Description), actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Recruitment `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-candidate",
		Method:        http.MethodPost,
		Path:          "/recruitments/{recruitment_id}/candidates",
		Summary:       "Add a candidate",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		RecruitmentID string              `path:"recruitment_id"`
		Body          AddCandidateRequest `json:"body"`
	}) (*struct {
		Body domain.Candidate `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.AddCandidate(ctx, input.RecruitmentID, engine.CandidateOptions{
			Name:  input.Body.Name,
			Email: input.Body.Email,
			Phone: deref(input.Body.Phone),
			Notes: deref(input.Body.Notes),
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Candidate `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-candidates",
		Method:      http.MethodGet,
		Path:        "/recruitments/{recruitment_id}/candidates",
		Summary:     "List candidates",
	}, func(ctx context.Context, input *struct {
		RecruitmentID string `path:"recruitment_id"`
	}) (*struct {
		Body []domain.Candidate `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		if err := policy.Require(actor, policy.IntentView, policy.RecruitmentTarget{}); err != nil {
			return nil, handleError(err)
		}
		list, err := e.Repo.ListCandidates(ctx, input.RecruitmentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Candidate `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-candidate-status",
		Method:      http.MethodPost,
		Path:        "/candidates/{candidate_id}/status",
		Summary:     "Move a candidate through the pipeline",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		CandidateID string                    `path:"candidate_id"`
		Body        SetCandidateStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Candidate `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.SetCandidateStatus(ctx, input.CandidateID, input.Body.Status, deref(input.Body.Notes), actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Candidate `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "hire",
		Method:        http.MethodPost,
		Path:          "/recruitments/{recruitment_id}/hire",
		Summary:       "Hire the selected candidate",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		RecruitmentID string      `path:"recruitment_id"`
		Body          HireRequest `json:"body"`
	}) (*struct {
		Body domain.Employee `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		emp, err := e.Hire(ctx, input.RecruitmentID, engine.HireOptions{
			Department: deref(input.Body.Department),
			Position:   deref(input.Body.Position),
			ManagerID:  deref(input.Body.ManagerID),
			EmployeeNo: deref(input.Body.EmployeeNo),
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Employee `json:"body"`
		}{Body: emp}, nil
	})
}

func registerAttendance(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "check-in",
		Method:        http.MethodPost,
		Path:          "/attendance/check-in",
		Summary:       "Check in for the day",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CheckInRequest `json:"body"`
	}) (*struct {
		Body domain.Attendance `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.CheckIn(ctx, deref(input.Body.Location), actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Attendance `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-out",
		Method:      http.MethodPost,
		Path:        "/attendance/check-out",
		Summary:     "Check out for the day",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CheckOutRequest `json:"body"`
	}) (*struct {
		Body domain.Attendance `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.CheckOut(ctx, deref(input.Body.Location), actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Attendance `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-attendance",
		Method:      http.MethodGet,
		Path:        "/attendance",
		Summary:     "List attendance records",
	}, func(ctx context.Context, input *struct {
		EmployeeID string `query:"employee_id"`
		From       string `query:"from"`
		To         string `query:"to"`
		Limit      int    `query:"limit"`
	}) (*struct {
		Body []domain.Attendance `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		f := repo.AttendanceFilters{EmployeeID: input.EmployeeID, From: input.From, To: input.To, Limit: input.Limit}
		if actor.Role != policy.RoleAdmin && actor.Role != policy.RoleHR {
			f.EmployeeID = actor.EmployeeID
		}
		list, err := e.Repo.ListAttendance(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Attendance `json:"body"`
		}{Body: list}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List audit events",
	}, func(ctx context.Context, input *struct {
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Type       string `query:"type"`
		Limit      int    `query:"limit"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		if actor.Role != policy.RoleAdmin && actor.Role != policy.RoleHR {
			return nil, handleError(policy.ForbiddenError{Intent: policy.IntentView, Kind: "event"})
		}
		limit := input.Limit
		if limit <= 0 {
			limit = 100
		}
		list, err := e.Repo.ListEvents(ctx, repo.EventFilters{
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Type:       input.Type,
			Limit:      limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: list}, nil
	})
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/api-keys",
		Summary:       "Register an API key",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body domain.APIKey `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		if actor.Role != policy.RoleAdmin && actor.UserID != input.Body.UserID {
			return nil, handleError(policy.ForbiddenError{Intent: policy.IntentCreate, Kind: "api_key"})
		}
		key := domain.APIKey{
			ID:      uuid.New().String(),
			UserID:  input.Body.UserID,
			Name:    deref(input.Body.Name),
			KeyHash: repo.HashAPIKey(input.Body.Key),
		}
		if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.APIKey `json:"body"`
		}{Body: key}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/api-keys",
		Summary:     "List API keys",
	}, func(ctx context.Context, input *struct {
		UserID string `query:"user_id"`
	}) (*struct {
		Body []domain.APIKey `json:"body"`
	}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		userID := input.UserID
		if actor.Role != policy.RoleAdmin {
			userID = actor.UserID
		}
		list, err := e.Repo.ListAPIKeys(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.APIKey `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-api-key",
		Method:      http.MethodDelete,
		Path:        "/api-keys/{key_id}",
		Summary:     "Delete an API key",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		KeyID string `path:"key_id"`
	}) (*struct{}, error) {
		actor, authErr := resolveActor(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		if actor.Role != policy.RoleAdmin {
			return nil, handleError(policy.ForbiddenError{Intent: policy.IntentEditMetadata, Kind: "api_key"})
		}
		if err := e.Repo.DeleteAPIKey(ctx, input.KeyID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Teamline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}
