package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"teamline/internal/config"
	"teamline/internal/db"
	"teamline/internal/domain"
	"teamline/internal/engine"
	"teamline/internal/migrate"
	"teamline/internal/server"
)

const testSecret = "server-test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	Client *http.Client
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default("acme"))
	eng.Now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }

	handler, err := server.New(server.Config{
		Engine: eng,
		Auth:   server.AuthConfig{JWTSecret: testSecret},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	return testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: eng,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

func seedUser(t *testing.T, ts testServer, id, role string) {
	t.Helper()
	u := domain.User{
		ID:        id,
		Email:     id + "@acme.test",
		Role:      role,
		IsActive:  true,
		CreatedAt: "2024-06-01T09:00:00Z",
	}
	if err := ts.Engine.Repo.InsertUser(context.Background(), nil, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func mintToken(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, out.Bytes()
}

func decode(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestHealthNeedsNoAuth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, ts.Client, http.MethodGet, ts.URL+"/v0/health", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %d: %s", resp.StatusCode, body)
	}
}

func TestUnauthenticatedRequests(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts.Client, http.MethodGet, ts.URL+"/v0/employees", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no creds = %d: %s", resp.StatusCode, body)
	}
	var env errorEnvelope
	decode(t, body, &env)
	if env.Error.Code != "unauthorized" {
		t.Fatalf("code = %q", env.Error.Code)
	}

	resp, body = doJSON(t, ts.Client, http.MethodGet, ts.URL+"/v0/employees", nil, bearer("garbage"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token = %d: %s", resp.StatusCode, body)
	}
	decode(t, body, &env)
	if env.Error.Code != "invalid_credentials" {
		t.Fatalf("code = %q", env.Error.Code)
	}

	// valid signature, unknown user
	resp, body = doJSON(t, ts.Client, http.MethodGet, ts.URL+"/v0/me", nil, bearer(mintToken(t, "nobody")))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown user = %d: %s", resp.StatusCode, body)
	}
}

func TestDocumentFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	seedUser(t, ts, "root", "admin")
	admin := bearer(mintToken(t, "root"))

	resp, body := doJSON(t, ts.Client, http.MethodPost, ts.URL+"/v0/employees", map[string]any{
		"email":      "paula@acme.test",
		"first_name": "Paula",
		"department": "engineering",
		"position":   "pm",
		"role":       "pm",
	}, admin)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create pm = %d: %s", resp.StatusCode, body)
	}
	var pmEmp domain.Employee
	decode(t, body, &pmEmp)

	resp, body = doJSON(t, ts.Client, http.MethodPost, ts.URL+"/v0/employees", map[string]any{
		"email":      "vera@acme.test",
		"first_name": "Vera",
		"department": "engineering",
		"position":   "engineer",
	}, admin)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create employee = %d: %s", resp.StatusCode, body)
	}
	var devEmp domain.Employee
	decode(t, body, &devEmp)

	pm := bearer(mintToken(t, pmEmp.UserID))
	dev := bearer(mintToken(t, devEmp.UserID))

	resp, body = doJSON(t, ts.Client, http.MethodPost, ts.URL+"/v0/documents", map[string]any{
		"title":   "Runbook",
		"content": map[string]any{"rev": 1},
	}, pm)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create document = %d: %s", resp.StatusCode, body)
	}
	var doc domain.Document
	decode(t, body, &doc)

	resp, body = doJSON(t, ts.Client, http.MethodPost, ts.URL+"/v0/documents/"+doc.ID+"/shares", map[string]any{
		"user_id": devEmp.UserID,
		"mode":    "static",
	}, pm)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("share = %d: %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, ts.Client, http.MethodPost, ts.URL+"/v0/documents/"+doc.ID+"/versions", map[string]any{
		"content": map[string]any{"rev": 2},
	}, pm)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("append = %d: %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, ts.Client, http.MethodGet, ts.URL+"/v0/documents/"+doc.ID+"/versions", nil, pm)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("versions = %d: %s", resp.StatusCode, body)
	}
	var versions []domain.DocumentVersion
	decode(t, body, &versions)
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}

	// the static viewer reads the repinned latest content
	resp, body = doJSON(t, ts.Client, http.MethodGet, ts.URL+"/v0/documents/"+doc.ID, nil, dev)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("viewer get = %d: %s", resp.StatusCode, body)
	}
	var got struct {
		ContentJSON string `json:"content_json"`
	}
	decode(t, body, &got)
	var content map[string]any
	decode(t, []byte(got.ContentJSON), &content)
	if content["rev"] != float64(2) {
		t.Fatalf("viewer content = %s", got.ContentJSON)
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	seedUser(t, ts, "root", "admin")
	admin := bearer(mintToken(t, "root"))

	resp, body := doJSON(t, ts.Client, http.MethodPost, ts.URL+"/v0/employees", map[string]any{
		"email":      "devon@acme.test",
		"first_name": "Devon",
		"department": "engineering",
		"position":   "engineer",
	}, admin)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create employee = %d: %s", resp.StatusCode, body)
	}
	var devEmp domain.Employee
	decode(t, body, &devEmp)
	dev := bearer(mintToken(t, devEmp.UserID))

	// 403 forbidden: employees cannot onboard employees
	resp, body = doJSON(t, ts.Client, http.MethodPost, ts.URL+"/v0/employees", map[string]any{
		"email":      "x@acme.test",
		"first_name": "X",
		"department": "engineering",
		"position":   "engineer",
	}, dev)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("forbidden = %d: %s", resp.StatusCode, body)
	}
	var env errorEnvelope
	decode(t, body, &env)
	if env.Error.Code != "forbidden" || env.Error.Details["kind"] != "employee" {
		t.Fatalf("envelope = %s", body)
	}

	// 404 not found
	resp, body = doJSON(t, ts.Client, http.MethodGet, ts.URL+"/v0/employees/missing", nil, admin)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("not found = %d: %s", resp.StatusCode, body)
	}
	decode(t, body, &env)
	if env.Error.Code != "not_found" {
		t.Fatalf("code = %q", env.Error.Code)
	}

	// 422 invalid transition: cancel a leave twice
	resp, body = doJSON(t, ts.Client, http.MethodPost, ts.URL+"/v0/leaves", map[string]any{
		"type":       "vacation",
		"start_date": "2024-07-01",
		"end_date":   "2024-07-02",
		"reason":     "trip",
	}, dev)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("apply = %d: %s", resp.StatusCode, body)
	}
	var leave domain.Leave
	decode(t, body, &leave)
	cancelURL := fmt.Sprintf("%s/v0/leaves/%s/cancel", ts.URL, leave.ID)
	if resp, body = doJSON(t, ts.Client, http.MethodPost, cancelURL, nil, dev); resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel = %d: %s", resp.StatusCode, body)
	}
	resp, body = doJSON(t, ts.Client, http.MethodPost, cancelURL, nil, dev)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("double cancel = %d: %s", resp.StatusCode, body)
	}
	decode(t, body, &env)
	if env.Error.Code != "invalid_transition" {
		t.Fatalf("code = %q", env.Error.Code)
	}

	// 400 bad request: unknown leave type
	resp, body = doJSON(t, ts.Client, http.MethodPost, ts.URL+"/v0/leaves", map[string]any{
		"type":       "sabbatical",
		"start_date": "2024-07-01",
		"end_date":   "2024-07-02",
		"reason":     "trip",
	}, dev)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad type = %d: %s", resp.StatusCode, body)
	}
	decode(t, body, &env)
	if env.Error.Code != "bad_request" {
		t.Fatalf("code = %q", env.Error.Code)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ts := newTestServer(t)
	seedUser(t, ts, "root", "admin")
	admin := bearer(mintToken(t, "root"))

	resp, body := doJSON(t, ts.Client, http.MethodPost, ts.URL+"/v0/api-keys", map[string]any{
		"user_id": "root",
		"key":     "svc-key-1",
		"name":    "ci",
	}, admin)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create key = %d: %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, ts.Client, http.MethodGet, ts.URL+"/v0/me", nil, map[string]string{"X-Api-Key": "svc-key-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me via api key = %d: %s", resp.StatusCode, body)
	}
	var me map[string]any
	decode(t, body, &me)
	if me["user_id"] != "root" || me["role"] != "admin" {
		t.Fatalf("me = %s", body)
	}

	resp, body = doJSON(t, ts.Client, http.MethodGet, ts.URL+"/v0/me", nil, map[string]string{"X-Api-Key": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong key = %d: %s", resp.StatusCode, body)
	}
}
