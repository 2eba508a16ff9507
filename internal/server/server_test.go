package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"janvaani/internal/config"
	"janvaani/internal/db"
	"janvaani/internal/engine"
	"janvaani/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/api",
		Auth:     AuthConfig{JWTSecret: cfg.Auth.JWTSecret},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(testSrv.Close)
	return testSrv
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func registerUser(t *testing.T, srv *testServer, role, email string) (SessionResponse, string) {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/auth/"+role+"/register", map[string]any{
		"name":     "Test " + role,
		"email":    email,
		"password": "secret123",
		"ward":     "Ward 7",
	}, "")
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d: %s", res.StatusCode, string(data))
	}
	var session SessionResponse
	if err := json.Unmarshal(data, &session); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	return session, session.Token
}

func fileTestComplaint(t *testing.T, srv *testServer, token string) ComplaintResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/complaints", map[string]any{
		"title":    "Streetlight out near bus stop",
		"category": "Streetlights",
		"priority": "Medium",
		"ward":     "Ward 7",
	}, token)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create complaint status %d: %s", res.StatusCode, string(data))
	}
	var c ComplaintResponse
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("unmarshal complaint: %v", err)
	}
	return c
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)
	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/complaints", nil, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/health", nil, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", res.StatusCode)
	}
}

func TestRegisterLoginMe(t *testing.T) {
	srv := newTestServer(t)
	session, token := registerUser(t, srv, "citizen", "asha@example.com")
	if session.User.Role != "citizen" {
		t.Fatalf("role = %s", session.User.Role)
	}

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/auth/citizen/login", map[string]any{
		"email":    "asha@example.com",
		"password": "secret123",
	}, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/auth/me", nil, token)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, string(data))
	}
	var me MeResponse
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.User.ID != session.User.ID {
		t.Fatalf("me id = %s, want %s", me.User.ID, session.User.ID)
	}
	if session.Awards.File <= 0 || session.Awards.Feedback <= 0 {
		t.Fatalf("awards missing from session: %+v", session.Awards)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/auth/citizen/register", map[string]any{
		"name":     "Dup",
		"email":    "asha@example.com",
		"password": "secret123",
	}, "")
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", res.StatusCode)
	}
}

func TestComplaintLifecycle(t *testing.T) {
	srv := newTestServer(t)
	_, citizenToken := registerUser(t, srv, "citizen", "asha@example.com")
	_, adminToken := registerUser(t, srv, "admin", "admin@example.com")

	c := fileTestComplaint(t, srv, citizenToken)
	if c.RefID == "" || c.Status != "Registered" {
		t.Fatalf("complaint = %+v", c)
	}

	// Citizens cannot move status.
	res, _ := doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/api/complaints/"+c.ID+"/status", map[string]any{
		"status": "Acknowledged",
	}, citizenToken)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("citizen status update = %d, want 403", res.StatusCode)
	}

	res, data := doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/api/complaints/"+c.ID+"/status", map[string]any{
		"status":          "Acknowledged",
		"assignedOfficer": "Officer Rao",
	}, adminToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status update %d: %s", res.StatusCode, string(data))
	}

	// Backward transition conflicts.
	res, _ = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/api/complaints/"+c.ID+"/status", map[string]any{
		"status": "Registered",
	}, adminToken)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("backward transition = %d, want 409", res.StatusCode)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/api/complaints/"+c.ID+"/resolve", map[string]any{
		"resolvePhoto": "https://img.example/after.jpg",
		"adminNote":    "replaced bulb",
	}, adminToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("resolve %d: %s", res.StatusCode, string(data))
	}
	var resolved ComplaintResponse
	if err := json.Unmarshal(data, &resolved); err != nil {
		t.Fatalf("unmarshal resolved: %v", err)
	}
	if resolved.Status != "Resolved" {
		t.Fatalf("status = %s", resolved.Status)
	}
	for _, step := range resolved.Timeline {
		if !step.Done {
			t.Fatalf("step %s not done after resolve", step.Name)
		}
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/complaints/"+c.ID+"/feedback", map[string]any{
		"rating":   5,
		"comment":  "fixed fast",
		"resolved": "yes",
	}, citizenToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("feedback %d: %s", res.StatusCode, string(data))
	}

	res, _ = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/complaints/"+c.ID+"/feedback", map[string]any{
		"rating":   1,
		"resolved": "no",
	}, citizenToken)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("second feedback = %d, want 409", res.StatusCode)
	}
}

func TestSupportConflict(t *testing.T) {
	srv := newTestServer(t)
	_, ownerToken := registerUser(t, srv, "citizen", "asha@example.com")
	_, friendToken := registerUser(t, srv, "citizen", "ravi@example.com")
	c := fileTestComplaint(t, srv, ownerToken)

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/complaints/"+c.ID+"/support", nil, friendToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("support %d: %s", res.StatusCode, string(data))
	}
	var supported ComplaintResponse
	if err := json.Unmarshal(data, &supported); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if supported.SupportCount != 1 {
		t.Fatalf("support count = %d", supported.SupportCount)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/complaints/"+c.ID+"/support", nil, friendToken)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("repeat support = %d, want 409", res.StatusCode)
	}
}

func TestRoleScopedListing(t *testing.T) {
	srv := newTestServer(t)
	_, ashaToken := registerUser(t, srv, "citizen", "asha@example.com")
	_, raviToken := registerUser(t, srv, "citizen", "ravi@example.com")
	_, adminToken := registerUser(t, srv, "admin", "admin@example.com")

	ashaComplaint := fileTestComplaint(t, srv, ashaToken)
	fileTestComplaint(t, srv, raviToken)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/complaints", nil, ashaToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list %d: %s", res.StatusCode, string(data))
	}
	var mine []ComplaintResponse
	if err := json.Unmarshal(data, &mine); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != ashaComplaint.ID {
		t.Fatalf("citizen list = %+v", mine)
	}

	// Another citizen's complaint is invisible even by direct fetch.
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/complaints/"+ashaComplaint.ID, nil, raviToken)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-citizen get = %d, want 404", res.StatusCode)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/complaints", nil, adminToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("admin list %d: %s", res.StatusCode, string(data))
	}
	var all []ComplaintResponse
	if err := json.Unmarshal(data, &all); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin sees %d complaints", len(all))
	}
}

func TestStatsAdminOnly(t *testing.T) {
	srv := newTestServer(t)
	_, citizenToken := registerUser(t, srv, "citizen", "asha@example.com")
	_, adminToken := registerUser(t, srv, "admin", "admin@example.com")
	fileTestComplaint(t, srv, citizenToken)

	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/complaints/stats", nil, citizenToken)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("citizen stats = %d, want 403", res.StatusCode)
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/complaints/stats", nil, adminToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stats %d: %s", res.StatusCode, string(data))
	}
	var stats StatsResponse
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.Total != 1 || stats.ByStatus["Registered"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestPasswordResetEndpoints(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "citizen", "asha@example.com")

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/auth/forgot-password", map[string]any{
		"email": "asha@example.com",
	}, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("forgot %d: %s", res.StatusCode, string(data))
	}
	var out map[string]string
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	token := out["resetToken"]
	if token == "" {
		t.Fatal("expected a reset token")
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/auth/reset-password", map[string]any{
		"token":    token,
		"password": "newsecret9",
	}, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reset %d: %s", res.StatusCode, string(data))
	}

	res, _ = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/auth/citizen/login", map[string]any{
		"email":    "asha@example.com",
		"password": "newsecret9",
	}, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login after reset = %d", res.StatusCode)
	}
}
