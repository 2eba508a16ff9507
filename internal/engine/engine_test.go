package engine

import (
	"context"
	"testing"
	"time"

	"janvaani/internal/config"
	"janvaani/internal/db"
	"janvaani/internal/domain"
	"janvaani/internal/migrate"
)

func newTestEnv(t *testing.T) Engine {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := New(conn, config.Default())
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	e.Now = func() time.Time { return fixed }
	e.Events.Now = e.Now
	return e
}

func registerCitizen(t *testing.T, e Engine, email string) domain.User {
	t.Helper()
	u, _, err := e.Register(context.Background(), RegisterOptions{
		Role:     domain.RoleCitizen,
		Name:     "Asha",
		Email:    email,
		Password: "secret123",
		Ward:     "Ward 12",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return u
}

func fileComplaint(t *testing.T, e Engine, ownerID string) domain.Complaint {
	t.Helper()
	c, err := e.CreateComplaint(context.Background(), ComplaintCreateOptions{
		OwnerID:     ownerID,
		Title:       "Pothole on main road",
		Description: "Deep pothole near the market crossing",
		Category:    "Roads",
		Priority:    "High",
		Ward:        "Ward 12",
	})
	if err != nil {
		t.Fatalf("create complaint: %v", err)
	}
	return c
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)
	u := registerCitizen(t, e, "asha@example.com")
	if u.Role != domain.RoleCitizen {
		t.Fatalf("role = %s", u.Role)
	}
	if u.Tier != "Bronze" {
		t.Fatalf("new user tier = %s, want Bronze", u.Tier)
	}

	got, token, err := e.Login(context.Background(), domain.RoleCitizen, "asha@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("login user = %s, want %s", got.ID, u.ID)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	if _, _, err := e.Login(context.Background(), domain.RoleCitizen, "asha@example.com", "wrong"); err == nil {
		t.Fatal("expected wrong password to fail")
	}
	if _, _, err := e.Login(context.Background(), domain.RoleAdmin, "asha@example.com", "secret123"); err == nil {
		t.Fatal("expected role mismatch to fail")
	}
}

func TestCreateComplaint(t *testing.T) {
	e := newTestEnv(t)
	u := registerCitizen(t, e, "asha@example.com")

	c := fileComplaint(t, e, u.ID)
	if c.RefID != "JV-2026-00001" {
		t.Fatalf("ref id = %s", c.RefID)
	}
	if c.Status != domain.StatusRegistered {
		t.Fatalf("status = %s", c.Status)
	}
	if len(c.Timeline) != len(domain.TimelineStepNames) {
		t.Fatalf("timeline has %d steps", len(c.Timeline))
	}
	if !c.Timeline[0].Done || c.Timeline[0].Date == nil {
		t.Fatal("registered step should be stamped")
	}
	if c.Timeline[1].Done {
		t.Fatal("acknowledged step should not be stamped yet")
	}

	c2 := fileComplaint(t, e, u.ID)
	if c2.RefID != "JV-2026-00002" {
		t.Fatalf("second ref id = %s", c2.RefID)
	}

	owner, err := e.Repo.GetUser(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if owner.Score != 2*e.Config.Scoring.FileComplaint {
		t.Fatalf("score = %d", owner.Score)
	}
	if owner.ComplaintsFiled != 2 {
		t.Fatalf("filed = %d", owner.ComplaintsFiled)
	}
}

func TestCreateComplaintValidation(t *testing.T) {
	e := newTestEnv(t)
	u := registerCitizen(t, e, "asha@example.com")

	if _, err := e.CreateComplaint(context.Background(), ComplaintCreateOptions{OwnerID: u.ID, Category: "Roads"}); err == nil {
		t.Fatal("expected missing title to fail")
	}
	if _, err := e.CreateComplaint(context.Background(), ComplaintCreateOptions{OwnerID: u.ID, Title: "x", Category: "Astral"}); err == nil {
		t.Fatal("expected unknown category to fail")
	}
	if _, err := e.CreateComplaint(context.Background(), ComplaintCreateOptions{OwnerID: "nope", Title: "x", Category: "Roads"}); err == nil {
		t.Fatal("expected unknown owner to fail")
	}
}

func TestStatusTransitions(t *testing.T) {
	e := newTestEnv(t)
	u := registerCitizen(t, e, "asha@example.com")
	c := fileComplaint(t, e, u.ID)
	ctx := context.Background()

	c, err := e.UpdateStatus(ctx, StatusUpdateOptions{ID: c.ID, Status: domain.StatusInProgress, ActorID: "admin"})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !c.Timeline[1].Done || !c.Timeline[2].Done {
		t.Fatal("skipped steps must be stamped too")
	}

	if _, err := e.UpdateStatus(ctx, StatusUpdateOptions{ID: c.ID, Status: domain.StatusAcknowledged}); err == nil {
		t.Fatal("expected backward transition to fail")
	}
	if _, err := e.UpdateStatus(ctx, StatusUpdateOptions{ID: c.ID, Status: domain.StatusResolved}); err == nil {
		t.Fatal("expected resolve without photo to fail")
	}

	c, err = e.Resolve(ctx, c.ID, "https://img.example/after.jpg", "fixed", "Officer Rao", "admin")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c.Status != domain.StatusResolved {
		t.Fatalf("status = %s", c.Status)
	}
	for i, s := range c.Timeline {
		if !s.Done {
			t.Fatalf("step %d not done after resolve", i)
		}
	}

	if _, err := e.UpdateStatus(ctx, StatusUpdateOptions{ID: c.ID, Status: domain.StatusRejected}); err == nil {
		t.Fatal("expected transition out of terminal state to fail")
	}

	owner, _ := e.Repo.GetUser(ctx, u.ID)
	want := e.Config.Scoring.FileComplaint + e.Config.Scoring.ComplaintResolve
	if owner.Score != want {
		t.Fatalf("score = %d, want %d", owner.Score, want)
	}
	if owner.ComplaintsResolved != 1 {
		t.Fatalf("resolved = %d", owner.ComplaintsResolved)
	}
}

func TestReject(t *testing.T) {
	e := newTestEnv(t)
	u := registerCitizen(t, e, "asha@example.com")
	c := fileComplaint(t, e, u.ID)

	c, err := e.UpdateStatus(context.Background(), StatusUpdateOptions{ID: c.ID, Status: domain.StatusRejected, AdminNote: "duplicate"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if c.AdminNote != "duplicate" {
		t.Fatalf("admin note = %q", c.AdminNote)
	}
	if _, err := e.UpdateStatus(context.Background(), StatusUpdateOptions{ID: c.ID, Status: domain.StatusInProgress}); err == nil {
		t.Fatal("expected rejected complaint to be frozen")
	}
}

func TestSupport(t *testing.T) {
	e := newTestEnv(t)
	owner := registerCitizen(t, e, "asha@example.com")
	friend := registerCitizen(t, e, "ravi@example.com")
	c := fileComplaint(t, e, owner.ID)
	ctx := context.Background()

	c, err := e.Support(ctx, c.ID, friend.ID)
	if err != nil {
		t.Fatalf("support: %v", err)
	}
	if c.SupportCount != 1 {
		t.Fatalf("support count = %d", c.SupportCount)
	}

	if _, err := e.Support(ctx, c.ID, friend.ID); err == nil {
		t.Fatal("expected duplicate support to fail")
	}
	got, err := e.Repo.GetComplaint(ctx, c.RefID)
	if err != nil {
		t.Fatalf("get by ref: %v", err)
	}
	if got.SupportCount != 1 {
		t.Fatalf("count after duplicate = %d", got.SupportCount)
	}
}

func TestFeedback(t *testing.T) {
	e := newTestEnv(t)
	owner := registerCitizen(t, e, "asha@example.com")
	other := registerCitizen(t, e, "ravi@example.com")
	c := fileComplaint(t, e, owner.ID)
	ctx := context.Background()
	fb := domain.Feedback{Rating: 4, Comment: "quick fix", Resolved: "yes"}

	if _, err := e.SubmitFeedback(ctx, c.ID, owner.ID, fb); err == nil {
		t.Fatal("expected feedback before resolve to fail")
	}

	if _, err := e.Resolve(ctx, c.ID, "https://img.example/after.jpg", "", "", "admin"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if _, err := e.SubmitFeedback(ctx, c.ID, other.ID, fb); err == nil {
		t.Fatal("expected non-owner feedback to fail")
	}
	if _, err := e.SubmitFeedback(ctx, c.ID, owner.ID, domain.Feedback{Rating: 9, Resolved: "yes"}); err == nil {
		t.Fatal("expected out-of-range rating to fail")
	}

	c, err := e.SubmitFeedback(ctx, c.ID, owner.ID, fb)
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if c.Feedback == nil || c.Feedback.Rating != 4 || c.Feedback.GivenAt == "" {
		t.Fatalf("feedback = %+v", c.Feedback)
	}

	if _, err := e.SubmitFeedback(ctx, c.ID, owner.ID, domain.Feedback{Rating: 1, Resolved: "no"}); err == nil {
		t.Fatal("expected second feedback to fail")
	}

	u, _ := e.Repo.GetUser(ctx, owner.ID)
	want := e.Config.Scoring.FileComplaint + e.Config.Scoring.ComplaintResolve + e.Config.Scoring.GiveFeedback
	if u.Score != want {
		t.Fatalf("score = %d, want %d", u.Score, want)
	}
}

func TestDeleteComplaint(t *testing.T) {
	e := newTestEnv(t)
	u := registerCitizen(t, e, "asha@example.com")
	c := fileComplaint(t, e, u.ID)
	ctx := context.Background()

	if err := e.DeleteComplaint(ctx, c.ID, "admin"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := e.Repo.GetComplaint(ctx, c.ID); err == nil {
		t.Fatal("expected complaint to be gone")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	e := newTestEnv(t)
	registerCitizen(t, e, "asha@example.com")
	ctx := context.Background()

	token, err := e.ForgotPassword(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("forgot: %v", err)
	}
	if err := e.ResetPassword(ctx, token, "newsecret9"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, _, err := e.Login(ctx, domain.RoleCitizen, "asha@example.com", "newsecret9"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if err := e.ResetPassword(ctx, token, "another111"); err == nil {
		t.Fatal("expected reused token to fail")
	}
}
