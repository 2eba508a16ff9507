package jvsdk

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	in := Session{Token: "tok", User: User{ID: "u1", Name: "Asha"}}
	s.WriteEntry(keySession, in)

	var out Session
	if !s.ReadEntry(keySession, 0, &out) {
		t.Fatal("expected session to be present")
	}
	if out.Token != "tok" || out.User.ID != "u1" {
		t.Fatalf("session = %+v", out)
	}
}

func TestStoreMaxAge(t *testing.T) {
	s := newTestStore(t)
	clock := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.WriteEntry(keyComplaints, []Complaint{{ID: "c1", Title: "Pothole"}})

	clock = clock.Add(4 * time.Minute)
	var fresh []Complaint
	if !s.ReadEntry(keyComplaints, snapshotMaxAge, &fresh) {
		t.Fatal("snapshot inside max age should be readable")
	}

	clock = clock.Add(2 * time.Minute)
	var stale []Complaint
	if s.ReadEntry(keyComplaints, snapshotMaxAge, &stale) {
		t.Fatal("snapshot past max age should be absent")
	}
	// The expired entry is gone even without an age limit.
	if s.ReadEntry(keyComplaints, 0, &stale) {
		t.Fatal("expired snapshot should have been deleted")
	}

	// The session never ages out.
	s.WriteEntry(keySession, Session{Token: "tok"})
	clock = clock.Add(240 * time.Hour)
	var session Session
	if !s.ReadEntry(keySession, 0, &session) {
		t.Fatal("session should survive indefinitely")
	}
}

func TestStoreClear(t *testing.T) {
	s := newTestStore(t)
	s.WriteEntry(keySession, Session{Token: "tok"})
	s.WriteEntry(keyComplaints, []Complaint{{ID: "c1"}})
	s.Clear()

	var session Session
	if s.ReadEntry(keySession, 0, &session) {
		t.Fatal("cleared store should be empty")
	}
}

func TestStoreNilSafety(t *testing.T) {
	var s *Store
	s.WriteEntry("k", "v")
	s.Remove("k")
	s.Clear()
	var out string
	if s.ReadEntry("k", 0, &out) {
		t.Fatal("nil store reads nothing")
	}
}
