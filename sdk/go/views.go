package jvsdk

import "time"

// StateSnapshot is the read-only input to the derived views.
type StateSnapshot struct {
	Session    *Session
	Complaints []Complaint
}

// MyComplaints returns the complaints visible to the snapshot's user:
// admins see everything, citizens only what they own. The owner field may
// carry the user id or the email depending on the server version.
func MyComplaints(snap StateSnapshot) []Complaint {
	if snap.Session == nil {
		return nil
	}
	if snap.Session.User.Role == "admin" {
		return snap.Complaints
	}
	uid := snap.Session.User.ID
	email := snap.Session.User.Email
	var out []Complaint
	for _, c := range snap.Complaints {
		if c.OwnerID == "" {
			continue
		}
		if c.OwnerID == uid || (email != "" && c.OwnerID == email) {
			out = append(out, c)
		}
	}
	return out
}

// CountsByStatus tallies the snapshot's complaints per status.
func CountsByStatus(snap StateSnapshot) map[string]int {
	counts := make(map[string]int)
	for _, c := range MyComplaints(snap) {
		counts[c.Status]++
	}
	return counts
}

// CountsByCategory tallies the snapshot's complaints per category.
func CountsByCategory(snap StateSnapshot) map[string]int {
	counts := make(map[string]int)
	for _, c := range MyComplaints(snap) {
		counts[c.Category]++
	}
	return counts
}

// FiledSince counts complaints filed at or after cutoff.
func FiledSince(snap StateSnapshot, cutoff time.Time) int {
	n := 0
	for _, c := range MyComplaints(snap) {
		t, err := time.Parse(time.RFC3339, c.CreatedAt)
		if err != nil {
			continue
		}
		if !t.Before(cutoff) {
			n++
		}
	}
	return n
}

// FilingStreak returns the consecutive-day filing streak ending today. A
// day counts when at least one complaint was filed on it; the streak breaks
// at the first empty day walking backwards from today.
func FilingStreak(snap StateSnapshot, now time.Time) int {
	days := make(map[string]bool)
	for _, c := range MyComplaints(snap) {
		t, err := time.Parse(time.RFC3339, c.CreatedAt)
		if err != nil {
			continue
		}
		days[t.UTC().Format("2006-01-02")] = true
	}
	streak := 0
	day := now.UTC()
	for days[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
