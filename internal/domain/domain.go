package domain

import (
	"fmt"
	"time"
)

// Roles. A user holds exactly one and it never changes.
const (
	RoleCitizen = "citizen"
	RoleAdmin   = "admin"
)

// Complaint statuses, ordered. Resolved and Rejected are terminal.
const (
	StatusRegistered   = "Registered"
	StatusAcknowledged = "Acknowledged"
	StatusInProgress   = "In Progress"
	StatusResolved     = "Resolved"
	StatusRejected     = "Rejected"
)

// statusOrder maps the forward-progress statuses to their timeline index.
var statusOrder = map[string]int{
	StatusRegistered:   0,
	StatusAcknowledged: 1,
	StatusInProgress:   2,
	StatusResolved:     3,
}

// TimelineStepNames is the fixed step sequence every complaint carries.
var TimelineStepNames = []string{
	StatusRegistered,
	StatusAcknowledged,
	StatusInProgress,
	StatusResolved,
}

var Categories = []string{"Roads", "Water", "Sanitation", "Electricity", "Streetlights", "Parks", "Other"}

var Priorities = []string{"Low", "Medium", "High", "Critical"}

type User struct {
	ID                 string `json:"id"`
	Role               string `json:"role" enum:"citizen,admin"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Ward               string `json:"ward,omitempty"`
	Score              int    `json:"score"`
	Tier               string `json:"tier"`
	ComplaintsFiled    int    `json:"complaints_filed"`
	ComplaintsResolved int    `json:"complaints_resolved"`
	CreatedAt          string `json:"created_at" format:"date-time"`
}

type TimelineStep struct {
	Name string  `json:"name"`
	Done bool    `json:"done"`
	Date *string `json:"date,omitempty" format:"date-time"`
}

type Feedback struct {
	Rating   int    `json:"rating" minimum:"1" maximum:"5"`
	Comment  string `json:"comment,omitempty"`
	Resolved string `json:"resolved" enum:"yes,no,partial"`
	GivenAt  string `json:"given_at" format:"date-time"`
}

type Complaint struct {
	ID              string         `json:"id"`
	RefID           string         `json:"ref_id"`
	OwnerID         string         `json:"owner_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Category        string         `json:"category"`
	Priority        string         `json:"priority"`
	Status          string         `json:"status"`
	Ward            string         `json:"ward,omitempty"`
	Latitude        float64        `json:"latitude,omitempty"`
	Longitude       float64        `json:"longitude,omitempty"`
	PhotoURL        string         `json:"photo_url,omitempty"`
	ResolvePhotoURL string         `json:"resolve_photo_url,omitempty"`
	Timeline        []TimelineStep `json:"timeline"`
	Feedback        *Feedback      `json:"feedback,omitempty"`
	SupportCount    int            `json:"support_count"`
	AdminNote       string         `json:"admin_note,omitempty"`
	AssignedOfficer string         `json:"assigned_officer,omitempty"`
	CreatedAt       string         `json:"created_at" format:"date-time"`
	UpdatedAt       string         `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// StatusIndex returns the timeline index for a forward-progress status,
// or -1 for Rejected and unknown values.
func StatusIndex(status string) int {
	if idx, ok := statusOrder[status]; ok {
		return idx
	}
	return -1
}

// IsTerminal reports whether no further status transition is allowed.
func IsTerminal(status string) bool {
	return status == StatusResolved || status == StatusRejected
}

// ValidTransition reports whether a complaint may move from one status to
// another: strictly forward along the ordered statuses, or to Rejected from
// any non-terminal status.
func ValidTransition(from, to string) bool {
	if IsTerminal(from) {
		return false
	}
	if to == StatusRejected {
		return true
	}
	fi, ti := StatusIndex(from), StatusIndex(to)
	return fi >= 0 && ti > fi
}

// NewTimeline returns the fixed step sequence with the Registered step done.
func NewTimeline(now time.Time) []TimelineStep {
	steps := make([]TimelineStep, len(TimelineStepNames))
	for i, name := range TimelineStepNames {
		steps[i] = TimelineStep{Name: name}
	}
	date := now.UTC().Format(time.RFC3339)
	steps[0].Done = true
	steps[0].Date = &date
	return steps
}

// StampTimeline marks every step up to and including the index of status as
// done. Done flags only ever advance; earlier stamps keep their dates.
func StampTimeline(steps []TimelineStep, status string, now time.Time) []TimelineStep {
	idx := StatusIndex(status)
	if idx < 0 {
		return steps
	}
	date := now.UTC().Format(time.RFC3339)
	for i := range steps {
		if i <= idx && !steps[i].Done {
			steps[i].Done = true
			d := date
			steps[i].Date = &d
		}
	}
	return steps
}

// TierForScore maps a score to its tier label. Thresholds are monotonic.
func TierForScore(score int) string {
	switch {
	case score < 50:
		return "Bronze"
	case score < 150:
		return "Silver"
	case score < 300:
		return "Gold"
	default:
		return "Platinum"
	}
}

// FormatRefID renders the human-facing complaint identifier.
func FormatRefID(year, seq int) string {
	return fmt.Sprintf("JV-%d-%05d", year, seq)
}

func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

func ValidPriority(p string) bool {
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

func ValidFeedbackResolution(r string) bool {
	return r == "yes" || r == "no" || r == "partial"
}
