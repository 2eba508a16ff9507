package jvsdk

// User mirrors the API user model.
type User struct {
	ID                 string `json:"id"`
	Role               string `json:"role"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Ward               string `json:"ward,omitempty"`
	Score              int    `json:"score"`
	Tier               string `json:"tier"`
	ComplaintsFiled    int    `json:"complaintsFiled"`
	ComplaintsResolved int    `json:"complaintsResolved"`
	CreatedAt          string `json:"createdAt"`
}

type TimelineStep struct {
	Name string  `json:"name"`
	Done bool    `json:"done"`
	Date *string `json:"date"`
}

type Feedback struct {
	Rating   int    `json:"rating"`
	Comment  string `json:"comment,omitempty"`
	Resolved string `json:"resolved"`
	GivenAt  string `json:"givenAt"`
}

type Complaint struct {
	ID              string         `json:"id"`
	RefID           string         `json:"refId"`
	OwnerID         string         `json:"ownerId"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Category        string         `json:"category"`
	Priority        string         `json:"priority"`
	Status          string         `json:"status"`
	Ward            string         `json:"ward,omitempty"`
	Latitude        float64        `json:"latitude,omitempty"`
	Longitude       float64        `json:"longitude,omitempty"`
	PhotoURL        string         `json:"photo,omitempty"`
	ResolvePhotoURL string         `json:"resolvePhoto,omitempty"`
	Timeline        []TimelineStep `json:"timeline"`
	Feedback        *Feedback      `json:"feedback,omitempty"`
	SupportCount    int            `json:"supportCount"`
	AdminNote       string         `json:"adminNote,omitempty"`
	AssignedOfficer string         `json:"assignedOfficer,omitempty"`
	CreatedAt       string         `json:"createdAt"`
	UpdatedAt       string         `json:"updatedAt"`
}

// Matches reports whether id names this complaint by either identifier.
func (c Complaint) Matches(id string) bool {
	return id != "" && (c.ID == id || c.RefID == id)
}

// ScoreAwards carries the server's configured point values so client-side
// score math agrees with what the server will settle on.
type ScoreAwards struct {
	File     int `json:"file"`
	Resolve  int `json:"resolve"`
	Feedback int `json:"feedback"`
}

// Session is the authenticated user plus their token.
type Session struct {
	Token  string      `json:"token"`
	User   User        `json:"user"`
	Awards ScoreAwards `json:"awards"`
}

type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus"`
	ByCategory map[string]int `json:"byCategory"`
	ByPriority map[string]int `json:"byPriority"`
	Today      int            `json:"today"`
	ThisWeek   int            `json:"thisWeek"`
}

// ComplaintDraft is the input for filing a complaint.
type ComplaintDraft struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category"`
	Priority    string  `json:"priority,omitempty"`
	Ward        string  `json:"ward,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	PhotoURL    string  `json:"photo,omitempty"`
}

// StatusUpdate is the input for an admin status transition.
type StatusUpdate struct {
	Status          string `json:"status"`
	AdminNote       string `json:"adminNote,omitempty"`
	AssignedOfficer string `json:"assignedOfficer,omitempty"`
}

// Resolution is the input for the terminal-success transition.
type Resolution struct {
	ResolvePhotoURL string `json:"resolvePhoto"`
	AdminNote       string `json:"adminNote,omitempty"`
	AssignedOfficer string `json:"assignedOfficer,omitempty"`
}

// FeedbackDraft is the input for one-shot feedback.
type FeedbackDraft struct {
	Rating   int    `json:"rating"`
	Comment  string `json:"comment,omitempty"`
	Resolved string `json:"resolved"`
}
