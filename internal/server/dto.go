package server

import (
	"janvaani/internal/config"
	"janvaani/internal/domain"
	"janvaani/internal/repo"
)

type UserResponse struct {
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

func userResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:                 u.ID,
		Role:               u.Role,
		Name:               u.Name,
		Email:              u.Email,
		Ward:               u.Ward,
		Score:              u.Score,
		Tier:               u.Tier,
		ComplaintsFiled:    u.ComplaintsFiled,
		ComplaintsResolved: u.ComplaintsResolved,
		CreatedAt:          u.CreatedAt,
	}
}

func mapUsers(users []domain.User) []UserResponse {
	res := make([]UserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, userResponse(u))
	}
	return res
}

type TimelineStepResponse struct {
	Name string  `json:"name"`
	Done bool    `json:"done"`
	Date *string `json:"date"`
}

type FeedbackResponse struct {
	Rating   int    `json:"rating"`
	Comment  string `json:"comment,omitempty"`
	Resolved string `json:"resolved"`
	GivenAt  string `json:"givenAt"`
}

type ComplaintResponse struct {
	ID              string                 `json:"id"`
	RefID           string                 `json:"refId"`
	OwnerID         string                 `json:"ownerId"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description,omitempty"`
	Category        string                 `json:"category"`
	Priority        string                 `json:"priority"`
	Status          string                 `json:"status"`
	Ward            string                 `json:"ward,omitempty"`
	Latitude        float64                `json:"latitude,omitempty"`
	Longitude       float64                `json:"longitude,omitempty"`
	PhotoURL        string                 `json:"photo,omitempty"`
	ResolvePhotoURL string                 `json:"resolvePhoto,omitempty"`
	Timeline        []TimelineStepResponse `json:"timeline"`
	Feedback        *FeedbackResponse      `json:"feedback,omitempty"`
	SupportCount    int                    `json:"supportCount"`
	AdminNote       string                 `json:"adminNote,omitempty"`
	AssignedOfficer string                 `json:"assignedOfficer,omitempty"`
	CreatedAt       string                 `json:"createdAt"`
	UpdatedAt       string                 `json:"updatedAt"`
}

func complaintResponse(c domain.Complaint) ComplaintResponse {
	steps := make([]TimelineStepResponse, 0, len(c.Timeline))
	for _, s := range c.Timeline {
		steps = append(steps, TimelineStepResponse{Name: s.Name, Done: s.Done, Date: s.Date})
	}
	var fb *FeedbackResponse
	if c.Feedback != nil {
		fb = &FeedbackResponse{
			Rating:   c.Feedback.Rating,
			Comment:  c.Feedback.Comment,
			Resolved: c.Feedback.Resolved,
			GivenAt:  c.Feedback.GivenAt,
		}
	}
	return ComplaintResponse{
		ID:              c.ID,
		RefID:           c.RefID,
		OwnerID:         c.OwnerID,
		Title:           c.Title,
		Description:     c.Description,
		Category:        c.Category,
		Priority:        c.Priority,
		Status:          c.Status,
		Ward:            c.Ward,
		Latitude:        c.Latitude,
		Longitude:       c.Longitude,
		PhotoURL:        c.PhotoURL,
		ResolvePhotoURL: c.ResolvePhotoURL,
		Timeline:        steps,
		Feedback:        fb,
		SupportCount:    c.SupportCount,
		AdminNote:       c.AdminNote,
		AssignedOfficer: c.AssignedOfficer,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func mapComplaints(items []domain.Complaint) []ComplaintResponse {
	res := make([]ComplaintResponse, 0, len(items))
	for _, c := range items {
		res = append(res, complaintResponse(c))
	}
	return res
}

type MeResponse struct {
	User UserResponse `json:"user"`
}

// AwardsResponse exposes the configured score awards so clients can mirror
// score changes without guessing the server's settings.
type AwardsResponse struct {
	File     int `json:"file"`
	Resolve  int `json:"resolve"`
	Feedback int `json:"feedback"`
}

func awardsResponse(cfg *config.Config) AwardsResponse {
	return AwardsResponse{
		File:     cfg.Scoring.FileComplaint,
		Resolve:  cfg.Scoring.ComplaintResolve,
		Feedback: cfg.Scoring.GiveFeedback,
	}
}

type SessionResponse struct {
	Token  string         `json:"token"`
	User   UserResponse   `json:"user"`
	Awards AwardsResponse `json:"awards"`
}

type StatsResponse struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus"`
	ByCategory map[string]int `json:"byCategory"`
	ByPriority map[string]int `json:"byPriority"`
	Today      int            `json:"today"`
	ThisWeek   int            `json:"thisWeek"`
}

func statsResponse(s repo.Stats) StatsResponse {
	return StatsResponse{
		Total:      s.Total,
		ByStatus:   s.ByStatus,
		ByCategory: s.ByCategory,
		ByPriority: s.ByPriority,
		Today:      s.Today,
		ThisWeek:   s.ThisWeek,
	}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Ward     string `json:"ward,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateComplaintRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category"`
	Priority    string  `json:"priority,omitempty"`
	Ward        string  `json:"ward,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	PhotoURL    string  `json:"photo,omitempty"`
}

type UpdateStatusRequest struct {
	Status          string `json:"status"`
	AdminNote       string `json:"adminNote,omitempty"`
	AssignedOfficer string `json:"assignedOfficer,omitempty"`
}

type ResolveRequest struct {
	ResolvePhotoURL string `json:"resolvePhoto"`
	AdminNote       string `json:"adminNote,omitempty"`
	AssignedOfficer string `json:"assignedOfficer,omitempty"`
}

type FeedbackRequest struct {
	Rating   int    `json:"rating"`
	Comment  string `json:"comment,omitempty"`
	Resolved string `json:"resolved"`
}

type UpdateProfileRequest struct {
	Name *string `json:"name,omitempty"`
	Ward *string `json:"ward,omitempty"`
}

type ChangePasswordRequest struct {
	Current string `json:"current"`
	Next    string `json:"next"`
}
