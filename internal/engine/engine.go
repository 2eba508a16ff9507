package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"janvaani/internal/config"
	"janvaani/internal/domain"
	"janvaani/internal/events"
	"janvaani/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ComplaintCreateOptions are parameters for filing a complaint.
type ComplaintCreateOptions struct {
	OwnerID     string
	Title       string
	Description string
	Category    string
	Priority    string
	Ward        string
	Latitude    float64
	Longitude   float64
	PhotoURL    string
}

// CreateComplaint files a complaint, assigns the next JV reference, stamps
// the initial timeline, and awards the filing score to the owner.
func (e Engine) CreateComplaint(ctx context.Context, opts ComplaintCreateOptions) (domain.Complaint, error) {
	if opts.Title == "" {
		return domain.Complaint{}, errors.New("title is required")
	}
	if opts.OwnerID == "" {
		return domain.Complaint{}, errors.New("owner is required")
	}
	if !domain.ValidCategory(opts.Category) {
		return domain.Complaint{}, fmt.Errorf("invalid category %s", opts.Category)
	}
	if opts.Priority == "" {
		opts.Priority = "Medium"
	}
	if !domain.ValidPriority(opts.Priority) {
		return domain.Complaint{}, fmt.Errorf("invalid priority %s", opts.Priority)
	}
	if _, err := e.Repo.GetUser(ctx, opts.OwnerID); err != nil {
		return domain.Complaint{}, err
	}
	now := e.now()
	nowStr := now.UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Complaint{}, err
	}
	defer tx.Rollback()

	seq, err := e.Repo.NextRefSeqTx(ctx, tx, now.UTC().Year())
	if err != nil {
		return domain.Complaint{}, fmt.Errorf("allocate ref: %w", err)
	}
	c := domain.Complaint{
		ID:          uuid.New().String(),
		RefID:       domain.FormatRefID(now.UTC().Year(), seq),
		OwnerID:     opts.OwnerID,
		Title:       opts.Title,
		Description: opts.Description,
		Category:    opts.Category,
		Priority:    opts.Priority,
		Status:      domain.StatusRegistered,
		Ward:        opts.Ward,
		Latitude:    opts.Latitude,
		Longitude:   opts.Longitude,
		PhotoURL:    opts.PhotoURL,
		Timeline:    domain.NewTimeline(now),
		CreatedAt:   nowStr,
		UpdatedAt:   nowStr,
	}
	if err := e.Repo.InsertComplaintTx(ctx, tx, c); err != nil {
		return domain.Complaint{}, err
	}
	if err := e.Repo.AwardScoreTx(ctx, tx, c.OwnerID, e.Config.Scoring.FileComplaint, 1, 0); err != nil {
		return domain.Complaint{}, err
	}
	if err := e.Events.Append(ctx, tx, "complaint.created", "complaint", c.ID, c.OwnerID, events.EventPayload{
		"ref_id":   c.RefID,
		"category": c.Category,
		"priority": c.Priority,
	}); err != nil {
		return domain.Complaint{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Complaint{}, err
	}
	return c, nil
}

// StatusUpdateOptions carries an admin status transition.
type StatusUpdateOptions struct {
	ID              string
	Status          string
	AdminNote       string
	AssignedOfficer string
	ResolvePhotoURL string
	ActorID         string
}

// UpdateStatus moves a complaint forward (or rejects it), keeping the
// timeline consistent: every step at or below the new status is done.
func (e Engine) UpdateStatus(ctx context.Context, opts StatusUpdateOptions) (domain.Complaint, error) {
	c, err := e.Repo.GetComplaint(ctx, opts.ID)
	if err != nil {
		return c, err
	}
	if opts.Status != domain.StatusRejected && domain.StatusIndex(opts.Status) < 0 {
		return c, fmt.Errorf("invalid status %s", opts.Status)
	}
	if !domain.ValidTransition(c.Status, opts.Status) {
		return c, fmt.Errorf("invalid status transition %s -> %s", c.Status, opts.Status)
	}
	if opts.Status == domain.StatusResolved && opts.ResolvePhotoURL == "" && c.ResolvePhotoURL == "" {
		return c, errors.New("resolve photo required to mark Resolved")
	}
	from := c.Status
	now := e.now()
	c.Status = opts.Status
	c.Timeline = domain.StampTimeline(c.Timeline, opts.Status, now)
	if opts.AdminNote != "" {
		c.AdminNote = opts.AdminNote
	}
	if opts.AssignedOfficer != "" {
		c.AssignedOfficer = opts.AssignedOfficer
	}
	if opts.ResolvePhotoURL != "" {
		c.ResolvePhotoURL = opts.ResolvePhotoURL
	}
	c.UpdatedAt = now.UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateComplaintTx(ctx, tx, c); err != nil {
		return c, err
	}
	if opts.Status == domain.StatusResolved {
		if err := e.Repo.AwardScoreTx(ctx, tx, c.OwnerID, e.Config.Scoring.ComplaintResolve, 0, 1); err != nil {
			return c, err
		}
	}
	if err := e.Events.Append(ctx, tx, "complaint.status.updated", "complaint", c.ID, opts.ActorID, events.EventPayload{
		"ref_id": c.RefID,
		"from":   from,
		"to":     c.Status,
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

// Resolve is the terminal-success transition with the mandatory extras.
func (e Engine) Resolve(ctx context.Context, id, resolvePhotoURL, adminNote, assignedOfficer, actorID string) (domain.Complaint, error) {
	if resolvePhotoURL == "" {
		return domain.Complaint{}, errors.New("resolve photo required")
	}
	return e.UpdateStatus(ctx, StatusUpdateOptions{
		ID:              id,
		Status:          domain.StatusResolved,
		AdminNote:       adminNote,
		AssignedOfficer: assignedOfficer,
		ResolvePhotoURL: resolvePhotoURL,
		ActorID:         actorID,
	})
}

// Support adds the citizen to the supporter set. A second attempt by the
// same citizen is a conflict, never a double increment.
func (e Engine) Support(ctx context.Context, id, userID string) (domain.Complaint, error) {
	c, err := e.Repo.GetComplaint(ctx, id)
	if err != nil {
		return c, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	added, err := e.Repo.AddSupporterTx(ctx, tx, c.ID, userID, e.now())
	if err != nil {
		return c, err
	}
	if !added {
		return c, errors.New("already supported")
	}
	if err := e.Events.Append(ctx, tx, "complaint.supported", "complaint", c.ID, userID, events.EventPayload{
		"ref_id": c.RefID,
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	c.SupportCount++
	return c, nil
}

// SubmitFeedback attaches the one-shot feedback record. Only the owner may
// submit, only in the terminal-success state, and only once.
func (e Engine) SubmitFeedback(ctx context.Context, id, userID string, fb domain.Feedback) (domain.Complaint, error) {
	c, err := e.Repo.GetComplaint(ctx, id)
	if err != nil {
		return c, err
	}
	if c.OwnerID != userID {
		return c, errors.New("only the complaint owner may give feedback")
	}
	if c.Status != domain.StatusResolved {
		return c, errors.New("feedback requires a resolved complaint")
	}
	if c.Feedback != nil {
		return c, errors.New("feedback already submitted")
	}
	if fb.Rating < 1 || fb.Rating > 5 {
		return c, errors.New("rating must be between 1 and 5")
	}
	if !domain.ValidFeedbackResolution(fb.Resolved) {
		return c, errors.New("resolved must be yes, no or partial")
	}
	now := e.now()
	fb.GivenAt = now.UTC().Format(time.RFC3339)
	c.Feedback = &fb
	c.UpdatedAt = fb.GivenAt

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateComplaintTx(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Repo.AwardScoreTx(ctx, tx, userID, e.Config.Scoring.GiveFeedback, 0, 0); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "complaint.feedback", "complaint", c.ID, userID, events.EventPayload{
		"ref_id":   c.RefID,
		"rating":   fb.Rating,
		"resolved": fb.Resolved,
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

// DeleteComplaint removes a complaint entirely. Admin only; the supporter
// rows go with it via the FK cascade.
func (e Engine) DeleteComplaint(ctx context.Context, id, actorID string) error {
	c, err := e.Repo.GetComplaint(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteComplaintTx(ctx, tx, c.ID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "complaint.deleted", "complaint", c.ID, actorID, events.EventPayload{
		"ref_id": c.RefID,
	}); err != nil {
		return err
	}
	return tx.Commit()
}
