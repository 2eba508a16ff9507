package jvsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	defaultPollInterval   = 25 * time.Second
	defaultFeedbackPoints = 5
	defaultFilePoints     = 10
)

const (
	pathMe          = "/api/auth/me"
	pathComplaints  = "/api/complaints"
	pathStats       = "/api/complaints/stats"
	pathLeaderboard = "/api/users/leaderboard"
	pathUsers       = "/api/users"
)

// Coordinator owns the client-side canonical state: the session and the
// in-memory collections every consumer reads. All mutation funnels through
// its single mutex; the gateway, cache, and durable store hang off it.
type Coordinator struct {
	gateway *Gateway
	cache   *CacheStore
	store   *Store

	mu          sync.Mutex
	session     *Session
	complaints  []Complaint
	leaderboard []User
	roster      []User

	coalescer Coalescer

	pollInterval time.Duration
	pollStop     chan struct{}
	polling      bool
	refreshing   bool
	rostering    bool

	supportMu       sync.Mutex
	supportInFlight map[string]bool
}

type Options struct {
	BaseURL      string
	Store        *Store
	Cache        *CacheStore
	PollInterval time.Duration
}

func NewCoordinator(opts Options) *Coordinator {
	c := &Coordinator{
		gateway:         NewGateway(opts.BaseURL),
		cache:           opts.Cache,
		store:           opts.Store,
		pollInterval:    opts.PollInterval,
		supportInFlight: make(map[string]bool),
	}
	if c.cache == nil {
		c.cache = NewCacheStore(0, nil)
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	c.gateway.TokenFunc = c.currentToken
	return c
}

// Gateway exposes the transport for tuning (budget, HTTP client).
func (c *Coordinator) Gateway() *Gateway { return c.gateway }

// filePoints and feedbackPoints read the award values the server sent with
// the session, so the optimistic score mirror matches a server configured
// with non-default awards. Callers hold c.mu.
func (c *Coordinator) filePoints() int {
	if c.session != nil && c.session.Awards.File > 0 {
		return c.session.Awards.File
	}
	return defaultFilePoints
}

func (c *Coordinator) feedbackPoints() int {
	if c.session != nil && c.session.Awards.Feedback > 0 {
		return c.session.Awards.Feedback
	}
	return defaultFeedbackPoints
}

func (c *Coordinator) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

// Session returns a copy of the current session, or nil when logged out.
func (c *Coordinator) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Complaints returns a deep copy of the canonical complaint collection.
func (c *Coordinator) Complaints() []Complaint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyComplaints(c.complaints)
}

// LeaderboardUsers returns the last fetched leaderboard.
func (c *Coordinator) LeaderboardUsers() []User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]User(nil), c.leaderboard...)
}

// Roster returns the last fetched citizen roster (admin sessions).
func (c *Coordinator) Roster() []User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]User(nil), c.roster...)
}

// Snapshot captures the state the derived views consume.
func (c *Coordinator) Snapshot() StateSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := StateSnapshot{Complaints: copyComplaints(c.complaints)}
	if c.session != nil {
		s := *c.session
		snap.Session = &s
	}
	return snap
}

func copyComplaints(items []Complaint) []Complaint {
	out := make([]Complaint, len(items))
	for i, item := range items {
		out[i] = copyComplaint(item)
	}
	return out
}

func copyComplaint(c Complaint) Complaint {
	c.Timeline = append([]TimelineStep(nil), c.Timeline...)
	for i, s := range c.Timeline {
		if s.Date != nil {
			d := *s.Date
			c.Timeline[i].Date = &d
		}
	}
	if c.Feedback != nil {
		fb := *c.Feedback
		c.Feedback = &fb
	}
	return c
}

// Login authenticates and installs the session. Caches are cleared up front
// so nothing from a previous user leaks into the new one.
func (c *Coordinator) Login(ctx context.Context, role, email, password string) (*Session, error) {
	return c.authenticate(ctx, "/api/auth/"+role+"/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Register creates an account and installs the session.
func (c *Coordinator) Register(ctx context.Context, role, name, email, password, ward string) (*Session, error) {
	return c.authenticate(ctx, "/api/auth/"+role+"/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
		"ward":     ward,
	})
}

func (c *Coordinator) authenticate(ctx context.Context, path string, body map[string]string) (*Session, error) {
	c.cache.Reset()
	data, err := c.gateway.Send(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &ServerError{Message: "malformed session response: " + err.Error()}
	}
	if session.Token == "" {
		return nil, &AuthenticationError{Message: "no token in response"}
	}
	c.mu.Lock()
	c.session = &session
	c.complaints = nil
	c.leaderboard = nil
	c.roster = nil
	c.mu.Unlock()
	// Snapshots persisted by a previous identity must not survive into
	// this one: a later restart would republish them under the new user.
	c.store.Remove(keyComplaints)
	c.store.Remove(keyLeaderboard)
	c.store.Remove(keyRoster)
	c.store.WriteEntry(keySession, session)
	c.store.WriteEntry(keyToken, session.Token)
	c.StartPolling()
	s := session
	return &s, nil
}

// Logout tears everything down: polling, caches, durable store, state.
func (c *Coordinator) Logout() {
	c.StopPolling()
	c.cache.Reset()
	c.store.Clear()
	c.mu.Lock()
	c.session = nil
	c.complaints = nil
	c.leaderboard = nil
	c.roster = nil
	c.mu.Unlock()
}

// RestoreSession publishes the stored session synchronously so a UI can
// render immediately, then revalidates in the background. Only an
// auth-classified failure tears the session down; a network failure keeps
// the restored session (the server state is unknown, not rejecting).
func (c *Coordinator) RestoreSession(ctx context.Context) bool {
	var session Session
	if !c.store.ReadEntry(keySession, 0, &session) || session.Token == "" {
		return false
	}
	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()

	var cached []Complaint
	if c.store.ReadEntry(keyComplaints, snapshotMaxAge, &cached) {
		c.mu.Lock()
		c.complaints = cached
		c.mu.Unlock()
	}
	var board []User
	if c.store.ReadEntry(keyLeaderboard, snapshotMaxAge, &board) {
		c.mu.Lock()
		c.leaderboard = board
		c.mu.Unlock()
	}
	var roster []User
	if c.store.ReadEntry(keyRoster, snapshotMaxAge, &roster) {
		c.mu.Lock()
		c.roster = roster
		c.mu.Unlock()
	}

	go c.revalidate(ctx)
	c.StartPolling()
	return true
}

func (c *Coordinator) revalidate(ctx context.Context) {
	data, err := c.gateway.Send(ctx, http.MethodGet, pathMe, nil, nil)
	if err != nil {
		if IsAuthError(err) {
			c.Logout()
		}
		return
	}
	var body struct {
		User User `json:"user"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.User.ID == "" {
		return
	}
	c.mu.Lock()
	if c.session != nil {
		c.session.User = body.User
		session := *c.session
		c.mu.Unlock()
		c.store.WriteEntry(keySession, session)
		return
	}
	c.mu.Unlock()
}

// cachedGet serves a GET through the TTL cache, coalescing concurrent
// identical requests into one network call.
func (c *Coordinator) cachedGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	sig := requestSignature(path, query)
	if data, ok := c.cache.Get(sig); ok {
		return data, nil
	}
	return c.coalescer.Do(sig, func() ([]byte, error) {
		data, err := c.gateway.Send(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return nil, err
		}
		c.cache.Set(sig, data)
		return data, nil
	})
}

// RefreshComplaints fetches the complaint collection and replaces the
// canonical copy. A refresh racing another collapses into one fetch.
func (c *Coordinator) RefreshComplaints(ctx context.Context) error {
	c.mu.Lock()
	if c.refreshing {
		c.mu.Unlock()
		return nil
	}
	c.refreshing = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.refreshing = false
		c.mu.Unlock()
	}()

	data, err := c.cachedGet(ctx, pathComplaints, nil)
	if err != nil {
		return err
	}
	var items []Complaint
	if err := json.Unmarshal(data, &items); err != nil {
		return &ServerError{Message: "malformed complaint list: " + err.Error()}
	}
	c.mu.Lock()
	c.complaints = items
	c.mu.Unlock()
	c.store.WriteEntry(keyComplaints, items)
	return nil
}

// RefreshLeaderboard fetches the leaderboard, optionally ward-scoped.
func (c *Coordinator) RefreshLeaderboard(ctx context.Context, ward string) ([]User, error) {
	query := url.Values{}
	if ward != "" {
		query.Set("ward", ward)
	}
	data, err := c.cachedGet(ctx, pathLeaderboard, query)
	if err != nil {
		return nil, err
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, &ServerError{Message: "malformed leaderboard: " + err.Error()}
	}
	c.mu.Lock()
	c.leaderboard = users
	c.mu.Unlock()
	c.store.WriteEntry(keyLeaderboard, users)
	return users, nil
}

// RefreshRoster fetches the citizen roster (admin only).
func (c *Coordinator) RefreshRoster(ctx context.Context) ([]User, error) {
	query := url.Values{}
	query.Set("role", "citizen")
	data, err := c.cachedGet(ctx, pathUsers, query)
	if err != nil {
		return nil, err
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, &ServerError{Message: "malformed roster: " + err.Error()}
	}
	c.mu.Lock()
	c.roster = users
	c.mu.Unlock()
	c.store.WriteEntry(keyRoster, users)
	return users, nil
}

// ComplaintStats fetches admin statistics through the cache.
func (c *Coordinator) ComplaintStats(ctx context.Context) (Stats, error) {
	data, err := c.cachedGet(ctx, pathStats, nil)
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return Stats{}, &ServerError{Message: "malformed stats: " + err.Error()}
	}
	return stats, nil
}

// GetComplaint fetches one complaint by either identifier, preferring the
// canonical in-memory copy.
func (c *Coordinator) GetComplaint(ctx context.Context, id string) (Complaint, error) {
	c.mu.Lock()
	for _, item := range c.complaints {
		if item.Matches(id) {
			out := copyComplaint(item)
			c.mu.Unlock()
			return out, nil
		}
	}
	c.mu.Unlock()
	data, err := c.cachedGet(ctx, pathComplaints+"/"+url.PathEscape(id), nil)
	if err != nil {
		return Complaint{}, err
	}
	var item Complaint
	if err := json.Unmarshal(data, &item); err != nil {
		return Complaint{}, &ServerError{Message: "malformed complaint: " + err.Error()}
	}
	return item, nil
}

// invalidateComplaintCaches drops the complaint GET signatures: items,
// lists, and stats all live under the complaints path. Leaderboard and
// roster entries are untouched.
func (c *Coordinator) invalidateComplaintCaches() {
	c.cache.InvalidatePrefix(pathComplaints)
}

// CreateComplaint files a complaint and prepends the authoritative response.
// The owner's score and filed counter move locally so the UI reflects the
// award without a second round trip.
func (c *Coordinator) CreateComplaint(ctx context.Context, draft ComplaintDraft) (Complaint, error) {
	data, err := c.gateway.Send(ctx, http.MethodPost, pathComplaints, nil, draft)
	if err != nil {
		return Complaint{}, err
	}
	var created Complaint
	if err := json.Unmarshal(data, &created); err != nil {
		return Complaint{}, &ServerError{Message: "malformed complaint: " + err.Error()}
	}
	c.mu.Lock()
	c.complaints = append([]Complaint{created}, c.complaints...)
	if c.session != nil && c.session.User.ID == created.OwnerID {
		c.session.User.Score += c.filePoints()
		c.session.User.ComplaintsFiled++
	}
	items := copyComplaints(c.complaints)
	c.mu.Unlock()
	c.invalidateComplaintCaches()
	c.store.WriteEntry(keyComplaints, items)
	return copyComplaint(created), nil
}

// storageID resolves a RefID to the storage UUID from local state, falling
// back to the identifier itself.
func (c *Coordinator) storageID(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.complaints {
		if item.Matches(id) {
			return item.ID
		}
	}
	return id
}

// withOptimisticMutation applies a local change immediately, runs the
// network call, and reconciles with the authoritative response. On any
// failure the pre-mutation snapshot is restored exactly and the error
// re-raised.
func (c *Coordinator) withOptimisticMutation(
	ctx context.Context,
	id string,
	apply func(items []Complaint) []Complaint,
	call func(ctx context.Context, storageID string) ([]byte, error),
) (Complaint, error) {
	target := c.storageID(id)

	c.mu.Lock()
	snapshot := copyComplaints(c.complaints)
	c.complaints = apply(copyComplaints(c.complaints))
	c.mu.Unlock()

	data, err := call(ctx, target)
	if err != nil {
		c.mu.Lock()
		c.complaints = snapshot
		c.mu.Unlock()
		return Complaint{}, err
	}

	var authoritative Complaint
	reconciled := len(data) > 0 && json.Unmarshal(data, &authoritative) == nil && authoritative.ID != ""
	c.mu.Lock()
	if reconciled {
		for i := range c.complaints {
			if c.complaints[i].ID == authoritative.ID {
				c.complaints[i] = authoritative
				break
			}
		}
	}
	items := copyComplaints(c.complaints)
	c.mu.Unlock()
	c.invalidateComplaintCaches()
	c.store.WriteEntry(keyComplaints, items)
	if reconciled {
		return copyComplaint(authoritative), nil
	}
	return Complaint{}, nil
}

// markTimelineThrough marks every step at or before the named status done,
// keeping the published state consistent with the status during the
// optimistic window. Dates stay as they are until the authoritative
// response arrives.
func markTimelineThrough(steps []TimelineStep, status string) []TimelineStep {
	idx := -1
	for i, s := range steps {
		if s.Name == status {
			idx = i
		}
	}
	for i := 0; i <= idx && i < len(steps); i++ {
		steps[i].Done = true
	}
	return steps
}

// UpdateStatus optimistically moves a complaint to the new status.
func (c *Coordinator) UpdateStatus(ctx context.Context, id string, update StatusUpdate) (Complaint, error) {
	return c.withOptimisticMutation(ctx, id,
		func(items []Complaint) []Complaint {
			for i := range items {
				if items[i].Matches(id) {
					items[i].Status = update.Status
					items[i].Timeline = markTimelineThrough(items[i].Timeline, update.Status)
					if update.AdminNote != "" {
						items[i].AdminNote = update.AdminNote
					}
					if update.AssignedOfficer != "" {
						items[i].AssignedOfficer = update.AssignedOfficer
					}
				}
			}
			return items
		},
		func(ctx context.Context, storageID string) ([]byte, error) {
			return c.gateway.Send(ctx, http.MethodPatch, pathComplaints+"/"+url.PathEscape(storageID)+"/status", nil, update)
		},
	)
}

// Resolve optimistically marks a complaint Resolved.
func (c *Coordinator) Resolve(ctx context.Context, id string, res Resolution) (Complaint, error) {
	return c.withOptimisticMutation(ctx, id,
		func(items []Complaint) []Complaint {
			for i := range items {
				if items[i].Matches(id) {
					items[i].Status = "Resolved"
					items[i].Timeline = markTimelineThrough(items[i].Timeline, "Resolved")
					items[i].ResolvePhotoURL = res.ResolvePhotoURL
					if res.AdminNote != "" {
						items[i].AdminNote = res.AdminNote
					}
					if res.AssignedOfficer != "" {
						items[i].AssignedOfficer = res.AssignedOfficer
					}
				}
			}
			return items
		},
		func(ctx context.Context, storageID string) ([]byte, error) {
			return c.gateway.Send(ctx, http.MethodPatch, pathComplaints+"/"+url.PathEscape(storageID)+"/resolve", nil, res)
		},
	)
}

// Delete optimistically removes a complaint.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	_, err := c.withOptimisticMutation(ctx, id,
		func(items []Complaint) []Complaint {
			out := items[:0]
			for _, item := range items {
				if !item.Matches(id) {
					out = append(out, item)
				}
			}
			return out
		},
		func(ctx context.Context, storageID string) ([]byte, error) {
			return c.gateway.Send(ctx, http.MethodDelete, pathComplaints+"/"+url.PathEscape(storageID), nil, nil)
		},
	)
	return err
}

// Support registers support with an optimistic +1 and an exact -1 rollback.
// At most one support attempt per complaint is in flight at a time; a
// second call while the first is pending is a no-op.
func (c *Coordinator) Support(ctx context.Context, id string) (Complaint, error) {
	target := c.storageID(id)
	c.supportMu.Lock()
	if c.supportInFlight[target] {
		c.supportMu.Unlock()
		return c.GetComplaint(ctx, id)
	}
	c.supportInFlight[target] = true
	c.supportMu.Unlock()
	defer func() {
		c.supportMu.Lock()
		delete(c.supportInFlight, target)
		c.supportMu.Unlock()
	}()

	return c.withOptimisticMutation(ctx, id,
		func(items []Complaint) []Complaint {
			for i := range items {
				if items[i].Matches(id) {
					items[i].SupportCount++
				}
			}
			return items
		},
		func(ctx context.Context, storageID string) ([]byte, error) {
			return c.gateway.Send(ctx, http.MethodPost, pathComplaints+"/"+url.PathEscape(storageID)+"/support", nil, nil)
		},
	)
}

// SubmitFeedback fast-fails locally: no round trip leaves the client unless
// the target is Resolved and has no feedback yet.
func (c *Coordinator) SubmitFeedback(ctx context.Context, id string, draft FeedbackDraft) (Complaint, error) {
	c.mu.Lock()
	var found *Complaint
	for i := range c.complaints {
		if c.complaints[i].Matches(id) {
			found = &c.complaints[i]
			break
		}
	}
	if found != nil {
		if found.Status != "Resolved" {
			c.mu.Unlock()
			return Complaint{}, &ValidationError{Message: "feedback requires a resolved complaint"}
		}
		if found.Feedback != nil {
			c.mu.Unlock()
			return Complaint{}, &ValidationError{Message: "feedback already submitted"}
		}
	}
	c.mu.Unlock()

	target := c.storageID(id)
	data, err := c.gateway.Send(ctx, http.MethodPost, pathComplaints+"/"+url.PathEscape(target)+"/feedback", nil, draft)
	if err != nil {
		return Complaint{}, err
	}
	var updated Complaint
	if err := json.Unmarshal(data, &updated); err != nil {
		return Complaint{}, &ServerError{Message: "malformed complaint: " + err.Error()}
	}
	c.mu.Lock()
	for i := range c.complaints {
		if c.complaints[i].ID == updated.ID {
			c.complaints[i] = updated
			break
		}
	}
	if c.session != nil && c.session.User.ID == updated.OwnerID {
		c.session.User.Score += c.feedbackPoints()
	}
	items := copyComplaints(c.complaints)
	c.mu.Unlock()
	c.invalidateComplaintCaches()
	c.store.WriteEntry(keyComplaints, items)
	return copyComplaint(updated), nil
}

// StartPolling begins the periodic refresh loop. Idempotent.
func (c *Coordinator) StartPolling() {
	c.mu.Lock()
	if c.polling {
		c.mu.Unlock()
		return
	}
	c.polling = true
	stop := make(chan struct{})
	c.pollStop = stop
	c.mu.Unlock()
	go c.pollLoop(stop)
}

// StopPolling halts the refresh loop. Idempotent.
func (c *Coordinator) StopPolling() {
	c.mu.Lock()
	if !c.polling {
		c.mu.Unlock()
		return
	}
	c.polling = false
	close(c.pollStop)
	c.pollStop = nil
	c.mu.Unlock()
}

func (c *Coordinator) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.pollOnce()
		}
	}
}

// pollOnce reads the live session each tick rather than a captured value,
// so a re-login mid-flight polls as the new user.
func (c *Coordinator) pollOnce() {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return
	}
	role := c.session.User.Role
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.gateway.Budget)
	defer cancel()
	// Poll errors are swallowed; the next tick tries again.
	_ = c.RefreshComplaints(ctx)
	if role == "admin" {
		c.refreshRosterOnce(ctx)
	}
}

func (c *Coordinator) refreshRosterOnce(ctx context.Context) {
	c.mu.Lock()
	if c.rostering {
		c.mu.Unlock()
		return
	}
	c.rostering = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.rostering = false
		c.mu.Unlock()
	}()
	_, _ = c.RefreshRoster(ctx)
}

// Close stops polling and closes the durable store.
func (c *Coordinator) Close() error {
	c.StopPolling()
	return c.store.Close()
}
