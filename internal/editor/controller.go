// Package editor runs the user edit flow: it opens a session from the current
// user and team snapshots, collects form changes, and on submit patches the
// user and reconciles team memberships.
package editor

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/octofit/internal/apiclient"
	"example.com/octofit/internal/auth"
	"example.com/octofit/internal/domain"
	"example.com/octofit/internal/events"
	"example.com/octofit/internal/membership"
	"example.com/octofit/internal/observability"
	"example.com/octofit/internal/publisher"
)

const (
	minAge = 0
	maxAge = 120
)

// Directory is the application state the controller reads and invalidates.
type Directory interface {
	User(ctx context.Context, id domain.ID) (*domain.User, error)
	Teams(ctx context.Context) ([]domain.Team, error)
	Invalidate(resources ...string)
}

// UserUpdater patches a user on the backend.
type UserUpdater interface {
	UpdateUser(ctx context.Context, id domain.ID, patch apiclient.UserPatch) (domain.User, error)
}

// MembershipSyncer reconciles team memberships.
type MembershipSyncer interface {
	Sync(ctx context.Context, req membership.Request) (membership.Report, error)
}

// Outcome describes a successful submit.
type Outcome struct {
	User   domain.User
	Report membership.Report
}

// Option configures optional behaviour for the Controller.
type Option func(*Controller)

// WithTTL sets how long an idle session survives.
func WithTTL(ttl time.Duration) Option {
	return func(c *Controller) { c.ttl = ttl }
}

// WithPublisher emits a user.updated event after every accepted patch.
func WithPublisher(p publisher.Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns the open edit sessions.
type Controller struct {
	dir       Directory
	users     UserUpdater
	syncer    MembershipSyncer
	publisher publisher.Publisher
	logger    *log.Logger
	now       func() time.Time
	ttl       time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewController constructs a Controller.
func NewController(dir Directory, users UserUpdater, syncer MembershipSyncer, opts ...Option) *Controller {
	c := &Controller{
		dir:       dir,
		users:     users,
		syncer:    syncer,
		publisher: publisher.Noop{},
		logger:    log.New(log.Writer(), "[editor] ", log.LstdFlags),
		now:       func() time.Time { return time.Now().UTC() },
		ttl:       30 * time.Minute,
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts editing a user. The form is filled from the user's current
// attributes and the selection from the teams that list the user.
func (c *Controller) Open(ctx context.Context, userID domain.ID) (*Session, error) {
	user, err := c.dir.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	teams, err := c.dir.Teams(ctx)
	if err != nil {
		return nil, err
	}

	session := &Session{
		id:       uuid.NewString(),
		actor:    auth.Subject(ctx),
		user:     *user,
		form:     formFor(*user),
		teams:    teams,
		selected: membership.CurrentTeams(teams, user.ID),
		state:    StateEditing,
		touched:  c.now(),
	}

	c.mu.Lock()
	c.sessions[session.id] = session
	open := len(c.sessions)
	c.mu.Unlock()

	observability.SetOpenSessions(open)
	c.logger.Printf("opened session=%s user=%s", session.id, user.ID)
	return session, nil
}

// Get returns a live session and refreshes its idle timer.
func (c *Controller) Get(id string) (*Session, error) {
	c.mu.RLock()
	session, ok := c.sessions[id]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := c.now()
	session.mu.Lock()
	expired := c.ttl > 0 && now.Sub(session.touched) > c.ttl
	if !expired {
		session.touched = now
	}
	session.mu.Unlock()

	if expired {
		c.remove(id)
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Cancel discards the session without any backend call.
func (c *Controller) Cancel(id string) error {
	session, err := c.Get(id)
	if err != nil {
		return err
	}
	session.mu.Lock()
	session.state = StateClosed
	session.mu.Unlock()

	c.remove(id)
	c.logger.Printf("cancelled session=%s", id)
	return nil
}

// Submit validates the form, patches the user, then reconciles memberships
// against the team snapshot taken at Open. On success the session closes and
// users and teams are invalidated. On failure the session stays open with the
// form untouched and LastError set; team writes applied before a failure are
// kept.
func (c *Controller) Submit(ctx context.Context, id string) (Outcome, error) {
	session, err := c.Get(id)
	if err != nil {
		return Outcome{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.state != StateEditing {
		return Outcome{}, ErrSessionClosed
	}

	outcome, err := c.submitLocked(ctx, session)
	if err != nil {
		session.lastError = userMessage(err)
		session.touched = c.now()
		c.logger.Printf("submit session=%s user=%s failed: %v", session.id, session.user.ID, err)
		return Outcome{}, err
	}

	session.state = StateClosed
	session.lastError = ""
	session.report = &outcome.Report
	c.remove(session.id)

	c.dir.Invalidate(apiclient.ResourceUsers, apiclient.ResourceTeams)
	observability.RecordSubmit(c.now())
	c.logger.Printf("submitted session=%s user=%s teams_changed=%d", session.id, session.user.ID, len(outcome.Report.Applied()))
	return outcome, nil
}

func (c *Controller) submitLocked(ctx context.Context, session *Session) (Outcome, error) {
	patch, err := buildPatch(session.form)
	if err != nil {
		return Outcome{}, err
	}

	updated, err := c.users.UpdateUser(ctx, session.user.ID, patch)
	if err != nil {
		return Outcome{}, err
	}
	if updated.ID == "" {
		updated.ID = session.user.ID
	}
	c.announce(ctx, session)

	desired := membership.NewTeamSet(session.selected.IDs()...)
	report, err := c.syncer.Sync(ctx, membership.Request{
		Teams:     session.teams,
		UserID:    session.user.ID,
		Desired:   desired,
		SessionID: session.id,
		Actor:     session.actor,
	})
	session.report = &report
	if err != nil {
		// The profile patch already landed.
		stale := []string{apiclient.ResourceUsers}
		if len(report.Applied()) > 0 {
			stale = append(stale, apiclient.ResourceTeams)
		}
		c.dir.Invalidate(stale...)
		return Outcome{}, err
	}
	return Outcome{User: updated, Report: report}, nil
}

func buildPatch(form Form) (apiclient.UserPatch, error) {
	username := strings.TrimSpace(form.Username)
	if username == "" {
		return apiclient.UserPatch{}, &ValidationError{Field: FieldUsername, Message: "username is required"}
	}
	email := strings.TrimSpace(form.Email)
	if email == "" {
		return apiclient.UserPatch{}, &ValidationError{Field: FieldEmail, Message: "email is required"}
	}
	age := domain.ParseAge(form.Age)
	if age < minAge || age > maxAge {
		return apiclient.UserPatch{}, &ValidationError{Field: FieldAge, Message: "age must be between 0 and 120"}
	}
	level := form.FitnessLevel
	if !level.Valid() {
		level = domain.FitnessBeginner
	}
	return apiclient.UserPatch{
		Username:     &username,
		Email:        &email,
		Age:          &age,
		FitnessLevel: &level,
	}, nil
}

func (c *Controller) announce(ctx context.Context, session *Session) {
	evt := events.UserUpdated{
		EventID:    uuid.NewString(),
		SessionID:  session.id,
		Actor:      session.actor,
		UserID:     session.user.ID.String(),
		Fields:     []string{FieldUsername, FieldEmail, FieldAge, FieldFitnessLevel},
		OccurredAt: c.now(),
		Version:    events.SchemaVersion,
	}
	if err := c.publisher.UserUpdated(ctx, evt); err != nil {
		c.logger.Printf("publish user update user=%s: %v", evt.UserID, err)
	}
}

// Sweep drops sessions idle for longer than the TTL and returns how many went.
func (c *Controller) Sweep() int {
	if c.ttl <= 0 {
		return 0
	}
	now := c.now()

	c.mu.Lock()
	removed := 0
	for id, session := range c.sessions {
		if !session.mu.TryLock() {
			continue
		}
		idle := now.Sub(session.touched)
		session.mu.Unlock()
		if idle > c.ttl {
			delete(c.sessions, id)
			removed++
		}
	}
	open := len(c.sessions)
	c.mu.Unlock()

	observability.SetOpenSessions(open)
	return removed
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Printf("expired %d idle session(s)", n)
			}
		}
	}
}

// Len reports the number of open sessions.
func (c *Controller) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

func (c *Controller) remove(id string) {
	c.mu.Lock()
	delete(c.sessions, id)
	open := len(c.sessions)
	c.mu.Unlock()
	observability.SetOpenSessions(open)
}
