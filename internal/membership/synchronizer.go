package membership

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"example.com/octofit/internal/domain"
	"example.com/octofit/internal/events"
	"example.com/octofit/internal/observability"
	"example.com/octofit/internal/publisher"
)

// TeamBackend reads and replaces team member lists.
type TeamBackend interface {
	GetTeam(ctx context.Context, id domain.ID) (domain.Team, error)
	UpdateTeamMembers(ctx context.Context, teamID domain.ID, memberIDs []domain.ID) (domain.Team, error)
}

// Status is the result of one planned change.
type Status string

const (
	StatusApplied   Status = "applied"
	StatusUnchanged Status = "unchanged"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Outcome records what happened to one planned change.
type Outcome struct {
	TeamID   domain.ID
	TeamName string
	Action   Action
	Status   Status
	Err      error
}

// Report lists the outcome of every planned change, in plan order.
type Report struct {
	Outcomes []Outcome
}

// Applied returns the outcomes that reached the backend successfully.
func (r Report) Applied() []Outcome { return r.filter(StatusApplied) }

// Failed returns the outcomes rejected by the backend.
func (r Report) Failed() []Outcome { return r.filter(StatusFailed) }

// Skipped returns the outcomes never attempted because an earlier change failed.
func (r Report) Skipped() []Outcome { return r.filter(StatusSkipped) }

func (r Report) filter(status Status) []Outcome {
	out := make([]Outcome, 0)
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// PartialSyncError reports a synchronisation that stopped early. Changes
// listed as applied in the report stay in effect.
type PartialSyncError struct {
	Report Report
	Err    error
}

func (e *PartialSyncError) Error() string {
	failed := e.Report.Failed()
	if len(failed) == 0 {
		return fmt.Sprintf("team membership sync interrupted after %d applied change(s): %v", len(e.Report.Applied()), e.Err)
	}
	return fmt.Sprintf("team membership sync failed on team %q after %d applied change(s): %v",
		failed[0].TeamName, len(e.Report.Applied()), e.Err)
}

func (e *PartialSyncError) Unwrap() error { return e.Err }

// Request describes one reconciliation.
type Request struct {
	Teams     []domain.Team
	UserID    domain.ID
	Desired   TeamSet
	SessionID string
	Actor     string
}

// Option configures optional behaviour for the Synchronizer.
type Option func(*Synchronizer)

// WithPublisher emits a membership.changed event for every applied change.
func WithPublisher(p publisher.Publisher) Option {
	return func(s *Synchronizer) { s.publisher = p }
}

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Synchronizer) { s.logger = logger }
}

// Synchronizer applies membership plans one team at a time.
type Synchronizer struct {
	teams     TeamBackend
	publisher publisher.Publisher
	locks     *teamLocks
	logger    *log.Logger
	now       func() time.Time
}

// NewSynchronizer constructs a Synchronizer.
func NewSynchronizer(teams TeamBackend, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		teams:     teams,
		publisher: publisher.Noop{},
		locks:     newTeamLocks(),
		logger:    log.New(log.Writer(), "[membership] ", log.LstdFlags),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync plans the changes for req from its team snapshot and applies them one
// team at a time. Each team is re-read under a per-team lock and the member
// list is rebuilt from what the backend holds, so concurrent syncs on the same
// team keep each other's members. A team that already matches is reported as
// unchanged without a write. The first failure stops the run: nothing is
// rolled back and the remaining changes are reported as skipped inside a
// *PartialSyncError.
func (s *Synchronizer) Sync(ctx context.Context, req Request) (Report, error) {
	changes := Plan(req.Teams, req.UserID, req.Desired)
	report := Report{Outcomes: make([]Outcome, 0, len(changes))}

	var failure error
	for _, change := range changes {
		outcome := Outcome{TeamID: change.Team.ID, TeamName: change.Team.Name, Action: change.Action}

		if failure == nil {
			if err := ctx.Err(); err != nil {
				failure = err
			}
		}
		if failure != nil {
			outcome.Status = StatusSkipped
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}

		applied, written, err := s.apply(ctx, req.UserID, change)
		switch {
		case err != nil:
			outcome.Status = StatusFailed
			outcome.Err = err
			failure = err
			s.logger.Printf("%s user=%s team=%s failed: %v", change.Action, req.UserID, change.Team.ID, err)
		case !written:
			outcome.Status = StatusUnchanged
		default:
			outcome.Status = StatusApplied
			s.announce(ctx, req, applied)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	if failure != nil {
		return report, &PartialSyncError{Report: report, Err: failure}
	}
	return report, nil
}

// apply rebases change on the team's current members and writes the result.
// It reports whether a write was needed.
func (s *Synchronizer) apply(ctx context.Context, userID domain.ID, change Change) (Change, bool, error) {
	unlock := s.locks.lock(change.Team.ID)
	defer unlock()

	current, err := s.teams.GetTeam(ctx, change.Team.ID)
	if err != nil {
		return change, false, err
	}
	change, needed := Rebase(change, current, userID)
	if !needed {
		return change, false, nil
	}

	_, err = s.teams.UpdateTeamMembers(ctx, change.Team.ID, change.MemberIDs)
	observability.RecordMembershipChange(string(change.Action), err)
	return change, err == nil, err
}

func (s *Synchronizer) announce(ctx context.Context, req Request, change Change) {
	action := events.ActionAdded
	if change.Action == ActionRemove {
		action = events.ActionRemoved
	}

	memberIDs := make([]string, 0, len(change.MemberIDs))
	for _, id := range change.MemberIDs {
		memberIDs = append(memberIDs, id.String())
	}

	evt := events.MembershipChanged{
		EventID:    uuid.NewString(),
		SessionID:  req.SessionID,
		Actor:      req.Actor,
		UserID:     req.UserID.String(),
		TeamID:     change.Team.ID.String(),
		TeamName:   change.Team.Name,
		Action:     action,
		MemberIDs:  memberIDs,
		OccurredAt: s.now(),
		Version:    events.SchemaVersion,
	}
	if err := s.publisher.MembershipChanged(ctx, evt); err != nil {
		s.logger.Printf("publish membership change user=%s team=%s: %v", evt.UserID, evt.TeamID, err)
	}
}
