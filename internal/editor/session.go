package editor

import (
	"strconv"
	"sync"
	"time"

	"example.com/octofit/internal/domain"
	"example.com/octofit/internal/membership"
)

// State is the lifecycle position of an edit session.
type State string

const (
	StateClosed  State = "closed"
	StateEditing State = "editing"
)

// Form field names accepted by SetField.
const (
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldAge          = "age"
	FieldFitnessLevel = "fitness_level"
)

// Form holds the editable user attributes as entered. Age stays raw until submit.
type Form struct {
	Username     string              `json:"username"`
	Email        string              `json:"email"`
	Age          string              `json:"age"`
	FitnessLevel domain.FitnessLevel `json:"fitness_level"`
}

func formFor(user domain.User) Form {
	form := Form{
		Username:     user.Username,
		Email:        user.Email,
		FitnessLevel: user.FitnessLevel,
	}
	if user.Age != 0 {
		form.Age = strconv.Itoa(user.Age)
	}
	if !form.FitnessLevel.Valid() {
		form.FitnessLevel = domain.FitnessBeginner
	}
	return form
}

// Session is one user's edit in progress. The team list is the snapshot taken
// when the session opened and is what Submit reconciles against.
type Session struct {
	mu        sync.Mutex
	id        string
	actor     string
	user      domain.User
	form      Form
	teams     []domain.Team
	selected  membership.TeamSet
	state     State
	lastError string
	report    *membership.Report
	touched   time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SetField updates one form field.
func (s *Session) SetField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEditing {
		return ErrSessionClosed
	}

	switch name {
	case FieldUsername:
		s.form.Username = value
	case FieldEmail:
		s.form.Email = value
	case FieldAge:
		s.form.Age = value
	case FieldFitnessLevel:
		level := domain.FitnessLevel(value)
		if !level.Valid() {
			return &ValidationError{Field: name, Message: "fitness level must be beginner, intermediate or advanced"}
		}
		s.form.FitnessLevel = level
	default:
		return &ValidationError{Field: name, Message: "unknown field " + strconv.Quote(name)}
	}
	return nil
}

// ToggleTeam flips the selection of one team from the snapshot.
func (s *Session) ToggleTeam(teamID domain.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEditing {
		return ErrSessionClosed
	}
	if !s.knowsTeam(teamID) {
		return &ValidationError{Field: "teams", Message: "unknown team " + strconv.Quote(teamID.String())}
	}
	s.selected.Toggle(teamID)
	return nil
}

// SetTeams replaces the selection. Every id must belong to the snapshot.
func (s *Session) SetTeams(ids []domain.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEditing {
		return ErrSessionClosed
	}
	for _, id := range ids {
		if !s.knowsTeam(id) {
			return &ValidationError{Field: "teams", Message: "unknown team " + strconv.Quote(id.String())}
		}
	}
	s.selected = membership.NewTeamSet(ids...)
	return nil
}

func (s *Session) knowsTeam(id domain.ID) bool {
	for _, team := range s.teams {
		if team.ID == id {
			return true
		}
	}
	return false
}

// TeamChoice is one checkbox of the edit form.
type TeamChoice struct {
	ID       domain.ID `json:"id"`
	Name     string    `json:"name"`
	Selected bool      `json:"selected"`
}

// Snapshot is a read-only copy of a session for rendering.
type Snapshot struct {
	ID        string             `json:"id"`
	UserID    domain.ID          `json:"user_id"`
	State     State              `json:"state"`
	Form      Form               `json:"form"`
	Teams     []TeamChoice       `json:"teams"`
	LastError string             `json:"last_error,omitempty"`
	Report    *membership.Report `json:"-"`
}

// Snapshot copies the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	choices := make([]TeamChoice, 0, len(s.teams))
	for _, team := range s.teams {
		choices = append(choices, TeamChoice{ID: team.ID, Name: team.Name, Selected: s.selected.Has(team.ID)})
	}
	return Snapshot{
		ID:        s.id,
		UserID:    s.user.ID,
		State:     s.state,
		Form:      s.form,
		Teams:     choices,
		LastError: s.lastError,
		Report:    s.report,
	}
}
