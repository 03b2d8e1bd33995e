// Package api exposes the dashboard pages and the JSON edit API.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"example.com/octofit/internal/apiclient"
	"example.com/octofit/internal/audit"
	"example.com/octofit/internal/auth"
	"example.com/octofit/internal/domain"
	"example.com/octofit/internal/editor"
	"example.com/octofit/internal/store"
	"example.com/octofit/internal/views"
)

// HistoryReader pages through a user's audit trail.
type HistoryReader interface {
	ListByUser(ctx context.Context, userID string, cursor *audit.Cursor, limit int) ([]audit.Entry, *audit.Cursor, error)
}

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithHistory enables GET /v1/users/{id}/membership-history.
func WithHistory(reader HistoryReader, pageSize int) Option {
	return func(h *Handler) {
		h.history = reader
		h.pageSize = pageSize
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// Handler coordinates HTTP requests with the store and the edit controller.
type Handler struct {
	store    *store.Store
	editor   *editor.Controller
	renderer *views.Renderer
	history  HistoryReader
	pageSize int
	logger   *log.Logger
}

// NewHandler builds a Handler.
func NewHandler(st *store.Store, ed *editor.Controller, renderer *views.Renderer, opts ...Option) *Handler {
	h := &Handler{
		store:    st,
		editor:   ed,
		renderer: renderer,
		pageSize: 20,
		logger:   log.New(log.Writer(), "[api] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.home)
	mux.HandleFunc("/users", h.usersPage)
	mux.HandleFunc("/teams", h.teamsPage)
	mux.HandleFunc("/activities", h.activitiesPage)
	mux.HandleFunc("/leaderboard", h.leaderboardPage)
	mux.HandleFunc("/workouts", h.workoutsPage)
	mux.HandleFunc("/users/edit", h.editPage)
	mux.HandleFunc("/users/edit/cancel", h.cancelEdit)

	mux.HandleFunc("/v1/sessions", h.sessions)
	mux.HandleFunc("/v1/sessions/", h.sessionByID)
	mux.HandleFunc("/v1/users/", h.userSubresource)
	mux.HandleFunc("/v1/", h.resourceList)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allowGet(w, r) {
		return
	}
	h.render(w, http.StatusOK, views.PageHome, views.Page{Title: "Home"})
}

func (h *Handler) usersPage(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	page := views.Page{Title: "Users"}
	if r.URL.Query().Get("updated") != "" {
		page.Notice = "User updated successfully!"
	}

	users, teams, err := h.loadUsersAndTeams(r.Context())
	if err != nil {
		page.Err = err.Error()
		h.render(w, http.StatusBadGateway, views.PageUsers, page)
		return
	}
	page.Data = views.UserRows(users, teams)
	h.render(w, http.StatusOK, views.PageUsers, page)
}

func (h *Handler) loadUsersAndTeams(ctx context.Context) ([]domain.User, []domain.Team, error) {
	if err := h.store.Refresh(ctx, apiclient.ResourceUsers); err != nil {
		return nil, nil, err
	}
	if err := h.store.Refresh(ctx, apiclient.ResourceTeams); err != nil {
		return nil, nil, err
	}
	users, err := h.store.Users(ctx)
	if err != nil {
		return nil, nil, err
	}
	teams, err := h.store.Teams(ctx)
	if err != nil {
		return nil, nil, err
	}
	return users, teams, nil
}

func (h *Handler) teamsPage(w http.ResponseWriter, r *http.Request) {
	listPage(h, w, r, apiclient.ResourceTeams, views.PageTeams, "Teams", h.store.Teams, views.TeamCards)
}

func (h *Handler) activitiesPage(w http.ResponseWriter, r *http.Request) {
	listPage(h, w, r, apiclient.ResourceActivities, views.PageActivities, "Activities", h.store.Activities, views.ActivityRows)
}

func (h *Handler) leaderboardPage(w http.ResponseWriter, r *http.Request) {
	listPage(h, w, r, apiclient.ResourceLeaderboard, views.PageLeaderboard, "Leaderboard", h.store.Leaderboard, views.LeaderboardRows)
}

func (h *Handler) workoutsPage(w http.ResponseWriter, r *http.Request) {
	listPage(h, w, r, apiclient.ResourceWorkouts, views.PageWorkouts, "Workouts", h.store.Workouts, views.WorkoutCards)
}

// listPage refetches one resource and renders it, or renders the fetch error in place.
func listPage[T, R any](h *Handler, w http.ResponseWriter, r *http.Request, resource, name, title string,
	read func(context.Context) ([]T, error), rows func([]T) []R) {
	if !allowGet(w, r) {
		return
	}
	page := views.Page{Title: title}

	if err := h.store.Refresh(r.Context(), resource); err != nil {
		page.Err = err.Error()
		h.render(w, http.StatusBadGateway, name, page)
		return
	}
	items, err := read(r.Context())
	if err != nil {
		page.Err = err.Error()
		h.render(w, http.StatusBadGateway, name, page)
		return
	}
	page.Data = rows(items)
	h.render(w, http.StatusOK, name, page)
}

func (h *Handler) editPage(w http.ResponseWriter, r *http.Request) {
	if !authorizePage(w, r, auth.ScopeUsersWrite) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.showEditForm(w, r)
	case http.MethodPost:
		h.submitEditForm(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	page := views.Page{Title: "Edit User", Active: views.PageUsers}

	if id := r.URL.Query().Get("session"); id != "" {
		session, err := h.editor.Get(id)
		if err != nil {
			http.Redirect(w, r, "/users", http.StatusSeeOther)
			return
		}
		page.Data = views.NewEditForm(session.Snapshot())
		h.render(w, http.StatusOK, views.PageEdit, page)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("id"))
	if userID == "" {
		http.Error(w, "missing user id", http.StatusBadRequest)
		return
	}
	session, err := h.editor.Open(r.Context(), domain.ID(userID))
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, editor.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		page.Err = err.Error()
		h.render(w, status, views.PageEdit, page)
		return
	}
	http.Redirect(w, r, "/users/edit?session="+url.QueryEscape(session.ID()), http.StatusSeeOther)
}

func (h *Handler) submitEditForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "unable to parse form", http.StatusBadRequest)
		return
	}
	session, err := h.editor.Get(r.PostForm.Get("session"))
	if err != nil {
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}

	if err := applyForm(session, r.PostForm); err != nil {
		h.renderEditFailure(w, session, http.StatusUnprocessableEntity, err)
		return
	}

	if _, err := h.editor.Submit(r.Context(), session.ID()); err != nil {
		status := http.StatusBadGateway
		var validation *editor.ValidationError
		if errors.As(err, &validation) {
			status = http.StatusUnprocessableEntity
		}
		h.renderEditFailure(w, session, status, nil)
		return
	}
	http.Redirect(w, r, "/users?updated=1", http.StatusSeeOther)
}

func (h *Handler) renderEditFailure(w http.ResponseWriter, session *editor.Session, status int, formErr error) {
	snap := session.Snapshot()
	if formErr != nil {
		snap.LastError = formErr.Error()
	}
	h.render(w, status, views.PageEdit, views.Page{Title: "Edit User", Active: views.PageUsers, Data: views.NewEditForm(snap)})
}

// applyForm copies posted form values into the session. Absent keys leave fields unchanged.
func applyForm(session *editor.Session, form url.Values) error {
	for _, field := range []string{editor.FieldUsername, editor.FieldEmail, editor.FieldAge, editor.FieldFitnessLevel} {
		if _, ok := form[field]; !ok {
			continue
		}
		if err := session.SetField(field, form.Get(field)); err != nil {
			return err
		}
	}
	ids := make([]domain.ID, 0, len(form["teams"]))
	for _, id := range form["teams"] {
		ids = append(ids, domain.ID(id))
	}
	return session.SetTeams(ids)
}

func (h *Handler) cancelEdit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !authorizePage(w, r, auth.ScopeUsersWrite) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "unable to parse form", http.StatusBadRequest)
		return
	}
	if err := h.editor.Cancel(r.PostForm.Get("session")); err != nil && !errors.Is(err, editor.ErrSessionNotFound) {
		h.logger.Printf("cancel session: %v", err)
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// authorizePage is the HTML counterpart of authorize: the edit pages change
// backend state and need the same scope as the JSON session API.
func authorizePage(w http.ResponseWriter, r *http.Request, scope string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "sign in required", http.StatusUnauthorized)
		return false
	}
	if !claims.HasScope(scope) {
		http.Error(w, "scope "+scope+" required", http.StatusForbidden)
		return false
	}
	return true
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, page views.Page) {
	var buf strings.Builder
	if err := h.renderer.Render(&buf, name, page); err != nil {
		h.logger.Printf("render %s: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}
