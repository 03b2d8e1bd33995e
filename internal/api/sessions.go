package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"example.com/octofit/internal/apiclient"
	"example.com/octofit/internal/audit"
	"example.com/octofit/internal/auth"
	"example.com/octofit/internal/domain"
	"example.com/octofit/internal/editor"
	"example.com/octofit/internal/membership"
)

// OpenSessionRequest is the payload for POST /v1/sessions.
type OpenSessionRequest struct {
	UserID domain.ID `json:"user_id"`
}

// UpdateSessionRequest is the payload for PATCH /v1/sessions/{id}. Only
// supplied form fields change; Teams replaces the selection and ToggleTeams
// flips individual teams after that.
type UpdateSessionRequest struct {
	Fields      map[string]string `json:"fields"`
	Teams       *[]domain.ID      `json:"teams"`
	ToggleTeams []domain.ID       `json:"toggle_teams"`
}

// OutcomeView describes one team write of a submit.
type OutcomeView struct {
	TeamID   domain.ID `json:"team_id"`
	TeamName string    `json:"team_name"`
	Action   string    `json:"action"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
}

// SubmitResponse is returned by a successful submit.
type SubmitResponse struct {
	User    domain.User   `json:"user"`
	Changes []OutcomeView `json:"changes"`
}

// SubmitFailure is returned when a submit fails after validation passed.
type SubmitFailure struct {
	Type    string          `json:"type"`
	Detail  string          `json:"detail"`
	Session editor.Snapshot `json:"session"`
	Changes []OutcomeView   `json:"changes,omitempty"`
}

// HistoryResponse packages audit entries.
type HistoryResponse struct {
	Items      []audit.Entry `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func (h *Handler) sessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !authorize(w, r, auth.ScopeUsersWrite) {
		return
	}

	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.UserID.String()) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "user_id is required")
		return
	}

	session, err := h.editor.Open(r.Context(), req.UserID)
	if err != nil {
		writeEditorError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+session.ID())
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

func (h *Handler) sessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions/"), "/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing session id")
		return
	}
	if !authorize(w, r, auth.ScopeUsersWrite) {
		return
	}

	if id, ok := strings.CutSuffix(rest, "/submit"); ok {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.submitSession(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown session resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		session, err := h.editor.Get(rest)
		if err != nil {
			writeEditorError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, session.Snapshot())
	case http.MethodPatch:
		h.updateSession(w, r, rest)
	case http.MethodDelete:
		if err := h.editor.Cancel(rest); err != nil {
			writeEditorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) updateSession(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.editor.Get(id)
	if err != nil {
		writeEditorError(w, err)
		return
	}

	var req UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	for name, value := range req.Fields {
		if err := session.SetField(name, value); err != nil {
			writeEditorError(w, err)
			return
		}
	}
	if req.Teams != nil {
		if err := session.SetTeams(*req.Teams); err != nil {
			writeEditorError(w, err)
			return
		}
	}
	for _, teamID := range req.ToggleTeams {
		if err := session.ToggleTeam(teamID); err != nil {
			writeEditorError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) submitSession(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.editor.Get(id)
	if err != nil {
		writeEditorError(w, err)
		return
	}

	outcome, err := h.editor.Submit(r.Context(), id)
	if err == nil {
		writeJSON(w, http.StatusOK, SubmitResponse{User: outcome.User, Changes: outcomeViews(outcome.Report)})
		return
	}

	var validation *editor.ValidationError
	if errors.As(err, &validation) || errors.Is(err, editor.ErrSessionClosed) || errors.Is(err, editor.ErrSessionNotFound) {
		writeEditorError(w, err)
		return
	}

	snap := session.Snapshot()
	failure := SubmitFailure{Type: "update_failed", Detail: snap.LastError, Session: snap}
	var partial *membership.PartialSyncError
	if errors.As(err, &partial) {
		failure.Type = "partial_sync"
		failure.Changes = outcomeViews(partial.Report)
	}
	writeJSON(w, http.StatusBadGateway, failure)
}

func (h *Handler) userSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	userID, ok := strings.CutSuffix(rest, "/membership-history")
	if !ok || userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown user resource")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !authorize(w, r, auth.ScopeDashboardRead) {
		return
	}
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "membership history is not enabled")
		return
	}

	limit := h.pageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 100 {
				parsed = 100
			}
			limit = parsed
		}
	}
	cursor, err := audit.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	entries, next, err := h.history.ListByUser(r.Context(), userID, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Items: entries, NextCursor: audit.EncodeCursor(next)})
}

// resourceList serves GET /v1/{resource} from the store. ?refresh=true refetches first.
func (h *Handler) resourceList(w http.ResponseWriter, r *http.Request) {
	resource := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/"), "/")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !authorize(w, r, auth.ScopeDashboardRead) {
		return
	}

	if !slices.Contains(apiclient.Resources, resource) {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	ctx := r.Context()
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		if err := h.store.Refresh(ctx, resource); err != nil {
			writeListError(w, err)
			return
		}
	}

	var (
		items any
		err   error
	)
	switch resource {
	case apiclient.ResourceUsers:
		items, err = h.store.Users(ctx)
	case apiclient.ResourceTeams:
		items, err = h.store.Teams(ctx)
	case apiclient.ResourceActivities:
		items, err = h.store.Activities(ctx)
	case apiclient.ResourceLeaderboard:
		items, err = h.store.Leaderboard(ctx)
	case apiclient.ResourceWorkouts:
		items, err = h.store.Workouts(ctx)
	}
	if err != nil {
		writeListError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func authorize(w http.ResponseWriter, r *http.Request, scope string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if !claims.HasScope(scope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return false
	}
	return true
}

func writeEditorError(w http.ResponseWriter, err error) {
	var validation *editor.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", validation.Message)
	case errors.Is(err, editor.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, editor.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, editor.ErrSessionClosed):
		writeError(w, http.StatusConflict, "session_closed", err.Error())
	default:
		writeListError(w, err)
	}
}

func writeListError(w http.ResponseWriter, err error) {
	var network *apiclient.NetworkError
	if errors.As(err, &network) {
		writeError(w, http.StatusBadGateway, "backend_unavailable", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "server_error", err.Error())
}

func outcomeViews(report membership.Report) []OutcomeView {
	out := make([]OutcomeView, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		view := OutcomeView{TeamID: o.TeamID, TeamName: o.TeamName, Action: string(o.Action), Status: string(o.Status)}
		if o.Err != nil {
			view.Error = o.Err.Error()
		}
		out = append(out, view)
	}
	return out
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
