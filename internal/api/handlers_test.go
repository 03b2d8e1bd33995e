package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/octofit/internal/apiclient"
	"example.com/octofit/internal/audit"
	"example.com/octofit/internal/auth"
	"example.com/octofit/internal/domain"
	"example.com/octofit/internal/editor"
	"example.com/octofit/internal/membership"
	"example.com/octofit/internal/store"
	"example.com/octofit/internal/views"
)

type harness struct {
	backend *fakeBackend
	editor  *editor.Controller
	history *audit.InMemoryRepository
	mux     *http.ServeMux
}

func newHarness(t *testing.T, backend *fakeBackend) *harness {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	quiet := log.New(io.Discard, "", 0)
	client := apiclient.New(srv.URL, time.Second, apiclient.WithLogger(quiet))
	st := store.New(client)
	syncer := membership.NewSynchronizer(client, membership.WithLogger(quiet))
	ctrl := editor.NewController(st, client, syncer, editor.WithLogger(quiet))
	renderer, err := views.NewRenderer()
	require.NoError(t, err)

	history := audit.NewInMemoryRepository()
	handler := NewHandler(st, ctrl, renderer, WithLogger(quiet), WithHistory(history, 2))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	return &harness{backend: backend, editor: ctrl, history: history, mux: mux}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func withScopes(req *http.Request, scopes ...string) *http.Request {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	claims := &auth.Claims{Subject: "coach-1", Scopes: set, ExpiresAt: time.Now().Add(time.Hour)}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return withScopes(req, auth.ScopeDashboardRead, auth.ScopeUsersWrite)
}

// formRequest posts an edit form as a signed-in user allowed to edit.
func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return withScopes(req, auth.ScopeUsersWrite)
}

func editRequest(target string) *http.Request {
	return withScopes(httptest.NewRequest(http.MethodGet, target, nil), auth.ScopeUsersWrite)
}

func TestUsersPageUnwrapsEnvelopeAndListsTeams(t *testing.T) {
	h := newHarness(t, newFakeBackend())

	rec := h.do(httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "<strong>ana</strong>")
	require.Contains(t, body, "<strong>eli</strong>")
	require.Contains(t, body, `href="/users/edit?id=5"`)
	require.Contains(t, body, ">Alpha</span>")
	require.NotContains(t, body, "User updated successfully!")

	rec = h.do(httptest.NewRequest(http.MethodGet, "/users?updated=1", nil))
	require.Contains(t, rec.Body.String(), "User updated successfully!")
}

func TestListPageRendersBackendFailureInPlace(t *testing.T) {
	backend := newFakeBackend()
	backend.down = true
	h := newHarness(t, backend)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/teams", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "Error Loading Teams")
	require.Contains(t, rec.Body.String(), "network response was not ok")
}

func TestLeaderboardPageStylesTopThree(t *testing.T) {
	h := newHarness(t, newFakeBackend())

	rec := h.do(httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Equal(t, 3, strings.Count(body, "rank-top-three"))
	require.Equal(t, 1, strings.Count(body, "rank-plain"))
}

func TestPagesRejectUnknownPathsAndMethods(t *testing.T) {
	h := newHarness(t, newFakeBackend())

	require.Equal(t, http.StatusNotFound, h.do(httptest.NewRequest(http.MethodGet, "/nope", nil)).Code)
	require.Equal(t, http.StatusMethodNotAllowed, h.do(httptest.NewRequest(http.MethodPost, "/teams", nil)).Code)
	require.Equal(t, http.StatusOK, h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestEditFormReconcilesTeams(t *testing.T) {
	backend := newFakeBackend()
	h := newHarness(t, backend)

	rec := h.do(editRequest("/users/edit?id=5"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/users/edit?session="))
	sessionID := strings.TrimPrefix(location, "/users/edit?session=")

	rec = h.do(httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `value="eli"`)
	require.Contains(t, rec.Body.String(), `id="team-A" checked`)

	rec = h.do(formRequest("/users/edit", url.Values{
		"session":       {sessionID},
		"username":      {"eli"},
		"email":         {"eli@octofit.dev"},
		"age":           {"31"},
		"fitness_level": {"advanced"},
		"teams":         {"B", "C"},
	}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/users?updated=1", rec.Header().Get("Location"))
	require.Zero(t, h.editor.Len())

	calls := backend.patchCalls()
	require.Len(t, calls, 3)
	require.Equal(t, "/api/users/5/", calls[0].path)
	require.Equal(t, "/api/teams/A/", calls[1].path)
	require.JSONEq(t, `{"member_ids":["1"]}`, calls[1].body)
	require.Equal(t, "/api/teams/C/", calls[2].path)
	require.JSONEq(t, `{"member_ids":["2","5"]}`, calls[2].body)

	var patch map[string]any
	require.NoError(t, json.Unmarshal([]byte(calls[0].body), &patch))
	require.Equal(t, float64(31), patch["age"])
	require.Equal(t, "advanced", patch["fitness_level"])
}

func TestEditFormFailureKeepsSessionAndShowsDetail(t *testing.T) {
	backend := newFakeBackend()
	backend.userStatus = http.StatusBadRequest
	backend.userDetail = "Email already taken"
	h := newHarness(t, backend)

	rec := h.do(editRequest("/users/edit?id=5"))
	sessionID := strings.TrimPrefix(rec.Header().Get("Location"), "/users/edit?session=")

	rec = h.do(formRequest("/users/edit", url.Values{
		"session":  {sessionID},
		"username": {"eli"},
		"email":    {"ana@octofit.dev"},
		"teams":    {"A", "B"},
	}))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "Email already taken")
	require.Contains(t, rec.Body.String(), `value="ana@octofit.dev"`)
	require.Equal(t, 1, h.editor.Len())
	require.Len(t, backend.patchCalls(), 1, "teams untouched after a rejected user patch")
}

func TestEditFormValidationAndUnknownUser(t *testing.T) {
	h := newHarness(t, newFakeBackend())

	require.Equal(t, http.StatusNotFound, h.do(editRequest("/users/edit?id=404")).Code)
	require.Equal(t, http.StatusBadRequest, h.do(editRequest("/users/edit")).Code)

	rec := h.do(editRequest("/users/edit?id=5"))
	sessionID := strings.TrimPrefix(rec.Header().Get("Location"), "/users/edit?session=")

	rec = h.do(formRequest("/users/edit", url.Values{"session": {sessionID}, "age": {"130"}}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "alert-danger")
}

func TestCancelEditDiscardsSession(t *testing.T) {
	backend := newFakeBackend()
	h := newHarness(t, backend)

	rec := h.do(editRequest("/users/edit?id=5"))
	sessionID := strings.TrimPrefix(rec.Header().Get("Location"), "/users/edit?session=")
	require.Equal(t, 1, h.editor.Len())

	rec = h.do(formRequest("/users/edit/cancel", url.Values{"session": {sessionID}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/users", rec.Header().Get("Location"))
	require.Zero(t, h.editor.Len())
	require.Empty(t, backend.patchCalls())
}

func TestEditPagesRequireWriteScope(t *testing.T) {
	backend := newFakeBackend()
	h := newHarness(t, backend)

	rec := h.do(jsonRequest(t, http.MethodPost, "/v1/sessions", map[string]any{"user_id": 5}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var opened editor.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&opened))

	anonymous := func(req *http.Request) *http.Request {
		return req.WithContext(context.Background())
	}
	submit := url.Values{"session": {opened.ID}, "username": {"intruder"}}

	require.Equal(t, http.StatusUnauthorized, h.do(anonymous(editRequest("/users/edit?id=5"))).Code)
	require.Equal(t, http.StatusUnauthorized, h.do(anonymous(formRequest("/users/edit", submit))).Code)
	require.Equal(t, http.StatusUnauthorized, h.do(anonymous(formRequest("/users/edit/cancel", submit))).Code)

	readOnly := func(req *http.Request) *http.Request {
		return withScopes(req.WithContext(context.Background()), auth.ScopeDashboardRead)
	}
	require.Equal(t, http.StatusForbidden, h.do(readOnly(editRequest("/users/edit?session="+opened.ID))).Code)
	require.Equal(t, http.StatusForbidden, h.do(readOnly(formRequest("/users/edit", submit))).Code)

	require.Empty(t, backend.patchCalls())
	require.Equal(t, 1, h.editor.Len(), "session opened through the API is untouched")
}

func TestSessionAPIFlow(t *testing.T) {
	backend := newFakeBackend()
	h := newHarness(t, backend)

	rec := h.do(jsonRequest(t, http.MethodPost, "/v1/sessions", map[string]any{"user_id": 5}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var snap editor.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, domain.ID("5"), snap.UserID)
	require.Equal(t, editor.StateEditing, snap.State)
	require.Equal(t, "/v1/sessions/"+snap.ID, rec.Header().Get("Location"))

	rec = h.do(jsonRequest(t, http.MethodPatch, "/v1/sessions/"+snap.ID, map[string]any{
		"fields":       map[string]string{"age": "31"},
		"teams":        []string{"B"},
		"toggle_teams": []string{"C"},
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, "31", snap.Form.Age)

	rec = h.do(jsonRequest(t, http.MethodPost, "/v1/sessions/"+snap.ID+"/submit", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 31, resp.User.Age)
	require.Len(t, resp.Changes, 2)
	require.Equal(t, OutcomeView{TeamID: "A", TeamName: "Alpha", Action: "remove", Status: "applied"}, resp.Changes[0])
	require.Equal(t, OutcomeView{TeamID: "C", TeamName: "Charlie", Action: "add", Status: "applied"}, resp.Changes[1])

	rec = h.do(jsonRequest(t, http.MethodGet, "/v1/sessions/"+snap.ID, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionAPIPartialSync(t *testing.T) {
	backend := newFakeBackend()
	backend.failTeams = map[string]string{"C": "team is full"}
	h := newHarness(t, backend)

	rec := h.do(jsonRequest(t, http.MethodPost, "/v1/sessions", map[string]any{"user_id": "5"}))
	var snap editor.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))

	rec = h.do(jsonRequest(t, http.MethodPatch, "/v1/sessions/"+snap.ID, map[string]any{"teams": []string{"B", "C"}}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(jsonRequest(t, http.MethodPost, "/v1/sessions/"+snap.ID+"/submit", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var failure SubmitFailure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failure))
	require.Equal(t, "partial_sync", failure.Type)
	require.Contains(t, failure.Detail, "Charlie")
	require.Len(t, failure.Changes, 2)
	require.Equal(t, "applied", failure.Changes[0].Status)
	require.Equal(t, "failed", failure.Changes[1].Status)
	require.Equal(t, "team is full", failure.Changes[1].Error)
	require.Equal(t, editor.StateEditing, failure.Session.State)
}

func TestSessionAPIErrors(t *testing.T) {
	h := newHarness(t, newFakeBackend())

	rec := h.do(jsonRequest(t, http.MethodPost, "/v1/sessions", map[string]any{"user_id": "5"}))
	var snap editor.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))

	rec = h.do(jsonRequest(t, http.MethodPatch, "/v1/sessions/"+snap.ID, map[string]any{"fields": map[string]string{"nickname": "x"}}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = h.do(jsonRequest(t, http.MethodPatch, "/v1/sessions/"+snap.ID, map[string]any{"toggle_teams": []string{"Z"}}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = h.do(jsonRequest(t, http.MethodPatch, "/v1/sessions/"+snap.ID, map[string]any{"fields": map[string]string{"username": " "}}))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(jsonRequest(t, http.MethodPost, "/v1/sessions/"+snap.ID+"/submit", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "validation_failed")

	rec = h.do(jsonRequest(t, http.MethodDelete, "/v1/sessions/"+snap.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(jsonRequest(t, http.MethodDelete, "/v1/sessions/"+snap.ID, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(jsonRequest(t, http.MethodPost, "/v1/sessions", map[string]any{"user_id": "404"}))
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(jsonRequest(t, http.MethodPost, "/v1/sessions", map[string]any{}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionAPIRequiresScopes(t *testing.T) {
	h := newHarness(t, newFakeBackend())

	body := strings.NewReader(`{"user_id":"5"}`)
	rec := h.do(httptest.NewRequest(http.MethodPost, "/v1/sessions", body))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := withScopes(httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{"user_id":"5"}`)), auth.ScopeDashboardRead)
	rec = h.do(req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Zero(t, h.editor.Len())
}

func TestResourceListAPI(t *testing.T) {
	backend := newFakeBackend()
	h := newHarness(t, backend)

	rec := h.do(jsonRequest(t, http.MethodGet, "/v1/users", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var users []domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 3)

	rec = h.do(jsonRequest(t, http.MethodGet, "/v1/activities", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = h.do(jsonRequest(t, http.MethodGet, "/v1/badges", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	before := backend.getCount("users")
	h.do(jsonRequest(t, http.MethodGet, "/v1/users", nil))
	require.Equal(t, before, backend.getCount("users"), "served from the snapshot")
	h.do(jsonRequest(t, http.MethodGet, "/v1/users?refresh=true", nil))
	require.Equal(t, before+1, backend.getCount("users"))

	backend.setDown(true)
	rec = h.do(jsonRequest(t, http.MethodGet, "/v1/teams", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "backend_unavailable")
}

func TestMembershipHistoryPages(t *testing.T) {
	h := newHarness(t, newFakeBackend())

	base := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, h.history.Record(context.Background(), audit.Entry{
			EventID:    id,
			EventType:  "membership.changed",
			UserID:     "5",
			TeamID:     "A",
			Action:     "added",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rec := h.do(jsonRequest(t, http.MethodGet, "/v1/users/5/membership-history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	require.Equal(t, "e3", page.Items[0].EventID)
	require.NotEmpty(t, page.NextCursor)

	rec = h.do(jsonRequest(t, http.MethodGet, "/v1/users/5/membership-history?cursor="+page.NextCursor, nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, "e1", page.Items[0].EventID)
	require.Empty(t, page.NextCursor)

	rec = h.do(jsonRequest(t, http.MethodGet, "/v1/users/5/membership-history?cursor=bm9wZQ", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(jsonRequest(t, http.MethodGet, "/v1/users/9/membership-history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

type patchCall struct {
	path string
	body string
}

// fakeBackend imitates the REST API: users come wrapped in a results
// envelope, activities in an unrecognised shape, everything else as arrays.
type fakeBackend struct {
	mu          sync.Mutex
	users       []domain.User
	teams       []domain.Team
	leaderboard []domain.LeaderboardEntry
	patches     []patchCall
	gets        map[string]int
	down        bool
	userStatus  int
	userDetail  string
	failTeams   map[string]string
}

func newFakeBackend() *fakeBackend {
	users := []domain.User{
		{ID: "1", Username: "ana", Email: "ana@octofit.dev", Age: 28, FitnessLevel: domain.FitnessAdvanced},
		{ID: "2", Username: "bo", Email: "bo@octofit.dev", Age: 35, FitnessLevel: domain.FitnessBeginner},
		{ID: "5", Username: "eli", Email: "eli@octofit.dev", Age: 30, FitnessLevel: domain.FitnessIntermediate},
	}
	return &fakeBackend{
		users: users,
		teams: []domain.Team{
			{ID: "A", Name: "Alpha", Members: []domain.User{users[0], users[2]}},
			{ID: "B", Name: "Bravo", Members: []domain.User{users[2]}},
			{ID: "C", Name: "Charlie", Members: []domain.User{users[1]}},
		},
		leaderboard: []domain.LeaderboardEntry{
			{ID: "l1", User: &users[0], Score: 900},
			{ID: "l2", User: &users[2], Score: 700},
			{ID: "l3", User: &users[1], Score: 500},
			{ID: "l4", Score: 100},
		},
		gets: make(map[string]int),
	}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/"), "/")
	resource := parts[0]

	if r.Method == http.MethodGet {
		b.gets[r.URL.Path]++
		if len(parts) == 1 {
			b.gets[resource]++
		}
		if b.down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if resource == "teams" && len(parts) == 2 {
			b.getTeam(w, parts[1])
			return
		}
		switch resource {
		case "users":
			writeJSON(w, http.StatusOK, map[string]any{"count": len(b.users), "results": b.users})
		case "teams":
			writeJSON(w, http.StatusOK, b.teams)
		case "leaderboard":
			writeJSON(w, http.StatusOK, b.leaderboard)
		case "activities":
			writeJSON(w, http.StatusOK, map[string]any{"unexpected": true})
		default:
			writeJSON(w, http.StatusOK, []any{})
		}
		return
	}

	if r.Method != http.MethodPatch || len(parts) != 2 {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	raw, _ := io.ReadAll(r.Body)
	b.patches = append(b.patches, patchCall{path: r.URL.Path, body: string(raw)})

	switch resource {
	case "users":
		b.patchUser(w, parts[1], raw)
	case "teams":
		b.patchTeam(w, parts[1], raw)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *fakeBackend) patchUser(w http.ResponseWriter, id string, raw []byte) {
	if b.userStatus != 0 {
		writeJSON(w, b.userStatus, map[string]string{"detail": b.userDetail})
		return
	}
	for i := range b.users {
		if b.users[i].ID.String() != id {
			continue
		}
		_ = json.Unmarshal(raw, &b.users[i])
		writeJSON(w, http.StatusOK, b.users[i])
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (b *fakeBackend) getTeam(w http.ResponseWriter, id string) {
	for _, team := range b.teams {
		if team.ID.String() == id {
			writeJSON(w, http.StatusOK, team)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (b *fakeBackend) patchTeam(w http.ResponseWriter, id string, raw []byte) {
	if detail, ok := b.failTeams[id]; ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": detail})
		return
	}
	var body struct {
		MemberIDs []domain.ID `json:"member_ids"`
	}
	_ = json.Unmarshal(raw, &body)
	for i := range b.teams {
		if b.teams[i].ID.String() != id {
			continue
		}
		members := make([]domain.User, 0, len(body.MemberIDs))
		for _, memberID := range body.MemberIDs {
			for _, u := range b.users {
				if u.ID == memberID {
					members = append(members, u)
				}
			}
		}
		b.teams[i].Members = members
		writeJSON(w, http.StatusOK, b.teams[i])
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (b *fakeBackend) patchCalls() []patchCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]patchCall(nil), b.patches...)
}

func (b *fakeBackend) getCount(resource string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets[resource]
}

func (b *fakeBackend) setDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}
