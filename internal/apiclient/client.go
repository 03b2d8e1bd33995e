// Package apiclient talks to the OctoFit REST backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"example.com/octofit/internal/domain"
	"example.com/octofit/internal/observability"
)

// Resource names as they appear in backend paths.
const (
	ResourceUsers       = "users"
	ResourceTeams       = "teams"
	ResourceActivities  = "activities"
	ResourceLeaderboard = "leaderboard"
	ResourceWorkouts    = "workouts"
)

// Resources lists every list endpoint the dashboard renders.
var Resources = []string{ResourceUsers, ResourceTeams, ResourceActivities, ResourceLeaderboard, ResourceWorkouts}

const defaultBaseURL = "http://localhost:8000"

// ResolveBaseURL picks the backend host. An explicit override wins, then the
// Codespaces forwarded-port host, then localhost.
func ResolveBaseURL(codespaceName, override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return strings.TrimRight(override, "/")
	}
	if codespaceName = strings.TrimSpace(codespaceName); codespaceName != "" {
		return fmt.Sprintf("https://%s-8000.app.github.dev", codespaceName)
	}
	return defaultBaseURL
}

// UserPatch carries a partial user update. Nil fields are omitted from the body.
type UserPatch struct {
	Username     *string              `json:"username,omitempty"`
	Email        *string              `json:"email,omitempty"`
	Age          *int                 `json:"age,omitempty"`
	FitnessLevel *domain.FitnessLevel `json:"fitness_level,omitempty"`
}

// Option configures optional behaviour for the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger overrides the logger used for request tracing.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client performs list reads and partial updates against the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// New constructs a Client. A zero timeout means requests run until the
// backend answers or the context is cancelled.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.New(log.Writer(), "[apiclient] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the resolved backend host.
func (c *Client) BaseURL() string { return c.baseURL }

// Endpoint builds the collection or record URL for a resource. Backend paths
// always carry a trailing slash.
func (c *Client) Endpoint(resource string, id ...string) string {
	if len(id) > 0 && id[0] != "" {
		return fmt.Sprintf("%s/api/%s/%s/", c.baseURL, resource, id[0])
	}
	return fmt.Sprintf("%s/api/%s/", c.baseURL, resource)
}

// FetchList retrieves a resource collection as raw records, unwrapping an
// optional results envelope. Payloads of any other shape produce an empty list.
func (c *Client) FetchList(ctx context.Context, resource string) (items []json.RawMessage, err error) {
	start := time.Now()
	defer func() { observability.ObserveBackendRequest(http.MethodGet, resource, err, time.Since(start)) }()

	url := c.Endpoint(resource)
	c.logger.Printf("GET %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{Resource: resource, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Resource: resource, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &NetworkError{Resource: resource, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Resource: resource, Err: err}
	}

	items, ok := UnwrapList(body)
	if !ok {
		c.logger.Printf("unexpected %s payload shape, treating as empty", resource)
		observability.RecordCoercedPayload(resource)
	}
	return items, nil
}

// ListUsers fetches all users.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	raw, err := c.FetchList(ctx, ResourceUsers)
	if err != nil {
		return nil, err
	}
	return decodeRecords[domain.User](raw), nil
}

// ListTeams fetches all teams with embedded members.
func (c *Client) ListTeams(ctx context.Context) ([]domain.Team, error) {
	raw, err := c.FetchList(ctx, ResourceTeams)
	if err != nil {
		return nil, err
	}
	return decodeRecords[domain.Team](raw), nil
}

// ListActivities fetches the activity log.
func (c *Client) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	raw, err := c.FetchList(ctx, ResourceActivities)
	if err != nil {
		return nil, err
	}
	return decodeRecords[domain.Activity](raw), nil
}

// ListLeaderboard fetches leaderboard entries in rank order.
func (c *Client) ListLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	raw, err := c.FetchList(ctx, ResourceLeaderboard)
	if err != nil {
		return nil, err
	}
	return decodeRecords[domain.LeaderboardEntry](raw), nil
}

// ListWorkouts fetches workout suggestions.
func (c *Client) ListWorkouts(ctx context.Context) ([]domain.Workout, error) {
	raw, err := c.FetchList(ctx, ResourceWorkouts)
	if err != nil {
		return nil, err
	}
	return decodeRecords[domain.Workout](raw), nil
}

// GetTeam fetches one team with its current members.
func (c *Client) GetTeam(ctx context.Context, id domain.ID) (team domain.Team, err error) {
	start := time.Now()
	defer func() { observability.ObserveBackendRequest(http.MethodGet, ResourceTeams, err, time.Since(start)) }()

	url := c.Endpoint(ResourceTeams, id.String())
	c.logger.Printf("GET %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Team{}, &NetworkError{Resource: ResourceTeams, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Team{}, &NetworkError{Resource: ResourceTeams, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Team{}, &NetworkError{Resource: ResourceTeams, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(&team); err != nil {
		return domain.Team{}, &NetworkError{Resource: ResourceTeams, Err: err}
	}
	return team, nil
}

// UpdateUser applies a partial update to a user and returns the stored record.
func (c *Client) UpdateUser(ctx context.Context, id domain.ID, patch UserPatch) (domain.User, error) {
	var user domain.User
	err := c.patch(ctx, ResourceUsers, id.String(), patch, &user)
	return user, err
}

// UpdateTeamMembers replaces a team's member list wholesale.
func (c *Client) UpdateTeamMembers(ctx context.Context, teamID domain.ID, memberIDs []domain.ID) (domain.Team, error) {
	if memberIDs == nil {
		memberIDs = []domain.ID{}
	}
	body := struct {
		MemberIDs []domain.ID `json:"member_ids"`
	}{MemberIDs: memberIDs}

	var team domain.Team
	err := c.patch(ctx, ResourceTeams, teamID.String(), body, &team)
	return team, err
}

func (c *Client) patch(ctx context.Context, resource, id string, payload, out any) (err error) {
	start := time.Now()
	defer func() { observability.ObserveBackendRequest(http.MethodPatch, resource, err, time.Since(start)) }()

	body, err := json.Marshal(payload)
	if err != nil {
		return &UpdateError{Resource: resource, ID: id, Err: err}
	}

	url := c.Endpoint(resource, id)
	c.logger.Printf("PATCH %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return &UpdateError{Resource: resource, ID: id, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpdateError{Resource: resource, ID: id, Err: err}
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var problem struct {
			Detail string `json:"detail"`
		}
		if readErr == nil {
			_ = json.Unmarshal(data, &problem)
		}
		return &UpdateError{Resource: resource, ID: id, Status: resp.StatusCode, Detail: problem.Detail}
	}
	if readErr != nil {
		return &UpdateError{Resource: resource, ID: id, Status: resp.StatusCode, Err: readErr}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &UpdateError{Resource: resource, ID: id, Status: resp.StatusCode, Err: err}
	}
	return nil
}
