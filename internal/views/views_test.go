package views

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"example.com/octofit/internal/domain"
	"example.com/octofit/internal/editor"
)

func TestFitnessBadge(t *testing.T) {
	require.Equal(t, Badge{Label: "Beginner", Class: "bg-success"}, FitnessBadge(""))
	require.Equal(t, Badge{Label: "Beginner", Class: "bg-success"}, FitnessBadge(domain.FitnessBeginner))
	require.Equal(t, Badge{Label: "Intermediate", Class: "bg-warning"}, FitnessBadge(domain.FitnessIntermediate))
	require.Equal(t, Badge{Label: "Advanced", Class: "bg-danger"}, FitnessBadge(domain.FitnessAdvanced))
	require.Equal(t, Badge{Label: "Élite", Class: "bg-success"}, FitnessBadge("élite"))
	require.True(t, utf8.ValidString(FitnessBadge("ünknown").Label))
}

func TestLeaderboardRanks(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		{ID: "1", User: &domain.User{Username: "ada", Email: "ada@example.com"}, Score: 90},
		{ID: "2", User: &domain.User{Username: "bo", FitnessLevel: domain.FitnessAdvanced}, Score: 80},
		{ID: "3"},
		{ID: "4", User: &domain.User{Username: "cy"}, Score: 40},
		{ID: "5", User: &domain.User{Username: "di"}},
	}

	rows := LeaderboardRows(entries)
	require.Len(t, rows, 5)
	for i, row := range rows {
		require.Equal(t, i+1, row.Rank)
		if i < 3 {
			require.Equal(t, RankTopThree, row.Style, "index %d", i)
		} else {
			require.Equal(t, RankPlain, row.Style, "index %d", i)
		}
	}

	require.Equal(t, "ada@example.com", rows[0].Email)
	require.Equal(t, MissingEmail, rows[1].Email)
	require.Equal(t, "Advanced", rows[1].Fitness.Label)
	require.Equal(t, UnknownUser, rows[2].User)
	require.Equal(t, MissingEmail, rows[2].Email)
	require.Equal(t, Badge{Label: "Beginner", Class: "bg-success"}, rows[2].Fitness)
	require.Zero(t, rows[4].Score)
}

func TestActivityRows(t *testing.T) {
	rows := ActivityRows([]domain.Activity{
		{ID: "1", User: &domain.User{Username: "ada"}, ActivityType: "Running", Duration: 30, Date: "2025-03-01"},
		{ID: "2", ActivityType: "Cycling", Date: "not a date"},
		{ID: "3", Duration: 12.345, Date: "2025-12-24T08:30:00Z"},
	})

	require.Equal(t, ActivityRow{ID: "1", User: "ada", ActivityType: "Running", Duration: "30.0", Date: "Mar 1, 2025"}, rows[0])
	require.Equal(t, UnknownUser, rows[1].User)
	require.Equal(t, "0.0", rows[1].Duration)
	require.Equal(t, InvalidDate, rows[1].Date)
	require.Equal(t, "12.3", rows[2].Duration)
	require.Equal(t, "Dec 24, 2025", rows[2].Date)
	require.Equal(t, InvalidDate, FormatDate(""))
}

func TestWorkoutCards(t *testing.T) {
	exercises := make([]domain.Exercise, 0, 7)
	for _, name := range []string{"Squat", "", "Lunge", "Plank", "Row", "Press", "Curl"} {
		exercises = append(exercises, domain.Exercise{Name: name})
	}

	cards := WorkoutCards([]domain.Workout{
		{ID: "1", Name: "Full body", Exercises: exercises},
		{ID: "2", Name: "Stretch", Description: "Gentle", Exercises: exercises[:1]},
		{ID: "3", Name: "Rest"},
	})

	require.Equal(t, NoDescription, cards[0].Description)
	require.Equal(t, "7 Exercises", cards[0].CountLabel)
	require.Equal(t, []string{"Squat", "Exercise 2", "Lunge", "Plank", "Row"}, cards[0].Exercises)
	require.Equal(t, 2, cards[0].More)

	require.Equal(t, "Gentle", cards[1].Description)
	require.Equal(t, "1 Exercise", cards[1].CountLabel)
	require.Zero(t, cards[1].More)

	require.Equal(t, "0 Exercises", cards[2].CountLabel)
	require.Empty(t, cards[2].Exercises)
}

func TestUserRowsAndTeamCards(t *testing.T) {
	ada := domain.User{ID: "1", Username: "ada"}
	bo := domain.User{ID: "2", Username: "bo", FitnessLevel: domain.FitnessIntermediate}
	teams := []domain.Team{
		{ID: "10", Name: "Blue", Members: []domain.User{ada, bo}},
		{ID: "11", Name: "Gold", Members: []domain.User{bo}},
	}

	rows := UserRows([]domain.User{ada, bo, {ID: "3", Username: "cy"}}, teams)
	require.Equal(t, []string{"Blue"}, rows[0].Teams)
	require.Equal(t, []string{"Blue", "Gold"}, rows[1].Teams)
	require.Equal(t, "bg-warning", rows[1].Fitness.Class)
	require.Empty(t, rows[2].Teams)

	cards := TeamCards(teams)
	require.Equal(t, TeamCard{ID: "10", Name: "Blue", MemberCount: 2, Members: []string{"ada", "bo"}}, cards[0])
}

func TestRenderPages(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, PageLeaderboard, Page{
		Title: "Leaderboard",
		Data:  LeaderboardRows([]domain.LeaderboardEntry{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}),
	}))
	html := buf.String()
	require.Equal(t, 3, strings.Count(html, "rank-top-three"))
	require.Equal(t, 1, strings.Count(html, "rank-plain"))
	require.Contains(t, html, "bg-success")

	buf.Reset()
	require.NoError(t, r.Render(&buf, PageUsers, Page{Title: "Users", Data: UserRows([]domain.User{{ID: "1", Username: "ada"}}, nil)}))
	require.Contains(t, buf.String(), "No teams")
	require.Contains(t, buf.String(), `href="/users/edit?id=1"`)

	buf.Reset()
	require.NoError(t, r.Render(&buf, PageTeams, Page{Title: "Teams", Err: "fetch teams: network response was not ok (Bad Gateway)"}))
	require.Contains(t, buf.String(), "Error Loading Teams")
	require.Contains(t, buf.String(), "Bad Gateway")

	require.Error(t, r.Render(&buf, "settings", Page{}))
}

func TestRenderEditFormShowsError(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	snap := editor.Snapshot{
		ID:     "sess-1",
		UserID: "5",
		State:  editor.StateEditing,
		Form:   editor.Form{Username: "ada", Email: "ada@example.com", FitnessLevel: domain.FitnessIntermediate},
		Teams: []editor.TeamChoice{
			{ID: "10", Name: "Blue", Selected: true},
			{ID: "11", Name: "Gold"},
		},
		LastError: "A user with that username already exists.",
	}

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, PageEdit, Page{Title: "Edit User", Active: PageUsers, Data: NewEditForm(snap)}))
	html := buf.String()
	require.Contains(t, html, "A user with that username already exists.")
	require.Contains(t, html, `value="intermediate" selected`)
	require.Contains(t, html, `id="team-10" checked`)
	require.NotContains(t, html, `id="team-11" checked`)
	require.Contains(t, html, `name="session" value="sess-1"`)
}

func TestMarkdownDescriptions(t *testing.T) {
	require.Equal(t, "<p><strong>Core</strong> focus</p>\n", string(Markdown("**Core** focus")))
	require.NotContains(t, string(Markdown("<script>alert(1)</script>")), "<script>")

	r, err := NewRenderer()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, PageWorkouts, Page{
		Title: "Workouts",
		Data:  WorkoutCards([]domain.Workout{{ID: "1", Name: "Plank", Description: "Hold *steady*"}}),
	}))
	require.Contains(t, buf.String(), "Hold <em>steady</em>")
}
