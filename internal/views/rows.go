// Package views turns domain records into display rows and renders the
// dashboard pages. Row builders are pure; every fallback for an absent field
// lives here.
package views

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"example.com/octofit/internal/domain"
)

// Fallback display values.
const (
	UnknownUser     = "Unknown"
	MissingEmail    = "N/A"
	NoDescription   = "No description available"
	InvalidDate     = "Invalid Date"
	NoTeams         = "No teams"
	maxExerciseTags = 5
)

// Badge is a label with its Bootstrap colour class.
type Badge struct {
	Label string
	Class string
}

// FitnessBadge renders a fitness level. Absent or unknown levels show as Beginner.
func FitnessBadge(level domain.FitnessLevel) Badge {
	switch level {
	case domain.FitnessAdvanced:
		return Badge{Label: "Advanced", Class: "bg-danger"}
	case domain.FitnessIntermediate:
		return Badge{Label: "Intermediate", Class: "bg-warning"}
	case "":
		return Badge{Label: "Beginner", Class: "bg-success"}
	}
	return Badge{Label: capitalize(string(level)), Class: "bg-success"}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// UserRow is one line of the users table.
type UserRow struct {
	ID       domain.ID
	Username string
	Email    string
	Age      int
	Fitness  Badge
	Teams    []string
}

// UserRows pairs every user with the names of the teams that list them.
func UserRows(users []domain.User, teams []domain.Team) []UserRow {
	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		names := make([]string, 0)
		for _, team := range teams {
			if team.HasMember(u.ID) {
				names = append(names, team.Name)
			}
		}
		rows = append(rows, UserRow{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			Age:      u.Age,
			Fitness:  FitnessBadge(u.FitnessLevel),
			Teams:    names,
		})
	}
	return rows
}

// TeamCard is one team tile.
type TeamCard struct {
	ID          domain.ID
	Name        string
	MemberCount int
	Members     []string
}

// TeamCards lists member usernames per team.
func TeamCards(teams []domain.Team) []TeamCard {
	cards := make([]TeamCard, 0, len(teams))
	for _, team := range teams {
		members := make([]string, 0, len(team.Members))
		for _, m := range team.Members {
			members = append(members, m.Username)
		}
		cards = append(cards, TeamCard{ID: team.ID, Name: team.Name, MemberCount: len(team.Members), Members: members})
	}
	return cards
}

// ActivityRow is one line of the activity log.
type ActivityRow struct {
	ID           domain.ID
	User         string
	ActivityType string
	Duration     string
	Date         string
}

// ActivityRows formats durations to one decimal and dates as "Jan 2, 2006".
func ActivityRows(activities []domain.Activity) []ActivityRow {
	rows := make([]ActivityRow, 0, len(activities))
	for _, a := range activities {
		rows = append(rows, ActivityRow{
			ID:           a.ID,
			User:         username(a.User),
			ActivityType: a.ActivityType,
			Duration:     fmt.Sprintf("%.1f", a.Duration),
			Date:         FormatDate(a.Date),
		})
	}
	return rows
}

var dateLayouts = []string{time.DateOnly, time.RFC3339Nano, "2006-01-02T15:04:05"}

// FormatDate renders a backend date. Empty or unparseable values give InvalidDate.
func FormatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return InvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return InvalidDate
}

// RankStyle distinguishes the podium from the rest of the leaderboard.
type RankStyle string

const (
	RankTopThree RankStyle = "top-three"
	RankPlain    RankStyle = "plain"
)

// LeaderboardRow is one ranked entry. Rank is positional.
type LeaderboardRow struct {
	Rank    int
	Style   RankStyle
	User    string
	Email   string
	Fitness Badge
	Score   int
}

// LeaderboardRows ranks entries by their position in the list.
func LeaderboardRows(entries []domain.LeaderboardEntry) []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(entries))
	for i, e := range entries {
		style := RankPlain
		if i < 3 {
			style = RankTopThree
		}
		row := LeaderboardRow{
			Rank:    i + 1,
			Style:   style,
			User:    username(e.User),
			Email:   MissingEmail,
			Fitness: FitnessBadge(""),
			Score:   e.Score,
		}
		if e.User != nil {
			if e.User.Email != "" {
				row.Email = e.User.Email
			}
			row.Fitness = FitnessBadge(e.User.FitnessLevel)
		}
		rows = append(rows, row)
	}
	return rows
}

// WorkoutCard is one workout suggestion.
type WorkoutCard struct {
	ID          domain.ID
	Name        string
	Description string
	CountLabel  string
	Exercises   []string
	More        int
}

// WorkoutCards shows at most five exercise labels per workout.
func WorkoutCards(workouts []domain.Workout) []WorkoutCard {
	cards := make([]WorkoutCard, 0, len(workouts))
	for _, w := range workouts {
		count := len(w.Exercises)
		card := WorkoutCard{
			ID:          w.ID,
			Name:        w.Name,
			Description: w.Description,
			CountLabel:  ExerciseCountLabel(count),
			Exercises:   make([]string, 0, min(count, maxExerciseTags)),
		}
		if card.Description == "" {
			card.Description = NoDescription
		}
		for i, ex := range w.Exercises {
			if i == maxExerciseTags {
				card.More = count - maxExerciseTags
				break
			}
			label := ex.Name
			if label == "" {
				label = fmt.Sprintf("Exercise %d", i+1)
			}
			card.Exercises = append(card.Exercises, label)
		}
		cards = append(cards, card)
	}
	return cards
}

// ExerciseCountLabel pluralises the exercise count.
func ExerciseCountLabel(n int) string {
	if n == 1 {
		return "1 Exercise"
	}
	return fmt.Sprintf("%d Exercises", n)
}

func username(u *domain.User) string {
	if u == nil || u.Username == "" {
		return UnknownUser
	}
	return u.Username
}
