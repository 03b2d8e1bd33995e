// Package domain defines the OctoFit records rendered and edited by the dashboard.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ID identifies a backend record. The backend serialises primary keys as
// strings but numeric ids are accepted on decode.
type ID string

// UnmarshalJSON accepts both JSON strings and numbers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("id must be a string or number")
	}
	*id = ID(n.String())
	return nil
}

// String returns the raw identifier.
func (id ID) String() string { return string(id) }

// FitnessLevel is the self-reported training level of a user.
type FitnessLevel string

const (
	FitnessBeginner     FitnessLevel = "beginner"
	FitnessIntermediate FitnessLevel = "intermediate"
	FitnessAdvanced     FitnessLevel = "advanced"
)

// Valid reports whether the level is one of the known values.
func (l FitnessLevel) Valid() bool {
	switch l {
	case FitnessBeginner, FitnessIntermediate, FitnessAdvanced:
		return true
	}
	return false
}

// User is an OctoFit profile.
type User struct {
	ID           ID           `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	Age          int          `json:"age"`
	FitnessLevel FitnessLevel `json:"fitness_level"`
}

// Team groups users. Members are embedded records, not ids.
type Team struct {
	ID      ID     `json:"id"`
	Name    string `json:"name"`
	Members []User `json:"members"`
}

// HasMember reports whether the user is currently listed in the team.
func (t Team) HasMember(userID ID) bool {
	for _, m := range t.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns member ids in list order.
func (t Team) MemberIDs() []ID {
	ids := make([]ID, 0, len(t.Members))
	for _, m := range t.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// Activity is a logged workout session.
type Activity struct {
	ID           ID      `json:"id"`
	User         *User   `json:"user"`
	ActivityType string  `json:"activity_type"`
	Duration     float64 `json:"duration"`
	Date         string  `json:"date"`
}

// LeaderboardEntry holds a user's score. Rank is the entry's position in the list.
type LeaderboardEntry struct {
	ID    ID    `json:"id"`
	User  *User `json:"user"`
	Score int   `json:"score"`
}

// Workout is a suggested routine.
type Workout struct {
	ID          ID         `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Exercises   []Exercise `json:"exercises"`
}

// Exercise is a workout step. The backend stores free-form JSON, so an
// exercise may arrive as a bare string or as an object with a name.
type Exercise struct {
	Name string
}

// UnmarshalJSON decodes either form. Unrecognised shapes yield an unnamed exercise.
func (e *Exercise) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &e.Name)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if raw, ok := obj["name"]; ok {
			var name string
			if json.Unmarshal(raw, &name) == nil {
				e.Name = name
			}
		}
		return nil
	}
	e.Name = ""
	return nil
}

// MarshalJSON encodes named exercises as objects.
func (e Exercise) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"name": e.Name})
}

// ParseAge mirrors the form behaviour of the dashboard: anything that is not a
// leading integer becomes 0. Values too large for an int saturate so range
// checks still reject them.
func ParseAge(raw string) int {
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) && (raw[end] >= '0' && raw[end] <= '9' || (end == 0 && (raw[end] == '-' || raw[end] == '+'))) {
		end++
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return n
}
