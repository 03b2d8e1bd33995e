// Package membership reconciles team member lists with a user's selected teams.
package membership

import (
	"sort"

	"example.com/octofit/internal/domain"
)

// Action is the kind of write a Change performs.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// TeamSet is a set of team ids.
type TeamSet map[domain.ID]struct{}

// NewTeamSet builds a set from ids.
func NewTeamSet(ids ...domain.ID) TeamSet {
	set := make(TeamSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports membership in the set.
func (s TeamSet) Has(id domain.ID) bool {
	_, ok := s[id]
	return ok
}

// Toggle adds the id when absent and removes it when present.
func (s TeamSet) Toggle(id domain.ID) {
	if s.Has(id) {
		delete(s, id)
		return
	}
	s[id] = struct{}{}
}

// IDs returns the members in ascending order.
func (s TeamSet) IDs() []domain.ID {
	ids := make([]domain.ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CurrentTeams returns the ids of teams that list the user as a member.
func CurrentTeams(teams []domain.Team, userID domain.ID) TeamSet {
	set := make(TeamSet)
	for _, team := range teams {
		if team.HasMember(userID) {
			set[team.ID] = struct{}{}
		}
	}
	return set
}

// Change is one team write computed by Plan. MemberIDs is the complete list
// the team should hold afterwards.
type Change struct {
	Team      domain.Team
	Action    Action
	MemberIDs []domain.ID
}

// Plan computes the minimal set of writes that make every team's membership
// of userID match desired. Changes follow the order of teams; teams already
// in the right state produce no change.
func Plan(teams []domain.Team, userID domain.ID, desired TeamSet) []Change {
	changes := make([]Change, 0)
	for _, team := range teams {
		isMember := team.HasMember(userID)
		shouldBe := desired.Has(team.ID)

		switch {
		case shouldBe && !isMember:
			ids := append(uniqueIDs(team.MemberIDs(), ""), userID)
			changes = append(changes, Change{Team: team, Action: ActionAdd, MemberIDs: ids})
		case !shouldBe && isMember:
			changes = append(changes, Change{Team: team, Action: ActionRemove, MemberIDs: uniqueIDs(team.MemberIDs(), userID)})
		}
	}
	return changes
}

// Rebase recomputes the member list of change from current, the team as the
// backend holds it now. It reports false when current already satisfies the
// change.
func Rebase(change Change, current domain.Team, userID domain.ID) (Change, bool) {
	isMember := current.HasMember(userID)
	switch change.Action {
	case ActionAdd:
		if isMember {
			return change, false
		}
		change.MemberIDs = append(uniqueIDs(current.MemberIDs(), ""), userID)
	case ActionRemove:
		if !isMember {
			return change, false
		}
		change.MemberIDs = uniqueIDs(current.MemberIDs(), userID)
	}
	return change, true
}

// uniqueIDs drops duplicates and every occurrence of exclude, keeping first-seen order.
func uniqueIDs(ids []domain.ID, exclude domain.ID) []domain.ID {
	seen := make(map[domain.ID]struct{}, len(ids))
	out := make([]domain.ID, 0, len(ids)+1)
	for _, id := range ids {
		if exclude != "" && id == exclude {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
