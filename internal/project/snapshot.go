package project

import (
	"context"
	"fmt"
	"log/slog"

	"ldap2kanboard/internal/models"
)

// Snapshot holds the board's users and groups as read once before a project is built.
type Snapshot struct {
	users  map[string]models.User
	groups map[string]models.Group
}

// LoadSnapshot reads every board user and every group with its members. A rejected
// read leaves the corresponding index empty so later lookups miss.
func LoadSnapshot(ctx context.Context, board Board, logger *slog.Logger) (*Snapshot, error) {
	s := &Snapshot{
		users:  map[string]models.User{},
		groups: map[string]models.Group{},
	}

	users, err := board.AllUsers(ctx)
	switch {
	case rejected(err):
		logger.Error("could not list board users", slog.String("error", err.Error()))
	case err != nil:
		return nil, fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		s.users[u.Username] = u
	}

	groups, err := board.AllGroups(ctx)
	switch {
	case rejected(err):
		logger.Error("could not list board groups", slog.String("error", err.Error()))
	case err != nil:
		return nil, fmt.Errorf("list groups: %w", err)
	}
	for _, g := range groups {
		members, err := board.GroupMembers(ctx, g.ID)
		switch {
		case rejected(err):
			logger.Error("could not list group members", "group", g.Name)
		case err != nil:
			return nil, fmt.Errorf("list members of group %q: %w", g.Name, err)
		}
		g.Members = members
		s.groups[g.Name] = g
	}

	logger.Debug("loaded board directory", slog.Int("users", len(s.users)), slog.Int("groups", len(s.groups)))
	return s, nil
}

// User looks up a board user by username.
func (s *Snapshot) User(username string) (models.User, bool) {
	u, ok := s.users[username]
	return u, ok
}

// Group looks up a board group by name.
func (s *Snapshot) Group(name string) (models.Group, bool) {
	g, ok := s.groups[name]
	return g, ok
}
