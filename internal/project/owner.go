package project

import (
	"context"
	"fmt"

	"ldap2kanboard/internal/models"
	"ldap2kanboard/internal/template"
)

// taskOwner decides who owns t. The first match wins: the owner for all tasks, the
// template owner after role alias rewriting (a random member when it names a group,
// else a user), then the project owner. An owner that is not assignable is added to
// the project as a member; when that does not make it assignable the project owner
// takes the task and is made a project manager if needed.
func (s *session) taskOwner(ctx context.Context, t template.Task) (models.User, error) {
	owner, ok := s.templateOwner(t)
	if !ok {
		owner = s.owner
	}

	if !s.isAssignable(owner) {
		if err := s.addProjectUser(ctx, owner, models.RoleMember, "task owner"); err != nil {
			return models.User{}, err
		}
	}
	if s.isAssignable(owner) {
		return owner, nil
	}

	s.logger.Error("task owner is not an assignable user, falling back to project owner",
		"task", t.Title, "owner", owner.Username, "project", s.title)
	owner = s.owner
	if !s.isAssignable(owner) {
		if err := s.addProjectUser(ctx, owner, models.RoleManager, "project owner"); err != nil {
			return models.User{}, err
		}
	}
	if !s.isAssignable(owner) {
		s.logger.Error("project owner is not an assignable user",
			"task", t.Title, "owner", owner.Username, "project", s.title)
	}
	return owner, nil
}

func (s *session) templateOwner(t template.Task) (models.User, bool) {
	if s.opts.TaskOwner != "" {
		name := s.resolveAlias(s.opts.TaskOwner)
		u, ok := s.dir.User(name)
		if !ok {
			s.logger.Warn("owner for all tasks is not a board user", "owner", name, "project", s.title)
		}
		return u, ok
	}

	if t.Owner == "" {
		return models.User{}, false
	}
	name := s.resolveAlias(t.Owner)

	if g, ok := s.dir.Group(name); ok && len(g.Members) > 0 {
		member := g.Members[s.picker.IntN(len(g.Members))]
		if u, ok := s.dir.User(member.Username); ok {
			member = u
		}
		s.logger.Info("picked task owner from group",
			"task", t.Title, "group", g.Name, "owner", member.Username, "project", s.title)
		return member, true
	}

	if u, ok := s.dir.User(name); ok {
		return u, true
	}
	s.logger.Warn("task owner is not a board user", "task", t.Title, "owner", name, "project", s.title)
	return models.User{}, false
}

// resolveAlias rewrites a role alias to its username. Unknown aliases stay as they are.
func (s *session) resolveAlias(name string) string {
	if !IsRoleAlias(name) {
		return name
	}
	username, ok := s.opts.Roles.Resolve(name)
	if !ok {
		s.logger.Warn("unknown role alias", "role", name, "project", s.title)
		return name
	}
	s.logger.Debug("resolved role alias", "role", name, "owner", username)
	return username
}

func (s *session) isAssignable(u models.User) bool {
	_, ok := s.assignable[u.ID]
	return ok
}

// addProjectUser grants role to u and re-reads the assignable users. A rejected
// grant is logged and leaves the assignable users as they were.
func (s *session) addProjectUser(ctx context.Context, u models.User, role, reason string) error {
	err := s.board.AddProjectUser(ctx, s.projectID, u.ID, role)
	switch {
	case rejected(err):
		s.logger.Error("could not add user to project",
			"user", u.Username, "role", role, "reason", reason, "project", s.title)
		return nil
	case err != nil:
		return fmt.Errorf("add %s to project %d: %w", u.Username, s.projectID, err)
	}
	s.logger.Warn("added user to project",
		"user", u.Username, "role", role, "reason", reason, "project", s.title)
	return s.refreshAssignable(ctx)
}

func (s *session) refreshAssignable(ctx context.Context) error {
	users, err := s.board.AssignableUsers(ctx, s.projectID)
	switch {
	case rejected(err):
		s.logger.Error("could not get assignable users", "project", s.title)
		users = map[int]string{}
	case err != nil:
		return fmt.Errorf("assignable users of project %d: %w", s.projectID, err)
	}
	s.assignable = users
	return nil
}
