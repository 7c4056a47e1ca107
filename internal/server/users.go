package server

import (
	"context"
	"encoding/json"
	"errors"

	"ldap2kanboard/internal/models"
	"ldap2kanboard/internal/storage/sqlite"
)

type usernameParams struct {
	Username string `json:"username"`
}

type createUserParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

type userIDParams struct {
	UserID intParam `json:"user_id"`
}

type groupParams struct {
	Name string `json:"name"`
}

type groupMemberParams struct {
	GroupID intParam `json:"group_id"`
	UserID  intParam `json:"user_id"`
}

func (s *Server) registerUserMethods() {
	s.methods["getAllUsers"] = s.getAllUsers
	s.methods["getUserByName"] = s.getUserByName
	s.methods["createUser"] = s.createUser
	s.methods["createLdapUser"] = s.createLdapUser
	s.methods["enableUser"] = s.setUserActive(true)
	s.methods["disableUser"] = s.setUserActive(false)
	s.methods["getAllGroups"] = s.getAllGroups
	s.methods["createGroup"] = s.createGroup
	s.methods["addGroupMember"] = s.addGroupMember
	s.methods["getGroupMembers"] = s.getGroupMembers
}

func (s *Server) getAllUsers(ctx context.Context, _ json.RawMessage) (any, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return toUsers(users), nil
}

// getUserByName answers null for an unknown username.
func (s *Server) getUserByName(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[usernameParams](raw)
	if err != nil {
		return nil, err
	}
	u, err := s.store.UserByName(ctx, p.Username)
	if errors.Is(err, sqlite.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toUser(u), nil
}

func (s *Server) createUser(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[createUserParams](raw)
	if err != nil {
		return nil, err
	}
	if p.Password == "" {
		return false, nil
	}
	return s.store.CreateUser(ctx, models.User{Username: p.Username, Name: p.Name, Email: p.Email, Active: true}, false)
}

// createLdapUser creates an account authenticated by the directory. Name and email
// are left for the first login to fill in.
func (s *Server) createLdapUser(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[usernameParams](raw)
	if err != nil {
		return nil, err
	}
	return s.store.CreateUser(ctx, models.User{Username: p.Username, Active: true}, true)
}

func (s *Server) setUserActive(active bool) method {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		p, err := bind[userIDParams](raw)
		if err != nil {
			return nil, err
		}
		if err := s.store.SetUserActive(ctx, int(p.UserID), active); err != nil {
			return nil, err
		}
		return true, nil
	}
}

func (s *Server) getAllGroups(ctx context.Context, _ json.RawMessage) (any, error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]groupRecord, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupRecord{ID: g.ID, Name: g.Name})
	}
	return out, nil
}

func (s *Server) createGroup(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[groupParams](raw)
	if err != nil {
		return nil, err
	}
	return s.store.CreateGroup(ctx, p.Name)
}

func (s *Server) addGroupMember(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[groupMemberParams](raw)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddGroupMember(ctx, int(p.GroupID), int(p.UserID)); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) getGroupMembers(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[groupMemberParams](raw)
	if err != nil {
		return nil, err
	}
	users, err := s.store.GroupMembers(ctx, int(p.GroupID))
	if err != nil {
		return nil, err
	}
	return toUsers(users), nil
}
