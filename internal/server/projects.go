package server

import (
	"context"
	"encoding/json"
	"errors"

	"ldap2kanboard/internal/models"
	"ldap2kanboard/internal/storage/sqlite"
)

type identifierParams struct {
	Identifier string `json:"identifier"`
}

type projectIDParams struct {
	ProjectID intParam `json:"project_id"`
}

type createProjectParams struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	OwnerID     intParam `json:"owner_id"`
	Identifier  string   `json:"identifier"`
}

type projectUserParams struct {
	ProjectID intParam `json:"project_id"`
	UserID    intParam `json:"user_id"`
	Role      string   `json:"role"`
}

func (s *Server) registerProjectMethods() {
	s.methods["getProjectByIdentifier"] = s.getProjectByIdentifier
	s.methods["getProjectById"] = s.getProjectByID
	s.methods["getAllProjects"] = s.getAllProjects
	s.methods["createProject"] = s.createProject
	s.methods["getColumns"] = s.getColumns
	s.methods["addProjectUser"] = s.addProjectUser
	s.methods["getAssignableUsers"] = s.getAssignableUsers
}

// getProjectByIdentifier answers null when no project carries the identifier.
func (s *Server) getProjectByIdentifier(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[identifierParams](raw)
	if err != nil {
		return nil, err
	}
	project, err := s.store.ProjectByIdentifier(ctx, p.Identifier)
	if errors.Is(err, sqlite.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toProject(project), nil
}

func (s *Server) getProjectByID(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[projectIDParams](raw)
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, int(p.ProjectID))
	if errors.Is(err, sqlite.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toProject(project), nil
}

func (s *Server) getAllProjects(ctx context.Context, _ json.RawMessage) (any, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]projectRecord, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProject(p))
	}
	return out, nil
}

func (s *Server) createProject(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[createProjectParams](raw)
	if err != nil {
		return nil, err
	}
	return s.store.CreateProject(ctx, models.ProjectInput{
		Name:        p.Name,
		Description: p.Description,
		Identifier:  p.Identifier,
		OwnerID:     int(p.OwnerID),
	})
}

func (s *Server) getColumns(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[projectIDParams](raw)
	if err != nil {
		return nil, err
	}
	columns, err := s.store.Columns(ctx, int(p.ProjectID))
	if err != nil {
		return nil, err
	}
	out := make([]columnRecord, 0, len(columns))
	for _, c := range columns {
		out = append(out, columnRecord{ID: c.ID, ProjectID: c.ProjectID, Title: c.Title, Position: c.Position})
	}
	return out, nil
}

// addProjectUser grants a role, project-member when none is given.
func (s *Server) addProjectUser(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[projectUserParams](raw)
	if err != nil {
		return nil, err
	}
	role := p.Role
	if role == "" {
		role = models.RoleMember
	}
	if err := s.store.AddProjectUser(ctx, int(p.ProjectID), int(p.UserID), role); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) getAssignableUsers(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[projectIDParams](raw)
	if err != nil {
		return nil, err
	}
	users, err := s.store.AssignableUsers(ctx, int(p.ProjectID))
	if err != nil {
		return nil, err
	}
	return assignableRecord(users), nil
}
