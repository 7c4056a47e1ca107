package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ldap2kanboard/internal/models"
)

const projectColumns = `id, name, identifier, description, owner_id`

func scanProject(row interface{ Scan(...any) error }) (models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Name, &p.Identifier, &p.Description, &p.OwnerID)
	return p, err
}

// CreateProject inserts a project with the default columns. A non-zero owner becomes
// the project's manager. Identifiers are stored upper case and must be unique.
func (s *Store) CreateProject(ctx context.Context, in models.ProjectInput) (int, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, fmt.Errorf("project name must not be empty: %w", ErrInvalid)
	}
	identifier := strings.ToUpper(strings.TrimSpace(in.Identifier))
	if in.OwnerID != 0 {
		if err := s.exists(ctx, "users", in.OwnerID); err != nil {
			return 0, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO projects(name, identifier, description, owner_id) VALUES(?, ?, ?, ?)`,
		name, identifier, in.Description, in.OwnerID)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("project identifier %s: %w", identifier, ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("project id: %w", err)
	}

	for i, title := range DefaultColumns {
		if _, err := tx.ExecContext(ctx, `INSERT INTO columns(project_id, title, position) VALUES(?, ?, ?)`, id, title, i+1); err != nil {
			return 0, fmt.Errorf("insert column: %w", err)
		}
	}
	if in.OwnerID != 0 {
		if _, err := tx.ExecContext(ctx, `INSERT INTO project_users(project_id, user_id, role) VALUES(?, ?, ?)`, id, in.OwnerID, models.RoleManager); err != nil {
			return 0, fmt.Errorf("insert project owner: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("project created", "id", id, "name", name, "identifier", identifier)
	return int(id), nil
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id int) (models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ProjectByIdentifier fetches the project carrying identifier, ignoring case.
func (s *Store) ProjectByIdentifier(ctx context.Context, identifier string) (models.Project, error) {
	identifier = strings.ToUpper(strings.TrimSpace(identifier))
	if identifier == "" {
		return models.Project{}, fmt.Errorf("empty identifier: %w", ErrNotFound)
	}
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE identifier = ?`, identifier))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %s: %w", identifier, ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjects retrieves all projects ordered by id.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Columns lists the columns of a project by position.
func (s *Store) Columns(ctx context.Context, projectID int) ([]models.Column, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, project_id, title, position FROM columns WHERE project_id = ? ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	columns := []models.Column{}
	for rows.Next() {
		var c models.Column
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Title, &c.Position); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

// AddProjectUser grants role to a user, replacing any role the user already holds.
func (s *Store) AddProjectUser(ctx context.Context, projectID, userID int, role string) error {
	if _, ok := models.ValidProjectRoles[role]; !ok {
		return fmt.Errorf("role %q: %w", role, ErrInvalid)
	}
	if err := s.exists(ctx, "projects", projectID); err != nil {
		return err
	}
	if err := s.exists(ctx, "users", userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO project_users(project_id, user_id, role) VALUES(?, ?, ?)
        ON CONFLICT(project_id, user_id) DO UPDATE SET role = excluded.role`, projectID, userID, role)
	if err != nil {
		return fmt.Errorf("insert project user: %w", err)
	}
	return nil
}

// ProjectRole returns the role a user holds in a project, or "" when none.
func (s *Store) ProjectRole(ctx context.Context, projectID, userID int) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM project_users WHERE project_id = ? AND user_id = ?`, projectID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get project role: %w", err)
	}
	return role, nil
}

// AssignableUsers maps active managers and members of a project to their display names.
func (s *Store) AssignableUsers(ctx context.Context, projectID int) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT u.id, u.username, u.name, u.email, u.is_active
        FROM project_users pu JOIN users u ON u.id = pu.user_id
        WHERE pu.project_id = ? AND u.is_active = 1 AND pu.role IN (?, ?)
        ORDER BY u.id`, projectID, models.RoleManager, models.RoleMember)
	if err != nil {
		return nil, fmt.Errorf("list assignable users: %w", err)
	}
	defer rows.Close()

	out := map[int]string{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out[u.ID] = u.DisplayName()
	}
	return out, rows.Err()
}

func (s *Store) isAssignable(ctx context.Context, projectID, userID int) (bool, error) {
	users, err := s.AssignableUsers(ctx, projectID)
	if err != nil {
		return false, err
	}
	_, ok := users[userID]
	return ok, nil
}
