package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ldap2kanboard/internal/models"
)

const userColumns = `id, username, name, email, is_active`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var active int
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &active); err != nil {
		return models.User{}, err
	}
	u.Active = active == 1
	return u, nil
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser inserts a user. The username must be unique.
func (s *Store) CreateUser(ctx context.Context, u models.User, ldap bool) (int, error) {
	username := strings.TrimSpace(u.Username)
	if username == "" {
		return 0, fmt.Errorf("username must not be empty: %w", ErrInvalid)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO users(username, name, email, is_active, is_ldap_user) VALUES(?, ?, ?, ?, ?)`,
		username, strings.TrimSpace(u.Name), strings.TrimSpace(u.Email), boolInt(u.Active), boolInt(ldap))
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("user %s: %w", username, ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user id: %w", err)
	}
	s.logger.Debug("user created", "id", id, "username", username, "ldap", ldap)
	return int(id), nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id int) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UserByName fetches a user by username.
func (s *Store) UserByName(ctx context.Context, username string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// SetUserActive enables or disables a user.
func (s *Store) SetUserActive(ctx context.Context, id int, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, boolInt(active), id)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListGroups returns every group ordered by id, without members.
func (s *Store) ListGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM user_groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CreateGroup inserts a group. The name must be unique.
func (s *Store) CreateGroup(ctx context.Context, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("group name must not be empty: %w", ErrInvalid)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO user_groups(name) VALUES(?)`, name)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("group %s: %w", name, ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("group id: %w", err)
	}
	return int(id), nil
}

// GroupByName fetches a group by name, without members.
func (s *Store) GroupByName(ctx context.Context, name string) (models.Group, error) {
	var g models.Group
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM user_groups WHERE name = ?`, name).Scan(&g.ID, &g.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, fmt.Errorf("group %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return models.Group{}, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// AddGroupMember adds a user to a group. Adding an existing member succeeds.
func (s *Store) AddGroupMember(ctx context.Context, groupID, userID int) error {
	if err := s.exists(ctx, "user_groups", groupID); err != nil {
		return err
	}
	if err := s.exists(ctx, "users", userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO group_members(group_id, user_id) VALUES(?, ?)`, groupID, userID)
	if err != nil {
		return fmt.Errorf("insert group member: %w", err)
	}
	return nil
}

// GroupMembers lists the users of a group ordered by id.
func (s *Store) GroupMembers(ctx context.Context, groupID int) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT u.id, u.username, u.name, u.email, u.is_active
        FROM group_members gm JOIN users u ON u.id = gm.user_id
        WHERE gm.group_id = ? ORDER BY u.id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// exists returns ErrNotFound unless table has a row with id. table is never user input.
func (s *Store) exists(ctx context.Context, table string, id int) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+table+` WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("lookup %s: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", strings.TrimSuffix(table, "s"), id, ErrNotFound)
	}
	return nil
}
