package models

import (
	"errors"
	"time"
)

// ErrRejected reports that the board service answered a call with a falsy result.
var ErrRejected = errors.New("rejected by board service")

// Project roles accepted by the board service.
const (
	RoleMember  = "project-member"
	RoleViewer  = "project-viewer"
	RoleManager = "project-manager"
)

// External link attributes used for template links.
const (
	LinkDependencyRelated = "related"
	LinkTypeWeb           = "weblink"
)

// ValidProjectRoles enumerates the roles a user can hold in a project.
var ValidProjectRoles = map[string]struct{}{
	RoleMember:  {},
	RoleViewer:  {},
	RoleManager: {},
}

// User is a board account.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Active   bool   `json:"is_active"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Group is a named set of board users.
type Group struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Members []User `json:"members,omitempty"`
}

// Column is one board column; Position starts at 1 for the leftmost column.
type Column struct {
	ID        int    `json:"id"`
	ProjectID int    `json:"project_id"`
	Title     string `json:"title"`
	Position  int    `json:"position"`
}

// Project describes a board project.
type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Identifier  string `json:"identifier"`
	Description string `json:"description"`
	OwnerID     int    `json:"owner_id"`
}

// ProjectInput carries the fields used to create a project.
type ProjectInput struct {
	Name        string
	Description string
	Identifier  string
	OwnerID     int
}

// Task represents a single card on a project board.
type Task struct {
	ID          int       `json:"id"`
	ProjectID   int       `json:"project_id"`
	ColumnID    int       `json:"column_id"`
	OwnerID     int       `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ColorID     string    `json:"color_id"`
	Tags        []string  `json:"tags,omitempty"`
	DateDue     time.Time `json:"date_due"`
	Position    int       `json:"position"`
}

// HasDueDate reports whether the task carries a due date.
func (t Task) HasDueDate() bool {
	return !t.DateDue.IsZero()
}

// Subtask is a checklist entry of a task.
type Subtask struct {
	ID     int    `json:"id"`
	TaskID int    `json:"task_id"`
	Title  string `json:"title"`
}

// ExternalLink attaches a URL to a task.
type ExternalLink struct {
	ID         int    `json:"id"`
	TaskID     int    `json:"task_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Dependency string `json:"dependency"`
	LinkType   string `json:"link_type"`
}
