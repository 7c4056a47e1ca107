package project

import (
	"context"
	"errors"
	"time"

	"ldap2kanboard/internal/models"
	"ldap2kanboard/internal/template"
)

// Board is the subset of the board service used to materialize a project.
//
// A call the service answers with a falsy result returns an error wrapping
// models.ErrRejected. ProjectByIdentifier returns nil without error when no project
// carries the identifier.
type Board interface {
	AllUsers(ctx context.Context) ([]models.User, error)
	AllGroups(ctx context.Context) ([]models.Group, error)
	GroupMembers(ctx context.Context, groupID int) ([]models.User, error)
	ProjectByIdentifier(ctx context.Context, identifier string) (*models.Project, error)
	CreateProject(ctx context.Context, in models.ProjectInput) (int, error)
	Columns(ctx context.Context, projectID int) ([]models.Column, error)
	AddProjectUser(ctx context.Context, projectID, userID int, role string) error
	AssignableUsers(ctx context.Context, projectID int) (map[int]string, error)
	CreateTask(ctx context.Context, task models.Task) (int, error)
	CreateExternalLink(ctx context.Context, link models.ExternalLink) (int, error)
	CreateSubtask(ctx context.Context, subtask models.Subtask) (int, error)
}

// Picker chooses an index in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type Picker interface {
	IntN(n int) int
}

// Abort reasons. Every one of them matches ErrNotCreated.
var (
	ErrNotCreated          = errors.New("project not created")
	ErrDuplicateIdentifier = notCreated("identifier already in use")
	ErrNoTitle             = notCreated("project has no title")
	ErrUnknownOwner        = notCreated("project owner is not a board user")
	ErrProjectRejected     = notCreated("board service refused project creation")
)

type abortError struct{ reason string }

func notCreated(reason string) error { return &abortError{reason: reason} }

func (e *abortError) Error() string { return ErrNotCreated.Error() + ": " + e.reason }

func (e *abortError) Is(target error) bool { return target == ErrNotCreated }

func rejected(err error) bool {
	return errors.Is(err, models.ErrRejected)
}

// Options override template fields and supply the caller's identity data.
type Options struct {
	// Identifier must not be used by another project. Empty means no identifier.
	Identifier string
	// Owner replaces the template owner. A role alias is resolved through Roles.
	Owner       string
	Title       string
	Description string
	// TaskOwner, when set, owns every task regardless of the template.
	TaskOwner string
	// DueDate is the project due date; task offsets shift from it. Zero means none.
	DueDate      time.Time
	Roles        Roles
	Placeholders template.Placeholders
}

// Result describes a created project.
type Result struct {
	ProjectID    int
	Title        string
	Tasks        int
	SkippedTasks int
	Subtasks     int
	Links        int
	// LatestDueDate is the latest of the project due date and every task due date.
	// It is not written back to the board.
	LatestDueDate time.Time
}
