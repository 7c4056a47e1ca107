package project

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"ldap2kanboard/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBoard is an in-memory board service. Assignable users are computed from
// project memberships the way the board service does: managers and members.
type fakeBoard struct {
	users   []models.User
	groups  []models.Group
	members map[int][]models.User
	columns []models.Column

	// ownerNotMember stops CreateProject from making the owner a manager.
	ownerNotMember bool
	rejectProject  bool
	rejectRoles    map[string]bool
	rejectUsers    map[int]bool
	rejectTasks    map[string]bool
	rejectColumns  bool
	rejectLinks    map[string]bool
	rejectSubtasks map[string]bool
	rejectMembers  map[int]bool
	taskErr        error

	nextID       int
	projects     map[string]models.Project
	created      []models.Project
	projectUsers map[int]map[int]string
	tasks        []models.Task
	links        []models.ExternalLink
	subtasks     []models.Subtask
	writes       []string
	// ownerAssignable records, per CreateTask call, whether the owner was assignable.
	ownerAssignable []bool
}

func newFakeBoard(users ...models.User) *fakeBoard {
	return &fakeBoard{
		users:        users,
		members:      map[int][]models.User{},
		projects:     map[string]models.Project{},
		projectUsers: map[int]map[int]string{},
		nextID:       100,
		columns: []models.Column{
			{ID: 11, Title: "Backlog", Position: 1},
			{ID: 12, Title: "Ready", Position: 2},
			{ID: 13, Title: "Work in progress", Position: 3},
			{ID: 14, Title: "Done", Position: 4},
		},
	}
}

func (b *fakeBoard) addGroup(id int, name string, members ...models.User) {
	b.groups = append(b.groups, models.Group{ID: id, Name: name})
	b.members[id] = members
}

func (b *fakeBoard) id() int {
	b.nextID++
	return b.nextID
}

func (b *fakeBoard) AllUsers(ctx context.Context) ([]models.User, error) {
	return b.users, nil
}

func (b *fakeBoard) AllGroups(ctx context.Context) ([]models.Group, error) {
	return b.groups, nil
}

func (b *fakeBoard) GroupMembers(ctx context.Context, groupID int) ([]models.User, error) {
	if b.rejectMembers[groupID] {
		return nil, models.ErrRejected
	}
	return b.members[groupID], nil
}

func (b *fakeBoard) ProjectByIdentifier(ctx context.Context, identifier string) (*models.Project, error) {
	if p, ok := b.projects[identifier]; ok {
		return &p, nil
	}
	return nil, nil
}

func (b *fakeBoard) CreateProject(ctx context.Context, in models.ProjectInput) (int, error) {
	b.writes = append(b.writes, "createProject "+in.Name)
	if b.rejectProject {
		return 0, models.ErrRejected
	}
	p := models.Project{ID: b.id(), Name: in.Name, Description: in.Description, Identifier: in.Identifier, OwnerID: in.OwnerID}
	if in.Identifier != "" {
		b.projects[in.Identifier] = p
	}
	b.created = append(b.created, p)
	b.projectUsers[p.ID] = map[int]string{}
	if !b.ownerNotMember {
		b.projectUsers[p.ID][in.OwnerID] = models.RoleManager
	}
	return p.ID, nil
}

func (b *fakeBoard) Columns(ctx context.Context, projectID int) ([]models.Column, error) {
	if b.rejectColumns {
		return nil, models.ErrRejected
	}
	return b.columns, nil
}

func (b *fakeBoard) AddProjectUser(ctx context.Context, projectID, userID int, role string) error {
	b.writes = append(b.writes, fmt.Sprintf("addProjectUser %d %s", userID, role))
	if b.rejectRoles[role] || b.rejectUsers[userID] {
		return models.ErrRejected
	}
	b.projectUsers[projectID][userID] = role
	return nil
}

func (b *fakeBoard) AssignableUsers(ctx context.Context, projectID int) (map[int]string, error) {
	out := map[int]string{}
	for userID, role := range b.projectUsers[projectID] {
		if role == models.RoleViewer {
			continue
		}
		for _, u := range b.users {
			if u.ID == userID {
				out[userID] = u.DisplayName()
			}
		}
	}
	return out, nil
}

func (b *fakeBoard) CreateTask(ctx context.Context, task models.Task) (int, error) {
	b.writes = append(b.writes, "createTask "+task.Title)
	assignable, _ := b.AssignableUsers(ctx, task.ProjectID)
	_, ok := assignable[task.OwnerID]
	b.ownerAssignable = append(b.ownerAssignable, ok)
	if b.taskErr != nil {
		return 0, b.taskErr
	}
	if b.rejectTasks[task.Title] {
		return 0, models.ErrRejected
	}
	task.ID = b.id()
	b.tasks = append(b.tasks, task)
	return task.ID, nil
}

func (b *fakeBoard) CreateExternalLink(ctx context.Context, link models.ExternalLink) (int, error) {
	b.writes = append(b.writes, "createExternalLink "+link.URL)
	if b.rejectLinks[link.URL] {
		return 0, models.ErrRejected
	}
	link.ID = b.id()
	b.links = append(b.links, link)
	return link.ID, nil
}

func (b *fakeBoard) CreateSubtask(ctx context.Context, subtask models.Subtask) (int, error) {
	b.writes = append(b.writes, "createSubtask "+subtask.Title)
	if b.rejectSubtasks[subtask.Title] {
		return 0, models.ErrRejected
	}
	subtask.ID = b.id()
	b.subtasks = append(b.subtasks, subtask)
	return subtask.ID, nil
}

func (b *fakeBoard) task(title string) (models.Task, bool) {
	for _, t := range b.tasks {
		if t.Title == title {
			return t, true
		}
	}
	return models.Task{}, false
}

// fixedPicker always picks the same index.
type fixedPicker int

func (p fixedPicker) IntN(n int) int {
	return int(p) % n
}
