package kanboard

import (
	"context"
	"errors"

	"ldap2kanboard/internal/models"
)

const dueDateLayout = "2006-01-02"

// AllUsers lists every board user.
func (c *Client) AllUsers(ctx context.Context) ([]models.User, error) {
	var users []wireUser
	if err := c.call(ctx, "getAllUsers", nil, &users); err != nil {
		return nil, err
	}
	return usersFromWire(users), nil
}

// UserByName returns the user with username, or nil when there is none.
func (c *Client) UserByName(ctx context.Context, username string) (*models.User, error) {
	var w wireUser
	err := c.call(ctx, "getUserByName", map[string]any{"username": username}, &w)
	if errors.Is(err, models.ErrRejected) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u := w.model()
	return &u, nil
}

// CreateUser creates a local board user and returns its id.
func (c *Client) CreateUser(ctx context.Context, username, password, name, email string) (int, error) {
	params := map[string]any{"username": username, "password": password}
	if name != "" {
		params["name"] = name
	}
	if email != "" {
		params["email"] = email
	}
	var id flexInt
	if err := c.call(ctx, "createUser", params, &id); err != nil {
		return 0, err
	}
	return int(id), nil
}

// CreateLdapUser creates a board user from the board's own LDAP directory.
func (c *Client) CreateLdapUser(ctx context.Context, username string) (int, error) {
	var id flexInt
	if err := c.call(ctx, "createLdapUser", map[string]any{"username": username}, &id); err != nil {
		return 0, err
	}
	return int(id), nil
}

// EnableUser re-enables a disabled account.
func (c *Client) EnableUser(ctx context.Context, userID int) error {
	return c.call(ctx, "enableUser", map[string]any{"user_id": userID}, nil)
}

// DisableUser disables an account.
func (c *Client) DisableUser(ctx context.Context, userID int) error {
	return c.call(ctx, "disableUser", map[string]any{"user_id": userID}, nil)
}

// AllGroups lists every group without members.
func (c *Client) AllGroups(ctx context.Context) ([]models.Group, error) {
	var groups []wireGroup
	if err := c.call(ctx, "getAllGroups", nil, &groups); err != nil {
		return nil, err
	}
	out := make([]models.Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.Group{ID: int(g.ID), Name: g.Name})
	}
	return out, nil
}

// CreateGroup creates a group and returns its id.
func (c *Client) CreateGroup(ctx context.Context, name string) (int, error) {
	var id flexInt
	if err := c.call(ctx, "createGroup", map[string]any{"name": name}, &id); err != nil {
		return 0, err
	}
	return int(id), nil
}

// AddGroupMember adds a user to a group.
func (c *Client) AddGroupMember(ctx context.Context, groupID, userID int) error {
	return c.call(ctx, "addGroupMember", map[string]any{"group_id": groupID, "user_id": userID}, nil)
}

// GroupMembers lists the users of a group.
func (c *Client) GroupMembers(ctx context.Context, groupID int) ([]models.User, error) {
	var users []wireUser
	if err := c.call(ctx, "getGroupMembers", map[string]any{"group_id": groupID}, &users); err != nil {
		return nil, err
	}
	return usersFromWire(users), nil
}

// ProjectByIdentifier returns the project carrying identifier, or nil when there is none.
func (c *Client) ProjectByIdentifier(ctx context.Context, identifier string) (*models.Project, error) {
	var w wireProject
	err := c.call(ctx, "getProjectByIdentifier", map[string]any{"identifier": identifier}, &w)
	if errors.Is(err, models.ErrRejected) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.Project{
		ID:          int(w.ID),
		Name:        w.Name,
		Identifier:  w.Identifier,
		Description: w.Description,
		OwnerID:     int(w.OwnerID),
	}, nil
}

// CreateProject creates a project and returns its id.
func (c *Client) CreateProject(ctx context.Context, in models.ProjectInput) (int, error) {
	params := map[string]any{"name": in.Name}
	if in.Description != "" {
		params["description"] = in.Description
	}
	if in.OwnerID != 0 {
		params["owner_id"] = in.OwnerID
	}
	if in.Identifier != "" {
		params["identifier"] = in.Identifier
	}
	var id flexInt
	if err := c.call(ctx, "createProject", params, &id); err != nil {
		return 0, err
	}
	return int(id), nil
}

// Columns lists the columns of a project.
func (c *Client) Columns(ctx context.Context, projectID int) ([]models.Column, error) {
	var columns []wireColumn
	if err := c.call(ctx, "getColumns", map[string]any{"project_id": projectID}, &columns); err != nil {
		return nil, err
	}
	out := make([]models.Column, 0, len(columns))
	for _, col := range columns {
		out = append(out, models.Column{
			ID:        int(col.ID),
			ProjectID: int(col.ProjectID),
			Title:     col.Title,
			Position:  int(col.Position),
		})
	}
	return out, nil
}

// AddProjectUser grants a project role to a user.
func (c *Client) AddProjectUser(ctx context.Context, projectID, userID int, role string) error {
	return c.call(ctx, "addProjectUser", map[string]any{
		"project_id": projectID,
		"user_id":    userID,
		"role":       role,
	}, nil)
}

// AssignableUsers maps the ids of users who can own tasks in a project to their names.
func (c *Client) AssignableUsers(ctx context.Context, projectID int) (map[int]string, error) {
	var users assignable
	if err := c.call(ctx, "getAssignableUsers", map[string]any{"project_id": projectID}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateTask creates a task and returns its id.
func (c *Client) CreateTask(ctx context.Context, t models.Task) (int, error) {
	params := map[string]any{
		"project_id": t.ProjectID,
		"title":      t.Title,
	}
	if t.Description != "" {
		params["description"] = t.Description
	}
	if t.OwnerID != 0 {
		params["owner_id"] = t.OwnerID
	}
	if t.ColumnID != 0 {
		params["column_id"] = t.ColumnID
	}
	if t.ColorID != "" {
		params["color_id"] = t.ColorID
	}
	if len(t.Tags) > 0 {
		params["tags"] = t.Tags
	}
	if t.HasDueDate() {
		params["date_due"] = t.DateDue.Format(dueDateLayout)
	}
	var id flexInt
	if err := c.call(ctx, "createTask", params, &id); err != nil {
		return 0, err
	}
	return int(id), nil
}

// Tasks lists the open tasks of a project.
func (c *Client) Tasks(ctx context.Context, projectID int) ([]models.Task, error) {
	var tasks []wireTask
	if err := c.call(ctx, "getAllTasks", map[string]any{"project_id": projectID, "status_id": 1}, &tasks); err != nil {
		return nil, err
	}
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.model())
	}
	return out, nil
}

// CreateExternalLink attaches a URL to a task and returns the link id.
func (c *Client) CreateExternalLink(ctx context.Context, link models.ExternalLink) (int, error) {
	params := map[string]any{
		"task_id":    link.TaskID,
		"url":        link.URL,
		"dependency": link.Dependency,
	}
	if link.Dependency == "" {
		params["dependency"] = models.LinkDependencyRelated
	}
	if link.LinkType != "" {
		params["type"] = link.LinkType
	}
	if link.Title != "" {
		params["title"] = link.Title
	}
	var id flexInt
	if err := c.call(ctx, "createExternalTaskLink", params, &id); err != nil {
		return 0, err
	}
	return int(id), nil
}

// ExternalLinks lists the external links of a task.
func (c *Client) ExternalLinks(ctx context.Context, taskID int) ([]models.ExternalLink, error) {
	var links []wireLink
	if err := c.call(ctx, "getAllExternalTaskLinks", map[string]any{"task_id": taskID}, &links); err != nil {
		return nil, err
	}
	out := make([]models.ExternalLink, 0, len(links))
	for _, l := range links {
		out = append(out, models.ExternalLink{
			ID:         int(l.ID),
			TaskID:     int(l.TaskID),
			Title:      l.Title,
			URL:        l.URL,
			Dependency: l.Dependency,
			LinkType:   l.LinkType,
		})
	}
	return out, nil
}

// CreateSubtask adds a subtask and returns its id.
func (c *Client) CreateSubtask(ctx context.Context, st models.Subtask) (int, error) {
	var id flexInt
	if err := c.call(ctx, "createSubtask", map[string]any{"task_id": st.TaskID, "title": st.Title}, &id); err != nil {
		return 0, err
	}
	return int(id), nil
}

// Subtasks lists the subtasks of a task.
func (c *Client) Subtasks(ctx context.Context, taskID int) ([]models.Subtask, error) {
	var subtasks []wireSubtask
	if err := c.call(ctx, "getAllSubtasks", map[string]any{"task_id": taskID}, &subtasks); err != nil {
		return nil, err
	}
	out := make([]models.Subtask, 0, len(subtasks))
	for _, st := range subtasks {
		out = append(out, models.Subtask{ID: int(st.ID), TaskID: int(st.TaskID), Title: st.Title})
	}
	return out, nil
}
