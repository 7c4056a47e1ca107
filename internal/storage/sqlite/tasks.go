package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ldap2kanboard/internal/models"
)

const defaultColor = "yellow"

const taskColumns = `id, project_id, column_id, owner_id, title, description, color_id, tags, date_due, position`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var t models.Task
	var tags string
	var due int64
	if err := row.Scan(&t.ID, &t.ProjectID, &t.ColumnID, &t.OwnerID, &t.Title, &t.Description, &t.ColorID, &tags, &due, &t.Position); err != nil {
		return models.Task{}, err
	}
	if tags != "" {
		t.Tags = strings.Split(tags, ",")
	}
	if due > 0 {
		t.DateDue = time.Unix(due, 0).UTC()
	}
	return t, nil
}

// CreateTask inserts a task at the bottom of its column. A zero column means the
// leftmost column. A non-zero owner must be assignable in the project.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (int, error) {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return 0, fmt.Errorf("task title must not be empty: %w", ErrInvalid)
	}
	if err := s.exists(ctx, "projects", t.ProjectID); err != nil {
		return 0, err
	}

	columnID, err := s.taskColumn(ctx, t.ProjectID, t.ColumnID)
	if err != nil {
		return 0, err
	}
	if t.OwnerID != 0 {
		ok, err := s.isAssignable(ctx, t.ProjectID, t.OwnerID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("user %d cannot own tasks in project %d: %w", t.OwnerID, t.ProjectID, ErrInvalid)
		}
	}

	color := t.ColorID
	if color == "" {
		color = defaultColor
	}
	var due int64
	if t.HasDueDate() {
		due = t.DateDue.Unix()
	}

	pos, err := s.nextPosition(ctx, t.ProjectID, columnID)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(project_id, column_id, owner_id, title, description, color_id, tags, date_due, position)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ProjectID, columnID, t.OwnerID, title, t.Description, color, strings.Join(t.Tags, ","), due, pos)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("task id: %w", err)
	}
	return int(id), nil
}

func (s *Store) taskColumn(ctx context.Context, projectID, columnID int) (int, error) {
	var id int
	var err error
	if columnID == 0 {
		err = s.db.QueryRowContext(ctx, `SELECT id FROM columns WHERE project_id = ? ORDER BY position LIMIT 1`, projectID).Scan(&id)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT id FROM columns WHERE project_id = ? AND id = ?`, projectID, columnID).Scan(&id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("column %d of project %d: %w", columnID, projectID, ErrInvalid)
	}
	if err != nil {
		return 0, fmt.Errorf("select column: %w", err)
	}
	return id, nil
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id int) (models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks returns the open tasks of a project ordered by column and position.
func (s *Store) ListTasks(ctx context.Context, projectID int) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT t.id, t.project_id, t.column_id, t.owner_id, t.title, t.description,
            t.color_id, t.tags, t.date_due, t.position
        FROM tasks t JOIN columns c ON c.id = t.column_id
        WHERE t.project_id = ? AND t.is_active = 1
        ORDER BY c.position, t.position, t.id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) nextPosition(ctx context.Context, projectID, columnID int) (int, error) {
	var position sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(position) FROM tasks WHERE project_id = ? AND column_id = ?`, projectID, columnID).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("select position: %w", err)
	}
	if position.Valid {
		return int(position.Int64) + 1, nil
	}
	return 1, nil
}

// CreateSubtask appends a subtask to a task.
func (s *Store) CreateSubtask(ctx context.Context, st models.Subtask) (int, error) {
	title := strings.TrimSpace(st.Title)
	if title == "" {
		return 0, fmt.Errorf("subtask title must not be empty: %w", ErrInvalid)
	}
	if err := s.exists(ctx, "tasks", st.TaskID); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO subtasks(task_id, title, position)
        VALUES(?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM subtasks WHERE task_id = ?))`, st.TaskID, title, st.TaskID)
	if err != nil {
		return 0, fmt.Errorf("insert subtask: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("subtask id: %w", err)
	}
	return int(id), nil
}

// ListSubtasks returns the subtasks of a task in order.
func (s *Store) ListSubtasks(ctx context.Context, taskID int) ([]models.Subtask, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, task_id, title FROM subtasks WHERE task_id = ? ORDER BY position, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	subtasks := []models.Subtask{}
	for rows.Next() {
		var st models.Subtask
		if err := rows.Scan(&st.ID, &st.TaskID, &st.Title); err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		subtasks = append(subtasks, st)
	}
	return subtasks, rows.Err()
}

// CreateExternalLink attaches a URL to a task. The title defaults to the URL.
func (s *Store) CreateExternalLink(ctx context.Context, l models.ExternalLink) (int, error) {
	url := strings.TrimSpace(l.URL)
	if url == "" {
		return 0, fmt.Errorf("link url must not be empty: %w", ErrInvalid)
	}
	if err := s.exists(ctx, "tasks", l.TaskID); err != nil {
		return 0, err
	}
	title := l.Title
	if title == "" {
		title = url
	}
	dependency := l.Dependency
	if dependency == "" {
		dependency = models.LinkDependencyRelated
	}
	linkType := l.LinkType
	if linkType == "" {
		linkType = models.LinkTypeWeb
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO external_links(task_id, title, url, dependency, link_type) VALUES(?, ?, ?, ?, ?)`,
		l.TaskID, title, url, dependency, linkType)
	if err != nil {
		return 0, fmt.Errorf("insert link: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("link id: %w", err)
	}
	return int(id), nil
}

// ListExternalLinks returns the links of a task in creation order.
func (s *Store) ListExternalLinks(ctx context.Context, taskID int) ([]models.ExternalLink, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, task_id, title, url, dependency, link_type FROM external_links WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	links := []models.ExternalLink{}
	for rows.Next() {
		var l models.ExternalLink
		if err := rows.Scan(&l.ID, &l.TaskID, &l.Title, &l.URL, &l.Dependency, &l.LinkType); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
