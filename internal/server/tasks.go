package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ldap2kanboard/internal/models"
	"ldap2kanboard/internal/storage/sqlite"
)

// Layouts accepted for date_due.
var dueDateLayouts = []string{"2006-01-02", "2006-01-02 15:04", "2006-01-02 15:04:05"}

type createTaskParams struct {
	ProjectID   intParam `json:"project_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	OwnerID     intParam `json:"owner_id"`
	ColumnID    intParam `json:"column_id"`
	ColorID     string   `json:"color_id"`
	Tags        []string `json:"tags"`
	DateDue     string   `json:"date_due"`
}

type taskIDParams struct {
	TaskID intParam `json:"task_id"`
}

type allTasksParams struct {
	ProjectID intParam  `json:"project_id"`
	StatusID  *intParam `json:"status_id"`
}

type createSubtaskParams struct {
	TaskID intParam `json:"task_id"`
	Title  string   `json:"title"`
}

type createLinkParams struct {
	TaskID     intParam `json:"task_id"`
	URL        string   `json:"url"`
	Dependency string   `json:"dependency"`
	Type       string   `json:"type"`
	Title      string   `json:"title"`
}

func (s *Server) registerTaskMethods() {
	s.methods["createTask"] = s.createTask
	s.methods["getTask"] = s.getTask
	s.methods["getAllTasks"] = s.getAllTasks
	s.methods["createSubtask"] = s.createSubtask
	s.methods["getAllSubtasks"] = s.getAllSubtasks
	s.methods["createExternalTaskLink"] = s.createExternalTaskLink
	s.methods["getAllExternalTaskLinks"] = s.getAllExternalTaskLinks
}

func parseDueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("due date %q: %w", value, sqlite.ErrInvalid)
}

func (s *Server) createTask(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[createTaskParams](raw)
	if err != nil {
		return nil, err
	}
	due, err := parseDueDate(p.DateDue)
	if err != nil {
		return nil, err
	}
	return s.store.CreateTask(ctx, models.Task{
		ProjectID:   int(p.ProjectID),
		ColumnID:    int(p.ColumnID),
		OwnerID:     int(p.OwnerID),
		Title:       p.Title,
		Description: p.Description,
		ColorID:     p.ColorID,
		Tags:        p.Tags,
		DateDue:     due,
	})
}

// getTask answers null for an unknown task.
func (s *Server) getTask(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[taskIDParams](raw)
	if err != nil {
		return nil, err
	}
	t, err := s.store.GetTask(ctx, int(p.TaskID))
	if errors.Is(err, sqlite.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toTask(t), nil
}

// getAllTasks lists open tasks. Closed tasks are never stored, so status 0 is empty.
func (s *Server) getAllTasks(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[allTasksParams](raw)
	if err != nil {
		return nil, err
	}
	out := []taskRecord{}
	if p.StatusID != nil && *p.StatusID == 0 {
		return out, nil
	}
	tasks, err := s.store.ListTasks(ctx, int(p.ProjectID))
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		out = append(out, toTask(t))
	}
	return out, nil
}

func (s *Server) createSubtask(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[createSubtaskParams](raw)
	if err != nil {
		return nil, err
	}
	return s.store.CreateSubtask(ctx, models.Subtask{TaskID: int(p.TaskID), Title: p.Title})
}

func (s *Server) getAllSubtasks(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[taskIDParams](raw)
	if err != nil {
		return nil, err
	}
	subtasks, err := s.store.ListSubtasks(ctx, int(p.TaskID))
	if err != nil {
		return nil, err
	}
	out := make([]subtaskRecord, 0, len(subtasks))
	for _, st := range subtasks {
		out = append(out, subtaskRecord{ID: st.ID, TaskID: st.TaskID, Title: st.Title, Status: "0"})
	}
	return out, nil
}

func (s *Server) createExternalTaskLink(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[createLinkParams](raw)
	if err != nil {
		return nil, err
	}
	return s.store.CreateExternalLink(ctx, models.ExternalLink{
		TaskID:     int(p.TaskID),
		URL:        p.URL,
		Title:      p.Title,
		Dependency: p.Dependency,
		LinkType:   p.Type,
	})
}

func (s *Server) getAllExternalTaskLinks(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bind[taskIDParams](raw)
	if err != nil {
		return nil, err
	}
	links, err := s.store.ListExternalLinks(ctx, int(p.TaskID))
	if err != nil {
		return nil, err
	}
	out := make([]linkRecord, 0, len(links))
	for _, l := range links {
		out = append(out, linkRecord{
			ID:         l.ID,
			TaskID:     l.TaskID,
			Title:      l.Title,
			URL:        l.URL,
			Dependency: l.Dependency,
			LinkType:   l.LinkType,
		})
	}
	return out, nil
}
