package server

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ldap2kanboard/internal/models"
)

// Records are encoded the way Kanboard's PHP backend sends them: ids, counters and
// flags as strings, dates as unix timestamps.

// intParam accepts ids sent as numbers or numeric strings.
type intParam int

func (p *intParam) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	*p = intParam(v)
	return nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func unix(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.Unix(), 10)
}

type userRecord struct {
	ID       int    `json:"id,string"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsActive string `json:"is_active"`
}

func toUser(u models.User) userRecord {
	return userRecord{ID: u.ID, Username: u.Username, Name: u.Name, Email: u.Email, IsActive: flag(u.Active)}
}

func toUsers(in []models.User) []userRecord {
	out := make([]userRecord, 0, len(in))
	for _, u := range in {
		out = append(out, toUser(u))
	}
	return out
}

type groupRecord struct {
	ID   int    `json:"id,string"`
	Name string `json:"name"`
}

type projectRecord struct {
	ID          int    `json:"id,string"`
	Name        string `json:"name"`
	Identifier  string `json:"identifier"`
	Description string `json:"description"`
	OwnerID     int    `json:"owner_id,string"`
	IsActive    string `json:"is_active"`
}

func toProject(p models.Project) projectRecord {
	return projectRecord{
		ID:          p.ID,
		Name:        p.Name,
		Identifier:  p.Identifier,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		IsActive:    "1",
	}
}

type columnRecord struct {
	ID        int    `json:"id,string"`
	ProjectID int    `json:"project_id,string"`
	Title     string `json:"title"`
	Position  int    `json:"position,string"`
}

type taskRecord struct {
	ID          int    `json:"id,string"`
	ProjectID   int    `json:"project_id,string"`
	ColumnID    int    `json:"column_id,string"`
	OwnerID     int    `json:"owner_id,string"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ColorID     string `json:"color_id"`
	DateDue     string `json:"date_due"`
	Position    int    `json:"position,string"`
	IsActive    string `json:"is_active"`
}

func toTask(t models.Task) taskRecord {
	return taskRecord{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		ColumnID:    t.ColumnID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		ColorID:     t.ColorID,
		DateDue:     unix(t.DateDue),
		Position:    t.Position,
		IsActive:    "1",
	}
}

type subtaskRecord struct {
	ID     int    `json:"id,string"`
	TaskID int    `json:"task_id,string"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type linkRecord struct {
	ID         int    `json:"id,string"`
	TaskID     int    `json:"task_id,string"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Dependency string `json:"dependency"`
	LinkType   string `json:"link_type"`
}

// assignableRecord encodes getAssignableUsers as an id→name object, or as [] when
// empty like PHP does.
type assignableRecord map[int]string

func (a assignableRecord) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return []byte("[]"), nil
	}
	out := make(map[string]string, len(a))
	for id, name := range a {
		out[strconv.Itoa(id)] = name
	}
	return json.Marshal(out)
}
