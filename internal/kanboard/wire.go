package kanboard

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ldap2kanboard/internal/models"
)

// flexInt decodes Kanboard ids and counters, which arrive as numbers or numeric strings.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch s {
	case "", "null", "false":
		*n = 0
		return nil
	case "true":
		*n = 1
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	*n = flexInt(v)
	return nil
}

// flexBool decodes flags sent as booleans, 0/1 numbers or "0"/"1" strings.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch s {
	case "1", "true":
		*b = true
	default:
		*b = false
	}
	return nil
}

type wireUser struct {
	ID       flexInt  `json:"id"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	IsActive flexBool `json:"is_active"`
}

func (w wireUser) model() models.User {
	return models.User{
		ID:       int(w.ID),
		Username: w.Username,
		Name:     w.Name,
		Email:    w.Email,
		Active:   bool(w.IsActive),
	}
}

func usersFromWire(in []wireUser) []models.User {
	out := make([]models.User, 0, len(in))
	for _, w := range in {
		if w.ID == 0 || w.Username == "" {
			continue
		}
		out = append(out, w.model())
	}
	return out
}

type wireGroup struct {
	ID   flexInt `json:"id"`
	Name string  `json:"name"`
}

type wireColumn struct {
	ID        flexInt `json:"id"`
	ProjectID flexInt `json:"project_id"`
	Title     string  `json:"title"`
	Position  flexInt `json:"position"`
}

type wireProject struct {
	ID          flexInt `json:"id"`
	Name        string  `json:"name"`
	Identifier  string  `json:"identifier"`
	Description string  `json:"description"`
	OwnerID     flexInt `json:"owner_id"`
}

type wireTask struct {
	ID          flexInt `json:"id"`
	ProjectID   flexInt `json:"project_id"`
	ColumnID    flexInt `json:"column_id"`
	OwnerID     flexInt `json:"owner_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ColorID     string  `json:"color_id"`
	DateDue     flexInt `json:"date_due"`
	Position    flexInt `json:"position"`
}

func (w wireTask) model() models.Task {
	t := models.Task{
		ID:          int(w.ID),
		ProjectID:   int(w.ProjectID),
		ColumnID:    int(w.ColumnID),
		OwnerID:     int(w.OwnerID),
		Title:       w.Title,
		Description: w.Description,
		ColorID:     w.ColorID,
		Position:    int(w.Position),
	}
	if w.DateDue > 0 {
		t.DateDue = time.Unix(int64(w.DateDue), 0).UTC()
	}
	return t
}

type wireSubtask struct {
	ID     flexInt `json:"id"`
	TaskID flexInt `json:"task_id"`
	Title  string  `json:"title"`
}

type wireLink struct {
	ID         flexInt `json:"id"`
	TaskID     flexInt `json:"task_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Dependency string  `json:"dependency"`
	LinkType   string  `json:"link_type"`
}

// assignable decodes getAssignableUsers, an id→name object that PHP encodes as an
// empty array when there is nobody to list.
type assignable map[int]string

func (a *assignable) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		*a = assignable{}
		return nil
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(assignable, len(raw))
	for k, name := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("assignable user id %q: %w", k, err)
		}
		out[id] = name
	}
	*a = out
	return nil
}
