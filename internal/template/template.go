// Package template reads the declarative project templates that describe a board
// project: its title, owner, members and tasks with their links and subtasks.
//
// Templates are JSON documents. Files ending in .yaml or .yml are read as YAML with
// the same field names.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTemplate marks a template file that is missing, unreadable or malformed.
var ErrInvalidTemplate = errors.New("invalid template")

// DefaultColumn is the position key used when a task declares no column.
const DefaultColumn = "1"

// Project is the root of a template document.
type Project struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Owner       string   `json:"owner" yaml:"owner"`
	Users       []Member `json:"users" yaml:"users"`
	Tasks       []Task   `json:"tasks" yaml:"tasks"`
}

// Member is a user added to the project with a project role.
type Member struct {
	Name string `json:"name" yaml:"name"`
	Role string `json:"role" yaml:"role"`
}

// Task is one task declared in a template.
type Task struct {
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Owner       string      `json:"owner" yaml:"owner"`
	Column      PositionKey `json:"column" yaml:"column"`
	Color       string      `json:"color" yaml:"color"`
	Tags        []string    `json:"tags" yaml:"tags"`
	DueDate     DayOffset   `json:"due_date" yaml:"due_date"`
	Links       []Link      `json:"links" yaml:"links"`
	Subtasks    []Subtask   `json:"subtasks" yaml:"subtasks"`
}

// ColumnKey returns the declared column position, defaulting to the leftmost column.
func (t Task) ColumnKey() string {
	if t.Column == "" {
		return DefaultColumn
	}
	return string(t.Column)
}

// Link is an external URL attached to a task.
type Link struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// Subtask is a checklist entry of a task.
type Subtask struct {
	Title string `json:"title" yaml:"title"`
}

// Load reads and parses the template at path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidTemplate, path, err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a template. ext selects the format: ".yaml" and ".yml" are YAML,
// everything else is JSON.
func Parse(data []byte, ext string) (*Project, error) {
	var p Project
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidTemplate, err)
		}
	default:
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: parse json: %v", ErrInvalidTemplate, err)
		}
	}
	return &p, nil
}

// PositionKey is a column position written either as a string or as a number.
type PositionKey string

// UnmarshalJSON accepts a JSON string or number.
func (k *PositionKey) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*k = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = PositionKey(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("column must be a string or a number: %s", data)
	}
	*k = PositionKey(n.String())
	return nil
}

// UnmarshalYAML accepts any YAML scalar.
func (k *PositionKey) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("column must be a scalar (line %d)", node.Line)
	}
	*k = PositionKey(strings.TrimSpace(node.Value))
	return nil
}

// DayOffset is the signed number of days between the project due date and a task's due
// date. A value that is present but not an integer is kept in Raw with Valid unset.
type DayOffset struct {
	Days  int
	Raw   string
	Set   bool
	Valid bool
}

// UnmarshalJSON records any non-null value; Valid is set only for integers.
func (d *DayOffset) UnmarshalJSON(data []byte) error {
	*d = DayOffset{}
	if string(data) == "null" {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	d.parse(v, string(data))
	return nil
}

// UnmarshalYAML records any non-null node; Valid is set only for integers.
func (d *DayOffset) UnmarshalYAML(node *yaml.Node) error {
	*d = DayOffset{}
	if node.Kind != yaml.ScalarNode {
		d.Set = true
		d.Raw = fmt.Sprintf("<%s at line %d>", node.Tag, node.Line)
		return nil
	}
	if node.Tag == "!!null" {
		return nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	d.parse(v, node.Value)
	return nil
}

func (d *DayOffset) parse(v any, raw string) {
	d.Set = true
	d.Raw = raw
	switch n := v.(type) {
	case int:
		d.Days, d.Valid = n, true
	case int64:
		d.Days, d.Valid = int(n), true
	case uint64:
		if n <= math.MaxInt32 {
			d.Days, d.Valid = int(n), true
		}
	case float64:
		if n == math.Trunc(n) && math.Abs(n) <= math.MaxInt32 {
			d.Days, d.Valid = int(n), true
		}
	case string:
		if days, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			d.Days, d.Valid = days, true
		}
	}
}
