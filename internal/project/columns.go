package project

import (
	"strconv"

	"ldap2kanboard/internal/models"
	"ldap2kanboard/internal/template"
)

// Columns indexes a project's columns by their stringified position.
type Columns map[string]models.Column

// NewColumns builds the position index.
func NewColumns(columns []models.Column) Columns {
	c := make(Columns, len(columns))
	for _, col := range columns {
		c[strconv.Itoa(col.Position)] = col
	}
	return c
}

// Resolve returns the column at position key, the leftmost column when key is
// unknown, or a zero Column when the project has no columns. A zero column id lets
// the board service pick its default column.
func (c Columns) Resolve(key string) models.Column {
	if col, ok := c[key]; ok {
		return col
	}
	return c[template.DefaultColumn]
}
