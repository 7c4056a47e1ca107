package template

import (
	"fmt"
	"sort"
	"strings"
)

// Summary describes the shape of a template without touching the board.
type Summary struct {
	Title         string
	Owner         string
	Members       int
	Tasks         int
	UntitledTasks int
	Subtasks      int
	Links         int
	Owners        []string
	BadOffsets    []string
}

// Summary counts the template's members, tasks, subtasks and links and lists the
// distinct task owners.
func (p *Project) Summary() Summary {
	s := Summary{
		Title:   p.Title,
		Owner:   p.Owner,
		Members: len(p.Users),
		Tasks:   len(p.Tasks),
	}
	owners := map[string]struct{}{}
	for _, t := range p.Tasks {
		if t.Title == "" {
			s.UntitledTasks++
		}
		s.Subtasks += len(t.Subtasks)
		s.Links += len(t.Links)
		if t.Owner != "" {
			owners[t.Owner] = struct{}{}
		}
		if t.DueDate.Set && !t.DueDate.Valid {
			s.BadOffsets = append(s.BadOffsets, fmt.Sprintf("%s: %s", t.Title, t.DueDate.Raw))
		}
	}
	for name := range owners {
		s.Owners = append(s.Owners, name)
	}
	sort.Strings(s.Owners)
	return s
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "title:    %s\n", s.Title)
	fmt.Fprintf(&b, "owner:    %s\n", s.Owner)
	fmt.Fprintf(&b, "members:  %d\n", s.Members)
	fmt.Fprintf(&b, "tasks:    %d (%d without title)\n", s.Tasks, s.UntitledTasks)
	fmt.Fprintf(&b, "subtasks: %d\n", s.Subtasks)
	fmt.Fprintf(&b, "links:    %d\n", s.Links)
	if len(s.Owners) > 0 {
		fmt.Fprintf(&b, "owners:   %s\n", strings.Join(s.Owners, ", "))
	}
	for _, bad := range s.BadOffsets {
		fmt.Fprintf(&b, "invalid due_date offset: %s\n", bad)
	}
	return b.String()
}
