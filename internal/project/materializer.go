// Package project turns a project template into a board project: the project
// itself, its members, and every task with its links and subtasks.
//
// Building is a single pass of synchronous board calls. Nothing is rolled back: when
// a task, link, subtask or membership cannot be created the failure is logged and the
// pass continues. Only the conditions reported as ErrNotCreated stop a project from
// being created, and they are all checked before the project exists.
package project

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"ldap2kanboard/internal/models"
	"ldap2kanboard/internal/template"
)

// Materializer creates board projects from templates.
type Materializer struct {
	board  Board
	logger *slog.Logger
	picker Picker
}

// NewMaterializer wires a materializer. picker chooses group members for group-owned
// tasks; nil uses a time-seeded source.
func NewMaterializer(board Board, logger *slog.Logger, picker Picker) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	if picker == nil {
		picker = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Materializer{board: board, logger: logger, picker: picker}
}

// Create loads the template at path and builds the project it describes.
func (m *Materializer) Create(ctx context.Context, path string, opts Options) (Result, error) {
	tpl, err := template.Load(path)
	if err != nil {
		return Result{}, err
	}
	return m.Build(ctx, tpl, opts)
}

// Build creates the project described by tpl. It returns an error matching
// ErrNotCreated when the project was not created. Any other error comes from the
// board service; the returned Result then still names a project that was created.
func (m *Materializer) Build(ctx context.Context, tpl *template.Project, opts Options) (Result, error) {
	logger := m.logger
	if opts.Identifier != "" {
		logger = logger.With("identifier", opts.Identifier)
		existing, err := m.board.ProjectByIdentifier(ctx, opts.Identifier)
		if err != nil {
			return Result{}, fmt.Errorf("look up identifier %q: %w", opts.Identifier, err)
		}
		if existing != nil {
			logger.Error("identifier not unique, not creating project", "existing", existing.ID)
			return Result{}, ErrDuplicateIdentifier
		}
	}

	title := opts.Title
	if title == "" {
		title = tpl.Title
	}
	title = opts.Placeholders.Apply(title)
	if strings.TrimSpace(title) == "" {
		logger.Error("project has no title")
		return Result{}, ErrNoTitle
	}
	description := opts.Description
	if description == "" {
		description = tpl.Description
	}
	description = opts.Placeholders.Apply(description)

	dir, err := LoadSnapshot(ctx, m.board, logger)
	if err != nil {
		return Result{}, err
	}

	s := &session{
		board:  m.board,
		logger: logger,
		picker: m.picker,
		opts:   opts,
		dir:    dir,
		title:  title,
	}

	ownerName := opts.Owner
	if ownerName == "" {
		ownerName = tpl.Owner
	}
	ownerName = s.resolveAlias(ownerName)
	owner, ok := dir.User(ownerName)
	if !ok {
		logger.Error("project owner is not a board user", "owner", ownerName, "project", title)
		return Result{}, ErrUnknownOwner
	}
	s.owner = owner
	logger.Debug("resolved project owner", "owner", owner.Username, "project", title)

	projectID, err := m.board.CreateProject(ctx, models.ProjectInput{
		Name:        title,
		Description: description,
		Identifier:  opts.Identifier,
		OwnerID:     owner.ID,
	})
	if rejected(err) || (err == nil && projectID == 0) {
		logger.Error("could not create project", "owner", owner.Username, "project", title)
		return Result{}, ErrProjectRejected
	}
	if err != nil {
		return Result{}, fmt.Errorf("create project %q: %w", title, err)
	}
	logger.Info("created project", "project", title, "owner", owner.Username, "id", projectID)

	s.projectID = projectID
	s.result = Result{ProjectID: projectID, Title: title, LatestDueDate: opts.DueDate}

	if err := s.build(ctx, tpl); err != nil {
		return s.result, err
	}

	logger.Info("project complete",
		"project", title,
		"id", projectID,
		"tasks", s.result.Tasks,
		"skipped", s.result.SkippedTasks,
		"subtasks", s.result.Subtasks,
		"links", s.result.Links,
	)
	return s.result, nil
}

// session is the state of one Build call. The assignable users are re-read after
// every membership change so later tasks see earlier additions.
type session struct {
	board  Board
	logger *slog.Logger
	picker Picker
	opts   Options
	dir    *Snapshot

	projectID  int
	title      string
	owner      models.User
	columns    Columns
	assignable map[int]string
	result     Result
}

func (s *session) build(ctx context.Context, tpl *template.Project) error {
	if err := s.loadColumns(ctx); err != nil {
		return err
	}
	if err := s.addMembers(ctx, tpl.Users); err != nil {
		return err
	}
	if err := s.refreshAssignable(ctx); err != nil {
		return err
	}
	for _, t := range tpl.Tasks {
		if err := s.createTask(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) loadColumns(ctx context.Context) error {
	columns, err := s.board.Columns(ctx, s.projectID)
	if err != nil && !rejected(err) {
		return fmt.Errorf("columns of project %d: %w", s.projectID, err)
	}
	if len(columns) == 0 {
		s.logger.Error("could not get project columns", "project", s.title, "id", s.projectID)
	}
	s.columns = NewColumns(columns)
	return nil
}

func (s *session) addMembers(ctx context.Context, members []template.Member) error {
	for _, member := range members {
		name := s.resolveAlias(member.Name)
		user, ok := s.dir.User(name)
		if !ok {
			s.logger.Error("project user is not a board user", "user", name, "project", s.title)
			continue
		}
		if _, ok := models.ValidProjectRoles[member.Role]; !ok {
			s.logger.Error("project user has invalid role", "user", name, "role", member.Role, "project", s.title)
			continue
		}

		err := s.board.AddProjectUser(ctx, s.projectID, user.ID, member.Role)
		switch {
		case rejected(err):
			s.logger.Error("could not add user to project", "user", name, "role", member.Role, "project", s.title)
		case err != nil:
			return fmt.Errorf("add %s to project %d: %w", name, s.projectID, err)
		default:
			s.logger.Info("added user to project", "user", name, "role", member.Role, "project", s.title)
		}
	}
	return nil
}

func (s *session) createTask(ctx context.Context, t template.Task) error {
	if t.Title == "" {
		s.logger.Error("cannot create task without title", "project", s.title)
		s.result.SkippedTasks++
		return nil
	}

	owner, err := s.taskOwner(ctx, t)
	if err != nil {
		return err
	}
	column := s.columns.Resolve(t.ColumnKey())
	title := s.opts.Placeholders.Apply(t.Title)

	taskID, err := s.board.CreateTask(ctx, models.Task{
		ProjectID:   s.projectID,
		ColumnID:    column.ID,
		OwnerID:     owner.ID,
		Title:       title,
		Description: s.opts.Placeholders.Apply(t.Description),
		ColorID:     t.Color,
		Tags:        t.Tags,
		DateDue:     s.taskDueDate(t),
	})
	if rejected(err) || (err == nil && taskID == 0) {
		s.logger.Error("could not create task", "task", title, "owner", owner.Username, "project", s.title)
		s.result.SkippedTasks++
		return nil
	}
	if err != nil {
		return fmt.Errorf("create task %q: %w", title, err)
	}
	s.logger.Info("created task", "task", title, "owner", owner.Username, "project", s.title, "id", taskID)
	s.result.Tasks++

	for _, l := range t.Links {
		_, err := s.board.CreateExternalLink(ctx, models.ExternalLink{
			TaskID:     taskID,
			Title:      l.Title,
			URL:        l.URL,
			Dependency: models.LinkDependencyRelated,
			LinkType:   models.LinkTypeWeb,
		})
		switch {
		case rejected(err):
			s.logger.Error("could not create link", "link", l.URL, "task", title, "project", s.title)
		case err != nil:
			return fmt.Errorf("create link %q: %w", l.URL, err)
		default:
			s.logger.Info("created link", "link", l.URL, "task", title, "project", s.title)
			s.result.Links++
		}
	}

	for _, st := range t.Subtasks {
		subtitle := s.opts.Placeholders.Apply(st.Title)
		_, err := s.board.CreateSubtask(ctx, models.Subtask{TaskID: taskID, Title: subtitle})
		switch {
		case rejected(err):
			s.logger.Error("could not create subtask", "subtask", subtitle, "task", title, "project", s.title)
		case err != nil:
			return fmt.Errorf("create subtask %q: %w", subtitle, err)
		default:
			s.logger.Info("created subtask", "subtask", subtitle, "task", title, "project", s.title)
			s.result.Subtasks++
		}
	}
	return nil
}

// taskDueDate shifts the project due date by the task's day offset and tracks the
// latest due date seen.
func (s *session) taskDueDate(t template.Task) time.Time {
	if s.opts.DueDate.IsZero() {
		return time.Time{}
	}
	due := s.opts.DueDate
	switch {
	case t.DueDate.Valid:
		due = due.AddDate(0, 0, t.DueDate.Days)
	case t.DueDate.Set:
		s.logger.Error("could not shift due date, using project due date",
			"due_date", t.DueDate.Raw, "task", t.Title, "project", s.title)
	}
	if due.After(s.result.LatestDueDate) {
		s.result.LatestDueDate = due
	}
	return due
}
