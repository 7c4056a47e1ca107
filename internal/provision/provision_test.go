package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"ldap2kanboard/internal/directory"
	"ldap2kanboard/internal/models"
	"ldap2kanboard/internal/project"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeBoard struct {
	users      []models.User
	projects   map[string]bool
	rejectUIDs map[string]bool
	usersErr   error

	created  []string
	enabled  []int
	disabled []int
}

func (b *fakeBoard) AllUsers(ctx context.Context) ([]models.User, error) {
	return b.users, b.usersErr
}

func (b *fakeBoard) ProjectByIdentifier(ctx context.Context, identifier string) (*models.Project, error) {
	if b.projects[identifier] {
		return &models.Project{ID: 1, Identifier: identifier}, nil
	}
	return nil, nil
}

func (b *fakeBoard) CreateLdapUser(ctx context.Context, username string) (int, error) {
	if b.rejectUIDs[username] {
		return 0, fmt.Errorf("createLdapUser: %w", models.ErrRejected)
	}
	b.created = append(b.created, username)
	return 50 + len(b.created), nil
}

func (b *fakeBoard) EnableUser(ctx context.Context, userID int) error {
	b.enabled = append(b.enabled, userID)
	return nil
}

func (b *fakeBoard) DisableUser(ctx context.Context, userID int) error {
	b.disabled = append(b.disabled, userID)
	return nil
}

type fakeDirectory struct {
	people []directory.Person
	err    error
	calls  int
}

func (d *fakeDirectory) People(ctx context.Context) ([]directory.Person, error) {
	d.calls++
	return d.people, d.err
}

type createCall struct {
	path string
	opts project.Options
}

type fakeCreator struct {
	calls []createCall
	errs  map[string]error
}

func (c *fakeCreator) Create(ctx context.Context, path string, opts project.Options) (project.Result, error) {
	c.calls = append(c.calls, createCall{path: path, opts: opts})
	if err := c.errs[opts.Identifier]; err != nil {
		return project.Result{}, err
	}
	return project.Result{ProjectID: len(c.calls), Tasks: 3}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newProvisioner(board *fakeBoard, dir *fakeDirectory, creator *fakeCreator, templates Templates) *Provisioner {
	return New(board, dir, creator, Config{Templates: templates}, discardLogger(), WithClock(func() time.Time { return testNow }))
}

func people() []directory.Person {
	day := 24 * time.Hour
	return []directory.Person{
		{UID: "carol", CommonName: "Carol Chief", UIDNumber: "1000", ContractStart: testNow.Add(-400 * day)},
		{
			UID: "newbie", CommonName: "New Bie", UIDNumber: "1001", Title: "Engineer",
			Organization: "Example", Mail: "newbie@example.org", PrivateMail: "nb@home.example",
			EmployeeType: "employee", ManagerDN: "uid=carol,ou=people,dc=example,dc=org",
			ContractStart: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			UID: "leaver", CommonName: "Lea Ver", UIDNumber: "1002",
			ContractStart: testNow.Add(-100 * day), ContractEnd: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		},
		{UID: "gone", CommonName: "Gone Person", UIDNumber: "1003", ContractStart: testNow.Add(-300 * day), ContractEnd: testNow.Add(-day)},
		{UID: "dormant", CommonName: "Dor Mant", UIDNumber: "1004", ContractStart: testNow.Add(-10 * day)},
	}
}

func TestSyncUsers(t *testing.T) {
	board := &fakeBoard{users: []models.User{
		{ID: 1, Username: "carol", Active: true},
		{ID: 2, Username: "leaver", Active: true},
		{ID: 3, Username: "gone", Active: true},
		{ID: 4, Username: "dormant", Active: false},
		{ID: 5, Username: "admin", Active: true},
	}}
	dir := &fakeDirectory{people: people()}
	p := newProvisioner(board, dir, &fakeCreator{}, Templates{})

	report, err := p.SyncUsers(context.Background())
	if err != nil {
		t.Fatalf("SyncUsers: %v", err)
	}

	if len(board.created) != 0 {
		t.Fatalf("future starter must not get an account yet, created %v", board.created)
	}
	if len(board.enabled) != 1 || board.enabled[0] != 4 {
		t.Fatalf("expected dormant to be enabled, got %v", board.enabled)
	}
	if len(board.disabled) != 1 || board.disabled[0] != 3 {
		t.Fatalf("expected gone to be disabled, got %v", board.disabled)
	}
	if report.Enabled != 1 || report.Disabled != 1 || report.Unchanged != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestSyncUsersCreatesMissingAccounts(t *testing.T) {
	board := &fakeBoard{rejectUIDs: map[string]bool{"dormant": true}}
	dir := &fakeDirectory{people: people()}
	p := newProvisioner(board, dir, &fakeCreator{}, Templates{})

	report, err := p.SyncUsers(context.Background())
	if err != nil {
		t.Fatalf("SyncUsers: %v", err)
	}
	if strings.Join(board.created, ",") != "carol,leaver" {
		t.Fatalf("unexpected created accounts: %v", board.created)
	}
	if report.Created != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(board.disabled) != 0 {
		t.Fatalf("missing accounts must not be disabled: %v", board.disabled)
	}
}

func TestSyncUsersBoardError(t *testing.T) {
	board := &fakeBoard{usersErr: errors.New("down")}
	p := newProvisioner(board, &fakeDirectory{people: people()}, &fakeCreator{}, Templates{})
	if _, err := p.SyncUsers(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOnboard(t *testing.T) {
	board := &fakeBoard{}
	creator := &fakeCreator{}
	p := newProvisioner(board, &fakeDirectory{people: people()}, creator, Templates{Onboarding: "onboarding.json"})

	report, err := p.Onboard(context.Background())
	if err != nil {
		t.Fatalf("Onboard: %v", err)
	}
	if report.Created != 1 || len(creator.calls) != 1 {
		t.Fatalf("expected one project, got %+v", report)
	}

	call := creator.calls[0]
	if call.path != "onboarding.json" || call.opts.Identifier != "ONBOARDING1001" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if !call.opts.DueDate.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected due date: %v", call.opts.DueDate)
	}
	if call.opts.Roles["ROLE_MANAGER"] != "carol" {
		t.Fatalf("unexpected roles: %v", call.opts.Roles)
	}

	ph := call.opts.Placeholders
	want := map[string]string{
		"NEW_USER_NAME":         "New Bie",
		"NEW_USER_UID":          "newbie",
		"NEW_USER_START_DATE":   "01-07-2024",
		"NEW_USER_WORK_MAIL":    "newbie@example.org",
		"NEW_USER_PRIVATE_MAIL": "nb@home.example",
		"NEW_USER_MANAGER_NAME": "Carol Chief",
	}
	for token, value := range want {
		if got, _ := ph.Value(token); got != value {
			t.Errorf("%s = %q, want %q", token, got, value)
		}
	}

	desc := ph.Apply(call.opts.Description)
	if !strings.Contains(desc, "* Name: New Bie (newbie)") || !strings.Contains(desc, "* Start date: 01-07-2024") {
		t.Fatalf("unexpected description:\n%s", desc)
	}
	if !strings.Contains(desc, "* People manager: Carol Chief") {
		t.Fatalf("expected manager in description:\n%s", desc)
	}
}

func TestOnboardSkipsExistingProjects(t *testing.T) {
	board := &fakeBoard{projects: map[string]bool{"ONBOARDING1001": true}}
	creator := &fakeCreator{}
	p := newProvisioner(board, &fakeDirectory{people: people()}, creator, Templates{Onboarding: "onboarding.json"})

	report, err := p.Onboard(context.Background())
	if err != nil {
		t.Fatalf("Onboard: %v", err)
	}
	if report.Existing != 1 || len(creator.calls) != 0 {
		t.Fatalf("expected existing project to be skipped, got %+v", report)
	}
}

func TestOffboard(t *testing.T) {
	creator := &fakeCreator{}
	p := newProvisioner(&fakeBoard{}, &fakeDirectory{people: people()}, creator, Templates{Offboarding: "offboarding.yaml"})

	report, err := p.Offboard(context.Background())
	if err != nil {
		t.Fatalf("Offboard: %v", err)
	}
	if report.Created != 1 {
		t.Fatalf("expected one project, got %+v", report)
	}
	call := creator.calls[0]
	if call.opts.Identifier != "OFFBOARDING1002" {
		t.Fatalf("unexpected identifier %q", call.opts.Identifier)
	}
	if got, _ := call.opts.Placeholders.Value("LEAVING_USER_END_DATE"); got != "30-06-2024" {
		t.Fatalf("unexpected end date placeholder %q", got)
	}
	if !call.opts.DueDate.Equal(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected due date %v", call.opts.DueDate)
	}
	if _, ok := call.opts.Roles["ROLE_MANAGER"]; ok {
		t.Fatalf("leaver has no manager")
	}
}

func TestPersonalBoardsOnlyForBoardUsers(t *testing.T) {
	board := &fakeBoard{users: []models.User{
		{ID: 1, Username: "carol", Active: true},
		{ID: 3, Username: "gone", Active: false},
	}}
	creator := &fakeCreator{}
	p := newProvisioner(board, &fakeDirectory{people: people()}, creator, Templates{Personal: "personal.json"})

	report, err := p.PersonalBoards(context.Background())
	if err != nil {
		t.Fatalf("PersonalBoards: %v", err)
	}
	if report.Created != 1 || report.Skipped != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	call := creator.calls[0]
	if call.opts.Identifier != "PERSONAL1000" || call.opts.Owner != "carol" {
		t.Fatalf("unexpected call: %+v", call.opts)
	}
	if call.opts.Roles["ROLE_USER"] != "carol" {
		t.Fatalf("unexpected roles: %v", call.opts.Roles)
	}
	if got, _ := call.opts.Placeholders.Value("USER_NAME"); got != "Carol Chief" {
		t.Fatalf("unexpected USER_NAME %q", got)
	}
}

func TestFlowWithoutTemplateIsSkipped(t *testing.T) {
	dir := &fakeDirectory{people: people()}
	creator := &fakeCreator{}
	p := newProvisioner(&fakeBoard{}, dir, creator, Templates{})

	report, err := p.Onboard(context.Background())
	if err != nil {
		t.Fatalf("Onboard: %v", err)
	}
	if !report.Disabled || len(creator.calls) != 0 {
		t.Fatalf("expected disabled flow, got %+v", report)
	}
	if dir.calls != 0 {
		t.Fatalf("disabled flow should not query the directory")
	}
}

func TestFlowErrors(t *testing.T) {
	t.Run("not created is counted", func(t *testing.T) {
		creator := &fakeCreator{errs: map[string]error{"ONBOARDING1001": project.ErrUnknownOwner}}
		p := newProvisioner(&fakeBoard{}, &fakeDirectory{people: people()}, creator, Templates{Onboarding: "o.json"})
		report, err := p.Onboard(context.Background())
		if err != nil {
			t.Fatalf("Onboard: %v", err)
		}
		if report.Failed != 1 || report.Created != 0 {
			t.Fatalf("unexpected report: %+v", report)
		}
	})

	t.Run("other errors stop the flow", func(t *testing.T) {
		creator := &fakeCreator{errs: map[string]error{"ONBOARDING1001": errors.New("connection reset")}}
		p := newProvisioner(&fakeBoard{}, &fakeDirectory{people: people()}, creator, Templates{Onboarding: "o.json"})
		if _, err := p.Onboard(context.Background()); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("directory errors are returned", func(t *testing.T) {
		dir := &fakeDirectory{err: errors.New("ldap down")}
		p := newProvisioner(&fakeBoard{}, dir, &fakeCreator{}, Templates{Onboarding: "o.json"})
		if _, err := p.Onboard(context.Background()); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestRunUsesOneDirectorySnapshot(t *testing.T) {
	board := &fakeBoard{users: []models.User{{ID: 1, Username: "carol", Active: true}}}
	dir := &fakeDirectory{people: people()}
	creator := &fakeCreator{}
	p := newProvisioner(board, dir, creator, Templates{
		Onboarding:  "on.json",
		Offboarding: "off.json",
		Personal:    "personal.json",
	})

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if dir.calls != 1 {
		t.Fatalf("expected one directory query, got %d", dir.calls)
	}
	if report.Onboarding.Created != 1 || report.Offboarding.Created != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Users.Created != 2 {
		t.Fatalf("expected leaver and dormant accounts, got %+v", report.Users)
	}
	var paths []string
	for _, c := range creator.calls {
		paths = append(paths, c.path)
	}
	if strings.Join(paths, ",") != "on.json,off.json,personal.json" {
		t.Fatalf("unexpected flow order: %v", paths)
	}
}
