// Package provision keeps board accounts and projects in step with the directory.
//
// Identity sync enables, disables and creates board users from contract dates.
// Onboarding, offboarding and personal flows create one project per person from a
// template, keyed by an identifier so that reruns skip people already handled.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ldap2kanboard/internal/directory"
	"ldap2kanboard/internal/models"
	"ldap2kanboard/internal/project"
)

// Default identifier prefixes.
const (
	DefaultOnboardingPrefix  = "ONBOARDING"
	DefaultOffboardingPrefix = "OFFBOARDING"
	DefaultPersonalPrefix    = "PERSONAL"
)

// Board is the part of the board service the flows call directly.
type Board interface {
	AllUsers(ctx context.Context) ([]models.User, error)
	ProjectByIdentifier(ctx context.Context, identifier string) (*models.Project, error)
	CreateLdapUser(ctx context.Context, username string) (int, error)
	EnableUser(ctx context.Context, userID int) error
	DisableUser(ctx context.Context, userID int) error
}

// Directory lists the people known to the directory.
type Directory interface {
	People(ctx context.Context) ([]directory.Person, error)
}

// Creator materializes a project from a template file.
type Creator interface {
	Create(ctx context.Context, path string, opts project.Options) (project.Result, error)
}

// Templates holds the template path of each flow. An empty path disables the flow.
type Templates struct {
	Onboarding  string
	Offboarding string
	Personal    string
}

// Prefixes holds the project identifier prefix of each flow.
type Prefixes struct {
	Onboarding  string
	Offboarding string
	Personal    string
}

// Config configures a Provisioner.
type Config struct {
	Templates Templates
	Prefixes  Prefixes
}

// Provisioner runs the provisioning flows.
type Provisioner struct {
	board     Board
	directory Directory
	creator   Creator
	templates Templates
	prefixes  Prefixes
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a Provisioner.
type Option func(*Provisioner)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provisioner) { p.now = now }
}

// New creates a Provisioner. Empty prefixes fall back to the defaults.
func New(board Board, dir Directory, creator Creator, cfg Config, logger *slog.Logger, opts ...Option) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Prefixes.Onboarding == "" {
		cfg.Prefixes.Onboarding = DefaultOnboardingPrefix
	}
	if cfg.Prefixes.Offboarding == "" {
		cfg.Prefixes.Offboarding = DefaultOffboardingPrefix
	}
	if cfg.Prefixes.Personal == "" {
		cfg.Prefixes.Personal = DefaultPersonalPrefix
	}
	p := &Provisioner{
		board:     board,
		directory: dir,
		creator:   creator,
		templates: cfg.Templates,
		prefixes:  cfg.Prefixes,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunReport collects the reports of a full run.
type RunReport struct {
	Users       SyncReport
	Onboarding  ProjectReport
	Offboarding ProjectReport
	Personal    ProjectReport
}

// Run syncs identities, then runs onboarding, offboarding and personal boards against
// one directory snapshot.
func (p *Provisioner) Run(ctx context.Context) (RunReport, error) {
	var report RunReport

	people, err := p.people(ctx)
	if err != nil {
		return report, err
	}
	if report.Users, err = p.syncUsers(ctx, people); err != nil {
		return report, err
	}
	if report.Onboarding, err = p.runFlow(ctx, p.onboardingFlow(), people); err != nil {
		return report, err
	}
	if report.Offboarding, err = p.runFlow(ctx, p.offboardingFlow(), people); err != nil {
		return report, err
	}
	if report.Personal, err = p.runFlow(ctx, p.personalFlow(), people); err != nil {
		return report, err
	}
	p.logger.Info("provisioning run complete",
		"users_created", report.Users.Created,
		"users_enabled", report.Users.Enabled,
		"users_disabled", report.Users.Disabled,
		"onboarding_created", report.Onboarding.Created,
		"offboarding_created", report.Offboarding.Created,
		"personal_created", report.Personal.Created)
	return report, nil
}

func (p *Provisioner) people(ctx context.Context) ([]directory.Person, error) {
	people, err := p.directory.People(ctx)
	if err != nil {
		return nil, fmt.Errorf("list directory people: %w", err)
	}
	p.logger.Debug("loaded directory people", "count", len(people))
	return people, nil
}

func boardUsersByName(ctx context.Context, board Board) (map[string]models.User, error) {
	users, err := board.AllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list board users: %w", err)
	}
	out := make(map[string]models.User, len(users))
	for _, u := range users {
		out[u.Username] = u
	}
	return out, nil
}
