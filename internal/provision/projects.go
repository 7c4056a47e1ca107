package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ldap2kanboard/internal/directory"
	"ldap2kanboard/internal/models"
	"ldap2kanboard/internal/project"
	"ldap2kanboard/internal/template"
)

const (
	roleManager   = "ROLE_MANAGER"
	roleUser      = "ROLE_USER"
	displayLayout = "02-01-2006"
)

// ProjectReport counts the outcome of one project flow.
type ProjectReport struct {
	Flow     string
	Created  int
	Existing int
	Skipped  int
	Failed   int
	Disabled bool
}

// flow describes one kind of per-person project.
type flow struct {
	name     string
	template string
	prefix   string
	// selects reports whether a person gets a project at now.
	selects func(p directory.Person, now time.Time) bool
	// options builds the materializer options for a person.
	options func(p directory.Person, people map[string]directory.Person) project.Options
	// boardUsersOnly restricts the flow to people who already have a board account.
	boardUsersOnly bool
}

// Onboard creates an onboarding project for every person whose contract starts in
// the future.
func (p *Provisioner) Onboard(ctx context.Context) (ProjectReport, error) {
	return p.runSingle(ctx, p.onboardingFlow())
}

// Offboard creates an offboarding project for every person whose contract ends in
// the future.
func (p *Provisioner) Offboard(ctx context.Context) (ProjectReport, error) {
	return p.runSingle(ctx, p.offboardingFlow())
}

// PersonalBoards creates a personal board for every active person with a board account.
func (p *Provisioner) PersonalBoards(ctx context.Context) (ProjectReport, error) {
	return p.runSingle(ctx, p.personalFlow())
}

func (p *Provisioner) runSingle(ctx context.Context, f flow) (ProjectReport, error) {
	if f.template == "" {
		return p.runFlow(ctx, f, nil)
	}
	people, err := p.people(ctx)
	if err != nil {
		return ProjectReport{Flow: f.name}, err
	}
	return p.runFlow(ctx, f, people)
}

func (p *Provisioner) onboardingFlow() flow {
	return flow{
		name:     "onboarding",
		template: p.templates.Onboarding,
		prefix:   p.prefixes.Onboarding,
		selects: func(person directory.Person, now time.Time) bool {
			return person.StartsAfter(now)
		},
		options: func(person directory.Person, people map[string]directory.Person) project.Options {
			placeholders, roles := personTokens("NEW_USER_", person, people)
			return project.Options{
				Description:  describe("NEW_USER_", "Start date", "START_DATE"),
				DueDate:      person.ContractStart,
				Roles:        roles,
				Placeholders: placeholders,
			}
		},
	}
}

func (p *Provisioner) offboardingFlow() flow {
	return flow{
		name:     "offboarding",
		template: p.templates.Offboarding,
		prefix:   p.prefixes.Offboarding,
		selects: func(person directory.Person, now time.Time) bool {
			return person.EndsAfter(now)
		},
		options: func(person directory.Person, people map[string]directory.Person) project.Options {
			placeholders, roles := personTokens("LEAVING_USER_", person, people)
			return project.Options{
				Description:  describe("LEAVING_USER_", "End date", "END_DATE"),
				DueDate:      person.ContractEnd,
				Roles:        roles,
				Placeholders: placeholders,
			}
		},
	}
}

func (p *Provisioner) personalFlow() flow {
	return flow{
		name:     "personal",
		template: p.templates.Personal,
		prefix:   p.prefixes.Personal,
		selects: func(person directory.Person, now time.Time) bool {
			return person.ContractActive(now)
		},
		options: func(person directory.Person, people map[string]directory.Person) project.Options {
			placeholders, roles := personTokens("USER_", person, people)
			roles[roleUser] = person.UID
			return project.Options{
				Owner:        person.UID,
				Roles:        roles,
				Placeholders: placeholders,
			}
		},
		boardUsersOnly: true,
	}
}

// runFlow creates the flow's project for every selected person that has none yet.
func (p *Provisioner) runFlow(ctx context.Context, f flow, people []directory.Person) (ProjectReport, error) {
	report := ProjectReport{Flow: f.name}
	if f.template == "" {
		report.Disabled = true
		p.logger.Info("no template configured, skipping flow", "flow", f.name)
		return report, nil
	}

	var accounts map[string]models.User
	if f.boardUsersOnly {
		var err error
		if accounts, err = boardUsersByName(ctx, p.board); err != nil {
			return report, err
		}
	}

	byUID := directory.Index(people)
	now := p.now()

	for _, person := range people {
		if !f.selects(person, now) {
			continue
		}
		if accounts != nil {
			if _, ok := accounts[person.UID]; !ok {
				p.logger.Debug("no board account, skipping", "flow", f.name, "uid", person.UID)
				report.Skipped++
				continue
			}
		}
		if person.UIDNumber == "" {
			p.logger.Warn("person has no uidNumber, skipping", "flow", f.name, "uid", person.UID)
			report.Skipped++
			continue
		}

		identifier := f.prefix + person.UIDNumber
		p.logger.Debug("checking for existing project", "flow", f.name, "identifier", identifier, "name", person.CommonName)
		existing, err := p.board.ProjectByIdentifier(ctx, identifier)
		if err != nil {
			return report, fmt.Errorf("%s: look up %s: %w", f.name, identifier, err)
		}
		if existing != nil {
			p.logger.Debug("project exists, not creating", "flow", f.name, "identifier", identifier, "name", person.CommonName)
			report.Existing++
			continue
		}

		opts := f.options(person, byUID)
		opts.Identifier = identifier
		if _, ok := opts.Roles[roleManager]; !ok {
			p.logger.Warn("no manager found", "flow", f.name, "uid", person.UID, "name", person.CommonName)
		}

		result, err := p.creator.Create(ctx, f.template, opts)
		switch {
		case errors.Is(err, project.ErrNotCreated):
			report.Failed++
			p.logger.Error("project not created", "flow", f.name, "uid", person.UID, "error", err)
			continue
		case err != nil:
			return report, fmt.Errorf("%s: create project for %s: %w", f.name, person.UID, err)
		}
		report.Created++
		p.logger.Info("created project", "flow", f.name, "name", person.CommonName, "project_id", result.ProjectID, "tasks", result.Tasks)
	}

	p.logger.Info("flow complete",
		"flow", f.name,
		"created", report.Created,
		"existing", report.Existing,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}

// personTokens builds the placeholders of a person under prefix, and the role map
// naming the person's manager.
func personTokens(prefix string, person directory.Person, people map[string]directory.Person) (template.Placeholders, project.Roles) {
	placeholders := template.NewPlaceholders(
		prefix+"NAME", person.CommonName,
		prefix+"UID", person.UID,
		prefix+"TITLE", person.Title,
		prefix+"TYPE", person.EmployeeType,
		prefix+"COMPANY", person.Organization,
		prefix+"START_DATE", formatDate(person.ContractStart),
		prefix+"END_DATE", formatDate(person.ContractEnd),
		prefix+"PRIVATE_MAIL", person.PrivateMail,
		prefix+"WORK_MAIL", person.Mail,
	)
	roles := project.Roles{}

	if uid := person.ManagerUID(); uid != "" {
		roles[roleManager] = uid
		name := uid
		if manager, ok := people[uid]; ok && manager.CommonName != "" {
			name = manager.CommonName
		}
		placeholders.Set(prefix+"MANAGER_NAME", name)
	}
	return placeholders, roles
}

// describe returns the project description listing the person's placeholders.
func describe(prefix, dateLabel, dateToken string) string {
	return strings.Join([]string{
		"* Name: " + prefix + "NAME (" + prefix + "UID)",
		"* Private email: " + prefix + "PRIVATE_MAIL",
		"* Work email: " + prefix + "WORK_MAIL",
		"* Company: " + prefix + "COMPANY",
		"* Title: " + prefix + "TITLE",
		"* " + dateLabel + ": " + prefix + dateToken,
		"* People manager: " + prefix + "MANAGER_NAME",
	}, "\n")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(displayLayout)
}
