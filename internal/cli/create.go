package cli

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ldap2kanboard/internal/project"
)

type createOptions struct {
	identifier   string
	owner        string
	title        string
	description  string
	taskOwner    string
	dueDate      string
	roles        []string
	placeholders []string
	seed         uint64
}

func newCreateProjectCmd(opts *rootOptions) *cobra.Command {
	co := &createOptions{}
	cmd := &cobra.Command{
		Use:   "create-project TEMPLATE",
		Short: "Create one project from a template",
		Long: `Create one project from a JSON or YAML template.

Role aliases map names such as ROLE_MANAGER to board usernames; placeholders are
replaced in titles and descriptions in the order given.`,
		Example: `  ldap2kanboard create-project onboarding.json --identifier TEST_PROJECT_ID \
    --title TEST_PROJECT --due-date 2020-01-01 --role ROLE_MANAGER=user_b`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateProject(cmd, opts, co, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&co.identifier, "identifier", "", "Project identifier; creation is skipped when it is taken")
	f.StringVar(&co.owner, "owner", "", "Project owner, overriding the template")
	f.StringVar(&co.title, "title", "", "Project title, overriding the template")
	f.StringVar(&co.description, "description", "", "Project description, overriding the template")
	f.StringVar(&co.taskOwner, "task-owner", "", "Owner of every task, overriding the template")
	f.StringVar(&co.dueDate, "due-date", "", "Project due date (YYYY-MM-DD); task offsets shift from it")
	f.StringArrayVar(&co.roles, "role", nil, "Role alias as ALIAS=USER (repeatable)")
	f.StringArrayVar(&co.placeholders, "placeholder", nil, "Placeholder as TOKEN=VALUE (repeatable, applied in order)")
	f.Uint64Var(&co.seed, "seed", 0, "Seed for picking group members (0 picks a random seed)")
	return cmd
}

func (co *createOptions) projectOptions() (project.Options, error) {
	out := project.Options{
		Identifier:  co.identifier,
		Owner:       co.owner,
		Title:       co.title,
		Description: co.description,
		TaskOwner:   co.taskOwner,
	}

	if co.dueDate != "" {
		due, err := time.Parse("2006-01-02", co.dueDate)
		if err != nil {
			return out, fmt.Errorf("--due-date: %w", err)
		}
		out.DueDate = due
	}

	roles, err := parsePairs(co.roles)
	if err != nil {
		return out, fmt.Errorf("--role: %w", err)
	}
	if len(roles) > 0 {
		out.Roles = project.Roles{}
		for _, kv := range roles {
			out.Roles[kv[0]] = kv[1]
		}
	}

	placeholders, err := parsePairs(co.placeholders)
	if err != nil {
		return out, fmt.Errorf("--placeholder: %w", err)
	}
	for _, kv := range placeholders {
		out.Placeholders.Set(kv[0], kv[1])
	}
	return out, nil
}

func runCreateProject(cmd *cobra.Command, opts *rootOptions, co *createOptions, path string) error {
	popts, err := co.projectOptions()
	if err != nil {
		return err
	}

	a, err := loadApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	board, err := a.kanboard()
	if err != nil {
		return err
	}

	var picker project.Picker
	if co.seed != 0 {
		picker = rand.New(rand.NewPCG(co.seed, 0))
	}

	result, err := project.NewMaterializer(board, a.logger, picker).Create(cmd.Context(), path, popts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "created project %d %q\n", result.ProjectID, result.Title)
	fmt.Fprintf(out, "  tasks: %d created, %d skipped\n", result.Tasks, result.SkippedTasks)
	fmt.Fprintf(out, "  subtasks: %d, links: %d\n", result.Subtasks, result.Links)
	if !result.LatestDueDate.IsZero() {
		fmt.Fprintf(out, "  latest due date: %s\n", result.LatestDueDate.Format("2006-01-02"))
	}
	return nil
}

// parsePairs splits KEY=VALUE arguments, keeping their order. The value may contain
// further '=' characters.
func parsePairs(args []string) ([][2]string, error) {
	out := make([][2]string, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", arg)
		}
		out = append(out, [2]string{key, value})
	}
	return out, nil
}
