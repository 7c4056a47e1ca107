package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ldap2kanboard/internal/config"
	"ldap2kanboard/internal/directory"
	"ldap2kanboard/internal/kanboard"
	"ldap2kanboard/internal/logging"
	"ldap2kanboard/internal/project"
	"ldap2kanboard/internal/provision"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ldap2kanboard",
		Short: "Provision Kanboard users and projects from LDAP",
		Long: `ldap2kanboard keeps Kanboard in step with an LDAP directory.

It enables and disables board accounts from contract dates, creates onboarding,
offboarding and personal projects from templates, and can create a single project
from a template directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(newSyncUsersCmd(opts))
	root.AddCommand(newOnboardCmd(opts))
	root.AddCommand(newOffboardCmd(opts))
	root.AddCommand(newPersonalCmd(opts))
	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newCreateProjectCmd(opts))
	root.AddCommand(newValidateCmd())
	root.AddCommand(newVersionCmd(version))
	return root
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// app holds what a command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

func (a *app) Close() error { return a.closer.Close() }

// loadApp reads configuration and builds the logger. A missing default config file is
// tolerated so that everything can come from the environment.
func loadApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	path := opts.configPath
	if !cmd.Flags().Changed("config") && !config.FileExists(path) {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.New(cfg.Logging, opts.verbose)
	if err != nil {
		return nil, err
	}
	logger = logger.With("run_id", uuid.NewString())
	logger.Info("starting", "command", cmd.Name(), "config", path)
	return &app{cfg: cfg, logger: logger, closer: closer}, nil
}

func (a *app) kanboard() (*kanboard.Client, error) {
	if err := a.cfg.ValidateKanboard(); err != nil {
		return nil, err
	}
	k := a.cfg.Kanboard
	return kanboard.New(k.URL, k.User, k.Password,
		kanboard.WithTimeout(k.Timeout),
		kanboard.WithLogger(a.logger),
	), nil
}

func (a *app) provisioner() (*provision.Provisioner, error) {
	board, err := a.kanboard()
	if err != nil {
		return nil, err
	}
	if err := a.cfg.ValidateLDAP(); err != nil {
		return nil, err
	}

	l := a.cfg.LDAP
	dir := directory.New(directory.Config{
		URL:                l.URL,
		BindDN:             l.BindDN,
		Password:           l.Password,
		SearchBase:         l.SearchBase,
		SearchFilter:       l.SearchFilter,
		StartTLS:           l.StartTLS,
		InsecureSkipVerify: l.InsecureSkipVerify,
		StartDateField:     l.StartDateField,
		EndDateField:       l.EndDateField,
		Timeout:            l.Timeout,
	}, a.logger)

	t, ids := a.cfg.Templates, a.cfg.Identifiers
	return provision.New(board, dir, project.NewMaterializer(board, a.logger, nil), provision.Config{
		Templates: provision.Templates{
			Onboarding:  t.Onboarding,
			Offboarding: t.Offboarding,
			Personal:    t.Personal,
		},
		Prefixes: provision.Prefixes{
			Onboarding:  ids.Onboarding,
			Offboarding: ids.Offboarding,
			Personal:    ids.Personal,
		},
	}, a.logger), nil
}
