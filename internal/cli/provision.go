package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ldap2kanboard/internal/provision"
)

func newSyncUsersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-users",
		Short: "Create, enable and disable board users from LDAP contract dates",
		Args:  cobra.NoArgs,
		RunE: withProvisioner(opts, func(ctx context.Context, out io.Writer, p *provision.Provisioner) error {
			report, err := p.SyncUsers(ctx)
			if err != nil {
				return err
			}
			printSync(out, report)
			return nil
		}),
	}
}

func newOnboardCmd(opts *rootOptions) *cobra.Command {
	return newFlowCmd(opts, "onboard", "Create onboarding projects for future starters",
		(*provision.Provisioner).Onboard)
}

func newOffboardCmd(opts *rootOptions) *cobra.Command {
	return newFlowCmd(opts, "offboard", "Create offboarding projects for future leavers",
		(*provision.Provisioner).Offboard)
}

func newPersonalCmd(opts *rootOptions) *cobra.Command {
	return newFlowCmd(opts, "personal", "Create personal boards for active board users",
		(*provision.Provisioner).PersonalBoards)
}

func newFlowCmd(opts *rootOptions, use, short string, run func(*provision.Provisioner, context.Context) (provision.ProjectReport, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: withProvisioner(opts, func(ctx context.Context, out io.Writer, p *provision.Provisioner) error {
			report, err := run(p, ctx)
			if err != nil {
				return err
			}
			printFlow(out, report)
			return nil
		}),
	}
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sync users, then run onboarding, offboarding and personal boards",
		Args:  cobra.NoArgs,
		RunE: withProvisioner(opts, func(ctx context.Context, out io.Writer, p *provision.Provisioner) error {
			report, err := p.Run(ctx)
			if err != nil {
				return err
			}
			printSync(out, report.Users)
			printFlow(out, report.Onboarding)
			printFlow(out, report.Offboarding)
			printFlow(out, report.Personal)
			return nil
		}),
	}
}

func withProvisioner(opts *rootOptions, fn func(context.Context, io.Writer, *provision.Provisioner) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, opts)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.provisioner()
		if err != nil {
			return err
		}
		if err := fn(cmd.Context(), cmd.OutOrStdout(), p); err != nil {
			a.logger.Error("command failed", "command", cmd.Name(), "error", err)
			return err
		}
		a.logger.Info("completed normally", "command", cmd.Name())
		return nil
	}
}

func printSync(out io.Writer, r provision.SyncReport) {
	fmt.Fprintf(out, "users: %d created, %d enabled, %d disabled, %d unchanged, %d failed\n",
		r.Created, r.Enabled, r.Disabled, r.Unchanged, r.Failed)
}

func printFlow(out io.Writer, r provision.ProjectReport) {
	if r.Disabled {
		fmt.Fprintf(out, "%s: no template configured\n", r.Flow)
		return
	}
	fmt.Fprintf(out, "%s: %d created, %d existing, %d skipped, %d failed\n",
		r.Flow, r.Created, r.Existing, r.Skipped, r.Failed)
}
