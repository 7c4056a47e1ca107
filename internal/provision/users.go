package provision

import (
	"context"
	"errors"
	"fmt"

	"ldap2kanboard/internal/directory"
	"ldap2kanboard/internal/models"
)

// SyncReport counts the account changes of one identity sync.
type SyncReport struct {
	Created   int
	Enabled   int
	Disabled  int
	Unchanged int
	Failed    int
}

// SyncUsers aligns board accounts with directory contracts. People with an active
// contract get an enabled account, people whose contract ended get a disabled one.
// Board users absent from the directory are left alone.
func (p *Provisioner) SyncUsers(ctx context.Context) (SyncReport, error) {
	people, err := p.people(ctx)
	if err != nil {
		return SyncReport{}, err
	}
	return p.syncUsers(ctx, people)
}

func (p *Provisioner) syncUsers(ctx context.Context, people []directory.Person) (SyncReport, error) {
	var report SyncReport

	users, err := boardUsersByName(ctx, p.board)
	if err != nil {
		return report, err
	}
	now := p.now()

	for _, person := range people {
		user, exists := users[person.UID]
		switch {
		case person.ContractActive(now) && !exists:
			err = p.applyUser(&report.Created, &report.Failed, person, "created board user", func() error {
				_, err := p.board.CreateLdapUser(ctx, person.UID)
				return err
			})
		case person.ContractActive(now) && !user.Active:
			err = p.applyUser(&report.Enabled, &report.Failed, person, "enabled board user", func() error {
				return p.board.EnableUser(ctx, user.ID)
			})
		case person.ContractEnded(now) && exists && user.Active:
			err = p.applyUser(&report.Disabled, &report.Failed, person, "disabled board user", func() error {
				return p.board.DisableUser(ctx, user.ID)
			})
		default:
			report.Unchanged++
		}
		if err != nil {
			return report, err
		}
	}

	p.logger.Info("identity sync complete",
		"created", report.Created,
		"enabled", report.Enabled,
		"disabled", report.Disabled,
		"unchanged", report.Unchanged,
		"failed", report.Failed)
	return report, nil
}

// applyUser runs one account change. A rejection is counted as a failure and logged;
// any other error stops the sync.
func (p *Provisioner) applyUser(done, failed *int, person directory.Person, msg string, change func() error) error {
	err := change()
	if errors.Is(err, models.ErrRejected) {
		*failed++
		p.logger.Error("board refused account change", "uid", person.UID, "change", msg)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", msg, person.UID, err)
	}
	*done++
	p.logger.Info(msg, "uid", person.UID, "name", person.CommonName)
	return nil
}
