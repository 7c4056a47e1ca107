package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ldap2kanboard/internal/models"
)

// Seed lists users and groups to create when the simulator starts.
type Seed struct {
	Users  []SeedUser  `yaml:"users"`
	Groups []SeedGroup `yaml:"groups"`
}

type SeedUser struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	// Active defaults to true.
	Active *bool `yaml:"active"`
}

type SeedGroup struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return &seed, nil
}

// ApplySeed creates the seed's users and groups. Existing users and groups are kept,
// so applying the same seed twice is harmless.
func (s *Store) ApplySeed(ctx context.Context, seed *Seed) error {
	for _, su := range seed.Users {
		active := su.Active == nil || *su.Active
		_, err := s.CreateUser(ctx, models.User{Username: su.Username, Name: su.Name, Email: su.Email, Active: active}, false)
		if err != nil && !errors.Is(err, ErrConflict) {
			return fmt.Errorf("seed user %s: %w", su.Username, err)
		}
	}

	for _, sg := range seed.Groups {
		groupID, err := s.CreateGroup(ctx, sg.Name)
		if errors.Is(err, ErrConflict) {
			g, gerr := s.GroupByName(ctx, sg.Name)
			if gerr != nil {
				return gerr
			}
			groupID, err = g.ID, nil
		}
		if err != nil {
			return fmt.Errorf("seed group %s: %w", sg.Name, err)
		}
		for _, username := range sg.Members {
			u, err := s.UserByName(ctx, username)
			if err != nil {
				return fmt.Errorf("seed group %s: %w", sg.Name, err)
			}
			if err := s.AddGroupMember(ctx, groupID, u.ID); err != nil {
				return fmt.Errorf("seed group %s: %w", sg.Name, err)
			}
		}
	}
	s.logger.Info("seed applied", "users", len(seed.Users), "groups", len(seed.Groups))
	return nil
}
