package app

import (
	"context"
	"errors"
	"fmt"

	"teamline/internal/config"
	"teamline/internal/policy"
	"teamline/internal/repo"
)

// ResolveCompanyConfig loads the company config stored in the database,
// seeding from the workspace teamline.yml or the built-in defaults when
// nothing has been imported yet.
func ResolveCompanyConfig(ctx context.Context, workspace, companyOverride string, r repo.Repo) (*config.Config, error) {
	name := companyOverride
	if name == "" {
		if fileCfg, err := config.LoadOptional(workspace); err != nil {
			return nil, err
		} else if fileCfg != nil {
			name = fileCfg.Company.Name
		}
	}
	if name == "" {
		name = "default"
	}
	cfg, err := r.GetCompanyConfig(ctx, name)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	seed, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if seed == nil {
		seed = config.Default(name)
	}
	if err := r.UpsertCompanyConfig(ctx, name, seed); err != nil {
		return nil, fmt.Errorf("seed company config: %w", err)
	}
	return seed, nil
}

// ResolveActor turns an authenticated user ID into the policy actor used for
// every permission check. Employees carry their employee ID; admins and
// clients may have none.
func ResolveActor(ctx context.Context, r repo.Repo, userID string) (policy.Actor, error) {
	u, err := r.GetUser(ctx, userID)
	if err != nil {
		return policy.Actor{}, err
	}
	if !u.IsActive {
		return policy.Actor{}, fmt.Errorf("user %s is inactive", userID)
	}
	a := policy.Actor{UserID: u.ID, Role: policy.Role(u.Role)}
	emp, err := r.GetEmployeeByUser(ctx, userID)
	if err == nil {
		a.EmployeeID = emp.ID
	} else if !errors.Is(err, repo.ErrNotFound) {
		return policy.Actor{}, err
	}
	return a, nil
}
