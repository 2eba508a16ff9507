package app

import (
	"context"
	"errors"

	"janvaani/internal/config"
	"janvaani/internal/db"
	"janvaani/internal/domain"
	"janvaani/internal/engine"
	"janvaani/internal/migrate"
	"janvaani/internal/repo"
)

// OpenEngine opens the workspace database, applies migrations, and builds an
// engine from the workspace config (defaults when janvaani.yml is absent).
// The caller owns the returned closer.
func OpenEngine(workspace string) (engine.Engine, func() error, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return engine.Engine{}, nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return engine.Engine{}, nil, err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		conn.Close()
		return engine.Engine{}, nil, err
	}
	return engine.New(conn, cfg), conn.Close, nil
}

// SeedAdmin creates the bootstrap admin account when no user holds that
// email yet. Returns true when an account was created.
func SeedAdmin(ctx context.Context, e engine.Engine, name, email, password string) (bool, error) {
	if _, _, err := e.Repo.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return false, err
	}
	if name == "" {
		name = "Administrator"
	}
	_, _, err := e.Register(ctx, engine.RegisterOptions{
		Role:     domain.RoleAdmin,
		Name:     name,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
