// Package app wires configuration, the invoker and the optional journal for the commands.
package app

import (
	"context"
	"database/sql"
	"log"

	"vision-lab/internal/config"
	"vision-lab/internal/invoker"
	"vision-lab/internal/store"
)

type App struct {
	Config  *config.Config
	Invoker *invoker.Client
	DB      *sql.DB // nil unless the journal is enabled
}

// Setup loads configuration and builds the shared client. source tags journal rows.
// A journal that cannot be opened is logged and skipped; it never stops a command.
func Setup(ctx context.Context, source string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Invoker: invoker.New(cfg.HTTPTimeout)}

	if cfg.Journal.Enabled {
		if cfg.Journal.DSN == "" {
			log.Printf("journal: enabled but no DATABASE_URL or POSTGRES_* settings; skipping")
			return a, nil
		}
		db, err := store.Open(ctx, cfg.Journal.DSN)
		if err != nil {
			log.Printf("journal: %v; skipping", err)
			return a, nil
		}
		repo := store.NewInvocationRepo(db)
		if err := repo.Migrate(ctx); err != nil {
			log.Printf("journal migrate: %v; skipping", err)
			_ = db.Close()
			return a, nil
		}
		log.Printf("journal: %s", config.SafeDSNSummary(cfg.Journal.DSN))
		a.DB = db
		a.Invoker.WithObserver(store.Observer(ctx, repo, source))
	}
	return a, nil
}

func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
