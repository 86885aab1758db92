package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/workbooks-backend/internal/workbooks"
	"github.com/angelmondragon/workbooks-backend/pkg/config"
	"github.com/angelmondragon/workbooks-backend/pkg/db"
	"github.com/angelmondragon/workbooks-backend/pkg/enums"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
	"github.com/angelmondragon/workbooks-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	owners := flag.String("owners", "user-1,user-2,user-3", "comma separated owner ids")
	perOwner := flag.Int("count", 10, "workbooks per owner")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: cfg.Service.Name + "-seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	if cfg.App.IsProd() {
		requireResource(ctx, logg, "environment", fmt.Errorf("refusing to seed %s", cfg.App.Env))
	}

	repo, closeFn, err := openRepository(ctx, cfg, logg)
	requireResource(ctx, logg, "workbook store", err)
	defer closeFn()

	created, err := seed(ctx, repo, splitOwners(*owners), *perOwner, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	ctx = logg.WithFields(ctx, map[string]any{"created": created, "store": cfg.Store.Backend})
	requireResource(ctx, logg, "seed", err)
	logg.Info(ctx, "seed complete")
}

// openRepository creates the sql schema unconditionally; table stores are
// created on open.
func openRepository(ctx context.Context, cfg *config.Config, logg *logger.Logger) (workbooks.Repository, func() error, error) {
	if cfg.Store.BackendKind() != enums.StoreBackendSQL {
		backend, err := workbooks.OpenBackend(ctx, cfg, logg)
		if err != nil {
			return nil, nil, err
		}
		return backend.Repository, backend.Close, nil
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, err
	}
	if err := migrate.Up(ctx, client); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return workbooks.NewRepository(client.DB()), client.Close, nil
}

var (
	titleWords = []string{"Quarterly", "Roadmap", "Budget", "Launch", "Hiring", "Research", "Audit", "Retro"}
	folders    = []string{"/planning", "/finance", "/engineering", "/ops", "/personal"}
)

// seed writes perOwner random workbooks for each owner and returns how many were stored.
func seed(ctx context.Context, repo workbooks.Repository, owners []string, perOwner int, rng *rand.Rand) (int, error) {
	priorities := enums.Priorities()
	created := 0
	for _, ownerID := range owners {
		owner := workbooks.Owner{ID: ownerID, DisplayName: "Seed " + ownerID}
		for i := 0; i < perOwner; i++ {
			title := fmt.Sprintf("%s %s %d", titleWords[rng.IntN(len(titleWords))], titleWords[rng.IntN(len(titleWords))], i+1)
			path := fmt.Sprintf("%s/%s", folders[rng.IntN(len(folders))], strings.ToLower(strings.ReplaceAll(title, " ", "-")))

			w := workbooks.NewDefault(title, path, owner)
			w.IsFlagged = rng.IntN(4) == 0
			w.Priority = priorities[rng.IntN(len(priorities))]
			w.PercentageCompleted = rng.IntN(101)
			w.StartDate = w.CreatedAt
			w.TargetDate = w.CreatedAt + int64(rng.IntN(90)+1)*24*60*60*1000

			if res := w.Validate(); !res.Valid {
				return created, fmt.Errorf("generated invalid workbook: %v", res.Fields())
			}
			if err := repo.CreateWorkbook(ctx, w); err != nil {
				return created, fmt.Errorf("create workbook for %s: %w", ownerID, err)
			}
			created++
		}
	}
	return created, nil
}

func splitOwners(raw string) []string {
	var owners []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			owners = append(owners, trimmed)
		}
	}
	return owners
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
