package workbooks

import (
	"context"
	"fmt"

	"github.com/angelmondragon/workbooks-backend/pkg/config"
	"github.com/angelmondragon/workbooks-backend/pkg/db"
	"github.com/angelmondragon/workbooks-backend/pkg/enums"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
	"github.com/angelmondragon/workbooks-backend/pkg/migrate"
	"github.com/angelmondragon/workbooks-backend/pkg/tables"
)

// Backend is an opened workbook store together with its health check.
type Backend struct {
	Repository Repository
	Kind       enums.StoreBackend
	Pinger     db.Pinger
	close      func() error
}

// OpenBackend connects to the configured store. The sql store runs dev
// migrations on boot; the table store creates its table when missing.
func OpenBackend(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Backend, error) {
	switch kind := cfg.Store.BackendKind(); kind {
	case enums.StoreBackendSQL:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
		if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("dev migrations: %w", err)
		}
		return &Backend{
			Repository: NewRepository(client.DB()),
			Kind:       kind,
			Pinger:     client,
			close:      client.Close,
		}, nil

	case enums.StoreBackendAzTables:
		client, err := tables.New(cfg.Azure)
		if err != nil {
			return nil, fmt.Errorf("bootstrap table store: %w", err)
		}
		if err := client.EnsureTable(ctx); err != nil {
			return nil, fmt.Errorf("ensure table %s: %w", cfg.Azure.Table, err)
		}
		logg.Info(logg.WithField(ctx, "table", cfg.Azure.Table), "table store ready")
		return &Backend{
			Repository: NewTableRepository(client.Table()),
			Kind:       kind,
			Pinger:     client,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}
