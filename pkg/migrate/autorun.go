package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/plaidbridge/pkg/config"
	"github.com/angelmondragon/plaidbridge/pkg/db"
	"github.com/angelmondragon/plaidbridge/pkg/logger"
)

// MaybeRunDev applies pending migrations from DefaultDir when the process runs
// in dev with PLAIDBRIDGE_AUTO_MIGRATE set. Other environments use cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	return maybeRun(ctx, cfg, logg, client, DefaultDir)
}

func maybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client, dir string) error {
	if cfg == nil || !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if client == nil {
		return fmt.Errorf("auto migrate: database client is nil")
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	driver := client.Driver()

	before, err := Version(ctx, sqlDB, driver)
	if err != nil {
		return fmt.Errorf("auto migrate: read version: %w", err)
	}
	if err := Run(ctx, sqlDB, driver, dir, "up"); err != nil {
		return fmt.Errorf("auto migrate: goose up: %w", err)
	}
	after, err := Version(ctx, sqlDB, driver)
	if err != nil {
		return fmt.Errorf("auto migrate: read version: %w", err)
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"dir":          dir,
			"db_driver":    driver,
			"from_version": before,
			"to_version":   after,
		})
		logg.Info(ctx, "dev auto-migrate finished")
	}
	return nil
}
