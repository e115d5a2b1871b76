package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/plaidbridge/internal/items"
	"github.com/angelmondragon/plaidbridge/pkg/logger"
	"github.com/angelmondragon/plaidbridge/pkg/metrics"
)

const TransactionsSyncJobName = "transactions_sync"

type itemSweeper interface {
	SyncAll(ctx context.Context) (*items.SweepResult, error)
}

// TransactionsSyncJob pulls pending transactions for every linked item so
// cursors stay current even when webhooks are missed.
type TransactionsSyncJob struct {
	items   itemSweeper
	logg    *logger.Logger
	metrics *metrics.JobMetrics
}

func NewTransactionsSyncJob(svc itemSweeper, logg *logger.Logger, m *metrics.JobMetrics) (*TransactionsSyncJob, error) {
	if svc == nil {
		return nil, errors.New("items service required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &TransactionsSyncJob{items: svc, logg: logg, metrics: m}, nil
}

func (j *TransactionsSyncJob) Name() string { return TransactionsSyncJobName }

// Run fails when the sweep itself fails or when any item could not be synced.
func (j *TransactionsSyncJob) Run(ctx context.Context) error {
	result, err := j.items.SyncAll(ctx)
	if result != nil {
		j.metrics.AddItems(TransactionsSyncJobName, "synced", result.Synced)
		j.metrics.AddItems(TransactionsSyncJobName, "skipped", result.Skipped)
		j.metrics.AddItems(TransactionsSyncJobName, "failed", result.Failed)
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"items":    result.Items,
			"synced":   result.Synced,
			"skipped":  result.Skipped,
			"failed":   result.Failed,
			"added":    result.Added,
			"modified": result.Modified,
			"removed":  result.Removed,
		}), "transactions sweep finished")
	}
	if err != nil {
		return fmt.Errorf("sync items: %w", err)
	}
	if result == nil || result.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d items failed to sync", result.Failed, result.Items)
}
