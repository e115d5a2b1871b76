package cron

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/plaidbridge/internal/items"
)

type stubSweeper struct {
	result *items.SweepResult
	err    error
	calls  int
}

func (s *stubSweeper) SyncAll(context.Context) (*items.SweepResult, error) {
	s.calls++
	return s.result, s.err
}

func TestTransactionsSyncJob(t *testing.T) {
	cases := []struct {
		name    string
		sweeper *stubSweeper
		wantErr string
	}{
		{name: "clean sweep", sweeper: &stubSweeper{result: &items.SweepResult{Items: 3, Synced: 2, Skipped: 1}}},
		{name: "item failures", sweeper: &stubSweeper{result: &items.SweepResult{Items: 3, Synced: 1, Failed: 2}}, wantErr: "2 of 3 items"},
		{name: "sweep error", sweeper: &stubSweeper{result: &items.SweepResult{Items: 1}, err: errors.New("db down")}, wantErr: "db down"},
		{name: "nil result", sweeper: &stubSweeper{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job, err := NewTransactionsSyncJob(tc.sweeper, testLogger(), nil)
			if err != nil {
				t.Fatalf("new job: %v", err)
			}
			if job.Name() != TransactionsSyncJobName {
				t.Fatalf("unexpected name %q", job.Name())
			}
			err = job.Run(context.Background())
			if tc.wantErr == "" && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if tc.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tc.wantErr)) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
			if tc.sweeper.calls != 1 {
				t.Fatalf("expected one sweep, got %d", tc.sweeper.calls)
			}
		})
	}

	if _, err := NewTransactionsSyncJob(nil, testLogger(), nil); err == nil {
		t.Fatal("expected missing service error")
	}
}
