package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/store"
)

// ReportService fetches an owner's ledger and runs the aggregator on it.
type ReportService struct {
	store      store.DataStore
	aggregator report.Aggregator
}

func NewReportService(s store.DataStore, aggregator report.Aggregator) *ReportService {
	return &ReportService{store: s, aggregator: aggregator}
}

// Build aggregates the transactions dated within [from, to]. Zero bounds
// leave that side open; with both zero every transaction is included.
func (s *ReportService) Build(ctx context.Context, ownerID string, from, to core.Date) (report.Snapshot, error) {
	if from.IsKnown() && to.IsKnown() && from.After(to.Time) {
		return report.Snapshot{}, core.Validation("from", "must not be after to")
	}

	var (
		accounts     []core.Account
		categories   []core.Category
		transactions []core.Transaction
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = s.store.ListAccounts(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.store.ListCategories(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		transactions, err = s.store.ListTransactions(gctx, ownerID, store.TransactionFilter{From: from, To: to})
		return err
	})
	if err := g.Wait(); err != nil {
		return report.Snapshot{}, fmt.Errorf("load report data: %w", err)
	}

	snap := s.aggregator.Aggregate(transactions, categories, accounts)
	slog.DebugContext(ctx, "Report built",
		"owner_id", ownerID,
		"transactions", len(transactions),
		"duration", time.Since(start))
	return snap, nil
}
