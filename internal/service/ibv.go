package service

import (
	"context"
	"time"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"
	"github.com/kmoussai/flash-loan-sub005/internal/ibv"
	"github.com/kmoussai/flash-loan-sub005/internal/infra/observability"
	"github.com/kmoussai/flash-loan-sub005/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ibvTracer = otel.Tracer("service/ibv")

// Verification orchestrates the bank-verification pipeline: fetch the
// provider feed, persist it, run the categorizer and store the summary.
type Verification struct {
	provider port.VerificationProvider
	store    port.IBVStore
	cache    port.Cache[*domain.IBVSummary]
	metrics  *observability.Metrics
	logger   *zap.Logger

	// now is injectable so summaries are reproducible in tests.
	now func() time.Time
}

// NewVerification creates the verification service with all
// dependencies injected.
func NewVerification(
	provider port.VerificationProvider,
	store port.IBVStore,
	cache port.Cache[*domain.IBVSummary],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Verification {
	return &Verification{
		provider: provider,
		store:    store,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the wall clock. Test hook.
func (s *Verification) WithClock(now func() time.Time) *Verification {
	s.now = now
	return s
}

// Run pulls the full feed for a verification request, stores the raw
// transactions, derives the summary and caches it. Account feeds are
// fetched concurrently; one failing account fails the run so a partial
// feed is never summarized as if complete.
func (s *Verification) Run(ctx context.Context, applicationID, requestID string) (*domain.IBVSummary, error) {
	ctx, span := ibvTracer.Start(ctx, "Verification.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("application.id", applicationID),
		attribute.String("request.id", requestID),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("verification_run", time.Since(start))
	}()

	infos, err := s.provider.FetchAccounts(ctx, requestID)
	if err != nil {
		s.metrics.IncrExternalError("zumrails")
		return nil, err
	}

	// Each goroutine writes its own slot; no shared state beyond that.
	accounts := make([]ibv.AccountInput, len(infos))

	g, gCtx := errgroup.WithContext(ctx)
	for i, info := range infos {
		i, info := i, info
		g.Go(func() error {
			txs, err := s.provider.FetchTransactions(gCtx, requestID, info.AccountNumber)
			if err != nil {
				s.logger.Error("failed to fetch account transactions",
					zap.String("application_id", applicationID),
					zap.String("account", info.AccountNumber),
					zap.Error(err),
				)
				return err
			}
			accounts[i] = ibv.AccountInput{Info: info, Transactions: txs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.metrics.IncrExternalError("zumrails")
		return nil, err
	}

	if err := s.store.SaveTransactions(ctx, applicationID, accounts); err != nil {
		s.metrics.IncrExternalError("supabase")
		return nil, err
	}

	summary := s.summarize(applicationID, accounts)
	if err := s.store.SaveSummary(ctx, &summary); err != nil {
		s.metrics.IncrExternalError("supabase")
		return nil, err
	}

	s.cache.Set(applicationID, &summary)
	s.logger.Info("verification completed",
		zap.String("application_id", applicationID),
		zap.Int("accounts", len(summary.Accounts)),
	)
	return &summary, nil
}

// GetSummary returns the stored summary, cache first.
func (s *Verification) GetSummary(ctx context.Context, applicationID string) (*domain.IBVSummary, error) {
	ctx, span := ibvTracer.Start(ctx, "Verification.GetSummary")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", applicationID))

	if cached, ok := s.cache.Get(applicationID); ok {
		s.metrics.IncrCacheHit("ibv_summary")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("ibv_summary")

	summary, err := s.store.GetSummary(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(applicationID, summary)
	return summary, nil
}

// Recompute rebuilds the summary from the stored raw feed. Used when
// the categorizer rules change or underwriting wants fresh NSF windows.
func (s *Verification) Recompute(ctx context.Context, applicationID string) (*domain.IBVSummary, error) {
	ctx, span := ibvTracer.Start(ctx, "Verification.Recompute")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", applicationID))

	accounts, err := s.store.GetTransactions(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	summary := s.summarize(applicationID, accounts)
	if err := s.store.SaveSummary(ctx, &summary); err != nil {
		return nil, err
	}

	s.cache.Set(applicationID, &summary)
	return &summary, nil
}

func (s *Verification) summarize(applicationID string, accounts []ibv.AccountInput) domain.IBVSummary {
	total := 0
	for _, a := range accounts {
		total += len(a.Transactions)
	}
	s.metrics.AddCategorized(total)

	return ibv.Summarize(applicationID, "zumrails", accounts, s.now())
}
