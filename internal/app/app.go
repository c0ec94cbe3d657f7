// Package app runs the export pipeline: authenticate, split the requested
// date range into API-sized segments, fetch each segment in order,
// aggregate the results, and write the CSV. Any stage failure aborts the
// run before output is written.
package app

import (
	"context"

	"github.com/billingops/azure-billing-export/internal/auth"
	"github.com/billingops/azure-billing-export/internal/azure"
	"github.com/billingops/azure-billing-export/internal/config"
	"github.com/billingops/azure-billing-export/internal/cost"
	"github.com/billingops/azure-billing-export/internal/dates"
	"github.com/billingops/azure-billing-export/internal/export"
	"github.com/billingops/azure-billing-export/internal/logger"
)

// segmentFetcher is the part of the billing client the pipeline depends on.
type segmentFetcher interface {
	FetchSegment(ctx context.Context, seg dates.Segment) ([]cost.Record, error)
}

// Run executes one complete export using the effective configuration.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	tokens, err := auth.NewProvider(cfg)
	if err != nil {
		return err
	}
	return run(ctx, cfg, azure.NewClient(cfg, tokens, log), log)
}

func run(ctx context.Context, cfg *config.Config, fetcher segmentFetcher, log *logger.Logger) error {
	segments, err := dates.Split(cfg.FromDate, cfg.ToDate, cfg.MaxDaysPerRequest)
	if err != nil {
		return &config.Error{Reason: err.Error()}
	}

	log.Info().
		Str("from", cfg.FromDate.Format(dates.Layout)).
		Str("to", cfg.ToDate.Format(dates.Layout)).
		Int("segments", len(segments)).
		Msg("Fetching cost data")

	var all []cost.Record
	for _, seg := range segments {
		records, err := fetcher.FetchSegment(ctx, seg)
		if err != nil {
			return err
		}
		all = append(all, records...)
	}

	result := cost.Aggregate(all, cfg.CostThreshold)
	if dropped := len(all) - len(result); dropped > 0 && cfg.CostThreshold > 0 {
		log.Info().
			Int("entries", dropped).
			Float64("threshold", cfg.CostThreshold).
			Msg("Filtered entries below cost threshold")
	}

	if err := export.WriteCSV(result, cfg.OutputPath); err != nil {
		return err
	}

	log.Info().
		Str("path", cfg.OutputPath).
		Int("rows", len(result)).
		Float64("total_usd", cost.TotalUSD(result)).
		Float64("total_eur", cost.TotalEUR(result)).
		Msg("Export complete")

	return nil
}
