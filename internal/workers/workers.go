package workers

import (
	"time"

	"github.com/rs/zerolog/log"

	"callsight/internal/engine/analytics"
	"callsight/internal/engine/campaigns"
	"callsight/internal/engine/ingest"
)

// AggregateDailyStats rolls yesterday's calls up into per-campaign daily
// rows. Re-running for the same date is safe; the upsert overwrites.
func AggregateDailyStats(campaignRepo *campaigns.Repository, analyticsRepo *analytics.Repository, date string) error {
	if date == "" {
		date = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}

	all, err := campaignRepo.ListAll()
	if err != nil {
		return err
	}

	for _, campaign := range all {
		stat, err := analyticsRepo.ComputeDailyStats(campaign.ID, date)
		if err != nil {
			log.Error().Err(err).Str("campaign_id", campaign.ID).Msg("daily stats compute failed")
			continue
		}
		if stat.Calls == 0 {
			continue
		}
		if err := analyticsRepo.UpsertDailyStats(campaign.ID, stat); err != nil {
			log.Error().Err(err).Str("campaign_id", campaign.ID).Msg("daily stats upsert failed")
			continue
		}
	}

	log.Info().Str("date", date).Int("campaigns", len(all)).Msg("daily stats aggregated")
	return nil
}

// RetryFailedDeliveries re-sends failed downstream forwards.
func RetryFailedDeliveries(forwarder *ingest.Forwarder, maxAttempts int) {
	if err := forwarder.RetryFailed(maxAttempts, 100); err != nil {
		log.Error().Err(err).Msg("delivery retry sweep failed")
	}
}
