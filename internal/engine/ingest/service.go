package ingest

import (
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"callsight/internal/engine/calls"
	"callsight/internal/engine/campaigns"
	"callsight/internal/platform/registry"
)

var (
	ErrWebhookNotFound = registry.ErrNotFound
	ErrInvalidSecret   = errors.New("invalid webhook secret")
)

// PersistenceError wraps a storage failure on the campaign or call write.
// Safe for the external platform to retry the whole request.
type PersistenceError struct {
	Resource string // "campaign" or "call"
	Err      error
}

func (e *PersistenceError) Error() string {
	return e.Resource + " persistence failed: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type Result struct {
	CallID     string `json:"call_id"`
	CampaignID string `json:"campaign_id"`
}

// Metrics are process-local ingest counters surfaced by /metrics.
type Metrics struct {
	Received  atomic.Int64
	Persisted atomic.Int64
	Rejected  atomic.Int64
	Failed    atomic.Int64
}

type MetricsSnapshot struct {
	Received  int64
	Persisted int64
	Rejected  int64
	Failed    int64
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Received:  m.Received.Load(),
		Persisted: m.Persisted.Load(),
		Rejected:  m.Rejected.Load(),
		Failed:    m.Failed.Load(),
	}
}

// Service runs the ingestion pipeline: resolve webhook, validate secret,
// normalize, resolve campaign, persist, then hand off to the forwarder.
type Service struct {
	registry  *registry.Registry
	campaigns *campaigns.Repository
	calls     *calls.Repository
	forwarder *Forwarder
	metrics   *Metrics
}

func NewService(reg *registry.Registry, campaignRepo *campaigns.Repository, callRepo *calls.Repository, forwarder *Forwarder) *Service {
	return &Service{
		registry:  reg,
		campaigns: campaignRepo,
		calls:     callRepo,
		forwarder: forwarder,
		metrics:   &Metrics{},
	}
}

func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// Ingest processes one inbound webhook event. All failures come back as
// typed errors for the handler to map onto HTTP statuses; nothing is
// written before the secret check passes.
func (s *Service) Ingest(webhookID, secret string, raw RawPayload) (*Result, error) {
	s.metrics.Received.Add(1)

	cfg, err := s.registry.Resolve(webhookID)
	if err != nil {
		if err == registry.ErrNotFound {
			s.metrics.Rejected.Add(1)
			return nil, ErrWebhookNotFound
		}
		s.metrics.Failed.Add(1)
		return nil, err
	}

	if !SecretsEqual(secret, cfg.Secret) {
		s.metrics.Rejected.Add(1)
		return nil, ErrInvalidSecret
	}

	call, err := Normalize(raw)
	if err != nil {
		s.metrics.Rejected.Add(1)
		return nil, err
	}

	// Campaign resolution must finish before the call insert; the call
	// row references the campaign id.
	campaign, err := s.campaigns.FindOrCreate(cfg.WorkspaceID, call.UTMSource, call.UTMMedium, call.UTMCampaign)
	if err != nil {
		s.metrics.Failed.Add(1)
		return nil, &PersistenceError{Resource: "campaign", Err: err}
	}

	call.ID = "call_" + uuid.New().String()
	call.WorkspaceID = cfg.WorkspaceID
	call.CampaignID = campaign.ID

	if err := s.calls.Insert(call); err != nil {
		s.metrics.Failed.Add(1)
		return nil, &PersistenceError{Resource: "call", Err: err}
	}
	s.metrics.Persisted.Add(1)

	log.Info().
		Str("webhook_id", webhookID).
		Str("workspace_id", cfg.WorkspaceID).
		Str("call_id", call.ID).
		Str("campaign_id", campaign.ID).
		Str("status", string(call.Status)).
		Msg("call ingested")

	if s.forwarder != nil {
		s.forwarder.Dispatch(cfg, call)
	}

	return &Result{CallID: call.ID, CampaignID: campaign.ID}, nil
}
