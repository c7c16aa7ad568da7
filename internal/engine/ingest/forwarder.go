package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"callsight/internal/engine/calls"
	"callsight/internal/platform/registry"
)

// Forwarder pushes persisted calls on to the workspace's downstream
// endpoint, sending only the fields the workspace selected at
// registration. Delivery is asynchronous and never affects the inbound
// webhook response; failures are recorded and retried by the worker.
type Forwarder struct {
	deliveries *DeliveryRepository
	registry   *registry.Registry
	client     *http.Client
}

func NewForwarder(deliveries *DeliveryRepository, reg *registry.Registry, timeout time.Duration) *Forwarder {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Forwarder{
		deliveries: deliveries,
		registry:   reg,
		client:     &http.Client{Timeout: timeout},
	}
}

// Dispatch records a pending delivery and sends it in the background.
func (f *Forwarder) Dispatch(cfg *registry.WebhookConfig, call *calls.Call) {
	if cfg.DownstreamEndpoint == "" {
		return
	}

	payload, err := json.Marshal(SelectFields(call, cfg.SelectedFields))
	if err != nil {
		log.Error().Err(err).Str("call_id", call.ID).Msg("failed to marshal forward payload")
		return
	}

	delivery := &Delivery{
		WebhookID: cfg.ID,
		CallID:    call.ID,
		Endpoint:  cfg.DownstreamEndpoint,
		Payload:   string(payload),
	}
	if err := f.deliveries.Create(delivery); err != nil {
		log.Error().Err(err).Str("call_id", call.ID).Msg("failed to record delivery")
		return
	}

	go f.deliver(delivery, cfg.Secret)
}

func (f *Forwarder) deliver(d *Delivery, secret string) {
	payload := []byte(d.Payload)

	req, err := http.NewRequest(http.MethodPost, d.Endpoint, bytes.NewReader(payload))
	if err != nil {
		f.markFailed(d.ID, err.Error())
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Callsight-Signature", Sign(secret, payload))
	req.Header.Set("X-Callsight-Delivery", d.ID)

	resp, err := f.client.Do(req)
	if err != nil {
		f.markFailed(d.ID, err.Error())
		log.Warn().Err(err).Str("delivery_id", d.ID).Str("endpoint", d.Endpoint).Msg("forward delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errStr := fmt.Sprintf("HTTP %d", resp.StatusCode)
		f.markFailed(d.ID, errStr)
		log.Warn().Str("delivery_id", d.ID).Str("endpoint", d.Endpoint).Str("error", errStr).Msg("forward delivery rejected")
		return
	}

	if err := f.deliveries.MarkOK(d.ID); err != nil {
		log.Error().Err(err).Str("delivery_id", d.ID).Msg("failed to mark delivery ok")
	}
}

// markFailed records the failure; losing the update would drop the
// delivery from the retry set, so that is logged too.
func (f *Forwarder) markFailed(id, reason string) {
	if err := f.deliveries.MarkFailed(id, reason); err != nil {
		log.Error().Err(err).Str("delivery_id", id).Msg("failed to mark delivery failed")
	}
}

// RetryFailed re-sends failed deliveries below the attempt cap. Called
// periodically by the worker process.
func (f *Forwarder) RetryFailed(maxAttempts, batchSize int) error {
	pending, err := f.deliveries.ListRetryable(maxAttempts, batchSize)
	if err != nil {
		return err
	}

	for _, d := range pending {
		cfg, err := f.registry.Resolve(d.WebhookID)
		if err != nil {
			// Webhook revoked since the call arrived; nothing to sign with
			if err == registry.ErrNotFound {
				f.markFailed(d.ID, "webhook revoked")
				continue
			}
			return err
		}
		f.deliver(d, cfg.Secret)
	}

	return nil
}

// SelectFields projects a call onto the workspace's selected field names
// (flattened lower-case, matching the JSON tags). An empty selection
// forwards the full record.
func SelectFields(call *calls.Call, selected []string) map[string]interface{} {
	full := map[string]interface{}{}
	raw, _ := json.Marshal(call)
	json.Unmarshal(raw, &full)

	if len(selected) == 0 {
		return full
	}

	projected := make(map[string]interface{}, len(selected))
	for _, field := range selected {
		if v, ok := full[field]; ok {
			projected[field] = v
		}
	}
	return projected
}
