package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/faneasy/faneasy-server/internal/models"
)

// Forwarder pushes accepted leads to the external intake collaborator,
// which owns outbound notification (email/chat alerts). Delivery is
// fire-and-forget; a failure is logged, never surfaced to the submitter.
type Forwarder struct {
	endpoint string
	client   *http.Client
}

// NewForwarder creates a forwarder. An empty endpoint disables forwarding.
func NewForwarder(endpoint string, timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Forwarder{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an intake endpoint is configured.
func (f *Forwarder) Enabled() bool {
	return f.endpoint != ""
}

// Forward delivers one lead to the intake endpoint.
func (f *Forwarder) Forward(ctx context.Context, lead *models.Lead) {
	if !f.Enabled() {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"siteId":  lead.OwnerID,
		"name":    lead.Name,
		"email":   lead.Email,
		"phone":   lead.Phone,
		"message": lead.Message,
		"plan":    lead.Plan,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal intake payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		log.Error().Err(err).Msg("Failed to build intake request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("site", lead.OwnerID).Msg("Lead intake forwarding failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("site", lead.OwnerID).
			Msg(fmt.Sprintf("Lead intake endpoint returned %s", resp.Status))
		return
	}

	log.Debug().Str("site", lead.OwnerID).Msg("Lead forwarded to intake endpoint")
}
