package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Backend delivers events to an analytics sink.
type Backend interface {
	Send(e Event) error
}

// collectEndpoint is the GA4 Measurement Protocol endpoint. The credentials
// only permit writing events to this project's analytics property; users
// never configure anything.
const collectEndpoint = "https://www.google-analytics.com/mp/collect?measurement_id=G-7KJQVC3XND&api_secret=pLm2QfaRSkWc1nB8xTze6g"

// sendTimeout bounds one delivery attempt so a slow network never stalls
// pipeline construction.
const sendTimeout = 2 * time.Second

// GABackend sends events to Google Analytics 4.
type GABackend struct {
	endpoint string
	clientID string
	client   *http.Client
}

// NewGABackend creates a backend with a fresh per-process client id.
func NewGABackend() *GABackend {
	return &GABackend{
		endpoint: collectEndpoint,
		clientID: uuid.NewString(),
		client:   &http.Client{Timeout: sendTimeout},
	}
}

// Send delivers one event.
func (b *GABackend) Send(e Event) error {
	payload := map[string]any{
		"client_id": b.clientID,
		"events": []map[string]any{
			{
				"name":   e.Type,
				"params": e.Params(),
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := b.client.Post(b.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("telemetry: backend returned %s", resp.Status)
	}
	return nil
}
