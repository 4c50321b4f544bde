package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/kbukum/augmentkit/config"
)

// sendInterval is the minimum time between two delivered events.
const sendInterval = 30 * time.Second

// Client collects and sends composition events with deduplication and rate
// limiting. Sends never block callers for long and errors are swallowed.
type Client struct {
	backend Backend

	mu      sync.Mutex
	limiter *limiter
	sent    map[string]bool
	enabled bool
}

// NewClient creates a client over the given backend. Collection starts
// disabled when the process runs under go test or CI, or when an opt-out
// environment variable is set.
func NewClient(backend Backend) *Client {
	return &Client{
		backend: backend,
		limiter: newLimiter(1.0/sendInterval.Seconds(), 1),
		sent:    make(map[string]bool),
		enabled: !envDisabled() && !IsCI() && !testing.Testing(),
	}
}

// Track reports one pipeline composition. Duplicate pipeline shapes and
// sends inside the rate-limit window are dropped silently.
func (c *Client) Track(info PipelineInfo) {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}
	event := newEvent(info)
	if c.sent[event.PipelineHash] {
		c.mu.Unlock()
		return
	}
	if !c.limiter.Allow() {
		c.mu.Unlock()
		return
	}
	c.sent[event.PipelineHash] = true
	c.mu.Unlock()

	if err := c.backend.Send(event); err != nil {
		c.mu.Lock()
		delete(c.sent, event.PipelineHash)
		c.mu.Unlock()
	}
}

// Enable turns collection on for this client.
func (c *Client) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
}

// Disable turns collection off for this client.
func (c *Client) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
}

// Enabled reports whether the client collects at all.
func (c *Client) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Reset clears the deduplication set.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = make(map[string]bool)
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// Default returns the process-wide client, honoring the library settings:
// telemetry off or offline mode disables it, and a custom endpoint replaces
// the built-in one.
func Default() *Client {
	defaultOnce.Do(func() {
		settings := config.Default()
		backend := NewGABackend()
		if settings.TelemetryEndpoint != "" {
			backend.endpoint = settings.TelemetryEndpoint
		}
		defaultClient = NewClient(backend)
		if !settings.Telemetry || settings.Offline {
			defaultClient.Disable()
		}
	})
	return defaultClient
}

// TrackPipeline reports a composition on the default client without
// blocking the caller.
func TrackPipeline(info PipelineInfo) {
	c := Default()
	if !c.Enabled() {
		return
	}
	go c.Track(info)
}
