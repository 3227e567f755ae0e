// Package telemetry sends anonymous usage events. Every call is a no-op
// when no API key is configured, so callers never need to branch.
package telemetry

import (
	"log"

	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
)

// Build-time injection via -ldflags.
var (
	PostHogKey  string
	PostHogHost string
)

// Client wraps a PostHog client behind a nil-safe surface.
type Client struct {
	ph         posthog.Client
	distinctID string
}

// New creates a telemetry client. A missing key yields a disabled client
// whose methods do nothing.
func New(key, host string) *Client {
	c := &Client{distinctID: uuid.NewString()}
	if key == "" {
		return c
	}

	ph, err := posthog.NewWithConfig(key, posthog.Config{Endpoint: host})
	if err != nil {
		log.Printf("[Telemetry] Failed to initialize client: %v", err)
		return c
	}
	c.ph = ph
	return c
}

// Track enqueues an event; drops it silently when telemetry is disabled.
func (c *Client) Track(event string, props map[string]interface{}) {
	if c == nil || c.ph == nil {
		return
	}
	properties := posthog.NewProperties()
	for k, v := range props {
		properties.Set(k, v)
	}
	if err := c.ph.Enqueue(posthog.Capture{
		DistinctId: c.distinctID,
		Event:      event,
		Properties: properties,
	}); err != nil {
		log.Printf("[Telemetry] Failed to enqueue event %q: %v", event, err)
	}
}

// Close flushes pending events.
func (c *Client) Close() {
	if c == nil || c.ph == nil {
		return
	}
	c.ph.Close()
}
