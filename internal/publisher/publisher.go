// Package publisher defines the outbound event contract for pipeline
// lifecycle notifications.
package publisher

import "context"

// Publisher emits lifecycle events to interested downstream consumers.
type Publisher interface {
	// Publish sends a JSON-marshaled payload to the named topic and returns
	// the broker-assigned message id.
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Noop satisfies Publisher when no broker is configured.
type Noop struct{}

// Publish discards the payload.
func (Noop) Publish(context.Context, string, any) (string, error) {
	return "", nil
}

// BrandCompleted is the payload published when a brand finishes the
// pipeline.
type BrandCompleted struct {
	BrandID  string `json:"brand_id"`
	Domain   string `json:"domain"`
	Name     string `json:"name"`
	Synced   bool   `json:"synced"`
	Occurred string `json:"occurred_at"`
}
