// Package provider defines the escalation tier providers used by the
// resolution cascade.
package provider

import (
	"context"

	"github.com/dishplayapp/dishplay-server/internal/domain"
)

// Provider produces image candidates for a dish query. Implementations must
// be concurrency-safe; the cascade calls one provider from many goroutines.
//
// Failures are reported through errors.ProviderError so the caller can
// distinguish transient failures (retryable) from permanent ones.
type Provider interface {
	// Name identifies the provider for logging and rate limiting.
	Name() string
	// Tier returns the cascade tier this provider serves.
	Tier() domain.Tier
	// Resolve returns zero or more candidates for the query. An empty result
	// with nil error means the provider found nothing acceptable.
	Resolve(ctx context.Context, query domain.Query) ([]domain.Candidate, error)
}
