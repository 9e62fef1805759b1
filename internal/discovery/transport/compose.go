package transport

import (
	"context"
	"time"

	"github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"
)

// WireFactory constructs the innermost transport primitive bound to ep —
// the actual network call, injected from outside this package per
// spec.md §1.
type WireFactory func(ctx context.Context, ep endpoint.Endpoint) (Client, error)

// ComposeClientFactory builds the ClientFactory RetryableClient expects:
// for each candidate endpoint, a RedirectingClient wrapping a
// SessionedClient wrapping the wire transport. Grounded on spec.md §4's
// decorator stack diagram (RedirectingClient -> SessionedClient -> wire).
func ComposeClientFactory(wire WireFactory, resolve Resolve, sessionDuration time.Duration) ClientFactory {
	return func(ctx context.Context, ep endpoint.Endpoint) (Client, error) {
		sessioned := NewSessionedClient(ep, func(ctx context.Context, inner endpoint.Endpoint) (Client, error) {
			return wire(ctx, inner)
		}, sessionDuration)

		redirecting := NewRedirectingClient(ep, func(ctx context.Context, inner endpoint.Endpoint) (Client, error) {
			if inner == ep {
				return sessioned, nil
			}
			return wire(ctx, inner)
		}, resolve)

		return redirecting, nil
	}
}
