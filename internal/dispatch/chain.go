package dispatch

import (
	"context"
	"log/slog"

	"github.com/waldjos/zoriapp/internal/model"
)

// Chain tries the configured channels in priority order: gateway with
// bearer header, gateway with token as query parameter, then the remote
// relay. Fallback is reserved for transport-level failures; an HTTP error
// response from a reachable gateway is surfaced as-is so a rejecting
// gateway gets diagnosed instead of silently bypassed.
type Chain struct {
	gateway *GatewayClient // nil when no gateway is configured
	relay   *RelayClient   // nil when no relay token is configured
}

func NewChain(gateway *GatewayClient, relay *RelayClient) *Chain {
	return &Chain{gateway: gateway, relay: relay}
}

func (c *Chain) Send(ctx context.Context, items []Item) model.DispatchResult {
	if c.gateway != nil {
		res, err := c.gateway.Send(ctx, items)
		if err == nil {
			return res
		}
		slog.Warn("gateway send failed, trying token-as-query fallback", "error", err)

		if c.gateway.HasToken() {
			res, err2 := c.gateway.SendQueryToken(ctx, items)
			if err2 == nil {
				return res
			}
			slog.Warn("gateway token-as-query fallback failed", "error", err2)
		}
	}

	if c.relay == nil {
		return model.DispatchResult{
			OK:     false,
			Via:    ViaError,
			Status: 0,
			Body:   "no dispatch channel configured or reachable",
		}
	}

	res, err := c.relay.Send(ctx, items)
	if err != nil {
		slog.Error("relay send failed", "error", err)
		return model.DispatchResult{
			OK:     false,
			Via:    ViaError,
			Status: 0,
			Body:   err.Error(),
		}
	}
	return res
}
