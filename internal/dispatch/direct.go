package dispatch

import (
	"context"
	"errors"

	"github.com/waldjos/zoriapp/internal/model"
)

// ErrNoSendMethod is returned when neither a gateway nor Twilio credentials
// are configured for a direct send.
var ErrNoSendMethod = errors.New("no send method configured: set GATEWAY_URL or Twilio credentials")

// DirectSender delivers an explicit patient list immediately, outside the
// scheduled chain: the gateway when one is configured, otherwise Twilio.
// Gateway transport failures are returned as errors rather than failed
// over, so the operator sees exactly what the gateway did.
type DirectSender struct {
	gateway *GatewayClient // nil when no gateway is configured
	twilio  *TwilioClient  // nil when Twilio is not configured
}

func NewDirectSender(gateway *GatewayClient, twilio *TwilioClient) *DirectSender {
	return &DirectSender{gateway: gateway, twilio: twilio}
}

func (s *DirectSender) Send(ctx context.Context, items []Item) (model.DispatchResult, error) {
	if s.gateway != nil {
		return s.gateway.Send(ctx, items)
	}
	if s.twilio != nil {
		return s.twilio.Send(ctx, items), nil
	}
	return model.DispatchResult{}, ErrNoSendMethod
}
