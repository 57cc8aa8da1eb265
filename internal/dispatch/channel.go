// Package dispatch delivers notification batches through a prioritized
// chain of SMS channels and records every attempt in the send log.
package dispatch

import (
	"context"

	"github.com/waldjos/zoriapp/internal/model"
)

// Channel names reported in DispatchResult.Via.
const (
	ViaGateway      = "gateway"
	ViaGatewayQuery = "gateway-query"
	ViaRelay        = "relay"
	ViaTwilio       = "twilio"
	ViaError        = "error"
)

// Item is one phone/text pair in an outbound batch.
type Item struct {
	Phone    string `json:"phone"`
	FullName string `json:"fullName"`
	Text     string `json:"text"`
}

// BatchChannel delivers a whole batch through one logical transport and
// reports a definitive outcome. The chain implements it on top of the
// individual channels.
type BatchChannel interface {
	Send(ctx context.Context, items []Item) model.DispatchResult
}
