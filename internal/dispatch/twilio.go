package dispatch

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/waldjos/zoriapp/internal/model"
)

// twilioMax caps one direct send to avoid throttling on the Twilio side.
const twilioMax = 100

// TwilioClient is the per-recipient fallback for direct sends when no
// gateway is configured. Twilio has no batch endpoint, so the batch is
// delivered one message at a time and the per-number outcomes are collected
// into the result body.
type TwilioClient struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioClient(accountSID, authToken, from string) *TwilioClient {
	return &TwilioClient{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: from,
	}
}

type twilioItemResult struct {
	To    string `json:"to"`
	SID   string `json:"sid,omitempty"`
	Error string `json:"error,omitempty"`
}

func (c *TwilioClient) Send(ctx context.Context, items []Item) model.DispatchResult {
	if len(items) > twilioMax {
		items = items[:twilioMax]
	}

	results := make([]twilioItemResult, 0, len(items))
	delivered := 0
	for _, it := range items {
		if it.Phone == "" {
			continue
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetTo(it.Phone)
		params.SetFrom(c.from)
		params.SetBody(it.Text)

		msg, err := c.client.Api.CreateMessage(params)
		if err != nil {
			results = append(results, twilioItemResult{To: it.Phone, Error: err.Error()})
			continue
		}

		delivered++
		r := twilioItemResult{To: it.Phone}
		if msg.Sid != nil {
			r.SID = *msg.Sid
		}
		results = append(results, r)
	}

	body, _ := json.Marshal(results)
	return model.DispatchResult{
		OK:     delivered > 0,
		Via:    ViaTwilio,
		Status: http.StatusOK,
		Body:   string(body),
	}
}
