package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/waldjos/zoriapp/internal/model"
)

// RelayClient posts a batch to the third-party SMS relay using basic auth
// with the fixed "apikey" username. Like the gateway client, a returned
// error is a transport failure and any HTTP response is definitive.
type RelayClient struct {
	url    string
	token  string
	client *http.Client
}

func NewRelayClient(relayURL, token string) *RelayClient {
	return &RelayClient{
		url:   relayURL,
		token: token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type relayItem struct {
	Mobile string `json:"mobile"`
	Text   string `json:"text"`
}

func (c *RelayClient) Send(ctx context.Context, items []Item) (model.DispatchResult, error) {
	payload := make([]relayItem, 0, len(items))
	for _, it := range items {
		payload = append(payload, relayItem{Mobile: it.Phone, Text: it.Text})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return model.DispatchResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return model.DispatchResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("apikey", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return model.DispatchResult{}, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return model.DispatchResult{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Via:    ViaRelay,
		Status: resp.StatusCode,
		Body:   string(respBody),
	}, nil
}
