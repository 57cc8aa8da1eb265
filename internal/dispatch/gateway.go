package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/waldjos/zoriapp/internal/model"
)

// GatewayClient posts a batch to the primary SMS gateway. A returned error
// means the request never produced an HTTP response (transport failure);
// any response, 2xx or not, is a definitive DispatchResult.
type GatewayClient struct {
	url    string
	token  string
	client *http.Client
}

func NewGatewayClient(gatewayURL, token string) *GatewayClient {
	return &GatewayClient{
		url:   gatewayURL,
		token: token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *GatewayClient) HasToken() bool {
	return c.token != ""
}

type gatewayPayload struct {
	Phones []Item `json:"phones"`
}

// Send posts the batch with the token in a bearer header (when configured).
func (c *GatewayClient) Send(ctx context.Context, items []Item) (model.DispatchResult, error) {
	return c.post(ctx, c.url, items, ViaGateway, true)
}

// SendQueryToken retries the same endpoint with the token embedded as a
// query parameter instead of a header; some gateways only accept that form.
func (c *GatewayClient) SendQueryToken(ctx context.Context, items []Item) (model.DispatchResult, error) {
	u := c.url
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	u += sep + "token=" + url.QueryEscape(c.token)
	return c.post(ctx, u, items, ViaGatewayQuery, false)
}

func (c *GatewayClient) post(ctx context.Context, postURL string, items []Item, via string, bearer bool) (model.DispatchResult, error) {
	body, err := json.Marshal(gatewayPayload{Phones: items})
	if err != nil {
		return model.DispatchResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, bytes.NewReader(body))
	if err != nil {
		return model.DispatchResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return model.DispatchResult{}, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return model.DispatchResult{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Via:    via,
		Status: resp.StatusCode,
		Body:   string(respBody),
	}, nil
}
