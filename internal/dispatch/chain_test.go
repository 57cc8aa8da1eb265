package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// droppingServer accepts requests and kills the connection without a
// response, so the client sees a transport-level failure on every attempt.
func droppingServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()

	var (
		mu      sync.Mutex
		queries []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()

		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatalf("response writer is not a hijacker")
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatalf("hijack failed: %v", err)
		}
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), queries...)
	}
}

func items() []Item {
	return []Item{{Phone: "+584140000001", FullName: "Ana Perez", Text: "hola"}}
}

func TestChain_GatewaySuccessStopsChain(t *testing.T) {
	t.Parallel()

	gwSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("sent"))
	}))
	t.Cleanup(gwSrv.Close)

	relayCalled := false
	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relayCalled = true
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(relaySrv.Close)

	chain := NewChain(
		NewGatewayClient(gwSrv.URL, "tok"),
		NewRelayClient(relaySrv.URL, "tok"),
	)

	res := chain.Send(context.Background(), items())

	if !res.OK || res.Via != ViaGateway {
		t.Fatalf("unexpected result: %+v", res)
	}
	if relayCalled {
		t.Fatalf("relay must not be called when the gateway succeeds")
	}
}

func TestChain_GatewayRejectionDoesNotFallOver(t *testing.T) {
	t.Parallel()

	gwSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reachable gateway rejecting the payload: must be surfaced, not
		// bypassed via query token or relay.
		if r.URL.RawQuery != "" {
			t.Fatalf("query-token retry must not happen on HTTP rejection")
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad payload"))
	}))
	t.Cleanup(gwSrv.Close)

	relayCalled := false
	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relayCalled = true
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(relaySrv.Close)

	chain := NewChain(
		NewGatewayClient(gwSrv.URL, "tok"),
		NewRelayClient(relaySrv.URL, "tok"),
	)

	res := chain.Send(context.Background(), items())

	if res.OK {
		t.Fatalf("expected not-OK result")
	}
	if res.Via != ViaGateway || res.Status != http.StatusBadRequest || res.Body != "bad payload" {
		t.Fatalf("expected gateway rejection surfaced, got %+v", res)
	}
	if relayCalled {
		t.Fatalf("relay must not be called on gateway HTTP rejection")
	}
}

func TestChain_NetworkFailureTriesQueryTokenThenRelay(t *testing.T) {
	t.Parallel()

	gwSrv, gwQueries := droppingServer(t)

	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("relayed"))
	}))
	t.Cleanup(relaySrv.Close)

	chain := NewChain(
		NewGatewayClient(gwSrv.URL, "tok"),
		NewRelayClient(relaySrv.URL, "tok"),
	)

	res := chain.Send(context.Background(), items())

	if !res.OK || res.Via != ViaRelay || res.Body != "relayed" {
		t.Fatalf("expected relay to handle the batch, got %+v", res)
	}

	queries := gwQueries()
	if len(queries) != 2 {
		t.Fatalf("expected 2 gateway attempts (header, then query token), got %d", len(queries))
	}
	if queries[0] != "" {
		t.Fatalf("first attempt must not carry a query token, got %q", queries[0])
	}
	if queries[1] != "token=tok" {
		t.Fatalf("second attempt must carry the query token, got %q", queries[1])
	}
}

func TestChain_NoQueryRetryWithoutToken(t *testing.T) {
	t.Parallel()

	gwSrv, gwQueries := droppingServer(t)

	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(relaySrv.Close)

	chain := NewChain(
		NewGatewayClient(gwSrv.URL, ""), // no token, nothing to put in the query
		NewRelayClient(relaySrv.URL, "tok"),
	)

	res := chain.Send(context.Background(), items())

	if !res.OK || res.Via != ViaRelay {
		t.Fatalf("expected relay result, got %+v", res)
	}
	if n := len(gwQueries()); n != 1 {
		t.Fatalf("expected a single gateway attempt without a token, got %d", n)
	}
}

func TestChain_NoGatewayGoesStraightToRelay(t *testing.T) {
	t.Parallel()

	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("accepted"))
	}))
	t.Cleanup(relaySrv.Close)

	chain := NewChain(nil, NewRelayClient(relaySrv.URL, "tok"))

	res := chain.Send(context.Background(), items())
	if !res.OK || res.Via != ViaRelay || res.Status != http.StatusCreated {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestChain_AllChannelsExhausted(t *testing.T) {
	t.Parallel()

	gwSrv, _ := droppingServer(t)
	relaySrv, _ := droppingServer(t)

	chain := NewChain(
		NewGatewayClient(gwSrv.URL, "tok"),
		NewRelayClient(relaySrv.URL, "tok"),
	)

	res := chain.Send(context.Background(), items())

	if res.OK {
		t.Fatalf("expected failure when every channel is unreachable")
	}
	if res.Via != ViaError || res.Status != 0 || res.Body == "" {
		t.Fatalf("expected terminal error result, got %+v", res)
	}
}

func TestChain_NothingConfigured(t *testing.T) {
	t.Parallel()

	chain := NewChain(nil, nil)

	res := chain.Send(context.Background(), items())
	if res.OK || res.Via != ViaError {
		t.Fatalf("expected error result, got %+v", res)
	}
}
