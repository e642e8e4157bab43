package pathcontrol

import (
	"context"
	"net/http"
	"testing"

	"river/internal/config"
)

func TestBlockCIDRRange(t *testing.T) {
	chain, err := NewRequestChain([]config.FilterConfig{
		{Kind: "block-cidr-range", Params: map[string]string{"addrs": "10.0.0.0/8"}},
	})
	if err != nil {
		t.Fatalf("NewRequestChain: %v", err)
	}

	blocked := &Exchange{PeerIP: "10.1.2.3"}
	if out := chain.Run(context.Background(), blocked); !out.Rejected || out.Status != http.StatusBadRequest {
		t.Errorf("blocked peer: got %+v, want Rejected with 400", out)
	}

	allowed := &Exchange{PeerIP: "192.168.1.1"}
	if out := chain.Run(context.Background(), allowed); out.Rejected {
		t.Errorf("allowed peer: got %+v, want proceed", out)
	}
}

func TestRequestChainRejectsMutatingKinds(t *testing.T) {
	if _, err := NewRequestChain([]config.FilterConfig{{Kind: "upsert-header"}}); err == nil {
		t.Fatal("expected upsert-header to be rejected in the request-filters stage")
	}
}

func TestUpstreamChainRejectsCIDR(t *testing.T) {
	if _, err := NewUpstreamRequestChain([]config.FilterConfig{{Kind: "block-cidr-range"}}); err == nil {
		t.Fatal("expected block-cidr-range to be rejected outside the request-filters stage")
	}
}

func TestUpsertHeaderIdempotent(t *testing.T) {
	chain, err := NewUpstreamRequestChain([]config.FilterConfig{
		{Kind: "upsert-header", Params: map[string]string{"key": "x-proxy-friend", "value": "river"}},
	})
	if err != nil {
		t.Fatalf("NewUpstreamRequestChain: %v", err)
	}

	ex := &Exchange{Headers: http.Header{"X-Proxy-Friend": []string{"old"}}}
	chain.Run(context.Background(), ex)
	chain.Run(context.Background(), ex) // applying twice is indistinguishable from once (spec.md §8)

	got := ex.Headers.Values("X-Proxy-Friend")
	if len(got) != 1 || got[0] != "river" {
		t.Errorf("headers after double upsert = %v, want single value \"river\"", got)
	}
}

func TestUpsertHeaderAppendsWhenAbsent(t *testing.T) {
	chain, _ := NewUpstreamRequestChain([]config.FilterConfig{
		{Kind: "upsert-header", Params: map[string]string{"key": "x-proxy-friend", "value": "river"}},
	})
	ex := &Exchange{Headers: http.Header{}}
	chain.Run(context.Background(), ex)
	if got := ex.Headers.Get("X-Proxy-Friend"); got != "river" {
		t.Errorf("header = %q, want \"river\"", got)
	}
}

func TestRemoveHeaderKeyRegex(t *testing.T) {
	chain, err := NewUpstreamResponseChain([]config.FilterConfig{
		{Kind: "remove-header-key-regex", Params: map[string]string{"pattern": "^X-Internal-"}},
	})
	if err != nil {
		t.Fatalf("NewUpstreamResponseChain: %v", err)
	}
	ex := &Exchange{Headers: http.Header{
		"X-Internal-Trace": []string{"abc"},
		"Content-Type":      []string{"text/plain"},
	}}
	chain.Run(context.Background(), ex)
	if ex.Headers.Get("X-Internal-Trace") != "" {
		t.Error("X-Internal-Trace should have been removed")
	}
	if ex.Headers.Get("Content-Type") != "text/plain" {
		t.Error("Content-Type should be untouched")
	}
}

func TestMalformedCIDRRejectedAtBuildTime(t *testing.T) {
	if _, err := NewRequestChain([]config.FilterConfig{
		{Kind: "block-cidr-range", Params: map[string]string{"addrs": "not-an-address"}},
	}); err == nil {
		t.Fatal("expected a malformed CIDR/address to fail chain construction")
	}
}

func TestRequestFiltersDoNotMutate(t *testing.T) {
	chain, _ := NewRequestChain([]config.FilterConfig{
		{Kind: "block-cidr-range", Params: map[string]string{"addrs": "10.0.0.0/8"}},
	})
	ex := &Exchange{PeerIP: "192.168.1.1", Headers: http.Header{"A": []string{"b"}}}
	before := ex.Headers.Clone()
	chain.Run(context.Background(), ex)
	if ex.Headers.Get("A") != before.Get("A") {
		t.Error("request-filters stage must never mutate headers")
	}
}
