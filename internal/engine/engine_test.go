package engine

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"river/internal/config"
	"river/internal/loadbalance"
	"river/internal/pathcontrol"
)

func TestBackend_RequestFilterRejectionShortCircuits(t *testing.T) {
	pc := config.PathControlConfig{
		RequestFilters: []config.FilterConfig{{Kind: "block-cidr-range", Params: map[string]string{"addrs": "10.0.0.0/8"}}},
	}
	pipeline, err := pathcontrol.NewPipeline(pc)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	lb, err := loadbalance.New(config.LoadBalanceConfig{Selection: "round-robin"}, []config.ConnectorConfig{{Address: "127.0.0.1:9"}})
	if err != nil {
		t.Fatalf("loadbalance.New: %v", err)
	}
	b := NewBackend("svc", pipeline, lb, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBackend_FileServerBypassesPipeline(t *testing.T) {
	fs := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	b := NewBackend("svc", nil, nil, nil, fs, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418 (file-server handler invoked directly)", rec.Code)
	}
}

func TestBackend_NoUpstreamYields502(t *testing.T) {
	lb, err := loadbalance.New(config.LoadBalanceConfig{Selection: "round-robin"}, nil)
	if err != nil {
		t.Fatalf("loadbalance.New: %v", err)
	}
	b := NewBackend("svc", nil, lb, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}
