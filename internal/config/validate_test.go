package config

import (
	"testing"
	"time"
)

func baseDoc() *Document {
	return &Document{
		System: System{ThreadsPerService: 8},
		Services: map[string]ServiceConfig{
			"api": {
				Name:      "api",
				Listeners: []ListenerConfig{{Address: ":8080"}},
				Proxy:     &ProxyBackendConfig{},
			},
		},
	}
}

func TestValidate_DuplicateListenerAddress(t *testing.T) {
	doc := &Document{
		System: System{ThreadsPerService: 8},
		Services: map[string]ServiceConfig{
			"a": {Name: "a", Listeners: []ListenerConfig{{Address: ":8080"}}, Proxy: &ProxyBackendConfig{}},
			"b": {Name: "b", Listeners: []ListenerConfig{{Address: ":8080"}}, Proxy: &ProxyBackendConfig{}},
		},
	}
	if _, err := Validate(doc); err == nil {
		t.Fatal("expected an error for a shared listener address across services")
	}
}

func TestValidate_MutualExclusionOfBackends(t *testing.T) {
	doc := baseDoc()
	svc := doc.Services["api"]
	svc.FileServer = &FileServerConfig{BasePath: "/var/www"}
	doc.Services["api"] = svc

	if _, err := Validate(doc); err == nil {
		t.Fatal("expected an error when both proxy and file-server backends are set")
	}
}

func TestValidate_MalformedCIDRIsFatal(t *testing.T) {
	doc := baseDoc()
	svc := doc.Services["api"]
	svc.Proxy.PathControl.RequestFilters = []FilterConfig{
		{Kind: "block-cidr-range", Params: map[string]string{"addrs": "10.0.0.0/abc"}},
	}
	doc.Services["api"] = svc

	if _, err := Validate(doc); err == nil {
		t.Fatal("expected a malformed CIDR to be fatal to config validation")
	}
}

func TestValidate_MalformedRegexIsFatal(t *testing.T) {
	doc := baseDoc()
	svc := doc.Services["api"]
	svc.Proxy.RateLimiting.Rules = []RuleConfig{
		{Kind: "specific-uri", Pattern: "(unterminated", TokensPerBucket: 1, RefillQty: 1, RefillPeriod: time.Second},
	}
	doc.Services["api"] = svc

	if _, err := Validate(doc); err == nil {
		t.Fatal("expected a malformed regex to be fatal to config validation")
	}
}

func TestValidate_UriAliasAcceptedForSpecificURI(t *testing.T) {
	doc := baseDoc()
	svc := doc.Services["api"]
	svc.Proxy.RateLimiting.Rules = []RuleConfig{
		{Kind: "uri", Pattern: "^/static/.*$", TokensPerBucket: 1, RefillQty: 1, RefillPeriod: time.Second},
	}
	doc.Services["api"] = svc

	if _, err := Validate(doc); err != nil {
		t.Fatalf("expected \"uri\" to be accepted as an alias of \"specific-uri\", got: %v", err)
	}
	if got := doc.Services["api"].Proxy.RateLimiting.Rules[0].Kind; got != "specific-uri" {
		t.Errorf("rule kind after normalization = %q, want %q", got, "specific-uri")
	}
}

func TestValidate_AnyMatchingURIMaxBucketsWarns(t *testing.T) {
	doc := baseDoc()
	svc := doc.Services["api"]
	svc.Proxy.RateLimiting.Rules = []RuleConfig{
		{Kind: "any-matching-uri", Pattern: ".*", MaxBuckets: 5, TokensPerBucket: 1, RefillQty: 1, RefillPeriod: time.Second},
	}
	doc.Services["api"] = svc

	warnings, err := Validate(doc)
	if err != nil {
		t.Fatalf("any-matching-uri with max-buckets>1 must not be fatal, got: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %d: %v", len(warnings), warnings)
	}
	if got := doc.Services["api"].Proxy.RateLimiting.Rules[0].MaxBuckets; got != 1 {
		t.Errorf("max-buckets after normalization = %d, want 1 (ignored, single shared bucket)", got)
	}
}

func TestValidate_ConnectorProtoDefaulting(t *testing.T) {
	doc := baseDoc()
	svc := doc.Services["api"]
	svc.Proxy.Connectors = []ConnectorConfig{
		{Address: "10.0.0.1:443", TLSSNI: "upstream.internal"},
		{Address: "10.0.0.2:80"},
	}
	doc.Services["api"] = svc

	if _, err := Validate(doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conns := doc.Services["api"].Proxy.Connectors
	if conns[0].Proto != ProtoH2OrH1 {
		t.Errorf("connector with TLS-SNI defaulted to %q, want %q", conns[0].Proto, ProtoH2OrH1)
	}
	if conns[1].Proto != ProtoH1Only {
		t.Errorf("connector without TLS defaulted to %q, want %q", conns[1].Proto, ProtoH1Only)
	}
}

func TestValidate_NonH1ProtoRequiresTLS(t *testing.T) {
	doc := baseDoc()
	svc := doc.Services["api"]
	svc.Proxy.Connectors = []ConnectorConfig{
		{Address: "10.0.0.1:80", Proto: ProtoH2Only},
	}
	doc.Services["api"] = svc

	if _, err := Validate(doc); err == nil {
		t.Fatal("expected an error: non-h1-only proto without TLS-SNI is a config error")
	}
}

func TestValidate_DaemonizeRequiresPidFile(t *testing.T) {
	doc := baseDoc()
	doc.System.Daemonize = true
	doc.System.PidFile = ""

	if _, err := Validate(doc); err == nil {
		t.Fatal("expected an error: daemonize requires pidfile")
	}
}
