package audit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

func TestBuild_DefaultIsMock(t *testing.T) {
	s, err := Build("", Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := s.(*MockSink); !ok {
		t.Fatalf("got %T, want *MockSink", s)
	}
}

func TestBuild_UnknownKindErrors(t *testing.T) {
	if _, err := Build("carrier-pigeon", Options{}); err == nil {
		t.Fatal("expected an error for an unknown sink kind")
	}
}

func TestBuild_RedisRequiresAddr(t *testing.T) {
	if _, err := Build("redis", Options{}); err == nil {
		t.Fatal("expected an error when RedisAddr is empty")
	}
}

func TestBuild_PostgresRequiresDB(t *testing.T) {
	if _, err := Build("postgres", Options{}); err == nil {
		t.Fatal("expected an error when Postgres *sql.DB is nil")
	}
}

func TestMockSink_RecordNeverErrors(t *testing.T) {
	s := NewMockSink(nil)
	ev := Event{Service: "svc", Kind: KindFilterRejected, Reason: "block-cidr-range", Status: 400, PeerIP: "10.1.2.3", Timestamp: time.Now()}
	if err := s.Record(context.Background(), ev); err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestNopSink_IsInert(t *testing.T) {
	var s Sink = NopSink{}
	if err := s.Record(context.Background(), Event{}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

type fakeProducer struct {
	calls int
	topic string
}

func (f *fakeProducer) Produce(_ context.Context, topic string, _ []byte, _ []byte, _ map[string]string) error {
	f.calls++
	f.topic = topic
	return nil
}

func TestProducerSink_PublishesToConfiguredTopic(t *testing.T) {
	fp := &fakeProducer{}
	s := NewProducerSink(fp, "custom-topic")
	if err := s.Record(context.Background(), Event{Service: "svc", Kind: KindAdmissionRejected}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if fp.calls != 1 {
		t.Fatalf("calls = %d, want 1", fp.calls)
	}
	if fp.topic != "custom-topic" {
		t.Fatalf("topic = %q, want custom-topic", fp.topic)
	}
}

func TestProducerSink_DefaultsTopicWhenEmpty(t *testing.T) {
	fp := &fakeProducer{}
	s := NewProducerSink(fp, "")
	if s.topic == "" {
		t.Fatal("expected a default topic when none is configured")
	}
}

type fakeStreamAppender struct {
	lastArgs *redis.XAddArgs
}

func (f *fakeStreamAppender) XAdd(_ context.Context, a *redis.XAddArgs) (string, error) {
	f.lastArgs = a
	return "0-1", nil
}

func TestRedisSink_AppendsWithConfiguredStreamAndTrim(t *testing.T) {
	fa := &fakeStreamAppender{}
	s := NewRedisSink(fa, "my-stream", 10)
	ev := Event{Service: "svc", Kind: KindNoUpstream, Reason: "empty healthy set", Status: 502, Timestamp: time.Now()}
	if err := s.Record(context.Background(), ev); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if fa.lastArgs == nil {
		t.Fatal("expected XAdd to be called")
	}
	if fa.lastArgs.Stream != "my-stream" {
		t.Errorf("Stream = %q, want my-stream", fa.lastArgs.Stream)
	}
	if fa.lastArgs.MaxLen != 10 || !fa.lastArgs.Approx {
		t.Errorf("MaxLen/Approx = %d/%v, want 10/true", fa.lastArgs.MaxLen, fa.lastArgs.Approx)
	}
}
