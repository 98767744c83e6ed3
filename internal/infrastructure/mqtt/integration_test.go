//go:build integration

package mqtt

import (
	"context"
	"testing"
	"time"
)

// Requires a broker on 127.0.0.1:1883:
//
//	go test -tags integration ./internal/infrastructure/mqtt/
func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	c, err := Connect(testConfig())
	if err != nil {
		t.Skipf("no broker available: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestIntegration_PublishSubscribe(t *testing.T) {
	c := connectOrSkip(t)
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() = %v", err)
	}

	topic := Topics{}.ParticipantLogging(99)
	received := make(chan []byte, 1)
	err := c.Subscribe(topic, 1, func(_ string, payload []byte) error {
		received <- payload
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() = %v", err)
	}
	if c.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", c.SubscriptionCount())
	}

	if err := c.Publish(topic, []byte(`{"event":"enabled"}`), 1, false); err != nil {
		t.Fatalf("Publish() = %v", err)
	}
	select {
	case got := <-received:
		if string(got) != `{"event":"enabled"}` {
			t.Errorf("payload = %s", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}

	if err := c.Unsubscribe(topic); err != nil {
		t.Errorf("Unsubscribe() = %v", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
}
