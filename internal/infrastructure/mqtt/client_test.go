package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/thermlog/internal/infrastructure/config"
)

type MockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (m *MockLogger) Info(string, ...any) {}

func (m *MockLogger) Warn(msg string, _ ...any) {
	m.mu.Lock()
	m.warns = append(m.warns, msg)
	m.mu.Unlock()
}

func (m *MockLogger) Error(msg string, _ ...any) {
	m.mu.Lock()
	m.errors = append(m.errors, msg)
	m.mu.Unlock()
}

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "thermlog-test",
		},
		QoS:       1,
		Reconnect: config.MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 5},
	}
}

func TestTopics(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		got  string
		want string
	}{
		{topics.ParticipantLifecycle(3), "thermlog/participant/3/lifecycle"},
		{topics.ParticipantControl(0), "thermlog/participant/0/control"},
		{topics.ParticipantLogging(42), "thermlog/participant/42/logging"},
		{topics.AllLifecycle(), "thermlog/participant/+/lifecycle"},
		{topics.AllControl(), "thermlog/participant/+/control"},
		{topics.Command(), "thermlog/command"},
		{topics.CommandResponse(), "thermlog/command/response"},
		{topics.LoggingStatus(), "thermlog/logging/status"},
		{topics.SystemStatus(), "thermlog/system/status"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestParseParticipantTopic(t *testing.T) {
	tests := []struct {
		topic  string
		wantID uint32
		kind   string
		ok     bool
	}{
		{"thermlog/participant/7/lifecycle", 7, KindLifecycle, true},
		{"thermlog/participant/0/control", 0, KindControl, true},
		{"thermlog/participant/x/control", 0, "", false},
		{"thermlog/participant/-1/control", 0, "", false},
		{"thermlog/participant/4294967296/control", 0, "", false},
		{"thermlog/participant/1", 0, "", false},
		{"thermlog/participant/1/", 0, "", false},
		{"other/participant/1/control", 0, "", false},
		{"thermlog/command", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			id, kind, ok := ParseParticipantTopic(tt.topic)
			if ok != tt.ok || id != tt.wantID || kind != tt.kind {
				t.Errorf("ParseParticipantTopic() = (%d, %q, %v), want (%d, %q, %v)",
					id, kind, ok, tt.wantID, tt.kind, tt.ok)
			}
		})
	}
}

func TestStatusPayload(t *testing.T) {
	var got SystemStatus
	if err := json.Unmarshal(statusPayload(StatusOffline, "c1", reasonGraceful), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != StatusOffline || got.ClientID != "c1" || got.Reason != reasonGraceful || got.Timestamp == "" {
		t.Errorf("payload = %+v", got)
	}

	var online map[string]any
	if err := json.Unmarshal(statusPayload(StatusOnline, "c1", ""), &online); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, has := online["reason"]; has {
		t.Error("online payload should omit reason")
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "u", Password: "p"}

	opts := buildClientOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "thermlog-test" || opts.Username != "u" || opts.Password != "p" {
		t.Errorf("identity = %q %q %q", opts.ClientID, opts.Username, opts.Password)
	}

	cfg.Broker.TLS = true
	opts = buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig not set")
	}

	configureLWT(opts, "thermlog-test")
	if !opts.WillEnabled || opts.WillTopic != "thermlog/system/status" || !opts.WillRetained {
		t.Errorf("will = %v %q %v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
}

func TestDisconnectedClient(t *testing.T) {
	c := newClient(testConfig())
	handler := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 0, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("a", nil, 3, false), ErrInvalidQoS},
		{"publish oversize", c.Publish("a", make([]byte, maxPayloadSize+1), 0, false), ErrPublishFailed},
		{"publish disconnected", c.Publish("a", []byte("x"), 1, false), ErrNotConnected},
		{"subscribe nil handler", c.Subscribe("a", 0, nil), ErrSubscribeFailed},
		{"subscribe disconnected", c.Subscribe("a", 0, handler), ErrNotConnected},
		{"unsubscribe empty", c.Unsubscribe(""), ErrInvalidTopic},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, tt.err, tt.want)
		}
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true for a never-connected client")
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestDispatchRecoversAndLogs(t *testing.T) {
	c := newClient(testConfig())
	logger := &MockLogger{}
	c.SetLogger(logger)

	c.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)
	c.dispatch(func(string, []byte) error { return errors.New("bad payload") }, "t", nil)
	c.dispatch(func(string, []byte) error { return nil }, "t", nil)

	if len(logger.errors) != 1 {
		t.Errorf("errors logged = %d, want 1", len(logger.errors))
	}
	if len(logger.warns) != 1 {
		t.Errorf("warns logged = %d, want 1", len(logger.warns))
	}
}
