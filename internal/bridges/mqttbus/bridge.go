package mqttbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/thermlog/internal/command"
	"github.com/nerrad567/thermlog/internal/directory"
	"github.com/nerrad567/thermlog/internal/eventbus"
	"github.com/nerrad567/thermlog/internal/infrastructure/mqtt"
	"github.com/nerrad567/thermlog/internal/participantlog"
)

// systemParticipant addresses the host as a whole.
const systemParticipant = 0

// MQTTClient is the broker connection the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Directory records participant announcements.
type Directory interface {
	Register(ctx context.Context, p directory.Participant) error
	SetPresent(ctx context.Context, id uint32, present bool) error
	ByID(id uint32) (directory.Participant, error)
}

// Bus is the event bus the bridge feeds and listens to.
type Bus interface {
	Subscribe(t eventbus.Type, participant uint32, domain uint8, h eventbus.Handler) eventbus.SubscriptionID
	Unsubscribe(id eventbus.SubscriptionID)
	Publish(ev eventbus.Event) int
}

// Commander runs text commands.
type Commander interface {
	Execute(ctx context.Context, line string) command.Result
}

// StatusSource reports the logging session status.
type StatusSource interface {
	Status() participantlog.Status
}

// Logger is the logging interface the bridge needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds the bridge collaborators. MQTT, Directory and Bus are
// required; without Commands the command topic is not subscribed, and
// without Status no session status is published.
type Options struct {
	MQTT      MQTTClient
	Directory Directory
	Bus       Bus
	Commands  Commander
	Status    StatusSource
	QoS       byte
	Logger    Logger
}

// Bridge moves messages between MQTT and the event bus.
//
// Thread Safety:
//   - Start and Stop may be called from any goroutine; Stop is idempotent.
//   - Handlers run on MQTT client goroutines and on event publishers.
type Bridge struct {
	mqtt     MQTTClient
	dir      Directory
	bus      Bus
	commands Commander
	status   StatusSource
	qos      byte
	logger   Logger
	topics   mqtt.Topics

	ctx    context.Context
	cancel context.CancelFunc

	subMu      sync.Mutex
	busSubs    []eventbus.SubscriptionID
	mqttTopics []string
	stopOnce   sync.Once
}

// New validates opts and returns a stopped bridge.
func New(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("mqttbus: MQTT client is required")
	}
	if opts.Directory == nil {
		return nil, fmt.Errorf("mqttbus: directory is required")
	}
	if opts.Bus == nil {
		return nil, fmt.Errorf("mqttbus: event bus is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		mqtt:     opts.MQTT,
		dir:      opts.Directory,
		bus:      opts.Bus,
		commands: opts.Commands,
		status:   opts.Status,
		qos:      opts.QoS,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start subscribes to the inbound topics and the outbound bus events, then
// publishes the current session status.
func (b *Bridge) Start() error {
	b.subMu.Lock()
	b.busSubs = append(b.busSubs,
		b.bus.Subscribe(eventbus.LoggingEnabled, eventbus.AnyParticipant, eventbus.AnyDomain, b.onLogging),
		b.bus.Subscribe(eventbus.LoggingDisabled, eventbus.AnyParticipant, eventbus.AnyDomain, b.onLogging),
	)
	if b.status != nil {
		b.busSubs = append(b.busSubs,
			b.bus.Subscribe(eventbus.SessionChanged, eventbus.AnyParticipant, eventbus.AnyDomain, b.onSession))
	}
	b.subMu.Unlock()

	inbound := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{b.topics.AllLifecycle(), b.handleLifecycle},
		{b.topics.AllControl(), b.handleControl},
	}
	if b.commands != nil {
		inbound = append(inbound, struct {
			topic   string
			handler mqtt.MessageHandler
		}{b.topics.Command(), b.handleCommand})
	}
	for _, in := range inbound {
		if err := b.mqtt.Subscribe(in.topic, b.qos, in.handler); err != nil {
			b.Stop()
			return fmt.Errorf("subscribe %s: %w", in.topic, err)
		}
		b.subMu.Lock()
		b.mqttTopics = append(b.mqttTopics, in.topic)
		b.subMu.Unlock()
		b.logger.Info("mqtt bridge subscribed", "topic", in.topic)
	}

	if b.status != nil {
		b.publishStatus()
	}
	return nil
}

// Stop removes every subscription. In-flight commands see a cancelled context.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.cancel()

		b.subMu.Lock()
		subs, topics := b.busSubs, b.mqttTopics
		b.busSubs, b.mqttTopics = nil, nil
		b.subMu.Unlock()

		for _, id := range subs {
			b.bus.Unsubscribe(id)
		}
		for _, topic := range topics {
			if err := b.mqtt.Unsubscribe(topic); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
				b.logger.Warn("mqtt bridge unsubscribe failed", "topic", topic, "error", err)
			}
		}
		b.logger.Info("mqtt bridge stopped")
	})
}

func (b *Bridge) handleLifecycle(topic string, payload []byte) error {
	id, kind, ok := mqtt.ParseParticipantTopic(topic)
	if !ok || kind != mqtt.KindLifecycle {
		return fmt.Errorf("%w: topic %s", ErrInvalidMessage, topic)
	}
	var msg LifecycleMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	typ, ok := eventbus.ParseLifecycle(msg.Event)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Event)
	}

	ev := eventbus.Event{Type: typ, ParticipantID: id, Name: msg.Name}
	if id != systemParticipant || typ == eventbus.ParticipantCreated || typ == eventbus.ParticipantUnregistered {
		name, err := b.record(id, typ, msg)
		if err != nil {
			return err
		}
		ev.Name = name
	}

	n := b.bus.Publish(ev)
	b.logger.Debug("participant lifecycle", "participant", id, "event", msg.Event, "name", ev.Name, "handlers", n)
	return nil
}

// record applies a lifecycle event to the directory and returns the
// participant name to put on the bus event.
func (b *Bridge) record(id uint32, typ eventbus.Type, msg LifecycleMessage) (string, error) {
	announce := typ == eventbus.ParticipantCreated || (typ == eventbus.ParticipantResumed && len(msg.Domains) > 0)
	if announce {
		p := directory.Participant{ID: id, Name: msg.Name, SubDevices: msg.Domains}
		if err := p.Validate(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		if err := b.dir.Register(b.ctx, p); err != nil {
			return "", fmt.Errorf("register participant %d: %w", id, err)
		}
		return p.Name, nil
	}

	present := typ == eventbus.ParticipantResumed
	if err := b.dir.SetPresent(b.ctx, id, present); err != nil {
		return "", fmt.Errorf("set participant %d present=%v: %w", id, present, err)
	}
	if msg.Name != "" {
		return msg.Name, nil
	}
	if p, err := b.dir.ByID(id); err == nil {
		return p.Name, nil
	}
	return "", nil
}

func (b *Bridge) handleControl(topic string, payload []byte) error {
	id, kind, ok := mqtt.ParseParticipantTopic(topic)
	if !ok || kind != mqtt.KindControl {
		return fmt.Errorf("%w: topic %s", ErrInvalidMessage, topic)
	}
	var msg ControlMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%w: empty control payload", ErrInvalidMessage)
	}

	b.bus.Publish(eventbus.Event{
		Type:          eventbus.ControlAction,
		ParticipantID: id,
		Domain:        msg.Domain,
		Capability:    msg.Capability,
		Payload:       msg.Payload,
	})
	return nil
}

func (b *Bridge) handleCommand(_ string, payload []byte) error {
	var msg CommandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	res := b.commands.Execute(b.ctx, msg.Command)
	resp := CommandResponse{ID: msg.ID, Output: res.Output, Code: int(res.Code)}
	if res.Err != nil {
		resp.Error = command.ErrorLine(res.Err)
	}
	b.logger.Info("mqtt command", "id", msg.ID, "command", msg.Command, "code", resp.Code)
	return b.publishJSON(b.topics.CommandResponse(), resp, false)
}

func (b *Bridge) onLogging(ev eventbus.Event) {
	msg := LoggingMessage{
		Event:          ev.Type.String(),
		Domain:         ev.Domain,
		CapabilityMask: ev.Mask,
	}
	if err := b.publishJSON(b.topics.ParticipantLogging(ev.ParticipantID), msg, false); err != nil {
		b.logger.Warn("logging notification not published",
			"participant", ev.ParticipantID, "domain", ev.Domain, "event", msg.Event, "error", err)
	}
}

func (b *Bridge) onSession(eventbus.Event) {
	b.publishStatus()
}

func (b *Bridge) publishStatus() {
	if err := b.publishJSON(b.topics.LoggingStatus(), command.Report(b.status.Status()), true); err != nil {
		b.logger.Warn("logging status not published", "error", err)
	}
}

func (b *Bridge) publishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	if !b.mqtt.IsConnected() {
		return mqtt.ErrNotConnected
	}
	return b.mqtt.Publish(topic, payload, b.qos, retained)
}
