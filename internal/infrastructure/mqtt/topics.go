package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// TopicPrefix is the root of every thermlog topic.
const TopicPrefix = "thermlog"

// Participant topic kinds, the last segment of thermlog/participant/{id}/{kind}.
const (
	KindLifecycle = "lifecycle"
	KindControl   = "control"
	KindLogging   = "logging"
)

// Topics builds thermlog topic names.
//
//	mqtt.Topics{}.ParticipantLogging(3) // "thermlog/participant/3/logging"
type Topics struct{}

func (Topics) participant(id uint32, kind string) string {
	return fmt.Sprintf("%s/participant/%d/%s", TopicPrefix, id, kind)
}

// ParticipantLifecycle carries create/resume/suspend/unregister events.
func (t Topics) ParticipantLifecycle(id uint32) string { return t.participant(id, KindLifecycle) }

// ParticipantControl carries pushed capability values.
func (t Topics) ParticipantControl(id uint32) string { return t.participant(id, KindControl) }

// ParticipantLogging carries logging enabled/disabled notifications.
func (t Topics) ParticipantLogging(id uint32) string { return t.participant(id, KindLogging) }

// AllLifecycle matches every participant's lifecycle topic.
func (Topics) AllLifecycle() string { return TopicPrefix + "/participant/+/" + KindLifecycle }

// AllControl matches every participant's control topic.
func (Topics) AllControl() string { return TopicPrefix + "/participant/+/" + KindControl }

// Command receives text commands.
func (Topics) Command() string { return TopicPrefix + "/command" }

// CommandResponse carries command results.
func (Topics) CommandResponse() string { return TopicPrefix + "/command/response" }

// LoggingStatus carries the retained session status.
func (Topics) LoggingStatus() string { return TopicPrefix + "/logging/status" }

// SystemStatus carries the retained online/offline status and the Last Will.
func (Topics) SystemStatus() string { return TopicPrefix + "/system/status" }

// ParseParticipantTopic splits thermlog/participant/{id}/{kind}.
// ok is false for any other shape or a non-numeric id.
func ParseParticipantTopic(topic string) (id uint32, kind string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[1] != "participant" || parts[3] == "" {
		return 0, "", false
	}
	n, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return 0, "", false
	}
	return uint32(n), parts[3], true
}
