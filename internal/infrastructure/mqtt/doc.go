// Package mqtt connects thermlog to an MQTT broker.
//
// The client wraps paho.mqtt.golang with:
//   - auto-reconnect, with tracked subscriptions restored after each reconnect
//   - panic-recovering message handlers
//   - a retained online/offline status on thermlog/system/status, including
//     a Last Will so a crash is visible to other clients
//
// Topic names are built with Topics so every publisher and subscriber
// agrees on the hierarchy:
//
//	thermlog/participant/{id}/lifecycle   in:  create/resume/suspend/unregister
//	thermlog/participant/{id}/control     in:  pushed capability values
//	thermlog/participant/{id}/logging     out: logging enabled/disabled
//	thermlog/command                      in:  text commands
//	thermlog/command/response             out: command results
//	thermlog/logging/status               out: retained session status
//	thermlog/system/status                out: retained online/offline
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllLifecycle(), 1,
//	    func(topic string, payload []byte) error {
//	        id, kind, ok := mqtt.ParseParticipantTopic(topic)
//	        ...
//	    })
package mqtt
