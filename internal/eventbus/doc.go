// Package eventbus is the in-process event bus connecting participant
// lifecycle sources (the MQTT bridge, tests) with the participant logging
// engine, and carrying the engine's logging enabled/disabled notifications
// back out.
//
// Handlers run synchronously on the publisher's goroutine, outside the bus
// lock, in subscription order. A panicking handler is recovered and logged
// so one faulty subscriber cannot take down the publisher.
//
// Subscriptions filter on event type plus an optional participant and domain:
//
//	id := bus.Subscribe(eventbus.ControlAction, eventbus.AnyParticipant, eventbus.AnyDomain,
//	    func(ev eventbus.Event) { ... })
//	defer bus.Unsubscribe(id)
package eventbus
