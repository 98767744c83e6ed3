package participantlog

import (
	"slices"

	"github.com/nerrad567/thermlog/internal/eventbus"
)

// systemParticipant is the participant whose suspend and resume events
// stand for the whole platform sleeping and waking.
const systemParticipant = 0

// onAvailable handles create and resume. Entries are matched by name
// because a participant may come back under a recycled id. Entries of
// another participant still holding that id are detached first.
func (e *Engine) onAvailable(ev eventbus.Event) {
	if ev.ParticipantID == systemParticipant && ev.Type == eventbus.ParticipantResumed {
		e.systemResume()
		return
	}

	name := ev.Name
	if name == "" {
		p, err := e.dir.ByID(ev.ParticipantID)
		if err != nil {
			e.getLogger().Debug("available participant not in directory", "participant", ev.ParticipantID)
			return
		}
		name = p.Name
	}

	var (
		out       outbox
		enabled   []EntryInfo
		detached  int
		reordered bool
		dup       Key
		dupFound  bool
	)
	e.store.mu.Lock()
	if slices.ContainsFunc(e.store.entries, func(en *entry) bool { return en.name == name }) {
		detached = e.store.detachLocked(ev.ParticipantID, name)
		for _, en := range e.store.entries {
			if en.name != name {
				continue
			}
			en.key.ParticipantID = ev.ParticipantID
			en.present = true
			enabled = append(enabled, en.info())
		}
		reordered = e.store.resortLocked()
		dup, dupFound = e.store.duplicateLocked()
	}
	e.store.mu.Unlock()

	if len(enabled) == 0 {
		return
	}
	if dupFound {
		e.getLogger().Error("participant log holds a duplicate key after rebind", "key", dup)
	}
	if reordered {
		e.resetHeaders()
	}
	if detached > 0 {
		e.getLogger().Warn("participant id reused, stale entries detached", "id", ev.ParticipantID,
			"participant", name, "detached", detached)
	}
	e.getLogger().Info("participant available", "participant", name, "id", ev.ParticipantID,
		"entries", len(enabled), "reordered", reordered)
	out.logging(eventbus.LoggingEnabled, enabled)
	e.flush(out)
}

// onUnavailable handles suspend and unregister. Entries stay in the store
// and render placeholders until the participant comes back.
func (e *Engine) onUnavailable(ev eventbus.Event) {
	if ev.ParticipantID == systemParticipant && ev.Type == eventbus.ParticipantSuspended {
		e.systemSuspend()
		return
	}

	var (
		out      outbox
		disabled []EntryInfo
	)
	e.store.mu.Lock()
	for _, en := range e.store.entries {
		if en.key.ParticipantID != ev.ParticipantID {
			continue
		}
		en.present = false
		en.acked = false
		disabled = append(disabled, en.info())
	}
	e.store.mu.Unlock()

	if len(disabled) == 0 {
		return
	}
	e.getLogger().Info("participant unavailable", "id", ev.ParticipantID, "event", ev.Type.String(),
		"entries", len(disabled))
	out.logging(eventbus.LoggingDisabled, disabled)
	e.flush(out)
}

// onControlAction stores a pushed capability value.
func (e *Engine) onControlAction(ev eventbus.Event) {
	k := Key{ParticipantID: ev.ParticipantID, Domain: ev.Domain, Capability: ev.Capability}

	e.store.mu.RLock()
	en := e.store.findLocked(k)
	if en == nil {
		e.store.mu.RUnlock()
		return
	}
	en.setPayload(ev.Payload)
	promote := !en.acked || en.state != Initialized
	e.store.mu.RUnlock()

	if !promote {
		return
	}
	e.store.mu.Lock()
	if en = e.store.findLocked(k); en != nil {
		en.acked = true
		en.state = Initialized
	}
	e.store.mu.Unlock()
}

func (e *Engine) systemSuspend() {
	e.stateMu.Lock()
	already := e.suspended
	e.suspended = true
	e.stateMu.Unlock()
	if already {
		return
	}

	var out outbox
	out.logging(eventbus.LoggingDisabled, e.presentEntries())
	e.getLogger().Info("system suspended, participant log paused")
	e.flush(out)
}

func (e *Engine) systemResume() {
	e.stateMu.Lock()
	if !e.suspended {
		e.stateMu.Unlock()
		return
	}
	e.suspended = false
	e.headerWritten = 0
	e.headerGen++
	e.stateMu.Unlock()

	var out outbox
	out.logging(eventbus.LoggingEnabled, e.presentEntries())
	e.getLogger().Info("system resumed, participant log continues")
	e.flush(out)
}

func (e *Engine) presentEntries() []EntryInfo {
	var present []EntryInfo
	e.store.ForEach(func(ei EntryInfo) {
		if ei.Present {
			present = append(present, ei)
		}
	})
	return present
}
