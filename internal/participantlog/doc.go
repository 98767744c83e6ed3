// Package participantlog implements the participant capability logger.
//
// An Engine tracks (participant, domain, capability) entries, polls pull
// capabilities on a drift-corrected cadence, and writes one CSV row per
// tick to every active output route. Push capabilities render the last
// value the participant sent on the event bus.
//
// Sessions move between Stopped, Scheduled and Started:
//
//	Stopped --Start--> Started --Stop--> Stopped
//	Stopped --Schedule--> Scheduled --(delay)--> Started
//
// Each route gets exactly one header line after it is activated, followed
// by one data row per tick. Entries whose participant is absent, or whose
// value is not yet known, render as one "X" per column so rows stay
// aligned with the header.
//
// Locking:
//   - controlMu serialises commands and the schedule timer.
//   - The Store lock guards entry structure and flags; each entry payload
//     has its own lock so push updates never wait on a row render.
//   - stateMu guards routes and session flags read by the worker.
//
// Bus notifications are always published after every lock is released.
package participantlog
