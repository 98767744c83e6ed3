package command

import (
	"time"

	"github.com/nerrad567/thermlog/internal/participantlog"
)

// StatusReport is the JSON form of a session status, shared by the REST
// API and the retained MQTT status topic.
type StatusReport struct {
	State        string     `json:"state"`
	IntervalMs   int64      `json:"interval_ms"`
	Routes       []string   `json:"routes"`
	FilePath     string     `json:"file_path,omitempty"`
	SessionID    string     `json:"session_id,omitempty"`
	Entries      int        `json:"entries"`
	Suspended    bool       `json:"suspended"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	Ticks        uint64     `json:"ticks"`
}

// Report converts s for JSON output.
func Report(s participantlog.Status) StatusReport {
	r := StatusReport{
		State:      s.State,
		IntervalMs: s.Interval.Milliseconds(),
		Routes:     s.Routes.Names(),
		FilePath:   s.FilePath,
		SessionID:  s.SessionID,
		Entries:    s.Entries,
		Suspended:  s.Suspended,
		Ticks:      s.Ticks,
	}
	if r.Routes == nil {
		r.Routes = []string{}
	}
	if !s.StartedAt.IsZero() {
		t := s.StartedAt
		r.StartedAt = &t
	}
	if !s.ScheduledFor.IsZero() {
		t := s.ScheduledFor
		r.ScheduledFor = &t
	}
	return r
}
