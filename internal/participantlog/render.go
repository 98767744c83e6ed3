package participantlog

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/thermlog/internal/capability"
)

const fieldSeparator = ","

var (
	timeColumns        = []string{"Date", "Time", "Server Msec"}
	participantColumns = []string{"Participant Index", "Participant Name", "Domain Id"}
	domainColumns      = []string{"Domain Id"}
)

// pullOutcome records one pull refresh made while rendering.
type pullOutcome struct {
	key  Key
	name string
	err  error
}

// frame is one rendered tick.
type frame struct {
	header  string
	row     string
	entries int
	pulls   []pullOutcome
	promote []*entry
}

// lineBuilder joins fields with the separator.
type lineBuilder struct {
	b strings.Builder
	n int
}

func (l *lineBuilder) add(fields ...string) {
	for _, f := range fields {
		if l.n > 0 {
			l.b.WriteString(fieldSeparator)
		}
		l.b.WriteString(f)
		l.n++
	}
}

func (l *lineBuilder) String() string {
	return l.b.String()
}

// render refreshes pull entries and formats the data row, plus the header
// when withHeader is set. Both come from one traversal under the store read
// lock so their columns line up.
func (e *Engine) render(ctx context.Context, now time.Time, withHeader bool) frame {
	var (
		f      frame
		header lineBuilder
		row    lineBuilder
	)
	if withHeader {
		header.add(timeColumns...)
	}
	row.add(now.Format("2006-01-02"), now.Format("15:04:05"), strconv.FormatInt(now.UnixMilli(), 10))

	e.store.mu.RLock()
	f.entries = len(e.store.entries)
	var prev *entry
	for _, en := range e.store.entries {
		newParticipant := prev == nil || prev.key.ParticipantID != en.key.ParticipantID
		newDomain := newParticipant || prev.key.Domain != en.key.Domain
		prev = en

		domain := strconv.Itoa(int(en.key.Domain))
		switch {
		case newParticipant:
			if withHeader {
				header.add(participantColumns...)
			}
			id := capability.Placeholder
			if !isUnbound(en.key.ParticipantID) {
				id = strconv.FormatUint(uint64(en.key.ParticipantID), 10)
			}
			row.add(id, en.name, domain)
		case newDomain:
			if withHeader {
				header.add(domainColumns...)
			}
			row.add(domain)
		}

		if withHeader {
			prefix := en.name + "_D" + domain + "_"
			for _, c := range en.desc.Columns() {
				header.add(prefix + c)
			}
		}
		row.add(e.renderValues(ctx, en, &f)...)
	}
	e.store.mu.RUnlock()

	f.header = header.String()
	f.row = row.String()
	return f
}

// renderValues returns one field per column of en. Pull entries are
// refreshed first; anything unknown, absent or malformed is placeholders.
func (e *Engine) renderValues(ctx context.Context, en *entry, f *frame) []string {
	if !en.present {
		return en.desc.Placeholders()
	}

	if en.desc.Model == capability.Pull {
		payload, err := e.pull(ctx, en.key, en.desc)
		f.pulls = append(f.pulls, pullOutcome{key: en.key, name: en.name, err: err})
		if err != nil {
			return en.desc.Placeholders()
		}
		en.setPayload(payload)
		if en.state != Initialized {
			f.promote = append(f.promote, en)
		}
		values, err := en.desc.Format(payload)
		if err != nil {
			return en.desc.Placeholders()
		}
		return values
	}

	if en.state != Initialized {
		return en.desc.Placeholders()
	}
	values, err := en.desc.Format(en.copyPayload())
	if err != nil {
		return en.desc.Placeholders()
	}
	return values
}
