package participantlog

import (
	"context"
	"fmt"

	"github.com/nerrad567/thermlog/internal/capability"
	"github.com/nerrad567/thermlog/internal/eventbus"
)

// prepare resolves t against the directory and builds the entries it
// names. Pull entries get one refresh so they start Initialized when the
// read works. Nothing is inserted; a resolution error leaves no trace.
func (e *Engine) prepare(ctx context.Context, t Targets) ([]*entry, error) {
	var (
		batch []*entry
		seen  = make(map[Key]bool)
	)
	add := func(id uint32, name string, domain uint8, mask capability.Mask) {
		for _, ct := range mask.Types() {
			k := Key{ParticipantID: id, Domain: domain, Capability: ct}
			if seen[k] {
				continue
			}
			seen[k] = true
			desc, _ := capability.Lookup(ct)
			batch = append(batch, &entry{key: k, name: name, desc: desc, present: true})
		}
	}

	if t.All {
		for _, p := range e.dir.List() {
			if !p.Present {
				continue
			}
			for _, sd := range p.SubDevices {
				add(p.ID, p.Name, sd.Index, sd.CapabilityMask.Known())
			}
		}
	} else {
		if len(t.Selectors) == 0 {
			return nil, fmt.Errorf("%w: no selectors", ErrParameterInvalid)
		}
		for _, sel := range t.Selectors {
			p, err := resolveParticipant(e.dir, sel.Participant)
			if err != nil {
				return nil, err
			}
			domains, err := resolveDomains(p, sel.Domain)
			if err != nil {
				return nil, err
			}
			for _, d := range domains {
				advertised, err := p.CapabilityMask(d)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidSubDeviceID, err)
				}
				mask, err := resolveMask(sel.Capability, advertised)
				if err != nil {
					return nil, err
				}
				add(p.ID, p.Name, d, mask)
			}
		}
	}

	for _, en := range batch {
		if en.desc.Model != capability.Pull {
			continue
		}
		payload, err := e.pull(ctx, en.key, en.desc)
		if err != nil {
			e.getLogger().Debug("initial pull failed", "participant", en.name, "domain", en.key.Domain,
				"capability", en.desc.Name, "error", err)
			continue
		}
		en.payload = payload
		en.state = Initialized
	}
	return batch, nil
}

// commit inserts a prepared batch and queues logging-enabled
// notifications for the new entries.
func (e *Engine) commit(batch []*entry, out *outbox) error {
	inserted, err := e.store.insertBatch(batch)
	if err != nil {
		return fmt.Errorf("%w: %d entries requested", err, len(batch))
	}
	out.logging(eventbus.LoggingEnabled, inserted)
	return nil
}

// pull reads every field of a pull capability and packs the payload.
func (e *Engine) pull(ctx context.Context, k Key, desc capability.Descriptor) ([]byte, error) {
	values := make([]uint64, len(desc.Fields))
	for i, f := range desc.Fields {
		rctx, cancel := context.WithTimeout(ctx, e.opts.PrimitiveTimeout)
		v, err := e.exec.Read(rctx, k.ParticipantID, k.Domain, f.Read)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s: %w", ErrPrimitiveReadFailed, desc.Name, f.Read, err)
		}
		values[i] = v
	}
	return desc.Encode(values...), nil
}

// outbox collects bus events while locks are held so they can be
// published once every lock is released.
type outbox []eventbus.Event

func (o *outbox) add(ev eventbus.Event) {
	*o = append(*o, ev)
}

// logging queues one event of type t per (participant, domain) carrying
// the push-model bits of entries. Empty masks are skipped.
func (o *outbox) logging(t eventbus.Type, entries []EntryInfo) {
	type group struct {
		id     uint32
		domain uint8
	}
	var (
		order []group
		names = make(map[group]string)
		masks = make(map[group]capability.Mask)
	)
	for _, en := range entries {
		g := group{en.ParticipantID, en.Domain}
		if _, ok := masks[g]; !ok {
			order = append(order, g)
			names[g] = en.Name
		}
		masks[g] |= en.Capability.Bit()
	}
	for _, g := range order {
		mask := masks[g].PushOnly()
		if mask == 0 {
			continue
		}
		o.add(eventbus.Event{Type: t, ParticipantID: g.id, Domain: g.domain, Name: names[g], Mask: mask})
	}
}

func (e *Engine) flush(o outbox) {
	for _, ev := range o {
		e.bus.Publish(ev)
	}
}
