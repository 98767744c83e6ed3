package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
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

// Registry is the cached participant directory.
//
// Writes go through the repository first and update the cache only on
// success. Reads are served from the cache and return copies.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Registry struct {
	repo    Repository
	cacheMu sync.RWMutex
	byName  map[string]*Participant
	byID    map[uint32]string
	logger  Logger
}

// NewRegistry creates a registry backed by repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		byName: make(map[string]*Participant),
		byID:   make(map[uint32]string),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads every participant from the repository.
func (r *Registry) RefreshCache(ctx context.Context) error {
	participants, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading participants: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.byName = make(map[string]*Participant, len(participants))
	r.byID = make(map[uint32]string, len(participants))
	for i := range participants {
		p := participants[i].Clone()
		r.byName[p.Name] = &p
		r.byID[p.ID] = p.Name
	}

	r.logger.Info("participant cache refreshed", "count", len(participants))
	return nil
}

// Register records a participant announcement (create or resume with a
// domain list) and marks it present.
func (r *Registry) Register(ctx context.Context, p Participant) error {
	p = p.Clone()
	p.Present = true
	p.UpdatedAt = time.Now().UTC()

	if err := r.repo.Save(ctx, p); err != nil {
		return err
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	if prevName, ok := r.byID[p.ID]; ok && prevName != p.Name {
		delete(r.byName, prevName)
		r.logger.Info("participant id recycled", "id", p.ID, "previous", prevName, "name", p.Name)
	}
	if prev, ok := r.byName[p.Name]; ok && prev.ID != p.ID {
		delete(r.byID, prev.ID)
	}
	r.byName[p.Name] = &p
	r.byID[p.ID] = p.Name

	r.logger.Debug("participant registered", "id", p.ID, "name", p.Name, "domains", len(p.SubDevices))
	return nil
}

// SetPresent marks the participant holding id present or absent.
func (r *Registry) SetPresent(ctx context.Context, id uint32, present bool) error {
	if err := r.repo.SetPresent(ctx, id, present); err != nil {
		return err
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if name, ok := r.byID[id]; ok {
		r.byName[name].Present = present
	}
	return nil
}

// List returns every known participant ordered by id.
func (r *Registry) List() []Participant {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	out := make([]Participant, 0, len(r.byName))
	for _, p := range r.byName {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByID returns the participant currently holding id.
func (r *Registry) ByID(id uint32) (Participant, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	name, ok := r.byID[id]
	if !ok {
		return Participant{}, fmt.Errorf("%w: id %d", ErrParticipantNotFound, id)
	}
	return r.byName[name].Clone(), nil
}

// ByName returns the participant called name.
func (r *Registry) ByName(name string) (Participant, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	p, ok := r.byName[name]
	if !ok {
		return Participant{}, fmt.Errorf("%w: name %q", ErrParticipantNotFound, name)
	}
	return p.Clone(), nil
}

// Binding returns the host binding of a domain. It satisfies
// primitive.BindingResolver.
func (r *Registry) Binding(participantID uint32, domain uint8) (string, bool) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	name, ok := r.byID[participantID]
	if !ok {
		return "", false
	}
	for _, sd := range r.byName[name].SubDevices {
		if sd.Index == domain {
			return sd.Binding, sd.Binding != ""
		}
	}
	return "", false
}
