package participantlog

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/nerrad567/thermlog/internal/capability"
)

// DefaultMaxEntries bounds the store when Options.MaxEntries is zero.
const DefaultMaxEntries = 1024

// unboundBase is the lowest id handed to entries detached from a recycled
// participant id. Ids from here up never belong to a live participant.
const unboundBase = math.MaxUint32 - math.MaxUint16

// Key identifies a tracked entry.
type Key struct {
	ParticipantID uint32
	Domain        uint8
	Capability    capability.Type
}

func compareKeys(a, b Key) int {
	if c := cmp.Compare(a.ParticipantID, b.ParticipantID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Domain, b.Domain); c != 0 {
		return c
	}
	return cmp.Compare(a.Capability, b.Capability)
}

// State is the value state of an entry.
type State uint8

// Entry states.
const (
	// Created entries have no value yet and render placeholders.
	Created State = iota

	// Initialized entries have received at least one value.
	Initialized
)

func (s State) String() string {
	if s == Initialized {
		return "initialized"
	}
	return "created"
}

// entry is one tracked capability. key, name, state, present and acked
// change only under the Store write lock; payload only under payloadMu.
type entry struct {
	key     Key
	name    string
	desc    capability.Descriptor
	state   State
	present bool
	acked   bool

	payloadMu sync.Mutex
	payload   []byte
}

func (e *entry) setPayload(p []byte) {
	e.payloadMu.Lock()
	defer e.payloadMu.Unlock()
	e.payload = append(e.payload[:0], p...)
}

func (e *entry) copyPayload() []byte {
	e.payloadMu.Lock()
	defer e.payloadMu.Unlock()
	return append([]byte(nil), e.payload...)
}

func (e *entry) info() EntryInfo {
	return EntryInfo{
		Key:          e.key,
		Name:         e.name,
		State:        e.state,
		Present:      e.present,
		Acknowledged: e.acked,
	}
}

// EntryInfo is a snapshot of an entry.
type EntryInfo struct {
	Key
	Name         string
	State        State
	Present      bool
	Acknowledged bool
}

// Store is the ordered set of tracked entries, sorted by Key.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
//   - The Engine also holds mu directly while rendering (read) and while
//     applying presence changes (write).
type Store struct {
	mu          sync.RWMutex
	entries     []*entry
	capacity    int
	nextUnbound uint32
}

// NewStore creates a store holding at most capacity entries.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultMaxEntries
	}
	return &Store{capacity: capacity, nextUnbound: math.MaxUint32}
}

// isUnbound reports whether id was handed out by detachLocked.
func isUnbound(id uint32) bool {
	return id >= unboundBase
}

func (s *Store) searchLocked(k Key) (int, bool) {
	return slices.BinarySearchFunc(s.entries, k, func(e *entry, k Key) int {
		return compareKeys(e.key, k)
	})
}

func (s *Store) findLocked(k Key) *entry {
	if i, ok := s.searchLocked(k); ok {
		return s.entries[i]
	}
	return nil
}

func (s *Store) insertLocked(e *entry) bool {
	i, found := s.searchLocked(e.key)
	if found {
		return false
	}
	s.entries = slices.Insert(s.entries, i, e)
	return true
}

// insertIfAbsent adds e unless an entry with the same key exists.
// Returns ErrNoMemory if the store is full.
func (s *Store) insertIfAbsent(e *entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(e.key) != nil {
		return false, nil
	}
	if len(s.entries) >= s.capacity {
		return false, ErrNoMemory
	}
	return s.insertLocked(e), nil
}

// fitsAlone reports ErrNoMemory if n entries would not fit in an empty store.
func (s *Store) fitsAlone(n int) error {
	if n > s.capacity {
		return fmt.Errorf("%w: %d entries requested", ErrNoMemory, n)
	}
	return nil
}

// insertBatch inserts every entry whose key is absent, or none of them if
// they would not fit. Returns the inserted entries.
func (s *Store) insertBatch(batch []*entry) ([]EntryInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := 0
	for _, e := range batch {
		if s.findLocked(e.key) == nil {
			fresh++
		}
	}
	if len(s.entries)+fresh > s.capacity {
		return nil, ErrNoMemory
	}

	inserted := make([]EntryInfo, 0, fresh)
	for _, e := range batch {
		if s.insertLocked(e) {
			inserted = append(inserted, e.info())
		}
	}
	return inserted, nil
}

// Find returns a snapshot of the entry with key k.
func (s *Store) Find(k Key) (EntryInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e := s.findLocked(k); e != nil {
		return e.info(), true
	}
	return EntryInfo{}, false
}

// ForEach calls fn for every entry in key order under the read lock.
// fn must not call back into the Store.
func (s *Store) ForEach(fn func(EntryInfo)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		fn(e.info())
	}
}

// Snapshot returns every entry in key order.
func (s *Store) Snapshot() []EntryInfo {
	out := make([]EntryInfo, 0, s.Len())
	s.ForEach(func(ei EntryInfo) {
		out = append(out, ei)
	})
	return out
}

// Clear removes every entry and returns what was removed.
func (s *Store) Clear() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make([]EntryInfo, len(s.entries))
	for i, e := range s.entries {
		removed[i] = e.info()
	}
	s.entries = nil
	return removed
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// resortLocked restores key order after ids were rebound and reports
// whether the order changed.
func (s *Store) resortLocked() bool {
	before := slices.Clone(s.entries)
	slices.SortStableFunc(s.entries, func(a, b *entry) int {
		return compareKeys(a.key, b.key)
	})
	return !slices.Equal(before, s.entries)
}

// detachLocked moves entries holding id under a name other than keep onto
// unbound ids, one per name, so a participant reusing id cannot collide
// with them. They rebind by name if their participant comes back.
// Returns the number of entries moved.
func (s *Store) detachLocked(id uint32, keep string) int {
	assigned := make(map[string]uint32)
	moved := 0
	for _, en := range s.entries {
		if en.key.ParticipantID != id || en.name == keep {
			continue
		}
		to, ok := assigned[en.name]
		if !ok {
			to = s.allocUnboundLocked()
			assigned[en.name] = to
		}
		en.key.ParticipantID = to
		en.present = false
		en.acked = false
		moved++
	}
	return moved
}

func (s *Store) allocUnboundLocked() uint32 {
	for {
		id := s.nextUnbound
		s.nextUnbound--
		if s.nextUnbound < unboundBase {
			s.nextUnbound = math.MaxUint32
		}
		if !s.holdsIDLocked(id) {
			return id
		}
	}
}

func (s *Store) holdsIDLocked(id uint32) bool {
	for _, en := range s.entries {
		if en.key.ParticipantID == id {
			return true
		}
	}
	return false
}

// duplicateLocked returns the first key held by more than one entry.
// The entries must be sorted.
func (s *Store) duplicateLocked() (Key, bool) {
	for i := 1; i < len(s.entries); i++ {
		if s.entries[i-1].key == s.entries[i].key {
			return s.entries[i].key, true
		}
	}
	return Key{}, false
}
