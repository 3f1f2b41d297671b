package device

import (
	"sync"
)

// StateStore is the authoritative in-memory state of every device.
//
// It is owned by the actuation Service and passed to it by handle; there is
// no package-level store. Each device also has a writer mutex so that a
// command batch and its state mutation are applied without interleaving
// with another plan's commands to the same device.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]State

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewStateStore creates an empty store.
func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[string]State),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Load replaces the state of each given device.
func (s *StateStore) Load(devices []Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range devices {
		s.states[devices[i].ID] = devices[i].State.Clone()
	}
}

// Get returns a copy of a device's state.
func (s *StateStore) Get(deviceID string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[deviceID]
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

// Apply sets each command's data point and returns the resulting snapshot.
func (s *StateStore) Apply(deviceID string, cmds []Command) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[deviceID]
	if st == nil {
		st = State{}
	}
	for _, c := range cmds {
		st[c.Name] = c.Value
	}
	s.states[deviceID] = st
	return st.Clone()
}

// Lock acquires the writer lock for deviceID and returns its release func.
func (s *StateStore) Lock(deviceID string) (unlock func()) {
	s.locksMu.Lock()
	l, ok := s.locks[deviceID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[deviceID] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}
