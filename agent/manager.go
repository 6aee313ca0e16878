package agent

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAlreadyRegistered is returned when registering an agent whose name is
// already taken. The registry retains the first registration.
var ErrAlreadyRegistered = errors.New("agent name already registered")

// Manager is the process-wide agent registry. It is created once per
// top-level run and passed by reference to every Agent at construction,
// enabling isolated tests with independent registries. All methods are safe
// for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	agents map[string]*Agent
	order  []string
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{agents: make(map[string]*Agent)}
}

// Register adds an agent under its unique name. Registering a duplicate name
// fails with ErrAlreadyRegistered and leaves the registry unchanged.
func (m *Manager) Register(a *Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.agents[a.Name()]; exists {
		return fmt.Errorf("agent %q: %w", a.Name(), ErrAlreadyRegistered)
	}

	m.agents[a.Name()] = a
	m.order = append(m.order, a.Name())
	return nil
}

// Get returns the agent registered under name, if any.
func (m *Manager) Get(name string) (*Agent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[name]
	return a, ok
}

// Unregister removes the named agent if present; unknown names are a no-op.
func (m *Manager) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.agents[name]; !ok {
		return
	}

	delete(m.agents, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// AllAgents returns a snapshot of all registered agents in registration order.
func (m *Manager) AllAgents() []*Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agents := make([]*Agent, 0, len(m.order))
	for _, name := range m.order {
		agents = append(agents, m.agents[name])
	}
	return agents
}

// Names returns the registered agent names in registration order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}
