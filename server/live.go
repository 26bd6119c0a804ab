package server

import (
	"sync"
	"time"

	"github.com/Koyaani/titaniumcar/cereal"
)

// Live holds the most recent control state for the status API.
type Live struct {
	mu      sync.RWMutex
	state   cereal.ControlState
	updated time.Time
}

func (l *Live) Update(state cereal.ControlState) {
	l.mu.Lock()
	l.state = state
	l.updated = time.Now()
	l.mu.Unlock()
}

func (l *Live) Snapshot() (cereal.ControlState, time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, l.updated
}
